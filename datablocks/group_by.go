package datablocks

import (
	"bytes"
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/trace"
)

// GroupEntry is one group: the serialized key, the key values and the rows
// that carry them.
type GroupEntry struct {
	Key     []byte
	Values  []datavalues.DataValue
	Indices []uint32
}

// GroupIndicesTable maps group keys to their rows. Groups keep the order in
// which their key first appeared.
type GroupIndicesTable struct {
	entries []*GroupEntry
	index   map[string]int
}

func NewGroupIndicesTable() *GroupIndicesTable {
	return &GroupIndicesTable{index: make(map[string]int)}
}

func (t *GroupIndicesTable) Len() int { return len(t.entries) }

// Entries returns the groups in first-appearance order.
func (t *GroupIndicesTable) Entries() []*GroupEntry { return t.entries }

func (t *GroupIndicesTable) Get(key []byte) (*GroupEntry, bool) {
	i, ok := t.index[string(key)]
	if !ok {
		return nil, false
	}
	return t.entries[i], true
}

// Range calls fn for every group until fn returns false.
func (t *GroupIndicesTable) Range(fn func(*GroupEntry) bool) {
	for _, e := range t.entries {
		if !fn(e) {
			return
		}
	}
}

func (t *GroupIndicesTable) add(key []byte, values []datavalues.DataValue, row uint32) {
	if i, ok := t.index[string(key)]; ok {
		t.entries[i].Indices = append(t.entries[i].Indices, row)
		return
	}
	t.index[string(key)] = len(t.entries)
	t.entries = append(t.entries, &GroupEntry{
		Key:     append([]byte(nil), key...),
		Values:  values,
		Indices: []uint32{row},
	})
}

// Merge folds other into t. Row indices of other are shifted by rowOffset so
// both tables address one logical concatenation of their blocks.
func (t *GroupIndicesTable) Merge(other *GroupIndicesTable, rowOffset uint32) {
	for _, e := range other.entries {
		shifted := make([]uint32, len(e.Indices))
		for i, idx := range e.Indices {
			shifted[i] = idx + rowOffset
		}
		if i, ok := t.index[string(e.Key)]; ok {
			t.entries[i].Indices = append(t.entries[i].Indices, shifted...)
			continue
		}
		t.index[string(e.Key)] = len(t.entries)
		t.entries = append(t.entries, &GroupEntry{Key: e.Key, Values: e.Values, Indices: shifted})
	}
}

// groupKeyColumns resolves the grouping columns and their key encoders. A
// constant column encodes the same key part for every row.
type groupKeyColumns struct {
	columns  []datavalues.DataColumn
	encoders []datavalues.RowKeyEncoder
}

func resolveGroupColumns(block *DataBlock, names []string) (*groupKeyColumns, error) {
	g := &groupKeyColumns{
		columns:  make([]datavalues.DataColumn, len(names)),
		encoders: make([]datavalues.RowKeyEncoder, len(names)),
	}
	for i, name := range names {
		col, err := block.TryColumnByName(name)
		if err != nil {
			return nil, err
		}
		g.columns[i] = col
		if col.IsConstant() {
			part := datavalues.AppendValueKey(nil, col.ConstantValue())
			g.encoders[i] = func(buf []byte, _ int) []byte { return append(buf, part...) }
			continue
		}
		arr, err := col.ToArray()
		if err != nil {
			return nil, err
		}
		g.encoders[i] = datavalues.NewRowKeyEncoder(arr)
	}
	return g, nil
}

func (g *groupKeyColumns) appendKey(buf []byte, row int) []byte {
	for _, enc := range g.encoders {
		buf = enc(buf, row)
	}
	return buf
}

func (g *groupKeyColumns) values(row int) []datavalues.DataValue {
	out := make([]datavalues.DataValue, len(g.columns))
	for i, c := range g.columns {
		out[i] = c.Get(row)
	}
	return out
}

// GroupByGetIndices groups the rows of block by the named columns. Two rows
// fall in the same group exactly when all their key values are equal, nulls
// being equal to each other.
func GroupByGetIndices(block *DataBlock, names []string) (*GroupIndicesTable, error) {
	g, err := resolveGroupColumns(block, names)
	if err != nil {
		return nil, err
	}
	table := NewGroupIndicesTable()
	buf := make([]byte, 0, 64)
	for row := 0; row < block.NumRows(); row++ {
		buf = g.appendKey(buf[:0], row)
		if e, ok := table.index[string(buf)]; ok {
			table.entries[e].Indices = append(table.entries[e].Indices, uint32(row))
			continue
		}
		table.add(buf, g.values(row), uint32(row))
	}
	trace.GetTracer().Debug(trace.ComponentGrouping, "Grouped block by key bytes",
		trace.Context("rows", block.NumRows(), "groups", table.Len(), "keys", names))
	return table, nil
}

// GroupBlock is one group of GroupBy with its rows gathered into a block.
type GroupBlock struct {
	Key    []byte
	Values []datavalues.DataValue
	Block  *DataBlock
}

// GroupBy splits block into one sub-block per group.
func GroupBy(block *DataBlock, names []string) ([]GroupBlock, error) {
	table, err := GroupByGetIndices(block, names)
	if err != nil {
		return nil, err
	}
	out := make([]GroupBlock, 0, table.Len())
	for _, e := range table.entries {
		sub, err := BlockTakeByIndices(block, e.Indices)
		if err != nil {
			return nil, err
		}
		out = append(out, GroupBlock{Key: e.Key, Values: e.Values, Block: sub})
	}
	return out, nil
}

// GroupByHash groups rows through a table keyed by the combined siphash of
// the key columns. Hash equality alone never merges two groups: every bucket
// hit is confirmed against the serialized key, and colliding keys chain in
// the same bucket.
func GroupByHash(block *DataBlock, names []string) (*GroupIndicesTable, error) {
	return groupByHashWith(block, names, hashRows)
}

func hashRows(g *groupKeyColumns, n int) ([]uint64, error) {
	hashes := make([]uint64, n)
	for i, col := range g.columns {
		var colHashes []uint64
		if col.IsConstant() {
			h := datavalues.HashValue(col.ConstantValue())
			colHashes = make([]uint64, n)
			for r := range colHashes {
				colHashes[r] = h
			}
		} else {
			arr, err := col.ToArray()
			if err != nil {
				return nil, err
			}
			colHashes = datavalues.VecHash(arr).Values()
		}
		for r := range hashes {
			if i == 0 {
				hashes[r] = colHashes[r]
			} else {
				hashes[r] = datavalues.CombineHash(hashes[r], colHashes[r])
			}
		}
	}
	return hashes, nil
}

func groupByHashWith(block *DataBlock, names []string, hasher func(*groupKeyColumns, int) ([]uint64, error)) (*GroupIndicesTable, error) {
	g, err := resolveGroupColumns(block, names)
	if err != nil {
		return nil, err
	}
	hashes, err := hasher(g, block.NumRows())
	if err != nil {
		return nil, err
	}
	if len(hashes) != block.NumRows() {
		return nil, errorcode.LogicalError("Hashed %d rows of a block with %d rows", len(hashes), block.NumRows())
	}

	table := NewGroupIndicesTable()
	buckets := make(map[uint64][]int)
	collisions := 0
	buf := make([]byte, 0, 64)
	for row, h := range hashes {
		buf = g.appendKey(buf[:0], row)
		found := false
		for _, e := range buckets[h] {
			if bytes.Equal(table.entries[e].Key, buf) {
				table.entries[e].Indices = append(table.entries[e].Indices, uint32(row))
				found = true
				break
			}
		}
		if found {
			continue
		}
		if len(buckets[h]) > 0 {
			collisions++
		}
		buckets[h] = append(buckets[h], table.Len())
		table.add(buf, g.values(row), uint32(row))
	}
	trace.GetTracer().Debug(trace.ComponentGrouping, "Grouped block by hash",
		trace.Context("rows", block.NumRows(), "groups", table.Len(), "collisions", collisions))
	return table, nil
}

// GroupByPartitions groups several blocks concurrently, at most parallelism
// at a time, and merges the partial tables in block order. Row indices of
// the result address the concatenation of the blocks.
func GroupByPartitions(ctx context.Context, blocks []*DataBlock, names []string, parallelism int) (*GroupIndicesTable, error) {
	partials := make([]*GroupIndicesTable, len(blocks))
	eg, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		eg.SetLimit(parallelism)
	}
	for i, b := range blocks {
		i, b := i, b
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			table, err := GroupByGetIndices(b, names)
			if err != nil {
				return err
			}
			partials[i] = table
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := NewGroupIndicesTable()
	offset := uint32(0)
	for i, p := range partials {
		merged.Merge(p, offset)
		offset += uint32(blocks[i].NumRows())
	}
	return merged, nil
}

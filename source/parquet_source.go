// Package source reads parquet files into data blocks.
package source

import (
	"io"
	"net/url"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"
	"howett.net/ranger"

	"github.com/zhaox1n/datafuse/config"
	"github.com/zhaox1n/datafuse/datablocks"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/trace"
)

// ParquetSource streams a flat parquet file as blocks of at most batchSize
// rows. Optional columns become nullable fields.
type ParquetSource struct {
	location  string
	file      *parquet.File
	reader    *parquet.Reader
	closer    io.Closer
	schema    *dv.DataSchema
	batchSize int
	rows      []parquet.Row
	read      int64
}

// OpenFile opens a local parquet file. A non-positive batchSize uses the
// configured default.
func OpenFile(path string, batchSize int) (*ParquetSource, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file %s", path)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to get file stats of %s", path)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to open parquet file %s", path)
	}
	s, err := newParquetSource(path, pf, f, batchSize)
	if err != nil {
		f.Close()
		return nil, err
	}
	trace.GetTracer().Info(trace.ComponentSource, "Parquet source opened", trace.Context(
		"file", path,
		"open_ms", time.Since(start).Milliseconds(),
		"row_groups", len(pf.RowGroups()),
		"rows", pf.NumRows(),
	))
	return s, nil
}

// OpenURL opens a parquet file served over HTTP using range requests.
func OpenURL(rawURL string, batchSize int) (*ParquetSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse URL %s", rawURL)
	}
	r, err := ranger.NewReader(&ranger.HTTPRanger{URL: u})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create HTTP reader for %s", rawURL)
	}
	length, err := r.Length()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get HTTP content length of %s", rawURL)
	}
	pf, err := parquet.OpenFile(r, length)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open remote parquet file %s", rawURL)
	}
	trace.GetTracer().Info(trace.ComponentSource, "Remote parquet source opened",
		trace.Context("url", rawURL, "bytes", length, "rows", pf.NumRows()))
	return newParquetSource(rawURL, pf, nil, batchSize)
}

func newParquetSource(location string, pf *parquet.File, closer io.Closer, batchSize int) (*ParquetSource, error) {
	schema, err := convertSchema(pf.Schema())
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = config.Global().BatchSize
	}
	return &ParquetSource{
		location:  location,
		file:      pf,
		reader:    parquet.NewReader(pf),
		closer:    closer,
		schema:    schema,
		batchSize: batchSize,
		rows:      make([]parquet.Row, batchSize),
	}, nil
}

// convertSchema maps the top level parquet columns to data fields. Nested
// and repeated columns are rejected.
func convertSchema(schema *parquet.Schema) (*dv.DataSchema, error) {
	fields := make([]dv.DataField, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		if !f.Leaf() || f.Repeated() {
			return nil, errorcode.BadDataValueType("Unsupported parquet column %s: only flat columns can be read", f.Name())
		}
		t, err := convertType(f.Type())
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", f.Name())
		}
		fields = append(fields, dv.NewDataField(f.Name(), t, f.Optional()))
	}
	return dv.NewDataSchema(fields...), nil
}

func convertType(t parquet.Type) (dv.DataType, error) {
	lt := t.LogicalType()
	switch t.Kind() {
	case parquet.Boolean:
		return dv.BooleanType, nil
	case parquet.Int32:
		switch {
		case lt != nil && lt.Date != nil:
			return dv.Date32Type, nil
		case lt != nil && lt.Integer != nil:
			return integerType(int(lt.Integer.BitWidth), lt.Integer.IsSigned), nil
		}
		return dv.Int32Type, nil
	case parquet.Int64:
		if lt != nil && lt.Integer != nil && !lt.Integer.IsSigned {
			return dv.UInt64Type, nil
		}
		if lt != nil && lt.Timestamp != nil {
			return dv.Date64Type, nil
		}
		return dv.Int64Type, nil
	case parquet.Float:
		return dv.Float32Type, nil
	case parquet.Double:
		return dv.Float64Type, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		if lt != nil && lt.UTF8 != nil {
			return dv.Utf8Type, nil
		}
		return dv.BinaryType, nil
	}
	return dv.NullType, errorcode.BadDataValueType("Unsupported parquet type %s", t)
}

func integerType(bits int, signed bool) dv.DataType {
	switch {
	case bits == 8 && signed:
		return dv.Int8Type
	case bits == 8:
		return dv.UInt8Type
	case bits == 16 && signed:
		return dv.Int16Type
	case bits == 16:
		return dv.UInt16Type
	case signed:
		return dv.Int32Type
	}
	return dv.UInt32Type
}

func (s *ParquetSource) Schema() *dv.DataSchema { return s.schema }

// NumRows is the total number of rows in the file.
func (s *ParquetSource) NumRows() int64 { return s.file.NumRows() }

// Next returns the next block, or io.EOF once every row has been read.
func (s *ParquetSource) Next() (*datablocks.DataBlock, error) {
	n, err := s.reader.ReadRows(s.rows)
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "failed to read rows from %s", s.location)
	}
	if n == 0 {
		return nil, io.EOF
	}

	builders := make([]*dv.SeriesBuilder, s.schema.NumFields())
	for i, f := range s.schema.Fields() {
		builders[i] = dv.NewSeriesBuilder(f.DataType, n)
	}
	for _, row := range s.rows[:n] {
		for _, v := range row {
			col := v.Column()
			if col < 0 || col >= len(builders) {
				return nil, errorcode.LogicalError("Parquet value for unknown column %d", col)
			}
			if v.IsNull() {
				builders[col].AppendNull()
				continue
			}
			builders[col].Append(convertValue(s.schema.Field(col).DataType, v))
		}
	}

	columns := make([]dv.DataColumn, len(builders))
	for i, b := range builders {
		series, err := b.Finish()
		if err != nil {
			return nil, err
		}
		columns[i] = dv.ArrayColumn(series)
	}
	s.read += int64(n)
	trace.GetTracer().Debug(trace.ComponentSource, "Read parquet batch",
		trace.Context("file", s.location, "rows", n, "total", s.read))
	return datablocks.Create(s.schema, columns)
}

func convertValue(t dv.DataType, v parquet.Value) dv.DataValue {
	switch t.ID() {
	case dv.TypeBoolean:
		return dv.Boolean(v.Boolean())
	case dv.TypeInt8:
		return dv.Int8(int8(v.Int32()))
	case dv.TypeInt16:
		return dv.Int16(int16(v.Int32()))
	case dv.TypeInt32:
		return dv.Int32(v.Int32())
	case dv.TypeUInt8:
		return dv.UInt8(uint8(v.Int32()))
	case dv.TypeUInt16:
		return dv.UInt16(uint16(v.Int32()))
	case dv.TypeUInt32:
		return dv.UInt32(uint32(v.Int32()))
	case dv.TypeInt64:
		return dv.Int64(v.Int64())
	case dv.TypeUInt64:
		return dv.UInt64(uint64(v.Int64()))
	case dv.TypeFloat32:
		return dv.Float32(v.Float())
	case dv.TypeFloat64:
		return dv.Float64(v.Double())
	case dv.TypeUtf8:
		return dv.Utf8(string(v.ByteArray()))
	case dv.TypeDate32:
		return dv.Date32(v.Int32())
	case dv.TypeDate64:
		return dv.Date64(v.Int64())
	}
	return dv.Binary(append([]byte(nil), v.ByteArray()...))
}

// Close releases the row reader and the underlying file.
func (s *ParquetSource) Close() error {
	err := s.reader.Close()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

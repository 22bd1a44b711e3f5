package datavalues

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/zhaox1n/datafuse/errorcode"
)

// PrepNullMask turns a predicate into the set of selected rows. Null
// predicate rows are treated as false.
func PrepNullMask(predicate Series) (*roaring.Bitmap, error) {
	b, err := asBooleanArray(predicate)
	if err != nil {
		return nil, errorcode.BadDataValueType("Filter predicate must be Boolean, got %s", predicate.DataType())
	}
	selected := roaring.New()
	for i, v := range b.values {
		if v && !b.IsNull(i) {
			selected.Add(uint32(i))
		}
	}
	return selected, nil
}

// FilterSeries keeps the rows of s where the predicate is true. The
// predicate may be a single row, which selects all or nothing.
func FilterSeries(s Series, predicate Series) (Series, error) {
	selected, err := filterSelection(s.Len(), predicate)
	if err != nil {
		return nil, err
	}
	switch int(selected.GetCardinality()) {
	case 0:
		return s.Slice(0, 0), nil
	case s.Len():
		return s, nil
	}
	return s.Take(selected.ToArray()), nil
}

// FilterCount returns how many rows the predicate selects out of n.
func FilterCount(n int, predicate Series) (int, error) {
	selected, err := filterSelection(n, predicate)
	if err != nil {
		return 0, err
	}
	return int(selected.GetCardinality()), nil
}

func filterSelection(n int, predicate Series) (*roaring.Bitmap, error) {
	selected, err := PrepNullMask(predicate)
	if err != nil {
		return nil, err
	}
	switch predicate.Len() {
	case n:
		return selected, nil
	case 1:
		if selected.IsEmpty() {
			return roaring.New(), nil
		}
		return AllValid(n), nil
	}
	return nil, errorcode.NumberArgumentsNotMatch(
		"Filter predicate has %d rows, expected %d", predicate.Len(), n)
}

// FilterSelection exposes the selected row indices for block level filters.
func FilterSelection(n int, predicate Series) ([]uint32, error) {
	selected, err := filterSelection(n, predicate)
	if err != nil {
		return nil, err
	}
	return selected.ToArray(), nil
}

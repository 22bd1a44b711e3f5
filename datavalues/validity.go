package datavalues

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Validity bitmaps mark valid (non-null) rows with a set bit. A nil bitmap
// means every row is valid; an empty bitmap means every row is null.

// AllValid returns a bitmap with rows [0, n) set.
func AllValid(n int) *roaring.Bitmap {
	b := roaring.New()
	if n > 0 {
		b.AddRange(0, uint64(n))
	}
	return b
}

// AllInvalid returns a bitmap marking every row as null.
func AllInvalid() *roaring.Bitmap {
	return roaring.New()
}

// CombineValidities intersects two validities. A row is valid in the result
// only when it is valid in both.
func CombineValidities(a, b *roaring.Bitmap) *roaring.Bitmap {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return b.Clone()
	case b == nil:
		return a.Clone()
	}
	return roaring.And(a, b)
}

func nullCount(validity *roaring.Bitmap, n int) int {
	if validity == nil || n == 0 {
		return 0
	}
	return n - int(validity.Rank(uint32(n-1)))
}

// normalizeValidity drops bits at or past n and returns nil when every row
// in [0, n) is valid. The input bitmap is never modified.
func normalizeValidity(validity *roaring.Bitmap, n int) *roaring.Bitmap {
	if validity == nil {
		return nil
	}
	if !validity.IsEmpty() && int(validity.Maximum()) >= n {
		last := uint64(validity.Maximum())
		validity = validity.Clone()
		validity.RemoveRange(uint64(n), last+1)
	}
	if int(validity.GetCardinality()) >= n {
		return nil
	}
	return validity
}

// sliceValidity rebases the rows [offset, offset+length) to start at zero.
func sliceValidity(validity *roaring.Bitmap, offset, length int) *roaring.Bitmap {
	if validity == nil {
		return nil
	}
	out := roaring.New()
	for i := 0; i < length; i++ {
		if validity.Contains(uint32(offset + i)) {
			out.Add(uint32(i))
		}
	}
	return out
}

func takeValidity(validity *roaring.Bitmap, indices []uint32) *roaring.Bitmap {
	if validity == nil {
		return nil
	}
	out := roaring.New()
	for i, idx := range indices {
		if validity.Contains(idx) {
			out.Add(uint32(i))
		}
	}
	return out
}

// IsAllNull reports whether a series has no valid row. Empty series are not
// considered all-null.
func IsAllNull(s Series) bool {
	return s.Len() > 0 && s.NullCount() == s.Len()
}

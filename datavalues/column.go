package datavalues

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// DataColumn is either a materialized Series or a single value logically
// repeated Len times.
type DataColumn struct {
	array    Series
	constant DataValue
	size     int
}

func ArrayColumn(s Series) DataColumn {
	return DataColumn{array: s, size: s.Len()}
}

func ConstantColumn(v DataValue, size int) DataColumn {
	return DataColumn{constant: v, size: size}
}

func (c DataColumn) IsConstant() bool { return c.array == nil }

func (c DataColumn) Len() int { return c.size }

func (c DataColumn) DataType() DataType {
	if c.array != nil {
		return c.array.DataType()
	}
	return c.constant.DataType()
}

// ConstantValue returns the repeated value. It is only meaningful for
// constant columns.
func (c DataColumn) ConstantValue() DataValue { return c.constant }

func (c DataColumn) NullCount() int {
	if c.array != nil {
		return c.array.NullCount()
	}
	if c.constant.IsNull() {
		return c.size
	}
	return 0
}

// Get returns row i. It panics when i is out of range.
func (c DataColumn) Get(i int) DataValue {
	if c.array != nil {
		return c.array.Get(i)
	}
	if i < 0 || i >= c.size {
		panic(fmt.Sprintf("index %d out of range for constant column of length %d", i, c.size))
	}
	return c.constant
}

// ToArray materializes the column to a series of Len rows.
func (c DataColumn) ToArray() (Series, error) {
	if c.array != nil {
		return c.array, nil
	}
	return NewSeriesFromValue(c.constant, c.size)
}

// ToMinimalArray materializes a constant as a single-row series so kernels
// can evaluate it once.
func (c DataColumn) ToMinimalArray() (Series, error) {
	if c.array != nil {
		return c.array, nil
	}
	return NewSeriesFromValue(c.constant, 1)
}

// ResizeConstant re-broadcasts a constant or a single-row array to n rows.
// Other arrays are returned unchanged.
func (c DataColumn) ResizeConstant(n int) DataColumn {
	if c.array == nil {
		return ConstantColumn(c.constant, n)
	}
	if c.array.Len() == 1 {
		return ConstantColumn(c.array.Get(0), n)
	}
	return c
}

// Validity describes which rows are null. allNull short-circuits the bitmap;
// a nil bitmap with allNull false means every row is valid.
func (c DataColumn) Validity() (allNull bool, validity *roaring.Bitmap) {
	if c.array == nil {
		return c.constant.IsNull() && c.size > 0, nil
	}
	if IsAllNull(c.array) {
		return true, nil
	}
	return false, c.array.Validity()
}

// WithValidity replaces the validity of an array column. Constant columns
// keep their value.
func (c DataColumn) WithValidity(validity *roaring.Bitmap) DataColumn {
	if c.array == nil {
		return c
	}
	return ArrayColumn(c.array.WithValidity(validity))
}

// Slice returns rows [offset, offset+length).
func (c DataColumn) Slice(offset, length int) DataColumn {
	if c.array == nil {
		return ConstantColumn(c.constant, length)
	}
	return ArrayColumn(c.array.Slice(offset, length))
}

// Take gathers rows by index.
func (c DataColumn) Take(indices []uint32) DataColumn {
	if c.array == nil {
		return ConstantColumn(c.constant, len(indices))
	}
	return ArrayColumn(c.array.Take(indices))
}

// Values returns every row as a scalar.
func (c DataColumn) Values() []DataValue {
	out := make([]DataValue, c.size)
	for i := range out {
		out[i] = c.Get(i)
	}
	return out
}

func (c DataColumn) String() string {
	if c.array == nil {
		return fmt.Sprintf("Constant(%s, %d)", c.constant, c.size)
	}
	return fmt.Sprintf("Array(%s, %d)", c.array.DataType(), c.size)
}

// Compare applies a comparison operator. Two constants are evaluated once
// and the result stays constant.
func (c DataColumn) Compare(op CompareOp, rhs DataColumn) (DataColumn, error) {
	return binaryColumnKernel(c, rhs, func(l, r Series) (Series, error) {
		return Compare(op, l, r)
	})
}

// Arithmetic applies an arithmetic operator with the same broadcasting.
func (c DataColumn) Arithmetic(op ArithmeticOp, rhs DataColumn) (DataColumn, error) {
	return binaryColumnKernel(c, rhs, func(l, r Series) (Series, error) {
		return Arithmetic(op, l, r)
	})
}

func binaryColumnKernel(lhs, rhs DataColumn, kernel func(l, r Series) (Series, error)) (DataColumn, error) {
	l, err := lhs.ToMinimalArray()
	if err != nil {
		return DataColumn{}, err
	}
	r, err := rhs.ToMinimalArray()
	if err != nil {
		return DataColumn{}, err
	}
	out, err := kernel(l, r)
	if err != nil {
		return DataColumn{}, err
	}
	if lhs.IsConstant() && rhs.IsConstant() {
		return ArrayColumn(out).ResizeConstant(lhs.Len()), nil
	}
	return ArrayColumn(out), nil
}

package column

import (
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// Numeric is the generic constraint VectorColumn specializes over —
// the "monomorphize tight inner loops" half of the design; the
// type-switch half lives at the boxing boundary (e.g. Get, which maps
// each width onto its Field tag).
type Numeric interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// VectorColumn is PODArray<T>: a contiguous, fixed-width vector.
type VectorColumn[T Numeric] struct {
	typ  *types.Type
	data []T
}

// NewVectorColumn constructs an empty vector column of the given
// logical type, backed by T.
func NewVectorColumn[T Numeric](typ *types.Type) *VectorColumn[T] {
	return &VectorColumn[T]{typ: typ}
}

// NewVectorColumnFrom wraps an existing slice without copying.
func NewVectorColumnFrom[T Numeric](typ *types.Type, data []T) *VectorColumn[T] {
	return &VectorColumn[T]{typ: typ, data: data}
}

func (c *VectorColumn[T]) Type() *types.Type { return c.typ }
func (c *VectorColumn[T]) Size() int         { return len(c.data) }
func (c *VectorColumn[T]) ByteSize() int     { var z T; return len(c.data) * sizeofNumeric(z) }
func (c *VectorColumn[T]) Data() []T         { return c.data }
func (c *VectorColumn[T]) Reserve(n int) {
	if cap(c.data)-len(c.data) < n {
		grown := make([]T, len(c.data), len(c.data)+n)
		copy(grown, c.data)
		c.data = grown
	}
}

func sizeofNumeric[T Numeric](v T) int {
	switch any(v).(type) {
	case uint8, int8:
		return 1
	case uint16, int16:
		return 2
	case uint32, int32, float32:
		return 4
	default:
		return 8
	}
}

func (c *VectorColumn[T]) Get(row int) field.Field {
	if row < 0 || row >= len(c.data) {
		panic(errPosition(row, len(c.data)))
	}
	v := c.data[row]
	switch x := any(v).(type) {
	case float32:
		return field.FromFloat64(float64(x))
	case float64:
		return field.FromFloat64(x)
	case int8:
		return field.FromInt64(int64(x))
	case int16:
		return field.FromInt64(int64(x))
	case int32:
		return field.FromInt64(int64(x))
	case int64:
		return field.FromInt64(x)
	case uint8:
		return field.FromUInt64(uint64(x))
	case uint16:
		return field.FromUInt64(uint64(x))
	case uint32:
		return field.FromUInt64(uint64(x))
	case uint64:
		return field.FromUInt64(x)
	default:
		return field.Null()
	}
}

func (c *VectorColumn[T]) Append(v T) { c.data = append(c.data, v) }

func (c *VectorColumn[T]) InsertFrom(other Column, row int) error {
	o, ok := other.(*VectorColumn[T])
	if !ok || !o.typ.Equals(c.typ) {
		return errLogical("VectorColumn.InsertFrom: incompatible column kind for type %s", c.typ)
	}
	if row < 0 || row >= len(o.data) {
		return errPosition(row, len(o.data))
	}
	c.data = append(c.data, o.data[row])
	return nil
}

func (c *VectorColumn[T]) InsertDefault() {
	var zero T
	c.data = append(c.data, zero)
}

func (c *VectorColumn[T]) InsertRangeFrom(other Column, start, length int) error {
	o, ok := other.(*VectorColumn[T])
	if !ok || !o.typ.Equals(c.typ) {
		return errLogical("VectorColumn.InsertRangeFrom: incompatible column kind for type %s", c.typ)
	}
	if start < 0 || length < 0 || start+length > len(o.data) {
		return errPosition(start+length, len(o.data))
	}
	c.data = append(c.data, o.data[start:start+length]...)
	return nil
}

func (c *VectorColumn[T]) Filter(mask []uint8, hint int) (Column, error) {
	if len(mask) != len(c.data) {
		return nil, errLogical("VectorColumn.Filter: mask length %d != column size %d", len(mask), len(c.data))
	}
	out := &VectorColumn[T]{typ: c.typ}
	out.Reserve(sizeHint(mask, hint))
	for i, m := range mask {
		if m != 0 {
			out.data = append(out.data, c.data[i])
		}
	}
	return out, nil
}

func (c *VectorColumn[T]) Cut(offset, length int) Column {
	return &VectorColumn[T]{typ: c.typ, data: c.data[offset : offset+length]}
}

func (c *VectorColumn[T]) ConvertToFullIfConst() Column { return c }

package column

import (
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// NullableColumn is a nested column plus a byte bitmap of NULL flags
// (1 == null), matching the source's choice of a byte-per-row map over
// a packed bitset for O(1) SIMD-friendly scanning.
type NullableColumn struct {
	typ     *types.Type
	nested  Column
	nullMap []uint8
}

func NewNullableColumn(nested Column) *NullableColumn {
	return &NullableColumn{typ: types.Nullable(nested.Type()), nested: nested}
}

func (c *NullableColumn) Type() *types.Type { return c.typ }
func (c *NullableColumn) Size() int         { return len(c.nullMap) }
func (c *NullableColumn) ByteSize() int     { return c.nested.ByteSize() + len(c.nullMap) }
func (c *NullableColumn) Nested() Column    { return c.nested }
func (c *NullableColumn) NullMap() []uint8  { return c.nullMap }
func (c *NullableColumn) IsNullAt(row int) bool { return c.nullMap[row] != 0 }

func (c *NullableColumn) Reserve(n int) {
	if cap(c.nullMap)-len(c.nullMap) < n {
		grown := make([]uint8, len(c.nullMap), len(c.nullMap)+n)
		copy(grown, c.nullMap)
		c.nullMap = grown
	}
	c.nested.Reserve(n)
}

func (c *NullableColumn) Get(row int) field.Field {
	if row < 0 || row >= len(c.nullMap) {
		panic(errPosition(row, len(c.nullMap)))
	}
	if c.nullMap[row] != 0 {
		return field.Null()
	}
	return c.nested.Get(row)
}

func (c *NullableColumn) AppendNull() {
	c.nested.InsertDefault()
	c.nullMap = append(c.nullMap, 1)
}

func (c *NullableColumn) AppendNotNull() {
	c.nullMap = append(c.nullMap, 0)
}

// SetNullMap replaces the null bitmap wholesale, for bulk deserializers
// (wire/block codec, on-disk part readers) that already hold a
// complete map rather than appending row by row.
func (c *NullableColumn) SetNullMap(nullMap []uint8) {
	c.nullMap = nullMap
}

func (c *NullableColumn) InsertFrom(other Column, row int) error {
	o, ok := other.(*NullableColumn)
	if !ok {
		return errLogical("NullableColumn.InsertFrom: incompatible column kind")
	}
	if row < 0 || row >= len(o.nullMap) {
		return errPosition(row, len(o.nullMap))
	}
	if err := c.nested.InsertFrom(o.nested, row); err != nil {
		return err
	}
	c.nullMap = append(c.nullMap, o.nullMap[row])
	return nil
}

func (c *NullableColumn) InsertDefault() { c.AppendNull() }

func (c *NullableColumn) InsertRangeFrom(other Column, start, length int) error {
	o, ok := other.(*NullableColumn)
	if !ok {
		return errLogical("NullableColumn.InsertRangeFrom: incompatible column kind")
	}
	if err := c.nested.InsertRangeFrom(o.nested, start, length); err != nil {
		return err
	}
	c.nullMap = append(c.nullMap, o.nullMap[start:start+length]...)
	return nil
}

func (c *NullableColumn) Filter(mask []uint8, hint int) (Column, error) {
	if len(mask) != len(c.nullMap) {
		return nil, errLogical("NullableColumn.Filter: mask length %d != column size %d", len(mask), len(c.nullMap))
	}
	nestedFiltered, err := c.nested.Filter(mask, hint)
	if err != nil {
		return nil, err
	}
	out := &NullableColumn{typ: c.typ, nested: nestedFiltered}
	out.Reserve(sizeHint(mask, hint))
	for i, m := range mask {
		if m != 0 {
			out.nullMap = append(out.nullMap, c.nullMap[i])
		}
	}
	return out, nil
}

func (c *NullableColumn) Cut(offset, length int) Column {
	return &NullableColumn{typ: c.typ, nested: c.nested.Cut(offset, length), nullMap: c.nullMap[offset : offset+length]}
}

func (c *NullableColumn) ConvertToFullIfConst() Column { return c }

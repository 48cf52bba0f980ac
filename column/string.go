package column

import (
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// StringColumn is two parallel arrays: chars (concatenated bytes
// including a trailing NUL per row) and offsets (one past the end of
// each row's NUL). Offset [-1] is implicitly 0, per the data model.
type StringColumn struct {
	chars   []byte
	offsets []uint64
}

func NewStringColumn() *StringColumn { return &StringColumn{} }

func (c *StringColumn) Type() *types.Type { return types.String }
func (c *StringColumn) Size() int         { return len(c.offsets) }
func (c *StringColumn) ByteSize() int     { return len(c.chars) + len(c.offsets)*8 }

func (c *StringColumn) Reserve(n int) {
	if cap(c.offsets)-len(c.offsets) < n {
		grown := make([]uint64, len(c.offsets), len(c.offsets)+n)
		copy(grown, c.offsets)
		c.offsets = grown
	}
}

func (c *StringColumn) offsetAt(i int) uint64 {
	if i < 0 {
		return 0
	}
	return c.offsets[i]
}

// RowBytes returns row i's bytes without the trailing NUL.
func (c *StringColumn) RowBytes(row int) []byte {
	start := c.offsetAt(row - 1)
	end := c.offsets[row] - 1 // drop trailing NUL
	return c.chars[start:end]
}

func (c *StringColumn) Get(row int) field.Field {
	if row < 0 || row >= len(c.offsets) {
		panic(errPosition(row, len(c.offsets)))
	}
	return field.FromString(string(c.RowBytes(row)))
}

// Append appends one row holding v, writing the trailing NUL the way
// the source's chars buffer always does.
func (c *StringColumn) Append(v []byte) {
	c.chars = append(c.chars, v...)
	c.chars = append(c.chars, 0)
	c.offsets = append(c.offsets, uint64(len(c.chars)))
}

func (c *StringColumn) AppendString(v string) { c.Append([]byte(v)) }

func (c *StringColumn) InsertFrom(other Column, row int) error {
	o, ok := other.(*StringColumn)
	if !ok {
		return errLogical("StringColumn.InsertFrom: incompatible column kind")
	}
	if row < 0 || row >= len(o.offsets) {
		return errPosition(row, len(o.offsets))
	}
	c.Append(o.RowBytes(row))
	return nil
}

func (c *StringColumn) InsertDefault() { c.Append(nil) }

func (c *StringColumn) InsertRangeFrom(other Column, start, length int) error {
	o, ok := other.(*StringColumn)
	if !ok {
		return errLogical("StringColumn.InsertRangeFrom: incompatible column kind")
	}
	if start < 0 || length < 0 || start+length > len(o.offsets) {
		return errPosition(start+length, len(o.offsets))
	}
	for i := start; i < start+length; i++ {
		c.Append(o.RowBytes(i))
	}
	return nil
}

func (c *StringColumn) Filter(mask []uint8, hint int) (Column, error) {
	if len(mask) != len(c.offsets) {
		return nil, errLogical("StringColumn.Filter: mask length %d != column size %d", len(mask), len(c.offsets))
	}
	out := NewStringColumn()
	out.Reserve(sizeHint(mask, hint))
	for i, m := range mask {
		if m != 0 {
			out.Append(c.RowBytes(i))
		}
	}
	return out, nil
}

func (c *StringColumn) Cut(offset, length int) Column {
	out := NewStringColumn()
	out.Reserve(length)
	for i := offset; i < offset+length; i++ {
		out.Append(c.RowBytes(i))
	}
	return out
}

func (c *StringColumn) ConvertToFullIfConst() Column { return c }

// FixedStringColumn is a single chars buffer of length rowCount*N.
type FixedStringColumn struct {
	typ   *types.Type
	n     int
	chars []byte
}

func NewFixedStringColumn(n int) *FixedStringColumn {
	return &FixedStringColumn{typ: types.FixedString(n), n: n}
}

func (c *FixedStringColumn) Type() *types.Type { return c.typ }
func (c *FixedStringColumn) Size() int         { return len(c.chars) / c.n }
func (c *FixedStringColumn) ByteSize() int     { return len(c.chars) }
func (c *FixedStringColumn) Reserve(rows int) {
	if cap(c.chars)-len(c.chars) < rows*c.n {
		grown := make([]byte, len(c.chars), len(c.chars)+rows*c.n)
		copy(grown, c.chars)
		c.chars = grown
	}
}

func (c *FixedStringColumn) RowBytes(row int) []byte {
	return c.chars[row*c.n : (row+1)*c.n]
}

func (c *FixedStringColumn) Get(row int) field.Field {
	if row < 0 || row >= c.Size() {
		panic(errPosition(row, c.Size()))
	}
	return field.FromString(string(c.RowBytes(row)))
}

func (c *FixedStringColumn) Append(v []byte) {
	if len(v) > c.n {
		panic(errLogical("FixedStringColumn.Append: value length %d exceeds N=%d", len(v), c.n))
	}
	start := len(c.chars)
	c.chars = append(c.chars, v...)
	for i := len(v); i < c.n; i++ {
		c.chars = append(c.chars, 0)
	}
	_ = start
}

func (c *FixedStringColumn) InsertFrom(other Column, row int) error {
	o, ok := other.(*FixedStringColumn)
	if !ok || o.n != c.n {
		return errLogical("FixedStringColumn.InsertFrom: incompatible column kind/width")
	}
	if row < 0 || row >= o.Size() {
		return errPosition(row, o.Size())
	}
	c.chars = append(c.chars, o.RowBytes(row)...)
	return nil
}

func (c *FixedStringColumn) InsertDefault() {
	c.chars = append(c.chars, make([]byte, c.n)...)
}

func (c *FixedStringColumn) InsertRangeFrom(other Column, start, length int) error {
	o, ok := other.(*FixedStringColumn)
	if !ok || o.n != c.n {
		return errLogical("FixedStringColumn.InsertRangeFrom: incompatible column kind/width")
	}
	if start < 0 || length < 0 || start+length > o.Size() {
		return errPosition(start+length, o.Size())
	}
	c.chars = append(c.chars, o.chars[start*c.n:(start+length)*c.n]...)
	return nil
}

func (c *FixedStringColumn) Filter(mask []uint8, hint int) (Column, error) {
	if len(mask) != c.Size() {
		return nil, errLogical("FixedStringColumn.Filter: mask length %d != column size %d", len(mask), c.Size())
	}
	out := NewFixedStringColumn(c.n)
	out.Reserve(sizeHint(mask, hint))
	for i, m := range mask {
		if m != 0 {
			out.chars = append(out.chars, c.RowBytes(i)...)
		}
	}
	return out, nil
}

func (c *FixedStringColumn) Cut(offset, length int) Column {
	return &FixedStringColumn{typ: c.typ, n: c.n, chars: c.chars[offset*c.n : (offset+length)*c.n]}
}

func (c *FixedStringColumn) ConvertToFullIfConst() Column { return c }

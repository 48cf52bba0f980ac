package column

import (
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// ArrayColumn is a child column plus an offsets array: offsets[i] is
// one past the last element of row i (offsets[-1] implicitly 0).
type ArrayColumn struct {
	typ     *types.Type
	data    Column
	offsets []uint64
}

func NewArrayColumn(elem *types.Type, data Column) *ArrayColumn {
	return &ArrayColumn{typ: types.Array(elem), data: data}
}

func (c *ArrayColumn) Type() *types.Type { return c.typ }
func (c *ArrayColumn) Size() int         { return len(c.offsets) }
func (c *ArrayColumn) ByteSize() int     { return c.data.ByteSize() + len(c.offsets)*8 }
func (c *ArrayColumn) Data() Column      { return c.data }

func (c *ArrayColumn) Reserve(n int) {
	if cap(c.offsets)-len(c.offsets) < n {
		grown := make([]uint64, len(c.offsets), len(c.offsets)+n)
		copy(grown, c.offsets)
		c.offsets = grown
	}
}

func (c *ArrayColumn) offsetAt(i int) uint64 {
	if i < 0 {
		return 0
	}
	return c.offsets[i]
}

// Bounds returns row i's [start, end) range into Data().
func (c *ArrayColumn) Bounds(row int) (int, int) {
	return int(c.offsetAt(row - 1)), int(c.offsets[row])
}

func (c *ArrayColumn) Get(row int) field.Field {
	if row < 0 || row >= len(c.offsets) {
		panic(errPosition(row, len(c.offsets)))
	}
	start, end := c.Bounds(row)
	elems := make([]field.Field, 0, end-start)
	for i := start; i < end; i++ {
		elems = append(elems, c.data.Get(i))
	}
	return field.FromArray(elems)
}

// AppendOffset closes the current row after its elements have been
// pushed onto Data() directly — mirroring the source's two-step array
// construction (push elements, then push offset).
func (c *ArrayColumn) AppendOffset() {
	c.offsets = append(c.offsets, uint64(c.data.Size()))
}

// SetOffsets replaces the offsets array wholesale, for bulk
// deserializers that already hold every row's end offset rather than
// closing rows one at a time as elements are pushed.
func (c *ArrayColumn) SetOffsets(offsets []uint64) {
	c.offsets = offsets
}

func (c *ArrayColumn) InsertFrom(other Column, row int) error {
	o, ok := other.(*ArrayColumn)
	if !ok {
		return errLogical("ArrayColumn.InsertFrom: incompatible column kind")
	}
	if row < 0 || row >= len(o.offsets) {
		return errPosition(row, len(o.offsets))
	}
	start, end := o.Bounds(row)
	if err := c.data.InsertRangeFrom(o.data, start, end-start); err != nil {
		return err
	}
	c.AppendOffset()
	return nil
}

func (c *ArrayColumn) InsertDefault() { c.AppendOffset() }

func (c *ArrayColumn) InsertRangeFrom(other Column, start, length int) error {
	o, ok := other.(*ArrayColumn)
	if !ok {
		return errLogical("ArrayColumn.InsertRangeFrom: incompatible column kind")
	}
	for i := start; i < start+length; i++ {
		if err := c.InsertFrom(o, i); err != nil {
			return err
		}
	}
	return nil
}

func (c *ArrayColumn) Filter(mask []uint8, hint int) (Column, error) {
	if len(mask) != len(c.offsets) {
		return nil, errLogical("ArrayColumn.Filter: mask length %d != column size %d", len(mask), len(c.offsets))
	}
	out := &ArrayColumn{typ: c.typ, data: c.data.Cut(0, 0)}
	out.Reserve(sizeHint(mask, hint))
	for i, m := range mask {
		if m != 0 {
			start, end := c.Bounds(i)
			if err := out.data.InsertRangeFrom(c.data, start, end-start); err != nil {
				return nil, err
			}
			out.AppendOffset()
		}
	}
	return out, nil
}

func (c *ArrayColumn) Cut(offset, length int) Column {
	out := &ArrayColumn{typ: c.typ, data: c.data.Cut(0, 0)}
	for i := offset; i < offset+length; i++ {
		start, end := c.Bounds(i)
		_ = out.data.InsertRangeFrom(c.data, start, end-start)
		out.AppendOffset()
	}
	return out
}

func (c *ArrayColumn) ConvertToFullIfConst() Column { return c }

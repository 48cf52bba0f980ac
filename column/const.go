package column

import (
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// ConstColumn is a logical value plus a row count. Any non-const
// operator may demand materialization via ConvertToFullIfConst.
type ConstColumn struct {
	typ   *types.Type
	value field.Field
	rows  int
	// materialize builds a full column of the given row count in the
	// concrete representation this constant should expand into; supplied by the
	// caller that knows the intended concrete storage (e.g. a UInt64
	// constant should expand into a VectorColumn[uint64], not a generic
	// Field-backed column).
	materialize func(rows int) Column
}

func NewConstColumn(typ *types.Type, value field.Field, rows int, materialize func(rows int) Column) *ConstColumn {
	return &ConstColumn{typ: typ, value: value, rows: rows, materialize: materialize}
}

func (c *ConstColumn) Type() *types.Type { return c.typ }
func (c *ConstColumn) Size() int         { return c.rows }
func (c *ConstColumn) ByteSize() int     { return 0 }
func (c *ConstColumn) Value() field.Field { return c.value }
func (c *ConstColumn) Reserve(int)        {}

func (c *ConstColumn) Get(row int) field.Field {
	if row < 0 || row >= c.rows {
		panic(errPosition(row, c.rows))
	}
	return c.value
}

func (c *ConstColumn) InsertFrom(other Column, row int) error {
	o, ok := other.(*ConstColumn)
	if !ok || !o.typ.Equals(c.typ) {
		return errLogical("ConstColumn.InsertFrom: incompatible column kind for type %s", c.typ)
	}
	c.rows++
	return nil
}

func (c *ConstColumn) InsertDefault() { c.rows++ }

func (c *ConstColumn) InsertRangeFrom(other Column, start, length int) error {
	o, ok := other.(*ConstColumn)
	if !ok || !o.typ.Equals(c.typ) {
		return errLogical("ConstColumn.InsertRangeFrom: incompatible column kind for type %s", c.typ)
	}
	c.rows += length
	return nil
}

func (c *ConstColumn) Filter(mask []uint8, hint int) (Column, error) {
	if len(mask) != c.rows {
		return nil, errLogical("ConstColumn.Filter: mask length %d != column size %d", len(mask), c.rows)
	}
	return &ConstColumn{typ: c.typ, value: c.value, rows: popcount(mask), materialize: c.materialize}, nil
}

func (c *ConstColumn) Cut(offset, length int) Column {
	return &ConstColumn{typ: c.typ, value: c.value, rows: length, materialize: c.materialize}
}

// ConvertToFullIfConst materializes this constant into its full
// concrete representation, per the documented contract that any
// non-const operator may demand this.
func (c *ConstColumn) ConvertToFullIfConst() Column {
	if c.materialize != nil {
		return c.materialize(c.rows)
	}
	return c
}

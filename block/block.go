// Package block implements Block, the ordered sequence of
// (name, type, column) triples every operator in the repo
// produces/consumes.
package block

import (
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/types"
)

// NamedColumn pairs a Column with its declared name/type. Column may
// be nil prior to evaluation (e.g. a result slot a function hasn't
// filled in yet).
type NamedColumn struct {
	Name   string
	Type   *types.Type
	Column column.Column
}

// Block is the unit of data interchange between operators.
type Block struct {
	Columns []NamedColumn
}

// New builds a Block from named columns.
func New(cols ...NamedColumn) *Block { return &Block{Columns: cols} }

// RowCount returns the row count of the first non-nil column, or 0 for
// an all-nil/empty Block.
func (b *Block) RowCount() int {
	for _, c := range b.Columns {
		if c.Column != nil {
			return c.Column.Size()
		}
	}
	return 0
}

// Position returns the index of the named column, or -1.
func (b *Block) Position(name string) int {
	for i, c := range b.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Get returns the named column's Column, or nil if absent.
func (b *Block) Get(name string) column.Column {
	if i := b.Position(name); i >= 0 {
		return b.Columns[i].Column
	}
	return nil
}

// Validate checks the data model's "schema-consistent" invariant:
// every column's actual type equals its declared type and every
// non-null column has the Block's row count.
func (b *Block) Validate() error {
	rows := b.RowCount()
	for _, c := range b.Columns {
		if c.Column == nil {
			continue
		}
		if !c.Column.Type().Equals(c.Type) {
			return errs.New(errs.LogicError, errs.CodeLogicalError,
				"block: column %q declared type %s but holds %s", c.Name, c.Type, c.Column.Type())
		}
		if c.Column.Size() != rows {
			return errs.New(errs.LogicError, errs.CodeLogicalError,
				"block: column %q has %d rows, block has %d", c.Name, c.Column.Size(), rows)
		}
	}
	return nil
}

// Clone returns a shallow copy: same Column references, independent
// Columns slice, so appending a result column to the clone doesn't
// mutate the original.
func (b *Block) Clone() *Block {
	cols := make([]NamedColumn, len(b.Columns))
	copy(cols, b.Columns)
	return &Block{Columns: cols}
}

// WithColumn returns a clone with name's column replaced (or appended
// if absent).
func (b *Block) WithColumn(nc NamedColumn) *Block {
	out := b.Clone()
	if i := out.Position(nc.Name); i >= 0 {
		out.Columns[i] = nc
	} else {
		out.Columns = append(out.Columns, nc)
	}
	return out
}

// Filter applies mask to every column, returning a new schema-
// consistent Block. resultSizeHint is forwarded to each Column.Filter.
func (b *Block) Filter(mask []uint8, resultSizeHint int) (*Block, error) {
	out := &Block{Columns: make([]NamedColumn, len(b.Columns))}
	for i, c := range b.Columns {
		if c.Column == nil {
			out.Columns[i] = c
			continue
		}
		filtered, err := c.Column.Filter(mask, resultSizeHint)
		if err != nil {
			return nil, err
		}
		out.Columns[i] = NamedColumn{Name: c.Name, Type: c.Type, Column: filtered}
	}
	return out, nil
}

// Cut returns the [offset, offset+length) row range of every column.
func (b *Block) Cut(offset, length int) *Block {
	out := &Block{Columns: make([]NamedColumn, len(b.Columns))}
	for i, c := range b.Columns {
		if c.Column == nil {
			out.Columns[i] = c
			continue
		}
		out.Columns[i] = NamedColumn{Name: c.Name, Type: c.Type, Column: c.Column.Cut(offset, length)}
	}
	return out
}

// Concat appends b's rows to a shallow clone of a, column by column, by
// name. Both blocks must carry the same column names/types. The clone
// shares a's Column values, so a's columns are extended in place too.
func Concat(a, b *Block) (*Block, error) {
	if len(a.Columns) != len(b.Columns) {
		return nil, errs.New(errs.LogicError, errs.CodeLogicalError, "block.Concat: column count mismatch")
	}
	out := a.Clone()
	for i, nc := range out.Columns {
		bc := b.Get(nc.Name)
		if bc == nil || nc.Column == nil {
			continue
		}
		if err := nc.Column.InsertRangeFrom(bc, 0, bc.Size()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

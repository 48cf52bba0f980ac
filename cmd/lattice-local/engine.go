package main

import (
	"strings"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/types"
)

// execute evaluates a single query string against no backing storage
// beyond the handful of constant-folded forms a client needs for a
// liveness check or a protocol-compatibility probe (`SELECT 1`,
// `SELECT version()`). Parsing arbitrary SQL is out of scope here; a
// query that isn't one of these literal forms returns a UserError, the
// same class a real syntax error would carry over the wire.
func execute(serverName string, query string) (*block.Block, error) {
	q := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	switch strings.ToLower(q) {
	case "select 1":
		col := column.NewVectorColumn[uint8](types.UInt8)
		col.Append(1)
		return block.New(block.NamedColumn{Name: "1", Type: types.UInt8, Column: col}), nil
	case "select version()":
		col := column.NewStringColumn()
		col.AppendString(serverName)
		return block.New(block.NamedColumn{Name: "version()", Type: types.String, Column: col}), nil
	default:
		return nil, errs.New(errs.UserError, errs.CodeSyntaxError,
			"only literal queries (SELECT 1, SELECT version()) are supported: %q", query)
	}
}

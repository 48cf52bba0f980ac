package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/errs"
)

func TestExecuteSelectOne(t *testing.T) {
	blk, err := execute("lattice-local", "select 1")
	require.NoError(t, err)
	require.Equal(t, 1, blk.RowCount())
	require.Equal(t, uint64(1), blk.Get("1").Get(0).UInt64())
}

func TestExecuteSelectVersion(t *testing.T) {
	blk, err := execute("lattice-local", "SELECT version();")
	require.NoError(t, err)
	require.Equal(t, "lattice-local", blk.Get("version()").Get(0).String())
}

func TestExecuteUnsupportedQueryIsUserError(t *testing.T) {
	_, err := execute("lattice-local", "SELECT * FROM events")
	require.Error(t, err)
	var e *errs.Error
	require.True(t, errs.As(err, &e))
	require.Equal(t, errs.UserError, e.Kind)
	require.Equal(t, errs.CodeSyntaxError, e.Code)
}

package function_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/function"
	"github.com/latticedb/lattice/types"
)

// TestLowerLikePlainSubstringFastPath is scenario 3 from the testable
// properties list: a "%body%" pattern with no "_" and no escapes lowers
// to a plain substring check, never a compiled regex.
func TestLowerLikePlainSubstringFastPath(t *testing.T) {
	substr, isSubstring, regex := function.LowerLike("%abc%")
	require.True(t, isSubstring)
	require.Equal(t, "abc", substr)
	require.Empty(t, regex)
}

func TestLowerLikeUnderscoreForcesRegex(t *testing.T) {
	_, isSubstring, regex := function.LowerLike("a_c%")
	require.False(t, isSubstring)
	require.Equal(t, "^a.c.*$", regex)
}

func TestLowerLikeBackslashEscapesPercent(t *testing.T) {
	_, isSubstring, regex := function.LowerLike("50%\\%off")
	require.False(t, isSubstring)
	require.Equal(t, "^50.*%off$", regex)
}

func execLike(t *testing.T, haystack, pattern string) uint8 {
	t.Helper()
	fn, ok := function.Default.Lookup("like")
	require.True(t, ok)

	hay := column.NewStringColumn()
	hay.AppendString(haystack)
	pat := column.NewConstColumn(types.String, field.FromString(pattern), 1, nil)

	blk := block.New(
		block.NamedColumn{Name: "haystack", Type: types.String, Column: hay},
		block.NamedColumn{Name: "pattern", Type: types.String, Column: pat},
		block.NamedColumn{Name: "out", Type: types.UInt8},
	)
	require.NoError(t, fn.Execute(blk, []int{0, 1}, 2))

	out, ok := blk.Columns[2].Column.(*column.VectorColumn[uint8])
	require.True(t, ok)
	require.Equal(t, 1, out.Size())
	return out.Data()[0]
}

func TestLikeSubstringFastPathMatches(t *testing.T) {
	require.Equal(t, uint8(1), execLike(t, "hello world", "%lo wo%"))
	require.Equal(t, uint8(0), execLike(t, "hello world", "%xyz%"))
}

func TestLikeUnderscoreMatchesSingleCharacter(t *testing.T) {
	require.Equal(t, uint8(1), execLike(t, "cat", "c_t"))
	require.Equal(t, uint8(0), execLike(t, "ct", "c_t"))
}

func TestLikeRejectsNonConstPattern(t *testing.T) {
	fn, ok := function.Default.Lookup("like")
	require.True(t, ok)

	hay := column.NewStringColumn()
	hay.AppendString("abc")
	pat := column.NewStringColumn()
	pat.AppendString("a%")

	blk := block.New(
		block.NamedColumn{Name: "haystack", Type: types.String, Column: hay},
		block.NamedColumn{Name: "pattern", Type: types.String, Column: pat},
		block.NamedColumn{Name: "out", Type: types.UInt8},
	)
	err := fn.Execute(blk, []int{0, 1}, 2)
	require.Error(t, err)
}

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

func execPosition(t *testing.T, name, haystack, needle string) uint64 {
	t.Helper()
	fn, ok := function.Default.Lookup(name)
	require.True(t, ok, "function %s not registered", name)

	hay := column.NewStringColumn()
	hay.AppendString(haystack)
	ndl := column.NewConstColumn(types.String, field.FromString(needle), 1, nil)

	blk := block.New(
		block.NamedColumn{Name: "haystack", Type: types.String, Column: hay},
		block.NamedColumn{Name: "needle", Type: types.String, Column: ndl},
		block.NamedColumn{Name: "out", Type: types.UInt64},
	)
	require.NoError(t, fn.Execute(blk, []int{0, 1}, 2))

	out, ok := blk.Columns[2].Column.(*column.VectorColumn[uint64])
	require.True(t, ok)
	require.Equal(t, 1, out.Size())
	return out.Data()[0]
}

// TestPositionASCIIIsByteOffset covers plain position: a 1-based byte
// offset, 0 when absent.
func TestPositionASCIIIsByteOffset(t *testing.T) {
	require.Equal(t, uint64(3), execPosition(t, "position", "abcdef", "cde"))
	require.Equal(t, uint64(0), execPosition(t, "position", "abcdef", "xyz"))
}

// TestPositionUTF8CountsCodepointsNotBytes is scenario 2 from the
// testable properties list: "héllo" has a 2-byte 'é', so the codepoint
// position of "llo" (3rd codepoint: h, é, l) differs from its byte
// offset (4th byte).
func TestPositionUTF8CountsCodepointsNotBytes(t *testing.T) {
	haystack := "héllo" // h, é (U+00E9, 2 UTF-8 bytes), l, l, o
	byteOffset := execPosition(t, "position", haystack, "llo")
	codepointOffset := execPosition(t, "positionUTF8", haystack, "llo")

	require.Equal(t, uint64(4), byteOffset, "byte offset counts the 2-byte é as two bytes")
	require.Equal(t, uint64(3), codepointOffset, "codepoint offset counts é as a single codepoint")
}

func TestPositionCaseInsensitiveIgnoresCase(t *testing.T) {
	require.Equal(t, uint64(0), execPosition(t, "position", "Hello World", "WORLD"))
	require.Equal(t, uint64(7), execPosition(t, "positionCaseInsensitive", "Hello World", "WORLD"))
}

func TestPositionRejectsNonConstNeedle(t *testing.T) {
	fn, ok := function.Default.Lookup("position")
	require.True(t, ok)

	hay := column.NewStringColumn()
	hay.AppendString("abc")
	ndl := column.NewStringColumn()
	ndl.AppendString("b")

	blk := block.New(
		block.NamedColumn{Name: "haystack", Type: types.String, Column: hay},
		block.NamedColumn{Name: "needle", Type: types.String, Column: ndl},
		block.NamedColumn{Name: "out", Type: types.UInt64},
	)
	err := fn.Execute(blk, []int{0, 1}, 2)
	require.Error(t, err)
}

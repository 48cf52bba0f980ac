package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/types"
	"github.com/latticedb/lattice/wire"
)

func TestBlockRoundTripNumericColumns(t *testing.T) {
	u8 := column.NewVectorColumnFrom[uint8](types.UInt8, []uint8{1, 2, 3})
	u16 := column.NewVectorColumnFrom[uint16](types.UInt16, []uint16{100, 200, 300})
	u32 := column.NewVectorColumnFrom[uint32](types.UInt32, []uint32{1000, 2000, 3000})
	u64 := column.NewVectorColumnFrom[uint64](types.UInt64, []uint64{1 << 40, 2, 3})
	i8 := column.NewVectorColumnFrom[int8](types.Int8, []int8{-1, 0, 1})
	i16 := column.NewVectorColumnFrom[int16](types.Int16, []int16{-300, 0, 300})
	i32 := column.NewVectorColumnFrom[int32](types.Int32, []int32{-70000, 0, 70000})
	i64 := column.NewVectorColumnFrom[int64](types.Int64, []int64{-1 << 40, 0, 1 << 40})
	f32 := column.NewVectorColumnFrom[float32](types.Float32, []float32{1.5, -2.25, 0})
	f64 := column.NewVectorColumnFrom[float64](types.Float64, []float64{1.5e10, -2.25, 0})

	blk := block.New(
		block.NamedColumn{Name: "u8", Type: types.UInt8, Column: u8},
		block.NamedColumn{Name: "u16", Type: types.UInt16, Column: u16},
		block.NamedColumn{Name: "u32", Type: types.UInt32, Column: u32},
		block.NamedColumn{Name: "u64", Type: types.UInt64, Column: u64},
		block.NamedColumn{Name: "i8", Type: types.Int8, Column: i8},
		block.NamedColumn{Name: "i16", Type: types.Int16, Column: i16},
		block.NamedColumn{Name: "i32", Type: types.Int32, Column: i32},
		block.NamedColumn{Name: "i64", Type: types.Int64, Column: i64},
		block.NamedColumn{Name: "f32", Type: types.Float32, Column: f32},
		block.NamedColumn{Name: "f64", Type: types.Float64, Column: f64},
	)

	w := wire.NewWriter()
	require.NoError(t, wire.WriteBlock(w, blk))

	r := wire.NewReader(w.Bytes())
	got, err := wire.ReadBlock(r)
	require.NoError(t, err)
	require.Equal(t, 0, r.Remaining())
	require.Equal(t, 3, got.RowCount())

	for _, nc := range blk.Columns {
		gotCol := got.Get(nc.Name)
		require.NotNil(t, gotCol, "column %s", nc.Name)
		require.True(t, gotCol.Type().Equals(nc.Type), "column %s type mismatch", nc.Name)
		require.Equal(t, nc.Column.Size(), gotCol.Size(), "column %s size mismatch", nc.Name)
		for i := 0; i < nc.Column.Size(); i++ {
			require.Equal(t, nc.Column.Get(i), gotCol.Get(i), "column %s row %d", nc.Name, i)
		}
	}
}

func TestBlockRoundTripStringColumns(t *testing.T) {
	str := column.NewStringColumn()
	str.AppendString("hello")
	str.AppendString("")
	str.AppendString("world")

	fixed := column.NewFixedStringColumn(4)
	fixed.Append([]byte("ab"))
	fixed.Append([]byte("cdef"))
	fixed.Append([]byte(""))

	blk := block.New(
		block.NamedColumn{Name: "s", Type: types.String, Column: str},
		block.NamedColumn{Name: "fs", Type: types.FixedString(4), Column: fixed},
	)

	w := wire.NewWriter()
	require.NoError(t, wire.WriteBlock(w, blk))

	got, err := wire.ReadBlock(wire.NewReader(w.Bytes()))
	require.NoError(t, err)

	gotStr := got.Get("s")
	require.Equal(t, 3, gotStr.Size())
	require.Equal(t, str.Get(0), gotStr.Get(0))
	require.Equal(t, str.Get(1), gotStr.Get(1))
	require.Equal(t, str.Get(2), gotStr.Get(2))

	gotFixed := got.Get("fs")
	require.Equal(t, 3, gotFixed.Size())
	for i := 0; i < 3; i++ {
		require.Equal(t, fixed.Get(i), gotFixed.Get(i))
	}
}

func TestBlockRoundTripArrayColumn(t *testing.T) {
	elems := column.NewVectorColumn[int32](types.Int32)
	arr := column.NewArrayColumn(types.Int32, elems)

	elems.Append(1)
	elems.Append(2)
	arr.AppendOffset() // row 0: [1, 2]

	elems.Append(3)
	elems.Append(4)
	elems.Append(5)
	arr.AppendOffset() // row 1: [3, 4, 5]

	arr.AppendOffset() // row 2: []

	blk := block.New(block.NamedColumn{Name: "arr", Type: types.Array(types.Int32), Column: arr})

	w := wire.NewWriter()
	require.NoError(t, wire.WriteBlock(w, blk))

	got, err := wire.ReadBlock(wire.NewReader(w.Bytes()))
	require.NoError(t, err)

	gotArr, ok := got.Get("arr").(*column.ArrayColumn)
	require.True(t, ok)
	require.Equal(t, arr.Size(), gotArr.Size())
	for i := 0; i < arr.Size(); i++ {
		require.Equal(t, arr.Get(i), gotArr.Get(i))
	}
}

func TestBlockRoundTripNullableColumn(t *testing.T) {
	nested := column.NewVectorColumn[int64](types.Int64)
	nullable := column.NewNullableColumn(nested)
	nullable.AppendNull()
	nested.Append(42)
	nullable.AppendNotNull()
	nullable.AppendNull()

	blk := block.New(block.NamedColumn{Name: "n", Type: types.Nullable(types.Int64), Column: nullable})

	w := wire.NewWriter()
	require.NoError(t, wire.WriteBlock(w, blk))

	got, err := wire.ReadBlock(wire.NewReader(w.Bytes()))
	require.NoError(t, err)

	gotN, ok := got.Get("n").(*column.NullableColumn)
	require.True(t, ok)
	require.Equal(t, 3, gotN.Size())
	require.True(t, gotN.IsNullAt(0))
	require.False(t, gotN.IsNullAt(1))
	require.True(t, gotN.IsNullAt(2))
	require.Equal(t, nullable.Get(1), gotN.Get(1))
}

func TestBlockRoundTripEmptyBlock(t *testing.T) {
	blk := block.New()
	w := wire.NewWriter()
	require.NoError(t, wire.WriteBlock(w, blk))
	got, err := wire.ReadBlock(wire.NewReader(w.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 0, got.RowCount())
	require.Empty(t, got.Columns)
}

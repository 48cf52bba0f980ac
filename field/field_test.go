package field_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/field"
)

func TestEqualComparesByTagThenValue(t *testing.T) {
	require.True(t, field.Equal(field.FromInt64(5), field.FromInt64(5)))
	require.False(t, field.Equal(field.FromInt64(5), field.FromUInt64(5)), "Int64 and UInt64 are distinct tags even with equal bit patterns")
	require.True(t, field.Equal(field.Null(), field.Null()))
	require.False(t, field.Equal(field.FromString("a"), field.FromString("b")))
}

func TestEqualArrayIsElementwise(t *testing.T) {
	a := field.FromArray([]field.Field{field.FromInt64(1), field.FromInt64(2)})
	b := field.FromArray([]field.Field{field.FromInt64(1), field.FromInt64(2)})
	c := field.FromArray([]field.Field{field.FromInt64(1), field.FromInt64(3)})
	require.True(t, field.Equal(a, b))
	require.False(t, field.Equal(a, c))
}

func TestHashIsStableAndTagSensitive(t *testing.T) {
	h1 := field.Hash(field.FromInt64(42))
	h2 := field.Hash(field.FromInt64(42))
	require.Equal(t, h1, h2)

	h3 := field.Hash(field.FromUInt64(42))
	require.NotEqual(t, h1, h3, "Hash mixes the tag byte first, so equal bit patterns under different tags must diverge")
}

func TestIsNonPODBoundary(t *testing.T) {
	require.False(t, field.TagFloat64.IsNonPOD())
	require.True(t, field.TagString.IsNonPOD())
	require.True(t, field.TagArray.IsNonPOD())
}

func TestFieldAccessorsRoundTrip(t *testing.T) {
	require.Equal(t, int64(-7), field.FromInt64(-7).Int64())
	require.Equal(t, uint64(7), field.FromUInt64(7).UInt64())
	require.Equal(t, 3.5, field.FromFloat64(3.5).Float64())
	require.Equal(t, "hi", field.FromString("hi").String())

	lo, hi := field.FromUInt128(1, 2).UInt128()
	require.Equal(t, uint64(1), lo)
	require.Equal(t, uint64(2), hi)
}

func TestGoStringRendersEachTag(t *testing.T) {
	require.Equal(t, "NULL", field.Null().GoString())
	require.Equal(t, "42", field.FromInt64(42).GoString())
	require.Equal(t, `"hi"`, field.FromString("hi").GoString())
}

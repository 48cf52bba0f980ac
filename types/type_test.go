package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/types"
)

func TestEqualsIsByCanonicalName(t *testing.T) {
	require.True(t, types.Int64.Equals(types.Int64))
	require.False(t, types.Int64.Equals(types.UInt64))
}

func TestIsNumberCoversDateFamilies(t *testing.T) {
	require.True(t, types.Int64.IsNumber())
	require.True(t, types.Date.IsNumber())
	require.True(t, types.DateTime.IsNumber())
	require.False(t, types.String.IsNumber())
}

func TestIsStringCoversFixedString(t *testing.T) {
	require.True(t, types.String.IsString())
	require.True(t, types.FixedString(8).IsString())
	require.False(t, types.Int64.IsString())
}

func TestFixedStringIsRegisteredOnFirstUseAndReused(t *testing.T) {
	a := types.FixedString(16)
	b := types.FixedString(16)
	require.Same(t, a, b, "a second call with the same N must return the already-registered Type")
	require.Equal(t, "FixedString(16)", a.Name)
}

func TestArrayAndNullableAndTupleNaming(t *testing.T) {
	arr := types.Array(types.Int64)
	require.Equal(t, "Array(Int64)", arr.Name)

	nul := types.Nullable(types.String)
	require.Equal(t, "Nullable(String)", nul.Name)

	tup := types.Tuple(types.Int64, types.String)
	require.Equal(t, "Tuple(Int64, String)", tup.Name)
}

func TestRegisterPanicsOnDuplicateName(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r, "registering a duplicate type name must panic")
	}()
	types.Register(&types.Type{Name: "Int64", Family: types.FamilyNumber})
}

func TestLookupReturnsNilForUnknownName(t *testing.T) {
	require.Nil(t, types.Lookup("NoSuchType"))
}

func TestNumberKindSignedAndWidth(t *testing.T) {
	require.True(t, types.NumInt32.Signed())
	require.False(t, types.NumUInt32.Signed())
	require.Equal(t, 4, types.NumInt32.Width())
	require.Equal(t, 8, types.NumFloat64.Width())
	require.True(t, types.NumFloat64.Float())
}

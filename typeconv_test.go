package pyrolite

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsInt64(t *testing.T) {
	v, err := AsInt64(int64(-5))
	require.NoError(t, err)
	require.Equal(t, int64(-5), v)

	v, err = AsInt64(uint64(5))
	require.NoError(t, err)
	require.Equal(t, int64(5), v)

	_, err = AsInt64(uint64(math.MaxUint64))
	require.Error(t, err)

	v, err = AsInt64(big.NewInt(7))
	require.NoError(t, err)
	require.Equal(t, int64(7), v)

	_, err = AsInt64(new(big.Int).Lsh(big.NewInt(1), 80))
	require.Error(t, err)

	_, err = AsInt64("nope")
	require.Error(t, err)
}

func TestAsUint64(t *testing.T) {
	v, err := AsUint64(int64(5))
	require.NoError(t, err)
	require.Equal(t, uint64(5), v)

	_, err = AsUint64(int64(-1))
	require.Error(t, err)

	v, err = AsUint64(uint64(math.MaxUint64))
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), v)

	v, err = AsUint64(new(big.Int).SetUint64(math.MaxUint64))
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), v)

	_, err = AsUint64(big.NewInt(-1))
	require.Error(t, err)
}

func TestAsString(t *testing.T) {
	s, err := AsString("abc")
	require.NoError(t, err)
	require.Equal(t, "abc", s)

	s, err = AsString(Bytes("abc"))
	require.NoError(t, err)
	require.Equal(t, "abc", s)

	_, err = AsString(int64(1))
	require.Error(t, err)
}

func TestAsBytes(t *testing.T) {
	b, err := AsBytes(Bytes("ab"))
	require.NoError(t, err)
	require.Equal(t, Bytes("ab"), b)

	b, err = AsBytes([]byte{0x61})
	require.NoError(t, err)
	require.Equal(t, Bytes("a"), b)

	_, err = AsBytes("str")
	require.Error(t, err)
}

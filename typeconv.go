package pyrolite

// Adapters from the decoder's output types to plain Go values.

import (
	"fmt"
	"math"
	"math/big"
)

// AsInt64 tries to represent an unpickled value as int64.
//
// Decoded integers arrive as int64, as uint64 (above the signed-64 range)
// or as *big.Int (Python longs); AsInt64 accepts any of them as long as
// the value fits.
func AsInt64(x interface{}) (int64, error) {
	switch v := x.(type) {
	case int64:
		return v, nil
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), nil
		}
		return 0, fmt.Errorf("uint %d does not fit in int64", v)
	case *big.Int:
		if v.IsInt64() {
			return v.Int64(), nil
		}
		return 0, fmt.Errorf("long %s does not fit in int64", v)
	}
	return 0, fmt.Errorf("want an integer, have %T", x)
}

// AsUint64 tries to represent an unpickled value as uint64.
func AsUint64(x interface{}) (uint64, error) {
	switch v := x.(type) {
	case int64:
		if v >= 0 {
			return uint64(v), nil
		}
		return 0, fmt.Errorf("int %d does not fit in uint64", v)
	case uint64:
		return v, nil
	case *big.Int:
		if v.IsUint64() {
			return v.Uint64(), nil
		}
		return 0, fmt.Errorf("long %s does not fit in uint64", v)
	}
	return 0, fmt.Errorf("want an integer, have %T", x)
}

// AsString tries to represent an unpickled value as string.
func AsString(x interface{}) (string, error) {
	switch v := x.(type) {
	case string:
		return v, nil
	case Bytes:
		return string(v), nil
	}
	return "", fmt.Errorf("want a string, have %T", x)
}

// AsBytes tries to represent an unpickled value as Bytes.
func AsBytes(x interface{}) (Bytes, error) {
	switch v := x.(type) {
	case Bytes:
		return v, nil
	case []byte:
		return Bytes(v), nil
	}
	return "", fmt.Errorf("want bytes, have %T", x)
}

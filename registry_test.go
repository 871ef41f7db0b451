package pyrolite

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct{ X, Y int }

type named interface{ Name() string }

type thing struct{ N string }

func (t thing) Name() string { return t.N }

func pickleNothing(e *Encoder, v interface{}) error { return nil }

func TestRegistryLookup(t *testing.T) {
	reg := NewPicklerRegistry()

	var hits []string
	handler := func(tag string) ObjectPicklerFunc {
		return func(e *Encoder, v interface{}) error {
			hits = append(hits, tag)
			return nil
		}
	}

	reg.RegisterFunc((*named)(nil), handler("iface"))
	reg.RegisterFunc(thing{}, handler("exact"))

	// exact match wins over a matching interface
	p, ok := reg.Lookup(reflect.TypeOf(thing{}))
	require.True(t, ok)
	require.NoError(t, p.PickleObject(nil, nil))
	require.Equal(t, []string{"exact"}, hits)

	// a type only reachable through the interface walk
	hits = nil
	p, ok = reg.Lookup(reflect.TypeOf(otherNamed{}))
	require.True(t, ok)
	require.NoError(t, p.PickleObject(nil, nil))
	require.Equal(t, []string{"iface"}, hits)

	// miss
	_, ok = reg.Lookup(reflect.TypeOf(point{}))
	require.False(t, ok)
}

type otherNamed struct{}

func (otherNamed) Name() string { return "" }

func TestRegistryOrder(t *testing.T) {
	reg := NewPicklerRegistry()

	var got string
	reg.RegisterFunc((*named)(nil), func(e *Encoder, v interface{}) error {
		got = "named"
		return nil
	})
	reg.RegisterFunc((*fmt.Stringer)(nil), func(e *Encoder, v interface{}) error {
		got = "stringer"
		return nil
	})

	// both implemented by both; first registration wins
	p, ok := reg.Lookup(reflect.TypeOf(namedStringer{}))
	require.True(t, ok)
	require.NoError(t, p.PickleObject(nil, nil))
	require.Equal(t, "named", got)
}

type namedStringer struct{}

func (namedStringer) Name() string   { return "" }
func (namedStringer) String() string { return "" }

func TestRegistryReplace(t *testing.T) {
	reg := NewPicklerRegistry()

	reg.RegisterFunc(point{}, pickleNothing)
	replaced := false
	reg.RegisterFunc(point{}, func(e *Encoder, v interface{}) error {
		replaced = true
		return nil
	})

	p, ok := reg.Lookup(reflect.TypeOf(point{}))
	require.True(t, ok)
	require.NoError(t, p.PickleObject(nil, nil))
	require.True(t, replaced)
	require.Len(t, reg.order, 1)
}

// A registered pickler takes over the whole fragment and can recurse
// through the saver.
func TestCustomPickler(t *testing.T) {
	reg := NewPicklerRegistry()
	reg.RegisterFunc(point{}, func(e *Encoder, v interface{}) error {
		p := v.(point)
		return e.Save(Tuple{p.X, p.Y})
	})

	var buf bytes.Buffer
	e := NewEncoderWithConfig(&buf, &EncoderConfig{Registry: reg})
	require.NoError(t, e.Encode(point{X: 3, Y: 4}))

	out, err := Loads(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, Tuple{int64(3), int64(4)}, out)
}

// A handler can also write opcodes directly through the Encoder.
func TestCustomPicklerRawWrite(t *testing.T) {
	reg := NewPicklerRegistry()
	reg.RegisterFunc(point{}, func(e *Encoder, v interface{}) error {
		_, err := e.Write([]byte{opNone})
		return err
	})

	var buf bytes.Buffer
	e := NewEncoderWithConfig(&buf, &EncoderConfig{Registry: reg})
	require.NoError(t, e.Encode(point{}))
	require.Equal(t, "\x80\x02N.", buf.String())
}

func TestCustomPicklerError(t *testing.T) {
	boom := errors.New("boom")
	reg := NewPicklerRegistry()
	reg.RegisterFunc(point{}, func(e *Encoder, v interface{}) error {
		return boom
	})

	var buf bytes.Buffer
	e := NewEncoderWithConfig(&buf, &EncoderConfig{Registry: reg})
	err := e.Encode(point{})

	var pe *PicklerError
	require.ErrorAs(t, err, &pe)
	require.ErrorIs(t, err, boom)
	require.Contains(t, pe.Type, "point")
}

// Built-in rules below the primitives yield to the registry, so even the
// big-integer encoding can be taken over.
func TestRegistryOverridesLong(t *testing.T) {
	reg := NewPicklerRegistry()
	reg.RegisterFunc((*big.Int)(nil), func(e *Encoder, v interface{}) error {
		x := v.(big.Int)
		return e.Save(x.String())
	})

	var buf bytes.Buffer
	e := NewEncoderWithConfig(&buf, &EncoderConfig{Registry: reg})
	require.NoError(t, e.Encode(big.NewInt(123)))

	out, err := Loads(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "123", out)
}

func TestDefaultRegistry(t *testing.T) {
	type local struct{ V int }

	Register(local{}, ObjectPicklerFunc(func(e *Encoder, v interface{}) error {
		return e.Save(v.(local).V)
	}))

	data, err := Dumps(local{V: 9})
	require.NoError(t, err)

	out, err := Loads(data)
	require.NoError(t, err)
	require.Equal(t, int64(9), out)
}

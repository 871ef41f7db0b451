package pyrolite

import (
	"encoding/binary"
	"hash/maphash"
	"math"
	"reflect"
	"time"

	"github.com/aristanetworks/gomap"
	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// The memo table maps already-written values to their slot index so that a
// repeated value is emitted as a single BINGET instead of a second full
// encoding. Slots are assigned densely from 0 in write order.
//
// Keys mix two identity notions. Scalar-like values (strings, characters,
// byte contents, times, durations, decimals in canonical text form) are
// keyed structurally, so two equal strings share one slot. Containers are
// keyed by their data pointer: hashing a cyclic list structurally cannot
// terminate, and the pointer is exactly what makes the self-reference in a
// cyclic container resolvable on decode.
type memoTable struct {
	m *gomap.Map[interface{}, int32]
}

// sliceID identifies a slice by its backing array and length. The type is
// part of the identity: nil slices of different types all have a zero data
// pointer but encode differently (a nil Tuple is not a nil list).
type sliceID struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// mapID identifies a map by its header pointer.
type mapID struct {
	typ reflect.Type
	ptr uintptr
}

// bytesKey is []byte content. A distinct type from string: "AB" and
// []byte("AB") produce different pickles and must not share a slot.
type bytesKey string

// decimalKey is a decimal's canonical text. Keying by text rather than
// numeric equality keeps 1.0 and 1.00 in separate slots, so a memo hit can
// never rewrite the digits a Python Decimal would preserve.
type decimalKey string

// decimalText is the canonical text of d: its digits at the decimal's own
// scale, trailing fractional zeros included.
func decimalText(d decimal.Decimal) string {
	if d.Exponent() < 0 {
		return d.StringFixed(-d.Exponent())
	}
	return d.String()
}

func newMemoTable() *memoTable {
	return &memoTable{m: gomap.NewHint[interface{}, int32](8, memoEqual, memoHash)}
}

func (t *memoTable) get(key interface{}) (int32, bool) {
	return t.m.Get(key)
}

// put assigns the next slot to key and returns it.
func (t *memoTable) put(key interface{}) int32 {
	slot := int32(t.m.Len())
	t.m.Set(key, slot)
	return slot
}

// memoKey derives the memo key for a value, or reports that the value has
// no usable identity and must not be memoized. Primitives deliberately have
// no key: pickle does not memoize small ints, bools or floats.
func memoKey(rv reflect.Value) (interface{}, bool) {
	switch rv.Kind() {
	case reflect.String:
		if rv.Type() == typeBytes {
			return bytesKey(rv.String()), true
		}
		return rv.String(), true

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return bytesKey(byteContents(rv)), true
		}
		return sliceID{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}, true

	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return bytesKey(byteContents(rv)), true
		}

	case reflect.Map:
		return mapID{typ: rv.Type(), ptr: rv.Pointer()}, true

	case reflect.Int64:
		if rv.Type() == typeDuration {
			return time.Duration(rv.Int()), true
		}

	case reflect.Struct:
		switch v := rv.Interface().(type) {
		case time.Time:
			return v, true
		case decimal.Decimal:
			return decimalKey(decimalText(v)), true
		}
	}

	return nil, false
}

// All key forms are comparable, so equality is the builtin one. The type of
// the key carries the identity notion with it.
func memoEqual(a, b interface{}) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return a == b
}

// memoHash hashes a memo key for the gomap buckets. String-shaped keys go
// through xxhash; fixed-width keys are serialized and hashed the same way.
// The maphash seed is not used: keys never cross table instances.
func memoHash(_ maphash.Seed, key interface{}) uint64 {
	switch k := key.(type) {
	case string:
		return xxhash.Sum64String(k)
	case bytesKey:
		return xxhash.Sum64String(string(k)) ^ 0xb5ea7e5a
	case decimalKey:
		return xxhash.Sum64String(string(k)) ^ 0xdec1da1
	case sliceID:
		var b [16]byte
		binary.LittleEndian.PutUint64(b[:8], uint64(k.ptr))
		binary.LittleEndian.PutUint64(b[8:], uint64(k.len))
		return xxhash.Sum64(b[:])
	case mapID:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(k.ptr))
		return xxhash.Sum64(b[:])
	case time.Duration:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(k))
		return xxhash.Sum64(b[:])
	case time.Time:
		var b [16]byte
		binary.LittleEndian.PutUint64(b[:8], uint64(k.Unix()))
		binary.LittleEndian.PutUint64(b[8:], uint64(k.Nanosecond()))
		return xxhash.Sum64(b[:])
	}
	return 0
}

// emitGet writes the memo fetch opcode for slot.
func (e *Encoder) emitGet(slot int32) error {
	if slot <= math.MaxUint8 {
		return e.emit(opBinget, byte(slot))
	}
	if err := e.emit(opLongBinget); err != nil {
		return err
	}
	return e.emitUint32le(uint32(slot))
}

// memoize inserts rv into the memo and writes the store opcode. It is a
// no-op when memoization is off or rv has no usable identity.
func (e *Encoder) memoize(rv reflect.Value) error {
	if e.memo == nil {
		return nil
	}
	key, ok := memoKey(rv)
	if !ok {
		return nil
	}
	return e.memoizeKey(key)
}

// memoizeKey is memoize for an already-derived key. A key that is already
// present keeps its slot: a value can reach its own encoder twice through an
// indirect cycle, and reinserting would shift the dense numbering.
func (e *Encoder) memoizeKey(key interface{}) error {
	if e.memo == nil {
		return nil
	}
	if _, ok := e.memo.get(key); ok {
		return nil
	}
	slot := e.memo.put(key)
	if slot <= math.MaxUint8 {
		return e.emit(opBinput, byte(slot))
	}
	if err := e.emit(opLongBinput); err != nil {
		return err
	}
	return e.emitUint32le(uint32(slot))
}

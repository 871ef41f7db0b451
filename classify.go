package pyrolite

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// category is the dispatch category a value is classified into. Each
// category maps statically to one encoding routine.
type category int

const (
	catUnpicklable category = iota
	catNone
	catBool
	catInt      // fits signed 64-bit; encoder picks the narrowest opcode
	catBigUint  // uint64 above signed-64 range; text INT opcode
	catLong     // *big.Int; LONG1
	catFloat
	catChar
	catString
	catBytes     // bytearray
	catPrimArray // array.array
	catTuple
	catList
	catDict
	catSet
	catDateTime
	catTimeDelta
	catDecimal
	catEnum
	catStructFielder // explicit field snapshot via Fielder
	catStructWalk    // reflective walk over exported fields and pickle tags
	catCustom        // registered ObjectPickler
)

var (
	typeNone     = reflect.TypeOf(None{})
	typeTuple    = reflect.TypeOf(Tuple(nil))
	typeChar     = reflect.TypeOf(Char(0))
	typeSet      = reflect.TypeOf(Set(nil))
	typeBytes    = reflect.TypeOf(Bytes(""))
	typeTime     = reflect.TypeOf(time.Time{})
	typeDuration = reflect.TypeOf(time.Duration(0))
	typeDecimal  = reflect.TypeOf(decimal.Decimal{})
	typeBigInt   = reflect.TypeOf(big.Int{})

	typeStringer = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
	typeFielder  = reflect.TypeOf((*Fielder)(nil)).Elem()
)

// classify maps a concrete (non-interface, non-pointer) value to its
// dispatch category. The rule order is load-bearing: a registered pickler
// beats built-in reflection for everything except primitives, characters and
// native arrays, and the primitive-array rules run before generic sequence
// handling so byte slices become bytearray and numeric slices become
// array.array rather than lists.
func classify(rv reflect.Value, reg *PicklerRegistry) (category, ObjectPickler) {
	t := rv.Type()

	switch t {
	case typeNone:
		return catNone, nil
	case typeChar:
		return catChar, nil
	case typeBytes:
		return catBytes, nil
	case typeTuple:
		return catTuple, nil
	}

	k := t.Kind()

	// native arrays first: byte slices, numeric slices, tuples
	if k == reflect.Slice || k == reflect.Array {
		switch ek := t.Elem().Kind(); {
		case ek == reflect.Uint8:
			return catBytes, nil
		case ek == reflect.Bool:
			return catTuple, nil // bool has no array.array typecode
		case arrayTypecode(ek) != 0:
			return catPrimArray, nil
		}
		if k == reflect.Array {
			return catTuple, nil
		}
	}

	switch k {
	case reflect.Bool:
		return catBool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t != typeDuration && !isEnum(t) {
			return catInt, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !isEnum(t) {
			if rv.Uint() > math.MaxInt64 {
				return catBigUint, nil
			}
			return catInt, nil
		}
	case reflect.Float32, reflect.Float64:
		return catFloat, nil
	}

	// user override beats everything below
	if reg != nil {
		if p, ok := reg.Lookup(t); ok {
			return catCustom, p
		}
	}

	switch t {
	case typeBigInt:
		return catLong, nil
	case typeDecimal:
		return catDecimal, nil
	case typeTime:
		return catDateTime, nil
	case typeDuration:
		return catTimeDelta, nil
	case typeSet:
		return catSet, nil
	}

	switch k {
	case reflect.String:
		return catString, nil
	case reflect.Map:
		return catDict, nil
	case reflect.Slice:
		return catList, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return catEnum, nil
	case reflect.Struct:
		if t.Implements(typeFielder) {
			return catStructFielder, nil
		}
		if hasExportedField(t) {
			return catStructWalk, nil
		}
	}

	return catUnpicklable, nil
}

// isEnum reports whether t is a named integer type carrying a textual label.
// Such values pickle as their label rather than their numeric value.
// time.Duration is an integer Stringer too but keeps its own category.
func isEnum(t reflect.Type) bool {
	return t.PkgPath() != "" && t != typeDuration && t.Implements(typeStringer)
}

// arrayTypecode returns the array.array typecode for a primitive element
// kind, or 0 if the kind has none.
func arrayTypecode(k reflect.Kind) byte {
	switch k {
	case reflect.Int8:
		return 'b'
	case reflect.Int16:
		return 'h'
	case reflect.Uint16:
		return 'H'
	case reflect.Int32:
		return 'i'
	case reflect.Uint32:
		return 'I'
	case reflect.Int64, reflect.Int:
		return 'l'
	case reflect.Uint64, reflect.Uint:
		return 'L'
	case reflect.Float32:
		return 'f'
	case reflect.Float64:
		return 'd'
	}
	return 0
}

func hasExportedField(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

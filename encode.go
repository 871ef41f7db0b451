package pyrolite

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// maxDepth bounds recursion through nested values. Exceeding it aborts the
// encoding session.
const maxDepth = 200

// An Encoder encodes Go data structures into a pickle protocol 2 byte
// stream. An Encoder is single-threaded; each Encode call is an independent
// session with a fresh memo.
type Encoder struct {
	w      io.Writer
	config *EncoderConfig
	memo   *memoTable
	depth  int
}

// EncoderConfig allows to tune Encoder.
type EncoderConfig struct {
	// NoMemo disables the memo table. Without the memo every occurrence of
	// a value is written in full, and cyclic containers cannot be encoded.
	NoMemo bool

	// Registry is the custom pickler registry to consult. nil means
	// DefaultRegistry.
	Registry *PicklerRegistry
}

// NewEncoder returns a new Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderWithConfig(w, &EncoderConfig{})
}

// NewEncoderWithConfig is similar to NewEncoder, but allows specifying the
// encoder configuration.
func NewEncoderWithConfig(w io.Writer, config *EncoderConfig) *Encoder {
	return &Encoder{w: w, config: config}
}

func (e *Encoder) registry() *PicklerRegistry {
	if e.config.Registry != nil {
		return e.config.Registry
	}
	return DefaultRegistry
}

// Encode writes the pickle encoding of v to the encoder's writer, framed by
// the protocol 2 header and a STOP. On error the stream may hold a partial
// fragment which the caller must discard.
func (e *Encoder) Encode(v interface{}) error {
	e.memo = nil
	if !e.config.NoMemo {
		e.memo = newMemoTable()
	}
	e.depth = 0

	if err := e.emit(opProto, protocol); err != nil {
		return err
	}
	if err := e.encode(reflectValueOf(v)); err != nil {
		return err
	}
	if e.depth != 0 {
		return errDepthImbalance
	}
	return e.emit(opStop)
}

// Save pickles v as the next fragment of the running stream. It is meant
// for ObjectPickler implementations that need to recurse into child values.
func (e *Encoder) Save(v interface{}) error {
	return e.encode(reflectValueOf(v))
}

// Write writes raw bytes to the underlying stream, so an ObjectPickler can
// emit opcodes directly.
func (e *Encoder) Write(p []byte) (int, error) {
	return e.w.Write(p)
}

// Dump writes the pickle encoding of v to w.
func Dump(v interface{}, w io.Writer) error {
	return NewEncoder(w).Encode(v)
}

// Dumps returns the pickle encoding of v.
func Dumps(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ---- emitter ----

func (e *Encoder) emit(ops ...byte) error {
	_, err := e.w.Write(ops)
	return err
}

func (e *Encoder) write(p []byte) error {
	_, err := e.w.Write(p)
	return err
}

func (e *Encoder) emitUint32le(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return e.write(b[:])
}

// emitGlobal writes GLOBAL with a "module\nname\n" payload.
func (e *Encoder) emitGlobal(payload string) error {
	if err := e.emit(opGlobal); err != nil {
		return err
	}
	return e.write([]byte(payload))
}

// ---- saver ----

// encode writes a self-contained fragment reconstructing rv.
func (e *Encoder) encode(rv reflect.Value) error {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxDepth {
		return ErrRecursionTooDeep
	}

	// unwrap interfaces and pointers down to the concrete value
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return e.emit(opNone)
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Invalid {
		return e.emit(opNone)
	}

	// a repeated reference short-circuits to a GET before any
	// classification happens
	if e.memo != nil {
		if key, ok := memoKey(rv); ok {
			if slot, ok := e.memo.get(key); ok {
				return e.emitGet(slot)
			}
		}
	}

	cat, pickler := classify(rv, e.registry())

	switch cat {
	case catNone:
		return e.emit(opNone)
	case catBool:
		if rv.Bool() {
			return e.emit(opNewtrue)
		}
		return e.emit(opNewfalse)
	case catInt:
		if rv.CanInt() {
			return e.encodeInt(rv.Int())
		}
		return e.encodeInt(int64(rv.Uint()))
	case catBigUint:
		return e.encodeBigUint(rv.Uint())
	case catLong:
		v := rv.Interface().(big.Int)
		return e.encodeLong(&v)
	case catFloat:
		return e.encodeFloat(rv.Float())
	case catChar:
		return e.saveString(string(rune(rv.Int())))
	case catString:
		return e.encodeString(rv.String())
	case catBytes:
		return e.encodeBytes(byteContents(rv))
	case catPrimArray:
		return e.encodeArray(rv)
	case catTuple:
		return e.encodeTuple(rv)
	case catList:
		return e.encodeList(rv)
	case catDict:
		return e.encodeDict(rv)
	case catSet:
		return e.encodeSet(rv)
	case catDateTime:
		return e.encodeTime(rv.Interface().(time.Time), rv)
	case catTimeDelta:
		return e.encodeDuration(time.Duration(rv.Int()), rv)
	case catDecimal:
		return e.encodeDecimal(rv.Interface().(decimal.Decimal))
	case catEnum:
		return e.saveString(rv.Interface().(fmt.Stringer).String())
	case catStructFielder, catStructWalk:
		return e.encodeStruct(rv, cat)
	case catCustom:
		if err := pickler.PickleObject(e, rv.Interface()); err != nil {
			return &PicklerError{Type: rv.Type().String(), Err: err}
		}
		return e.memoize(rv)
	}

	return &UnpicklableError{Type: rv.Type().String()}
}

// ---- scalars ----

// encodeInt picks the narrowest opcode that holds i.
func (e *Encoder) encodeInt(i int64) error {
	switch {
	case 0 <= i && i <= math.MaxUint8:
		return e.emit(opBinint1, byte(i))
	case 0 <= i && i <= math.MaxUint16:
		return e.emit(opBinint2, byte(i), byte(i>>8))
	case math.MinInt32 <= i && i <= math.MaxInt32:
		if err := e.emit(opBinint); err != nil {
			return err
		}
		return e.emitUint32le(uint32(i))
	default:
		if err := e.emit(opInt); err != nil {
			return err
		}
		return e.write(append(strconv.AppendInt(nil, i, 10), '\n'))
	}
}

// encodeBigUint handles uint64 values above the signed-64 range, which no
// binary int opcode can carry. They go out as a decimal INT line; pickle's
// INT parser accepts arbitrary magnitudes.
func (e *Encoder) encodeBigUint(u uint64) error {
	if err := e.emit(opInt); err != nil {
		return err
	}
	return e.write(append(strconv.AppendUint(nil, u, 10), '\n'))
}

// encodeLong writes a big integer as LONG1/LONG4 with a little-endian
// two's-complement payload.
func (e *Encoder) encodeLong(x *big.Int) error {
	data := bigIntLEBytes(x)
	if len(data) < 256 {
		if err := e.emit(opLong1, byte(len(data))); err != nil {
			return err
		}
		return e.write(data)
	}
	if err := e.emit(opLong4); err != nil {
		return err
	}
	if err := e.emitUint32le(uint32(len(data))); err != nil {
		return err
	}
	return e.write(data)
}

// bigIntLEBytes returns the shortest little-endian two's-complement
// encoding of x; empty for zero.
func bigIntLEBytes(x *big.Int) []byte {
	if x.Sign() == 0 {
		return nil
	}

	if x.Sign() > 0 {
		b := x.Bytes() // big-endian
		reverseBytes(b)
		if b[len(b)-1]&0x80 != 0 {
			b = append(b, 0) // keep the sign bit clear
		}
		return b
	}

	// negative: 2^(8n) + x for the smallest n that keeps the sign bit set
	n := x.BitLen()/8 + 1
	t := new(big.Int).Lsh(big.NewInt(1), uint(8*n))
	t.Add(t, x)
	b := t.Bytes()
	reverseBytes(b)
	for len(b) > 1 && b[len(b)-1] == 0xff && b[len(b)-2]&0x80 != 0 {
		b = b[:len(b)-1]
	}
	return b
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func (e *Encoder) encodeFloat(f float64) error {
	if err := e.emit(opBinfloat); err != nil {
		return err
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	return e.write(b[:])
}

// encodeString writes s as BINUNICODE and memoizes it. Equal strings share
// one memo slot: the memo keys strings structurally.
func (e *Encoder) encodeString(s string) error {
	if err := e.emit(opBinunicode); err != nil {
		return err
	}
	if err := e.emitUint32le(uint32(len(s))); err != nil {
		return err
	}
	if err := e.write([]byte(s)); err != nil {
		return err
	}
	return e.memoizeKey(s)
}

// saveString writes s with a memo lookup first, for strings produced
// internally (characters, enum labels, latin-1 payloads, literals) that
// bypass the saver.
func (e *Encoder) saveString(s string) error {
	if e.memo != nil {
		if slot, ok := e.memo.get(s); ok {
			return e.emitGet(slot)
		}
	}
	return e.encodeString(s)
}

// ---- constructor calls ----

// encodeBytes writes b as bytearray(<latin-1 text>, "latin-1"). Protocol 2
// predates the bytes opcodes, so the contents travel as a unicode string
// whose codepoints are the byte values.
func (e *Encoder) encodeBytes(b []byte) error {
	if err := e.emitGlobal(globalBytearray); err != nil {
		return err
	}
	if err := e.saveString(latin1String(b)); err != nil {
		return err
	}
	if err := e.saveString("latin-1"); err != nil {
		return err
	}
	if err := e.emit(opTuple2, opReduce); err != nil {
		return err
	}
	return e.memoizeKey(bytesKey(b))
}

func latin1String(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

func byteContents(rv reflect.Value) []byte {
	switch {
	case rv.Kind() == reflect.String:
		return []byte(rv.String())
	case rv.Type() == typeByteSlice:
		return rv.Bytes()
	default: // array, or a slice with a named byte element type
		b := make([]byte, rv.Len())
		for i := range b {
			b[i] = byte(rv.Index(i).Uint())
		}
		return b
	}
}

var typeByteSlice = reflect.TypeOf([]byte(nil))

// encodeArray writes a numeric slice or array as
// array.array(typecode, [items]).
func (e *Encoder) encodeArray(rv reflect.Value) error {
	tc := arrayTypecode(rv.Type().Elem().Kind())
	if err := e.emitGlobal(globalArray); err != nil {
		return err
	}
	if err := e.emit(opShortBinstring, 1, tc); err != nil {
		return err
	}
	if err := e.emit(opEmptyList, opMark); err != nil {
		return err
	}
	for i, l := 0, rv.Len(); i < l; i++ {
		if err := e.encode(rv.Index(i)); err != nil {
			return err
		}
	}
	if err := e.emit(opAppends, opTuple2, opReduce); err != nil {
		return err
	}
	return e.memoize(rv)
}

// encodeTime writes t as datetime.datetime(Y, M, D, h, m, s, µs).
func (e *Encoder) encodeTime(t time.Time, rv reflect.Value) error {
	if err := e.emitGlobal(globalDatetime); err != nil {
		return err
	}
	if err := e.emit(opMark); err != nil {
		return err
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	for _, field := range [7]int{y, int(mo), d, h, mi, s, t.Nanosecond() / 1000} {
		if err := e.encodeInt(int64(field)); err != nil {
			return err
		}
	}
	if err := e.emit(opTuple, opReduce); err != nil {
		return err
	}
	return e.memoize(rv)
}

// encodeDuration writes d as datetime.timedelta(days, seconds, µs).
// TUPLE3 consumes exactly three stack items, so no MARK is needed.
func (e *Encoder) encodeDuration(d time.Duration, rv reflect.Value) error {
	days := d / (24 * time.Hour)
	rem := d - days*24*time.Hour
	secs := rem / time.Second
	micros := (rem % time.Second) / time.Microsecond

	if err := e.emitGlobal(globalTimedelta); err != nil {
		return err
	}
	for _, field := range [3]int64{int64(days), int64(secs), int64(micros)} {
		if err := e.encodeInt(field); err != nil {
			return err
		}
	}
	if err := e.emit(opTuple3, opReduce); err != nil {
		return err
	}
	return e.memoize(rv)
}

// encodeDecimal writes d as decimal.Decimal("<canonical text>").
func (e *Encoder) encodeDecimal(d decimal.Decimal) error {
	text := decimalText(d)
	if err := e.emitGlobal(globalDecimal); err != nil {
		return err
	}
	if err := e.saveString(text); err != nil {
		return err
	}
	if err := e.emit(opTuple1, opReduce); err != nil {
		return err
	}
	return e.memoizeKey(decimalKey(text))
}

// ---- containers ----

// encodeTuple writes a Tuple or fixed-size Go array. Tuples are memoized
// after their items, which is safe only because a tuple directly containing
// itself is rejected.
func (e *Encoder) encodeTuple(rv reflect.Value) error {
	l := rv.Len()

	save := func(i int) error {
		el := rv.Index(i)
		for el.Kind() == reflect.Interface {
			el = el.Elem()
		}
		if rv.Kind() == reflect.Slice && el.Kind() == reflect.Slice &&
			el.Pointer() == rv.Pointer() && el.Len() == rv.Len() {
			return ErrRecursiveTuple
		}
		return e.encode(rv.Index(i))
	}

	switch l {
	case 0:
		// the empty tuple is a singleton on the Python side; not memoized
		return e.emit(opEmptyTuple)
	case 1, 2, 3:
		for i := 0; i < l; i++ {
			if err := save(i); err != nil {
				return err
			}
		}
		if err := e.emit([3]byte{opTuple1, opTuple2, opTuple3}[l-1]); err != nil {
			return err
		}
	default:
		if err := e.emit(opMark); err != nil {
			return err
		}
		for i := 0; i < l; i++ {
			if err := save(i); err != nil {
				return err
			}
		}
		if err := e.emit(opTuple); err != nil {
			return err
		}
	}
	return e.memoize(rv)
}

// encodeList writes a slice as a list. The empty list is memoized before
// the items are drained: a cyclic list terminates through the memo hit on
// the inner reference.
func (e *Encoder) encodeList(rv reflect.Value) error {
	if err := e.emit(opEmptyList); err != nil {
		return err
	}
	if err := e.memoize(rv); err != nil {
		return err
	}
	if err := e.emit(opMark); err != nil {
		return err
	}
	for i, l := 0, rv.Len(); i < l; i++ {
		if err := e.encode(rv.Index(i)); err != nil {
			return err
		}
	}
	return e.emit(opAppends)
}

// encodeDict writes a map. Memoized before draining, like lists.
func (e *Encoder) encodeDict(rv reflect.Value) error {
	if err := e.emit(opEmptyDict); err != nil {
		return err
	}
	if err := e.memoize(rv); err != nil {
		return err
	}
	if err := e.emit(opMark); err != nil {
		return err
	}
	iter := rv.MapRange()
	for iter.Next() {
		if err := e.encode(iter.Key()); err != nil {
			return err
		}
		if err := e.encode(iter.Value()); err != nil {
			return err
		}
	}
	return e.emit(opSetitems)
}

// encodeSet writes a Set as set([items]). Set elements are hashable, so a
// set cannot contain itself and post-emission memoization is safe.
func (e *Encoder) encodeSet(rv reflect.Value) error {
	if err := e.emitGlobal(globalSet); err != nil {
		return err
	}
	if err := e.emit(opEmptyList, opMark); err != nil {
		return err
	}
	iter := rv.MapRange()
	for iter.Next() {
		if err := e.encode(iter.Key()); err != nil {
			return err
		}
	}
	if err := e.emit(opAppends, opTuple1, opReduce); err != nil {
		return err
	}
	return e.memoize(rv)
}

// ---- records ----

// encodeStruct pickles a record value as a dict of its fields, tagged with
// __class__ unless the type is anonymous.
func (e *Encoder) encodeStruct(rv reflect.Value, cat category) error {
	m, err := structSnapshot(rv, cat)
	if err != nil {
		return err
	}
	return e.encode(reflect.ValueOf(m))
}

// structSnapshot builds the field-name → value mapping for a record.
// Fielder types supply it themselves; otherwise exported fields are walked,
// with pickle tags renaming fields and `pickle:"-"` excluding them.
func structSnapshot(rv reflect.Value, cat category) (m map[string]interface{}, err error) {
	t := rv.Type()
	field := ""
	defer func() {
		if r := recover(); r != nil {
			err = &FieldError{Struct: t.String(), Field: field, Err: fmt.Errorf("%v", r)}
		}
	}()

	var class string
	if cat == catStructFielder {
		field = "PickleFields"
		fields := rv.Interface().(Fielder).PickleFields()
		m = make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			m[k] = v
		}
		class = fqTypeName(t)
		if cn, ok := rv.Interface().(ClassNamer); ok {
			field = "PickleClassName"
			if name := cn.PickleClassName(); name != "" {
				class = name
			}
		}
	} else {
		m = make(map[string]interface{}, t.NumField()+1)
		for i := 0; i < t.NumField(); i++ {
			ft := t.Field(i)
			if !ft.IsExported() {
				continue
			}
			name := ft.Name
			if tag := ft.Tag.Get("pickle"); tag != "" {
				if tag == "-" {
					continue
				}
				name = tag
			}
			field = ft.Name
			m[name] = rv.Field(i).Interface()
		}
		class = fqTypeName(t)
	}

	if class != "" {
		m["__class__"] = class
	}
	return m, nil
}

// fqTypeName returns the fully-qualified name of t, or "" for anonymous
// types, whose records carry no __class__ tag.
func fqTypeName(t reflect.Type) string {
	if t.Name() == "" {
		return ""
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

func reflectValueOf(v interface{}) reflect.Value {
	rv, ok := v.(reflect.Value)
	if !ok {
		rv = reflect.ValueOf(v)
	}
	return rv
}

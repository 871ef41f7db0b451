package pyrolite

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Decoder reads back the pickle streams Encoder produces: a stack machine
// over the protocol 0-2 opcode set. Constructor calls it recognizes fold
// into native Go values; anything else is surfaced symbolically as Class or
// Call, so feeding it an untrusted stream never executes code.
type Decoder struct {
	r     *bufio.Reader
	stk   []interface{}
	marks []int // stack depths at open MARKs
	memo  map[int]interface{}
	proto int // last PROTO version seen; 0 for bare streams
}

// NewDecoder constructs a new Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:    bufio.NewReader(r),
		memo: make(map[int]interface{}),
	}
}

// Load returns the value decoded from the pickle stream in r.
func Load(r io.Reader) (interface{}, error) {
	return NewDecoder(r).Decode()
}

// Loads returns the value decoded from data.
func Loads(data []byte) (interface{}, error) {
	return NewDecoder(bytes.NewReader(data)).Decode()
}

// opHandlers maps an opcode to its loader. STOP and PROTO are handled by
// the Decode loop itself; a nil slot is an unknown or unsupported opcode.
var opHandlers = [256]func(*Decoder) error{
	opNone:     (*Decoder).loadNone,
	opNewtrue:  (*Decoder).loadNewTrue,
	opNewfalse: (*Decoder).loadNewFalse,

	opInt:      (*Decoder).loadIntLine,
	opFloat:    (*Decoder).loadFloatLine,
	opLong:     (*Decoder).loadLongLine,
	opBinint1:  (*Decoder).loadBinInt1,
	opBinint2:  (*Decoder).loadBinInt2,
	opBinint:   (*Decoder).loadBinInt4,
	opLong1:    (*Decoder).loadLong1,
	opLong4:    (*Decoder).loadLong4,
	opBinfloat: (*Decoder).loadBinFloat,

	opShortBinstring: (*Decoder).loadShortBinstring,
	opBinstring:      (*Decoder).loadBinstring,
	opBinunicode:     (*Decoder).loadBinUnicode,

	opMark:    (*Decoder).loadMark,
	opPop:     (*Decoder).loadPop,
	opPopMark: (*Decoder).loadPopMark,
	opDup:     (*Decoder).loadDup,

	opEmptyList:  (*Decoder).loadEmptyList,
	opList:       (*Decoder).loadList,
	opAppend:     (*Decoder).loadAppend,
	opAppends:    (*Decoder).loadAppends,
	opEmptyTuple: (*Decoder).loadEmptyTuple,
	opTuple:      (*Decoder).loadTuple,
	opTuple1:     (*Decoder).loadTuple1,
	opTuple2:     (*Decoder).loadTuple2,
	opTuple3:     (*Decoder).loadTuple3,
	opEmptyDict:  (*Decoder).loadEmptyDict,
	opDict:       (*Decoder).loadDict,
	opSetitem:    (*Decoder).loadSetItem,
	opSetitems:   (*Decoder).loadSetItems,

	opGlobal: (*Decoder).loadGlobal,
	opReduce: (*Decoder).loadReduce,

	opGet:        (*Decoder).loadGetLine,
	opBinget:     (*Decoder).loadBinGet,
	opLongBinget: (*Decoder).loadLongBinGet,
	opPut:        (*Decoder).loadPutLine,
	opBinput:     (*Decoder).loadBinPut,
	opLongBinput: (*Decoder).loadLongBinPut,
}

// Decode runs the stream to its STOP and returns the built value.
func (d *Decoder) Decode() (interface{}, error) {
	insn := 0
	for {
		op, err := d.r.ReadByte()
		if err != nil {
			if err == io.EOF && insn > 0 {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		insn++

		switch op {
		case opStop:
			return d.finish()
		case opProto:
			err = d.loadProto()
		default:
			h := opHandlers[op]
			if h == nil {
				return nil, OpcodeError{op, insn}
			}
			err = h(d)
		}

		if err != nil {
			if err == io.EOF {
				// a truncated argument is a truncated stream
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
}

var errDanglingMark = errors.New("pickle: STOP inside an open MARK")

// finish pops the result once STOP is seen.
func (d *Decoder) finish() (interface{}, error) {
	if len(d.marks) > 0 {
		return nil, errDanglingMark
	}
	return d.popTop()
}

func (d *Decoder) loadProto() error {
	v, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	if int(v) > protocol {
		return ErrInvalidPickleVersion
	}
	d.proto = int(v)
	return nil
}

// ---- stack and marks ----

func (d *Decoder) push(v interface{}) {
	d.stk = append(d.stk, v)
}

// popTop removes and returns the topmost stack value.
func (d *Decoder) popTop() (interface{}, error) {
	n := len(d.stk)
	if n == 0 {
		return nil, errStackUnderflow
	}
	v := d.stk[n-1]
	d.stk = d.stk[:n-1]
	return v, nil
}

func (d *Decoder) loadMark() error {
	d.marks = append(d.marks, len(d.stk))
	return nil
}

// closeMark pops the newest mark and hands back the values above it. The
// returned slice aliases the stack: consume it before the next push.
func (d *Decoder) closeMark() ([]interface{}, error) {
	if len(d.marks) == 0 {
		return nil, errNoMarker
	}
	at := d.marks[len(d.marks)-1]
	d.marks = d.marks[:len(d.marks)-1]
	if at > len(d.stk) {
		// something popped through the mark
		return nil, errStackUnderflow
	}
	items := d.stk[at:]
	d.stk = d.stk[:at]
	return items, nil
}

func (d *Decoder) loadPop() error {
	_, err := d.popTop()
	return err
}

func (d *Decoder) loadPopMark() error {
	_, err := d.closeMark()
	return err
}

func (d *Decoder) loadDup() error {
	n := len(d.stk)
	if n == 0 {
		return errStackUnderflow
	}
	d.push(d.stk[n-1])
	return nil
}

// ---- stream readers ----

// readLine reads through the next newline and returns the line without it.
func (d *Decoder) readLine() (string, error) {
	s, err := d.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return s[:len(s)-1], nil
}

func (d *Decoder) readFixed(buf []byte) error {
	_, err := io.ReadFull(d.r, buf)
	return err
}

func (d *Decoder) readUint32() (uint32, error) {
	var b [4]byte
	if err := d.readFixed(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// readCounted reads a payload preceded by its length, with the length
// field 1 or 4 bytes wide. The buffer grows in steps so a forged count
// cannot balloon the allocation before the stream runs dry.
func (d *Decoder) readCounted(width int) ([]byte, error) {
	var n uint32
	if width == 1 {
		c, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		n = uint32(c)
	} else {
		v, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		n = v
	}

	const step = 1 << 16
	out := []byte{}
	for uint32(len(out)) < n {
		take := n - uint32(len(out))
		if take > step {
			take = step
		}
		at := len(out)
		out = append(out, make([]byte, take)...)
		if err := d.readFixed(out[at:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ---- scalars ----

func (d *Decoder) loadNone() error {
	d.push(None{})
	return nil
}

func (d *Decoder) loadNewTrue() error {
	d.push(true)
	return nil
}

func (d *Decoder) loadNewFalse() error {
	d.push(false)
	return nil
}

// loadIntLine handles the decimal INT line, which doubles as the protocol-0
// encoding of booleans (00/01) and as this encoder's escape hatch for
// uint64 values beyond the signed range.
func (d *Decoder) loadIntLine() error {
	line, err := d.readLine()
	if err != nil {
		return err
	}
	switch line {
	case "00":
		d.push(false)
		return nil
	case "01":
		d.push(true)
		return nil
	}
	if i, err := strconv.ParseInt(line, 10, 64); err == nil {
		d.push(i)
		return nil
	}
	u, err := strconv.ParseUint(line, 10, 64)
	if err != nil {
		return fmt.Errorf("pickle: bad INT line %q", line)
	}
	d.push(u)
	return nil
}

func (d *Decoder) loadFloatLine() error {
	line, err := d.readLine()
	if err != nil {
		return err
	}
	f, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return err
	}
	d.push(f)
	return nil
}

func (d *Decoder) loadLongLine() error {
	line, err := d.readLine()
	if err != nil {
		return err
	}
	digits, ok := strings.CutSuffix(line, "L")
	if !ok {
		return fmt.Errorf("pickle: LONG line %q lacks its L suffix", line)
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return fmt.Errorf("pickle: bad LONG line %q", line)
	}
	d.push(v)
	return nil
}

func (d *Decoder) loadBinInt1() error { return d.pushBinInt(1) }
func (d *Decoder) loadBinInt2() error { return d.pushBinInt(2) }
func (d *Decoder) loadBinInt4() error { return d.pushBinInt(4) }

// pushBinInt reads a little-endian integer of the given width. Only the
// 4-byte form is signed.
func (d *Decoder) pushBinInt(width int) error {
	var b [4]byte
	if err := d.readFixed(b[:width]); err != nil {
		return err
	}
	var v int64
	switch width {
	case 1:
		v = int64(b[0])
	case 2:
		v = int64(binary.LittleEndian.Uint16(b[:2]))
	case 4:
		v = int64(int32(binary.LittleEndian.Uint32(b[:])))
	}
	d.push(v)
	return nil
}

func (d *Decoder) loadLong1() error { return d.pushLong(1) }
func (d *Decoder) loadLong4() error { return d.pushLong(4) }

func (d *Decoder) pushLong(width int) error {
	data, err := d.readCounted(width)
	if err != nil {
		return err
	}
	d.push(bigFromLE(data))
	return nil
}

// bigFromLE rebuilds a big integer from its little-endian two's-complement
// encoding, the inverse of bigIntLEBytes.
func bigFromLE(data []byte) *big.Int {
	v := new(big.Int)
	if len(data) == 0 {
		return v
	}

	be := make([]byte, len(data))
	for i, c := range data {
		be[len(data)-1-i] = c
	}
	v.SetBytes(be)

	if be[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(8*len(data))))
	}
	return v
}

func (d *Decoder) loadBinFloat() error {
	var b [8]byte
	if err := d.readFixed(b[:]); err != nil {
		return err
	}
	d.push(math.Float64frombits(binary.BigEndian.Uint64(b[:])))
	return nil
}

// ---- strings ----

func (d *Decoder) loadShortBinstring() error { return d.pushCountedString(1) }
func (d *Decoder) loadBinstring() error      { return d.pushCountedString(4) }
func (d *Decoder) loadBinUnicode() error     { return d.pushCountedString(4) }

func (d *Decoder) pushCountedString(width int) error {
	data, err := d.readCounted(width)
	if err != nil {
		return err
	}
	d.push(string(data))
	return nil
}

// ---- containers ----

func (d *Decoder) loadEmptyList() error {
	d.push([]interface{}{})
	return nil
}

func (d *Decoder) loadList() error {
	items, err := d.closeMark()
	if err != nil {
		return err
	}
	d.push(append([]interface{}{}, items...))
	return nil
}

func (d *Decoder) loadAppend() error {
	v, err := d.popTop()
	if err != nil {
		return err
	}
	n := len(d.stk)
	if n == 0 {
		return errStackUnderflow
	}
	l, ok := d.stk[n-1].([]interface{})
	if !ok {
		return fmt.Errorf("pickle: APPEND needs a list below, found %T", d.stk[n-1])
	}
	d.stk[n-1] = append(l, v)
	return nil
}

func (d *Decoder) loadAppends() error {
	items, err := d.closeMark()
	if err != nil {
		return err
	}
	n := len(d.stk)
	if n == 0 {
		return errStackUnderflow
	}
	l, ok := d.stk[n-1].([]interface{})
	if !ok {
		return fmt.Errorf("pickle: APPENDS needs a list below, found %T", d.stk[n-1])
	}
	d.stk[n-1] = append(l, items...)
	return nil
}

func (d *Decoder) loadEmptyTuple() error {
	d.push(Tuple{})
	return nil
}

func (d *Decoder) loadTuple() error {
	items, err := d.closeMark()
	if err != nil {
		return err
	}
	d.push(append(Tuple{}, items...))
	return nil
}

func (d *Decoder) loadTuple1() error { return d.tupleFromTop(1) }
func (d *Decoder) loadTuple2() error { return d.tupleFromTop(2) }
func (d *Decoder) loadTuple3() error { return d.tupleFromTop(3) }

func (d *Decoder) tupleFromTop(n int) error {
	if len(d.stk) < n {
		return errStackUnderflow
	}
	at := len(d.stk) - n
	t := append(Tuple{}, d.stk[at:]...)
	d.stk = append(d.stk[:at], t)
	return nil
}

func (d *Decoder) loadEmptyDict() error {
	d.push(map[interface{}]interface{}{})
	return nil
}

func (d *Decoder) loadDict() error {
	items, err := d.closeMark()
	if err != nil {
		return err
	}
	m := make(map[interface{}]interface{}, len(items)/2)
	if err := fillDict(m, items); err != nil {
		return err
	}
	d.push(m)
	return nil
}

func (d *Decoder) loadSetItem() error {
	v, err := d.popTop()
	if err != nil {
		return err
	}
	k, err := d.popTop()
	if err != nil {
		return err
	}
	n := len(d.stk)
	if n == 0 {
		return errStackUnderflow
	}
	m, ok := d.stk[n-1].(map[interface{}]interface{})
	if !ok {
		return fmt.Errorf("pickle: SETITEM needs a dict below, found %T", d.stk[n-1])
	}
	return dictAssign(m, k, v)
}

func (d *Decoder) loadSetItems() error {
	items, err := d.closeMark()
	if err != nil {
		return err
	}
	n := len(d.stk)
	if n == 0 {
		return errStackUnderflow
	}
	m, ok := d.stk[n-1].(map[interface{}]interface{})
	if !ok {
		return fmt.Errorf("pickle: SETITEMS needs a dict below, found %T", d.stk[n-1])
	}
	return fillDict(m, items)
}

// fillDict consumes alternating key/value items.
func fillDict(m map[interface{}]interface{}, items []interface{}) error {
	if len(items)%2 != 0 {
		return errors.New("pickle: odd number of dict items")
	}
	for i := 0; i < len(items); i += 2 {
		if err := dictAssign(m, items[i], items[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// dictAssign stores m[k] = v, trapping the runtime panic an unhashable
// dynamic key type raises.
func dictAssign(m map[interface{}]interface{}, k, v interface{}) (err error) {
	defer func() {
		if recover() != nil {
			err = fmt.Errorf("pickle: unhashable dict key of type %T", k)
		}
	}()
	m[k] = v
	return nil
}

// setAdd is dictAssign for set elements.
func setAdd(s Set, elem interface{}) (err error) {
	defer func() {
		if recover() != nil {
			err = fmt.Errorf("pickle: unhashable set element of type %T", elem)
		}
	}()
	s.Add(elem)
	return nil
}

// ---- memo ----

func (d *Decoder) memoFetch(idx int) error {
	v, ok := d.memo[idx]
	if !ok {
		return fmt.Errorf("pickle: no memo entry %d", idx)
	}
	d.push(v)
	return nil
}

func (d *Decoder) memoStore(idx int) error {
	if len(d.stk) == 0 {
		return errStackUnderflow
	}
	d.memo[idx] = d.stk[len(d.stk)-1]
	return nil
}

func (d *Decoder) loadGetLine() error {
	idx, err := d.readIndexLine()
	if err != nil {
		return err
	}
	return d.memoFetch(idx)
}

func (d *Decoder) loadPutLine() error {
	idx, err := d.readIndexLine()
	if err != nil {
		return err
	}
	return d.memoStore(idx)
}

func (d *Decoder) readIndexLine() (int, error) {
	line, err := d.readLine()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(line)
}

func (d *Decoder) loadBinGet() error {
	b, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	return d.memoFetch(int(b))
}

func (d *Decoder) loadLongBinGet() error {
	idx, err := d.readUint32()
	if err != nil {
		return err
	}
	return d.memoFetch(int(idx))
}

func (d *Decoder) loadBinPut() error {
	b, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	return d.memoStore(int(b))
}

func (d *Decoder) loadLongBinPut() error {
	idx, err := d.readUint32()
	if err != nil {
		return err
	}
	return d.memoStore(int(idx))
}

// ---- classes and calls ----

func (d *Decoder) loadGlobal() error {
	module, err := d.readLine()
	if err != nil {
		return err
	}
	name, err := d.readLine()
	if err != nil {
		return err
	}
	d.push(Class{Module: module, Name: name})
	return nil
}

func (d *Decoder) loadReduce() error {
	xargs, err := d.popTop()
	if err != nil {
		return err
	}
	xcallable, err := d.popTop()
	if err != nil {
		return err
	}
	args, ok := xargs.(Tuple)
	if !ok {
		return fmt.Errorf("pickle: REDUCE args are %T, not a tuple", xargs)
	}
	callable, ok := xcallable.(Class)
	if !ok {
		return fmt.Errorf("pickle: REDUCE callable is %T, not a class", xcallable)
	}

	err = d.handleCall(callable, args)
	if err == errCallNotHandled {
		// unknown constructor: keep it symbolic
		d.push(Call{Callable: callable, Args: args})
		err = nil
	}
	return err
}

// errCallNotHandled is the internal signal that handleCall does not
// recognize a constructor.
var errCallNotHandled = errors.New("handleCall: call not handled")

// handleCall folds the constructor calls Encoder emits back into native Go
// values. Builtins are matched under both spellings since Python 3 keeps
// writing __builtin__ at protocol 2 for compatibility.
func (d *Decoder) handleCall(class Class, argv Tuple) error {
	switch class {
	case Class{"datetime", "datetime"}:
		return d.callDatetime(argv)
	case Class{"datetime", "timedelta"}:
		return d.callTimedelta(argv)
	case Class{"decimal", "Decimal"}:
		return d.callDecimal(argv)
	case Class{"array", "array"}:
		return d.callArray(argv)
	case Class{"__builtin__", "set"}, Class{"builtins", "set"}:
		return d.callSet(argv)
	case Class{"__builtin__", "bytearray"}, Class{"builtins", "bytearray"}:
		return d.callBytearray(argv)
	case Class{"_codecs", "encode"}:
		return d.callCodecsEncode(argv)
	}
	return errCallNotHandled
}

func (d *Decoder) callDatetime(argv Tuple) error {
	if len(argv) != 7 {
		return fmt.Errorf("datetime: want 7 args; got %d", len(argv))
	}
	var f [7]int64
	for i, a := range argv {
		v, err := AsInt64(a)
		if err != nil {
			return fmt.Errorf("datetime: arg %d: %s", i, err)
		}
		f[i] = v
	}
	d.push(time.Date(int(f[0]), time.Month(f[1]), int(f[2]),
		int(f[3]), int(f[4]), int(f[5]), int(f[6])*1000, time.UTC))
	return nil
}

func (d *Decoder) callTimedelta(argv Tuple) error {
	if len(argv) != 3 {
		return fmt.Errorf("timedelta: want 3 args; got %d", len(argv))
	}
	var f [3]int64
	for i, a := range argv {
		v, err := AsInt64(a)
		if err != nil {
			return fmt.Errorf("timedelta: arg %d: %s", i, err)
		}
		f[i] = v
	}
	d.push(time.Duration(f[0])*24*time.Hour +
		time.Duration(f[1])*time.Second +
		time.Duration(f[2])*time.Microsecond)
	return nil
}

func (d *Decoder) callDecimal(argv Tuple) error {
	if len(argv) != 1 {
		return fmt.Errorf("Decimal: want 1 arg; got %d", len(argv))
	}
	text, err := AsString(argv[0])
	if err != nil {
		return fmt.Errorf("Decimal: %s", err)
	}
	v, err := decimal.NewFromString(text)
	if err != nil {
		return fmt.Errorf("Decimal: %s", err)
	}
	d.push(v)
	return nil
}

func (d *Decoder) callArray(argv Tuple) error {
	if len(argv) != 2 {
		return fmt.Errorf("array: want 2 args; got %d", len(argv))
	}
	tc, err := AsString(argv[0])
	if err != nil {
		return fmt.Errorf("array: %s", err)
	}
	items, ok := argv[1].([]interface{})
	if !ok {
		return fmt.Errorf("array: want item list; got %T", argv[1])
	}
	arr, err := buildArray(tc, items)
	if err != nil {
		return err
	}
	d.push(arr)
	return nil
}

func (d *Decoder) callSet(argv Tuple) error {
	if len(argv) != 1 {
		return errCallNotHandled
	}
	elems, ok := argv[0].([]interface{})
	if !ok {
		return fmt.Errorf("set: argument is %T, not a list", argv[0])
	}
	s := make(Set, len(elems))
	for _, el := range elems {
		if err := setAdd(s, el); err != nil {
			return err
		}
	}
	d.push(s)
	return nil
}

func (d *Decoder) callBytearray(argv Tuple) error {
	switch {
	case len(argv) == 1:
		// bytearray(bytes) — the Python 3 form, the bytes themselves
		// arriving through _codecs.encode
		raw, err := AsBytes(argv[0])
		if err != nil {
			return fmt.Errorf("bytearray: %s", err)
		}
		d.push([]byte(raw))
		return nil

	case len(argv) == 2 && argv[1] == "latin-1":
		// bytearray(text, "latin-1") — the form Encoder emits
		text, err := AsString(argv[0])
		if err != nil {
			return fmt.Errorf("bytearray: %s", err)
		}
		data, err := latin1Decode(text)
		if err != nil {
			return fmt.Errorf("bytearray: %s", err)
		}
		d.push(data)
		return nil
	}
	return errCallNotHandled
}

func (d *Decoder) callCodecsEncode(argv Tuple) error {
	// protocol 2 has no bytes opcodes; Python 3 wraps bytes as
	// _codecs.encode(data.decode('latin1'), 'latin1')
	if len(argv) != 2 || argv[1] != "latin1" {
		return errCallNotHandled
	}
	text, err := AsString(argv[0])
	if err != nil {
		return fmt.Errorf("_codecs.encode: %s", err)
	}
	data, err := latin1Decode(text)
	if err != nil {
		return fmt.Errorf("_codecs.encode: %s", err)
	}
	d.push(Bytes(data))
	return nil
}

// latin1Decode recovers raw bytes from a latin-1-as-unicode string, the
// protocol-2 stand-in for binary data.
func latin1Decode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			return nil, fmt.Errorf("latin-1: codepoint %q out of range", r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

// buildArray reconstructs an array.array(typecode, items) as a typed slice.
func buildArray(typecode string, items []interface{}) (interface{}, error) {
	switch typecode {
	case "b":
		return convertArray(items, func(v int64) int8 { return int8(v) })
	case "h":
		return convertArray(items, func(v int64) int16 { return int16(v) })
	case "H":
		return convertArray(items, func(v int64) uint16 { return uint16(v) })
	case "i":
		return convertArray(items, func(v int64) int32 { return int32(v) })
	case "I":
		return convertArray(items, func(v int64) uint32 { return uint32(v) })
	case "l":
		return convertArray(items, func(v int64) int64 { return v })
	case "L":
		return convertUintArray(items)
	case "f":
		return convertFloatArray(items, func(v float64) float32 { return float32(v) })
	case "d":
		return convertFloatArray(items, func(v float64) float64 { return v })
	}
	return nil, fmt.Errorf("array: unknown typecode %q", typecode)
}

func convertArray[T any](items []interface{}, conv func(int64) T) ([]T, error) {
	out := make([]T, len(items))
	for i, it := range items {
		v, err := AsInt64(it)
		if err != nil {
			return nil, fmt.Errorf("array: item %d: %s", i, err)
		}
		out[i] = conv(v)
	}
	return out, nil
}

func convertUintArray(items []interface{}) ([]uint64, error) {
	out := make([]uint64, len(items))
	for i, it := range items {
		v, err := AsUint64(it)
		if err != nil {
			return nil, fmt.Errorf("array: item %d: %s", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func convertFloatArray[T any](items []interface{}, conv func(float64) T) ([]T, error) {
	out := make([]T, len(items))
	for i, it := range items {
		v, ok := it.(float64)
		if !ok {
			return nil, fmt.Errorf("array: item %d: expect float; got %T", i, it)
		}
		out[i] = conv(v)
	}
	return out, nil
}

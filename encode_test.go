package pyrolite

import (
	"bytes"
	"errors"
	"io"
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type foo struct {
	Foo string
	Bar int32
}

type server struct {
	Host   string `pickle:"host"`
	Port   int    `pickle:"port"`
	Secret string `pickle:"-"`
	token  string
}

type account struct {
	ID int
}

func (a account) PickleFields() map[string]interface{} {
	return map[string]interface{}{"id": a.ID}
}

func (a account) PickleClassName() string { return "bank.Account" }

type weekday int

func (d weekday) String() string {
	return [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}[d]
}

const pkg = "github.com/tool-recommender-bot/Pyrolite"

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		output interface{} // nil means same as input
	}{
		{"nil", nil, None{}},
		{"none", None{}, nil},
		{"bools", []interface{}{false, true}, nil},
		{"small ints",
			[]interface{}{int64(0), int64(1), int64(258), int64(65537), int64(-3)},
			nil},
		{"int kinds",
			[]interface{}{int8(-7), uint8(200), int16(-1000), uint(70000), int32(5)},
			[]interface{}{int64(-7), int64(200), int64(-1000), int64(70000), int64(5)}},
		{"big uint", uint64(math.MaxUint64), nil},
		{"long", big.NewInt(-123456789012345678), nil},
		{"huge long", new(big.Int).Lsh(big.NewInt(1), 100), nil},
		{"floats", []interface{}{0.0, -1.25, 1e300}, nil},
		{"string", "héllo", nil},
		{"char", Char('ř'), "ř"},
		{"bytes", []byte{0x00, 0x41, 0xff}, nil},
		{"byte array", [2]byte{1, 2}, []byte{1, 2}},
		{"int16 array", []int16{-1, 2, 3}, nil},
		{"uint32 array", []uint32{0, 4000000000}, nil},
		{"float array", []float64{0.5, -2.0}, nil},
		{"int array", []int{10, 20}, []int64{10, 20}},
		{"bool array", []bool{true, false}, Tuple{true, false}},
		{"tuple", Tuple{int64(1), "a", None{}}, nil},
		{"go array", [2]string{"a", "b"}, Tuple{"a", "b"}},
		{"empty tuple", Tuple{}, nil},
		{"list", []interface{}{int64(1), "two", 3.0}, nil},
		{"nested list",
			[]interface{}{[]interface{}{int64(1)}, []interface{}{}},
			nil},
		{"dict",
			map[interface{}]interface{}{"a": int64(1), int64(2): "b"},
			nil},
		{"string dict", map[string]string{"k": "v"}, map[interface{}]interface{}{"k": "v"}},
		{"set", NewSet(int64(1), "x"), nil},
		{"datetime",
			time.Date(2014, 11, 5, 16, 12, 30, 123456000, time.UTC),
			nil},
		{"timedelta", 49*time.Hour + 30*time.Minute + 10*time.Second + 500*time.Microsecond, nil},
		{"negative timedelta", -2 * time.Second, nil},
		{"decimal", decimal.RequireFromString("-12.345"), nil},
		{"enum", weekday(1), "Tue"},
		{"struct",
			[]foo{{"Qux", 4}},
			[]interface{}{map[interface{}]interface{}{
				"Foo": "Qux", "Bar": int64(4), "__class__": pkg + ".foo",
			}}},
		{"tagged struct",
			server{Host: "h", Port: 80, Secret: "s", token: "t"},
			map[interface{}]interface{}{
				"host": "h", "port": int64(80), "__class__": pkg + ".server",
			}},
		{"fielder struct",
			account{ID: 7},
			map[interface{}]interface{}{
				"id": int64(7), "__class__": "bank.Account",
			}},
		{"anonymous struct",
			struct{ X int }{X: 1},
			map[interface{}]interface{}{"X": int64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &bytes.Buffer{}
			e := NewEncoder(p)
			err := e.Encode(tt.input)
			if err != nil {
				t.Fatalf("encode error: %v", err)
			}

			output, err := NewDecoder(bytes.NewReader(p.Bytes())).Decode()
			if err != nil {
				t.Fatalf("decode error: %v", err)
			}

			want := tt.output
			if want == nil {
				want = tt.input
			}

			if !reflect.DeepEqual(want, output) {
				t.Errorf("got\n%#v\nexpected\n%#v", output, want)
			}

			// encoding must propagate write errors from the sink no matter
			// where they strike
			for l := int64(p.Len()) - 1; l >= 0; l-- {
				e := NewEncoder(LimitWriter(io.Discard, l))
				err = e.Encode(tt.input)
				if err != io.EOF {
					t.Errorf("encoder did not handle write error @%v: got %#v", l, err)
				}
			}
		})
	}
}

func TestDumps(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		data  string
	}{
		{"none", nil, "\x80\x02N."},
		{"true", true, "\x80\x02\x88."},
		{"false", false, "\x80\x02\x89."},
		{"int 127", 127, "\x80\x02K\x7f."},
		{"string", "AB", "\x80\x02X\x02\x00\x00\x00ABq\x00."},
		{"list", []interface{}{1, 2, 3}, "\x80\x02]q\x00(K\x01K\x02K\x03e."},
		{"float", 1.5, "\x80\x02G\x3f\xf8\x00\x00\x00\x00\x00\x00."},
		{"empty tuple", Tuple{}, "\x80\x02)."},
		{"empty list", []interface{}{}, "\x80\x02]q\x00(e."},
		{"empty dict", map[interface{}]interface{}{}, "\x80\x02}q\x00(u."},
		{"bytes", []byte{0x00, 0xff},
			"\x80\x02c__builtin__\nbytearray\n" +
				"X\x03\x00\x00\x00\x00\xc3\xbfq\x00" +
				"X\x07\x00\x00\x00latin-1q\x01\x86Rq\x02."},
		{"int16 array", []int16{1, 2},
			"\x80\x02carray\narray\nU\x01h](K\x01K\x02e\x86Rq\x00."},
		{"set", NewSet(5), "\x80\x02c__builtin__\nset\n](K\x05e\x85Rq\x00."},
		{"datetime", time.Date(2014, 3, 4, 5, 6, 7, 8000, time.UTC),
			"\x80\x02cdatetime\ndatetime\n(M\xde\x07K\x03K\x04K\x05K\x06K\x07K\x08tRq\x00."},
		{"timedelta", 49*time.Hour + 30*time.Minute + 10*time.Second + 500*time.Microsecond,
			"\x80\x02cdatetime\ntimedelta\nK\x02M\x22\x15M\xf4\x01\x87Rq\x00."},
		{"decimal", decimal.RequireFromString("1.5"),
			"\x80\x02cdecimal\nDecimal\nX\x03\x00\x00\x001.5q\x00\x85Rq\x01."},
		{"char", Char('A'), "\x80\x02X\x01\x00\x00\x00Aq\x00."},
		{"enum", weekday(1), "\x80\x02X\x03\x00\x00\x00Tueq\x00."},
		{"long zero", big.NewInt(0), "\x80\x02\x8a\x00."},
		{"long -1", big.NewInt(-1), "\x80\x02\x8a\x01\xff."},
		{"long 255", big.NewInt(255), "\x80\x02\x8a\x02\xff\x00."},
		{"shared string",
			[]interface{}{"hello", "hello"},
			"\x80\x02]q\x00(X\x05\x00\x00\x00helloq\x01h\x01e."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Dumps(tt.input)
			if err != nil {
				t.Fatalf("Dumps error: %v", err)
			}
			if string(data) != tt.data {
				t.Errorf("got %q\nexpected %q", data, tt.data)
			}
		})
	}
}

// The narrowest representation must be picked for every integer.
func TestNarrowestInt(t *testing.T) {
	tests := []struct {
		input interface{}
		data  string
	}{
		{0, "\x80\x02K\x00."},
		{255, "\x80\x02K\xff."},
		{256, "\x80\x02M\x00\x01."},
		{65535, "\x80\x02M\xff\xff."},
		{65536, "\x80\x02J\x00\x00\x01\x00."},
		{-1, "\x80\x02J\xff\xff\xff\xff."},
		{math.MinInt32, "\x80\x02J\x00\x00\x00\x80."},
		{math.MaxInt32, "\x80\x02J\xff\xff\xff\x7f."},
		{int64(math.MaxInt32) + 1, "\x80\x02I2147483648\n."},
		{int64(math.MinInt32) - 1, "\x80\x02I-2147483649\n."},
		{int64(math.MaxInt64), "\x80\x02I9223372036854775807\n."},
		{uint64(math.MaxUint64), "\x80\x02I18446744073709551615\n."},
	}

	for _, tt := range tests {
		data, err := Dumps(tt.input)
		if err != nil {
			t.Fatalf("%v: Dumps error: %v", tt.input, err)
		}
		if string(data) != tt.data {
			t.Errorf("%v: got %q expected %q", tt.input, data, tt.data)
		}
	}
}

func TestSelfReferentialList(t *testing.T) {
	l := make([]interface{}, 1)
	l[0] = l

	data, err := Dumps(l)
	if err != nil {
		t.Fatalf("Dumps error: %v", err)
	}
	want := "\x80\x02]q\x00(h\x00e."
	if string(data) != want {
		t.Errorf("got %q expected %q", data, want)
	}
}

func TestRecursiveTuple(t *testing.T) {
	tup := make(Tuple, 1)
	tup[0] = tup

	_, err := Dumps(tup)
	if !errors.Is(err, ErrRecursiveTuple) {
		t.Errorf("got %v expected ErrRecursiveTuple", err)
	}
}

func TestRecursionTooDeep(t *testing.T) {
	v := []interface{}{}
	for i := 0; i < maxDepth+10; i++ {
		v = []interface{}{v}
	}

	_, err := Dumps(v)
	if !errors.Is(err, ErrRecursionTooDeep) {
		t.Errorf("got %v expected ErrRecursionTooDeep", err)
	}
}

func TestUnpicklable(t *testing.T) {
	for _, input := range []interface{}{
		func() {},
		make(chan int),
		struct{ x int }{}, // no readable fields
	} {
		_, err := Dumps(input)
		var ue *UnpicklableError
		if !errors.As(err, &ue) {
			t.Errorf("%T: got %v expected UnpicklableError", input, err)
		}
	}
}

func TestNoMemo(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoderWithConfig(&buf, &EncoderConfig{NoMemo: true})
	if err := e.Encode("AB"); err != nil {
		t.Fatalf("encode error: %v", err)
	}
	want := "\x80\x02X\x02\x00\x00\x00AB."
	if buf.String() != want {
		t.Errorf("got %q expected %q", buf.String(), want)
	}

	// without the memo a cyclic list cannot terminate other than by the
	// recursion bound
	l := make([]interface{}, 1)
	l[0] = l
	buf.Reset()
	err := NewEncoderWithConfig(&buf, &EncoderConfig{NoMemo: true}).Encode(l)
	if !errors.Is(err, ErrRecursionTooDeep) {
		t.Errorf("got %v expected ErrRecursionTooDeep", err)
	}
}

func TestFieldError(t *testing.T) {
	_, err := Dumps(panicky{})
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v expected FieldError", err)
	}
	if fe.Field != "PickleFields" {
		t.Errorf("Field = %q", fe.Field)
	}
}

type panicky struct{}

func (panicky) PickleFields() map[string]interface{} { panic("no fields today") }

// like io.LimitedReader but for writes
// XXX it would be good to have it in stdlib
type LimitedWriter struct {
	W io.Writer
	N int64
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.N <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.N {
		p = p[0:l.N]
	}
	n, err = l.W.Write(p)
	l.N -= int64(n)
	return
}

func LimitWriter(w io.Writer, n int64) io.Writer { return &LimitedWriter{w, n} }

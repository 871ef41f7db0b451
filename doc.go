// Package pyrolite encodes Go data structures into Python's pickle format
// and decodes them back.
//
// The encoder speaks pickle protocol 2 — the newest protocol understood by
// both Python 2.3+ and Python 3 — so a stream produced here can be read by
// any standard pickle.loads. Use Dumps or an Encoder:
//
//	data, err := pyrolite.Dumps(obj)
//
//	e := pyrolite.NewEncoder(w)
//	err := e.Encode(obj)
//
// Use Loads or a Decoder for the reverse direction:
//
//	obj, err := pyrolite.Loads(data)
//
// The following table summarizes the mapping of types in between Go and
// Python:
//
//	Go                 Python
//	--                 ------
//
//	nil, None       →  None
//	bool            ↔  bool
//	int, intX       →  int            (int ← int64)
//	uintX           →  int
//	uint64 > 2⁶³-1  →  int            (decoded back as uint64)
//	*big.Int        ↔  long
//	floatX          →  float          (float ← float64)
//	string          ↔  unicode
//	Char            →  unicode        (one codepoint)
//	[]byte          ↔  bytearray
//	[]intX, []floatX ↔ array.array
//	Tuple, [N]T     ↔  tuple          (tuple ← Tuple)
//	[]T             ↔  list           (list ← []interface{})
//	map             ↔  dict           (dict ← map[interface{}]interface{})
//	Set             ↔  set
//	time.Time       ↔  datetime.datetime
//	time.Duration   ↔  datetime.timedelta
//	decimal.Decimal ↔  decimal.Decimal
//	struct          →  dict with __class__
//
// Named integer types that implement fmt.Stringer pickle as their label;
// wrap them with a registered pickler if the consumer needs more than the
// text.
//
// Struct values pickle as a dict of their exported fields plus a __class__
// key holding the fully-qualified type name. A `pickle:"name"` field tag
// renames a field, `pickle:"-"` skips it, and a type can take over the
// selection entirely by implementing Fielder (and optionally ClassNamer).
//
// Custom encodings are installed with Register / a PicklerRegistry; a
// registered pickler wins over the built-in rules for its type, except for
// None, bools, integers, floats, Char, Bytes, Tuple and native slices and
// arrays, which are classified before the registry is consulted.
//
// Repeated and shared values are deduplicated through the pickle memo, so a
// list that contains itself encodes (and costs) a single reference. The
// memo keys strings and other scalar-like values by content and containers
// by identity; EncoderConfig.NoMemo turns all of it off.
//
// Python classes and calls the decoder does not recognize are surfaced
// symbolically as Class and Call values, so decoding untrusted pickles
// never executes anything.
package pyrolite

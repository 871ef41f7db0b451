package pyrolite

// Opcode bytes for pickle protocols 0-2 — everything this codec emits or
// accepts. The values are fixed by the wire format; the pickletools module
// in CPython is the authoritative catalogue.
const (
	// stream framing
	opProto byte = '\x80' // protocol version announcement; 1-byte argument
	opStop  byte = '.'    // end of stream; the result is the stack top

	// stack and mark management
	opMark    byte = '(' // open a mark, remembering the stack depth
	opPop     byte = '0' // drop the stack top
	opPopMark byte = '1' // drop everything above the newest mark
	opDup     byte = '2' // repeat the stack top

	// scalars
	opNone     byte = 'N'    // push None
	opNewtrue  byte = '\x88' // push True
	opNewfalse byte = '\x89' // push False
	opInt      byte = 'I'    // integer (or 00/01 bool) as a decimal text line
	opBinint1  byte = 'K'    // unsigned integer, 1 byte
	opBinint2  byte = 'M'    // unsigned integer, 2 bytes little-endian
	opBinint   byte = 'J'    // signed integer, 4 bytes little-endian
	opLong     byte = 'L'    // big integer as a decimal line with L suffix
	opLong1    byte = '\x8a' // big integer, 1-byte count + LE two's complement
	opLong4    byte = '\x8b' // same with a 4-byte count
	opFloat    byte = 'F'    // float as a decimal text line
	opBinfloat byte = 'G'    // float, 8 bytes big-endian IEEE-754

	// strings
	opShortBinstring byte = 'U' // byte string, 1-byte count
	opBinstring      byte = 'T' // byte string, 4-byte count
	opBinunicode     byte = 'X' // UTF-8 string, 4-byte count

	// containers
	opEmptyList  byte = ']'    // push an empty list
	opList       byte = 'l'    // list of everything above the mark
	opAppend     byte = 'a'    // move the stack top into the list below it
	opAppends    byte = 'e'    // move everything above the mark into the list below
	opEmptyTuple byte = ')'    // push the empty tuple
	opTuple      byte = 't'    // tuple of everything above the mark
	opTuple1     byte = '\x85' // tuple of the top value
	opTuple2     byte = '\x86' // tuple of the top two values
	opTuple3     byte = '\x87' // tuple of the top three values
	opEmptyDict  byte = '}'    // push an empty dict
	opDict       byte = 'd'    // dict of the key/value pairs above the mark
	opSetitem    byte = 's'    // store one key/value pair into the dict below
	opSetitems   byte = 'u'    // store the pairs above the mark into the dict below

	// class instantiation
	opGlobal byte = 'c' // push a class named by two text lines: module, name
	opReduce byte = 'R' // call class(args), both taken from the stack

	// memo
	opGet        byte = 'g' // fetch a memo entry; index as a decimal line
	opBinget     byte = 'h' // fetch; 1-byte index
	opLongBinget byte = 'j' // fetch; 4-byte little-endian index
	opPut        byte = 'p' // store the stack top; index as a decimal line
	opBinput     byte = 'q' // store; 1-byte index
	opLongBinput byte = 'r' // store; 4-byte little-endian index
)

// protocol is the pickle protocol version the encoder speaks.
//
// Protocol 2 is the newest protocol understood by both Python2 and Python3.
const protocol = 2

// GLOBAL payloads for the constructor calls the encoder emits.
//
// Module and name are separated and terminated by \n. The builtins module is
// spelled the Python2 way so that both Python lines resolve it (Python3
// aliases __builtin__ pickles through its compatibility machinery).
const (
	globalDatetime  = "datetime\ndatetime\n"
	globalTimedelta = "datetime\ntimedelta\n"
	globalDecimal   = "decimal\nDecimal\n"
	globalBytearray = "__builtin__\nbytearray\n"
	globalSet       = "__builtin__\nset\n"
	globalArray     = "array\narray\n"
)

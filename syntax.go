package certdata

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// DefaultMaxValueSize bounds a single decoded token, string or binary block.
const DefaultMaxValueSize = 1 << 20

const beginData = "BEGINDATA"

// scanMode selects the production a scanner recognizes.
type scanMode uint8

const (
	modeBeginData scanMode = iota
	modeAttribute
)

// scanState is the continuation of the production in progress. Feeding the
// scanner more bytes resumes from it; no byte is ever examined twice.
type scanState uint8

const (
	stJunk        scanState = iota // blank and comment lines before a construct
	stJunkComment                  // comment inside leading junk
	stJunkCR                       // CR inside leading junk, LF required
	stBeginToken                   // token that must read BEGINDATA
	stKey                          // attribute key
	stKeySpace                     // spaces between key and type
	stType                         // attribute type token
	stValueSpace                   // spaces between type and value token
	stValue                        // value token
	stStringSpace                  // spaces between UTF8 and the opening quote
	stString                       // quoted string body
	stStringEsc                    // after a backslash in a string, 'x' required
	stStringHex1                   // first hex digit of \xHH
	stStringHex2                   // second hex digit of \xHH
	stEndl                         // line end: spaces, comment, CR, LF
	stEndlComment                  // comment inside a line end
	stEndlCR                       // CR inside a line end, LF required
	stBlock                        // MULTILINE_OCTAL body
	stBlockComment                 // comment inside the body
	stBlockCR                      // CR inside the body, LF required
	stOctal1                       // first digit of \OOO, 0-3
	stOctal2                       // second digit of \OOO
	stOctal3                       // third digit of \OOO
	stEnd                          // the END line closing a block
	stDone
)

// scanner is an incremental recognizer for the begindata and attribute
// productions. Its position survives reset so one scanner can walk a whole
// stream, one production at a time.
type scanner struct {
	mode     scanMode
	state    scanState
	after    scanState // state entered once the pending line end completes
	pos      Position  // position of the next byte to be fed
	mark     Position  // start of the BEGINDATA token or quoted string value
	escMark  Position  // backslash of the escape being read
	maxValue int

	tok    []byte // token being read
	val    []byte // decoded string or binary payload
	key    string
	typ    string
	esc    byte // partially decoded escape
	endLen int  // bytes of "END" matched so far
	value  Value
}

func newScanner(mode scanMode, maxValue int) *scanner {
	if maxValue <= 0 {
		maxValue = DefaultMaxValueSize
	}
	s := &scanner{maxValue: maxValue, pos: Position{Line: 1, Column: 1}}
	s.reset(mode)
	return s
}

// reset prepares the scanner for another production starting at the
// current position.
func (s *scanner) reset(mode scanMode) {
	s.mode = mode
	s.state = stJunk
	s.after = stDone
	s.tok = s.tok[:0]
	s.val = s.val[:0]
	s.key, s.typ = "", ""
	s.esc, s.endLen = 0, 0
	s.value = nil
}

// attr returns the attribute recognized by the last completed production.
func (s *scanner) attr() Attr {
	return Attr{Key: s.key, Value: s.value}
}

// feed advances the scanner over b. It returns the number of bytes consumed
// and whether the production completed; on completion the bytes after the
// terminating line feed are left unconsumed. When b runs out first, every
// byte has been consumed and the scanner waits for more input.
func (s *scanner) feed(b []byte) (int, bool, error) {
	n := 0
	for n < len(b) {
		c := b[n]
		consumed, err := s.step(c)
		if err != nil {
			return n, false, err
		}
		if consumed {
			s.advance(c)
			n++
		}
		if s.state == stDone {
			return n, true, nil
		}
	}
	return n, false, nil
}

// finish is called when the source is exhausted. It returns io.EOF when the
// scanner stopped between constructs and a ParseError otherwise.
func (s *scanner) finish() error {
	if s.mode == modeBeginData {
		return s.errorf("missing %s line", beginData)
	}
	switch s.state {
	case stJunk, stJunkComment, stJunkCR:
		return io.EOF
	default:
		return s.errorf("unexpected end of input")
	}
}

func (s *scanner) advance(c byte) {
	s.pos.Offset++
	if c == '\n' {
		s.pos.Line++
		s.pos.Column = 1
	} else {
		s.pos.Column++
	}
}

func (s *scanner) errorf(format string, args ...any) error {
	return s.errorAt(s.pos, format, args...)
}

func (s *scanner) errorAt(p Position, format string, args ...any) error {
	return &ParseError{Position: p, Reason: fmt.Sprintf(format, args...)}
}

func (s *scanner) pushTok(c byte) error {
	if len(s.tok) >= s.maxValue {
		return s.errorf("token exceeds %d bytes", s.maxValue)
	}
	s.tok = append(s.tok, c)
	return nil
}

func (s *scanner) pushVal(c byte) error {
	if len(s.val) >= s.maxValue {
		return s.errorf("value exceeds %d bytes", s.maxValue)
	}
	s.val = append(s.val, c)
	return nil
}

// lineEnd enters the line-end production; next is entered after its LF.
func (s *scanner) lineEnd(next scanState) {
	s.state = stEndl
	s.after = next
}

// step handles one byte. consumed is false when the byte must be
// re-dispatched in the new state.
func (s *scanner) step(c byte) (bool, error) {
	switch s.state {
	case stJunk:
		switch {
		case isSpace(c), c == '\n':
			return true, nil
		case c == '#':
			s.state = stJunkComment
			return true, nil
		case c == '\r':
			s.state = stJunkCR
			return true, nil
		case isTokenByte(c):
			s.mark = s.pos
			if s.mode == modeBeginData {
				s.state = stBeginToken
			} else {
				s.state = stKey
			}
			return false, nil
		}
		return false, s.errorf("unexpected %s", quoteByte(c))

	case stJunkComment:
		switch c {
		case '\r':
			s.state = stJunkCR
		case '\n':
			s.state = stJunk
		}
		return true, nil

	case stJunkCR:
		if c != '\n' {
			return false, s.errorf("expected line feed after carriage return, got %s", quoteByte(c))
		}
		s.state = stJunk
		return true, nil

	case stBeginToken:
		if isTokenByte(c) {
			return true, s.pushTok(c)
		}
		if string(s.tok) != beginData {
			return false, s.errorAt(s.mark, "expected %s, got %q", beginData, s.tok)
		}
		s.lineEnd(stDone)
		return false, nil

	case stKey:
		if isTokenByte(c) {
			return true, s.pushTok(c)
		}
		if !isSpace(c) {
			return false, s.errorf("expected space after attribute key, got %s", quoteByte(c))
		}
		s.key = string(s.tok)
		s.tok = s.tok[:0]
		s.state = stKeySpace
		return true, nil

	case stKeySpace:
		switch {
		case isSpace(c):
			return true, nil
		case isTokenByte(c):
			s.state = stType
			return false, nil
		}
		return false, s.errorf("expected attribute type, got %s", quoteByte(c))

	case stType:
		if isTokenByte(c) {
			// The string and block type tags commit once matched.
			switch string(s.tok) {
			case TypeUTF8:
				return false, s.errorf("expected space after %s, got %s", TypeUTF8, quoteByte(c))
			case TypeMultilineOctal:
				return false, s.errorf("expected line end after %s, got %s", TypeMultilineOctal, quoteByte(c))
			}
			return true, s.pushTok(c)
		}
		s.typ = string(s.tok)
		s.tok = s.tok[:0]
		switch s.typ {
		case TypeMultilineOctal:
			if !isLineEndByte(c) {
				return false, s.errorf("expected line end after %s, got %s", TypeMultilineOctal, quoteByte(c))
			}
			s.lineEnd(stBlock)
			return false, nil
		case TypeUTF8:
			if !isSpace(c) {
				return false, s.errorf("expected space after %s, got %s", TypeUTF8, quoteByte(c))
			}
			s.state = stStringSpace
			return true, nil
		default:
			if !isSpace(c) {
				return false, s.errorf("expected space after attribute type, got %s", quoteByte(c))
			}
			s.state = stValueSpace
			return true, nil
		}

	case stValueSpace:
		switch {
		case isSpace(c):
			return true, nil
		case isTokenByte(c):
			s.state = stValue
			return false, nil
		}
		return false, s.errorf("expected %s value, got %s", s.typ, quoteByte(c))

	case stValue:
		if isTokenByte(c) {
			return true, s.pushTok(c)
		}
		s.value = TokenValue{AttrType: s.typ, Value: string(s.tok)}
		s.lineEnd(stDone)
		return false, nil

	case stStringSpace:
		switch {
		case isSpace(c):
			return true, nil
		case c == '"':
			s.state = stString
			s.mark = s.pos
			s.mark.Offset++
			s.mark.Column++
			return true, nil
		}
		return false, s.errorf("expected quoted string, got %s", quoteByte(c))

	case stString:
		switch c {
		case '"':
			if !utf8.Valid(s.val) {
				return false, s.errorAt(s.mark, "quoted string is not valid UTF-8")
			}
			s.value = StringValue(s.val)
			s.lineEnd(stDone)
			return true, nil
		case '\\':
			s.escMark = s.pos
			s.state = stStringEsc
			return true, nil
		}
		return true, s.pushVal(c)

	case stStringEsc:
		if c != 'x' {
			return false, s.errorAt(s.escMark, "unsupported escape in quoted string")
		}
		s.state = stStringHex1
		return true, nil

	case stStringHex1, stStringHex2:
		d, ok := hexDigit(c)
		if !ok {
			return false, s.errorf("invalid hex digit %s", quoteByte(c))
		}
		if s.state == stStringHex1 {
			s.esc = d
			s.state = stStringHex2
			return true, nil
		}
		s.state = stString
		return true, s.pushVal(s.esc<<4 | d)

	case stEndl:
		switch {
		case isSpace(c):
			return true, nil
		case c == '#':
			s.state = stEndlComment
			return true, nil
		case c == '\r':
			s.state = stEndlCR
			return true, nil
		case c == '\n':
			s.state = s.after
			return true, nil
		}
		return false, s.errorf("expected end of line, got %s", quoteByte(c))

	case stEndlComment:
		switch c {
		case '\r':
			s.state = stEndlCR
		case '\n':
			s.state = s.after
		}
		return true, nil

	case stEndlCR:
		if c != '\n' {
			return false, s.errorf("expected line feed after carriage return, got %s", quoteByte(c))
		}
		s.state = s.after
		return true, nil

	case stBlock:
		switch {
		case isSpace(c), c == '\n':
			return true, nil
		case c == '#':
			s.state = stBlockComment
			return true, nil
		case c == '\r':
			s.state = stBlockCR
			return true, nil
		case c == '\\':
			s.state = stOctal1
			return true, nil
		case c == 'E' && s.pos.Column == 1:
			s.state = stEnd
			s.endLen = 0
			return false, nil
		}
		return false, s.errorf("unexpected %s in %s block", quoteByte(c), TypeMultilineOctal)

	case stBlockComment:
		switch c {
		case '\r':
			s.state = stBlockCR
		case '\n':
			s.state = stBlock
		}
		return true, nil

	case stBlockCR:
		if c != '\n' {
			return false, s.errorf("expected line feed after carriage return, got %s", quoteByte(c))
		}
		s.state = stBlock
		return true, nil

	case stOctal1:
		if c < '0' || c > '3' {
			return false, s.errorf("invalid octal escape digit %s", quoteByte(c))
		}
		s.esc = c - '0'
		s.state = stOctal2
		return true, nil

	case stOctal2, stOctal3:
		if c < '0' || c > '7' {
			return false, s.errorf("invalid octal escape digit %s", quoteByte(c))
		}
		s.esc = s.esc<<3 | (c - '0')
		if s.state == stOctal2 {
			s.state = stOctal3
			return true, nil
		}
		s.state = stBlock
		return true, s.pushVal(s.esc)

	case stEnd:
		const end = "END"
		if s.endLen < len(end) {
			if c != end[s.endLen] {
				return false, s.errorf("expected END, got %s", quoteByte(c))
			}
			s.endLen++
			return true, nil
		}
		if !isLineEndByte(c) {
			return false, s.errorf("expected line end after END, got %s", quoteByte(c))
		}
		// The payload is handed off, so the next block starts a fresh buffer.
		if s.val == nil {
			s.val = []byte{}
		}
		s.value = BinaryValue(s.val)
		s.val = nil
		s.lineEnd(stDone)
		return false, nil
	}
	return false, s.errorf("scanner in invalid state %d", s.state)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func isLineEndByte(c byte) bool {
	return isSpace(c) || c == '#' || c == '\r' || c == '\n'
}

func isTokenByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func quoteByte(c byte) string {
	return fmt.Sprintf("%q", rune(c))
}

// ParseBeginData applies the begindata production to the start of b and
// returns the number of bytes it spans. It returns ErrIncomplete when b is
// a valid prefix that needs more input. ParseError offsets are relative to b.
func ParseBeginData(b []byte) (int, error) {
	s := newScanner(modeBeginData, 0)
	n, done, err := s.feed(b)
	if err != nil {
		return 0, err
	}
	if !done {
		return 0, ErrIncomplete
	}
	return n, nil
}

// ParseAttribute applies the attribute production, including any leading
// blank and comment lines, to the start of b. It returns the attribute and
// the number of bytes consumed, or ErrIncomplete when b is a valid prefix
// that needs more input. ParseError offsets are relative to b.
func ParseAttribute(b []byte) (Attr, int, error) {
	s := newScanner(modeAttribute, 0)
	n, done, err := s.feed(b)
	if err != nil {
		return Attr{}, 0, err
	}
	if !done {
		return Attr{}, 0, ErrIncomplete
	}
	return s.attr(), n, nil
}

package certdata

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func tokenAttr(key, typ, val string) Attr {
	return Attr{Key: key, Value: TokenValue{AttrType: typ, Value: val}}
}

func TestParseAttribute(t *testing.T) {
	// WHY: Each production has three outcomes (done, incomplete, error at a
	// byte); these cases pin the grammar, the bytes consumed, and the exact
	// offending offset for every class of syntax error.
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		want       Attr
		wantN      int // -1 means len(input)
		incomplete bool
		errOffset  int64 // -1 means no parse error expected
	}{
		{name: "token value", input: "CKA_TOKEN CK_BBOOL CK_TRUE\n", want: tokenAttr("CKA_TOKEN", "CK_BBOOL", "CK_TRUE"), wantN: -1, errOffset: -1},
		{name: "mixed spaces", input: "CKA_TOKEN CK_BBOOL   \t   CK_TRUE\n", want: tokenAttr("CKA_TOKEN", "CK_BBOOL", "CK_TRUE"), wantN: -1, errOffset: -1},
		{name: "stops after first line feed", input: "CKA_TOKEN CK_BBOOL CK_TRUE\n\n", want: tokenAttr("CKA_TOKEN", "CK_BBOOL", "CK_TRUE"), wantN: 27, errOffset: -1},
		{name: "trailing comment", input: "CKA_TOKEN CK_BBOOL CK_TRUE # Very true. Wow. \n", want: tokenAttr("CKA_TOKEN", "CK_BBOOL", "CK_TRUE"), wantN: -1, errOffset: -1},
		{name: "crlf", input: "CKA_TOKEN CK_BBOOL CK_TRUE\r\n", want: tokenAttr("CKA_TOKEN", "CK_BBOOL", "CK_TRUE"), wantN: -1, errOffset: -1},
		{name: "leading junk", input: "\n# comment\n  \t\r\nCKA_TOKEN CK_BBOOL CK_TRUE\n", want: tokenAttr("CKA_TOKEN", "CK_BBOOL", "CK_TRUE"), wantN: -1, errOffset: -1},
		{name: "token needs line end", input: "CKA_TOKEN CK_BBOOL CK_TRUE", incomplete: true, errOffset: -1},
		{name: "junk only", input: "# nothing here\n\n", incomplete: true, errOffset: -1},

		{name: "string", input: "CKA_LABEL UTF8 \"Bogus Mozilla Addons\"\n", want: Attr{Key: "CKA_LABEL", Value: StringValue("Bogus Mozilla Addons")}, wantN: -1, errOffset: -1},
		{name: "string hex escape", input: "CKA_LABEL UTF8 \"A\\x42\\x4a\"\n", want: Attr{Key: "CKA_LABEL", Value: StringValue("ABJ")}, wantN: -1, errOffset: -1},
		{name: "string multibyte", input: "CKA_LABEL UTF8 \"Stũff\"\n", want: Attr{Key: "CKA_LABEL", Value: StringValue("Stũff")}, wantN: -1, errOffset: -1},
		{name: "string empty", input: "CKA_LABEL UTF8 \"\"\n", want: Attr{Key: "CKA_LABEL", Value: StringValue("")}, wantN: -1, errOffset: -1},
		{name: "string open", input: "CKA_LABEL UTF8 \"", incomplete: true, errOffset: -1},
		{name: "string spaces only", input: "CKA_LABEL UTF8   ", incomplete: true, errOffset: -1},
		{name: "string then quote", input: "CKA_LABEL UTF8 \"a\"\"b\"\n", errOffset: 18},
		{name: "UTF8 then newline", input: "CKA_LABEL UTF8\n\"0\"\n", errOffset: 14},
		{name: "token type with string", input: "CKA_CLASS CK_OBJECT_CLASS \"0\"\n", errOffset: 26},
		{name: "octal type with string", input: "CKA_VALUE MULTILINE_OCTAL \"0\"\n", errOffset: 26},
		{name: "invalid utf8 at value start", input: "CKA_LABEL UTF8 \"A\\x82\"\n", errOffset: 16},
		{name: "backslash escape", input: "CKA_LABEL UTF8 \"a\\\\b\"\n", errOffset: 17},
		{name: "quote escape", input: "CKA_LABEL UTF8 \"a\\\"b\"\n", errOffset: 17},
		{name: "bad hex digit", input: "CKA_LABEL UTF8 \"\\xg0\"\n", errOffset: 18},
		{name: "invalid utf8 after escapes", input: "CKA_LABEL UTF8 \"\\x41\\x42 and then \\x82\"\n", errOffset: 16},
		{name: "escape error after escapes", input: "CKA_LABEL UTF8 \"\\x41 \\n\"\n", errOffset: 21},
		{name: "UTF8 tag with suffix", input: "CKA_LABEL UTF8X \"a\"\n", errOffset: 19},
		{name: "octal tag with suffix", input: "CKA_VALUE MULTILINE_OCTALX\nEND\n", errOffset: 25},
		{name: "tag prefix of longer type", input: "CKA_X UTF CK_TRUE\n", want: tokenAttr("CKA_X", "UTF", "CK_TRUE"), wantN: -1, errOffset: -1},

		{name: "octal block", input: "CKA_VALUE MULTILINE_OCTAL\n\\000\\001\\002\n\\010\\011\\012\nEND\n", want: Attr{Key: "CKA_VALUE", Value: BinaryValue{0, 1, 2, 8, 9, 10}}, wantN: -1, errOffset: -1},
		{name: "octal block with junk", input: "CKA_VALUE MULTILINE_OCTAL # c\n\\101 # Sixty-five \n\t\\033\r\n\r\n\nEND\n", want: Attr{Key: "CKA_VALUE", Value: BinaryValue{65, 27}}, wantN: -1, errOffset: -1},
		{name: "octal max", input: "CKA_VALUE MULTILINE_OCTAL\n\\377\\376\nEND # done\n", want: Attr{Key: "CKA_VALUE", Value: BinaryValue{0xff, 0xfe}}, wantN: -1, errOffset: -1},
		{name: "empty block", input: "CKA_VALUE MULTILINE_OCTAL\nEND\n", want: Attr{Key: "CKA_VALUE", Value: BinaryValue{}}, wantN: -1, errOffset: -1},
		{name: "block needs END", input: "CKA_VALUE MULTILINE_OCTAL\n\\101\\033\n", incomplete: true, errOffset: -1},
		{name: "END needs line end", input: "CKA_VALUE MULTILINE_OCTAL\n\\101\nEND", incomplete: true, errOffset: -1},
		{name: "bad first octal digit", input: "CKA_VALUE MULTILINE_OCTAL\n\\400\nEND\n", errOffset: 27},
		{name: "bad later octal digit", input: "CKA_VALUE MULTILINE_OCTAL\n\\080\nEND\n", errOffset: 28},
		{name: "indented END", input: "CKA_VALUE MULTILINE_OCTAL\n\\101\n END\n", errOffset: 32},
		{name: "END with suffix", input: "CKA_VALUE MULTILINE_OCTAL\nENDX\n", errOffset: 29},

		{name: "key without type", input: "CKA_TOKEN\n", errOffset: 9},
		{name: "quote where key expected", input: "\"oops\"\n", errOffset: 0},
		{name: "carriage return without line feed", input: "CKA_TOKEN CK_BBOOL CK_TRUE\rX", errOffset: 27},
		{name: "value with punctuation", input: "CKA_X CK_T a-b\n", errOffset: 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, n, err := ParseAttribute([]byte(tt.input))
			switch {
			case tt.incomplete:
				if !errors.Is(err, ErrIncomplete) {
					t.Fatalf("err = %v, want ErrIncomplete", err)
				}
			case tt.errOffset >= 0:
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("err = %v, want *ParseError", err)
				}
				if pe.Offset != tt.errOffset {
					t.Errorf("error offset = %d, want %d (%v)", pe.Offset, tt.errOffset, pe)
				}
			default:
				if err != nil {
					t.Fatalf("ParseAttribute: %v", err)
				}
				wantN := tt.wantN
				if wantN < 0 {
					wantN = len(tt.input)
				}
				if n != wantN {
					t.Errorf("consumed = %d, want %d", n, wantN)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("attr = %#v, want %#v", got, tt.want)
				}
			}
		})
	}
}

func TestParseBeginData(t *testing.T) {
	// WHY: The header may be preceded by comments and blank lines; any other
	// token where BEGINDATA belongs is an error located at that token.
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantN      int
		incomplete bool
		errOffset  int64
	}{
		{name: "bare", input: "BEGINDATA\n", wantN: 10, errOffset: -1},
		{name: "after header", input: "# header\n\nBEGINDATA\nCKA_CLASS", wantN: 20, errOffset: -1},
		{name: "indented", input: "  BEGINDATA # go\n", wantN: 17, errOffset: -1},
		{name: "empty", input: "", incomplete: true, errOffset: -1},
		{name: "no line end", input: "BEGINDATA", incomplete: true, errOffset: -1},
		{name: "wrong token", input: "BEGINDATUM\n", errOffset: 0},
		{name: "wrong token on second line", input: "# c\nENDDATA\n", errOffset: 4},
		{name: "trailing junk", input: "BEGINDATA junk\n", errOffset: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := ParseBeginData([]byte(tt.input))
			switch {
			case tt.incomplete:
				if !errors.Is(err, ErrIncomplete) {
					t.Fatalf("err = %v, want ErrIncomplete", err)
				}
			case tt.errOffset >= 0:
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("err = %v, want *ParseError", err)
				}
				if pe.Offset != tt.errOffset {
					t.Errorf("error offset = %d, want %d", pe.Offset, tt.errOffset)
				}
			default:
				if err != nil {
					t.Fatalf("ParseBeginData: %v", err)
				}
				if n != tt.wantN {
					t.Errorf("consumed = %d, want %d", n, tt.wantN)
				}
			}
		})
	}
}

func TestParseError_LineAndColumn(t *testing.T) {
	// WHY: Errors deep in a block must report a usable line and column, not
	// just a byte offset.
	t.Parallel()

	_, _, err := ParseAttribute([]byte("CKA_VALUE MULTILINE_OCTAL\n\\101\\102\n\\10x\nEND\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	want := Position{Offset: 38, Line: 3, Column: 4}
	if pe.Position != want {
		t.Errorf("position = %+v, want %+v", pe.Position, want)
	}
	if !strings.Contains(pe.Error(), "line 3, column 4") {
		t.Errorf("Error() = %q, want line:column", pe.Error())
	}
}

// feedChunks feeds chunks to s until the production completes and returns
// the total bytes consumed.
func feedChunks(s *scanner, chunks ...[]byte) (int, bool, error) {
	total := 0
	for _, c := range chunks {
		n, done, err := s.feed(c)
		total += n
		if err != nil || done {
			return total, done, err
		}
	}
	return total, false, nil
}

func TestScanner_SplitAnywhere(t *testing.T) {
	// WHY: The scanner keeps its own continuation, so splitting the input at
	// any byte must give the same attribute, byte count and error position
	// as feeding it whole.
	t.Parallel()

	inputs := []string{
		"# lead\nCKA_LABEL UTF8 \"A\\x42 \xc5\xa9\" # tail\r\n",
		"CKA_VALUE MULTILINE_OCTAL\n\\101 # x\n\\377\nEND\nCKA_NEXT",
		"CKA_TOKEN CK_BBOOL CK_TRUE\n",
		"CKA_VALUE MULTILINE_OCTAL\n\\101\n\\9",
		"CKA_LABEL UTF8 \"A\\x82\"\n",
	}
	for _, input := range inputs {
		b := []byte(input)
		whole := newScanner(modeAttribute, 0)
		wantN, wantDone, wantErr := feedChunks(whole, b)

		for split := 0; split <= len(b); split++ {
			s := newScanner(modeAttribute, 0)
			n, done, err := feedChunks(s, b[:split], b[split:])
			if n != wantN || done != wantDone {
				t.Errorf("%q split %d: n=%d done=%v, want n=%d done=%v", input, split, n, done, wantN, wantDone)
				continue
			}
			if !reflect.DeepEqual(err, wantErr) {
				t.Errorf("%q split %d: err = %v, want %v", input, split, err, wantErr)
				continue
			}
			if done && !reflect.DeepEqual(s.attr(), whole.attr()) {
				t.Errorf("%q split %d: attr = %#v, want %#v", input, split, s.attr(), whole.attr())
			}
		}
	}
}

func TestScanner_MaxValueSize(t *testing.T) {
	// WHY: A bounded scanner must reject an oversized payload at the first
	// byte past the limit instead of buffering it.
	t.Parallel()

	s := newScanner(modeAttribute, 16)
	_, _, err := s.feed([]byte("CKA_LABEL UTF8 \"0123456789abcdefXYZ\"\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Offset != 32 {
		t.Errorf("offset = %d, want 32", pe.Offset)
	}
	if !strings.Contains(pe.Reason, "exceeds 16 bytes") {
		t.Errorf("reason = %q", pe.Reason)
	}
}

package certdata

// Attribute type tags with dedicated value encodings.
const (
	TypeMultilineOctal = "MULTILINE_OCTAL"
	TypeUTF8           = "UTF8"
)

// Value is one attribute's payload exactly as written. It is implemented
// only by TokenValue, StringValue and BinaryValue; consumers switch on the
// concrete type.
type Value interface {
	// Type returns the attribute type tag: MULTILINE_OCTAL for binary
	// values, UTF8 for strings, and the written type for tokens.
	Type() string
	isValue()
}

// TokenValue is a bare "TYPE VALUE" pair such as CK_BBOOL CK_TRUE.
type TokenValue struct {
	AttrType string
	Value    string
}

// StringValue is a decoded UTF8 quoted string.
type StringValue string

// BinaryValue is a decoded MULTILINE_OCTAL block.
type BinaryValue []byte

func (v TokenValue) Type() string { return v.AttrType }
func (StringValue) Type() string  { return TypeUTF8 }
func (BinaryValue) Type() string  { return TypeMultilineOctal }

func (TokenValue) isValue()  {}
func (StringValue) isValue() {}
func (BinaryValue) isValue() {}

// Attr is a single key/value attribute from the stream.
type Attr struct {
	Key   string
	Value Value
}

// RawObject is the set of attributes belonging to one record. A repeated
// key overwrites the earlier value.
type RawObject map[string]Value

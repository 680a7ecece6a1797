package certdata

import (
	"errors"
	"fmt"
)

// ErrIncomplete is returned by the pure grammar entry points when the input
// is a valid but unfinished prefix of the requested production.
var ErrIncomplete = errors.New("certdata: incomplete input")

// Kind is a stable category for programmatic error handling. Callers should
// branch on Kind (or errors.As) rather than matching error strings.
type Kind string

const (
	KindIO        Kind = "IO"
	KindParse     Kind = "Parse"
	KindStructure Kind = "Structure"
)

// KindOf reports the category of err, or "" if err is not one of this
// package's errors.
func KindOf(err error) Kind {
	var ioErr *IOError
	var parseErr *ParseError
	var structErr StructureError
	switch {
	case errors.As(err, &ioErr):
		return KindIO
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &structErr):
		return KindStructure
	default:
		return ""
	}
}

// Position locates a byte in the source. Line and Column are 1-based;
// Column counts bytes, not runes.
type Position struct {
	Offset int64
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d (byte %d)", p.Line, p.Column, p.Offset)
}

// IOError reports a failure reading the underlying source.
type IOError struct {
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("certdata: reading at byte %d: %v", e.Offset, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports a grammar violation. The position is the first byte
// that cannot belong to any valid document, or the end of input when the
// source stops in the middle of a construct.
type ParseError struct {
	Position
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("certdata: parse error at %s: %s", e.Position, e.Reason)
}

// StructureError is a semantic validation failure in a syntactically valid
// record. It is implemented only by *MissingKeyError, *TypeError and
// *ValueError.
type StructureError interface {
	error
	structureError()
}

// MissingKeyError reports a required attribute absent from a record.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("certdata: missing key %s", e.Key)
}

// TypeError reports an attribute present with the wrong type tag.
type TypeError struct {
	Got      string
	Expected string
	Key      string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("certdata: unexpected attribute type for %s: got %s, want %s", e.Key, e.Got, e.Expected)
}

// ValueError reports an attribute with the right type tag but an
// unrecognized value.
type ValueError struct {
	Got      string
	AttrType string
	Key      string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("certdata: unexpected %s value for %s: %s", e.AttrType, e.Key, e.Got)
}

func (*MissingKeyError) structureError() {}
func (*TypeError) structureError()       {}
func (*ValueError) structureError()      {}

package certdata

import (
	"bufio"
	"errors"
	"io"
	"iter"
)

// ClassKey is the attribute that opens every record.
const ClassKey = "CKA_CLASS"

const defaultBufferSize = 64 << 10

type readerOptions struct {
	bufferSize   int
	maxValueSize int
}

// ReaderOption configures the readers in this package.
type ReaderOption func(*readerOptions)

// WithBufferSize sets the size of the read buffer (default: 64 KiB).
func WithBufferSize(n int) ReaderOption {
	return func(o *readerOptions) {
		o.bufferSize = n
	}
}

// WithMaxValueSize bounds one decoded token, string or binary block
// (default: DefaultMaxValueSize). Exceeding it is a ParseError.
func WithMaxValueSize(n int) ReaderOption {
	return func(o *readerOptions) {
		o.maxValueSize = n
	}
}

// AttrReader yields the attributes following the BEGINDATA line of a
// certdata.txt stream, in file order.
//
// The reader is single-pass and fail-stop: after the first error every
// call to Next returns io.EOF.
type AttrReader struct {
	src     *bufio.Reader
	scan    *scanner
	started bool
	done    bool
}

// NewAttrReader returns an AttrReader consuming r. The reader owns r for
// its lifetime.
func NewAttrReader(r io.Reader, opts ...ReaderOption) *AttrReader {
	o := readerOptions{bufferSize: defaultBufferSize, maxValueSize: DefaultMaxValueSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &AttrReader{
		src:  bufio.NewReaderSize(r, o.bufferSize),
		scan: newScanner(modeBeginData, o.maxValueSize),
	}
}

// Offset returns the absolute byte offset of the next unread byte.
func (r *AttrReader) Offset() int64 {
	return r.scan.pos.Offset
}

// Next returns the next attribute. It returns io.EOF at the end of the
// stream and after any earlier error. Source failures are *IOError and
// syntax violations are *ParseError; a stream with no BEGINDATA line is a
// ParseError.
func (r *AttrReader) Next() (Attr, error) {
	if r.done {
		return Attr{}, io.EOF
	}
	if !r.started {
		if err := r.run(); err != nil {
			r.done = true
			return Attr{}, err
		}
		r.started = true
	}
	r.scan.reset(modeAttribute)
	if err := r.run(); err != nil {
		r.done = true
		return Attr{}, err
	}
	return r.scan.attr(), nil
}

// All returns an iterator over the remaining attributes. Iteration stops
// after the first error, which is yielded.
func (r *AttrReader) All() iter.Seq2[Attr, error] {
	return func(yield func(Attr, error) bool) {
		for {
			attr, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(attr, err) || err != nil {
				return
			}
		}
	}
}

// run feeds buffered bytes to the scanner until the current production
// completes. The scanner keeps its own continuation, so bytes are consumed
// from the bufio.Reader as soon as they are scanned and never re-read.
func (r *AttrReader) run() error {
	for {
		if r.src.Buffered() == 0 {
			if _, err := r.src.Peek(1); err != nil {
				if errors.Is(err, io.EOF) {
					return r.scan.finish()
				}
				return &IOError{Offset: r.scan.pos.Offset, Err: err}
			}
		}
		buf, _ := r.src.Peek(r.src.Buffered())
		n, done, err := r.scan.feed(buf)
		// n never exceeds what is buffered, so Discard cannot fail.
		_, _ = r.src.Discard(n)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// RawObjectReader groups the attribute stream into records. A record
// starts at every CKA_CLASS attribute and runs until the next one.
type RawObjectReader struct {
	attrs *AttrReader
	acc   RawObject
	done  bool
}

// NewRawObjectReader returns a RawObjectReader consuming r.
func NewRawObjectReader(r io.Reader, opts ...ReaderOption) *RawObjectReader {
	return &RawObjectReader{attrs: NewAttrReader(r, opts...)}
}

// Offset returns the absolute byte offset of the next unread byte.
func (r *RawObjectReader) Offset() int64 {
	return r.attrs.Offset()
}

// Next returns the next complete record, or io.EOF once the stream and any
// trailing record are exhausted. Errors from the attribute stream are
// returned once; the partially built record is dropped.
func (r *RawObjectReader) Next() (RawObject, error) {
	if r.done {
		return nil, io.EOF
	}
	for {
		attr, err := r.attrs.Next()
		if errors.Is(err, io.EOF) {
			r.done = true
			obj := r.acc
			r.acc = nil
			if len(obj) == 0 {
				return nil, io.EOF
			}
			return obj, nil
		}
		if err != nil {
			r.done = true
			r.acc = nil
			return nil, err
		}
		if attr.Key == ClassKey && len(r.acc) > 0 {
			obj := r.acc
			r.acc = RawObject{attr.Key: attr.Value}
			return obj, nil
		}
		if r.acc == nil {
			r.acc = make(RawObject)
		}
		r.acc[attr.Key] = attr.Value
	}
}

// All returns an iterator over the remaining records.
func (r *RawObjectReader) All() iter.Seq2[RawObject, error] {
	return func(yield func(RawObject, error) bool) {
		for {
			obj, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(obj, err) || err != nil {
				return
			}
		}
	}
}

// ObjectReader decodes records into certificates and trusts. Records of
// other classes are skipped.
type ObjectReader struct {
	raw *RawObjectReader
}

// NewObjectReader returns an ObjectReader consuming r.
func NewObjectReader(r io.Reader, opts ...ReaderOption) *ObjectReader {
	return &ObjectReader{raw: NewRawObjectReader(r, opts...)}
}

// Offset returns the absolute byte offset of the next unread byte.
func (r *ObjectReader) Offset() int64 {
	return r.raw.Offset()
}

// Next returns the next decoded object. A StructureError rejects only the
// current record and the reader may be called again; IO and parse errors
// end the stream.
func (r *ObjectReader) Next() (Object, error) {
	for {
		raw, err := r.raw.Next()
		if err != nil {
			return nil, err
		}
		obj, err := DecodeObject(raw)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			return obj, nil
		}
	}
}

// All returns an iterator over the remaining objects. Structure errors are
// yielded and iteration continues if the consumer asks for more; IO and
// parse errors end it.
func (r *ObjectReader) All() iter.Seq2[Object, error] {
	return func(yield func(Object, error) bool) {
		for {
			obj, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(obj, err) {
				return
			}
			if err != nil && KindOf(err) != KindStructure {
				return
			}
		}
	}
}

package netstr

import "io"

type phase int

const (
	awaitingSize phase = iota
	awaitingPayload
)

// Decoder reads netstrings from an io.Reader.
//
// The decoder reads the source in chunks and keeps any bytes that belong
// to following netstrings, so one read may yield several values. It never
// reads while a complete value is already buffered.
//
// A Decoder is not safe for concurrent use. Once Decode has returned an
// error (including io.EOF), every later call returns the same error.
type Decoder struct {
	r          io.Reader
	skip       SkipPredicate
	maxLength  int
	bufferSize int

	buf    []byte // buf[pos:] holds bytes not yet assigned to a field
	pos    int
	phase  phase
	size   int   // declared payload size while awaitingPayload
	offset int64 // bytes consumed from the stream
	srcErr error // first error returned by the source, io.EOF included
	err    error // sticky terminal outcome
}

// NewDecoder creates a new netstring decoder.
//
// The decoder reads from r but never closes it.
// Optional configuration can be provided via Option functions.
//
// Example:
//
//	dec := netstr.NewDecoder(conn, netstr.MaxLength(1<<20), netstr.Lenient())
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	cfg := &config{
		skip:       nil, // nil means skip nothing (strict mode)
		maxLength:  DefaultMaxLength,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Decoder{
		r:          r,
		skip:       cfg.skip,
		maxLength:  cfg.maxLength,
		bufferSize: cfg.bufferSize,
		phase:      awaitingSize,
	}
}

// Encoder writes netstrings to an io.Writer.
//
// The encoder writes are unbuffered: each netstring is one Write call.
// For network streams, wrap your io.Writer in bufio.Writer if buffering
// is desired, and call Flush when done:
//
//	enc := netstr.NewEncoder(bufio.NewWriter(conn))
type Encoder struct {
	w io.Writer
}

// NewEncoder creates a new netstring encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

package netstr

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"slices"
	"strconv"
)

// maxConsecutiveEmptyReads matches bufio: a source that keeps returning
// 0, nil is treated as broken.
const maxConsecutiveEmptyReads = 100

// Decode reads the next standard netstring (no key) and returns its payload.
//
// Returns io.EOF when the stream ends cleanly between netstrings. Any
// other error is a *FormatError, ErrTooLarge wrapped in a *FormatError,
// or an error from the source. Errors and io.EOF are sticky.
func (d *Decoder) Decode() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}

	payload, err := d.next()
	if err != nil {
		d.err = err
		return nil, err
	}
	return payload, nil
}

// DecodeKeyed reads the next keyed netstring and returns its key and payload.
//
// The first byte of the netstring is the key, and the remaining bytes are the payload.
// Returns io.EOF when the stream ends.
func (d *Decoder) DecodeKeyed() (key byte, value []byte, err error) {
	payload, err := d.Decode()
	if err != nil {
		return 0, nil, err
	}

	// Length must be at least 1 (for the key)
	if len(payload) == 0 {
		d.err = &FormatError{
			Kind:   ErrMissingKey,
			Offset: d.offset,
			Reason: "keyed netstring must have length >= 1",
		}
		return 0, nil, d.err
	}

	return payload[0], payload[1:], nil
}

// DecodeString is a convenience method that returns the next payload as a string.
func (d *Decoder) DecodeString() (string, error) {
	payload, err := d.Decode()
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// Values returns an iterator over the remaining payloads.
//
// Iteration stops silently at io.EOF. Any other error is yielded once,
// with a nil payload, and ends the iteration.
//
//	for payload, err := range dec.Values() {
//		if err != nil {
//			return err
//		}
//		...
//	}
func (d *Decoder) Values() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			payload, err := d.Decode()
			if err == io.EOF {
				return
			}
			if !yield(payload, err) || err != nil {
				return
			}
		}
	}
}

// Offset returns the number of bytes consumed from the stream so far.
// Bytes that were read but not yet assigned to a netstring are not counted.
func (d *Decoder) Offset() int64 {
	return d.offset
}

// Unmarshal decodes data, which must hold exactly one complete netstring.
//
// Empty input fails with ErrUnexpectedEOF. Bytes after the netstring fail
// with ErrTrailingData, unless a skip option accepts all of them.
// For streams of netstrings use a Decoder instead of repeated calls.
func Unmarshal(data []byte, opts ...Option) ([]byte, error) {
	opts = append([]Option{BufferSize(len(data))}, opts...)
	d := NewDecoder(bytes.NewReader(data), opts...)

	payload, err := d.Decode()
	if err == io.EOF {
		return nil, &FormatError{
			Kind:   ErrUnexpectedEOF,
			Offset: d.offset,
			Reason: "no netstring in input",
		}
	}
	if err != nil {
		return nil, err
	}

	rest := data[d.offset:]
	for len(rest) > 0 && d.skip != nil && d.skip(rest[0]) {
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return nil, &FormatError{
			Kind:   ErrTrailingData,
			Offset: d.offset,
			Reason: fmt.Sprintf("%d bytes after netstring", len(rest)),
		}
	}

	return payload, nil
}

// next runs the driving loop: parse what is buffered, read only when
// nothing can be assembled from it.
func (d *Decoder) next() ([]byte, error) {
	empty := 0
	for {
		payload, ok, err := d.parse()
		if err != nil {
			return nil, err
		}
		if ok {
			return payload, nil
		}

		if d.srcErr != nil {
			if d.srcErr != io.EOF {
				return nil, d.srcErr
			}
			if d.phase == awaitingSize && d.buffered() == 0 {
				return nil, io.EOF
			}
			return nil, d.truncated()
		}

		n := d.fill()
		if n > 0 || d.srcErr != nil {
			empty = 0
			continue
		}
		empty++
		if empty >= maxConsecutiveEmptyReads {
			return nil, io.ErrNoProgress
		}
	}
}

// parse advances the state machine over buffered bytes. The boolean
// reports whether a complete value was assembled.
func (d *Decoder) parse() ([]byte, bool, error) {
	if d.phase == awaitingSize {
		ready, err := d.parseSize()
		if err != nil || !ready {
			return nil, false, err
		}
	}
	return d.parsePayload()
}

// parseSize recognizes a size field at the front of the buffer and, when
// complete and within limits, moves to awaitingPayload.
func (d *Decoder) parseSize() (bool, error) {
	if d.skip != nil {
		for d.pos < len(d.buf) && d.skip(d.buf[d.pos]) {
			d.consume(1)
		}
	}

	size, width, err := scanSize(d.buf[d.pos:])
	if err != nil {
		err.Offset += d.offset
		return false, err
	}
	if width == 0 {
		return false, nil
	}

	if size > uint64(d.maxLength) {
		return false, &FormatError{
			Kind:   ErrTooLarge,
			Offset: d.offset,
			Reason: fmt.Sprintf("declared size %d exceeds maximum %d", size, d.maxLength),
		}
	}

	d.consume(width)
	d.phase = awaitingPayload
	d.size = int(size)
	return true, nil
}

// parsePayload extracts the payload once it and its terminator are buffered.
func (d *Decoder) parsePayload() ([]byte, bool, error) {
	pending := d.buf[d.pos:]

	// Strictly more than size: the terminator must be present too.
	if len(pending) <= d.size {
		return nil, false, nil
	}

	if b := pending[d.size]; b != ',' {
		return nil, false, &FormatError{
			Kind:   ErrMissingTerminator,
			Offset: d.offset + int64(d.size),
			Reason: fmt.Sprintf("expected ',', got %q", rune(b)),
		}
	}

	payload := make([]byte, d.size)
	copy(payload, pending)

	d.consume(d.size + 1)
	d.phase = awaitingSize
	d.size = 0
	return payload, true, nil
}

// scanSize recognizes "0 | [1-9][0-9]*" followed by ':' at the start of b.
//
// It returns the declared size and the width of the field including the
// ':'. A zero width with a nil error means b is a valid prefix and more
// input is needed. Error offsets are relative to b.
func scanSize(b []byte) (size uint64, width int, err *FormatError) {
	for i, c := range b {
		switch {
		case c == ':':
			if i == 0 {
				return 0, 0, &FormatError{Kind: ErrIllegalSize, Offset: 0, Reason: "size field is empty"}
			}
			// At most MaxSizeDigits digits, so this cannot overflow.
			v, _ := strconv.ParseUint(string(b[:i]), 10, 64)
			return v, i + 1, nil

		case c < '0' || c > '9':
			if i == 0 {
				return 0, 0, &FormatError{
					Kind:   ErrIllegalSize,
					Offset: 0,
					Reason: fmt.Sprintf("expected digit, got %q", rune(c)),
				}
			}
			return 0, 0, &FormatError{
				Kind:   ErrIllegalSize,
				Offset: int64(i),
				Reason: fmt.Sprintf("expected digit or ':', got %q", rune(c)),
			}

		case i == 1 && b[0] == '0':
			return 0, 0, &FormatError{Kind: ErrIllegalSize, Offset: 0, Reason: "size field has leading zero"}

		case i >= MaxSizeDigits:
			return 0, 0, &FormatError{
				Kind:   ErrSizeTooWide,
				Offset: int64(i),
				Reason: fmt.Sprintf("size field exceeds %d digits", MaxSizeDigits),
			}
		}
	}
	return 0, 0, nil
}

// fill performs one read from the source into the buffer and returns the
// number of bytes added. Source errors are recorded in d.srcErr.
func (d *Decoder) fill() int {
	// Reclaim consumed space before growing.
	if d.pos > 0 {
		n := copy(d.buf, d.buf[d.pos:])
		d.buf = d.buf[:n]
		d.pos = 0
	}
	d.buf = slices.Grow(d.buf, d.bufferSize)

	end := len(d.buf)
	n, err := d.r.Read(d.buf[end : end+d.bufferSize])
	if n < 0 || n > d.bufferSize {
		err = fmt.Errorf("netstr: source returned invalid count %d", n)
		n = 0
	}
	d.buf = d.buf[:end+n]
	if err != nil {
		d.srcErr = err
	}
	return n
}

// consume drops n bytes from the front of the buffer.
func (d *Decoder) consume(n int) {
	d.pos += n
	d.offset += int64(n)
	if d.pos == len(d.buf) {
		d.buf = d.buf[:0]
		d.pos = 0
	}
}

func (d *Decoder) buffered() int {
	return len(d.buf) - d.pos
}

// truncated builds the error for a stream that ended inside a netstring.
func (d *Decoder) truncated() error {
	reason := fmt.Sprintf("unexpected EOF: incomplete size field %q", d.buf[d.pos:])
	if d.phase == awaitingPayload {
		reason = fmt.Sprintf("unexpected EOF: expected %d bytes and ',', got %d", d.size, d.buffered())
	}
	return &FormatError{
		Kind:   ErrUnexpectedEOF,
		Offset: d.offset + int64(d.buffered()),
		Reason: reason,
	}
}

// Package netstr reads and writes netstrings, the length-prefixed framing
// format described by D. J. Bernstein:
//
//	size ":" payload ","
//
// size is the payload length in ASCII decimal: "0", or a nonzero digit
// followed by up to nine more digits. The payload is arbitrary bytes, so
// "3:a,b," carries the three bytes "a,b".
//
// # Writing
//
// Marshal and Append produce the encoding of a single payload. An Encoder
// writes a sequence of them to an io.Writer; Flush passes through to
// writers that buffer, such as *bufio.Writer.
//
//	enc := netstr.NewEncoder(w)
//	enc.EncodeString("hello")       // 5:hello,
//	enc.EncodeKeyedString('n', "x") // 2:nx,
//
// A keyed netstring spends the first payload byte on a one-byte key, which
// lets a stream carry tagged fields.
//
// # Reading
//
// A Decoder pulls from an io.Reader in chunks of BufferSize bytes and
// reads again only when the buffered bytes cannot complete the next value.
// Chunk boundaries may fall anywhere; bytes past the current value are
// kept for the next call.
//
//	dec := netstr.NewDecoder(conn, netstr.MaxLength(64<<10))
//	for payload, err := range dec.Values() {
//		...
//	}
//
// By default nothing may appear between netstrings. SkipBytes and the
// whitespace options relax that for hand-written or line-oriented input.
//
// io.EOF is returned only when the source ends on a value boundary. A
// decoder that has failed stays failed; it never searches for the next
// valid netstring.
//
// # Errors
//
// Decode failures are *FormatError values carrying the stream offset of
// the problem. Their Kind is one of
//
//	ErrIllegalSize        byte that cannot be part of a size field
//	ErrSizeTooWide        more than 10 digits before ':'
//	ErrTooLarge           declared size above MaxLength
//	ErrMissingTerminator  payload not followed by ','
//	ErrUnexpectedEOF      stream ended inside a netstring
//	ErrMissingKey         keyed netstring with an empty payload
//
// Every kind except ErrTooLarge wraps ErrInvalidFormat.
//
// Untrusted streams should always set MaxLength: it rejects an oversized
// declaration before any payload byte is buffered.
package netstr

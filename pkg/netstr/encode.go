package netstr

import (
	"runtime"
	"strconv"
)

// newline is the platform line terminator appended by EncodeLine.
var newline = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}()

// Append appends the netstring encoding of data to dst and returns the
// extended slice.
//
// The netstring format is: <length>:<data>,
func Append(dst, data []byte) []byte {
	dst = strconv.AppendInt(dst, int64(len(data)), 10)
	dst = append(dst, ':')
	dst = append(dst, data...)
	return append(dst, ',')
}

// EncodedLen returns the length of the netstring encoding of an n-byte payload.
func EncodedLen(n int) int {
	digits := 1
	for v := n; v >= 10; v /= 10 {
		digits++
	}
	return digits + 1 + n + 1
}

// Marshal returns the netstring encoding of data.
//
// Example:
//
//	netstr.Marshal([]byte("hello")) // "5:hello,"
func Marshal(data []byte) []byte {
	return Append(make([]byte, 0, EncodedLen(len(data))), data)
}

// Encode writes a standard netstring (no key) containing data.
//
// Example:
//
//	enc.Encode([]byte("hello")) // writes "5:hello,"
func (e *Encoder) Encode(data []byte) error {
	_, err := e.w.Write(Marshal(data))
	return err
}

// EncodeKeyed writes a keyed netstring with the given key and data.
//
// The key is prepended to the data as the first byte of the payload.
// The netstring format is: <length>:<key><data>,
//
// Example:
//
//	enc.EncodeKeyed('t', []byte("token")) // writes "6:ttoken,"
func (e *Encoder) EncodeKeyed(key byte, data []byte) error {
	payload := make([]byte, 0, 1+len(data))
	payload = append(payload, key)
	payload = append(payload, data...)
	return e.Encode(payload)
}

// EncodeString is a convenience method that encodes a string as a standard netstring.
func (e *Encoder) EncodeString(s string) error {
	return e.Encode([]byte(s))
}

// EncodeKeyedString is a convenience method that encodes a string as a keyed netstring.
func (e *Encoder) EncodeKeyedString(key byte, s string) error {
	return e.EncodeKeyed(key, []byte(s))
}

// EncodeLine encodes s followed by the platform line terminator, so the
// terminator is part of the payload and counted in the length.
func (e *Encoder) EncodeLine(s string) error {
	return e.EncodeString(s + newline)
}

// Flush flushes the underlying writer if it has a Flush method, such as
// *bufio.Writer. It is a no-op otherwise.
func (e *Encoder) Flush() error {
	if f, ok := e.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

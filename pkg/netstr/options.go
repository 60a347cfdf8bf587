package netstr

import (
	"math"
	"unicode"
)

const (
	// DefaultMaxLength accepts any size a 10 digit field can express on
	// this platform.
	DefaultMaxLength = math.MaxInt

	// DefaultBufferSize is the size of each read from the source.
	DefaultBufferSize = 2048

	// MaxSizeDigits is the widest size field accepted.
	MaxSizeDigits = 10
)

// config holds decoder configuration.
type config struct {
	skip       SkipPredicate
	maxLength  int
	bufferSize int
}

// Option configures a Decoder.
type Option func(*config)

// SkipPredicate reports whether a byte found where a size field should
// start may be discarded. Payload bytes are never passed to it.
type SkipPredicate func(b byte) bool

// SkipBytes discards bytes matching pred between netstrings.
func SkipBytes(pred SkipPredicate) Option {
	return func(c *config) {
		c.skip = pred
	}
}

// SkipNone restores strict mode: any byte between netstrings is an error.
// This is the default.
func SkipNone() Option {
	return SkipBytes(nil)
}

// SkipASCIIWhitespace skips space, \t, \n, \r, \v and \f between netstrings.
func SkipASCIIWhitespace() Option {
	return SkipBytes(isASCIIWhitespace)
}

// SkipUnicodeWhitespace skips every byte that unicode.IsSpace accepts when
// read as a Latin-1 code point, which adds NEL (0x85) and NBSP (0xA0) to
// the ASCII set.
func SkipUnicodeWhitespace() Option {
	return SkipBytes(func(b byte) bool {
		return unicode.IsSpace(rune(b))
	})
}

// Lenient enables tolerance for whitespace between netstrings.
// It is shorthand for SkipASCIIWhitespace.
//
// This is useful for debugging producers that use echo or println,
// which add trailing newlines.
func Lenient() Option {
	return SkipASCIIWhitespace()
}

// MaxLength sets the maximum allowed netstring length in bytes.
// Netstrings with length fields exceeding this value fail with ErrTooLarge
// before any payload byte is buffered. Negative values are treated as 0.
//
// Default: DefaultMaxLength
func MaxLength(n int) Option {
	return func(c *config) {
		c.maxLength = max(n, 0)
	}
}

// BufferSize sets how many bytes the decoder asks the source for per read.
// Values below 1 select DefaultBufferSize.
func BufferSize(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = DefaultBufferSize
		}
		c.bufferSize = n
	}
}

func isASCIIWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

package netstr

import (
	"errors"
	"fmt"
	"io"
)

// Sentinel errors
var (
	// ErrInvalidFormat indicates a malformed netstring. Every format error
	// below wraps it.
	ErrInvalidFormat = errors.New("netstr: invalid format")

	// ErrTooLarge indicates a netstring length exceeds the configured maximum.
	ErrTooLarge = errors.New("netstr: length exceeds maximum")

	// ErrIllegalSize indicates a byte that cannot start or continue a size field.
	ErrIllegalSize = fmt.Errorf("%w: illegal size field", ErrInvalidFormat)

	// ErrSizeTooWide indicates more than MaxSizeDigits digits before the ':'.
	ErrSizeTooWide = fmt.Errorf("%w: size field too wide", ErrInvalidFormat)

	// ErrMissingTerminator indicates the byte after the payload is not ','.
	ErrMissingTerminator = fmt.Errorf("%w: payload terminator not found", ErrInvalidFormat)

	// ErrUnexpectedEOF indicates the stream ended inside a netstring.
	// It also matches io.ErrUnexpectedEOF.
	ErrUnexpectedEOF = fmt.Errorf("%w: %w", ErrInvalidFormat, io.ErrUnexpectedEOF)

	// ErrMissingKey indicates a keyed netstring with an empty payload.
	ErrMissingKey = fmt.Errorf("%w: keyed netstring has no key", ErrInvalidFormat)

	// ErrTrailingData is returned by Unmarshal when bytes follow the netstring.
	ErrTrailingData = fmt.Errorf("%w: trailing data after netstring", ErrInvalidFormat)
)

// FormatError provides detailed information about a decoding error.
type FormatError struct {
	Kind   error  // One of the sentinel errors above
	Offset int64  // Byte offset in the stream where the error was detected
	Reason string // Human-readable explanation
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("netstr: format error at offset %d: %s", e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Kind
}

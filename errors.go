package midi

import "github.com/pkg/errors"

// FormatError is returned for data that violates the wire format. It is
// never returned for misuse of the API.
type FormatError struct {
	msg string
}

func (e *FormatError) Error() string {
	return e.msg
}

func formatError(msg string) *FormatError {
	return &FormatError{msg: msg}
}

var (
	ErrBadMagic              = formatError("expected start of file marker 'MThd'")
	ErrBadHeaderLength       = formatError("invalid header size (expected 6 bytes)")
	ErrTrackCountMismatch    = formatError("number of tracks mismatch file type (expected 1 track)")
	ErrUnknownFileType       = formatError("unknown file type")
	ErrBadTrackMagic         = formatError("track did not start with 'MTrk'")
	ErrMissingStatus         = formatError("message does not start with status byte and no running status known")
	ErrTruncated             = formatError("varint truncated: continuation bit set on last byte")
	ErrVarintOverflow        = formatError("varint overflows 64 bits")
	ErrUnexpectedEndOfBuffer = formatError("unexpected end of buffer")

	ErrInvalidChannel  = formatError("invalid channel (0-15)")
	ErrInvalidDataByte = formatError("invalid data byte (0-127)")
	ErrInvalidStatus   = formatError("invalid status byte")
	ErrInvalidFileType = formatError("invalid file type")
)

var (
	// ErrTrackComplete is returned when an event is added to a track that
	// already holds its end-of-track event.
	ErrTrackComplete = errors.New("tried to add an event to a completed track")

	// ErrTooManyTracks is a warning: the track is still added.
	ErrTooManyTracks = errors.New("tracks exceed number of tracks in header")

	ErrDecoderHalted = errors.New("decoder halted after fatal error")
)

// IsFormatError reports whether err (or anything it wraps) is a format
// violation.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

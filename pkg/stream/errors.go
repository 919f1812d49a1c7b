package stream

import "errors"

var (
	// ErrClosed is returned by any operation on a closed stream.
	ErrClosed = errors.New("stream is closed")
	// ErrNotReadable is returned when reading or seeking a stream that
	// was not opened for reading.
	ErrNotReadable = errors.New("stream not open for reading")
	// ErrNotWritable is returned when writing a stream that was not
	// opened for writing.
	ErrNotWritable = errors.New("stream not open for writing")
	// ErrNotSeekable is returned when an operation needs to reposition
	// a backing store that does not support seeking.
	ErrNotSeekable = errors.New("backing store does not support seeking")
	// ErrNegativeOffset is returned when a seek would move the logical
	// cursor before the start of the stream.
	ErrNegativeOffset = errors.New("seek to negative offset")
	// ErrInvalidMode is returned for mode strings containing unknown
	// characters or no primary mode.
	ErrInvalidMode = errors.New("invalid mode string")
	// ErrModeConflict is returned for mode strings combining more than
	// one primary mode, e.g. "rw".
	ErrModeConflict = errors.New("conflicting mode string")
)

package ustar

import (
	cerrdefs "github.com/containerd/errdefs"
)

// classified is a sentinel error that belongs to an errdefs class, so callers
// can match either the sentinel with [errors.Is] or the class with the
// errdefs helpers.
type classified struct {
	msg   string
	class error
}

func (e *classified) Error() string { return e.msg }
func (e *classified) Unwrap() error { return e.class }

var (
	// ErrInvalidFormat is returned for a magic field that is neither "ustar"
	// nor empty, and for a size field that is not octal.
	ErrInvalidFormat error = &classified{"invalid ustar archive", cerrdefs.ErrInvalidArgument}

	// ErrUnsupportedEntryType is returned by Kind for any typeflag other
	// than a regular file or a directory.
	ErrUnsupportedEntryType error = &classified{"unsupported entry type", cerrdefs.ErrNotImplemented}

	// ErrIO is returned when the underlying stream fails or ends in the
	// middle of a block.
	ErrIO error = &classified{"archive read failed", cerrdefs.ErrDataLoss}

	// ErrExhausted is returned when the reader is used after the last entry.
	ErrExhausted error = &classified{"no current entry", cerrdefs.ErrFailedPrecondition}
)

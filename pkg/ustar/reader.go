package ustar

import (
	"errors"
	"fmt"
	"io"
)

// maxPrealloc bounds the payload buffer reserved before any block is read.
const maxPrealloc = 1 << 20

// Reader is a cursor over a ustar stream. It holds exactly one header at a
// time; the payload of that header is read lazily on the first call to
// [Reader.Payload] and dropped when the cursor moves on.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	r      io.Reader
	hdr    Header
	offset int64

	// payload caches the current entry's contents once materialized is set.
	payload      []byte
	materialized bool

	exhausted bool

	// err is sticky: once the stream has failed the cursor position is
	// unknown and every later call returns it.
	err error
}

// NewReader loads the first header from r. It fails with [ErrInvalidFormat]
// if the header carries a magic other than "ustar". An empty stream, or one
// whose first block has an empty name, yields a Reader that is already
// [Reader.Done].
func NewReader(r io.Reader) (*Reader, error) {
	tr := &Reader{r: r}
	if err := tr.readHeader(); err != nil {
		return nil, err
	}
	return tr, nil
}

// readHeader overwrites the current header with the next block of the
// stream.
func (tr *Reader) readHeader() error {
	tr.payload = nil
	tr.materialized = false

	n, err := io.ReadFull(tr.r, tr.hdr[:])
	tr.offset += int64(n)
	switch {
	case errors.Is(err, io.EOF):
		// A clean end of stream on a block boundary ends the archive the
		// same way a terminator block does.
		tr.exhausted = true
		return nil
	case err != nil:
		return tr.fail(fmt.Errorf("%w: reading header at offset %d: %w", ErrIO, tr.offset-int64(n), err))
	}

	if err := tr.hdr.validate(); err != nil {
		return tr.fail(err)
	}
	if tr.hdr.Name() == "" {
		tr.exhausted = true
	}
	return nil
}

func (tr *Reader) fail(err error) error {
	tr.err = err
	return err
}

// Done reports whether the cursor has moved past the last entry.
func (tr *Reader) Done() bool {
	return tr.exhausted
}

// Offset returns the number of bytes consumed from the underlying stream.
func (tr *Reader) Offset() int64 {
	return tr.offset
}

// Header returns the current header block. The block is overwritten by
// [Reader.Next] and must not be retained or modified.
func (tr *Reader) Header() *Header {
	return &tr.hdr
}

// Path returns the path of the current entry, or "" once the reader is done.
func (tr *Reader) Path() string {
	if tr.exhausted {
		return ""
	}
	return tr.hdr.Name()
}

// Kind returns the kind of the current entry.
func (tr *Reader) Kind() (Kind, error) {
	if err := tr.check(); err != nil {
		return 0, err
	}
	return tr.hdr.Kind()
}

// Size returns the declared payload size of the current entry.
func (tr *Reader) Size() (int64, error) {
	if err := tr.check(); err != nil {
		return 0, err
	}
	return tr.hdr.Size()
}

func (tr *Reader) check() error {
	if tr.err != nil {
		return tr.err
	}
	if tr.exhausted {
		return ErrExhausted
	}
	return nil
}

// Payload returns the contents of the current entry. The first call reads
// every payload block of the entry and keeps the declared number of bytes,
// dropping the block padding. Later calls return the cached slice, which
// stays valid until the next call to [Reader.Next].
func (tr *Reader) Payload() ([]byte, error) {
	if err := tr.check(); err != nil {
		return nil, err
	}
	if tr.materialized {
		return tr.payload, nil
	}

	size, err := tr.hdr.Size()
	if err != nil {
		return nil, tr.fail(err)
	}

	// The declared size is untrusted until the blocks have been read, so
	// only a bounded amount is reserved upfront.
	var (
		block     [BlockSize]byte
		payload   = make([]byte, 0, min(size, maxPrealloc))
		remaining = size
	)
	for remaining > 0 {
		n, err := io.ReadFull(tr.r, block[:])
		tr.offset += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, tr.fail(fmt.Errorf("%w: reading payload of %q (%d of %d bytes left): %w", ErrIO, tr.hdr.Name(), remaining, size, err))
		}
		keep := min(remaining, BlockSize)
		payload = append(payload, block[:keep]...)
		remaining -= keep
	}

	tr.payload = payload
	tr.materialized = true
	return tr.payload, nil
}

// Next moves the cursor to the following header. The payload of the current
// entry is consumed first if the caller has not read it, so the stream is
// always block aligned. Next returns false once the archive is exhausted.
func (tr *Reader) Next() (bool, error) {
	if err := tr.check(); err != nil {
		return false, err
	}
	if _, err := tr.Payload(); err != nil {
		return false, err
	}
	if err := tr.readHeader(); err != nil {
		return false, err
	}
	return !tr.exhausted, nil
}

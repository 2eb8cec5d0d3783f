package ustar

import (
	"bytes"
	"fmt"
	"strings"
)

// Kind is the type of an archive entry.
type Kind int

const (
	KindFile      Kind = iota // KindFile is a regular file.
	KindDirectory             // KindDirectory is a directory.
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Header is a single 512-byte header block.
type Header [BlockSize]byte

// cString returns b up to, and not including, the first NUL byte.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Magic returns the magic field with surrounding whitespace removed. It is
// "ustar" for ustar headers and empty for terminator blocks.
func (h *Header) Magic() string {
	return strings.TrimSpace(cString(fieldLayout.magic.bytes(h)))
}

// Name returns the entry path. For ustar headers with a non-empty prefix
// field the path is prefix + "/" + name.
func (h *Header) Name() string {
	name := cString(fieldLayout.name.bytes(h))
	if h.Magic() != Magic {
		return name
	}
	if prefix := cString(fieldLayout.prefix.bytes(h)); prefix != "" {
		return prefix + "/" + name
	}
	return name
}

// Typeflag returns the raw typeflag byte.
func (h *Header) Typeflag() byte {
	return fieldLayout.typeflag.bytes(h)[0]
}

// Kind decodes the typeflag. Anything other than a regular file or a
// directory fails with [ErrUnsupportedEntryType].
func (h *Header) Kind() (Kind, error) {
	switch t := h.Typeflag(); t {
	case TypeRegA, TypeReg:
		return KindFile, nil
	case TypeDir:
		return KindDirectory, nil
	default:
		return 0, fmt.Errorf("%w: typeflag %q", ErrUnsupportedEntryType, t)
	}
}

// Size decodes the octal size field. Leading and trailing NUL or space
// padding is ignored; any other non-octal byte fails with
// [ErrInvalidFormat]. A field holding only padding is zero.
func (h *Header) Size() (int64, error) {
	raw := fieldLayout.size.bytes(h)
	digits := bytes.Trim(raw, " \x00")

	// 11 octal digits top out at 8^11-1, well inside int64.
	var n int64
	for _, c := range digits {
		if c < '0' || c > '7' {
			return 0, fmt.Errorf("%w: size field %q is not octal", ErrInvalidFormat, raw)
		}
		n = n<<3 | int64(c-'0')
	}
	return n, nil
}

// IsZero reports whether every byte of the block is zero.
func (h *Header) IsZero() bool {
	for _, c := range h {
		if c != 0 {
			return false
		}
	}
	return true
}

// validate checks the magic field of a freshly loaded block.
func (h *Header) validate() error {
	if m := h.Magic(); m != Magic && m != "" {
		return fmt.Errorf("%w: magic %q, only ustar is supported", ErrInvalidFormat, m)
	}
	return nil
}

package compression

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/containerd/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression is the state represents if compressed or not.
type Compression int

const (
	None  Compression = 0 // None represents the uncompressed.
	Bzip2 Compression = 1 // Bzip2 is bzip2 compression algorithm.
	Gzip  Compression = 2 // Gzip is gzip compression algorithm.
	Xz    Compression = 3 // Xz is xz compression algorithm.
	Zstd  Compression = 4 // Zstd is zstd compression algorithm.
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Bzip2:
		return "bzip2"
	case Gzip:
		return "gzip"
	case Xz:
		return "xz"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", int(c))
	}
}

// ParseCompression returns the compression named by s, as printed by
// [Compression.String].
func ParseCompression(s string) (Compression, error) {
	for _, c := range []Compression{None, Bzip2, Gzip, Xz, Zstd} {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return None, fmt.Errorf("unknown compression %q", s)
}

// suffixes maps lower-cased file name suffixes to the compression they
// imply. Only gzip is selected by name; other algorithms must be sniffed
// or requested explicitly, so a raw archive with any other name is parsed
// as is.
var suffixes = []struct {
	suffix      string
	compression Compression
}{
	{".tgz", Gzip},
	{".gz", Gzip},
}

// FromPath returns the compression implied by the extension of path,
// compared case-insensitively. Unknown extensions are [None].
func FromPath(path string) Compression {
	name := strings.ToLower(filepath.Base(path))
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.compression
		}
	}
	return None
}

const (
	zstdMagicSkippableStart = 0x184D2A50
	zstdMagicSkippableMask  = 0xFFFFFFF0
)

var (
	bzip2Magic = []byte{0x42, 0x5A, 0x68}
	gzipMagic  = []byte{0x1F, 0x8B, 0x08}
	xzMagic    = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

type matcher = func([]byte) bool

func magicNumberMatcher(m []byte) matcher {
	return func(source []byte) bool {
		return bytes.HasPrefix(source, m)
	}
}

// zstdMatcher detects zstd compression algorithm.
// Zstandard compressed data is made of one or more frames.
// There are two frame formats defined by Zstandard: Zstandard frames and Skippable frames.
// See https://datatracker.ietf.org/doc/html/rfc8878#section-3 for more details.
func zstdMatcher() matcher {
	return func(source []byte) bool {
		if bytes.HasPrefix(source, zstdMagic) {
			// Zstandard frame
			return true
		}
		// skippable frame
		if len(source) < 8 {
			return false
		}
		// magic number from 0x184D2A50 to 0x184D2A5F.
		if binary.LittleEndian.Uint32(source[:4])&zstdMagicSkippableMask == zstdMagicSkippableStart {
			return true
		}
		return false
	}
}

// Detect detects the compression algorithm of the source.
func Detect(source []byte) Compression {
	compressionMap := map[Compression]matcher{
		Bzip2: magicNumberMatcher(bzip2Magic),
		Gzip:  magicNumberMatcher(gzipMagic),
		Xz:    magicNumberMatcher(xzMagic),
		Zstd:  zstdMatcher(),
	}
	for _, compression := range []Compression{Bzip2, Gzip, Xz, Zstd} {
		fn := compressionMap[compression]
		if fn(source) {
			return compression
		}
	}
	return None
}

// sniffLen is enough to hold the longest magic number.
const sniffLen = 10

// Sniff detects the compression of r from its leading bytes without
// consuming them: the returned reader yields the complete stream.
func Sniff(r io.Reader) (Compression, io.Reader, error) {
	buf := bufio.NewReader(r)
	bs, err := buf.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		// A stream shorter than sniffLen is still a valid (possibly empty)
		// stream; only a failure of the source is reported.
		return None, nil, err
	}
	return Detect(bs), buf, nil
}

type readCloserWrapper struct {
	io.Reader
	closer func() error
	closed atomic.Bool
}

func (r *readCloserWrapper) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		log.G(context.TODO()).Debug("subsequent attempt to close decompressor ignored")
		return nil
	}
	if r.closer != nil {
		return r.closer()
	}
	return nil
}

// DecompressStream wraps archive in a decompressor for the given compression
// and returns a ReaderCloser with the decompressed archive. Closing it does
// not close archive.
func DecompressStream(archive io.Reader, compression Compression) (io.ReadCloser, error) {
	switch compression {
	case None:
		return &readCloserWrapper{Reader: archive}, nil
	case Gzip:
		gzReader, err := gzip.NewReader(archive)
		if err != nil {
			return nil, err
		}
		return &readCloserWrapper{
			Reader: gzReader,
			closer: gzReader.Close,
		}, nil
	case Bzip2:
		bz2Reader := bzip2.NewReader(archive)
		return &readCloserWrapper{
			Reader: bz2Reader,
		}, nil
	case Xz:
		xzReader, err := xz.NewReader(archive)
		if err != nil {
			return nil, err
		}
		return &readCloserWrapper{
			Reader: xzReader,
		}, nil
	case Zstd:
		zstdReader, err := zstd.NewReader(archive)
		if err != nil {
			return nil, err
		}
		return &readCloserWrapper{
			Reader: zstdReader,
			closer: func() error {
				zstdReader.Close()
				return nil
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported compression format (%d)", compression)
	}
}

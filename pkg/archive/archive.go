// Package archive extracts ustar archives, optionally compressed, onto the
// local filesystem.
package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/containerd/log"
	"github.com/docker/go-units"
	"github.com/moby/sys/sequential"
	"github.com/pkg/errors"

	"github.com/moby/untar/pkg/archive/compression"
	"github.com/moby/untar/pkg/ustar"
)

// ExtractOptions controls how [ExtractAll] reads an archive.
type ExtractOptions struct {
	// Compression forces the decompressor to use. When nil the compression
	// is derived from the archive's file extension.
	Compression *compression.Compression

	// Sniff detects the compression from the leading bytes of the archive
	// when the file extension does not name one.
	Sniff bool
}

// summary counts what has been extracted so far.
type summary struct {
	entries int
	files   int
	dirs    int
	bytes   int64
}

// ExtractAll extracts every entry of the archive at archivePath under root.
// Extraction stops at the first error; entries extracted before it are left
// in place.
func ExtractAll(ctx context.Context, archivePath, root string, options *ExtractOptions) (retErr error) {
	if options == nil {
		options = &ExtractOptions{}
	}

	f, err := sequential.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ustar.ErrIO, err)
	}
	defer func() {
		if err := f.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("%w: %w", ustar.ErrIO, err)
		}
	}()

	src, comp, err := selectSource(f, archivePath, options)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", archivePath)
	}

	ctx = log.WithLogger(ctx, log.G(ctx).WithFields(log.Fields{
		"archive":     archivePath,
		"compression": comp,
	}))
	log.G(ctx).Debug("opening archive")

	rc, err := compression.DecompressStream(src, comp)
	if err != nil {
		return fmt.Errorf("%w: %s decompression: %w", ustar.ErrIO, comp, err)
	}
	defer func() {
		if err := rc.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("%w: %w", ustar.ErrIO, err)
		}
	}()

	return Untar(ctx, rc, root)
}

// selectSource decides which decompressor applies to the archive, before
// any header is parsed.
func selectSource(r io.Reader, archivePath string, options *ExtractOptions) (io.Reader, compression.Compression, error) {
	if options.Compression != nil {
		return r, *options.Compression, nil
	}
	if c := compression.FromPath(archivePath); c != compression.None || !options.Sniff {
		return r, c, nil
	}
	c, r, err := compression.Sniff(r)
	if err != nil {
		return nil, compression.None, fmt.Errorf("%w: %w", ustar.ErrIO, err)
	}
	return r, c, nil
}

// Untar extracts every entry of the uncompressed ustar stream r under root.
func Untar(ctx context.Context, r io.Reader, root string) error {
	tr, err := ustar.NewReader(r)
	if err != nil {
		return err
	}

	var s summary
	for more := !tr.Done(); more; {
		if err := Extract(ctx, root, tr); err != nil {
			return errors.Wrapf(err, "failed to extract %q", tr.Path())
		}
		s.add(tr)

		path := tr.Path()
		more, err = tr.Next()
		if err != nil {
			return errors.Wrapf(err, "failed to read entry after %q", path)
		}
	}

	log.G(ctx).WithFields(log.Fields{
		"entries":     s.entries,
		"files":       s.files,
		"directories": s.dirs,
		"size":        units.HumanSize(float64(s.bytes)),
		"destination": root,
	}).Info("extracted archive")
	return nil
}

// add records an entry that [Extract] has accepted, so neither lookup can
// fail here.
func (s *summary) add(tr *ustar.Reader) {
	s.entries++
	if kind, _ := tr.Kind(); kind == ustar.KindDirectory {
		s.dirs++
		return
	}
	s.files++
	size, _ := tr.Size()
	s.bytes += size
}

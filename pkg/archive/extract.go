package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/containerd/log"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/docker/go-units"
	"github.com/moby/sys/atomicwriter"

	"github.com/moby/untar/pkg/ustar"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// ErrFilesystem wraps every failure to create a directory or write a file
// under the destination root.
var ErrFilesystem error = &fsError{}

type fsError struct {
	op   string
	path string
	err  error
}

func (e *fsError) Error() string {
	if e.err == nil {
		return "filesystem error"
	}
	return fmt.Sprintf("filesystem error: %s %s: %v", e.op, e.path, e.err)
}

func (e *fsError) Unwrap() []error {
	if e.err == nil {
		return []error{cerrdefs.ErrInternal}
	}
	return []error{cerrdefs.ErrInternal, e.err}
}

func (e *fsError) Is(target error) bool {
	return target == ErrFilesystem
}

func newFSError(op, path string, err error) error {
	return &fsError{op: op, path: path, err: err}
}

// Entry is a single archive member as seen by [Extract]. A [*ustar.Reader]
// positioned on an entry satisfies it.
type Entry interface {
	Path() string
	Kind() (ustar.Kind, error)
	Payload() ([]byte, error)
}

// Extract creates the directory, or writes the file, described by e under
// root. Missing ancestors are created. An existing file at the same path is
// replaced; an existing directory is left as is. The entry path is resolved
// inside root, so ".." components cannot reach outside of it.
func Extract(ctx context.Context, root string, e Entry) error {
	kind, err := e.Kind()
	if err != nil {
		return err
	}

	target, err := securejoin.SecureJoin(root, e.Path())
	if err != nil {
		return newFSError("resolve", e.Path(), err)
	}

	switch kind {
	case ustar.KindDirectory:
		if err := os.MkdirAll(target, dirPerm); err != nil {
			return newFSError("mkdir", target, err)
		}
		log.G(ctx).WithFields(log.Fields{
			"path": e.Path(),
			"kind": kind,
		}).Debug("created directory")
		return nil

	case ustar.KindFile:
		payload, err := e.Payload()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
			return newFSError("mkdir", filepath.Dir(target), err)
		}
		if err := atomicwriter.WriteFile(target, payload, filePerm); err != nil {
			return newFSError("write", target, err)
		}
		log.G(ctx).WithFields(log.Fields{
			"path": e.Path(),
			"kind": kind,
			"size": units.HumanSize(float64(len(payload))),
		}).Debug("wrote file")
		return nil

	default:
		return fmt.Errorf("%w: %s", ustar.ErrUnsupportedEntryType, kind)
	}
}

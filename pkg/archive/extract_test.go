package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"

	"github.com/moby/untar/pkg/ustar"
)

type fakeEntry struct {
	path    string
	kind    ustar.Kind
	kindErr error
	payload string

	payloadCalls int
}

func (e *fakeEntry) Path() string { return e.path }

func (e *fakeEntry) Kind() (ustar.Kind, error) { return e.kind, e.kindErr }

func (e *fakeEntry) Payload() ([]byte, error) {
	e.payloadCalls++
	return []byte(e.payload), nil
}

func TestExtractFile(t *testing.T) {
	root := fs.NewDir(t, "extract")
	defer root.Remove()

	err := Extract(context.Background(), root.Path(), &fakeEntry{path: "hello.txt", kind: ustar.KindFile, payload: "world"})
	assert.NilError(t, err)

	expected := fs.Expected(t, fs.MatchAnyFileMode,
		fs.WithFile("hello.txt", "world", fs.MatchAnyFileMode),
	)
	assert.Assert(t, fs.Equal(root.Path(), expected))
}

func TestExtractFileCreatesAncestors(t *testing.T) {
	root := fs.NewDir(t, "extract")
	defer root.Remove()

	err := Extract(context.Background(), root.Path(), &fakeEntry{path: "a/b/c.txt", kind: ustar.KindFile, payload: "nested"})
	assert.NilError(t, err)

	expected := fs.Expected(t, fs.MatchAnyFileMode,
		fs.WithDir("a", fs.MatchAnyFileMode,
			fs.WithDir("b", fs.MatchAnyFileMode,
				fs.WithFile("c.txt", "nested", fs.MatchAnyFileMode),
			),
		),
	)
	assert.Assert(t, fs.Equal(root.Path(), expected))
}

func TestExtractEmptyFile(t *testing.T) {
	root := fs.NewDir(t, "extract")
	defer root.Remove()

	err := Extract(context.Background(), root.Path(), &fakeEntry{path: "empty", kind: ustar.KindFile})
	assert.NilError(t, err)

	fi, err := os.Stat(filepath.Join(root.Path(), "empty"))
	assert.NilError(t, err)
	assert.Check(t, fi.Mode().IsRegular())
	assert.Check(t, is.Equal(fi.Size(), int64(0)))
}

func TestExtractOverwritesFile(t *testing.T) {
	root := fs.NewDir(t, "extract", fs.WithFile("hello.txt", "a much longer previous content"))
	defer root.Remove()

	err := Extract(context.Background(), root.Path(), &fakeEntry{path: "hello.txt", kind: ustar.KindFile, payload: "world"})
	assert.NilError(t, err)

	content, err := os.ReadFile(filepath.Join(root.Path(), "hello.txt"))
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(content), "world"))
}

func TestExtractDirectory(t *testing.T) {
	root := fs.NewDir(t, "extract")
	defer root.Remove()

	entry := &fakeEntry{path: "dir/sub/", kind: ustar.KindDirectory}
	assert.NilError(t, Extract(context.Background(), root.Path(), entry))
	// Existing directories are fine.
	assert.NilError(t, Extract(context.Background(), root.Path(), entry))
	assert.Check(t, is.Equal(entry.payloadCalls, 0))

	expected := fs.Expected(t, fs.MatchAnyFileMode,
		fs.WithDir("dir", fs.MatchAnyFileMode,
			fs.WithDir("sub", fs.MatchAnyFileMode),
		),
	)
	assert.Assert(t, fs.Equal(root.Path(), expected))
}

func TestExtractUnsupportedCreatesNothing(t *testing.T) {
	root := fs.NewDir(t, "extract")
	defer root.Remove()

	entry := &fakeEntry{path: "dir/link", kindErr: ustar.ErrUnsupportedEntryType}
	err := Extract(context.Background(), root.Path(), entry)
	assert.Check(t, is.ErrorIs(err, ustar.ErrUnsupportedEntryType))
	assert.Check(t, is.Equal(entry.payloadCalls, 0))

	assert.Assert(t, fs.Equal(root.Path(), fs.Expected(t, fs.MatchAnyFileMode)))
}

func TestExtractStaysInsideRoot(t *testing.T) {
	parent := fs.NewDir(t, "parent", fs.WithDir("root"))
	defer parent.Remove()
	root := filepath.Join(parent.Path(), "root")

	err := Extract(context.Background(), root, &fakeEntry{path: "../../escape.txt", kind: ustar.KindFile, payload: "x"})
	assert.NilError(t, err)

	expected := fs.Expected(t, fs.MatchAnyFileMode,
		fs.WithDir("root", fs.MatchAnyFileMode,
			fs.WithFile("escape.txt", "x", fs.MatchAnyFileMode),
		),
	)
	assert.Assert(t, fs.Equal(parent.Path(), expected))
}

func TestExtractFileOverDirectory(t *testing.T) {
	root := fs.NewDir(t, "extract", fs.WithDir("taken"))
	defer root.Remove()

	err := Extract(context.Background(), root.Path(), &fakeEntry{path: "taken", kind: ustar.KindFile, payload: "x"})
	assert.Check(t, is.ErrorIs(err, ErrFilesystem))
	assert.Check(t, is.ErrorType(err, cerrdefs.IsInternal))
	assert.Check(t, is.ErrorContains(err, "taken"))
}

func TestExtractDirectoryUnderFile(t *testing.T) {
	root := fs.NewDir(t, "extract", fs.WithFile("plain", "x"))
	defer root.Remove()

	err := Extract(context.Background(), root.Path(), &fakeEntry{path: "plain/dir", kind: ustar.KindDirectory})
	assert.Check(t, is.ErrorIs(err, ErrFilesystem))
}

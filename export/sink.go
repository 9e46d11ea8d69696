package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SaveSink persists the bytes behind a handle under a suggested filename.
type SaveSink interface {
	Save(ctx context.Context, h Handle, filename string) error
}

// ContextOpener asks the host to show a locator in a new viewing context.
// It is best effort and reports nothing.
type ContextOpener interface {
	Open(ctx context.Context, src string)
}

// DirSink saves files into a directory. An existing file of the same name is
// replaced.
type DirSink struct {
	Dir string
}

var errBadFilename = errors.New("filename must not contain a path")

func (s DirSink) Save(ctx context.Context, h Handle, filename string) error {
	if filename == "" || filepath.Base(filename) != filename {
		return fmt.Errorf("%w: %q", errBadFilename, filename)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	src, err := os.Open(h.Path())
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := os.CreateTemp(s.Dir, filename+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filepath.Join(s.Dir, filename)); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

package export

import (
	"errors"
	"os"
	"sync"
)

// Handle is a temporary local copy of fetched bytes.
type Handle interface {
	// Path is a local file holding the bytes.
	Path() string
	// Release frees the handle. Only the first call has an effect.
	Release() error
}

// Materializer turns fetched bytes into a Handle.
type Materializer interface {
	Materialize(r Resource) (Handle, error)
}

// TempMaterializer writes resources into temp files below Dir,
// or the system temp dir when Dir is empty.
type TempMaterializer struct {
	Dir string
}

func (m TempMaterializer) Materialize(r Resource) (Handle, error) {
	f, err := os.CreateTemp(m.Dir, "asset-*")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(r.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, err
	}
	return &tempFile{path: f.Name()}, nil
}

type tempFile struct {
	path string
	once sync.Once
	err  error
}

func (h *tempFile) Path() string {
	return h.path
}

func (h *tempFile) Release() error {
	h.once.Do(func() {
		err := os.Remove(h.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			h.err = err
		}
	})
	return h.err
}

package export_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewport-preview/export"
)

type fakeFetcher struct {
	resources map[string]export.Resource
	err       error
}

func (f fakeFetcher) Fetch(ctx context.Context, src string) (export.Resource, error) {
	if f.err != nil {
		return export.Resource{}, f.err
	}
	r, ok := f.resources[src]
	if !ok {
		return export.Resource{}, export.HTTPError{StatusCode: 404, Status: "404 Not Found"}
	}
	return r, nil
}

// countingMaterializer hands out handles that count their releases.
type countingMaterializer struct {
	mu       sync.Mutex
	handles  []*countingHandle
	err      error
	rerr     error
	lastData []byte
}

type countingHandle struct {
	mu       sync.Mutex
	releases int
	err      error
}

func (h *countingHandle) Path() string { return "mem://handle" }

func (h *countingHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releases++
	return h.err
}

func (m *countingMaterializer) Materialize(r export.Resource) (export.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	h := &countingHandle{err: m.rerr}
	m.handles = append(m.handles, h)
	m.lastData = r.Data
	return h, nil
}

type recordingSink struct {
	mu    sync.Mutex
	names []string
	err   error
	panic bool
}

func (s *recordingSink) Save(ctx context.Context, h export.Handle, filename string) error {
	if s.panic {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, filename)
	return s.err
}

type recordingOpener struct {
	opened []string
}

func (o *recordingOpener) Open(ctx context.Context, src string) {
	o.opened = append(o.opened, src)
}

func jpegFetcher() fakeFetcher {
	return fakeFetcher{resources: map[string]export.Resource{
		"https://x/img.jpg": {Data: []byte("jpeg-bytes"), ContentType: "image/jpeg"},
	}}
}

func assertReleasedOnce(t *testing.T, m *countingMaterializer) {
	t.Helper()
	require.Len(t, m.handles, 1)
	assert.Equal(t, 1, m.handles[0].releases)
}

func TestExportAsset(t *testing.T) {
	ctx := context.Background()
	t.Run("should name the file after index and content type", func(t *testing.T) {
		m := &countingMaterializer{}
		s := &recordingSink{}
		e := export.New(jpegFetcher(), m, s, nil)
		name, err := e.ExportAsset(ctx, "https://x/img.jpg", 0)
		require.NoError(t, err)
		assert.Equal(t, "image-1.jpg", name)
		assert.Equal(t, []string{"image-1.jpg"}, s.names)
		assert.Equal(t, []byte("jpeg-bytes"), m.lastData)
		assertReleasedOnce(t, m)
	})
	t.Run("should report fetch failure without creating a handle", func(t *testing.T) {
		errNet := errors.New("connection refused")
		m := &countingMaterializer{}
		s := &recordingSink{}
		e := export.New(fakeFetcher{err: errNet}, m, s, nil)
		_, err := e.ExportAsset(ctx, "https://x/img.jpg", 0)
		assert.ErrorIs(t, err, export.ErrFetchFailed)
		assert.ErrorIs(t, err, errNet)
		var fe *export.FetchError
		if assert.ErrorAs(t, err, &fe) {
			assert.Equal(t, "https://x/img.jpg", fe.Src)
		}
		assert.Empty(t, m.handles)
		assert.Empty(t, s.names)
	})
	t.Run("should release handle when save fails", func(t *testing.T) {
		errSave := errors.New("disk full")
		m := &countingMaterializer{}
		e := export.New(jpegFetcher(), m, &recordingSink{err: errSave}, nil)
		name, err := e.ExportAsset(ctx, "https://x/img.jpg", 2)
		assert.ErrorIs(t, err, errSave)
		assert.Equal(t, "image-3.jpg", name)
		assertReleasedOnce(t, m)
	})
	t.Run("should release handle when save panics", func(t *testing.T) {
		m := &countingMaterializer{}
		e := export.New(jpegFetcher(), m, &recordingSink{panic: true}, nil)
		assert.Panics(t, func() {
			_, _ = e.ExportAsset(ctx, "https://x/img.jpg", 0)
		})
		assertReleasedOnce(t, m)
	})
	t.Run("should report release failure after successful save", func(t *testing.T) {
		errRelease := errors.New("busy")
		m := &countingMaterializer{rerr: errRelease}
		e := export.New(jpegFetcher(), m, &recordingSink{}, nil)
		_, err := e.ExportAsset(ctx, "https://x/img.jpg", 0)
		assert.ErrorIs(t, err, errRelease)
		assertReleasedOnce(t, m)
	})
	t.Run("should report both save and release failures", func(t *testing.T) {
		errSave := errors.New("disk full")
		errRelease := errors.New("busy")
		m := &countingMaterializer{rerr: errRelease}
		e := export.New(jpegFetcher(), m, &recordingSink{err: errSave}, nil)
		_, err := e.ExportAsset(ctx, "https://x/img.jpg", 0)
		assert.ErrorIs(t, err, errSave)
		assert.ErrorIs(t, err, errRelease)
		assertReleasedOnce(t, m)
	})
	t.Run("should report materialize failure", func(t *testing.T) {
		errTmp := errors.New("no space")
		m := &countingMaterializer{err: errTmp}
		s := &recordingSink{}
		e := export.New(jpegFetcher(), m, s, nil)
		_, err := e.ExportAsset(ctx, "https://x/img.jpg", 0)
		assert.ErrorIs(t, err, errTmp)
		assert.Empty(t, s.names)
	})
	t.Run("should reject negative index before fetching", func(t *testing.T) {
		m := &countingMaterializer{}
		e := export.New(jpegFetcher(), m, &recordingSink{}, nil)
		_, err := e.ExportAsset(ctx, "https://x/img.jpg", -1)
		assert.ErrorIs(t, err, export.ErrInvalidIndex)
		assert.Empty(t, m.handles)
	})
}

func TestExportAll(t *testing.T) {
	resources := make(map[string]export.Resource)
	var assets []export.ImageAsset
	for i := range 6 {
		src := fmt.Sprintf("https://x/%d.png", i)
		if i != 3 {
			resources[src] = export.Resource{Data: []byte{byte(i)}, ContentType: "image/png"}
		}
		assets = append(assets, export.ImageAsset{Src: src, Width: 10, Height: 10})
	}
	m := &countingMaterializer{}
	s := &recordingSink{}
	e := export.New(fakeFetcher{resources: resources}, m, s, nil)
	e.Concurrency = 2

	results, err := e.ExportAll(context.Background(), assets)
	assert.ErrorIs(t, err, export.ErrFetchFailed)
	require.Len(t, results, 6)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		if i == 3 {
			assert.Error(t, r.Err)
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, fmt.Sprintf("image-%d.png", i+1), r.Filename)
	}
	assert.Len(t, s.names, 5)
	require.Len(t, m.handles, 5)
	for _, h := range m.handles {
		assert.Equal(t, 1, h.releases)
	}
}

func TestOpenInNewContext(t *testing.T) {
	o := &recordingOpener{}
	e := export.New(jpegFetcher(), &countingMaterializer{}, &recordingSink{}, o)
	e.OpenInNewContext(context.Background(), "https://x/img.jpg")
	assert.Equal(t, []string{"https://x/img.jpg"}, o.opened)

	// Without an opener the request is dropped.
	export.New(jpegFetcher(), &countingMaterializer{}, &recordingSink{}, nil).
		OpenInNewContext(context.Background(), "https://x/img.jpg")
}

func TestExportToDirectory(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	url := "https://images.example.com/photo"
	tmpDir := t.TempDir()
	outDir := t.TempDir()
	e := export.New(
		export.NewHTTPFetcher(0, 0),
		export.TempMaterializer{Dir: tmpDir},
		export.DirSink{Dir: outDir},
		nil,
	)
	t.Run("can export an image from the network", func(t *testing.T) {
		// given
		httpmock.Reset()
		resp := httpmock.NewBytesResponder(200, []byte("webp-bytes")).HeaderSet(http.Header{"Content-Type": {"image/webp"}})
		httpmock.RegisterResponder("GET", url, resp)
		// when
		name, err := e.ExportAsset(context.Background(), url, 4)
		// then
		require.NoError(t, err)
		assert.Equal(t, "image-5.webp", name)
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Equal(t, []byte("webp-bytes"), data)
		entries, err := os.ReadDir(tmpDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "temp handle should be removed")
	})
	t.Run("should fall back to png without a content type", func(t *testing.T) {
		// given
		httpmock.Reset()
		httpmock.RegisterResponder("GET", url, httpmock.NewBytesResponder(200, []byte("x")))
		// when
		name, err := e.ExportAsset(context.Background(), url, 0)
		// then
		require.NoError(t, err)
		assert.Equal(t, "image-1.png", name)
	})
	t.Run("should report HTTP errors as fetch failures", func(t *testing.T) {
		// given
		httpmock.Reset()
		httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(404, ""))
		// when
		_, err := e.ExportAsset(context.Background(), url, 0)
		// then
		assert.ErrorIs(t, err, export.ErrFetchFailed)
		var httpErr export.HTTPError
		if assert.ErrorAs(t, err, &httpErr) {
			assert.Equal(t, 404, httpErr.StatusCode)
		}
		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotEqual(t, "image-1.png.tmp", e.Name())
		}
	})
	t.Run("should release temp file when sink rejects the name", func(t *testing.T) {
		// given
		httpmock.Reset()
		httpmock.RegisterResponder("GET", url, httpmock.NewBytesResponder(200, []byte("x")))
		sink := export.DirSink{Dir: filepath.Join(outDir, "missing", string([]byte{0}))}
		e := export.New(export.NewHTTPFetcher(0, 0), export.TempMaterializer{Dir: tmpDir}, sink, nil)
		// when
		_, err := e.ExportAsset(context.Background(), url, 0)
		// then
		assert.Error(t, err)
		entries, err := os.ReadDir(tmpDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestConcurrentExportsOfSameName(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	large := []byte(strings.Repeat("A", 4<<20))
	small := []byte(strings.Repeat("B", 1<<10))
	header := http.Header{"Content-Type": {"image/jpeg"}}
	httpmock.RegisterResponder("GET", "https://x/large.jpg", httpmock.NewBytesResponder(200, large).HeaderSet(header))
	httpmock.RegisterResponder("GET", "https://x/small.jpg", httpmock.NewBytesResponder(200, small).HeaderSet(header))
	tmpDir := t.TempDir()
	outDir := t.TempDir()
	e := export.New(export.NewHTTPFetcher(0, 0), export.TempMaterializer{Dir: tmpDir}, export.DirSink{Dir: outDir}, nil)

	for range 20 {
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, src := range []string{"https://x/large.jpg", "https://x/small.jpg"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = e.ExportAsset(context.Background(), src, 0)
			}()
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		data, err := os.ReadFile(filepath.Join(outDir, "image-1.jpg"))
		require.NoError(t, err)
		assert.True(t, string(data) == string(large) || string(data) == string(small), "file should hold one complete export")
	}
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "image-1.jpg", entries[0].Name())
	entries, err = os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDirSinkConcurrentSave(t *testing.T) {
	outDir := t.TempDir()
	sink := export.DirSink{Dir: outDir}
	m := export.TempMaterializer{Dir: t.TempDir()}
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.Materialize(export.Resource{Data: []byte(strings.Repeat(string(rune('a'+i)), 64<<10))})
			if err != nil {
				errs[i] = err
				return
			}
			defer h.Release()
			errs[i] = sink.Save(context.Background(), h, "image-1.png")
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "image-1.png"))
	require.NoError(t, err)
	require.Len(t, data, 64<<10)
	assert.Equal(t, strings.Repeat(string(data[0]), len(data)), string(data))
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

func TestHTTPFetcherMaxBytes(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	url := "https://images.example.com/big"
	httpmock.RegisterResponder("GET", url, httpmock.NewBytesResponder(200, make([]byte, 11)))
	f := export.NewHTTPFetcher(0, 10)
	_, err := f.Fetch(context.Background(), url)
	assert.Error(t, err)
}

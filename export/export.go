// Package export saves page images to local files.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

var (
	ErrFetchFailed  = errors.New("fetch failed")
	ErrInvalidIndex = errors.New("invalid asset index")
)

// FetchError reports a failed retrieval of Src. It matches ErrFetchFailed.
type FetchError struct {
	Src string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Src, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

// ImageAsset is an image shown in the viewer panel.
type ImageAsset struct {
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Result is the outcome of exporting one asset.
type Result struct {
	Src      string `json:"src"`
	Index    int    `json:"index"`
	Filename string `json:"filename,omitempty"`
	Err      error  `json:"-"`
}

const defaultConcurrency = 4

// Exporter runs the fetch, materialize, save and release sequence for assets.
// Exports do not share mutable state and may run concurrently.
type Exporter struct {
	fetcher      Fetcher
	materializer Materializer
	sink         SaveSink
	opener       ContextOpener

	// Concurrency limits parallel exports in ExportAll.
	Concurrency int
}

// New returns an Exporter. opener may be nil, in which case open requests
// are dropped.
func New(f Fetcher, m Materializer, s SaveSink, opener ContextOpener) *Exporter {
	return &Exporter{
		fetcher:      f,
		materializer: m,
		sink:         s,
		opener:       opener,
		Concurrency:  defaultConcurrency,
	}
}

// ExportAsset saves the resource at src as image-<index+1>.<ext> and returns
// that filename. The temporary handle is released exactly once on every path
// after it was created. There is no retry; callers may call again.
func (e *Exporter) ExportAsset(ctx context.Context, src string, index int) (filename string, err error) {
	if index < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	r, err := e.fetcher.Fetch(ctx, src)
	if err != nil {
		return "", &FetchError{Src: src, Err: err}
	}
	filename = FileName(index, ExtensionFor(r.ContentType))
	h, err := e.materializer.Materialize(r)
	if err != nil {
		return "", fmt.Errorf("materialize %s: %w", src, err)
	}
	defer func() {
		if rerr := h.Release(); rerr != nil {
			err = multierror.Append(err, fmt.Errorf("release %s: %w", h.Path(), rerr)).ErrorOrNil()
		}
	}()
	if err := e.sink.Save(ctx, h, filename); err != nil {
		return filename, fmt.Errorf("save %s: %w", filename, err)
	}
	slog.Info("Exported asset", "src", src, "filename", filename, "bytes", len(r.Data))
	return filename, nil
}

// ExportAll exports assets concurrently, keeping each asset's position as its
// index. All assets are attempted; the returned error combines all failures.
func (e *Exporter) ExportAll(ctx context.Context, assets []ImageAsset) ([]Result, error) {
	results := make([]Result, len(assets))
	var g errgroup.Group
	limit := e.Concurrency
	if limit < 1 {
		limit = defaultConcurrency
	}
	g.SetLimit(limit)
	for i, a := range assets {
		g.Go(func() error {
			name, err := e.ExportAsset(ctx, a.Src, i)
			results[i] = Result{Src: a.Src, Index: i, Filename: name, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			merr = multierror.Append(merr, r.Err)
		}
	}
	return results, merr.ErrorOrNil()
}

// OpenInNewContext asks the host to open src in a new viewing context.
func (e *Exporter) OpenInNewContext(ctx context.Context, src string) {
	if e.opener == nil {
		slog.Debug("No context opener, dropping open request", "src", src)
		return
	}
	e.opener.Open(ctx, src)
}

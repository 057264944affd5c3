package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrHTTPStatus is returned for any non-2xx response.
var ErrHTTPStatus = errors.New("unexpected http status")

// Fetcher retrieves the raw bytes of one frame reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context, ref string) ([]byte, error)

func (f FetchFunc) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return f(ctx, ref)
}

// HTTPFetcher loads frames relative to BaseURL. When Quality is set, every
// successful transfer is recorded as a throughput sample.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
	Quality *QualityEstimator
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: baseURL,
		Client:  http.DefaultClient,
		Quality: NewQualityEstimator(),
	}
}

func (f *HTTPFetcher) resolve(ref string) (string, error) {
	if f.BaseURL == "" {
		return ref, nil
	}
	base, err := url.Parse(strings.TrimSuffix(f.BaseURL, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("base url: %w", err)
	}
	rel, err := url.Parse(strings.TrimPrefix(ref, "/"))
	if err != nil {
		return "", fmt.Errorf("frame url: %w", err)
	}
	return base.ResolveReference(rel).String(), nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	target, err := f.resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s %d", ErrHTTPStatus, target, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if f.Quality != nil {
		f.Quality.Observe(len(data), time.Since(started))
	}
	return data, nil
}

// Hint reports the effective connection type observed so far.
func (f *HTTPFetcher) Hint() string {
	if f.Quality == nil {
		return ""
	}
	return f.Quality.Hint()
}

// DirFetcher reads frames from the local filesystem, treating references as
// slash separated paths below Root.
type DirFetcher struct {
	Root string
}

func (f *DirFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.FromSlash(ref)
	if f.Root != "" {
		path = filepath.Join(f.Root, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// Hint is always a fast connection for local files.
func (f *DirFetcher) Hint() string {
	return "4g"
}

// NewFetcher picks the fetcher for a frame location: http(s) base URLs are
// fetched over the network, anything else is a local root directory.
func NewFetcher(location string, timeout time.Duration) Fetcher {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		f := NewHTTPFetcher(location)
		if timeout > 0 {
			f.Client = &http.Client{Timeout: timeout}
		}
		return f
	}
	return &DirFetcher{Root: location}
}

// Package source fetches project data sources (local files, http(s) URLs
// and s3:// objects) in parallel, optionally through a cache.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ChicagoDave/casemap/internal/logger"
	"github.com/ChicagoDave/casemap/internal/metrics"
)

// ObjectStore reads objects from a bucket.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Fetcher resolves source URIs to their contents.
type Fetcher struct {
	HTTP    *http.Client
	Objects ObjectStore
	// Cache holds remote (http and s3) contents for TTL. Local files are
	// never cached.
	Cache Cache
	TTL   time.Duration
	Log   *slog.Logger
}

// NewFetcher returns a fetcher with a 60 second HTTP timeout and no cache.
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTP: &http.Client{Timeout: 60 * time.Second},
		Log:  logger.L(),
	}
}

// Scheme returns the scheme of uri, "file" for plain paths.
func Scheme(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || len(u.Scheme) < 2 {
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// Fetch returns the contents of uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	scheme := Scheme(uri)
	start := time.Now()
	data, err := f.fetch(ctx, scheme, uri)
	metrics.SourceFetchDurationMs.WithLabelValues(scheme).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.SourceFetchTotal.WithLabelValues(scheme, "error").Inc()
		return nil, err
	}
	metrics.SourceFetchTotal.WithLabelValues(scheme, "ok").Inc()
	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context, scheme, uri string) ([]byte, error) {
	if scheme == "file" {
		return readFile(uri)
	}

	if f.Cache != nil {
		data, ok, err := f.Cache.Get(ctx, uri)
		if err != nil {
			f.log().Warn("source_cache_error", "uri", uri, "err", err)
		} else if ok {
			metrics.CacheHitsTotal.Inc()
			return data, nil
		}
		metrics.CacheMissesTotal.Inc()
	}

	var data []byte
	var err error
	switch scheme {
	case "http", "https":
		data, err = f.fetchHTTP(ctx, uri)
	case "s3":
		data, err = f.fetchObject(ctx, uri)
	default:
		err = fmt.Errorf("unsupported source scheme %q", scheme)
	}
	if err != nil {
		return nil, err
	}

	if f.Cache != nil {
		if err := f.Cache.Set(ctx, uri, data, f.TTL); err != nil {
			f.log().Warn("source_cache_error", "uri", uri, "err", err)
		}
	}
	return data, nil
}

func readFile(uri string) ([]byte, error) {
	path := strings.TrimPrefix(uri, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", uri, err)
	}
	client := f.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %s", uri, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", uri, err)
	}
	return data, nil
}

func (f *Fetcher) fetchObject(ctx context.Context, uri string) ([]byte, error) {
	if f.Objects == nil {
		return nil, fmt.Errorf("fetching %s: no object storage configured", uri)
	}
	bucket, key, err := SplitObjectURI(uri)
	if err != nil {
		return nil, err
	}
	obj, err := f.Objects.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", uri, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", uri, err)
	}
	return data, nil
}

// SplitObjectURI splits s3://bucket/key.
func SplitObjectURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parsing %s: %w", uri, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("object URI %q needs a bucket and a key", uri)
	}
	return u.Host, key, nil
}

// Result is the outcome of fetching one URI.
type Result struct {
	URI  string
	Data []byte
	Err  error
}

// FetchAll fetches every URI concurrently. Results keep the order of uris;
// a failed fetch is logged and reported in its Result without affecting
// the others.
func (f *Fetcher) FetchAll(ctx context.Context, uris []string) []Result {
	results := make([]Result, len(uris))
	var wg sync.WaitGroup
	for i, uri := range uris {
		wg.Add(1)
		go func(i int, uri string) {
			defer wg.Done()
			data, err := f.Fetch(ctx, uri)
			if err != nil {
				f.log().Warn("source_fetch_error", "uri", uri, "err", err)
			}
			results[i] = Result{URI: uri, Data: data, Err: err}
		}(i, uri)
	}
	wg.Wait()
	return results
}

func (f *Fetcher) log() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return logger.L()
}

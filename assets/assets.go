// Package assets fetches binary model files and caches the parsed result.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qmuntal/gltf"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned when a bucket has no such file.
var ErrNotFound = errors.New("asset not found")

// Key returns the cache key for a bucket file.
func Key(bucket, file string) string {
	return bucket + "/" + file
}

// Fetcher retrieves raw asset bytes.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, file string) ([]byte, error)
}

// DirFetcher reads assets from Root/<bucket>/<file>.
type DirFetcher struct {
	Root string
}

func (f DirFetcher) Fetch(_ context.Context, bucket, file string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.Root, bucket, filepath.FromSlash(file)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", Key(bucket, file), ErrNotFound)
	}
	return data, err
}

// HTTPFetcher downloads assets from BaseURL/<bucket>/<file>.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher creates a fetcher with the given request timeout.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, bucket, file string) ([]byte, error) {
	u, err := url.JoinPath(f.BaseURL, bucket, file)
	if err != nil {
		return nil, fmt.Errorf("building asset url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", Key(bucket, file), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", Key(bucket, file), ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching %s: status %d", Key(bucket, file), resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Model is the parsed summary of a glTF asset.
type Model struct {
	Key    string
	Clips  []string
	Meshes int
	Nodes  int
	Bytes  int
}

// HasClip reports whether the model carries the named animation.
func (m *Model) HasClip(name string) bool {
	for _, c := range m.Clips {
		if c == name {
			return true
		}
	}
	return false
}

// ParseModel decodes GLB or glTF JSON data.
func ParseModel(key string, data []byte) (*Model, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	m := &Model{
		Key:    key,
		Meshes: len(doc.Meshes),
		Nodes:  len(doc.Nodes),
		Bytes:  len(data),
	}
	for _, a := range doc.Animations {
		m.Clips = append(m.Clips, a.Name)
	}
	return m, nil
}

// Cache loads each key at most once and shares the result.
// Concurrent loads of one key share a single fetch.
type Cache struct {
	fetcher Fetcher
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]*Model

	fetches atomic.Int64
}

// NewCache creates a cache over fetcher.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		entries: make(map[string]*Model),
	}
}

// Load returns the parsed model for bucket/file, fetching it if needed.
// Failures are not cached.
func (c *Cache) Load(ctx context.Context, bucket, file string) (*Model, error) {
	key := Key(bucket, file)
	c.mu.RLock()
	m, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		m, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return m, nil
		}

		c.fetches.Add(1)
		data, err := c.fetcher.Fetch(ctx, bucket, file)
		if err != nil {
			return nil, err
		}
		m, err = ParseModel(key, data)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = m
		c.mu.Unlock()
		slog.Debug("asset_cached", "key", key, "bytes", m.Bytes, "clips", len(m.Clips))
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Model), nil
}

// Fetches returns how many times the underlying fetcher was called.
func (c *Cache) Fetches() int64 {
	return c.fetches.Load()
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Package cache stores fetched catalog pages on disk so repeated crawls of an
// unchanged catalog do not hit the origin.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Entry is one cached page.
type Entry struct {
	URL         string    `json:"url"`
	Body        []byte    `json:"body"`
	ContentType string    `json:"content_type,omitempty"`
	ETag        string    `json:"etag,omitempty"`
	LastMod     string    `json:"last_modified,omitempty"`
	StatusCode  int       `json:"status_code"`
	CachedAt    time.Time `json:"cached_at"`
}

// FileCache keeps entries under dir, sharded by the first byte of the key hash.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// New creates the cache directory if needed.
func New(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Get returns the entry for url and whether it is still fresh. An expired
// entry is still returned so callers can revalidate with ETag/Last-Modified.
func (c *FileCache) Get(url string) (*Entry, bool) {
	path := c.path(url)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.URL != url {
		_ = os.Remove(path)
		return nil, false
	}

	if c.expired(&entry) {
		return &entry, false
	}
	return &entry, true
}

// Set stores entry under url, stamping it with the current time.
func (c *FileCache) Set(url string, entry *Entry) error {
	entry.URL = url
	entry.CachedAt = c.now()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	path := c.path(url)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache shard: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Purge removes every expired or unreadable entry and reports how many went.
func (c *FileCache) Purge() (int, error) {
	removed := 0
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var entry Entry
		if json.Unmarshal(data, &entry) == nil && !c.expired(&entry) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("purging cache: %w", err)
	}
	return removed, nil
}

func (c *FileCache) expired(e *Entry) bool {
	return c.now().Sub(e.CachedAt) > c.ttl
}

func (c *FileCache) path(url string) string {
	h := sha256.Sum256([]byte(url))
	key := hex.EncodeToString(h[:])
	return filepath.Join(c.dir, key[:2], key)
}

// Package cache stores per-file detection results on disk, keyed by path and
// validated by a BLAKE3 content hash.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
)

// Cache provides file-based caching for analysis results. A disabled cache
// accepts every call and never hits.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	version string

	hits   atomic.Int64
	misses atomic.Int64
}

// Entry is the on-disk form of one cached result.
type Entry struct {
	Version   string          `json:"version"`
	Hash      string          `json:"hash"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithVersion tags entries with v. Entries written under another version
// are treated as misses, so bumping it invalidates the whole cache.
func WithVersion(v string) Option {
	return func(c *Cache) {
		c.version = v
	}
}

// New creates a cache rooted at dir. A ttlHours of 0 keeps entries until
// their content hash changes.
func New(dir string, ttlHours int, enabled bool, opts ...Option) (*Cache, error) {
	c := &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: enabled,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !enabled {
		return c, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return c, nil
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// GetWithHash returns the data stored for key if it was written with the
// same content hash and cache version and has not expired.
func (c *Cache) GetWithHash(key, hash string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	entry, ok := c.read(key)
	if !ok || entry.Hash != hash || entry.Version != c.version {
		c.misses.Add(1)
		return nil, false
	}
	if c.expired(entry) {
		_ = os.Remove(c.keyPath(key))
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.Data, true
}

// SetWithHash stores data for key. data must be valid JSON.
func (c *Cache) SetWithHash(key, hash string, data []byte) error {
	if !c.Enabled() {
		return nil
	}

	entryData, err := json.Marshal(Entry{
		Version:   c.version,
		Hash:      hash,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return err
	}

	// Write then rename so concurrent readers never see a partial entry.
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(entryData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.keyPath(key))
}

// Invalidate removes the entry for key. Removing a missing entry is not an
// error.
func (c *Cache) Invalidate(key string) error {
	if !c.Enabled() {
		return nil
	}
	err := os.Remove(c.keyPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// Prune deletes expired entries and entries from other cache versions,
// returning how many were removed.
func (c *Cache) Prune() (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	removed := 0
	err := c.eachEntry(func(path string, _ fs.FileInfo) error {
		entry, ok := readEntry(path)
		if ok && entry.Version == c.version && !c.expired(entry) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

func (c *Cache) read(key string) (Entry, bool) {
	return readEntry(c.keyPath(key))
}

func readEntry(path string) (Entry, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false
	}
	return entry, true
}

func (c *Cache) expired(e Entry) bool {
	return c.ttl > 0 && time.Since(e.Timestamp) > c.ttl
}

// keyPath converts a key to a filesystem path.
func (c *Cache) keyPath(key string) string {
	hash := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}

func (c *Cache) eachEntry(fn func(path string, info fs.FileInfo) error) error {
	return filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		return fn(path, info)
	})
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
}

// GetStats returns on-disk statistics plus the hit counters of this
// process.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.Enabled() {
		return &Stats{}, nil
	}

	stats := &Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	var oldest, newest time.Time

	err := c.eachEntry(func(_ string, info fs.FileInfo) error {
		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}
	return stats, nil
}

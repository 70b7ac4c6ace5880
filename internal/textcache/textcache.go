// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textcache keeps recently extracted PDF text keyed by path and
// modification time. A modified file produces a new key, so stale text is
// never returned; old keys simply age out. Eviction is first-in first-out:
// a hit does not refresh an entry's position.
package textcache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pdiddy/textbridge/internal/fsutil"
	"github.com/pdiddy/textbridge/internal/metrics"
	"github.com/pdiddy/textbridge/internal/pdftext"
)

// DefaultCapacity is the number of documents kept when no capacity is given.
const DefaultCapacity = 10

// Key identifies one version of a file.
type Key struct {
	Path    string
	ModTime time.Time
}

// String renders the key as path-<mtime in milliseconds>.
func (k Key) String() string {
	return fmt.Sprintf("%s-%d", k.Path, k.ModTime.UnixMilli())
}

// Entry is the cached extraction of one file version.
type Entry struct {
	Key       Key
	FileName  string
	Text      string
	PageCount int
	WordCount int
}

// Stats reports the cache size and its keys in insertion order.
type Stats struct {
	Size     int      `json:"size" yaml:"size"`
	Capacity int      `json:"capacity" yaml:"capacity"`
	Keys     []string `json:"keys" yaml:"keys"`
}

// Cache is a bounded FIFO of extracted text. It is safe for concurrent use.
type Cache struct {
	extractor pdftext.Extractor
	capacity  int

	mu      sync.Mutex
	entries map[Key]Entry
	// ring holds keys in insertion order; head is the oldest.
	ring []Key
	head int
}

// New returns a cache over extractor holding at most capacity entries. A
// non-positive capacity selects DefaultCapacity.
func New(extractor pdftext.Extractor, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		extractor: extractor,
		capacity:  capacity,
		entries:   make(map[Key]Entry, capacity),
		ring:      make([]Key, 0, capacity),
	}
}

// GetOrExtract returns the cached entry for the current version of path,
// extracting and storing it on a miss.
func (c *Cache) GetOrExtract(ctx context.Context, path string) (Entry, error) {
	info, err := fsutil.StatFile(path)
	if err != nil {
		return Entry{}, err
	}
	key := Key{Path: path, ModTime: info.ModTime()}

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return e, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	res, err := c.extractor.Extract(ctx, path)
	if err != nil {
		return Entry{}, fmt.Errorf("extracting text from %s: %w", filepath.Base(path), err)
	}
	e = Entry{
		Key:       key,
		FileName:  filepath.Base(path),
		Text:      res.Text,
		PageCount: res.PageCount,
		WordCount: res.WordCount(),
	}
	c.put(e)
	return e, nil
}

// put stores e and evicts the oldest entry once the cache is over capacity.
func (c *Cache) put(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[e.Key]; ok {
		c.entries[e.Key] = e
		return
	}
	c.entries[e.Key] = e
	if len(c.ring) < c.capacity {
		c.ring = append(c.ring, e.Key)
		return
	}
	oldest := c.ring[c.head]
	delete(c.entries, oldest)
	metrics.CacheEvictionsTotal.Inc()
	c.ring[c.head] = e.Key
	c.head = (c.head + 1) % c.capacity
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]Entry, c.capacity)
	c.ring = c.ring[:0]
	c.head = 0
}

// Stats returns the current size and keys, oldest first.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.ring))
	for i := range c.ring {
		keys = append(keys, c.ring[(c.head+i)%len(c.ring)].String())
	}
	return Stats{Size: len(c.entries), Capacity: c.capacity, Keys: keys}
}

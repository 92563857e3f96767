// Package cache memoizes normalized workbooks for the lifetime of the
// process. Entries are only dropped by an explicit Invalidate or Reload.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"allocdash/internal/dataprocessing"
	"allocdash/internal/files"
	"allocdash/pkg/contracts/domain"
)

// Key identifies a cached table
type Key struct {
	Location string
	Dataset  domain.Dataset
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s", k.Dataset, k.Location)
}

// Observer receives cache events, typically a metrics sink
type Observer interface {
	CacheHit(ctx context.Context, dataset domain.Dataset)
	CacheMiss(ctx context.Context, dataset domain.Dataset)
	WorkbookLoaded(ctx context.Context, dataset domain.Dataset, duration time.Duration, err error)
}

type entry struct {
	table    *dataprocessing.Normalized
	loadedAt time.Time
	hits     int64
}

// EntryInfo describes one cached table
type EntryInfo struct {
	Location string         `json:"location"`
	Dataset  domain.Dataset `json:"dataset"`
	Rows     int            `json:"rows"`
	LoadedAt time.Time      `json:"loaded_at"`
	Hits     int64          `json:"hits"`
}

// WorkbookCache loads, normalizes and memoizes workbooks. Concurrent
// first loads of the same key share a single read.
type WorkbookCache struct {
	source     files.Source
	normalizer *dataprocessing.Normalizer
	observer   Observer
	logger     *slog.Logger

	mu        sync.RWMutex
	entries   map[Key]*entry
	hitCount  int64
	missCount int64
	loads     int64
	failures  int64
	// generation advances on Reload so loads started before it are not stored
	generation uint64

	group singleflight.Group
}

// New creates an empty cache
func New(source files.Source, normalizer *dataprocessing.Normalizer, logger *slog.Logger) *WorkbookCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookCache{
		source:     source,
		normalizer: normalizer,
		logger:     logger.With(slog.String("component", "workbook_cache")),
		entries:    make(map[Key]*entry),
	}
}

// SetObserver installs an event observer. It must be called before the
// cache is shared.
func (c *WorkbookCache) SetObserver(o Observer) {
	c.observer = o
}

// Get returns the normalized table for location and dataset, loading it
// on first use. Failed loads are not cached.
func (c *WorkbookCache) Get(ctx context.Context, location string, dataset domain.Dataset) (*dataprocessing.Normalized, error) {
	key := Key{Location: location, Dataset: dataset}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.hits++
		c.hitCount++
		c.mu.Unlock()
		if c.observer != nil {
			c.observer.CacheHit(ctx, dataset)
		}
		return e.table, nil
	}
	c.missCount++
	gen := c.generation
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.CacheMiss(ctx, dataset)
	}

	flight := fmt.Sprintf("%s#%d", key, gen)
	v, err, shared := c.group.Do(flight, func() (interface{}, error) {
		return c.load(ctx, key, gen)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.DebugContext(ctx, "shared in-flight load", slog.String("key", key.String()))
	}
	return v.(*dataprocessing.Normalized), nil
}

func (c *WorkbookCache) load(ctx context.Context, key Key, gen uint64) (*dataprocessing.Normalized, error) {
	// A concurrent loader may have finished between the miss and here.
	c.mu.RLock()
	if e, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return e.table, nil
	}
	c.mu.RUnlock()

	start := time.Now()
	table, err := c.read(ctx, key)
	duration := time.Since(start)

	if c.observer != nil {
		c.observer.WorkbookLoaded(ctx, key.Dataset, duration, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failures++
		c.logger.WarnContext(ctx, "workbook load failed",
			slog.String("location", key.Location),
			slog.String("dataset", string(key.Dataset)),
			slog.String("error", err.Error()))
		return nil, err
	}

	c.loads++
	if gen == c.generation {
		c.entries[key] = &entry{table: table, loadedAt: time.Now()}
	}
	c.logger.InfoContext(ctx, "workbook loaded",
		slog.String("location", key.Location),
		slog.String("dataset", string(key.Dataset)),
		slog.Int("rows", table.Rows()),
		slog.Duration("duration", duration))
	return table, nil
}

func (c *WorkbookCache) read(ctx context.Context, key Key) (*dataprocessing.Normalized, error) {
	rc, err := c.source.Open(ctx, key.Location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	wb, err := dataprocessing.ReadWorkbook(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key.Location, err)
	}
	table, err := c.normalizer.Normalize(key.Dataset, wb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key.Location, err)
	}
	return table, nil
}

// Invalidate drops one entry
func (c *WorkbookCache) Invalidate(location string, dataset domain.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, Key{Location: location, Dataset: dataset})
}

// Reload drops every entry so the next Get reads the source again.
// It returns the number of entries dropped.
func (c *WorkbookCache) Reload() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[Key]*entry)
	c.generation++
	c.logger.Info("cache cleared", slog.Int("entries", n))
	return n
}

// Entries describes the cached tables
func (c *WorkbookCache) Entries() []EntryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]EntryInfo, 0, len(c.entries))
	for k, e := range c.entries {
		out = append(out, EntryInfo{
			Location: k.Location,
			Dataset:  k.Dataset,
			Rows:     e.table.Rows(),
			LoadedAt: e.loadedAt,
			Hits:     e.hits,
		})
	}
	return out
}

// GetStats returns cache statistics
func (c *WorkbookCache) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hitCount + c.missCount
	hitRatio := float64(0)
	if total > 0 {
		hitRatio = float64(c.hitCount) / float64(total)
	}

	return map[string]interface{}{
		"entries":    len(c.entries),
		"hit_count":  c.hitCount,
		"miss_count": c.missCount,
		"hit_ratio":  hitRatio,
		"loads":      c.loads,
		"failures":   c.failures,
	}
}

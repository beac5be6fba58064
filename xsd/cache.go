package xsd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// DefaultCacheSize is the number of compiled schemas a SchemaCache keeps.
const DefaultCacheSize = 32

// SchemaCache keeps compiled schemas keyed by absolute path. An entry is
// reused only while the file's size and modification time are unchanged.
type SchemaCache struct {
	mu      sync.Mutex
	entries *lru.Cache
	loading map[string]*pendingLoad

	// OnHit and OnMiss, when set, are called on every lookup.
	OnHit  func(path string)
	OnMiss func(path string)
}

type cacheEntry struct {
	schema  *Schema
	size    int64
	modTime time.Time
}

// pendingLoad lets concurrent lookups of one path share a single compile.
type pendingLoad struct {
	done   chan struct{}
	schema *Schema
	err    error
}

// NewSchemaCache creates a cache holding up to size schemas. A size of zero
// or less uses DefaultCacheSize.
func NewSchemaCache(size int) *SchemaCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &SchemaCache{
		entries: lru.New(size),
		loading: make(map[string]*pendingLoad),
	}
}

// Get returns the compiled schema at path, loading it on a miss.
func (sc *SchemaCache) Get(path string) (*Schema, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema path %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat schema %s: %w", path, err)
	}

	sc.mu.Lock()
	if v, ok := sc.entries.Get(abs); ok {
		e := v.(*cacheEntry)
		if e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
			sc.mu.Unlock()
			if sc.OnHit != nil {
				sc.OnHit(abs)
			}
			return e.schema, nil
		}
		sc.entries.Remove(abs)
	}
	if p, ok := sc.loading[abs]; ok {
		sc.mu.Unlock()
		<-p.done
		return p.schema, p.err
	}
	p := &pendingLoad{done: make(chan struct{})}
	sc.loading[abs] = p
	sc.mu.Unlock()

	if sc.OnMiss != nil {
		sc.OnMiss(abs)
	}
	p.schema, p.err = LoadSchemaWithImports(abs)
	if p.schema != nil {
		p.schema.Location = path
	}

	sc.mu.Lock()
	delete(sc.loading, abs)
	if p.err == nil {
		sc.entries.Add(abs, &cacheEntry{schema: p.schema, size: info.Size(), modTime: info.ModTime()})
	}
	sc.mu.Unlock()
	close(p.done)
	return p.schema, p.err
}

// Remove drops path from the cache.
func (sc *SchemaCache) Remove(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.entries.Remove(abs)
}

// Clear removes all cached schemas
func (sc *SchemaCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.entries.Clear()
}

// Len returns the number of cached schemas.
func (sc *SchemaCache) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.entries.Len()
}

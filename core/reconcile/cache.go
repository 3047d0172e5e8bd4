package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ScanCache holds pre-built indices for fast repeated scans.
type ScanCache struct {
	// Expected is the indexed map of entity-derived expected keys.
	Expected map[string]EntityRef

	// Blobs is the indexed map of blobs actually in storage.
	Blobs map[string]BlobInfo

	// Built is the timestamp when this cache was built.
	Built time.Time

	// TTL is the time-to-live for this cache.
	TTL time.Duration
}

// IsExpired returns true if this cache has expired based on its TTL.
func (c *ScanCache) IsExpired() bool {
	if c.TTL == 0 {
		return true // No caching
	}
	return time.Since(c.Built) > c.TTL
}

// cacheStore holds all scan caches keyed by spec cache key.
type cacheStore struct {
	mu     sync.RWMutex
	caches map[string]*ScanCache
	sf     singleflight.Group
}

// globalCacheStore is the singleton cache store for all scan operations.
var globalCacheStore = &cacheStore{
	caches: make(map[string]*ScanCache),
}

// BuildCache builds a new cache for the given spec by loading both indices.
// This function does NOT store the cache; use GetOrBuildCache for that.
func BuildCache(ctx context.Context, spec *Spec) (*ScanCache, error) {
	var (
		expected map[string]EntityRef
		blobs    map[string]BlobInfo
		expErr   error
		blobErr  error
		wg       sync.WaitGroup
	)

	// Build indices concurrently
	wg.Add(2)

	go func() {
		defer wg.Done()
		expected, expErr = spec.Adapter.LoadExpectedIndex(ctx)
	}()

	go func() {
		defer wg.Done()
		blobs, blobErr = spec.Adapter.LoadBlobIndex(ctx)
	}()

	wg.Wait()

	if expErr != nil {
		return nil, expErr
	}
	if blobErr != nil {
		return nil, blobErr
	}

	return &ScanCache{
		Expected: expected,
		Blobs:    blobs,
		Built:    time.Now(),
		TTL:      spec.CacheTTL,
	}, nil
}

// GetOrBuildCache retrieves a cache for the given spec from the store,
// or builds a new one if it doesn't exist or has expired.
// Uses singleflight to prevent cache stampedes.
func GetOrBuildCache(ctx context.Context, spec *Spec) (*ScanCache, error) {
	cacheKey := spec.CacheKey()

	// Fast path: check if cache exists and is fresh
	globalCacheStore.mu.RLock()
	cache, exists := globalCacheStore.caches[cacheKey]
	globalCacheStore.mu.RUnlock()

	if exists && !cache.IsExpired() {
		return cache, nil
	}

	// Slow path: build cache using singleflight to prevent stampedes
	result, err, _ := globalCacheStore.sf.Do(cacheKey, func() (interface{}, error) {
		// Double-check after acquiring singleflight lock
		globalCacheStore.mu.RLock()
		cache, exists := globalCacheStore.caches[cacheKey]
		globalCacheStore.mu.RUnlock()

		if exists && !cache.IsExpired() {
			return cache, nil
		}

		// Build new cache
		newCache, err := BuildCache(ctx, spec)
		if err != nil {
			return nil, err
		}

		// Store in cache
		globalCacheStore.mu.Lock()
		globalCacheStore.caches[cacheKey] = newCache
		globalCacheStore.mu.Unlock()

		return newCache, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*ScanCache), nil
}

// InvalidateCache removes the cache for the given spec from the store.
// This is useful for testing or forcing a rebuild.
func InvalidateCache(spec *Spec) {
	cacheKey := spec.CacheKey()
	globalCacheStore.mu.Lock()
	delete(globalCacheStore.caches, cacheKey)
	globalCacheStore.mu.Unlock()
}

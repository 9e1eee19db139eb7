package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/moolen/magma/internal/logging"
)

// QueryCacheConfig holds cache configuration.
type QueryCacheConfig struct {
	MaxMemoryMB int64
	TTL         time.Duration
	Enabled     bool
}

// DefaultQueryCacheConfig returns default cache configuration.
func DefaultQueryCacheConfig() QueryCacheConfig {
	return QueryCacheConfig{
		MaxMemoryMB: 64,
		TTL:         2 * time.Minute,
		Enabled:     false,
	}
}

// cachedQueryResult wraps a QueryResult with size tracking and TTL.
type cachedQueryResult struct {
	Result    *QueryResult
	Size      int64
	ExpiresAt time.Time
}

// QueryCacheStats reports cache effectiveness.
type QueryCacheStats struct {
	MaxMemory       int64
	UsedMemory      int64
	AvailableMemory int64
	Items           int
	Hits            uint64
	Misses          uint64
	Evictions       uint64
	Expired         uint64
	HitRate         float64
}

// QueryCache is an LRU cache of read-only query results, bounded by both
// entry count and an estimated memory footprint, with TTL expiry.
type QueryCache struct {
	lru        *lru.Cache[string, *cachedQueryResult]
	maxMemory  int64
	usedMemory int64
	ttl        time.Duration
	mu         sync.RWMutex
	logger     *logging.Logger

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

// NewQueryCache creates a query cache with the given configuration.
func NewQueryCache(config QueryCacheConfig, logger *logging.Logger) (*QueryCache, error) {
	if config.MaxMemoryMB <= 0 {
		return nil, fmt.Errorf("MaxMemoryMB must be positive, got %d", config.MaxMemoryMB)
	}
	if config.TTL <= 0 {
		return nil, fmt.Errorf("TTL must be positive, got %v", config.TTL)
	}

	qc := &QueryCache{
		maxMemory: config.MaxMemoryMB * 1024 * 1024,
		ttl:       config.TTL,
		logger:    logger,
	}

	lruCache, err := lru.NewWithEvict[string, *cachedQueryResult](10000, func(key string, value *cachedQueryResult) {
		qc.onEvict(value)
	})
	if err != nil {
		return nil, fmt.Errorf("create LRU cache: %w", err)
	}

	qc.lru = lruCache
	qc.logger.Debug("query cache initialized: maxMemory=%dMB, TTL=%v", config.MaxMemoryMB, config.TTL)
	return qc, nil
}

func (qc *QueryCache) onEvict(entry *cachedQueryResult) {
	atomic.AddUint64(&qc.evictions, 1)
	atomic.AddInt64(&qc.usedMemory, -entry.Size)
}

// Get retrieves a cached result, returning false if absent or expired.
func (qc *QueryCache) Get(key string) (*QueryResult, bool) {
	qc.mu.RLock()
	defer qc.mu.RUnlock()

	entry, ok := qc.lru.Get(key)
	if !ok {
		atomic.AddUint64(&qc.misses, 1)
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		atomic.AddUint64(&qc.expired, 1)
		atomic.AddUint64(&qc.misses, 1)
		return nil, false
	}

	atomic.AddUint64(&qc.hits, 1)
	return entry.Result, true
}

// Put stores a result under key, subject to TTL and memory eviction.
func (qc *QueryCache) Put(key string, result *QueryResult) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	size := estimateResultSize(result)

	if _, ok := qc.lru.Peek(key); ok {
		// Remove fires onEvict, which releases the old entry's size.
		qc.lru.Remove(key)
	}

	currentUsed := atomic.LoadInt64(&qc.usedMemory)
	if currentUsed+size > qc.maxMemory {
		for currentUsed+size > qc.maxMemory && qc.lru.Len() > 0 {
			qc.lru.RemoveOldest()
			currentUsed = atomic.LoadInt64(&qc.usedMemory)
		}
		if currentUsed+size > qc.maxMemory {
			qc.logger.Warn("query cache put rejected: exceeds memory limit")
			return
		}
	}

	entry := &cachedQueryResult{
		Result:    result,
		Size:      size,
		ExpiresAt: time.Now().Add(qc.ttl),
	}

	qc.lru.Add(key, entry)
	atomic.AddInt64(&qc.usedMemory, size)
}

// Clear removes all entries from the cache.
func (qc *QueryCache) Clear() {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	qc.lru.Purge()
	atomic.StoreInt64(&qc.usedMemory, 0)
}

// Stats returns cache effectiveness counters.
func (qc *QueryCache) Stats() QueryCacheStats {
	qc.mu.RLock()
	defer qc.mu.RUnlock()

	hits := atomic.LoadUint64(&qc.hits)
	misses := atomic.LoadUint64(&qc.misses)
	total := hits + misses

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	usedMemory := atomic.LoadInt64(&qc.usedMemory)

	return QueryCacheStats{
		MaxMemory:       qc.maxMemory,
		UsedMemory:      usedMemory,
		AvailableMemory: qc.maxMemory - usedMemory,
		Items:           qc.lru.Len(),
		Hits:            hits,
		Misses:          misses,
		Evictions:       atomic.LoadUint64(&qc.evictions),
		Expired:         atomic.LoadUint64(&qc.expired),
		HitRate:         hitRate,
	}
}

// MakeQueryKey creates a deterministic cache key from a Query.
func MakeQueryKey(q Query) string {
	h := sha256.New()
	h.Write([]byte(q.Text))

	if len(q.Parameters) > 0 {
		keys := make([]string, 0, len(q.Parameters))
		for k := range q.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			h.Write([]byte(k))
			paramBytes, _ := json.Marshal(q.Parameters[k])
			h.Write(paramBytes)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

func estimateResultSize(result *QueryResult) int64 {
	if result == nil {
		return 0
	}

	size := int64(200)
	for _, row := range result.Records {
		if b, err := json.Marshal(row); err == nil {
			size += int64(len(b))
		} else {
			size += int64(len(row) * 100)
		}
	}
	return size
}

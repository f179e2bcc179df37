package feature

import (
	"context"
	"sync"
	"time"
)

// MemoryFeatureCache 是内存特征缓存实现，采用 LRU 策略。
// 用于本地缓存，减少对远程特征服务（Store/Feast）的访问。
type MemoryFeatureCache struct {
	mu              sync.RWMutex
	userFeatures    map[string]*cacheEntry
	itemFeatures    map[string]*cacheEntry
	maxSize         int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	cleanupTicker   *time.Ticker
	stopCleanup     chan struct{}
}

type cacheEntry struct {
	features   map[string]float64
	expireTime time.Time
	accessTime time.Time
}

// NewMemoryFeatureCache 创建内存特征缓存
func NewMemoryFeatureCache(maxSize int, defaultTTL time.Duration) *MemoryFeatureCache {
	cache := &MemoryFeatureCache{
		userFeatures:    make(map[string]*cacheEntry),
		itemFeatures:    make(map[string]*cacheEntry),
		maxSize:         maxSize,
		defaultTTL:      defaultTTL,
		cleanupInterval: 1 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	cache.cleanupTicker = time.NewTicker(cache.cleanupInterval)
	go cache.cleanup()

	return cache
}

func (c *MemoryFeatureCache) cleanup() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.cleanExpired()
		case <-c.stopCleanup:
			c.cleanupTicker.Stop()
			return
		}
	}
}

func (c *MemoryFeatureCache) cleanExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for userID, entry := range c.userFeatures {
		if now.After(entry.expireTime) {
			delete(c.userFeatures, userID)
		}
	}
	for bookID, entry := range c.itemFeatures {
		if now.After(entry.expireTime) {
			delete(c.itemFeatures, bookID)
		}
	}

	if len(c.userFeatures) > c.maxSize {
		c.evictLRUFromMap(c.userFeatures)
	}
	if len(c.itemFeatures) > c.maxSize {
		c.evictLRUFromMap(c.itemFeatures)
	}
}

func (c *MemoryFeatureCache) evictLRUFromMap(m map[string]*cacheEntry) {
	if len(m) <= c.maxSize {
		return
	}

	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, entry := range m {
		if first || entry.accessTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.accessTime
			first = false
		}
	}

	if !first {
		delete(m, oldestKey)
	}
}

func (c *MemoryFeatureCache) GetUserFeatures(_ context.Context, userID string) (map[string]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.userFeatures[userID]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expireTime) {
		return nil, false
	}

	entry.accessTime = time.Now()
	return entry.features, true
}

func (c *MemoryFeatureCache) SetUserFeatures(_ context.Context, userID string, features map[string]float64, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.userFeatures) >= c.maxSize {
		c.evictLRUFromMap(c.userFeatures)
	}
	c.userFeatures[userID] = &cacheEntry{
		features:   features,
		expireTime: time.Now().Add(ttl),
		accessTime: time.Now(),
	}
}

func (c *MemoryFeatureCache) GetItemFeatures(_ context.Context, bookID string) (map[string]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.itemFeatures[bookID]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expireTime) {
		return nil, false
	}

	entry.accessTime = time.Now()
	return entry.features, true
}

func (c *MemoryFeatureCache) SetItemFeatures(_ context.Context, bookID string, features map[string]float64, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.itemFeatures) >= c.maxSize {
		c.evictLRUFromMap(c.itemFeatures)
	}
	c.itemFeatures[bookID] = &cacheEntry{
		features:   features,
		expireTime: time.Now().Add(ttl),
		accessTime: time.Now(),
	}
}

func (c *MemoryFeatureCache) InvalidateUserFeatures(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.userFeatures, userID)
}

func (c *MemoryFeatureCache) InvalidateItemFeatures(_ context.Context, bookID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.itemFeatures, bookID)
}

func (c *MemoryFeatureCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userFeatures = make(map[string]*cacheEntry)
	c.itemFeatures = make(map[string]*cacheEntry)
}

// Close 关闭缓存，停止清理协程
func (c *MemoryFeatureCache) Close() {
	close(c.stopCleanup)
}

// 确保实现 FeatureCache 接口
var _ FeatureCache = (*MemoryFeatureCache)(nil)

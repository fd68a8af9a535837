package roster

import (
	"container/list"
	"sync"
	"time"

	"github.com/campusops/gradebook/models"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	student    *models.Student
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// StudentCache is an in-memory LRU cache with TTL for student reads.
// Thread-safe implementation using sync.Mutex. Writes never consult the
// cache; they invalidate after commit so a cached student can be stale for
// at most the TTL but never reflect an uncommitted change.
type StudentCache struct {
	mu      sync.Mutex
	entries map[int64]*cacheEntry // Key: student ID
	lruList *list.List            // Doubly linked list for LRU tracking
	maxSize int                   // Maximum number of entries
	ttl     time.Duration         // Time-to-live for entries
	hits    uint64                // Cache hit counter
	misses  uint64                // Cache miss counter
}

// NewStudentCache creates a new StudentCache with specified max size and TTL
func NewStudentCache(maxSize int, ttl time.Duration) *StudentCache {
	return &StudentCache{
		entries: make(map[int64]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a student from cache
// Returns nil if not found or expired
func (c *StudentCache) Get(id int64) *models.Student {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[id]

	// Check if entry exists and is not expired
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			// Remove expired entry
			c.removeEntry(id)
		}
		return nil
	}

	// Move to front (most recently used)
	c.lruList.MoveToFront(entry.element)
	c.hits++

	return entry.student
}

// Set stores a student in cache
func (c *StudentCache) Set(student *models.Student) {
	if student == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Check if entry already exists
	if entry, exists := c.entries[student.ID]; exists {
		// Update existing entry
		entry.student = student
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	// Evict least recently used entry if cache is full
	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	// Create new entry
	entry := &cacheEntry{
		student:    student,
		insertedAt: time.Now(),
	}

	// Add to front of LRU list
	entry.element = c.lruList.PushFront(student.ID)
	c.entries[student.ID] = entry
}

// Invalidate removes a specific cache entry
func (c *StudentCache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeEntry(id)
}

// Clear removes all entries from the cache
func (c *StudentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[int64]*cacheEntry)
	c.lruList.Init()
}

// Stats returns cache statistics
func (c *StudentCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: c.calculateHitRate(),
	}
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// calculateHitRate calculates the cache hit rate
func (c *StudentCache) calculateHitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// removeEntry removes an entry from the cache (must be called with lock held)
func (c *StudentCache) removeEntry(id int64) {
	if entry, exists := c.entries[id]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, id)
	}
}

// evictLRU evicts the least recently used entry (must be called with lock held)
func (c *StudentCache) evictLRU() {
	if c.lruList.Len() == 0 {
		return
	}

	// Remove from back (least recently used)
	backElement := c.lruList.Back()
	if backElement != nil {
		id := backElement.Value.(int64)
		c.lruList.Remove(backElement)
		delete(c.entries, id)
	}
}

// CleanupExpired removes all expired entries
// Should be called periodically in a background goroutine
func (c *StudentCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiredIDs := make([]int64, 0)

	// Find all expired entries
	for id, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			expiredIDs = append(expiredIDs, id)
		}
	}

	// Remove expired entries
	for _, id := range expiredIDs {
		c.removeEntry(id)
	}

	return len(expiredIDs)
}

// StartCleanupWorker starts a background worker to periodically clean up expired entries
func (c *StudentCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}

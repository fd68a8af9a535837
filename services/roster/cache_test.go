package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campusops/gradebook/models"
)

func TestStudentCache_GetSet(t *testing.T) {
	cache := NewStudentCache(10, 5*time.Minute)

	// Test cache miss
	student := cache.Get(1)
	assert.Nil(t, student)

	// Test cache set and hit
	alice := &models.Student{ID: 1, Name: "Alice", Grade: 90}
	cache.Set(alice)

	cached := cache.Get(1)
	assert.NotNil(t, cached)
	assert.Equal(t, alice.Name, cached.Name)
	assert.Equal(t, alice.Grade, cached.Grade)

	// Check stats
	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestStudentCache_TTLExpiration(t *testing.T) {
	cache := NewStudentCache(10, 100*time.Millisecond)

	cache.Set(&models.Student{ID: 1, Name: "Alice", Grade: 90})

	// Should be available immediately
	assert.NotNil(t, cache.Get(1))

	// Wait for TTL to expire
	time.Sleep(150 * time.Millisecond)

	// Should be expired now
	assert.Nil(t, cache.Get(1))

	// Check that expired entry was removed
	stats := cache.Stats()
	assert.Equal(t, 0, stats.Size)
}

func TestStudentCache_LRUEviction(t *testing.T) {
	cache := NewStudentCache(3, 5*time.Minute)

	// Add 4 entries (should evict the first one)
	for i := int64(1); i <= 4; i++ {
		cache.Set(&models.Student{ID: i, Name: "Student", Grade: 80})
	}

	// Cache size should be 3 (max size)
	stats := cache.Stats()
	assert.Equal(t, 3, stats.Size)

	// First entry should be evicted
	assert.Nil(t, cache.Get(1))

	// Other entries should still exist
	for i := int64(2); i <= 4; i++ {
		assert.NotNil(t, cache.Get(i))
	}
}

func TestStudentCache_LRUOrdering(t *testing.T) {
	cache := NewStudentCache(3, 5*time.Minute)

	// Add 3 entries
	for i := int64(1); i <= 3; i++ {
		cache.Set(&models.Student{ID: i, Name: "Student", Grade: 80})
	}

	// Access first entry (moves to front)
	cache.Get(1)

	// Add a new entry (should evict 2, not 1)
	cache.Set(&models.Student{ID: 4, Name: "Student", Grade: 80})

	// 1 should still exist
	assert.NotNil(t, cache.Get(1))

	// 2 should be evicted (was least recently used)
	assert.Nil(t, cache.Get(2))

	// 3 and 4 should exist
	assert.NotNil(t, cache.Get(3))
	assert.NotNil(t, cache.Get(4))
}

func TestStudentCache_Invalidate(t *testing.T) {
	cache := NewStudentCache(10, 5*time.Minute)

	cache.Set(&models.Student{ID: 1, Name: "Alice", Grade: 90})

	// Verify it's cached
	assert.NotNil(t, cache.Get(1))

	// Invalidate
	cache.Invalidate(1)

	// Should be gone
	assert.Nil(t, cache.Get(1))

	stats := cache.Stats()
	assert.Equal(t, 0, stats.Size)
}

func TestStudentCache_Clear(t *testing.T) {
	cache := NewStudentCache(10, 5*time.Minute)

	cache.Set(&models.Student{ID: 1, Name: "Alice", Grade: 90})
	cache.Set(&models.Student{ID: 2, Name: "Bob", Grade: 85})

	cache.Clear()

	assert.Nil(t, cache.Get(1))
	assert.Nil(t, cache.Get(2))
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestStudentCache_CleanupExpired(t *testing.T) {
	cache := NewStudentCache(10, 50*time.Millisecond)

	cache.Set(&models.Student{ID: 1, Name: "Alice", Grade: 90})
	cache.Set(&models.Student{ID: 2, Name: "Bob", Grade: 85})

	time.Sleep(80 * time.Millisecond)

	removed := cache.CleanupExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestStudentCache_SetNil(t *testing.T) {
	cache := NewStudentCache(10, 5*time.Minute)

	cache.Set(nil)
	assert.Equal(t, 0, cache.Stats().Size)
}

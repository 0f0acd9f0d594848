package cache

import (
	"time"
)

// CacheService is the blocking cache used by the scraper to honor rate
// limits: a key set after a 429 suppresses further requests until it
// expires.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

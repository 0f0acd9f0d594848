package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Memcache implements CacheService using memcache
type Memcache struct {
	client *memcache.Client
}

// NewMemcache creates a memcache-backed cache service
func NewMemcache(serverAddr string) *Memcache {
	return &Memcache{
		client: memcache.New(serverAddr),
	}
}

// Get retrieves a value from memcache
func (m *Memcache) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *Memcache) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete removes a value from memcache
func (m *Memcache) Delete(key string) error {
	return m.client.Delete(key)
}

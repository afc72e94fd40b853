package provider

import (
	"sync"

	pkgconfig "github.com/smykla-labs/crashtrace/pkg/config"
)

// Cache holds the last merged configuration.
type Cache struct {
	mu     sync.RWMutex
	config *pkgconfig.Config
}

// NewCache creates a new Cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached configuration, or nil.
func (c *Cache) Get() *pkgconfig.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.config
}

// Set caches cfg.
func (c *Cache) Set(cfg *pkgconfig.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.config = cfg
}

// Clear drops the cached configuration.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.config = nil
}

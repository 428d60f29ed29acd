// Package colours holds the in-process route colour cache. The cache maps a
// route short name to the hex pair used when rendering its badge, and is
// rebuilt wholesale after each successful GTFS ingest.
package colours

import "sync"

// Default colour pair used for routes absent from the cache
const (
	DefaultBackground = "E6E6E6"
	DefaultText       = "58595B"
)

// Pair is a route's badge colours, 6-hex strings without the leading '#'
type Pair struct {
	Background string
	Text       string
}

// Cache is a single-writer/many-reader snapshot of route colours. Readers
// always observe a fully-formed mapping; ReplaceAll swaps the snapshot in one
// step.
type Cache struct {
	mu       sync.RWMutex
	snapshot map[string]Pair
}

// New returns an empty cache; every lookup falls back to the default pair
// until the first ReplaceAll.
func New() *Cache {
	return &Cache{snapshot: make(map[string]Pair)}
}

// Get returns the colour pair for a route, or the default pair if the route
// is unknown.
func (c *Cache) Get(routeShortName string) Pair {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.snapshot[routeShortName]; ok {
		return p
	}
	return Pair{Background: DefaultBackground, Text: DefaultText}
}

// ReplaceAll publishes a new snapshot. The mapping is copied so callers may
// keep mutating their own map afterwards.
func (c *Cache) ReplaceAll(mapping map[string]Pair) {
	snapshot := make(map[string]Pair, len(mapping))
	for k, v := range mapping {
		snapshot[k] = v
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()
}

// Len returns the number of routes in the current snapshot
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshot)
}

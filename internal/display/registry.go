package display

import (
	"time"

	"github.com/bluele/gcache"
)

// Registry holds the live displays keyed by ID. Entries expire after the
// inactivity TTL; an expired display's controls still work through the token
// resume path, so eviction only costs one upstream re-fetch.
type Registry struct {
	cache gcache.Cache
	ttl   time.Duration
}

// NewRegistry builds an LRU-bounded registry with the given capacity and
// inactivity TTL.
func NewRegistry(capacity int, ttl time.Duration) *Registry {
	return &Registry{
		cache: gcache.New(capacity).LRU().Build(),
		ttl:   ttl,
	}
}

// Put stores a display and starts its inactivity clock
func (r *Registry) Put(d *StopDisplay) {
	r.cache.SetWithExpire(d.ID, d, r.ttl)
}

// Get returns the display with the given ID if it has not expired
func (r *Registry) Get(id string) (*StopDisplay, bool) {
	v, err := r.cache.Get(id)
	if err != nil {
		return nil, false
	}
	d, ok := v.(*StopDisplay)
	return d, ok
}

// Touch resets a display's inactivity clock after user interaction
func (r *Registry) Touch(d *StopDisplay) {
	r.cache.SetWithExpire(d.ID, d, r.ttl)
}

// Drop removes a display, used when a new lookup replaces it
func (r *Registry) Drop(id string) {
	r.cache.Remove(id)
}

// Len reports how many displays are currently live
func (r *Registry) Len() int {
	return r.cache.Len(true)
}

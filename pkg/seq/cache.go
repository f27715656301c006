package seq

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// IntronCache keeps intron sequences per transcript for the life of the
// process. Loads for the same transcript are collapsed into one.
type IntronCache struct {
	mu    sync.RWMutex
	seqs  map[string][]string
	group singleflight.Group
}

func NewIntronCache() *IntronCache {
	return &IntronCache{seqs: make(map[string][]string)}
}

// Len returns the number of cached transcripts.
func (c *IntronCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.seqs)
}

// Get returns the cached sequences for id, calling load on first access.
func (c *IntronCache) Get(id string, load func() ([]string, error)) ([]string, error) {
	c.mu.RLock()
	v, ok := c.seqs[id]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := c.group.Do(id, func() (any, error) {
		c.mu.RLock()
		v, ok := c.seqs[id]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}

		v, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.seqs[id] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

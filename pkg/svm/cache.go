package svm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	model  *Model
	kernel Kernel
	sig    string
}

// Cache memoizes margins by model, kernel and feature signature. Entries are never
// evicted; the cache lives as long as the process that owns it.
type Cache struct {
	mu      sync.RWMutex
	margins map[cacheKey]float64
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{margins: make(map[cacheKey]float64)}
}

// Len returns the number of cached margins.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.margins)
}

func (c *Cache) get(k cacheKey) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.margins[k]
	return v, ok
}

// getOrCompute returns the cached margin or runs fn once per key, even when
// several goroutines miss at the same time.
func (c *Cache) getOrCompute(k cacheKey, fn func() (float64, error)) (float64, error) {
	if v, ok := c.get(k); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(fmt.Sprintf("%p|%d|%s", k.model, k.kernel, k.sig), func() (any, error) {
		if v, ok := c.get(k); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return 0.0, err
		}
		c.mu.Lock()
		c.margins[k] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

var nameEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, "=", `\=`)

// Signature returns the canonical form of a feature map: names sorted
// lexicographically, each paired with its value. Backslash, ';' and '='
// in names are escaped with a backslash.
func Signature(features map[string]float64) string {
	names := make([]string, 0, len(features))
	for k := range features {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		nameEscaper.WriteString(&b, k)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(features[k], 'g', -1, 64))
	}
	return b.String()
}

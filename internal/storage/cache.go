package storage

import (
	"sync"

	"github.com/maruel/albumdb/internal/query"
)

// stmtCache keeps parsed statements by query text. Applications issue the
// same few statements with different arguments.
type stmtCache struct {
	mu      sync.RWMutex
	queries map[string]*query.Query
	// Max size before the cache is cleared (simplified LRU)
	maxQueries int
}

func newStmtCache() *stmtCache {
	return &stmtCache{
		queries:    make(map[string]*query.Query),
		maxQueries: 256,
	}
}

// parse returns the cached statement for text, parsing it on first use.
// Errors are not cached.
func (c *stmtCache) parse(text string) (*query.Query, error) {
	c.mu.RLock()
	q, ok := c.queries[text]
	c.mu.RUnlock()
	if ok {
		return q, nil
	}
	q, err := query.Parse(text)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Simple size limiting: clear if it grows too large
	if len(c.queries) >= c.maxQueries {
		c.queries = make(map[string]*query.Query)
	}
	c.queries[text] = q
	return q, nil
}

// len returns the number of cached statements.
func (c *stmtCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.queries)
}

package cog

import "sync"

type blockKey struct {
	col, row int
}

type blockEntry struct {
	data   []float32
	width  int
	height int
}

// BlockCache keeps recently decoded blocks of one raster. Consecutive track
// points usually fall into the same block, so even a small cache avoids
// most decompression work. Eviction is first-in first-out.
type BlockCache struct {
	mu      sync.Mutex
	entries map[blockKey]blockEntry
	order   []blockKey
	maxSize int
}

// NewBlockCache creates a cache holding at most maxEntries blocks.
func NewBlockCache(maxEntries int) *BlockCache {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &BlockCache{
		entries: make(map[blockKey]blockEntry, maxEntries),
		maxSize: maxEntries,
	}
}

// Get returns a cached block, or nil when it is not cached.
func (c *BlockCache) Get(col, row int) ([]float32, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[blockKey{col, row}]
	if !ok {
		return nil, 0, 0
	}
	return e.data, e.width, e.height
}

// Put stores a block, evicting the oldest one when full.
func (c *BlockCache) Put(col, row int, data []float32, width, height int) {
	key := blockKey{col, row}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[key] = blockEntry{data: data, width: width, height: height}
	c.order = append(c.order, key)
}

// Len returns the number of cached blocks.
func (c *BlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

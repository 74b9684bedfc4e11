package engine

import (
	"sync"
	"sync/atomic"

	"github.com/yourusername/bgengine/internal/positionid"
)

// Cache constants
const (
	DefaultNodeCacheSize = 1 << 16 // 64K entries
	CacheHit             = ^uint32(0)
)

// NodeEntry stores the deep equity of an interior search node
type NodeEntry struct {
	Key    positionid.PositionKey // Position key without dice
	Depth  int32                  // Remaining search depth the equity was computed at
	Equity float64                // White-positive score
}

// NodeCache is a thread-safe cache of interior search nodes
// Uses a two-way associative cache with MurmurHash3-based indexing
type NodeCache struct {
	entries  []cacheNode
	size     uint32
	hashMask uint32

	// Statistics
	lookups atomic.Uint64
	hits    atomic.Uint64
	adds    atomic.Uint64

	mu sync.RWMutex
}

// cacheNode holds primary and secondary entries for two-way associative cache
type cacheNode struct {
	primary   NodeEntry
	secondary NodeEntry
}

// NewNodeCache creates a new node cache with the given size
// Size will be adjusted to the nearest power of 2
func NewNodeCache(size uint32) *NodeCache {
	if size < 2 {
		size = 2
	}
	if size > 1<<31 {
		size = 1 << 31
	}

	// Find smallest power of 2 >= size
	p := uint32(1)
	for p < size {
		p <<= 1
	}
	size = p

	cache := &NodeCache{
		entries:  make([]cacheNode, size/2),
		size:     size,
		hashMask: (size / 2) - 1,
	}

	cache.Flush()
	return cache
}

// invalidDepth marks an empty slot; real entries always have depth >= 1
const invalidDepth = -1

// Flush clears all entries from the cache
func (c *NodeCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		c.entries[i].primary.Depth = invalidDepth
		c.entries[i].secondary.Depth = invalidDepth
	}
	c.lookups.Store(0)
	c.hits.Store(0)
	c.adds.Store(0)
}

// hash computes the slot for a key using MurmurHash3-style mixing
func (c *NodeCache) hash(key positionid.PositionKey, depth int32) uint32 {
	// MurmurHash3 constants
	const c1 = 0xcc9e2d51
	const c2 = 0x1b873593

	h := uint32(0)

	for _, k := range key.Data {
		k *= c1
		k = (k << 15) | (k >> 17)
		k *= c2

		h ^= k
		h = (h << 13) | (h >> 19)
		h = h*5 + 0xe6546b64
	}

	k := uint32(depth)
	k *= c1
	k = (k << 15) | (k >> 17)
	k *= c2
	h ^= k

	// Finalization
	h ^= 36
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h & c.hashMask
}

// Lookup checks if a node is in the cache
// Returns the equity and CacheHit if found, otherwise the slot to pass to Add
func (c *NodeCache) Lookup(key positionid.PositionKey, depth int32) (float64, uint32) {
	slot := c.hash(key, depth)

	c.mu.RLock()
	defer c.mu.RUnlock()

	c.lookups.Add(1)

	node := &c.entries[slot]
	if node.primary.Depth == depth && positionid.EqualKeys(node.primary.Key, key) {
		c.hits.Add(1)
		return node.primary.Equity, CacheHit
	}
	if node.secondary.Depth == depth && positionid.EqualKeys(node.secondary.Key, key) {
		c.hits.Add(1)
		return node.secondary.Equity, CacheHit
	}

	return 0, slot
}

// Add stores a node equity
// slot should be the value returned by a previous Lookup miss
func (c *NodeCache) Add(key positionid.PositionKey, depth int32, equity float64, slot uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &c.entries[slot]

	// Move primary to secondary, add new as primary
	node.secondary = node.primary
	node.primary = NodeEntry{Key: key, Depth: depth, Equity: equity}

	c.adds.Add(1)
}

// Stats returns cache statistics
func (c *NodeCache) Stats() (lookups, hits, adds uint64) {
	return c.lookups.Load(), c.hits.Load(), c.adds.Load()
}

// HitRate returns the cache hit rate as a percentage
func (c *NodeCache) HitRate() float64 {
	lookups := c.lookups.Load()
	if lookups == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(lookups) * 100
}

// Size returns the number of entries the cache can hold
func (c *NodeCache) Size() uint32 { return c.size }

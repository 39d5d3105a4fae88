// Package cache keeps recent translation results so that unchanged sources
// are not translated again during a watch session.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/bython-lang/bython/internal/diagnostics"
)

// Key uniquely identifies a translation: direction, configuration and
// source content.
type Key string

// KeyFor hashes everything that influences a translation result.
func KeyFor(direction, config, source string) Key {
	h := sha256.New()
	h.Write([]byte(direction))
	h.Write([]byte{0})
	h.Write([]byte(config))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// Entry is a cached translation.
type Entry struct {
	Output      []byte
	Diagnostics []diagnostics.Diagnostic
}

// Stats exposes basic metrics.
type Stats struct {
	Hits      int64
	Misses    int64
	Entries   int64
	Bytes     int64
	Evictions int64
}

// LRU is a thread-safe LRU cache with a max entry count.
type LRU struct {
	mu       sync.Mutex
	capacity int
	llHead   *lruNode
	llTail   *lruNode
	table    map[Key]*lruNode
	stats    Stats
}

type lruNode struct {
	key  Key
	val  Entry
	prev *lruNode
	next *lruNode
}

// NewLRU creates a new cache with the given capacity (entries). If
// capacity<=0, defaults to 1024.
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = 1024
	}
	return &LRU{capacity: capacity, table: make(map[Key]*lruNode)}
}

func (c *LRU) detach(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if c.llHead == n {
		c.llHead = n.next
	}
	if c.llTail == n {
		c.llTail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (c *LRU) pushFront(n *lruNode) {
	n.next = c.llHead
	if c.llHead != nil {
		c.llHead.prev = n
	}
	c.llHead = n
	if c.llTail == nil {
		c.llTail = n
	}
}

func (c *LRU) evictIfNeeded() {
	for len(c.table) > c.capacity && c.llTail != nil {
		n := c.llTail
		c.detach(n)
		delete(c.table, n.key)
		c.stats.Evictions++
		c.stats.Bytes -= int64(len(n.val.Output))
	}
	c.stats.Entries = int64(len(c.table))
}

// Get returns the entry for key and marks it most recently used.
func (c *LRU) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.table[key]; ok {
		c.detach(n)
		c.pushFront(n)
		c.stats.Hits++
		return n.val, true
	}
	c.stats.Misses++
	return Entry{}, false
}

// Put stores e under key, evicting the least recently used entry when full.
func (c *LRU) Put(key Key, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.table[key]; ok {
		c.stats.Bytes += int64(len(e.Output) - len(n.val.Output))
		n.val = e
		c.detach(n)
		c.pushFront(n)
		return
	}
	n := &lruNode{key: key, val: e}
	c.pushFront(n)
	c.table[key] = n
	c.stats.Bytes += int64(len(e.Output))
	c.evictIfNeeded()
}

// Invalidate drops key if present.
func (c *LRU) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.table[key]; ok {
		c.detach(n)
		delete(c.table, key)
		c.stats.Entries = int64(len(c.table))
		c.stats.Bytes -= int64(len(n.val.Output))
	}
}

// Len returns the number of cached entries.
func (c *LRU) Len() int { c.mu.Lock(); defer c.mu.Unlock(); return len(c.table) }

// Stats returns a snapshot of the cache counters.
func (c *LRU) Stats() Stats { c.mu.Lock(); defer c.mu.Unlock(); return c.stats }

package document

import (
	"sync"
	"time"
)

// ParseCache is a thread-safe content-hash-keyed cache of parse results with
// LRU eviction and a TTL. It is owned by the caller and injected into the
// pipeline; the extraction core itself holds no global state. Concurrent
// requests for the same content hash share a single parse.
type ParseCache struct {
	mutex    sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*cacheNode
	head     *cacheNode // Most recently used
	tail     *cacheNode // Least recently used
	inflight map[string]*parseCall
	hits     int64
	misses   int64
	now      func() time.Time
}

// cacheNode is a node in the doubly-linked LRU list.
type cacheNode struct {
	key       string
	value     *ParsedDocument
	expiresAt time.Time
	prev      *cacheNode
	next      *cacheNode
}

// parseCall tracks an in-progress parse so duplicate uploads of the same
// content wait for the first parse instead of repeating the CPU work.
type parseCall struct {
	done chan struct{}
	doc  *ParsedDocument
	err  error
}

// NewParseCache creates a cache with the given entry capacity and TTL.
// Non-positive values select 128 entries and one hour.
func NewParseCache(capacity int, ttl time.Duration) *ParseCache {
	if capacity <= 0 {
		capacity = 128
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	c := &ParseCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*cacheNode),
		inflight: make(map[string]*parseCall),
		now:      time.Now,
	}
	c.head = &cacheNode{}
	c.tail = &cacheNode{}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// GetOrParse returns the cached document for key, or runs parse exactly once
// per distinct key even under concurrent callers, caching a successful
// result. Parse errors are returned to every waiter and are not cached.
func (c *ParseCache) GetOrParse(key string, parse func() (*ParsedDocument, error)) (*ParsedDocument, error) {
	c.mutex.Lock()

	if node, exists := c.items[key]; exists {
		if c.now().Before(node.expiresAt) {
			c.moveToFront(node)
			c.hits++
			c.mutex.Unlock()
			return node.value, nil
		}
		c.removeNode(node)
		delete(c.items, key)
	}

	if call, running := c.inflight[key]; running {
		c.mutex.Unlock()
		<-call.done
		return call.doc, call.err
	}

	call := &parseCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.misses++
	c.mutex.Unlock()

	call.doc, call.err = parse()
	close(call.done)

	c.mutex.Lock()
	delete(c.inflight, key)
	if call.err == nil {
		c.put(key, call.doc)
	}
	c.mutex.Unlock()

	return call.doc, call.err
}

// Len returns the current number of cached entries.
func (c *ParseCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items)
}

// Stats returns hit/miss counters for observability.
func (c *ParseCache) Stats() (hits, misses int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.hits, c.misses
}

// put inserts or refreshes an entry. Caller holds the mutex.
func (c *ParseCache) put(key string, doc *ParsedDocument) {
	if node, exists := c.items[key]; exists {
		node.value = doc
		node.expiresAt = c.now().Add(c.ttl)
		c.moveToFront(node)
		return
	}

	node := &cacheNode{key: key, value: doc, expiresAt: c.now().Add(c.ttl)}
	c.addToFront(node)
	c.items[key] = node

	if len(c.items) > c.capacity {
		c.evictLRU()
	}
}

func (c *ParseCache) moveToFront(node *cacheNode) {
	c.removeNode(node)
	c.addToFront(node)
}

func (c *ParseCache) addToFront(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *ParseCache) removeNode(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (c *ParseCache) evictLRU() {
	lru := c.tail.prev
	if lru != c.head {
		c.removeNode(lru)
		delete(c.items, lru.key)
	}
}

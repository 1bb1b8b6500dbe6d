package pipeline

import (
	"sync"

	"github.com/couchcryptid/forecast-normalizer/internal/domain"
)

// DatasetCache is a thread-safe LRU cache of built datasets keyed by a digest
// of the request that produced them. Redelivered loads and repeated HTTP
// requests skip decoding and normalization.
type DatasetCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Dataset
	prev  *entry
	next  *entry
}

// NewDatasetCache returns a cache holding up to maxEntries datasets, or nil
// when maxEntries is not positive. A nil cache never hits.
func NewDatasetCache(maxEntries int) *DatasetCache {
	if maxEntries <= 0 {
		return nil
	}
	return &DatasetCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

// Get returns the cached dataset for key.
func (c *DatasetCache) Get(key string) (domain.Dataset, bool) {
	if c == nil {
		return domain.Dataset{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Dataset{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Put stores ds under key, evicting the least recently used entry when full.
func (c *DatasetCache) Put(key string, ds domain.Dataset) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = ds
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: ds}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len returns the number of cached datasets.
func (c *DatasetCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *DatasetCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *DatasetCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *DatasetCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *DatasetCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}

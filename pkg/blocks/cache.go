package blocks

import (
	"fmt"
	"sync"

	. "github.com/weberc2/snfs/pkg/types"
)

// Cache is a write-back LRU block cache in front of another device. Dirty
// blocks reach the inner device on eviction or `Flush`.
type Cache struct {
	inner     Device
	mutex     sync.Mutex
	head      *entry
	tail      *entry
	lookup    map[Block]*entry
	allocator allocator
}

type entry struct {
	prev  *entry
	next  *entry
	block Block
	dirty bool
	data  [BlockSize]byte
}

type CachedBlock struct {
	Block   Block  `json:"block"`
	Dirty   bool   `json:"dirty"`
	Preview string `json:"preview"`
}

func NewCache(inner Device, capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		inner:     inner,
		lookup:    make(map[Block]*entry, capacity),
		allocator: newAllocator(capacity),
	}
}

func (c *Cache) BlockCount() Block { return c.inner.BlockCount() }

func (c *Cache) ReadBlock(b Block, out *[BlockSize]byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, exists := c.lookup[b]; exists {
		c.moveFront(e)
		*out = e.data
		return nil
	}

	e, err := c.slot()
	if err != nil {
		return fmt.Errorf("reading block `%d` through cache: %w", b, err)
	}
	if err := c.inner.ReadBlock(b, &e.data); err != nil {
		c.allocator.release(e)
		return fmt.Errorf("reading block `%d` through cache: %w", b, err)
	}
	e.block = b
	c.lookup[b] = e
	c.pushFront(e)
	*out = e.data
	return nil
}

func (c *Cache) WriteBlock(b Block, data *[BlockSize]byte) error {
	if b >= c.inner.BlockCount() {
		return fmt.Errorf("writing block `%d`: %w", b, BlockOutOfRangeErr)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, exists := c.lookup[b]
	if exists {
		c.moveFront(e)
	} else {
		var err error
		if e, err = c.slot(); err != nil {
			return fmt.Errorf("writing block `%d` through cache: %w", b, err)
		}
		e.block = b
		c.lookup[b] = e
		c.pushFront(e)
	}
	e.data = *data
	e.dirty = true
	return nil
}

// Flush writes every dirty block back to the inner device.
func (c *Cache) Flush() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for e := c.head; e != nil; e = e.next {
		if !e.dirty {
			continue
		}
		if err := c.inner.WriteBlock(e.block, &e.data); err != nil {
			return fmt.Errorf("flushing block `%d`: %w", e.block, err)
		}
		e.dirty = false
	}
	return Flush(c.inner)
}

// Dump lists the cached blocks, most recently used first.
func (c *Cache) Dump() []CachedBlock {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	out := make([]CachedBlock, 0, len(c.lookup))
	for e := c.head; e != nil; e = e.next {
		out = append(out, CachedBlock{
			Block:   e.block,
			Dirty:   e.dirty,
			Preview: preview(e.data[:previewSize]),
		})
	}
	return out
}

const previewSize = 16

func preview(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= ' ' && b <= '~' {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

// slot returns an unlinked entry, evicting the least recently used block if
// the pool is exhausted.
func (c *Cache) slot() (*entry, error) {
	if e := c.allocator.alloc(); e != nil {
		return e, nil
	}

	victim := c.tail
	if victim.dirty {
		if err := c.inner.WriteBlock(victim.block, &victim.data); err != nil {
			return nil, fmt.Errorf(
				"evicting block `%d`: %w",
				victim.block,
				err,
			)
		}
	}
	c.unlink(victim)
	delete(c.lookup, victim.block)
	*victim = entry{}
	return victim, nil
}

func (c *Cache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) unlink(e *entry) {
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
	e.prev = nil
	e.next = nil
}

func (c *Cache) moveFront(e *entry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

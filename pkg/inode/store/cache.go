package store

import (
	. "github.com/weberc2/sfs/pkg/types"
)

// Cache is a fixed-capacity LRU of inodes keyed on their block.
type Cache struct {
	head      *entry
	tail      *entry
	lookup    map[Block]*entry
	allocator allocator
	free      []*entry
}

func NewCache(capacity int) *Cache {
	return &Cache{
		lookup:    make(map[Block]*entry),
		allocator: newAllocator(capacity),
	}
}

func (c *Cache) Len() int { return len(c.lookup) }

func (c *Cache) Get(block Block, out *Inode) bool {
	e, exists := c.lookup[block]
	if !exists {
		return false
	}

	c.moveFront(e)
	*out = e.value
	return true
}

func (c *Cache) Remove(block Block, removed *Inode) bool {
	e := c.lookup[block]
	if e == nil {
		return false
	}

	c.unlink(e)
	delete(c.lookup, block)

	// hand the value back and park the wiped entry for reuse
	*removed = e.value
	e.value = Inode{}
	c.free = append(c.free, e)
	return true
}

func (c *Cache) Push(inode *Inode, evicted *Inode) (evict bool) {
	if e, exists := c.lookup[inode.Block]; exists {
		c.moveFront(e)
		e.value = *inode
		return false
	}

	e := c.alloc()
	if e == nil {
		if c.tail == nil {
			// zero capacity
			return false
		}
		e = c.tail
		c.unlink(e)
		*evicted = e.value
		delete(c.lookup, evicted.Block)
		evict = true
	}

	e.value = *inode
	c.lookup[inode.Block] = e
	c.pushFront(e)
	return
}

func (c *Cache) alloc() *entry {
	if n := len(c.free); n > 0 {
		e := c.free[n-1]
		c.free = c.free[:n-1]
		return e
	}
	return c.allocator.alloc()
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

func (c *Cache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	} else {
		c.tail = e
	}
	c.head = e
}

func (c *Cache) moveFront(e *entry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

type entry struct {
	prev  *entry
	next  *entry
	value Inode
}

// allocator implements a simple allocation pool that can grow up to a fixed
// capacity. It is assumed that it will never shrink.
type allocator struct {
	length int
	pool   []entry
}

func newAllocator(capacity int) allocator {
	return allocator{length: 0, pool: make([]entry, capacity)}
}

func (a *allocator) alloc() *entry {
	if a.length >= len(a.pool) {
		return nil
	}
	ret := &a.pool[a.length]
	a.length++
	return ret
}

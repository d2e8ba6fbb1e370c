package store

import (
	"fmt"

	. "github.com/weberc2/sfs/pkg/types"
)

// CachingInodeStore writes through to its backend and serves repeat reads
// from an LRU cache.
type CachingInodeStore struct {
	backend InodeStore
	cache   *Cache
}

func NewCachingInodeStore(
	backend InodeStore,
	cacheCapacity int,
) *CachingInodeStore {
	return &CachingInodeStore{
		backend: backend,
		cache:   NewCache(cacheCapacity),
	}
}

func (store *CachingInodeStore) Put(inode *Inode) error {
	if err := store.backend.Put(inode); err != nil {
		// the backend may hold either version now
		store.Forget(inode.Block)
		return err
	}
	var evicted Inode
	store.cache.Push(inode, &evicted)
	return nil
}

func (store *CachingInodeStore) Get(block Block, output *Inode) error {
	if store.cache.Get(block, output) {
		return nil
	}

	var inode Inode
	if err := store.backend.Get(block, &inode); err != nil {
		return fmt.Errorf(
			"fetching inode `%d`: cache miss; checking backend store: %w",
			block,
			err,
		)
	}

	var evicted Inode
	store.cache.Push(&inode, &evicted)
	*output = inode
	return nil
}

// Forget drops `block` from the cache. It must be called when an inode's
// block is released, since the block may be reused for file data.
func (store *CachingInodeStore) Forget(block Block) {
	var removed Inode
	store.cache.Remove(block, &removed)
}

package store

import . "github.com/weberc2/sfs/pkg/types"

type InodeStore interface {
	Get(block Block, output *Inode) error
	Put(inode *Inode) error
}

var (
	_ InodeStore = DeviceInodeStore{}
	_ InodeStore = (*CachingInodeStore)(nil)
)

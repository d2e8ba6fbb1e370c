package store

import (
	"fmt"

	"github.com/weberc2/sfs/pkg/encode"
	"github.com/weberc2/sfs/pkg/io"
	. "github.com/weberc2/sfs/pkg/types"
)

// DeviceInodeStore reads and writes one inode record per block.
type DeviceInodeStore struct {
	device io.Device
}

func NewDeviceInodeStore(device io.Device) DeviceInodeStore {
	return DeviceInodeStore{device}
}

func (store DeviceInodeStore) Put(inode *Inode) error {
	if err := validate(inode.Block); err != nil {
		return fmt.Errorf("writing inode: %w", err)
	}

	buf := new([BlockSize]byte)
	encode.EncodeInode(inode, buf)
	if err := store.device.WriteBlock(inode.Block, buf); err != nil {
		return fmt.Errorf("writing inode `%d`: %w", inode.Block, err)
	}
	return nil
}

func (store DeviceInodeStore) Get(block Block, output *Inode) error {
	if err := validate(block); err != nil {
		return fmt.Errorf("reading inode: %w", err)
	}

	buf := new([BlockSize]byte)
	if err := store.device.ReadBlock(block, buf); err != nil {
		return fmt.Errorf("reading inode `%d`: %w", block, err)
	}

	var inode Inode
	if err := encode.DecodeInode(&inode, buf); err != nil {
		return fmt.Errorf("reading inode `%d`: %w", block, err)
	}
	if inode.Block != block {
		return fmt.Errorf(
			"reading inode `%d`: record claims block `%d`: %w",
			block,
			inode.Block,
			CorruptInodeErr,
		)
	}

	*output = inode
	return nil
}

// validate rejects blocks which can never hold an inode.
func validate(block Block) error {
	if block == BlockNil {
		return fmt.Errorf("nil block: %w", InvalidBlockErr)
	}
	return block.Validate()
}

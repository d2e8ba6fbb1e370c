package alloc

import (
	"fmt"

	"github.com/weberc2/sfs/pkg/io"
	. "github.com/weberc2/sfs/pkg/types"
)

// Allocator hands out volume blocks. A block handed out by `Alloc` is
// zeroed on the device and flagged in the bitmap before it is returned.
// Freed blocks keep their contents.
type Allocator struct {
	Bitmap *FlushableBitmap
	Device io.Device
}

func NewAllocator(bitmap *FlushableBitmap, device io.Device) *Allocator {
	return &Allocator{Bitmap: bitmap, Device: device}
}

func (a *Allocator) Alloc() (Block, error) {
	value, ok := a.Bitmap.FirstZero()
	if !ok {
		return BlockNil, fmt.Errorf(
			"allocating block: all `%d` blocks in use: %w",
			a.Bitmap.Size(),
			OutOfSpaceErr,
		)
	}

	block := Block(value)
	var zeros [BlockSize]byte
	if err := a.Device.WriteBlock(block, &zeros); err != nil {
		return BlockNil, fmt.Errorf("allocating block `%d`: %w", block, err)
	}
	a.Bitmap.Reserve(value)
	return block, nil
}

func (a *Allocator) Free(block Block) error {
	if err := block.Validate(); err != nil {
		return fmt.Errorf("freeing block: %w", err)
	}
	a.Bitmap.Free(uint64(block))
	return nil
}

func (a *Allocator) Reserve(block Block) error {
	if err := block.Validate(); err != nil {
		return fmt.Errorf("reserving block: %w", err)
	}
	a.Bitmap.Reserve(uint64(block))
	return nil
}

func (a *Allocator) IsAllocated(block Block) bool {
	return block.Validate() == nil && a.Bitmap.IsSet(uint64(block))
}

func (a *Allocator) FreeBlocks() Block {
	return Block(a.Bitmap.Size() - a.Bitmap.Count())
}

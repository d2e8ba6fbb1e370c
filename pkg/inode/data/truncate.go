package data

import (
	"fmt"

	"github.com/weberc2/sfs/pkg/math"
	. "github.com/weberc2/sfs/pkg/types"
)

// Truncate sets the file size. Growing fills with zeros; shrinking releases
// the blocks past the new end and zeroes the tail of the last kept block so
// bytes beyond the size always read as zero if the file grows again.
func (w *Writer) Truncate(inode *Inode, size Byte) error {
	if size < 0 {
		return fmt.Errorf(
			"truncating inode `%d` to `%d`: %w",
			inode.Block,
			size,
			InvalidOffsetErr,
		)
	}
	if size > BlockTableCapacity*BlockSize {
		return fmt.Errorf(
			"truncating inode `%d` to `%d`: %w",
			inode.Block,
			size,
			BlockTableFullErr,
		)
	}

	if size == inode.Size {
		return nil
	}
	if size > inode.Size {
		if _, err := w.Write(inode, inode.Size, make([]byte, size-inode.Size)); err != nil {
			return fmt.Errorf("truncating inode `%d` to `%d`: %w", inode.Block, size, err)
		}
		return nil
	}

	clone := *inode
	keep := math.DivRoundUp(size, BlockSize)
	if tail := size % BlockSize; tail != 0 {
		var buf [BlockSize]byte
		last := clone.Blocks[keep-1]
		if err := w.device.ReadBlock(last, &buf); err != nil {
			return fmt.Errorf("truncating inode `%d` to `%d`: %w", inode.Block, size, err)
		}
		clear(buf[tail:])
		if err := w.device.WriteBlock(last, &buf); err != nil {
			return fmt.Errorf("truncating inode `%d` to `%d`: %w", inode.Block, size, err)
		}
	}

	released := append([]Block(nil), clone.Blocks[keep:clone.BlockCount]...)
	for i := keep; i < Byte(clone.BlockCount); i++ {
		clone.Blocks[i] = BlockNil
	}
	clone.BlockCount = uint32(keep)
	clone.Size = size
	clone.Touch(w.now())

	// unlink before releasing so a failed update never leaves the inode
	// pointing at free blocks
	if err := w.inodeStore.Put(&clone); err != nil {
		return fmt.Errorf("truncating inode `%d` to `%d`: %w", inode.Block, size, err)
	}
	*inode = clone

	for _, block := range released {
		if err := w.allocator.Free(block); err != nil {
			return fmt.Errorf("truncating inode `%d` to `%d`: %w", inode.Block, size, err)
		}
	}
	return nil
}

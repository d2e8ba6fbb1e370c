package data

import (
	"errors"
	"fmt"
	"time"

	"github.com/weberc2/sfs/pkg/alloc"
	"github.com/weberc2/sfs/pkg/inode/store"
	"github.com/weberc2/sfs/pkg/io"
	"github.com/weberc2/sfs/pkg/math"
	. "github.com/weberc2/sfs/pkg/types"
)

type Writer struct {
	device     io.Device
	allocator  *alloc.Allocator
	inodeStore store.InodeStore
	now        func() time.Time
}

func NewWriter(
	device io.Device,
	allocator *alloc.Allocator,
	inodeStore store.InodeStore,
	now func() time.Time,
) Writer {
	if now == nil {
		now = time.Now
	}
	return Writer{device, allocator, inodeStore, now}
}

// Write copies `b` into the file at `offset`, allocating blocks as needed so
// that logical block `i` is always `inode.Blocks[i]`. The inode is persisted
// once at the end, including when the volume or the block table fills up
// part way; in that case the bytes already written are kept and counted.
func (w *Writer) Write(inode *Inode, offset Byte, b []byte) (Byte, error) {
	if offset < 0 {
		return 0, fmt.Errorf(
			"writing inode `%d` at offset `%d`: %w",
			inode.Block,
			offset,
			InvalidOffsetErr,
		)
	}
	if len(b) < 1 {
		return 0, nil
	}

	clone := *inode
	var chunkBegin Byte
	var buf [BlockSize]byte
	var writeErr error

	for chunkBegin < Byte(len(b)) {
		logical := (offset + chunkBegin) / BlockSize
		chunkOffset := (offset + chunkBegin) % BlockSize
		chunkLength := math.Min(Byte(len(b))-chunkBegin, BlockSize-chunkOffset)

		if writeErr = w.mapBlock(&clone, logical); writeErr != nil {
			break
		}
		physical := clone.Blocks[logical]

		// whole-block writes needn't read the old contents
		if chunkLength < BlockSize {
			if writeErr = w.device.ReadBlock(physical, &buf); writeErr != nil {
				break
			}
		}
		copy(buf[chunkOffset:], b[chunkBegin:chunkBegin+chunkLength])
		if writeErr = w.device.WriteBlock(physical, &buf); writeErr != nil {
			break
		}

		chunkBegin += chunkLength
	}

	if writeErr != nil {
		writeErr = fmt.Errorf(
			"writing `%d` bytes to inode `%d` at offset `%d`: %w",
			len(b),
			inode.Block,
			offset,
			writeErr,
		)
	}

	if chunkBegin < 1 && clone.BlockCount == inode.BlockCount {
		return 0, writeErr
	}

	// gap blocks mapped ahead of a failed chunk stay linked but lie past
	// `Size` until something is written into them
	if end := offset + chunkBegin; chunkBegin > 0 && clone.Size < end {
		clone.Size = end
	}
	clone.Touch(w.now())
	if err := w.inodeStore.Put(&clone); err != nil {
		return chunkBegin, errors.Join(
			writeErr,
			fmt.Errorf(
				"writing to inode `%d`: updating inode: %w",
				inode.Block,
				err,
			),
		)
	}
	*inode = clone

	return chunkBegin, writeErr
}

// mapBlock extends the block table until `logical` is mapped.
func (w *Writer) mapBlock(inode *Inode, logical Byte) error {
	if logical >= BlockTableCapacity {
		return fmt.Errorf(
			"mapping logical block `%d`: %w",
			logical,
			BlockTableFullErr,
		)
	}
	for Byte(inode.BlockCount) <= logical {
		block, err := w.allocator.Alloc()
		if err != nil {
			return fmt.Errorf("mapping logical block `%d`: %w", logical, err)
		}
		if err := inode.AppendBlock(block); err != nil {
			return errors.Join(
				fmt.Errorf("mapping logical block `%d`: %w", logical, err),
				w.allocator.Free(block),
			)
		}
	}
	return nil
}

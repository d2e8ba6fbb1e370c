package data

import (
	"fmt"

	"github.com/weberc2/sfs/pkg/io"
	"github.com/weberc2/sfs/pkg/math"
	. "github.com/weberc2/sfs/pkg/types"
)

type Reader struct {
	device io.Device
}

func NewReader(device io.Device) Reader {
	return Reader{device}
}

// Read copies file bytes starting at `offset` into `b`. Reads are clipped
// at the file size; the returned count is the number of bytes copied.
func (r *Reader) Read(inode *Inode, offset Byte, b []byte) (Byte, error) {
	if offset < 0 {
		return 0, fmt.Errorf(
			"reading inode `%d` at offset `%d`: %w",
			inode.Block,
			offset,
			InvalidOffsetErr,
		)
	}
	if offset >= inode.Size {
		return 0, nil
	}

	maxLength := math.Min(Byte(len(b)), inode.Size-offset)
	var chunkBegin Byte = 0
	var buf [BlockSize]byte

	for chunkBegin < maxLength {
		logical := (offset + chunkBegin) / BlockSize
		chunkOffset := (offset + chunkBegin) % BlockSize
		chunkLength := math.Min(maxLength-chunkBegin, BlockSize-chunkOffset)

		if logical >= Byte(inode.BlockCount) {
			return chunkBegin, fmt.Errorf(
				"reading inode `%d` at offset `%d`: size `%d` exceeds "+
					"`%d` mapped blocks: %w",
				inode.Block,
				offset,
				inode.Size,
				inode.BlockCount,
				CorruptInodeErr,
			)
		}

		if err := r.device.ReadBlock(inode.Blocks[logical], &buf); err != nil {
			return chunkBegin, fmt.Errorf(
				"reading up to `%d` bytes from inode `%d` at offset `%d`: %w",
				len(b),
				inode.Block,
				offset,
				err,
			)
		}
		copy(
			b[chunkBegin:chunkBegin+chunkLength],
			buf[chunkOffset:chunkOffset+chunkLength],
		)

		chunkBegin += chunkLength
	}

	return chunkBegin, nil
}

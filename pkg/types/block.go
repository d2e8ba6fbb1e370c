package types

import "fmt"

type Block uint32

type Byte int64

const (
	BlockSize  Byte  = 512
	BlockCount Block = 128

	SuperblockBlock Block = 0
	BitmapBlock     Block = 1
	RootBlock       Block = 2
	ReservedBlocks  Block = 3

	// BlockNil marks an absent child or sibling link. Block 0 always holds
	// the superblock, so it can never be the home of an inode.
	BlockNil Block = 0
)

// Validate reports whether `b` addresses a block on the volume.
func (b Block) Validate() error {
	if b >= BlockCount {
		return fmt.Errorf(
			"validating block `%d` (volume has `%d` blocks): %w",
			b,
			BlockCount,
			InvalidBlockErr,
		)
	}
	return nil
}

func (b Block) Offset() Byte { return Byte(b) * BlockSize }

package encode

import (
	"fmt"

	. "github.com/weberc2/sfs/pkg/types"
)

func EncodeSuperblock(superblock *Superblock, b *[BlockSize]byte) {
	p := b[:]
	putU32(p, superblockMagicStart, superblock.Magic)
	putBlock(p, superblockRootStart, superblock.Root)
}

func DecodeSuperblock(superblock *Superblock, b *[BlockSize]byte) error {
	p := b[:]
	if magic := getU32(p, superblockMagicStart); magic != SuperblockMagic {
		return fmt.Errorf(
			"decoding superblock: decoded magic `%#x`: %w",
			magic,
			BadMagicErr,
		)
	}
	*superblock = Superblock{
		Magic: SuperblockMagic,
		Root:  getBlock(p, superblockRootStart),
	}
	return nil
}

const (
	superblockMagicStart = 0
	superblockMagicSize  = size32
	superblockMagicEnd   = superblockMagicStart + superblockMagicSize

	superblockRootStart = superblockMagicEnd
	superblockRootSize  = BlockPointerSize
	superblockRootEnd   = superblockRootStart + superblockRootSize

	SuperblockSize = superblockRootEnd
)

package encode

import (
	"fmt"

	. "github.com/weberc2/sfs/pkg/types"
)

// EncodeInode writes `inode` into `b`. The caller is responsible for
// checking the name length; names longer than `NameCapacity` are truncated.
func EncodeInode(inode *Inode, b *[BlockSize]byte) {
	*b = [BlockSize]byte{}
	p := b[:]

	nameLen := len(inode.Name)
	if nameLen > NameCapacity {
		nameLen = NameCapacity
	}

	putBlock(p, inodeSelfStart, inode.Block)
	putU8(p, inodeFileTypeStart, uint8(inode.FileType))
	putU8(p, inodeNameLenStart, uint8(nameLen))
	putU16(p, inodeModeStart, inode.Mode)
	putU32(p, inodeUIDStart, inode.UID)
	putU32(p, inodeGIDStart, inode.GID)
	putI64(p, inodeATimeStart, inode.ATime)
	putI64(p, inodeMTimeStart, inode.MTime)
	putI64(p, inodeCTimeStart, inode.CTime)
	putU32(p, inodeBlockSizeStart, uint32(inode.BlockSize))
	putI64(p, inodeSizeStart, int64(inode.Size))
	putU32(p, inodeBlockCountStart, inode.BlockCount)

	for i := range inode.Blocks {
		putBlock(p, inodeBlocksStart+Byte(i)*BlockPointerSize, inode.Blocks[i])
	}
	for i := range inode.Indirect {
		putBlock(
			p,
			inodeIndirectStart+Byte(i)*BlockPointerSize,
			inode.Indirect[i],
		)
	}

	putBlock(p, inodeFirstChildStart, inode.FirstChild)
	putBlock(p, inodeSiblingStart, inode.Sibling)
	copy(p[inodeNameStart:inodeNameStart+Byte(nameLen)], inode.Name)
}

func DecodeInode(inode *Inode, b *[BlockSize]byte) error {
	p := b[:]

	// validate into temporaries first so `inode` is untouched on error.
	ft := FileType(getU8(p, inodeFileTypeStart))
	if err := ft.Validate(); err != nil {
		return fmt.Errorf("decoding inode: %w: %w", CorruptInodeErr, err)
	}

	nameLen := Byte(getU8(p, inodeNameLenStart))
	if nameLen > NameCapacity {
		return fmt.Errorf(
			"decoding inode: name length `%d` exceeds `%d`: %w",
			nameLen,
			NameCapacity,
			CorruptInodeErr,
		)
	}

	blockCount := getU32(p, inodeBlockCountStart)
	if blockCount > BlockTableCapacity {
		return fmt.Errorf(
			"decoding inode: block count `%d` exceeds `%d`: %w",
			blockCount,
			BlockTableCapacity,
			CorruptInodeErr,
		)
	}

	*inode = Inode{
		Block:      getBlock(p, inodeSelfStart),
		Name:       string(p[inodeNameStart : inodeNameStart+nameLen]),
		FileType:   ft,
		Mode:       getU16(p, inodeModeStart),
		UID:        getU32(p, inodeUIDStart),
		GID:        getU32(p, inodeGIDStart),
		ATime:      getI64(p, inodeATimeStart),
		MTime:      getI64(p, inodeMTimeStart),
		CTime:      getI64(p, inodeCTimeStart),
		BlockSize:  Byte(getU32(p, inodeBlockSizeStart)),
		Size:       Byte(getI64(p, inodeSizeStart)),
		BlockCount: blockCount,
		FirstChild: getBlock(p, inodeFirstChildStart),
		Sibling:    getBlock(p, inodeSiblingStart),
	}
	for i := range inode.Blocks {
		inode.Blocks[i] = getBlock(p, inodeBlocksStart+Byte(i)*BlockPointerSize)
	}
	for i := range inode.Indirect {
		inode.Indirect[i] = getBlock(
			p,
			inodeIndirectStart+Byte(i)*BlockPointerSize,
		)
	}
	return nil
}

const (
	inodeSelfStart = 0
	inodeSelfSize  = BlockPointerSize
	inodeSelfEnd   = inodeSelfStart + inodeSelfSize

	inodeFileTypeStart = inodeSelfEnd
	inodeFileTypeSize  = size8
	inodeFileTypeEnd   = inodeFileTypeStart + inodeFileTypeSize

	inodeNameLenStart = inodeFileTypeEnd
	inodeNameLenSize  = size8
	inodeNameLenEnd   = inodeNameLenStart + inodeNameLenSize

	inodeModeStart = inodeNameLenEnd
	inodeModeSize  = size16
	inodeModeEnd   = inodeModeStart + inodeModeSize

	inodeUIDStart = inodeModeEnd
	inodeUIDSize  = size32
	inodeUIDEnd   = inodeUIDStart + inodeUIDSize

	inodeGIDStart = inodeUIDEnd
	inodeGIDSize  = size32
	inodeGIDEnd   = inodeGIDStart + inodeGIDSize

	inodeATimeStart = inodeGIDEnd
	inodeATimeSize  = size64
	inodeATimeEnd   = inodeATimeStart + inodeATimeSize

	inodeMTimeStart = inodeATimeEnd
	inodeMTimeSize  = size64
	inodeMTimeEnd   = inodeMTimeStart + inodeMTimeSize

	inodeCTimeStart = inodeMTimeEnd
	inodeCTimeSize  = size64
	inodeCTimeEnd   = inodeCTimeStart + inodeCTimeSize

	inodeBlockSizeStart = inodeCTimeEnd
	inodeBlockSizeSize  = size32
	inodeBlockSizeEnd   = inodeBlockSizeStart + inodeBlockSizeSize

	inodeSizeStart = inodeBlockSizeEnd
	inodeSizeSize  = size64
	inodeSizeEnd   = inodeSizeStart + inodeSizeSize

	inodeBlockCountStart = inodeSizeEnd
	inodeBlockCountSize  = size32
	inodeBlockCountEnd   = inodeBlockCountStart + inodeBlockCountSize

	inodeBlocksStart = inodeBlockCountEnd
	inodeBlocksSize  = BlockTableCapacity * BlockPointerSize
	inodeBlocksEnd   = inodeBlocksStart + inodeBlocksSize

	inodeIndirectStart = inodeBlocksEnd
	inodeIndirectSize  = IndirectTableCapacity * BlockPointerSize
	inodeIndirectEnd   = inodeIndirectStart + inodeIndirectSize

	inodeFirstChildStart = inodeIndirectEnd
	inodeFirstChildSize  = BlockPointerSize
	inodeFirstChildEnd   = inodeFirstChildStart + inodeFirstChildSize

	inodeSiblingStart = inodeFirstChildEnd
	inodeSiblingSize  = BlockPointerSize
	inodeSiblingEnd   = inodeSiblingStart + inodeSiblingSize

	inodeNameStart = inodeSiblingEnd
	inodeNameSize  = NameCapacity
	inodeNameEnd   = inodeNameStart + inodeNameSize

	InodeSize = inodeNameEnd
)

// an inode record must fit in a single block; this fails to compile if not.
const _ = uint(BlockSize - InodeSize)

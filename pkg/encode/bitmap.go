package encode

import (
	. "github.com/weberc2/sfs/pkg/types"
)

// BitmapSize is the number of bytes the packed allocation flags occupy at the
// start of the bitmap block.
const BitmapSize = Byte(BlockCount+7) / 8

func EncodeBitmap(flags []byte, b *[BlockSize]byte) {
	*b = [BlockSize]byte{}
	copy(b[:BitmapSize], flags)
}

func DecodeBitmap(flags []byte, b *[BlockSize]byte) {
	copy(flags, b[:BitmapSize])
}

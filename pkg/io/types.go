package io

import (
	. "github.com/weberc2/sfs/pkg/types"
)

type ReadAt interface {
	ReadAt(offset Byte, b []byte) error
}

type WriteAt interface {
	WriteAt(offset Byte, p []byte) error
}

type Volume interface {
	ReadAt
	WriteAt
}

// Device reads and writes whole blocks by index.
type Device interface {
	ReadBlock(block Block, b *[BlockSize]byte) error
	WriteBlock(block Block, b *[BlockSize]byte) error
}

// ImageSize is the byte length of a complete volume image.
const ImageSize = Byte(BlockCount) * BlockSize

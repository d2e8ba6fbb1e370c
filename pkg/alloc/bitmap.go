package alloc

import (
	"fmt"

	"github.com/weberc2/sfs/pkg/math"
)

const bitsPerByte = 8

// Bitmap is a bit-packed set of flags, most significant bit first.
type Bitmap struct {
	bytes []byte
	size  uint64
}

func New(size uint64) Bitmap {
	return Bitmap{
		bytes: make([]byte, math.DivRoundUp(size, bitsPerByte)),
		size:  size,
	}
}

// FromBytes builds a bitmap of `size` flags from packed bytes. The bytes are
// copied.
func FromBytes(size uint64, bytes []byte) (Bitmap, error) {
	bm := New(size)
	if len(bytes) < len(bm.bytes) {
		return Bitmap{}, fmt.Errorf(
			"loading bitmap of `%d` flags: wanted `%d` bytes; found `%d`",
			size,
			len(bm.bytes),
			len(bytes),
		)
	}
	copy(bm.bytes, bytes)
	return bm, nil
}

func (bm Bitmap) Size() uint64 { return bm.size }

// FirstZero returns the lowest unset flag.
func (bm Bitmap) FirstZero() (uint64, bool) {
	i, bit, ok := bytesFirstZero(bm.bytes)
	if !ok {
		return 0, false
	}
	if value := uint64(i*bitsPerByte) + uint64(bit); value < bm.size {
		return value, true
	}
	return 0, false
}

func (bm Bitmap) IsSet(value uint64) bool {
	return !byteIsZero(bm.bytes[value/bitsPerByte], uint8(value%bitsPerByte))
}

// Count returns the number of set flags.
func (bm Bitmap) Count() uint64 {
	var n uint64
	for value := uint64(0); value < bm.size; value++ {
		if bm.IsSet(value) {
			n++
		}
	}
	return n
}

func (bm Bitmap) Free(value uint64) {
	b := &bm.bytes[value/bitsPerByte]
	*b = byteSetLow(*b, uint8(value%bitsPerByte))
}

func (bm Bitmap) Reserve(value uint64) {
	b := &bm.bytes[value/bitsPerByte]
	*b = byteSetHigh(*b, uint8(value%bitsPerByte))
}

// Reset clears every flag.
func (bm Bitmap) Reset() {
	for i := range bm.bytes {
		bm.bytes[i] = 0
	}
}

func (bm Bitmap) Bytes() []byte { return bm.bytes }

func bytesFirstZero(bytes []byte) (int, uint8, bool) {
	for i, byt := range bytes {
		if bit := byteFirstZero(byt); bit != 0xff {
			return i, bit, true
		}
	}
	return 0, 0, false
}

func byteIsZero(byt byte, bit uint8) bool {
	return byt&(0b1000_0000>>bit) == 0
}

func byteSetHigh(byt byte, bit uint8) byte {
	return byt | (0b1000_0000 >> bit)
}

func byteSetLow(byt byte, bit uint8) byte {
	return byt & ^(0b1000_0000 >> bit)
}

func byteFirstZero(byt byte) uint8 {
	for bit := uint8(0); bit < 8; bit++ {
		if byteIsZero(byt, bit) {
			return bit
		}
	}
	return 0xFF
}

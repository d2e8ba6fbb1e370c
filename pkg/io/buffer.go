package io

import (
	"fmt"
	"io"

	. "github.com/weberc2/sfs/pkg/types"
)

type Buffer struct {
	data []byte
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// NewImageBuffer returns a zeroed in-memory volume the size of one image.
func NewImageBuffer() *Buffer {
	return NewBuffer(make([]byte, ImageSize))
}

func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) ReadAt(offset Byte, p []byte) error {
	if err := b.check(offset, p); err != nil {
		return fmt.Errorf("reading from buffer: %w", err)
	}
	copy(p, b.data[offset:offset+Byte(len(p))])
	return nil
}

func (b *Buffer) WriteAt(offset Byte, p []byte) error {
	if err := b.check(offset, p); err != nil {
		return fmt.Errorf("writing to buffer: %w", err)
	}
	copy(b.data[offset:offset+Byte(len(p))], p)
	return nil
}

func (b *Buffer) check(offset Byte, p []byte) error {
	if offset < 0 || offset+Byte(len(p)) > Byte(len(b.data)) {
		return fmt.Errorf(
			"range `%d`..`%d` exceeds buffer length `%d`: %w",
			offset,
			offset+Byte(len(p)),
			len(b.data),
			io.EOF,
		)
	}
	return nil
}

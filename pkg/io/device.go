package io

import (
	"fmt"
	"io"

	. "github.com/weberc2/sfs/pkg/types"
)

// VolumeDevice addresses a volume in whole blocks. Backend failures are
// reported as `IOFailureErr`.
type VolumeDevice struct {
	Volume Volume
}

func NewVolumeDevice(volume Volume) *VolumeDevice {
	return &VolumeDevice{Volume: volume}
}

func (d *VolumeDevice) ReadBlock(block Block, b *[BlockSize]byte) error {
	if err := block.Validate(); err != nil {
		return fmt.Errorf("reading block: %w", err)
	}
	if err := d.Volume.ReadAt(block.Offset(), b[:]); err != nil {
		return fmt.Errorf(
			"reading block `%d`: %w: %w",
			block,
			IOFailureErr,
			err,
		)
	}
	return nil
}

func (d *VolumeDevice) WriteBlock(block Block, b *[BlockSize]byte) error {
	if err := block.Validate(); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}
	if err := d.Volume.WriteAt(block.Offset(), b[:]); err != nil {
		return fmt.Errorf(
			"writing block `%d`: %w: %w",
			block,
			IOFailureErr,
			err,
		)
	}
	return nil
}

// Close closes the underlying volume if it can be closed.
func (d *VolumeDevice) Close() error {
	if c, ok := d.Volume.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

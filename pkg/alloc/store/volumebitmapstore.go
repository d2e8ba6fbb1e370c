package store

import (
	"fmt"

	"github.com/weberc2/sfs/pkg/alloc"
	"github.com/weberc2/sfs/pkg/encode"
	"github.com/weberc2/sfs/pkg/io"
	. "github.com/weberc2/sfs/pkg/types"
)

var _ alloc.BitmapStore = VolumeBitmapStore{}

// VolumeBitmapStore keeps the allocation bitmap in the volume's bitmap
// block.
type VolumeBitmapStore struct {
	device io.Device
}

func NewVolumeBitmapStore(device io.Device) VolumeBitmapStore {
	return VolumeBitmapStore{device}
}

func (store VolumeBitmapStore) Get() (alloc.Bitmap, error) {
	var b [BlockSize]byte
	if err := store.device.ReadBlock(BitmapBlock, &b); err != nil {
		return alloc.Bitmap{}, fmt.Errorf("loading bitmap: %w", err)
	}
	flags := make([]byte, encode.BitmapSize)
	encode.DecodeBitmap(flags, &b)
	bitmap, err := alloc.FromBytes(uint64(BlockCount), flags)
	if err != nil {
		return alloc.Bitmap{}, fmt.Errorf("loading bitmap: %w", err)
	}
	return bitmap, nil
}

func (store VolumeBitmapStore) Put(bitmap alloc.Bitmap) error {
	var b [BlockSize]byte
	encode.EncodeBitmap(bitmap.Bytes(), &b)
	if err := store.device.WriteBlock(BitmapBlock, &b); err != nil {
		return fmt.Errorf("storing bitmap: %w", err)
	}
	return nil
}

package alloc

import (
	"sync"
)

type BitmapStore interface {
	Put(Bitmap) error
}

type FlushableBitmap struct {
	bitmap Bitmap
	store  BitmapStore
	mutex  sync.Mutex
	dirty  bool
}

func NewFlushable(bitmap Bitmap, store BitmapStore) *FlushableBitmap {
	return &FlushableBitmap{bitmap: bitmap, store: store}
}

func (bitmap *FlushableBitmap) FirstZero() (uint64, bool) {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	return bitmap.bitmap.FirstZero()
}

func (bitmap *FlushableBitmap) IsSet(handle uint64) bool {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	return bitmap.bitmap.IsSet(handle)
}

func (bitmap *FlushableBitmap) Count() uint64 {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	return bitmap.bitmap.Count()
}

func (bitmap *FlushableBitmap) Size() uint64 { return bitmap.bitmap.Size() }

func (bitmap *FlushableBitmap) Reserve(handle uint64) {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	bitmap.bitmap.Reserve(handle)
	bitmap.dirty = true
}

func (bitmap *FlushableBitmap) Free(handle uint64) {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	bitmap.bitmap.Free(handle)
	bitmap.dirty = true
}

func (bitmap *FlushableBitmap) Reset() {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	bitmap.bitmap.Reset()
	bitmap.dirty = true
}

func (bitmap *FlushableBitmap) Dirty() bool {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	return bitmap.dirty
}

func (bitmap *FlushableBitmap) Flush() error {
	bitmap.mutex.Lock()
	defer bitmap.mutex.Unlock()
	if bitmap.dirty {
		if err := bitmap.store.Put(bitmap.bitmap); err != nil {
			return err
		}
		bitmap.dirty = false
	}
	return nil
}

package alloc

import (
	"errors"
	"testing"

	"github.com/weberc2/sfs/pkg/io"
	. "github.com/weberc2/sfs/pkg/types"
)

type memBitmapStore struct {
	puts int
	last []byte
}

func (s *memBitmapStore) Put(bm Bitmap) error {
	s.puts++
	s.last = append([]byte(nil), bm.Bytes()...)
	return nil
}

func newTestAllocator() (*Allocator, *io.VolumeDevice, *memBitmapStore) {
	store := &memBitmapStore{}
	device := io.NewVolumeDevice(io.NewImageBuffer())
	bitmap := NewFlushable(New(uint64(BlockCount)), store)
	for b := Block(0); b < ReservedBlocks; b++ {
		bitmap.Reserve(uint64(b))
	}
	return NewAllocator(bitmap, device), device, store
}

func TestBitmap(t *testing.T) {
	bm := New(10)
	for i := uint64(0); i < 10; i++ {
		found, ok := bm.FirstZero()
		if !ok || found != i {
			t.Fatalf("FirstZero(): wanted `%d`; found `%d` (ok=%t)", i, found, ok)
		}
		bm.Reserve(found)
	}

	// the trailing bits of the last byte are past the size
	if _, ok := bm.FirstZero(); ok {
		t.Fatal("FirstZero(): wanted exhaustion")
	}
	if bm.Count() != 10 {
		t.Fatalf("Count(): wanted `10`; found `%d`", bm.Count())
	}

	bm.Free(3)
	if bm.IsSet(3) {
		t.Fatal("IsSet(3): wanted `false` after Free()")
	}
	if found, _ := bm.FirstZero(); found != 3 {
		t.Fatalf("FirstZero(): wanted `3`; found `%d`", found)
	}
	if bm.Bytes()[0] != 0b1110_1111 {
		t.Fatalf("Bytes()[0]: wanted `%#b`; found `%#b`", 0b1110_1111, bm.Bytes()[0])
	}
}

func TestAllocator_Alloc(t *testing.T) {
	allocator, device, _ := newTestAllocator()

	// dirty the block so the zero fill is observable
	dirty := [BlockSize]byte{0: 'x', BlockSize - 1: 'y'}
	if err := device.WriteBlock(ReservedBlocks, &dirty); err != nil {
		t.Fatal(err)
	}

	block, err := allocator.Alloc()
	if err != nil {
		t.Fatalf("Alloc(): unexpected err: %v", err)
	}
	if block != ReservedBlocks {
		t.Fatalf("Alloc(): wanted `%d`; found `%d`", ReservedBlocks, block)
	}
	if !allocator.IsAllocated(block) {
		t.Fatalf("IsAllocated(%d): wanted `true`", block)
	}

	var found [BlockSize]byte
	if err := device.ReadBlock(block, &found); err != nil {
		t.Fatal(err)
	}
	if found != ([BlockSize]byte{}) {
		t.Fatal("Alloc(): block was not zero-filled")
	}
}

func TestAllocator_FreeKeepsContents(t *testing.T) {
	allocator, device, _ := newTestAllocator()

	block, err := allocator.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	data := [BlockSize]byte{0: 'z'}
	if err := device.WriteBlock(block, &data); err != nil {
		t.Fatal(err)
	}

	if err := allocator.Free(block); err != nil {
		t.Fatalf("Free(): unexpected err: %v", err)
	}
	if allocator.IsAllocated(block) {
		t.Fatalf("IsAllocated(%d): wanted `false` after Free()", block)
	}

	var found [BlockSize]byte
	if err := device.ReadBlock(block, &found); err != nil {
		t.Fatal(err)
	}
	if found[0] != 'z' {
		t.Fatal("Free(): block contents were modified")
	}
}

func TestAllocator_Exhaustion(t *testing.T) {
	allocator, _, _ := newTestAllocator()

	wanted := BlockCount - ReservedBlocks
	if found := allocator.FreeBlocks(); found != wanted {
		t.Fatalf("FreeBlocks(): wanted `%d`; found `%d`", wanted, found)
	}

	for i := Block(0); i < wanted; i++ {
		if _, err := allocator.Alloc(); err != nil {
			t.Fatalf("Alloc() #%d: unexpected err: %v", i, err)
		}
	}

	if _, err := allocator.Alloc(); !errors.Is(err, OutOfSpaceErr) {
		t.Fatalf("Alloc(): wanted `%v`; found `%v`", OutOfSpaceErr, err)
	}

	if err := allocator.Free(42); err != nil {
		t.Fatal(err)
	}

	block, err := allocator.Alloc()
	if err != nil {
		t.Fatalf("Alloc(): unexpected err after Free(): %v", err)
	}
	if block != 42 {
		t.Fatalf("Alloc(): wanted `42`; found `%d`", block)
	}
	if _, err := allocator.Alloc(); !errors.Is(err, OutOfSpaceErr) {
		t.Fatalf("Alloc(): wanted `%v`; found `%v`", OutOfSpaceErr, err)
	}
}

func TestAllocator_InvalidBlock(t *testing.T) {
	allocator, _, _ := newTestAllocator()
	if err := allocator.Free(BlockCount); !errors.Is(err, InvalidBlockErr) {
		t.Fatalf("Free(): wanted `%v`; found `%v`", InvalidBlockErr, err)
	}
	if err := allocator.Reserve(BlockCount); !errors.Is(err, InvalidBlockErr) {
		t.Fatalf("Reserve(): wanted `%v`; found `%v`", InvalidBlockErr, err)
	}
	if allocator.IsAllocated(BlockCount) {
		t.Fatal("IsAllocated(): wanted `false` for out-of-range block")
	}
}

func TestFlushableBitmap_Flush(t *testing.T) {
	allocator, _, store := newTestAllocator()

	if err := allocator.Bitmap.Flush(); err != nil {
		t.Fatal(err)
	}
	if store.puts != 1 || store.last[0] != 0b1110_0000 {
		t.Fatalf("Flush(): wanted one put of `0b11100000`; found `%d` puts", store.puts)
	}

	// a clean bitmap is not written again
	if err := allocator.Bitmap.Flush(); err != nil {
		t.Fatal(err)
	}
	if store.puts != 1 {
		t.Fatalf("Flush(): wanted `1` put; found `%d`", store.puts)
	}

	if _, err := allocator.Alloc(); err != nil {
		t.Fatal(err)
	}
	if !allocator.Bitmap.Dirty() {
		t.Fatal("Dirty(): wanted `true` after Alloc()")
	}
}

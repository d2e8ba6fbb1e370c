package data

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/weberc2/sfs/pkg/alloc"
	"github.com/weberc2/sfs/pkg/inode/store"
	"github.com/weberc2/sfs/pkg/io"
	. "github.com/weberc2/sfs/pkg/types"
)

type nopBitmapStore struct{}

func (nopBitmapStore) Put(alloc.Bitmap) error { return nil }

type fixture struct {
	device    *io.VolumeDevice
	allocator *alloc.Allocator
	inodes    store.DeviceInodeStore
	reader    Reader
	writer    Writer
	inode     Inode
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	device := io.NewVolumeDevice(io.NewImageBuffer())
	bitmap := alloc.NewFlushable(alloc.New(uint64(BlockCount)), nopBitmapStore{})
	for b := Block(0); b < ReservedBlocks; b++ {
		bitmap.Reserve(uint64(b))
	}
	allocator := alloc.NewAllocator(bitmap, device)
	inodes := store.NewDeviceInodeStore(device)

	block, err := allocator.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	inode := NewInode(&InodeParams{
		Block:    block,
		Name:     "f",
		FileType: FileTypeRegular,
		Now:      time.Unix(0, 0),
	})
	if err := inodes.Put(&inode); err != nil {
		t.Fatal(err)
	}

	now := func() time.Time { return time.Unix(500, 0) }
	return &fixture{
		device:    device,
		allocator: allocator,
		inodes:    inodes,
		reader:    NewReader(device),
		writer:    NewWriter(device, allocator, inodes, now),
		inode:     inode,
	}
}

func (f *fixture) write(t *testing.T, offset Byte, p []byte) {
	t.Helper()
	n, err := f.writer.Write(&f.inode, offset, p)
	if err != nil {
		t.Fatalf("Write(): unexpected err: %v", err)
	}
	if n != Byte(len(p)) {
		t.Fatalf("Write(): wanted `%d` bytes written; found `%d`", len(p), n)
	}
}

func (f *fixture) stored(t *testing.T) Inode {
	t.Helper()
	var inode Inode
	if err := f.inodes.Get(f.inode.Block, &inode); err != nil {
		t.Fatalf("loading stored inode: %v", err)
	}
	return inode
}

func TestWrite_Hello(t *testing.T) {
	f := newFixture(t)
	f.write(t, 0, []byte("hello"))

	stored := f.stored(t)
	if stored.Size != 5 || stored.BlockCount != 1 {
		t.Fatalf(
			"stored inode: wanted size `5` and `1` block; found `%d` and `%d`",
			stored.Size,
			stored.BlockCount,
		)
	}
	if stored.MTime != 500 {
		t.Fatalf("stored inode: wanted mtime `500`; found `%d`", stored.MTime)
	}

	out := make([]byte, 100)
	n, err := f.reader.Read(&stored, 0, out)
	if err != nil {
		t.Fatalf("Read(): unexpected err: %v", err)
	}
	if n != 5 || string(out[:n]) != "hello" {
		t.Fatalf("Read(): wanted `hello`; found `%s` (%d bytes)", out[:n], n)
	}
}

func TestWrite_SpansBlocks(t *testing.T) {
	f := newFixture(t)
	input := bytes.Repeat([]byte("0123456789"), 60)
	f.write(t, 0, input)

	stored := f.stored(t)
	if stored.Size != 600 || stored.BlockCount != 2 {
		t.Fatalf(
			"stored inode: wanted size `600` and `2` blocks; found `%d` and `%d`",
			stored.Size,
			stored.BlockCount,
		)
	}

	var first, second [BlockSize]byte
	if err := f.device.ReadBlock(stored.Blocks[0], &first); err != nil {
		t.Fatal(err)
	}
	if err := f.device.ReadBlock(stored.Blocks[1], &second); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first[:], input[:512]) {
		t.Fatal("first block: wanted the first `512` bytes")
	}
	if !bytes.Equal(second[:88], input[512:]) {
		t.Fatal("second block: wanted the remaining `88` bytes")
	}
	if !bytes.Equal(second[88:], make([]byte, BlockSize-88)) {
		t.Fatal("second block: wanted zeros after the data")
	}
}

func TestRead(t *testing.T) {
	type testCase struct {
		name   string
		offset Byte
		length int
		wanted string
	}

	content := bytes.Repeat([]byte("abcdefghij"), 60)

	testCases := []testCase{
		{name: "within first block", offset: 3, length: 4, wanted: "defg"},
		{
			name:   "across boundary",
			offset: 508,
			length: 8,
			wanted: string(content[508:516]),
		},
		{
			name:   "clipped at size",
			offset: 595,
			length: 50,
			wanted: string(content[595:]),
		},
		{name: "at size", offset: 600, length: 10, wanted: ""},
		{name: "past size", offset: 4096, length: 10, wanted: ""},
		{name: "empty buffer", offset: 0, length: 0, wanted: ""},
	}

	f := newFixture(t)
	f.write(t, 0, content)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := make([]byte, tc.length)
			n, err := f.reader.Read(&f.inode, tc.offset, out)
			if err != nil {
				t.Fatalf("Read(): unexpected err: %v", err)
			}
			if found := string(out[:n]); found != tc.wanted {
				t.Fatalf("Read(): wanted `%s`; found `%s`", tc.wanted, found)
			}
		})
	}
}

func TestWrite_Overwrite(t *testing.T) {
	f := newFixture(t)
	f.write(t, 0, []byte("hello world"))
	f.write(t, 6, []byte("WORLD"))

	if f.inode.Size != 11 || f.inode.BlockCount != 1 {
		t.Fatalf("inode: wanted size `11` and `1` block; found `%+v`", f.inode)
	}

	out := make([]byte, 11)
	if _, err := f.reader.Read(&f.inode, 0, out); err != nil {
		t.Fatal(err)
	}
	if string(out) != "hello WORLD" {
		t.Fatalf("Read(): wanted `hello WORLD`; found `%s`", out)
	}
}

func TestWrite_Gap(t *testing.T) {
	f := newFixture(t)
	f.write(t, 2*BlockSize, []byte("x"))

	if f.inode.BlockCount != 3 || f.inode.Size != 2*BlockSize+1 {
		t.Fatalf("inode: wanted `3` blocks and size `1025`; found `%+v`", f.inode)
	}

	out := make([]byte, 2*BlockSize+1)
	n, err := f.reader.Read(&f.inode, 0, out)
	if err != nil {
		t.Fatal(err)
	}
	if n != Byte(len(out)) {
		t.Fatalf("Read(): wanted `%d` bytes; found `%d`", len(out), n)
	}
	if !bytes.Equal(out[:2*BlockSize], make([]byte, 2*BlockSize)) || out[n-1] != 'x' {
		t.Fatal("Read(): wanted a zero-filled gap followed by `x`")
	}
}

func TestWrite_BlockTableFull(t *testing.T) {
	f := newFixture(t)
	input := make([]byte, BlockTableCapacity*BlockSize+10)

	n, err := f.writer.Write(&f.inode, 0, input)
	if !errors.Is(err, BlockTableFullErr) {
		t.Fatalf("Write(): wanted `%v`; found `%v`", BlockTableFullErr, err)
	}
	if n != BlockTableCapacity*BlockSize {
		t.Fatalf("Write(): wanted `%d` bytes; found `%d`", BlockTableCapacity*BlockSize, n)
	}

	stored := f.stored(t)
	if stored.BlockCount != BlockTableCapacity || stored.Size != n {
		t.Fatalf(
			"stored inode: wanted `%d` blocks and size `%d`; found `%d` and `%d`",
			BlockTableCapacity,
			n,
			stored.BlockCount,
			stored.Size,
		)
	}

	// nothing is allocated for a write that starts past the table
	free := f.allocator.FreeBlocks()
	n, err = f.writer.Write(&f.inode, BlockTableCapacity*BlockSize+100, []byte("x"))
	if !errors.Is(err, BlockTableFullErr) || n != 0 {
		t.Fatalf("Write(): wanted `0, %v`; found `%d, %v`", BlockTableFullErr, n, err)
	}
	if found := f.allocator.FreeBlocks(); found != free {
		t.Fatalf("FreeBlocks(): wanted `%d`; found `%d`", free, found)
	}
}

func TestWrite_OutOfSpace(t *testing.T) {
	f := newFixture(t)
	for f.allocator.FreeBlocks() > 1 {
		if _, err := f.allocator.Alloc(); err != nil {
			t.Fatal(err)
		}
	}

	n, err := f.writer.Write(&f.inode, 0, make([]byte, 600))
	if !errors.Is(err, OutOfSpaceErr) {
		t.Fatalf("Write(): wanted `%v`; found `%v`", OutOfSpaceErr, err)
	}
	if n != BlockSize {
		t.Fatalf("Write(): wanted `%d` bytes; found `%d`", BlockSize, n)
	}

	stored := f.stored(t)
	if stored.Size != BlockSize || stored.BlockCount != 1 {
		t.Fatalf(
			"stored inode: wanted size `%d` and `1` block; found `%d` and `%d`",
			BlockSize,
			stored.Size,
			stored.BlockCount,
		)
	}
}

func TestWrite_OutOfSpaceInGap(t *testing.T) {
	f := newFixture(t)
	for f.allocator.FreeBlocks() > 2 {
		if _, err := f.allocator.Alloc(); err != nil {
			t.Fatal(err)
		}
	}

	n, err := f.writer.Write(&f.inode, 5*BlockSize, []byte("x"))
	if !errors.Is(err, OutOfSpaceErr) {
		t.Fatalf("Write(): wanted `%v`; found `%v`", OutOfSpaceErr, err)
	}
	if n != 0 {
		t.Fatalf("Write(): wanted `0` bytes; found `%d`", n)
	}

	stored := f.stored(t)
	if stored.Size != 0 || stored.BlockCount != 2 {
		t.Fatalf(
			"stored inode: wanted size `0` and `2` blocks; found `%d` and `%d`",
			stored.Size,
			stored.BlockCount,
		)
	}

	out := make([]byte, 16)
	if n, err := f.reader.Read(&stored, 0, out); err != nil || n != 0 {
		t.Fatalf("Read(): wanted `0` bytes and no err; found `%d` and `%v`", n, err)
	}

	f.inode = stored
	f.write(t, 0, []byte("ab"))
	n, err = f.reader.Read(&f.inode, 0, out)
	if err != nil {
		t.Fatalf("Read(): unexpected err: %v", err)
	}
	if string(out[:n]) != "ab" {
		t.Fatalf("Read(): wanted `ab`; found `%s`", out[:n])
	}
}

func TestWrite_InvalidOffset(t *testing.T) {
	f := newFixture(t)
	if _, err := f.writer.Write(&f.inode, -1, []byte("x")); !errors.Is(err, InvalidOffsetErr) {
		t.Fatalf("Write(): wanted `%v`; found `%v`", InvalidOffsetErr, err)
	}
	if _, err := f.reader.Read(&f.inode, -1, make([]byte, 1)); !errors.Is(err, InvalidOffsetErr) {
		t.Fatalf("Read(): wanted `%v`; found `%v`", InvalidOffsetErr, err)
	}
}

func TestTruncate(t *testing.T) {
	type testCase struct {
		name         string
		size         Byte
		wantedBlocks uint32
	}

	testCases := []testCase{
		{name: "shrink within block", size: 520, wantedBlocks: 2},
		{name: "shrink to boundary", size: BlockSize, wantedBlocks: 1},
		{name: "shrink to zero", size: 0, wantedBlocks: 0},
		{name: "grow", size: 1500, wantedBlocks: 3},
		{name: "unchanged", size: 600, wantedBlocks: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			content := bytes.Repeat([]byte{'z'}, 600)
			f.write(t, 0, content)
			free := f.allocator.FreeBlocks()

			if err := f.writer.Truncate(&f.inode, tc.size); err != nil {
				t.Fatalf("Truncate(): unexpected err: %v", err)
			}

			stored := f.stored(t)
			if stored.Size != tc.size || stored.BlockCount != tc.wantedBlocks {
				t.Fatalf(
					"stored inode: wanted size `%d` and `%d` blocks; found `%d` and `%d`",
					tc.size,
					tc.wantedBlocks,
					stored.Size,
					stored.BlockCount,
				)
			}
			wantedFree := free + Block(2) - Block(tc.wantedBlocks)
			if found := f.allocator.FreeBlocks(); found != wantedFree {
				t.Fatalf("FreeBlocks(): wanted `%d`; found `%d`", wantedFree, found)
			}

			// regrow and check nothing stale reappears
			f.write(t, 1499, []byte{'!'})
			out := make([]byte, 1500)
			if _, err := f.reader.Read(&f.inode, 0, out); err != nil {
				t.Fatal(err)
			}
			kept := min(tc.size, 600)
			for i, c := range out[:1499] {
				wanted := byte(0)
				if Byte(i) < kept {
					wanted = 'z'
				}
				if c != wanted {
					t.Fatalf("byte `%d`: wanted `%q`; found `%q`", i, wanted, c)
				}
			}
		})
	}
}

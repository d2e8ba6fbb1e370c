package store

import (
	"errors"
	"testing"
	"time"

	"github.com/weberc2/sfs/pkg/encode"
	"github.com/weberc2/sfs/pkg/io"
	. "github.com/weberc2/sfs/pkg/types"
)

func TestDeviceInodeStore(t *testing.T) {
	device := io.NewVolumeDevice(io.NewImageBuffer())
	store := NewDeviceInodeStore(device)

	wanted := NewInode(&InodeParams{
		Block:    7,
		Name:     "a",
		FileType: FileTypeRegular,
		Now:      time.Unix(100, 0),
	})
	if err := store.Put(&wanted); err != nil {
		t.Fatalf("Put(): unexpected err: %v", err)
	}

	var found Inode
	if err := store.Get(7, &found); err != nil {
		t.Fatalf("Get(): unexpected err: %v", err)
	}
	if found != wanted {
		t.Fatalf("Get(): wanted `%s`; found `%s`", mustJSON(t, &wanted), mustJSON(t, &found))
	}
}

func TestDeviceInodeStore_Errors(t *testing.T) {
	device := io.NewVolumeDevice(io.NewImageBuffer())
	store := NewDeviceInodeStore(device)

	// a record written to block 9 but claiming block 8
	misplaced := Inode{Block: 8, FileType: FileTypeDir}
	var buf [BlockSize]byte
	encode.EncodeInode(&misplaced, &buf)
	if err := device.WriteBlock(9, &buf); err != nil {
		t.Fatal(err)
	}

	type testCase struct {
		name   string
		block  Block
		wanted error
	}

	for _, tc := range []testCase{
		{name: "nil block", block: BlockNil, wanted: InvalidBlockErr},
		{name: "out of range", block: BlockCount, wanted: InvalidBlockErr},
		{name: "never written", block: 20, wanted: CorruptInodeErr},
		{name: "self id mismatch", block: 9, wanted: CorruptInodeErr},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var out Inode
			if err := store.Get(tc.block, &out); !errors.Is(err, tc.wanted) {
				t.Fatalf("Get(%d): wanted `%v`; found `%v`", tc.block, tc.wanted, err)
			}
		})
	}

	if err := store.Put(&Inode{Block: BlockNil}); !errors.Is(err, InvalidBlockErr) {
		t.Fatalf("Put(): wanted `%v`; found `%v`", InvalidBlockErr, err)
	}
}

type countingStore struct {
	InodeStore
	gets int
}

func (s *countingStore) Get(block Block, out *Inode) error {
	s.gets++
	return s.InodeStore.Get(block, out)
}

func TestCachingInodeStore(t *testing.T) {
	device := io.NewVolumeDevice(io.NewImageBuffer())
	backend := &countingStore{InodeStore: NewDeviceInodeStore(device)}
	store := NewCachingInodeStore(backend, 4)

	inode := Inode{Block: 5, Name: "f", FileType: FileTypeRegular}
	if err := store.Put(&inode); err != nil {
		t.Fatal(err)
	}

	var found Inode
	for i := 0; i < 3; i++ {
		if err := store.Get(5, &found); err != nil {
			t.Fatal(err)
		}
	}
	if backend.gets != 0 {
		t.Fatalf("backend gets: wanted `0`; found `%d`", backend.gets)
	}

	// the write went through to the device
	if err := NewDeviceInodeStore(device).Get(5, &found); err != nil {
		t.Fatalf("reading through device: %v", err)
	}

	store.Forget(5)
	if err := store.Get(5, &found); err != nil {
		t.Fatal(err)
	}
	if backend.gets != 1 {
		t.Fatalf("backend gets after Forget(): wanted `1`; found `%d`", backend.gets)
	}
}

// Package fs is the path-based operation surface of a mounted volume.
// Every operation runs under one session-wide lock.
package fs

import (
	"context"
	"errors"
	"fmt"
	goio "io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weberc2/sfs/pkg/alloc"
	allocstore "github.com/weberc2/sfs/pkg/alloc/store"
	"github.com/weberc2/sfs/pkg/directory"
	"github.com/weberc2/sfs/pkg/encode"
	"github.com/weberc2/sfs/pkg/inode/data"
	"github.com/weberc2/sfs/pkg/inode/store"
	"github.com/weberc2/sfs/pkg/io"
	"github.com/weberc2/sfs/pkg/log"
	. "github.com/weberc2/sfs/pkg/types"
)

const (
	DefaultInodeCacheSize = 32
	RootMode              = 0o755
)

type MountOptions struct {
	// Reformat discards whatever the device holds and writes an empty
	// volume. A device without a valid superblock is always reformatted.
	Reformat bool

	// UID and GID own the inodes created by the session. They default to
	// the ids of the current process.
	UID *uint32
	GID *uint32

	InodeCacheSize int
	Clock          func() time.Time
}

type Session struct {
	ID uuid.UUID

	device    io.Device
	bitmap    *alloc.FlushableBitmap
	allocator *alloc.Allocator
	inodes    *store.CachingInodeStore
	tree      directory.Tree
	reader    data.Reader
	writer    data.Writer
	uid       uint32
	gid       uint32
	now       func() time.Time
	logger    *slog.Logger

	mutex   sync.Mutex
	mounted bool
}

// Mount loads the volume on `device`. The session owns the device from
// here on and closes it at unmount when it is closable.
func Mount(
	ctx context.Context,
	device io.Device,
	options *MountOptions,
) (*Session, error) {
	if options == nil {
		options = &MountOptions{}
	}

	s := Session{
		ID:     uuid.New(),
		device: device,
		uid:    uint32(os.Getuid()),
		gid:    uint32(os.Getgid()),
		now:    options.Clock,
	}
	if options.UID != nil {
		s.uid = *options.UID
	}
	if options.GID != nil {
		s.gid = *options.GID
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.logger = log.FromContext(ctx).With(
		"component", "fs",
		"session", s.ID.String(),
	)

	bitmapStore := allocstore.NewVolumeBitmapStore(device)
	bitmap, err := bitmapStore.Get()
	if err != nil {
		return nil, fmt.Errorf("mounting: %w", err)
	}
	s.bitmap = alloc.NewFlushable(bitmap, bitmapStore)
	s.allocator = alloc.NewAllocator(s.bitmap, device)

	cacheSize := options.InodeCacheSize
	if cacheSize == 0 {
		cacheSize = DefaultInodeCacheSize
	}
	s.inodes = store.NewCachingInodeStore(
		store.NewDeviceInodeStore(device),
		cacheSize,
	)
	s.reader = data.NewReader(device)
	s.writer = data.NewWriter(device, s.allocator, s.inodes, s.now)

	var superblock Superblock
	var buf [BlockSize]byte
	if err := device.ReadBlock(SuperblockBlock, &buf); err != nil {
		return nil, fmt.Errorf("mounting: reading superblock: %w", err)
	}
	err = encode.DecodeSuperblock(&superblock, &buf)
	switch {
	case options.Reformat || errors.Is(err, BadMagicErr):
		s.logger.Info("formatting volume", "forced", options.Reformat)
		if err := s.format(); err != nil {
			return nil, fmt.Errorf("mounting: %w", err)
		}
		superblock = NewSuperblock(RootBlock)
	case err != nil:
		return nil, fmt.Errorf("mounting: %w", err)
	}

	s.tree = directory.Tree{
		Inodes:    s.inodes,
		Allocator: s.allocator,
		Root:      superblock.Root,
	}

	var root Inode
	if err := s.inodes.Get(superblock.Root, &root); err != nil {
		return nil, fmt.Errorf("mounting: loading root: %w", err)
	}
	if root.FileType != FileTypeDir {
		return nil, fmt.Errorf(
			"mounting: root inode `%d` is `%s`: %w",
			root.Block,
			root.FileType,
			CorruptInodeErr,
		)
	}

	s.mounted = true
	s.logger.Info(
		"mounted",
		"root", superblock.Root,
		"freeBlocks", s.allocator.FreeBlocks(),
	)
	return &s, nil
}

// format writes an empty volume: reserved flags only, a fresh root and a
// fresh superblock.
func (s *Session) format() error {
	s.bitmap.Reset()
	for b := Block(0); b < ReservedBlocks; b++ {
		if err := s.allocator.Reserve(b); err != nil {
			return fmt.Errorf("formatting: %w", err)
		}
	}

	root := NewInode(&InodeParams{
		Block:    RootBlock,
		FileType: FileTypeDir,
		Mode:     RootMode,
		UID:      s.uid,
		GID:      s.gid,
		Now:      s.now(),
	})
	if err := s.inodes.Put(&root); err != nil {
		return fmt.Errorf("formatting: writing root: %w", err)
	}

	superblock := NewSuperblock(RootBlock)
	var buf [BlockSize]byte
	encode.EncodeSuperblock(&superblock, &buf)
	if err := s.device.WriteBlock(SuperblockBlock, &buf); err != nil {
		return fmt.Errorf("formatting: writing superblock: %w", err)
	}

	if err := s.bitmap.Flush(); err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	return nil
}

// Unmount flushes the bitmap and closes the device. The session is
// unusable afterwards.
func (s *Session) Unmount(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.mounted {
		return fmt.Errorf("unmounting: %w", NotMountedErr)
	}
	s.mounted = false

	err := s.bitmap.Flush()
	if err != nil {
		err = fmt.Errorf("unmounting: flushing bitmap: %w", err)
	}
	if c, ok := s.device.(goio.Closer); ok {
		if cerr := c.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("unmounting: closing device: %w", cerr))
		}
	}

	s.logger.InfoContext(ctx, "unmounted", "err", err)
	return err
}

// Sync writes the bitmap if it changed since the last flush.
func (s *Session) Sync(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.mounted {
		return fmt.Errorf("syncing: %w", NotMountedErr)
	}
	if err := s.bitmap.Flush(); err != nil {
		return fmt.Errorf("syncing: %w", err)
	}
	return nil
}

// lock acquires the session lock; callers must unlock when it returns nil.
func (s *Session) lock(op string) error {
	s.mutex.Lock()
	if !s.mounted {
		s.mutex.Unlock()
		return fmt.Errorf("%s: %w", op, NotMountedErr)
	}
	return nil
}

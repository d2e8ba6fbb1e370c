package fs

import (
	"context"
	"fmt"

	"github.com/weberc2/sfs/pkg/directory"
	. "github.com/weberc2/sfs/pkg/types"
)

// Entries returns the children of the directory at `path` in link order.
func (s *Session) Entries(ctx context.Context, path string) ([]Entry, error) {
	if err := s.lock("listing directory"); err != nil {
		return nil, err
	}
	defer s.mutex.Unlock()
	s.logger.DebugContext(ctx, "readdir", "path", path)

	var dir Inode
	if err := directory.Resolve(&s.tree, path, &dir); err != nil {
		return nil, fmt.Errorf("listing directory: %w", err)
	}
	if dir.FileType != FileTypeDir {
		return nil, fmt.Errorf("listing directory `%s`: %w", path, NotADirErr)
	}

	children, err := directory.Children(&s.tree, &dir)
	if err != nil {
		return nil, fmt.Errorf("listing directory `%s`: %w", path, err)
	}
	entries := make([]Entry, len(children))
	for i := range children {
		entries[i] = Entry{
			Name:     children[i].Name,
			Block:    children[i].Block,
			FileType: children[i].FileType,
		}
	}
	return entries, nil
}

// ListDirectory emits "." and ".." followed by each child's name. It stops
// early when `emit` returns false.
func (s *Session) ListDirectory(
	ctx context.Context,
	path string,
	emit func(name string) bool,
) error {
	entries, err := s.Entries(ctx, path)
	if err != nil {
		return err
	}
	if !emit(".") || !emit("..") {
		return nil
	}
	for _, entry := range entries {
		if !emit(entry.Name) {
			return nil
		}
	}
	return nil
}

func (s *Session) OpenDirectory(ctx context.Context, path string) error {
	return s.touchPath(ctx, "opendir", path)
}

func (s *Session) ReleaseDirectory(ctx context.Context, path string) error {
	return s.touchPath(ctx, "releasedir", path)
}

func (s *Session) MakeDirectory(ctx context.Context, path string, mode uint32) error {
	s.logger.DebugContext(ctx, "mkdir", "path", path, "mode", mode)
	return fmt.Errorf("making directory `%s`: %w", path, NotSupportedErr)
}

func (s *Session) RemoveDirectory(ctx context.Context, path string) error {
	s.logger.DebugContext(ctx, "rmdir", "path", path)
	return fmt.Errorf("removing directory `%s`: %w", path, NotSupportedErr)
}

func (s *Session) Statfs(ctx context.Context) (Statfs, error) {
	if err := s.lock("statfs"); err != nil {
		return Statfs{}, err
	}
	defer s.mutex.Unlock()
	s.logger.DebugContext(ctx, "statfs")

	return Statfs{
		BlockSize:    BlockSize,
		Blocks:       uint64(BlockCount),
		FreeBlocks:   uint64(s.allocator.FreeBlocks()),
		NameCapacity: NameCapacity,
	}, nil
}

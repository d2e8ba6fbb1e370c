package fs

import (
	"context"
	"fmt"

	"github.com/weberc2/sfs/pkg/directory"
	. "github.com/weberc2/sfs/pkg/types"
)

func (s *Session) GetAttributes(ctx context.Context, path string) (Attributes, error) {
	if err := s.lock("getting attributes"); err != nil {
		return Attributes{}, err
	}
	defer s.mutex.Unlock()
	s.logger.DebugContext(ctx, "getattr", "path", path)

	var inode Inode
	if err := directory.Resolve(&s.tree, path, &inode); err != nil {
		return Attributes{}, fmt.Errorf("getting attributes: %w", err)
	}
	return attributes(&inode), nil
}

// Create makes an empty regular file at `path`.
func (s *Session) Create(
	ctx context.Context,
	path string,
	mode uint32,
) (Attributes, error) {
	if err := s.lock("creating file"); err != nil {
		return Attributes{}, err
	}
	defer s.mutex.Unlock()
	s.logger.DebugContext(ctx, "create", "path", path, "mode", mode)

	parent, name, err := directory.Parent(path)
	if err != nil {
		return Attributes{}, fmt.Errorf("creating file: %w", err)
	}
	if name == "" {
		return Attributes{}, fmt.Errorf(
			"creating file `%s`: %w",
			path,
			AlreadyExistsErr,
		)
	}

	inode, err := directory.Insert(&s.tree, parent, &InodeParams{
		Name:     name,
		FileType: FileTypeRegular,
		Mode:     uint16(mode),
		UID:      s.uid,
		GID:      s.gid,
		Now:      s.now(),
	})
	if err != nil {
		return Attributes{}, fmt.Errorf("creating file `%s`: %w", path, err)
	}
	return attributes(&inode), nil
}

// Remove unlinks the regular file at `path` and releases its blocks.
func (s *Session) Remove(ctx context.Context, path string) error {
	if err := s.lock("removing file"); err != nil {
		return err
	}
	defer s.mutex.Unlock()
	s.logger.DebugContext(ctx, "unlink", "path", path)

	var inode Inode
	if err := directory.Resolve(&s.tree, path, &inode); err != nil {
		return fmt.Errorf("removing file: %w", err)
	}
	if inode.FileType == FileTypeDir {
		return fmt.Errorf("removing file `%s`: %w", path, IsADirErr)
	}
	if _, err := directory.Remove(&s.tree, path); err != nil {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}

// Open tracks no handle state; it only checks that `path` exists.
func (s *Session) Open(ctx context.Context, path string) error {
	return s.touchPath(ctx, "open", path)
}

func (s *Session) Release(ctx context.Context, path string) error {
	return s.touchPath(ctx, "release", path)
}

func (s *Session) touchPath(ctx context.Context, op, path string) error {
	if err := s.lock(op); err != nil {
		return err
	}
	defer s.mutex.Unlock()
	s.logger.DebugContext(ctx, op, "path", path)

	var inode Inode
	if err := directory.Resolve(&s.tree, path, &inode); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Read copies file contents at `offset` into `buf` and returns the number
// of bytes copied, which is short at the end of the file.
func (s *Session) Read(
	ctx context.Context,
	path string,
	buf []byte,
	offset int64,
) (int, error) {
	if err := s.lock("reading file"); err != nil {
		return 0, err
	}
	defer s.mutex.Unlock()
	s.logger.DebugContext(
		ctx,
		"read",
		"path", path,
		"offset", offset,
		"size", len(buf),
	)

	inode, err := s.regularFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}
	n, err := s.reader.Read(&inode, Byte(offset), buf)
	if err != nil {
		return int(n), fmt.Errorf("reading file `%s`: %w", path, err)
	}
	return int(n), nil
}

// Write stores `buf` at `offset`, growing the file as needed. When the
// volume fills part way, the bytes already written are kept and counted.
func (s *Session) Write(
	ctx context.Context,
	path string,
	buf []byte,
	offset int64,
) (int, error) {
	if err := s.lock("writing file"); err != nil {
		return 0, err
	}
	defer s.mutex.Unlock()
	s.logger.DebugContext(
		ctx,
		"write",
		"path", path,
		"offset", offset,
		"size", len(buf),
	)

	inode, err := s.regularFile(path)
	if err != nil {
		return 0, fmt.Errorf("writing file: %w", err)
	}
	n, err := s.writer.Write(&inode, Byte(offset), buf)
	if err != nil {
		return int(n), fmt.Errorf("writing file `%s`: %w", path, err)
	}
	return int(n), nil
}

func (s *Session) Truncate(ctx context.Context, path string, size int64) error {
	if err := s.lock("truncating file"); err != nil {
		return err
	}
	defer s.mutex.Unlock()
	s.logger.DebugContext(ctx, "truncate", "path", path, "size", size)

	inode, err := s.regularFile(path)
	if err != nil {
		return fmt.Errorf("truncating file: %w", err)
	}
	if err := s.writer.Truncate(&inode, Byte(size)); err != nil {
		return fmt.Errorf("truncating file `%s`: %w", path, err)
	}
	return nil
}

func (s *Session) regularFile(path string) (Inode, error) {
	var inode Inode
	if err := directory.Resolve(&s.tree, path, &inode); err != nil {
		return Inode{}, err
	}
	if inode.FileType == FileTypeDir {
		return Inode{}, fmt.Errorf("resolving `%s`: %w", path, IsADirErr)
	}
	return inode, nil
}

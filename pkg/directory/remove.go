package directory

import (
	"fmt"

	. "github.com/weberc2/sfs/pkg/types"
)

// Remove unlinks the inode at `path` and releases its block and data
// blocks. The released blocks keep their contents. Directories must be
// empty and the root cannot be removed.
func Remove(tree *Tree, path string) (Inode, error) {
	segments, err := Split(path)
	if err != nil {
		return Inode{}, fmt.Errorf("removing: %w", err)
	}
	if len(segments) < 1 {
		return Inode{}, fmt.Errorf("removing `%s`: %w", path, IsRootErr)
	}

	var dir Inode
	if err := resolveSegments(tree, segments[:len(segments)-1], &dir); err != nil {
		return Inode{}, fmt.Errorf("removing `%s`: %w", path, err)
	}

	var target, prev Inode
	found, hasPrev, err := lookup(
		tree,
		&dir,
		segments[len(segments)-1],
		&target,
		&prev,
	)
	if err != nil {
		return Inode{}, fmt.Errorf("removing `%s`: %w", path, err)
	}
	if !found {
		return Inode{}, fmt.Errorf("removing `%s`: %w", path, NotFoundErr)
	}
	if target.FileType == FileTypeDir && target.FirstChild != BlockNil {
		return Inode{}, fmt.Errorf("removing `%s`: %w", path, DirNotEmptyErr)
	}

	link := &dir
	if hasPrev {
		prev.Sibling = target.Sibling
		link = &prev
	} else {
		dir.FirstChild = target.Sibling
	}
	if err := tree.Inodes.Put(link); err != nil {
		return Inode{}, fmt.Errorf(
			"removing `%s`: unlinking from inode `%d`: %w",
			path,
			link.Block,
			err,
		)
	}

	tree.forget(target.Block)
	for _, block := range target.DataBlocks() {
		if err := tree.Allocator.Free(block); err != nil {
			return Inode{}, fmt.Errorf(
				"removing `%s`: releasing data block: %w",
				path,
				err,
			)
		}
	}
	if err := tree.Allocator.Free(target.Block); err != nil {
		return Inode{}, fmt.Errorf("removing `%s`: %w", path, err)
	}

	return target, nil
}

package directory

import (
	"errors"
	"fmt"
	"strings"

	. "github.com/weberc2/sfs/pkg/types"
)

// Insert creates a new inode named `params.Name` under the directory at
// `parent`. The new inode becomes the parent's first child or the tail of
// its sibling chain; exactly one existing inode is rewritten to link it.
func Insert(tree *Tree, parent string, params *InodeParams) (Inode, error) {
	if err := validName(params.Name); err != nil {
		return Inode{}, fmt.Errorf("inserting into `%s`: %w", parent, err)
	}

	var dir Inode
	if err := Resolve(tree, parent, &dir); err != nil {
		return Inode{}, fmt.Errorf("inserting `%s`: %w", params.Name, err)
	}
	if dir.FileType != FileTypeDir {
		return Inode{}, fmt.Errorf(
			"inserting `%s` into `%s`: %w",
			params.Name,
			parent,
			NotADirErr,
		)
	}

	var (
		tail    Inode
		hasTail bool
		exists  bool
	)
	if err := walk(tree, &dir, func(child, _ *Inode) bool {
		if child.Name == params.Name {
			exists = true
			return false
		}
		tail, hasTail = *child, true
		return true
	}); err != nil {
		return Inode{}, fmt.Errorf(
			"inserting `%s` into `%s`: %w",
			params.Name,
			parent,
			err,
		)
	}
	if exists {
		return Inode{}, fmt.Errorf(
			"inserting `%s` into `%s`: %w",
			params.Name,
			parent,
			AlreadyExistsErr,
		)
	}

	block, err := tree.Allocator.Alloc()
	if err != nil {
		return Inode{}, fmt.Errorf(
			"inserting `%s` into `%s`: %w",
			params.Name,
			parent,
			err,
		)
	}

	p := *params
	p.Block = block
	inode := NewInode(&p)
	if err := tree.Inodes.Put(&inode); err != nil {
		return Inode{}, errors.Join(
			fmt.Errorf(
				"inserting `%s` into `%s`: %w",
				params.Name,
				parent,
				err,
			),
			tree.Allocator.Free(block),
		)
	}

	link := &dir
	if hasTail {
		tail.Sibling = block
		link = &tail
	} else {
		dir.FirstChild = block
	}
	if err := tree.Inodes.Put(link); err != nil {
		tree.forget(block)
		return Inode{}, errors.Join(
			fmt.Errorf(
				"inserting `%s` into `%s`: linking from inode `%d`: %w",
				params.Name,
				parent,
				link.Block,
				err,
			),
			tree.Allocator.Free(block),
		)
	}

	return inode, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return fmt.Errorf("validating name `%s`: %w", name, InvalidNameErr)
	}
	if len(name) > NameCapacity {
		return fmt.Errorf(
			"validating name of `%d` bytes (max `%d`): %w",
			len(name),
			NameCapacity,
			NameTooLongErr,
		)
	}
	return nil
}

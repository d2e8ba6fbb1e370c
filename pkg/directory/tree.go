// Package directory resolves and mutates the inode tree. Every inode links
// to its first child and its next sibling; a directory's children are the
// chain starting at its first child.
package directory

import (
	"fmt"

	"github.com/weberc2/sfs/pkg/alloc"
	"github.com/weberc2/sfs/pkg/inode/store"
	. "github.com/weberc2/sfs/pkg/types"
)

type Tree struct {
	Inodes    store.InodeStore
	Allocator *alloc.Allocator
	Root      Block
}

type forgetter interface {
	Forget(Block)
}

// Children returns the direct children of `dir` in link order.
func Children(tree *Tree, dir *Inode) ([]Inode, error) {
	var children []Inode
	err := walk(tree, dir, func(child, _ *Inode) bool {
		children = append(children, *child)
		return true
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

// walk visits the children of `dir` in order, passing each child and its
// predecessor (nil for the first child). It stops when `visit` returns
// false.
func walk(tree *Tree, dir *Inode, visit func(child, prev *Inode) bool) error {
	var prev, child Inode
	havePrev := false
	next := dir.FirstChild
	for steps := Block(0); next != BlockNil; steps++ {
		// a chain longer than the volume means the links loop
		if steps >= BlockCount {
			return fmt.Errorf(
				"walking children of inode `%d`: sibling chain does not "+
					"terminate: %w",
				dir.Block,
				CorruptInodeErr,
			)
		}
		if err := tree.Inodes.Get(next, &child); err != nil {
			return fmt.Errorf("walking children of inode `%d`: %w", dir.Block, err)
		}

		var p *Inode
		if havePrev {
			p = &prev
		}
		if !visit(&child, p) {
			return nil
		}

		prev, havePrev = child, true
		next = child.Sibling
	}
	return nil
}

// lookup finds the child of `dir` named `name`. `prev` is set to the
// preceding sibling when there is one.
func lookup(
	tree *Tree,
	dir *Inode,
	name string,
	out *Inode,
	prev *Inode,
) (found, hasPrev bool, err error) {
	err = walk(tree, dir, func(child, p *Inode) bool {
		if child.Name != name {
			return true
		}
		*out = *child
		if p != nil {
			*prev = *p
			hasPrev = true
		}
		found = true
		return false
	})
	return
}

func (tree *Tree) forget(block Block) {
	if f, ok := tree.Inodes.(forgetter); ok {
		f.Forget(block)
	}
}

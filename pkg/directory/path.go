package directory

import (
	"fmt"
	"strings"

	. "github.com/weberc2/sfs/pkg/types"
)

// Split breaks an absolute path into its segments. Empty segments are
// dropped, so "/a//b/" yields ["a", "b"] and "/" yields none.
func Split(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("splitting path `%s`: %w", path, NotAbsolutePathErr)
	}

	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if len(segment) > NameCapacity {
			return nil, fmt.Errorf(
				"splitting path `%s`: segment of `%d` bytes exceeds `%d`: %w",
				path,
				len(segment),
				NameCapacity,
				NameTooLongErr,
			)
		}
		segments = append(segments, segment)
	}
	return segments, nil
}

// Parent splits `path` into its parent directory and final segment. The
// root has no final segment.
func Parent(path string) (string, string, error) {
	segments, err := Split(path)
	if err != nil {
		return "", "", err
	}
	if len(segments) < 1 {
		return "/", "", nil
	}
	last := len(segments) - 1
	return "/" + strings.Join(segments[:last], "/"), segments[last], nil
}

func Resolve(tree *Tree, path string, out *Inode) error {
	segments, err := Split(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if err := resolveSegments(tree, segments, out); err != nil {
		return fmt.Errorf("resolving path `%s`: %w", path, err)
	}
	return nil
}

func resolveSegments(tree *Tree, segments []string, out *Inode) error {
	var current Inode
	if err := tree.Inodes.Get(tree.Root, &current); err != nil {
		return fmt.Errorf("loading root: %w", err)
	}

	var child, prev Inode
	for _, segment := range segments {
		found, _, err := lookup(tree, &current, segment, &child, &prev)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("looking up `%s`: %w", segment, NotFoundErr)
		}
		current = child
	}

	*out = current
	return nil
}

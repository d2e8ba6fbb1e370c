package io

import (
	"errors"
	"fmt"
	"io"
	"os"

	. "github.com/weberc2/sfs/pkg/types"
)

// File is a volume over an image file on the host filesystem.
type File struct {
	f *os.File
}

func NewFile(f *os.File) *File { return &File{f: f} }

func (f *File) Name() string { return f.f.Name() }

func (f *File) ReadAt(offset Byte, p []byte) error {
	if _, err := f.f.ReadAt(p, int64(offset)); err != nil {
		return fmt.Errorf(
			"reading `%d` bytes from `%s` at offset `%d`: %w",
			len(p),
			f.f.Name(),
			offset,
			err,
		)
	}
	return nil
}

func (f *File) WriteAt(offset Byte, p []byte) error {
	if _, err := f.f.WriteAt(p, int64(offset)); err != nil {
		return fmt.Errorf(
			"writing `%d` bytes to `%s` at offset `%d`: %w",
			len(p),
			f.f.Name(),
			offset,
			err,
		)
	}
	return nil
}

func (f *File) Sync() error { return f.f.Sync() }

func (f *File) Close() error { return f.f.Close() }

// OpenImage opens the image file at `path`. With `create` set, a missing
// file is created and any image shorter than `ImageSize` is zero-extended.
func OpenImage(path string, create bool) (*File, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening image `%s`: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("opening image `%s`: stat: %w", path, err),
			f.Close(),
		)
	}

	if size := Byte(info.Size()); size < ImageSize {
		if !create {
			return nil, errors.Join(
				fmt.Errorf(
					"opening image `%s`: size `%d` is smaller than `%d`: %w",
					path,
					size,
					ImageSize,
					io.ErrUnexpectedEOF,
				),
				f.Close(),
			)
		}
		if err := f.Truncate(int64(ImageSize)); err != nil {
			return nil, errors.Join(
				fmt.Errorf("opening image `%s`: extending: %w", path, err),
				f.Close(),
			)
		}
	}

	return NewFile(f), nil
}

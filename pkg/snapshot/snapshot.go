// Package snapshot copies whole volume images to and from an object store.
// Each snapshot lives at `<slug>/<timestamp>-<uuid>.img.gz`, so a
// lexicographic listing of a volume's prefix is also a chronological one.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/weberc2/sfs/pkg/encode"
	sfsio "github.com/weberc2/sfs/pkg/io"
	"github.com/weberc2/sfs/pkg/log"
	"github.com/weberc2/sfs/pkg/objectstore"
	. "github.com/weberc2/sfs/pkg/types"
)

const (
	Suffix          = ".img.gz"
	timestampLayout = "20060102T150405Z"
)

type Snapshots struct {
	Store  objectstore.ObjectStore
	Bucket string
	Now    func() time.Time
	NewID  func() uuid.UUID
}

// New returns a `Snapshots` which gzips images into `bucket`.
func New(store objectstore.ObjectStore, bucket string) *Snapshots {
	return &Snapshots{
		Store:  &objectstore.GzipObjectStore{ObjectStore: store},
		Bucket: bucket,
		Now:    time.Now,
		NewID:  uuid.New,
	}
}

// Prefix returns the key prefix under which snapshots of the volume `name`
// are stored.
func Prefix(name string) string { return slug.Make(name) + "/" }

func (s *Snapshots) key(name string) string {
	return fmt.Sprintf(
		"%s%s-%s%s",
		Prefix(name),
		s.Now().UTC().Format(timestampLayout),
		s.NewID(),
		Suffix,
	)
}

// Push copies every block of `device` into a new snapshot of the volume
// `name` and returns its key.
func (s *Snapshots) Push(
	ctx context.Context,
	name string,
	device sfsio.Device,
) (string, error) {
	image := make([]byte, 0, sfsio.ImageSize)
	var b [BlockSize]byte
	for block := Block(0); block < BlockCount; block++ {
		if err := device.ReadBlock(block, &b); err != nil {
			return "", fmt.Errorf("pushing snapshot of `%s`: %w", name, err)
		}
		image = append(image, b[:]...)
	}

	key := s.key(name)
	if err := s.Store.PutObject(
		ctx,
		s.Bucket,
		key,
		bytes.NewReader(image),
	); err != nil {
		return "", fmt.Errorf("pushing snapshot of `%s`: %w", name, err)
	}
	log.FromContext(ctx).Info(
		"pushed snapshot",
		"volume", name,
		"bucket", s.Bucket,
		"key", key,
	)
	return key, nil
}

// Pull overwrites every block of `device` with the snapshot at `key`. The
// image is validated before the first block is written.
func (s *Snapshots) Pull(
	ctx context.Context,
	key string,
	device sfsio.Device,
) error {
	body, err := s.Store.GetObject(ctx, s.Bucket, key)
	if err != nil {
		return fmt.Errorf("pulling snapshot `%s`: %w", key, err)
	}
	defer body.Close()

	image, err := io.ReadAll(io.LimitReader(body, int64(sfsio.ImageSize)+1))
	if err != nil {
		return fmt.Errorf("pulling snapshot `%s`: reading body: %w", key, err)
	}
	if Byte(len(image)) != sfsio.ImageSize {
		return fmt.Errorf(
			"pulling snapshot `%s`: wanted `%d` bytes; found `%d`: %w",
			key,
			sfsio.ImageSize,
			len(image),
			CorruptImageErr,
		)
	}

	var b [BlockSize]byte
	var superblock Superblock
	copy(b[:], image[:BlockSize])
	if err := encode.DecodeSuperblock(&superblock, &b); err != nil {
		return fmt.Errorf(
			"pulling snapshot `%s`: %w: %w",
			key,
			CorruptImageErr,
			err,
		)
	}

	for block := Block(0); block < BlockCount; block++ {
		copy(b[:], image[block.Offset():block.Offset()+BlockSize])
		if err := device.WriteBlock(block, &b); err != nil {
			return fmt.Errorf("pulling snapshot `%s`: %w", key, err)
		}
	}
	log.FromContext(ctx).Info(
		"pulled snapshot",
		"bucket", s.Bucket,
		"key", key,
	)
	return nil
}

// List returns the keys of every snapshot of the volume `name`, oldest first.
func (s *Snapshots) List(ctx context.Context, name string) ([]string, error) {
	keys, err := s.Store.ListObjects(ctx, s.Bucket, Prefix(name))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots of `%s`: %w", name, err)
	}
	out := keys[:0]
	for _, key := range keys {
		if strings.HasSuffix(key, Suffix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Latest returns the key of the newest snapshot of the volume `name`.
func (s *Snapshots) Latest(ctx context.Context, name string) (string, error) {
	keys, err := s.List(ctx, name)
	if err != nil {
		return "", err
	}
	if len(keys) < 1 {
		return "", fmt.Errorf(
			"finding latest snapshot of `%s`: %w",
			name,
			NotFoundErr,
		)
	}
	return keys[len(keys)-1], nil
}

// Delete removes the snapshot at `key`.
func (s *Snapshots) Delete(ctx context.Context, key string) error {
	if err := s.Store.DeleteObject(ctx, s.Bucket, key); err != nil {
		return fmt.Errorf("deleting snapshot `%s`: %w", key, err)
	}
	return nil
}

// Package testsupport holds in-memory stand-ins for external services.
package testsupport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/weberc2/sfs/pkg/objectstore"
)

type objectKey struct {
	bucket string
	key    string
}

// ObjectStoreFake keeps objects in memory. It is safe for concurrent use and
// honors context cancellation the way a network-backed store would.
type ObjectStoreFake struct {
	mutex   sync.Mutex
	objects map[objectKey][]byte
}

func NewObjectStoreFake() *ObjectStoreFake {
	return &ObjectStoreFake{objects: map[objectKey][]byte{}}
}

// Object returns the stored bytes, bypassing any decorator in front of the
// fake.
func (osf *ObjectStoreFake) Object(bucket, key string) ([]byte, bool) {
	osf.mutex.Lock()
	defer osf.mutex.Unlock()
	data, found := osf.objects[objectKey{bucket, key}]
	return data, found
}

// SetObject stores `data` as-is.
func (osf *ObjectStoreFake) SetObject(bucket, key string, data []byte) {
	osf.mutex.Lock()
	defer osf.mutex.Unlock()
	osf.objects[objectKey{bucket, key}] = bytes.Clone(data)
}

func (osf *ObjectStoreFake) PutObject(
	ctx context.Context,
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("putting object `%s`: %w", key, err)
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("putting object `%s`: reading body: %w", key, err)
	}
	osf.SetObject(bucket, key, body)
	return nil
}

func (osf *ObjectStoreFake) GetObject(
	ctx context.Context,
	bucket string,
	key string,
) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("getting object `%s`: %w", key, err)
	}
	data, found := osf.Object(bucket, key)
	if !found {
		return nil, &objectstore.ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ListObjects returns matching keys in lexical order, as S3 does.
func (osf *ObjectStoreFake) ListObjects(
	ctx context.Context,
	bucket string,
	prefix string,
) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("listing objects under `%s`: %w", prefix, err)
	}
	osf.mutex.Lock()
	defer osf.mutex.Unlock()
	var keys []string
	for k := range osf.objects {
		if k.bucket == bucket && strings.HasPrefix(k.key, prefix) {
			keys = append(keys, k.key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (osf *ObjectStoreFake) DeleteObject(
	ctx context.Context,
	bucket string,
	key string,
) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("deleting object `%s`: %w", key, err)
	}
	osf.mutex.Lock()
	defer osf.mutex.Unlock()
	k := objectKey{bucket, key}
	if _, found := osf.objects[k]; !found {
		return &objectstore.ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	delete(osf.objects, k)
	return nil
}

var _ objectstore.ObjectStore = (*ObjectStoreFake)(nil)

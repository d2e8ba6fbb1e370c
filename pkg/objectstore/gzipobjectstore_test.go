package objectstore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	. "github.com/weberc2/sfs/pkg/objectstore"
	"github.com/weberc2/sfs/pkg/testsupport"
)

func TestGzipObjectStore(t *testing.T) {
	ctx := context.Background()
	fake := testsupport.NewObjectStoreFake()
	objectStore := GzipObjectStore{fake}
	if err := objectStore.PutObject(
		ctx,
		"my-bucket",
		"my-key",
		strings.NewReader("my-data"),
	); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	if raw, _ := fake.Object("my-bucket", "my-key"); bytes.Equal(
		raw,
		[]byte("my-data"),
	) {
		t.Fatal("wanted compressed data in backing store; found plaintext")
	}

	body, err := objectStore.GetObject(ctx, "my-bucket", "my-key")
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if string(data) != "my-data" {
		t.Fatalf("wanted 'my-data'; found '%s'", data)
	}
}

func TestGzipObjectStore_NotFound(t *testing.T) {
	objectStore := GzipObjectStore{testsupport.NewObjectStoreFake()}
	_, err := objectStore.GetObject(context.Background(), "my-bucket", "nope")
	var notFound *ObjectNotFoundErr
	if !errors.As(err, &notFound) {
		t.Fatalf("GetObject(): wanted `ObjectNotFoundErr`; found `%v`", err)
	}
	if notFound.Key != "nope" {
		t.Fatalf("ObjectNotFoundErr.Key: wanted `nope`; found `%s`", notFound.Key)
	}
}

package testsupport

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/weberc2/sfs/pkg/objectstore"
)

func TestObjectStoreFake(t *testing.T) {
	ctx := context.Background()
	fake := NewObjectStoreFake()
	for _, key := range []string{"b/2", "a/1", "b/1"} {
		if err := fake.PutObject(ctx, "bucket", key, strings.NewReader(key)); err != nil {
			t.Fatalf("PutObject(`%s`): unexpected err: %v", key, err)
		}
	}
	fake.SetObject("other", "b/3", []byte("elsewhere"))

	keys, err := fake.ListObjects(ctx, "bucket", "b/")
	if err != nil {
		t.Fatalf("ListObjects(): unexpected err: %v", err)
	}
	if wanted := []string{"b/1", "b/2"}; !reflect.DeepEqual(keys, wanted) {
		t.Fatalf("ListObjects(): wanted `%v`; found `%v`", wanted, keys)
	}

	body, err := fake.GetObject(ctx, "bucket", "b/2")
	if err != nil {
		t.Fatalf("GetObject(): unexpected err: %v", err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "b/2" {
		t.Fatalf("GetObject(): wanted `b/2`; found `%s`", data)
	}

	if err := fake.DeleteObject(ctx, "bucket", "b/2"); err != nil {
		t.Fatalf("DeleteObject(): unexpected err: %v", err)
	}
	var notFound *objectstore.ObjectNotFoundErr
	if _, err := fake.GetObject(ctx, "bucket", "b/2"); !errors.As(err, &notFound) {
		t.Fatalf("GetObject(): wanted `ObjectNotFoundErr`; found `%v`", err)
	}
	if err := fake.DeleteObject(ctx, "bucket", "b/2"); !errors.As(err, &notFound) {
		t.Fatalf("DeleteObject(): wanted `ObjectNotFoundErr`; found `%v`", err)
	}
}

func TestObjectStoreFake_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := NewObjectStoreFake()

	if err := fake.PutObject(ctx, "bucket", "k", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("PutObject(): wanted `%v`; found `%v`", context.Canceled, err)
	}
	if _, found := fake.Object("bucket", "k"); found {
		t.Fatal("PutObject(): object stored despite canceled context")
	}
	if _, err := fake.ListObjects(ctx, "bucket", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("ListObjects(): wanted `%v`; found `%v`", context.Canceled, err)
	}
}

package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"S3Joiner/internal/objstore"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "mem://")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutListGet(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)
	if err := s.PutObject(ctx, "kinesis-output/20211212/part-0-1", strings.NewReader("abc"), 3); err != nil {
		t.Fatal(err)
	}
	if err := s.PutObject(ctx, "kinesis-output/20211212/part-0-2", strings.NewReader("wxyz1"), 5); err != nil {
		t.Fatal(err)
	}
	if err := s.PutObject(ctx, "other/x", strings.NewReader("z"), 1); err != nil {
		t.Fatal(err)
	}

	objects, err := s.ListObjects(ctx, "kinesis-output/20211212", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(objects), objects)
	}
	if objects[1].Key != "kinesis-output/20211212/part-0-2" || objects[1].Size != 5 {
		t.Errorf("objects[1] = %+v", objects[1])
	}

	rc, err := s.GetObject(ctx, "kinesis-output/20211212/part-0-2")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "wxyz1" {
		t.Errorf("content = %q", b)
	}
}

func TestStore_PutObject_LengthMismatchNotCommitted(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)
	for _, tc := range []struct {
		name     string
		body     string
		declared int64
	}{
		{"short body", "ab", 3},
		{"long body", "abcd", 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := s.PutObject(ctx, "out/"+tc.name, strings.NewReader(tc.body), tc.declared)
			if err == nil {
				t.Fatal("expected length mismatch error")
			}
			ts, err := s.HeadObject(ctx, "out/"+tc.name)
			if err != nil {
				t.Fatal(err)
			}
			if ts != nil {
				t.Error("object must not be committed on length mismatch")
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)
	_, err := s.GetObject(ctx, "missing")
	if !errors.Is(err, objstore.ErrNotFound) {
		t.Errorf("GetObject err = %v, want ErrNotFound", err)
	}
	ts, err := s.HeadObject(ctx, "missing")
	if err != nil || ts != nil {
		t.Errorf("HeadObject = %v, %v; want nil, nil", ts, err)
	}
	if err := s.DeleteObject(ctx, "missing"); err != nil {
		t.Errorf("DeleteObject of missing key: %v", err)
	}
}

func TestStore_UploadStreamAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)
	if err := s.UploadStream(ctx, "locks/taxi.lock", strings.NewReader("2021-12-13T00:00:00Z")); err != nil {
		t.Fatal(err)
	}
	ts, err := s.HeadObject(ctx, "locks/taxi.lock")
	if err != nil || ts == nil {
		t.Fatalf("HeadObject = %v, %v", ts, err)
	}
	if err := s.DeleteObject(ctx, "locks/taxi.lock"); err != nil {
		t.Fatal(err)
	}
	if ts, _ := s.HeadObject(ctx, "locks/taxi.lock"); ts != nil {
		t.Error("object should be gone after delete")
	}
}

func TestIsURL(t *testing.T) {
	if !IsURL("mem://") || !IsURL("file:///tmp/x") || IsURL("my-bucket") {
		t.Error("IsURL classification wrong")
	}
}

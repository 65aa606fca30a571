// Package blobstore adapts a gocloud.dev bucket (s3://, gs://, file://, mem://)
// to the objstore capabilities used by the joiner.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"S3Joiner/internal/objstore"
)

type Store struct {
	bucket *blob.Bucket
}

// Open opens the bucket at url, e.g. file:///var/data?create_dir=true or mem://.
func Open(ctx context.Context, url string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open bucket: %w", err)
	}
	return &Store{bucket: bucket}, nil
}

// New wraps an already opened bucket.
func New(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

func (s *Store) ListObjects(ctx context.Context, prefix string, maxKeys int32) ([]objstore.Object, error) {
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	var objects []objstore.Object
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("blobstore: list %s: %w", prefix, err)
		}
		if obj.IsDir {
			continue
		}
		objects = append(objects, objstore.Object{Key: obj.Key, Size: obj.Size, LastModified: obj.ModTime})
		if maxKeys > 0 && int32(len(objects)) >= maxKeys {
			break
		}
	}
	return objects, nil
}

func (s *Store) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, wrapErr("get", key, err)
	}
	return r, nil
}

// PutObject writes body to key and commits it only if exactly contentLength
// bytes were read.
func (s *Store) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	n, err := s.write(ctx, key, io.LimitReader(body, contentLength+1), func(n int64) error {
		if n != contentLength {
			return fmt.Errorf("body has %d bytes, declared %d", n, contentLength)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("blobstore: put %s (%d bytes written): %w", key, n, err)
	}
	return nil
}

func (s *Store) UploadStream(ctx context.Context, key string, body io.Reader) error {
	if _, err := s.write(ctx, key, body, nil); err != nil {
		return fmt.Errorf("blobstore: upload %s: %w", key, err)
	}
	return nil
}

// write copies body into a new blob. Cancelling the writer's context before
// Close discards the blob, which is how failed or short writes are aborted.
func (s *Store) write(ctx context.Context, key string, body io.Reader, check func(int64) error) (int64, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := s.bucket.NewWriter(wctx, key, nil)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, body)
	if err == nil && check != nil {
		err = check(n)
	}
	if err != nil {
		cancel()
		_ = w.Close()
		return n, err
	}
	return n, w.Close()
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return wrapErr("delete", key, err)
	}
	return nil
}

func (s *Store) HeadObject(ctx context.Context, key string) (*time.Time, error) {
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, wrapErr("head", key, err)
	}
	t := attrs.ModTime
	return &t, nil
}

func (s *Store) Close() error {
	return s.bucket.Close()
}

func wrapErr(op, key string, err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("blobstore: %s %s: %w", op, key, errors.Join(objstore.ErrNotFound, err))
	}
	return fmt.Errorf("blobstore: %s %s: %w", op, key, err)
}

// IsURL reports whether s looks like a gocloud bucket URL.
func IsURL(s string) bool {
	return strings.Contains(s, "://")
}

var _ objstore.Storage = (*Store)(nil)

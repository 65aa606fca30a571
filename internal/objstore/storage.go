// Package objstore defines the object-storage capabilities the joiner consumes
// and an in-memory implementation used by tests and dry runs.
package objstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned (wrapped) when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored object without its content.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type Lister interface {
	// ListObjects returns every object whose key starts with prefix.
	// Pagination is drained before returning. maxKeys <= 0 means no limit.
	ListObjects(ctx context.Context, prefix string, maxKeys int32) ([]Object, error)
}

type Opener interface {
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}

type Writer interface {
	// PutObject uploads body as key. contentLength is declared upfront and the
	// whole body is consumed.
	PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error
}

// StreamUploader uploads a body whose length is not known in advance.
type StreamUploader interface {
	UploadStream(ctx context.Context, key string, body io.Reader) error
}

type Deleter interface {
	DeleteObject(ctx context.Context, key string) error
}

type Header interface {
	// HeadObject returns the last-modified time of key, or nil if it does not exist.
	HeadObject(ctx context.Context, key string) (*time.Time, error)
}

// Storage is the full set of operations used by the join engine, retention and locks.
// *s3.Client and *blobstore.Store implement it.
type Storage interface {
	Lister
	Opener
	Writer
	StreamUploader
	Deleter
	Header
}

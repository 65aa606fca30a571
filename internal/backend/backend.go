// Package backend opens the object store selected by storage.driver.
package backend

import (
	"context"
	"fmt"
	"strings"

	"S3Joiner/internal/blobstore"
	"S3Joiner/internal/config"
	"S3Joiner/internal/objstore"
	"S3Joiner/internal/s3"
)

// Store is an opened backend. Close releases driver resources and is a no-op
// for drivers that hold none.
type Store struct {
	objstore.Storage
	close func() error
	desc  string
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// String describes the backend for log and doctor output, without credentials.
func (s *Store) String() string {
	return s.desc
}

func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch driver := config.StorageDriver(cfg); driver {
	case config.DriverS3:
		if cfg.S3 == nil || cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3.bucket is required")
		}
		client, err := s3.New(ctx, S3Options(cfg.S3))
		if err != nil {
			return nil, err
		}
		return &Store{Storage: client, desc: fmt.Sprintf("s3 bucket=%s prefix=%s", cfg.S3.Bucket, cfg.S3.Prefix)}, nil
	case config.DriverBlob:
		store, err := blobstore.Open(ctx, cfg.Storage.URL)
		if err != nil {
			return nil, err
		}
		return &Store{Storage: store, close: store.Close, desc: "blob " + redactURL(cfg.Storage.URL)}, nil
	default:
		return nil, fmt.Errorf("%w: got %q", config.ErrInvalidDriver, driver)
	}
}

func S3Options(c *config.S3Config) s3.Options {
	return s3.Options{
		Endpoint:                c.Endpoint,
		Region:                  c.Region,
		AccessKey:               c.AccessKey,
		SecretKey:               c.SecretKey,
		Bucket:                  c.Bucket,
		Prefix:                  c.Prefix,
		PathStyle:               config.S3PathStyle(c),
		DisableRequestChecksums: config.S3DisableRequestChecksums(c),
		UnsignedPayload:         c.UnsignedPayload,
		InsecureSkipVerify:      c.TLS != nil && c.TLS.InsecureSkipVerify,
		PartSizeMB:              c.PartSizeMB,
	}
}

// redactURL drops the query string, which may carry credentials.
func redactURL(u string) string {
	base, _, _ := strings.Cut(u, "?")
	return base
}

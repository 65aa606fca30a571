package backend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"S3Joiner/internal/config"
)

func TestOpen_Blob(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Storage: &config.StorageConfig{Driver: config.DriverBlob, URL: "mem://"}}
	store, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if err := store.PutObject(ctx, "k", strings.NewReader("v"), 1); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	objs, err := store.ListObjects(ctx, "", 0)
	if err != nil || len(objs) != 1 {
		t.Errorf("ListObjects = %v, %v", objs, err)
	}
	if store.String() != "blob mem://" {
		t.Errorf("String = %q", store.String())
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, &config.Config{}); err == nil {
		t.Error("expected error when s3.bucket is missing")
	}
	_, err := Open(ctx, &config.Config{Storage: &config.StorageConfig{Driver: "ftp"}})
	if !errors.Is(err, config.ErrInvalidDriver) {
		t.Errorf("err = %v, want ErrInvalidDriver", err)
	}
}

func TestS3Options(t *testing.T) {
	opts := S3Options(&config.S3Config{
		Endpoint: "http://minio:9000",
		Bucket:   "b",
		TLS:      &config.TLSConfig{InsecureSkipVerify: true},
	})
	if !opts.PathStyle || !opts.InsecureSkipVerify || opts.Bucket != "b" {
		t.Errorf("opts = %+v", opts)
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("s3://bucket?region=x&secret=y"); got != "s3://bucket" {
		t.Errorf("redactURL = %q", got)
	}
}

package restore

import (
	"compress/gzip"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"S3Joiner/internal/config"
	"S3Joiner/internal/engine/join"
	"S3Joiner/internal/objstore"
)

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrSizeMismatch     = errors.New("size mismatch")
)

type Options struct {
	// Raw copies the stored bytes without decompressing or verifying them.
	Raw bool
}

type Result struct {
	Key      string
	Written  int64
	Checksum string
	Verified bool
}

// Output streams the joined object described by m into dst, decompressing it
// and checking its size and blake3 checksum against the manifest. dst may be
// io.Discard to verify an output without keeping it.
func Output(ctx context.Context, store objstore.Opener, m *join.Manifest, dst io.Writer, opts Options) (*Result, error) {
	rc, err := store.GetObject(ctx, m.Key)
	if err != nil {
		return nil, fmt.Errorf("get output %s: %w", m.Key, err)
	}
	defer rc.Close()

	res := &Result{Key: m.Key}
	if opts.Raw {
		n, err := io.Copy(dst, rc)
		res.Written = n
		if err != nil {
			return res, fmt.Errorf("copy %s: %w", m.Key, err)
		}
		return res, nil
	}

	r, closeFn, err := decompressStream(rc, compressionOf(m))
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", m.Key, err)
	}
	defer closeFn()

	hasher := blake3.New()
	n, err := io.Copy(io.MultiWriter(dst, hasher), r)
	res.Written = n
	if err != nil {
		return res, fmt.Errorf("read %s: %w", m.Key, err)
	}
	res.Checksum = "blake3:" + hex.EncodeToString(hasher.Sum(nil))

	if n != m.Size {
		return res, fmt.Errorf("%w: %s has %d bytes, manifest says %d", ErrSizeMismatch, m.Key, n, m.Size)
	}
	if m.Checksum != "" {
		if res.Checksum != m.Checksum {
			return res, fmt.Errorf("%w: %s is %s, manifest says %s", ErrChecksumMismatch, m.Key, res.Checksum, m.Checksum)
		}
		res.Verified = true
	}
	return res, nil
}

// compressionOf prefers the manifest field and falls back to the key extension
// for manifests written without one.
func compressionOf(m *join.Manifest) string {
	if m.Compression != "" {
		return m.Compression
	}
	lower := strings.ToLower(m.Key)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return config.CompressionGzip
	case strings.HasSuffix(lower, ".zst"):
		return config.CompressionZstd
	default:
		return config.CompressionNone
	}
}

func decompressStream(r io.Reader, format string) (io.Reader, func(), error) {
	switch format {
	case config.CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gr, func() { _ = gr.Close() }, nil
	case config.CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case "", config.CompressionNone:
		return r, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression %q", format)
	}
}

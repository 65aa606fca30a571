package join

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"S3Joiner/internal/config"
)

// CompressionExt returns the suffix appended to the output key for format.
func CompressionExt(format string) string {
	switch format {
	case config.CompressionGzip:
		return ".gz"
	case config.CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// NewCompressReader returns a reader of r compressed with format. The
// compressor runs in its own goroutine; closing the returned reader stops it
// and waits for it to exit. level <= 0 selects the default.
func NewCompressReader(r io.Reader, format string, level int) (io.ReadCloser, error) {
	switch format {
	case "", config.CompressionNone:
		return io.NopCloser(r), nil
	case config.CompressionGzip:
		if level <= 0 {
			level = gzip.DefaultCompression
		}
		if level > gzip.BestCompression {
			level = gzip.BestCompression
		}
		gw, err := gzip.NewWriterLevel(io.Discard, level)
		if err != nil {
			return nil, err
		}
		return pipeThrough(r, func(w io.Writer) io.WriteCloser {
			gw.Reset(w)
			return gw
		}), nil
	case config.CompressionZstd:
		encLevel := zstd.SpeedDefault
		if level > 0 {
			encLevel = zstd.EncoderLevelFromZstd(level)
		}
		zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
		if err != nil {
			return nil, err
		}
		return pipeThrough(r, func(w io.Writer) io.WriteCloser {
			zw.Reset(w)
			return zw
		}), nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", format)
	}
}

func pipeThrough(r io.Reader, wrap func(io.Writer) io.WriteCloser) io.ReadCloser {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		cw := wrap(pw)
		if _, err := io.Copy(cw, r); err != nil {
			_ = cw.Close()
			_ = pw.CloseWithError(err)
			return
		}
		if err := cw.Close(); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.Close()
	}()
	return &compressReader{PipeReader: pr, done: done}
}

// compressReader waits for the compressor goroutine on Close, so the source
// reader is no longer in use once Close returns.
type compressReader struct {
	*io.PipeReader
	done chan struct{}
}

func (c *compressReader) Close() error {
	err := c.PipeReader.Close()
	<-c.done
	return err
}

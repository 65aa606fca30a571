package join

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"S3Joiner/internal/config"
)

func TestNewCompressReader_None_Identity(t *testing.T) {
	input := []byte("a,b,c\n1,2,3\n")
	for _, format := range []string{"", config.CompressionNone} {
		r, err := NewCompressReader(bytes.NewReader(input), format, 0)
		if err != nil {
			t.Fatal(err)
		}
		out, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(out, input) {
			t.Errorf("format %q should pass through: got %q", format, out)
		}
	}
}

func TestNewCompressReader_Gzip_Roundtrip(t *testing.T) {
	input := []byte(strings.Repeat("row,of,csv\n", 100))
	r, err := NewCompressReader(bytes.NewReader(input), config.CompressionGzip, 6)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	compressed, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, input) {
		t.Errorf("gzip roundtrip mismatch: got %d bytes, want %d", len(out), len(input))
	}
}

func TestNewCompressReader_Zstd_Roundtrip(t *testing.T) {
	input := []byte(strings.Repeat("row,of,csv\n", 100))
	r, err := NewCompressReader(bytes.NewReader(input), config.CompressionZstd, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	compressed, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(compressed) >= len(input) {
		t.Errorf("zstd did not compress: %d >= %d", len(compressed), len(input))
	}
	dec, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, input) {
		t.Error("zstd roundtrip mismatch")
	}
}

func TestNewCompressReader_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("source failed")
	r, err := NewCompressReader(io.MultiReader(strings.NewReader("abc"), &errReader{boom}), config.CompressionZstd, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, err := io.ReadAll(r); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestNewCompressReader_CloseStopsCompressor(t *testing.T) {
	r, err := NewCompressReader(strings.NewReader(strings.Repeat("x", 1<<20)), config.CompressionGzip, 1)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 16)
	if _, err := r.Read(buf); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Read(buf); err == nil {
		t.Error("read after close should fail")
	}
}

func TestNewCompressReader_Unsupported(t *testing.T) {
	if _, err := NewCompressReader(strings.NewReader(""), "bz2", 0); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestCompressionExt(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		config.CompressionNone: "",
		config.CompressionGzip: ".gz",
		config.CompressionZstd: ".zst",
	}
	for format, want := range tests {
		if got := CompressionExt(format); got != want {
			t.Errorf("CompressionExt(%q) = %q, want %q", format, got, want)
		}
	}
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }

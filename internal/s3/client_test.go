package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// readOnly hides every method of the wrapped reader except Read.
type readOnly struct{ r io.Reader }

func (o readOnly) Read(p []byte) (int, error) { return o.r.Read(p) }

type recordedPut struct {
	path          string
	contentSHA256 string
	body          []byte
}

func newPutServer(t *testing.T) (*httptest.Server, func() []recordedPut) {
	t.Helper()
	var mu sync.Mutex
	var puts []recordedPut
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Method == http.MethodPut {
			mu.Lock()
			puts = append(puts, recordedPut{
				path:          r.URL.Path,
				contentSHA256: r.Header.Get("X-Amz-Content-Sha256"),
				body:          body,
			})
			mu.Unlock()
		}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPut(nil), puts...)
	}
}

func TestPutObject_NonSeekableBodyOverHTTP(t *testing.T) {
	tests := []struct {
		name             string
		unsigned         bool
		disableChecksums bool
	}{
		{"defaults", false, false},
		{"checksums when required", false, true},
		{"unsigned configured", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, puts := newPutServer(t)
			ctx := context.Background()
			c, err := New(ctx, Options{
				Endpoint:                srv.URL,
				AccessKey:               "access",
				SecretKey:               "secret",
				Bucket:                  "joined",
				PathStyle:               true,
				UnsignedPayload:         tt.unsigned,
				DisableRequestChecksums: tt.disableChecksums,
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			body := readOnly{strings.NewReader("abcwxyz1")}
			if err := c.PutObject(ctx, "lambda-output/20211213.csv", body, 8); err != nil {
				t.Fatalf("PutObject: %v", err)
			}
			got := puts()
			if len(got) != 1 {
				t.Fatalf("server saw %d PUTs, want 1", len(got))
			}
			if got[0].path != "/joined/lambda-output/20211213.csv" {
				t.Errorf("path = %q", got[0].path)
			}
			if !strings.Contains(got[0].contentSHA256, "UNSIGNED-PAYLOAD") {
				t.Errorf("X-Amz-Content-Sha256 = %q, want an unsigned payload", got[0].contentSHA256)
			}
			if !bytes.Contains(got[0].body, []byte("abcwxyz1")) {
				t.Errorf("body = %q, want it to carry abcwxyz1", got[0].body)
			}
		})
	}
}

func TestPutObject_SeekableBodyIsSigned(t *testing.T) {
	srv, puts := newPutServer(t)
	ctx := context.Background()
	c, err := New(ctx, Options{
		Endpoint:                srv.URL,
		AccessKey:               "access",
		SecretKey:               "secret",
		Bucket:                  "joined",
		PathStyle:               true,
		DisableRequestChecksums: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.PutObject(ctx, "manifests/daily/20211213.json", bytes.NewReader([]byte("{}")), 2); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	got := puts()
	if len(got) != 1 {
		t.Fatalf("server saw %d PUTs, want 1", len(got))
	}
	if strings.Contains(got[0].contentSHA256, "UNSIGNED") || got[0].contentSHA256 == "" {
		t.Errorf("X-Amz-Content-Sha256 = %q, want a payload hash", got[0].contentSHA256)
	}
	if string(got[0].body) != "{}" {
		t.Errorf("body = %q", got[0].body)
	}
}

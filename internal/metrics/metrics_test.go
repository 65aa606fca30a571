package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_ObserveRun(t *testing.T) {
	r := NewRecorder()
	now := time.Unix(1639353600, 0)

	r.ObserveRun("clicks", 12, 4096, 3*time.Second, nil, now)
	if got := testutil.ToFloat64(r.objects.WithLabelValues("clicks")); got != 12 {
		t.Errorf("joined_objects = %v", got)
	}
	if got := testutil.ToFloat64(r.bytes.WithLabelValues("clicks")); got != 4096 {
		t.Errorf("joined_bytes = %v", got)
	}
	if got := testutil.ToFloat64(r.lastSuccess.WithLabelValues("clicks")); got != 1639353600 {
		t.Errorf("last_success = %v", got)
	}

	r.ObserveRun("clicks", 0, 0, time.Second, errors.New("boom"), now.Add(time.Hour))
	if got := testutil.ToFloat64(r.failures.WithLabelValues("clicks")); got != 1 {
		t.Errorf("failures = %v", got)
	}
	if got := testutil.ToFloat64(r.objects.WithLabelValues("clicks")); got != 12 {
		t.Errorf("failed run overwrote joined_objects: %v", got)
	}
	if got := testutil.ToFloat64(r.duration.WithLabelValues("clicks")); got != 1 {
		t.Errorf("run_duration = %v", got)
	}
}

func TestRecorder_ObserveObject(t *testing.T) {
	r := NewRecorder()
	r.ObserveObject("clicks", 10)
	r.ObserveObject("clicks", 5)
	if got := testutil.ToFloat64(r.objectsRead.WithLabelValues("clicks")); got != 2 {
		t.Errorf("objects_read = %v", got)
	}
	if got := testutil.ToFloat64(r.bytesRead.WithLabelValues("clicks")); got != 15 {
		t.Errorf("bytes_read = %v", got)
	}
	if n, err := testutil.GatherAndCount(r.Registry()); err != nil || n != 2 {
		t.Errorf("collected series = %d, want 2", n)
	}
}

func TestRecorder_Push(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path = req.URL.Path
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRecorder()
	r.ObserveRun("clicks", 3, 30, time.Second, nil, time.Now())
	if err := r.Push(context.Background(), srv.URL, ""); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if path != "/metrics/job/"+DefaultJobLabel {
		t.Errorf("path = %q", path)
	}
	if body == "" {
		t.Error("empty push body")
	}
}

func TestRecorder_PushDisabled(t *testing.T) {
	if err := NewRecorder().Push(context.Background(), "", ""); err != nil {
		t.Errorf("Push without url: %v", err)
	}
}

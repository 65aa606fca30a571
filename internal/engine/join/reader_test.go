package join

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/rs/zerolog"

	"S3Joiner/internal/objstore"
)

func TestReader_ConcatenatesInOrder(t *testing.T) {
	op := newFakeOpener(map[string]string{"A": "abc", "B": "wxyz1"})
	r, err := NewReader(context.Background(), op, []objstore.Object{{Key: "A", Size: 3}, {Key: "B", Size: 5}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abcwxyz1" {
		t.Errorf("got %q, want %q", got, "abcwxyz1")
	}
	if n, err := r.Read(make([]byte, 4)); n != 0 || err != io.EOF {
		t.Errorf("Read after end = %d, %v; want 0, EOF", n, err)
	}
	if r.State() != StateExhausted {
		t.Errorf("state = %v, want exhausted", r.State())
	}
	if op.maxOpen != 1 {
		t.Errorf("max concurrently open = %d, want 1", op.maxOpen)
	}
}

func TestReader_IOContract(t *testing.T) {
	op := newFakeOpener(map[string]string{"a/part-0-1": "hello ", "a/part-1-1": "sharded ", "a/part-0-2": "world"})
	objects := []objstore.Object{{Key: "a/part-0-1", Size: 6}, {Key: "a/part-1-1", Size: 8}, {Key: "a/part-0-2", Size: 5}}
	r, err := NewReader(context.Background(), op, objects)
	if err != nil {
		t.Fatal(err)
	}
	if err := iotest.TestReader(r, []byte("hello sharded world")); err != nil {
		t.Error(err)
	}
}

func TestReader_OneByteReads(t *testing.T) {
	op := newFakeOpener(map[string]string{"A": "abc", "B": "", "C": "de"})
	r, err := NewReader(context.Background(), op, []objstore.Object{{Key: "A", Size: 3}, {Key: "B"}, {Key: "C", Size: 2}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(iotest.OneByteReader(r))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abcde" {
		t.Errorf("got %q, want abcde", got)
	}
}

func TestReader_EmptyList(t *testing.T) {
	op := newFakeOpener(nil)
	r, err := NewReader(context.Background(), op, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.State() != StateExhausted {
		t.Errorf("state = %v, want exhausted", r.State())
	}
	if r.Index() != -1 {
		t.Errorf("index = %d, want -1", r.Index())
	}
	n, err := r.Read(make([]byte, 8))
	if n != 0 || err != io.EOF {
		t.Errorf("Read = %d, %v; want 0, EOF", n, err)
	}
	if len(op.opened) != 0 {
		t.Errorf("opened = %v, want none", op.opened)
	}
}

func TestReader_FirstOpenFails(t *testing.T) {
	op := newFakeOpener(map[string]string{"B": "b"})
	r, err := NewReader(context.Background(), op, []objstore.Object{{Key: "A", Size: 1}, {Key: "B", Size: 1}})
	if err == nil {
		t.Fatal("expected error when first object cannot be opened")
	}
	if r != nil {
		t.Error("reader should be nil on construction failure")
	}
	if !errors.Is(err, ErrOpen) || !errors.Is(err, objstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrOpen wrapping ErrNotFound", err)
	}
}

func TestReader_MidJoinOpenFails(t *testing.T) {
	op := newFakeOpener(map[string]string{"A": "abc", "C": "ccc"})
	objects := []objstore.Object{{Key: "A", Size: 3}, {Key: "B", Size: 2}, {Key: "C", Size: 3}}
	r, err := NewReader(context.Background(), op, objects)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if string(got) != "abc" {
		t.Errorf("delivered %q before failure, want abc", got)
	}
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if !strings.Contains(err.Error(), "B") {
		t.Errorf("error should name the failing key: %v", err)
	}
	for _, k := range op.opened {
		if k == "C" {
			t.Error("third object must not be opened after a failure")
		}
	}
	if _, err2 := r.Read(make([]byte, 1)); !errors.Is(err2, ErrOpen) {
		t.Errorf("subsequent Read err = %v, want sticky ErrOpen", err2)
	}
	if !errors.Is(r.Err(), ErrOpen) {
		t.Errorf("Err() = %v, want ErrOpen", r.Err())
	}
	if op.open != 0 {
		t.Errorf("%d objects still open after failure", op.open)
	}
}

func TestReader_ReadErrorIsFatal(t *testing.T) {
	op := newFakeOpener(map[string]string{"A": "abc", "B": "def"})
	op.readErr = map[string]error{"A": errors.New("connection reset")}
	r, err := NewReader(context.Background(), op, []objstore.Object{{Key: "A", Size: 3}, {Key: "B", Size: 3}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = io.ReadAll(r)
	if !errors.Is(err, ErrRead) {
		t.Errorf("err = %v, want ErrRead", err)
	}
	if len(op.opened) != 1 {
		t.Errorf("opened = %v, want only A", op.opened)
	}
}

func TestReader_CloseAfterPartialRead(t *testing.T) {
	op := newFakeOpener(map[string]string{"A": "abcdef", "B": "xyz"})
	r, err := NewReader(context.Background(), op, []objstore.Object{{Key: "A", Size: 6}, {Key: "B", Size: 3}})
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 2)
	if _, err := r.Read(buf); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if op.closes["A"] != 1 {
		t.Errorf("A closed %d times, want exactly 1", op.closes["A"])
	}
	if len(op.opened) != 1 {
		t.Errorf("opened = %v, want only A", op.opened)
	}
	if r.State() != StateExhausted {
		t.Errorf("state = %v, want exhausted", r.State())
	}
	if _, err := r.Read(buf); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close err = %v, want ErrClosed", err)
	}
	if r.Err() != nil {
		t.Errorf("Err() after explicit Close = %v, want nil", r.Err())
	}
}

func TestReader_CloseWhenNothingOpen(t *testing.T) {
	r, err := NewReader(context.Background(), newFakeOpener(nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on empty reader: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close on empty reader: %v", err)
	}
}

func TestReader_CloseErrorDoesNotAbort(t *testing.T) {
	op := newFakeOpener(map[string]string{"A": "abc", "B": "de"})
	op.closeErr = map[string]error{"A": errors.New("socket already closed")}
	var logBuf bytes.Buffer
	log := zerolog.New(&logBuf)

	r, err := NewReader(context.Background(), op, []objstore.Object{{Key: "A", Size: 3}, {Key: "B", Size: 2}}, WithLogger(log))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("close error must not abort the join: %v", err)
	}
	if string(got) != "abcde" {
		t.Errorf("got %q, want abcde", got)
	}
	if !strings.Contains(logBuf.String(), "failed to close object") {
		t.Errorf("close failure should be logged, log = %s", logBuf.String())
	}
	if op.open != 0 {
		t.Errorf("%d objects still referenced as open", op.open)
	}
}

func TestReader_Observer(t *testing.T) {
	op := newFakeOpener(map[string]string{"A": "abc", "B": "wxyz1"})
	var events []ObjectEvent
	r, err := NewReader(context.Background(), op, []objstore.Object{{Key: "A", Size: 3}, {Key: "B", Size: 5}},
		WithObserver(func(e ObjectEvent) { events = append(events, e) }))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadAll(r); err != nil {
		t.Fatal(err)
	}
	want := []ObjectEvent{
		{Kind: ObjectOpened, Index: 0, Object: objstore.Object{Key: "A", Size: 3}},
		{Kind: ObjectClosed, Index: 0, Object: objstore.Object{Key: "A", Size: 3}, Bytes: 3},
		{Kind: ObjectOpened, Index: 1, Object: objstore.Object{Key: "B", Size: 5}},
		{Kind: ObjectClosed, Index: 1, Object: objstore.Object{Key: "B", Size: 5}, Bytes: 5},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %+v, want %+v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event[%d] = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestState_String(t *testing.T) {
	if StateReading.String() != "reading" || StateExhausted.String() != "exhausted" || StateNotStarted.String() != "not-started" {
		t.Error("unexpected state names")
	}
}

// fakeOpener serves objects from memory and records how they are opened and closed.
type fakeOpener struct {
	data     map[string]string
	readErr  map[string]error
	closeErr map[string]error
	opened   []string
	closes   map[string]int
	open     int
	maxOpen  int
}

func newFakeOpener(data map[string]string) *fakeOpener {
	return &fakeOpener{data: data, closes: make(map[string]int)}
}

func (f *fakeOpener) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	f.opened = append(f.opened, key)
	d, ok := f.data[key]
	if !ok {
		return nil, objstore.ErrNotFound
	}
	f.open++
	if f.open > f.maxOpen {
		f.maxOpen = f.open
	}
	var r io.Reader = strings.NewReader(d)
	if err := f.readErr[key]; err != nil {
		r = iotest.ErrReader(err)
	}
	return &fakeHandle{Reader: r, key: key, owner: f}, nil
}

type fakeHandle struct {
	io.Reader
	key   string
	owner *fakeOpener
}

func (h *fakeHandle) Close() error {
	h.owner.closes[h.key]++
	h.owner.open--
	return h.owner.closeErr[h.key]
}

package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Storage. The zero value is ready to use.
type Memory struct {
	mu      sync.Mutex
	objects map[string]memObject
	now     func() time.Time
}

type memObject struct {
	data    []byte
	modTime time.Time
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

// NewMemoryWithClock returns a Memory that stamps writes with now instead of
// the wall clock.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := NewMemory()
	m.now = now
	return m
}

// Set stores data under key, replacing any previous value.
func (m *Memory) Set(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.objects[key] = memObject{data: append([]byte(nil), data...), modTime: m.clock()}
}

// Get returns a copy of the data stored under key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), o.data...), true
}

func (m *Memory) init() {
	if m.objects == nil {
		m.objects = make(map[string]memObject)
	}
}

func (m *Memory) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

func (m *Memory) ListObjects(_ context.Context, prefix string, maxKeys int32) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Object
	for k, o := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Object{Key: k, Size: int64(len(o.data)), LastModified: o.modTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if maxKeys > 0 && int32(len(out)) > maxKeys {
		out = out[:maxKeys]
	}
	return out, nil
}

func (m *Memory) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.Get(key)
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) PutObject(_ context.Context, key string, body io.Reader, contentLength int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if int64(len(data)) != contentLength {
		return fmt.Errorf("put %s: body has %d bytes, declared %d", key, len(data), contentLength)
	}
	m.Set(key, data)
	return nil
}

func (m *Memory) UploadStream(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	m.Set(key, data)
	return nil
}

func (m *Memory) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) HeadObject(_ context.Context, key string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, nil
	}
	t := o.modTime
	return &t, nil
}

var _ Storage = (*Memory)(nil)

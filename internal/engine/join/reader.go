package join

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"S3Joiner/internal/objstore"
)

// State is the lifecycle position of a Reader.
type State int

const (
	StateNotStarted State = iota
	StateReading
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateReading:
		return "reading"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type EventKind int

const (
	ObjectOpened EventKind = iota
	ObjectClosed
)

// ObjectEvent is reported to a ReaderOption observer when an underlying object
// is opened or released. Bytes is the number of bytes read from it so far.
type ObjectEvent struct {
	Kind   EventKind
	Index  int
	Object objstore.Object
	Bytes  int64
}

type ReaderOption func(*Reader)

func WithLogger(log zerolog.Logger) ReaderOption {
	return func(r *Reader) { r.log = log }
}

func WithObserver(fn func(ObjectEvent)) ReaderOption {
	return func(r *Reader) { r.observe = fn }
}

// Reader presents an ordered list of objects as one continuous stream. It
// holds at most one underlying object open: object N is closed before object
// N+1 is opened. A Reader is not safe for concurrent use.
type Reader struct {
	ctx     context.Context
	opener  objstore.Opener
	objects []objstore.Object
	log     zerolog.Logger
	observe func(ObjectEvent)

	state   State
	index   int
	current io.ReadCloser
	read    int64
	err     error
}

// NewReader opens the first object eagerly and fails if that open fails. An
// empty object list yields a Reader that is already exhausted. ctx is used for
// every open made by the Reader.
func NewReader(ctx context.Context, opener objstore.Opener, objects []objstore.Object, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		ctx:     ctx,
		opener:  opener,
		objects: objects,
		log:     zerolog.Nop(),
		index:   -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.advance(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) State() State {
	return r.state
}

// Index is the position of the object currently being read, or -1 before the first open.
func (r *Reader) Index() int {
	return r.index
}

// Err returns the terminal error that stopped the join, if any.
func (r *Reader) Err() error {
	if errors.Is(r.err, ErrClosed) {
		return nil
	}
	return r.err
}

func (r *Reader) Read(p []byte) (int, error) {
	for {
		if r.state == StateExhausted {
			if r.err != nil {
				return 0, r.err
			}
			return 0, io.EOF
		}

		n, err := r.current.Read(p)
		r.read += int64(n)
		switch {
		case err == io.EOF:
			if obj := r.objects[r.index]; r.read != obj.Size {
				r.log.Warn().Str("key", obj.Key).Int64("listed", obj.Size).Int64("read", r.read).Msg("object size differs from listing")
			}
			if advErr := r.advance(); advErr != nil && n == 0 {
				return 0, advErr
			}
			if n > 0 {
				return n, nil
			}
		case err != nil:
			obj := r.objects[r.index]
			r.release()
			r.fail(fmt.Errorf("%w %d (%s): %w", ErrRead, r.index, obj.Key, err))
			return n, r.err
		default:
			return n, nil
		}
	}
}

// Close releases the currently open object. It is safe to call more than once
// and when nothing is open. Close failures of the underlying object are logged,
// not returned.
func (r *Reader) Close() error {
	r.release()
	if r.err == nil {
		r.fail(ErrClosed)
	}
	return nil
}

// advance releases the current object and opens the next one. When no objects
// remain the Reader becomes exhausted. An open failure is terminal.
func (r *Reader) advance() error {
	r.release()
	next := r.index + 1
	if next >= len(r.objects) {
		r.index = len(r.objects) - 1
		r.state = StateExhausted
		r.log.Debug().Int("objects", len(r.objects)).Msg("no next object")
		return nil
	}

	obj := r.objects[next]
	r.index = next
	r.log.Info().Int("index", next).Str("key", obj.Key).Int64("size", obj.Size).Msg("reading object")
	rc, err := r.opener.GetObject(r.ctx, obj.Key)
	if err != nil {
		r.fail(fmt.Errorf("%w %d (%s): %w", ErrOpen, next, obj.Key, err))
		return r.err
	}
	r.current = rc
	r.read = 0
	r.state = StateReading
	r.notify(ObjectOpened, next, obj, 0)
	return nil
}

// release closes the current object, if any. The handle is dropped even when
// Close fails so the join can continue.
func (r *Reader) release() {
	if r.current == nil {
		return
	}
	obj := r.objects[r.index]
	if err := r.current.Close(); err != nil {
		r.log.Warn().Err(err).Str("key", obj.Key).Msg("failed to close object")
	}
	r.current = nil
	r.notify(ObjectClosed, r.index, obj, r.read)
}

func (r *Reader) fail(err error) {
	r.err = err
	r.state = StateExhausted
}

func (r *Reader) notify(kind EventKind, index int, obj objstore.Object, n int64) {
	if r.observe != nil {
		r.observe(ObjectEvent{Kind: kind, Index: index, Object: obj, Bytes: n})
	}
}

var _ io.ReadCloser = (*Reader)(nil)

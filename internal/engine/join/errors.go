package join

import "errors"

var (
	ErrList         = errors.New("list objects")
	ErrNoObjects    = errors.New("no objects to join")
	ErrOpen         = errors.New("open object")
	ErrRead         = errors.New("read object")
	ErrWrite        = errors.New("write joined object")
	ErrSizeMismatch = errors.New("joined size does not match listed size")
	ErrClosed       = errors.New("join reader closed")
)

package fsops

import "errors"

var (
	ErrNotFound = errors.New("file not found")
	ErrIO       = errors.New("file i/o failed")
)

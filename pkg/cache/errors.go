package cache

import "errors"

var (
	ErrNotFound = errors.New("cache: not found")
	ErrClosed   = errors.New("cache: closed")
	ErrEncode   = errors.New("cache: encode value")
	ErrDecode   = errors.New("cache: decode value")
)

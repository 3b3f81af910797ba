package store

import "errors"

var (
	// ErrBackend wraps every failure coming out of a storage backend. Driver
	// error types never cross the package boundary.
	ErrBackend = errors.New("store: backend error")

	// ErrEncodeFailed reports a value that cannot be serialized for storage.
	ErrEncodeFailed = errors.New("store: encode failed")

	// ErrTypeMismatch reports a typed cache helper applied to a key whose
	// current value has a different shape (list helper on a map, and so on).
	ErrTypeMismatch = errors.New("store: value shape mismatch")

	// ErrNoSuchKey reports an operation that requires the key to exist.
	ErrNoSuchKey = errors.New("store: no such key")
)

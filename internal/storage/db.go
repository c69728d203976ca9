// Package storage provides the durable key-value layer wallet state is
// persisted to.
package storage

import "errors"

// ErrNotFound is returned by Get for keys that do not exist.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// KeyIterator is implemented by DBs that can list keys without reading
// or transforming their values.
type KeyIterator interface {
	ForEachKey(prefix []byte, fn func(key []byte) error) error
}

// ForEachKey lists the keys under prefix. It uses db's own key iteration
// when available and falls back to ForEach otherwise.
func ForEachKey(db DB, prefix []byte, fn func(key []byte) error) error {
	if it, ok := db.(KeyIterator); ok {
		return it.ForEachKey(prefix, fn)
	}
	return db.ForEach(prefix, func(key, _ []byte) error {
		return fn(key)
	})
}

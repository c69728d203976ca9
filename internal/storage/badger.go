package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerDB is the on-disk wallet store.
type BadgerDB struct {
	db *badger.DB
}

// NewBadger opens the wallet database in dir, creating it if needed.
// Writes are synced before they return.
func NewBadger(dir string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(16 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		if isLockError(err) {
			return nil, fmt.Errorf("wallet database at %s is in use by another velocity process: %w", dir, err)
		}
		return nil, fmt.Errorf("open wallet database at %s: %w", dir, err)
	}
	return &BadgerDB{db: db}, nil
}

func isLockError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Cannot acquire directory lock") ||
		strings.Contains(msg, "resource temporarily unavailable")
}

func (b *BadgerDB) lookup(key []byte, withValue bool) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil || !withValue {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	val, err := b.lookup(key, true)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return val, err
}

func (b *BadgerDB) Put(key, value []byte) error {
	if err := b.db.Update(func(txn *badger.Txn) error { return txn.Set(key, value) }); err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *BadgerDB) Delete(key []byte) error {
	if err := b.db.Update(func(txn *badger.Txn) error { return txn.Delete(key) }); err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

func (b *BadgerDB) Has(key []byte) (bool, error) {
	_, err := b.lookup(key, false)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("badger has: %w", err)
	}
}

// scan walks keys under prefix in order. Values are read only when
// withValues is set; otherwise fn receives a nil value.
func (b *BadgerDB) scan(prefix []byte, withValues bool, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = withValues
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var val []byte
			if withValues {
				v, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				val = v
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.scan(prefix, true, fn)
}

// ForEachKey lists keys under prefix without reading values.
func (b *BadgerDB) ForEachKey(prefix []byte, fn func(key []byte) error) error {
	return b.scan(prefix, false, func(key, _ []byte) error { return fn(key) })
}

func (b *BadgerDB) Close() error {
	return b.db.Close()
}

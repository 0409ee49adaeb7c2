package state

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir)).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "badger open")
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func getEntry(txn *badger.Txn, key []byte) (Entry, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return Entry{}, err
	}
	return decodeEntry(v)
}

func (b *BadgerStore) Apply(key string, e Entry) (bool, Entry, error) {
	var applied bool
	var out Entry
	err := b.db.Update(func(txn *badger.Txn) error {
		cur, err := getEntry(txn, []byte(key))
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if e.Seq <= cur.Seq {
			out = cur
			return nil
		}
		v, err := encodeEntry(e)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(key), v); err != nil {
			return err
		}
		applied, out = true, e
		return nil
	})
	if err != nil {
		return false, Entry{}, errors.Wrap(err, "badger apply")
	}
	return applied, out, nil
}

func (b *BadgerStore) Get(key string) (Entry, bool) {
	var e Entry
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = getEntry(txn, []byte(key))
		return err
	})
	if err != nil {
		return Entry{}, false
	}
	return e, true
}

func (b *BadgerStore) Range(fn func(key string, e Entry) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := string(item.KeyCopy(nil))
			v, err := item.ValueCopy(nil)
			if err != nil {
				return errors.Wrapf(err, "value %s", k)
			}
			e, err := decodeEntry(v)
			if err != nil {
				return errors.Wrapf(err, "key %s", k)
			}
			if err := fn(k, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadAll replaces all keys inside one transaction.
func (b *BadgerStore) LoadAll(all map[string]Entry) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for k, e := range all {
			v, err := encodeEntry(e)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "badger load")
}

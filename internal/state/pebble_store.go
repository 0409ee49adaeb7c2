package state

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// PebbleStore implements Store using PebbleDB.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		// Catalogs are small and written in bursts by a build pass.
		MemTableSize:          16 << 20,
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, errors.Wrap(err, "pebble open")
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) get(k []byte) (Entry, error) {
	v, closer, err := p.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, errors.Wrap(err, "pebble get")
	}
	defer closer.Close()
	return decodeEntry(v)
}

func (p *PebbleStore) Apply(key string, e Entry) (bool, Entry, error) {
	k := []byte(key)
	cur, err := p.get(k)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, Entry{}, err
	}
	if e.Seq <= cur.Seq {
		return false, cur, nil
	}
	b, err := encodeEntry(e)
	if err != nil {
		return false, Entry{}, errors.Wrap(err, "encode entry")
	}
	if err := p.db.Set(k, b, pebble.NoSync); err != nil {
		return false, Entry{}, errors.Wrap(err, "pebble set")
	}
	return true, e, nil
}

func (p *PebbleStore) Get(key string) (Entry, bool) {
	e, err := p.get([]byte(key))
	if err != nil {
		return Entry{}, false
	}
	return e, true
}

func (p *PebbleStore) Range(fn func(key string, e Entry) error) error {
	it, err := p.db.NewIter(nil)
	if err != nil {
		return errors.Wrap(err, "pebble iter")
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		k := string(it.Key())
		e, err := decodeEntry(it.Value())
		if err != nil {
			return errors.Wrapf(err, "key %s", k)
		}
		if err := fn(k, e); err != nil {
			return err
		}
	}
	return it.Error()
}

// LoadAll deletes every key and writes all in one synced batch.
func (p *PebbleStore) LoadAll(all map[string]Entry) error {
	wb := p.db.NewBatch()
	defer wb.Close()

	it, err := p.db.NewIter(nil)
	if err != nil {
		return errors.Wrap(err, "pebble iter")
	}
	for it.First(); it.Valid(); it.Next() {
		if err := wb.Delete(append([]byte(nil), it.Key()...), nil); err != nil {
			_ = it.Close()
			return errors.Wrap(err, "batch delete")
		}
	}
	if err := it.Close(); err != nil {
		return errors.Wrap(err, "pebble iter close")
	}
	for k, e := range all {
		b, err := encodeEntry(e)
		if err != nil {
			return errors.Wrapf(err, "encode %s", k)
		}
		if err := wb.Set([]byte(k), b, nil); err != nil {
			return errors.Wrap(err, "batch set")
		}
	}
	return errors.Wrap(wb.Commit(pebble.Sync), "batch commit")
}

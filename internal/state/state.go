// Package state keeps canonical catalog records keyed by collection/model.
// Every write carries a per-key sequence number; a write whose seq is not
// above the stored one is ignored, so replaying a change log is idempotent.
package state

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned by backends when a key has no entry.
var ErrNotFound = errors.New("state: not found")

// Entry is the stored form of one catalog record.
type Entry struct {
	Seq int64 `json:"seq"`
	// Pos is the record's position inside its collection.
	Pos     int             `json:"pos"`
	Record  json.RawMessage `json:"record,omitempty"`
	Deleted bool            `json:"deleted,omitempty"`
}

// Store abstracts the catalog backend.
type Store interface {
	// Apply writes e under key when e.Seq is above the stored seq. Gaps are
	// allowed. It returns whether the write happened and the entry now stored.
	Apply(key string, e Entry) (applied bool, cur Entry, err error)
	Get(key string) (Entry, bool)
	// Range visits entries in key order.
	Range(fn func(key string, e Entry) error) error
	// LoadAll replaces the whole contents with all.
	LoadAll(all map[string]Entry) error
}

// InMemoryStore is a thread-safe map store.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]Entry)}
}

func (s *InMemoryStore) LoadAll(all map[string]Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]Entry, len(all))
	for k, v := range all {
		s.data[k] = v
	}
	return nil
}

func (s *InMemoryStore) Apply(key string, e Entry) (bool, Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.data[key]
	if e.Seq <= cur.Seq {
		return false, cur, nil
	}
	s.data[key] = e
	return true, e, nil
}

func (s *InMemoryStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	return e, ok
}

func (s *InMemoryStore) Range(fn func(key string, e Entry) error) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	snapshot := make(map[string]Entry, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k, snapshot[k]); err != nil {
			return errors.Wrap(err, "range callback")
		}
	}
	return nil
}

// Dump copies every entry of st into a map.
func Dump(st Store) (map[string]Entry, error) {
	out := make(map[string]Entry)
	err := st.Range(func(key string, e Entry) error {
		out[key] = e
		return nil
	})
	return out, err
}

// Open returns the store selected by backend: memory, pebble or badger.
// On success the close func is never nil.
func Open(backend, dir string) (Store, func() error, error) {
	switch backend {
	case "", "memory":
		return NewInMemoryStore(), func() error { return nil }, nil
	case "pebble":
		s, err := NewPebbleStore(dir)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "badger":
		s, err := NewBadgerStore(dir)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, errors.Newf("unknown store backend %q", backend)
}

func encodeEntry(e Entry) ([]byte, error) { return json.Marshal(e) }

func decodeEntry(val []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return Entry{}, errors.Wrap(err, "decode entry")
	}
	return e, nil
}

// Package memory is an in-process storage.Store.
//
// Writers are serialized; a transaction buffers its writes in an overlay
// that is applied only when fn returns nil.
package memory

import (
	"context"
	"sync"

	"xdao.co/custodian/storage"
)

func init() {
	storage.MustRegister(storage.Backend{
		Name:        "memory",
		Description: "volatile in-process store",
		Open: func(map[string]string) (storage.Store, error) {
			return New(), nil
		},
	})
}

type Store struct {
	mu      sync.RWMutex
	kv      map[string][]byte
	entries [][]byte
	closed  bool
}

func New() *Store {
	return &Store{kv: map[string][]byte{}}
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	tx := &tx{s: s, writes: map[string][]byte{}}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.writes {
		s.kv[k] = v
	}
	s.entries = append(s.entries, tx.appended...)
	return nil
}

func (s *Store) View(ctx context.Context, fn func(storage.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return fn(reader{s: s})
}

func (s *Store) Entries(ctx context.Context, after uint64, limit int) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	var out []storage.Entry
	for i := after; i < uint64(len(s.entries)); i++ {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, storage.Entry{Seq: i + 1, Value: clone(s.entries[i])})
	}
	return out, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type reader struct{ s *Store }

func (r reader) Get(key string) ([]byte, error) {
	v, ok := r.s.kv[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(v), nil
}

type tx struct {
	s        *Store
	writes   map[string][]byte
	appended [][]byte
}

func (t *tx) Get(key string) ([]byte, error) {
	if v, ok := t.writes[key]; ok {
		return clone(v), nil
	}
	return reader{s: t.s}.Get(key)
}

func (t *tx) Put(key string, value []byte) error {
	t.writes[key] = clone(value)
	return nil
}

func (t *tx) Insert(key string, value []byte) error {
	if _, err := t.Get(key); err == nil {
		return storage.ErrExists
	}
	return t.Put(key, value)
}

func (t *tx) Append(value []byte) (uint64, error) {
	t.appended = append(t.appended, clone(value))
	return uint64(len(t.s.entries) + len(t.appended)), nil
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }

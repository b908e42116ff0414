// Package storage defines the atomic key/value store the ledger runs on.
//
// Contract:
//   - Update runs fn inside one atomic unit; if fn returns an error nothing it
//     wrote becomes visible.
//   - Insert is insert-if-absent and fails with ErrExists when the key is set.
//   - Append adds to a single append-only log and returns its sequence number,
//     committed in the same unit as the key writes.
//   - fn may be executed more than once by backends that retry on conflict,
//     so it must not have side effects outside the Tx.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("storage: not found")
	ErrExists   = errors.New("storage: key exists")
	ErrClosed   = errors.New("storage: closed")
	ErrConflict = errors.New("storage: transaction conflict")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Reader is the read side of a transaction.
type Reader interface {
	Get(key string) ([]byte, error)
}

// Tx is a read/write transaction.
type Tx interface {
	Reader
	Put(key string, value []byte) error
	Insert(key string, value []byte) error
	Append(value []byte) (uint64, error)
}

// Entry is one record of the append-only log. Sequence numbers start at 1.
type Entry struct {
	Seq   uint64
	Value []byte
}

type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Reader) error) error
	// Entries returns up to limit log entries with Seq > after, in order.
	Entries(ctx context.Context, after uint64, limit int) ([]Entry, error)
	Close() error
}

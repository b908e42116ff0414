// Package archive keeps an immutable, content-addressed copy of every
// committed ledger event.
package archive

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// CAS is a minimal content-addressable store.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs MUST be derived from the bytes written (CIDv1, raw, sha2-256).
// - Get MUST return ErrNotFound when the CID is absent.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

var (
	ErrNotFound    = errors.New("archive: not found")
	ErrInvalidCID  = errors.New("archive: invalid cid")
	ErrCIDMismatch = errors.New("archive: cid mismatch")
	ErrImmutable   = errors.New("archive: immutable object mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

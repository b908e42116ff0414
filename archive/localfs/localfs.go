// Package localfs archives events as write-once files on local disk.
package localfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/archive"
)

// Dir is a directory of immutable objects, one file per CID, sharded by the
// first two characters of the CID string.
type Dir struct {
	root string
}

var _ archive.CAS = (*Dir)(nil)

// Open creates root if needed.
func Open(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Root() string { return d.root }

func (d *Dir) Put(b []byte) (cid.Cid, error) {
	id, err := addressing.CID(b)
	if err != nil {
		return cid.Undef, err
	}
	path := d.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if !os.IsExist(err) {
			return cid.Undef, err
		}
		existing, rerr := d.Get(id)
		if rerr != nil || !bytes.Equal(existing, b) {
			return cid.Undef, archive.ErrImmutable
		}
		return id, nil
	}

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	return id, nil
}

func (d *Dir) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, archive.ErrInvalidCID
	}
	b, err := os.ReadFile(d.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, archive.ErrNotFound
		}
		return nil, err
	}
	got, err := addressing.CID(b)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, archive.ErrCIDMismatch
	}
	return b, nil
}

func (d *Dir) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(d.pathFor(id))
	return err == nil
}

func (d *Dir) pathFor(id cid.Cid) string {
	s := id.String()
	if len(s) < 2 {
		return filepath.Join(d.root, s)
	}
	return filepath.Join(d.root, s[:2], s)
}

package archive

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/custodian/addressing"
)

// Replica is a CAS with a stable name used in error reports.
type Replica struct {
	Name string
	CAS  CAS
}

// Replicating writes every object to all replicas and reads from the first
// one that has it.
type Replicating struct {
	Replicas []Replica
}

var _ CAS = Replicating{}

func (r Replicating) Put(bytes []byte) (cid.Cid, error) {
	want, err := addressing.CID(bytes)
	if err != nil {
		return cid.Undef, err
	}
	if len(r.Replicas) == 0 {
		return cid.Undef, fmt.Errorf("archive: no replicas configured")
	}
	for _, rep := range r.Replicas {
		got, err := rep.CAS.Put(bytes)
		if err != nil {
			return cid.Undef, fmt.Errorf("archive replica %q: %w", rep.Name, err)
		}
		if got != want {
			return cid.Undef, fmt.Errorf("archive replica %q: %w", rep.Name, ErrCIDMismatch)
		}
	}
	return want, nil
}

func (r Replicating) Get(id cid.Cid) ([]byte, error) {
	for _, rep := range r.Replicas {
		b, err := rep.CAS.Get(id)
		if err == nil {
			return b, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (r Replicating) Has(id cid.Cid) bool {
	for _, rep := range r.Replicas {
		if rep.CAS.Has(id) {
			return true
		}
	}
	return false
}

package archive

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/custodian/ledger"
)

// Sink archives committed events into a CAS. It implements ledger.Publisher.
type Sink struct {
	CAS CAS
}

func (s Sink) Publish(ctx context.Context, ev ledger.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	want, err := ev.ID()
	if err != nil {
		return err
	}
	got, err := s.CAS.Put(ev.Bytes())
	if err != nil {
		return fmt.Errorf("archive event %d: %w", ev.Seq, err)
	}
	if got != want {
		return ErrCIDMismatch
	}
	return nil
}

// Load reads back an archived event. The sequence number is not part of the
// archived bytes and is left zero.
func Load(c CAS, id cid.Cid) (ledger.Event, error) {
	b, err := c.Get(id)
	if err != nil {
		return ledger.Event{}, err
	}
	return ledger.DecodeEvent(0, b)
}

package model

import (
	"xdao.co/custodian/addressing"
	"xdao.co/custodian/ledger"
)

func FromEvent(ev ledger.Event) Event {
	out := Event{
		Seq:     ev.Seq,
		Op:      string(ev.Op),
		Serial:  ev.Serial().String(),
		Asset:   ev.Asset.String(),
		Caller:  ev.Caller.String(),
		Message: append([]byte(nil), ev.Message...),
	}
	if !ev.Holding.IsNull() {
		out.Holding = ev.Holding.String()
	}
	if id, err := ev.ID(); err == nil {
		out.CID = id.String()
	}
	if d, ok := ev.Deal(); ok {
		out.Deal = &Deal{
			From:      d.From.String(),
			To:        d.To.String(),
			Available: d.Available,
			Frozen:    d.Frozen,
			Amount:    d.Amount,
			Fee:       d.Fee,
			Paid:      d.Paid,
			ExcessFee: d.ExcessFee,
		}
	}
	return out
}

func FromEvents(evs []ledger.Event) []Event {
	out := make([]Event, 0, len(evs))
	for _, ev := range evs {
		out = append(out, FromEvent(ev))
	}
	return out
}

func FromConfig(c ledger.Config) Config {
	return Config{
		Owner:        c.Owner.String(),
		Enabled:      c.Enabled,
		Signer:       c.Signer.String(),
		FeeTo:        c.FeeTo.String(),
		FeeToAccount: c.FeeToAccount.String(),
	}
}

func FromAccount(identity addressing.Address, a ledger.Account) Account {
	return Account{
		Identity:  identity.String(),
		Asset:     a.Asset.String(),
		Available: a.Available,
		Frozen:    a.Frozen,
	}
}

func FromVault(v ledger.VaultState) Vault {
	return Vault{Asset: v.Asset.String(), Holding: v.Holding.String(), Balance: v.Balance}
}

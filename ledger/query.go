package ledger

import (
	"context"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/storage"
)

func (e *Engine) Config(ctx context.Context) (Config, error) {
	var cfg Config
	err := e.store.View(ctx, func(r storage.Reader) error {
		var err error
		cfg, err = loadConfig(r)
		return err
	})
	return cfg, err
}

// Account returns the account for (identity, asset), or ErrAccountNotFound.
func (e *Engine) Account(ctx context.Context, identity, assetID addressing.Address) (Account, error) {
	var acct Account
	err := e.store.View(ctx, func(r storage.Reader) error {
		a, found, err := loadAccount(r, identity, assetID)
		if err != nil {
			return err
		}
		if !found {
			return ErrAccountNotFound
		}
		acct = a
		return nil
	})
	return acct, err
}

// Executed reports whether serial has been consumed.
func (e *Engine) Executed(ctx context.Context, serial Serial) (bool, error) {
	var done bool
	err := e.store.View(ctx, func(r storage.Reader) error {
		var err error
		done, err = executed(r, serial)
		return err
	})
	return done, err
}

// Vault returns the vault of assetID and the real balance it holds.
func (e *Engine) Vault(ctx context.Context, assetID addressing.Address) (VaultState, error) {
	var vs VaultState
	err := e.store.View(ctx, func(r storage.Reader) error {
		v, err := loadVault(r, assetID)
		if err != nil {
			return err
		}
		h, err := e.book.Holding(r, v.Holding)
		if err != nil {
			return err
		}
		vs = VaultState{Vault: v, Balance: h.Balance}
		return nil
	})
	return vs, err
}

// Events lists committed events with Seq > after, oldest first.
func (e *Engine) Events(ctx context.Context, after uint64, limit int) ([]Event, error) {
	entries, err := e.store.Entries(ctx, after, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(entries))
	for _, en := range entries {
		ev, err := DecodeEvent(en.Seq, en.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

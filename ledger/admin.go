package ledger

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/asset"
	"xdao.co/custodian/storage"
)

// Initialize creates the Config with caller as owner, signer and fee
// recipient, enabled. A null feeToAccount selects DefaultFeeToAccount.
func (e *Engine) Initialize(ctx context.Context, caller, feeToAccount addressing.Address) (Config, error) {
	if feeToAccount.IsNull() {
		feeToAccount = DefaultFeeToAccount
	}
	cfg := Config{
		Owner:        caller,
		Enabled:      true,
		Signer:       caller,
		FeeTo:        caller,
		FeeToAccount: feeToAccount,
	}
	start := e.clock.Now()
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		if caller.IsNull() {
			return newError(CodeForbidden, "owner must not be the null identity")
		}
		err := tx.Insert(configKey(), encodeConfig(cfg))
		if errors.Is(err, storage.ErrExists) {
			return newError(CodeAlreadyInitialized, "config already initialized")
		}
		return err
	})
	e.finish(OpInitialize, start, err, zap.Stringer("caller", caller))
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// InitializeVault creates the Vault for assetID, its pooled holding and the
// fee Ledger Account for the asset. Owner only; fails if the vault exists.
func (e *Engine) InitializeVault(ctx context.Context, caller, assetID addressing.Address) (Vault, error) {
	v := Vault{Asset: assetID, Holding: VaultHolding(assetID)}
	err := e.admin(ctx, OpInitializeVault, caller, func(tx storage.Tx, cfg *Config) error {
		if err := tx.Insert(vaultKey(assetID), encodeVault(v)); err != nil {
			if errors.Is(err, storage.ErrExists) {
				return newError(CodeAlreadyInitialized, "vault already initialized for "+assetID.String())
			}
			return err
		}
		err := e.book.Open(tx, asset.Holding{Address: v.Holding, Asset: assetID, Owner: v.Holding})
		if err != nil {
			if errors.Is(err, asset.ErrHoldingExists) {
				return wrapError(CodeAlreadyInitialized, "vault holding already exists", err)
			}
			return err
		}
		_, found, err := loadAccount(tx, cfg.FeeToAccount, assetID)
		if err != nil || found {
			return err
		}
		return putAccount(tx, cfg.FeeToAccount, Account{Asset: assetID})
	})
	if err != nil {
		return Vault{}, err
	}
	return v, nil
}

func (e *Engine) ChangeOwner(ctx context.Context, caller, owner addressing.Address) error {
	return e.admin(ctx, OpChangeOwner, caller, func(_ storage.Tx, cfg *Config) error {
		if owner.IsNull() {
			return newError(CodeForbidden, "owner must not be the null identity")
		}
		cfg.Owner = owner
		return nil
	})
}

func (e *Engine) ChangeSigner(ctx context.Context, caller, signer addressing.Address) error {
	return e.admin(ctx, OpChangeSigner, caller, func(_ storage.Tx, cfg *Config) error {
		if signer.IsNull() {
			return newError(CodeForbidden, "signer must not be the null identity")
		}
		cfg.Signer = signer
		return nil
	})
}

func (e *Engine) ChangeFeeTo(ctx context.Context, caller, feeTo addressing.Address) error {
	return e.admin(ctx, OpChangeFeeTo, caller, func(_ storage.Tx, cfg *Config) error {
		cfg.FeeTo = feeTo
		return nil
	})
}

// SetEnabled toggles whether value-moving operations are accepted.
func (e *Engine) SetEnabled(ctx context.Context, caller addressing.Address, enabled bool) error {
	return e.admin(ctx, OpSetEnabled, caller, func(_ storage.Tx, cfg *Config) error {
		cfg.Enabled = enabled
		return nil
	})
}

// admin runs an owner-gated mutation of the Config.
func (e *Engine) admin(ctx context.Context, op Op, caller addressing.Address, fn func(tx storage.Tx, cfg *Config) error) error {
	start := e.clock.Now()
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if caller != cfg.Owner {
			return newError(CodeUnauthorized, "caller is not the owner")
		}
		if err := fn(tx, &cfg); err != nil {
			return err
		}
		return tx.Put(configKey(), encodeConfig(cfg))
	})
	e.finish(op, start, err, zap.Stringer("caller", caller))
	return err
}

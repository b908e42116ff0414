package ledger

import (
	"context"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/storage"
)

// Freeze moves Amount from available to frozen within one account.
func (e *Engine) Freeze(ctx context.Context, env Envelope, args FreezeArgs) (Event, error) {
	return e.execute(ctx, request{
		op:      OpFreeze,
		env:     env,
		asset:   args.Asset,
		message: FreezeMessage(env.Serial, args.Identity, args.Amount, env.Expiry),
		apply: func(tx storage.Tx, _ Config, _ Vault) (addressing.Address, error) {
			if args.Amount == 0 {
				return addressing.Null, newError(CodeZeroAmount, "freeze amount is zero")
			}
			return addressing.Null, updateAccount(tx, args.Identity, args.Asset, func(a *Account) error {
				if err := a.debitAvailable(args.Amount); err != nil {
					return err
				}
				return a.creditFrozen(args.Amount)
			})
		},
	})
}

// Unfreeze releases Amount from frozen, returning Amount-Fee to available
// and crediting Fee to the fee account.
func (e *Engine) Unfreeze(ctx context.Context, env Envelope, args UnfreezeArgs) (Event, error) {
	return e.execute(ctx, request{
		op:      OpUnfreeze,
		env:     env,
		asset:   args.Asset,
		message: UnfreezeMessage(env.Serial, args.Identity, args.Amount, args.Fee, env.Expiry),
		apply: func(tx storage.Tx, cfg Config, _ Vault) (addressing.Address, error) {
			if args.Amount == 0 {
				return addressing.Null, newError(CodeZeroAmount, "unfreeze amount is zero")
			}
			if args.Fee > args.Amount {
				return addressing.Null, newError(CodeFeeOverrun, "fee exceeds amount")
			}
			err := updateAccount(tx, args.Identity, args.Asset, func(a *Account) error {
				if err := a.debitFrozen(args.Amount); err != nil {
					return err
				}
				return a.creditAvailable(args.Amount - args.Fee)
			})
			if err != nil {
				return addressing.Null, err
			}
			return addressing.Null, creditFee(tx, cfg, args.Asset, args.Fee)
		},
	})
}

func creditFee(tx storage.Tx, cfg Config, assetID addressing.Address, fee uint64) error {
	if fee == 0 {
		return nil
	}
	return updateAccount(tx, cfg.FeeToAccount, assetID, func(a *Account) error {
		return a.creditAvailable(fee)
	})
}

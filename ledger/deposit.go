package ledger

import (
	"context"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/storage"
)

// Deposit moves Amount of real asset from the caller's Source holding into
// the Vault and credits Identity: Amount-Frozen available, Frozen frozen.
func (e *Engine) Deposit(ctx context.Context, env Envelope, args DepositArgs) (Event, error) {
	return e.execute(ctx, request{
		op:      OpDeposit,
		env:     env,
		asset:   args.Asset,
		message: DepositMessage(env.Serial, args.Identity, args.Amount, args.Frozen, env.Expiry),
		apply: func(tx storage.Tx, _ Config, v Vault) (addressing.Address, error) {
			if args.Frozen > args.Amount {
				return addressing.Null, newError(CodeInvalidAmount, "frozen exceeds amount")
			}
			if args.Amount == 0 {
				return addressing.Null, newError(CodeZeroAmount, "deposit amount is zero")
			}
			src, err := e.payoutHolding(tx, args.Source, args.Asset)
			if err != nil {
				return addressing.Null, err
			}
			if src.Owner != env.Caller {
				return addressing.Null, newError(CodeInvalidAtaOwner, "source holding is not owned by the caller")
			}
			err = updateAccount(tx, args.Identity, args.Asset, func(a *Account) error {
				if err := a.creditAvailable(args.Amount - args.Frozen); err != nil {
					return err
				}
				return a.creditFrozen(args.Frozen)
			})
			if err != nil {
				return addressing.Null, err
			}
			return args.Source, e.move(tx, args.Source, v.Holding, args.Amount)
		},
	})
}

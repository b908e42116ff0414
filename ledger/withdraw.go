package ledger

import (
	"context"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/storage"
)

// Withdraw debits Available and Frozen from Identity and pays their sum out
// of the Vault to Recipient.
func (e *Engine) Withdraw(ctx context.Context, env Envelope, args WithdrawArgs) (Event, error) {
	return e.execute(ctx, request{
		op:      OpWithdraw,
		env:     env,
		asset:   args.Asset,
		message: WithdrawMessage(env.Serial, args.Identity, args.Available, args.Frozen, env.Expiry),
		apply: func(tx storage.Tx, _ Config, v Vault) (addressing.Address, error) {
			if args.Available == 0 && args.Frozen == 0 {
				return addressing.Null, newError(CodeZeroAmount, "nothing to withdraw")
			}
			total, err := add(args.Available, args.Frozen)
			if err != nil {
				return addressing.Null, err
			}
			if _, err := e.payoutHolding(tx, args.Recipient, args.Asset); err != nil {
				return addressing.Null, err
			}
			err = updateAccount(tx, args.Identity, args.Asset, func(a *Account) error {
				if err := a.debitAvailable(args.Available); err != nil {
					return err
				}
				return a.debitFrozen(args.Frozen)
			})
			if err != nil {
				return addressing.Null, err
			}
			return args.Recipient, e.move(tx, v.Holding, args.Recipient, total)
		},
	})
}

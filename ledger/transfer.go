package ledger

import (
	"context"
	"fmt"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/storage"
)

// Transfer debits Amount from From. Internal destinations credit
// Amount-Fee to To and Fee to the fee account; External destinations pay
// Amount-Fee to Out and Fee to FeeUser out of the Vault, leaving To as is.
func (e *Engine) Transfer(ctx context.Context, env Envelope, args TransferArgs) (Event, error) {
	return e.execute(ctx, request{
		op:      OpTransfer,
		env:     env,
		asset:   args.Asset,
		message: TransferMessage(env.Serial, args.From, args.To, args.Amount, args.Fee, env.Expiry),
		apply: func(tx storage.Tx, cfg Config, v Vault) (addressing.Address, error) {
			if args.Amount == 0 {
				return addressing.Null, newError(CodeZeroAmount, "transfer amount is zero")
			}
			if args.Fee > args.Amount {
				return addressing.Null, newError(CodeFeeOverrun, "fee exceeds amount")
			}
			err := updateAccount(tx, args.From, args.Asset, func(a *Account) error {
				return a.debitAvailable(args.Amount)
			})
			if err != nil {
				return addressing.Null, err
			}
			net := args.Amount - args.Fee

			switch dst := args.Destination.(type) {
			case nil, Internal:
				err := updateAccount(tx, args.To, args.Asset, func(a *Account) error {
					return a.creditAvailable(net)
				})
				if err != nil {
					return addressing.Null, err
				}
				return addressing.Null, creditFee(tx, cfg, args.Asset, args.Fee)
			case External:
				return dst.Out, e.payOut(tx, cfg, v, args.Asset, dst, net, args.Fee)
			default:
				return addressing.Null, fmt.Errorf("ledger: unknown destination %T", dst)
			}
		},
	})
}

// payOut sends principal to dst.Out and fee to dst.FeeUser from the vault.
func (e *Engine) payOut(tx storage.Tx, cfg Config, v Vault, assetID addressing.Address, dst External, principal, fee uint64) error {
	if _, err := e.payoutHolding(tx, dst.Out, assetID); err != nil {
		return err
	}
	if fee > 0 {
		feeHolding, err := e.payoutHolding(tx, dst.FeeUser, assetID)
		if err != nil {
			return err
		}
		if feeHolding.Owner != cfg.FeeTo {
			return newError(CodeInvalidFeeUser, "fee holding is not owned by the fee recipient")
		}
	}
	if err := e.move(tx, v.Holding, dst.Out, principal); err != nil {
		return err
	}
	return e.move(tx, v.Holding, dst.FeeUser, fee)
}

package ledger

import (
	"context"
	"fmt"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/storage"
)

// validate enforces the deal's internal consistency:
// available+frozen == amount+fee, amount+fee > 0,
// paid >= frozen+excessFee and frozen >= excessFee.
func (d SettlementData) validate() error {
	debit, err := add(d.Available, d.Frozen)
	if err != nil {
		return newError(CodeInvalidAmount, "available+frozen overflows")
	}
	credit, err := add(d.Amount, d.Fee)
	if err != nil {
		return newError(CodeInvalidAmount, "amount+fee overflows")
	}
	if debit != credit {
		return newError(CodeInvalidAmount, fmt.Sprintf("available+frozen %d != amount+fee %d", debit, credit))
	}
	if credit == 0 {
		return newError(CodeZeroAmount, "settlement moves nothing")
	}
	minPaid, err := add(d.Frozen, d.ExcessFee)
	if err != nil {
		return newError(CodeInvalidAmount, "frozen+excessFee overflows")
	}
	if d.Paid < minPaid {
		return newError(CodeInvalidAmount, "paid below frozen+excessFee")
	}
	if d.Frozen < d.ExcessFee {
		return newError(CodeInvalidAmount, "excessFee exceeds frozen")
	}
	return nil
}

// Settle applies an off-chain computed settlement in one step.
//
// From is debited Available and Frozen. When Paid exceeds a non-zero Frozen
// the excess is released from From's frozen balance back to available,
// less ExcessFee. The total fee is Fee+ExcessFee. Internal settlement
// credits Amount to To and the total fee to the fee account; external
// settlement pays them out of the Vault to Out and FeeUser.
func (e *Engine) Settle(ctx context.Context, env Envelope, args SettleArgs) (Event, error) {
	deal := args.Deal
	return e.execute(ctx, request{
		op:      OpSettle,
		env:     env,
		asset:   args.Asset,
		message: SettleMessage(env.Serial, deal, env.Expiry),
		apply: func(tx storage.Tx, cfg Config, v Vault) (addressing.Address, error) {
			if err := deal.validate(); err != nil {
				return addressing.Null, err
			}
			err := updateAccount(tx, deal.From, args.Asset, func(a *Account) error {
				if err := a.debitAvailable(deal.Available); err != nil {
					return err
				}
				if err := a.debitFrozen(deal.Frozen); err != nil {
					return err
				}
				if deal.Frozen > 0 && deal.Paid > deal.Frozen {
					excess := deal.Paid - deal.Frozen
					if err := a.debitFrozen(excess); err != nil {
						return err
					}
					return a.creditAvailable(excess - deal.ExcessFee)
				}
				return nil
			})
			if err != nil {
				return addressing.Null, err
			}
			totalFee, err := add(deal.Fee, deal.ExcessFee)
			if err != nil {
				return addressing.Null, err
			}

			switch dst := args.Destination.(type) {
			case nil, Internal:
				if deal.Amount > 0 {
					err := updateAccount(tx, deal.To, args.Asset, func(a *Account) error {
						return a.creditAvailable(deal.Amount)
					})
					if err != nil {
						return addressing.Null, err
					}
				}
				return addressing.Null, creditFee(tx, cfg, args.Asset, totalFee)
			case External:
				return dst.Out, e.payOut(tx, cfg, v, args.Asset, dst, deal.Amount, totalFee)
			default:
				return addressing.Null, fmt.Errorf("ledger: unknown destination %T", dst)
			}
		},
	})
}

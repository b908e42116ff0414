package ledger

import (
	"encoding/hex"
	"fmt"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/endorse"
)

// Serial is a 32-byte request nonce chosen by the off-chain authorizer.
// It is burnt on the first successful use.
type Serial [32]byte

func (s Serial) String() string { return hex.EncodeToString(s[:]) }

func (s Serial) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Serial) UnmarshalText(b []byte) error {
	parsed, err := ParseSerial(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseSerial(s string) (Serial, error) {
	var out Serial
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("ledger: invalid serial: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("ledger: invalid serial length %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// DefaultFeeToAccount keys the fee Ledger Account when Initialize is not
// given one: 31 zero bytes followed by 0x01.
var DefaultFeeToAccount = addressing.Address{31: 0x01}

// Config is the singleton policy record.
type Config struct {
	Owner        addressing.Address
	Enabled      bool
	Signer       addressing.Address
	FeeTo        addressing.Address
	FeeToAccount addressing.Address
}

// Account is one logical identity's claim on one asset.
type Account struct {
	Asset     addressing.Address
	Available uint64
	Frozen    uint64
}

// Vault is the pooled holding of one asset.
type Vault struct {
	Asset   addressing.Address
	Holding addressing.Address
}

// VaultState is a Vault together with the real balance of its holding.
type VaultState struct {
	Vault
	Balance uint64
}

// SettlementData is the argument of a settle request.
type SettlementData struct {
	From      addressing.Address
	To        addressing.Address
	Available uint64
	Frozen    uint64
	Amount    uint64
	Fee       uint64
	Paid      uint64
	ExcessFee uint64
}

// Envelope carries what every value-moving request has in common.
type Envelope struct {
	// Caller is the authenticated identity submitting the request. The engine
	// trusts it; model.Submit derives it from a verified caller endorsement.
	Caller addressing.Address
	Serial Serial
	// Expiry is a unix timestamp; the request is valid while now < Expiry.
	Expiry int64
	// Signature must equal the signature the companion step verified.
	Signature []byte
	// Proof is the output of the companion verification step. Exactly one
	// entry is accepted.
	Proof []endorse.Verified
}

// Destination says where value leaving an account goes.
type Destination interface {
	isDestination()
}

// Internal keeps value in custody: recipients are Ledger Accounts.
type Internal struct{}

// External pays out of the Vault. Out receives the principal, FeeUser the fee.
type External struct {
	Out     addressing.Address
	FeeUser addressing.Address
}

func (Internal) isDestination() {}
func (External) isDestination() {}

// DestinationFromWire maps the null-sentinel wire form to a Destination:
// an all-zero out means Internal.
func DestinationFromWire(out, feeUser addressing.Address) Destination {
	if out.IsNull() {
		return Internal{}
	}
	return External{Out: out, FeeUser: feeUser}
}

// DestinationToWire is the inverse of DestinationFromWire.
func DestinationToWire(d Destination) (out, feeUser addressing.Address) {
	if ext, ok := d.(External); ok {
		return ext.Out, ext.FeeUser
	}
	return addressing.Null, addressing.Null
}

type DepositArgs struct {
	Asset    addressing.Address
	Identity addressing.Address
	Amount   uint64
	Frozen   uint64
	// Source is the depositor's holding; its owner must be the caller.
	Source addressing.Address
}

type WithdrawArgs struct {
	Asset     addressing.Address
	Identity  addressing.Address
	Available uint64
	Frozen    uint64
	Recipient addressing.Address
}

type FreezeArgs struct {
	Asset    addressing.Address
	Identity addressing.Address
	Amount   uint64
}

type UnfreezeArgs struct {
	Asset    addressing.Address
	Identity addressing.Address
	Amount   uint64
	Fee      uint64
}

type TransferArgs struct {
	Asset       addressing.Address
	From        addressing.Address
	To          addressing.Address
	Amount      uint64
	Fee         uint64
	Destination Destination
}

type SettleArgs struct {
	Asset       addressing.Address
	Deal        SettlementData
	Destination Destination
}

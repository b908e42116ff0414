// Package ledgertest builds an initialized engine with funded holdings for
// tests of the layers above the ledger.
package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/asset"
	"xdao.co/custodian/endorse"
	"xdao.co/custodian/ledger"
	"xdao.co/custodian/storage"
	"xdao.co/custodian/storage/memory"
)

const WalletFunds = 1_000_000

func Addr(s string) addressing.Address { return addressing.Derive("ledgertest", []byte(s)) }

type Fixture struct {
	Store  storage.Store
	Engine *ledger.Engine
	Signer endorse.Signer
	// CallerSigner controls Caller and signs requests as their caller.
	CallerSigner endorse.Signer
	Now          time.Time

	Owner  addressing.Address
	Caller addressing.Address
	Asset  addressing.Address

	// Wallet is a caller-owned holding funded with WalletFunds.
	Wallet addressing.Address
	// Out is an external payout holding.
	Out addressing.Address
	// FeeUser is a holding owned by the configured fee recipient.
	FeeUser addressing.Address
}

// New initializes a ledger on a fresh memory store with an Ed25519 signer.
func New(t *testing.T, opts ...ledger.Option) *Fixture {
	t.Helper()
	return NewOn(t, memory.New(), opts...)
}

func NewOn(t *testing.T, store storage.Store, opts ...ledger.Option) *Fixture {
	t.Helper()
	signer, err := endorse.NewEd25519Signer(Seed(0x40))
	require.NoError(t, err)
	callerSigner, err := endorse.NewEd25519Signer(Seed(0x60))
	require.NoError(t, err)

	f := &Fixture{
		Store:        store,
		Signer:       signer,
		CallerSigner: callerSigner,
		Now:          time.Unix(1_750_000_000, 0),
		Owner:        Addr("owner"),
		Caller:       callerSigner.Identity(),
		Asset:        Addr("usdc"),
		Wallet:       Addr("wallet"),
		Out:          Addr("payout"),
		FeeUser:      Addr("fee-holding"),
	}
	opts = append([]ledger.Option{ledger.WithClock(ledger.ClockFunc(func() time.Time { return f.Now }))}, opts...)
	f.Engine = ledger.New(store, opts...)

	ctx := context.Background()
	_, err = f.Engine.Initialize(ctx, f.Owner, addressing.Null)
	require.NoError(t, err)
	require.NoError(t, f.Engine.ChangeSigner(ctx, f.Owner, signer.Identity()))
	_, err = f.Engine.InitializeVault(ctx, f.Owner, f.Asset)
	require.NoError(t, err)

	book := f.Engine.Book()
	require.NoError(t, store.Update(ctx, func(tx storage.Tx) error {
		for _, h := range []asset.Holding{
			{Address: f.Wallet, Asset: f.Asset, Owner: f.Caller},
			{Address: f.Out, Asset: f.Asset, Owner: Addr("merchant")},
			{Address: f.FeeUser, Asset: f.Asset, Owner: f.Owner},
		} {
			if err := book.Open(tx, h); err != nil {
				return err
			}
		}
		return book.Mint(tx, f.Wallet, WalletFunds)
	}))
	return f
}

// Seed returns the 32-byte seed first, first+1, ... used for fixture keys.
func Seed(first byte) []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = first + byte(i)
	}
	return seed
}

func (f *Fixture) Expiry() int64 { return f.Now.Unix() + 300 }

// Serial returns a distinct serial per n.
func Serial(n int) ledger.Serial {
	var s ledger.Serial
	s[0] = byte(n)
	s[1] = byte(n >> 8)
	s[31] = 0x5C
	return s
}

// Envelope endorses msg with the fixture signer and runs the default oracle.
func (f *Fixture) Envelope(t *testing.T, serial ledger.Serial, expiry int64, msg []byte) ledger.Envelope {
	t.Helper()
	v, err := endorse.DefaultOracle{}.Verify(f.Signer.Endorse(msg))
	require.NoError(t, err)
	return ledger.Envelope{
		Caller:    f.Caller,
		Serial:    serial,
		Expiry:    expiry,
		Signature: v.Signature,
		Proof:     []endorse.Verified{v},
	}
}

// Deposit credits identity with amount available and frozen held, drawn
// from the fixture wallet.
func (f *Fixture) Deposit(t *testing.T, serial ledger.Serial, identity addressing.Address, amount, frozen uint64) ledger.Event {
	t.Helper()
	exp := f.Expiry()
	env := f.Envelope(t, serial, exp, ledger.DepositMessage(serial, identity, amount, frozen, exp))
	ev, err := f.Engine.Deposit(context.Background(), env, ledger.DepositArgs{
		Asset:    f.Asset,
		Identity: identity,
		Amount:   amount,
		Frozen:   frozen,
		Source:   f.Wallet,
	})
	require.NoError(t, err)
	return ev
}

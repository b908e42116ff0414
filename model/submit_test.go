package model

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/asset"
	"xdao.co/custodian/endorse"
	"xdao.co/custodian/ledger"
	"xdao.co/custodian/ledger/ledgertest"
	"xdao.co/custodian/storage"
)

// asCaller signs req with the fixture's caller key.
func asCaller(t *testing.T, f *ledgertest.Fixture, req SubmitRequest) SubmitRequest {
	t.Helper()
	signed, err := Authenticate(req, f.CallerSigner)
	require.NoError(t, err)
	return signed
}

func depositRequest(t *testing.T, f *ledgertest.Fixture, serial ledger.Serial, identity addressing.Address, amount, frozen uint64) SubmitRequest {
	t.Helper()
	exp := f.Expiry()
	e := f.Signer.Endorse(ledger.DepositMessage(serial, identity, amount, frozen, exp))
	return asCaller(t, f, SubmitRequest{
		Op:        "deposit",
		Caller:    f.Caller.String(),
		Serial:    serial.String(),
		Expiry:    exp,
		Signature: e.Signature,
		Endorsements: []Endorsement{
			{Scheme: string(e.Scheme), PublicKey: e.PublicKey, Signature: e.Signature, Message: e.Message},
		},
		Asset:    f.Asset.String(),
		Identity: identity.String(),
		Amount:   amount,
		Frozen:   frozen,
		Source:   f.Wallet.String(),
	})
}

func codeOf(t *testing.T, err error) ErrorCode {
	t.Helper()
	var ce *CodedError
	require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
	return ce.Code
}

func TestSubmitDeposit(t *testing.T) {
	f := ledgertest.New(t)
	alice := ledgertest.Addr("alice")

	ev, err := Submit(context.Background(), f.Engine, nil, depositRequest(t, f, ledgertest.Serial(1), alice, 100, 30))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ev.Seq)
	assert.Equal(t, "deposit", ev.Op)
	assert.Equal(t, ledgertest.Serial(1).String(), ev.Serial)
	assert.Equal(t, f.Wallet.String(), ev.Holding)
	assert.NotEmpty(t, ev.CID)

	acct, err := f.Engine.Account(context.Background(), alice, f.Asset)
	require.NoError(t, err)
	assert.Equal(t, FromAccount(alice, acct), Account{
		Identity:  alice.String(),
		Asset:     f.Asset.String(),
		Available: 70,
		Frozen:    30,
	})
}

func TestSubmitReplayKeepsLedgerCode(t *testing.T) {
	f := ledgertest.New(t)
	req := depositRequest(t, f, ledgertest.Serial(2), ledgertest.Addr("alice"), 10, 0)

	_, err := Submit(context.Background(), f.Engine, nil, req)
	require.NoError(t, err)
	_, err = Submit(context.Background(), f.Engine, nil, req)

	var ce *CodedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrorCode(ledger.CodeAlreadyExecuted), ce.Code)
	assert.Equal(t, string(ledger.KindReplay), ce.Kind)

	le, ok := ce.Ledger()
	require.True(t, ok)
	assert.ErrorIs(t, le, ledger.ErrAlreadyExecuted)
}

func TestSubmitEndorsementFailures(t *testing.T) {
	f := ledgertest.New(t)
	alice := ledgertest.Addr("alice")

	cases := []struct {
		name   string
		mutate func(*SubmitRequest)
		want   ledger.Code
	}{
		{"no endorsement", func(r *SubmitRequest) { r.Endorsements = nil }, ledger.CodeMissingEd25519Instruction},
		{"two endorsements", func(r *SubmitRequest) { r.Endorsements = append(r.Endorsements, r.Endorsements[0]) }, ledger.CodeInvalidEd25519Instruction},
		{"tampered signature", func(r *SubmitRequest) {
			sig := append([]byte(nil), r.Endorsements[0].Signature...)
			sig[0] ^= 0xFF
			r.Endorsements[0].Signature = sig
		}, ledger.CodeInvalidSignature},
		{"short key", func(r *SubmitRequest) { r.Endorsements[0].PublicKey = []byte{1, 2, 3} }, ledger.CodeInvalidPublicKey},
		{"unknown scheme", func(r *SubmitRequest) { r.Endorsements[0].Scheme = "rsa" }, ledger.CodeInvalidEd25519Instruction},
		{"signature echo mismatch", func(r *SubmitRequest) { r.Signature = []byte("other") }, ledger.CodeInvalidSignature},
		{"args differ from message", func(r *SubmitRequest) { r.Amount++ }, ledger.CodeInvalidMessage},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := depositRequest(t, f, ledgertest.Serial(100+i), alice, 50, 0)
			tc.mutate(&req)
			req = asCaller(t, f, req)
			_, err := Submit(context.Background(), f.Engine, endorse.DefaultOracle{}, req)
			assert.Equal(t, ErrorCode(tc.want), codeOf(t, err))
		})
	}
}

func TestSubmitInvalidRequests(t *testing.T) {
	f := ledgertest.New(t)
	base := depositRequest(t, f, ledgertest.Serial(3), ledgertest.Addr("alice"), 5, 0)

	cases := map[string]func(*SubmitRequest){
		"missing op":        func(r *SubmitRequest) { r.Op = "" },
		"unknown op":        func(r *SubmitRequest) { r.Op = "mint" },
		"missing serial":    func(r *SubmitRequest) { r.Serial = "" },
		"bad serial":        func(r *SubmitRequest) { r.Serial = "zz" },
		"bad caller":        func(r *SubmitRequest) { r.Caller = "0OIl" },
		"missing asset":     func(r *SubmitRequest) { r.Asset = "" },
		"missing source":    func(r *SubmitRequest) { r.Source = "" },
		"settle no deal":    func(r *SubmitRequest) { r.Op = "settle" },
		"short address":     func(r *SubmitRequest) { r.Identity = "3mJr7AoUXx2Wqd" },
		"missing parties":   func(r *SubmitRequest) { r.Op = "transfer" },
		"missing recipient": func(r *SubmitRequest) { r.Op = "withdraw" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := base
			mutate(&req)
			_, err := Submit(context.Background(), f.Engine, nil, req)
			assert.Equal(t, ErrInvalidRequest, codeOf(t, err))
		})
	}

	_, err := Submit(context.Background(), nil, nil, base)
	assert.Equal(t, ErrInternal, codeOf(t, err))
}

func TestSubmitSettleProjectsDeal(t *testing.T) {
	f := ledgertest.New(t)
	alice, bob := ledgertest.Addr("alice"), ledgertest.Addr("bob")
	f.Deposit(t, ledgertest.Serial(10), alice, 1000, 200)

	serial := ledgertest.Serial(11)
	exp := f.Expiry()
	deal := ledger.SettlementData{From: alice, To: bob, Available: 100, Frozen: 50, Amount: 140, Fee: 10, Paid: 50}
	e := f.Signer.Endorse(ledger.SettleMessage(serial, deal, exp))

	ev, err := Submit(context.Background(), f.Engine, nil, asCaller(t, f, SubmitRequest{
		Op:           "settle",
		Caller:       f.Caller.String(),
		Serial:       serial.String(),
		Expiry:       exp,
		Signature:    e.Signature,
		Endorsements: []Endorsement{{Scheme: string(e.Scheme), PublicKey: e.PublicKey, Signature: e.Signature, Message: e.Message}},
		Asset:        f.Asset.String(),
		Deal: &Deal{
			From: alice.String(), To: bob.String(),
			Available: 100, Frozen: 50, Amount: 140, Fee: 10, Paid: 50,
		},
	}))
	require.NoError(t, err)
	require.NotNil(t, ev.Deal)
	assert.Equal(t, uint64(140), ev.Deal.Amount)
	assert.Empty(t, ev.Holding)

	got, err := f.Engine.Account(context.Background(), bob, f.Asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(140), got.Available)
}

func TestMapErr(t *testing.T) {
	assert.Nil(t, mapErr(nil))
	assert.Equal(t, ErrNotFound, codeOf(t, mapErr(fmt.Errorf("lookup: %w", ledger.ErrAccountNotFound))))
	assert.Equal(t, ErrInvalidRequest, codeOf(t, mapErr(addressing.ErrInvalidAddress)))
	assert.Equal(t, ErrInternal, codeOf(t, mapErr(errors.New("disk on fire"))))

	_, ok := NewError(ErrInternal, "x").Ledger()
	assert.False(t, ok)
}

func TestEndorseBuildsSubmittableRequest(t *testing.T) {
	f := ledgertest.New(t)
	alice := ledgertest.Addr("alice")
	f.Deposit(t, ledgertest.Serial(20), alice, 300, 0)

	req := SubmitRequest{
		Op:       "unfreeze",
		Caller:   f.Caller.String(),
		Serial:   ledgertest.Serial(21).String(),
		Expiry:   f.Expiry(),
		Asset:    f.Asset.String(),
		Identity: alice.String(),
		Amount:   0,
		Fee:      0,
	}
	msg, err := Message(req)
	require.NoError(t, err)
	assert.Equal(t, ledger.UnfreezeMessage(ledgertest.Serial(21), alice, 0, 0, f.Expiry()), msg)

	freeze := req
	freeze.Op = "freeze"
	freeze.Amount = 90
	signed, err := Endorse(freeze, f.Signer)
	require.NoError(t, err)
	require.Len(t, signed.Endorsements, 1)
	assert.Equal(t, signed.Signature, signed.Endorsements[0].Signature)

	_, err = Submit(context.Background(), f.Engine, nil, asCaller(t, f, signed))
	require.NoError(t, err)
	acct, err := f.Engine.Account(context.Background(), alice, f.Asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), acct.Frozen)

	_, err = Message(SubmitRequest{Op: "freeze"})
	assert.Equal(t, ErrInvalidRequest, codeOf(t, err))
}

func TestSubmitAuthenticatesCaller(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	victimKey, err := endorse.NewEd25519Signer(ledgertest.Seed(0x80))
	require.NoError(t, err)
	attackerKey, err := endorse.NewEd25519Signer(ledgertest.Seed(0xA0))
	require.NoError(t, err)
	victimWallet := ledgertest.Addr("victim-wallet")
	require.NoError(t, f.Store.Update(ctx, func(tx storage.Tx) error {
		book := f.Engine.Book()
		if err := book.Open(tx, asset.Holding{Address: victimWallet, Asset: f.Asset, Owner: victimKey.Identity()}); err != nil {
			return err
		}
		return book.Mint(tx, victimWallet, 1_000)
	}))

	attacker := attackerKey.Identity()
	steal := func(n int) SubmitRequest {
		req := depositRequest(t, f, ledgertest.Serial(n), attacker, 500, 0)
		req.Source = victimWallet.String()
		return req
	}

	t.Run("caller named but signed by someone else", func(t *testing.T) {
		req, err := Authenticate(steal(30), attackerKey)
		require.NoError(t, err)
		req.Caller = victimKey.Identity().String()
		_, err = Submit(ctx, f.Engine, nil, req)
		assert.Equal(t, ErrorCode(ledger.CodeUnauthorized), codeOf(t, err))
	})

	t.Run("no caller endorsement", func(t *testing.T) {
		req := steal(31)
		req.Caller = victimKey.Identity().String()
		req.CallerEndorsement = nil
		_, err := Submit(ctx, f.Engine, nil, req)
		assert.Equal(t, ErrorCode(ledger.CodeUnauthorized), codeOf(t, err))
	})

	t.Run("caller endorsement for a different source", func(t *testing.T) {
		req, err := Authenticate(depositRequest(t, f, ledgertest.Serial(32), attacker, 500, 0), victimKey)
		require.NoError(t, err)
		req.Source = ledgertest.Addr("elsewhere").String()
		_, err = Submit(ctx, f.Engine, nil, req)
		assert.Equal(t, ErrorCode(ledger.CodeUnauthorized), codeOf(t, err))
	})

	t.Run("authenticated attacker does not own the source", func(t *testing.T) {
		req, err := Authenticate(steal(33), attackerKey)
		require.NoError(t, err)
		_, err = Submit(ctx, f.Engine, nil, req)
		assert.Equal(t, ErrorCode(ledger.CodeInvalidAtaOwner), codeOf(t, err))
	})

	_, err = f.Engine.Account(ctx, attacker, f.Asset)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	// The holder's own signature moves their funds.
	req, err := Authenticate(steal(34), victimKey)
	require.NoError(t, err)
	ev, err := Submit(ctx, f.Engine, nil, req)
	require.NoError(t, err)
	assert.Equal(t, victimKey.Identity().String(), ev.Caller)
}

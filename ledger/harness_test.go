package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/asset"
	"xdao.co/custodian/endorse"
	"xdao.co/custodian/storage"
	"xdao.co/custodian/storage/memory"
)

func addr(s string) addressing.Address { return addressing.Derive("test", []byte(s)) }

func serialN(n int) Serial {
	var s Serial
	s[0] = byte(n)
	s[1] = byte(n >> 8)
	s[31] = 0xAA
	return s
}

var (
	usdc = addr("usdc")
	eth  = addr("eth")

	alice = addr("alice")
	bob   = addr("bob")
)

const walletFunds = 10_000_000_000

type harness struct {
	t      *testing.T
	ctx    context.Context
	store  storage.Store
	eng    *Engine
	signer endorse.Signer
	now    time.Time

	owner  addressing.Address
	caller addressing.Address

	wallet    addressing.Address // caller-owned usdc holding
	ethWallet addressing.Address // caller-owned eth holding
	stranger  addressing.Address // usdc holding owned by someone else
	out       addressing.Address // external payout holding
	feeUser   addressing.Address // usdc holding owned by Config.FeeTo
}

func newHarness(t *testing.T, opts ...Option) *harness {
	return newHarnessOn(t, memory.New(), opts...)
}

func newHarnessOn(t *testing.T, store storage.Store, opts ...Option) *harness {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	signer, err := endorse.NewEd25519Signer(seed)
	require.NoError(t, err)

	h := &harness{
		t:         t,
		ctx:       context.Background(),
		store:     store,
		signer:    signer,
		now:       time.Unix(1_700_000_000, 0),
		owner:     addr("owner"),
		caller:    addr("relayer"),
		wallet:    addr("wallet"),
		ethWallet: addr("eth-wallet"),
		stranger:  addr("stranger-wallet"),
		out:       addr("payout"),
		feeUser:   addr("fee-holding"),
	}
	opts = append([]Option{WithClock(ClockFunc(func() time.Time { return h.now }))}, opts...)
	h.eng = New(store, opts...)

	_, err = h.eng.Initialize(h.ctx, h.owner, addressing.Null)
	require.NoError(t, err)
	require.NoError(t, h.eng.ChangeSigner(h.ctx, h.owner, signer.Identity()))
	_, err = h.eng.InitializeVault(h.ctx, h.owner, usdc)
	require.NoError(t, err)
	_, err = h.eng.InitializeVault(h.ctx, h.owner, eth)
	require.NoError(t, err)

	book := h.eng.Book()
	require.NoError(t, store.Update(h.ctx, func(tx storage.Tx) error {
		holdings := []asset.Holding{
			{Address: h.wallet, Asset: usdc, Owner: h.caller},
			{Address: h.ethWallet, Asset: eth, Owner: h.caller},
			{Address: h.stranger, Asset: usdc, Owner: addr("stranger")},
			{Address: h.out, Asset: usdc, Owner: addr("merchant")},
			{Address: h.feeUser, Asset: usdc, Owner: h.owner},
		}
		for _, hd := range holdings {
			if err := book.Open(tx, hd); err != nil {
				return err
			}
		}
		for _, a := range []addressing.Address{h.wallet, h.ethWallet, h.stranger} {
			if err := book.Mint(tx, a, walletFunds); err != nil {
				return err
			}
		}
		return nil
	}))
	return h
}

func (h *harness) expiry() int64 { return h.now.Unix() + 60 }

// envelope endorses msg with the harness signer and runs the oracle.
func (h *harness) envelope(serial Serial, expiry int64, msg []byte) Envelope {
	h.t.Helper()
	v, err := endorse.DefaultOracle{}.Verify(h.signer.Endorse(msg))
	require.NoError(h.t, err)
	return Envelope{
		Caller:    h.caller,
		Serial:    serial,
		Expiry:    expiry,
		Signature: v.Signature,
		Proof:     []endorse.Verified{v},
	}
}

func (h *harness) deposit(serial Serial, identity addressing.Address, amount, frozen uint64) (Event, error) {
	exp := h.expiry()
	env := h.envelope(serial, exp, DepositMessage(serial, identity, amount, frozen, exp))
	return h.eng.Deposit(h.ctx, env, DepositArgs{Asset: usdc, Identity: identity, Amount: amount, Frozen: frozen, Source: h.wallet})
}

func (h *harness) withdraw(serial Serial, identity addressing.Address, available, frozen uint64) (Event, error) {
	exp := h.expiry()
	env := h.envelope(serial, exp, WithdrawMessage(serial, identity, available, frozen, exp))
	return h.eng.Withdraw(h.ctx, env, WithdrawArgs{Asset: usdc, Identity: identity, Available: available, Frozen: frozen, Recipient: h.out})
}

func (h *harness) freeze(serial Serial, identity addressing.Address, amount uint64) (Event, error) {
	exp := h.expiry()
	env := h.envelope(serial, exp, FreezeMessage(serial, identity, amount, exp))
	return h.eng.Freeze(h.ctx, env, FreezeArgs{Asset: usdc, Identity: identity, Amount: amount})
}

func (h *harness) unfreeze(serial Serial, identity addressing.Address, amount, fee uint64) (Event, error) {
	exp := h.expiry()
	env := h.envelope(serial, exp, UnfreezeMessage(serial, identity, amount, fee, exp))
	return h.eng.Unfreeze(h.ctx, env, UnfreezeArgs{Asset: usdc, Identity: identity, Amount: amount, Fee: fee})
}

func (h *harness) transfer(serial Serial, from, to addressing.Address, amount, fee uint64, dst Destination) (Event, error) {
	exp := h.expiry()
	env := h.envelope(serial, exp, TransferMessage(serial, from, to, amount, fee, exp))
	return h.eng.Transfer(h.ctx, env, TransferArgs{Asset: usdc, From: from, To: to, Amount: amount, Fee: fee, Destination: dst})
}

func (h *harness) settle(serial Serial, deal SettlementData, dst Destination) (Event, error) {
	exp := h.expiry()
	env := h.envelope(serial, exp, SettleMessage(serial, deal, exp))
	return h.eng.Settle(h.ctx, env, SettleArgs{Asset: usdc, Deal: deal, Destination: dst})
}

func (h *harness) external() Destination {
	return DestinationFromWire(h.out, h.feeUser)
}

func (h *harness) account(identity addressing.Address) Account {
	h.t.Helper()
	acct, err := h.eng.Account(h.ctx, identity, usdc)
	if err == ErrAccountNotFound {
		return Account{Asset: usdc}
	}
	require.NoError(h.t, err)
	return acct
}

func (h *harness) feeAccount() Account { return h.account(DefaultFeeToAccount) }

func (h *harness) vault() uint64 {
	h.t.Helper()
	vs, err := h.eng.Vault(h.ctx, usdc)
	require.NoError(h.t, err)
	return vs.Balance
}

func (h *harness) holding(a addressing.Address) uint64 {
	h.t.Helper()
	var hd asset.Holding
	require.NoError(h.t, h.store.View(h.ctx, func(r storage.Reader) error {
		var err error
		hd, err = h.eng.Book().Holding(r, a)
		return err
	}))
	return hd.Balance
}

// claims sums available+frozen over identities and the fee account.
func (h *harness) claims(identities ...addressing.Address) uint64 {
	var total uint64
	for _, id := range append(identities, DefaultFeeToAccount) {
		a := h.account(id)
		total += a.Available + a.Frozen
	}
	return total
}

package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/custodian/storage"
)

func TestBalanceRules(t *testing.T) {
	h := newHarness(t)
	_, err := h.deposit(serialN(1), alice, 1_000, 200)
	require.NoError(t, err)

	cases := []struct {
		name string
		run  func(Serial) (Event, error)
		want error
	}{
		{"deposit frozen over amount", func(s Serial) (Event, error) { return h.deposit(s, alice, 10, 11) }, ErrInvalidAmount},
		{"deposit zero", func(s Serial) (Event, error) { return h.deposit(s, alice, 0, 0) }, ErrZeroAmount},
		{"deposit beyond wallet", func(s Serial) (Event, error) { return h.deposit(s, alice, walletFunds, 0) }, ErrInsufficientFunds},
		{"withdraw zero", func(s Serial) (Event, error) { return h.withdraw(s, alice, 0, 0) }, ErrZeroAmount},
		{"withdraw available", func(s Serial) (Event, error) { return h.withdraw(s, alice, 801, 0) }, ErrInsufficientAvailable},
		{"withdraw frozen", func(s Serial) (Event, error) { return h.withdraw(s, alice, 0, 201) }, ErrInsufficientFrozen},
		{"withdraw overflow", func(s Serial) (Event, error) { return h.withdraw(s, alice, math.MaxUint64, 1) }, ErrOverflow},
		{"freeze zero", func(s Serial) (Event, error) { return h.freeze(s, alice, 0) }, ErrZeroAmount},
		{"freeze available", func(s Serial) (Event, error) { return h.freeze(s, alice, 801) }, ErrInsufficientAvailable},
		{"unfreeze fee overrun", func(s Serial) (Event, error) { return h.unfreeze(s, alice, 10, 11) }, ErrFeeOverrun},
		{"unfreeze frozen", func(s Serial) (Event, error) { return h.unfreeze(s, alice, 201, 0) }, ErrInsufficientFrozen},
		{"unfreeze unknown account", func(s Serial) (Event, error) { return h.unfreeze(s, bob, 1, 0) }, ErrInsufficientFrozen},
		{"transfer zero", func(s Serial) (Event, error) { return h.transfer(s, alice, bob, 0, 0, Internal{}) }, ErrZeroAmount},
		{"transfer fee overrun", func(s Serial) (Event, error) { return h.transfer(s, alice, bob, 5, 6, Internal{}) }, ErrFeeOverrun},
		{"transfer available", func(s Serial) (Event, error) { return h.transfer(s, alice, bob, 801, 0, Internal{}) }, ErrInsufficientAvailable},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.run(serialN(100 + i))
			assert.ErrorIs(t, err, tc.want)
			done, err := h.eng.Executed(h.ctx, serialN(100+i))
			require.NoError(t, err)
			assert.False(t, done)
		})
	}

	acct := h.account(alice)
	assert.Equal(t, uint64(800), acct.Available)
	assert.Equal(t, uint64(200), acct.Frozen)
	assert.Equal(t, uint64(1_000), h.vault())
}

func TestFeeEqualToAmountAllowed(t *testing.T) {
	h := newHarness(t)
	_, err := h.deposit(serialN(1), alice, 100, 100)
	require.NoError(t, err)

	_, err = h.unfreeze(serialN(2), alice, 40, 40)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), h.account(alice).Available)
	assert.Equal(t, uint64(40), h.feeAccount().Available)
}

func TestAddressingRules(t *testing.T) {
	h := newHarness(t)
	_, err := h.deposit(serialN(1), alice, 1_000, 0)
	require.NoError(t, err)

	exp := h.expiry()
	t.Run("unknown asset", func(t *testing.T) {
		s := serialN(2)
		env := h.envelope(s, exp, FreezeMessage(s, alice, 1, exp))
		_, err := h.eng.Freeze(h.ctx, env, FreezeArgs{Asset: addr("doge"), Identity: alice, Amount: 1})
		assert.ErrorIs(t, err, ErrInvalidProgramToken)
	})

	t.Run("source not owned by caller", func(t *testing.T) {
		s := serialN(3)
		env := h.envelope(s, exp, DepositMessage(s, alice, 5, 0, exp))
		_, err := h.eng.Deposit(h.ctx, env, DepositArgs{Asset: usdc, Identity: alice, Amount: 5, Source: h.stranger})
		assert.ErrorIs(t, err, ErrInvalidAtaOwner)
	})

	t.Run("source of another asset", func(t *testing.T) {
		s := serialN(4)
		env := h.envelope(s, exp, DepositMessage(s, alice, 5, 0, exp))
		_, err := h.eng.Deposit(h.ctx, env, DepositArgs{Asset: usdc, Identity: alice, Amount: 5, Source: h.ethWallet})
		assert.ErrorIs(t, err, ErrInvalidMint)
	})

	t.Run("unknown payout holding", func(t *testing.T) {
		_, err := h.transfer(serialN(5), alice, bob, 10, 1, External{Out: addr("nowhere"), FeeUser: h.feeUser})
		assert.ErrorIs(t, err, ErrInvalidAtaOwner)
	})

	t.Run("fee holding not owned by fee recipient", func(t *testing.T) {
		_, err := h.transfer(serialN(6), alice, bob, 10, 1, External{Out: h.out, FeeUser: h.stranger})
		assert.ErrorIs(t, err, ErrInvalidFeeUser)
	})

	t.Run("withdraw to holding of another asset", func(t *testing.T) {
		s := serialN(7)
		env := h.envelope(s, exp, WithdrawMessage(s, alice, 1, 0, exp))
		_, err := h.eng.Withdraw(h.ctx, env, WithdrawArgs{Asset: usdc, Identity: alice, Available: 1, Recipient: h.ethWallet})
		assert.ErrorIs(t, err, ErrInvalidMint)
	})

	assert.Equal(t, uint64(1_000), h.account(alice).Available)
	assert.Equal(t, uint64(1_000), h.vault())
	for _, err := range []error{ErrInvalidMint, ErrInvalidAtaOwner, ErrInvalidFeeUser, ErrInvalidProgramToken} {
		assert.True(t, IsKind(err, KindAddressing))
	}
}

func TestVaultHoldingIsNeverCounterparty(t *testing.T) {
	h := newHarness(t)
	_, err := h.deposit(serialN(1), alice, 1_000, 0)
	require.NoError(t, err)
	vault := VaultHolding(usdc)
	exp := h.expiry()

	t.Run("deposit from the vault", func(t *testing.T) {
		s := serialN(2)
		env := h.envelope(s, exp, DepositMessage(s, alice, 5_000, 0, exp))
		env.Caller = vault
		_, err := h.eng.Deposit(h.ctx, env, DepositArgs{Asset: usdc, Identity: alice, Amount: 5_000, Source: vault})
		assert.ErrorIs(t, err, ErrInvalidAtaOwner)
	})

	t.Run("withdraw into the vault", func(t *testing.T) {
		s := serialN(3)
		env := h.envelope(s, exp, WithdrawMessage(s, alice, 100, 0, exp))
		_, err := h.eng.Withdraw(h.ctx, env, WithdrawArgs{Asset: usdc, Identity: alice, Available: 100, Recipient: vault})
		assert.ErrorIs(t, err, ErrInvalidAtaOwner)
	})

	t.Run("external payout to the vault", func(t *testing.T) {
		_, err := h.transfer(serialN(4), alice, bob, 100, 0, External{Out: vault})
		assert.ErrorIs(t, err, ErrInvalidAtaOwner)
	})

	t.Run("fee paid to the vault", func(t *testing.T) {
		_, err := h.transfer(serialN(5), alice, bob, 100, 10, External{Out: h.out, FeeUser: vault})
		assert.ErrorIs(t, err, ErrInvalidAtaOwner)
	})

	assert.Equal(t, uint64(1_000), h.account(alice).Available)
	assert.Equal(t, uint64(1_000), h.vault())
	assert.LessOrEqual(t, h.claims(alice, bob), h.vault())
}

func TestZeroFeeExternalSkipsFeeHolding(t *testing.T) {
	h := newHarness(t)
	_, err := h.deposit(serialN(1), alice, 100, 0)
	require.NoError(t, err)

	_, err = h.transfer(serialN(2), alice, bob, 100, 0, External{Out: h.out})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), h.holding(h.out))
	assert.Equal(t, uint64(0), h.vault())
}

func TestVaultShortfallFailsAtomically(t *testing.T) {
	h := newHarness(t)
	_, err := h.deposit(serialN(1), alice, 100, 0)
	require.NoError(t, err)

	// Drain the vault behind the ledger's back.
	require.NoError(t, h.store.Update(h.ctx, func(tx storage.Tx) error {
		return h.eng.Book().Transfer(tx, VaultHolding(usdc), h.out, 60)
	}))

	_, err = h.withdraw(serialN(2), alice, 100, 0)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(100), h.account(alice).Available)
}

func TestAccountRecordAssetMismatch(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Update(h.ctx, func(tx storage.Tx) error {
		return tx.Put(accountKey(alice, usdc), encodeAccount(Account{Asset: eth, Available: 5}))
	}))
	_, err := h.freeze(serialN(1), alice, 1)
	assert.ErrorIs(t, err, ErrInvalidMint)
}

package ledger

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/custodian/endorse"
)

func TestEveryMessageByteIsBound(t *testing.T) {
	h := newHarness(t)
	serial := serialN(1)
	exp := h.expiry()
	args := DepositArgs{Asset: usdc, Identity: alice, Amount: 1_000, Frozen: 10, Source: h.wallet}
	msg := DepositMessage(serial, alice, args.Amount, args.Frozen, exp)
	require.Len(t, msg, 88)

	for i := range msg {
		tampered := append([]byte(nil), msg...)
		tampered[i] ^= 0x01
		env := h.envelope(serial, exp, tampered)

		_, err := h.eng.Deposit(h.ctx, env, args)
		require.ErrorIs(t, err, ErrInvalidMessage, "byte %d", i)
	}

	// None of the failures consumed the serial.
	_, err := h.eng.Deposit(h.ctx, h.envelope(serial, exp, msg), args)
	require.NoError(t, err)
}

func TestMessageBindsArguments(t *testing.T) {
	h := newHarness(t)
	_, err := h.deposit(serialN(1), alice, 1_000, 0)
	require.NoError(t, err)

	// A valid endorsement for one transfer cannot carry a larger one.
	exp := h.expiry()
	env := h.envelope(serialN(2), exp, TransferMessage(serialN(2), alice, bob, 10, 0, exp))
	_, err = h.eng.Transfer(h.ctx, env, TransferArgs{Asset: usdc, From: alice, To: bob, Amount: 900, Destination: Internal{}})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	// Nor redirect it to another recipient.
	_, err = h.eng.Transfer(h.ctx, env, TransferArgs{Asset: usdc, From: alice, To: addr("mallory"), Amount: 10, Destination: Internal{}})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestAuthorizationFailures(t *testing.T) {
	h := newHarness(t)
	_, err := h.deposit(serialN(1), alice, 1_000, 0)
	require.NoError(t, err)

	serial := serialN(2)
	exp := h.expiry()
	msg := FreezeMessage(serial, alice, 10, exp)
	args := FreezeArgs{Asset: usdc, Identity: alice, Amount: 10}

	t.Run("missing proof", func(t *testing.T) {
		env := h.envelope(serial, exp, msg)
		env.Proof = nil
		_, err := h.eng.Freeze(h.ctx, env, args)
		assert.ErrorIs(t, err, ErrMissingEd25519Instruction)
	})

	t.Run("two signatures", func(t *testing.T) {
		env := h.envelope(serial, exp, msg)
		env.Proof = append(env.Proof, env.Proof[0])
		_, err := h.eng.Freeze(h.ctx, env, args)
		assert.ErrorIs(t, err, ErrInvalidEd25519Instruction)
	})

	t.Run("wrong signer", func(t *testing.T) {
		other, err := endorse.GenerateEd25519(rand.Reader)
		require.NoError(t, err)
		v, err := endorse.DefaultOracle{}.Verify(other.Endorse(msg))
		require.NoError(t, err)
		env := Envelope{Caller: h.caller, Serial: serial, Expiry: exp, Signature: v.Signature, Proof: []endorse.Verified{v}}
		_, err = h.eng.Freeze(h.ctx, env, args)
		assert.ErrorIs(t, err, ErrInvalidPublicKey)
	})

	t.Run("signature echo mismatch", func(t *testing.T) {
		env := h.envelope(serial, exp, msg)
		env.Signature = make([]byte, 64)
		_, err := h.eng.Freeze(h.ctx, env, args)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("scheme not accepted", func(t *testing.T) {
		env := h.envelope(serial, exp, msg)
		env.Proof[0].Scheme = endorse.SchemeDilithium3
		_, err := h.eng.Freeze(h.ctx, env, args)
		assert.ErrorIs(t, err, ErrInvalidEd25519Instruction)
	})

	for _, err := range []error{ErrMissingEd25519Instruction, ErrInvalidPublicKey, ErrInvalidSignature} {
		assert.True(t, IsKind(err, KindAuthorization))
	}

	done, err := h.eng.Executed(h.ctx, serial)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestDilithiumSigner(t *testing.T) {
	h := newHarness(t, WithSchemes(endorse.SchemeEd25519, endorse.SchemeDilithium3))
	pq, err := endorse.GenerateDilithium3(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, h.eng.ChangeSigner(h.ctx, h.owner, pq.Identity()))
	h.signer = pq

	_, err = h.deposit(serialN(1), alice, 500, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), h.account(alice).Available)
}

// Package endorse models the companion signature-verification step that
// runs before the ledger engine.
//
// The oracle checks a detached signature over a raw message and hands the
// engine only the already-verified (signer, message, signature) triple.
// The engine never performs signature math itself.
package endorse

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"xdao.co/custodian/addressing"
)

// Scheme names a detached signature scheme.
type Scheme string

const (
	SchemeEd25519    Scheme = "ed25519"
	SchemeDilithium3 Scheme = "dilithium3"
)

var (
	ErrUnsupportedScheme = errors.New("endorse: unsupported scheme")
	ErrInvalidPublicKey  = errors.New("endorse: invalid public key")
	ErrInvalidSignature  = errors.New("endorse: signature verification failed")
)

// Endorsement is an unverified (public key, signature, message) triple as
// produced off-ledger by a signer.
type Endorsement struct {
	Scheme    Scheme
	PublicKey []byte
	Signature []byte
	Message   []byte
}

// Verified is the fact that Signature over Message was checked against the
// key whose identity is Signer.
type Verified struct {
	Scheme    Scheme
	Signer    addressing.Address
	Signature []byte
	Message   []byte
}

// Oracle verifies endorsements.
type Oracle interface {
	Verify(e Endorsement) (Verified, error)
}

// DefaultOracle verifies Ed25519 and Dilithium3 endorsements.
type DefaultOracle struct{}

func (DefaultOracle) Verify(e Endorsement) (Verified, error) {
	id, err := Identity(e.Scheme, e.PublicKey)
	if err != nil {
		return Verified{}, err
	}
	switch e.Scheme {
	case SchemeEd25519:
		if len(e.Signature) != ed25519.SignatureSize {
			return Verified{}, fmt.Errorf("%w: ed25519 signature length %d", ErrInvalidSignature, len(e.Signature))
		}
		if !ed25519.Verify(ed25519.PublicKey(e.PublicKey), e.Message, e.Signature) {
			return Verified{}, ErrInvalidSignature
		}
	case SchemeDilithium3:
		if len(e.Signature) != mode3.SignatureSize {
			return Verified{}, fmt.Errorf("%w: dilithium3 signature length %d", ErrInvalidSignature, len(e.Signature))
		}
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(e.PublicKey); err != nil {
			return Verified{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		if !mode3.Verify(&pk, e.Message, e.Signature) {
			return Verified{}, ErrInvalidSignature
		}
	}
	return Verified{
		Scheme:    e.Scheme,
		Signer:    id,
		Signature: append([]byte(nil), e.Signature...),
		Message:   append([]byte(nil), e.Message...),
	}, nil
}

// VerifyAll runs the oracle over every endorsement and fails on the first
// invalid one.
func VerifyAll(o Oracle, es []Endorsement) ([]Verified, error) {
	out := make([]Verified, 0, len(es))
	for i, e := range es {
		v, err := o.Verify(e)
		if err != nil {
			return nil, fmt.Errorf("endorsement %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Identity maps a public key to the 32-byte identity the ledger compares
// against its configured signer. Ed25519 keys are their own identity;
// Dilithium3 keys are identified by sha3-256 of the encoded key.
func Identity(scheme Scheme, pub []byte) (addressing.Address, error) {
	switch scheme {
	case SchemeEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return addressing.Null, fmt.Errorf("%w: ed25519 key length %d", ErrInvalidPublicKey, len(pub))
		}
		return addressing.FromBytes(pub)
	case SchemeDilithium3:
		if len(pub) != mode3.PublicKeySize {
			return addressing.Null, fmt.Errorf("%w: dilithium3 key length %d", ErrInvalidPublicKey, len(pub))
		}
		return addressing.Address(sha3.Sum256(pub)), nil
	default:
		return addressing.Null, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

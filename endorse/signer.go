package endorse

import (
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/custodian/addressing"
)

// Signer produces endorsements over raw canonical messages.
type Signer interface {
	Scheme() Scheme
	PublicKey() []byte
	Identity() addressing.Address
	Endorse(message []byte) Endorsement
}

type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

// NewEd25519Signer builds a signer from a 32-byte seed.
func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes", ed25519.SeedSize)
	}
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func GenerateEd25519(rand io.Reader) (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Ed25519Signer{priv: priv}, nil
}

func (s *Ed25519Signer) Scheme() Scheme { return SchemeEd25519 }

func (s *Ed25519Signer) PublicKey() []byte {
	return append([]byte(nil), s.priv.Public().(ed25519.PublicKey)...)
}

func (s *Ed25519Signer) Identity() addressing.Address {
	var a addressing.Address
	copy(a[:], s.priv.Public().(ed25519.PublicKey))
	return a
}

func (s *Ed25519Signer) Endorse(message []byte) Endorsement {
	return Endorsement{
		Scheme:    SchemeEd25519,
		PublicKey: s.PublicKey(),
		Signature: ed25519.Sign(s.priv, message),
		Message:   append([]byte(nil), message...),
	}
}

type Dilithium3Signer struct {
	pub  *mode3.PublicKey
	priv *mode3.PrivateKey
}

func GenerateDilithium3(rand io.Reader) (*Dilithium3Signer, error) {
	pub, priv, err := mode3.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Dilithium3Signer{pub: pub, priv: priv}, nil
}

func (s *Dilithium3Signer) Scheme() Scheme { return SchemeDilithium3 }

func (s *Dilithium3Signer) PublicKey() []byte {
	b, _ := s.pub.MarshalBinary()
	return b
}

func (s *Dilithium3Signer) Identity() addressing.Address {
	id, _ := Identity(SchemeDilithium3, s.PublicKey())
	return id
}

func (s *Dilithium3Signer) Endorse(message []byte) Endorsement {
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, message, sig)
	return Endorsement{
		Scheme:    SchemeDilithium3,
		PublicKey: s.PublicKey(),
		Signature: sig,
		Message:   append([]byte(nil), message...),
	}
}

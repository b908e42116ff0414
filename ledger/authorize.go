package ledger

import (
	"bytes"

	"xdao.co/custodian/endorse"
)

// authorize confirms the companion verification step vouched for exactly
// the message this request reconstructs, signed by the configured signer.
func authorize(cfg Config, env Envelope, want []byte, schemes map[endorse.Scheme]bool) error {
	switch len(env.Proof) {
	case 0:
		return newError(CodeMissingEd25519Instruction, "no verified endorsement accompanies the request")
	case 1:
	default:
		return newError(CodeInvalidEd25519Instruction, "exactly one verified signature is required")
	}
	p := env.Proof[0]
	if !schemes[p.Scheme] {
		return newError(CodeInvalidEd25519Instruction, "unsupported signature scheme "+string(p.Scheme))
	}
	if p.Signer != cfg.Signer {
		return newError(CodeInvalidPublicKey, "endorsement not made by the configured signer")
	}
	if !bytes.Equal(p.Message, want) {
		return newError(CodeInvalidMessage, "endorsed message does not match request")
	}
	if !bytes.Equal(p.Signature, env.Signature) {
		return newError(CodeInvalidSignature, "request signature differs from the verified one")
	}
	return nil
}

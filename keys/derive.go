package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
)

const roleLabel = "xdao-custodian-keyring-v1"

// DeriveRoleSeed deterministically derives a role-specific seed from a
// root seed, so one root can back a separate signer per environment.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckName(role); err != nil {
		return nil, err
	}
	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(roleLabel))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:" + role))
	return h.Sum(nil)[:ed25519.SeedSize], nil
}

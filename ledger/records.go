package ledger

import (
	"encoding/binary"
	"fmt"

	"xdao.co/custodian/addressing"
)

const recordVersion = 1

func configKey() string { return addressing.Key(addressing.TagConfig) }

func accountKey(identity, asset addressing.Address) string {
	return addressing.Key(addressing.TagAccount, identity[:], asset[:])
}

func recordKey(serial Serial) string { return addressing.Key(addressing.TagRecord, serial[:]) }

func vaultKey(asset addressing.Address) string { return addressing.Key(addressing.TagVault, asset[:]) }

// VaultHolding is the derived address of the pooled holding for asset.
func VaultHolding(asset addressing.Address) addressing.Address {
	return addressing.Derive(addressing.TagVault, asset[:])
}

func corrupt(what string, n int) error {
	return newError(CodeCorruptRecord, fmt.Sprintf("corrupt %s record (%d bytes)", what, n))
}

func encodeConfig(c Config) []byte {
	out := make([]byte, 0, 2+4*addressing.Size)
	out = append(out, recordVersion)
	out = append(out, c.Owner[:]...)
	if c.Enabled {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, c.Signer[:]...)
	out = append(out, c.FeeTo[:]...)
	return append(out, c.FeeToAccount[:]...)
}

func decodeConfig(b []byte) (Config, error) {
	var c Config
	if len(b) != 2+4*addressing.Size || b[0] != recordVersion {
		return c, corrupt("config", len(b))
	}
	b = b[1:]
	copy(c.Owner[:], b[:32])
	c.Enabled = b[32] == 1
	copy(c.Signer[:], b[33:65])
	copy(c.FeeTo[:], b[65:97])
	copy(c.FeeToAccount[:], b[97:129])
	return c, nil
}

func encodeAccount(a Account) []byte {
	out := make([]byte, 0, 1+addressing.Size+16)
	out = append(out, recordVersion)
	out = append(out, a.Asset[:]...)
	out = binary.LittleEndian.AppendUint64(out, a.Available)
	return binary.LittleEndian.AppendUint64(out, a.Frozen)
}

func decodeAccount(b []byte) (Account, error) {
	var a Account
	if len(b) != 1+addressing.Size+16 || b[0] != recordVersion {
		return a, corrupt("account", len(b))
	}
	copy(a.Asset[:], b[1:33])
	a.Available = binary.LittleEndian.Uint64(b[33:41])
	a.Frozen = binary.LittleEndian.Uint64(b[41:49])
	return a, nil
}

func encodeVault(v Vault) []byte {
	out := make([]byte, 0, 1+2*addressing.Size)
	out = append(out, recordVersion)
	out = append(out, v.Asset[:]...)
	return append(out, v.Holding[:]...)
}

func decodeVault(b []byte) (Vault, error) {
	var v Vault
	if len(b) != 1+2*addressing.Size || b[0] != recordVersion {
		return v, corrupt("vault", len(b))
	}
	copy(v.Asset[:], b[1:33])
	copy(v.Holding[:], b[33:65])
	return v, nil
}

// Package addressing derives deterministic storage-cell identities.
//
// A cell is named by a namespace tag plus seed bytes, e.g.
// ("user-token", identity, asset). Keys are CIDv1 strings using the "raw"
// multicodec over a sha2-256 multihash of a length-framed preimage, so two
// different (tag, seeds) tuples never collide by concatenation.
package addressing

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"
)

// Namespace tags for the cells the ledger stores.
const (
	TagConfig  = "config"
	TagVault   = "program-token"
	TagAccount = "user-token"
	TagRecord  = "record"
	TagHolding = "holding"
)

// Size is the byte length of an Address.
const Size = 32

// Address is a 32-byte identity: a logical account, an asset, a key-derived
// caller identity or a holding owner.
type Address [Size]byte

// Null is the all-zero address.
var Null Address

var ErrInvalidAddress = errors.New("addressing: invalid address")

func (a Address) IsNull() bool { return a == Null }

func (a Address) Bytes() []byte { return append([]byte(nil), a[:]...) }

// String renders the address as base58.
func (a Address) String() string { return base58.Encode(a[:]) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Null, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return FromBytes(raw)
}

// FromBytes copies exactly Size bytes into an Address.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidAddress, Size, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func preimage(tag string, seeds [][]byte) []byte {
	n := len(tag) + binary.MaxVarintLen64
	for _, s := range seeds {
		n += len(s) + binary.MaxVarintLen64
	}
	out := make([]byte, 0, n)
	out = binary.AppendUvarint(out, uint64(len(tag)))
	out = append(out, tag...)
	for _, s := range seeds {
		out = binary.AppendUvarint(out, uint64(len(s)))
		out = append(out, s...)
	}
	return out
}

// CID returns a CIDv1 (raw + sha2-256) derived from data.
func CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Key returns the storage key for the cell named by tag and seeds.
func Key(tag string, seeds ...[]byte) string {
	id, err := CID(preimage(tag, seeds))
	if err != nil {
		// multihash.Sum only fails for unknown codes or bad lengths.
		panic(err)
	}
	return id.String()
}

// Derive returns the 32-byte address of the cell named by tag and seeds.
func Derive(tag string, seeds ...[]byte) Address {
	sum, err := multihash.Sum(preimage(tag, seeds), multihash.SHA2_256, -1)
	if err != nil {
		panic(err)
	}
	dec, err := multihash.Decode(sum)
	if err != nil {
		panic(err)
	}
	var a Address
	copy(a[:], dec.Digest)
	return a
}

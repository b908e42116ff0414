// Package asset is the asset-transfer primitive the ledger moves real value
// with. Holdings live in the same storage transaction as ledger records, so a
// vault movement and the paired account mutation commit or fail together.
package asset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/storage"
)

var (
	ErrUnknownHolding    = errors.New("asset: unknown holding")
	ErrHoldingExists     = errors.New("asset: holding already exists")
	ErrInsufficientFunds = errors.New("asset: insufficient funds")
	ErrAssetMismatch     = errors.New("asset: asset mismatch")
	ErrSelfTransfer      = errors.New("asset: source and destination are the same holding")
	ErrOverflow          = errors.New("asset: balance overflow")
	ErrCorrupt           = errors.New("asset: corrupt holding record")
)

// Holding is an addressable balance of one asset.
type Holding struct {
	Address addressing.Address
	Asset   addressing.Address
	Owner   addressing.Address
	Balance uint64
}

// Book moves assets between holdings inside a storage transaction.
type Book interface {
	Open(tx storage.Tx, h Holding) error
	Holding(r storage.Reader, addr addressing.Address) (Holding, error)
	Transfer(tx storage.Tx, from, to addressing.Address, amount uint64) error
	Mint(tx storage.Tx, to addressing.Address, amount uint64) error
}

// StoreBook keeps holdings as records in the ledger's own store.
type StoreBook struct{}

const recordVersion = 1

func holdingKey(addr addressing.Address) string {
	return addressing.Key(addressing.TagHolding, addr[:])
}

func (StoreBook) Open(tx storage.Tx, h Holding) error {
	err := tx.Insert(holdingKey(h.Address), encode(h))
	if errors.Is(err, storage.ErrExists) {
		return fmt.Errorf("%w: %s", ErrHoldingExists, h.Address)
	}
	return err
}

func (StoreBook) Holding(r storage.Reader, addr addressing.Address) (Holding, error) {
	b, err := r.Get(holdingKey(addr))
	if storage.IsNotFound(err) {
		return Holding{}, fmt.Errorf("%w: %s", ErrUnknownHolding, addr)
	}
	if err != nil {
		return Holding{}, err
	}
	return decode(addr, b)
}

// Transfer moves amount from one holding to another of the same asset.
// It succeeds only if the source covers amount and from != to.
func (b StoreBook) Transfer(tx storage.Tx, from, to addressing.Address, amount uint64) error {
	if from == to {
		return ErrSelfTransfer
	}
	src, err := b.Holding(tx, from)
	if err != nil {
		return err
	}
	dst, err := b.Holding(tx, to)
	if err != nil {
		return err
	}
	if src.Asset != dst.Asset {
		return ErrAssetMismatch
	}
	if amount == 0 {
		return nil
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, src.Balance, amount)
	}
	sum, carry := bits.Add64(dst.Balance, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	src.Balance -= amount
	dst.Balance = sum
	if err := tx.Put(holdingKey(from), encode(src)); err != nil {
		return err
	}
	return tx.Put(holdingKey(to), encode(dst))
}

// Mint credits amount to a holding out of thin air. Used to fund holdings
// that mirror balances held outside the ledger.
func (b StoreBook) Mint(tx storage.Tx, to addressing.Address, amount uint64) error {
	dst, err := b.Holding(tx, to)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(dst.Balance, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	dst.Balance = sum
	return tx.Put(holdingKey(to), encode(dst))
}

func encode(h Holding) []byte {
	out := make([]byte, 0, 1+2*addressing.Size+8)
	out = append(out, recordVersion)
	out = append(out, h.Asset[:]...)
	out = append(out, h.Owner[:]...)
	return binary.LittleEndian.AppendUint64(out, h.Balance)
}

func decode(addr addressing.Address, b []byte) (Holding, error) {
	if len(b) != 1+2*addressing.Size+8 || b[0] != recordVersion {
		return Holding{}, ErrCorrupt
	}
	h := Holding{Address: addr}
	copy(h.Asset[:], b[1:33])
	copy(h.Owner[:], b[33:65])
	h.Balance = binary.LittleEndian.Uint64(b[65:])
	return h, nil
}

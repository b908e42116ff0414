package ledger

import (
	"errors"
	"fmt"
	"math/bits"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/asset"
	"xdao.co/custodian/storage"
)

func add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, newError(CodeOverflow, fmt.Sprintf("%d + %d overflows", a, b))
	}
	return sum, nil
}

func sub(a, b uint64, code Code) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, newError(code, fmt.Sprintf("have %d, need %d", a, b))
	}
	return diff, nil
}

func (a *Account) creditAvailable(n uint64) error {
	v, err := add(a.Available, n)
	if err != nil {
		return err
	}
	a.Available = v
	return nil
}

func (a *Account) creditFrozen(n uint64) error {
	v, err := add(a.Frozen, n)
	if err != nil {
		return err
	}
	a.Frozen = v
	return nil
}

func (a *Account) debitAvailable(n uint64) error {
	v, err := sub(a.Available, n, CodeInsufficientAvailable)
	if err != nil {
		return err
	}
	a.Available = v
	return nil
}

func (a *Account) debitFrozen(n uint64) error {
	v, err := sub(a.Frozen, n, CodeInsufficientFrozen)
	if err != nil {
		return err
	}
	a.Frozen = v
	return nil
}

// loadAccount returns the account for (identity, asset). A missing account
// reads as zero; it is only written back by putAccount.
func loadAccount(r storage.Reader, identity, assetID addressing.Address) (Account, bool, error) {
	b, err := r.Get(accountKey(identity, assetID))
	if storage.IsNotFound(err) {
		return Account{Asset: assetID}, false, nil
	}
	if err != nil {
		return Account{}, false, err
	}
	acct, err := decodeAccount(b)
	if err != nil {
		return Account{}, false, err
	}
	if acct.Asset != assetID {
		return Account{}, false, newError(CodeInvalidMint, "account asset does not match request")
	}
	return acct, true, nil
}

func putAccount(tx storage.Tx, identity addressing.Address, acct Account) error {
	return tx.Put(accountKey(identity, acct.Asset), encodeAccount(acct))
}

// updateAccount loads, mutates and stores one account.
func updateAccount(tx storage.Tx, identity, assetID addressing.Address, fn func(*Account) error) error {
	acct, _, err := loadAccount(tx, identity, assetID)
	if err != nil {
		return err
	}
	if err := fn(&acct); err != nil {
		return err
	}
	return putAccount(tx, identity, acct)
}

func loadConfig(r storage.Reader) (Config, error) {
	b, err := r.Get(configKey())
	if storage.IsNotFound(err) {
		return Config{}, newError(CodeNotInitialized, "config not initialized")
	}
	if err != nil {
		return Config{}, err
	}
	return decodeConfig(b)
}

func loadVault(r storage.Reader, assetID addressing.Address) (Vault, error) {
	b, err := r.Get(vaultKey(assetID))
	if storage.IsNotFound(err) {
		return Vault{}, newError(CodeInvalidProgramToken, "no vault for asset "+assetID.String())
	}
	if err != nil {
		return Vault{}, err
	}
	v, err := decodeVault(b)
	if err != nil {
		return Vault{}, err
	}
	if v.Asset != assetID {
		return Vault{}, newError(CodeInvalidProgramToken, "vault asset mismatch")
	}
	return v, nil
}

// payoutHolding resolves a holding that value is paid into or taken from.
// The asset's vault holding is never an outside party.
func (e *Engine) payoutHolding(r storage.Reader, addr, assetID addressing.Address) (asset.Holding, error) {
	if addr == VaultHolding(assetID) {
		return asset.Holding{}, newError(CodeInvalidAtaOwner, "vault holding "+addr.String()+" cannot be a counterparty")
	}
	h, err := e.book.Holding(r, addr)
	if errors.Is(err, asset.ErrUnknownHolding) {
		return h, wrapError(CodeInvalidAtaOwner, "unknown holding "+addr.String(), err)
	}
	if err != nil {
		return h, err
	}
	if h.Asset != assetID {
		return h, newError(CodeInvalidMint, "holding "+addr.String()+" is for a different asset")
	}
	return h, nil
}

// move runs the asset-transfer primitive and maps its failures.
func (e *Engine) move(tx storage.Tx, from, to addressing.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	err := e.book.Transfer(tx, from, to, amount)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, asset.ErrInsufficientFunds):
		return wrapError(CodeInsufficientFunds, "asset transfer failed", err)
	case errors.Is(err, asset.ErrAssetMismatch):
		return wrapError(CodeInvalidMint, "asset transfer failed", err)
	case errors.Is(err, asset.ErrSelfTransfer):
		return wrapError(CodeInvalidAtaOwner, "asset transfer failed", err)
	case errors.Is(err, asset.ErrUnknownHolding):
		return wrapError(CodeInvalidAtaOwner, "asset transfer failed", err)
	case errors.Is(err, asset.ErrOverflow):
		return wrapError(CodeOverflow, "asset transfer failed", err)
	default:
		return err
	}
}

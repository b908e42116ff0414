package ledger

import (
	"errors"

	"xdao.co/custodian/storage"
)

var executedRecord = []byte{1}

// consume burns serial inside tx. The record only becomes visible if the
// surrounding transaction commits.
func consume(tx storage.Tx, serial Serial) error {
	err := tx.Insert(recordKey(serial), executedRecord)
	if errors.Is(err, storage.ErrExists) {
		return wrapError(CodeAlreadyExecuted, "serial "+serial.String()+" already executed", err)
	}
	return err
}

func executed(r storage.Reader, serial Serial) (bool, error) {
	_, err := r.Get(recordKey(serial))
	if storage.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/custodian/ledger"
	"xdao.co/custodian/model"
)

var kindCodes = map[ledger.Kind]codes.Code{
	ledger.KindPolicy:        codes.FailedPrecondition,
	ledger.KindTemporal:      codes.FailedPrecondition,
	ledger.KindReplay:        codes.AlreadyExists,
	ledger.KindAuthorization: codes.PermissionDenied,
	ledger.KindBalance:       codes.FailedPrecondition,
	ledger.KindAddressing:    codes.InvalidArgument,
	ledger.KindInternal:      codes.Internal,
}

// toStatus carries the CodedError as JSON in the status message so the
// client can rebuild the exact ledger code.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	ce := model.AsCodedError(err)
	c := codes.Internal
	switch {
	case ce.Kind != "":
		if k, ok := kindCodes[ledger.Kind(ce.Kind)]; ok {
			c = k
		}
	case ce.Code == model.ErrInvalidRequest:
		c = codes.InvalidArgument
	case ce.Code == model.ErrNotFound:
		c = codes.NotFound
	}
	b, jerr := json.Marshal(ce)
	if jerr != nil {
		return status.Error(c, ce.Message)
	}
	return status.Error(c, string(b))
}

// fromStatus maps a status error back: ledger rejections become *ledger.Error
// values matching the ledger sentinels, everything else a *model.CodedError.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var ce model.CodedError
	if jerr := json.Unmarshal([]byte(st.Message()), &ce); jerr != nil || ce.Code == "" {
		return err
	}
	if le, ok := ce.Ledger(); ok {
		return le
	}
	if ce.Code == model.ErrNotFound {
		return fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, ce.Message)
	}
	return &ce
}

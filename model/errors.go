package model

import (
	"errors"
	"fmt"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/ledger"
)

type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrInternal       ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human
// message. Ledger rejections keep their ledger code and kind.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Kind    string    `json:"kind,omitempty"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// Ledger returns the ledger error this CodedError stands for, if any.
func (e *CodedError) Ledger() (error, bool) {
	if e == nil || e.Kind == "" {
		return nil, false
	}
	return ledger.FromCode(ledger.Code(e.Code), e.Message), true
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	return AsCodedError(err)
}

// AsCodedError projects any error onto the stable boundary form.
func AsCodedError(err error) *CodedError {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	var le *ledger.Error
	if errors.As(err, &le) {
		return &CodedError{Code: ErrorCode(le.Code), Kind: string(le.Kind), Message: le.Message}
	}
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return NewError(ErrNotFound, err.Error())
	}
	if errors.Is(err, addressing.ErrInvalidAddress) {
		return NewError(ErrInvalidRequest, err.Error())
	}
	return NewError(ErrInternal, err.Error())
}

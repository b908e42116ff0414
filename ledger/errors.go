package ledger

import "errors"

// Kind is a stable error category for programmatic handling.
//
// Callers should branch on Kind/Code rather than matching error strings.
// Use errors.As to extract *Error, or errors.Is against the exported
// sentinels, which match by Code.
type Kind string

const (
	KindPolicy        Kind = "Policy"
	KindTemporal      Kind = "Temporal"
	KindReplay        Kind = "Replay"
	KindAuthorization Kind = "Authorization"
	KindBalance       Kind = "Balance"
	KindAddressing    Kind = "Addressing"
	KindInternal      Kind = "Internal"
)

// Code names the violated rule. Codes are stable across versions.
type Code string

const (
	CodeDisabled                  Code = "Disabled"
	CodeForbidden                 Code = "Forbidden"
	CodeUnauthorized              Code = "Unauthorized"
	CodeAlreadyInitialized        Code = "AlreadyInitialized"
	CodeNotInitialized            Code = "NotInitialized"
	CodeExpired                   Code = "Expired"
	CodeAlreadyExecuted           Code = "AlreadyExecuted"
	CodeInvalidSignature          Code = "InvalidSignature"
	CodeInvalidPublicKey          Code = "InvalidPublicKey"
	CodeInvalidMessage            Code = "InvalidMessage"
	CodeMissingEd25519Instruction Code = "MissingEd25519Instruction"
	CodeInvalidEd25519Instruction Code = "InvalidEd25519Instruction"
	CodeInsufficientFunds         Code = "InsufficientFunds"
	CodeInsufficientAvailable     Code = "InsufficientAvailable"
	CodeInsufficientFrozen        Code = "InsufficientFrozen"
	CodeZeroAmount                Code = "ZeroAmount"
	CodeInvalidAmount             Code = "InvalidAmount"
	CodeFeeOverrun                Code = "FeeOverrun"
	CodeOverflow                  Code = "Overflow"
	CodeInvalidMint               Code = "InvalidMint"
	CodeInvalidProgramToken       Code = "InvalidProgramToken"
	CodeInvalidFeeUser            Code = "InvalidFeeUser"
	CodeInvalidAtaOwner           Code = "InvalidAtaOwner"
	CodeCorruptRecord             Code = "CorruptRecord"
)

var codeKinds = map[Code]Kind{
	CodeDisabled:                  KindPolicy,
	CodeForbidden:                 KindPolicy,
	CodeUnauthorized:              KindPolicy,
	CodeAlreadyInitialized:        KindPolicy,
	CodeNotInitialized:            KindPolicy,
	CodeExpired:                   KindTemporal,
	CodeAlreadyExecuted:           KindReplay,
	CodeInvalidSignature:          KindAuthorization,
	CodeInvalidPublicKey:          KindAuthorization,
	CodeInvalidMessage:            KindAuthorization,
	CodeMissingEd25519Instruction: KindAuthorization,
	CodeInvalidEd25519Instruction: KindAuthorization,
	CodeInsufficientFunds:         KindBalance,
	CodeInsufficientAvailable:     KindBalance,
	CodeInsufficientFrozen:        KindBalance,
	CodeZeroAmount:                KindBalance,
	CodeInvalidAmount:             KindBalance,
	CodeFeeOverrun:                KindBalance,
	CodeOverflow:                  KindBalance,
	CodeInvalidMint:               KindAddressing,
	CodeInvalidProgramToken:       KindAddressing,
	CodeInvalidFeeUser:            KindAddressing,
	CodeInvalidAtaOwner:           KindAddressing,
	CodeCorruptRecord:             KindInternal,
}

// KindOf returns the category a code belongs to.
func KindOf(code Code) Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindInternal
}

// Error is the engine's structured error type.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func newError(code Code, msg string) error {
	return &Error{Kind: KindOf(code), Code: code, Message: msg}
}

func wrapError(code Code, msg string, cause error) error {
	return &Error{Kind: KindOf(code), Code: code, Message: msg, Cause: cause}
}

// FromCode rebuilds a structured error from its wire form.
func FromCode(code Code, msg string) error {
	return newError(code, msg)
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// CodeOf returns the Code of a structured error, or "" if err is not one.
func CodeOf(err error) Code {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

func sentinel(code Code) *Error { return &Error{Kind: KindOf(code), Code: code} }

var (
	ErrDisabled                  = sentinel(CodeDisabled)
	ErrForbidden                 = sentinel(CodeForbidden)
	ErrUnauthorized              = sentinel(CodeUnauthorized)
	ErrAlreadyInitialized        = sentinel(CodeAlreadyInitialized)
	ErrNotInitialized            = sentinel(CodeNotInitialized)
	ErrExpired                   = sentinel(CodeExpired)
	ErrAlreadyExecuted           = sentinel(CodeAlreadyExecuted)
	ErrInvalidSignature          = sentinel(CodeInvalidSignature)
	ErrInvalidPublicKey          = sentinel(CodeInvalidPublicKey)
	ErrInvalidMessage            = sentinel(CodeInvalidMessage)
	ErrMissingEd25519Instruction = sentinel(CodeMissingEd25519Instruction)
	ErrInvalidEd25519Instruction = sentinel(CodeInvalidEd25519Instruction)
	ErrInsufficientFunds         = sentinel(CodeInsufficientFunds)
	ErrInsufficientAvailable     = sentinel(CodeInsufficientAvailable)
	ErrInsufficientFrozen        = sentinel(CodeInsufficientFrozen)
	ErrZeroAmount                = sentinel(CodeZeroAmount)
	ErrInvalidAmount             = sentinel(CodeInvalidAmount)
	ErrFeeOverrun                = sentinel(CodeFeeOverrun)
	ErrOverflow                  = sentinel(CodeOverflow)
	ErrInvalidMint               = sentinel(CodeInvalidMint)
	ErrInvalidProgramToken       = sentinel(CodeInvalidProgramToken)
	ErrInvalidFeeUser            = sentinel(CodeInvalidFeeUser)
	ErrInvalidAtaOwner           = sentinel(CodeInvalidAtaOwner)
)

// ErrAccountNotFound is returned by queries for an account that has never
// been credited.
var ErrAccountNotFound = errors.New("ledger: account not found")

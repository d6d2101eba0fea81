package domain

import "errors"

// Error kinds returned by the ledger. Callers match them with errors.Is; the
// wrapped message carries the detail.
var (
	ErrValidation         = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("concurrent modification, retry")
)

// Unauthorized reasons. Each one matches ErrUnauthorized as well.
var (
	ErrWrongPIN        = &reasonError{kind: ErrUnauthorized, msg: "incorrect PIN"}
	ErrAccountInactive = &reasonError{kind: ErrUnauthorized, msg: "account is not active"}
	ErrPINLocked       = &reasonError{kind: ErrUnauthorized, msg: "too many incorrect PIN attempts"}
)

type reasonError struct {
	kind error
	msg  string
}

func (e *reasonError) Error() string { return e.msg }

func (e *reasonError) Unwrap() error { return e.kind }

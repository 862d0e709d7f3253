package core

import "errors"

// Validation errors. These are always returned before any write happens, so
// a caller seeing one of them can assume zero side effects.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidType          = errors.New("invalid movement type")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidFrequency     = errors.New("invalid frequency")
	ErrInvalidDueDay        = errors.New("invalid due day")
	ErrEmptyDescription     = errors.New("empty description")
	ErrMissingDate          = errors.New("missing transaction date")
	ErrMissingCategory      = errors.New("missing category")
	ErrMissingAccounts      = errors.New("source and destination accounts are required")
	ErrSameAccount          = errors.New("source and destination accounts must differ")
	ErrCategoryTypeMismatch = errors.New("category type does not match movement type")
)

// Lookup errors. A reference that is absent, soft-deleted, or owned by a
// different tenant yields the same error so that tenant boundaries cannot be
// probed by error shape.
var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrAccountNotFound       = errors.New("account not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrBillNotFound          = errors.New("recurring bill not found")
)

// ErrInsufficientBalance is returned when a transfer would overdraw the
// source account.
var ErrInsufficientBalance = errors.New("insufficient balance")

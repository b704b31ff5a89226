package domain

import "errors"

var (
	ErrLedgerNotFound       = errors.New("ledger not found")
	ErrLedgerExists         = errors.New("ledger already initialized")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrReservationCommitted = errors.New("reservation already committed")
	ErrReservationReleased  = errors.New("reservation already released")
	ErrValidation           = errors.New("validation failed")
)

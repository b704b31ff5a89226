package service

import (
	"errors"

	"github.com/stockledger/inventory-service/internal/domain"
)

type InitializeInventoryCommand struct {
	Sku             string `json:"sku" validate:"required"`
	WarehouseID     string `json:"warehouse_id" validate:"required"`
	InitialQuantity int64  `json:"initial_quantity" validate:"gte=0"`
}

type ReserveStockCommand struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	OrderID       string `json:"order_id" validate:"required"`
	Sku           string `json:"sku" validate:"required"`
	WarehouseID   string `json:"warehouse_id" validate:"required"`
	Quantity      int64  `json:"quantity" validate:"gt=0"`
}

type CommitReservationCommand struct {
	OrderID       string `json:"order_id"`
	ReservationID string `json:"reservation_id" validate:"required"`
}

type ReleaseReservationCommand struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	Reason        string `json:"reason"`
}

type ReceiveStockCommand struct {
	LedgerID string `json:"ledger_id" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
	Source   string `json:"source"`
}

type RestockCommand struct {
	LedgerID string `json:"ledger_id" validate:"required"`
	ReturnID string `json:"return_id" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

// IsTerminal reports whether the error is a final rejection of the command.
// Terminal failures must not be retried or redelivered; the caller (the order
// saga) is expected to compensate instead.
func IsTerminal(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrLedgerNotFound) ||
		errors.Is(err, domain.ErrLedgerExists) ||
		errors.Is(err, domain.ErrReservationNotFound) ||
		errors.Is(err, domain.ErrReservationCommitted) ||
		errors.Is(err, domain.ErrReservationReleased)
}

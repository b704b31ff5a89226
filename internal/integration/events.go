package integration

import "time"

// Inbound events, consumed from the order and admin topics.

type LineItem struct {
	Sku      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

type OrderPlacedEvent struct {
	OrderID   string     `json:"order_id"`
	LineItems []LineItem `json:"line_items"`
}

type ReservationCommitRequestedEvent struct {
	OrderID       string `json:"order_id"`
	ReservationID string `json:"reservation_id"`
}

type ReservationReleaseRequestedEvent struct {
	ReservationID string `json:"reservation_id"`
	Reason        string `json:"reason"`
}

// Outbound events, published on the inventory topic via the outbox.

type ReservationConfirmedEvent struct {
	OrderID       string    `json:"order_id"`
	LedgerID      string    `json:"ledger_id"`
	ReservationID string    `json:"reservation_id"`
	Sku           string    `json:"sku"`
	WarehouseID   string    `json:"warehouse_id"`
	Quantity      int64     `json:"quantity"`
	Timestamp     time.Time `json:"timestamp"`
}

type ReservationCommittedEvent struct {
	OrderID       string    `json:"order_id"`
	LedgerID      string    `json:"ledger_id"`
	ReservationID string    `json:"reservation_id"`
	Sku           string    `json:"sku"`
	WarehouseID   string    `json:"warehouse_id"`
	Quantity      int64     `json:"quantity"`
	Timestamp     time.Time `json:"timestamp"`
}

type ReservationReleasedEvent struct {
	OrderID       string    `json:"order_id"`
	LedgerID      string    `json:"ledger_id"`
	ReservationID string    `json:"reservation_id"`
	Sku           string    `json:"sku"`
	WarehouseID   string    `json:"warehouse_id"`
	Quantity      int64     `json:"quantity"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReservationFailed lets the order saga compensate sibling reservations
// without waiting on a confirmation that will never arrive.
type ReservationFailedEvent struct {
	OrderID     string    `json:"order_id"`
	Sku         string    `json:"sku"`
	WarehouseID string    `json:"warehouse_id"`
	Quantity    int64     `json:"quantity"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

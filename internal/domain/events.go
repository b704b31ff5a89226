package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventInventoryInitialized = "InventoryInitialized"
	EventStockReserved        = "StockReserved"
	EventReservationCommitted = "ReservationCommitted"
	EventReservationReleased  = "ReservationReleased"
	EventStockReceived        = "StockReceived"
	EventStockRestocked       = "StockRestocked"
)

// Event pairs a domain event payload with its type name, the shape the
// event store persists and the publisher translates from.
type Event struct {
	Type    string
	Payload any
}

type InventoryInitialized struct {
	LedgerID      string    `json:"ledger_id"`
	Sku           string    `json:"sku"`
	WarehouseID   string    `json:"warehouse_id"`
	Quantity      int64     `json:"quantity"`
	InitializedAt time.Time `json:"initialized_at"`
}

type StockReserved struct {
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id"`
	Quantity      int64     `json:"quantity"`
	ReservedAt    time.Time `json:"reserved_at"`
}

type ReservationCommitted struct {
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id"`
	Quantity      int64     `json:"quantity"`
	CommittedAt   time.Time `json:"committed_at"`
}

type ReservationReleased struct {
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id"`
	Quantity      int64     `json:"quantity"`
	Reason        string    `json:"reason"`
	ReleasedAt    time.Time `json:"released_at"`
}

type StockReceived struct {
	Quantity   int64     `json:"quantity"`
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
}

type StockRestocked struct {
	ReturnID    string    `json:"return_id"`
	Quantity    int64     `json:"quantity"`
	RestockedAt time.Time `json:"restocked_at"`
}

// UnmarshalEvent decodes a persisted payload back into its typed domain event.
func UnmarshalEvent(eventType string, payload []byte) (any, error) {
	switch eventType {
	case EventInventoryInitialized:
		var e InventoryInitialized
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventStockReserved:
		var e StockReserved
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventReservationCommitted:
		var e ReservationCommitted
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventReservationReleased:
		var e ReservationReleased
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventStockReceived:
		var e StockReceived
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventStockRestocked:
		var e StockRestocked
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type in stream: %s", eventType)
	}
}

package integration

import (
	"github.com/stockledger/inventory-service/internal/domain"
)

// Translate maps a persisted domain event onto the integration event external
// consumers are contracted to receive. It is a pure step: administrative
// events (initialize, receive, restock) produce no outbound message, every
// reservation lifecycle event produces exactly one.
func Translate(ledger domain.Ledger, event domain.Event) (name string, payload any, ok bool) {
	switch e := event.Payload.(type) {
	case domain.StockReserved:
		return "ReservationConfirmed", ReservationConfirmedEvent{
			OrderID:       e.OrderID,
			LedgerID:      string(ledger.ID),
			ReservationID: e.ReservationID,
			Sku:           ledger.Sku,
			WarehouseID:   ledger.WarehouseID,
			Quantity:      e.Quantity,
			Timestamp:     e.ReservedAt,
		}, true
	case domain.ReservationCommitted:
		return "ReservationCommitted", ReservationCommittedEvent{
			OrderID:       e.OrderID,
			LedgerID:      string(ledger.ID),
			ReservationID: e.ReservationID,
			Sku:           ledger.Sku,
			WarehouseID:   ledger.WarehouseID,
			Quantity:      e.Quantity,
			Timestamp:     e.CommittedAt,
		}, true
	case domain.ReservationReleased:
		return "ReservationReleased", ReservationReleasedEvent{
			OrderID:       e.OrderID,
			LedgerID:      string(ledger.ID),
			ReservationID: e.ReservationID,
			Sku:           ledger.Sku,
			WarehouseID:   ledger.WarehouseID,
			Quantity:      e.Quantity,
			Reason:        e.Reason,
			Timestamp:     e.ReleasedAt,
		}, true
	default:
		return "", nil, false
	}
}

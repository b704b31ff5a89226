package integration

import (
	"testing"
	"time"

	"github.com/stockledger/inventory-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger() domain.Ledger {
	return domain.Ledger{
		ID:          domain.NewLedgerID("SKU-1", "WH-1"),
		Sku:         "SKU-1",
		WarehouseID: "WH-1",
	}
}

func TestTranslate_StockReserved(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ledger := testLedger()

	name, payload, ok := Translate(ledger, domain.Event{
		Type: domain.EventStockReserved,
		Payload: domain.StockReserved{
			ReservationID: "r1",
			OrderID:       "order-1",
			Quantity:      7,
			ReservedAt:    at,
		},
	})
	require.True(t, ok)
	assert.Equal(t, "ReservationConfirmed", name)
	assert.Equal(t, ReservationConfirmedEvent{
		OrderID:       "order-1",
		LedgerID:      string(ledger.ID),
		ReservationID: "r1",
		Sku:           "SKU-1",
		WarehouseID:   "WH-1",
		Quantity:      7,
		Timestamp:     at,
	}, payload)
}

func TestTranslate_ReservationCommitted(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	name, payload, ok := Translate(testLedger(), domain.Event{
		Type: domain.EventReservationCommitted,
		Payload: domain.ReservationCommitted{
			ReservationID: "r1",
			OrderID:       "order-1",
			Quantity:      7,
			CommittedAt:   at,
		},
	})
	require.True(t, ok)
	assert.Equal(t, "ReservationCommitted", name)

	event, ok := payload.(ReservationCommittedEvent)
	require.True(t, ok)
	assert.EqualValues(t, 7, event.Quantity)
	assert.Equal(t, at, event.Timestamp)
}

func TestTranslate_ReservationReleased(t *testing.T) {
	name, payload, ok := Translate(testLedger(), domain.Event{
		Type: domain.EventReservationReleased,
		Payload: domain.ReservationReleased{
			ReservationID: "r1",
			OrderID:       "order-1",
			Quantity:      7,
			Reason:        "payment failed",
			ReleasedAt:    time.Now(),
		},
	})
	require.True(t, ok)
	assert.Equal(t, "ReservationReleased", name)

	event, ok := payload.(ReservationReleasedEvent)
	require.True(t, ok)
	assert.Equal(t, "payment failed", event.Reason)
}

// Administrative events stay internal.
func TestTranslate_AdministrativeEventsProduceNothing(t *testing.T) {
	ledger := testLedger()

	for _, event := range []domain.Event{
		{Type: domain.EventInventoryInitialized, Payload: domain.InventoryInitialized{}},
		{Type: domain.EventStockReceived, Payload: domain.StockReceived{}},
		{Type: domain.EventStockRestocked, Payload: domain.StockRestocked{}},
	} {
		_, _, ok := Translate(ledger, event)
		assert.False(t, ok, event.Type)
	}
}

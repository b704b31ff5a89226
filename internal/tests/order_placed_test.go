package tests

import (
	"github.com/stockledger/inventory-service/internal/domain"
	"github.com/stockledger/inventory-service/internal/integration"
)

func (s *IntegrationTestSuite) TestOrderPlaced_DuplicateSkuLinesCollapse() {
	s.initializeLedger("SKU-A", 10)

	err := s.InventoryService.HandleOrderPlaced(s.Ctx, &integration.OrderPlacedEvent{
		OrderID: "order-1",
		LineItems: []integration.LineItem{
			{Sku: "SKU-A", Quantity: 2},
			{Sku: "SKU-A", Quantity: 3},
		},
	})
	s.Require().NoError(err)

	levels, err := s.InventoryService.GetStockLevels(s.Ctx, "SKU-A", testWarehouse)
	s.Require().NoError(err)
	s.Require().EqualValues(5, levels.Available)
	s.Require().EqualValues(5, levels.Reserved)

	// one hold for the summed quantity, under the derived id
	var reservationID string
	err = s.DbPool.QueryRow(s.Ctx,
		`SELECT reservation_id FROM reservation_index WHERE order_id = $1`, "order-1").
		Scan(&reservationID)
	s.Require().NoError(err)
	s.Require().Equal(domain.NewReservationID("order-1", "SKU-A"), reservationID)
}

func (s *IntegrationTestSuite) TestOrderPlaced_RedeliveryReservesNothingNew() {
	s.initializeLedger("SKU-A", 10)

	event := &integration.OrderPlacedEvent{
		OrderID:   "order-1",
		LineItems: []integration.LineItem{{Sku: "SKU-A", Quantity: 4}},
	}

	s.Require().NoError(s.InventoryService.HandleOrderPlaced(s.Ctx, event))
	s.Require().NoError(s.InventoryService.HandleOrderPlaced(s.Ctx, event))

	levels, err := s.InventoryService.GetStockLevels(s.Ctx, "SKU-A", testWarehouse)
	s.Require().NoError(err)
	s.Require().EqualValues(4, levels.Reserved)

	ledgerID := domain.NewLedgerID("SKU-A", testWarehouse)
	s.Require().EqualValues(2, s.countStreamEvents(ledgerID.StreamID()))
}

func (s *IntegrationTestSuite) TestOrderPlaced_FailedSkuDoesNotAbortSiblings() {
	s.initializeLedger("SKU-A", 10)
	s.initializeLedger("SKU-B", 1)

	err := s.InventoryService.HandleOrderPlaced(s.Ctx, &integration.OrderPlacedEvent{
		OrderID: "order-1",
		LineItems: []integration.LineItem{
			{Sku: "SKU-A", Quantity: 2},
			{Sku: "SKU-B", Quantity: 5},
		},
	})
	s.Require().NoError(err)

	aLevels, err := s.InventoryService.GetStockLevels(s.Ctx, "SKU-A", testWarehouse)
	s.Require().NoError(err)
	s.Require().EqualValues(2, aLevels.Reserved)

	bLevels, err := s.InventoryService.GetStockLevels(s.Ctx, "SKU-B", testWarehouse)
	s.Require().NoError(err)
	s.Require().EqualValues(0, bLevels.Reserved)

	bLedgerID := domain.NewLedgerID("SKU-B", testWarehouse)
	s.Require().Equal([]string{"ReservationFailed"}, s.outboxEventTypes(string(bLedgerID)))
	s.requirePublished(string(bLedgerID))
}

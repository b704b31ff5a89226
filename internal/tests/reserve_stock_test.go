package tests

import (
	"github.com/stockledger/inventory-service/internal/domain"
	"github.com/stockledger/inventory-service/internal/service"
)

func (s *IntegrationTestSuite) TestReserveStock_Success() {
	s.initializeLedger("SKU-1", 10)

	levels := s.reserve("r1", "order-1", "SKU-1", 7)
	s.Require().EqualValues(3, levels.Available)
	s.Require().EqualValues(7, levels.Reserved)

	ledgerID := domain.NewLedgerID("SKU-1", testWarehouse)
	s.Require().EqualValues(2, s.countStreamEvents(ledgerID.StreamID()))

	s.Require().Equal([]string{"ReservationConfirmed"}, s.outboxEventTypes(string(ledgerID)))
	s.requirePublished(string(ledgerID))
}

func (s *IntegrationTestSuite) TestReserveStock_InsufficientStockLeavesNoTrace() {
	s.initializeLedger("SKU-1", 5)

	_, err := s.InventoryService.ReserveStock(s.Ctx, &service.ReserveStockCommand{
		ReservationID: "r1",
		OrderID:       "order-1",
		Sku:           "SKU-1",
		WarehouseID:   testWarehouse,
		Quantity:      6,
	})
	s.Require().ErrorIs(err, domain.ErrInsufficientStock)

	ledgerID := domain.NewLedgerID("SKU-1", testWarehouse)
	s.Require().EqualValues(1, s.countStreamEvents(ledgerID.StreamID()))
	s.Require().Empty(s.outboxEventTypes(string(ledgerID)))
}

func (s *IntegrationTestSuite) TestReserveStock_RedeliveredCommandIsNoop() {
	s.initializeLedger("SKU-1", 10)

	s.reserve("r1", "order-1", "SKU-1", 4)
	levels := s.reserve("r1", "order-1", "SKU-1", 4)

	s.Require().EqualValues(6, levels.Available)
	s.Require().EqualValues(4, levels.Reserved)

	ledgerID := domain.NewLedgerID("SKU-1", testWarehouse)
	s.Require().EqualValues(2, s.countStreamEvents(ledgerID.StreamID()))
	s.Require().Equal([]string{"ReservationConfirmed"}, s.outboxEventTypes(string(ledgerID)))
}

func (s *IntegrationTestSuite) TestInitializeInventory_DuplicatePairRejected() {
	s.initializeLedger("SKU-1", 10)

	_, err := s.InventoryService.InitializeInventory(s.Ctx, &service.InitializeInventoryCommand{
		Sku:             "SKU-1",
		WarehouseID:     testWarehouse,
		InitialQuantity: 99,
	})
	s.Require().ErrorIs(err, domain.ErrLedgerExists)

	levels, err := s.InventoryService.GetStockLevels(s.Ctx, "SKU-1", testWarehouse)
	s.Require().NoError(err)
	s.Require().EqualValues(10, levels.Available)
}

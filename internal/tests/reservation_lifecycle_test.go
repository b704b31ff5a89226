package tests

import (
	"github.com/stockledger/inventory-service/internal/domain"
	"github.com/stockledger/inventory-service/internal/service"
)

// The full two-phase walk: 10 on hand, r1 holds 7, the 5-unit r2 is rejected,
// committing r1 keeps available at 3, and the committed hold cannot be
// released.
func (s *IntegrationTestSuite) TestReservationLifecycle() {
	s.initializeLedger("SKU-1", 10)

	levels := s.reserve("r1", "order-1", "SKU-1", 7)
	s.Require().EqualValues(3, levels.Available)

	_, err := s.InventoryService.ReserveStock(s.Ctx, &service.ReserveStockCommand{
		ReservationID: "r2",
		OrderID:       "order-2",
		Sku:           "SKU-1",
		WarehouseID:   testWarehouse,
		Quantity:      5,
	})
	s.Require().ErrorIs(err, domain.ErrInsufficientStock)

	levels, err = s.InventoryService.CommitReservation(s.Ctx, &service.CommitReservationCommand{
		ReservationID: "r1",
	})
	s.Require().NoError(err)
	s.Require().EqualValues(3, levels.Available)
	s.Require().EqualValues(0, levels.Reserved)
	s.Require().EqualValues(7, levels.Committed)

	_, err = s.InventoryService.ReleaseReservation(s.Ctx, &service.ReleaseReservationCommand{
		ReservationID: "r1",
		Reason:        "customer cancelled",
	})
	s.Require().ErrorIs(err, domain.ErrReservationCommitted)

	ledgerID := domain.NewLedgerID("SKU-1", testWarehouse)
	s.Require().Equal(
		[]string{"ReservationConfirmed", "ReservationCommitted"},
		s.outboxEventTypes(string(ledgerID)),
	)
	s.requirePublished(string(ledgerID))
}

// Commit routes through the reservation index by id alone, so a command that
// names neither SKU nor warehouse still finds its stream.
func (s *IntegrationTestSuite) TestCommitReservation_RoutedByIndex() {
	s.initializeLedger("SKU-1", 10)
	s.reserve("r1", "order-1", "SKU-1", 4)

	levels, err := s.InventoryService.CommitReservation(s.Ctx, &service.CommitReservationCommand{
		ReservationID: "r1",
	})
	s.Require().NoError(err)
	s.Require().EqualValues(4, levels.Committed)
}

func (s *IntegrationTestSuite) TestCommitReservation_RepeatAppendsNothing() {
	s.initializeLedger("SKU-1", 10)
	s.reserve("r1", "order-1", "SKU-1", 4)

	_, err := s.InventoryService.CommitReservation(s.Ctx, &service.CommitReservationCommand{ReservationID: "r1"})
	s.Require().NoError(err)

	_, err = s.InventoryService.CommitReservation(s.Ctx, &service.CommitReservationCommand{ReservationID: "r1"})
	s.Require().NoError(err)

	ledgerID := domain.NewLedgerID("SKU-1", testWarehouse)
	s.Require().EqualValues(3, s.countStreamEvents(ledgerID.StreamID()))
}

func (s *IntegrationTestSuite) TestReleaseReservation_RestoresStock() {
	s.initializeLedger("SKU-1", 10)
	s.reserve("r1", "order-1", "SKU-1", 7)

	levels, err := s.InventoryService.ReleaseReservation(s.Ctx, &service.ReleaseReservationCommand{
		ReservationID: "r1",
		Reason:        "payment failed",
	})
	s.Require().NoError(err)
	s.Require().EqualValues(10, levels.Available)
	s.Require().EqualValues(0, levels.Reserved)

	// the released hold is spent, the same id can never be reused
	_, err = s.InventoryService.CommitReservation(s.Ctx, &service.CommitReservationCommand{ReservationID: "r1"})
	s.Require().ErrorIs(err, domain.ErrReservationReleased)

	ledgerID := domain.NewLedgerID("SKU-1", testWarehouse)
	s.Require().Equal(
		[]string{"ReservationConfirmed", "ReservationReleased"},
		s.outboxEventTypes(string(ledgerID)),
	)
}

func (s *IntegrationTestSuite) TestCommitReservation_UnknownId() {
	_, err := s.InventoryService.CommitReservation(s.Ctx, &service.CommitReservationCommand{
		ReservationID: "never-reserved",
	})
	s.Require().ErrorIs(err, domain.ErrReservationNotFound)
}

func (s *IntegrationTestSuite) TestReceiveAndRestock() {
	levels := s.initializeLedger("SKU-1", 3)

	levels, err := s.InventoryService.ReceiveStock(s.Ctx, &service.ReceiveStockCommand{
		LedgerID: levels.LedgerID,
		Quantity: 5,
		Source:   "supplier-7",
	})
	s.Require().NoError(err)
	s.Require().EqualValues(8, levels.Available)

	levels, err = s.InventoryService.Restock(s.Ctx, &service.RestockCommand{
		LedgerID: levels.LedgerID,
		ReturnID: "return-9",
		Quantity: 2,
	})
	s.Require().NoError(err)
	s.Require().EqualValues(10, levels.Available)

	// administrative changes never cross the service boundary
	s.Require().Empty(s.outboxEventTypes(levels.LedgerID))
}

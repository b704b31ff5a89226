package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stockledger/inventory-service/internal/domain"
	"github.com/stockledger/inventory-service/internal/integration"
	"github.com/stockledger/inventory-service/pkg/tracelog"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// WarehouseResolver picks the warehouse a SKU is reserved from. The routing
// seam exists for per-SKU or per-region policies later; today a single static
// default is used.
type WarehouseResolver interface {
	Resolve(ctx context.Context, sku string) (string, error)
}

type StaticWarehouseResolver struct {
	WarehouseID string
}

func (r StaticWarehouseResolver) Resolve(_ context.Context, _ string) (string, error) {
	return r.WarehouseID, nil
}

// HandleOrderPlaced fans an order out into one reservation per distinct SKU.
// Line items for the same SKU are summed into a single reservation, and each
// reservation id is derived from (order, sku), so redeliveries of the same
// order event resolve to the same reservations instead of new holds.
//
// Reservations are independent: a terminal failure on one SKU does not abort
// its siblings, it is published as a ReservationFailed message for the order
// saga to compensate. Transient failures are returned so the message is
// redelivered.
func (s *inventoryService) HandleOrderPlaced(ctx context.Context, event *integration.OrderPlacedEvent) error {
	ctx, span := s.tracer.Start(ctx, "InventoryService.HandleOrderPlaced")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", event.OrderID),
		attribute.Int("line_items", len(event.LineItems)),
	)

	if event.OrderID == "" {
		return fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}
	if len(event.LineItems) == 0 {
		return fmt.Errorf("%w: order has no line items", domain.ErrValidation)
	}

	for _, item := range groupLineItems(event.LineItems) {
		warehouseID, err := s.warehouses.Resolve(ctx, item.Sku)
		if err != nil {
			return fmt.Errorf("failed to resolve warehouse for %s: %w", item.Sku, err)
		}

		cmd := &ReserveStockCommand{
			ReservationID: domain.NewReservationID(event.OrderID, item.Sku),
			OrderID:       event.OrderID,
			Sku:           item.Sku,
			WarehouseID:   warehouseID,
			Quantity:      item.Quantity,
		}

		if _, err := s.ReserveStock(ctx, cmd); err != nil {
			if !IsTerminal(err) {
				return err
			}

			tracelog.Warn(
				ctx,
				s.logger,
				"Reservation rejected, notifying saga",
				zap.String("order_id", event.OrderID),
				zap.String("sku", item.Sku),
				zap.Error(err),
			)

			if pubErr := s.publishReservationFailed(ctx, event.OrderID, item.Sku, warehouseID, item.Quantity, err); pubErr != nil {
				return pubErr
			}
		}
	}

	return nil
}

// groupLineItems sums duplicate SKUs, preserving first-appearance order.
func groupLineItems(items []integration.LineItem) []integration.LineItem {
	totals := make(map[string]int64, len(items))
	order := make([]string, 0, len(items))

	for _, item := range items {
		if _, ok := totals[item.Sku]; !ok {
			order = append(order, item.Sku)
		}
		totals[item.Sku] += item.Quantity
	}

	grouped := make([]integration.LineItem, 0, len(order))
	for _, sku := range order {
		grouped = append(grouped, integration.LineItem{Sku: sku, Quantity: totals[sku]})
	}

	return grouped
}

func (s *inventoryService) publishReservationFailed(ctx context.Context, orderID, sku, warehouseID string, quantity int64, cause error) error {
	message := integration.ReservationFailedEvent{
		OrderID:     orderID,
		Sku:         sku,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		Reason:      cause.Error(),
		Timestamp:   time.Now().UTC(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(cleanupCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			tracelog.Warn(
				cleanupCtx,
				s.logger,
				"Error rolling back transaction",
				zap.Error(err),
			)
		}
	}()

	aggregateID := string(domain.NewLedgerID(sku, warehouseID))
	if err := s.saveOutbox(ctx, tx, aggregateID, "ReservationFailed", message); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

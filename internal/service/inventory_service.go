package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/stockledger/inventory-service/internal/domain"
	"github.com/stockledger/inventory-service/internal/eventstore"
	"github.com/stockledger/inventory-service/internal/integration"
	"github.com/stockledger/inventory-service/internal/repository"
	outboxDomain "github.com/stockledger/inventory-service/pkg/outbox/domain"
	"github.com/stockledger/inventory-service/pkg/outbox/worker"
	"github.com/stockledger/inventory-service/pkg/tracelog"
	"github.com/stockledger/inventory-service/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// maxConflictRetries bounds reload-and-retry on optimistic concurrency
// conflicts before the command is reported as a transient failure.
const maxConflictRetries = 3

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type InventoryService interface {
	InitializeInventory(ctx context.Context, cmd *InitializeInventoryCommand) (*domain.StockLevels, error)
	ReserveStock(ctx context.Context, cmd *ReserveStockCommand) (*domain.StockLevels, error)
	CommitReservation(ctx context.Context, cmd *CommitReservationCommand) (*domain.StockLevels, error)
	ReleaseReservation(ctx context.Context, cmd *ReleaseReservationCommand) (*domain.StockLevels, error)
	ReceiveStock(ctx context.Context, cmd *ReceiveStockCommand) (*domain.StockLevels, error)
	Restock(ctx context.Context, cmd *RestockCommand) (*domain.StockLevels, error)
	HandleOrderPlaced(ctx context.Context, event *integration.OrderPlacedEvent) error
	GetStockLevels(ctx context.Context, sku, warehouseID string) (*domain.StockLevels, error)
}

type inventoryService struct {
	pool       TxBeginner
	store      eventstore.Store
	index      repository.ReservationIndex
	outboxRepo worker.OutboxRepository
	warehouses WarehouseResolver
	logger     *zap.Logger
	topic      string
	tracer     trace.Tracer
	validate   *validator.Validate
}

func NewInventoryService(
	pool TxBeginner,
	store eventstore.Store,
	index repository.ReservationIndex,
	outboxRepo worker.OutboxRepository,
	warehouses WarehouseResolver,
	logger *zap.Logger,
	topic string,
) InventoryService {
	return &inventoryService{
		pool:       pool,
		store:      store,
		index:      index,
		outboxRepo: outboxRepo,
		warehouses: warehouses,
		logger:     logger,
		topic:      topic,
		tracer:     otel.Tracer("inventory_service"),
		validate:   validator.New(),
	}
}

func (s *inventoryService) InitializeInventory(ctx context.Context, cmd *InitializeInventoryCommand) (*domain.StockLevels, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.InitializeInventory")
	defer span.End()

	span.SetAttributes(
		attribute.String("sku", cmd.Sku),
		attribute.String("warehouse_id", cmd.WarehouseID),
		attribute.Int64("initial_quantity", cmd.InitialQuantity),
	)

	if err := s.validateCommand(cmd); err != nil {
		return nil, err
	}

	streamID := domain.NewLedgerID(cmd.Sku, cmd.WarehouseID).StreamID()

	_, found, err := s.loadLedger(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrLedgerExists, cmd.Sku, cmd.WarehouseID)
	}

	ledger, event, err := domain.NewLedger(cmd.Sku, cmd.WarehouseID, cmd.InitialQuantity, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, ledger, &event, nil); err != nil {
		if errors.Is(err, eventstore.ErrVersionConflict) {
			// Lost the race against another initializer of the same pair.
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrLedgerExists, cmd.Sku, cmd.WarehouseID)
		}

		tracelog.Error(
			ctx,
			s.logger,
			"Failed to initialize inventory",
			zap.String("sku", cmd.Sku),
			zap.String("warehouse_id", cmd.WarehouseID),
			zap.Error(err),
		)

		return nil, err
	}

	tracelog.Info(
		ctx,
		s.logger,
		"Inventory initialized",
		zap.String("ledger_id", string(ledger.ID)),
		zap.String("sku", cmd.Sku),
		zap.Int64("quantity", cmd.InitialQuantity),
	)

	levels := ledger.Levels()
	return &levels, nil
}

func (s *inventoryService) ReserveStock(ctx context.Context, cmd *ReserveStockCommand) (*domain.StockLevels, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ReserveStock")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", cmd.ReservationID),
		attribute.String("order_id", cmd.OrderID),
		attribute.String("sku", cmd.Sku),
		attribute.Int64("quantity", cmd.Quantity),
	)

	if err := s.validateCommand(cmd); err != nil {
		return nil, err
	}

	ledgerID := domain.NewLedgerID(cmd.Sku, cmd.WarehouseID)

	var levels *domain.StockLevels
	err := s.retryOnConflict(ctx, func() error {
		ledger, found, err := s.loadLedger(ctx, ledgerID.StreamID())
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %s/%s", domain.ErrLedgerNotFound, cmd.Sku, cmd.WarehouseID)
		}

		next, event, err := ledger.Reserve(cmd.ReservationID, cmd.OrderID, cmd.Quantity, time.Now().UTC())
		if err != nil {
			return err
		}

		if event == nil {
			// Redelivered reserve for an id this ledger already knows.
			lv := next.Levels()
			levels = &lv
			return nil
		}

		ref := &repository.ReservationRef{
			ReservationID: cmd.ReservationID,
			StreamID:      ledgerID.StreamID(),
			Sku:           cmd.Sku,
			WarehouseID:   cmd.WarehouseID,
			OrderID:       cmd.OrderID,
		}

		if err := s.persist(ctx, next, event, ref); err != nil {
			return err
		}

		lv := next.Levels()
		levels = &lv
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			tracelog.Warn(
				ctx,
				s.logger,
				"Insufficient stock for reservation",
				zap.String("reservation_id", cmd.ReservationID),
				zap.String("sku", cmd.Sku),
				zap.Int64("quantity", cmd.Quantity),
			)
		} else {
			tracelog.Error(
				ctx,
				s.logger,
				"Failed to reserve stock",
				zap.String("reservation_id", cmd.ReservationID),
				zap.Error(err),
			)
		}

		return nil, err
	}

	return levels, nil
}

func (s *inventoryService) CommitReservation(ctx context.Context, cmd *CommitReservationCommand) (*domain.StockLevels, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.CommitReservation")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", cmd.ReservationID),
		attribute.String("order_id", cmd.OrderID),
	)

	if err := s.validateCommand(cmd); err != nil {
		return nil, err
	}

	ref, err := s.findRef(ctx, cmd.ReservationID)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, ref.StreamID, func(ledger domain.Ledger) (domain.Ledger, *domain.Event, error) {
		return ledger.CommitReservation(cmd.ReservationID, time.Now().UTC())
	})
}

func (s *inventoryService) ReleaseReservation(ctx context.Context, cmd *ReleaseReservationCommand) (*domain.StockLevels, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ReleaseReservation")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", cmd.ReservationID),
		attribute.String("reason", cmd.Reason),
	)

	if err := s.validateCommand(cmd); err != nil {
		return nil, err
	}

	ref, err := s.findRef(ctx, cmd.ReservationID)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, ref.StreamID, func(ledger domain.Ledger) (domain.Ledger, *domain.Event, error) {
		return ledger.ReleaseReservation(cmd.ReservationID, cmd.Reason, time.Now().UTC())
	})
}

func (s *inventoryService) ReceiveStock(ctx context.Context, cmd *ReceiveStockCommand) (*domain.StockLevels, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ReceiveStock")
	defer span.End()

	span.SetAttributes(
		attribute.String("ledger_id", cmd.LedgerID),
		attribute.Int64("quantity", cmd.Quantity),
		attribute.String("source", cmd.Source),
	)

	if err := s.validateCommand(cmd); err != nil {
		return nil, err
	}

	return s.transition(ctx, domain.LedgerID(cmd.LedgerID).StreamID(), func(ledger domain.Ledger) (domain.Ledger, *domain.Event, error) {
		return ledger.ReceiveStock(cmd.Quantity, cmd.Source, time.Now().UTC())
	})
}

func (s *inventoryService) Restock(ctx context.Context, cmd *RestockCommand) (*domain.StockLevels, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Restock")
	defer span.End()

	span.SetAttributes(
		attribute.String("ledger_id", cmd.LedgerID),
		attribute.String("return_id", cmd.ReturnID),
		attribute.Int64("quantity", cmd.Quantity),
	)

	if err := s.validateCommand(cmd); err != nil {
		return nil, err
	}

	return s.transition(ctx, domain.LedgerID(cmd.LedgerID).StreamID(), func(ledger domain.Ledger) (domain.Ledger, *domain.Event, error) {
		return ledger.Restock(cmd.ReturnID, cmd.Quantity, time.Now().UTC())
	})
}

func (s *inventoryService) GetStockLevels(ctx context.Context, sku, warehouseID string) (*domain.StockLevels, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.GetStockLevels")
	defer span.End()

	span.SetAttributes(
		attribute.String("sku", sku),
		attribute.String("warehouse_id", warehouseID),
	)

	ledger, found, err := s.loadLedger(ctx, domain.NewLedgerID(sku, warehouseID).StreamID())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrLedgerNotFound, sku, warehouseID)
	}

	levels := ledger.Levels()
	return &levels, nil
}

// transition runs one pure ledger operation with conflict retries: load,
// apply, persist. A nil event from the transition is an idempotent no-op and
// nothing is appended.
func (s *inventoryService) transition(
	ctx context.Context,
	streamID string,
	op func(domain.Ledger) (domain.Ledger, *domain.Event, error),
) (*domain.StockLevels, error) {
	var levels *domain.StockLevels
	err := s.retryOnConflict(ctx, func() error {
		ledger, found, err := s.loadLedger(ctx, streamID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: stream %s", domain.ErrLedgerNotFound, streamID)
		}

		next, event, err := op(ledger)
		if err != nil {
			return err
		}

		if event != nil {
			if err := s.persist(ctx, next, event, nil); err != nil {
				return err
			}
		}

		lv := next.Levels()
		levels = &lv
		return nil
	})
	if err != nil {
		tracelog.Warn(
			ctx,
			s.logger,
			"Ledger transition rejected",
			zap.String("stream_id", streamID),
			zap.Error(err),
		)

		return nil, err
	}

	return levels, nil
}

func (s *inventoryService) retryOnConflict(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = fn()
		if !errors.Is(err, eventstore.ErrVersionConflict) {
			return err
		}

		tracelog.Warn(
			ctx,
			s.logger,
			"Version conflict, reloading ledger",
			zap.Int("attempt", attempt),
		)
	}

	return fmt.Errorf("append retries exhausted: %w", err)
}

func (s *inventoryService) loadLedger(ctx context.Context, streamID string) (domain.Ledger, bool, error) {
	records, err := s.store.ReadStream(ctx, streamID)
	if err != nil {
		return domain.Ledger{}, false, err
	}
	if len(records) == 0 {
		return domain.Ledger{}, false, nil
	}

	var ledger domain.Ledger
	for _, rec := range records {
		payload, err := domain.UnmarshalEvent(rec.EventType, rec.Payload)
		if err != nil {
			return domain.Ledger{}, false, fmt.Errorf("corrupt stream %s: %w", streamID, err)
		}
		if err := ledger.Apply(payload); err != nil {
			return domain.Ledger{}, false, fmt.Errorf("corrupt stream %s: %w", streamID, err)
		}
	}

	return ledger, true, nil
}

func (s *inventoryService) findRef(ctx context.Context, reservationID string) (*repository.ReservationRef, error) {
	ref, err := s.index.Find(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrRefNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrReservationNotFound, reservationID)
		}
		return nil, err
	}
	return ref, nil
}

// persist appends the event, records the reservation reference when one was
// created, and hands the translated integration message to the outbox, all in
// one transaction. ledger is the post-transition value, so the event occupies
// version ledger.Version.
func (s *inventoryService) persist(ctx context.Context, ledger domain.Ledger, event *domain.Event, ref *repository.ReservationRef) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
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

	err = s.store.Append(ctx, tx, ledger.ID.StreamID(), ledger.Version-1, []eventstore.EventData{
		{EventType: event.Type, Payload: payload},
	})
	if err != nil {
		return err
	}

	if ref != nil {
		if err := s.index.Save(ctx, tx, ref); err != nil {
			return err
		}
	}

	if name, message, ok := integration.Translate(ledger, *event); ok {
		if err := s.saveOutbox(ctx, tx, string(ledger.ID), name, message); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *inventoryService) saveOutbox(ctx context.Context, tx pgx.Tx, aggregateID, name string, payload any) error {
	wrapper := map[string]any{
		"event":   name,
		"payload": payload,
	}

	wrapperBytes, err := json.Marshal(wrapper)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	outboxEvent := &outboxDomain.OutboxEvent{
		AggregateType: "InventoryLedger",
		AggregateID:   aggregateID,
		EventType:     name,
		Payload:       wrapperBytes,
		Topic:         s.topic,
	}

	return s.outboxRepo.SaveOutboxEvent(ctx, tx, outboxEvent)
}

func (s *inventoryService) validateCommand(cmd any) error {
	if err := s.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, utils.FormatValidationError(err))
	}
	return nil
}

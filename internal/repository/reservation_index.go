package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stockledger/inventory-service/pkg/tracelog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ReservationRef maps a reservation id to the ledger stream that owns it, so
// commit and release commands can locate their ledger without knowing the
// SKU+warehouse pair.
type ReservationRef struct {
	ReservationID string
	StreamID      string
	Sku           string
	WarehouseID   string
	OrderID       string
}

type ReservationIndex interface {
	Save(ctx context.Context, tx pgx.Tx, ref *ReservationRef) error
	Find(ctx context.Context, reservationID string) (*ReservationRef, error)
}

type reservationIndex struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewReservationIndex(pool *pgxpool.Pool, logger *zap.Logger) ReservationIndex {
	return &reservationIndex{
		pool:   pool,
		tracer: otel.Tracer("repository/reservation_index"),
		logger: logger,
	}
}

func (r *reservationIndex) Save(ctx context.Context, tx pgx.Tx, ref *ReservationRef) error {
	ctx, span := r.tracer.Start(ctx, "ReservationIndex.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", ref.ReservationID),
		attribute.String("stream_id", ref.StreamID),
	)

	// Redelivered reserves write the same row; the conflict clause keeps the
	// insert idempotent.
	query := `
		INSERT INTO reservation_index (reservation_id, stream_id, sku, warehouse_id, order_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (reservation_id) DO NOTHING
	`

	_, err := tx.Exec(
		ctx,
		query,
		ref.ReservationID,
		ref.StreamID,
		ref.Sku,
		ref.WarehouseID,
		ref.OrderID,
	)
	if err != nil {
		span.RecordError(err)

		tracelog.Error(
			ctx,
			r.logger,
			"Failed to insert reservation reference",
			zap.String("reservation_id", ref.ReservationID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert reservation reference: %w", err)
	}

	return nil
}

func (r *reservationIndex) Find(ctx context.Context, reservationID string) (*ReservationRef, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationIndex.Find")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", reservationID),
	)

	query := `
		SELECT reservation_id, stream_id, sku, warehouse_id, order_id
		FROM reservation_index
		WHERE reservation_id = $1;
	`

	var ref ReservationRef
	err := r.pool.QueryRow(ctx, query, reservationID).Scan(
		&ref.ReservationID,
		&ref.StreamID,
		&ref.Sku,
		&ref.WarehouseID,
		&ref.OrderID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefNotFound
		}

		span.RecordError(err)

		tracelog.Error(
			ctx,
			r.logger,
			"Failed to query reservation reference",
			zap.String("reservation_id", reservationID),
			zap.Error(err),
		)

		return nil, err
	}

	return &ref, nil
}

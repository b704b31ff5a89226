package eventstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stockledger/inventory-service/pkg/tracelog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type postgresStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) Store {
	return &postgresStore{
		pool:   pool,
		tracer: otel.Tracer("eventstore/postgres"),
		logger: logger,
	}
}

func (s *postgresStore) ReadStream(ctx context.Context, streamID string) ([]StoredEvent, error) {
	ctx, span := s.tracer.Start(ctx, "EventStore.ReadStream")
	defer span.End()

	span.SetAttributes(
		attribute.String("stream_id", streamID),
	)

	query := `
		SELECT stream_id, version, event_type, payload, created_at
		FROM ledger_events
		WHERE stream_id = $1
		ORDER BY version ASC;
	`

	rows, err := s.pool.Query(ctx, query, streamID)
	if err != nil {
		span.RecordError(err)

		tracelog.Error(
			ctx,
			s.logger,
			"Failed to query ledger events",
			zap.String("stream_id", streamID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var e StoredEvent
		if err := rows.Scan(
			&e.StreamID,
			&e.Version,
			&e.EventType,
			&e.Payload,
			&e.CreatedAt,
		); err != nil {
			span.RecordError(err)

			tracelog.Error(
				ctx,
				s.logger,
				"Failed to scan ledger event",
				zap.Error(err),
			)

			return nil, fmt.Errorf("error scanning event: %w", err)
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		tracelog.Error(
			ctx,
			s.logger,
			"Rows error",
			zap.Error(err),
		)

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("result_count", len(events)),
	)

	return events, nil
}

func (s *postgresStore) Append(ctx context.Context, tx pgx.Tx, streamID string, expectedVersion int64, events []EventData) error {
	ctx, span := s.tracer.Start(ctx, "EventStore.Append")
	defer span.End()

	span.SetAttributes(
		attribute.String("stream_id", streamID),
		attribute.Int64("expected_version", expectedVersion),
		attribute.Int("event_count", len(events)),
	)

	query := `
		INSERT INTO ledger_events (stream_id, version, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`

	// The (stream_id, version) primary key is the concurrency control: a
	// competing writer that appended first owns our version numbers, and the
	// insert surfaces a unique violation.
	for i, event := range events {
		_, err := tx.Exec(
			ctx,
			query,
			streamID,
			expectedVersion+int64(i)+1,
			event.EventType,
			event.Payload,
		)
		if err != nil {
			var pgError *pgconn.PgError
			if errors.As(err, &pgError) && pgError.Code == "23505" {
				tracelog.Warn(
					ctx,
					s.logger,
					"Stream version conflict on append",
					zap.String("stream_id", streamID),
					zap.Int64("expected_version", expectedVersion),
				)

				return ErrVersionConflict
			}

			span.RecordError(err)

			tracelog.Error(
				ctx,
				s.logger,
				"Failed to append ledger event",
				zap.String("stream_id", streamID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)

			return fmt.Errorf("failed to append event: %w", err)
		}
	}

	return nil
}

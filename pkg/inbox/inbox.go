package inbox

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stockledger/inventory-service/pkg/tracelog"
	"go.uber.org/zap"
)

// ProcessOnce runs action at most once per message id. The id is claimed via
// an insert into processed_events; a unique violation means a redelivery of a
// message that already went through, and the action is skipped.
func ProcessOnce(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger *zap.Logger,
	messageID string,
	action func(ctx context.Context) error,
) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(cleanupCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			tracelog.Error(
				cleanupCtx,
				logger,
				"Error rolling back inbox transaction",
				zap.Error(err),
			)
		}
	}()

	query := `
		INSERT INTO processed_events (event_id)
		VALUES ($1)
	`

	_, err = tx.Exec(ctx, query, messageID)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			tracelog.Info(
				ctx,
				logger,
				"Message already processed, skipping",
				zap.String("message_id", messageID),
			)

			return nil
		}

		return err
	}

	if err := action(ctx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

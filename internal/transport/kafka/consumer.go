package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stockledger/inventory-service/internal/integration"
	"github.com/stockledger/inventory-service/internal/service"
	"github.com/stockledger/inventory-service/pkg/config"
	"github.com/stockledger/inventory-service/pkg/inbox"
	"github.com/stockledger/inventory-service/pkg/kafka"
	"github.com/stockledger/inventory-service/pkg/tracelog"
	"go.uber.org/zap"
)

type Consumer struct {
	service service.InventoryService
	pool    *pgxpool.Pool
	logger  *zap.Logger
	cfg     config.Kafka
}

func NewConsumer(service service.InventoryService, pool *pgxpool.Pool, logger *zap.Logger, cfg config.Kafka) *Consumer {
	return &Consumer{
		service: service,
		pool:    pool,
		logger:  logger,
		cfg:     cfg,
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	consumerGroup := kafka.NewConsumerGroup(
		c.cfg.Brokers,
		c.cfg.GroupID,
		[]string{c.cfg.OrderTopic, c.cfg.ReservationTopic, c.cfg.AdminTopic},
		c.processMessage,
		c.logger,
	)

	return consumerGroup.Run(ctx)
}

type eventWrapper struct {
	Event   string          `json:"event"`
	EventID json.Number     `json:"event_id"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	tracelog.Info(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
	)

	var wrapper eventWrapper
	if err := json.Unmarshal(msg.Value, &wrapper); err != nil {
		tracelog.Error(ctx, c.logger, "Error unmarshalling wrapper", zap.Error(err))
		return err
	}

	dispatch := func(ctx context.Context) error {
		return c.dispatch(ctx, &wrapper)
	}

	// The channel is at-least-once. Messages carrying an id are additionally
	// claimed through the inbox; unmarked ones rely on the handlers' own
	// idempotence.
	if wrapper.EventID != "" {
		messageID := fmt.Sprintf("%s:%s", msg.Topic, wrapper.EventID.String())
		return inbox.ProcessOnce(ctx, c.pool, c.logger, messageID, dispatch)
	}

	return dispatch(ctx)
}

func (c *Consumer) dispatch(ctx context.Context, wrapper *eventWrapper) error {
	switch wrapper.Event {
	case "OrderPlaced":
		var event integration.OrderPlacedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			tracelog.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return err
		}

		if err := c.service.HandleOrderPlaced(ctx, &event); err != nil {
			return c.reject(ctx, "Failed to handle order placed", err)
		}
	case "ReservationCommitRequested":
		var event integration.ReservationCommitRequestedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			tracelog.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return err
		}

		_, err := c.service.CommitReservation(ctx, &service.CommitReservationCommand{
			OrderID:       event.OrderID,
			ReservationID: event.ReservationID,
		})
		if err != nil {
			return c.reject(ctx, "Failed to commit reservation", err)
		}
	case "ReservationReleaseRequested":
		var event integration.ReservationReleaseRequestedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			tracelog.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return err
		}

		_, err := c.service.ReleaseReservation(ctx, &service.ReleaseReservationCommand{
			ReservationID: event.ReservationID,
			Reason:        event.Reason,
		})
		if err != nil {
			return c.reject(ctx, "Failed to release reservation", err)
		}
	case "InitializeInventory":
		var cmd service.InitializeInventoryCommand
		if err := json.Unmarshal(wrapper.Payload, &cmd); err != nil {
			tracelog.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return err
		}

		if _, err := c.service.InitializeInventory(ctx, &cmd); err != nil {
			return c.reject(ctx, "Failed to initialize inventory", err)
		}
	case "ReceiveStock":
		var cmd service.ReceiveStockCommand
		if err := json.Unmarshal(wrapper.Payload, &cmd); err != nil {
			tracelog.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return err
		}

		if _, err := c.service.ReceiveStock(ctx, &cmd); err != nil {
			return c.reject(ctx, "Failed to receive stock", err)
		}
	case "Restock":
		var cmd service.RestockCommand
		if err := json.Unmarshal(wrapper.Payload, &cmd); err != nil {
			tracelog.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return err
		}

		if _, err := c.service.Restock(ctx, &cmd); err != nil {
			return c.reject(ctx, "Failed to restock", err)
		}
	default:
		tracelog.Warn(ctx, c.logger, "Ignored event type", zap.String("event_type", wrapper.Event))
	}

	return nil
}

// reject drops terminal failures after logging them: redelivering a command
// the domain already refused can never succeed. Transient failures propagate
// so the message is retried.
func (c *Consumer) reject(ctx context.Context, msg string, err error) error {
	if service.IsTerminal(err) {
		tracelog.Warn(ctx, c.logger, msg, zap.Error(err))
		return nil
	}

	tracelog.Error(ctx, c.logger, msg, zap.Error(err))
	return err
}

package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stockledger/inventory-service/internal/domain"
	"github.com/stockledger/inventory-service/internal/integration"
	"github.com/stockledger/inventory-service/internal/service"
	"github.com/stockledger/inventory-service/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingService captures dispatched calls and returns a scripted error.
type recordingService struct {
	calls []string
	err   error

	lastOrder   *integration.OrderPlacedEvent
	lastCommit  *service.CommitReservationCommand
	lastRelease *service.ReleaseReservationCommand
	lastInit    *service.InitializeInventoryCommand
	lastReceive *service.ReceiveStockCommand
	lastRestock *service.RestockCommand
}

func (r *recordingService) InitializeInventory(_ context.Context, cmd *service.InitializeInventoryCommand) (*domain.StockLevels, error) {
	r.calls = append(r.calls, "InitializeInventory")
	r.lastInit = cmd
	return &domain.StockLevels{}, r.err
}

func (r *recordingService) ReserveStock(_ context.Context, _ *service.ReserveStockCommand) (*domain.StockLevels, error) {
	r.calls = append(r.calls, "ReserveStock")
	return &domain.StockLevels{}, r.err
}

func (r *recordingService) CommitReservation(_ context.Context, cmd *service.CommitReservationCommand) (*domain.StockLevels, error) {
	r.calls = append(r.calls, "CommitReservation")
	r.lastCommit = cmd
	return &domain.StockLevels{}, r.err
}

func (r *recordingService) ReleaseReservation(_ context.Context, cmd *service.ReleaseReservationCommand) (*domain.StockLevels, error) {
	r.calls = append(r.calls, "ReleaseReservation")
	r.lastRelease = cmd
	return &domain.StockLevels{}, r.err
}

func (r *recordingService) ReceiveStock(_ context.Context, cmd *service.ReceiveStockCommand) (*domain.StockLevels, error) {
	r.calls = append(r.calls, "ReceiveStock")
	r.lastReceive = cmd
	return &domain.StockLevels{}, r.err
}

func (r *recordingService) Restock(_ context.Context, cmd *service.RestockCommand) (*domain.StockLevels, error) {
	r.calls = append(r.calls, "Restock")
	r.lastRestock = cmd
	return &domain.StockLevels{}, r.err
}

func (r *recordingService) HandleOrderPlaced(_ context.Context, event *integration.OrderPlacedEvent) error {
	r.calls = append(r.calls, "HandleOrderPlaced")
	r.lastOrder = event
	return r.err
}

func (r *recordingService) GetStockLevels(_ context.Context, _, _ string) (*domain.StockLevels, error) {
	r.calls = append(r.calls, "GetStockLevels")
	return &domain.StockLevels{}, r.err
}

func newTestConsumer(svc service.InventoryService) *Consumer {
	return NewConsumer(svc, nil, zap.NewNop(), config.Kafka{})
}

func message(topic, value string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: topic, Value: []byte(value)}
}

func TestProcessMessage_OrderPlaced(t *testing.T) {
	svc := &recordingService{}
	consumer := newTestConsumer(svc)

	err := consumer.processMessage(context.Background(), message("orders", `{
		"event": "OrderPlaced",
		"payload": {
			"order_id": "order-1",
			"line_items": [{"sku": "SKU-A", "quantity": 2}]
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"HandleOrderPlaced"}, svc.calls)
	require.NotNil(t, svc.lastOrder)
	assert.Equal(t, "order-1", svc.lastOrder.OrderID)
	require.Len(t, svc.lastOrder.LineItems, 1)
	assert.Equal(t, "SKU-A", svc.lastOrder.LineItems[0].Sku)
}

func TestProcessMessage_ReservationCommitRequested(t *testing.T) {
	svc := &recordingService{}
	consumer := newTestConsumer(svc)

	err := consumer.processMessage(context.Background(), message("reservations", `{
		"event": "ReservationCommitRequested",
		"payload": {"order_id": "order-1", "reservation_id": "r1"}
	}`))
	require.NoError(t, err)

	require.NotNil(t, svc.lastCommit)
	assert.Equal(t, "r1", svc.lastCommit.ReservationID)
	assert.Equal(t, "order-1", svc.lastCommit.OrderID)
}

func TestProcessMessage_ReservationReleaseRequested(t *testing.T) {
	svc := &recordingService{}
	consumer := newTestConsumer(svc)

	err := consumer.processMessage(context.Background(), message("reservations", `{
		"event": "ReservationReleaseRequested",
		"payload": {"reservation_id": "r1", "reason": "payment failed"}
	}`))
	require.NoError(t, err)

	require.NotNil(t, svc.lastRelease)
	assert.Equal(t, "r1", svc.lastRelease.ReservationID)
	assert.Equal(t, "payment failed", svc.lastRelease.Reason)
}

func TestProcessMessage_AdminCommands(t *testing.T) {
	svc := &recordingService{}
	consumer := newTestConsumer(svc)

	require.NoError(t, consumer.processMessage(context.Background(), message("inventory_admin", `{
		"event": "InitializeInventory",
		"payload": {"sku": "SKU-A", "warehouse_id": "WH-1", "initial_quantity": 10}
	}`)))
	require.NotNil(t, svc.lastInit)
	assert.EqualValues(t, 10, svc.lastInit.InitialQuantity)

	require.NoError(t, consumer.processMessage(context.Background(), message("inventory_admin", `{
		"event": "ReceiveStock",
		"payload": {"ledger_id": "lg-1", "quantity": 5, "source": "supplier-7"}
	}`)))
	require.NotNil(t, svc.lastReceive)
	assert.Equal(t, "supplier-7", svc.lastReceive.Source)

	require.NoError(t, consumer.processMessage(context.Background(), message("inventory_admin", `{
		"event": "Restock",
		"payload": {"ledger_id": "lg-1", "return_id": "return-9", "quantity": 2}
	}`)))
	require.NotNil(t, svc.lastRestock)
	assert.Equal(t, "return-9", svc.lastRestock.ReturnID)
}

func TestProcessMessage_UnknownEventIgnored(t *testing.T) {
	svc := &recordingService{}
	consumer := newTestConsumer(svc)

	err := consumer.processMessage(context.Background(), message("orders", `{
		"event": "SomethingElse",
		"payload": {}
	}`))
	require.NoError(t, err)
	assert.Empty(t, svc.calls)
}

func TestProcessMessage_MalformedJSON(t *testing.T) {
	svc := &recordingService{}
	consumer := newTestConsumer(svc)

	err := consumer.processMessage(context.Background(), message("orders", `{not json`))
	assert.Error(t, err)
	assert.Empty(t, svc.calls)
}

// Terminal domain rejections are dropped so the broker does not redeliver a
// command that can never succeed; transient failures propagate for retry.
func TestProcessMessage_TerminalErrorDropped(t *testing.T) {
	svc := &recordingService{err: fmt.Errorf("wrapped: %w", domain.ErrInsufficientStock)}
	consumer := newTestConsumer(svc)

	err := consumer.processMessage(context.Background(), message("reservations", `{
		"event": "ReservationCommitRequested",
		"payload": {"reservation_id": "r1"}
	}`))
	assert.NoError(t, err)
}

func TestProcessMessage_TransientErrorPropagates(t *testing.T) {
	svc := &recordingService{err: errors.New("connection refused")}
	consumer := newTestConsumer(svc)

	err := consumer.processMessage(context.Background(), message("reservations", `{
		"event": "ReservationCommitRequested",
		"payload": {"reservation_id": "r1"}
	}`))
	assert.Error(t, err)
}

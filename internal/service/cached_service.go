package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stockledger/inventory-service/internal/domain"
	"github.com/stockledger/inventory-service/internal/integration"
)

// cachedInventoryService caches stock-level reads in Redis and drops the
// cached entry whenever a command touches the ledger. Entries carry a TTL, so
// writes that bypass this decorator age out instead of lingering.
type cachedInventoryService struct {
	next        InventoryService
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewCachedInventoryService(next InventoryService, redisClient *redis.Client, cacheTTL time.Duration) InventoryService {
	return &cachedInventoryService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

func stockKey(sku, warehouseID string) string {
	return fmt.Sprintf("stock:%s:%s", sku, warehouseID)
}

func (s *cachedInventoryService) GetStockLevels(ctx context.Context, sku, warehouseID string) (*domain.StockLevels, error) {
	key := stockKey(sku, warehouseID)

	val, err := s.redisClient.Get(ctx, key).Result()
	if err == nil {
		var levels domain.StockLevels
		if err := json.Unmarshal([]byte(val), &levels); err == nil {
			return &levels, nil
		}
	}

	levels, err := s.next.GetStockLevels(ctx, sku, warehouseID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(levels); err == nil {
		s.redisClient.Set(ctx, key, data, s.cacheTTL)
	}

	return levels, nil
}

func (s *cachedInventoryService) InitializeInventory(ctx context.Context, cmd *InitializeInventoryCommand) (*domain.StockLevels, error) {
	return s.invalidating(ctx, func() (*domain.StockLevels, error) {
		return s.next.InitializeInventory(ctx, cmd)
	})
}

func (s *cachedInventoryService) ReserveStock(ctx context.Context, cmd *ReserveStockCommand) (*domain.StockLevels, error) {
	return s.invalidating(ctx, func() (*domain.StockLevels, error) {
		return s.next.ReserveStock(ctx, cmd)
	})
}

func (s *cachedInventoryService) CommitReservation(ctx context.Context, cmd *CommitReservationCommand) (*domain.StockLevels, error) {
	return s.invalidating(ctx, func() (*domain.StockLevels, error) {
		return s.next.CommitReservation(ctx, cmd)
	})
}

func (s *cachedInventoryService) ReleaseReservation(ctx context.Context, cmd *ReleaseReservationCommand) (*domain.StockLevels, error) {
	return s.invalidating(ctx, func() (*domain.StockLevels, error) {
		return s.next.ReleaseReservation(ctx, cmd)
	})
}

func (s *cachedInventoryService) ReceiveStock(ctx context.Context, cmd *ReceiveStockCommand) (*domain.StockLevels, error) {
	return s.invalidating(ctx, func() (*domain.StockLevels, error) {
		return s.next.ReceiveStock(ctx, cmd)
	})
}

func (s *cachedInventoryService) Restock(ctx context.Context, cmd *RestockCommand) (*domain.StockLevels, error) {
	return s.invalidating(ctx, func() (*domain.StockLevels, error) {
		return s.next.Restock(ctx, cmd)
	})
}

func (s *cachedInventoryService) HandleOrderPlaced(ctx context.Context, event *integration.OrderPlacedEvent) error {
	return s.next.HandleOrderPlaced(ctx, event)
}

func (s *cachedInventoryService) invalidating(ctx context.Context, fn func() (*domain.StockLevels, error)) (*domain.StockLevels, error) {
	levels, err := fn()
	if err != nil {
		return nil, err
	}

	s.redisClient.Del(ctx, stockKey(levels.Sku, levels.WarehouseID))
	return levels, nil
}

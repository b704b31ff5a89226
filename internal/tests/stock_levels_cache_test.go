package tests

import (
	"github.com/redis/go-redis/v9"
	"github.com/stockledger/inventory-service/internal/service"
)

func (s *IntegrationTestSuite) TestStockLevels_CachedRead() {
	s.initializeLedger("SKU-1", 10)

	key := "stock:SKU-1:" + testWarehouse

	_, err := s.RedisClient.Get(s.Ctx, key).Result()
	s.Require().ErrorIs(err, redis.Nil)

	levels, err := s.CachedService.GetStockLevels(s.Ctx, "SKU-1", testWarehouse)
	s.Require().NoError(err)
	s.Require().EqualValues(10, levels.Available)

	// the read warmed the cache
	cached, err := s.RedisClient.Get(s.Ctx, key).Result()
	s.Require().NoError(err)
	s.Require().Contains(cached, `"available":10`)

	levels, err = s.CachedService.GetStockLevels(s.Ctx, "SKU-1", testWarehouse)
	s.Require().NoError(err)
	s.Require().EqualValues(10, levels.Available)
}

func (s *IntegrationTestSuite) TestStockLevels_WriteInvalidatesCache() {
	levels := s.initializeLedger("SKU-1", 10)

	_, err := s.CachedService.GetStockLevels(s.Ctx, "SKU-1", testWarehouse)
	s.Require().NoError(err)

	key := "stock:SKU-1:" + testWarehouse
	s.Require().NoError(s.RedisClient.Get(s.Ctx, key).Err())

	_, err = s.CachedService.ReceiveStock(s.Ctx, &service.ReceiveStockCommand{
		LedgerID: levels.LedgerID,
		Quantity: 5,
		Source:   "supplier-7",
	})
	s.Require().NoError(err)

	// entry dropped, the next read goes to the ledger
	_, err = s.RedisClient.Get(s.Ctx, key).Result()
	s.Require().ErrorIs(err, redis.Nil)

	fresh, err := s.CachedService.GetStockLevels(s.Ctx, "SKU-1", testWarehouse)
	s.Require().NoError(err)
	s.Require().EqualValues(15, fresh.Available)
}

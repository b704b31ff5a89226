package tests

import (
	"context"
	"errors"

	"github.com/stockledger/inventory-service/pkg/inbox"
	"go.uber.org/zap"
)

func (s *IntegrationTestSuite) TestInbox_DuplicateMessageRunsOnce() {
	logger := zap.NewNop()

	var runs int
	action := func(ctx context.Context) error {
		runs++
		return nil
	}

	s.Require().NoError(inbox.ProcessOnce(s.Ctx, s.DbPool, logger, "orders:42", action))
	s.Require().NoError(inbox.ProcessOnce(s.Ctx, s.DbPool, logger, "orders:42", action))

	s.Require().Equal(1, runs)
}

func (s *IntegrationTestSuite) TestInbox_FailedActionIsNotClaimed() {
	logger := zap.NewNop()

	boom := errors.New("downstream unavailable")

	err := inbox.ProcessOnce(s.Ctx, s.DbPool, logger, "orders:43", func(ctx context.Context) error {
		return boom
	})
	s.Require().ErrorIs(err, boom)

	// the claim rolled back with the action, a retry goes through
	var runs int
	s.Require().NoError(inbox.ProcessOnce(s.Ctx, s.DbPool, logger, "orders:43", func(ctx context.Context) error {
		runs++
		return nil
	}))
	s.Require().Equal(1, runs)
}

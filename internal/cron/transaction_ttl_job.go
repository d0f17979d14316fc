package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/cashlinkhq/cashlink-backend/internal/transactions"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
)

const defaultTransactionTTL = 24 * time.Hour

// TransactionTTLJob cancels pending transactions that nobody touched within
// the TTL, so abandoned deposits do not sit in the queue forever.
type TransactionTTLJob struct {
	repo transactions.Repository
	logg *logger.Logger
	ttl  time.Duration
}

func NewTransactionTTLJob(repo transactions.Repository, logg *logger.Logger, ttl time.Duration) (*TransactionTTLJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = defaultTransactionTTL
	}
	return &TransactionTTLJob{repo: repo, logg: logg, ttl: ttl}, nil
}

func (j *TransactionTTLJob) Name() string {
	return "transaction-ttl"
}

func (j *TransactionTTLJob) Run(ctx context.Context) error {
	canceled, err := j.repo.CancelStalePending(ctx, j.ttl)
	if err != nil {
		return fmt.Errorf("cancel stale pending transactions: %w", err)
	}
	if canceled > 0 {
		j.logg.Info(j.logg.WithField(ctx, "canceled", canceled), "expired stale pending transactions")
	}
	return nil
}

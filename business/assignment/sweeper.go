package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"
)

// Sweeper deactivates assignments past their expiry horizon. Rows are
// never deleted during the retention period.
type Sweeper struct {
	repo Repository
}

func NewSweeper(repo Repository) *Sweeper {
	return &Sweeper{repo: repo}
}

func (s *Sweeper) SweepExpired(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	n, err := s.repo.DeactivateExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("sweep expired assignments: %w", err)
	}

	if n > 0 {
		logger.Info("expired assignments swept", "deactivated", n)
	}
	ExpiredSweptTotal.Add(float64(n))

	return nil
}

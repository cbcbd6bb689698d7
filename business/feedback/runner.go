package feedback

import (
	"context"
	"fmt"

	"github.com/kyle-eros/eros-scheduling-sub002/business/assignment"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Runner schedules the periodic feedback fold and the nightly assignment
// expiry sweep.
type Runner struct {
	updater *Updater
	sweeper *assignment.Sweeper
	cron    *cron.Cron

	intervalHours int
	sweepHour     int
}

func NewRunner(updater *Updater, sweeper *assignment.Sweeper, intervalHours, sweepHour int) *Runner {
	if intervalHours <= 0 {
		intervalHours = 6
	}
	return &Runner{
		updater:       updater,
		sweeper:       sweeper,
		cron:          cron.New(),
		intervalHours: intervalHours,
		sweepHour:     sweepHour,
	}
}

func (r *Runner) Start() error {
	_, err := r.cron.AddFunc(fmt.Sprintf("@every %dh", r.intervalHours), func() {
		if _, err := r.updater.RunIfIdle(context.Background()); err != nil {
			logger.Error("feedback run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule feedback run: %w", err)
	}

	if r.sweeper != nil {
		_, err = r.cron.AddFunc(fmt.Sprintf("0 %d * * *", r.sweepHour), func() {
			if err := r.sweeper.SweepExpired(context.Background()); err != nil {
				logger.Error("assignment sweep failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule assignment sweep: %w", err)
		}
	}

	r.cron.Start()
	logger.Info("feedback runner started",
		"interval_hours", r.intervalHours,
		"sweep_hour", r.sweepHour,
	)

	return nil
}

// Stop halts the schedule and waits for any in-flight job.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// Package service contains the background jobs of the application
package service

import (
	"context"
	"time"

	"clipstash/clip-api/clip"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sweepTimeout bounds one whole sweep so a stuck store can't wedge the
// cron goroutine forever.
const sweepTimeout = 5 * time.Minute

// Reaper periodically deletes expired clips together with their objects.
// Object deletions are best-effort; the metadata record is removed
// unconditionally after they were attempted, so an orphaned object is an
// accepted degradation but orphaned metadata is not.
type Reaper struct {
	store  clip.Store
	broker clip.ObjectBroker
	cron   *cron.Cron
}

func NewReaper(store clip.Store, broker clip.ObjectBroker) *Reaper {
	return &Reaper{
		store:  store,
		broker: broker,
	}
}

// Start schedules recurring sweeps using a cron expression, hourly in the
// default configuration. An already-running sweep is skipped over rather
// than stacked.
func (r *Reaper) Start(schedule string) error {
	logger := cron.PrintfLogger(zap.NewStdLog(zap.L()))

	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))

	_, err := r.cron.AddFunc(schedule, func() {
		r.Sweep(context.Background())
	})
	if err != nil {
		return err
	}

	r.cron.Start()

	zap.L().Debug("Expiry reaper attached", zap.String("schedule", schedule))
	return nil
}

// Stop halts future sweeps. A sweep already in flight finishes on its own.
func (r *Reaper) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// Sweep deletes every clip expired as of now. A failure on one clip is
// logged and the sweep moves on to the next; the batch never aborts.
// Running two sweeps over the same clips is safe because both the object
// and the metadata deletes are idempotent.
func (r *Reaper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	expired, err := r.store.FindExpiredAsOf(ctx, time.Now())
	if err != nil {
		zap.L().Error("Failed to query expired clips", zap.Error(err))
		return
	}

	if len(expired) == 0 {
		return
	}

	var reaped int

	for _, c := range expired {
		for _, f := range c.Files {
			if err := r.broker.DeleteObject(ctx, f.ObjectKey); err != nil {
				zap.L().Warn("Failed to delete object of expired clip",
					zap.String("key", f.ObjectKey), zap.Error(err))
			}
		}

		// Metadata goes regardless of how the object deletions went
		if err := r.store.DeleteByID(ctx, c.ID); err != nil {
			zap.L().Error("Failed to delete expired clip",
				zap.String("name", c.Name), zap.Error(err))
			continue
		}

		reaped++
	}

	zap.L().Info("Expired clips cleaned up",
		zap.Int("expired", len(expired)), zap.Int("reaped", reaped))
}

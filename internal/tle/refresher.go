package tle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/star/scangeo/internal/metrics"
)

// ageInterval is how often the dataset age gauge is updated.
const ageInterval = 10 * time.Second

// Refresher reloads the dataset on a schedule and keeps the TLE gauges
// current.
type Refresher struct {
	loader    *Loader
	store     *Store
	interval  time.Duration
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewRefresher creates a Refresher. A non-positive interval disables
// periodic reloads; the age gauge is still maintained.
func NewRefresher(loader *Loader, store *Store, interval time.Duration, logger *slog.Logger) (*Refresher, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Refresher{
		loader:    loader,
		store:     store,
		interval:  interval,
		scheduler: scheduler,
		logger:    logger.With("component", "tle"),
	}, nil
}

// Refresh loads all sources once and swaps the result into the store. The
// previous dataset stays in place when loading fails.
func (r *Refresher) Refresh(ctx context.Context) error {
	ds, err := r.loader.Load(ctx)
	if err != nil {
		return err
	}
	r.store.Set(ds)
	metrics.SetTLESatellites(ds.Len())
	metrics.SetTLEAge(0)
	return nil
}

func (r *Refresher) refreshTask(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("TLE refresh failed, keeping previous dataset", "error", err)
	}
}

func (r *Refresher) ageTask(context.Context) {
	if age := r.store.AgeSeconds(); age >= 0 {
		metrics.SetTLEAge(age)
	}
}

// Start schedules the jobs. They stop when ctx is cancelled or Shutdown
// is called.
func (r *Refresher) Start(ctx context.Context) error {
	if r.interval > 0 {
		if err := r.createScheduledJob(ctx, r.interval, r.refreshTask, "tle_refresh_job"); err != nil {
			return err
		}
	}
	if err := r.createScheduledJob(ctx, ageInterval, r.ageTask, "tle_age_job"); err != nil {
		return err
	}
	r.scheduler.Start()
	return nil
}

// Shutdown stops the scheduler and waits for running jobs.
func (r *Refresher) Shutdown() error {
	return r.scheduler.Shutdown()
}

func (r *Refresher) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/jewelbill/internal/clock"
	metalratedomain "github.com/smallbiznis/jewelbill/internal/metalrate/domain"
	obsmetrics "github.com/smallbiznis/jewelbill/internal/observability/metrics"
	"github.com/smallbiznis/jewelbill/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobMetalRateRefresh = "metal_rate_refresh"

	lockKeyPrefix = "jewelbill:scheduler:"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	MetalRateSvc metalratedomain.Service
	Locker       *ratelimit.Locker            `optional:"true"`
	Metrics      *obsmetrics.SchedulerMetrics `optional:"true"`
	Config       Config                       `optional:"true"`
}

type Scheduler struct {
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	metalRateSvc metalratedomain.Service
	locker       *ratelimit.Locker
	metrics      *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.MetalRateSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:          p.Log.Named("scheduler"),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		metalRateSvc: p.MetalRateSvc,
		locker:       p.Locker,
		metrics:      p.Metrics,
	}, nil
}

// runJob executes fn under a deadline and, when a locker is configured, a
// cluster-wide lock so only one replica runs a job at a time.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	release, acquired, err := s.acquire(ctx, name)
	if err != nil {
		s.metrics.IncJobError(name, err)
		return fmt.Errorf("%s: lock: %w", name, err)
	}
	if !acquired {
		s.metrics.IncJobSkipped(name)
		s.logger(ctx).Debug("scheduler.job.skipped", zap.String("job", name))
		return nil
	}
	defer release()

	ctx, run := s.newJobRun(ctx, name)
	s.logJobStart(ctx, run)
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err = fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err != nil {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		s.metrics.MarkJobSuccess(name, s.clock.Now())
		return nil
	}

	// deadline is a soft failure; the next tick retries
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) acquire(ctx context.Context, name string) (func(), bool, error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	key := lockKeyPrefix + name
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, ratelimit.ErrLockNotConfigured) {
			return func() {}, true, nil
		}
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		if err := s.locker.Release(context.Background(), key, token); err != nil {
			s.log.Warn("release scheduler lock", zap.String("job", name), zap.Error(err))
		}
	}, true, nil
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobMetalRateRefresh, s.isJobEnabled(JobMetalRateRefresh), s.RefreshMetalRatesJob},
	}

	for _, job := range jobs {
		if parent.Err() != nil {
			return parent.Err()
		}
		if !job.Enabled {
			continue
		}
		if jobErr := s.runJob(parent, job.Name, s.cfg.JobTimeout, job.Run); jobErr != nil {
			err = errors.Join(err, jobErr)
		}
	}
	return err
}

// RunForever runs every job immediately and then once per RunInterval until
// ctx is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()

	for {
		if runLag := s.clock.Now().Sub(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// RefreshMetalRatesJob pulls a fresh quote and upserts every metal rate.
// Source outages are absorbed by the service's fallback table.
func (s *Scheduler) RefreshMetalRatesJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	result, err := s.metalRateSvc.Refresh(ctx)
	if err != nil {
		return err
	}
	run.AddProcessed(result.Updated)
	s.metrics.AddItemsUpserted(JobMetalRateRefresh, result.Updated)
	s.logger(ctx).Info("metal_rates.refreshed",
		zap.String("source", result.Source),
		zap.Int("updated", result.Updated),
		zap.Time("refreshed_at", result.RefreshedAt),
	)
	return nil
}

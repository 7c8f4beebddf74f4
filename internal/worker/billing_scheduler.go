package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/restokit/restaurant-billing/internal/config"
	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/observability"
	"github.com/restokit/restaurant-billing/internal/service"
)

const (
	jobOverdueSweep      = "overdue_sweep"
	jobMonthlyGeneration = "monthly_generation"
)

// OverdueSweeper flips past-due PENDING payments to OVERDUE.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// MonthlyGenerator materializes a month's recurring payments.
type MonthlyGenerator interface {
	RunForMonth(ctx context.Context, input service.GenerateMonthlyInput) (*service.GenerationResult, error)
}

// Locker guards a job run across instances. A nil Locker means a single instance.
type Locker interface {
	// AcquireLock returns the holder token when the lock was taken.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	// ReleaseLock frees key only while token still holds it.
	ReleaseLock(ctx context.Context, key, token string) error
}

// BillingScheduler runs the daily overdue sweep and the monthly generation.
type BillingScheduler struct {
	cfg       config.SchedulerConfig
	billing   config.BillingConfig
	sweeper   OverdueSweeper
	generator MonthlyGenerator
	locker    Locker
	metrics   *observability.Metrics
	logger    *zap.Logger
	clock     func() time.Time
	loc       *time.Location

	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
	lastSweepDate string
	lastGenMonth  string
}

// SchedulerDependencies bundles the scheduler's collaborators.
type SchedulerDependencies struct {
	Config    config.SchedulerConfig
	Billing   config.BillingConfig
	Sweeper   OverdueSweeper
	Generator MonthlyGenerator
	Locker    Locker
	Metrics   *observability.Metrics
	Logger    *zap.Logger
	Clock     func() time.Time
}

// NewBillingScheduler creates the scheduler.
func NewBillingScheduler(deps SchedulerDependencies) *BillingScheduler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &BillingScheduler{
		cfg:       deps.Config,
		billing:   deps.Billing,
		sweeper:   deps.Sweeper,
		generator: deps.Generator,
		locker:    deps.Locker,
		metrics:   deps.Metrics,
		logger:    logger,
		clock:     clock,
		loc:       deps.Billing.Location(),
	}
}

// Start launches the check loop. Calling Start twice is a no-op.
func (s *BillingScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("billing scheduler started",
		zap.Int("sweep_hour", s.cfg.SweepHour),
		zap.Bool("generation_enabled", s.cfg.GenerationEnabled),
		zap.Int("generation_day", s.cfg.GenerationDay),
		zap.Duration("check_interval", s.cfg.CheckInterval()))
	return nil
}

// Stop cancels the loop and waits for an in-flight run or ctx expiry.
func (s *BillingScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("billing scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *BillingScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CheckInterval())
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *BillingScheduler) tick(ctx context.Context) {
	now := s.clock().In(s.loc)
	s.maybeSweep(ctx, now)
	s.maybeGenerate(ctx, now)
}

func (s *BillingScheduler) maybeSweep(ctx context.Context, now time.Time) {
	today := now.Format(time.DateOnly)
	if now.Hour() < s.cfg.SweepHour || s.lastRun(&s.lastSweepDate) == today {
		return
	}

	key := "billing:sweep:" + today
	token, acquired, ok := s.acquire(ctx, jobOverdueSweep, key)
	if !ok {
		return
	}
	if !acquired {
		s.markRun(&s.lastSweepDate, today)
		s.metrics.JobRun(jobOverdueSweep, "skipped")
		return
	}

	count, err := s.sweeper.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error("scheduled overdue sweep failed", zap.Error(err))
		s.release(ctx, key, token)
		s.metrics.JobRun(jobOverdueSweep, "failure")
		return
	}
	s.markRun(&s.lastSweepDate, today)
	s.metrics.JobRun(jobOverdueSweep, "success")
	s.logger.Info("scheduled overdue sweep done", zap.String("date", today), zap.Int64("updated", count))
}

func (s *BillingScheduler) maybeGenerate(ctx context.Context, now time.Time) {
	if !s.cfg.GenerationEnabled || s.generator == nil {
		return
	}
	month := domain.ReferenceMonthOf(now).String()
	if now.Day() < s.cfg.GenerationDay || s.lastRun(&s.lastGenMonth) == month {
		return
	}
	if !s.billing.DefaultMonthlyAmount.IsPositive() {
		s.logger.Warn("monthly generation skipped: default amount not configured", zap.String("reference_month", month))
		s.markRun(&s.lastGenMonth, month)
		return
	}

	key := "billing:generate:" + month
	token, acquired, ok := s.acquire(ctx, jobMonthlyGeneration, key)
	if !ok {
		return
	}
	if !acquired {
		s.markRun(&s.lastGenMonth, month)
		s.metrics.JobRun(jobMonthlyGeneration, "skipped")
		return
	}

	result, err := s.generator.RunForMonth(ctx, service.GenerateMonthlyInput{
		ReferenceMonth: month,
		MonthlyAmount:  s.billing.DefaultMonthlyAmount,
		DueDay:         s.billing.DefaultDueDay,
	})
	if err != nil {
		s.logger.Error("scheduled monthly generation failed", zap.String("reference_month", month), zap.Error(err))
		s.release(ctx, key, token)
		s.metrics.JobRun(jobMonthlyGeneration, "failure")
		return
	}
	s.markRun(&s.lastGenMonth, month)
	s.metrics.JobRun(jobMonthlyGeneration, "success")
	s.logger.Info("scheduled monthly generation done",
		zap.String("reference_month", month),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", result.Skipped))
}

// acquire returns the lock token and whether this run holds the lock; ok is
// false when the lock backend failed.
func (s *BillingScheduler) acquire(ctx context.Context, job, key string) (token string, acquired, ok bool) {
	if s.locker == nil {
		return "", true, true
	}
	token, acquired, err := s.locker.AcquireLock(ctx, key, s.cfg.LockTTL())
	if err != nil {
		s.logger.Warn("scheduler lock unavailable", zap.String("job", job), zap.String("key", key), zap.Error(err))
		s.metrics.JobRun(job, "failure")
		return "", false, false
	}
	return token, acquired, true
}

func (s *BillingScheduler) release(ctx context.Context, key, token string) {
	if s.locker == nil {
		return
	}
	if err := s.locker.ReleaseLock(ctx, key, token); err != nil {
		s.logger.Warn("scheduler lock release failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *BillingScheduler) lastRun(field *string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *field
}

func (s *BillingScheduler) markRun(field *string, value string) {
	s.mu.Lock()
	*field = value
	s.mu.Unlock()
}

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hrms/backend/internal/application/billing"
	"go.uber.org/zap"
)

// CreditScheduler drives the daily credit deduction sweeps in the
// background. It wakes on a short poll interval and decides on each tick
// whether a sweep is due:
//
//   - once right after Start, so a process that was down over midnight
//     catches up immediately
//   - whenever the periodic interval has elapsed since the last sweep
//   - once per day inside the after-midnight window, so the new day's
//     deduction lands promptly even with no request traffic
//
// Sweeps themselves are idempotent, an extra run is just a cheap scan.
type CreditScheduler struct {
	service *billing.CreditService
	logger  *zap.Logger
	config  CreditSchedulerConfig

	now func() time.Time // Injectable for tests

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastSweep       time.Time
	lastMidnightDay time.Time
}

// CreditSchedulerConfig holds configuration for the credit scheduler
type CreditSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// ReferenceTimezone is the IANA timezone whose wall clock defines the
	// midnight window
	ReferenceTimezone string

	// PollInterval is how often the loop wakes up to evaluate triggers
	PollInterval time.Duration

	// HourlyInterval is the minimum gap between periodic sweeps
	HourlyInterval time.Duration

	// MidnightWindow is the width of the after-midnight trigger window
	MidnightWindow time.Duration

	// SweepTimeout is the maximum time for one sweep
	SweepTimeout time.Duration
}

// DefaultCreditSchedulerConfig returns default configuration
func DefaultCreditSchedulerConfig() CreditSchedulerConfig {
	return CreditSchedulerConfig{
		Enabled:           true,
		ReferenceTimezone: "Asia/Kolkata",
		PollInterval:      time.Minute,
		HourlyInterval:    time.Hour,
		MidnightWindow:    5 * time.Minute,
		SweepTimeout:      10 * time.Minute,
	}
}

// NewCreditScheduler creates a new credit scheduler
func NewCreditScheduler(
	service *billing.CreditService,
	logger *zap.Logger,
	config CreditSchedulerConfig,
) *CreditScheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.HourlyInterval <= 0 {
		config.HourlyInterval = time.Hour
	}
	if config.MidnightWindow <= 0 {
		config.MidnightWindow = 5 * time.Minute
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = 10 * time.Minute
	}

	return &CreditScheduler{
		service: service,
		logger:  logger,
		config:  config,
		now:     time.Now,
	}
}

// Start starts the scheduler loop
func (s *CreditScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Credit scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Credit scheduler started",
		zap.Duration("poll_interval", s.config.PollInterval),
		zap.Duration("hourly_interval", s.config.HourlyInterval),
		zap.Duration("midnight_window", s.config.MidnightWindow),
		zap.String("reference_timezone", s.config.ReferenceTimezone),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *CreditScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
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
		s.logger.Info("Credit scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Credit scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is running
func (s *CreditScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// TriggerImmediateSweep runs a sweep now, outside the regular triggers
func (s *CreditScheduler) TriggerImmediateSweep(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate credit sweep")

	go func() {
		defer s.wg.Done()
		s.executeSweep(ctx)
	}()

	return nil
}

// run is the scheduler loop. The startup sweep happens before the first
// tick so a freshly started process settles its backlog right away.
func (s *CreditScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.executeSweep(ctx)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Credit scheduler loop stopping")
			return
		case <-ticker.C:
			if s.sweepDue(s.referenceNow()) {
				s.executeSweep(ctx)
			}
		}
	}
}

// sweepDue decides whether a sweep should run at the given reference-local
// time. Called from the poll loop on every tick.
func (s *CreditScheduler) sweepDue(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.config.HourlyInterval {
		return true
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	inWindow := !now.Before(midnight) && now.Sub(midnight) < s.config.MidnightWindow
	if inWindow && !s.lastMidnightDay.Equal(midnight) {
		return true
	}

	return false
}

func (s *CreditScheduler) executeSweep(ctx context.Context) {
	now := s.referenceNow()

	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	summary, err := s.service.ProcessAllTenants(sweepCtx)

	s.mu.Lock()
	s.lastSweep = now
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if now.Sub(midnight) < s.config.MidnightWindow {
		s.lastMidnightDay = midnight
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Credit sweep failed", zap.Error(err))
		return
	}

	s.logger.Info("Credit sweep completed",
		zap.Int("processed", summary.Processed),
		zap.Int("deducted", summary.Deducted),
		zap.Int("deactivated", summary.Deactivated),
	)
}

// referenceNow returns the current time in the reference timezone
func (s *CreditScheduler) referenceNow() time.Time {
	loc, err := time.LoadLocation(s.config.ReferenceTimezone)
	if err != nil {
		loc = time.UTC
	}
	return s.now().In(loc)
}

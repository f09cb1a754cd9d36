package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hrms/backend/internal/domain/identity"
	"github.com/hrms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CheckCache is a short-lived guard that keeps request-path deduction checks
// from hammering the database. A marked tenant is skipped until the entry
// expires. Losing the cache is harmless: the deduction itself is idempotent
// per calendar day, the cache only saves the round trip.
type CheckCache interface {
	// MarkChecked records that the tenant was checked. Returns true if the
	// entry was newly created, false if the tenant was already marked.
	MarkChecked(ctx context.Context, tenantID uuid.UUID) (bool, error)

	// IsChecked reports whether the tenant currently has an unexpired mark.
	IsChecked(ctx context.Context, tenantID uuid.UUID) (bool, error)

	// Clear removes the mark for one tenant.
	Clear(ctx context.Context, tenantID uuid.UUID) error

	// ClearAll removes every mark.
	ClearAll(ctx context.Context) error
}

// DeductionRecorder receives deduction outcomes for metrics
type DeductionRecorder interface {
	RecordDeduction(outcome identity.DeductionOutcome)
	RecordRunDuration(d time.Duration)
}

// NoCreditsError is returned when an operation is refused because the
// tenant's balance is exhausted
type NoCreditsError struct {
	TenantID uuid.UUID
	Credits  int
}

// Error implements the error interface
func (e *NoCreditsError) Error() string {
	return "organization has no credits remaining"
}

// HTTPStatusCode returns 403 Forbidden
func (e *NoCreditsError) HTTPStatusCode() int {
	return http.StatusForbidden
}

// CreditStatusDTO describes one tenant's credit standing
type CreditStatusDTO struct {
	TenantID           uuid.UUID  `json:"tenant_id"`
	Code               string     `json:"code"`
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	Credits            int        `json:"credits"`
	LastCreditDeducted *time.Time `json:"last_credit_deducted,omitempty"`
	CheckedRecently    bool       `json:"checked_recently"`
	LowCredits         bool       `json:"low_credits"`
}

// RunSummary aggregates the outcome of a deduction sweep over all tenants
type RunSummary struct {
	StartedAt   time.Time `json:"started_at"`
	Duration    string    `json:"duration"`
	Processed   int       `json:"processed"`
	Deducted    int       `json:"deducted"`
	Skipped     int       `json:"skipped"` // Already deducted today
	Deactivated int       `json:"deactivated"`
	Failed      int       `json:"failed"`
}

// CreditServiceConfig contains configuration for CreditService
type CreditServiceConfig struct {
	ReferenceTimezone  string
	LowCreditThreshold int
}

// DefaultCreditServiceConfig returns default configuration
func DefaultCreditServiceConfig() CreditServiceConfig {
	return CreditServiceConfig{
		ReferenceTimezone:  "Asia/Kolkata",
		LowCreditThreshold: 5,
	}
}

// CreditService owns the daily credit lifecycle: per-request deduction
// checks, full sweeps for the scheduler, grants, and status reporting.
type CreditService struct {
	tenantRepo identity.TenantRepository
	checkCache CheckCache
	recorder   DeductionRecorder
	logger     *zap.Logger

	location           *time.Location
	lowCreditThreshold int
}

// NewCreditService creates a new CreditService. An unknown timezone name
// falls back to UTC rather than failing startup.
func NewCreditService(
	tenantRepo identity.TenantRepository,
	checkCache CheckCache,
	recorder DeductionRecorder,
	logger *zap.Logger,
	config CreditServiceConfig,
) *CreditService {
	loc, err := time.LoadLocation(config.ReferenceTimezone)
	if err != nil {
		logger.Warn("Unknown reference timezone, falling back to UTC",
			zap.String("timezone", config.ReferenceTimezone),
			zap.Error(err))
		loc = time.UTC
	}

	threshold := config.LowCreditThreshold
	if threshold <= 0 {
		threshold = DefaultCreditServiceConfig().LowCreditThreshold
	}

	return &CreditService{
		tenantRepo:         tenantRepo,
		checkCache:         checkCache,
		recorder:           recorder,
		logger:             logger,
		location:           loc,
		lowCreditThreshold: threshold,
	}
}

// Today returns the current calendar day in the reference timezone
func (s *CreditService) Today() time.Time {
	return identity.DateOf(time.Now().In(s.location))
}

// EnsureDailyDeduction guarantees that today's deduction has been attempted
// for the tenant. The check cache short-circuits repeat calls within its TTL;
// on a cache miss the deduction runs against the database, which is itself a
// no-op when today is already stamped. Cache failures degrade to a direct
// database check.
func (s *CreditService) EnsureDailyDeduction(ctx context.Context, tenantID uuid.UUID) (*identity.DeductionResult, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	fresh, err := s.checkCache.MarkChecked(ctx, tenantID)
	if err != nil {
		s.logger.Warn("Credit check cache unavailable, checking database directly",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		fresh = true
	}
	if !fresh {
		return nil, nil
	}

	return s.DeductTenant(ctx, tenantID)
}

// DeductTenant runs today's deduction for one tenant, bypassing the cache
func (s *CreditService) DeductTenant(ctx context.Context, tenantID uuid.UUID) (*identity.DeductionResult, error) {
	result, err := s.tenantRepo.DeductDailyCredit(ctx, tenantID, s.Today())
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Daily credit deduction failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.RecordDeduction(result.Outcome)
	}

	switch result.Outcome {
	case identity.DeductionApplied:
		s.logger.Info("Deducted daily credit",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("remaining", result.Credits))
		if result.Credits <= s.lowCreditThreshold {
			s.logger.Warn("Tenant is low on credits",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("remaining", result.Credits))
		}
	case identity.DeductionDeactivated:
		s.logger.Warn("Tenant exhausted its credits and was deactivated",
			zap.String("tenant_id", tenantID.String()))
	}

	return result, nil
}

// ProcessAllTenants sweeps every active tenant with a positive balance and
// applies today's deduction where it is still pending. Failures on one
// tenant never stop the sweep.
func (s *CreditService) ProcessAllTenants(ctx context.Context) (*RunSummary, error) {
	started := time.Now()
	today := s.Today()

	tenants, err := s.tenantRepo.FindActiveWithCredits(ctx)
	if err != nil {
		s.logger.Error("Failed to enumerate tenants for deduction sweep", zap.Error(err))
		return nil, err
	}

	summary := &RunSummary{StartedAt: started}

	for i := range tenants {
		tenant := &tenants[i]
		summary.Processed++

		if !tenant.NeedsDeduction(today) {
			summary.Skipped++
			continue
		}

		result, err := s.tenantRepo.DeductDailyCredit(ctx, tenant.ID, today)
		if err != nil {
			summary.Failed++
			s.logger.Error("Deduction failed for tenant, continuing sweep",
				zap.String("tenant_id", tenant.ID.String()),
				zap.String("code", tenant.Code),
				zap.Error(err))
			continue
		}

		if s.recorder != nil {
			s.recorder.RecordDeduction(result.Outcome)
		}

		switch result.Outcome {
		case identity.DeductionApplied:
			summary.Deducted++
			if result.Credits <= s.lowCreditThreshold {
				s.logger.Warn("Tenant is low on credits",
					zap.String("code", tenant.Code),
					zap.Int("remaining", result.Credits))
			}
		case identity.DeductionDeactivated:
			summary.Deducted++
			summary.Deactivated++
			s.logger.Warn("Tenant exhausted its credits and was deactivated",
				zap.String("code", tenant.Code))
		case identity.DeductionAlreadyApplied:
			summary.Skipped++
		}
	}

	elapsed := time.Since(started)
	summary.Duration = elapsed.String()
	if s.recorder != nil {
		s.recorder.RecordRunDuration(elapsed)
	}

	s.logger.Info("Deduction sweep finished",
		zap.Int("processed", summary.Processed),
		zap.Int("deducted", summary.Deducted),
		zap.Int("deactivated", summary.Deactivated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", elapsed))

	return summary, nil
}

// Grant adds credits to a tenant and clears its check cache entry so the
// next request observes the new balance immediately
func (s *CreditService) Grant(ctx context.Context, tenantID uuid.UUID, amount int) (*identity.GrantResult, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	result, err := s.tenantRepo.GrantCredits(ctx, tenantID, amount)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, err
	}

	if cacheErr := s.checkCache.Clear(ctx, tenantID); cacheErr != nil {
		s.logger.Warn("Failed to clear credit check cache after grant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(cacheErr))
	}

	s.logger.Info("Granted credits",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("amount", amount),
		zap.Int("balance", result.Credits),
		zap.Bool("reactivated", result.Reactivated))

	return result, nil
}

// StatusFor returns the credit standing of one tenant
func (s *CreditService) StatusFor(ctx context.Context, tenantID uuid.UUID) (*CreditStatusDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, err
	}

	return s.statusOf(ctx, tenant), nil
}

// StatusAll returns the credit standing of every tenant
func (s *CreditService) StatusAll(ctx context.Context) ([]CreditStatusDTO, error) {
	filter := shared.DefaultFilter()
	filter.PageSize = 1000
	tenants, err := s.tenantRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	statuses := make([]CreditStatusDTO, 0, len(tenants))
	for i := range tenants {
		statuses = append(statuses, *s.statusOf(ctx, &tenants[i]))
	}

	return statuses, nil
}

// ClearCheckCache drops the check mark for one tenant, or for all tenants
// when id is uuid.Nil
func (s *CreditService) ClearCheckCache(ctx context.Context, tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return s.checkCache.ClearAll(ctx)
	}
	return s.checkCache.Clear(ctx, tenantID)
}

func (s *CreditService) statusOf(ctx context.Context, tenant *identity.Tenant) *CreditStatusDTO {
	checked, err := s.checkCache.IsChecked(ctx, tenant.ID)
	if err != nil {
		checked = false
	}

	return &CreditStatusDTO{
		TenantID:           tenant.ID,
		Code:               tenant.Code,
		Name:               tenant.Name,
		Status:             string(tenant.Status),
		Credits:            tenant.Credits,
		LastCreditDeducted: tenant.LastCreditDeducted,
		CheckedRecently:    checked,
		LowCredits:         tenant.IsLowOnCredits(s.lowCreditThreshold),
	}
}

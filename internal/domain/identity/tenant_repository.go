package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hrms/backend/internal/domain/shared"
)

// DeductionResult reports the outcome of an atomic daily deduction
type DeductionResult struct {
	Outcome DeductionOutcome
	Credits int       // Balance after the attempt
	Day     time.Time // Calendar day the attempt was evaluated against
}

// Deducted returns true if the attempt actually removed a credit
func (r *DeductionResult) Deducted() bool {
	return r.Outcome == DeductionApplied || r.Outcome == DeductionDeactivated
}

// GrantResult reports the outcome of an atomic credit grant
type GrantResult struct {
	Credits     int  // Balance after the grant
	Reactivated bool // True when the grant brought an inactive tenant back
}

// TenantRepository defines the interface for tenant persistence
type TenantRepository interface {
	// FindByID finds a tenant by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByCode finds a tenant by its unique code
	FindByCode(ctx context.Context, code string) (*Tenant, error)

	// FindBySubdomain finds a tenant by its subdomain
	FindBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)

	// FindAll finds all tenants matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Tenant, error)

	// FindActiveWithCredits finds all active tenants with a positive balance.
	// This is the scheduler's enumeration set.
	FindActiveWithCredits(ctx context.Context) ([]Tenant, error)

	// Save creates or updates a tenant
	Save(ctx context.Context, tenant *Tenant) error

	// Count counts tenants matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByCode checks if a tenant with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// DeductDailyCredit applies Tenant.DeductDailyCredit for the given day as
	// one atomic unit: a single transaction holding an exclusive row lock on
	// the tenant for its whole duration, so concurrent callers serialize and
	// the losers observe the winner's LastCreditDeducted. When the balance
	// reaches zero the tenant's users are deactivated inside the same
	// transaction. Returns shared.ErrNotFound if the tenant does not exist.
	DeductDailyCredit(ctx context.Context, id uuid.UUID, today time.Time) (*DeductionResult, error)

	// GrantCredits adds credits under the same row lock discipline. When the
	// grant reactivates a zero-credit tenant, its users are reactivated
	// inside the same transaction.
	GrantCredits(ctx context.Context, id uuid.UUID, amount int) (*GrantResult, error)
}

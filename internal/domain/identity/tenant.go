package identity

import (
	"strings"
	"time"

	"github.com/hrms/backend/internal/domain/shared"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"  // Deactivated because the credit balance reached zero
	TenantStatusSuspended TenantStatus = "suspended" // Manually suspended by an operator
)

// TenantPlan represents the subscription plan of a tenant
type TenantPlan string

const (
	TenantPlanFree       TenantPlan = "free"
	TenantPlanPremium    TenantPlan = "premium"
	TenantPlanEnterprise TenantPlan = "enterprise"
)

// DeductionOutcome classifies the result of a daily credit deduction attempt
type DeductionOutcome string

const (
	// DeductionApplied means one credit was deducted and the tenant stays active
	DeductionApplied DeductionOutcome = "deducted"
	// DeductionAlreadyApplied means a deduction already happened today
	DeductionAlreadyApplied DeductionOutcome = "already_deducted_today"
	// DeductionNoCredits means the balance was already zero, nothing was deducted
	DeductionNoCredits DeductionOutcome = "no_credits_available"
	// DeductionDeactivated means the deduction emptied the balance and the
	// tenant (and its users) must be deactivated
	DeductionDeactivated DeductionOutcome = "tenant_deactivated"
)

// Tenant represents a billed organization in the multi-tenant system.
// It is the aggregate root for credit accounting: the balance, the active
// flag, and the last-deduction date all live on this record so that a single
// row lock serializes every mutation.
type Tenant struct {
	shared.BaseAggregateRoot
	Code      string       `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name      string       `gorm:"type:varchar(200);not null"`
	Subdomain string       `gorm:"type:varchar(100);uniqueIndex"`
	Domain    string       `gorm:"type:varchar(200)"` // Custom domain, if any
	Status    TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Plan      TenantPlan   `gorm:"type:varchar(20);not null;default:'free'"`

	// Credit accounting. LastCreditDeducted is a calendar date in the
	// reference timezone, deliberately separate from UpdatedAt so unrelated
	// edits never mask or duplicate a deduction.
	Credits            int        `gorm:"not null;default:0"`
	LastCreditDeducted *time.Time `gorm:"type:date"`

	MaxEmployees         int    `gorm:"not null;default:1000"`
	Timezone             string `gorm:"type:varchar(50);not null;default:'UTC'"`
	AutoCalculatePayroll bool   `gorm:"not null;default:false"`
	Notes                string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new tenant with an initial credit grant
func NewTenant(code, name string, initialCredits int) (*Tenant, error) {
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}
	if initialCredits < 0 {
		return nil, shared.NewDomainError("INVALID_CREDITS", "Initial credits cannot be negative")
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Status:            TenantStatusActive,
		Plan:              TenantPlanFree,
		Credits:           initialCredits,
		MaxEmployees:      1000,
		Timezone:          "UTC",
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// DeductDailyCredit applies the daily deduction for the given calendar day.
// today must be a date-truncated time (midnight) in the reference timezone.
// At most one deduction happens per calendar day: if LastCreditDeducted is
// already at (or past) today the call is a no-op. The zero balance is never
// stamped, so a day with nothing to deduct does not consume the day.
func (t *Tenant) DeductDailyCredit(today time.Time) DeductionOutcome {
	today = DateOf(today)

	if t.LastCreditDeducted != nil && !t.LastCreditDeducted.Before(today) {
		return DeductionAlreadyApplied
	}

	if t.Credits <= 0 {
		return DeductionNoCredits
	}

	t.Credits--
	t.LastCreditDeducted = &today
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewCreditDeductedEvent(t, today))

	if t.Credits == 0 {
		t.Status = TenantStatusInactive
		t.AddDomainEvent(NewTenantDeactivatedEvent(t))
		return DeductionDeactivated
	}

	return DeductionApplied
}

// GrantCredits adds credits to the balance. It returns true when the grant
// reactivates a tenant that was deactivated for running out of credits.
// Manually suspended tenants are never reactivated by a grant.
func (t *Tenant) GrantCredits(amount int) (bool, error) {
	if amount <= 0 {
		return false, shared.NewDomainError("INVALID_AMOUNT", "Credit grant amount must be positive")
	}

	t.Credits += amount
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewCreditsGrantedEvent(t, amount))

	if t.Status == TenantStatusInactive && t.Credits > 0 {
		t.Status = TenantStatusActive
		t.AddDomainEvent(NewTenantReactivatedEvent(t))
		return true, nil
	}

	return false, nil
}

// Suspend manually suspends the tenant
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}

	t.Status = TenantStatusSuspended
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// IsActive returns true if the tenant is active
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// HasCredits returns true if the tenant has a positive credit balance
func (t *Tenant) HasCredits() bool {
	return t.Credits > 0
}

// IsLowOnCredits returns true if the balance is positive but at or below the
// warning threshold
func (t *Tenant) IsLowOnCredits(threshold int) bool {
	return t.Credits > 0 && t.Credits <= threshold
}

// NeedsDeduction returns true if no deduction has happened for the given day
func (t *Tenant) NeedsDeduction(today time.Time) bool {
	today = DateOf(today)
	return t.LastCreditDeducted == nil || t.LastCreditDeducted.Before(today)
}

// DateOf truncates a time to its calendar date, preserving nothing but
// year, month, and day. The result is midnight UTC so that stored dates
// compare independently of the wall-clock location they came from.
func DateOf(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validation functions

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Tenant code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}

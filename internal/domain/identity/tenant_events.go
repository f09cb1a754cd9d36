package identity

import (
	"time"

	"github.com/hrms/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypeTenantCreated     = "TenantCreated"
	EventTypeCreditDeducted    = "CreditDeducted"
	EventTypeCreditsGranted    = "CreditsGranted"
	EventTypeTenantDeactivated = "TenantDeactivated"
	EventTypeTenantReactivated = "TenantReactivated"
)

// TenantCreatedEvent is published when a new tenant is created
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	Code    string       `json:"code"`
	Name    string       `json:"name"`
	Status  TenantStatus `json:"status"`
	Credits int          `json:"credits"`
}

// NewTenantCreatedEvent creates a new TenantCreatedEvent
func NewTenantCreatedEvent(tenant *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantCreated, tenant.ID),
		Code:            tenant.Code,
		Name:            tenant.Name,
		Status:          tenant.Status,
		Credits:         tenant.Credits,
	}
}

// CreditDeductedEvent is published when the daily credit deduction is applied
type CreditDeductedEvent struct {
	shared.BaseDomainEvent
	Code             string    `json:"code"`
	Day              time.Time `json:"day"`
	RemainingCredits int       `json:"remaining_credits"`
}

// NewCreditDeductedEvent creates a new CreditDeductedEvent
func NewCreditDeductedEvent(tenant *Tenant, day time.Time) *CreditDeductedEvent {
	return &CreditDeductedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCreditDeducted, tenant.ID),
		Code:             tenant.Code,
		Day:              day,
		RemainingCredits: tenant.Credits,
	}
}

// CreditsGrantedEvent is published when credits are added to a tenant
type CreditsGrantedEvent struct {
	shared.BaseDomainEvent
	Code    string `json:"code"`
	Amount  int    `json:"amount"`
	Balance int    `json:"balance"`
}

// NewCreditsGrantedEvent creates a new CreditsGrantedEvent
func NewCreditsGrantedEvent(tenant *Tenant, amount int) *CreditsGrantedEvent {
	return &CreditsGrantedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditsGranted, tenant.ID),
		Code:            tenant.Code,
		Amount:          amount,
		Balance:         tenant.Credits,
	}
}

// TenantDeactivatedEvent is published when a tenant runs out of credits
type TenantDeactivatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
}

// NewTenantDeactivatedEvent creates a new TenantDeactivatedEvent
func NewTenantDeactivatedEvent(tenant *Tenant) *TenantDeactivatedEvent {
	return &TenantDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantDeactivated, tenant.ID),
		Code:            tenant.Code,
	}
}

// TenantReactivatedEvent is published when a credit grant reactivates a tenant
type TenantReactivatedEvent struct {
	shared.BaseDomainEvent
	Code    string `json:"code"`
	Balance int    `json:"balance"`
}

// NewTenantReactivatedEvent creates a new TenantReactivatedEvent
func NewTenantReactivatedEvent(tenant *Tenant) *TenantReactivatedEvent {
	return &TenantReactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantReactivated, tenant.ID),
		Code:            tenant.Code,
		Balance:         tenant.Credits,
	}
}

package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/hrms/backend/internal/domain/identity"
	"github.com/hrms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TenantService handles tenant provisioning and lookups
type TenantService struct {
	tenantRepo identity.TenantRepository
	userRepo   identity.UserRepository
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// CreateTenant provisions a new tenant together with its admin user
func (s *TenantService) CreateTenant(ctx context.Context, input CreateTenantInput) (*TenantDTO, error) {
	exists, err := s.tenantRepo.ExistsByCode(ctx, strings.ToUpper(input.Code))
	if err != nil {
		s.logger.Error("Failed to check tenant code", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check tenant code")
	}
	if exists {
		return nil, shared.NewDomainError("CODE_TAKEN", "A tenant with this code already exists")
	}

	tenant, err := identity.NewTenant(input.Code, input.Name, input.InitialCredits)
	if err != nil {
		return nil, err
	}
	if input.Subdomain != "" {
		tenant.Subdomain = strings.ToLower(input.Subdomain)
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to save tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create tenant")
	}

	if input.AdminUsername != "" {
		admin, err := identity.NewUser(tenant.ID, input.AdminUsername, input.AdminPassword)
		if err != nil {
			return nil, err
		}
		admin.IsAdmin = true

		if err := s.userRepo.Save(ctx, admin); err != nil {
			s.logger.Error("Failed to save admin user", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create admin user")
		}
	}

	s.logger.Info("Tenant created",
		zap.String("code", tenant.Code),
		zap.Int("initial_credits", tenant.Credits))

	return toTenantDTO(tenant), nil
}

// GetTenant fetches a tenant by ID
func (s *TenantService) GetTenant(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// GetTenantByCode fetches a tenant by its unique code
func (s *TenantService) GetTenantByCode(ctx context.Context, code string) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// ListTenants lists tenants matching the filter
func (s *TenantService) ListTenants(ctx context.Context, filter shared.Filter) ([]TenantDTO, int64, error) {
	tenants, err := s.tenantRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.tenantRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]TenantDTO, 0, len(tenants))
	for i := range tenants {
		dtos = append(dtos, *toTenantDTO(&tenants[i]))
	}

	return dtos, total, nil
}

// SuspendTenant manually suspends a tenant
func (s *TenantService) SuspendTenant(ctx context.Context, id uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return err
	}

	if err := tenant.Suspend(); err != nil {
		return err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to save suspended tenant", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to suspend tenant")
	}

	s.logger.Info("Tenant suspended", zap.String("code", tenant.Code))
	return nil
}

func toTenantDTO(tenant *identity.Tenant) *TenantDTO {
	return &TenantDTO{
		ID:                 tenant.ID,
		Code:               tenant.Code,
		Name:               tenant.Name,
		Subdomain:          tenant.Subdomain,
		Status:             string(tenant.Status),
		Plan:               string(tenant.Plan),
		Credits:            tenant.Credits,
		LastCreditDeducted: tenant.LastCreditDeducted,
		CreatedAt:          tenant.CreatedAt,
	}
}

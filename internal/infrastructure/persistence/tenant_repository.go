package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hrms/backend/internal/domain/identity"
	"github.com/hrms/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTenantRepository implements TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	var tenant identity.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// FindByCode finds a tenant by its unique code
func (r *GormTenantRepository) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	var tenant identity.Tenant
	if err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(code)).
		First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// FindBySubdomain finds a tenant by its subdomain
func (r *GormTenantRepository) FindBySubdomain(ctx context.Context, subdomain string) (*identity.Tenant, error) {
	if subdomain == "" {
		return nil, shared.ErrNotFound
	}
	var tenant identity.Tenant
	if err := r.db.WithContext(ctx).
		Where("LOWER(subdomain) = ?", strings.ToLower(subdomain)).
		First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// FindAll finds all tenants matching the filter
func (r *GormTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	var tenants []identity.Tenant
	query := r.db.WithContext(ctx).Model(&identity.Tenant{})

	if filter.Search != "" {
		keyword := "%" + strings.ToUpper(filter.Search) + "%"
		query = query.Where("UPPER(name) LIKE ? OR UPPER(code) LIKE ?", keyword, keyword)
	}

	sortField := ValidateSortField(filter.OrderBy, TenantSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)

	offset := (filter.Page - 1) * filter.PageSize
	if offset < 0 {
		offset = 0
	}
	limit := filter.PageSize
	if limit <= 0 {
		limit = 20
	}
	query = query.Offset(offset).Limit(limit)

	if err := query.Find(&tenants).Error; err != nil {
		return nil, err
	}

	return tenants, nil
}

// FindActiveWithCredits finds all active tenants with a positive balance
func (r *GormTenantRepository) FindActiveWithCredits(ctx context.Context) ([]identity.Tenant, error) {
	var tenants []identity.Tenant
	if err := r.db.WithContext(ctx).
		Where("status = ? AND credits > 0", identity.TenantStatusActive).
		Order("code ASC").
		Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// Save creates or updates a tenant
func (r *GormTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	return r.db.WithContext(ctx).Save(tenant).Error
}

// Count counts tenants matching the filter
func (r *GormTenantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&identity.Tenant{})

	if filter.Search != "" {
		keyword := "%" + strings.ToUpper(filter.Search) + "%"
		query = query.Where("UPPER(name) LIKE ? OR UPPER(code) LIKE ?", keyword, keyword)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByCode checks if a tenant with the given code exists
func (r *GormTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&identity.Tenant{}).
		Where("UPPER(code) = ?", strings.ToUpper(code)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeductDailyCredit runs the daily deduction inside one transaction holding
// an exclusive row lock on the tenant. Concurrent callers serialize on the
// lock, the losers re-read the winner's stamp and become no-ops. If the
// balance reaches zero, every user of the tenant is deactivated before the
// transaction commits, so there is no window where a zero-credit tenant has
// active users.
func (r *GormTenantRepository) DeductDailyCredit(ctx context.Context, id uuid.UUID, today time.Time) (*identity.DeductionResult, error) {
	var result *identity.DeductionResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant identity.Tenant
		if err := withRowLock(tx).First(&tenant, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		outcome := tenant.DeductDailyCredit(today)
		result = &identity.DeductionResult{
			Outcome: outcome,
			Credits: tenant.Credits,
			Day:     identity.DateOf(today),
		}

		if outcome == identity.DeductionAlreadyApplied || outcome == identity.DeductionNoCredits {
			return nil
		}

		if err := tx.Model(&identity.Tenant{}).
			Where("id = ?", tenant.ID).
			Updates(map[string]interface{}{
				"credits":              tenant.Credits,
				"last_credit_deducted": tenant.LastCreditDeducted,
				"status":               tenant.Status,
				"updated_at":           tenant.UpdatedAt,
				"version":              tenant.Version,
			}).Error; err != nil {
			return err
		}

		if outcome == identity.DeductionDeactivated {
			if err := tx.Model(&identity.User{}).
				Where("tenant_id = ? AND status = ?", tenant.ID, identity.UserStatusActive).
				Updates(map[string]interface{}{
					"status":     identity.UserStatusInactive,
					"updated_at": time.Now(),
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GrantCredits adds credits under the same row lock discipline as the daily
// deduction. A grant that reactivates the tenant also reactivates its users
// inside the same transaction.
func (r *GormTenantRepository) GrantCredits(ctx context.Context, id uuid.UUID, amount int) (*identity.GrantResult, error) {
	var result *identity.GrantResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant identity.Tenant
		if err := withRowLock(tx).First(&tenant, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		reactivated, err := tenant.GrantCredits(amount)
		if err != nil {
			return err
		}
		result = &identity.GrantResult{
			Credits:     tenant.Credits,
			Reactivated: reactivated,
		}

		if err := tx.Model(&identity.Tenant{}).
			Where("id = ?", tenant.ID).
			Updates(map[string]interface{}{
				"credits":    tenant.Credits,
				"status":     tenant.Status,
				"updated_at": tenant.UpdatedAt,
				"version":    tenant.Version,
			}).Error; err != nil {
			return err
		}

		if reactivated {
			if err := tx.Model(&identity.User{}).
				Where("tenant_id = ? AND status = ?", tenant.ID, identity.UserStatusInactive).
				Updates(map[string]interface{}{
					"status":     identity.UserStatusActive,
					"updated_at": time.Now(),
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// withRowLock adds SELECT ... FOR UPDATE where the dialect supports it.
// SQLite has no row locks, its single-writer model already serializes the
// transaction.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

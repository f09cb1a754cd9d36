package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hrms/backend/internal/domain/identity"
	"github.com/hrms/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTenantTestDB creates an in-memory SQLite database for testing
func setupTenantTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE tenants (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			subdomain TEXT,
			domain TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			plan TEXT NOT NULL DEFAULT 'free',
			credits INTEGER NOT NULL DEFAULT 0,
			last_credit_deducted DATE,
			max_employees INTEGER NOT NULL DEFAULT 1000,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			auto_calculate_payroll INTEGER NOT NULL DEFAULT 0,
			notes TEXT
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			tenant_id TEXT NOT NULL,
			username TEXT NOT NULL,
			email TEXT,
			password_hash TEXT NOT NULL,
			display_name TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			is_admin INTEGER NOT NULL DEFAULT 0,
			last_login_at DATETIME,
			last_login_ip TEXT,
			failed_attempts INTEGER NOT NULL DEFAULT 0,
			locked_until DATETIME
		)
	`).Error
	require.NoError(t, err)

	return db
}

func seedTenant(t *testing.T, db *gorm.DB, code string, credits int) *identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTenant(code, code+" Inc", credits)
	require.NoError(t, err)
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

func seedUser(t *testing.T, db *gorm.DB, tenantID uuid.UUID, username string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(tenantID, username, "s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, db.Create(user).Error)
	return user
}

func testDay(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestGormTenantRepositoryLookups(t *testing.T) {
	ctx := context.Background()
	db := setupTenantTestDB(t)
	repo := NewGormTenantRepository(db)

	tenant := seedTenant(t, db, "ACME", 30)

	t.Run("FindByID", func(t *testing.T) {
		found, err := repo.FindByID(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, "ACME", found.Code)
		assert.Equal(t, 30, found.Credits)
	})

	t.Run("FindByID unknown returns ErrNotFound", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("FindByCode is case-insensitive", func(t *testing.T) {
		found, err := repo.FindByCode(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, found.ID)
	})

	t.Run("ExistsByCode", func(t *testing.T) {
		exists, err := repo.ExistsByCode(ctx, "ACME")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByCode(ctx, "NOPE")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("FindAll with search", func(t *testing.T) {
		seedTenant(t, db, "GLOBEX", 10)

		filter := shared.DefaultFilter()
		filter.Search = "glob"
		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "GLOBEX", found[0].Code)
	})
}

func TestGormTenantRepositoryFindActiveWithCredits(t *testing.T) {
	ctx := context.Background()
	db := setupTenantTestDB(t)
	repo := NewGormTenantRepository(db)

	seedTenant(t, db, "ALPHA", 10)
	broke := seedTenant(t, db, "BRAVO", 0)
	suspended := seedTenant(t, db, "CHARLIE", 10)

	require.NoError(t, db.Model(broke).Update("status", identity.TenantStatusInactive).Error)
	require.NoError(t, db.Model(suspended).Update("status", identity.TenantStatusSuspended).Error)

	found, err := repo.FindActiveWithCredits(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ALPHA", found[0].Code)
}

func TestGormTenantRepositoryDeductDailyCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("deducts one credit and stamps the day", func(t *testing.T) {
		db := setupTenantTestDB(t)
		repo := NewGormTenantRepository(db)
		tenant := seedTenant(t, db, "ACME", 3)

		result, err := repo.DeductDailyCredit(ctx, tenant.ID, testDay(10))

		require.NoError(t, err)
		assert.Equal(t, identity.DeductionApplied, result.Outcome)
		assert.Equal(t, 2, result.Credits)

		stored, err := repo.FindByID(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Credits)
		require.NotNil(t, stored.LastCreditDeducted)
		assert.Equal(t, testDay(10).Format("2006-01-02"), stored.LastCreditDeducted.Format("2006-01-02"))
	})

	t.Run("second call on the same day is a no-op", func(t *testing.T) {
		db := setupTenantTestDB(t)
		repo := NewGormTenantRepository(db)
		tenant := seedTenant(t, db, "ACME", 3)

		_, err := repo.DeductDailyCredit(ctx, tenant.ID, testDay(10))
		require.NoError(t, err)

		result, err := repo.DeductDailyCredit(ctx, tenant.ID, testDay(10))
		require.NoError(t, err)
		assert.Equal(t, identity.DeductionAlreadyApplied, result.Outcome)

		stored, _ := repo.FindByID(ctx, tenant.ID)
		assert.Equal(t, 2, stored.Credits)
	})

	t.Run("last credit deactivates tenant and its users", func(t *testing.T) {
		db := setupTenantTestDB(t)
		repo := NewGormTenantRepository(db)
		tenant := seedTenant(t, db, "ACME", 1)
		user := seedUser(t, db, tenant.ID, "jdoe")

		result, err := repo.DeductDailyCredit(ctx, tenant.ID, testDay(10))

		require.NoError(t, err)
		assert.Equal(t, identity.DeductionDeactivated, result.Outcome)
		assert.Equal(t, 0, result.Credits)

		stored, _ := repo.FindByID(ctx, tenant.ID)
		assert.Equal(t, identity.TenantStatusInactive, stored.Status)

		var storedUser identity.User
		require.NoError(t, db.First(&storedUser, "id = ?", user.ID).Error)
		assert.Equal(t, identity.UserStatusInactive, storedUser.Status)
	})

	t.Run("zero balance is a no-op that keeps the old stamp", func(t *testing.T) {
		db := setupTenantTestDB(t)
		repo := NewGormTenantRepository(db)
		tenant := seedTenant(t, db, "ACME", 1)

		_, err := repo.DeductDailyCredit(ctx, tenant.ID, testDay(10))
		require.NoError(t, err)

		result, err := repo.DeductDailyCredit(ctx, tenant.ID, testDay(11))
		require.NoError(t, err)
		assert.Equal(t, identity.DeductionNoCredits, result.Outcome)

		stored, _ := repo.FindByID(ctx, tenant.ID)
		assert.Equal(t, testDay(10).Format("2006-01-02"), stored.LastCreditDeducted.Format("2006-01-02"))
	})

	t.Run("unknown tenant returns ErrNotFound", func(t *testing.T) {
		db := setupTenantTestDB(t)
		repo := NewGormTenantRepository(db)

		_, err := repo.DeductDailyCredit(ctx, uuid.New(), testDay(10))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormTenantRepositoryGrantCredits(t *testing.T) {
	ctx := context.Background()

	t.Run("grants to an active tenant", func(t *testing.T) {
		db := setupTenantTestDB(t)
		repo := NewGormTenantRepository(db)
		tenant := seedTenant(t, db, "ACME", 5)

		result, err := repo.GrantCredits(ctx, tenant.ID, 25)

		require.NoError(t, err)
		assert.Equal(t, 30, result.Credits)
		assert.False(t, result.Reactivated)
	})

	t.Run("reactivates an exhausted tenant and its users", func(t *testing.T) {
		db := setupTenantTestDB(t)
		repo := NewGormTenantRepository(db)
		tenant := seedTenant(t, db, "ACME", 1)
		user := seedUser(t, db, tenant.ID, "jdoe")

		_, err := repo.DeductDailyCredit(ctx, tenant.ID, testDay(10))
		require.NoError(t, err)

		result, err := repo.GrantCredits(ctx, tenant.ID, 30)

		require.NoError(t, err)
		assert.True(t, result.Reactivated)
		assert.Equal(t, 30, result.Credits)

		stored, _ := repo.FindByID(ctx, tenant.ID)
		assert.Equal(t, identity.TenantStatusActive, stored.Status)

		var storedUser identity.User
		require.NoError(t, db.First(&storedUser, "id = ?", user.ID).Error)
		assert.Equal(t, identity.UserStatusActive, storedUser.Status)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		db := setupTenantTestDB(t)
		repo := NewGormTenantRepository(db)
		tenant := seedTenant(t, db, "ACME", 5)

		_, err := repo.GrantCredits(ctx, tenant.ID, 0)
		assert.Error(t, err)

		stored, _ := repo.FindByID(ctx, tenant.ID)
		assert.Equal(t, 5, stored.Credits)
	})
}

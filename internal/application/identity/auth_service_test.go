package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	appbilling "github.com/hrms/backend/internal/application/billing"
	"github.com/hrms/backend/internal/domain/identity"
	"github.com/hrms/backend/internal/domain/shared"
	"github.com/hrms/backend/internal/infrastructure/auth"
	"github.com/hrms/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]identity.User, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

// MockTenantRepository is a mock implementation of identity.TenantRepository
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindBySubdomain(ctx context.Context, subdomain string) (*identity.Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindActiveWithCredits(ctx context.Context) ([]identity.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) DeductDailyCredit(ctx context.Context, id uuid.UUID, today time.Time) (*identity.DeductionResult, error) {
	args := m.Called(ctx, id, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.DeductionResult), args.Error(1)
}

func (m *MockTenantRepository) GrantCredits(ctx context.Context, id uuid.UUID, amount int) (*identity.GrantResult, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.GrantResult), args.Error(1)
}

// passthroughCache never short-circuits, every check reaches the database
type passthroughCache struct{}

func (passthroughCache) MarkChecked(context.Context, uuid.UUID) (bool, error) { return true, nil }
func (passthroughCache) IsChecked(context.Context, uuid.UUID) (bool, error)  { return false, nil }
func (passthroughCache) Clear(context.Context, uuid.UUID) error              { return nil }
func (passthroughCache) ClearAll(context.Context) error                      { return nil }

type authFixture struct {
	userRepo   *MockUserRepository
	tenantRepo *MockTenantRepository
	service    *AuthService
}

func newAuthFixture() *authFixture {
	userRepo := new(MockUserRepository)
	tenantRepo := new(MockTenantRepository)
	logger := zap.NewNop()

	creditService := appbilling.NewCreditService(tenantRepo, passthroughCache{}, nil, logger, appbilling.CreditServiceConfig{
		ReferenceTimezone:  "UTC",
		LowCreditThreshold: 5,
	})

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "hrms-test",
		MaxRefreshCount:        10,
	})

	return &authFixture{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		service: NewAuthService(
			userRepo, tenantRepo, creditService, jwtService,
			DefaultAuthServiceConfig(), logger,
		),
	}
}

func makeTenantAndUser(t *testing.T, credits int) (*identity.Tenant, *identity.User) {
	t.Helper()
	tenant, err := identity.NewTenant("ACME", "Acme Corp", credits)
	require.NoError(t, err)
	user, err := identity.NewUser(tenant.ID, "jdoe", "s3cret-pass")
	require.NoError(t, err)
	return tenant, user
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login deducts today's credit and issues tokens", func(t *testing.T) {
		f := newAuthFixture()
		tenant, user := makeTenantAndUser(t, 10)

		f.userRepo.On("FindByUsername", ctx, "jdoe").Return(user, nil)
		f.tenantRepo.On("DeductDailyCredit", ctx, tenant.ID, mock.AnythingOfType("time.Time")).
			Return(&identity.DeductionResult{Outcome: identity.DeductionApplied, Credits: 9}, nil)
		f.tenantRepo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)
		f.userRepo.On("Update", ctx, user).Return(nil)

		result, err := f.service.Login(ctx, LoginInput{Username: "jdoe", Password: "s3cret-pass", IP: "10.0.0.1"})

		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, "Bearer", result.TokenType)
		assert.Equal(t, "jdoe", result.User.Username)
		f.tenantRepo.AssertExpectations(t)
	})

	t.Run("wrong password is rejected without touching credits", func(t *testing.T) {
		f := newAuthFixture()
		_, user := makeTenantAndUser(t, 10)

		f.userRepo.On("FindByUsername", ctx, "jdoe").Return(user, nil)
		f.userRepo.On("Update", ctx, user).Return(nil)

		_, err := f.service.Login(ctx, LoginInput{Username: "jdoe", Password: "wrong-pass"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
		f.tenantRepo.AssertNotCalled(t, "DeductDailyCredit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("exhausted tenant gets a no-credits refusal", func(t *testing.T) {
		f := newAuthFixture()
		tenant, user := makeTenantAndUser(t, 1)
		tenant.DeductDailyCredit(time.Now().UTC())
		require.Equal(t, 0, tenant.Credits)

		f.userRepo.On("FindByUsername", ctx, "jdoe").Return(user, nil)
		f.tenantRepo.On("DeductDailyCredit", ctx, tenant.ID, mock.AnythingOfType("time.Time")).
			Return(&identity.DeductionResult{Outcome: identity.DeductionAlreadyApplied, Credits: 0}, nil)
		f.tenantRepo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)

		_, err := f.service.Login(ctx, LoginInput{Username: "jdoe", Password: "s3cret-pass"})

		var noCredits *appbilling.NoCreditsError
		require.ErrorAs(t, err, &noCredits)
		assert.Equal(t, 403, noCredits.HTTPStatusCode())
		assert.Equal(t, 0, noCredits.Credits)
	})

	t.Run("login on the last day succeeds and leaves the tenant deactivated after", func(t *testing.T) {
		f := newAuthFixture()
		tenant, user := makeTenantAndUser(t, 2)

		f.userRepo.On("FindByUsername", ctx, "jdoe").Return(user, nil)
		f.tenantRepo.On("DeductDailyCredit", ctx, tenant.ID, mock.AnythingOfType("time.Time")).
			Return(&identity.DeductionResult{Outcome: identity.DeductionApplied, Credits: 1}, nil).
			Run(func(args mock.Arguments) {
				tenant.DeductDailyCredit(args.Get(2).(time.Time))
			})
		f.tenantRepo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)
		f.userRepo.On("Update", ctx, user).Return(nil)

		result, err := f.service.Login(ctx, LoginInput{Username: "jdoe", Password: "s3cret-pass"})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Credits)
		assert.True(t, result.LowCredits)
	})

	t.Run("suspended tenant is refused with a distinct error", func(t *testing.T) {
		f := newAuthFixture()
		tenant, user := makeTenantAndUser(t, 10)
		require.NoError(t, tenant.Suspend())

		f.userRepo.On("FindByUsername", ctx, "jdoe").Return(user, nil)
		f.tenantRepo.On("DeductDailyCredit", ctx, tenant.ID, mock.AnythingOfType("time.Time")).
			Return(&identity.DeductionResult{Outcome: identity.DeductionAlreadyApplied, Credits: 10}, nil)
		f.tenantRepo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)

		_, err := f.service.Login(ctx, LoginInput{Username: "jdoe", Password: "s3cret-pass"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TENANT_SUSPENDED", domainErr.Code)
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		f := newAuthFixture()

		f.userRepo.On("FindByUsername", ctx, "nobody").Return(nil, shared.ErrNotFound)

		_, err := f.service.Login(ctx, LoginInput{Username: "nobody", Password: "whatever1"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	})

	t.Run("deactivated user of a reactivated tenant can login again", func(t *testing.T) {
		f := newAuthFixture()
		tenant, user := makeTenantAndUser(t, 20)
		user.Deactivate()

		f.userRepo.On("FindByUsername", ctx, "jdoe").Return(user, nil)
		f.tenantRepo.On("DeductDailyCredit", ctx, tenant.ID, mock.AnythingOfType("time.Time")).
			Return(&identity.DeductionResult{Outcome: identity.DeductionApplied, Credits: 19}, nil)
		f.tenantRepo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)
		f.userRepo.On("Update", ctx, user).Return(nil)

		result, err := f.service.Login(ctx, LoginInput{Username: "jdoe", Password: "s3cret-pass"})

		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, identity.UserStatusActive, user.Status)
	})
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("valid refresh token yields a new pair", func(t *testing.T) {
		f := newAuthFixture()
		tenant, user := makeTenantAndUser(t, 10)

		f.userRepo.On("FindByUsername", ctx, "jdoe").Return(user, nil)
		f.tenantRepo.On("DeductDailyCredit", ctx, tenant.ID, mock.AnythingOfType("time.Time")).
			Return(&identity.DeductionResult{Outcome: identity.DeductionApplied, Credits: 9}, nil)
		f.tenantRepo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)
		f.userRepo.On("Update", ctx, user).Return(nil)

		login, err := f.service.Login(ctx, LoginInput{Username: "jdoe", Password: "s3cret-pass"})
		require.NoError(t, err)

		f.userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

		refreshed, err := f.service.RefreshToken(ctx, RefreshTokenInput{RefreshToken: login.RefreshToken})

		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.AccessToken)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		f := newAuthFixture()

		_, err := f.service.RefreshToken(ctx, RefreshTokenInput{RefreshToken: "not-a-token"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
	})
}

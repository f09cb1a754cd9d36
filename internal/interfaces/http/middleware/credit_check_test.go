package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hrms/backend/internal/application/billing"
	"github.com/hrms/backend/internal/domain/identity"
	"github.com/hrms/backend/internal/domain/shared"
	"github.com/hrms/backend/internal/infrastructure/cache"
)

// deductingTenantRepo serves a single tenant and counts deductions
type deductingTenantRepo struct {
	tenantID   uuid.UUID
	credits    int
	deductions atomic.Int32
}

func (r *deductingTenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	return nil, shared.ErrNotFound
}

func (r *deductingTenantRepo) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	return nil, shared.ErrNotFound
}

func (r *deductingTenantRepo) FindBySubdomain(ctx context.Context, subdomain string) (*identity.Tenant, error) {
	return nil, shared.ErrNotFound
}

func (r *deductingTenantRepo) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	return nil, nil
}

func (r *deductingTenantRepo) FindActiveWithCredits(ctx context.Context) ([]identity.Tenant, error) {
	return nil, nil
}

func (r *deductingTenantRepo) Save(ctx context.Context, tenant *identity.Tenant) error {
	return nil
}

func (r *deductingTenantRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return 0, nil
}

func (r *deductingTenantRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (r *deductingTenantRepo) DeductDailyCredit(ctx context.Context, id uuid.UUID, today time.Time) (*identity.DeductionResult, error) {
	if id != r.tenantID {
		return nil, shared.ErrNotFound
	}
	r.deductions.Add(1)
	r.credits--
	return &identity.DeductionResult{
		Outcome: identity.DeductionApplied,
		Credits: r.credits,
		Day:     today,
	}, nil
}

func (r *deductingTenantRepo) GrantCredits(ctx context.Context, id uuid.UUID, amount int) (*identity.GrantResult, error) {
	return nil, shared.ErrNotFound
}

func newCreditCheckRouter(t *testing.T, repo *deductingTenantRepo, tenantID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := billing.NewCreditService(
		repo,
		cache.NewMemoryCheckCache(5*time.Minute),
		nil,
		zap.NewNop(),
		billing.CreditServiceConfig{ReferenceTimezone: "UTC"},
	)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if tenantID != "" {
			c.Set(JWTTenantIDKey, tenantID)
		}
		c.Next()
	})
	router.Use(CreditCheck(service, zap.NewNop()))
	router.Use(LowCreditWarning(5, zap.NewNop()))
	router.GET("/api/v1/reports", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/api/v1/auth/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCreditCheckDeductsOncePerWindow(t *testing.T) {
	tenantID := uuid.New()
	repo := &deductingTenantRepo{tenantID: tenantID, credits: 10}
	router := newCreditCheckRouter(t, repo, tenantID.String())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	// First request hits the repository, the rest are absorbed by the cache
	assert.Equal(t, int32(1), repo.deductions.Load())
}

func TestCreditCheckSkipsExemptPaths(t *testing.T) {
	tenantID := uuid.New()
	repo := &deductingTenantRepo{tenantID: tenantID, credits: 10}
	router := newCreditCheckRouter(t, repo, tenantID.String())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(0), repo.deductions.Load())
}

func TestCreditCheckSkipsUnauthenticated(t *testing.T) {
	repo := &deductingTenantRepo{tenantID: uuid.New(), credits: 10}
	router := newCreditCheckRouter(t, repo, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(0), repo.deductions.Load())
}

func TestCreditCheckNeverBlocksOnRepositoryError(t *testing.T) {
	// Tenant unknown to the repository, the deduction errors internally
	repo := &deductingTenantRepo{tenantID: uuid.New(), credits: 10}
	router := newCreditCheckRouter(t, repo, uuid.New().String())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hrms/backend/internal/application/billing"
	"github.com/hrms/backend/internal/domain/identity"
)

// DeductionResultKey is the gin context key under which CreditCheck
// stores the deduction result for downstream middleware.
const DeductionResultKey = "credit_deduction_result"

// creditExemptPrefixes are paths that never trigger a credit check
var creditExemptPrefixes = []string{
	"/health",
	"/metrics",
	"/api/v1/health",
	"/api/v1/auth/",
	"/api/v1/system/",
}

// CreditCheck ensures the authenticated tenant's daily credit deduction
// has happened. It piggybacks on request traffic so a freshly woken
// server settles its backlog without waiting for the scheduler. The
// check is throttled by the service's short-TTL cache and never blocks
// the request, whatever the outcome.
func CreditCheck(creditService *billing.CreditService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isCreditExempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		tenantIDStr := GetJWTTenantID(c)
		if tenantIDStr == "" {
			c.Next()
			return
		}
		tenantID, err := uuid.Parse(tenantIDStr)
		if err != nil {
			c.Next()
			return
		}

		result, err := creditService.EnsureDailyDeduction(c.Request.Context(), tenantID)
		if err != nil {
			logger.Error("Credit check failed",
				zap.String("tenant_id", tenantIDStr),
				zap.Error(err))
			c.Next()
			return
		}

		if result != nil {
			c.Set(DeductionResultKey, result)
			if result.Deducted() {
				logger.Info("Credit deducted on request",
					zap.String("tenant_id", tenantIDStr),
					zap.String("outcome", string(result.Outcome)),
					zap.Int("credits", result.Credits))
			}
		}

		c.Next()
	}
}

// LowCreditWarning logs a warning when the tenant's balance has dropped
// to the threshold or below. Purely observational, it never blocks.
func LowCreditWarning(threshold int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, exists := c.Get(DeductionResultKey); exists {
			if result, ok := v.(*identity.DeductionResult); ok {
				if result.Credits > 0 && result.Credits <= threshold {
					logger.Warn("Tenant is low on credits",
						zap.String("tenant_id", GetJWTTenantID(c)),
						zap.Int("credits", result.Credits))
				}
			}
		}

		c.Next()
	}
}

func isCreditExempt(path string) bool {
	for _, prefix := range creditExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hrms/backend/internal/application/billing"
	appidentity "github.com/hrms/backend/internal/application/identity"
	"github.com/hrms/backend/internal/domain/shared"
	"github.com/hrms/backend/internal/interfaces/http/dto"
)

// TenantHandler handles tenant management and credit endpoints
type TenantHandler struct {
	BaseHandler
	tenantService *appidentity.TenantService
	creditService *billing.CreditService
	logger        *zap.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(
	tenantService *appidentity.TenantService,
	creditService *billing.CreditService,
	logger *zap.Logger,
) *TenantHandler {
	return &TenantHandler{
		tenantService: tenantService,
		creditService: creditService,
		logger:        logger,
	}
}

// CreateTenantRequest is the tenant provisioning request body
type CreateTenantRequest struct {
	Code           string `json:"code" binding:"required,max=20"`
	Name           string `json:"name" binding:"required,max=200"`
	Subdomain      string `json:"subdomain" binding:"omitempty,max=63"`
	InitialCredits int    `json:"initial_credits" binding:"omitempty,min=0"`
	AdminUsername  string `json:"admin_username" binding:"omitempty,max=100"`
	AdminPassword  string `json:"admin_password" binding:"omitempty,min=8"`
}

// GrantCreditsRequest is the credit grant request body
type GrantCreditsRequest struct {
	Amount int `json:"amount" binding:"required,min=1"`
}

// Create provisions a new tenant.
// POST /api/v1/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid tenant payload: "+err.Error())
		return
	}

	result, err := h.tenantService.CreateTenant(c.Request.Context(), appidentity.CreateTenantInput{
		Code:           req.Code,
		Name:           req.Name,
		Subdomain:      req.Subdomain,
		InitialCredits: req.InitialCredits,
		AdminUsername:  req.AdminUsername,
		AdminPassword:  req.AdminPassword,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// List lists tenants with pagination.
// GET /api/v1/tenants
func (h *TenantHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid list parameters")
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
	}

	tenants, total, err := h.tenantService.ListTenants(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, tenants, total, req.Page, req.PageSize)
}

// Get fetches a single tenant.
// GET /api/v1/tenants/:id
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.tenantIDParam(c)
	if !ok {
		return
	}

	result, err := h.tenantService.GetTenant(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetByCode fetches a single tenant by its unique code.
// GET /api/v1/tenants/code/:code
func (h *TenantHandler) GetByCode(c *gin.Context) {
	result, err := h.tenantService.GetTenantByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Suspend manually suspends a tenant.
// POST /api/v1/tenants/:id/suspend
func (h *TenantHandler) Suspend(c *gin.Context) {
	id, ok := h.tenantIDParam(c)
	if !ok {
		return
	}

	if err := h.tenantService.SuspendTenant(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message": "Tenant suspended"})
}

// CreditStatus reports a tenant's credit balance and deduction state.
// GET /api/v1/tenants/:id/credits
func (h *TenantHandler) CreditStatus(c *gin.Context) {
	id, ok := h.tenantIDParam(c)
	if !ok {
		return
	}

	status, err := h.creditService.StatusFor(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}

// CreditStatusAll reports credit status for every tenant.
// GET /api/v1/credits/status
func (h *TenantHandler) CreditStatusAll(c *gin.Context) {
	statuses, err := h.creditService.StatusAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, statuses)
}

// GrantCredits adds credits to a tenant, reactivating it when exhausted.
// POST /api/v1/tenants/:id/credits/grant
func (h *TenantHandler) GrantCredits(c *gin.Context) {
	id, ok := h.tenantIDParam(c)
	if !ok {
		return
	}

	var req GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Amount must be a positive integer")
		return
	}

	result, err := h.creditService.Grant(c.Request.Context(), id, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"credits":     result.Credits,
		"reactivated": result.Reactivated,
	})
}

// DeductCredit forces a daily deduction check for a tenant.
// POST /api/v1/tenants/:id/credits/deduct
func (h *TenantHandler) DeductCredit(c *gin.Context) {
	id, ok := h.tenantIDParam(c)
	if !ok {
		return
	}

	result, err := h.creditService.DeductTenant(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"outcome": result.Outcome,
		"credits": result.Credits,
	})
}

func (h *TenantHandler) tenantIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	return id, true
}

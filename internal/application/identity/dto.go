package identity

import (
	"time"

	"github.com/google/uuid"
)

// LoginInput contains the credentials presented at login
type LoginInput struct {
	Username string
	Password string
	IP       string
}

// UserInfo contains the user fields exposed to clients
type UserInfo struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	IsAdmin     bool      `json:"is_admin"`
}

// LoginResult contains the tokens and user info returned on success
type LoginResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	User                  UserInfo  `json:"user"`
	Credits               int       `json:"credits"`
	LowCredits            bool      `json:"low_credits"`
}

// RefreshTokenInput contains the refresh token to exchange
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the new token pair
type RefreshTokenResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LogoutInput identifies the session being closed
type LogoutInput struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
}

// GetCurrentUserInput identifies the user being fetched
type GetCurrentUserInput struct {
	UserID uuid.UUID
}

// CurrentUserResult contains the current user's profile
type CurrentUserResult struct {
	User    UserInfo `json:"user"`
	Credits int      `json:"credits"`
}

// CreateTenantInput contains the fields for provisioning a tenant
type CreateTenantInput struct {
	Code           string
	Name           string
	Subdomain      string
	InitialCredits int
	AdminUsername  string
	AdminPassword  string
}

// TenantDTO contains the tenant fields exposed to clients
type TenantDTO struct {
	ID                 uuid.UUID  `json:"id"`
	Code               string     `json:"code"`
	Name               string     `json:"name"`
	Subdomain          string     `json:"subdomain"`
	Status             string     `json:"status"`
	Plan               string     `json:"plan"`
	Credits            int        `json:"credits"`
	LastCreditDeducted *time.Time `json:"last_credit_deducted,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/hrms/backend/internal/domain/shared"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByTenant finds all users belonging to a tenant
	FindByTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]User, error)

	// Save creates or updates a user
	Save(ctx context.Context, user *User) error

	// Update updates an existing user
	Update(ctx context.Context, user *User) error

	// CountByTenant counts users belonging to a tenant
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

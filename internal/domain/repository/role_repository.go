package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/entity"
)

// RoleRepository defines persistence for roles.
type RoleRepository interface {
	Create(ctx context.Context, r *entity.Role) error
	GetByNormalizedName(ctx context.Context, normalizedName string) (*entity.Role, error)
	List(ctx context.Context) ([]entity.Role, error)
}

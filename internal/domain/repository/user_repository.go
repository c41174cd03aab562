package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/entity"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("conflict")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByNormalizedEmail(ctx context.Context, normalizedEmail string) (*entity.User, error)
	GetByNormalizedUserName(ctx context.Context, normalizedUserName string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetEmailConfirmed(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]entity.User, error)

	AddToRole(ctx context.Context, userID, roleID string) error
	RemoveFromRole(ctx context.Context, userID, roleID string) error
	GetRoleNames(ctx context.Context, userID string) ([]string, error)
}

package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/repository"
)

// RoleManager is the role half of the identity provider.
type RoleManager struct {
	Repo   repo.RoleRepository
	Logger *logrus.Logger
}

func NewRoleManager(repo repo.RoleRepository, logger *logrus.Logger) *RoleManager {
	return &RoleManager{Repo: repo, Logger: logger}
}

// RoleExists reports whether a role with this name exists, ignoring case.
func (m *RoleManager) RoleExists(ctx context.Context, name string) (bool, error) {
	_, err := m.FindByName(ctx, name)
	if errors.Is(err, ErrRoleNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindByName returns ErrRoleNotFound when no role matches.
func (m *RoleManager) FindByName(ctx context.Context, name string) (*entity.Role, error) {
	key := Normalize(name)
	if key == "" {
		return nil, ErrRoleNotFound
	}
	r, err := m.Repo.GetByNormalizedName(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find role %q: %w", name, err)
	}
	return r, nil
}

// CreateRole rejects empty and duplicate names with IdentityErrors.
func (m *RoleManager) CreateRole(ctx context.Context, name string) error {
	key := Normalize(name)
	if key == "" {
		return identityErr(CodeInvalidRoleName, fmt.Sprintf("Role name '%s' is invalid.", name))
	}
	exists, err := m.RoleExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return identityErr(CodeDuplicateRoleName, fmt.Sprintf("Role name '%s' is already taken.", name))
	}

	role := &entity.Role{Name: name, NormalizedName: key}
	if err := m.Repo.Create(ctx, role); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return identityErr(CodeDuplicateRoleName, fmt.Sprintf("Role name '%s' is already taken.", name))
		}
		return fmt.Errorf("create role %q: %w", name, err)
	}
	if m.Logger != nil {
		m.Logger.WithFields(logrus.Fields{"role": name, "role_id": role.ID}).Debug("role stored")
	}
	return nil
}

func (m *RoleManager) List(ctx context.Context) ([]entity.Role, error) {
	return m.Repo.List(ctx)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/repository"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
)

// UserManager is the user half of the identity provider: validation, password policy,
// hashing and role membership.
type UserManager struct {
	Users    repo.UserRepository
	Roles    *RoleManager
	Policy   PasswordPolicy
	Logger   *logrus.Logger
	validate *validator.Validate
}

func NewUserManager(users repo.UserRepository, roles *RoleManager, policy PasswordPolicy, logger *logrus.Logger) *UserManager {
	return &UserManager{
		Users:    users,
		Roles:    roles,
		Policy:   policy,
		Logger:   logger,
		validate: validator.New(),
	}
}

// FindByEmail returns (nil, nil) when no user has this email.
func (m *UserManager) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	key := Normalize(email)
	if key == "" {
		return nil, nil
	}
	u, err := m.Users.GetByNormalizedEmail(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// FindByID returns ErrUserNotFound when the id matches nothing.
func (m *UserManager) FindByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := m.Users.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return u, nil
}

// CreateUser validates u and password, hashes the password and stores the user.
// All validation failures are reported together as IdentityErrors.
func (m *UserManager) CreateUser(ctx context.Context, u *entity.User, password string) error {
	errs, err := m.validateUser(ctx, u)
	if err != nil {
		return err
	}
	if pErr := m.Policy.Validate(password); pErr != nil {
		errs = append(errs, ErrorDetails(pErr)...)
	}
	if len(errs) > 0 {
		return errs
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.NormalizedUserName = Normalize(u.UserName)
	u.NormalizedEmail = Normalize(u.Email)

	if err := m.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return identityErr(CodeDuplicateUserName, fmt.Sprintf("Username '%s' is already taken.", u.UserName))
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (m *UserManager) validateUser(ctx context.Context, u *entity.User) (IdentityErrors, error) {
	var errs IdentityErrors
	if strings.TrimSpace(u.UserName) == "" {
		errs = append(errs, IdentityError{Code: CodeInvalidUserName, Description: fmt.Sprintf("Username '%s' is invalid, can only contain letters or digits.", u.UserName)})
	} else {
		existing, err := m.Users.GetByNormalizedUserName(ctx, Normalize(u.UserName))
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("check user name: %w", err)
		}
		if existing != nil && existing.ID != u.ID {
			errs = append(errs, IdentityError{Code: CodeDuplicateUserName, Description: fmt.Sprintf("Username '%s' is already taken.", u.UserName)})
		}
	}

	if vErr := m.validate.Var(u.Email, "required,email"); vErr != nil {
		errs = append(errs, IdentityError{Code: CodeInvalidEmail, Description: fmt.Sprintf("Email '%s' is invalid.", u.Email)})
	} else {
		existing, err := m.FindByEmail(ctx, u.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != u.ID {
			errs = append(errs, IdentityError{Code: CodeDuplicateEmail, Description: fmt.Sprintf("Email '%s' is already taken.", u.Email)})
		}
	}
	return errs, nil
}

// AddToRole assigns u to the named role.
func (m *UserManager) AddToRole(ctx context.Context, u *entity.User, roleName string) error {
	role, err := m.Roles.FindByName(ctx, roleName)
	if errors.Is(err, ErrRoleNotFound) {
		return identityErr(CodeRoleNotFound, fmt.Sprintf("Role %s does not exist.", roleName))
	}
	if err != nil {
		return err
	}
	if err := m.Users.AddToRole(ctx, u.ID, role.ID); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return identityErr(CodeUserAlreadyInRole, fmt.Sprintf("User already in role '%s'.", role.Name))
		}
		return fmt.Errorf("add user to role %q: %w", role.Name, err)
	}
	return nil
}

func (m *UserManager) RemoveFromRole(ctx context.Context, u *entity.User, roleName string) error {
	role, err := m.Roles.FindByName(ctx, roleName)
	if errors.Is(err, ErrRoleNotFound) {
		return identityErr(CodeRoleNotFound, fmt.Sprintf("Role %s does not exist.", roleName))
	}
	if err != nil {
		return err
	}
	if err := m.Users.RemoveFromRole(ctx, u.ID, role.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return identityErr(CodeUserNotInRole, fmt.Sprintf("User is not in role '%s'.", role.Name))
		}
		return fmt.Errorf("remove user from role %q: %w", role.Name, err)
	}
	return nil
}

func (m *UserManager) GetRoles(ctx context.Context, u *entity.User) ([]string, error) {
	return m.Users.GetRoleNames(ctx, u.ID)
}

func (m *UserManager) IsInRole(ctx context.Context, u *entity.User, roleName string) (bool, error) {
	names, err := m.GetRoles(ctx, u)
	if err != nil {
		return false, err
	}
	key := Normalize(roleName)
	return slices.ContainsFunc(names, func(n string) bool { return Normalize(n) == key }), nil
}

func (m *UserManager) CheckPassword(u *entity.User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return helpers.CompareHashAndPassword(u.PasswordHash, password)
}

// ChangePassword requires the current password before applying the policy to the new one.
func (m *UserManager) ChangePassword(ctx context.Context, u *entity.User, current, next string) error {
	if !m.CheckPassword(u, current) {
		return identityErr(CodePasswordMismatch, "Incorrect password.")
	}
	return m.ResetPassword(ctx, u, next)
}

// ResetPassword replaces the password without checking the old one; callers verify a reset token first.
func (m *UserManager) ResetPassword(ctx context.Context, u *entity.User, next string) error {
	if err := m.Policy.Validate(next); err != nil {
		return err
	}
	hash, err := helpers.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := m.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	u.PasswordHash = hash
	return nil
}

func (m *UserManager) ConfirmEmail(ctx context.Context, u *entity.User) error {
	if u.EmailConfirmed {
		return nil
	}
	if err := m.Users.SetEmailConfirmed(ctx, u.ID); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	u.EmailConfirmed = true
	return nil
}

// Update persists profile fields. User name and email are re-validated.
func (m *UserManager) Update(ctx context.Context, u *entity.User) error {
	errs, err := m.validateUser(ctx, u)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return errs
	}
	u.NormalizedUserName = Normalize(u.UserName)
	u.NormalizedEmail = Normalize(u.Email)
	if err := m.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (m *UserManager) List(ctx context.Context, limit, offset int) ([]entity.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return m.Users.List(ctx, limit, offset)
}

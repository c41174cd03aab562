package seed_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/seed"
)

type stack struct {
	roleRepo *memory.RoleRepository
	userRepo *memory.UserRepository
	roles    *application.RoleManager
	users    *application.UserManager
}

func newStack() stack {
	logger, _ := test.NewNullLogger()
	rr := memory.NewRoleRepository()
	ur := memory.NewUserRepository(rr)
	roles := application.NewRoleManager(rr, logger)
	users := application.NewUserManager(ur, roles, application.DefaultPasswordPolicy(), logger)
	return stack{roleRepo: rr, userRepo: ur, roles: roles, users: users}
}

func TestSeed_WithIdentityManagers(t *testing.T) {
	ctx := context.Background()
	st := newStack()
	logger, _ := test.NewNullLogger()
	s := seed.New(st.roles, st.users, seed.Options{}, logger)

	rep := s.Seed(ctx)
	require.NoError(t, rep.Err())

	for _, name := range []string{"Employee", "Adjuster", "employee", "ADJUSTER"} {
		ok, err := st.roles.RoleExists(ctx, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}

	u, err := st.users.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.EmailConfirmed)
	assert.True(t, st.users.CheckPassword(u, "Admin@123"))
	roles, err := st.users.GetRoles(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []string{"Employee"}, roles)

	again := s.Seed(ctx)
	require.NoError(t, again.Err())
	all, _ := st.roles.List(ctx)
	assert.Len(t, all, 2)
	assert.Equal(t, 1, st.userRepo.Count())
}

func TestSeed_ExistingAdminKeepsPasswordAndRoles(t *testing.T) {
	ctx := context.Background()
	st := newStack()
	require.NoError(t, st.roles.CreateRole(ctx, "Adjuster"))
	admin := &entity.User{UserName: "admin@example.com", Email: "admin@example.com"}
	require.NoError(t, st.users.CreateUser(ctx, admin, "Changed1"))
	require.NoError(t, st.users.AddToRole(ctx, admin, "Adjuster"))

	logger, _ := test.NewNullLogger()
	rep := seed.New(st.roles, st.users, seed.Options{}, logger).Seed(ctx)

	require.NoError(t, rep.Err())
	assert.Equal(t, seed.StateSkipped, rep.User.State)
	assert.Equal(t, 1, st.userRepo.Count())

	u, err := st.users.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, st.users.CheckPassword(u, "Changed1"))
	assert.False(t, st.users.CheckPassword(u, "Admin@123"))
	roles, _ := st.users.GetRoles(ctx, u)
	assert.Equal(t, []string{"Adjuster"}, roles)
}

func TestSeed_WeakConfiguredPasswordIsRejected(t *testing.T) {
	ctx := context.Background()
	st := newStack()
	logger, hook := test.NewNullLogger()

	rep := seed.New(st.roles, st.users, seed.Options{AdminPassword: "admin"}, logger).Seed(ctx)

	assert.Equal(t, seed.StateCreateFailed, rep.User.State)
	assert.Equal(t, 0, st.userRepo.Count())
	details := application.ErrorDetails(rep.User.Err)
	assert.True(t, application.IdentityErrors(details).Has(application.CodePasswordTooShort))
	assert.True(t, application.IdentityErrors(details).Has(application.CodePasswordRequiresUpper))
	assert.True(t, application.IdentityErrors(details).Has(application.CodePasswordRequiresDigit))
	assert.GreaterOrEqual(t, len(hook.AllEntries()), len(details))
}

package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-scaffold/config"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/seed"
)

type migratorFunc func(ctx context.Context) error

func (f migratorFunc) Up(ctx context.Context) error { return f(ctx) }

type seederFunc func(ctx context.Context) seed.Report

func (f seederFunc) Seed(ctx context.Context) seed.Report { return f(ctx) }

func okReport() seed.Report {
	return seed.Report{
		Roles: []seed.Outcome{{Kind: seed.KindRole, Name: "Employee", State: seed.StateCreated}},
		User:  seed.Outcome{Kind: seed.KindUser, Name: "admin@example.com", State: seed.StateCreated},
	}
}

func failureLogged(hook *test.Hook) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == FailureMessage {
			return true
		}
	}
	return false
}

func TestRun_MigratesThenSeeds(t *testing.T) {
	var order []string
	m := migratorFunc(func(context.Context) error { order = append(order, "migrate"); return nil })
	s := seederFunc(func(context.Context) seed.Report { order = append(order, "seed"); return okReport() })
	logger, hook := test.NewNullLogger()

	st := New(m, s, logger).Run(context.Background())

	assert.Equal(t, []string{"migrate", "seed"}, order)
	assert.True(t, st.OK())
	assert.True(t, st.Migrated)
	assert.True(t, st.Seeded)
	assert.False(t, failureLogged(hook))
}

func TestRun_MigrationFailureSkipsSeeding(t *testing.T) {
	m := migratorFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })
	seeded := false
	s := seederFunc(func(context.Context) seed.Report { seeded = true; return okReport() })
	logger, hook := test.NewNullLogger()

	var st Status
	require.NotPanics(t, func() { st = New(m, s, logger).Run(context.Background()) })

	assert.False(t, seeded)
	assert.False(t, st.Migrated)
	assert.False(t, st.OK())
	assert.ErrorContains(t, st.Err, "connection refused")
	assert.True(t, failureLogged(hook))
}

func TestRun_SeedFailureIsSwallowed(t *testing.T) {
	m := migratorFunc(func(context.Context) error { return nil })
	s := seederFunc(func(context.Context) seed.Report {
		rep := okReport()
		rep.User = seed.Outcome{Kind: seed.KindUser, Name: "admin@example.com", State: seed.StateCreateFailed, Err: errors.New("weak password")}
		return rep
	})
	logger, hook := test.NewNullLogger()

	st := New(m, s, logger).Run(context.Background())

	assert.True(t, st.Migrated)
	assert.True(t, st.Seeded)
	assert.ErrorContains(t, st.Err, "weak password")
	assert.True(t, failureLogged(hook))
}

func TestRun_RecoversFromPanic(t *testing.T) {
	m := migratorFunc(func(context.Context) error { return nil })
	s := seederFunc(func(context.Context) seed.Report { panic("nil identity store") })
	logger, hook := test.NewNullLogger()

	var st Status
	require.NotPanics(t, func() { st = New(m, s, logger).Run(context.Background()) })

	assert.True(t, st.Recovered)
	assert.ErrorContains(t, st.Err, "nil identity store")
	assert.True(t, failureLogged(hook))
}

func TestRun_NilSeederMeansDisabled(t *testing.T) {
	m := migratorFunc(func(context.Context) error { return nil })
	logger, _ := test.NewNullLogger()

	st := New(m, nil, logger).Run(context.Background())

	assert.True(t, st.OK())
	assert.True(t, st.Migrated)
	assert.False(t, st.Seeded)
}

func TestRun_CountsRuns(t *testing.T) {
	before := metrics.Get("runs")
	var start int64
	if before != nil {
		start = before.(interface{ Value() int64 }).Value()
	}
	logger, _ := test.NewNullLogger()
	New(nil, nil, logger).Run(context.Background())

	after := metrics.Get("runs").(interface{ Value() int64 }).Value()
	assert.Equal(t, start+1, after)
}

func TestSeedOptionsFromConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	t.Setenv("SEED_ROLES", "Employee, Adjuster ,")
	t.Setenv("PASSWORD_REQUIRE_SYMBOL", "true")
	cfg, err := config.Load()
	require.NoError(t, err)

	opts := SeedOptions(cfg)
	assert.Equal(t, []string{"Employee", "Adjuster"}, opts.Roles)
	assert.Equal(t, "admin@example.com", opts.AdminEmail)
	assert.Equal(t, "Admin@123", opts.AdminPassword)
	assert.Equal(t, "Employee", opts.DefaultRole)

	p := PasswordPolicy(cfg)
	assert.Equal(t, 6, p.RequiredLength)
	assert.True(t, p.RequireNonAlphanumeric)
	assert.NoError(t, p.Validate("Admin@123"))
}

// Package bootstrap prepares the database once per process before traffic is served.
// It never stops startup: migration and seed failures are logged and reported in
// the returned Status.
package bootstrap

import (
	"context"
	"expvar"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/seed"
)

// FailureMessage is logged whenever migration or seeding fails.
const FailureMessage = "An error occurred while migrating or initializing the database."

type Migrator interface {
	Up(ctx context.Context) error
}

type Seeder interface {
	Seed(ctx context.Context) seed.Report
}

var metrics = expvar.NewMap("bootstrap")

// Status describes what one Run achieved.
type Status struct {
	Migrated  bool
	Seeded    bool
	Report    seed.Report
	Err       error
	Duration  time.Duration
	Recovered bool
}

// OK reports whether migration and seeding both completed without failures.
func (s Status) OK() bool {
	return s.Err == nil
}

type Orchestrator struct {
	migrator Migrator
	seeder   Seeder
	logger   *logrus.Logger
}

// New builds an orchestrator. A nil seeder means seeding is disabled.
func New(migrator Migrator, seeder Seeder, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{migrator: migrator, seeder: seeder, logger: logger}
}

// Run applies pending migrations and then seeds. Seeding is skipped when
// migration fails since the schema cannot be trusted. Run does not return an error.
func (o *Orchestrator) Run(ctx context.Context) (st Status) {
	start := time.Now()
	metrics.Add("runs", 1)

	defer func() {
		if r := recover(); r != nil {
			st.Recovered = true
			st.Err = fmt.Errorf("bootstrap panic: %v", r)
			metrics.Add("panics", 1)
			o.logger.WithField("panic", r).Error(FailureMessage)
		}
		st.Duration = time.Since(start)
		o.logger.WithFields(logrus.Fields{
			"migrated":    st.Migrated,
			"seeded":      st.Seeded,
			"ok":          st.OK(),
			"duration_ms": st.Duration.Milliseconds(),
		}).Info("database bootstrap finished")
	}()

	if o.migrator != nil {
		if err := o.migrator.Up(ctx); err != nil {
			st.Err = fmt.Errorf("migrate: %w", err)
			metrics.Add("migrations_failed", 1)
			o.logger.WithError(err).Error(FailureMessage)
			return st
		}
	}
	st.Migrated = true

	if o.seeder == nil {
		o.logger.Info("seeding disabled")
		return st
	}
	st.Report = o.seeder.Seed(ctx)
	st.Seeded = true
	record(st.Report)
	if err := st.Report.Err(); err != nil {
		st.Err = fmt.Errorf("seed: %w", err)
		o.logger.WithError(err).Error(FailureMessage)
	}
	return st
}

func record(rep seed.Report) {
	metrics.Add("seed_runs", 1)
	metrics.Add("roles_created", int64(rep.Count(seed.KindRole, seed.StateCreated)))
	metrics.Add("users_created", int64(rep.Count(seed.KindUser, seed.StateCreated)))
	if rep.Failed() {
		metrics.Add("seed_failures", 1)
	}
}

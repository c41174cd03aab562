// Package seed guarantees the baseline authorization data: a fixed set of roles
// and one administrator account. Every step checks for existence first, so running
// it against an already seeded store changes nothing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/entity"
)

const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "Admin@123"
	DefaultRole          = "Employee"
)

// DefaultRoles is the role set ensured when Options.Roles is empty.
var DefaultRoles = []string{"Employee", "Adjuster"}

// RoleStore is the subset of the role manager the seeder needs.
type RoleStore interface {
	RoleExists(ctx context.Context, name string) (bool, error)
	CreateRole(ctx context.Context, name string) error
}

// UserStore is the subset of the user manager the seeder needs.
// FindByEmail returns (nil, nil) when the email is unknown.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, u *entity.User, password string) error
	AddToRole(ctx context.Context, u *entity.User, role string) error
}

type Options struct {
	Roles         []string
	AdminEmail    string
	AdminPassword string
	DefaultRole   string
}

func (o Options) withDefaults() Options {
	if len(o.Roles) == 0 {
		o.Roles = DefaultRoles
	}
	if o.AdminEmail == "" {
		o.AdminEmail = DefaultAdminEmail
	}
	if o.AdminPassword == "" {
		o.AdminPassword = DefaultAdminPassword
	}
	if o.DefaultRole == "" {
		o.DefaultRole = DefaultRole
	}
	return o
}

type Seeder struct {
	roles  RoleStore
	users  UserStore
	opts   Options
	logger *logrus.Logger
}

func New(roles RoleStore, users UserStore, opts Options, logger *logrus.Logger) *Seeder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Seeder{roles: roles, users: users, opts: opts.withDefaults(), logger: logger}
}

// Seed ensures the roles, then the default user. User seeding always runs after
// role seeding has finished, even when some roles failed.
func (s *Seeder) Seed(ctx context.Context) Report {
	start := time.Now()
	rep := Report{
		Roles: s.EnsureRoles(ctx, s.opts.Roles),
		User:  s.EnsureDefaultUser(ctx, s.opts.AdminEmail, s.opts.AdminPassword, s.opts.DefaultRole),
	}
	s.logger.WithFields(logrus.Fields{
		"roles_created": rep.Count(KindRole, StateCreated),
		"roles_skipped": rep.Count(KindRole, StateSkipped),
		"user_state":    rep.User.State,
		"failed":        rep.Failed(),
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("seeding finished")
	return rep
}

// EnsureRoles creates each absent role. A failure on one role does not stop the rest.
func (s *Seeder) EnsureRoles(ctx context.Context, names []string) []Outcome {
	out := make([]Outcome, 0, len(names))
	for _, name := range names {
		out = append(out, s.ensureRole(ctx, name))
	}
	return out
}

func (s *Seeder) ensureRole(ctx context.Context, name string) Outcome {
	o := Outcome{Kind: KindRole, Name: name}
	entry := s.logger.WithField("role", name)

	exists, err := s.roles.RoleExists(ctx, name)
	if err != nil {
		o.State, o.Err = StateCheckFailed, fmt.Errorf("check role %q: %w", name, err)
		entry.WithError(err).Error("role existence check failed")
		return o
	}
	if exists {
		o.State = StateSkipped
		entry.Debug("role already exists")
		return o
	}
	if err := s.roles.CreateRole(ctx, name); err != nil {
		o.State, o.Err = StateCreateFailed, fmt.Errorf("create role %q: %w", name, err)
		logFailure(entry, "role creation failed", err)
		return o
	}
	o.State = StateCreated
	entry.Info("role created")
	return o
}

// EnsureDefaultUser creates the account when no user has email, confirmed and in
// role. An existing user is never touched.
func (s *Seeder) EnsureDefaultUser(ctx context.Context, email, password, role string) Outcome {
	o := Outcome{Kind: KindUser, Name: email}
	entry := s.logger.WithField("email", email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		o.State, o.Err = StateCheckFailed, fmt.Errorf("find user %q: %w", email, err)
		entry.WithError(err).Error("default user lookup failed")
		return o
	}
	if existing != nil {
		o.State = StateSkipped
		entry.Debug("default user already exists")
		return o
	}

	u := &entity.User{
		UserName:       email,
		Email:          email,
		EmailConfirmed: true,
	}
	if err := s.users.CreateUser(ctx, u, password); err != nil {
		o.State, o.Err = StateCreateFailed, fmt.Errorf("create user %q: %w", email, err)
		logFailure(entry, "default user creation failed", err)
		return o
	}
	entry = entry.WithField("user_id", u.ID)
	entry.Info("default user created")

	if err := s.users.AddToRole(ctx, u, role); err != nil {
		o.State, o.Err = StateRoleAssignFailed, fmt.Errorf("add user %q to role %q: %w", email, role, err)
		logFailure(entry.WithField("role", role), "default user role assignment failed", err)
		return o
	}
	o.State = StateCreated
	entry.WithField("role", role).Info("default user assigned to role")
	return o
}

// logFailure writes one record per identity error so each code and description
// is searchable on its own. Other errors are logged once.
func logFailure(entry *logrus.Entry, msg string, err error) {
	details := application.ErrorDetails(err)
	if len(details) == 0 {
		entry.WithError(err).Error(msg)
		return
	}
	for _, d := range details {
		entry.WithFields(logrus.Fields{"code": d.Code, "description": d.Description}).Error(msg)
	}
}

type Kind string

const (
	KindRole Kind = "role"
	KindUser Kind = "user"
)

// State is the terminal state of one seeded item.
type State string

const (
	StateCreated          State = "created"
	StateSkipped          State = "skipped"
	StateCheckFailed      State = "check_failed"
	StateCreateFailed     State = "create_failed"
	StateRoleAssignFailed State = "role_assign_failed"
)

// Failed reports whether s is a failure state.
func (s State) Failed() bool {
	switch s {
	case StateCheckFailed, StateCreateFailed, StateRoleAssignFailed:
		return true
	}
	return false
}

type Outcome struct {
	Kind  Kind
	Name  string
	State State
	Err   error
}

// Report is the result of one Seed run.
type Report struct {
	Roles []Outcome
	User  Outcome
}

func (r Report) outcomes() []Outcome {
	return append(append([]Outcome(nil), r.Roles...), r.User)
}

func (r Report) Failed() bool {
	for _, o := range r.outcomes() {
		if o.State.Failed() {
			return true
		}
	}
	return false
}

// Err joins the errors of all failed items, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.outcomes() {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// Count returns how many items of kind ended in state.
func (r Report) Count(kind Kind, state State) int {
	n := 0
	for _, o := range r.outcomes() {
		if o.Kind == kind && o.State == state {
			n++
		}
	}
	return n
}

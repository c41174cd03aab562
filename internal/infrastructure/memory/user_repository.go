package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/repository"
)

// UserRepository keeps users and memberships in memory. Role names are resolved
// through the RoleRepository it was built with.
type UserRepository struct {
	mu          sync.RWMutex
	users       map[string]entity.User          // by id
	memberships map[string]map[string]time.Time // user id -> role id -> assigned at
	roles       *RoleRepository
}

func NewUserRepository(roles *RoleRepository) *UserRepository {
	return &UserRepository{
		users:       make(map[string]entity.User),
		memberships: make(map[string]map[string]time.Time),
		roles:       roles,
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts(u) {
		return repository.ErrConflict
	}
	now := time.Now()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) conflicts(u *entity.User) bool {
	for id, existing := range r.users {
		if id == u.ID {
			continue
		}
		if existing.NormalizedUserName == u.NormalizedUserName || existing.NormalizedEmail == u.NormalizedEmail {
			return true
		}
	}
	return false
}

func (r *UserRepository) find(match func(entity.User) bool) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id })
}

func (r *UserRepository) GetByNormalizedEmail(_ context.Context, normalizedEmail string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.NormalizedEmail == normalizedEmail })
}

func (r *UserRepository) GetByNormalizedUserName(_ context.Context, normalizedUserName string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.NormalizedUserName == normalizedUserName })
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.conflicts(u) {
		return repository.ErrConflict
	}
	u.UpdatedAt = time.Now()
	u.PasswordHash = existing.PasswordHash
	u.CreatedAt = existing.CreatedAt
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) mutate(id string, fn func(*entity.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.mutate(id, func(u *entity.User) { u.PasswordHash = passwordHash })
}

func (r *UserRepository) SetEmailConfirmed(_ context.Context, id string) error {
	return r.mutate(id, func(u *entity.User) { u.EmailConfirmed = true })
}

func (r *UserRepository) List(_ context.Context, limit, offset int) ([]entity.User, error) {
	r.mu.RLock()
	all := make([]entity.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []entity.User{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (r *UserRepository) AddToRole(_ context.Context, userID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return repository.ErrNotFound
	}
	set, ok := r.memberships[userID]
	if !ok {
		set = make(map[string]time.Time)
		r.memberships[userID] = set
	}
	if _, dup := set[roleID]; dup {
		return repository.ErrConflict
	}
	set[roleID] = time.Now()
	return nil
}

func (r *UserRepository) RemoveFromRole(_ context.Context, userID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.memberships[userID]
	if _, ok := set[roleID]; !ok {
		return repository.ErrNotFound
	}
	delete(set, roleID)
	return nil
}

func (r *UserRepository) GetRoleNames(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.memberships[userID]))
	for id := range r.memberships[userID] {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := r.roles.nameByID(id); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

var _ repository.UserRepository = (*UserRepository)(nil)

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

// RoleRepository keeps roles in memory. It enforces the same uniqueness as the
// roles_normalized_name_key constraint.
type RoleRepository struct {
	mu    sync.RWMutex
	roles map[string]entity.Role // by id
}

func NewRoleRepository() *RoleRepository {
	return &RoleRepository{roles: make(map[string]entity.Role)}
}

func (r *RoleRepository) Create(_ context.Context, role *entity.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.NormalizedName == role.NormalizedName {
			return repository.ErrConflict
		}
	}
	now := time.Now()
	role.ID = uuid.NewString()
	role.CreatedAt, role.UpdatedAt = now, now
	r.roles[role.ID] = *role
	return nil
}

func (r *RoleRepository) GetByNormalizedName(_ context.Context, normalizedName string) (*entity.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, role := range r.roles {
		if role.NormalizedName == normalizedName {
			out := role
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *RoleRepository) List(_ context.Context) ([]entity.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *RoleRepository) nameByID(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[id]
	return role.Name, ok
}

var _ repository.RoleRepository = (*RoleRepository)(nil)

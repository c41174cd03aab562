package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/repository"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) Create(ctx context.Context, role *entity.Role) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, normalized_name)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, role.Name, role.NormalizedName)
	if err := row.Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *RoleRepository) GetByNormalizedName(ctx context.Context, normalizedName string) (*entity.Role, error) {
	role := &entity.Role{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, normalized_name, created_at, updated_at
		FROM roles
		WHERE normalized_name = $1
	`, normalizedName).Scan(&role.ID, &role.Name, &role.NormalizedName, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return role, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]entity.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, normalized_name, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Role, error) {
		var role entity.Role
		err := row.Scan(&role.ID, &role.Name, &role.NormalizedName, &role.CreatedAt, &role.UpdatedAt)
		return role, err
	})
}

var _ repository.RoleRepository = (*RoleRepository)(nil)

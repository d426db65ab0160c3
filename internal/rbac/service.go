package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stockbar/stockbar/internal/shared"
)

const cacheTTL = 2 * time.Minute

// Service resolves role permissions. Lookups are cached in Redis for a short
// interval so permission checks do not hit PostgreSQL on every request.
type Service struct {
	pool  *pgxpool.Pool
	cache *redis.Client
}

// NewService constructs a Service backed by the provided pool and cache.
func NewService(pool *pgxpool.Pool, cache *redis.Client) *Service {
	return &Service{pool: pool, cache: cache}
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// RolePermissions returns the permission names granted to a role.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	if s.cache != nil {
		if cached, err := s.cache.SMembers(ctx, cacheKey(roleID)).Result(); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	rows, err := s.pool.Query(ctx, `SELECT p.name FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
WHERE rp.role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.cache != nil && len(names) > 0 {
		key := cacheKey(roleID)
		members := make([]any, 0, len(names))
		for _, name := range names {
			members = append(members, name)
		}
		if err := s.cache.SAdd(ctx, key, members...).Err(); err == nil {
			_ = s.cache.Expire(ctx, key, cacheTTL).Err()
		}
	}
	return names, nil
}

// GrantPermission assigns a permission to a role and invalidates the cache.
// Granting an already held permission is a no-op.
func (s *Service) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, permissionID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.ErrNotFound
		}
		return err
	}
	s.invalidate(ctx, roleID)
	return nil
}

// RevokePermission removes a permission from a role and invalidates the cache.
func (s *Service) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM role_permissions WHERE role_id=$1 AND permission_id=$2`, roleID, permissionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	s.invalidate(ctx, roleID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, roleID int64) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, cacheKey(roleID)).Err()
	}
}

func cacheKey(roleID int64) string {
	return fmt.Sprintf("rbac:role:%d", roleID)
}

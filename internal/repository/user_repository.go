package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoria-api/internal/models"
)

const userColumns = `id, role, full_name, COALESCE(career, '') AS career, COALESCE(student_code, '') AS student_code, COALESCE(phone, '') AS phone, COALESCE(email, '') AS email`

// UserRepository provides read access to the users table.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// List returns every user ordered by identifier.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users ORDER BY id", userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return normaliseRoles(users), nil
}

// ListByIDs returns the users matching the given identifiers in a single round trip.
func (r *UserRepository) ListByIDs(ctx context.Context, ids []models.ID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM users WHERE id IN (?) ORDER BY id", userColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build users by ids query: %w", err)
	}
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list users by ids: %w", err)
	}
	return normaliseRoles(users), nil
}

func normaliseRoles(users []models.User) []models.User {
	for i := range users {
		users[i].Role = models.ParseUserRole(string(users[i].Role))
	}
	return users
}

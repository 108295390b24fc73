package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/resolvehq/resolve/internal/models"
)

// UserRepository is the credential store: it is consulted only during
// login and registration, never per protected request.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	// GetByEmail looks a user up by case-insensitive email.
	// Returns (nil, nil) when no user exists.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByID returns (nil, nil) when no user exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type userRepo struct {
	db DB
}

func NewUserRepository(db DB) UserRepository {
	return &userRepo{db: db}
}

const baseSelectUser = `
	SELECT id, name, email, password_hash, role, created_at
	FROM users
`

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Role, u.CreatedAt,
	)
	return err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRow(ctx, baseSelectUser+" WHERE email=$1", strings.ToLower(email))
	return scanUser(row)
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRow(ctx, baseSelectUser+" WHERE id=$1", id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

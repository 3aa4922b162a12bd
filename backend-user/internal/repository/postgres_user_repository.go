package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const usersEmailKey = "users_email_key"

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create inserts the user. Email uniqueness is enforced by the users_email_key constraint.
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, password_hash, admin)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, user.Email, user.PasswordHash, user.Admin).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, usersEmailKey) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user and their saved recipe ids
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmail retrieves a user by exact email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *PostgresUserRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `
		SELECT u.id, u.email, u.password_hash, u.admin, u.created_at, u.updated_at,
		       COALESCE(array_agg(s.recipe_id ORDER BY s.recipe_id) FILTER (WHERE s.recipe_id IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_saved_recipes s ON s.user_id = u.id
		WHERE u.` + where + `
		GROUP BY u.id
	`
	user := &domain.User{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Admin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.SavedRecipeIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ExistsByEmail checks if a user with the given email exists
func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// ExistsByID checks if a user with the given id exists
func (r *PostgresUserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// AddSavedRecipe records recipeID in the user's saved list
func (r *PostgresUserRepository) AddSavedRecipe(ctx context.Context, userID, recipeID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_saved_recipes (user_id, recipe_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, recipe_id) DO NOTHING
	`, userID, recipeID)
	return err
}

// RemoveSavedRecipe removes recipeID from the user's saved list
func (r *PostgresUserRepository) RemoveSavedRecipe(ctx context.Context, userID, recipeID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_saved_recipes WHERE user_id = $1 AND recipe_id = $2`, userID, recipeID)
	return err
}

// RemoveRecipeFromAll removes recipeID from every user's saved list
func (r *PostgresUserRepository) RemoveRecipeFromAll(ctx context.Context, recipeID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_saved_recipes WHERE recipe_id = $1`, recipeID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SetAdmin sets the admin flag for the user with the given email
func (r *PostgresUserRepository) SetAdmin(ctx context.Context, email string, admin bool) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET admin = $2, updated_at = NOW() WHERE email = $1`, email, admin)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

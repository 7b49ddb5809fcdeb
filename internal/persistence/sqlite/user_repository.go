package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/meeting-rooms/internal/persistence"
)

const userColumns = "id, username, email, password_hash, role, created_at, updated_at"

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	pool *ConnectionPool
	now  func() time.Time
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

// CreateUser inserts a new user. Username and email are unique.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	role := user.Role
	if role == "" {
		role = "user"
	}
	now := formatTimestamp(r.now())

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		strings.TrimSpace(user.Username),
		normalizeEmail(user.Email),
		user.PasswordHash,
		role,
		now,
		now,
	)
	return mapError(err)
}

// GetUser retrieves a user by ID
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getBy(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getBy(ctx, "email", normalized)
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getBy(ctx, "username", trimmed)
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (persistence.User, error) {
	var user persistence.User
	var createdAt, updatedAt string

	err := r.pool.DB().QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value,
	).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.User{}, mapError(err)
	}

	if user.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

// normalizeEmail normalizes email addresses for consistent storage and lookup
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package postgres

import (
	"context"
	"database/sql"

	"coursepdf/internal/model"
	"coursepdf/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

func scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. A username collision surfaces as
// repository.ErrDuplicateUsername.
func (r *UserPostgres) Create(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, email, password_hash, created_at
	`
	out, err := scanUser(r.db.QueryRowContext(ctx, q, u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicateUsername
		}
		return nil, err
	}
	return out, nil
}

// FindByID fetches a user by id.
func (r *UserPostgres) FindByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

// FindByUsername fetches a user by username.
func (r *UserPostgres) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, username))
}

// ProfilePostgres is a PostgreSQL implementation of
// repository.ProfileRepository.
type ProfilePostgres struct {
	db *sql.DB
}

// NewProfilePostgres creates a new ProfilePostgres repository.
func NewProfilePostgres(db *sql.DB) *ProfilePostgres {
	return &ProfilePostgres{db: db}
}

var _ repository.ProfileRepository = (*ProfilePostgres)(nil)

func scanProfile(row interface{ Scan(dest ...any) error }) (*model.UserProfile, error) {
	var p model.UserProfile
	if err := row.Scan(&p.UserID, &p.Bio, &p.Institution, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Ensure creates the profile row if absent and returns it. Two concurrent
// first accesses both reach the SELECT: the unique constraint on user_id
// makes the losing INSERT a no-op rather than a duplicate.
func (r *ProfilePostgres) Ensure(ctx context.Context, userID string) (*model.UserProfile, error) {
	const ins = `
		INSERT INTO user_profiles (user_id, bio, institution, created_at)
		VALUES ($1, '', '', now())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, ins, userID); err != nil {
		return nil, err
	}
	const sel = `SELECT user_id, bio, institution, created_at FROM user_profiles WHERE user_id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, sel, userID))
}

// Update rewrites bio and institution.
func (r *ProfilePostgres) Update(ctx context.Context, userID, bio, institution string) (*model.UserProfile, error) {
	const q = `
		UPDATE user_profiles
		SET bio = $2, institution = $3
		WHERE user_id = $1
		RETURNING user_id, bio, institution, created_at
	`
	return scanProfile(r.db.QueryRowContext(ctx, q, userID, bio, institution))
}

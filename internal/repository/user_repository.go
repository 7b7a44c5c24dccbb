package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/civeni-admin/internal/model"
    "github.com/iliyamo/civeni-admin/internal/utils"
)

// ErrUserNotFound is returned when no admin matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserRepo reads and creates dashboard operators (`users`).
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(s rowScanner) (model.AdminUser, error) {
    var u model.AdminUser
    err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return u, ErrUserNotFound
    }
    return u, err
}

// Create hashes password and inserts an active admin.  It returns the new id.
func (r *UserRepo) Create(ctx context.Context, email, password string, cost int) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO users (email, password_hash, role, is_active) VALUES (?,?,?,TRUE)",
        email, hash, model.RoleAdmin)
    if err != nil {
        if isDuplicateKey(err) {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.AdminUser, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    return scanUser(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.AdminUser, error) {
    return scanUser(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a stored account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts a new account. Emails are unique, case-insensitively.
func (s *Store) CreateUser(ctx context.Context, email, displayName, passwordHash string) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		return User{}, wrap("create user", err)
	}
	return u, nil
}

// UserByEmail looks up an account by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(ctx, "user by email",
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
}

// UserByID looks up an account by id.
func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(ctx, "user by id",
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (s *Store) scanUser(ctx context.Context, op, query string, arg any) (User, error) {
	var u User
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &createdAt)
	if err != nil {
		return User{}, wrap(op, err)
	}
	parsed, err := parseTime(createdAt)
	if err != nil {
		return User{}, wrap(op, err)
	}
	u.CreatedAt = parsed
	return u, nil
}

// Package auth manages local accounts and bearer credentials.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/store"
)

const (
	// DefaultTokenTTL is the lifetime of issued credentials.
	DefaultTokenTTL = 24 * time.Hour
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6

	issuer = "newstype"
)

var (
	// ErrAuth is returned for rejected sign-in or sign-up attempts.
	ErrAuth = errors.New("authentication failed")
	// ErrUnauthenticated is returned when a credential is missing or invalid.
	ErrUnauthenticated = errors.New("not signed in")
)

type userStore interface {
	CreateUser(ctx context.Context, email, displayName, passwordHash string) (store.User, error)
	UserByEmail(ctx context.Context, email string) (store.User, error)
	UserByID(ctx context.Context, id string) (store.User, error)
}

// Options configures a Service.
type Options struct {
	Secret []byte
	TTL    time.Duration
}

// Service signs users up and in, and issues and verifies credentials.
type Service struct {
	users  userStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// NewService builds a Service. The secret must not be empty.
func NewService(users userStore, opts Options) (*Service, error) {
	if len(opts.Secret) == 0 {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{users: users, secret: opts.Secret, ttl: ttl, now: time.Now}, nil
}

// SignUp creates an account and returns its identity and credential.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (model.Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return model.Identity{}, "", fmt.Errorf("%w: invalid email address", ErrAuth)
	}
	if len(password) < MinPasswordLength {
		return model.Identity{}, "", fmt.Errorf("%w: password must be at least %d characters", ErrAuth, MinPasswordLength)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Identity{}, "", fmt.Errorf("failed to hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, email, displayName, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.Identity{}, "", fmt.Errorf("%w: an account with this email already exists", ErrAuth)
		}
		return model.Identity{}, "", err
	}
	return s.issueFor(u)
}

// SignIn checks credentials and returns the identity and a fresh credential.
func (s *Service) SignIn(ctx context.Context, email, password string) (model.Identity, string, error) {
	u, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Identity{}, "", fmt.Errorf("%w: invalid email or password", ErrAuth)
		}
		return model.Identity{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return model.Identity{}, "", fmt.Errorf("%w: invalid email or password", ErrAuth)
	}
	return s.issueFor(u)
}

func (s *Service) issueFor(u store.User) (model.Identity, string, error) {
	id := model.Identity{UserID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
	token, err := s.Issue(id)
	if err != nil {
		return model.Identity{}, "", err
	}
	return id, token, nil
}

// Issue signs a credential for id.
func (s *Service) Issue(id model.Identity) (string, error) {
	now := s.now()
	tk, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name:  id.DisplayName,
		Email: id.Email,
	}).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tk, nil
}

// Verify parses a credential and returns the identity it carries.
func (s *Service) Verify(token string) (model.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return model.Identity{}, ErrUnauthenticated
	}
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid || c.Subject == "" {
		return model.Identity{}, ErrUnauthenticated
	}
	return model.Identity{UserID: c.Subject, DisplayName: c.Name, Email: c.Email}, nil
}

// LoadOrCreateSecret reads the signing secret at path, creating a random
// one when the file does not exist.
func LoadOrCreateSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		secret := strings.TrimSpace(string(data))
		if secret != "" {
			return []byte(secret), nil
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := hex.EncodeToString(buf)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create secret dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(secret+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write secret: %w", err)
	}
	return []byte(secret), nil
}

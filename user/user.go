package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHandleExists   = errors.New("user id already taken")
	ErrInvalidHandle  = errors.New("user id must be at least 3 characters")
	ErrInvalidName    = errors.New("username must be at least 2 characters")
	ErrShortPassword  = errors.New("password must be at least 6 characters")
	ErrBadCredentials = errors.New("invalid user id or password")
)

// User is an account. Handle is the public, user-chosen identifier that other
// people type when inviting someone to a trip.
type User struct {
	ID           uuid.UUID `json:"id"`
	Handle       string    `json:"userId"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Repository interface {
	Register(ctx context.Context, u *User) error
	GetByHandle(ctx context.Context, handle string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Search(ctx context.Context, prefix string, limit int) ([]User, error)
}

// NewUser validates the sign-up fields and hashes the password.
func NewUser(handle, username, password string) (*User, error) {
	handle = strings.TrimSpace(handle)
	username = strings.TrimSpace(username)

	if len(handle) < 3 {
		return nil, ErrInvalidHandle
	}
	if len(username) < 2 {
		return nil, ErrInvalidName
	}
	if len(password) < 6 {
		return nil, ErrShortPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	return &User{
		ID:           uuid.New(),
		Handle:       handle,
		Username:     username,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Authenticate looks the handle up and checks the password against its hash.
func Authenticate(ctx context.Context, repo Repository, handle, password string) (*User, error) {
	u, err := repo.GetByHandle(ctx, strings.TrimSpace(handle))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

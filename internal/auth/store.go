package auth

import (
	"context"
	"errors"
	"strings"
)

const (
	RoleCustomer = "customer"

	minPasswordLen = 8
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooShort   = errors.New("password too short")
)

type Customer struct {
	ID    int64
	Email string
	Hash  []byte
	Role  string
}

type Store interface {
	Create(ctx context.Context, email, password string) (Customer, error)
	Verify(ctx context.Context, email, password string) (Customer, error)
	Ping(ctx context.Context) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePassword(password string) string {
	return strings.TrimSpace(password)
}

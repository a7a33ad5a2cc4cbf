package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"
)

// DBPool is the subset of *pgxpool.Pool the store uses.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type PostgresStore struct {
	pool DBPool
}

func NewPostgresStore(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.pool.Ping(ctx)
	})
}

func (s *PostgresStore) Create(ctx context.Context, email, password string) (Customer, error) {
	email = normalizeEmail(email)
	password = normalizePassword(password)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Customer{}, err
	}

	c := Customer{Email: email, Hash: hash, Role: RoleCustomer}
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
			INSERT INTO customers (email, pass_hash, role)
			VALUES ($1, $2, $3)
			RETURNING id
		`, email, hash, c.Role).Scan(&c.ID)
	})
	if isUniqueViolation(err) {
		return Customer{}, ErrEmailExists
	}
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

func (s *PostgresStore) Verify(ctx context.Context, email, password string) (Customer, error) {
	email = normalizeEmail(email)
	password = normalizePassword(password)

	var c Customer
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
			SELECT id, email, pass_hash, role
			FROM customers
			WHERE email = $1
		`, email).Scan(&c.ID, &c.Email, &c.Hash, &c.Role)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrInvalidCredentials
	}
	if err != nil {
		return Customer{}, err
	}

	if err := bcrypt.CompareHashAndPassword(c.Hash, []byte(password)); err != nil {
		return Customer{}, ErrInvalidCredentials
	}

	return c, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}

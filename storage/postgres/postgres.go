// Package postgres implements storage.Repository backed by PostgreSQL.
//
// Accounts and sessions live in two plain tables mirroring the key space of
// the other backends. Record fields are stored as individual columns;
// timestamps stay Unix milliseconds in BIGINT columns so the values are
// byte-for-byte the same wherever they are persisted.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/keygate/storage"
)

// Store implements storage.Repository backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given pgx connection pool.
func NewRepository(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewRepositoryFromDSN creates a connection pool from a DSN string, ensures
// the schema exists, and returns a new Repository.
func NewRepositoryFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewRepository(pool), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) GetAccount(credential string) (*storage.Account, error) {
	var acct storage.Account
	err := s.pool.QueryRow(context.Background(),
		`SELECT role, expiry_days, active, created_at, last_login, created_by, disabled_at, disabled_by
		 FROM accounts WHERE credential = $1`, credential).Scan(
		&acct.Role, &acct.ExpiryDays, &acct.Active, &acct.CreatedAt,
		&acct.LastLogin, &acct.CreatedBy, &acct.DisabledAt, &acct.DisabledBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Store) PutAccount(credential string, account *storage.Account) error {
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO accounts (credential, role, expiry_days, active, created_at, last_login, created_by, disabled_at, disabled_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (credential)
		 DO UPDATE SET role = $2, expiry_days = $3, active = $4, created_at = $5,
		               last_login = $6, created_by = $7, disabled_at = $8, disabled_by = $9`,
		credential, account.Role, account.ExpiryDays, account.Active, account.CreatedAt,
		account.LastLogin, account.CreatedBy, account.DisabledAt, account.DisabledBy)
	return err
}

func (s *Store) Accounts() (map[string]*storage.Account, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT credential, role, expiry_days, active, created_at, last_login, created_by, disabled_at, disabled_by
		 FROM accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*storage.Account)
	for rows.Next() {
		var cred string
		var acct storage.Account
		if err := rows.Scan(&cred, &acct.Role, &acct.ExpiryDays, &acct.Active, &acct.CreatedAt,
			&acct.LastLogin, &acct.CreatedBy, &acct.DisabledAt, &acct.DisabledBy); err != nil {
			return nil, err
		}
		out[cred] = &acct
	}
	return out, rows.Err()
}

func (s *Store) GetSession(token string) (*storage.Session, error) {
	var sess storage.Session
	err := s.pool.QueryRow(context.Background(),
		`SELECT credential, role, tool, created_at, expires_at, last_used
		 FROM sessions WHERE token = $1`, token).Scan(
		&sess.Credential, &sess.Role, &sess.Tool, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastUsed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) PutSession(token string, session *storage.Session) error {
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO sessions (token, credential, role, tool, created_at, expires_at, last_used)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (token)
		 DO UPDATE SET credential = $2, role = $3, tool = $4, created_at = $5, expires_at = $6, last_used = $7`,
		token, session.Credential, session.Role, session.Tool,
		session.CreatedAt, session.ExpiresAt, session.LastUsed)
	return err
}

func (s *Store) DeleteSession(token string) error {
	_, err := s.pool.Exec(context.Background(),
		`DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func (s *Store) Sessions() (map[string]*storage.Session, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT token, credential, role, tool, created_at, expires_at, last_used FROM sessions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*storage.Session)
	for rows.Next() {
		var token string
		var sess storage.Session
		if err := rows.Scan(&token, &sess.Credential, &sess.Role, &sess.Tool,
			&sess.CreatedAt, &sess.ExpiresAt, &sess.LastUsed); err != nil {
			return nil, err
		}
		out[token] = &sess
	}
	return out, rows.Err()
}

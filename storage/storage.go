// Package storage provides the storage abstraction layer for account and
// session records.
package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Account is one entry in the credential table. The credential string itself
// is the repository key and doubles as the account's secret, so records never
// carry it. Storing the secret in the clear is a known defect inherited from
// the data model; nothing in this codebase may log or export these keys.
type Account struct {
	Role       string `json:"role"`
	ExpiryDays int    `json:"expiryDays"`
	Active     bool   `json:"active"`
	CreatedAt  int64  `json:"createdAt"`
	LastLogin  int64  `json:"lastLogin,omitempty"`
	CreatedBy  string `json:"createdBy,omitempty"`
	DisabledAt int64  `json:"disabledAt,omitempty"`
	DisabledBy string `json:"disabledBy,omitempty"`
}

// Session is the server-side state for one issued license session, keyed by
// its opaque token. Credential is a weak reference: the owning account is
// re-resolved on every check and never cached as authority.
//
// All timestamps are Unix milliseconds, matching the persisted document
// format of the file backend.
type Session struct {
	Credential string `json:"username"`
	Role       string `json:"role"`
	Tool       string `json:"tool"`
	CreatedAt  int64  `json:"createdAt"`
	ExpiresAt  int64  `json:"expiresAt"`
	LastUsed   int64  `json:"lastUsed"`
}

// Repository defines the interface for account and session storage.
//
// Implementations must be safe for concurrent use, but serialization of
// logical read-modify-write operations is the caller's responsibility: the
// validation engine holds its own lock across a read and the subsequent
// persist.
type Repository interface {
	// GetAccount returns the account keyed by credential, or ErrNotFound.
	GetAccount(credential string) (*Account, error)
	// PutAccount creates or replaces the account keyed by credential.
	PutAccount(credential string, account *Account) error
	// Accounts returns every account keyed by credential.
	Accounts() (map[string]*Account, error)

	// GetSession returns the session keyed by token, or ErrNotFound.
	GetSession(token string) (*Session, error)
	// PutSession creates or replaces the session keyed by token.
	PutSession(token string, session *Session) error
	// DeleteSession removes the session keyed by token. Deleting a token
	// that does not exist is not an error.
	DeleteSession(token string) error
	// Sessions returns every session keyed by token.
	Sessions() (map[string]*Session, error)

	// Close releases any resources held by the backend.
	Close() error
}

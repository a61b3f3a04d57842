// Package memory provides a thread-safe in-memory implementation of storage.Repository.
package memory

import (
	"sync"

	"github.com/jmcleod/keygate/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Records are lost on restart; suitable for tests and ephemeral runs.
type Repository struct {
	mu       sync.RWMutex
	accounts map[string]storage.Account
	sessions map[string]storage.Session
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{
		accounts: make(map[string]storage.Account),
		sessions: make(map[string]storage.Session),
	}
}

func (r *Repository) GetAccount(credential string) (*storage.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[credential]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &acct, nil
}

func (r *Repository) PutAccount(credential string, account *storage.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[credential] = *account
	return nil
}

func (r *Repository) Accounts() (map[string]*storage.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*storage.Account, len(r.accounts))
	for cred, acct := range r.accounts {
		a := acct
		out[cred] = &a
	}
	return out, nil
}

func (r *Repository) GetSession(token string) (*storage.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &sess, nil
}

func (r *Repository) PutSession(token string, session *storage.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[token] = *session
	return nil
}

func (r *Repository) DeleteSession(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

func (r *Repository) Sessions() (map[string]*storage.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*storage.Session, len(r.sessions))
	for token, sess := range r.sessions {
		s := sess
		out[token] = &s
	}
	return out, nil
}

// Close is a no-op for the in-memory backend.
func (r *Repository) Close() error {
	return nil
}

package license

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jmcleod/keygate/internal/util"
	"github.com/jmcleod/keygate/storage"
)

// AccountSummary is the admin-facing view of one account. The credential is
// the record's only identifier, so listing unavoidably exposes it; that is a
// structural property of the flat table, not something added here.
type AccountSummary struct {
	Credential string
	Role       string
	ExpiryDays int
	Active     bool
	CreatedAt  int64
	LastLogin  int64
}

// requireAdmin authorizes an admin operation. Only the role is consulted;
// the active flag of the admin credential is intentionally not re-verified
// per request, matching the historical behaviour.
//
// Callers hold e.mu.
func (e *Engine) requireAdmin(admin string) error {
	acct, err := e.repo.GetAccount(admin)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("looking up admin credential: %w", err)
	}
	if acct.Role != RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}

// AddAccount creates a new account. The new credential must not already
// exist; expiryDays of zero or less selects the default policy.
func (e *Engine) AddAccount(admin, credential, role string, expiryDays int) (*AccountSummary, error) {
	admin = util.Normalize(admin)
	credential = util.Normalize(credential)
	if admin == "" || credential == "" || role == "" {
		return nil, fmt.Errorf("%w: admin credential, new credential and role", ErrMissingParameter)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(admin); err != nil {
		return nil, err
	}

	if _, err := e.repo.GetAccount(credential); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("checking for existing credential: %w", err)
	}

	if expiryDays <= 0 {
		expiryDays = e.defaultExpiryDays
	}
	acct := &storage.Account{
		Role:       role,
		ExpiryDays: expiryDays,
		Active:     true,
		CreatedAt:  e.nowMillis(),
		CreatedBy:  admin,
	}
	if err := e.repo.PutAccount(credential, acct); err != nil {
		return nil, fmt.Errorf("persisting account: %w", err)
	}

	return &AccountSummary{
		Credential: credential,
		Role:       acct.Role,
		ExpiryDays: acct.ExpiryDays,
		Active:     true,
		CreatedAt:  acct.CreatedAt,
	}, nil
}

// DisableAccount deactivates an account and deletes every session it owns.
// Admin accounts are never disableable through this path.
func (e *Engine) DisableAccount(admin, credential string) error {
	admin = util.Normalize(admin)
	credential = util.Normalize(credential)
	if admin == "" || credential == "" {
		return fmt.Errorf("%w: admin credential and target credential", ErrMissingParameter)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(admin); err != nil {
		return err
	}

	acct, err := e.repo.GetAccount(credential)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up target account: %w", err)
	}
	if acct.Role == RoleAdmin {
		return ErrProtectedRole
	}

	acct.Active = false
	acct.DisabledAt = e.nowMillis()
	acct.DisabledBy = admin
	if err := e.repo.PutAccount(credential, acct); err != nil {
		return fmt.Errorf("persisting account: %w", err)
	}

	// Cascade: outstanding sessions for this credential die with it.
	sessions, err := e.repo.Sessions()
	if err != nil {
		return fmt.Errorf("listing sessions for cascade delete: %w", err)
	}
	for token, sess := range sessions {
		if sess.Credential != credential {
			continue
		}
		if err := e.repo.DeleteSession(token); err != nil {
			return fmt.Errorf("cascade-deleting session: %w", err)
		}
	}
	return nil
}

// ListAccounts returns every account, sorted by credential for stable output.
func (e *Engine) ListAccounts(admin string) ([]AccountSummary, error) {
	admin = util.Normalize(admin)
	if admin == "" {
		return nil, fmt.Errorf("%w: admin credential", ErrMissingParameter)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(admin); err != nil {
		return nil, err
	}

	accounts, err := e.repo.Accounts()
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	out := make([]AccountSummary, 0, len(accounts))
	for cred, acct := range accounts {
		out = append(out, AccountSummary{
			Credential: cred,
			Role:       acct.Role,
			ExpiryDays: acct.ExpiryDays,
			Active:     acct.Active,
			CreatedAt:  acct.CreatedAt,
			LastLogin:  acct.LastLogin,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Credential < out[j].Credential })
	return out, nil
}

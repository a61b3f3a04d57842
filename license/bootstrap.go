package license

import (
	"fmt"

	"github.com/jmcleod/keygate/storage"
)

// Bootstrap seeds the sample credential set on first run. It is a no-op when
// the account collection already holds any record, so a restart never
// resurrects accounts an operator has since replaced.
func (e *Engine) Bootstrap() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.repo.Accounts()
	if err != nil {
		return fmt.Errorf("checking for existing accounts: %w", err)
	}
	if len(accounts) > 0 {
		return nil
	}

	now := e.nowMillis()
	seed := map[string]*storage.Account{
		"admin":   {Role: RoleAdmin, ExpiryDays: 365, Active: true, CreatedAt: now},
		"user123": {Role: "user", ExpiryDays: 30, Active: true, CreatedAt: now},
		"demo":    {Role: "demo", ExpiryDays: 1, Active: true, CreatedAt: now},
	}
	for cred, acct := range seed {
		if err := e.repo.PutAccount(cred, acct); err != nil {
			return fmt.Errorf("seeding account: %w", err)
		}
	}
	return nil
}

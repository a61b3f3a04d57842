// Package license implements the credential and session lifecycle: issuing
// session tokens against the credential table, revalidating them, and the
// admin operations over the same store.
//
// The credential table is flat: the secret string is both identifier and
// key, with no separate user identity. That layout (and its plaintext
// storage) is inherited from the data model this service replaces and is
// reproduced deliberately; nothing here may log or export raw credentials.
package license

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmcleod/keygate/internal/util"
	"github.com/jmcleod/keygate/storage"
)

const (
	// RoleAdmin is the only role with special privilege.
	RoleAdmin = "admin"

	// DefaultExpiryDays applies when an account carries no expiry policy.
	DefaultExpiryDays = 7

	// DefaultTool labels sessions whose caller did not identify itself.
	DefaultTool = "unknown"

	dayMillis = 24 * 60 * 60 * 1000
)

// Revalidation reasons, returned as soft results so client tools can degrade
// gracefully instead of aborting.
const (
	ReasonSessionNotFound = "session not found"
	ReasonLicenseExpired  = "license expired"
	ReasonAccountDisabled = "account disabled"
)

// Engine is the validation state machine over a storage.Repository.
//
// Every logical operation runs under a single mutex covering the read and
// the subsequent persist, so concurrent authenticates, revalidations, and
// admin mutations observe a consistent serialization.
type Engine struct {
	mu                sync.Mutex
	repo              storage.Repository
	now               func() time.Time
	defaultExpiryDays int
}

// Option configures the Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDefaultExpiryDays overrides the default expiry policy.
func WithDefaultExpiryDays(days int) Option {
	return func(e *Engine) { e.defaultExpiryDays = days }
}

// NewEngine creates an Engine over the given repository.
func NewEngine(repo storage.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:              repo,
		now:               time.Now,
		defaultExpiryDays: DefaultExpiryDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) nowMillis() int64 {
	return e.now().UnixMilli()
}

// Grant is the result of a successful Authenticate.
type Grant struct {
	SessionToken string
	Role         string
	ExpiryDays   int
}

// Authenticate checks a credential and, if it resolves to an active account,
// mints a session valid for the account's expiry policy. It fails closed: any
// storage error aborts without minting.
func (e *Engine) Authenticate(credential, tool string) (*Grant, error) {
	credential = util.Normalize(credential)
	if credential == "" {
		return nil, fmt.Errorf("%w: credential", ErrMissingParameter)
	}
	if tool == "" {
		tool = DefaultTool
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	acct, err := e.repo.GetAccount(credential)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnknownCredential
	}
	if err != nil {
		return nil, fmt.Errorf("looking up credential: %w", err)
	}
	if !acct.Active {
		return nil, ErrAccountDisabled
	}

	expiryDays := acct.ExpiryDays
	if expiryDays <= 0 {
		expiryDays = e.defaultExpiryDays
	}

	token, err := util.SessionToken()
	if err != nil {
		return nil, err
	}

	now := e.nowMillis()
	sess := &storage.Session{
		Credential: credential,
		Role:       acct.Role,
		Tool:       tool,
		CreatedAt:  now,
		ExpiresAt:  now + int64(expiryDays)*dayMillis,
		LastUsed:   now,
	}
	if err := e.repo.PutSession(token, sess); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	acct.LastLogin = now
	if err := e.repo.PutAccount(credential, acct); err != nil {
		return nil, fmt.Errorf("persisting account: %w", err)
	}

	return &Grant{SessionToken: token, Role: acct.Role, ExpiryDays: expiryDays}, nil
}

// Status is the result of a Revalidate. It is always populated, including
// when the check could not be completed (Limited).
type Status struct {
	Valid         bool
	Reason        string // set when Valid is false
	Role          string
	ExpiresAt     int64 // Unix milliseconds
	DaysRemaining int
	Limited       bool // check degraded by a storage failure
}

// Revalidate decides whether a session token still grants a valid license.
// Sessions found expired, or whose owning account is gone or inactive, are
// deleted on the spot.
//
// Revalidate fails open: a storage failure yields Valid=true with Limited
// set, so an infrastructure hiccup never interrupts a running client tool.
// The suppressed error is returned alongside for logging; it is nil for
// every ordinary outcome.
func (e *Engine) Revalidate(token string) (*Status, error) {
	if token == "" {
		return &Status{Valid: false, Reason: ReasonSessionNotFound}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.repo.GetSession(token)
	if errors.Is(err, storage.ErrNotFound) {
		return &Status{Valid: false, Reason: ReasonSessionNotFound}, nil
	}
	if err != nil {
		return e.limitedStatus(), fmt.Errorf("looking up session: %w", err)
	}

	now := e.nowMillis()
	if sess.ExpiresAt <= now {
		if err := e.repo.DeleteSession(token); err != nil {
			return e.limitedStatus(), fmt.Errorf("deleting expired session: %w", err)
		}
		return &Status{Valid: false, Reason: ReasonLicenseExpired}, nil
	}

	acct, err := e.repo.GetAccount(sess.Credential)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return e.limitedStatus(), fmt.Errorf("looking up account: %w", err)
	}
	if acct == nil || !acct.Active {
		if err := e.repo.DeleteSession(token); err != nil {
			return e.limitedStatus(), fmt.Errorf("deleting orphaned session: %w", err)
		}
		return &Status{Valid: false, Reason: ReasonAccountDisabled}, nil
	}

	sess.LastUsed = now
	if err := e.repo.PutSession(token, sess); err != nil {
		return e.limitedStatus(), fmt.Errorf("persisting session: %w", err)
	}

	return &Status{
		Valid:         true,
		Role:          sess.Role,
		ExpiresAt:     sess.ExpiresAt,
		DaysRemaining: daysRemaining(sess.ExpiresAt, now),
	}, nil
}

func (e *Engine) limitedStatus() *Status {
	return &Status{Valid: true, Limited: true}
}

// Logout removes a session. Unknown tokens are not an error.
func (e *Engine) Logout(token string) error {
	if token == "" {
		return fmt.Errorf("%w: session token", ErrMissingParameter)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.DeleteSession(token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// daysRemaining rounds up, so a license in its final partial day still
// reports one day left.
func daysRemaining(expiresAt, now int64) int {
	return int((expiresAt - now + dayMillis - 1) / dayMillis)
}

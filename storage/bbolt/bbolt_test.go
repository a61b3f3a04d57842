package bbolt

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmcleod/keygate/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keygate-test.db")
	s, err := NewRepositoryFromFile(path, nil)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBBoltStorage(t *testing.T) {
	s := newTestStore(t)

	t.Run("AccountRoundTrip", func(t *testing.T) {
		acct := &storage.Account{Role: "admin", ExpiryDays: 365, Active: true, CreatedAt: 42}
		if err := s.PutAccount("admin", acct); err != nil {
			t.Fatalf("PutAccount failed: %v", err)
		}
		got, err := s.GetAccount("admin")
		if err != nil {
			t.Fatalf("GetAccount failed: %v", err)
		}
		if got.Role != "admin" || got.ExpiryDays != 365 || got.CreatedAt != 42 {
			t.Errorf("unexpected account: %+v", got)
		}
	})

	t.Run("MissingRecords", func(t *testing.T) {
		if _, err := s.GetAccount("ghost"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetSession("ghost"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SessionDelete", func(t *testing.T) {
		sess := &storage.Session{Credential: "admin", Role: "admin", ExpiresAt: 99}
		if err := s.PutSession("tok-1", sess); err != nil {
			t.Fatalf("PutSession failed: %v", err)
		}
		if err := s.DeleteSession("tok-1"); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
		if _, err := s.GetSession("tok-1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestBBoltStorageSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keygate-test.db")
	s, err := NewRepositoryFromFile(path, nil)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	acct := &storage.Account{Role: "user", ExpiryDays: 30, Active: true, CreatedAt: 7}
	if err := s.PutAccount("user123", acct); err != nil {
		t.Fatalf("PutAccount failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := NewRepositoryFromFile(path, nil)
	if err != nil {
		t.Fatalf("could not reopen db: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetAccount("user123")
	if err != nil {
		t.Fatalf("GetAccount after reopen failed: %v", err)
	}
	if got.ExpiryDays != 30 {
		t.Errorf("expected expiryDays 30 after reopen, got %d", got.ExpiryDays)
	}
}

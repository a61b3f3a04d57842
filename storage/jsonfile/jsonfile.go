// Package jsonfile implements storage.Repository as two whole-file JSON
// documents: one mapping credential to account, one mapping token to session.
//
// Every mutation rewrites the affected document completely. This is the
// persistence layout of the service keygate replaces, kept so existing
// users.json / sessions.json files remain usable as-is.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmcleod/keygate/storage"
)

const (
	accountsFile = "users.json"
	sessionsFile = "sessions.json"
)

// Store implements storage.Repository over two JSON documents in a directory.
type Store struct {
	mu          sync.Mutex
	accountPath string
	sessionPath string
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository storing its documents under dir,
// creating empty documents for any that do not exist yet.
func NewRepository(dir string) (*Store, error) {
	s := &Store{
		accountPath: filepath.Join(dir, accountsFile),
		sessionPath: filepath.Join(dir, sessionsFile),
	}
	for _, path := range []string{s.accountPath, s.sessionPath} {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := writeDoc(path, map[string]any{}); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, fmt.Errorf("checking %s: %w", path, err)
		}
	}
	return s, nil
}

func readDoc[T any](path string) (map[string]*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc := make(map[string]*T)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return doc, nil
}

// writeDoc rewrites the document through a temp file and rename so a crash
// mid-write cannot leave a truncated document behind.
func writeDoc(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func (s *Store) GetAccount(credential string) (*storage.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := readDoc[storage.Account](s.accountPath)
	if err != nil {
		return nil, err
	}
	acct, ok := doc[credential]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return acct, nil
}

func (s *Store) PutAccount(credential string, account *storage.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := readDoc[storage.Account](s.accountPath)
	if err != nil {
		return err
	}
	doc[credential] = account
	return writeDoc(s.accountPath, doc)
}

func (s *Store) Accounts() (map[string]*storage.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readDoc[storage.Account](s.accountPath)
}

func (s *Store) GetSession(token string) (*storage.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := readDoc[storage.Session](s.sessionPath)
	if err != nil {
		return nil, err
	}
	sess, ok := doc[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return sess, nil
}

func (s *Store) PutSession(token string, session *storage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := readDoc[storage.Session](s.sessionPath)
	if err != nil {
		return err
	}
	doc[token] = session
	return writeDoc(s.sessionPath, doc)
}

func (s *Store) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := readDoc[storage.Session](s.sessionPath)
	if err != nil {
		return err
	}
	if _, ok := doc[token]; !ok {
		return nil
	}
	delete(doc, token)
	return writeDoc(s.sessionPath, doc)
}

func (s *Store) Sessions() (map[string]*storage.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readDoc[storage.Session](s.sessionPath)
}

// Close is a no-op; documents are flushed on every write.
func (s *Store) Close() error {
	return nil
}

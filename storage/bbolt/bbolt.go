// Package bbolt provides a BBolt-backed storage repository.
package bbolt

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/keygate/storage"
)

var (
	accountsBucket = []byte("accounts")
	sessionsBucket = []byte("sessions")
)

// Store implements storage.Repository backed by a BBolt database, with one
// bucket per collection and JSON-encoded records.
type Store struct {
	db *bbolt.DB
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given BBolt database.
func NewRepository(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{accountsBucket, sessionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// NewRepositoryFromFile opens a BBolt database at the given path and returns
// a new Repository.
func NewRepositoryFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewRepository(db)
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(bucket []byte, key string, v any) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(data, v)
	})
}

func (s *Store) put(bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *Store) GetAccount(credential string) (*storage.Account, error) {
	var acct storage.Account
	if err := s.get(accountsBucket, credential, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Store) PutAccount(credential string, account *storage.Account) error {
	return s.put(accountsBucket, credential, account)
}

func (s *Store) Accounts() (map[string]*storage.Account, error) {
	out := make(map[string]*storage.Account)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(accountsBucket).ForEach(func(k, v []byte) error {
			var acct storage.Account
			if err := json.Unmarshal(v, &acct); err != nil {
				return fmt.Errorf("decoding account %q: %w", k, err)
			}
			out[string(k)] = &acct
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetSession(token string) (*storage.Session, error) {
	var sess storage.Session
	if err := s.get(sessionsBucket, token, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) PutSession(token string, session *storage.Session) error {
	return s.put(sessionsBucket, token, session)
}

func (s *Store) DeleteSession(token string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(token))
	})
}

func (s *Store) Sessions() (map[string]*storage.Session, error) {
	out := make(map[string]*storage.Session)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(k, v []byte) error {
			var sess storage.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return fmt.Errorf("decoding session %q: %w", k, err)
			}
			out[string(k)] = &sess
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

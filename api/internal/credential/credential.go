// Package credential keeps the Gemini API key in a small local badger store.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Name is the fixed slot the key lives under.
const Name = "gemini-api-key"

type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store in dir.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir))
}

func open(opts badger.Options) (*Store, error) {
	opts = opts.
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored key, or "" when none was saved.
func (s *Store) Load() (string, error) {
	var val string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(Name))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = string(v)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	return val, err
}

// Save replaces the stored key. Saving an empty key clears the slot.
func (s *Store) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.Clear()
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(Name), []byte(key))
	})
}

func (s *Store) Clear() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(Name))
	})
}

// Resolver returns a provider that prefers the stored key and falls back to
// the configured one. The store may be nil.
func Resolver(s *Store, configured string) func() (string, error) {
	configured = strings.TrimSpace(configured)
	return func() (string, error) {
		if s != nil {
			key, err := s.Load()
			if err != nil {
				return "", err
			}
			if key != "" {
				return key, nil
			}
		}
		return configured, nil
	}
}

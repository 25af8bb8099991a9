// Package store keeps the ledger of files already extracted by the watch
// command, so a restart or a sweep does not redo identical content.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const entryPrefix = "doc:"

// Store wraps the BadgerDB ledger
type Store struct {
	badger *badger.DB
	ttl    time.Duration
}

type Options struct {
	// Path is the ledger directory; empty means in-memory.
	Path string
	// TTL expires entries so a file can be re-extracted after vocabulary
	// changes; 0 keeps them forever.
	TTL time.Duration
}

// New opens (or creates) the ledger
func New(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)
	if opts.Path == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{badger: db, ttl: opts.TTL}, nil
}

func (s *Store) Close() error {
	return s.badger.Close()
}

// HashContent is the ledger key of a file's bytes.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the entry for hash. A missing entry is not an error.
func (s *Store) Get(hash string) (*Entry, bool, error) {
	var entry Entry
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(entryPrefix + hash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return FromJSON(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read ledger entry: %w", err)
	}
	return &entry, true, nil
}

// Put records an extracted file, replacing any previous entry.
func (s *Store) Put(entry Entry) error {
	if entry.Hash == "" {
		return fmt.Errorf("ledger entry without hash")
	}
	if entry.ProcessedAt.IsZero() {
		entry.ProcessedAt = time.Now()
	}
	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(entryPrefix+entry.Hash), ToJSON(entry))
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete forgets hash so the next sweep extracts it again.
func (s *Store) Delete(hash string) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(entryPrefix + hash))
	})
}

// List returns the most recently processed entries first, at most limit
// (0 for all).
func (s *Store) List(limit int) ([]Entry, error) {
	var entries []Entry
	err := s.badger.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return FromJSON(val, &entry)
			}); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ProcessedAt.After(entries[j].ProcessedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

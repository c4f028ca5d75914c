// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/watchly/internal/config"
)

const (
	closeTimeout = 30 * time.Second

	// updateAttempts bounds Update retries on transaction conflicts.
	updateAttempts = 8
)

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db           *badger.DB
	discardRatio float64
	logger       zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store described by cfg.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(cfg config.StoreConfig, logger zerolog.Logger) (*BadgerStore, error) {
	logger = logger.With().Str("component", "store").Logger()

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = &badgerLogger{logger: logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	ratio := cfg.GCDiscardRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}

	logger.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Store opened")

	return &BadgerStore{db: db, discardRatio: ratio, logger: logger}, nil
}

// OpenInMemory opens a throwaway in-memory store. Used by tests.
func OpenInMemory() (*BadgerStore, error) {
	return Open(config.StoreConfig{InMemory: true, GCDiscardRatio: 0.5}, zerolog.Nop())
}

func (s *BadgerStore) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Get returns a copy of the value stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set atomically replaces the value under key.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	})
}

// Delete removes key.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

// Update runs fn inside a read-write transaction. Badger tracks the read of
// key, so a concurrent commit to it fails this one with ErrConflict and fn is
// re-run against the newer value.
func (s *BadgerStore) Update(ctx context.Context, key string, fn func(value []byte, found bool) (*Mutation, error)) error {
	for attempt := 1; ; attempt++ {
		if err := s.checkOpen(ctx); err != nil {
			return err
		}

		err := s.db.Update(func(txn *badger.Txn) error {
			var (
				value []byte
				found bool
			)
			item, err := txn.Get([]byte(key))
			switch {
			case err == nil:
				value, err = item.ValueCopy(nil)
				if err != nil {
					return fmt.Errorf("get %s: %w", key, err)
				}
				found = true
			case !errors.Is(err, badger.ErrKeyNotFound):
				return fmt.Errorf("get %s: %w", key, err)
			}

			m, err := fn(value, found)
			if err != nil || m == nil {
				return err
			}
			if m.Delete {
				if err := txn.Delete([]byte(key)); err != nil {
					return fmt.Errorf("delete %s: %w", key, err)
				}
				return nil
			}
			e := badger.NewEntry([]byte(key), m.Value)
			if m.TTL > 0 {
				e = e.WithTTL(m.TTL)
			}
			if err := txn.SetEntry(e); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
			return nil
		})
		if errors.Is(err, badger.ErrConflict) && attempt < updateAttempts {
			continue
		}
		return err
	}
}

// Scan iterates every key with prefix inside one read snapshot.
func (s *BadgerStore) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := string(item.KeyCopy(nil))
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrStopScan) {
		return nil
	}
	return err
}

// List returns up to limit entries with prefix that sort after the given key.
func (s *BadgerStore) List(ctx context.Context, prefix, after string, limit int) ([]Entry, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		start := opts.Prefix
		if after != "" {
			start = []byte(after)
		}
		for it.Seek(start); it.ValidForPrefix(opts.Prefix) && len(entries) < limit; it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			if key == after {
				continue
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", key, err)
			}
			entries = append(entries, Entry{Key: key, Value: value})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// RunGC reclaims value log space until badger reports nothing left to rewrite.
func (s *BadgerStore) RunGC() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if s.db.Opts().InMemory {
		return nil
	}

	rewrites := 0
	for {
		err := s.db.RunValueLogGC(s.discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
		rewrites++
	}
	s.logger.Debug().Int("rewrites", rewrites).Msg("Value log GC finished")
	return nil
}

// Close flushes and closes the database, giving up after closeTimeout.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		s.logger.Info().Msg("Store closed")
		return nil
	case <-time.After(closeTimeout):
		return fmt.Errorf("badgerdb close timeout after %v", closeTimeout)
	}
}

// badgerLogger routes badger's internal logging into zerolog. Badger is
// chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(trimNewline(format), args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(trimNewline(format), args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(trimNewline(format), args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(trimNewline(format), args...)
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}

// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package store provides the persistent key-value store shared by the
// credential vault and the catalog cache.
//
// Every write is a single-key atomic overwrite with an optional per-key TTL.
// Readers never observe a partially written value. Update gives a caller a
// read-modify-write on one key that no concurrent writer can interleave with.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key does not exist or its TTL has elapsed.
	ErrNotFound = errors.New("key not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")

	// ErrStopScan may be returned from a Scan callback to end iteration early.
	ErrStopScan = errors.New("stop scan")
)

// Mutation is the change an Update callback asks for. A nil *Mutation
// leaves the key untouched.
type Mutation struct {
	Value  []byte
	TTL    time.Duration
	Delete bool
}

// Entry is one key/value pair returned by List.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a key-value store with per-key TTL and prefix iteration.
type Store interface {
	// Get returns a copy of the value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set atomically replaces the value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Update reads key and applies the Mutation fn returns in the same
	// transaction. found is false when the key is missing or expired. fn
	// may run more than once if a concurrent write to key wins the race,
	// so it must not have side effects beyond its return values.
	Update(ctx context.Context, key string, fn func(value []byte, found bool) (*Mutation, error)) error

	// Scan calls fn for every key with prefix in key order, inside one
	// consistent read snapshot. The value slice is only valid during the call.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error

	// List returns up to limit entries with prefix whose keys sort strictly
	// after the given key. Each call reads its own snapshot, so a caller
	// paging through a large prefix never holds a long read transaction.
	List(ctx context.Context, prefix, after string, limit int) ([]Entry, error)
}

// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package catalog stores the latest recommendation snapshot per token and
// content type.
//
// Each snapshot is serialized to a single value under a single key, so Put is
// one atomic store write: a reader sees the old snapshot or the new one,
// never a mix. There is no negative caching; a missing snapshot is simply absent.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/store"
)

const keyPrefix = "catalog:"

// Cache is the catalog snapshot store.
type Cache struct {
	store store.Store
}

// New creates a Cache on top of st.
func New(st store.Store) *Cache {
	return &Cache{store: st}
}

// Get returns the snapshot for (token, contentType). found is false when none
// has been computed yet.
func (c *Cache) Get(ctx context.Context, token string, contentType models.ContentType) (*models.CatalogSnapshot, bool, error) {
	raw, err := c.store.Get(ctx, key(token, contentType))
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read catalog: %w", err)
	}

	var snap models.CatalogSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// An unreadable snapshot is treated as missing so the next run rewrites it.
		return nil, false, nil
	}
	snap.Token = token
	return &snap, true, nil
}

// Put replaces the snapshot for (snap.Token, snap.ContentType).
func (c *Cache) Put(ctx context.Context, snap *models.CatalogSnapshot) error {
	if snap.Token == "" || snap.ContentType == "" {
		return errors.New("catalog snapshot requires token and content type")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := c.store.Set(ctx, key(snap.Token, snap.ContentType), raw, 0); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// Delete removes every content type's snapshot for token.
func (c *Cache) Delete(ctx context.Context, token string) error {
	var errs []error
	for _, ct := range models.AllContentTypes {
		if err := c.store.Delete(ctx, key(token, ct)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("delete catalogs: %w", err)
	}
	return nil
}

// key hashes the token so catalog keys cannot be mapped back to tokens.
func key(token string, contentType models.ContentType) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + string(contentType) + ":" + hex.EncodeToString(sum[:])
}

// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/watchly/internal/store"
)

type fakeGC struct {
	runs atomic.Int32
	err  error
}

func (f *fakeGC) RunGC() error {
	f.runs.Add(1)
	return f.err
}

func TestStoreGCService_RunsOnInterval(t *testing.T) {
	gc := &fakeGC{err: errors.New("value log busy")}
	svc := NewStoreGCService(gc, 20*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want DeadlineExceeded", err)
	}
	if n := gc.runs.Load(); n < 3 {
		t.Errorf("RunGC calls = %d, want at least 3 (errors must not stop the loop)", n)
	}
}

func TestStoreGCService_WithBadgerStore(t *testing.T) {
	db, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer db.Close()

	svc := NewStoreGCService(db, 10*time.Millisecond, zerolog.Nop())
	if svc.String() != "store-gc" {
		t.Errorf("String() = %q", svc.String())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v", err)
	}
}

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
	"testing"
	"time"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_SetGetDelete(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "k", []byte("v1"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v2"), 0); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Get() = %q, want %q", got, "v2")
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() of missing key error = %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestBadgerStore_Update(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, "k", func(value []byte, found bool) (*Mutation, error) {
		if found {
			t.Errorf("found = true for a missing key (value %q)", value)
		}
		return &Mutation{Value: []byte("v1")}, nil
	})
	if err != nil {
		t.Fatalf("Update(create) error = %v", err)
	}

	if err := s.Update(ctx, "k", func([]byte, bool) (*Mutation, error) { return nil, nil }); err != nil {
		t.Fatalf("Update(no-op) error = %v", err)
	}
	if got, _ := s.Get(ctx, "k"); string(got) != "v1" {
		t.Errorf("Get() after no-op = %q, want %q", got, "v1")
	}

	boom := errors.New("boom")
	err = s.Update(ctx, "k", func([]byte, bool) (*Mutation, error) {
		return &Mutation{Value: []byte("lost")}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want the callback error", err)
	}
	if got, _ := s.Get(ctx, "k"); string(got) != "v1" {
		t.Errorf("Get() after failed update = %q, want %q", got, "v1")
	}

	err = s.Update(ctx, "k", func(value []byte, found bool) (*Mutation, error) {
		if !found || string(value) != "v1" {
			t.Errorf("Update() saw (%q, %v), want (v1, true)", value, found)
		}
		return &Mutation{Delete: true}, nil
	})
	if err != nil {
		t.Fatalf("Update(delete) error = %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestBadgerStore_UpdateConcurrentIncrements(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	const writers = 4
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, "counter", func(value []byte, _ bool) (*Mutation, error) {
				n := 0
				if len(value) > 0 {
					if _, err := fmt.Sscanf(string(value), "%d", &n); err != nil {
						return nil, err
					}
				}
				return &Mutation{Value: []byte(fmt.Sprint(n + 1))}, nil
			})
			if err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "counter")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != fmt.Sprint(writers) {
		t.Errorf("counter = %s, want %d", got, writers)
	}
}

func TestBadgerStore_TTL(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	// Badger TTLs have one-second granularity.
	if err := s.Set(ctx, "short", []byte("x"), 2*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := s.Get(ctx, "short"); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	time.Sleep(3100 * time.Millisecond)

	if _, err := s.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrNotFound", err)
	}
}

func TestBadgerStore_ScanPrefix(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"a:2", "a:1", "b:1", "a:3"} {
		if err := s.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}

	var keys []string
	err := s.Scan(ctx, "a:", func(key string, value []byte) error {
		if string(value) != key {
			t.Errorf("value for %s = %q", key, value)
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if got, want := fmt.Sprint(keys), "[a:1 a:2 a:3]"; got != want {
		t.Errorf("Scan() keys = %s, want %s", got, want)
	}

	count := 0
	err = s.Scan(ctx, "a:", func(string, []byte) error {
		count++
		return ErrStopScan
	})
	if err != nil {
		t.Fatalf("Scan() with ErrStopScan error = %v", err)
	}
	if count != 1 {
		t.Errorf("Scan() visited %d keys after ErrStopScan, want 1", count)
	}
}

func TestBadgerStore_ListPages(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if err := s.Set(ctx, fmt.Sprintf("p:%02d", i), []byte{byte(i)}, 0); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if err := s.Set(ctx, "q:00", []byte("other"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var all []string
	after := ""
	pages := 0
	for {
		page, err := s.List(ctx, "p:", after, 3)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(page) == 0 {
			break
		}
		pages++
		for _, e := range page {
			all = append(all, e.Key)
		}
		after = page[len(page)-1].Key
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if len(all) != 7 || all[0] != "p:00" || all[6] != "p:06" {
		t.Errorf("List() keys = %v", all)
	}
}

func TestBadgerStore_Closed(t *testing.T) {
	t.Parallel()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after close error = %v, want ErrClosed", err)
	}
	if err := s.RunGC(); !errors.Is(err, ErrClosed) {
		t.Errorf("RunGC() after close error = %v, want ErrClosed", err)
	}
}

func TestBadgerStore_CancelledContext(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Set(ctx, "k", []byte("v"), 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() with cancelled ctx error = %v, want context.Canceled", err)
	}
}

func TestBadgerStore_RunGCInMemory(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC() on in-memory store error = %v", err)
	}
}

// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/store"
)

const testSalt = "vault-test-salt-0123456789"

type fakeAuth struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(_ context.Context, creds models.Credentials) (models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.Identity{}, f.err
	}
	key := creds.AuthKey
	if creds.Mode() == models.AuthModePasswordPair {
		key = "session-for-" + creds.Username
	}
	return models.Identity{AuthKey: key}, nil
}

type fakePrimer struct {
	mu       sync.Mutex
	err      error
	primed   []string
	discards []string
}

func (p *fakePrimer) Prime(_ context.Context, token string, _ models.Identity, _ models.Preference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.primed = append(p.primed, token)
	return p.err
}

func (p *fakePrimer) Discard(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discards = append(p.discards, token)
	return nil
}

// failingStore fails every write once armed.
type failingStore struct {
	store.Store
	failSet bool
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.failSet {
		return errors.New("disk full")
	}
	return s.Store.Set(ctx, key, value, ttl)
}

func (s *failingStore) Update(ctx context.Context, key string, fn func([]byte, bool) (*store.Mutation, error)) error {
	if s.failSet {
		return errors.New("disk full")
	}
	return s.Store.Update(ctx, key, fn)
}

// scanHookStore runs afterScan once a Scan has finished.
type scanHookStore struct {
	store.Store
	afterScan func()
}

func (s *scanHookStore) Scan(ctx context.Context, prefix string, fn func(string, []byte) error) error {
	err := s.Store.Scan(ctx, prefix, fn)
	if s.afterScan != nil {
		s.afterScan()
	}
	return err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) *store.BadgerStore {
	t.Helper()
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestVault(t *testing.T, st store.Store, auth Authenticator, cfg config.SecurityConfig, opts ...Option) *Vault {
	t.Helper()
	if cfg.TokenSalt == "" {
		cfg.TokenSalt = testSalt
	}
	v, err := New(st, cfg, auth, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return v
}

func countRecords(t *testing.T, st store.Store) int {
	t.Helper()
	n := 0
	err := st.Scan(context.Background(), recordPrefix, func(string, []byte) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return n
}

func pair(user, pass string) models.Credentials {
	return models.Credentials{Username: user, Password: pass}
}

func TestNew_RejectsInsecureSalt(t *testing.T) {
	for _, salt := range []string{"", "   ", "change-me"} {
		_, err := New(newTestStore(t), config.SecurityConfig{TokenSalt: salt}, &fakeAuth{}, zerolog.Nop())
		if !errors.Is(err, ErrInsecureSalt) {
			t.Errorf("New(salt=%q) error = %v, want ErrInsecureSalt", salt, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      models.Credentials
		want    models.Credentials
		wantErr bool
	}{
		{"pair is trimmed", pair("  alice@example.com ", " pw "), pair("alice@example.com", " pw "), false},
		{"quoted auth key", models.Credentials{AuthKey: ` "abc123" `}, models.Credentials{AuthKey: "abc123"}, false},
		{"pair and key", models.Credentials{Username: "a", Password: "b", AuthKey: "k"}, models.Credentials{Username: "a", Password: "b", AuthKey: "k"}, false},
		{"username without password", models.Credentials{Username: "a", AuthKey: "k"}, models.Credentials{}, true},
		{"password without username", models.Credentials{Password: "b"}, models.Credentials{}, true},
		{"blank username with password", models.Credentials{Username: "   ", Password: "b"}, models.Credentials{}, true},
		{"nothing", models.Credentials{}, models.Credentials{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidCredentials) {
					t.Fatalf("Normalize() error = %v, want invalid credentials", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCredentialsMode(t *testing.T) {
	both := models.Credentials{Username: "a", Password: "b", AuthKey: "k"}
	if both.Mode() != models.AuthModePasswordPair {
		t.Errorf("Mode() with pair and key = %s, want password pair", both.Mode())
	}
	key := models.Credentials{AuthKey: "k"}
	if key.Mode() != models.AuthModeSessionKey {
		t.Errorf("Mode() with key = %s, want session key", key.Mode())
	}
}

func TestDeriveToken(t *testing.T) {
	v := newTestVault(t, newTestStore(t), &fakeAuth{}, config.SecurityConfig{})

	base := v.DeriveToken(pair("alice", "pw"), models.PreferenceLovedOnly)
	if len(base) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(base))
	}
	if again := v.DeriveToken(pair(" alice ", "pw"), models.PreferenceLovedOnly); again != base {
		t.Error("token must be stable across whitespace differences in the username")
	}
	if other := v.DeriveToken(pair("alice", "pw"), models.PreferenceLovedAndWatched); other == base {
		t.Error("preference must change the token")
	}
	if other := v.DeriveToken(pair("alice", "pw "), models.PreferenceLovedOnly); other == base {
		t.Error("password is verbatim and must change the token")
	}

	rotated := newTestVault(t, newTestStore(t), &fakeAuth{}, config.SecurityConfig{TokenSalt: "another-salt-value"})
	if rotated.DeriveToken(pair("alice", "pw"), models.PreferenceLovedOnly) == base {
		t.Error("salt rotation must change the token")
	}
}

func TestIssue_Idempotent(t *testing.T) {
	st := newTestStore(t)
	auth := &fakeAuth{}
	primer := &fakePrimer{}
	v := newTestVault(t, st, auth, config.SecurityConfig{})
	ctx := context.Background()

	first, err := v.Issue(ctx, pair("alice", "pw"), models.PreferenceLovedOnly, primer)
	if err != nil {
		t.Fatalf("first Issue() error = %v", err)
	}
	second, err := v.Issue(ctx, pair("alice ", "pw"), models.PreferenceLovedOnly, primer)
	if err != nil {
		t.Fatalf("second Issue() error = %v", err)
	}

	if first.Token != second.Token {
		t.Errorf("tokens differ: %s vs %s", first.Token, second.Token)
	}
	if !first.Created || second.Created {
		t.Errorf("Created = (%v, %v), want (true, false)", first.Created, second.Created)
	}
	if len(primer.primed) != 1 {
		t.Errorf("Prime called %d times, want 1", len(primer.primed))
	}
	if n := countRecords(t, st); n != 1 {
		t.Errorf("records = %d, want 1", n)
	}
}

func TestIssue_InvalidCredentialsStoresNothing(t *testing.T) {
	st := newTestStore(t)
	primer := &fakePrimer{}
	v := newTestVault(t, st, &fakeAuth{err: models.ErrInvalidCredentials}, config.SecurityConfig{})

	_, err := v.Issue(context.Background(), pair("alice", "wrong"), models.PreferenceLovedOnly, primer)

	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Kind != AuthInvalidCredentials {
		t.Fatalf("Issue() error = %v, want AuthError{InvalidCredentials}", err)
	}
	if len(primer.primed) != 0 {
		t.Error("Prime must not run for rejected credentials")
	}
	if n := countRecords(t, st); n != 0 {
		t.Errorf("records = %d, want 0", n)
	}
}

func TestValidate_UpstreamUnavailable(t *testing.T) {
	v := newTestVault(t, newTestStore(t), &fakeAuth{err: errors.New("dial tcp: timeout")}, config.SecurityConfig{})

	_, err := v.Validate(context.Background(), models.Credentials{AuthKey: "key"})
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("Validate() error = %v, want upstream unavailable", err)
	}
	if errors.Is(err, models.ErrInvalidCredentials) {
		t.Error("unreachable provider must not be reported as invalid credentials")
	}
}

func TestValidate_ShapeErrorsSkipProvider(t *testing.T) {
	auth := &fakeAuth{}
	v := newTestVault(t, newTestStore(t), auth, config.SecurityConfig{})

	if _, err := v.Validate(context.Background(), models.Credentials{Password: "pw"}); err == nil {
		t.Fatal("Validate() accepted a password without a username")
	}
	if auth.calls != 0 {
		t.Errorf("provider called %d times for malformed input", auth.calls)
	}
}

func TestIssue_PrimingFailureStoresNothing(t *testing.T) {
	st := newTestStore(t)
	primer := &fakePrimer{err: errors.New("tmdb down")}
	v := newTestVault(t, st, &fakeAuth{}, config.SecurityConfig{})

	_, err := v.Issue(context.Background(), pair("alice", "pw"), models.PreferenceLovedOnly, primer)
	if !errors.Is(err, ErrPrimingFailed) {
		t.Fatalf("Issue() error = %v, want ErrPrimingFailed", err)
	}
	if n := countRecords(t, st); n != 0 {
		t.Errorf("records = %d, want 0", n)
	}
}

func TestIssue_CommitFailureDiscardsPrimedCatalogs(t *testing.T) {
	st := &failingStore{Store: newTestStore(t), failSet: true}
	primer := &fakePrimer{}
	v := newTestVault(t, st, &fakeAuth{}, config.SecurityConfig{})

	_, err := v.Issue(context.Background(), pair("alice", "pw"), models.PreferenceLovedOnly, primer)
	if err == nil {
		t.Fatal("Issue() error = nil with a failing store")
	}
	if len(primer.discards) != 1 || primer.discards[0] != primer.primed[0] {
		t.Errorf("Discard calls = %v, want the primed token", primer.discards)
	}
}

func TestResolve_ExpiredRecordIsDeletedAndNotListed(t *testing.T) {
	st := newTestStore(t)
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	v := newTestVault(t, st, &fakeAuth{}, config.SecurityConfig{TokenTTL: time.Hour}, WithClock(clk.Now))
	ctx := context.Background()

	old, err := v.Issue(ctx, pair("old", "pw"), models.PreferenceLovedOnly, &fakePrimer{})
	if err != nil {
		t.Fatalf("Issue(old) error = %v", err)
	}
	clk.Advance(30 * time.Minute)
	fresh, err := v.Issue(ctx, pair("fresh", "pw"), models.PreferenceLovedOnly, &fakePrimer{})
	if err != nil {
		t.Fatalf("Issue(fresh) error = %v", err)
	}
	clk.Advance(31 * time.Minute)

	var listed []string
	for token, err := range v.ListActive(ctx) {
		if err != nil {
			t.Fatalf("ListActive() error = %v", err)
		}
		listed = append(listed, token)
	}
	if len(listed) != 1 || listed[0] != fresh.Token {
		t.Errorf("ListActive() = %v, want only the fresh token", listed)
	}

	if _, err := v.Resolve(ctx, old.Token); !errors.Is(err, ErrExpired) {
		t.Fatalf("Resolve(old) error = %v, want ErrExpired", err)
	}
	if _, err := v.Resolve(ctx, old.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Resolve(old) error = %v, want ErrNotFound after lazy delete", err)
	}
	if _, err := v.Resolve(ctx, fresh.Token); err != nil {
		t.Errorf("Resolve(fresh) error = %v", err)
	}
}

func TestIssue_ExpiredRecordIsReplaced(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	primer := &fakePrimer{}
	v := newTestVault(t, newTestStore(t), &fakeAuth{}, config.SecurityConfig{TokenTTL: time.Hour}, WithClock(clk.Now))
	ctx := context.Background()

	if _, err := v.Issue(ctx, pair("alice", "pw"), models.PreferenceLovedOnly, primer); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	clk.Advance(2 * time.Hour)

	res, err := v.Issue(ctx, pair("alice", "pw"), models.PreferenceLovedOnly, primer)
	if err != nil {
		t.Fatalf("re-Issue() error = %v", err)
	}
	if !res.Created || len(primer.primed) != 2 {
		t.Errorf("expired token must be re-primed and re-created (created=%v, primes=%d)", res.Created, len(primer.primed))
	}
}

func TestCommit_RefreshOnReuse(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := config.SecurityConfig{TokenTTL: time.Hour, RefreshTTLOnReuse: true}
	v := newTestVault(t, newTestStore(t), &fakeAuth{}, cfg, WithClock(clk.Now))
	ctx := context.Background()
	creds := pair("alice", "pw")
	token := v.DeriveToken(creds, models.PreferenceLovedOnly)

	if created, err := v.Commit(ctx, token, creds, models.PreferenceLovedOnly); err != nil || !created {
		t.Fatalf("Commit() = (%v, %v), want created", created, err)
	}
	clk.Advance(50 * time.Minute)
	if created, err := v.Commit(ctx, token, creds, models.PreferenceLovedOnly); err != nil || created {
		t.Fatalf("second Commit() = (%v, %v), want (false, nil)", created, err)
	}
	clk.Advance(50 * time.Minute)

	rec, err := v.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() error = %v, want the extended record", err)
	}
	if want := clk.Now().Add(10 * time.Minute); !rec.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", rec.ExpiresAt, want)
	}
}

func TestCommit_NoRefreshByDefault(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	v := newTestVault(t, newTestStore(t), &fakeAuth{}, config.SecurityConfig{TokenTTL: time.Hour}, WithClock(clk.Now))
	ctx := context.Background()
	creds := models.Credentials{AuthKey: "key"}
	token := v.DeriveToken(creds, models.PreferenceLovedOnly)

	_, _ = v.Commit(ctx, token, creds, models.PreferenceLovedOnly)
	clk.Advance(50 * time.Minute)
	_, _ = v.Commit(ctx, token, creds, models.PreferenceLovedOnly)
	clk.Advance(11 * time.Minute)

	if _, err := v.Resolve(ctx, token); !errors.Is(err, ErrExpired) {
		t.Errorf("Resolve() error = %v, want ErrExpired", err)
	}
}

func TestUnseal_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	v := newTestVault(t, st, &fakeAuth{}, config.SecurityConfig{})
	ctx := context.Background()
	creds := models.Credentials{Username: "alice", Password: "s3cret pass", AuthKey: "legacy"}
	token := v.DeriveToken(creds, models.PreferenceLovedAndWatched)

	if _, err := v.Commit(ctx, token, creds, models.PreferenceLovedAndWatched); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	rec, err := v.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if rec.AuthMode != models.AuthModePasswordPair || rec.Preference != models.PreferenceLovedAndWatched {
		t.Errorf("record = %+v", rec)
	}
	got, err := v.Unseal(rec)
	if err != nil {
		t.Fatalf("Unseal() error = %v", err)
	}
	if got != creds {
		t.Errorf("Unseal() = %+v, want %+v", got, creds)
	}

	err = st.Scan(ctx, "", func(key string, value []byte) error {
		if strings.Contains(key, token) || strings.Contains(string(value), "s3cret") || strings.Contains(string(value), token) {
			t.Errorf("store exposes plaintext under key %s", key)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
}

func TestUnseal_PayloadBoundToKey(t *testing.T) {
	st := newTestStore(t)
	v := newTestVault(t, st, &fakeAuth{}, config.SecurityConfig{})
	ctx := context.Background()

	a := models.Credentials{AuthKey: "a"}
	b := models.Credentials{AuthKey: "b"}
	tokenA := v.DeriveToken(a, models.PreferenceLovedOnly)
	tokenB := v.DeriveToken(b, models.PreferenceLovedOnly)
	_, _ = v.Commit(ctx, tokenA, a, models.PreferenceLovedOnly)

	raw, err := st.Get(ctx, v.recordKey(tokenA))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := st.Set(ctx, v.recordKey(tokenB), raw, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	rec, err := v.Resolve(ctx, tokenB)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := v.Unseal(rec); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("Unseal() of transplanted payload error = %v, want ErrCorruptRecord", err)
	}
}

func TestRevoke(t *testing.T) {
	v := newTestVault(t, newTestStore(t), &fakeAuth{}, config.SecurityConfig{})
	ctx := context.Background()

	if err := v.Revoke(ctx, "never-issued"); err != nil {
		t.Errorf("Revoke(unknown) error = %v, want nil", err)
	}

	res, err := v.Issue(ctx, pair("alice", "pw"), models.PreferenceLovedOnly, &fakePrimer{})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if err := v.Revoke(ctx, res.Token); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := v.Resolve(ctx, res.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() after Revoke error = %v, want ErrNotFound", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	st := newTestStore(t)
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	v := newTestVault(t, st, &fakeAuth{}, config.SecurityConfig{TokenTTL: time.Hour}, WithClock(clk.Now))
	ctx := context.Background()

	res, err := v.Issue(ctx, models.Credentials{AuthKey: "k1"}, models.PreferenceLovedOnly, &fakePrimer{})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	clk.Advance(2 * time.Hour)

	tokens, err := v.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if len(tokens) != 1 || tokens[0] != res.Token {
		t.Errorf("PurgeExpired() = %v, want [%s]", tokens, res.Token)
	}
	if n := countRecords(t, st); n != 0 {
		t.Errorf("records after purge = %d, want 0", n)
	}
}

func TestPurgeExpired_KeepsRecordReissuedAfterScan(t *testing.T) {
	st := &scanHookStore{Store: newTestStore(t)}
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	v := newTestVault(t, st, &fakeAuth{}, config.SecurityConfig{TokenTTL: time.Hour}, WithClock(clk.Now))
	ctx := context.Background()

	reissued := models.Credentials{AuthKey: "reissued"}
	reissuedToken := v.DeriveToken(reissued, models.PreferenceLovedOnly)
	gone := models.Credentials{AuthKey: "gone"}
	goneToken := v.DeriveToken(gone, models.PreferenceLovedOnly)
	for _, c := range []models.Credentials{reissued, gone} {
		if _, err := v.Commit(ctx, v.DeriveToken(c, models.PreferenceLovedOnly), c, models.PreferenceLovedOnly); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
	}
	clk.Advance(2 * time.Hour)

	st.afterScan = func() {
		created, err := v.Commit(ctx, reissuedToken, reissued, models.PreferenceLovedOnly)
		if err != nil || !created {
			t.Errorf("Commit() during purge = (%v, %v), want a new record", created, err)
		}
	}
	tokens, err := v.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if len(tokens) != 1 || tokens[0] != goneToken {
		t.Errorf("PurgeExpired() = %v, want only [%s]", tokens, goneToken)
	}

	st.afterScan = nil
	if _, err := v.Resolve(ctx, reissuedToken); err != nil {
		t.Errorf("Resolve(reissued) error = %v, want the new record", err)
	}
	if _, err := v.Resolve(ctx, goneToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(gone) error = %v, want ErrNotFound", err)
	}
}

func TestListActive_Pages(t *testing.T) {
	v := newTestVault(t, newTestStore(t), &fakeAuth{}, config.SecurityConfig{})
	ctx := context.Background()

	want := make(map[string]bool)
	for i := 0; i < listPageSize+7; i++ {
		creds := models.Credentials{AuthKey: fmt.Sprintf("key-%03d", i)}
		token := v.DeriveToken(creds, models.PreferenceLovedOnly)
		if _, err := v.Commit(ctx, token, creds, models.PreferenceLovedOnly); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		want[token] = true
	}

	got := 0
	for token, err := range v.ListActive(ctx) {
		if err != nil {
			t.Fatalf("ListActive() error = %v", err)
		}
		if !want[token] {
			t.Errorf("ListActive() yielded unknown token %s", token)
		}
		got++
	}
	if got != len(want) {
		t.Errorf("ListActive() yielded %d tokens, want %d", got, len(want))
	}
}

func TestConcurrentCommitCreatesOnce(t *testing.T) {
	st := newTestStore(t)
	v := newTestVault(t, st, &fakeAuth{}, config.SecurityConfig{})
	creds := models.Credentials{AuthKey: "shared"}
	token := v.DeriveToken(creds, models.PreferenceLovedOnly)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := v.Commit(context.Background(), token, creds, models.PreferenceLovedOnly)
			if err != nil {
				t.Errorf("Commit() error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
	if n := countRecords(t, st); n != 1 {
		t.Errorf("records = %d, want 1", n)
	}
}

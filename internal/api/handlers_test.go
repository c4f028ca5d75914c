// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/watchly/internal/addon"
	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/recommend"
	"github.com/tomtom215/watchly/internal/refresh"
	"github.com/tomtom215/watchly/internal/vault"
)

type fakeAddon struct {
	issueErr   error
	created    bool
	catalogErr error
	snapshot   *models.CatalogSnapshot
	similar    []models.RecommendationItem
	refreshed  refresh.Result
	revoked    []string
	lastCreds  models.Credentials
	lastPref   models.Preference
	lastType   models.ContentType
	lastItemID string
	seeds      []addon.SeedCatalog
	seedsErr   error
}

func (f *fakeAddon) IssueToken(_ context.Context, creds models.Credentials, pref models.Preference) (addon.IssuedToken, error) {
	f.lastCreds, f.lastPref = creds, pref
	if f.issueErr != nil {
		return addon.IssuedToken{}, f.issueErr
	}
	return addon.IssuedToken{Token: "tok123", Created: f.created, ExpiresIn: time.Hour}, nil
}

func (f *fakeAddon) GetCatalog(_ context.Context, token string, ct models.ContentType) (*models.CatalogSnapshot, error) {
	f.lastType = ct
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.snapshot, nil
}

func (f *fakeAddon) ForceRefresh(_ context.Context, token string) (refresh.Result, error) {
	if f.catalogErr != nil {
		return refresh.Result{}, f.catalogErr
	}
	return f.refreshed, nil
}

func (f *fakeAddon) RevokeToken(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return nil
}

func (f *fakeAddon) Similar(_ context.Context, _ string, id string, ct models.ContentType) ([]models.RecommendationItem, error) {
	f.lastItemID, f.lastType = id, ct
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.similar, nil
}

func (f *fakeAddon) ManifestCatalogs(context.Context, string) ([]addon.SeedCatalog, error) {
	return f.seeds, f.seedsErr
}

type fakeSweeps struct {
	report refresh.SweepReport
	ok     bool
}

func (f fakeSweeps) LastSweep() (refresh.SweepReport, bool) { return f.report, f.ok }
func (f fakeSweeps) Sweeping() bool                         { return false }

func newTestServer(svc AddonService, sweeps SweepStatus) http.Handler {
	h := NewHandler(svc, sweeps, HandlerConfig{BaseURL: "https://watchly.example/", Manifest: ManifestInfo{Version: "1.2.3"}})
	mw := NewChiMiddleware(&ChiMiddlewareConfig{CORSAllowedOrigins: []string{"*"}, RateLimitDisabled: true})
	return NewRouter(h, mw).SetupChi()
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

func TestIssueToken(t *testing.T) {
	svc := &fakeAddon{created: true}
	srv := newTestServer(svc, nil)

	rec := do(t, srv, http.MethodPost, "/api/tokens", `{"authKey":"ak-1","includeWatched":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var resp models.IssueTokenResponse
	env := decodeEnvelope(t, rec, &resp)
	if env.Status != "success" {
		t.Errorf("status = %q, want success", env.Status)
	}
	if resp.Token != "tok123" || resp.ManifestURL != "https://watchly.example/tok123/manifest.json" {
		t.Errorf("response = %+v", resp)
	}
	if resp.ExpiresInSeconds != 3600 {
		t.Errorf("expiresInSeconds = %d, want 3600", resp.ExpiresInSeconds)
	}
	if svc.lastCreds.AuthKey != "ak-1" || svc.lastPref != models.PreferenceLovedAndWatched {
		t.Errorf("service got %+v / %q", svc.lastCreds, svc.lastPref)
	}

	svc.created = false
	if rec := do(t, srv, http.MethodPost, "/api/tokens", `{"authKey":"ak-1"}`); rec.Code != http.StatusOK {
		t.Errorf("reuse status = %d, want 200", rec.Code)
	}
}

func TestIssueToken_BadRequests(t *testing.T) {
	srv := newTestServer(&fakeAddon{}, nil)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", `nope`, "INVALID_REQUEST"},
		{"unknown field", `{"authKey":"a","extra":1}`, "INVALID_REQUEST"},
		{"nothing", `{}`, "VALIDATION_ERROR"},
		{"username without password", `{"username":"a@b.c"}`, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/tokens", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			env := decodeEnvelope(t, rec, nil)
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestIssueToken_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid credentials", &vault.AuthError{Kind: vault.AuthInvalidCredentials, Message: "bad"}, http.StatusBadRequest, "INVALID_CREDENTIALS"},
		{"stremio down", &vault.AuthError{Kind: vault.AuthUpstreamUnavailable}, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"priming failed", fmt.Errorf("%w: %w", vault.ErrPrimingFailed, &recommend.PipelineError{Kind: recommend.KindUpstreamUnavailable}), http.StatusBadGateway, "PRIMING_FAILED"},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeAddon{issueErr: tt.err}, nil)
			rec := do(t, srv, http.MethodPost, "/api/tokens", `{"authKey":"ak"}`)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			env := decodeEnvelope(t, rec, nil)
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want %s", env.Error, tt.code)
			}
			if strings.Contains(rec.Body.String(), "disk full") {
				t.Error("internal error text leaked to the client")
			}
		})
	}
}

func TestManifest(t *testing.T) {
	srv := newTestServer(&fakeAddon{}, nil)

	for _, path := range []string{"/manifest.json", "/tok123/manifest.json"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		var m Manifest
		if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
			t.Fatalf("decode manifest: %v", err)
		}
		if m.Version != "1.2.3" || len(m.Catalogs) != 2 {
			t.Errorf("%s manifest = %+v", path, m)
		}
		for i, want := range []string{"movie", "series"} {
			if m.Catalogs[i].Type != want || m.Catalogs[i].ID != CatalogID || m.Catalogs[i].Name != "Recommended" {
				t.Errorf("catalog %d = %+v", i, m.Catalogs[i])
			}
		}
		if !strings.HasPrefix(rec.Header().Get("Cache-Control"), "public") {
			t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
		}
	}
}

func TestManifest_TokenSeedCatalogs(t *testing.T) {
	svc := &fakeAddon{seeds: []addon.SeedCatalog{
		{ContentType: models.ContentTypeMovie, ExternalID: "tt0000001", Title: "Heat", Label: addon.SeedLoved},
		{ContentType: models.ContentTypeSeries, ExternalID: "tt0000002", Title: "Dark", Label: addon.SeedWatched},
	}}
	srv := newTestServer(svc, nil)

	rec := do(t, srv, http.MethodGet, "/tok123/manifest.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var m Manifest
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	want := []ManifestCatalog{
		{Type: "movie", ID: CatalogID, Name: "Recommended", Extra: []interface{}{}},
		{Type: "series", ID: CatalogID, Name: "Recommended", Extra: []interface{}{}},
		{Type: "movie", ID: "tt0000001", Name: "Because you Loved Heat", Extra: []interface{}{}},
		{Type: "series", ID: "tt0000002", Name: "Because you Watched Dark", Extra: []interface{}{}},
	}
	if !reflect.DeepEqual(m.Catalogs, want) {
		t.Errorf("catalogs = %+v, want %+v", m.Catalogs, want)
	}

	// The shared base manifest must not pick up a token's catalogs.
	rec = do(t, srv, http.MethodGet, "/manifest.json", "")
	var base Manifest
	if err := json.Unmarshal(rec.Body.Bytes(), &base); err != nil {
		t.Fatalf("decode base manifest: %v", err)
	}
	if len(base.Catalogs) != 2 {
		t.Errorf("base manifest catalogs = %d, want 2", len(base.Catalogs))
	}
}

func TestManifest_TokenErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantCache string
	}{
		{"unknown token", vault.ErrNotFound, http.StatusNotFound, ""},
		{"expired token", vault.ErrExpired, http.StatusGone, ""},
		{"library unavailable", &recommend.PipelineError{Kind: recommend.KindLibraryFetchFailed, Err: errors.New("stremio down")}, http.StatusOK, "no-store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeAddon{seedsErr: tt.err}, nil)
			rec := do(t, srv, http.MethodGet, "/tok123/manifest.json", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCache != "" && rec.Header().Get("Cache-Control") != tt.wantCache {
				t.Errorf("Cache-Control = %q, want %q", rec.Header().Get("Cache-Control"), tt.wantCache)
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	svc := &fakeAddon{snapshot: &models.CatalogSnapshot{
		ContentType: models.ContentTypeMovie,
		SeedCount:   2,
		Items: []models.RecommendationItem{
			{ExternalID: "tt0000001", ContentType: models.ContentTypeMovie, Title: "First", Metadata: &models.DisplayMetadata{
				Title: "First", Poster: "https://img/p.jpg", Year: "1999", Genres: []string{"Drama"}, Rating: 7.84,
			}},
			{ExternalID: "tt0000002", ContentType: models.ContentTypeMovie, Title: "Second"},
		},
	}}
	srv := newTestServer(svc, nil)

	rec := do(t, srv, http.MethodGet, "/tok123/catalog/movie/watchly.rec.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var body CatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Metas) != 2 || body.Metas[0].ID != "tt0000001" || body.Metas[1].ID != "tt0000002" {
		t.Fatalf("metas = %+v", body.Metas)
	}
	first := body.Metas[0]
	if first.Type != "movie" || first.Name != "First" || first.ReleaseInfo != "1999" || first.IMDBRating != "7.8" || first.Poster != "https://img/p.jpg" {
		t.Errorf("meta = %+v", first)
	}
	if svc.lastType != models.ContentTypeMovie {
		t.Errorf("content type = %q", svc.lastType)
	}
}

func TestCatalog_NoSeedsIsEmpty(t *testing.T) {
	svc := &fakeAddon{catalogErr: &recommend.PipelineError{Kind: recommend.KindNoSeedsAvailable, ContentType: models.ContentTypeSeries}}
	rec := do(t, newTestServer(svc, nil), http.MethodGet, "/tok/catalog/series/watchly.rec.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"metas":[]}` {
		t.Errorf("body = %s, want empty metas", rec.Body.String())
	}
}

func TestCatalog_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"bad type", "/tok/catalog/anime/watchly.rec.json", nil, http.StatusBadRequest},
		{"bad id", "/tok/catalog/movie/other.json", nil, http.StatusBadRequest},
		{"unknown token", "/tok/catalog/movie/watchly.rec.json", vault.ErrNotFound, http.StatusNotFound},
		{"expired token", "/tok/catalog/movie/watchly.rec.json", vault.ErrExpired, http.StatusGone},
		{"library down", "/tok/catalog/movie/watchly.rec.json", &recommend.PipelineError{Kind: recommend.KindLibraryFetchFailed}, http.StatusBadGateway},
		{"tmdb down", "/tok/catalog/movie/watchly.rec.json", &recommend.PipelineError{Kind: recommend.KindUpstreamUnavailable}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(&fakeAddon{catalogErr: tt.err}, nil), http.MethodGet, tt.path, "")
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestCatalog_Similar(t *testing.T) {
	svc := &fakeAddon{similar: []models.RecommendationItem{{ExternalID: "tt0000009", ContentType: models.ContentTypeSeries, Title: "Nine"}}}
	rec := do(t, newTestServer(svc, nil), http.MethodGet, "/tok/catalog/series/tt0000001.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastItemID != "tt0000001" || svc.lastType != models.ContentTypeSeries {
		t.Errorf("Similar called with %q/%q", svc.lastItemID, svc.lastType)
	}
	var body CatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Metas) != 1 || body.Metas[0].Name != "Nine" {
		t.Errorf("metas = %+v", body.Metas)
	}
}

func TestRefresh(t *testing.T) {
	svc := &fakeAddon{refreshed: refresh.Result{Outcome: refresh.OutcomeRefreshed, Snapshots: 2, Shared: true}}
	rec := do(t, newTestServer(svc, nil), http.MethodPost, "/tok/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.RefreshResponse
	decodeEnvelope(t, rec, &resp)
	if resp.Outcome != "refreshed" || resp.Catalogs != 2 || !resp.Shared {
		t.Errorf("response = %+v", resp)
	}
}

func TestRevokeToken(t *testing.T) {
	svc := &fakeAddon{}
	rec := do(t, newTestServer(svc, nil), http.MethodDelete, "/api/tokens/tok123", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(svc.revoked) != 1 || svc.revoked[0] != "tok123" {
		t.Errorf("revoked = %v", svc.revoked)
	}
}

func TestHealth(t *testing.T) {
	finished := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	sweeps := fakeSweeps{ok: true, report: refresh.SweepReport{FinishedAt: finished, Refreshed: 0, Failed: 3}}
	rec := do(t, newTestServer(&fakeAddon{}, sweeps), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var health models.HealthResponse
	decodeEnvelope(t, rec, &health)
	if health.Status != "degraded" || health.LastSweepFail != 3 || health.LastSweepAt == nil || !health.LastSweepAt.Equal(finished) {
		t.Errorf("health = %+v", health)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestMetricsAndNotFound(t *testing.T) {
	srv := newTestServer(&fakeAddon{}, nil)
	if rec := do(t, srv, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/tok/unknown", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", rec.Code)
	}
}

func TestExternalBaseURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://internal:8000/api/tokens", nil)
	if got := externalBaseURL(req, ""); got != "http://internal:8000" {
		t.Errorf("no proxy = %q", got)
	}
	req.Header.Set("X-Forwarded-Proto", "https, http")
	req.Header.Set("X-Forwarded-Host", "watchly.example")
	req.Header.Set("X-Forwarded-Prefix", "/addon/")
	if got := externalBaseURL(req, ""); got != "https://watchly.example/addon" {
		t.Errorf("behind proxy = %q", got)
	}
	if got := externalBaseURL(req, "https://fixed.example/"); got != "https://fixed.example" {
		t.Errorf("configured = %q", got)
	}
}

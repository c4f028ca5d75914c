// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/metrics"
	"github.com/tomtom215/watchly/internal/models"
)

// LibraryProvider is the identity and library source (Stremio).
type LibraryProvider interface {
	Authenticate(ctx context.Context, creds models.Credentials) (models.Identity, error)
	FetchLibrary(ctx context.Context, identity models.Identity) (*models.Library, error)
}

// MetadataProvider is the item-to-item and display metadata source (TMDB).
type MetadataProvider interface {
	RecommendationsFor(ctx context.Context, externalID string, contentType models.ContentType, limit int) ([]string, error)
	MetadataFor(ctx context.Context, externalID string, contentType models.ContentType) (*models.DisplayMetadata, error)
}

// Result is the outcome of one content type in a multi-type run.
type Result struct {
	ContentType models.ContentType
	Snapshot    *models.CatalogSnapshot
	Err         error
}

// Pipeline turns a library into ranked catalog snapshots.
type Pipeline struct {
	library  LibraryProvider
	metadata MetadataProvider
	cfg      config.RecommendConfig
	weight   weightFunc
	now      func() time.Time
	logger   zerolog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the clock used for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. Zero config values fall back to defaults.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(library LibraryProvider, metadata MetadataProvider, cfg config.RecommendConfig, logger zerolog.Logger, opts ...Option) *Pipeline {
	if cfg.SeedLimit < 1 {
		cfg.SeedLimit = 10
	}
	if cfg.PerSeedLimit < 1 {
		cfg.PerSeedLimit = 10
	}
	if cfg.MaxResults < 1 {
		cfg.MaxResults = 50
	}
	if cfg.SeedConcurrency < 1 {
		cfg.SeedConcurrency = 4
	}
	if cfg.MetadataConcurrency < 1 {
		cfg.MetadataConcurrency = 8
	}
	if cfg.Scoring == "" {
		cfg.Scoring = config.ScoringSum
	}

	p := &Pipeline{
		library:  library,
		metadata: metadata,
		cfg:      cfg,
		weight:   newWeightFunc(cfg.Scoring, cfg.RecencyDecay),
		now:      time.Now,
		logger:   logger.With().Str("component", "recommend").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate authenticates, fetches the library and builds one snapshot.
// The returned snapshot has no Token; the caller owns that.
func (p *Pipeline) Generate(ctx context.Context, creds models.Credentials, pref models.Preference, contentType models.ContentType) (*models.CatalogSnapshot, error) {
	results, err := p.GenerateAll(ctx, creds, pref, []models.ContentType{contentType})
	if err != nil {
		return nil, err
	}
	return results[0].Snapshot, results[0].Err
}

// GenerateAll fetches the library once and builds a snapshot per content
// type. A library failure is returned as the error; per-type failures are
// reported in the results.
//
// For each content type the run selects seeds (loved, plus watched when pref
// includes them), fans out to the metadata provider, merges and ranks the
// candidates, then resolves display metadata.
//
// Parameters:
//   - ctx: Bounds every provider call of the run
//   - creds: Unsealed credentials; they are re-authenticated first
//   - pref: Seed selection preference
//   - types: Content types to build, in result order
//
// Returns one Result per type. A failed type carries a *PipelineError of kind
// KindNoSeedsAvailable or KindUpstreamUnavailable; the whole-run error is
// KindLibraryFetchFailed.
func (p *Pipeline) GenerateAll(ctx context.Context, creds models.Credentials, pref models.Preference, types []models.ContentType) ([]Result, error) {
	identity, err := p.library.Authenticate(ctx, creds)
	if err != nil {
		p.recordLibraryFailure(types)
		return nil, &PipelineError{Kind: KindLibraryFetchFailed, Err: err}
	}
	return p.GenerateForIdentity(ctx, identity, pref, types)
}

// Library authenticates and fetches the library without building anything.
func (p *Pipeline) Library(ctx context.Context, creds models.Credentials) (*models.Library, error) {
	identity, err := p.library.Authenticate(ctx, creds)
	if err != nil {
		return nil, &PipelineError{Kind: KindLibraryFetchFailed, Err: err}
	}
	lib, err := p.library.FetchLibrary(ctx, identity)
	if err != nil {
		return nil, &PipelineError{Kind: KindLibraryFetchFailed, Err: err}
	}
	return lib, nil
}

// GenerateForIdentity is GenerateAll for an already validated identity.
func (p *Pipeline) GenerateForIdentity(ctx context.Context, identity models.Identity, pref models.Preference, types []models.ContentType) ([]Result, error) {
	lib, err := p.library.FetchLibrary(ctx, identity)
	if err != nil {
		p.recordLibraryFailure(types)
		return nil, &PipelineError{Kind: KindLibraryFetchFailed, Err: err}
	}

	results := make([]Result, len(types))
	for i, ct := range types {
		start := time.Now()
		snap, err := p.build(ctx, lib, pref, ct)
		results[i] = Result{ContentType: ct, Snapshot: snap, Err: err}
		metrics.RecordPipelineRun(string(ct), runLabel(err), time.Since(start))
	}
	return results, nil
}

// Similar returns the item-to-item list for one external id, with metadata.
func (p *Pipeline) Similar(ctx context.Context, externalID string, contentType models.ContentType) ([]models.RecommendationItem, error) {
	ids, err := p.metadata.RecommendationsFor(ctx, externalID, contentType, p.cfg.MaxResults)
	if err != nil {
		return nil, &PipelineError{Kind: KindUpstreamUnavailable, ContentType: contentType, Err: err}
	}

	ranked := make([]*candidate, 0, len(ids))
	for i, id := range ids {
		if id == externalID {
			continue
		}
		ranked = append(ranked, &candidate{
			ExternalID: id,
			Score:      float64(len(ids) - i),
			Seeds:      []string{externalID},
		})
	}
	items, dropped, err := p.resolveMetadata(ctx, ranked, contentType)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		p.logger.Debug().Str("item", externalID).Int("dropped", dropped).Msg("Similar items without metadata dropped")
	}
	return items, nil
}

func (p *Pipeline) build(ctx context.Context, lib *models.Library, pref models.Preference, contentType models.ContentType) (*models.CatalogSnapshot, error) {
	seeds := selectSeeds(lib, pref, contentType, p.cfg.SeedLimit)
	if len(seeds) == 0 {
		return nil, &PipelineError{Kind: KindNoSeedsAvailable, ContentType: contentType}
	}

	results, failed, err := p.fanOut(ctx, seeds, contentType)
	if err != nil {
		return nil, err
	}
	if failed == len(seeds) {
		return nil, &PipelineError{
			Kind:        KindUpstreamUnavailable,
			ContentType: contentType,
			Err:         errors.New("every seed lookup failed"),
		}
	}

	exclude := lib.WatchedSet()
	for _, s := range seeds {
		exclude[s.ExternalID] = struct{}{}
	}
	ranked := rank(merge(seeds, results, p.weight), exclude)
	if len(ranked) > p.cfg.MaxResults {
		ranked = ranked[:p.cfg.MaxResults]
	}

	items, dropped, err := p.resolveMetadata(ctx, ranked, contentType)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		metrics.PipelineMetadataDropped.Add(float64(dropped))
	}

	p.logger.Debug().
		Str("content_type", string(contentType)).
		Int("seeds", len(seeds)).
		Int("failed_seeds", failed).
		Int("items", len(items)).
		Int("dropped", dropped).
		Msg("Catalog generated")

	return &models.CatalogSnapshot{
		ContentType:  contentType,
		Items:        items,
		ComputedAt:   p.now().UTC(),
		Fingerprint:  fingerprint(seeds),
		SeedCount:    len(seeds),
		DroppedItems: dropped,
	}, nil
}

// fanOut asks the metadata provider for each seed's recommendations.
// results[i] is nil for a failed seed.
func (p *Pipeline) fanOut(ctx context.Context, seeds []seed, contentType models.ContentType) ([][]string, int, error) {
	results := make([][]string, len(seeds))
	failures := make([]bool, len(seeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.SeedConcurrency)
	for i, s := range seeds {
		g.Go(func() error {
			ids, err := p.metadata.RecommendationsFor(gctx, s.ExternalID, contentType, p.cfg.PerSeedLimit)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = true
				metrics.PipelineSeedFailures.Inc()
				p.logger.Warn().Err(err).Str("seed", s.ExternalID).Msg("Seed lookup failed, skipping")
				return nil
			}
			if ids == nil {
				ids = []string{}
			}
			results[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	failed := 0
	for _, f := range failures {
		if f {
			failed++
		}
	}
	return results, failed, nil
}

// resolveMetadata attaches display metadata to the ranked candidates,
// preserving order. Candidates the provider does not know are dropped.
// Other lookup failures also drop the candidate, unless no candidate
// resolved at all: then the provider is treated as down and the run fails
// with KindUpstreamUnavailable, so callers keep their previous catalog.
func (p *Pipeline) resolveMetadata(ctx context.Context, ranked []*candidate, contentType models.ContentType) ([]models.RecommendationItem, int, error) {
	metas := make([]*models.DisplayMetadata, len(ranked))
	failures := make([]error, len(ranked))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MetadataConcurrency)
	for i, c := range ranked {
		g.Go(func() error {
			meta, err := p.metadata.MetadataFor(gctx, c.ExternalID, contentType)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if !errors.Is(err, models.ErrNotFound) {
					failures[i] = err
					p.logger.Warn().Err(err).Str("item", c.ExternalID).Msg("Metadata lookup failed")
				}
				return nil
			}
			metas[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	items := make([]models.RecommendationItem, 0, len(ranked))
	dropped := 0
	var lastFailure error
	for i, c := range ranked {
		meta := metas[i]
		if meta == nil {
			dropped++
			if failures[i] != nil {
				lastFailure = failures[i]
			}
			continue
		}
		items = append(items, models.RecommendationItem{
			ExternalID:    c.ExternalID,
			Title:         meta.Title,
			ContentType:   contentType,
			Score:         c.Score,
			SourceSeedIDs: c.Seeds,
			Metadata:      meta,
		})
	}
	if len(items) == 0 && lastFailure != nil {
		return nil, 0, &PipelineError{Kind: KindUpstreamUnavailable, ContentType: contentType, Err: lastFailure}
	}
	return items, dropped, nil
}

func (p *Pipeline) recordLibraryFailure(types []models.ContentType) {
	for _, ct := range types {
		metrics.RecordPipelineRun(string(ct), KindLibraryFetchFailed.String(), 0)
	}
}

func runLabel(err error) string {
	if err == nil {
		return "success"
	}
	if kind := KindOf(err); kind != 0 {
		return kind.String()
	}
	return "error"
}

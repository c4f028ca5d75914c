// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package recommend

import (
	"math"
	"sort"

	"github.com/tomtom215/watchly/internal/config"
)

// candidate accumulates the contributions of every seed that recommended it.
type candidate struct {
	ExternalID string
	Score      float64
	Seeds      []string
	// BestRank is the rank of the freshest contributing seed.
	BestRank int
}

// weightFunc returns the contribution of a seed with the given rank.
type weightFunc func(rank int) float64

func newWeightFunc(scoring string, decay float64) weightFunc {
	if scoring == config.ScoringRecency {
		return func(rank int) float64 { return math.Pow(decay, float64(rank)) }
	}
	return func(int) float64 { return 1 }
}

// merge folds the per-seed lists into candidates. results[i] belongs to
// seeds[i]; a nil entry is a failed seed. A seed naming the same item twice
// contributes once.
func merge(seeds []seed, results [][]string, weight weightFunc) map[string]*candidate {
	merged := make(map[string]*candidate)
	for i, s := range seeds {
		seen := make(map[string]struct{}, len(results[i]))
		for _, id := range results[i] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			c, ok := merged[id]
			if !ok {
				c = &candidate{ExternalID: id, BestRank: s.Rank}
				merged[id] = c
			}
			c.Score += weight(s.Rank)
			c.Seeds = append(c.Seeds, s.ExternalID)
			if s.Rank < c.BestRank {
				c.BestRank = s.Rank
			}
		}
	}
	return merged
}

// rank drops excluded ids and orders the rest by score desc, freshest
// contributing seed, then external id.
func rank(merged map[string]*candidate, exclude map[string]struct{}) []*candidate {
	out := make([]*candidate, 0, len(merged))
	for id, c := range merged {
		if _, skip := exclude[id]; skip {
			continue
		}
		sort.Strings(c.Seeds)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.BestRank != b.BestRank {
			return a.BestRank < b.BestRank
		}
		return a.ExternalID < b.ExternalID
	})
	return out
}

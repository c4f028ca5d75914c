// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package recommend

import (
	"errors"
	"fmt"

	"github.com/tomtom215/watchly/internal/models"
)

// Kind sentinels. A *PipelineError matches the sentinel of its kind.
var (
	ErrLibraryFetchFailed  = errors.New("library fetch failed")
	ErrNoSeedsAvailable    = errors.New("no seeds available")
	ErrUpstreamUnavailable = errors.New("recommendation upstream unavailable")
)

// ErrorKind classifies a pipeline failure.
type ErrorKind int

const (
	KindLibraryFetchFailed ErrorKind = iota + 1
	KindNoSeedsAvailable
	KindUpstreamUnavailable
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindLibraryFetchFailed:
		return ErrLibraryFetchFailed
	case KindNoSeedsAvailable:
		return ErrNoSeedsAvailable
	case KindUpstreamUnavailable:
		return ErrUpstreamUnavailable
	default:
		return nil
	}
}

// String returns the metrics label for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindLibraryFetchFailed:
		return "library_fetch_failed"
	case KindNoSeedsAvailable:
		return "no_seeds"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "unknown"
	}
}

// PipelineError is returned by every Pipeline entry point.
type PipelineError struct {
	Kind        ErrorKind
	ContentType models.ContentType
	Err         error
}

func (e *PipelineError) Error() string {
	prefix := "recommend"
	if e.ContentType != "" {
		prefix += " " + string(e.ContentType)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", prefix, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %v: %v", prefix, e.Kind.sentinel(), e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel, so callers need not use errors.As.
func (e *PipelineError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the kind of a pipeline error, or zero.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

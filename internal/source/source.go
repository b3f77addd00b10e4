// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source queries bibliographic search APIs and returns normalized,
// deduplicated paper metadata. Semantic Scholar is the primary provider;
// OpenAlex takes over when the primary is rate limited, refuses the request,
// or cannot be reached.
package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/pkg/types"
)

// MaxLimit is the largest number of results a single search may request.
const MaxLimit = 100

// Searcher returns up to limit papers for query published in or after
// yearFrom (0 disables the year filter).
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, limit, yearFrom int) ([]types.PaperMetadata, error)
}

// HTTPStatusError reports a non-200 answer from a provider.
type HTTPStatusError struct {
	Provider   string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Provider, e.StatusCode)
}

// fallbackStatuses are the primary-provider answers that send a query to
// the secondary provider instead of failing the run.
var fallbackStatuses = map[int]bool{
	400: true, 401: true, 403: true, 404: true,
	429: true, 500: true, 502: true, 503: true,
}

// ShouldFallback reports whether err from the primary provider is one the
// secondary provider can recover from: a status in the fallback set or a
// network-level failure. A cancelled request never falls back; provider
// timeouts do.
func ShouldFallback(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return fallbackStatuses[statusErr.StatusCode]
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Fallback searches Primary and switches to Secondary on recoverable
// errors. Any other primary error, and every secondary error, is returned.
type Fallback struct {
	Primary   Searcher
	Secondary Searcher
	Logger    *zap.Logger
}

func (f *Fallback) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

// Search runs the query and deduplicates the result by DOI or identifier.
func (f *Fallback) Search(ctx context.Context, query string, limit, yearFrom int) ([]types.PaperMetadata, error) {
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	papers, err := f.Primary.Search(ctx, query, limit, yearFrom)
	if err == nil {
		return Dedupe(papers), nil
	}
	if ctx.Err() != nil || !ShouldFallback(err) {
		return nil, fmt.Errorf("%s search: %w", f.Primary.Name(), err)
	}

	logger.Info("primary search provider unavailable, using fallback",
		zap.String("primary", f.Primary.Name()),
		zap.String("secondary", f.Secondary.Name()),
		zap.String("query", query),
		zap.Error(err))

	papers, err2 := f.Secondary.Search(ctx, query, limit, yearFrom)
	if err2 != nil {
		return nil, fmt.Errorf("search failed on %s and %s: %w", f.Primary.Name(), f.Secondary.Name(), errors.Join(err, err2))
	}
	return Dedupe(papers), nil
}

// Dedupe drops papers whose identity key was already seen, keeping the
// first occurrence and the input order.
func Dedupe(papers []types.PaperMetadata) []types.PaperMetadata {
	seen := make(map[string]bool, len(papers))
	out := make([]types.PaperMetadata, 0, len(papers))
	for _, p := range papers {
		key := p.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func clampLimit(limit int) int {
	return min(max(limit, 1), MaxLimit)
}

package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/christopherklint97/skedule/internal/interval"
)

// NamedSource is a BusySource tagged with a name for reporting.
type NamedSource struct {
	Name   string
	Source BusySource
}

// SourceResult is the outcome of querying one source. Err is set when the
// source was skipped.
type SourceResult struct {
	Name      string
	Intervals []interval.Interval
	Err       error
}

// Skipped reports whether the source contributed nothing because it failed.
func (r SourceResult) Skipped() bool {
	return r.Err != nil
}

// Aggregator merges busy time from several sources. A failing source is
// skipped rather than failing the whole query; only when every source fails
// does FetchBusy return an error.
type Aggregator struct {
	sources []NamedSource
	logger  *slog.Logger
}

func NewAggregator(sources []NamedSource, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{sources: sources, logger: logger}
}

// Len returns the number of configured sources.
func (a *Aggregator) Len() int {
	return len(a.sources)
}

// FetchAll queries every source concurrently and returns one result per
// source in configuration order.
func (a *Aggregator) FetchAll(ctx context.Context, userID string, start, end time.Time) []SourceResult {
	results := make([]SourceResult, len(a.sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			ivs, err := src.Source.FetchBusy(ctx, userID, start, end)
			results[i] = SourceResult{Name: src.Name, Intervals: ivs, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Skipped() {
			a.logger.Warn("skipping busy source", "source", r.Name, "error", r.Err)
		} else {
			a.logger.Debug("busy source fetched", "source", r.Name, "intervals", len(r.Intervals))
		}
	}
	return results
}

// FetchBusy returns the merged busy time of all sources that answered.
func (a *Aggregator) FetchBusy(ctx context.Context, userID string, start, end time.Time) ([]interval.Interval, error) {
	if len(a.sources) == 0 {
		return nil, nil
	}

	results := a.FetchAll(ctx, userID, start, end)

	var all []interval.Interval
	var errs []error
	for _, r := range results {
		if r.Skipped() {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
			continue
		}
		all = append(all, r.Intervals...)
	}
	if len(errs) == len(results) {
		return nil, errors.Join(errs...)
	}
	return interval.Merge(all), nil
}

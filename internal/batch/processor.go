package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidOptions is returned for a group size or concurrency below 1.
var ErrInvalidOptions = errors.New("invalid batch options")

// ErrOutputMismatch is returned by Map when a transform returns a different
// number of results than it was given items.
var ErrOutputMismatch = errors.New("transform output does not match group size")

// Options configures a batch run.
type Options struct {
	GroupSize      int
	MaxConcurrency int
	Retry          RetryPolicy
	Logger         *slog.Logger
}

func (o Options) validate() error {
	if o.GroupSize < 1 {
		return fmt.Errorf("%w: group size %d", ErrInvalidOptions, o.GroupSize)
	}
	if o.MaxConcurrency < 1 {
		return fmt.Errorf("%w: max concurrency %d", ErrInvalidOptions, o.MaxConcurrency)
	}
	return nil
}

// Group is a contiguous slice of the input. Offset is the index of
// Items[0] in the original input.
type Group[T any] struct {
	Index  int
	Offset int
	Items  []T
}

// Transform processes one group.
type Transform[T, R any] func(ctx context.Context, g Group[T]) ([]R, error)

// Fallback produces degraded output for a group whose attempts were all
// exhausted. lastErr is the final error.
type Fallback[T, R any] func(g Group[T], lastErr error) []R

// Stats summarizes a batch run.
type Stats struct {
	Groups         int
	DegradedGroups int
	Attempts       int
}

// Partition splits items into contiguous groups of size; the last group
// may be shorter.
func Partition[T any](items []T, size int) []Group[T] {
	if size < 1 || len(items) == 0 {
		return nil
	}
	groups := make([]Group[T], 0, (len(items)+size-1)/size)
	for offset := 0; offset < len(items); offset += size {
		end := min(offset+size, len(items))
		groups = append(groups, Group[T]{
			Index:  len(groups),
			Offset: offset,
			Items:  items[offset:end],
		})
	}
	return groups
}

// Map runs fn over each group and places output j of a group at input
// position Offset+j, so the result has the same length and order as items.
// A transform returning the wrong number of outputs counts as a failed
// attempt.
func Map[T, R any](ctx context.Context, items []T, opts Options, fn Transform[T, R], fallback Fallback[T, R]) ([]R, Stats, error) {
	checked := func(ctx context.Context, g Group[T]) ([]R, error) {
		out, err := fn(ctx, g)
		if err != nil {
			return nil, err
		}
		if len(out) != len(g.Items) {
			return nil, fmt.Errorf("%w: group %d returned %d results for %d items",
				ErrOutputMismatch, g.Index, len(out), len(g.Items))
		}
		return out, nil
	}

	perGroup, stats, err := run(ctx, items, opts, checked, fallback)
	if err != nil {
		return nil, stats, err
	}

	results := make([]R, len(items))
	groups := Partition(items, opts.GroupSize)
	for i, g := range groups {
		out := perGroup[i]
		if len(out) != len(g.Items) {
			return nil, stats, fmt.Errorf("%w: fallback for group %d returned %d results for %d items",
				ErrOutputMismatch, g.Index, len(out), len(g.Items))
		}
		copy(results[g.Offset:], out)
	}
	return results, stats, nil
}

// FlatMap runs fn over each group and concatenates the outputs in group
// order, regardless of the order in which groups finish.
func FlatMap[T, R any](ctx context.Context, items []T, opts Options, fn Transform[T, R], fallback Fallback[T, R]) ([]R, Stats, error) {
	perGroup, stats, err := run(ctx, items, opts, fn, fallback)
	if err != nil {
		return nil, stats, err
	}
	var results []R
	for _, out := range perGroup {
		results = append(results, out...)
	}
	if results == nil {
		results = []R{}
	}
	return results, stats, nil
}

// run executes every group and returns the per-group outputs indexed by
// group. Without a fallback, the first exhausted group cancels the rest
// and its error is returned.
func run[T, R any](ctx context.Context, items []T, opts Options, fn Transform[T, R], fallback Fallback[T, R]) ([][]R, Stats, error) {
	if err := opts.validate(); err != nil {
		return nil, Stats{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	groups := Partition(items, opts.GroupSize)
	perGroup := make([][]R, len(groups))
	stats := Stats{Groups: len(groups)}
	if len(groups) == 0 {
		return perGroup, stats, nil
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.MaxConcurrency)

	for _, g := range groups {
		eg.Go(func() error {
			groupLog := logger.With("group", g.Index, "offset", g.Offset, "size", len(g.Items))

			var out []R
			attempts, err := opts.Retry.Do(egCtx, groupLog, func(ctx context.Context) error {
				var err error
				out, err = fn(ctx, g)
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			stats.Attempts += attempts

			if err != nil {
				if fallback == nil || egCtx.Err() != nil {
					return fmt.Errorf("group %d failed after %d attempts: %w", g.Index, attempts, err)
				}
				groupLog.Error("group exhausted retries, using fallback", "attempts", attempts, "error", err)
				perGroup[g.Index] = fallback(g, err)
				stats.DegradedGroups++
				return nil
			}
			perGroup[g.Index] = out
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, stats, err
	}
	return perGroup, stats, nil
}

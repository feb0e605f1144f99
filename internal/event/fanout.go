package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Result is the outcome of one fan-out target. Err is nil on success.
type Result struct {
	Key string
	Err error
}

// FanOut applies fn to every item concurrently and waits for all of them.
// Every item is attempted even when others fail; already-applied writes are
// never compensated. The caller inspects the per-item results and usually
// aggregates them with JoinErrors so the event system retries the whole event.
func FanOut[T any](ctx context.Context, items []T, key func(T) string, fn func(context.Context, T) error) []Result {
	results := make([]Result, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			results[i] = Result{Key: key(item), Err: fn(ctx, item)}
		}(i, item)
	}
	wg.Wait()
	return results
}

// FanOutBatched applies fn in fixed-size batches: items within a batch run
// concurrently, each batch is awaited before the next starts. Bounds the load
// on the downstream collaborator.
func FanOutBatched[T any](ctx context.Context, items []T, batchSize int, key func(T) string, fn func(context.Context, T) error) []Result {
	if batchSize <= 0 {
		batchSize = 1
	}
	results := make([]Result, 0, len(items))
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		results = append(results, FanOut(ctx, items[start:end], key, fn)...)
	}
	return results
}

// JoinErrors folds the per-item results into a single error, nil when every
// item succeeded. Failed items are identified by key in the joined error.
func JoinErrors(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Key, r.Err))
		}
	}
	return errors.Join(errs...)
}

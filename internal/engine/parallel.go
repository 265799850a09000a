package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"dqx/internal/dataset"
	"dqx/internal/dqerr"
	"dqx/internal/rules"
)

// ApplyAndSplitParallel shards ds into at most workers contiguous
// partitions, splits them concurrently and concatenates the outputs in
// partition order. The result is identical to Split. ctx only cancels the
// fan-out; workers <= 1 runs a single partition.
func (e *Engine) ApplyAndSplitParallel(ctx context.Context, ds *dataset.Dataset, rs rules.RuleSet, workers int) (Result, error) {
	if ds == nil {
		return Result{}, dqerr.InvalidInput("apply", "dataset is nil")
	}
	bound, err := e.bind(rs)
	if err != nil {
		return Result{}, err
	}

	parts := ds.Partition(workers)
	results := make([]Result, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		i, part := i, part
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := split(part, bound)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	if len(results) == 1 {
		return results[0], nil
	}
	cleans := make([]*dataset.Dataset, len(results))
	quars := make([]*dataset.Dataset, len(results))
	var sum Summary
	for i, r := range results {
		cleans[i] = r.Clean
		quars[i] = r.Quarantined
		sum.add(r.Summary)
	}
	clean, err := dataset.Concat(cleans...)
	if err != nil {
		return Result{}, fmt.Errorf("apply: %w", err)
	}
	quarantined, err := dataset.Concat(quars...)
	if err != nil {
		return Result{}, fmt.Errorf("apply: %w", err)
	}
	return Result{Clean: clean, Quarantined: quarantined, Summary: sum}, nil
}

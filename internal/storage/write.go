package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"dqx/internal/dataset"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is used when WriteDataset gets a non-positive batch size.
const DefaultBatchSize = 5000

// WriteDataset replaces the destination described by cfg with ds: the table
// is dropped and recreated from the dataset schema, then rows are loaded in
// batches. It returns the number of rows written.
func WriteDataset(
	ctx context.Context,
	cfg Config,
	repo Repository,
	ds *dataset.Dataset,
	batchSize int,
	log logrus.FieldLogger,
) (int64, error) {
	if ds == nil {
		return 0, fmt.Errorf("storage: nil dataset")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if err := ReplaceTable(ctx, cfg, repo, ds.Schema()); err != nil {
		return 0, fmt.Errorf("storage: replace table: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan []any, batchSize)

	g.Go(func() error {
		defer close(rows)
		var err error
		ds.Each(func(_ int, row []any) bool {
			select {
			case rows <- row:
				return true
			case <-gctx.Done():
				err = gctx.Err()
				return false
			}
		})
		return err
	})

	var written int64
	g.Go(func() error {
		n, err := LoadBatches(gctx, ds.Schema().Names(), rows, batchSize, repo.CopyFrom, log)
		written = n
		return err
	})

	if err := g.Wait(); err != nil {
		return written, fmt.Errorf("storage: load: %w", err)
	}
	return written, nil
}

// SQLValue converts a dataset value into one every database/sql driver
// accepts. String lists become JSON array text; nil and scalars pass
// through.
func SQLValue(v any) any {
	if l, ok := v.([]string); ok {
		b, err := json.Marshal(l)
		if err != nil {
			return nil
		}
		return string(b)
	}
	return v
}

// SQLRow applies SQLValue to each value of row into a new slice.
func SQLRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = SQLValue(v)
	}
	return out
}

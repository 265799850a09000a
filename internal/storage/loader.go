package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// CopyFn abstracts a backend's bulk insert capability. It receives rows
// aligned to columns and reports how many were written. The rows slice is
// reused after the call returns.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains in, groups rows into batches of batchSize and calls
// copyFn per non-empty batch. It returns the total reported by copyFn and
// the first error. A nil log discards progress lines.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
	log logrus.FieldLogger,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	if log == nil {
		log = discardLogger()
	}

	var (
		total     int64
		batches   int64
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"written": n, "total": total}).Error("loader: copy failed")
			return err
		}

		batches++
		now := time.Now()
		rps := float64(0)
		if d := now.Sub(lastFlush); d > 0 {
			rps = float64(n) / d.Seconds()
		}
		log.WithFields(logrus.Fields{
			"batch":   batches,
			"rows":    n,
			"total":   total,
			"rps":     int64(rps),
			"elapsed": now.Sub(start).Truncate(time.Millisecond).String(),
		}).Debug("loader: batch written")
		lastFlush = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

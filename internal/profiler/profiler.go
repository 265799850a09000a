// Package profiler computes per-column statistics over a dataset: null and
// empty counts, distinct counts, min/max for ordered types, the observed
// value set of low-cardinality columns, and an inferred type for string
// columns. The statistics feed the rule generator.
package profiler

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"dqx/internal/dataset"
	"dqx/internal/dqerr"
)

const (
	// DefaultMaxDistinct is the cardinality threshold under which a column's
	// observed values are captured.
	DefaultMaxDistinct = 20
	// DefaultMaxTracked caps the hashed distinct set per column.
	DefaultMaxTracked = 1 << 20
)

// Options tunes profiling.
type Options struct {
	// MaxDistinct is the cardinality threshold for capturing Values. Zero
	// means DefaultMaxDistinct; negative disables capture.
	MaxDistinct int
	// MaxTracked caps the distinct set per column. Zero means
	// DefaultMaxTracked. Beyond the cap Distinct is a lower bound.
	MaxTracked int
	// TrimStrings counts whitespace-only strings as empty.
	TrimStrings bool
}

// DefaultOptions returns the defaults used by the CLI and job runner.
func DefaultOptions() Options {
	return Options{MaxDistinct: DefaultMaxDistinct, MaxTracked: DefaultMaxTracked, TrimStrings: true}
}

func (o Options) withDefaults() Options {
	if o.MaxDistinct == 0 {
		o.MaxDistinct = DefaultMaxDistinct
	}
	if o.MaxTracked <= 0 {
		o.MaxTracked = DefaultMaxTracked
	}
	return o
}

// ColumnStats describes one column.
type ColumnStats struct {
	Name string
	// Type is the inferred logical type. For typed columns it equals Declared;
	// string columns are refined from their contents.
	Type     dataset.LogicalType
	Declared dataset.LogicalType
	Count    int64
	Nulls    int64
	Empty    int64
	Distinct int64
	// DistinctApprox marks Distinct as a lower bound.
	DistinctApprox bool
	// Min and Max are set for columns holding ordered values.
	Min any
	Max any
	// Values are the sorted string forms of every observed non-null value,
	// set only when Distinct is within the cardinality threshold.
	Values []string
}

// NullRatio returns Nulls/Count, or 0 for an empty column.
func (c ColumnStats) NullRatio() float64 {
	if c.Count == 0 {
		return 0
	}
	return float64(c.Nulls) / float64(c.Count)
}

// HasRange reports whether Min and Max are set.
func (c ColumnStats) HasRange() bool { return c.Min != nil && c.Max != nil }

// Summary aggregates a profile over the whole dataset.
type Summary struct {
	Rows             int64
	Columns          int
	NullCells        int64
	ColumnsWithNulls int
	Stats            []ColumnStats
}

// Profile computes statistics for ds in a single pass over its rows.
func Profile(ds *dataset.Dataset, opt Options) (Summary, []ColumnStats, error) {
	if ds == nil {
		return Summary{}, nil, dqerr.InvalidInput("profile", "dataset is nil")
	}
	acc := NewAccumulator(ds.Schema(), opt)
	if err := acc.Add(ds); err != nil {
		return Summary{}, nil, err
	}
	sum, stats := acc.Result()
	return sum, stats, nil
}

// ProfileParallel profiles contiguous partitions of ds concurrently and
// merges them in partition order. workers <= 1 profiles sequentially.
func ProfileParallel(ctx context.Context, ds *dataset.Dataset, opt Options, workers int) (Summary, []ColumnStats, error) {
	if ds == nil {
		return Summary{}, nil, dqerr.InvalidInput("profile", "dataset is nil")
	}
	parts := ds.Partition(workers)
	accs := make([]*Accumulator, len(parts))
	schema := ds.Schema()

	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		i, part := i, part
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			acc := NewAccumulator(schema, opt)
			if err := acc.Add(part); err != nil {
				return err
			}
			accs[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, nil, fmt.Errorf("profile: %w", err)
	}

	merged := accs[0]
	for _, acc := range accs[1:] {
		if err := merged.Merge(acc); err != nil {
			return Summary{}, nil, err
		}
	}
	sum, stats := merged.Result()
	return sum, stats, nil
}

// Render writes a human-readable report of every summary and column field.
func (s Summary) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "rows: %d  columns: %d  null cells: %d  columns with nulls: %d\n\n",
		s.Rows, s.Columns, s.NullCells, s.ColumnsWithNulls); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tDECLARED\tCOUNT\tNULLS\tNULL%\tEMPTY\tDISTINCT\tMIN\tMAX\tVALUES")
	for _, c := range s.Stats {
		distinct := strconv.FormatInt(c.Distinct, 10)
		if c.DistinctApprox {
			distinct = ">=" + distinct
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.1f\t%d\t%s\t%s\t%s\t%s\n",
			c.Name, c.Type, c.Declared, c.Count, c.Nulls, 100*c.NullRatio(), c.Empty, distinct,
			orDash(c.Min), orDash(c.Max), valuesCell(c.Values))
	}
	return tw.Flush()
}

func orDash(v any) string {
	if v == nil {
		return "-"
	}
	return dataset.Format(v)
}

func valuesCell(vs []string) string {
	if len(vs) == 0 {
		return "-"
	}
	return "[" + strings.Join(vs, ", ") + "]"
}

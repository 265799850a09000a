package profiler

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"dqx/internal/dataset"
)

// Accumulator is the mergeable per-column state of a profile. Accumulators
// built over contiguous partitions of a dataset and merged in partition
// order produce the same statistics as one accumulator over the whole
// dataset, except that DistinctApprox may differ once a distinct set
// reaches Options.MaxTracked.
type Accumulator struct {
	opt    Options
	schema dataset.Schema
	rows   int64
	cols   []*columnAcc
}

type columnAcc struct {
	nulls  int64
	empty  int64
	seen   map[uint64]struct{}
	approx bool
	// values holds up to MaxDistinct+1 distinct string forms in first-seen order.
	values []string
	min    any
	max    any
	types  dataset.TypeTracker
}

// NewAccumulator returns an empty accumulator for schema.
func NewAccumulator(schema dataset.Schema, opt Options) *Accumulator {
	opt = opt.withDefaults()
	a := &Accumulator{opt: opt, schema: schema, cols: make([]*columnAcc, len(schema))}
	for i := range a.cols {
		a.cols[i] = &columnAcc{seen: make(map[uint64]struct{})}
	}
	return a
}

// Add folds every row of ds into the accumulator in one pass.
func (a *Accumulator) Add(ds *dataset.Dataset) error {
	if !reflect.DeepEqual(ds.Schema(), a.schema) {
		return fmt.Errorf("profiler: dataset schema does not match accumulator")
	}
	ds.Each(func(_ int, row []any) bool {
		a.rows++
		for i, v := range row {
			a.cols[i].observe(v, a.schema[i].Type, a.opt)
		}
		return true
	})
	return nil
}

func (c *columnAcc) observe(v any, declared dataset.LogicalType, opt Options) {
	if v == nil {
		c.nulls++
		return
	}
	s := dataset.Format(v)
	if str, ok := v.(string); ok {
		blank := str == ""
		if opt.TrimStrings {
			blank = strings.TrimSpace(str) == ""
		}
		if blank {
			c.empty++
		}
		if declared == dataset.TypeString {
			c.types.Observe(str)
		}
	}
	c.track(s, opt)

	if _, isStr := v.(string); isStr {
		return
	}
	if _, isBool := v.(bool); isBool {
		return
	}
	if c.min == nil {
		c.min, c.max = v, v
		return
	}
	if cmp, ok := dataset.Compare(v, c.min); ok && cmp < 0 {
		c.min = v
	}
	if cmp, ok := dataset.Compare(v, c.max); ok && cmp > 0 {
		c.max = v
	}
}

func (c *columnAcc) track(s string, opt Options) {
	h := xxh3.HashString(s)
	if _, ok := c.seen[h]; ok {
		return
	}
	if len(c.seen) >= opt.MaxTracked {
		c.approx = true
		return
	}
	c.seen[h] = struct{}{}
	if opt.MaxDistinct >= 0 && len(c.values) <= opt.MaxDistinct {
		c.values = append(c.values, s)
	}
}

// Merge folds b into a. Both must share schema and options.
func (a *Accumulator) Merge(b *Accumulator) error {
	if !reflect.DeepEqual(a.schema, b.schema) {
		return fmt.Errorf("profiler: cannot merge accumulators with different schemas")
	}
	a.rows += b.rows
	for i, c := range a.cols {
		o := b.cols[i]
		c.nulls += o.nulls
		c.empty += o.empty
		c.approx = c.approx || o.approx
		c.types.Merge(o.types)

		// Values first: membership is decided against the pre-merge set.
		for _, s := range o.values {
			if _, ok := c.seen[xxh3.HashString(s)]; ok {
				continue
			}
			if a.opt.MaxDistinct >= 0 && len(c.values) <= a.opt.MaxDistinct {
				c.values = append(c.values, s)
			}
		}
		for h := range o.seen {
			if _, ok := c.seen[h]; ok {
				continue
			}
			if len(c.seen) >= a.opt.MaxTracked {
				c.approx = true
				break
			}
			c.seen[h] = struct{}{}
		}

		if o.min != nil {
			if c.min == nil {
				c.min, c.max = o.min, o.max
			} else {
				if cmp, ok := dataset.Compare(o.min, c.min); ok && cmp < 0 {
					c.min = o.min
				}
				if cmp, ok := dataset.Compare(o.max, c.max); ok && cmp > 0 {
					c.max = o.max
				}
			}
		}
	}
	return nil
}

// Result computes the summary and per-column statistics.
func (a *Accumulator) Result() (Summary, []ColumnStats) {
	stats := make([]ColumnStats, len(a.schema))
	sum := Summary{Rows: a.rows, Columns: len(a.schema)}
	for i, col := range a.schema {
		c := a.cols[i]
		st := ColumnStats{
			Name:           col.Name,
			Declared:       col.Type,
			Type:           col.Type,
			Count:          a.rows,
			Nulls:          c.nulls,
			Empty:          c.empty,
			Distinct:       int64(len(c.seen)),
			DistinctApprox: c.approx,
			Min:            c.min,
			Max:            c.max,
		}
		if col.Type == dataset.TypeString {
			st.Type = c.types.Type()
		}
		if !c.approx && a.opt.MaxDistinct >= 0 && st.Distinct > 0 && st.Distinct <= int64(a.opt.MaxDistinct) {
			st.Values = append([]string(nil), c.values...)
			sort.Strings(st.Values)
		}
		stats[i] = st

		sum.NullCells += c.nulls
		if c.nulls > 0 {
			sum.ColumnsWithNulls++
		}
	}
	sum.Stats = append([]ColumnStats(nil), stats...)
	return sum, stats
}

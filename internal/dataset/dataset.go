// Package dataset defines the in-memory tabular batch consumed and produced by
// the data-quality engine.
//
// A Dataset is an ordered sequence of rows sharing a fixed schema. Values are
// stored positionally and use a small set of Go types per logical type:
//
//	string        -> string
//	integer       -> int64
//	real          -> float64
//	boolean       -> bool
//	date          -> time.Time (UTC, midnight)
//	timestamp     -> time.Time
//	array<string> -> []string (diagnostic metadata columns)
//
// nil is the null value for every type. Datasets are immutable: constructors
// copy the rows they receive and accessors hand out copies, so a Dataset can
// be shared freely between goroutines.
package dataset

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// LogicalType is the declared type of a column.
type LogicalType string

const (
	TypeString     LogicalType = "string"
	TypeInteger    LogicalType = "integer"
	TypeReal       LogicalType = "real"
	TypeBoolean    LogicalType = "boolean"
	TypeDate       LogicalType = "date"
	TypeTimestamp  LogicalType = "timestamp"
	TypeStringList LogicalType = "array<string>"
)

// Known reports whether t is one of the declared logical types.
func (t LogicalType) Known() bool {
	switch t {
	case TypeString, TypeInteger, TypeReal, TypeBoolean, TypeDate, TypeTimestamp, TypeStringList:
		return true
	}
	return false
}

// Ordered reports whether values of t have a natural order (min/max).
func (t LogicalType) Ordered() bool {
	switch t {
	case TypeInteger, TypeReal, TypeDate, TypeTimestamp:
		return true
	}
	return false
}

// Numeric reports whether t is integer or real.
func (t LogicalType) Numeric() bool { return t == TypeInteger || t == TypeReal }

// Column is a named, typed column of a schema.
type Column struct {
	Name string      `json:"name" yaml:"name"`
	Type LogicalType `json:"type" yaml:"type"`
}

// Schema is the ordered column list of a Dataset.
type Schema []Column

// Index returns the position of the named column.
func (s Schema) Index(name string) (int, bool) {
	for i, c := range s {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Has reports whether the schema contains the named column.
func (s Schema) Has(name string) bool {
	_, ok := s.Index(name)
	return ok
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Validate rejects empty and duplicate column names.
func (s Schema) Validate() error {
	seen := make(map[string]int, len(s))
	for i, c := range s {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("column %d has an empty name", i)
		}
		if j, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate column %q at positions %d and %d", c.Name, j, i)
		}
		seen[c.Name] = i
	}
	return nil
}

func (s Schema) clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

// Dataset is an immutable batch of rows with a fixed schema.
type Dataset struct {
	schema Schema
	rows   [][]any
}

// New builds a Dataset from schema and rows. Every row must have exactly
// len(schema) values. Rows are copied.
func New(schema Schema, rows [][]any) (*Dataset, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		if len(r) != len(schema) {
			return nil, fmt.Errorf("dataset: row %d has %d values; schema has %d columns", i, len(r), len(schema))
		}
		out[i] = append(make([]any, 0, len(r)), r...)
	}
	return &Dataset{schema: schema.clone(), rows: out}, nil
}

// Empty returns a Dataset with the given schema and no rows.
func Empty(schema Schema) (*Dataset, error) { return New(schema, nil) }

// adopt wraps rows without copying. Callers must not retain rows.
func adopt(schema Schema, rows [][]any) *Dataset {
	return &Dataset{schema: schema, rows: rows}
}

// Schema returns a copy of the dataset schema.
func (d *Dataset) Schema() Schema { return d.schema.clone() }

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Row returns a copy of row i.
func (d *Dataset) Row(i int) []any {
	return append(make([]any, 0, len(d.rows[i])), d.rows[i]...)
}

// Value returns the value of column name in row i.
func (d *Dataset) Value(i int, name string) (any, bool) {
	ix, ok := d.schema.Index(name)
	if !ok {
		return nil, false
	}
	return d.rows[i][ix], true
}

// Column materializes the named column as a vector aligned with row order.
func (d *Dataset) Column(name string) ([]any, bool) {
	ix, ok := d.schema.Index(name)
	if !ok {
		return nil, false
	}
	out := make([]any, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[ix]
	}
	return out, true
}

// Each calls fn for every row in order until fn returns false. The row slice
// is only valid for the duration of the call and must not be modified.
func (d *Dataset) Each(fn func(i int, row []any) bool) {
	for i, r := range d.rows {
		if !fn(i, r) {
			return
		}
	}
}

// Partition splits the dataset into at most n contiguous, order-preserving
// parts. An empty dataset yields a single empty part.
func (d *Dataset) Partition(n int) []*Dataset {
	if n <= 1 || len(d.rows) <= 1 {
		return []*Dataset{d}
	}
	if n > len(d.rows) {
		n = len(d.rows)
	}
	size := (len(d.rows) + n - 1) / n
	parts := make([]*Dataset, 0, n)
	for lo := 0; lo < len(d.rows); lo += size {
		hi := lo + size
		if hi > len(d.rows) {
			hi = len(d.rows)
		}
		parts = append(parts, adopt(d.schema, d.rows[lo:hi:hi]))
	}
	return parts
}

// Drop returns a dataset without the named columns. Unknown names are ignored.
func (d *Dataset) Drop(cols ...string) *Dataset {
	drop := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		drop[c] = struct{}{}
	}
	keep := make([]int, 0, len(d.schema))
	schema := make(Schema, 0, len(d.schema))
	for i, c := range d.schema {
		if _, ok := drop[c.Name]; ok {
			continue
		}
		keep = append(keep, i)
		schema = append(schema, c)
	}
	rows := make([][]any, len(d.rows))
	for i, r := range d.rows {
		nr := make([]any, len(keep))
		for j, ix := range keep {
			nr[j] = r[ix]
		}
		rows[i] = nr
	}
	return adopt(schema, rows)
}

// Concat appends datasets with identical schemas in argument order.
func Concat(parts ...*Dataset) (*Dataset, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("dataset: concat of zero parts")
	}
	schema := parts[0].schema
	total := 0
	for i, p := range parts {
		if !reflect.DeepEqual(p.schema, schema) {
			return nil, fmt.Errorf("dataset: part %d schema differs from part 0", i)
		}
		total += len(p.rows)
	}
	rows := make([][]any, 0, total)
	for _, p := range parts {
		rows = append(rows, p.rows...)
	}
	return adopt(schema.clone(), rows), nil
}

// Equal reports whether a and b have the same schema and the same rows in
// the same order.
func Equal(a, b *Dataset) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !reflect.DeepEqual(a.schema, b.schema) || len(a.rows) != len(b.rows) {
		return false
	}
	for i := range a.rows {
		if !RowsEqual(a.rows[i], b.rows[i]) {
			return false
		}
	}
	return true
}

// RowsEqual compares two rows value by value. time.Time values are compared
// with Equal so that monotonic clock readings do not matter.
func RowsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ta, aok := a[i].(time.Time)
		tb, bok := b[i].(time.Time)
		if aok && bok {
			if !ta.Equal(tb) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Builder accumulates rows for a schema.
type Builder struct {
	schema Schema
	rows   [][]any
}

// NewBuilder returns a Builder for schema.
func NewBuilder(schema Schema) *Builder {
	return &Builder{schema: schema.clone()}
}

// Append adds a copy of row.
func (b *Builder) Append(row []any) error {
	if len(row) != len(b.schema) {
		return fmt.Errorf("dataset: row has %d values; schema has %d columns", len(row), len(b.schema))
	}
	b.rows = append(b.rows, append(make([]any, 0, len(row)), row...))
	return nil
}

// Len returns the number of appended rows.
func (b *Builder) Len() int { return len(b.rows) }

// Build returns the Dataset. The builder must not be used afterwards.
func (b *Builder) Build() (*Dataset, error) {
	if err := b.schema.Validate(); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	d := adopt(b.schema, b.rows)
	b.rows = nil
	return d, nil
}

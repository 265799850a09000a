// Package csv reads delimited text into a typed dataset.Dataset.
//
// Headers are normalized to safe column names, a UTF-8 BOM is dropped, and
// each column's logical type is inferred from a sample of rows unless the
// caller pins it. Cells are then coerced to that type; empty cells become
// null.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"dqx/internal/dataset"
	"dqx/internal/dqerr"
	"dqx/internal/parser"
)

// Options configures the CSV parser. Use DefaultOptions as a starting point;
// the zero value reads headerless input.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	// Without one, columns are named col_0, col_1, ...
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// NormalizeHeaders rewrites headers with dataset.NormalizeName.
	NormalizeHeaders bool

	// SampleRows bounds how many rows feed type inference. 0 uses every row.
	SampleRows int

	// Types pins the logical type of columns by their final name.
	Types map[string]dataset.LogicalType

	// SkipMalformed drops rows that cannot be read or have the wrong width
	// and counts them, instead of failing the read.
	SkipMalformed bool
}

// DefaultOptions returns header-aware, normalizing options with a 1000-row
// inference sample.
func DefaultOptions() Options {
	return Options{
		HasHeader:        true,
		Comma:            ',',
		NormalizeHeaders: true,
		SampleRows:       1000,
	}
}

var _ parser.Parser = (*Parser)(nil)

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

type rawRow struct {
	line   int
	fields []string
}

// ReadDataset consumes r and returns the typed dataset plus the number of
// rows dropped because SkipMalformed is set.
func (p *Parser) ReadDataset(r io.Reader) (*dataset.Dataset, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	// Width is enforced below so the error names the line and counts.
	cr.FieldsPerRecord = -1

	var headers []string
	if p.opt.HasHeader {
		h, err := cr.Read()
		if err == io.EOF {
			return nil, 0, dqerr.InvalidInput("read csv", "input has no header row")
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv header: %w", err)
		}
		headers = p.columnNames(StripHeaderBOM(h))
	}

	var (
		raw     []rawRow
		skipped int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if p.opt.SkipMalformed && errors.As(err, &pe) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if headers == nil {
			headers = p.columnNames(make([]string, len(row)))
		}
		if len(row) != len(headers) {
			if p.opt.SkipMalformed {
				skipped++
				continue
			}
			return nil, skipped, dqerr.InvalidInput("read csv",
				fmt.Sprintf("line %d has %d fields; expected %d", line, len(row), len(headers)))
		}
		if p.opt.TrimSpace {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}
		raw = append(raw, rawRow{line: line, fields: row})
	}

	if err := p.checkTypes(headers); err != nil {
		return nil, skipped, err
	}

	schema := make(dataset.Schema, len(headers))
	rows := make([][]any, len(raw))
	for i := range rows {
		rows[i] = make([]any, len(headers))
	}
	for c, name := range headers {
		typ, pinned := p.opt.Types[name]
		if !pinned {
			typ = p.inferColumn(raw, c)
		}
		typ, err := fillColumn(rows, raw, c, typ, pinned)
		if err != nil {
			return nil, skipped, dqerr.InvalidInput("read csv", fmt.Sprintf("column %q: %v", name, err))
		}
		schema[c] = dataset.Column{Name: name, Type: typ}
	}

	ds, err := dataset.New(schema, rows)
	if err != nil {
		return nil, skipped, err
	}
	return ds, skipped, nil
}

// columnNames cleans headers and makes them unique. Empty names become
// col_N; repeats get a _2, _3, ... suffix.
func (p *Parser) columnNames(h []string) []string {
	out := make([]string, len(h))
	seen := make(map[string]bool, len(h))
	for i, col := range h {
		name := strings.TrimSpace(col)
		if p.opt.NormalizeHeaders && name != "" {
			name = dataset.NormalizeName(name)
		}
		if name == "" {
			name = "col_" + strconv.Itoa(i)
		}
		base := name
		for n := 2; seen[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func (p *Parser) checkTypes(headers []string) error {
	if len(p.opt.Types) == 0 {
		return nil
	}
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	var problems []string
	for name, typ := range p.opt.Types {
		switch {
		case !known[name]:
			problems = append(problems, fmt.Sprintf("type given for unknown column %q", name))
		case !typ.Known():
			problems = append(problems, fmt.Sprintf("column %q: unknown type %q", name, typ))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return dqerr.InvalidInput("read csv", strings.Join(problems, "; "))
}

func (p *Parser) inferColumn(raw []rawRow, c int) dataset.LogicalType {
	n := len(raw)
	if p.opt.SampleRows > 0 && p.opt.SampleRows < n {
		n = p.opt.SampleRows
	}
	var t dataset.TypeTracker
	for _, r := range raw[:n] {
		t.Observe(r.fields[c])
	}
	return t.Type()
}

// fillColumn coerces column c into rows. An inferred type that a value
// outside the sample does not fit falls back to string; a pinned type that
// does not fit is an error.
func fillColumn(rows [][]any, raw []rawRow, c int, typ dataset.LogicalType, pinned bool) (dataset.LogicalType, error) {
	for i, r := range raw {
		v, err := dataset.ParseValue(r.fields[c], typ)
		if err != nil {
			if pinned {
				return typ, fmt.Errorf("line %d: %w", r.line, err)
			}
			return fillColumn(rows, raw, c, dataset.TypeString, false)
		}
		rows[i][c] = v
	}
	return typ, nil
}

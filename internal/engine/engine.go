// Package engine validates rule sets and applies them to datasets.
//
// Apply evaluates every rule against every row, with no short-circuiting,
// and records the names of failing rules per row: error-level failures in
// the _errors metadata column, warn-level failures in _warnings. Split
// routes rows with at least one error to the quarantined output and every
// other row to the clean output. Row values are never modified.
//
// Evaluation is column-vectorized: each referenced column is materialized
// once per call and each rule's predicate runs once over the full vector.
package engine

import (
	"fmt"

	"dqx/internal/checks"
	"dqx/internal/dataset"
	"dqx/internal/dqerr"
	"dqx/internal/rules"
)

// Metadata column names added to applied datasets.
const (
	ErrorsColumn   = "_errors"
	WarningsColumn = "_warnings"
)

// Outcome lists the rules a row failed, in rule-set order.
type Outcome struct {
	Errors   []string
	Warnings []string
}

// Quarantined reports whether the row has at least one error.
func (o Outcome) Quarantined() bool { return len(o.Errors) > 0 }

// RuleCount is the number of rows that failed one rule.
type RuleCount struct {
	Rule        string
	Criticality rules.Criticality
	Failed      int64
}

// Summary counts the outcome of one application.
type Summary struct {
	Input       int64
	Clean       int64
	Quarantined int64
	// Warned counts rows with at least one warning, in either output.
	Warned int64
	Rules  []RuleCount
}

// Violations returns the total number of failed rule evaluations.
func (s Summary) Violations() int64 {
	var n int64
	for _, r := range s.Rules {
		n += r.Failed
	}
	return n
}

func (s *Summary) add(o Summary) {
	s.Input += o.Input
	s.Clean += o.Clean
	s.Quarantined += o.Quarantined
	s.Warned += o.Warned
	if s.Rules == nil {
		s.Rules = make([]RuleCount, len(o.Rules))
		copy(s.Rules, o.Rules)
		return
	}
	for i := range s.Rules {
		s.Rules[i].Failed += o.Rules[i].Failed
	}
}

// Result is the split output of an application.
type Result struct {
	Clean       *dataset.Dataset
	Quarantined *dataset.Dataset
	Summary     Summary
}

// Engine applies rule sets using a check function registry. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	reg *checks.Registry
}

// New returns an engine over reg; nil means the built-in registry.
func New(reg *checks.Registry) *Engine {
	if reg == nil {
		reg = checks.Builtin()
	}
	return &Engine{reg: reg}
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *checks.Registry { return e.reg }

type boundRule struct {
	rule rules.Rule
	crit rules.Criticality
	fn   checks.Function
	cols []string
}

// bind resolves every rule's function before any row is evaluated.
func (e *Engine) bind(rs rules.RuleSet) ([]boundRule, error) {
	out := make([]boundRule, len(rs))
	for i, r := range rs {
		fn, ok := e.reg.Lookup(r.Check.Function)
		if !ok {
			return nil, &dqerr.UnknownFunctionError{Rule: r.Name, Function: r.Check.Function}
		}
		out[i] = boundRule{
			rule: r,
			crit: r.Criticality.Effective(),
			fn:   fn,
			cols: fn.Columns(r.Check.Arguments),
		}
	}
	return out, nil
}

// evaluate runs every bound rule over ds and returns per-row outcomes.
func evaluate(ds *dataset.Dataset, bound []boundRule) ([]Outcome, Summary, error) {
	n := ds.Len()
	outcomes := make([]Outcome, n)
	sum := Summary{Input: int64(n), Rules: make([]RuleCount, len(bound))}
	vectors := make(map[string][]any)

	for ri, b := range bound {
		sum.Rules[ri] = RuleCount{Rule: b.rule.Name, Criticality: b.crit}

		cols := make([][]any, len(b.cols))
		for ci, name := range b.cols {
			vec, ok := vectors[name]
			if !ok {
				vec, ok = ds.Column(name)
				if !ok {
					return nil, Summary{}, &dqerr.EvaluationError{
						Rule: b.rule.Name, Function: b.fn.Name,
						Err: fmt.Errorf("column %q is not in the dataset", name),
					}
				}
				vectors[name] = vec
			}
			cols[ci] = vec
		}

		pass, err := b.fn.Eval(cols, checks.Args(b.rule.Check.Arguments))
		if err != nil {
			return nil, Summary{}, &dqerr.EvaluationError{Rule: b.rule.Name, Function: b.fn.Name, Err: err}
		}
		if len(pass) != n {
			return nil, Summary{}, &dqerr.EvaluationError{
				Rule: b.rule.Name, Function: b.fn.Name,
				Err: fmt.Errorf("predicate returned %d results for %d rows", len(pass), n),
			}
		}

		for i, ok := range pass {
			if ok {
				continue
			}
			sum.Rules[ri].Failed++
			if b.crit == rules.Warn {
				outcomes[i].Warnings = append(outcomes[i].Warnings, b.rule.Name)
			} else {
				outcomes[i].Errors = append(outcomes[i].Errors, b.rule.Name)
			}
		}
	}

	for _, o := range outcomes {
		if o.Quarantined() {
			sum.Quarantined++
		} else {
			sum.Clean++
		}
		if len(o.Warnings) > 0 {
			sum.Warned++
		}
	}
	return outcomes, sum, nil
}

// outputSchema is the input schema without any previous metadata columns,
// followed by _errors and _warnings.
func outputSchema(ds *dataset.Dataset) (*dataset.Dataset, dataset.Schema) {
	base := ds
	s := ds.Schema()
	if s.Has(ErrorsColumn) || s.Has(WarningsColumn) {
		base = ds.Drop(ErrorsColumn, WarningsColumn)
		s = base.Schema()
	}
	return base, append(s,
		dataset.Column{Name: ErrorsColumn, Type: dataset.TypeStringList},
		dataset.Column{Name: WarningsColumn, Type: dataset.TypeStringList},
	)
}

func annotate(row []any, o Outcome) []any {
	out := make([]any, 0, len(row)+2)
	out = append(out, row...)
	return append(out, listOrNil(o.Errors), listOrNil(o.Warnings))
}

func listOrNil(names []string) any {
	if len(names) == 0 {
		return nil
	}
	return append([]string(nil), names...)
}

// Apply evaluates rs over ds and returns every row annotated with the
// _errors and _warnings columns, in input order, plus the per-row outcomes.
// Metadata columns already present in ds are replaced.
func (e *Engine) Apply(ds *dataset.Dataset, rs rules.RuleSet) (*dataset.Dataset, []Outcome, error) {
	if ds == nil {
		return nil, nil, dqerr.InvalidInput("apply", "dataset is nil")
	}
	bound, err := e.bind(rs)
	if err != nil {
		return nil, nil, err
	}
	outcomes, _, err := evaluate(ds, bound)
	if err != nil {
		return nil, nil, err
	}
	base, schema := outputSchema(ds)
	b := dataset.NewBuilder(schema)
	var appendErr error
	base.Each(func(i int, row []any) bool {
		appendErr = b.Append(annotate(row, outcomes[i]))
		return appendErr == nil
	})
	if appendErr != nil {
		return nil, nil, fmt.Errorf("apply: %w", appendErr)
	}
	out, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("apply: %w", err)
	}
	return out, outcomes, nil
}

// Split evaluates rs over ds and partitions the annotated rows into clean
// and quarantined datasets. Within each output rows keep their input order.
func (e *Engine) Split(ds *dataset.Dataset, rs rules.RuleSet) (Result, error) {
	if ds == nil {
		return Result{}, dqerr.InvalidInput("apply", "dataset is nil")
	}
	bound, err := e.bind(rs)
	if err != nil {
		return Result{}, err
	}
	return split(ds, bound)
}

func split(ds *dataset.Dataset, bound []boundRule) (Result, error) {
	outcomes, sum, err := evaluate(ds, bound)
	if err != nil {
		return Result{}, err
	}
	base, schema := outputSchema(ds)
	clean := dataset.NewBuilder(schema)
	quarantined := dataset.NewBuilder(schema)
	var appendErr error
	base.Each(func(i int, row []any) bool {
		dst := clean
		if outcomes[i].Quarantined() {
			dst = quarantined
		}
		appendErr = dst.Append(annotate(row, outcomes[i]))
		return appendErr == nil
	})
	if appendErr != nil {
		return Result{}, fmt.Errorf("apply: %w", appendErr)
	}
	c, err := clean.Build()
	if err != nil {
		return Result{}, fmt.Errorf("apply: %w", err)
	}
	q, err := quarantined.Build()
	if err != nil {
		return Result{}, fmt.Errorf("apply: %w", err)
	}
	return Result{Clean: c, Quarantined: q, Summary: sum}, nil
}

// ApplyAndSplit returns the clean and quarantined outputs of applying rs
// to ds. |clean| + |quarantined| always equals |ds|.
func (e *Engine) ApplyAndSplit(ds *dataset.Dataset, rs rules.RuleSet) (clean, quarantined *dataset.Dataset, err error) {
	res, err := e.Split(ds, rs)
	if err != nil {
		return nil, nil, err
	}
	return res.Clean, res.Quarantined, nil
}

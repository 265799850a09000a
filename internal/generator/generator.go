// Package generator turns column statistics into a candidate rule set.
//
// For each column, in input order, it emits:
//
//	<col>_is_null       is_not_null(col_name)
//	<col>_other_value   value_is_in_list(col_name, allowed)   when a value set was captured
//	<col>_out_of_range  is_in_range(col_name, min, max)       with RangeRules, numeric columns
//
// The not-null rule is always proposed; profiling only describes the data
// seen so far.
package generator

import (
	"dqx/internal/checks"
	"dqx/internal/dqerr"
	"dqx/internal/profiler"
	"dqx/internal/rules"
)

// Options tunes rule generation. The zero value emits error-level not-null
// and value-set rules.
type Options struct {
	// Criticality of generated rules; empty means error.
	Criticality rules.Criticality
	// RangeRules adds min/max rules for numeric columns.
	RangeRules bool
}

// Generate builds the rule set for stats. It is deterministic and fails with
// *dqerr.NameCollisionError when two rules would share a name.
func Generate(stats []profiler.ColumnStats, opt Options) (rules.RuleSet, error) {
	crit := opt.Criticality.Effective()
	if !crit.Valid() {
		return nil, dqerr.InvalidInput("generate", "criticality "+string(opt.Criticality)+" is not error or warn")
	}

	out := make(rules.RuleSet, 0, 2*len(stats))
	owner := make(map[string]string, 2*len(stats))
	add := func(col string, r rules.Rule) error {
		if prev, dup := owner[r.Name]; dup {
			return &dqerr.NameCollisionError{Name: r.Name, Sources: []string{prev, col}}
		}
		owner[r.Name] = col
		out = append(out, r)
		return nil
	}

	for _, st := range stats {
		if st.Name == "" {
			return nil, dqerr.InvalidInput("generate", "column statistics with empty name")
		}
		if err := add(st.Name, rules.New(st.Name+"_is_null", crit, checks.IsNotNull, map[string]any{
			checks.ArgColumn: st.Name,
		})); err != nil {
			return nil, err
		}

		if len(st.Values) > 0 {
			allowed := append([]string(nil), st.Values...)
			if err := add(st.Name, rules.New(st.Name+"_other_value", crit, checks.ValueIsInList, map[string]any{
				checks.ArgColumn:  st.Name,
				checks.ArgAllowed: allowed,
			})); err != nil {
				return nil, err
			}
		}

		if opt.RangeRules && st.Type.Numeric() && st.HasRange() {
			if err := add(st.Name, rules.New(st.Name+"_out_of_range", crit, checks.IsInRange, map[string]any{
				checks.ArgColumn: st.Name,
				checks.ArgMin:    st.Min,
				checks.ArgMax:    st.Max,
			})); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

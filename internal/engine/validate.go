package engine

import (
	"fmt"
	"strings"

	"dqx/internal/checks"
	"dqx/internal/dataset"
	"dqx/internal/rules"
)

// Issue is one problem found in a rule set.
type Issue struct {
	// Index is the position of the rule in the rule set.
	Index   int
	Rule    string
	Message string
}

func (i Issue) String() string {
	name := i.Rule
	if name == "" {
		name = fmt.Sprintf("#%d", i.Index)
	}
	return fmt.Sprintf("rule %s: %s", name, i.Message)
}

// Status is the outcome of validating a rule set. HasErrors is true iff
// Errors is non-empty.
type Status struct {
	HasErrors bool
	Errors    []Issue
}

func (s Status) String() string {
	if !s.HasErrors {
		return "rule set is valid"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "rule set has %d error(s):", len(s.Errors))
	for _, is := range s.Errors {
		b.WriteString("\n  - ")
		b.WriteString(is.String())
	}
	return b.String()
}

// For returns the issues reported against the named rule.
func (s Status) For(rule string) []Issue {
	var out []Issue
	for _, is := range s.Errors {
		if is.Rule == rule {
			out = append(out, is)
		}
	}
	return out
}

// Validate checks rs against reg and, when schema is non-nil, against the
// dataset columns. It never fails: every problem becomes an Issue, in rule
// order. A nil reg means the built-in registry.
func Validate(rs rules.RuleSet, reg *checks.Registry, schema dataset.Schema) Status {
	if reg == nil {
		reg = checks.Builtin()
	}
	var issues []Issue
	report := func(i int, r rules.Rule, format string, args ...any) {
		issues = append(issues, Issue{Index: i, Rule: r.Name, Message: fmt.Sprintf(format, args...)})
	}

	first := make(map[string]int, len(rs))
	for i, r := range rs {
		if strings.TrimSpace(r.Name) == "" {
			report(i, r, "rule name is empty")
		} else if j, dup := first[r.Name]; dup {
			report(i, r, "duplicate rule name (first defined at entry %d)", j)
		} else {
			first[r.Name] = i
		}

		if !r.Criticality.Valid() {
			report(i, r, "invalid criticality %q: want %q or %q", r.Criticality, rules.Error, rules.Warn)
		}

		if r.Check.Function == "" {
			report(i, r, "check function is empty")
			continue
		}
		fn, ok := reg.Lookup(r.Check.Function)
		if !ok {
			report(i, r, "unknown function %q", r.Check.Function)
			continue
		}
		for _, p := range checks.CheckArgs(fn, r.Check.Arguments) {
			report(i, r, "%s", p)
		}
		if schema != nil {
			for _, col := range fn.Columns(r.Check.Arguments) {
				if !schema.Has(col) {
					report(i, r, "unknown column %q", col)
				}
			}
		}
	}
	return Status{HasErrors: len(issues) > 0, Errors: issues}
}

// Validate checks rs against the engine's registry.
func (e *Engine) Validate(rs rules.RuleSet, schema dataset.Schema) Status {
	return Validate(rs, e.reg, schema)
}

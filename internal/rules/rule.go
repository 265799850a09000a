// Package rules models data-quality rules and their interchange document.
//
// A RuleSet is an ordered list of named checks. The document form is a
// top-level sequence:
//
//	- name: customer_id_is_null
//	  criticality: error
//	  check:
//	    function: is_not_null
//	    arguments:
//	      col_name: customer_id
//
// Parse accepts YAML or JSON. Semantic checks (known function, argument
// types, unique names) belong to the validator, not to this package.
package rules

import (
	"math"
	"reflect"
	"sort"
	"time"

	"dqx/internal/dataset"
)

// Criticality decides where a failing row is routed.
type Criticality string

const (
	// Error quarantines the failing row.
	Error Criticality = "error"
	// Warn keeps the row clean and records the violation.
	Warn Criticality = "warn"
)

// Valid reports whether c is a recognized criticality. The empty value is
// valid and means Error.
func (c Criticality) Valid() bool {
	return c == "" || c == Error || c == Warn
}

// Effective resolves the empty criticality to Error.
func (c Criticality) Effective() Criticality {
	if c == "" {
		return Error
	}
	return c
}

// Check binds a check function to its arguments.
type Check struct {
	Function  string         `json:"function" yaml:"function"`
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// Rule is one named, addressable check.
type Rule struct {
	Name        string      `json:"name" yaml:"name"`
	Criticality Criticality `json:"criticality,omitempty" yaml:"criticality,omitempty"`
	Check       Check       `json:"check" yaml:"check"`
}

// New builds a rule. args is stored as given.
func New(name string, crit Criticality, function string, args map[string]any) Rule {
	return Rule{Name: name, Criticality: crit, Check: Check{Function: function, Arguments: args}}
}

// Arg returns the named argument.
func (r Rule) Arg(name string) (any, bool) {
	v, ok := r.Check.Arguments[name]
	return v, ok
}

// ArgNames returns the argument names in sorted order.
func (r Rule) ArgNames() []string {
	out := make([]string, 0, len(r.Check.Arguments))
	for k := range r.Check.Arguments {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RuleSet is an ordered sequence of rules; order is evaluation order.
type RuleSet []Rule

// Names returns the rule names in order.
func (rs RuleSet) Names() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

// Equal reports whether two rule sets hold the same rules in the same order.
// Argument values are compared in canonical form, so []string{"a"} equals
// []any{"a"} and 2.0 equals int64(2).
func Equal(a, b RuleSet) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name ||
			a[i].Criticality != b[i].Criticality ||
			a[i].Check.Function != b[i].Check.Function {
			return false
		}
		if len(a[i].Check.Arguments) != len(b[i].Check.Arguments) {
			return false
		}
		if !reflect.DeepEqual(Canonical(a[i].Check.Arguments), Canonical(b[i].Check.Arguments)) {
			return false
		}
	}
	return true
}

// Canonical normalizes a decoded argument value: integers become int64,
// integral floats become int64, other floats float64, times their
// dataset.Format string, any slice []any, and any string-keyed map
// map[string]any. Other values are returned unchanged.
//
// YAML decodes unquoted dates such as 2024-01-07 as time.Time.
func Canonical(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return dataset.Format(t)
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return canonicalFloat(float64(t))
	case float64:
		return canonicalFloat(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Canonical(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Canonical(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return v
			}
			out[ks] = Canonical(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Canonical(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func canonicalFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// Package checks holds the check function registry and the built-in
// vectorized predicates.
//
// A check function declares its parameters and evaluates whole column
// vectors at once: the engine materializes every column a rule references
// and calls the predicate a single time per rule. A predicate returns one
// boolean per row, true meaning the row passes.
package checks

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"dqx/internal/dataset"
)

// Kind enumerates the accepted value type of a parameter.
type Kind uint8

const (
	// KindColumn is a single column name.
	KindColumn Kind = iota
	// KindColumns is a non-empty list of column names.
	KindColumns
	KindString
	// KindStringList is a list of scalars compared by string form.
	KindStringList
	KindBool
	KindNumber
	// KindLiteral is a number or a date/timestamp literal.
	KindLiteral
	// KindPattern is a regular expression.
	KindPattern
)

func (k Kind) String() string {
	switch k {
	case KindColumn:
		return "column name"
	case KindColumns:
		return "list of column names"
	case KindString:
		return "string"
	case KindStringList:
		return "list of values"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindLiteral:
		return "number or date"
	case KindPattern:
		return "regular expression"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Param declares one argument of a check function.
type Param struct {
	Name     string
	Kind     Kind
	Required bool
}

// Predicate evaluates a check over column vectors. cols holds one vector per
// column argument, in the order returned by Function.Columns; all vectors
// have the same length and the result must have that length too.
type Predicate func(cols [][]any, args Args) ([]bool, error)

// Function is a registered check function.
type Function struct {
	Name   string
	Params []Param
	Eval   Predicate
}

// Param returns the named parameter declaration.
func (f Function) Param(name string) (Param, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Columns returns the column names referenced by args, in parameter order.
// Values that are not well-formed column references are skipped; CheckArgs
// reports them.
func (f Function) Columns(args map[string]any) []string {
	var out []string
	for _, p := range f.Params {
		v, ok := args[p.Name]
		if !ok {
			continue
		}
		switch p.Kind {
		case KindColumn:
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		case KindColumns:
			names, err := stringList(v)
			if err != nil {
				continue
			}
			out = append(out, names...)
		}
	}
	return out
}

// CheckArgs reports every problem with args against fn's parameter schema:
// missing required parameters, values of the wrong type and unexpected
// names. Problems are ordered by parameter declaration, then unexpected
// names in sorted order.
func CheckArgs(fn Function, args map[string]any) []string {
	var problems []string
	for _, p := range fn.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				problems = append(problems, fmt.Sprintf("missing required argument %q", p.Name))
			}
			continue
		}
		if err := checkKind(p.Kind, v); err != nil {
			problems = append(problems, fmt.Sprintf("invalid argument %q: expected %s: %v", p.Name, p.Kind, err))
		}
	}
	var extra []string
	for name := range args {
		if _, ok := fn.Param(name); !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		problems = append(problems, fmt.Sprintf("unexpected argument %q", name))
	}
	return problems
}

func checkKind(k Kind, v any) error {
	switch k {
	case KindColumn:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("got %T", v)
		}
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("empty column name")
		}
	case KindColumns:
		names, err := stringList(v)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return fmt.Errorf("empty list")
		}
		for _, n := range names {
			if strings.TrimSpace(n) == "" {
				return fmt.Errorf("empty column name")
			}
		}
	case KindString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("got %T", v)
		}
	case KindStringList:
		_, err := stringList(v)
		return err
	case KindBool:
		switch t := v.(type) {
		case bool:
		case string:
			if _, err := cast.ToBoolE(t); err != nil {
				return err
			}
		default:
			return fmt.Errorf("got %T", v)
		}
	case KindNumber:
		_, err := toNumber(v)
		return err
	case KindLiteral:
		_, err := toLiteral(v)
		return err
	case KindPattern:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("got %T", v)
		}
		if _, err := regexp.Compile(s); err != nil {
			return err
		}
	}
	return nil
}

// stringList accepts a list of scalars and returns their string forms.
func stringList(v any) ([]string, error) {
	var items []any
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		items = t
	default:
		return nil, fmt.Errorf("got %T, want a list", v)
	}
	out := make([]string, len(items))
	for i, e := range items {
		switch e.(type) {
		case nil, []any, map[string]any:
			return nil, fmt.Errorf("element %d is %T, want a scalar", i, e)
		}
		if ts, ok := e.(time.Time); ok {
			out[i] = dataset.Format(ts)
			continue
		}
		s, err := cast.ToStringE(e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

func toNumber(v any) (float64, error) {
	switch v.(type) {
	case bool, nil:
		return 0, fmt.Errorf("got %T", v)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	return f, nil
}

// toLiteral returns a float64 or a time.Time.
func toLiteral(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		if f, err := cast.ToFloat64E(t); err == nil {
			return f, nil
		}
		ts, err := dataset.ParseValue(t, dataset.TypeTimestamp)
		if err != nil || ts == nil {
			return nil, fmt.Errorf("%q is neither a number nor a date", t)
		}
		return ts, nil
	}
	return toNumber(v)
}

// Registry maps function names to check functions. It is never mutated after
// construction and is safe for concurrent use.
type Registry struct {
	fns   map[string]Function
	names []string
}

// NewRegistry builds a registry. Duplicate or empty names and functions
// without a predicate are rejected.
func NewRegistry(fns ...Function) (*Registry, error) {
	r := &Registry{fns: make(map[string]Function, len(fns))}
	for _, fn := range fns {
		if fn.Name == "" {
			return nil, fmt.Errorf("checks: function with empty name")
		}
		if fn.Eval == nil {
			return nil, fmt.Errorf("checks: function %q has no predicate", fn.Name)
		}
		if _, dup := r.fns[fn.Name]; dup {
			return nil, fmt.Errorf("checks: duplicate function %q", fn.Name)
		}
		r.fns[fn.Name] = fn
		r.names = append(r.names, fn.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// With returns a new registry holding r's functions plus fns.
func (r *Registry) With(fns ...Function) (*Registry, error) {
	all := make([]Function, 0, len(r.fns)+len(fns))
	for _, name := range r.names {
		all = append(all, r.fns[name])
	}
	return NewRegistry(append(all, fns...)...)
}

// Lookup returns the named function.
func (r *Registry) Lookup(name string) (Function, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

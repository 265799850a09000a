package checks

import (
	"fmt"
	"regexp"

	"github.com/spf13/cast"
)

// Args is the argument mapping of a rule, with typed accessors that coerce
// through the same rules CheckArgs enforces.
type Args map[string]any

// String returns the named string argument or "".
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Bool returns the named boolean argument or def when absent.
func (a Args) Bool(name string, def bool) (bool, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, fmt.Errorf("argument %q: %w", name, err)
	}
	return b, nil
}

// Strings returns the named list argument as string forms.
func (a Args) Strings(name string) ([]string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("argument %q is missing", name)
	}
	out, err := stringList(v)
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", name, err)
	}
	return out, nil
}

// Literal returns the named argument as float64 or time.Time.
func (a Args) Literal(name string) (any, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("argument %q is missing", name)
	}
	lit, err := toLiteral(v)
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", name, err)
	}
	return lit, nil
}

// Pattern compiles the named regular expression argument.
func (a Args) Pattern(name string) (*regexp.Regexp, error) {
	s, ok := a[name].(string)
	if !ok {
		return nil, fmt.Errorf("argument %q is not a string", name)
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", name, err)
	}
	return re, nil
}

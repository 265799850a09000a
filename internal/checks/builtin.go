package checks

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"

	"dqx/internal/dataset"
)

// Parameter names shared by the built-in functions.
const (
	ArgColumn     = "col_name"
	ArgColumns    = "col_names"
	ArgAllowed    = "allowed"
	ArgTrim       = "trim_strings"
	ArgMin        = "min_limit"
	ArgMax        = "max_limit"
	ArgLimit      = "limit"
	ArgDateFormat = "date_format"
	ArgTimeFormat = "timestamp_format"
	ArgRegex      = "regex"
	ArgNegate     = "negate"
)

// Built-in function names.
const (
	IsNotNull                 = "is_not_null"
	IsNotEmpty                = "is_not_empty"
	IsNotNullAndNotEmpty      = "is_not_null_and_not_empty"
	ValueIsInList             = "value_is_in_list"
	ValueIsNotNullAndIsInList = "value_is_not_null_and_is_in_list"
	IsInRange                 = "is_in_range"
	IsNotInRange              = "is_not_in_range"
	IsNotLessThan             = "is_not_less_than"
	IsNotGreaterThan          = "is_not_greater_than"
	IsValidDate               = "is_valid_date"
	IsValidTimestamp          = "is_valid_timestamp"
	RegexMatch                = "regex_match"
	AtLeastOneNotNull         = "at_least_one_not_null"
)

var (
	builtinOnce sync.Once
	builtinReg  *Registry
)

// Builtin returns the shared registry of built-in functions. It is built
// once per process.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		r, err := NewRegistry(BuiltinFunctions()...)
		if err != nil {
			panic(err)
		}
		builtinReg = r
	})
	return builtinReg
}

// BuiltinFunctions returns fresh copies of the built-in function table, for
// callers assembling their own registry.
func BuiltinFunctions() []Function {
	col := Param{Name: ArgColumn, Kind: KindColumn, Required: true}
	trim := Param{Name: ArgTrim, Kind: KindBool}
	allowed := Param{Name: ArgAllowed, Kind: KindStringList, Required: true}
	minP := Param{Name: ArgMin, Kind: KindLiteral, Required: true}
	maxP := Param{Name: ArgMax, Kind: KindLiteral, Required: true}
	limit := Param{Name: ArgLimit, Kind: KindLiteral, Required: true}

	return []Function{
		{Name: IsNotNull, Params: []Param{col}, Eval: isNotNull},
		{Name: IsNotEmpty, Params: []Param{col, trim}, Eval: isNotEmpty},
		{Name: IsNotNullAndNotEmpty, Params: []Param{col, trim}, Eval: isNotNullAndNotEmpty},
		{Name: ValueIsInList, Params: []Param{col, allowed}, Eval: inList(true)},
		{Name: ValueIsNotNullAndIsInList, Params: []Param{col, allowed}, Eval: inList(false)},
		{Name: IsInRange, Params: []Param{col, minP, maxP}, Eval: inRange(false)},
		{Name: IsNotInRange, Params: []Param{col, minP, maxP}, Eval: inRange(true)},
		{Name: IsNotLessThan, Params: []Param{col, limit}, Eval: bound(func(c int) bool { return c >= 0 })},
		{Name: IsNotGreaterThan, Params: []Param{col, limit}, Eval: bound(func(c int) bool { return c <= 0 })},
		{Name: IsValidDate, Params: []Param{col, {Name: ArgDateFormat, Kind: KindString}}, Eval: validTime(ArgDateFormat, dataset.DateLayouts)},
		{Name: IsValidTimestamp, Params: []Param{col, {Name: ArgTimeFormat, Kind: KindString}}, Eval: validTime(ArgTimeFormat, append(append([]string(nil), dataset.TimestampLayouts...), dataset.DateLayouts...))},
		{Name: RegexMatch, Params: []Param{col, {Name: ArgRegex, Kind: KindPattern, Required: true}, {Name: ArgNegate, Kind: KindBool}}, Eval: regexMatch},
		{Name: AtLeastOneNotNull, Params: []Param{{Name: ArgColumns, Kind: KindColumns, Required: true}}, Eval: atLeastOneNotNull},
	}
}

//
// ---- predicates -------------------------------------------------------------
//

func single(cols [][]any) ([]any, error) {
	if len(cols) != 1 {
		return nil, fmt.Errorf("expected 1 column, got %d", len(cols))
	}
	return cols[0], nil
}

// each runs test over every value of the single column. nil values get
// nullResult without calling test.
func each(cols [][]any, nullResult bool, test func(v any) bool) ([]bool, error) {
	col, err := single(cols)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(col))
	for i, v := range col {
		if v == nil {
			out[i] = nullResult
			continue
		}
		out[i] = test(v)
	}
	return out, nil
}

func isNotNull(cols [][]any, _ Args) ([]bool, error) {
	return each(cols, false, func(any) bool { return true })
}

func emptyTest(args Args) (func(v any) bool, error) {
	trim, err := args.Bool(ArgTrim, false)
	if err != nil {
		return nil, err
	}
	return func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		if trim {
			s = strings.TrimSpace(s)
		}
		return s != ""
	}, nil
}

func isNotEmpty(cols [][]any, args Args) ([]bool, error) {
	test, err := emptyTest(args)
	if err != nil {
		return nil, err
	}
	return each(cols, true, test)
}

func isNotNullAndNotEmpty(cols [][]any, args Args) ([]bool, error) {
	test, err := emptyTest(args)
	if err != nil {
		return nil, err
	}
	return each(cols, false, test)
}

// inList matches values by string form. Booleans match case-insensitively
// so that TRUE/FALSE lists written by hand still apply to typed columns.
func inList(nullPasses bool) Predicate {
	return func(cols [][]any, args Args) ([]bool, error) {
		allowed, err := args.Strings(ArgAllowed)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(allowed))
		folded := make(map[string]struct{}, len(allowed))
		for _, s := range allowed {
			set[s] = struct{}{}
			folded[strings.ToLower(s)] = struct{}{}
		}
		return each(cols, nullPasses, func(v any) bool {
			s := dataset.Format(v)
			if _, ok := set[s]; ok {
				return true
			}
			if _, isBool := v.(bool); isBool {
				_, ok := folded[s]
				return ok
			}
			return false
		})
	}
}

// compareLimit orders a column value against a literal. Strings are coerced
// to the literal's family; a value that cannot be coerced is not comparable.
func compareLimit(v, lim any) (int, bool) {
	switch lim.(type) {
	case time.Time:
		if s, ok := v.(string); ok {
			ts, err := dataset.ParseValue(s, dataset.TypeTimestamp)
			if err != nil || ts == nil {
				return 0, false
			}
			v = ts
		}
	default:
		if s, ok := v.(string); ok {
			f, err := cast.ToFloat64E(strings.TrimSpace(s))
			if err != nil {
				return 0, false
			}
			v = f
		}
	}
	return dataset.Compare(v, lim)
}

// inRange checks min <= v <= max, or its negation. A value that is not
// comparable with the limits fails either way.
func inRange(negate bool) Predicate {
	return func(cols [][]any, args Args) ([]bool, error) {
		lo, err := args.Literal(ArgMin)
		if err != nil {
			return nil, err
		}
		hi, err := args.Literal(ArgMax)
		if err != nil {
			return nil, err
		}
		return each(cols, true, func(v any) bool {
			cl, ok1 := compareLimit(v, lo)
			ch, ok2 := compareLimit(v, hi)
			if !ok1 || !ok2 {
				return false
			}
			inside := cl >= 0 && ch <= 0
			return inside != negate
		})
	}
}

func bound(accept func(c int) bool) Predicate {
	return func(cols [][]any, args Args) ([]bool, error) {
		lim, err := args.Literal(ArgLimit)
		if err != nil {
			return nil, err
		}
		return each(cols, true, func(v any) bool {
			c, ok := compareLimit(v, lim)
			return ok && accept(c)
		})
	}
}

// layoutReplacer converts Spark/Java datetime patterns into Go layouts.
// Patterns already written as Go layouts pass through unchanged.
var layoutReplacer = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
	"SSS", "000",
	"XXX", "Z07:00",
)

// GoLayout translates a datetime pattern such as "yyyy-MM-dd HH:mm:ss" into
// the equivalent Go reference layout.
func GoLayout(pattern string) string {
	return layoutReplacer.Replace(pattern)
}

func validTime(formatArg string, defaults []string) Predicate {
	return func(cols [][]any, args Args) ([]bool, error) {
		layouts := defaults
		if f := args.String(formatArg); f != "" {
			layouts = []string{GoLayout(f)}
		}
		return each(cols, true, func(v any) bool {
			switch t := v.(type) {
			case time.Time:
				return true
			case string:
				s := strings.TrimSpace(t)
				for _, layout := range layouts {
					if _, err := time.Parse(layout, s); err == nil {
						return true
					}
				}
			}
			return false
		})
	}
}

func regexMatch(cols [][]any, args Args) ([]bool, error) {
	re, err := args.Pattern(ArgRegex)
	if err != nil {
		return nil, err
	}
	negate, err := args.Bool(ArgNegate, false)
	if err != nil {
		return nil, err
	}
	return each(cols, true, func(v any) bool {
		return re.MatchString(dataset.Format(v)) != negate
	})
}

func atLeastOneNotNull(cols [][]any, _ Args) ([]bool, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("expected at least 1 column")
	}
	out := make([]bool, len(cols[0]))
	for _, col := range cols {
		if len(col) != len(out) {
			return nil, fmt.Errorf("column vectors differ in length")
		}
		for i, v := range col {
			if v != nil {
				out[i] = true
			}
		}
	}
	return out, nil
}

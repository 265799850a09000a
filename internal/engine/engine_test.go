package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqx/internal/checks"
	"dqx/internal/dataset"
	"dqx/internal/dqerr"
	"dqx/internal/rules"
)

func notNull(col string, crit rules.Criticality) rules.Rule {
	return rules.New(col+"_is_null", crit, checks.IsNotNull, map[string]any{"col_name": col})
}

func inList(name, col string, crit rules.Criticality, allowed ...string) rules.Rule {
	return rules.New(name, crit, checks.ValueIsInList, map[string]any{"col_name": col, "allowed": allowed})
}

func mustDataset(t *testing.T, schema dataset.Schema, rows ...[]any) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(schema, rows)
	require.NoError(t, err)
	return ds
}

func column(t *testing.T, ds *dataset.Dataset, name string) []any {
	t.Helper()
	col, ok := ds.Column(name)
	require.True(t, ok, "column %s", name)
	return col
}

//
// ---- concrete scenarios -----------------------------------------------------
//

// TestScenario_NullQuarantined: one null among five rows is the only
// quarantined row.
func TestScenario_NullQuarantined(t *testing.T) {
	ds := mustDataset(t, dataset.Schema{{Name: "customer_id", Type: dataset.TypeInteger}},
		[]any{int64(1)}, []any{int64(2)}, []any{nil}, []any{int64(4)}, []any{int64(5)})
	rs := rules.RuleSet{notNull("customer_id", rules.Error)}

	clean, quarantined, err := New(nil).ApplyAndSplit(ds, rs)
	require.NoError(t, err)
	assert.Equal(t, 4, clean.Len())
	require.Equal(t, 1, quarantined.Len())
	assert.Equal(t, []any{nil}, column(t, quarantined, "customer_id"))
	assert.Equal(t, []any{[]string{"customer_id_is_null"}}, column(t, quarantined, ErrorsColumn))
	assert.Equal(t, []any{nil, nil, nil, nil}, column(t, clean, ErrorsColumn))
}

// TestScenario_OtherValue: the row outside the allowed set is quarantined
// with the rule name as its only error.
func TestScenario_OtherValue(t *testing.T) {
	ds := mustDataset(t, dataset.Schema{{Name: "gender", Type: dataset.TypeString}},
		[]any{"female"}, []any{"male"}, []any{"other"}, []any{"female"})
	rs := rules.RuleSet{inList("gender_other_value", "gender", rules.Error, "female", "male")}

	clean, quarantined, err := New(nil).ApplyAndSplit(ds, rs)
	require.NoError(t, err)
	assert.Equal(t, []any{"female", "male", "female"}, column(t, clean, "gender"))
	assert.Equal(t, []any{"other"}, column(t, quarantined, "gender"))
	assert.Equal(t, []any{[]string{"gender_other_value"}}, column(t, quarantined, ErrorsColumn))
}

// TestScenario_DuplicateNames: the validator flags duplicates; callers then
// skip Apply.
func TestScenario_DuplicateNames(t *testing.T) {
	rs := rules.RuleSet{notNull("a", rules.Error), notNull("a", rules.Warn)}
	st := Validate(rs, checks.Builtin(), nil)
	require.True(t, st.HasErrors)
	require.Len(t, st.Errors, 1)
	assert.Equal(t, 1, st.Errors[0].Index)
	assert.Equal(t, "a_is_null", st.Errors[0].Rule)
	assert.Contains(t, st.Errors[0].Message, "duplicate rule name")
}

// TestScenario_EmptyDataset: zero rows give two empty outputs and no error.
func TestScenario_EmptyDataset(t *testing.T) {
	ds := mustDataset(t, dataset.Schema{{Name: "a", Type: dataset.TypeString}})
	rs := rules.RuleSet{notNull("a", rules.Error), inList("a_other_value", "a", rules.Warn, "x")}

	clean, quarantined, err := New(nil).ApplyAndSplit(ds, rs)
	require.NoError(t, err)
	assert.Equal(t, 0, clean.Len())
	assert.Equal(t, 0, quarantined.Len())

	res, err := New(nil).ApplyAndSplitParallel(context.Background(), ds, rs, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Clean.Len())
	assert.Equal(t, 0, res.Quarantined.Len())
}

// TestScenario_UnquotedDateList: a hand-written list of unquoted dates
// matches the values of a date column.
func TestScenario_UnquotedDateList(t *testing.T) {
	rs, err := rules.Parse([]byte(`
- name: order_date_other_value
  check:
    function: value_is_in_list
    arguments: {col_name: order_date, allowed: [2024-01-07, 2024-01-08]}
`))
	require.NoError(t, err)

	d := func(day int) time.Time { return time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC) }
	schema := dataset.Schema{{Name: "order_date", Type: dataset.TypeDate}}
	ds := mustDataset(t, schema, []any{d(7)}, []any{d(8)}, []any{d(9)})

	require.False(t, Validate(rs, nil, schema).HasErrors)
	clean, quarantined, err := New(nil).ApplyAndSplit(ds, rs)
	require.NoError(t, err)
	assert.Equal(t, []any{d(7), d(8)}, column(t, clean, "order_date"))
	assert.Equal(t, []any{d(9)}, column(t, quarantined, "order_date"))
}

//
// ---- validation -------------------------------------------------------------
//

func TestValidate_Cases(t *testing.T) {
	schema := dataset.Schema{
		{Name: "a", Type: dataset.TypeString},
		{Name: "b", Type: dataset.TypeInteger},
	}
	tests := []struct {
		name string
		rule rules.Rule
		want []Issue
	}{
		{
			name: "invalid criticality",
			rule: rules.New("a_is_null", "fatal", checks.IsNotNull, map[string]any{"col_name": "a"}),
			want: []Issue{{Index: 1, Rule: "a_is_null", Message: `invalid criticality "fatal": want "error" or "warn"`}},
		},
		{
			name: "empty name",
			rule: rules.New("  ", rules.Error, checks.IsNotNull, map[string]any{"col_name": "a"}),
			want: []Issue{{Index: 1, Rule: "  ", Message: "rule name is empty"}},
		},
		{
			name: "empty function",
			rule: rules.New("r", rules.Error, "", nil),
			want: []Issue{{Index: 1, Rule: "r", Message: "check function is empty"}},
		},
		{
			name: "unknown function",
			rule: rules.New("r", rules.Warn, "is_purple", map[string]any{"col_name": "a"}),
			want: []Issue{{Index: 1, Rule: "r", Message: `unknown function "is_purple"`}},
		},
		{
			name: "missing argument",
			rule: rules.New("r", rules.Error, checks.ValueIsInList, map[string]any{"col_name": "a"}),
			want: []Issue{{Index: 1, Rule: "r", Message: `missing required argument "allowed"`}},
		},
		{
			name: "wrong argument type",
			rule: rules.New("r", rules.Error, checks.IsNotNull, map[string]any{"col_name": int64(5)}),
			want: []Issue{{Index: 1, Rule: "r", Message: `invalid argument "col_name": expected column name: got int64`}},
		},
		{
			name: "unexpected argument",
			rule: rules.New("r", rules.Error, checks.IsNotNull, map[string]any{"col_name": "a", "colour": "red"}),
			want: []Issue{{Index: 1, Rule: "r", Message: `unexpected argument "colour"`}},
		},
		{
			name: "unknown column",
			rule: rules.New("r", rules.Error, checks.IsNotNull, map[string]any{"col_name": "zz"}),
			want: []Issue{{Index: 1, Rule: "r", Message: `unknown column "zz"`}},
		},
		{
			name: "unknown entry in col_names",
			rule: rules.New("r", rules.Error, checks.AtLeastOneNotNull, map[string]any{"col_names": []any{"a", "zz", "b", "yy"}}),
			want: []Issue{
				{Index: 1, Rule: "r", Message: `unknown column "zz"`},
				{Index: 1, Rule: "r", Message: `unknown column "yy"`},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := rules.RuleSet{notNull("b", rules.Error), tt.rule}
			st := Validate(rs, nil, schema)
			assert.True(t, st.HasErrors)
			assert.Equal(t, tt.want, st.Errors)
		})
	}
}

func TestValidate_ManyFaultsInRuleOrder(t *testing.T) {
	schema := dataset.Schema{{Name: "a", Type: dataset.TypeString}}
	rs := rules.RuleSet{
		rules.New("", "fatal", "", nil),
		notNull("a", rules.Error),
		rules.New("a_is_null", rules.Warn, "is_purple", nil),
		rules.New("c", rules.Error, checks.IsNotNull, map[string]any{"col_name": "zz"}),
	}

	st := Validate(rs, nil, schema)
	require.True(t, st.HasErrors)
	assert.Equal(t, []Issue{
		{Index: 0, Rule: "", Message: "rule name is empty"},
		{Index: 0, Rule: "", Message: `invalid criticality "fatal": want "error" or "warn"`},
		{Index: 0, Rule: "", Message: "check function is empty"},
		{Index: 2, Rule: "a_is_null", Message: "duplicate rule name (first defined at entry 1)"},
		{Index: 2, Rule: "a_is_null", Message: `unknown function "is_purple"`},
		{Index: 3, Rule: "c", Message: `unknown column "zz"`},
	}, st.Errors)
	assert.Len(t, st.For("a_is_null"), 2)
	assert.Contains(t, st.String(), "rule #0: rule name is empty")
}

func TestValidate_MalformedArgumentsDoNotPanic(t *testing.T) {
	rs := rules.RuleSet{
		rules.New("r1", rules.Error, checks.ValueIsInList, map[string]any{
			"col_name": []any{1, 2},
			"allowed":  map[string]any{"x": 1},
		}),
		rules.New("r2", rules.Error, checks.AtLeastOneNotNull, nil),
		rules.New("r3", rules.Error, checks.AtLeastOneNotNull, map[string]any{"col_names": []any{nil, []any{"a"}}}),
		rules.New("r4", rules.Error, checks.IsInRange, map[string]any{"col_name": "a", "min_limit": true, "max_limit": "soon"}),
	}
	var st Status
	require.NotPanics(t, func() { st = Validate(rs, nil, dataset.Schema{{Name: "a", Type: dataset.TypeString}}) })
	require.True(t, st.HasErrors)
	for _, name := range []string{"r1", "r2", "r3", "r4"} {
		assert.NotEmpty(t, st.For(name), name)
	}
}

func TestValidate_ValidSet(t *testing.T) {
	rs := rules.RuleSet{notNull("a", rules.Error), inList("a_other_value", "a", rules.Warn, "x", "y")}
	st := Validate(rs, nil, dataset.Schema{{Name: "a", Type: dataset.TypeString}})
	assert.False(t, st.HasErrors)
	assert.Empty(t, st.Errors)
	assert.Equal(t, "rule set is valid", st.String())
}

//
// ---- routing and metadata ---------------------------------------------------
//

func TestWarningsStayClean(t *testing.T) {
	schema := dataset.Schema{{Name: "id", Type: dataset.TypeInteger}, {Name: "tier", Type: dataset.TypeString}}
	ds := mustDataset(t, schema,
		[]any{int64(1), "gold"},
		[]any{int64(2), "tin"},
		[]any{nil, "tin"},
	)
	rs := rules.RuleSet{
		notNull("id", rules.Error),
		inList("tier_other_value", "tier", rules.Warn, "gold", "silver"),
		inList("tier_is_gold", "tier", "", "gold"),
	}

	res, err := New(nil).Split(ds, rs)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, column(t, res.Clean, "id"))
	assert.Equal(t, []any{int64(2), nil}, column(t, res.Quarantined, "id"))

	// no short-circuit: every failing rule is listed, in rule-set order
	assert.Equal(t, []any{[]string{"tier_is_gold"}, []string{"id_is_null", "tier_is_gold"}}, column(t, res.Quarantined, ErrorsColumn))
	assert.Equal(t, []any{[]string{"tier_other_value"}, []string{"tier_other_value"}}, column(t, res.Quarantined, WarningsColumn))

	assert.EqualValues(t, 3, res.Summary.Input)
	assert.EqualValues(t, 1, res.Summary.Clean)
	assert.EqualValues(t, 2, res.Summary.Quarantined)
	assert.EqualValues(t, 2, res.Summary.Warned)
	assert.Equal(t, []RuleCount{
		{Rule: "id_is_null", Criticality: rules.Error, Failed: 1},
		{Rule: "tier_other_value", Criticality: rules.Warn, Failed: 2},
		{Rule: "tier_is_gold", Criticality: rules.Error, Failed: 2},
	}, res.Summary.Rules)
	assert.EqualValues(t, 5, res.Summary.Violations())
}

func TestWarnOnlyRowIsClean(t *testing.T) {
	ds := mustDataset(t, dataset.Schema{{Name: "tier", Type: dataset.TypeString}}, []any{"tin"})
	clean, quarantined, err := New(nil).ApplyAndSplit(ds, rules.RuleSet{inList("tier_other_value", "tier", rules.Warn, "gold")})
	require.NoError(t, err)
	assert.Equal(t, 0, quarantined.Len())
	assert.Equal(t, []any{[]string{"tier_other_value"}}, column(t, clean, WarningsColumn))
}

func TestApply_AnnotatesAllRows(t *testing.T) {
	ds := mustDataset(t, dataset.Schema{{Name: "a", Type: dataset.TypeString}}, []any{"x"}, []any{nil})
	out, outcomes, err := New(nil).Apply(ds, rules.RuleSet{notNull("a", rules.Error)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", ErrorsColumn, WarningsColumn}, out.Schema().Names())
	assert.Equal(t, 2, out.Len())
	assert.False(t, outcomes[0].Quarantined())
	assert.True(t, outcomes[1].Quarantined())

	// re-applying replaces, rather than duplicates, the metadata columns
	again, _, err := New(nil).Apply(out, rules.RuleSet{notNull("a", rules.Warn)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", ErrorsColumn, WarningsColumn}, again.Schema().Names())
	assert.Equal(t, []any{nil, []string{"a_is_null"}}, column(t, again, WarningsColumn))
}

//
// ---- failures ---------------------------------------------------------------
//

func TestApply_Errors(t *testing.T) {
	ds := mustDataset(t, dataset.Schema{{Name: "a", Type: dataset.TypeString}}, []any{"x"})
	e := New(nil)

	_, _, err := e.ApplyAndSplit(nil, nil)
	assert.True(t, errors.Is(err, dqerr.ErrInvalidInput))

	_, _, err = e.ApplyAndSplit(ds, rules.RuleSet{rules.New("r", rules.Error, "no_such", nil)})
	assert.True(t, errors.Is(err, dqerr.ErrUnknownFunction))
	assert.True(t, errors.Is(err, dqerr.ErrStructural))

	_, _, err = e.ApplyAndSplit(ds, rules.RuleSet{notNull("missing", rules.Error)})
	assert.True(t, errors.Is(err, dqerr.ErrEvaluation))
	assert.True(t, errors.Is(err, dqerr.ErrStructural))
	assert.ErrorContains(t, err, `column "missing"`)

	_, err = e.ApplyAndSplitParallel(context.Background(), nil, nil, 2)
	assert.True(t, errors.Is(err, dqerr.ErrInvalidInput))
}

func TestApply_BadPredicateOutput(t *testing.T) {
	short := checks.Function{
		Name:   "short",
		Params: []checks.Param{{Name: "col_name", Kind: checks.KindColumn, Required: true}},
		Eval:   func(cols [][]any, _ checks.Args) ([]bool, error) { return []bool{true}, nil },
	}
	failing := checks.Function{
		Name:   "failing",
		Params: []checks.Param{{Name: "col_name", Kind: checks.KindColumn, Required: true}},
		Eval:   func(cols [][]any, _ checks.Args) ([]bool, error) { return nil, fmt.Errorf("boom") },
	}
	reg, err := checks.Builtin().With(short, failing)
	require.NoError(t, err)
	e := New(reg)

	ds := mustDataset(t, dataset.Schema{{Name: "a", Type: dataset.TypeString}}, []any{"x"}, []any{"y"})
	_, _, err = e.ApplyAndSplit(ds, rules.RuleSet{rules.New("r", rules.Error, "short", map[string]any{"col_name": "a"})})
	assert.True(t, errors.Is(err, dqerr.ErrEvaluation))

	_, _, err = e.ApplyAndSplit(ds, rules.RuleSet{rules.New("r", rules.Error, "failing", map[string]any{"col_name": "a"})})
	assert.True(t, errors.Is(err, dqerr.ErrEvaluation))
	assert.ErrorContains(t, err, "boom")
}

//
// ---- properties -------------------------------------------------------------
//

func randomDataset(t *testing.T, r *rand.Rand, rows int) *dataset.Dataset {
	schema := dataset.Schema{
		{Name: "id", Type: dataset.TypeInteger},
		{Name: "color", Type: dataset.TypeString},
		{Name: "score", Type: dataset.TypeReal},
	}
	colors := []any{"red", "green", "blue", "", nil}
	b := dataset.NewBuilder(schema)
	for i := 0; i < rows; i++ {
		var id any = int64(i)
		if r.Intn(10) == 0 {
			id = nil
		}
		var score any = r.Float64() * 100
		if r.Intn(8) == 0 {
			score = nil
		}
		require.NoError(t, b.Append([]any{id, colors[r.Intn(len(colors))], score}))
	}
	ds, err := b.Build()
	require.NoError(t, err)
	return ds
}

func propertyRules() rules.RuleSet {
	return rules.RuleSet{
		notNull("id", rules.Error),
		inList("color_other_value", "color", rules.Error, "red", "green"),
		rules.New("color_not_empty", rules.Warn, checks.IsNotNullAndNotEmpty, map[string]any{"col_name": "color"}),
		rules.New("score_range", rules.Warn, checks.IsInRange, map[string]any{"col_name": "score", "min_limit": 10, "max_limit": 90}),
	}
}

// TestProperties_CompletenessPreservationDeterminism checks, over random
// datasets, that every input row lands in exactly one output with its
// values unchanged, and that sequential and parallel runs agree.
func TestProperties_CompletenessPreservationDeterminism(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	e := New(nil)
	rs := propertyRules()
	require.False(t, e.Validate(rs, nil).HasErrors)

	for iter := 0; iter < 20; iter++ {
		ds := randomDataset(t, r, r.Intn(200))

		seq, err := e.Split(ds, rs)
		require.NoError(t, err)
		assert.Equal(t, ds.Len(), seq.Clean.Len()+seq.Quarantined.Len())

		// row preservation: ids are unique, so match rows by stripped content
		stripped, err := dataset.Concat(seq.Clean.Drop(ErrorsColumn, WarningsColumn), seq.Quarantined.Drop(ErrorsColumn, WarningsColumn))
		require.NoError(t, err)
		assert.ElementsMatch(t, rowsOf(ds), rowsOf(stripped))

		again, err := e.Split(ds, rs)
		require.NoError(t, err)
		assert.True(t, dataset.Equal(seq.Clean, again.Clean))
		assert.True(t, dataset.Equal(seq.Quarantined, again.Quarantined))

		for _, workers := range []int{2, 3, 7} {
			par, err := e.ApplyAndSplitParallel(context.Background(), ds, rs, workers)
			require.NoError(t, err)
			assert.True(t, dataset.Equal(seq.Clean, par.Clean), "workers=%d", workers)
			assert.True(t, dataset.Equal(seq.Quarantined, par.Quarantined), "workers=%d", workers)
			assert.Equal(t, seq.Summary, par.Summary, "workers=%d", workers)
		}
	}
}

func rowsOf(ds *dataset.Dataset) [][]any {
	out := make([][]any, ds.Len())
	for i := range out {
		out[i] = ds.Row(i)
	}
	return out
}

func TestParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ds := mustDataset(t, dataset.Schema{{Name: "a", Type: dataset.TypeString}}, []any{"x"}, []any{"y"})
	_, err := New(nil).ApplyAndSplitParallel(ctx, ds, rules.RuleSet{notNull("a", rules.Error)}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

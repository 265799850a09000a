package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqx/internal/dqerr"
)

const notebookRules = `
- check:
    arguments:
      allowed:
      - female
      - male
      col_name: gender
    function: value_is_in_list
  criticality: error
  name: gender_other_value
- check:
    arguments:
      col_name: order_id
      trim_strings: true
    function: is_not_null_and_not_empty
  criticality: warn
  name: order_id_is_null_or_empty
- name: amount_out_of_range
  check:
    function: is_in_range
    arguments: {col_name: amount, min_limit: 0, max_limit: 99.5}
`

func TestParse_YAML(t *testing.T) {
	rs, err := Parse([]byte(notebookRules))
	require.NoError(t, err)
	require.Len(t, rs, 3)

	assert.Equal(t, []string{"gender_other_value", "order_id_is_null_or_empty", "amount_out_of_range"}, rs.Names())
	assert.Equal(t, Error, rs[0].Criticality)
	assert.Equal(t, []any{"female", "male"}, rs[0].Check.Arguments["allowed"])
	assert.Equal(t, true, rs[1].Check.Arguments["trim_strings"])
	assert.Equal(t, Criticality(""), rs[2].Criticality)
	assert.Equal(t, Error, rs[2].Criticality.Effective())
	assert.Equal(t, int64(0), rs[2].Check.Arguments["min_limit"])
	assert.Equal(t, 99.5, rs[2].Check.Arguments["max_limit"])
}

func TestParse_JSON(t *testing.T) {
	doc := "[\n\t{\"name\": \"a_is_null\", \"criticality\": \"warn\",\n\t \"check\": {\"function\": \"is_not_null\", \"arguments\": {\"col_name\": \"a\"}}}\n]"
	rs, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, Warn, rs[0].Criticality)
	assert.Equal(t, "a", rs[0].Check.Arguments["col_name"])
}

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "  \n", "[]", "~"} {
		rs, err := Parse([]byte(in))
		require.NoError(t, err, "%q", in)
		assert.Empty(t, rs)
	}
}

// TestParse_Malformed verifies that documents which cannot be read as a
// sequence of rule entries fail with MalformedRuleSetError.
func TestParse_Malformed(t *testing.T) {
	tests := map[string]string{
		"syntax":           "- name: [unclosed",
		"mapping top":      "name: a\ncheck: {function: is_not_null}",
		"scalar entry":     "- just a string",
		"check scalar":     "- name: a\n  check: is_not_null",
		"arguments list":   "- name: a\n  check: {function: f, arguments: [1, 2]}",
		"name mapping":     "- name: {x: 1}\n  check: {function: f}",
		"unknown field":    "- name: a\n  when: always\n  check: {function: f}",
		"unknown in check": "- name: a\n  check: {function: f, filter: x}",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, dqerr.ErrMalformedRuleSet), "got %v", err)
		})
	}
}

// TestParse_SemanticProblemsAreNotParseErrors verifies that entries with
// missing fields or bad values still parse; the validator reports them.
func TestParse_SemanticProblemsAreNotParseErrors(t *testing.T) {
	doc := `
- name: ""
  criticality: fatal
  check:
    function: no_such_function
- check:
    arguments: {col_name: 5}
`
	rs, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, Criticality("fatal"), rs[0].Criticality)
	assert.Empty(t, rs[1].Name)
	assert.Empty(t, rs[1].Check.Function)
}

func sampleSet() RuleSet {
	return RuleSet{
		New("customer_id_is_null", Error, "is_not_null", map[string]any{"col_name": "customer_id"}),
		New("gender_other_value", Warn, "value_is_in_list", map[string]any{
			"col_name": "gender",
			"allowed":  []string{"female", "male", "1", "true", ""},
		}),
		New("amount_out_of_range", "", "is_in_range", map[string]any{
			"col_name":  "amount",
			"min_limit": 0,
			"max_limit": 2.5,
		}),
		New("any_contact", Error, "at_least_one_not_null", map[string]any{
			"col_names": []string{"email", "phone"},
		}),
		New("no_args", Error, "custom", nil),
	}
}

func TestRoundTrip(t *testing.T) {
	rs := sampleSet()

	y, err := MarshalYAML(rs)
	require.NoError(t, err)
	back, err := Parse(y)
	require.NoError(t, err)
	assert.True(t, Equal(rs, back), "yaml:\n%s", y)

	j, err := MarshalJSON(rs)
	require.NoError(t, err)
	back, err = Parse(j)
	require.NoError(t, err)
	assert.True(t, Equal(rs, back), "json:\n%s", j)

	// numeric-looking strings stay strings
	assert.Equal(t, []any{"female", "male", "1", "true", ""}, back[1].Check.Arguments["allowed"])
}

func TestParse_UnquotedDates(t *testing.T) {
	doc := `
- name: order_date_other_value
  check:
    function: value_is_in_list
    arguments:
      col_name: order_date
      allowed: [2024-01-07, 2024-01-08]
`
	rs, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-01-07", "2024-01-08"}, rs[0].Check.Arguments["allowed"])

	y, err := MarshalYAML(rs)
	require.NoError(t, err)
	assert.Contains(t, string(y), "2024-01-07")
	assert.NotContains(t, string(y), "T00:00:00Z")

	back, err := Parse(y)
	require.NoError(t, err)
	assert.True(t, Equal(rs, back), "yaml:\n%s", y)
}

func TestCanonical_Time(t *testing.T) {
	day := time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC)
	at := time.Date(2024, time.January, 7, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, []any{"2024-01-07", "2024-01-07T09:30:00Z"}, Canonical([]any{day, at}))
}

func TestMarshalYAML_Nil(t *testing.T) {
	y, err := MarshalYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(y))
}

func TestEqual(t *testing.T) {
	a := sampleSet()
	b := sampleSet()
	assert.True(t, Equal(a, b))

	b[0].Criticality = Warn
	assert.False(t, Equal(a, b))

	b = sampleSet()
	b[1].Check.Arguments["allowed"] = []string{"male", "female", "1", "true", ""}
	assert.False(t, Equal(a, b), "order of allowed values matters")

	assert.False(t, Equal(a, a[:2]))
}

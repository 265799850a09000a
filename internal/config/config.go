// Package config defines the JSON job file consumed by the dqx runner.
//
// A job names one input, the rule set to apply (a document on disk, or one
// generated from a profile of the input), and where the clean and
// quarantined outputs go.
//
// Example (trimmed):
//
//	{
//	  "job":     "customers_daily",
//	  "source":  { "kind": "file", "file": { "path": "data/customers.csv" } },
//	  "parser":  { "kind": "csv", "options": { "comma": ",", "sample_rows": 1000 } },
//	  "rules":   { "path": "rules/customers.yaml" },
//	  "sinks": {
//	    "clean":      { "kind": "postgres", "dsn": "postgresql://...", "table": "public.customers" },
//	    "quarantine": { "kind": "csv", "path": "out/customers_quarantine.csv" }
//	  },
//	  "runtime": { "workers": 4, "batch_size": 5000 }
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cast"
)

// Job is the top-level object of a job file.
type Job struct {
	// Job names the run in logs and metrics.
	Job string `json:"job"`

	Source  Source        `json:"source"`
	Parser  Parser        `json:"parser"`
	Rules   Rules         `json:"rules"`
	Profile Profile       `json:"profile"`
	Sinks   Sinks         `json:"sinks"`
	Runtime RuntimeConfig `json:"runtime"`
	Logging Logging       `json:"logging"`
	Metrics Metrics       `json:"metrics"`
}

// Source identifies the input bytes.
type Source struct {
	// Kind is "file" or "http".
	Kind string     `json:"kind"`
	File SourceFile `json:"file"`
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL            string `json:"url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxRetries     int    `json:"max_retries"`
}

// Parser selects how raw bytes become a dataset.
type Parser struct {
	// Kind is "csv".
	Kind string `json:"kind"`

	// Options is interpreted by the parser. For CSV:
	//   comma (string), has_header (bool), trim_space (bool),
	//   sample_rows (int), normalize_headers (bool), types (object col -> type)
	Options Options `json:"options"`
}

// Rules says where the rule set comes from.
type Rules struct {
	// Path of a YAML or JSON rule document.
	Path string `json:"path"`
	// Generate profiles the input and generates the rule set instead of
	// reading Path.
	Generate bool `json:"generate"`
	// WritePath, when set with Generate, saves the generated document.
	WritePath string `json:"write_path"`
	// Criticality of generated rules.
	Criticality string `json:"criticality"`
	// RangeRules adds min/max rules to generated sets.
	RangeRules bool `json:"range_rules"`
}

// Profile tunes the profiler.
type Profile struct {
	MaxDistinct int   `json:"max_distinct"`
	MaxTracked  int   `json:"max_tracked"`
	TrimStrings *bool `json:"trim_strings"`
}

// Sinks holds the two outputs of a run.
type Sinks struct {
	Clean      Sink `json:"clean"`
	Quarantine Sink `json:"quarantine"`
}

// Sink is one output table. Database kinds use DSN and Table; "csv" uses
// Path.
type Sink struct {
	Kind  string `json:"kind"`
	DSN   string `json:"dsn"`
	Table string `json:"table"`
	Path  string `json:"path"`
}

// Enabled reports whether the sink is configured.
func (s Sink) Enabled() bool { return s.Kind != "" }

// RuntimeConfig controls parallelism and batching.
type RuntimeConfig struct {
	Workers   int `json:"workers"`
	BatchSize int `json:"batch_size"`
}

// Logging configures the logger.
type Logging struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Metrics selects a metrics backend.
type Metrics struct {
	// Backend is "", "none", "prometheus" or "datadog".
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr"`
}

// Load reads and decodes a job file, then applies environment overrides.
// Unknown fields are rejected.
func Load(path string) (Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("read job %s: %w", path, err)
	}
	j, err := Decode(b)
	if err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", path, err)
	}
	j.ApplyEnv(os.Getenv)
	return j, nil
}

// Decode parses a job document.
func Decode(b []byte) (Job, error) {
	var j Job
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return Job{}, err
	}
	return j, nil
}

// ApplyEnv overrides fields from environment variables:
//
//	DQX_WORKERS, DQX_BATCH_SIZE, METRICS_BACKEND, PUSHGATEWAY_URL, DD_AGENT_ADDR
//
// Unparsable numbers are ignored.
func (j *Job) ApplyEnv(getenv func(string) string) {
	if v := getenv("DQX_WORKERS"); v != "" {
		if n, err := cast.ToIntE(v); err == nil {
			j.Runtime.Workers = n
		}
	}
	if v := getenv("DQX_BATCH_SIZE"); v != "" {
		if n, err := cast.ToIntE(v); err == nil {
			j.Runtime.BatchSize = n
		}
	}
	if v := getenv("METRICS_BACKEND"); v != "" {
		j.Metrics.Backend = v
	}
	if v := getenv("PUSHGATEWAY_URL"); v != "" {
		j.Metrics.PushgatewayURL = v
	}
	if v := getenv("DD_AGENT_ADDR"); v != "" {
		j.Metrics.DatadogAddr = v
	}
}

// Options is a free-form JSON object with typed, coercing getters. Each
// getter returns def when the key is absent or cannot be converted.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return def
}

// Bool returns the bool value for key or def. "true"/"false" strings are
// accepted.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	if b, err := cast.ToBoolE(v); err == nil {
		return b
	}
	return def
}

// Int returns the int value for key or def. JSON numbers arrive as float64.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	if n, err := cast.ToIntE(v); err == nil {
		return n
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. Used for single-character settings such as a CSV
// delimiter.
func (o Options) Rune(key string, def rune) rune {
	if s, ok := o[key].(string); ok && len(s) > 0 {
		return []rune(s)[0]
	}
	return def
}

// StringMap returns the object at key with values converted to strings.
// Missing keys yield an empty map.
func (o Options) StringMap(key string) map[string]string {
	m, err := cast.ToStringMapStringE(o[key])
	if err != nil || m == nil {
		return map[string]string{}
	}
	return m
}

// UnmarshalJSON decodes a missing or null "options" object to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

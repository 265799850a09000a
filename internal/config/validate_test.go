package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validJob() Job {
	return Job{
		Job:    "j",
		Source: Source{Kind: "file", File: SourceFile{Path: "in.csv"}},
		Parser: Parser{Kind: "csv", Options: Options{}},
		Rules:  Rules{Path: "rules.yaml"},
		Sinks: Sinks{
			Clean:      Sink{Kind: "sqlite", DSN: "file:out.db", Table: "clean"},
			Quarantine: Sink{Kind: "sqlite", DSN: "file:out.db", Table: "quarantine"},
		},
		Runtime: RuntimeConfig{Workers: 2, BatchSize: 100},
	}
}

/*
TestValidateJob_ValidMinimal verifies that a well-formed job produces no
issues.
*/
func TestValidateJob_ValidMinimal(t *testing.T) {
	if issues := ValidateJob(validJob()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

/*
TestValidateJob_Cases runs one mutation per case and expects a specific
finding.
*/
func TestValidateJob_Cases(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Job)
		sev    IssueSeverity
		path   string
		substr string
	}{
		{"missing job", func(j *Job) { j.Job = " " }, SeverityError, "job", "must not be empty"},
		{"missing source kind", func(j *Job) { j.Source.Kind = "" }, SeverityError, "source.kind", "must not be empty"},
		{"unknown source", func(j *Job) { j.Source.Kind = "s3" }, SeverityError, "source.kind", "unknown source kind"},
		{"file without path", func(j *Job) { j.Source.File.Path = "" }, SeverityError, "source.file.path", "non-empty path"},
		{"http without url", func(j *Job) { j.Source = Source{Kind: "http"} }, SeverityError, "source.http.url", "http(s) url"},
		{"unknown parser", func(j *Job) { j.Parser.Kind = "xml" }, SeverityError, "parser.kind", "unknown parser"},
		{"bad comma", func(j *Job) { j.Parser.Options["comma"] = ";;" }, SeverityError, "parser.options.comma", "single character"},
		{"no rules", func(j *Job) { j.Rules.Path = "" }, SeverityError, "rules.path", "must be set"},
		{"generate and path", func(j *Job) { j.Rules.Generate = true }, SeverityWarning, "rules.path", "ignored"},
		{"bad criticality", func(j *Job) { j.Rules.Criticality = "fatal" }, SeverityError, "rules.criticality", "error or warn"},
		{"write without generate", func(j *Job) { j.Rules.WritePath = "x.yaml" }, SeverityWarning, "rules.write_path", "generated"},
		{"unknown sink", func(j *Job) { j.Sinks.Clean.Kind = "oracle" }, SeverityError, "sinks.clean.kind", "unknown sink kind"},
		{"db sink without table", func(j *Job) { j.Sinks.Quarantine.Table = "" }, SeverityError, "sinks.quarantine.table", "requires a table"},
		{"csv sink without path", func(j *Job) { j.Sinks.Clean = Sink{Kind: "csv"} }, SeverityError, "sinks.clean.path", "requires a path"},
		{"same destination", func(j *Job) { j.Sinks.Quarantine = j.Sinks.Clean }, SeverityError, "sinks", "same destination"},
		{"no sinks", func(j *Job) { j.Sinks = Sinks{} }, SeverityWarning, "sinks", "no sinks"},
		{"negative workers", func(j *Job) { j.Runtime.Workers = -1 }, SeverityError, "runtime.workers", "negative"},
		{"unknown metrics", func(j *Job) { j.Metrics.Backend = "statsd" }, SeverityWarning, "metrics.backend", "disabled"},
		{"prometheus without url", func(j *Job) { j.Metrics.Backend = "prometheus" }, SeverityError, "metrics.pushgateway_url", "pushgateway"},
		{"bad log format", func(j *Job) { j.Logging.Format = "xml" }, SeverityWarning, "logging.format", "unknown log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := validJob()
			tt.mutate(&j)
			issues := ValidateJob(j)
			if !hasIssue(t, issues, tt.sev, tt.path, tt.substr) {
				t.Fatalf("want %s at %s containing %q; got %+v", tt.sev, tt.path, tt.substr, issues)
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Fatal("warnings only should not count as errors")
	}
	if !HasErrors([]Issue{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Fatal("expected HasErrors")
	}
}

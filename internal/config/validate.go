package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single lint finding. Path is a dotted path into the job
// (e.g. "sinks.clean.table").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	knownSources = map[string]struct{}{"file": {}, "http": {}}
	knownParsers = map[string]struct{}{"csv": {}}
	knownSinks   = map[string]struct{}{"postgres": {}, "mysql": {}, "mssql": {}, "sqlite": {}, "csv": {}}
	knownMetrics = map[string]struct{}{"": {}, "none": {}, "prometheus": {}, "datadog": {}}
)

// ValidateJob lints a decoded job. It does not mutate j; callers decide
// whether warnings are fatal.
func ValidateJob(j Job) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(j.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels logs and metrics")
	}

	// source
	switch {
	case strings.TrimSpace(j.Source.Kind) == "":
		add(SeverityError, "source.kind", "source.kind must not be empty")
	case !known(knownSources, j.Source.Kind):
		add(SeverityError, "source.kind", "unknown source kind %q", j.Source.Kind)
	case j.Source.Kind == "file" && strings.TrimSpace(j.Source.File.Path) == "":
		add(SeverityError, "source.file.path", "file source requires a non-empty path")
	case j.Source.Kind == "http" && !strings.HasPrefix(j.Source.HTTP.URL, "http"):
		add(SeverityError, "source.http.url", "http source requires an http(s) url")
	}

	// parser
	if j.Parser.Kind != "" && !known(knownParsers, j.Parser.Kind) {
		add(SeverityError, "parser.kind", "unknown parser kind %q", j.Parser.Kind)
	}
	if c := j.Parser.Options.String("comma", ","); len([]rune(c)) != 1 {
		add(SeverityError, "parser.options.comma", "comma must be a single character, got %q", c)
	}
	if j.Parser.Options.Int("sample_rows", 0) < 0 {
		add(SeverityError, "parser.options.sample_rows", "sample_rows must not be negative")
	}

	// rules
	switch {
	case j.Rules.Generate && j.Rules.Path != "":
		add(SeverityWarning, "rules.path", "rules.generate is set; rules.path is ignored")
	case !j.Rules.Generate && strings.TrimSpace(j.Rules.Path) == "":
		add(SeverityError, "rules.path", "rules.path must be set unless rules.generate is true")
	}
	if c := j.Rules.Criticality; c != "" && c != "error" && c != "warn" {
		add(SeverityError, "rules.criticality", "criticality must be error or warn, got %q", c)
	}
	if j.Rules.WritePath != "" && !j.Rules.Generate {
		add(SeverityWarning, "rules.write_path", "write_path only applies to generated rules")
	}

	// profile
	if j.Profile.MaxTracked < 0 {
		add(SeverityError, "profile.max_tracked", "max_tracked must not be negative")
	}

	// sinks
	if !j.Sinks.Clean.Enabled() && !j.Sinks.Quarantine.Enabled() {
		add(SeverityWarning, "sinks", "no sinks configured; results are only reported")
	}
	issues = append(issues, validateSink("sinks.clean", j.Sinks.Clean)...)
	issues = append(issues, validateSink("sinks.quarantine", j.Sinks.Quarantine)...)
	if c, q := j.Sinks.Clean, j.Sinks.Quarantine; c.Enabled() && q.Enabled() &&
		c.Kind == q.Kind && c.DSN == q.DSN && c.Table == q.Table && c.Path == q.Path {
		add(SeverityError, "sinks", "clean and quarantine sinks point at the same destination")
	}

	// runtime
	if j.Runtime.Workers < 0 {
		add(SeverityError, "runtime.workers", "workers must not be negative")
	}
	if j.Runtime.BatchSize < 0 {
		add(SeverityError, "runtime.batch_size", "batch_size must not be negative")
	}

	// logging and metrics
	switch strings.ToLower(j.Logging.Format) {
	case "", "text", "json":
	default:
		add(SeverityWarning, "logging.format", "unknown log format %q; text is used", j.Logging.Format)
	}
	if !known(knownMetrics, j.Metrics.Backend) {
		add(SeverityWarning, "metrics.backend", "unknown metrics backend %q; metrics are disabled", j.Metrics.Backend)
	}
	if j.Metrics.Backend == "prometheus" && j.Metrics.PushgatewayURL == "" {
		add(SeverityError, "metrics.pushgateway_url", "prometheus backend requires a pushgateway url")
	}

	return issues
}

func validateSink(path string, s Sink) []Issue {
	if !s.Enabled() {
		return nil
	}
	var issues []Issue
	if !known(knownSinks, s.Kind) {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("unknown sink kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if s.Kind == "csv" {
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".path", Message: "csv sink requires a path"})
		}
		return issues
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".dsn", Message: "database sink requires a dsn"})
	}
	if strings.TrimSpace(s.Table) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".table", Message: "database sink requires a table"})
	}
	return issues
}

func known(set map[string]struct{}, k string) bool {
	_, ok := set[k]
	return ok
}

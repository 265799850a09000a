// Package job runs one configured data-quality job end to end: read the
// input, obtain a rule set (from a document or by profiling the input),
// validate it, apply it, and write the clean and quarantined outputs.
//
// Run is the only entry point the CLI needs. Every external touch point is
// reachable through Deps so tests can stub sources and sinks.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dqx/internal/checks"
	"dqx/internal/config"
	"dqx/internal/dataset"
	"dqx/internal/datasource"
	"dqx/internal/datasource/file"
	"dqx/internal/datasource/httpds"
	"dqx/internal/engine"
	"dqx/internal/generator"
	"dqx/internal/metrics"
	"dqx/internal/parser"
	csvparser "dqx/internal/parser/csv"
	"dqx/internal/profiler"
	"dqx/internal/rules"
	"dqx/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Step names used in logs and metrics.
const (
	StepRead     = "read"
	StepRules    = "rules"
	StepValidate = "validate"
	StepApply    = "apply"
	StepWrite    = "write"
)

// Deps holds the collaborators of a run. Nil fields get production
// defaults.
type Deps struct {
	Log      logrus.FieldLogger
	Registry *checks.Registry

	// NewSource resolves the input described by src.
	NewSource func(src config.Source) (datasource.Source, error)
	// NewParser builds the parser for parser.kind=csv.
	NewParser func(opt csvparser.Options) parser.Parser
	// NewRepository opens a sink.
	NewRepository func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		l := logrus.New()
		l.Out = io.Discard
		d.Log = l
	}
	if d.NewSource == nil {
		d.NewSource = NewSource
	}
	if d.NewParser == nil {
		d.NewParser = func(opt csvparser.Options) parser.Parser { return csvparser.NewParser(opt) }
	}
	if d.NewRepository == nil {
		d.NewRepository = storage.New
	}
	return d
}

// Report summarizes a finished run.
type Report struct {
	RunID uuid.UUID
	Job   string

	Input       int64
	Clean       int64
	Quarantined int64
	Warned      int64
	Violations  int64
	// Skipped counts malformed input rows dropped by the parser.
	Skipped int

	Rules    []engine.RuleCount
	Duration time.Duration
}

// RuleSetError aborts a run whose rule set does not validate against the
// input.
type RuleSetError struct {
	Status engine.Status
}

func (e *RuleSetError) Error() string { return e.Status.String() }

// Run executes cfg. The returned report carries the run ID even when the run
// fails part way.
func Run(ctx context.Context, cfg config.Job, deps Deps) (Report, error) {
	deps = deps.withDefaults()
	start := time.Now()
	rep := Report{RunID: uuid.New(), Job: cfg.Job}
	log := deps.Log.WithFields(logrus.Fields{"job": cfg.Job, "run_id": rep.RunID.String()})

	step := func(name string, fn func() error) error {
		t0 := time.Now()
		err := fn()
		d := time.Since(t0)
		metrics.RecordStep(cfg.Job, name, err, d)
		l := log.WithFields(logrus.Fields{"step": name, "duration": d.Truncate(time.Millisecond)})
		if err != nil {
			l.WithError(err).Error("step failed")
			return fmt.Errorf("%s: %w", name, err)
		}
		l.Debug("step done")
		return nil
	}

	var (
		ds     *dataset.Dataset
		source string
	)
	if err := step(StepRead, func() error {
		var err error
		ds, source, rep.Skipped, err = readDataset(ctx, cfg, deps)
		return err
	}); err != nil {
		return rep, err
	}
	log.WithFields(logrus.Fields{"source": source, "rows": ds.Len(), "columns": len(ds.Schema()), "skipped": rep.Skipped}).Info("input read")

	eng := engine.New(deps.Registry)

	var rs rules.RuleSet
	if err := step(StepRules, func() error {
		var err error
		rs, err = ruleSet(ctx, cfg, ds, log)
		return err
	}); err != nil {
		return rep, err
	}

	if err := step(StepValidate, func() error {
		if st := eng.Validate(rs, ds.Schema()); st.HasErrors {
			return &RuleSetError{Status: st}
		}
		return nil
	}); err != nil {
		return rep, err
	}

	var res engine.Result
	if err := step(StepApply, func() error {
		var err error
		res, err = eng.ApplyAndSplitParallel(ctx, ds, rs, cfg.Runtime.Workers)
		return err
	}); err != nil {
		return rep, err
	}
	sum := res.Summary
	rep.Input, rep.Clean, rep.Quarantined, rep.Warned = sum.Input, sum.Clean, sum.Quarantined, sum.Warned
	rep.Violations = sum.Violations()
	rep.Rules = sum.Rules
	recordSummary(cfg.Job, sum)

	if err := step(StepWrite, func() error {
		if err := writeSink(ctx, deps, cfg.Sinks.Clean, res.Clean, cfg.Runtime.BatchSize, log.WithField("sink", "clean")); err != nil {
			return fmt.Errorf("clean sink: %w", err)
		}
		if err := writeSink(ctx, deps, cfg.Sinks.Quarantine, res.Quarantined, cfg.Runtime.BatchSize, log.WithField("sink", "quarantine")); err != nil {
			return fmt.Errorf("quarantine sink: %w", err)
		}
		return nil
	}); err != nil {
		return rep, err
	}

	rep.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"input":       rep.Input,
		"clean":       rep.Clean,
		"quarantined": rep.Quarantined,
		"warned":      rep.Warned,
		"violations":  rep.Violations,
		"duration":    rep.Duration.Truncate(time.Millisecond),
	}).Info("run complete")
	return rep, nil
}

// NewSource returns the datasource.Source for a "file" or "http" source.
func NewSource(src config.Source) (datasource.Source, error) {
	switch src.Kind {
	case "file":
		return file.NewLocal(src.File.Path), nil
	case "http":
		client := httpds.NewClient(httpds.Config{
			Timeout:    time.Duration(src.HTTP.TimeoutSeconds) * time.Second,
			MaxRetries: src.HTTP.MaxRetries,
		})
		return httpds.NewSource(client, src.HTTP.URL), nil
	default:
		return nil, fmt.Errorf("unsupported source.kind=%s", src.Kind)
	}
}

// OpenSource opens a "file" or "http" source.
func OpenSource(ctx context.Context, src config.Source) (io.ReadCloser, error) {
	s, err := NewSource(src)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx)
}

// readDataset returns the parsed input and the name of the source it came
// from.
func readDataset(ctx context.Context, cfg config.Job, deps Deps) (*dataset.Dataset, string, int, error) {
	if k := cfg.Parser.Kind; k != "" && k != "csv" {
		return nil, "", 0, fmt.Errorf("unsupported parser.kind=%s", k)
	}
	opt, err := CSVOptions(cfg.Parser.Options)
	if err != nil {
		return nil, "", 0, err
	}
	src, err := deps.NewSource(cfg.Source)
	if err != nil {
		return nil, "", 0, err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, src.Name(), 0, err
	}
	defer rc.Close()
	ds, skipped, err := deps.NewParser(opt).ReadDataset(rc)
	return ds, src.Name(), skipped, err
}

// CSVOptions builds parser options from a job's parser.options object:
// comma, has_header, trim_space, normalize_headers, sample_rows,
// skip_malformed and types (column -> logical type).
func CSVOptions(o config.Options) (csvparser.Options, error) {
	def := csvparser.DefaultOptions()
	opt := csvparser.Options{
		HasHeader:        o.Bool("has_header", def.HasHeader),
		Comma:            o.Rune("comma", def.Comma),
		TrimSpace:        o.Bool("trim_space", def.TrimSpace),
		NormalizeHeaders: o.Bool("normalize_headers", def.NormalizeHeaders),
		SampleRows:       o.Int("sample_rows", def.SampleRows),
		SkipMalformed:    o.Bool("skip_malformed", def.SkipMalformed),
	}
	if types := o.StringMap("types"); len(types) > 0 {
		opt.Types = make(map[string]dataset.LogicalType, len(types))
		for col, t := range types {
			lt := dataset.LogicalType(strings.ToLower(strings.TrimSpace(t)))
			if !lt.Known() {
				return opt, fmt.Errorf("parser.options.types: column %q has unknown type %q", col, t)
			}
			opt.Types[col] = lt
		}
	}
	return opt, nil
}

// ProfileOptions maps the profile section onto profiler options.
func ProfileOptions(p config.Profile) profiler.Options {
	opt := profiler.DefaultOptions()
	if p.MaxDistinct != 0 {
		opt.MaxDistinct = p.MaxDistinct
	}
	if p.MaxTracked > 0 {
		opt.MaxTracked = p.MaxTracked
	}
	if p.TrimStrings != nil {
		opt.TrimStrings = *p.TrimStrings
	}
	return opt
}

func ruleSet(ctx context.Context, cfg config.Job, ds *dataset.Dataset, log logrus.FieldLogger) (rules.RuleSet, error) {
	if !cfg.Rules.Generate {
		b, err := os.ReadFile(cfg.Rules.Path)
		if err != nil {
			return nil, fmt.Errorf("read rules: %w", err)
		}
		rs, err := rules.Parse(b)
		if err != nil {
			return nil, fmt.Errorf("parse rules %s: %w", cfg.Rules.Path, err)
		}
		log.WithFields(logrus.Fields{"rules": len(rs), "path": cfg.Rules.Path}).Info("rule set loaded")
		return rs, nil
	}

	_, stats, err := profiler.ProfileParallel(ctx, ds, ProfileOptions(cfg.Profile), cfg.Runtime.Workers)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	rs, err := generator.Generate(stats, generator.Options{
		Criticality: rules.Criticality(cfg.Rules.Criticality),
		RangeRules:  cfg.Rules.RangeRules,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	log.WithField("rules", len(rs)).Info("rule set generated")

	if cfg.Rules.WritePath != "" {
		if err := WriteRuleSet(cfg.Rules.WritePath, rs); err != nil {
			return nil, err
		}
		log.WithField("path", cfg.Rules.WritePath).Info("generated rule set written")
	}
	return rs, nil
}

// WriteRuleSet saves rs as JSON when path ends in .json and as YAML
// otherwise.
func WriteRuleSet(path string, rs rules.RuleSet) error {
	var (
		b   []byte
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err = rules.MarshalJSON(rs)
	} else {
		b, err = rules.MarshalYAML(rs)
	}
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write rules: %w", err)
	}
	return nil
}

func writeSink(ctx context.Context, deps Deps, sink config.Sink, ds *dataset.Dataset, batchSize int, log logrus.FieldLogger) error {
	if !sink.Enabled() {
		log.Debug("sink disabled")
		return nil
	}
	scfg := storage.Config{Kind: sink.Kind, DSN: sink.DSN, Table: sink.Table, Path: sink.Path}
	repo, err := deps.NewRepository(ctx, scfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := storage.WriteDataset(ctx, scfg, repo, ds, batchSize, log)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"kind": sink.Kind, "rows": n}).Info("sink written")
	return nil
}

func recordSummary(job string, s engine.Summary) {
	metrics.RecordRows(job, "input", s.Input)
	metrics.RecordRows(job, "clean", s.Clean)
	metrics.RecordRows(job, "quarantined", s.Quarantined)
	metrics.RecordRows(job, "warned", s.Warned)
	for _, r := range s.Rules {
		metrics.RecordViolations(job, r.Rule, string(r.Criticality.Effective()), r.Failed)
	}
}

// IsRuleSetError reports whether err aborted a run because the rule set
// did not validate, and returns its status.
func IsRuleSetError(err error) (engine.Status, bool) {
	var rse *RuleSetError
	if errors.As(err, &rse) {
		return rse.Status, true
	}
	return engine.Status{}, false
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"dqx/internal/config"
	"dqx/internal/dataset"
	"dqx/internal/engine"
	"dqx/internal/generator"
	"dqx/internal/job"
	"dqx/internal/logging"
	csvparser "dqx/internal/parser/csv"
	"dqx/internal/profiler"
	"dqx/internal/rules"

	"github.com/sirupsen/logrus"
)

// inputFlags are shared by the commands that read a CSV file.
type inputFlags struct {
	path    string
	comma   string
	workers int
}

func (f *inputFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.path, "input", "", "CSV file to read")
	fs.StringVar(&f.comma, "comma", ",", "CSV field delimiter (single character)")
	fs.IntVar(&f.workers, "workers", 1, "parallel workers")
}

func (f *inputFlags) source() config.Source {
	return config.Source{Kind: "file", File: config.SourceFile{Path: f.path}}
}

func (f *inputFlags) parserOptions() config.Options {
	return config.Options{"comma": f.comma}
}

func (f *inputFlags) read(ctx context.Context) (*dataset.Dataset, error) {
	opt, err := job.CSVOptions(f.parserOptions())
	if err != nil {
		return nil, err
	}
	rc, err := job.OpenSource(ctx, f.source())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	ds, _, err := csvparser.NewParser(opt).ReadDataset(rc)
	return ds, err
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags returns a non-negative exit code when the command must stop.
func parseFlags(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	return -1
}

func fail(stderr io.Writer, cmd string, err error) int {
	fmt.Fprintf(stderr, "dqx %s: %v\n", cmd, err)
	return exitFailure
}

func cmdProfile(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("profile", stderr)
	var in inputFlags
	in.register(fs)
	maxDistinct := fs.Int("max-distinct", profiler.DefaultMaxDistinct, "cardinality threshold for listing observed values (negative disables)")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if in.path == "" {
		fmt.Fprintln(stderr, "dqx profile: -input is required")
		return exitUsage
	}

	ds, err := in.read(ctx)
	if err != nil {
		return fail(stderr, "profile", err)
	}
	sum, _, err := profiler.ProfileParallel(ctx, ds, job.ProfileOptions(config.Profile{MaxDistinct: *maxDistinct}), in.workers)
	if err != nil {
		return fail(stderr, "profile", err)
	}
	if err := sum.Render(stdout); err != nil {
		return fail(stderr, "profile", err)
	}
	return exitOK
}

func cmdGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("generate", stderr)
	var in inputFlags
	in.register(fs)
	format := fs.String("format", "yaml", "output format: yaml or json")
	crit := fs.String("criticality", "error", "criticality of generated rules: error or warn")
	rangeRules := fs.Bool("range", false, "also generate min/max rules for numeric columns")
	maxDistinct := fs.Int("max-distinct", profiler.DefaultMaxDistinct, "cardinality threshold for value-set rules")
	out := fs.String("o", "", "write the document to this file instead of stdout")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if in.path == "" {
		fmt.Fprintln(stderr, "dqx generate: -input is required")
		return exitUsage
	}
	var marshal func(rules.RuleSet) ([]byte, error)
	switch strings.ToLower(*format) {
	case "yaml", "yml":
		marshal = rules.MarshalYAML
	case "json":
		marshal = rules.MarshalJSON
	default:
		fmt.Fprintf(stderr, "dqx generate: unknown format %q\n", *format)
		return exitUsage
	}

	ds, err := in.read(ctx)
	if err != nil {
		return fail(stderr, "generate", err)
	}
	_, stats, err := profiler.ProfileParallel(ctx, ds, job.ProfileOptions(config.Profile{MaxDistinct: *maxDistinct}), in.workers)
	if err != nil {
		return fail(stderr, "generate", err)
	}
	rs, err := generator.Generate(stats, generator.Options{Criticality: rules.Criticality(*crit), RangeRules: *rangeRules})
	if err != nil {
		return fail(stderr, "generate", err)
	}
	b, err := marshal(rs)
	if err != nil {
		return fail(stderr, "generate", err)
	}
	if *out != "" {
		if err := os.WriteFile(*out, b, 0o644); err != nil {
			return fail(stderr, "generate", err)
		}
		return exitOK
	}
	_, _ = stdout.Write(b)
	return exitOK
}

func cmdValidate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("validate", stderr)
	var in inputFlags
	in.register(fs)
	rulesPath := fs.String("rules", "", "rule document (YAML or JSON)")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if *rulesPath == "" {
		fmt.Fprintln(stderr, "dqx validate: -rules is required")
		return exitUsage
	}

	rs, err := loadRules(*rulesPath)
	if err != nil {
		return fail(stderr, "validate", err)
	}
	var schema dataset.Schema
	if in.path != "" {
		ds, err := in.read(ctx)
		if err != nil {
			return fail(stderr, "validate", err)
		}
		schema = ds.Schema()
	}

	st := engine.New(nil).Validate(rs, schema)
	fmt.Fprintln(stdout, st.String())
	if st.HasErrors {
		return exitFailure
	}
	return exitOK
}

func cmdApply(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("apply", stderr)
	var in inputFlags
	in.register(fs)
	rulesPath := fs.String("rules", "", "rule document (YAML or JSON)")
	clean := fs.String("clean", "", "CSV file for clean rows")
	quarantine := fs.String("quarantine", "", "CSV file for quarantined rows")
	logLevel := fs.String("log-level", "warn", "log level")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if in.path == "" || *rulesPath == "" {
		fmt.Fprintln(stderr, "dqx apply: -input and -rules are required")
		return exitUsage
	}

	cfg := config.Job{
		Job:     "apply",
		Source:  in.source(),
		Parser:  config.Parser{Kind: "csv", Options: in.parserOptions()},
		Rules:   config.Rules{Path: *rulesPath},
		Runtime: config.RuntimeConfig{Workers: in.workers},
	}
	if *clean != "" {
		cfg.Sinks.Clean = config.Sink{Kind: "csv", Path: *clean}
	}
	if *quarantine != "" {
		cfg.Sinks.Quarantine = config.Sink{Kind: "csv", Path: *quarantine}
	}
	return execute(ctx, cfg, logging.New(stderr, *logLevel, "text"), stdout, stderr)
}

func cmdRun(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("run", stderr)
	cfgPath := fs.String("config", "", "job file (JSON)")
	validate := fs.Bool("validate", false, "validate the job file and exit")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if *cfgPath == "" {
		fmt.Fprintln(stderr, "dqx run: -config is required")
		return exitUsage
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fail(stderr, "run", err)
	}
	issues := config.ValidateJob(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "job file is invalid: %s\n", *cfgPath)
		return exitFailure
	}
	if *validate {
		fmt.Fprintf(stdout, "job file is valid: %s\n", *cfgPath)
		return exitOK
	}

	log := logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	flush, err := job.SetupMetrics(cfg.Metrics, cfg.Job, log)
	if err != nil {
		log.WithError(err).Warn("metrics disabled")
	}
	defer flush()

	return execute(ctx, cfg, log, stdout, stderr)
}

func execute(ctx context.Context, cfg config.Job, log logrus.FieldLogger, stdout, stderr io.Writer) int {
	rep, err := job.Run(ctx, cfg, job.Deps{Log: log})
	if err != nil {
		if st, ok := job.IsRuleSetError(err); ok {
			fmt.Fprintln(stderr, st.String())
			return exitFailure
		}
		return fail(stderr, cfg.Job, err)
	}
	if err := printReport(stdout, rep); err != nil {
		return fail(stderr, cfg.Job, err)
	}
	return exitOK
}

func printReport(w io.Writer, rep job.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", rep.RunID)
	fmt.Fprintf(tw, "input\t%d\n", rep.Input)
	fmt.Fprintf(tw, "clean\t%d\n", rep.Clean)
	fmt.Fprintf(tw, "quarantined\t%d\n", rep.Quarantined)
	fmt.Fprintf(tw, "warned\t%d\n", rep.Warned)
	fmt.Fprintf(tw, "violations\t%d\n", rep.Violations)
	if rep.Skipped > 0 {
		fmt.Fprintf(tw, "skipped\t%d\n", rep.Skipped)
	}
	if len(rep.Rules) > 0 {
		fmt.Fprintln(tw, "\nRULE\tCRITICALITY\tFAILED")
		for _, r := range rep.Rules {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Rule, r.Criticality.Effective(), r.Failed)
		}
	}
	return tw.Flush()
}

func loadRules(path string) (rules.RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rs, err := rules.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Command dqx profiles tabular data, generates data-quality rules from the
// profile, validates rule documents, and applies them to split a dataset
// into clean and quarantined outputs.
//
// Usage:
//
//	dqx profile  -input data.csv [-max-distinct 20]
//	dqx generate -input data.csv [-format yaml|json] [-criticality error|warn] [-range]
//	dqx validate -rules rules.yaml [-input data.csv]
//	dqx apply    -input data.csv -rules rules.yaml -clean clean.csv -quarantine quarantine.csv
//	dqx run      -config job.json [-validate]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "dqx/internal/storage/all"
)

const usage = `usage: dqx <command> [flags]

commands:
  profile    print a column profile of a CSV file
  generate   print a rule document generated from a CSV file's profile
  validate   check a rule document (optionally against a CSV file's columns)
  apply      apply a rule document and write clean and quarantined CSV files
  run        execute a JSON job file

run "dqx <command> -h" for the flags of a command.
`

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches to a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	cmds := map[string]func(context.Context, []string, io.Writer, io.Writer) int{
		"profile":  cmdProfile,
		"generate": cmdGenerate,
		"validate": cmdValidate,
		"apply":    cmdApply,
		"run":      cmdRun,
	}
	fn, ok := cmds[args[0]]
	if !ok {
		if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
			fmt.Fprint(stdout, usage)
			return exitOK
		}
		fmt.Fprintf(stderr, "dqx: unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}
	return fn(ctx, args[1:], stdout, stderr)
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/formtree/internal/form"
	"github.com/roach88/formtree/internal/harness"
	"github.com/roach88/formtree/internal/snapshot"
	"github.com/roach88/formtree/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal  string // SQLite journal path; empty disables journaling
	Snapshot bool   // print the final tree of each scenario
	Filter   string // glob over scenario file names
}

// ScenarioResult holds the result of a single scenario file.
type ScenarioResult struct {
	Name     string         `json:"name"`
	File     string         `json:"file"`
	Session  string         `json:"session,omitempty"`
	Pass     bool           `json:"pass"`
	Errors   []string       `json:"errors,omitempty"`
	Snapshot *snapshot.Node `json:"snapshot,omitempty"`
}

// RunResult holds the overall run result.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir>...",
		Short: "Run form scenarios",
		Long: `Build the control tree of each scenario, apply its steps and check
its assertions. Directories are searched for .yaml and .yml files.

With --journal every validation run is recorded in a SQLite database
that the trace command can read back.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (unreadable journal, no scenarios, etc.)

Examples:
  formtree run ./scenarios
  formtree run signup.yaml --snapshot
  formtree run ./scenarios --journal ./formtree.db --filter 'sign*'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record validation runs in this SQLite database")
	cmd.Flags().BoolVar(&opts.Snapshot, "snapshot", false, "print the final tree of each scenario")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := collectScenarioFiles(args, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no scenarios found")
	}

	regOpts := []form.RegistryOption{form.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr()))}
	if opts.Journal != "" {
		st, err := store.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				formatter.VerboseLog("error closing journal: %v", closeErr)
			}
		}()
		regOpts = append(regOpts, form.WithJournal(st))
		formatter.VerboseLog("journal: %s", opts.Journal)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := RunResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		formatter.VerboseLog("running %s", file)
		sr := runScenarioFile(ctx, file, opts, regOpts)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
		if ctx.Err() != nil {
			return WrapExitError(ExitCommandError, "run interrupted", ctx.Err())
		}
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeScenarioFailed,
				Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
			}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
	} else if err := writeRunText(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func runScenarioFile(ctx context.Context, file string, opts *RunOptions, regOpts []form.RegistryOption) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("%s: %v", ErrCodeScenarioInvalid, err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.Run(ctx, scenario, regOpts...)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Session = result.Session
	sr.Pass = result.Pass
	if !result.Pass {
		sr.Errors = result.Errors
	}
	if opts.Snapshot {
		sr.Snapshot = result.Snapshot
	}
	return sr
}

// collectScenarioFiles expands directories into their YAML files and
// applies the name filter. Explicit file arguments are kept as given.
func collectScenarioFiles(args []string, filter string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			ok, err := matchFilter(arg, filter)
			if err != nil {
				return nil, err
			}
			if ok {
				files = append(files, arg)
			}
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := filepath.Ext(path)
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}
			ok, err := matchFilter(path, filter)
			if err != nil {
				return err
			}
			if ok {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func matchFilter(path, filter string) (bool, error) {
	if filter == "" {
		return true, nil
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	ok, err := filepath.Match(filter, name)
	if err != nil {
		return false, fmt.Errorf("invalid filter pattern: %w", err)
	}
	return ok, nil
}

func writeRunText(w io.Writer, result RunResult) error {
	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s\n", sr.Name)
		} else {
			fmt.Fprintf(w, "✗ %s\n", sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(strings.TrimRight(e, "\n"), "\n", "\n  "))
			}
		}
		if sr.Snapshot != nil {
			data, err := snapshot.Marshal(sr.Snapshot)
			if err != nil {
				return fmt.Errorf("failed to marshal snapshot of %s: %w", sr.Name, err)
			}
			fmt.Fprintf(w, "  snapshot: %s", data)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return nil
}

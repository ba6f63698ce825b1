package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/relsync/internal/ecs"
	"github.com/roach88/relsync/internal/eventlog"
	"github.com/roach88/relsync/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// Tokens overrides the flush token generator (for testing).
	// If nil, defaults to ecs.UUIDv7Generator.
	Tokens ecs.TokenGenerator
}

// RunSummary is the outcome of a journaled scenario run.
type RunSummary struct {
	Scenario    string                `json:"scenario"`
	Database    string                `json:"database"`
	Pass        bool                  `json:"pass"`
	FirstSeq    int64                 `json:"first_seq"`
	Events      []harness.EventRecord `json:"events"`
	FlushTokens []string              `json:"flush_tokens"`
	Errors      []string              `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommandWith(&RunOptions{RootOptions: rootOpts})
}

func newRunCommandWith(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario and journal its events",
		Long: `Run one scenario and append every change event to a SQLite event log.

The log is created if it does not exist. Sequence numbers continue after
the last recorded event and every flush gets a UUIDv7 token, so repeated
runs against the same log never collide. Use "relsync trace" to read
the journal back.

The database defaults to event_log.path from the config file or the
RELSYNC_EVENT_LOG_PATH environment variable.

Example:
  relsync run --db ./relsync.db ./scenarios/family_reparent.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournaled(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite event log")

	return cmd
}

func runJournaled(opts *RunOptions, scenarioPath string, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	logger := opts.logger()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.EventLog.Path
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no event log: pass --db or set event_log.path")
	}

	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("opening event log", "path", dbPath)
	st, err := eventlog.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open event log", err)
	}
	defer st.Close()

	last, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read event log", err)
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = ecs.UUIDv7Generator{}
	}

	logger.Info("running scenario", "scenario", scenario.Name, "resume_seq", last)
	result, err := harness.Run(ctx, scenario,
		harness.WithLogger(logger),
		harness.WithMaxSteps(cfg.Engine.MaxSteps),
		harness.WithMaxCascadeDepth(cfg.Engine.MaxCascadeDepth),
		harness.WithRecorder(st),
		harness.WithClock(ecs.NewClockAt(last)),
		harness.WithTokenGenerator(tokens),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	summary := RunSummary{
		Scenario:    scenario.Name,
		Database:    dbPath,
		Pass:        result.Pass,
		FirstSeq:    last + 1,
		Events:      result.Events,
		FlushTokens: flushTokens(result),
		Errors:      result.Errors,
	}
	logger.Info("scenario finished", "scenario", scenario.Name, "events", len(summary.Events), "pass", summary.Pass)

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		resp := CLIResponse{Status: "ok", Data: summary}
		if !summary.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_RUN_FAILED", Message: fmt.Sprintf("%d error(s)", len(summary.Errors))}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		outputRunText(cmd, summary)
	}

	if !summary.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// flushTokens returns the distinct flush tokens of the run's steps in order.
func flushTokens(result *harness.Result) []string {
	tokens := []string{}
	seen := make(map[string]bool)
	for _, step := range result.Trace {
		if step.FlushToken == "" || seen[step.FlushToken] {
			continue
		}
		seen[step.FlushToken] = true
		tokens = append(tokens, step.FlushToken)
	}
	return tokens
}

func outputRunText(cmd *cobra.Command, s RunSummary) {
	w := cmd.OutOrStdout()

	mark := "✓"
	if !s.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s: %d event(s) journaled to %s\n", mark, s.Scenario, len(s.Events), s.Database)
	for _, ev := range s.Events {
		fmt.Fprintf(w, "  [%d] %s %s(%s, %s)\n", ev.Seq, ev.Relation, ev.Kind, ev.From, ev.To)
	}
	for _, tok := range s.FlushTokens {
		fmt.Fprintf(w, "  flush %s\n", tok)
	}
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

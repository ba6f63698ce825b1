package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/relsync/internal/event"
	"github.com/roach88/relsync/internal/eventlog"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	FlushToken string // optional - filter to one flush
	Relation   string // optional - filter to one relation
	ListOnly   bool   // list flush tokens instead of events
}

// TraceEntry is one journaled event in the timeline.
type TraceEntry struct {
	Seq        int64  `json:"seq"`
	FlushToken string `json:"flush_token"`
	Relation   string `json:"relation"`
	Kind       string `json:"kind"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Added       int `json:"added"`
	Removed     int `json:"removed"`
	Flushes     int `json:"flushes"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	FlushToken string       `json:"flush_token,omitempty"`
	Relation   string       `json:"relation,omitempty"`
	Timeline   []TraceEntry `json:"timeline"`
	Stats      TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Read relation events back from an event log",
		Long: `Print the journaled relation events as a timeline.

Without filters every event is printed. --flush narrows to one flush and
--relation to one relation; both may be combined. Entities are shown as
<index>v<generation>.

Examples:
  relsync trace --db ./relsync.db
  relsync trace --db ./relsync.db --flush 0190a5c2-...
  relsync trace --db ./relsync.db --relation Family --format json
  relsync trace --db ./relsync.db --flushes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite event log")
	cmd.Flags().StringVar(&opts.FlushToken, "flush", "", "flush token to trace")
	cmd.Flags().StringVar(&opts.Relation, "relation", "", "filter to one relation")
	cmd.Flags().BoolVar(&opts.ListOnly, "flushes", false, "list flush tokens in order")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.EventLog.Path
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no event log: pass --db or set event_log.path")
	}

	st, err := eventlog.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open event log", err)
	}
	defer st.Close()

	if opts.ListOnly {
		tokens, err := st.ListFlushTokens(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read event log", err)
		}
		if opts.Format == "json" {
			formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
			return formatter.Success(tokens)
		}
		for _, tok := range tokens {
			fmt.Fprintln(cmd.OutOrStdout(), tok)
		}
		return nil
	}

	records, err := readTrace(ctx, st, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read event log", err)
	}

	result := buildTrace(records, opts)

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return formatter.Success(result)
	}
	return outputTraceText(cmd.OutOrStdout(), result)
}

// readTrace picks the narrowest journal query for the filters.
func readTrace(ctx context.Context, st *eventlog.Store, opts *TraceOptions) ([]event.Record, error) {
	switch {
	case opts.FlushToken != "":
		return st.ReadFlush(ctx, opts.FlushToken)
	case opts.Relation != "":
		return st.ReadRelation(ctx, opts.Relation)
	default:
		return st.ReadAll(ctx)
	}
}

// buildTrace applies the remaining filter and counts the timeline.
func buildTrace(records []event.Record, opts *TraceOptions) TraceResult {
	result := TraceResult{
		FlushToken: opts.FlushToken,
		Relation:   opts.Relation,
		Timeline:   []TraceEntry{},
	}

	flushes := make(map[string]bool)
	for _, rec := range records {
		if opts.Relation != "" && rec.Relation != opts.Relation {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEntry{
			Seq:        rec.Seq,
			FlushToken: rec.FlushToken,
			Relation:   rec.Relation,
			Kind:       rec.Kind,
			From:       rec.From.String(),
			To:         rec.To.String(),
		})
		flushes[rec.FlushToken] = true

		switch rec.Kind {
		case "Added":
			result.Stats.Added++
		case "Removed":
			result.Stats.Removed++
		}
	}
	result.Stats.TotalEvents = len(result.Timeline)
	result.Stats.Flushes = len(flushes)
	return result
}

// outputTraceText prints the timeline grouped by flush.
func outputTraceText(w io.Writer, result TraceResult) error {
	switch {
	case result.FlushToken != "":
		fmt.Fprintf(w, "Trace for flush: %s\n", result.FlushToken)
	case result.Relation != "":
		fmt.Fprintf(w, "Trace for relation: %s\n", result.Relation)
	default:
		fmt.Fprintln(w, "Trace")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	current := ""
	for _, e := range result.Timeline {
		if e.FlushToken != current {
			current = e.FlushToken
			fmt.Fprintf(w, "  flush %s\n", current)
		}
		fmt.Fprintf(w, "    [%d] %s %s(%s, %s)\n", e.Seq, e.Relation, e.Kind, e.From, e.To)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Added:        %d\n", result.Stats.Added)
	fmt.Fprintf(w, "  Removed:      %d\n", result.Stats.Removed)
	fmt.Fprintf(w, "  Flushes:      %d\n", result.Stats.Flushes)
	return nil
}

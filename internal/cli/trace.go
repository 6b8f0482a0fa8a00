package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/formtree/internal/form"
	"github.com/roach88/formtree/internal/snapshot"
	"github.com/roach88/formtree/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Path     string // optional - filter to one control path
}

// TraceRecord is one journaled validation run.
type TraceRecord struct {
	Seq        int64              `json:"seq"`
	Node       int64              `json:"node"`
	Name       string             `json:"name,omitempty"`
	Path       string             `json:"path,omitempty"`
	Request    int64              `json:"request"`
	Outcome    form.Outcome       `json:"outcome"`
	State      form.ValidateState `json:"state"`
	Errors     form.ControlErrors `json:"errors,omitempty"`
	DurationNS int64              `json:"duration_ns"`
}

// TraceStats summarizes the records of a session.
type TraceStats struct {
	Total     int `json:"total"`
	Committed int `json:"committed"`
	Stale     int `json:"stale"`
	Destroyed int `json:"destroyed"`
}

// TraceResult holds the journal of one session.
type TraceResult struct {
	Session  string        `json:"session"`
	Timeline []TraceRecord `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// SessionEntry is one row of the session listing.
type SessionEntry struct {
	Session   string `json:"session"`
	Records   int    `json:"records"`
	Committed int    `json:"committed"`
	Stale     int    `json:"stale"`
	Destroyed int    `json:"destroyed"`
	FirstSeq  int64  `json:"first_seq"`
	LastSeq   int64  `json:"last_seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Read the validation journal",
		Long: `Read validation runs recorded by 'formtree run --journal'.

Without --session the sessions in the journal are listed. With
--session every run of that session is shown in sequence order,
including runs that went stale or were cut short by a destroy.

Examples:
  formtree trace --db ./formtree.db
  formtree trace --db ./formtree.db --session signup
  formtree trace --db ./formtree.db --session signup --path email --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to trace")
	cmd.Flags().StringVar(&opts.Path, "path", "", "filter to one control path")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		return listSessions(ctx, st, formatter)
	}

	records, err := st.ReadSession(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	result := buildTrace(opts.Session, records, opts.Path)

	if formatter.JSON() {
		return formatter.Response(CLIResponse{Status: "ok", Data: result, Session: result.Session})
	}
	writeTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

// buildTrace converts journal records into the timeline, keeping only
// records for path when it is set.
func buildTrace(session string, records []form.ValidationRecord, path string) TraceResult {
	result := TraceResult{Session: session, Timeline: []TraceRecord{}}
	for _, rec := range records {
		if path != "" && rec.Path != path {
			continue
		}
		result.Timeline = append(result.Timeline, TraceRecord{
			Seq:        rec.Seq,
			Node:       rec.NodeID,
			Name:       rec.Name,
			Path:       rec.Path,
			Request:    rec.RequestID,
			Outcome:    rec.Outcome,
			State:      rec.State,
			Errors:     rec.Errors,
			DurationNS: rec.Duration.Nanoseconds(),
		})
		result.Stats.Total++
		switch rec.Outcome {
		case form.OutcomeCommitted:
			result.Stats.Committed++
		case form.OutcomeStale:
			result.Stats.Stale++
		case form.OutcomeDestroyed:
			result.Stats.Destroyed++
		}
	}
	return result
}

func listSessions(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	summaries, err := st.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	entries := make([]SessionEntry, len(summaries))
	for i, s := range summaries {
		entries[i] = SessionEntry{
			Session:   s.Session,
			Records:   s.Records,
			Committed: s.Committed,
			Stale:     s.Stale,
			Destroyed: s.Destroyed,
			FirstSeq:  s.FirstSeq,
			LastSeq:   s.LastSeq,
		}
	}

	if formatter.JSON() {
		return formatter.Success(map[string]any{"sessions": entries})
	}
	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  records=%d committed=%d stale=%d destroyed=%d seq=%d..%d\n",
			e.Session, e.Records, e.Committed, e.Stale, e.Destroyed, e.FirstSeq, e.LastSeq)
	}
	return nil
}

func writeTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no runs)")
	}
	for _, rec := range result.Timeline {
		target := rec.Path
		if target == "" {
			target = rec.Name
		}
		if target == "" {
			target = "(root)"
		}
		fmt.Fprintf(w, "  [%d] %s #%d %s -> %s\n", rec.Seq, target, rec.Request, rec.Outcome, rec.State)
		if len(rec.Errors) > 0 {
			if data, err := snapshot.Marshal(rec.Errors); err == nil {
				fmt.Fprintf(w, "       errors: %s", data)
			}
		}
		if verbose {
			fmt.Fprintf(w, "       node=%d duration=%dns\n", rec.Node, rec.DurationNS)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Runs: %d (committed %d, stale %d, destroyed %d)\n",
		result.Stats.Total, result.Stats.Committed, result.Stats.Stale, result.Stats.Destroyed)
}

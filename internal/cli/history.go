package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/docforge/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
	ID      string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded compiles",
		Long: `List compiles recorded with compile --journal, newest first, or show
one run with --id.

Examples:
  docforge history --journal docforge.db
  docforge history --journal docforge.db --limit 5 --format json
  docforge history --journal docforge.db --id 0192f7e4-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum entries to list (0 lists all)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show a single run")
	_ = cmd.MarkFlagRequired("journal")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Opening would create an empty database; a missing journal is an error.
	if _, err := os.Stat(opts.Journal); err != nil {
		return reportFailure(formatter, "", coded(ErrCodeNotFound, fmt.Errorf("journal not found: %s", opts.Journal)))
	}

	j, err := journal.Open(opts.Journal)
	if err != nil {
		return reportFailure(formatter, "", coded(ErrCodeJournal, err))
	}
	defer j.Close()

	var entries []journal.Entry
	if opts.ID != "" {
		e, err := j.Get(cmd.Context(), opts.ID)
		if errors.Is(err, journal.ErrNotFound) {
			return reportFailure(formatter, "", coded(ErrCodeNotFound, fmt.Errorf("run %s not found", opts.ID)))
		}
		if err != nil {
			return reportFailure(formatter, "", coded(ErrCodeJournal, err))
		}
		entries = []journal.Entry{e}
	} else {
		entries, err = j.List(cmd.Context(), opts.Limit)
		if err != nil {
			return reportFailure(formatter, "", coded(ErrCodeJournal, err))
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "No compiles recorded.")
		return nil
	}
	for _, e := range entries {
		mark := "✓"
		if e.Status == journal.StatusFailed {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s #%d %s %s %s\n", mark, e.Seq, e.ID, e.Format, e.Source)
		if e.Status == journal.StatusFailed {
			fmt.Fprintf(w, "  %s\n", e.ErrorKind)
			for _, d := range e.Diagnostics {
				fmt.Fprintf(w, "  %s: %s\n", d.Code, d.String())
			}
		} else {
			fmt.Fprintf(w, "  %d bytes, artifact %s\n", e.ArtifactSize, shortDigest(e.ArtifactDigest))
		}
	}
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

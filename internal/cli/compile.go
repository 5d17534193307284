package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/docforge/internal/compiler"
	"github.com/roach88/docforge/internal/journal"
	"github.com/roach88/docforge/internal/session"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	SessionOptions
	OutputFormat string // artifact format
	Expression   string // sub-value to render
	Output       string // artifact file path
	Journal      string // journal database path
}

// CompileResult is the JSON response payload of a successful compile.
type CompileResult struct {
	Format   string `json:"format"`
	Digest   string `json:"digest"`
	Bytes    int    `json:"bytes"`
	Artifact string `json:"artifact,omitempty"`
	File     string `json:"file,omitempty"`
	RunID    string `json:"run_id,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <template.cue|->",
		Short: "Compile a template with bound variables",
		Long: `Compile a CUE template once against the bound variables and write the
artifact to stdout or --output.

Variables are bound in command-line order. Values may be inline or read
from a file with name=@path.

Exit codes:
  0 - Artifact written
  1 - The compiler rejected the template (all diagnostics are reported)
  2 - Command error (bad flags, unreadable files, payloads that do not bind)

Examples:
  docforge compile invoice.cue --json meta=@meta.json --csv rows=@rows.csv --headers
  docforge compile letter.cue --set name=Ada -e letter --output-format text
  docforge compile report.cue --yaml account=@account.yaml --output-format yaml -o report.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	addSessionFlags(cmd, &opts.SessionOptions)
	cmd.Flags().StringVar(&opts.OutputFormat, "output-format", "json", "artifact format (json|yaml|cue|text)")
	cmd.Flags().StringVarP(&opts.Expression, "expression", "e", "", "render only the value at this path")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the artifact to this file")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the compile in this journal database")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	format, err := compiler.ParseFormat(opts.OutputFormat)
	if err != nil {
		return reportFailure(formatter, path, coded(ErrCodeInvalidFlag, err))
	}

	s, err := buildSession(&opts.SessionOptions, path, cmd.InOrStdin())
	if err != nil {
		return reportFailure(formatter, path, err)
	}
	formatter.VerboseLog("Bound %d variable(s) to %s", s.Len(), path)

	driver := compiler.New(
		compiler.WithLogger(newLogger(opts.Verbose, cmd.ErrOrStderr())),
		compiler.WithMaxDepth(opts.MaxDepth),
		compiler.WithFormat(format),
		compiler.WithExpression(opts.Expression),
	)
	art, compileErr := driver.Compile(s)

	var runID string
	if opts.Journal != "" {
		entry, err := recordCompile(cmd.Context(), opts.Journal, path, s, format, art, compileErr)
		if err != nil {
			return reportFailure(formatter, path, coded(ErrCodeJournal, err))
		}
		runID = entry.ID
		formatter.VerboseLog("Recorded run %s (seq %d)", entry.ID, entry.Seq)
	}

	if compileErr != nil {
		return reportFailure(formatter, path, compileErr)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, art.Data, 0644); err != nil {
			return reportFailure(formatter, path, coded(ErrCodeWriteFailed, fmt.Errorf("writing output file: %w", err)))
		}
	}

	if formatter.Format == "json" {
		result := CompileResult{
			Format: string(art.Format),
			Digest: art.Digest,
			Bytes:  len(art.Data),
			File:   opts.Output,
			RunID:  runID,
		}
		if opts.Output == "" {
			result.Artifact = string(art.Data)
		}
		return formatter.Success(result)
	}

	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "✓ Wrote %d bytes (%s) to %s\n", len(art.Data), art.Format, opts.Output)
		return nil
	}
	_, err = formatter.Writer.Write(art.Data)
	return err
}

// recordCompile appends the outcome of one compile to the journal at dbPath.
func recordCompile(ctx context.Context, dbPath, source string, s *session.Session, format compiler.Format, art *compiler.Artifact, compileErr error) (journal.Entry, error) {
	j, err := journal.Open(dbPath)
	if err != nil {
		return journal.Entry{}, err
	}
	defer j.Close()

	digest, err := s.Fingerprint()
	if err != nil {
		return journal.Entry{}, err
	}
	return j.Record(ctx, journal.Outcome(digest, source, format, art, compileErr))
}

// reportFailure writes err in the configured format and returns the
// matching ExitError.
func reportFailure(formatter *OutputFormatter, templatePath string, err error) error {
	code, exit := classify(err)

	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(exit, code, err)
	}

	diags := displayDiagnostics(ce.Diagnostics, templatePath)
	summary := fmt.Sprintf("compilation failed with %d error(s)", len(diags))

	if formatter.Format == "json" {
		_ = formatter.Error(code, summary, diags)
		return NewExitError(exit, summary)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Compilation failed")
	fmt.Fprintln(w)
	for _, d := range diags {
		if d.File != "" && d.Line > 0 {
			fmt.Fprintf(w, "%s:%d:%d\n", d.File, d.Line, d.Column)
		}
		if d.Path != "" {
			fmt.Fprintf(w, "  %s: %s: %s\n\n", d.Code, d.Path, d.Message)
		} else {
			fmt.Fprintf(w, "  %s: %s\n\n", d.Code, d.Message)
		}
	}
	return NewExitError(exit, summary)
}

// displayDiagnostics points diagnostics at the template's real path.
func displayDiagnostics(diags []compiler.Diagnostic, templatePath string) []compiler.Diagnostic {
	out := make([]compiler.Diagnostic, len(diags))
	for i, d := range diags {
		if d.File == compiler.SourceName && templatePath != "-" {
			d.File = templatePath
		}
		out[i] = d
	}
	return out
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/docforge/internal/compiler"
	"github.com/roach88/docforge/internal/tvt"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	SessionOptions
}

// BindingInfo describes one bound variable.
type BindingInfo struct {
	Name   string `json:"name"`
	Origin string `json:"origin"`
	Digest string `json:"digest"`
}

// InspectResult is what the compiler would see for a session.
type InspectResult struct {
	Session  string        `json:"session"`
	State    string        `json:"state"`
	Bindings []BindingInfo `json:"bindings"`
	Preamble string        `json:"preamble"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <template.cue|->",
		Short: "Show the variables a template would be compiled against",
		Long: `Bind variables exactly as compile does and print the resulting
declarations as CUE, without running the compiler.

Examples:
  docforge inspect invoice.cue --json meta=@meta.json --set price=21
  docforge inspect invoice.cue --csv rows=@rows.csv --headers --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	addSessionFlags(cmd, &opts.SessionOptions)

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := buildSession(&opts.SessionOptions, path, cmd.InOrStdin())
	if err != nil {
		return reportFailure(formatter, path, err)
	}

	driver := compiler.New(
		compiler.WithLogger(newLogger(opts.Verbose, cmd.ErrOrStderr())),
		compiler.WithMaxDepth(opts.MaxDepth),
	)
	env, err := driver.Prepare(s)
	if err != nil {
		return reportFailure(formatter, path, err)
	}
	preamble, err := env.Preamble()
	if err != nil {
		return reportFailure(formatter, path, err)
	}
	fingerprint, err := s.Fingerprint()
	if err != nil {
		return reportFailure(formatter, path, err)
	}

	result := InspectResult{
		Session:  fingerprint,
		State:    s.State().String(),
		Bindings: make([]BindingInfo, 0, s.Len()),
		Preamble: string(preamble),
	}
	for _, b := range s.Bindings() {
		digest, err := tvt.Digest(b.Value)
		if err != nil {
			return reportFailure(formatter, path, err)
		}
		result.Bindings = append(result.Bindings, BindingInfo{
			Name:   b.Name,
			Origin: b.Origin.String(),
			Digest: digest,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Session %s (%s)\n\n", result.Session, result.State)
	if len(result.Bindings) == 0 {
		fmt.Fprintln(w, "No variables bound.")
		return nil
	}
	fmt.Fprintln(w, "Variables:")
	for _, b := range result.Bindings {
		fmt.Fprintf(w, "  %s (%s)\n", b.Name, b.Origin)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Preamble:")
	fmt.Fprint(w, result.Preamble)
	if !strings.HasSuffix(result.Preamble, "\n") {
		fmt.Fprintln(w)
	}
	return nil
}

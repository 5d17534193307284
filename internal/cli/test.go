package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/docforge/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // fixture filter (glob pattern)
}

// FixtureResult holds the result of a single fixture.
type FixtureResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Fixtures []FixtureResult `json:"fixtures"`
	Passed   int             `json:"passed"`
	Failed   int             `json:"failed"`
	Total    int             `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <fixtures-dir>",
		Short: "Run template fixtures",
		Long: `Run every YAML fixture in a directory through the compiler and check
its expectations. When <fixtures-dir>/golden/<fixture>.golden exists the
artifact (or error text) must match it byte for byte.

Exit codes:
  0 - All fixtures passed
  1 - One or more fixtures failed
  2 - Command error (invalid paths, etc.)

Examples:
  docforge test ./fixtures
  docforge test ./fixtures --filter "invoice-*"
  docforge test ./fixtures --update
  docforge test ./fixtures --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter fixtures by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, fixturesDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if info, err := os.Stat(fixturesDir); err != nil || !info.IsDir() {
		return reportFailure(formatter, "", coded(ErrCodeNotFound, fmt.Errorf("fixtures directory not found: %s", fixturesDir)))
	}

	files, err := findFixtureFiles(fixturesDir, opts.Filter)
	if err != nil {
		return reportFailure(formatter, "", coded(ErrCodeInvalidFlag, err))
	}

	result := TestResult{
		Fixtures: make([]FixtureResult, 0, len(files)),
		Total:    len(files),
	}
	if len(files) == 0 {
		if opts.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No fixtures found.")
		return nil
	}

	var w io.Writer = formatter.Writer
	if opts.Format == "json" {
		w = io.Discard
	}
	for _, file := range files {
		fr := runFixture(file, opts.Update, w)
		result.Fixtures = append(result.Fixtures, fr)
		if fr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		if result.Failed > 0 {
			resp := CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: "E_TEST_FAILED", Message: fmt.Sprintf("%d fixture(s) failed", result.Failed)},
			}
			if err := formatter.encode(resp); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%d fixture(s) failed", result.Failed))
		}
		return formatter.Success(result)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d fixture(s) failed", result.Failed))
	}
	fmt.Fprintln(w, "✓ All fixtures passed")
	return nil
}

// findFixtureFiles lists the .yaml and .yml files directly inside dir,
// sorted, optionally filtered by a glob on the base name.
func findFixtureFiles(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// runFixture loads, runs and golden-checks one fixture, printing a line per
// fixture to w.
func runFixture(file string, update bool, w io.Writer) FixtureResult {
	fail := func(name string, errs ...string) FixtureResult {
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range errs {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return FixtureResult{Name: name, Pass: false, Errors: errs}
	}

	f, err := harness.LoadFixture(file)
	if err != nil {
		return fail(filepath.Base(file), fmt.Sprintf("failed to load fixture: %v", err))
	}

	result, err := harness.Run(f)
	if err != nil {
		return fail(f.Name, fmt.Sprintf("execution failed: %v", err))
	}

	got := harness.GoldenBytes(result)
	goldenPath := goldenFilePath(file)

	if update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			return fail(f.Name, fmt.Sprintf("failed to create golden directory: %v", err))
		}
		if err := os.WriteFile(goldenPath, got, 0644); err != nil {
			return fail(f.Name, fmt.Sprintf("failed to write golden file: %v", err))
		}
		if !result.Pass {
			return fail(f.Name, result.Errors...)
		}
		fmt.Fprintf(w, "✓ %s (golden updated)\n", f.Name)
		return FixtureResult{Name: f.Name, Pass: true}
	}

	errs := result.Errors
	want, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// Expectations only.
	case err != nil:
		errs = append(errs, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(want, got):
		errs = append(errs, "output does not match golden file (run with --update to regenerate)")
	}

	if len(errs) > 0 {
		return fail(f.Name, errs...)
	}
	fmt.Fprintf(w, "✓ %s\n", f.Name)
	return FixtureResult{Name: f.Name, Pass: true}
}

// goldenFilePath returns the path to the golden file for a fixture.
func goldenFilePath(fixtureFile string) string {
	dir := filepath.Dir(fixtureFile)
	base := filepath.Base(fixtureFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

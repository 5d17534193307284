package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/docforge/internal/compiler"
	"github.com/roach88/docforge/internal/journal"
	"github.com/roach88/docforge/internal/session"
	"github.com/roach88/docforge/internal/testutil"
)

// Run executes a fixture and checks its expectations.
//
// The returned error reports harness failures (an unusable fixture or
// journal); binding and compile errors are outcomes and land in
// Result.Err, where the expectations judge them.
func Run(f *Fixture) (*Result, error) {
	j, err := journal.Open(":memory:", journal.WithIDGenerator(testutil.NewSequentialIDGenerator(f.Name)))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	format, err := compiler.ParseFormat(f.Format)
	if err != nil {
		return nil, err
	}

	result := &Result{Pass: true}

	s := session.New(session.WithMaxDepth(f.MaxDepth))
	if f.Template != "" {
		s.SetBody(f.Template)
	}
	if err := bindAll(s, f.Variables); err != nil {
		result.Err = err
		checkExpectations(f, result)
		return result, nil
	}

	driver := compiler.New(
		compiler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		compiler.WithMaxDepth(f.MaxDepth),
		compiler.WithFormat(format),
		compiler.WithExpression(f.Expression),
	)
	art, compileErr := driver.Compile(s)
	if art != nil {
		result.Output = art.Data
	}
	result.Err = compileErr

	digest, err := s.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint session: %w", err)
	}
	entry, err := j.Record(context.Background(), journal.Outcome(digest, f.Name, format, art, compileErr))
	if err != nil {
		return nil, fmt.Errorf("failed to record compile: %w", err)
	}
	result.Entry = entry

	checkExpectations(f, result)
	return result, nil
}

// bindAll binds variables in fixture order and stops at the first failure.
func bindAll(s *session.Session, vars []Variable) error {
	for _, v := range vars {
		var err error
		switch v.Source() {
		case "value":
			var host any
			if err = v.Value.Decode(&host); err != nil {
				return fmt.Errorf("variable %q: %w", v.Name, err)
			}
			err = s.BindDirect(v.Name, host)
		case "json":
			err = s.BindJSON(v.Name, v.JSON)
		case "csv":
			opts, optErr := v.CSVOptions()
			if optErr != nil {
				return fmt.Errorf("variable %q: %w", v.Name, optErr)
			}
			err = s.BindCSV(v.Name, v.CSV, opts)
		case "yaml":
			err = s.BindYAML(v.Name, v.YAML)
		default:
			return fmt.Errorf("variable %q: no payload", v.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

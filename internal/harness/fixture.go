package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/roach88/docforge/internal/compiler"
	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/importer"
)

// Fixture defines one template compilation and its expected outcome.
type Fixture struct {
	// Name uniquely identifies this fixture and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this fixture validates.
	Description string `yaml:"description"`

	// Template is the inline template body.
	Template string `yaml:"template,omitempty"`

	// TemplateFile is a path to the body, relative to the fixture file.
	TemplateFile string `yaml:"template_file,omitempty"`

	// Format is the artifact format; empty selects json.
	Format string `yaml:"format,omitempty"`

	// Expression selects the sub-value to render.
	Expression string `yaml:"expression,omitempty"`

	// MaxDepth bounds value nesting; 0 selects the default.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Variables are bound in order.
	Variables []Variable `yaml:"variables,omitempty"`

	// Expect describes the outcome.
	Expect Expect `yaml:"expect"`
}

// Variable is one binding. Exactly one of Value, JSON, CSV or YAML is set.
type Variable struct {
	Name string `yaml:"name"`

	// Value is bound as a direct host value.
	Value *yaml.Node `yaml:"value,omitempty"`

	JSON string `yaml:"json,omitempty"`
	CSV  string `yaml:"csv,omitempty"`
	YAML string `yaml:"yaml,omitempty"`

	// CSV options.
	Headers   bool   `yaml:"headers,omitempty"`
	Delimiter string `yaml:"delimiter,omitempty"`
	ShortRows string `yaml:"short_rows,omitempty"`
	Encoding  string `yaml:"encoding,omitempty"`
}

// Source names the single payload field that is set.
func (v Variable) Source() string {
	var set []string
	if v.Value != nil {
		set = append(set, "value")
	}
	if v.JSON != "" {
		set = append(set, "json")
	}
	if v.CSV != "" {
		set = append(set, "csv")
	}
	if v.YAML != "" {
		set = append(set, "yaml")
	}
	if len(set) != 1 {
		return ""
	}
	return set[0]
}

// CSVOptions converts the CSV fields into importer options.
func (v Variable) CSVOptions() (importer.CSVOptions, error) {
	opts := importer.CSVOptions{UseHeaders: v.Headers, Encoding: v.Encoding}
	if v.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(v.Delimiter)
		if size != len(v.Delimiter) {
			return opts, fmt.Errorf("delimiter %q must be a single character", v.Delimiter)
		}
		opts.Delimiter = r
	}
	policy, err := importer.ParseShortRowPolicy(v.ShortRows)
	if err != nil {
		return opts, err
	}
	opts.ShortRows = policy
	return opts, nil
}

// Expect is the expected outcome of a fixture.
type Expect struct {
	// Error is the expected error kind, e.g. COMPILE_FAILED. Empty means
	// the compile must succeed.
	Error string `yaml:"error,omitempty"`

	// Contains lists substrings of the output (or of the error text when
	// Error is set).
	Contains []string `yaml:"contains,omitempty"`

	// Output is the exact expected artifact.
	Output *string `yaml:"output,omitempty"`
}

var knownKinds = map[fault.Kind]bool{
	fault.KindUnsupportedHostType: true,
	fault.KindDepthExceeded:       true,
	fault.KindReferenceCycle:      true,
	fault.KindInvalidUTF8:         true,
	fault.KindUnrepresentable:     true,
	fault.KindMalformedInput:      true,
	fault.KindInvalidName:         true,
	fault.KindNoBody:              true,
	fault.KindCompileFailed:       true,
}

// LoadFixture reads and parses a fixture file. Unknown fields are rejected
// and a template_file is read relative to the fixture.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if f.TemplateFile != "" {
		if f.Template != "" {
			return nil, fmt.Errorf("invalid fixture: template and template_file are exclusive")
		}
		p := f.TemplateFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		body, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read template file: %w", err)
		}
		f.Template = string(body)
	}

	if err := validateFixture(&f); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

// LoadDir loads every *.yaml fixture in dir, sorted by file name.
func LoadDir(dir string) ([]*Fixture, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	fixtures := make([]*Fixture, 0, len(paths))
	for _, p := range paths {
		f, err := LoadFixture(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

func validateFixture(f *Fixture) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if f.Description == "" {
		return fmt.Errorf("description is required")
	}
	if f.Template == "" && f.Expect.Error != string(fault.KindNoBody) {
		return fmt.Errorf("template is required unless expect.error is %s", fault.KindNoBody)
	}
	if _, err := compiler.ParseFormat(f.Format); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for i, v := range f.Variables {
		if v.Name == "" {
			return fmt.Errorf("variables[%d]: name is required", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("variables[%d]: duplicate name %q", i, v.Name)
		}
		seen[v.Name] = true
		if v.Source() == "" {
			return fmt.Errorf("variables[%d]: exactly one of value, json, csv, yaml is required", i)
		}
		if v.Source() == "csv" {
			if _, err := v.CSVOptions(); err != nil {
				return fmt.Errorf("variables[%d]: %w", i, err)
			}
		}
	}

	if e := f.Expect.Error; e != "" && !knownKinds[fault.Kind(strings.ToUpper(e))] {
		return fmt.Errorf("expect.error: unknown error kind %q", e)
	}
	if f.Expect.Error != "" && f.Expect.Output != nil {
		return fmt.Errorf("expect.output cannot be combined with expect.error")
	}
	return nil
}

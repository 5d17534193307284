package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/docforge/internal/importer"
	"github.com/roach88/docforge/internal/session"
)

// bindSpec is one binding requested on the command line.
type bindSpec struct {
	origin session.Origin
	name   string
	text   string // payload, or "@path" to read a file
}

// bindList collects --set, --json, --csv and --yaml in command-line order,
// so bindings reach the session in the order the user wrote them.
type bindList struct {
	specs []bindSpec
}

// bindFlag is the pflag.Value behind one of the binding flags.
type bindFlag struct {
	list   *bindList
	origin session.Origin
}

func (f bindFlag) String() string { return "" }

func (f bindFlag) Type() string { return "name=value" }

func (f bindFlag) Set(s string) error {
	name, text, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	f.list.specs = append(f.list.specs, bindSpec{origin: f.origin, name: name, text: text})
	return nil
}

// SessionOptions are the flags that populate a session.
type SessionOptions struct {
	bindings  bindList
	Delimiter string
	Headers   bool
	ShortRows string
	Encoding  string
	MaxDepth  int
}

func addSessionFlags(cmd *cobra.Command, opts *SessionOptions) {
	flags := cmd.Flags()
	flags.Var(bindFlag{list: &opts.bindings, origin: session.OriginDirect}, "set", "bind a scalar or YAML flow value: name=value")
	flags.Var(bindFlag{list: &opts.bindings, origin: session.OriginJSON}, "json", "bind JSON text: name=text or name=@file")
	flags.Var(bindFlag{list: &opts.bindings, origin: session.OriginCSV}, "csv", "bind CSV text: name=text or name=@file")
	flags.Var(bindFlag{list: &opts.bindings, origin: session.OriginYAML}, "yaml", "bind a YAML document: name=text or name=@file")
	flags.StringVar(&opts.Delimiter, "delimiter", ",", "CSV field delimiter")
	flags.BoolVar(&opts.Headers, "headers", false, "treat the first CSV row as field names")
	flags.StringVar(&opts.ShortRows, "short-rows", "pad", "CSV rows shorter than the header: pad|omit")
	flags.StringVar(&opts.Encoding, "encoding", "", "CSV text encoding label (default utf-8)")
	flags.IntVar(&opts.MaxDepth, "max-depth", 0, "maximum value nesting (0 selects the default)")
}

// csvOptions validates the CSV flags.
func (o *SessionOptions) csvOptions() (importer.CSVOptions, error) {
	r, size := utf8.DecodeRuneInString(o.Delimiter)
	if o.Delimiter == "" || size != len(o.Delimiter) {
		return importer.CSVOptions{}, fmt.Errorf("--delimiter must be a single character, got %q", o.Delimiter)
	}
	policy, err := importer.ParseShortRowPolicy(o.ShortRows)
	if err != nil {
		return importer.CSVOptions{}, err
	}
	return importer.CSVOptions{
		Delimiter:  r,
		UseHeaders: o.Headers,
		ShortRows:  policy,
		Encoding:   o.Encoding,
	}, nil
}

// buildSession reads the template at path ("-" for stdin) and binds every
// requested variable in order. The first failure aborts.
func buildSession(opts *SessionOptions, path string, stdin io.Reader) (*session.Session, error) {
	csvOpts, err := opts.csvOptions()
	if err != nil {
		return nil, coded(ErrCodeInvalidFlag, err)
	}

	body, err := readSource(path, stdin)
	if err != nil {
		return nil, err
	}

	s := session.New(session.WithBody(body), session.WithMaxDepth(opts.MaxDepth))
	for _, spec := range opts.bindings.specs {
		text, err := payload(spec.text)
		if err != nil {
			return nil, err
		}
		switch spec.origin {
		case session.OriginJSON:
			err = s.BindJSON(spec.name, text)
		case session.OriginCSV:
			err = s.BindCSV(spec.name, text, csvOpts)
		case session.OriginYAML:
			err = s.BindYAML(spec.name, text)
		default:
			err = bindScalar(s, spec.name, text)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// bindScalar binds a --set value. The text is read as a YAML flow value,
// so 3 is an int, true a bool and [a, b] a list; anything else is a string.
func bindScalar(s *session.Session, name, text string) error {
	var v any
	if err := yaml.Unmarshal([]byte(text), &v); err != nil {
		v = text
	}
	return s.BindDirect(name, v)
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", coded(ErrCodeReadFailed, fmt.Errorf("reading template from stdin: %w", err))
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", coded(ErrCodeNotFound, fmt.Errorf("template not found: %s", path))
		}
		return "", coded(ErrCodeReadFailed, fmt.Errorf("reading template: %w", err))
	}
	return string(data), nil
}

// payload resolves "@path" to the file's contents.
func payload(text string) (string, error) {
	path, ok := strings.CutPrefix(text, "@")
	if !ok {
		return text, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", coded(ErrCodeNotFound, fmt.Errorf("payload not found: %s", path))
		}
		return "", coded(ErrCodeReadFailed, fmt.Errorf("reading payload: %w", err))
	}
	return string(data), nil
}

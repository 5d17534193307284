// Package session accumulates a template body and its named variable
// bindings ahead of compilation.
//
// A Session holds no reference to any compiler. Every bind operation
// normalizes its input into a tvt.Value immediately, so bad input fails at
// bind time and a failed bind leaves the session exactly as it was.
//
// A Session is not safe for concurrent use. Sessions are cheap; use one
// per compilation.
package session

import (
	"fmt"

	"github.com/roach88/docforge/internal/importer"
	"github.com/roach88/docforge/internal/tvt"
)

// Origin records how a binding's value arrived.
type Origin int

const (
	OriginDirect Origin = iota
	OriginJSON
	OriginCSV
	OriginYAML
)

func (o Origin) String() string {
	switch o {
	case OriginDirect:
		return "direct"
	case OriginJSON:
		return "json"
	case OriginCSV:
		return "csv"
	case OriginYAML:
		return "yaml"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// State is the position of a session in its lifecycle.
type State int

const (
	StateEmpty State = iota
	StateBodySet
	StateVariablesBound
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBodySet:
		return "body-set"
	case StateVariablesBound:
		return "variables-bound"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Binding is a named value held by a session.
type Binding struct {
	Name   string
	Value  tvt.Value
	Origin Origin
}

// Session is a template body plus ordered, uniquely named bindings.
type Session struct {
	body     string
	bindings []Binding
	index    map[string]int
	maxDepth int
}

// Option configures a Session.
type Option func(*Session)

// WithBody sets the initial template body.
func WithBody(text string) Option {
	return func(s *Session) {
		s.body = text
	}
}

// WithMaxDepth bounds the nesting of every bound value. Values <= 0 select
// tvt.DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// New creates a session.
func New(opts ...Option) *Session {
	s := &Session{
		index:    make(map[string]int),
		maxDepth: tvt.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBody replaces the template body. The text is not inspected here.
func (s *Session) SetBody(text string) {
	s.body = text
}

// Body returns the template body and whether one is set. An empty body
// counts as absent.
func (s *Session) Body() (string, bool) {
	return s.body, s.body != ""
}

// MaxDepth returns the nesting bound applied to bound values.
func (s *Session) MaxDepth() int {
	return s.maxDepth
}

// State reports the session's lifecycle state.
func (s *Session) State() State {
	switch {
	case s.body == "":
		return StateEmpty
	case len(s.bindings) > 0:
		return StateVariablesBound
	default:
		return StateBodySet
	}
}

// BindDirect converts a Go value with tvt.FromGo and binds it.
func (s *Session) BindDirect(name string, v any) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	tv, err := tvt.FromGo(v, s.maxDepth)
	if err != nil {
		return fmt.Errorf("bind %q: %w", name, err)
	}
	s.put(Binding{Name: name, Value: tv, Origin: OriginDirect})
	return nil
}

// BindValue binds an already built tagged value after validating it.
func (s *Session) BindValue(name string, v tvt.Value) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := tvt.Validate(v, s.maxDepth); err != nil {
		return fmt.Errorf("bind %q: %w", name, err)
	}
	s.put(Binding{Name: name, Value: v, Origin: OriginDirect})
	return nil
}

// BindJSON decodes JSON text and binds the result.
func (s *Session) BindJSON(name, text string) error {
	return s.bindDecoded(name, OriginJSON, func() (tvt.Value, error) {
		return importer.DecodeJSON(text, importer.JSONOptions{MaxDepth: s.maxDepth})
	})
}

// BindCSV decodes delimited text with the given policy and binds the result.
func (s *Session) BindCSV(name, text string, opts importer.CSVOptions) error {
	return s.bindDecoded(name, OriginCSV, func() (tvt.Value, error) {
		return importer.DecodeCSV(text, opts)
	})
}

// BindYAML decodes a YAML document and binds the result.
func (s *Session) BindYAML(name, text string) error {
	return s.bindDecoded(name, OriginYAML, func() (tvt.Value, error) {
		return importer.DecodeYAML(text, importer.YAMLOptions{MaxDepth: s.maxDepth})
	})
}

func (s *Session) bindDecoded(name string, origin Origin, decode func() (tvt.Value, error)) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	v, err := decode()
	if err != nil {
		return fmt.Errorf("bind %q: %w", name, err)
	}
	if err := tvt.Validate(v, s.maxDepth); err != nil {
		return fmt.Errorf("bind %q: %w", name, err)
	}
	s.put(Binding{Name: name, Value: v, Origin: origin})
	return nil
}

// put stores b. Rebinding a name replaces its value and origin but keeps
// its original position.
func (s *Session) put(b Binding) {
	if i, ok := s.index[b.Name]; ok {
		s.bindings[i] = b
		return
	}
	s.index[b.Name] = len(s.bindings)
	s.bindings = append(s.bindings, b)
}

// Bindings returns the bindings in first-bound order.
func (s *Session) Bindings() []Binding {
	out := make([]Binding, len(s.bindings))
	copy(out, s.bindings)
	return out
}

// Lookup returns the binding for name.
func (s *Session) Lookup(name string) (Binding, bool) {
	i, ok := s.index[name]
	if !ok {
		return Binding{}, false
	}
	return s.bindings[i], true
}

// Len returns the number of bindings.
func (s *Session) Len() int {
	return len(s.bindings)
}

// Fingerprint identifies the session content: body plus ordered bindings
// with their origins. Two sessions with equal fingerprints compile to the
// same result.
func (s *Session) Fingerprint() (string, error) {
	rows := make(tvt.Seq, 0, len(s.bindings))
	for _, b := range s.bindings {
		rows = append(rows, tvt.NewMap(
			tvt.P("name", tvt.Str(b.Name)),
			tvt.P("origin", tvt.Str(b.Origin.String())),
			tvt.P("value", b.Value),
		))
	}
	doc := tvt.NewMap(
		tvt.P("body", tvt.Str(s.body)),
		tvt.P("bindings", rows),
	)
	data, err := tvt.EncodeJSON(doc, "")
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return tvt.HashWithDomain(tvt.DomainSession, data), nil
}

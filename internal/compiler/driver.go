// Package compiler turns a populated session into exactly one compiler
// invocation and a typed result.
//
// Protocol of Driver.Compile:
//  1. a session without a body fails with NO_BODY; the engine is not run
//  2. every binding goes through the value bridge; the first failure
//     aborts and no partial environment is exposed
//  3. the environment holds the template as the single source unit
//     (template.cue) plus one scope struct with the converted bindings
//  4. the engine runs once
//  5. success yields an Artifact; failure yields a *CompileError with
//     every diagnostic the engine reported
//
// Each compile builds a fresh CUE context, so repeated compiles of an
// unchanged session are byte-identical and the session is never modified.
package compiler

import (
	"io"
	"log/slog"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/docforge/internal/bridge"
	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/session"
	"github.com/roach88/docforge/internal/tvt"
)

// Artifact is the output of a successful compilation.
type Artifact struct {
	Data   []byte
	Format Format
	// Digest is the domain-separated SHA-256 of Data.
	Digest string
}

// Driver compiles sessions.
type Driver struct {
	engine   Engine
	logger   *slog.Logger
	maxDepth int
	render   RenderOptions
}

// Option configures a Driver.
type Option func(*Driver)

// WithEngine replaces the CUE engine.
func WithEngine(e Engine) Option {
	return func(d *Driver) {
		d.engine = e
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMaxDepth bounds value nesting in the bridge and the renderers.
// Values <= 0 select tvt.DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// WithFormat selects the artifact format.
func WithFormat(f Format) Option {
	return func(d *Driver) {
		d.render.Format = f
	}
}

// WithExpression renders only the sub-value at expr.
func WithExpression(expr string) Option {
	return func(d *Driver) {
		d.render.Expression = expr
	}
}

// New creates a Driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		engine:   NewCUEEngine(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxDepth: tvt.DefaultMaxDepth,
		render:   RenderOptions{Format: FormatJSON},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Prepare runs the first three protocol steps and returns the environment
// the engine would see.
func (d *Driver) Prepare(s *session.Session) (*Environment, error) {
	body, ok := s.Body()
	if !ok {
		return nil, fault.New(fault.KindNoBody, "no template body set")
	}

	bindings := s.Bindings()
	named := make([]bridge.Named, len(bindings))
	names := make([]string, len(bindings))
	for i, b := range bindings {
		named[i] = bridge.Named{Name: b.Name, Value: b.Value}
		names[i] = b.Name
	}

	ctx := cuecontext.New()
	br := bridge.New(ctx, bridge.WithMaxDepth(d.maxDepth))
	decls, err := br.ScopeDecls(named)
	if err != nil {
		return nil, err
	}
	scope, err := br.BuildScope(decls)
	if err != nil {
		return nil, err
	}

	return &Environment{
		Source:   Source{Name: SourceName, Text: body},
		Context:  ctx,
		Scope:    scope,
		Names:    names,
		Render:   d.render,
		MaxDepth: d.maxDepth,
		decls:    decls,
	}, nil
}

// Compile runs the full protocol once.
func (d *Driver) Compile(s *session.Session) (*Artifact, error) {
	env, err := d.Prepare(s)
	if err != nil {
		d.logger.Debug("compile aborted before engine", "error", err)
		return nil, err
	}

	d.logger.Debug("compiling",
		"source", env.Source.Name,
		"bindings", len(env.Names),
		"format", env.Render.Format,
		"expression", env.Render.Expression,
	)

	data, diags := d.engine.Compile(env)
	if len(diags) > 0 {
		d.logger.Info("compile failed",
			"diagnostics", len(diags),
			"first", diags[0].String(),
		)
		return nil, &CompileError{Diagnostics: diags}
	}

	art := &Artifact{
		Data:   data,
		Format: env.Render.Format,
		Digest: tvt.HashWithDomain(tvt.DomainArtifact, data),
	}
	d.logger.Info("compile succeeded",
		"format", art.Format,
		"bytes", len(art.Data),
		"digest", art.Digest,
	)
	return art, nil
}

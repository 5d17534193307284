package compiler

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/importer"
	"github.com/roach88/docforge/internal/session"
	"github.com/roach88/docforge/internal/tvt"
)

type countingEngine struct {
	calls int
	last  *Environment
	out   []byte
	diags []Diagnostic
}

func (e *countingEngine) Compile(env *Environment) ([]byte, []Diagnostic) {
	e.calls++
	e.last = env
	return e.out, e.diags
}

func invoiceSession(t *testing.T) *session.Session {
	t.Helper()
	s := session.New(session.WithBody(`title: "Invoice \(meta.id)"
lines: rows
total: price * 2
ratio: 0.5
`))
	require.NoError(t, s.BindValue("meta", tvt.NewMap(tvt.P("id", tvt.Str("INV-1")))))
	require.NoError(t, s.BindCSV("rows", "name,qty\nWidget,2\n", importer.CSVOptions{UseHeaders: true}))
	require.NoError(t, s.BindDirect("price", 21))
	return s
}

func TestCompileJSON(t *testing.T) {
	art, err := New().Compile(invoiceSession(t))
	require.NoError(t, err)

	want := `{
  "title": "Invoice INV-1",
  "lines": [
    {
      "name": "Widget",
      "qty": "2"
    }
  ],
  "total": 42,
  "ratio": 0.5
}
`
	assert.Equal(t, want, string(art.Data))
	assert.Equal(t, FormatJSON, art.Format)
	assert.Equal(t, tvt.HashWithDomain(tvt.DomainArtifact, art.Data), art.Digest)
}

func TestCompileIsIdempotent(t *testing.T) {
	s := invoiceSession(t)
	before, err := s.Fingerprint()
	require.NoError(t, err)

	d := New()
	first, err := d.Compile(s)
	require.NoError(t, err)
	second, err := d.Compile(s)
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)

	after, err := s.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, session.StateVariablesBound, s.State())
}

func TestCompileNoBodySkipsEngine(t *testing.T) {
	eng := &countingEngine{out: []byte("never")}
	d := New(WithEngine(eng))

	s := session.New()
	require.NoError(t, s.BindDirect("x", 1))

	_, err := d.Compile(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrNoBody)
	assert.True(t, fault.IsNoBody(err))
	assert.Equal(t, 0, eng.calls)
}

func TestCompileDepthGuardSkipsEngine(t *testing.T) {
	var deep tvt.Value = tvt.Int(1)
	for range 10 {
		deep = tvt.Seq{deep}
	}

	s := session.New(session.WithBody("a: 1"), session.WithMaxDepth(20))
	require.NoError(t, s.BindValue("deep", deep))

	eng := &countingEngine{}
	_, err := New(WithEngine(eng), WithMaxDepth(5)).Compile(s)
	require.Error(t, err)
	assert.True(t, fault.IsDepthExceeded(err))
	assert.Contains(t, err.Error(), `binding "deep"`)
	assert.Equal(t, 0, eng.calls)
}

func TestCompileInvokesEngineOnce(t *testing.T) {
	eng := &countingEngine{out: []byte("artifact")}
	d := New(WithEngine(eng), WithFormat(FormatText), WithExpression("doc"))

	art, err := d.Compile(invoiceSession(t))
	require.NoError(t, err)
	assert.Equal(t, []byte("artifact"), art.Data)
	assert.Equal(t, 1, eng.calls)

	env := eng.last
	require.NotNil(t, env)
	assert.Equal(t, SourceName, env.Source.Name)
	assert.Equal(t, []string{"meta", "rows", "price"}, env.Names)
	assert.Equal(t, RenderOptions{Format: FormatText, Expression: "doc"}, env.Render)
}

func TestCompileFailureKeepsAllDiagnostics(t *testing.T) {
	diags := []Diagnostic{
		{Code: DiagEvaluation, Message: "first", File: SourceName, Line: 1, Column: 4},
		{Code: DiagEvaluation, Message: "second", File: SourceName, Line: 7, Column: 2},
	}
	eng := &countingEngine{diags: diags}

	_, err := New(WithEngine(eng)).Compile(session.New(session.WithBody("x")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, diags, ce.Diagnostics)
	assert.ErrorIs(t, err, fault.ErrCompileFailed)
	assert.Equal(t, fault.KindCompileFailed, fault.KindOf(err))
	assert.Equal(t, "template.cue:1:4: first\ntemplate.cue:7:2: second", err.Error())
}

func TestCompileAggregatesUnresolvedReferences(t *testing.T) {
	s := session.New(session.WithBody("a: missing\nb: 1\nc: alsoMissing\n"))

	_, err := New().Compile(s)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Diagnostics, 2)

	first, second := ce.Diagnostics[0], ce.Diagnostics[1]
	assert.Equal(t, DiagEvaluation, first.Code)
	assert.Contains(t, first.Message, `"missing"`)
	assert.Equal(t, SourceName, first.File)
	assert.Equal(t, 1, first.Line)
	assert.Equal(t, 4, first.Column)

	assert.Contains(t, second.Message, `"alsoMissing"`)
	assert.Equal(t, 3, second.Line)
}

func TestCompileConflict(t *testing.T) {
	s := session.New(session.WithBody("total: price & 5\n"))
	require.NoError(t, s.BindDirect("price", 4))

	_, err := New().Compile(s)
	require.Error(t, err)
	assert.True(t, fault.IsCompileFailed(err))
	assert.Contains(t, err.Error(), "conflicting values")
}

func TestCompileIntegerBounds(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		want string
	}{
		{"min", math.MinInt64, "-9223372036854775808"},
		{"max", math.MaxInt64, "9223372036854775807"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session.New(session.WithBody("out: v\n"))
			require.NoError(t, s.BindValue("v", tvt.Int(tt.in)))

			art, err := New().Compile(s)
			require.NoError(t, err)
			assert.Equal(t, "{\n  \"out\": "+tt.want+"\n}\n", string(art.Data))
		})
	}
}

func TestCompileAggregatesConflicts(t *testing.T) {
	s := session.New(session.WithBody("a: 1\na: 2\nb: 3\nb: 4\n"))

	_, err := New().Compile(s)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Diagnostics, 2)

	assert.Equal(t, "a", ce.Diagnostics[0].Path)
	assert.Contains(t, ce.Diagnostics[0].Message, "conflicting values")
	assert.Equal(t, "b", ce.Diagnostics[1].Path)
	assert.Contains(t, ce.Diagnostics[1].Message, "conflicting values")
}

func TestMergeDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		base []Diagnostic
		more []Diagnostic
		want []Diagnostic
	}{
		{
			name: "disjoint",
			base: []Diagnostic{{Message: "x", Line: 1}},
			more: []Diagnostic{{Message: "y", Line: 3}},
			want: []Diagnostic{{Message: "x", Line: 1}, {Message: "y", Line: 3}},
		},
		{
			name: "duplicate dropped",
			base: []Diagnostic{{Message: "x", Line: 1, Path: "a"}},
			more: []Diagnostic{{Message: "x", Line: 1, Path: "a"}, {Message: "y", Line: 3, Path: "b"}},
			want: []Diagnostic{{Message: "x", Line: 1, Path: "a"}, {Message: "y", Line: 3, Path: "b"}},
		},
		{
			name: "path filled",
			base: []Diagnostic{{Message: "x", Line: 2}},
			more: []Diagnostic{{Message: "x", Line: 2, Path: "a"}},
			want: []Diagnostic{{Message: "x", Line: 2, Path: "a"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeDiagnostics(tt.base, tt.more))
		})
	}
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := New().Compile(session.New(session.WithBody("a: {\n")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.NotEmpty(t, ce.Diagnostics)
	assert.Equal(t, DiagSyntax, ce.Diagnostics[0].Code)
	assert.Equal(t, SourceName, ce.Diagnostics[0].File)
}

func TestCompileIncompleteResult(t *testing.T) {
	_, err := New().Compile(session.New(session.WithBody("name: string\n")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.NotEmpty(t, ce.Diagnostics)
	assert.Equal(t, DiagValidation, ce.Diagnostics[0].Code)
	assert.Equal(t, "name", ce.Diagnostics[0].Path)
}

func TestCompileSandbox(t *testing.T) {
	t.Run("module and tool imports denied", func(t *testing.T) {
		body := "import \"example.com/secrets\"\nimport \"tool/exec\"\na: 1\n"
		_, err := New().Compile(session.New(session.WithBody(body)))
		require.Error(t, err)

		var ce *CompileError
		require.ErrorAs(t, err, &ce)
		require.Len(t, ce.Diagnostics, 2)
		for i, d := range ce.Diagnostics {
			assert.Equal(t, DiagImportDenied, d.Code)
			assert.Equal(t, i+1, d.Line)
		}
		assert.Contains(t, ce.Diagnostics[0].Message, "example.com/secrets")
		assert.Contains(t, ce.Diagnostics[1].Message, "tool/exec")
	})

	t.Run("standard library allowed", func(t *testing.T) {
		s := session.New(session.WithBody("import \"strings\"\nshout: strings.ToUpper(name)\n"))
		require.NoError(t, s.BindDirect("name", "acme"))

		art, err := New().Compile(s)
		require.NoError(t, err)
		assert.Equal(t, "{\n  \"shout\": \"ACME\"\n}\n", string(art.Data))
	})
}

func TestCompileTextExpression(t *testing.T) {
	s := session.New(session.WithBody("doc: \"Hello \\(customer)!\\n\"\nother: 1\n"))
	require.NoError(t, s.BindDirect("customer", "ACME"))

	art, err := New(WithFormat(FormatText), WithExpression("doc")).Compile(s)
	require.NoError(t, err)
	assert.Equal(t, "Hello ACME!\n", string(art.Data))
}

func TestCompileExpressionNotFound(t *testing.T) {
	_, err := New(WithExpression("nope")).Compile(session.New(session.WithBody("a: 1\n")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, DiagExpressionNotFound, ce.Diagnostics[0].Code)
}

func TestCompileTextNeedsString(t *testing.T) {
	_, err := New(WithFormat(FormatText)).Compile(session.New(session.WithBody("a: 1\n")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, DiagRender, ce.Diagnostics[0].Code)
}

func TestPreparePreamble(t *testing.T) {
	env, err := New().Prepare(invoiceSession(t))
	require.NoError(t, err)

	pre, err := env.Preamble()
	require.NoError(t, err)

	text := string(pre)
	assert.Contains(t, text, `id: "INV-1"`)
	assert.Contains(t, text, `"Widget"`)
	assert.Regexp(t, `price:\s+21`, text)
	assert.Less(t, strings.Index(text, "meta:"), strings.Index(text, "rows:"))
	assert.Less(t, strings.Index(text, "rows:"), strings.Index(text, "price:"))
}

func TestCompileLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := New(WithLogger(logger)).Compile(invoiceSession(t))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "compile succeeded")
	assert.Contains(t, buf.String(), "bindings=3")
}

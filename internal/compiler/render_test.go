package compiler

import (
	"testing"

	"cuelang.org/go/cue/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docforge/internal/session"
)

const itemBody = `item: {
	name:  "Widget"
	qty:   2
	price: 2.0
	tags: ["a", "b"]
	none: null
	code: "007"
}
`

func TestRenderYAML(t *testing.T) {
	art, err := New(WithFormat(FormatYAML), WithExpression("item")).Compile(session.New(session.WithBody(itemBody)))
	require.NoError(t, err)

	want := `name: Widget
qty: 2
price: 2.0
tags:
  - a
  - b
none: null
code: "007"
`
	assert.Equal(t, want, string(art.Data))
}

func TestRenderCUE(t *testing.T) {
	s := session.New(session.WithBody("a: 1\nb: [x, \"y\"]\n#Hidden: int\n"))
	require.NoError(t, s.BindDirect("x", "z"))

	art, err := New(WithFormat(FormatCUE)).Compile(s)
	require.NoError(t, err)

	out := string(art.Data)
	assert.Contains(t, out, "a: 1")
	assert.Contains(t, out, `b: ["z", "y"]`)
	assert.NotContains(t, out, "#Hidden")
	assert.Equal(t, byte('\n'), out[len(out)-1])
}

func TestRenderCUEScalar(t *testing.T) {
	art, err := New(WithFormat(FormatCUE), WithExpression("a")).Compile(session.New(session.WithBody("a: 3\n")))
	require.NoError(t, err)
	assert.Equal(t, "3\n", string(art.Data))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"cue", FormatCUE, false},
		{"text", FormatText, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckImports(t *testing.T) {
	src := `import (
	"strings"
	"list"
	"encoding/json"
	"github.com/acme/x:pkg"
	"./local"
	"tool/file"
)

a: 1
`
	f, err := parser.ParseFile(SourceName, src)
	require.NoError(t, err)

	diags := checkImports(f)
	require.Len(t, diags, 3)
	assert.Contains(t, diags[0].Message, `"github.com/acme/x"`)
	assert.Equal(t, 5, diags[0].Line)
	assert.Contains(t, diags[1].Message, `"./local"`)
	assert.Contains(t, diags[2].Message, "tool packages")
}

func TestDiagnosticString(t *testing.T) {
	assert.Equal(t, "template.cue:2:3: a.b: boom",
		Diagnostic{Message: "boom", File: "template.cue", Line: 2, Column: 3, Path: "a.b"}.String())
	assert.Equal(t, "template.cue: boom", Diagnostic{Message: "boom", File: "template.cue"}.String())
	assert.Equal(t, "boom", Diagnostic{Message: "boom"}.String())
}

package importer

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/tvt"
)

func TestDecodeYAMLDocument(t *testing.T) {
	text := `
customer:
  name: ACME
  since: 2019-04-01
lines:
  - {name: Widget, qty: 2, price: 9.5}
  - {name: Gadget, qty: 1, price: 20.0}
paid: false
note: ~
code: "007"
`
	got, err := DecodeYAML(text, YAMLOptions{})
	require.NoError(t, err)

	want := tvt.NewMap(
		tvt.P("customer", tvt.NewMap(tvt.P("name", tvt.Str("ACME")), tvt.P("since", tvt.Str("2019-04-01")))),
		tvt.P("lines", tvt.Seq{
			tvt.NewMap(tvt.P("name", tvt.Str("Widget")), tvt.P("qty", tvt.Int(2)), tvt.P("price", tvt.Float(9.5))),
			tvt.NewMap(tvt.P("name", tvt.Str("Gadget")), tvt.P("qty", tvt.Int(1)), tvt.P("price", tvt.Float(20))),
		}),
		tvt.P("paid", tvt.Bool(false)),
		tvt.P("note", tvt.Null{}),
		tvt.P("code", tvt.Str("007")),
	)
	assert.True(t, tvt.Equal(want, got), tvt.String(got))
}

func TestDecodeYAMLAliasesAndMerge(t *testing.T) {
	text := `
base: &base
  currency: EUR
  rate: 1
invoice:
  <<: *base
  rate: 2
  id: INV-1
copy: *base
`
	got, err := DecodeYAML(text, YAMLOptions{})
	require.NoError(t, err)

	m := got.(*tvt.Map)
	invoice, _ := m.Get("invoice")
	want := tvt.NewMap(tvt.P("currency", tvt.Str("EUR")), tvt.P("rate", tvt.Int(2)), tvt.P("id", tvt.Str("INV-1")))
	assert.True(t, tvt.Equal(want, invoice), tvt.String(invoice))

	base, _ := m.Get("base")
	cp, _ := m.Get("copy")
	assert.True(t, tvt.Equal(base, cp))
}

// fanOutYAML builds levels of ten-way aliases: each anchor is a list
// holding ten aliases of the one before it.
func fanOutYAML(levels int) string {
	var b strings.Builder
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i < levels; i++ {
		prev := "*l" + strconv.Itoa(i-1)
		refs := strings.TrimSuffix(strings.Repeat(prev+", ", 10), ", ")
		fmt.Fprintf(&b, "l%d: &l%d [%s]\n", i, i, refs)
	}
	return b.String()
}

func TestDecodeYAMLAliasExpansionBound(t *testing.T) {
	tests := []struct {
		name    string
		levels  int
		wantErr bool
	}{
		{"small fan-out", 3, false},
		{"exponential fan-out", 9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeYAML(fanOutYAML(tt.levels), YAMLOptions{})
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.levels, got.(*tvt.Map).Len())
				return
			}
			require.Error(t, err)
			assert.True(t, fault.IsMalformedInput(err), "got %v", err)
			assert.Contains(t, err.Error(), "alias expansion")
		})
	}
}

func TestDecodeYAMLScalarRoot(t *testing.T) {
	got, err := DecodeYAML("42\n", YAMLOptions{})
	require.NoError(t, err)
	assert.Equal(t, tvt.Int(42), got)
}

func TestDecodeYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind fault.Kind
	}{
		{"empty", "", fault.KindMalformedInput},
		{"syntax", "a: [1, 2\n", fault.KindMalformedInput},
		{"two documents", "a: 1\n---\nb: 2\n", fault.KindMalformedInput},
		{"complex key", "? [1, 2]\n: x\n", fault.KindMalformedInput},
		{"infinity", "x: .inf\n", fault.KindUnrepresentable},
		{"huge int", "x: 18446744073709551615\n", fault.KindUnrepresentable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeYAML(tt.in, YAMLOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.kind, fault.KindOf(err), "got %v", err)
		})
	}
}

func TestDecodeYAMLDepthBound(t *testing.T) {
	deep := strings.Repeat("[", 6) + strings.Repeat("]", 6)

	_, err := DecodeYAML(deep, YAMLOptions{MaxDepth: 6})
	require.NoError(t, err)

	_, err = DecodeYAML(deep, YAMLOptions{MaxDepth: 5})
	require.Error(t, err)
	assert.True(t, fault.IsDepthExceeded(err))
}

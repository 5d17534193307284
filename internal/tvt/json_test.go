package tvt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docforge/internal/fault"
)

func TestEncodeJSONCompact(t *testing.T) {
	v := NewMap(
		P("b", Int(1)),
		P("a", Seq{Float(2), Str("<x>"), Null{}, Bool(false)}),
		P("empty", NewMap()),
		P("none", Seq{}),
	)

	got, err := EncodeJSON(v, "")
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":[2.0,"<x>",null,false],"empty":{},"none":[]}`, string(got))
}

func TestEncodeJSONIndented(t *testing.T) {
	v := NewMap(
		P("name", Str("Widget")),
		P("rates", Seq{Int(10), Float(2.5)}),
	)

	got, err := EncodeJSON(v, "  ")
	require.NoError(t, err)

	want := `{
  "name": "Widget",
  "rates": [
    10,
    2.5
  ]
}`
	assert.Equal(t, want, string(got))
}

func TestEncodeJSONRejectsNonFinite(t *testing.T) {
	_, err := EncodeJSON(Seq{Float(math.NaN())}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrUnrepresentable)
}

func TestDigestStableAndOrderSensitive(t *testing.T) {
	ab := NewMap(P("a", Int(1)), P("b", Int(2)))
	ba := NewMap(P("b", Int(2)), P("a", Int(1)))

	d1, err := Digest(ab)
	require.NoError(t, err)
	d2, err := Digest(NewMap(P("a", Int(1)), P("b", Int(2))))
	require.NoError(t, err)
	d3, err := Digest(ba)
	require.NoError(t, err)

	assert.Len(t, d1, 64)
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t, HashWithDomain(DomainValue, data), HashWithDomain(DomainSession, data))
}

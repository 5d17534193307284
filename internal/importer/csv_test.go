package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/tvt"
)

func TestDecodeCSVHeaderPolicy(t *testing.T) {
	got, err := DecodeCSV("name,rate\nWidget,10\n", CSVOptions{UseHeaders: true})
	require.NoError(t, err)

	want := tvt.Seq{
		tvt.NewMap(tvt.P("name", tvt.Str("Widget")), tvt.P("rate", tvt.Str("10"))),
	}
	assert.True(t, tvt.Equal(want, got), tvt.String(got))
}

func TestDecodeCSVPositionalPolicy(t *testing.T) {
	got, err := DecodeCSV("name,rate\nWidget,10\n", CSVOptions{})
	require.NoError(t, err)

	want := tvt.Seq{
		tvt.Seq{tvt.Str("name"), tvt.Str("rate")},
		tvt.Seq{tvt.Str("Widget"), tvt.Str("10")},
	}
	assert.True(t, tvt.Equal(want, got), tvt.String(got))
}

func TestDecodeCSVRowLengthMismatch(t *testing.T) {
	text := "a,b,c\n1\n1,2,3,4\n"

	t.Run("pad", func(t *testing.T) {
		got, err := DecodeCSV(text, CSVOptions{UseHeaders: true})
		require.NoError(t, err)

		want := tvt.Seq{
			tvt.NewMap(tvt.P("a", tvt.Str("1")), tvt.P("b", tvt.Str("")), tvt.P("c", tvt.Str(""))),
			tvt.NewMap(tvt.P("a", tvt.Str("1")), tvt.P("b", tvt.Str("2")), tvt.P("c", tvt.Str("3"))),
		}
		assert.True(t, tvt.Equal(want, got), tvt.String(got))
	})

	t.Run("omit", func(t *testing.T) {
		got, err := DecodeCSV(text, CSVOptions{UseHeaders: true, ShortRows: ShortRowsOmit})
		require.NoError(t, err)

		want := tvt.Seq{
			tvt.NewMap(tvt.P("a", tvt.Str("1"))),
			tvt.NewMap(tvt.P("a", tvt.Str("1")), tvt.P("b", tvt.Str("2")), tvt.P("c", tvt.Str("3"))),
		}
		assert.True(t, tvt.Equal(want, got), tvt.String(got))
	})

	t.Run("positional keeps ragged rows", func(t *testing.T) {
		got, err := DecodeCSV(text, CSVOptions{})
		require.NoError(t, err)
		rows := got.(tvt.Seq)
		require.Len(t, rows, 3)
		assert.Len(t, rows[1], 1)
		assert.Len(t, rows[2], 4)
	})
}

func TestDecodeCSVNeverCoerces(t *testing.T) {
	got, err := DecodeCSV("1,2.5,true,,null\n", CSVOptions{})
	require.NoError(t, err)

	row := got.(tvt.Seq)[0].(tvt.Seq)
	for _, field := range row {
		assert.Equal(t, tvt.KindStr, field.Kind())
	}
}

func TestDecodeCSVDelimiterAndQuoting(t *testing.T) {
	got, err := DecodeCSV("item;note\nWidget;\"semi; colon\"\n", CSVOptions{Delimiter: ';', UseHeaders: true})
	require.NoError(t, err)

	want := tvt.Seq{
		tvt.NewMap(tvt.P("item", tvt.Str("Widget")), tvt.P("note", tvt.Str("semi; colon"))),
	}
	assert.True(t, tvt.Equal(want, got), tvt.String(got))
}

func TestDecodeCSVEmptyInput(t *testing.T) {
	for _, headers := range []bool{false, true} {
		got, err := DecodeCSV("", CSVOptions{UseHeaders: headers})
		require.NoError(t, err)
		assert.Equal(t, tvt.Seq{}, got)
	}

	got, err := DecodeCSV("a,b\n", CSVOptions{UseHeaders: true})
	require.NoError(t, err)
	assert.Equal(t, tvt.Seq{}, got)
}

func TestDecodeCSVUnterminatedQuote(t *testing.T) {
	_, err := DecodeCSV("a,b\n1,\"open\n", CSVOptions{})
	require.Error(t, err)

	var fe *fault.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fault.KindMalformedInput, fe.Kind)
	assert.Equal(t, 2, fe.Line)
}

func TestDecodeCSVBareQuote(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"inside field", "name,qty\na\"b,c\n"},
		{"after quoted field", "\"a\"b,c\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCSV(tt.in, CSVOptions{})
			require.Error(t, err)
			assert.True(t, fault.IsMalformedInput(err), "got %v", err)
		})
	}
}

func TestDecodeCSVInvalidUTF8(t *testing.T) {
	_, err := DecodeCSV("a,b\nok,\xff\xfe\x00x\n", CSVOptions{Encoding: ""})
	require.Error(t, err)

	var fe *fault.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fault.KindMalformedInput, fe.Kind)
	assert.Equal(t, 2, fe.Line)
	assert.Equal(t, 4, fe.Column)
}

func TestDecodeCSVEncodings(t *testing.T) {
	t.Run("windows-1252", func(t *testing.T) {
		got, err := DecodeCSV("caf\xe9,na\xefve\n", CSVOptions{Encoding: "windows-1252"})
		require.NoError(t, err)
		want := tvt.Seq{tvt.Seq{tvt.Str("café"), tvt.Str("naïve")}}
		assert.True(t, tvt.Equal(want, got), tvt.String(got))
	})

	t.Run("utf-8 bom stripped", func(t *testing.T) {
		got, err := DecodeCSV("\xef\xbb\xbfname\nWidget\n", CSVOptions{UseHeaders: true})
		require.NoError(t, err)
		want := tvt.Seq{tvt.NewMap(tvt.P("name", tvt.Str("Widget")))}
		assert.True(t, tvt.Equal(want, got), tvt.String(got))
	})

	t.Run("utf-16 bom wins over label", func(t *testing.T) {
		// "a,b\n" in UTF-16LE with BOM.
		text := "\xff\xfea\x00,\x00b\x00\n\x00"
		got, err := DecodeCSV(text, CSVOptions{Encoding: "windows-1252"})
		require.NoError(t, err)
		want := tvt.Seq{tvt.Seq{tvt.Str("a"), tvt.Str("b")}}
		assert.True(t, tvt.Equal(want, got), tvt.String(got))
	})

	t.Run("unknown label", func(t *testing.T) {
		_, err := DecodeCSV("a\n", CSVOptions{Encoding: "klingon"})
		assert.True(t, fault.IsMalformedInput(err))
	})
}

func TestParseShortRowPolicy(t *testing.T) {
	p, err := ParseShortRowPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ShortRowsPad, p)

	p, err = ParseShortRowPolicy("OMIT")
	require.NoError(t, err)
	assert.Equal(t, ShortRowsOmit, p)

	_, err = ParseShortRowPolicy("error")
	assert.Error(t, err)
}

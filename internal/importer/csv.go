package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/tvt"
)

// ShortRowPolicy decides what happens to header keys that a short data row
// does not reach.
type ShortRowPolicy string

const (
	// ShortRowsPad fills missing trailing fields with "".
	ShortRowsPad ShortRowPolicy = "pad"
	// ShortRowsOmit leaves missing trailing keys out of the row mapping.
	ShortRowsOmit ShortRowPolicy = "omit"
)

// ParseShortRowPolicy accepts "pad", "omit" or "" (pad).
func ParseShortRowPolicy(s string) (ShortRowPolicy, error) {
	switch ShortRowPolicy(strings.ToLower(s)) {
	case "", ShortRowsPad:
		return ShortRowsPad, nil
	case ShortRowsOmit:
		return ShortRowsOmit, nil
	}
	return "", fmt.Errorf("unknown short-row policy %q (want pad or omit)", s)
}

// CSVOptions configures DecodeCSV. The zero value reads comma-separated
// UTF-8 positionally.
type CSVOptions struct {
	// Delimiter separates fields; 0 selects ','.
	Delimiter rune
	// UseHeaders consumes the first row as mapping keys.
	UseHeaders bool
	// ShortRows applies when UseHeaders is set; "" selects ShortRowsPad.
	ShortRows ShortRowPolicy
	// Encoding is a WHATWG encoding label such as "windows-1252";
	// "" means UTF-8. A leading UTF-8 or UTF-16 byte order mark always
	// wins and is stripped.
	Encoding string
}

// DecodeCSV decodes delimited text into a tagged value.
//
// Without headers the result is a Seq of Seq(Str), one per row. With
// headers the first row names the fields and every following row becomes
// a *tvt.Map keyed by header position; extra fields are dropped and
// missing ones follow opts.ShortRows. Fields are never coerced: every leaf
// is a Str. Row length mismatches never fail; quoting errors and invalid
// UTF-8 fail with MALFORMED_INPUT carrying line and column.
func DecodeCSV(text string, opts CSVOptions) (tvt.Value, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	policy := opts.ShortRows
	if policy == "" {
		policy = ShortRowsPad
	}
	if policy != ShortRowsPad && policy != ShortRowsOmit {
		return nil, fault.New(fault.KindMalformedInput, "unknown short-row policy %q", policy)
	}

	src, err := transcode(text, opts.Encoding)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(src))
	r.Comma = delim
	r.FieldsPerRecord = -1
	// Quoting is strict: a quote inside an unquoted field is malformed.
	r.LazyQuotes = false

	rows := tvt.Seq{}
	var header []string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformedCSV(err)
		}
		if err := checkRecordUTF8(r, record); err != nil {
			return nil, err
		}

		if !opts.UseHeaders {
			row := make(tvt.Seq, len(record))
			for i, field := range record {
				row[i] = tvt.Str(field)
			}
			rows = append(rows, row)
			continue
		}

		if header == nil {
			header = record
			continue
		}
		rows = append(rows, headerRow(header, record, policy))
	}
	return rows, nil
}

func headerRow(header, record []string, policy ShortRowPolicy) *tvt.Map {
	m := tvt.NewMap()
	for i, key := range header {
		switch {
		case i < len(record):
			m.Set(key, tvt.Str(record[i]))
		case policy == ShortRowsPad:
			m.Set(key, tvt.Str(""))
		}
	}
	return m
}

// transcode decodes text from the labelled encoding into UTF-8. A byte
// order mark overrides the label.
func transcode(text, label string) (string, error) {
	fallback := transform.Transformer(transform.Nop)
	if label != "" {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return "", fault.Wrap(fault.KindMalformedInput, err, "unknown encoding %q", label)
		}
		fallback = enc.NewDecoder()
	}
	out, _, err := transform.String(unicode.BOMOverride(fallback), text)
	if err != nil {
		return "", fault.Wrap(fault.KindMalformedInput, err, "transcoding %q input", label)
	}
	return out, nil
}

func malformedCSV(err error) error {
	fe := fault.Wrap(fault.KindMalformedInput, err, "invalid delimited text")
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		fe.Message = pe.Err.Error()
		fe.Line, fe.Column = pe.Line, pe.Column
	}
	return fe
}

func checkRecordUTF8(r *csv.Reader, record []string) error {
	for i, field := range record {
		if utf8.ValidString(field) {
			continue
		}
		line, col := r.FieldPos(i)
		fe := fault.New(fault.KindMalformedInput, "field %d is not valid UTF-8", i+1)
		fe.Line, fe.Column = line, col
		return fe
	}
	return nil
}

package tvt

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/roach88/docforge/internal/fault"
)

// EncodeJSON renders v as JSON, preserving mapping order and numeric kind
// (floats always carry a decimal point or exponent). With a non-empty indent
// the layout matches encoding/json.MarshalIndent with an empty prefix.
// HTML characters are not escaped.
func EncodeJSON(v Value, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, v, indent, 0, "$"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJSON(buf *bytes.Buffer, v Value, indent string, level int, path string) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		if !IsFinite(float64(val)) {
			return fault.At(fault.KindUnrepresentable, path, "non-finite float %s", FormatFloat(float64(val)))
		}
		buf.WriteString(FormatFloat(float64(val)))
	case Str:
		return writeJSONString(buf, string(val))
	case Seq:
		if len(val) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, level+1)
			if err := encodeJSON(buf, e, indent, level+1, fault.IndexPath(path, i)); err != nil {
				return err
			}
		}
		newline(buf, indent, level)
		buf.WriteByte(']')
	case *Map:
		if val.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		i := 0
		for k, e := range val.All() {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			newline(buf, indent, level+1)
			if err := writeJSONString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			if err := encodeJSON(buf, e, indent, level+1, fault.JoinPath(path, k)); err != nil {
				return err
			}
		}
		newline(buf, indent, level)
		buf.WriteByte('}')
	default:
		return fault.At(fault.KindUnsupportedHostType, path, "unknown value type %T", v)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.MarshalNoEscape(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func newline(buf *bytes.Buffer, indent string, level int) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	for range level {
		buf.WriteString(indent)
	}
}

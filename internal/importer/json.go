package importer

import (
	stdjson "encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/tvt"
)

// JSONOptions configures DecodeJSON.
type JSONOptions struct {
	// MaxDepth bounds container nesting; <= 0 selects tvt.DefaultMaxDepth.
	MaxDepth int
}

// frame is one open container on the decode stack.
type frame struct {
	seq    tvt.Seq
	m      *tvt.Map
	key    string
	hasKey bool
}

func (f *frame) isObject() bool { return f.m != nil }

func (f *frame) value() tvt.Value {
	if f.isObject() {
		return f.m
	}
	return f.seq
}

// DecodeJSON decodes standard JSON text into a tagged value.
//
// Objects become *tvt.Map in document order (a repeated key keeps its first
// position and takes the last value), arrays become tvt.Seq, integral
// numbers within int64 become tvt.Int and every other number tvt.Float.
// Decoding walks the token stream with an explicit stack, so deeply nested
// input fails with DEPTH_EXCEEDED instead of exhausting the call stack.
// Any syntax error, trailing data or empty input fails with MALFORMED_INPUT
// located at the decoder's byte offset. A leading zero, a truncated literal
// or a missing or doubled separator is a syntax error.
func DecodeJSON(text string, opts JSONOptions) (tvt.Value, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = tvt.DefaultMaxDepth
	}

	if err := checkGrammar(text); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var (
		stack []*frame
		root  tvt.Value
		done  bool
	)

	// emit attaches a completed value to the innermost open container, or
	// records it as the document root.
	emit := func(v tvt.Value) {
		if len(stack) == 0 {
			root = v
			done = true
			return
		}
		top := stack[len(stack)-1]
		if top.isObject() {
			top.m.Set(top.key, v)
			top.hasKey = false
			return
		}
		top.seq = append(top.seq, v)
	}

	for !done {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(stack) == 0 {
					return nil, malformedJSON(text, nil, int64(len(text)), "empty JSON input")
				}
				return nil, malformedJSON(text, nil, int64(len(text)), "unexpected end of JSON input")
			}
			return nil, malformedJSON(text, err, -1, "invalid JSON")
		}

		var top *frame
		if len(stack) > 0 {
			top = stack[len(stack)-1]
		}

		if top != nil && top.isObject() && !top.hasKey {
			switch t := tok.(type) {
			case string:
				top.key = t
				top.hasKey = true
				continue
			case json.Delim:
				if t == '}' {
					stack = stack[:len(stack)-1]
					emit(top.value())
					continue
				}
			}
			return nil, malformedJSON(text, nil, -1, "object key must be a string")
		}

		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				if len(stack)+1 > maxDepth {
					return nil, &fault.Error{
						Kind:    fault.KindDepthExceeded,
						Message: "JSON nesting exceeds the depth bound",
						Offset:  -1,
					}
				}
				f := &frame{}
				if t == '{' {
					f.m = tvt.NewMap()
				} else {
					f.seq = tvt.Seq{}
				}
				stack = append(stack, f)
			case ']':
				if top == nil || top.isObject() {
					return nil, malformedJSON(text, nil, -1, "unexpected ]")
				}
				stack = stack[:len(stack)-1]
				emit(top.value())
			default:
				return nil, malformedJSON(text, nil, -1, "unexpected "+t.String())
			}
		case nil:
			emit(tvt.Null{})
		case bool:
			emit(tvt.Bool(t))
		case string:
			emit(tvt.Str(t))
		case json.Number:
			v, err := tvt.FromGo(t, maxDepth)
			if err != nil {
				return nil, err
			}
			emit(v)
		case float64:
			emit(tvt.Float(t))
		default:
			return nil, malformedJSON(text, nil, -1, "unexpected token")
		}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformedJSON(text, err, -1, "trailing data after JSON value")
	}
	return root, nil
}

// checkGrammar scans text with the standard library's scanner before the
// token walk, which does not check separators between values and accepts
// leading zeros and truncated literals such as tru. Nesting past the
// scanner's own limit is left to the walk's depth bound.
func checkGrammar(text string) error {
	dec := stdjson.NewDecoder(strings.NewReader(text))
	var raw stdjson.RawMessage
	if err := dec.Decode(&raw); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return malformedJSON(text, nil, int64(len(text)), "empty JSON input")
		case errors.Is(err, io.ErrUnexpectedEOF):
			return malformedJSON(text, nil, int64(len(text)), "unexpected end of JSON input")
		case strings.Contains(err.Error(), "exceeded max depth"):
			return nil
		}
		return malformedJSON(text, err, -1, "invalid JSON")
	}
	end := dec.InputOffset()
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return malformedJSON(text, err, end, "trailing data after JSON value")
	}
	return nil
}

// malformedJSON builds a MALFORMED_INPUT error. The offset comes from the
// decoder's syntax error when available.
func malformedJSON(text string, cause error, offset int64, msg string) error {
	var (
		syn    *json.SyntaxError
		stdSyn *stdjson.SyntaxError
	)
	switch {
	case errors.As(cause, &syn):
		offset = syn.Offset
	case errors.As(cause, &stdSyn):
		offset = stdSyn.Offset
	}
	fe := &fault.Error{Kind: fault.KindMalformedInput, Message: msg, Offset: offset, Err: cause}
	if offset >= 0 {
		fe.Line, fe.Column = lineColumn(text, offset)
	}
	return fe
}

// lineColumn converts a byte offset into a 1-based line and column.
func lineColumn(text string, offset int64) (int, int) {
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	prefix := text[:offset]
	line := strings.Count(prefix, "\n") + 1
	col := int(offset) - strings.LastIndexByte(prefix, '\n')
	return line, col
}

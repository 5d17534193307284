package compiler

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/format"
	"gopkg.in/yaml.v3"

	"github.com/roach88/docforge/internal/bridge"
	"github.com/roach88/docforge/internal/tvt"
)

// Format selects how an evaluated document becomes bytes.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
	FormatText Format = "text"
)

// ParseFormat validates a format name. The empty string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatCUE, FormatText:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, yaml, cue or text)", s)
}

// RenderOptions controls the final step of a compilation.
type RenderOptions struct {
	Format Format
	// Expression selects a sub-value of the document, e.g. "invoice.lines".
	// Empty renders the whole document.
	Expression string
}

func render(v cue.Value, f Format, maxDepth int) ([]byte, error) {
	switch f {
	case FormatJSON, "":
		tv, err := bridge.Reflect(v, maxDepth)
		if err != nil {
			return nil, err
		}
		data, err := tvt.EncodeJSON(tv, "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		tv, err := bridge.Reflect(v, maxDepth)
		if err != nil {
			return nil, err
		}
		return renderYAML(tv)
	case FormatCUE:
		return renderCUE(v)
	case FormatText:
		return renderText(v)
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}

func renderYAML(v tvt.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yamlNode(v)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yamlNode(v tvt.Value) *yaml.Node {
	switch val := v.(type) {
	case tvt.Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case tvt.Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(val))}
	case tvt.Int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(val), 10)}
	case tvt.Float:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: tvt.FormatFloat(float64(val))}
	case tvt.Str:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(val)}
	case tvt.Seq:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range val {
			n.Content = append(n.Content, yamlNode(e))
		}
		return n
	case *tvt.Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for k, e := range val.All() {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				yamlNode(e),
			)
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func renderCUE(v cue.Value) ([]byte, error) {
	var node ast.Node = v.Syntax(cue.Final(), cue.Concrete(true))
	if s, ok := node.(*ast.StructLit); ok {
		node = &ast.File{Decls: s.Elts}
	}
	out, err := format.Node(node, format.Simplify())
	if err != nil {
		return nil, err
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

func renderText(v cue.Value) ([]byte, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case cue.BytesKind:
		return v.Bytes()
	default:
		return nil, fmt.Errorf("text output needs a string or bytes value, got %s", v.Kind())
	}
}

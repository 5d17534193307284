package importer

import (
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/tvt"
)

// YAMLOptions configures DecodeYAML.
type YAMLOptions struct {
	// MaxDepth bounds container nesting; <= 0 selects tvt.DefaultMaxDepth.
	MaxDepth int
}

// DecodeYAML decodes a single YAML document into a tagged value.
//
// Mappings keep document order and accept merge keys (<<); explicit keys
// win over merged ones. Scalars follow YAML 1.2 core tag resolution:
// !!int becomes Int, !!float Float, !!bool Bool, !!null Null, and every
// other scalar (strings, timestamps, binary) keeps its source text as Str.
// Aliases are expanded and count towards the depth bound. Expansion stops
// with MALFORMED_INPUT once the document has produced more nodes than a
// fixed multiple of its size in bytes.
func DecodeYAML(text string, opts YAMLOptions) (tvt.Value, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = tvt.DefaultMaxDepth
	}

	dec := yaml.NewDecoder(strings.NewReader(text))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fault.New(fault.KindMalformedInput, "empty YAML input")
		}
		return nil, malformedYAML(err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, malformedYAML(err)
		}
		fe := fault.New(fault.KindMalformedInput, "YAML input holds more than one document")
		fe.Line, fe.Column = extra.Line, extra.Column
		return nil, fe
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return tvt.Null{}, nil
		}
		root = root.Content[0]
	}
	d := &yamlDecoder{maxDepth: maxDepth, budget: yamlNodeBudget(len(text))}
	return d.value(root, "$", 0)
}

const (
	yamlNodesPerByte = 100
	yamlMinNodes     = 10000
)

// yamlNodeBudget bounds how many nodes one document may expand to. Aliases
// let a short input name the same subtree many times over.
func yamlNodeBudget(size int) int {
	return max(yamlMinNodes, size*yamlNodesPerByte)
}

// yamlDecoder converts a node tree, counting every node it visits,
// including each pass through an alias.
type yamlDecoder struct {
	maxDepth int
	budget   int
	visited  int
}

func (d *yamlDecoder) value(n *yaml.Node, path string, depth int) (tvt.Value, error) {
	d.visited++
	if d.visited > d.budget {
		return nil, yamlAt(n, path, "alias expansion exceeds %d nodes", d.budget)
	}
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, yamlAt(n, path, "unresolved alias *%s", n.Value)
		}
		return d.value(n.Alias, path, depth)
	case yaml.ScalarNode:
		return yamlScalar(n, path)
	case yaml.SequenceNode:
		if depth+1 > d.maxDepth {
			return nil, yamlDepth(n, path, d.maxDepth)
		}
		seq := make(tvt.Seq, 0, len(n.Content))
		for i, c := range n.Content {
			v, err := d.value(c, fault.IndexPath(path, i), depth+1)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		if depth+1 > d.maxDepth {
			return nil, yamlDepth(n, path, d.maxDepth)
		}
		m := tvt.NewMap()
		if err := d.mapping(n, m, path, depth); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, yamlAt(n, path, "unexpected YAML node")
	}
}

func (d *yamlDecoder) mapping(n *yaml.Node, m *tvt.Map, path string, depth int) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge" {
			if err := d.merge(v, m, path, depth); err != nil {
				return err
			}
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return yamlAt(k, path, "mapping keys must be scalars")
		}
		val, err := d.value(v, fault.JoinPath(path, k.Value), depth+1)
		if err != nil {
			return err
		}
		m.Set(k.Value, val)
	}
	return nil
}

// merge adds the keys of the merged mapping (or sequence of mappings)
// that m does not already hold.
func (d *yamlDecoder) merge(v *yaml.Node, m *tvt.Map, path string, depth int) error {
	for v.Kind == yaml.AliasNode && v.Alias != nil {
		v = v.Alias
	}
	var sources []*yaml.Node
	switch v.Kind {
	case yaml.MappingNode:
		sources = []*yaml.Node{v}
	case yaml.SequenceNode:
		sources = v.Content
	default:
		return yamlAt(v, path, "merge value must be a mapping or a sequence of mappings")
	}
	for _, src := range sources {
		for src.Kind == yaml.AliasNode && src.Alias != nil {
			src = src.Alias
		}
		if src.Kind != yaml.MappingNode {
			return yamlAt(src, path, "merge value must be a mapping or a sequence of mappings")
		}
		merged := tvt.NewMap()
		if err := d.mapping(src, merged, path, depth); err != nil {
			return err
		}
		for key, val := range merged.All() {
			if _, ok := m.Get(key); !ok {
				m.Set(key, val)
			}
		}
	}
	return nil
}

func yamlScalar(n *yaml.Node, path string) (tvt.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return tvt.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, yamlWrap(n, path, err)
		}
		return tvt.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			fe := yamlWrap(n, path, err)
			fe.Kind = fault.KindUnrepresentable
			fe.Message = "integer " + n.Value + " does not fit in int64"
			return nil, fe
		}
		return tvt.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, yamlWrap(n, path, err)
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			fe := yamlAt(n, path, "non-finite float %s", n.Value)
			fe.Kind = fault.KindUnrepresentable
			return nil, fe
		}
		return tvt.Float(f), nil
	default:
		return tvt.Str(n.Value), nil
	}
}

func yamlAt(n *yaml.Node, path, format string, args ...any) *fault.Error {
	fe := fault.At(fault.KindMalformedInput, path, format, args...)
	fe.Line, fe.Column = n.Line, n.Column
	return fe
}

func yamlWrap(n *yaml.Node, path string, err error) *fault.Error {
	fe := fault.Wrap(fault.KindMalformedInput, err, "invalid %s scalar %q", strings.TrimPrefix(n.ShortTag(), "!!"), n.Value)
	fe.Path = path
	fe.Line, fe.Column = n.Line, n.Column
	return fe
}

func yamlDepth(n *yaml.Node, path string, maxDepth int) *fault.Error {
	fe := fault.At(fault.KindDepthExceeded, path, "nesting exceeds %d levels", maxDepth)
	fe.Line, fe.Column = n.Line, n.Column
	return fe
}

var yamlLineRE = regexp.MustCompile(`^yaml: line (\d+):`)

func malformedYAML(err error) error {
	fe := fault.Wrap(fault.KindMalformedInput, err, "invalid YAML")
	if m := yamlLineRE.FindStringSubmatch(err.Error()); m != nil {
		fe.Line, _ = strconv.Atoi(m[1])
	}
	return fe
}

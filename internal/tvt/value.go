package tvt

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
)

// DefaultMaxDepth bounds container nesting when no explicit limit is configured.
const DefaultMaxDepth = 128

// Kind identifies the variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindSequence
	KindMapping
)

var kindNames = [...]string{"null", "bool", "int", "float", "string", "sequence", "mapping"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a sealed interface over the tagged variants.
// Only Null, Bool, Int, Float, Str, Seq and *Map implement it.
type Value interface {
	Kind() Kind
	tvtValue()
}

// Null is the absent value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) tvtValue()  {}

// Bool is a boolean.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) tvtValue()  {}

// Int is a 64-bit integer. It never converts to Float implicitly.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) tvtValue()  {}

// Float is a 64-bit float. It never converts to Int implicitly.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) tvtValue()  {}

// Str is UTF-8 text.
type Str string

func (Str) Kind() Kind { return KindStr }
func (Str) tvtValue()  {}

// Seq is an ordered list of values.
type Seq []Value

func (Seq) Kind() Kind { return KindSequence }
func (Seq) tvtValue()  {}

// NewSeq creates a Seq from values.
func NewSeq(vals ...Value) Seq {
	if vals == nil {
		return Seq{}
	}
	return Seq(vals)
}

// Pair is a key/value entry used to construct a Map.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewMap(P("name", Str("Widget")), P("rate", Str("10")))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// Map is an insertion-ordered mapping with unique text keys.
// The zero value is an empty map ready to use.
type Map struct {
	keys []string
	vals map[string]Value
}

func (*Map) Kind() Kind { return KindMapping }
func (*Map) tvtValue()  {}

// NewMap creates a Map from pairs in order. A repeated key keeps its first
// position and takes the last value.
func NewMap(pairs ...Pair) *Map {
	m := &Map{vals: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Set stores value under key. Last write wins; the key keeps the position
// of its first insertion.
func (m *Map) Set(key string, value Value) {
	if m.vals == nil {
		m.vals = make(map[string]Value)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// All iterates entries in insertion order.
func (m *Map) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// String renders a value for debugging. It is not an interchange format.
func String(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return FormatFloat(float64(val))
	case Str:
		return strconv.Quote(string(val))
	case Seq:
		out := "["
		for i, e := range val {
			if i > 0 {
				out += ", "
			}
			out += String(e)
		}
		return out + "]"
	case *Map:
		out := "{"
		i := 0
		for k, e := range val.All() {
			if i > 0 {
				out += ", "
			}
			out += strconv.Quote(k) + ": " + String(e)
			i++
		}
		return out + "}"
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

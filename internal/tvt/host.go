package tvt

import (
	"encoding"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/roach88/docforge/internal/fault"
)

// FromGo converts an arbitrary Go value into a tagged value tree. It is the
// host front-end used for direct bindings.
//
// Conversion rules:
//   - nil, nil pointers, nil interfaces, nil slices and nil maps become Null
//   - bool → Bool; signed and unsigned integers → Int; float32/float64 → Float
//   - string and []byte → Str; encoding.TextMarshaler → Str of its text
//   - json.Number → Int when integral, Float otherwise
//   - arrays and slices → Seq
//   - maps with string keys → Map sorted by key
//   - maps with integer keys → Seq when the keys are exactly 0..n-1,
//     otherwise Map with keys sorted numerically and rendered in decimal
//   - structs → Map in field order, honoring `json` tags ("-", omitempty)
//   - values that already implement Value pass through after validation
//
// Channels, functions, complex numbers and unsafe pointers fail with
// UNSUPPORTED_HOST_TYPE. A pointer, map or slice that is reached again
// while still being converted fails with REFERENCE_CYCLE. Nesting beyond
// maxDepth (<= 0 selects DefaultMaxDepth) fails with DEPTH_EXCEEDED.
func FromGo(v any, maxDepth int) (Value, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	c := &hostConverter{maxDepth: maxDepth, visiting: make(map[visitKey]struct{})}
	return c.convert(reflect.ValueOf(v), "$", 0)
}

var (
	valueType         = reflect.TypeFor[Value]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	numberType        = reflect.TypeFor[json.Number]()
)

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type hostConverter struct {
	maxDepth int
	visiting map[visitKey]struct{}
}

func (c *hostConverter) convert(rv reflect.Value, path string, depth int) (Value, error) {
	if !rv.IsValid() {
		return Null{}, nil
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Null{}, nil
		}
		return c.convert(rv.Elem(), path, depth)
	}

	if rv.Type().Implements(valueType) && rv.CanInterface() {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Null{}, nil
		}
		val := rv.Interface().(Value)
		if err := validate(val, path, depth, c.maxDepth); err != nil {
			return nil, err
		}
		return val, nil
	}

	if rv.Type() == numberType {
		return numberValue(json.Number(rv.String()), path)
	}

	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Null{}, nil
		}
		if rv.Type().Implements(textMarshalerType) && rv.CanInterface() {
			return c.text(rv, path)
		}
		leave, err := c.enter(rv, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		return c.convert(rv.Elem(), path, depth)
	}

	if rv.Type().Implements(textMarshalerType) && rv.CanInterface() {
		return c.text(rv, path)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fault.At(fault.KindUnsupportedHostType, path, "unsigned integer %d overflows int64", u)
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if !IsFinite(f) {
			return nil, fault.At(fault.KindUnrepresentable, path, "non-finite float %s", FormatFloat(f))
		}
		return Float(f), nil
	case reflect.String:
		return Str(rv.String()), nil
	case reflect.Slice:
		if rv.IsNil() {
			return Null{}, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Str(rv.Bytes()), nil
		}
		leave, err := c.enter(rv, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		return c.sequence(rv, path, depth)
	case reflect.Array:
		return c.sequence(rv, path, depth)
	case reflect.Map:
		if rv.IsNil() {
			return Null{}, nil
		}
		leave, err := c.enter(rv, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		return c.mapping(rv, path, depth)
	case reflect.Struct:
		if depth+1 > c.maxDepth {
			return nil, fault.At(fault.KindDepthExceeded, path, "nesting exceeds %d levels", c.maxDepth)
		}
		m := &Map{}
		if err := c.structFields(rv, m, path, depth); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fault.At(fault.KindUnsupportedHostType, path, "%s values have no tagged-value form", rv.Type())
	}
}

// enter marks a reference-typed value as being converted and reports a
// cycle if it is already on the current path.
func (c *hostConverter) enter(rv reflect.Value, path string) (func(), error) {
	ptr := rv.Pointer()
	if ptr == 0 {
		return func() {}, nil
	}
	key := visitKey{ptr: ptr, typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		key.len = rv.Len()
	}
	if _, ok := c.visiting[key]; ok {
		return nil, fault.At(fault.KindReferenceCycle, path, "%s refers to itself", rv.Type())
	}
	c.visiting[key] = struct{}{}
	return func() { delete(c.visiting, key) }, nil
}

func (c *hostConverter) text(rv reflect.Value, path string) (Value, error) {
	b, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
	if err != nil {
		return nil, &fault.Error{Kind: fault.KindUnsupportedHostType, Message: "MarshalText failed", Path: path, Offset: -1, Err: err}
	}
	return Str(b), nil
}

func (c *hostConverter) sequence(rv reflect.Value, path string, depth int) (Value, error) {
	if depth+1 > c.maxDepth {
		return nil, fault.At(fault.KindDepthExceeded, path, "nesting exceeds %d levels", c.maxDepth)
	}
	seq := make(Seq, rv.Len())
	for i := range rv.Len() {
		e, err := c.convert(rv.Index(i), fault.IndexPath(path, i), depth+1)
		if err != nil {
			return nil, err
		}
		seq[i] = e
	}
	return seq, nil
}

type hostEntry struct {
	key   string
	num   int64
	value reflect.Value
}

func (c *hostConverter) mapping(rv reflect.Value, path string, depth int) (Value, error) {
	if depth+1 > c.maxDepth {
		return nil, fault.At(fault.KindDepthExceeded, path, "nesting exceeds %d levels", c.maxDepth)
	}

	keyType := rv.Type().Key()
	entries := make([]hostEntry, 0, rv.Len())
	numeric := isSignedKind(keyType.Kind()) || isUnsignedKind(keyType.Kind())

	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		e := hostEntry{value: iter.Value()}
		switch {
		case keyType.Kind() == reflect.String:
			e.key = k.String()
		case isSignedKind(keyType.Kind()):
			e.num = k.Int()
			e.key = IntKey(e.num)
		case isUnsignedKind(keyType.Kind()):
			u := k.Uint()
			if u > math.MaxInt64 {
				return nil, fault.At(fault.KindUnsupportedHostType, path, "map key %d overflows int64", u)
			}
			e.num = int64(u)
			e.key = UintKey(u)
		case keyType.Implements(textMarshalerType):
			b, err := k.Interface().(encoding.TextMarshaler).MarshalText()
			if err != nil {
				return nil, &fault.Error{Kind: fault.KindUnsupportedHostType, Message: "map key MarshalText failed", Path: path, Offset: -1, Err: err}
			}
			e.key = string(b)
		default:
			return nil, fault.At(fault.KindUnsupportedHostType, path, "map keys of type %s have no text form", keyType)
		}
		entries = append(entries, e)
	}

	if numeric {
		slices.SortFunc(entries, func(a, b hostEntry) int {
			switch {
			case a.num < b.num:
				return -1
			case a.num > b.num:
				return 1
			}
			return 0
		})
		if sequential(entries) {
			seq := make(Seq, len(entries))
			for i, e := range entries {
				v, err := c.convert(e.value, fault.IndexPath(path, i), depth+1)
				if err != nil {
					return nil, err
				}
				seq[i] = v
			}
			return seq, nil
		}
	} else {
		slices.SortFunc(entries, func(a, b hostEntry) int { return strings.Compare(a.key, b.key) })
	}

	m := &Map{}
	for _, e := range entries {
		v, err := c.convert(e.value, fault.JoinPath(path, e.key), depth+1)
		if err != nil {
			return nil, err
		}
		m.Set(e.key, v)
	}
	return m, nil
}

// sequential reports whether sorted numeric keys are exactly 0..n-1.
func sequential(entries []hostEntry) bool {
	for i, e := range entries {
		if e.num != int64(i) {
			return false
		}
	}
	return true
}

func (c *hostConverter) structFields(rv reflect.Value, m *Map, path string, depth int) error {
	t := rv.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() && !f.Anonymous {
			continue
		}
		fv := rv.Field(i)

		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if f.Anonymous && name == "" {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct {
				if err := c.structFields(inner, m, path, depth); err != nil {
					return err
				}
				continue
			}
			if !f.IsExported() {
				continue
			}
		}

		if name == "" {
			name = f.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}

		v, err := c.convert(fv, fault.JoinPath(path, name), depth+1)
		if err != nil {
			return err
		}
		m.Set(name, v)
	}
	return nil
}

func hasOption(opts, want string) bool {
	for opt := range strings.SplitSeq(opts, ",") {
		if opt == want {
			return true
		}
	}
	return false
}

// isEmptyValue follows encoding/json's omitempty rules.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

func isSignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// numberValue keeps the numeric kind of a decoded JSON number: integral
// text within int64 becomes Int, everything else Float.
func numberValue(n json.Number, path string) (Value, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !IsFinite(f) {
		return nil, fault.At(fault.KindUnrepresentable, path, "number %s has no float64 form", s)
	}
	return Float(f), nil
}

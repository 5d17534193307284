package bridge

import (
	"encoding/base64"
	"unicode/utf8"

	"cuelang.org/go/cue"

	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/tvt"
)

// Reflect converts a concrete CUE value back into a tagged value. It is the
// reverse probe of Convert: Reflect(Convert(v)) is Equal to v for every
// valid v within the depth bound.
//
// Bytes that are not valid UTF-8 come back as base64 text, as in CUE's own
// JSON export. Negative zero comes back as 0 with no sign. Integers beyond
// int64 and non-concrete values fail.
func Reflect(v cue.Value, maxDepth int) (tvt.Value, error) {
	if maxDepth <= 0 {
		maxDepth = tvt.DefaultMaxDepth
	}
	return reflectValue(v, "$", 0, maxDepth)
}

func reflectValue(v cue.Value, path string, depth, maxDepth int) (tvt.Value, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	switch v.Kind() {
	case cue.NullKind:
		return tvt.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, wrapAt(err, path, "reading bool")
		}
		return tvt.Bool(b), nil
	case cue.IntKind:
		// Int64 rejects math.MinInt64, so read through big.Int.
		i, err := v.Int(nil)
		if err != nil {
			return nil, wrapAt(err, path, "reading integer")
		}
		if !i.IsInt64() {
			return nil, fault.At(fault.KindUnrepresentable, path, "integer %s does not fit in int64", i)
		}
		return tvt.Int(i.Int64()), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, wrapAt(err, path, "float does not fit in float64")
		}
		return tvt.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, wrapAt(err, path, "reading string")
		}
		return tvt.Str(s), nil
	case cue.BytesKind:
		b, err := v.Bytes()
		if err != nil {
			return nil, wrapAt(err, path, "reading bytes")
		}
		if utf8.Valid(b) {
			return tvt.Str(b), nil
		}
		return tvt.Str(base64.StdEncoding.EncodeToString(b)), nil
	case cue.ListKind:
		if depth+1 > maxDepth {
			return nil, fault.At(fault.KindDepthExceeded, path, "nesting exceeds %d levels", maxDepth)
		}
		iter, err := v.List()
		if err != nil {
			return nil, wrapAt(err, path, "iterating list")
		}
		seq := tvt.Seq{}
		for i := 0; iter.Next(); i++ {
			e, err := reflectValue(iter.Value(), fault.IndexPath(path, i), depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			seq = append(seq, e)
		}
		return seq, nil
	case cue.StructKind:
		if depth+1 > maxDepth {
			return nil, fault.At(fault.KindDepthExceeded, path, "nesting exceeds %d levels", maxDepth)
		}
		iter, err := v.Fields()
		if err != nil {
			return nil, wrapAt(err, path, "iterating fields")
		}
		m := tvt.NewMap()
		for iter.Next() {
			key := iter.Selector().Unquoted()
			e, err := reflectValue(iter.Value(), fault.JoinPath(path, key), depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			m.Set(key, e)
		}
		return m, nil
	default:
		if err := v.Err(); err != nil {
			return nil, wrapAt(err, path, "value has errors")
		}
		return nil, fault.At(fault.KindUnrepresentable, path, "value is not concrete")
	}
}

func wrapAt(err error, path, msg string) error {
	fe := fault.Wrap(fault.KindUnrepresentable, err, "%s", msg)
	fe.Path = path
	return fe
}

package tvt

import "math"

// Equal reports whether a and b are structurally identical: same variants,
// same numeric kinds, same sequence order and same mapping key order.
// Int(3) and Float(3.0) are not equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) {
			return math.IsNaN(float64(bv))
		}
		return av == bv
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case Seq:
		bv, ok := b.(Seq)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		if av.Len() == 0 {
			return true
		}
		for i, k := range av.keys {
			if bv.keys[i] != k {
				return false
			}
			if !Equal(av.vals[k], bv.vals[k]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Package bridge converts Tagged Value Trees into CUE values and back.
//
// Conversion goes through cue/ast: every tagged node becomes a literal
// expression (ordered struct literal, list literal, INT/FLOAT/STRING/null/
// bool literal) which the CUE context then evaluates. Struct literals keep
// field order, so mapping insertion order survives into the compiler.
//
// The bridge never mutates its input and never recurses deeper than its
// configured bound.
package bridge

import (
	"math"
	"strconv"
	"unicode/utf8"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/token"

	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/tvt"
)

// Bridge converts tagged values into values of one CUE context.
type Bridge struct {
	ctx      *cue.Context
	maxDepth int
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithMaxDepth bounds container nesting. Values <= 0 select tvt.DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.maxDepth = n
		}
	}
}

// New creates a Bridge for ctx.
func New(ctx *cue.Context, opts ...Option) *Bridge {
	b := &Bridge{ctx: ctx, maxDepth: tvt.DefaultMaxDepth}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MaxDepth returns the configured nesting bound.
func (b *Bridge) MaxDepth() int {
	return b.maxDepth
}

// Convert turns v into a CUE value.
func (b *Bridge) Convert(v tvt.Value) (cue.Value, error) {
	expr, err := b.Expr(v)
	if err != nil {
		return cue.Value{}, err
	}
	val := b.ctx.BuildExpr(expr)
	if err := val.Err(); err != nil {
		return cue.Value{}, fault.Wrap(fault.KindUnrepresentable, err, "compiler rejected converted value")
	}
	return val, nil
}

// Expr turns v into a CUE literal expression.
func (b *Bridge) Expr(v tvt.Value) (ast.Expr, error) {
	return b.expr(v, "$", 0)
}

func (b *Bridge) expr(v tvt.Value, path string, depth int) (ast.Expr, error) {
	switch val := v.(type) {
	case tvt.Null:
		return ast.NewNull(), nil
	case tvt.Bool:
		return ast.NewBool(bool(val)), nil
	case tvt.Int:
		return intLit(int64(val)), nil
	case tvt.Float:
		f := float64(val)
		if !tvt.IsFinite(f) {
			return nil, fault.At(fault.KindUnrepresentable, path, "non-finite float %s", tvt.FormatFloat(f))
		}
		return floatLit(f), nil
	case tvt.Str:
		if !utf8.ValidString(string(val)) {
			return nil, fault.At(fault.KindInvalidUTF8, path, "string is not valid UTF-8")
		}
		return ast.NewString(string(val)), nil
	case tvt.Seq:
		if depth+1 > b.maxDepth {
			return nil, fault.At(fault.KindDepthExceeded, path, "nesting exceeds %d levels", b.maxDepth)
		}
		elts := make([]ast.Expr, len(val))
		for i, e := range val {
			x, err := b.expr(e, fault.IndexPath(path, i), depth+1)
			if err != nil {
				return nil, err
			}
			elts[i] = x
		}
		return &ast.ListLit{Elts: elts}, nil
	case *tvt.Map:
		if depth+1 > b.maxDepth {
			return nil, fault.At(fault.KindDepthExceeded, path, "nesting exceeds %d levels", b.maxDepth)
		}
		decls := make([]ast.Decl, 0, val.Len())
		for k, e := range val.All() {
			if !utf8.ValidString(k) {
				return nil, fault.At(fault.KindInvalidUTF8, path, "mapping key is not valid UTF-8")
			}
			x, err := b.expr(e, fault.JoinPath(path, k), depth+1)
			if err != nil {
				return nil, err
			}
			decls = append(decls, &ast.Field{Label: ast.NewString(k), Value: x})
		}
		return &ast.StructLit{Elts: decls}, nil
	case nil:
		return nil, fault.At(fault.KindUnsupportedHostType, path, "nil value")
	default:
		return nil, fault.At(fault.KindUnsupportedHostType, path, "unknown value type %T", v)
	}
}

// intLit renders i as an INT literal. Negative numbers become a unary
// minus over the magnitude, which also covers math.MinInt64.
func intLit(i int64) ast.Expr {
	if i >= 0 {
		return ast.NewLit(token.INT, strconv.FormatInt(i, 10))
	}
	mag := uint64(-(i + 1)) + 1
	return &ast.UnaryExpr{Op: token.SUB, X: ast.NewLit(token.INT, strconv.FormatUint(mag, 10))}
}

// floatLit renders f as a FLOAT literal that always carries a decimal
// point or exponent so the compiler never reads it as an integer.
// floatLit writes negatives as a unary minus over the magnitude. The
// evaluator folds -0.0 into 0.0, so the sign of negative zero is not kept.
func floatLit(f float64) ast.Expr {
	if math.Signbit(f) {
		return &ast.UnaryExpr{Op: token.SUB, X: ast.NewLit(token.FLOAT, tvt.FormatFloat(-f))}
	}
	return ast.NewLit(token.FLOAT, tvt.FormatFloat(f))
}

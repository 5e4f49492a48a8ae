package sql

import "strings"

// Predicate is a where predicate. Its rendering is deferred until the
// parent statement is built, so that all predicates share one
// placeholder counter regardless of nesting depth.
type Predicate struct {
	Builder
	depth int
	fns   []func(*Builder)
}

// P creates a new predicate from the given render functions.
//
//	P().EQ("name", "a8m").And().EQ("age", 30)
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

// Query returns query representation of the predicate.
func (p *Predicate) Query() (string, []any) {
	p.reset()
	for _, f := range p.fns {
		f(&p.Builder)
	}
	return p.String(), p.args
}

// Append appends a new render function to the predicate.
func (p *Predicate) Append(f func(*Builder)) *Predicate {
	p.fns = append(p.fns, f)
	return p
}

// And combines the given predicates with the AND operator.
func And(preds ...*Predicate) *Predicate {
	p := P()
	return p.Append(func(b *Builder) {
		p.mayWrap(b, preds, "AND")
	})
}

// Or combines the given predicates with the OR operator.
func Or(preds ...*Predicate) *Predicate {
	p := P()
	return p.Append(func(b *Builder) {
		p.mayWrap(b, preds, "OR")
	})
}

// Not wraps the given predicate with the NOT operator.
func Not(pred *Predicate) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT ")
		b.Nested(func(b *Builder) {
			b.Join(pred)
		})
	})
}

// mayWrap renders the given predicates joined by the operator, wrapping
// the group in parentheses when it is nested inside another group.
func (p *Predicate) mayWrap(b *Builder, preds []*Predicate, op string) {
	switch n := len(preds); {
	case n == 1:
		b.Join(preds[0])
		return
	case n > 1 && p.depth != 0:
		b.WriteByte('(')
		defer b.WriteByte(')')
	}
	for i, pred := range preds {
		if i > 0 {
			b.Pad().WriteString(op).Pad()
		}
		pred.depth = p.depth + 1
		b.Join(pred)
	}
}

// EQ returns a "=" predicate.
func EQ(col string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" = ")
		b.Arg(v)
	})
}

// NEQ returns a "<>" predicate.
func NEQ(col string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" <> ")
		b.Arg(v)
	})
}

// GT returns a ">" predicate.
func GT(col string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" > ")
		b.Arg(v)
	})
}

// GTE returns a ">=" predicate.
func GTE(col string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" >= ")
		b.Arg(v)
	})
}

// LT returns a "<" predicate.
func LT(col string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" < ")
		b.Arg(v)
	})
}

// LTE returns a "<=" predicate.
func LTE(col string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" <= ")
		b.Arg(v)
	})
}

// In returns an "IN" predicate.
func In(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		// An empty IN set matches no rows.
		if len(args) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Ident(col).WriteString(" IN ")
		b.Nested(func(b *Builder) {
			b.Args(args...)
		})
	})
}

// NotIn returns a "NOT IN" predicate.
func NotIn(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString("TRUE")
			return
		}
		b.Ident(col).WriteString(" NOT IN ")
		b.Nested(func(b *Builder) {
			b.Args(args...)
		})
	})
}

// InSelect returns an "IN" predicate over a sub-query.
func InSelect(col string, s *Selector) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IN ")
		b.Nested(func(b *Builder) {
			b.Join(s)
		})
	})
}

// IsNull returns an "IS NULL" predicate.
func IsNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NULL")
	})
}

// NotNull returns an "IS NOT NULL" predicate.
func NotNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NOT NULL")
	})
}

// ColumnsEQ returns an equality predicate between two columns.
func ColumnsEQ(c1, c2 string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(c1).WriteString(" = ").Ident(c2)
	})
}

// Like returns a "LIKE" predicate.
func Like(col, pattern string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" LIKE ")
		b.Arg(pattern)
	})
}

// Contains returns a predicate that matches substring containment.
func Contains(col, sub string) *Predicate {
	return Like(col, "%"+sub+"%")
}

// HasPrefix returns a predicate that matches a string prefix.
func HasPrefix(col, prefix string) *Predicate {
	return Like(col, prefix+"%")
}

// HasSuffix returns a predicate that matches a string suffix.
func HasSuffix(col, suffix string) *Predicate {
	return Like(col, "%"+suffix)
}

// ContainsFold returns a case-insensitive substring predicate.
func ContainsFold(col, sub string) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("LOWER(").Ident(col).WriteString(") LIKE ")
		b.Arg("%" + strings.ToLower(sub) + "%")
	})
}

// EqualFold returns a case-insensitive equality predicate.
func EqualFold(col, v string) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("LOWER(").Ident(col).WriteString(") = ")
		b.Arg(strings.ToLower(v))
	})
}

// Exists returns an "EXISTS" predicate over a sub-query.
func Exists(q Querier) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("EXISTS ")
		b.Nested(func(b *Builder) {
			b.Join(q)
		})
	})
}

// NotExists returns a "NOT EXISTS" predicate over a sub-query.
func NotExists(q Querier) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT EXISTS ")
		b.Nested(func(b *Builder) {
			b.Join(q)
		})
	})
}

// ExprP returns a raw-expression predicate with optional arguments.
func ExprP(expr string, args ...any) *Predicate {
	return P(func(b *Builder) {
		b.WriteString(expr)
		b.args = append(b.args, args...)
		b.total += len(args)
	})
}

// FieldEQ returns a selector predicate on an equality check.
// It allows composing selector modifiers from field names:
//
//	s.Where(...), sql.FieldEQ("name", v)(s)
func FieldEQ(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(EQ(s.C(name), v)) }
}

// FieldNEQ returns a selector predicate on an inequality check.
func FieldNEQ(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(NEQ(s.C(name), v)) }
}

// FieldIn returns a selector predicate on an IN check.
func FieldIn[T any](name string, vs ...T) func(*Selector) {
	return func(s *Selector) {
		v := make([]any, len(vs))
		for i := range vs {
			v[i] = vs[i]
		}
		s.Where(In(s.C(name), v...))
	}
}

// FieldNotIn returns a selector predicate on a NOT IN check.
func FieldNotIn[T any](name string, vs ...T) func(*Selector) {
	return func(s *Selector) {
		v := make([]any, len(vs))
		for i := range vs {
			v[i] = vs[i]
		}
		s.Where(NotIn(s.C(name), v...))
	}
}

// FieldIsNull returns a selector predicate on a NULL check.
func FieldIsNull(name string) func(*Selector) {
	return func(s *Selector) { s.Where(IsNull(s.C(name))) }
}

// FieldNotNull returns a selector predicate on a NOT NULL check.
func FieldNotNull(name string) func(*Selector) {
	return func(s *Selector) { s.Where(NotNull(s.C(name))) }
}


package sql

import (
	"errors"
	"strconv"
	"strings"

	"github.com/syssam/quarry/dialect"
)

// Querier wraps the Query method.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// state wraps the methods for setting and getting the builder state
// shared between a parent builder and its nested queriers. Sharing the
// state keeps placeholder numbering correct across sub-queries.
type state interface {
	Dialect() string
	SetDialect(string)
	Total() int
	SetTotal(int)
}

// Builder is the base query builder for the sql dsl.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
	total   int
	errs    []error
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string { return b.dialect }

// SetDialect sets the builder dialect. It's used for garnering dialect specific queries.
func (b *Builder) SetDialect(dialect string) { b.dialect = dialect }

// Total returns the total number of arguments so far.
func (b *Builder) Total() int { return b.total }

// SetTotal sets the value of the total arguments.
// Used to pass this information between sub queries/expressions.
func (b *Builder) SetTotal(total int) { b.total = total }

// AddError appends an error to the builder errors.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns a concatenated error of all errors encountered during
// the query-building, or were added manually by calling AddError.
func (b *Builder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	return errors.Join(b.errs...)
}

// WriteString appends the given string to the query buffer.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends the given byte to the query buffer.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Len returns the number of accumulated bytes.
func (b *Builder) Len() int { return b.sb.Len() }

// String returns the accumulated query string.
func (b *Builder) String() string { return b.sb.String() }

// Pad writes a space to the query buffer.
func (b *Builder) Pad() *Builder { return b.WriteByte(' ') }

// Comma writes a comma separator to the query buffer.
func (b *Builder) Comma() *Builder { return b.WriteString(", ") }

// Quote quotes the given identifier with the dialect quote character.
func (b *Builder) Quote(ident string) string {
	q := string(CapabilitiesFor(b.dialect).QuoteChar)
	return q + ident + q
}

// Ident appends the given string as an identifier. Qualified names
// ("t.c") are quoted part by part. Strings that look like expressions
// (contain parentheses, spaces or quote characters) or the star column
// are written as-is.
func (b *Builder) Ident(s string) *Builder {
	switch {
	case s == "" || s == "*":
		b.WriteString(s)
	case strings.ContainsAny(s, "()' ") || strings.Contains(s, `"`) || strings.Contains(s, "`"):
		b.WriteString(s)
	default:
		for i, part := range strings.Split(s, ".") {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(b.Quote(part))
		}
	}
	return b
}

// IdentComma calls Ident for each of the given identifiers with a comma separator.
func (b *Builder) IdentComma(s ...string) *Builder {
	for i := range s {
		if i > 0 {
			b.Comma()
		}
		b.Ident(s[i])
	}
	return b
}

// Arg appends an input argument to the builder and writes the
// dialect placeholder for it.
func (b *Builder) Arg(v any) *Builder {
	if r, ok := v.(Raw); ok {
		return b.WriteString(r.expr)
	}
	b.total++
	b.args = append(b.args, v)
	if CapabilitiesFor(b.dialect).PlaceholderDollar {
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(b.total))
	} else {
		b.WriteByte('?')
	}
	return b
}

// Args appends a list of input arguments with a comma separator.
func (b *Builder) Args(vs ...any) *Builder {
	for i := range vs {
		if i > 0 {
			b.Comma()
		}
		b.Arg(vs[i])
	}
	return b
}

// Nested applies the given function inside parentheses.
func (b *Builder) Nested(f func(*Builder)) *Builder {
	nb := &Builder{dialect: b.dialect, total: b.total}
	nb.WriteByte('(')
	f(nb)
	nb.WriteByte(')')
	b.WriteString(nb.String())
	b.args = append(b.args, nb.args...)
	b.total = nb.total
	b.errs = append(b.errs, nb.errs...)
	return b
}

// Join joins a list of queriers to the builder, sharing the dialect
// and the placeholder counter with each of them.
func (b *Builder) Join(qs ...Querier) *Builder {
	for _, q := range qs {
		if st, ok := q.(state); ok {
			st.SetDialect(b.dialect)
			st.SetTotal(b.total)
		}
		query, args := q.Query()
		b.WriteString(query)
		b.args = append(b.args, args...)
		b.total += len(args)
		if qe, ok := q.(interface{ Err() error }); ok {
			b.AddError(qe.Err())
		}
	}
	return b
}

// Query returns query representation of the builder.
func (b *Builder) Query() (string, []any) {
	return b.String(), b.args
}

// postgres reports if the builder dialect is PostgreSQL.
func (b *Builder) postgres() bool { return b.dialect == dialect.Postgres }

// mysql reports if the builder dialect is MySQL.
func (b *Builder) mysql() bool { return b.dialect == dialect.MySQL }

// reset restores the builder to its pre-render state, keeping the
// dialect and the placeholder base set by the parent builder. It allows
// rendering the same builder more than once with identical output.
func (b *Builder) reset() {
	b.sb.Reset()
	b.args = nil
	b.errs = nil
}

// Raw is a raw SQL expression that is written to the query as-is,
// bypassing placeholder rendering.
type Raw struct{ expr string }

// Expr returns a raw SQL expression wrapper for the given string.
func Expr(expr string) Raw { return Raw{expr} }

// DialectBuilder prefixes all root builders with the given dialect.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a new DialectBuilder for the given dialect name.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{name}
}

// Select creates a Selector for the given columns.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	s := Select(columns...)
	s.SetDialect(d.dialect)
	return s
}

// Table creates a SelectTable for the given table name.
func (d *DialectBuilder) Table(name string) *SelectTable {
	t := Table(name)
	t.SetDialect(d.dialect)
	return t
}

// Insert creates an InsertBuilder for the given table.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	i := Insert(table)
	i.SetDialect(d.dialect)
	return i
}

// Update creates an UpdateBuilder for the given table.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	u := Update(table)
	u.SetDialect(d.dialect)
	return u
}

// Delete creates a DeleteBuilder for the given table.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	del := Delete(table)
	del.SetDialect(d.dialect)
	return del
}

// Asc returns an "ORDER BY" term in ascending order.
func Asc(column string) string { return column + " ASC" }

// Desc returns an "ORDER BY" term in descending order.
func Desc(column string) string { return column + " DESC" }

// Count wraps the column with a COUNT aggregation function.
func Count(column string) string { return aggr("COUNT", column) }

// Sum wraps the column with a SUM aggregation function.
func Sum(column string) string { return aggr("SUM", column) }

// Avg wraps the column with an AVG aggregation function.
func Avg(column string) string { return aggr("AVG", column) }

// Min wraps the column with a MIN aggregation function.
func Min(column string) string { return aggr("MIN", column) }

// Max wraps the column with a MAX aggregation function.
func Max(column string) string { return aggr("MAX", column) }

// As suffixes the given expression with an alias.
func As(expr, as string) string { return expr + " AS " + as }

func aggr(fn, column string) string {
	return fn + "(" + column + ")"
}

package sql

import (
	"errors"
	"strconv"
	"strings"
)

// errOnWithoutJoin is reported when On is called before any join was added.
var errOnWithoutJoin = errors.New("sql: ON must come after JOIN")

// TableView is a view that returns a table view. Can be a Table or a Selector.
type TableView interface {
	view()
	Querier
}

// SelectTable is a table selection in a FROM clause.
type SelectTable struct {
	Builder
	as   string
	name string
}

// Table returns a new table view for the given table name.
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// As adds the AS clause to the table selection.
func (t *SelectTable) As(alias string) *SelectTable {
	t.as = alias
	return t
}

// C returns the qualified name of the given column. Quoting is applied
// when the name is rendered inside a statement.
func (t *SelectTable) C(column string) string {
	name := t.name
	if t.as != "" {
		name = t.as
	}
	return name + "." + column
}

// Columns returns a list of qualified column names.
func (t *SelectTable) Columns(columns ...string) []string {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, t.C(c))
	}
	return names
}

// Name returns the name of the table.
func (t *SelectTable) Name() string { return t.name }

// Alias returns the alias of the table, or an empty string.
func (t *SelectTable) Alias() string { return t.as }

// Query returns query representation of the table view.
func (t *SelectTable) Query() (string, []any) {
	b := t.clone()
	b.Ident(t.name)
	if t.as != "" {
		b.WriteString(" AS ")
		b.Ident(t.as)
	}
	return b.String(), nil
}

func (*SelectTable) view() {}

// join describes a single join clause of a Selector.
type join struct {
	on    *Predicate
	kind  string
	table TableView
}

// Selector is a builder for the SELECT statement.
type Selector struct {
	Builder
	as       string
	columns  []string
	from     []TableView
	joins    []join
	where    *Predicate
	order    []string
	group    []string
	having   *Predicate
	limit    *int
	offset   *int
	distinct bool
	lock     bool
}

// Select returns a new selector for the given columns.
func Select(columns ...string) *Selector {
	return (&Selector{}).Select(columns...)
}

// Select changes the columns selection of the SELECT statement.
func (s *Selector) Select(columns ...string) *Selector {
	s.columns = columns
	return s
}

// AppendSelect appends additional columns to the SELECT statement.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	s.columns = append(s.columns, columns...)
	return s
}

// SelectedColumns returns the selected columns of the Selector.
func (s *Selector) SelectedColumns() []string { return s.columns }

// From sets the source for the FROM clause.
func (s *Selector) From(t TableView) *Selector {
	s.from = []TableView{t}
	if st, ok := t.(state); ok {
		st.SetDialect(s.dialect)
	}
	return s
}

// Distinct adds the DISTINCT keyword to the SELECT statement.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// Where sets or appends the given predicate to the statement.
func (s *Selector) Where(p *Predicate) *Selector {
	switch {
	case p == nil:
	case s.where == nil:
		s.where = p
	default:
		s.where = And(s.where, p)
	}
	return s
}

// P returns the predicate of the Selector, or nil.
func (s *Selector) P() *Predicate { return s.where }

// Join appends an INNER JOIN to the statement.
func (s *Selector) Join(t TableView) *Selector { return s.join("JOIN", t) }

// LeftJoin appends a LEFT OUTER JOIN to the statement.
func (s *Selector) LeftJoin(t TableView) *Selector { return s.join("LEFT JOIN", t) }

// RightJoin appends a RIGHT OUTER JOIN to the statement.
func (s *Selector) RightJoin(t TableView) *Selector { return s.join("RIGHT JOIN", t) }

func (s *Selector) join(kind string, t TableView) *Selector {
	if st, ok := t.(state); ok {
		st.SetDialect(s.dialect)
	}
	s.joins = append(s.joins, join{kind: kind, table: t})
	return s
}

// On sets the join condition of the last added join to an equality
// between the two given columns.
func (s *Selector) On(c1, c2 string) *Selector {
	return s.OnP(ColumnsEQ(c1, c2))
}

// OnP sets or appends the given predicate to the join condition of the
// last added join.
func (s *Selector) OnP(p *Predicate) *Selector {
	if len(s.joins) == 0 {
		s.AddError(errOnWithoutJoin)
		return s
	}
	j := &s.joins[len(s.joins)-1]
	if j.on == nil {
		j.on = p
	} else {
		j.on = And(j.on, p)
	}
	return s
}

// GroupBy appends the given columns to the GROUP BY clause.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.group = append(s.group, columns...)
	return s
}

// Having sets the HAVING predicate of the statement.
func (s *Selector) Having(p *Predicate) *Selector {
	s.having = p
	return s
}

// OrderBy appends the given terms to the ORDER BY clause.
// Terms are column names, optionally produced by Asc or Desc.
func (s *Selector) OrderBy(terms ...string) *Selector {
	s.order = append(s.order, terms...)
	return s
}

// Limit adds the LIMIT clause to the statement.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset adds the OFFSET clause to the statement.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// ForUpdate requests a row-level lock for the selected rows. The clause
// is rendered only for dialects that support row locking; for others
// the request is advisory and dropped silently.
func (s *Selector) ForUpdate() *Selector {
	s.lock = true
	return s
}

// As gives the selection an alias, allowing its use as a table view.
func (s *Selector) As(alias string) *Selector {
	s.as = alias
	return s
}

// Table returns the first table view of the FROM clause as a SelectTable.
func (s *Selector) Table() *SelectTable {
	if len(s.from) == 0 {
		return nil
	}
	t, _ := s.from[0].(*SelectTable)
	return t
}

// C returns the column name qualified by the selection source.
func (s *Selector) C(column string) string {
	if t := s.Table(); t != nil {
		return t.C(column)
	}
	return column
}

// Clone returns a duplicate of the selector, including all associated steps.
func (s *Selector) Clone() *Selector {
	if s == nil {
		return nil
	}
	c := *s
	c.columns = append([]string(nil), s.columns...)
	c.from = append([]TableView(nil), s.from...)
	c.joins = append([]join(nil), s.joins...)
	c.order = append([]string(nil), s.order...)
	c.group = append([]string(nil), s.group...)
	return &c
}

// Query returns query representation of the SELECT statement.
func (s *Selector) Query() (string, []any) {
	b := s.clone()
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.columns) == 0 {
		b.WriteByte('*')
	} else {
		b.IdentComma(s.columns...)
	}
	b.WriteString(" FROM ")
	for i, t := range s.from {
		if i > 0 {
			b.Comma()
		}
		b.Join(t)
	}
	for _, j := range s.joins {
		b.Pad().WriteString(j.kind).Pad()
		b.Join(j.table)
		if j.on != nil {
			b.WriteString(" ON ")
			b.Join(j.on)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		b.Join(s.where)
	}
	if len(s.group) > 0 {
		b.WriteString(" GROUP BY ")
		b.IdentComma(s.group...)
	}
	if s.having != nil {
		b.WriteString(" HAVING ")
		b.Join(s.having)
	}
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, term := range s.order {
			if i > 0 {
				b.Comma()
			}
			b.orderTerm(term)
		}
	}
	if s.limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(*s.offset))
	}
	if s.lock && CapabilitiesFor(s.dialect).SupportsRowLocking {
		b.WriteString(" FOR UPDATE")
	}
	s.errs = b.errs
	query, args := b.String(), b.args
	if s.as != "" {
		ab := &Builder{dialect: s.dialect}
		ab.WriteByte('(').WriteString(query).WriteString(") AS ")
		ab.Ident(s.as)
		return ab.String(), args
	}
	return query, args
}

func (*Selector) view() {}

// clone returns a fresh Builder carrying over the selector state,
// keeping Query calls free of side effects on the selector itself.
func (b *Builder) clone() *Builder {
	return &Builder{dialect: b.dialect, total: b.total}
}

// orderTerm writes an ORDER BY term, quoting the column part and
// keeping an ASC/DESC suffix intact.
func (b *Builder) orderTerm(term string) {
	if col, ok := strings.CutSuffix(term, " DESC"); ok {
		b.Ident(col).WriteString(" DESC")
		return
	}
	if col, ok := strings.CutSuffix(term, " ASC"); ok {
		b.Ident(col).WriteString(" ASC")
		return
	}
	b.Ident(term)
}

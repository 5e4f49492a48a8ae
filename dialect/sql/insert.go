package sql

import "fmt"

// InsertBuilder is a builder for the INSERT statement.
type InsertBuilder struct {
	Builder
	table     string
	columns   []string
	values    [][]any
	defaults  bool
	returning []string
	conflict  *conflict
}

// conflict holds the upsert resolution of an INSERT statement.
type conflict struct {
	targets   []string
	doNothing bool
	excluded  []string
	set       []assign
	where     *Predicate
}

type assign struct {
	column string
	value  any
}

// Insert creates a builder for the INSERT statement.
//
//	Insert("users").Columns("name", "age").Values("a8m", 30)
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Columns sets the columns of the insert statement.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = append(i.columns, columns...)
	return i
}

// Values appends a row of values to the statement. Multiple calls
// produce a multi-row insert.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values)
	return i
}

// Default sets the default values clause of the statement.
func (i *InsertBuilder) Default() *InsertBuilder {
	i.defaults = true
	return i
}

// Returning adds a RETURNING clause to the statement. The clause is
// dropped for dialects that do not support it.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// OnConflictColumns sets the conflict target of the upsert to the given
// unique columns.
func (i *InsertBuilder) OnConflictColumns(columns ...string) *InsertBuilder {
	if i.conflict == nil {
		i.conflict = &conflict{}
	}
	i.conflict.targets = columns
	return i
}

// DoNothing configures the conflict resolution to skip conflicting rows.
func (i *InsertBuilder) DoNothing() *InsertBuilder {
	if i.conflict == nil {
		i.conflict = &conflict{}
	}
	i.conflict.doNothing = true
	if !CapabilitiesFor(i.dialect).SupportsConflictIgnore {
		i.AddError(fmt.Errorf("sql: dialect %q does not support skipping conflicting rows", i.dialect))
	}
	return i
}

// UpdateExcluded configures the conflict resolution to overwrite the
// given columns with the values of the row that was proposed for
// insertion (the "excluded" row).
func (i *InsertBuilder) UpdateExcluded(columns ...string) *InsertBuilder {
	if i.conflict == nil {
		i.conflict = &conflict{}
	}
	i.conflict.excluded = append(i.conflict.excluded, columns...)
	return i
}

// UpdateSet adds an explicit column assignment to the conflict
// resolution.
func (i *InsertBuilder) UpdateSet(column string, v any) *InsertBuilder {
	if i.conflict == nil {
		i.conflict = &conflict{}
	}
	i.conflict.set = append(i.conflict.set, assign{column, v})
	return i
}

// UpdateWhere narrows the conflict update with a predicate. Only valid
// for dialects with SupportsUpsertWhere.
func (i *InsertBuilder) UpdateWhere(p *Predicate) *InsertBuilder {
	if i.conflict == nil {
		i.conflict = &conflict{}
	}
	i.conflict.where = p
	if !CapabilitiesFor(i.dialect).SupportsUpsertWhere {
		i.AddError(fmt.Errorf("sql: dialect %q does not support conditional upsert", i.dialect))
	}
	return i
}

// Query returns query representation of the INSERT statement.
func (i *InsertBuilder) Query() (string, []any) {
	b := i.clone()
	b.WriteString("INSERT INTO ")
	b.Ident(i.table)
	if i.defaults && len(i.columns) == 0 {
		i.writeDefault(b)
	} else {
		b.WriteString(" (")
		b.IdentComma(i.columns...)
		b.WriteString(") VALUES ")
		for j, row := range i.values {
			if j > 0 {
				b.Comma()
			}
			b.WriteByte('(')
			b.Args(row...)
			b.WriteByte(')')
		}
	}
	if i.conflict != nil {
		i.writeConflict(b)
	}
	if len(i.returning) > 0 && CapabilitiesFor(i.dialect).SupportsReturning {
		b.WriteString(" RETURNING ")
		b.IdentComma(i.returning...)
	}
	i.errs = b.errs
	return b.String(), b.args
}

func (i *InsertBuilder) writeDefault(b *Builder) {
	if b.mysql() {
		b.WriteString(" () VALUES ()")
	} else {
		b.WriteString(" DEFAULT VALUES")
	}
}

func (i *InsertBuilder) writeConflict(b *Builder) {
	if b.mysql() {
		// MySQL resolves against any unique key; the conflict target
		// cannot be named and DO NOTHING has no native equivalent.
		b.WriteString(" ON DUPLICATE KEY UPDATE ")
		i.writeMySQLSet(b)
		return
	}
	b.WriteString(" ON CONFLICT")
	if len(i.conflict.targets) > 0 {
		b.WriteString(" (")
		b.IdentComma(i.conflict.targets...)
		b.WriteByte(')')
	}
	if i.conflict.doNothing {
		b.WriteString(" DO NOTHING")
		return
	}
	b.WriteString(" DO UPDATE SET ")
	for j, c := range i.conflict.excluded {
		if j > 0 {
			b.Comma()
		}
		b.Ident(c).WriteString(" = excluded.").Ident(c)
	}
	for j, a := range i.conflict.set {
		if j > 0 || len(i.conflict.excluded) > 0 {
			b.Comma()
		}
		b.Ident(a.column).WriteString(" = ")
		b.Arg(a.value)
	}
	if i.conflict.where != nil {
		b.WriteString(" WHERE ")
		b.Join(i.conflict.where)
	}
}

func (i *InsertBuilder) writeMySQLSet(b *Builder) {
	for j, c := range i.conflict.excluded {
		if j > 0 {
			b.Comma()
		}
		b.Ident(c).WriteString(" = VALUES(").Ident(c).WriteByte(')')
	}
	for j, a := range i.conflict.set {
		if j > 0 || len(i.conflict.excluded) > 0 {
			b.Comma()
		}
		b.Ident(a.column).WriteString(" = ")
		b.Arg(a.value)
	}
}

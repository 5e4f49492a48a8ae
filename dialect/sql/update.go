package sql

// UpdateBuilder is a builder for the UPDATE statement.
type UpdateBuilder struct {
	Builder
	table     string
	sets      []assign
	nulls     []string
	where     *Predicate
	returning []string
}

// Update creates a builder for the UPDATE statement.
//
//	Update("users").Set("name", "foo").Where(EQ("id", 1))
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set sets a column to the given value.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.sets = append(u.sets, assign{column, v})
	return u
}

// SetNull sets a column as null value.
func (u *UpdateBuilder) SetNull(column string) *UpdateBuilder {
	u.nulls = append(u.nulls, column)
	return u
}

// Where adds a where predicate for the update statement.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	if u.where != nil {
		u.where = And(u.where, p)
	} else {
		u.where = p
	}
	return u
}

// Returning adds a RETURNING clause to the statement. The clause is
// dropped for dialects that do not support it.
func (u *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	u.returning = columns
	return u
}

// Empty reports whether the builder carries no assignments.
func (u *UpdateBuilder) Empty() bool {
	return len(u.sets) == 0 && len(u.nulls) == 0
}

// Query returns query representation of the UPDATE statement.
func (u *UpdateBuilder) Query() (string, []any) {
	b := u.clone()
	b.WriteString("UPDATE ")
	b.Ident(u.table)
	b.WriteString(" SET ")
	for i, a := range u.sets {
		if i > 0 {
			b.Comma()
		}
		b.Ident(a.column).WriteString(" = ")
		b.Arg(a.value)
	}
	for i, c := range u.nulls {
		if i > 0 || len(u.sets) > 0 {
			b.Comma()
		}
		b.Ident(c).WriteString(" = NULL")
	}
	if u.where != nil {
		b.WriteString(" WHERE ")
		b.Join(u.where)
	}
	if len(u.returning) > 0 && CapabilitiesFor(u.dialect).SupportsReturning {
		b.WriteString(" RETURNING ")
		b.IdentComma(u.returning...)
	}
	u.errs = b.errs
	return b.String(), b.args
}

// DeleteBuilder is a builder for the DELETE statement.
type DeleteBuilder struct {
	Builder
	table     string
	where     *Predicate
	returning []string
}

// Delete creates a builder for the DELETE statement.
//
//	Delete("users").Where(Or(EQ("name", "foo"), EQ("name", "bar")))
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where appends a where predicate to the delete statement.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	if d.where != nil {
		d.where = And(d.where, p)
	} else {
		d.where = p
	}
	return d
}

// Returning adds a RETURNING clause to the statement. The clause is
// dropped for dialects that do not support it.
func (d *DeleteBuilder) Returning(columns ...string) *DeleteBuilder {
	d.returning = columns
	return d
}

// Query returns query representation of the DELETE statement.
func (d *DeleteBuilder) Query() (string, []any) {
	b := d.clone()
	b.WriteString("DELETE FROM ")
	b.Ident(d.table)
	if d.where != nil {
		b.WriteString(" WHERE ")
		b.Join(d.where)
	}
	if len(d.returning) > 0 && CapabilitiesFor(d.dialect).SupportsReturning {
		b.WriteString(" RETURNING ")
		b.IdentComma(d.returning...)
	}
	d.errs = b.errs
	return b.String(), b.args
}

package compiler

import (
	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/schema"
)

// IncludeArg carries the arguments of one relation include.
type IncludeArg struct {
	Where   map[string]any
	Select  []string
	Include map[string]*IncludeArg
	OrderBy []Order
	Take    *int
	Skip    *int
}

// plain reports whether the include carries no arguments, so a to-one
// relation can be folded into the parent query as a join.
func (a *IncludeArg) plain() bool {
	if a == nil {
		return true
	}
	return len(a.Where) == 0 && len(a.Select) == 0 && len(a.Include) == 0 &&
		len(a.OrderBy) == 0 && a.Take == nil && a.Skip == nil
}

// foldSpec is a to-one relation joined into its parent query.
type foldSpec struct {
	rel    *schema.Relation
	target *schema.Model
}

/// includePlan is the validated include tree of one query level: to-one
// relations to fold into the level's statement, and to-many (or
// argument-carrying) relations to run as batched follow-up queries.
type includePlan struct {
	folds []foldSpec
	rels  []*RelationQuery
}

// planInclude validates an include tree against the model. Relation
// names are visited in sorted order to keep compilation deterministic.
func (c *Compiler) planInclude(m *schema.Model, include map[string]*IncludeArg) (*includePlan, error) {
	plan := &includePlan{}
	for _, name := range sortedKeys(include) {
		arg := include[name]
		rel, ok := m.Relation(name)
		if !ok {
			return nil, &quarry.UnknownRelationError{Model: m.Name, Relation: name}
		}
		target, ok := c.graph.Model(rel.Target)
		if !ok {
			return nil, &quarry.UnknownRelationError{Model: m.Name, Relation: name}
		}
		if !rel.Kind.ToMany() && arg.plain() {
			plan.folds = append(plan.folds, foldSpec{rel: rel, target: target})
			continue
		}
		rq, err := c.relationQuery(m, rel, target, arg)
		if err != nil {
			return nil, err
		}
		plan.rels = append(plan.rels, rq)
	}
	return plan, nil
}

// applyFolds joins the folded to-one relations onto the selector and
// appends their prefixed columns to the select list. The relation name
// aliases the joined table, so sibling folds never collide.
func applyFolds(sel *sql.Selector, parent *sql.SelectTable, d *sql.DialectBuilder, specs []foldSpec) {
	for _, spec := range specs {
		t := d.Table(spec.target.Table).As(spec.rel.Name)
		sel.LeftJoin(t).On(t.C(spec.rel.ForeignKey), parent.C(spec.rel.LocalKey))
		prefix := spec.rel.Name + "__"
		for _, f := range spec.target.Fields {
			col := f.ColumnName()
			sel.AppendSelect(sql.As(t.C(col), prefix+col))
		}
	}
}

// describeFolds returns the shaping descriptors of the folded relations.
func describeFolds(specs []foldSpec) []Fold {
	folds := make([]Fold, 0, len(specs))
	for _, spec := range specs {
		prefix := spec.rel.Name + "__"
		cols := make([]string, 0, len(spec.target.Fields))
		for _, f := range spec.target.Fields {
			cols = append(cols, prefix+f.ColumnName())
		}
		folds = append(folds, Fold{Relation: spec.rel.Name, Prefix: prefix, Columns: cols})
	}
	return folds
}

// RelationQuery is a batched sub-query of an include tree. One query
/// loads the related rows of every parent at its level: the executor
// collects the parent keys, runs Query once, and groups the result rows
// by the __parent column.
type RelationQuery struct {
	// Relation is the relation name the loaded rows attach under.
	Relation string
	// Model is the related model name.
	Model string
	// ParentKey is the column of the parent rows whose values batch the
	// query.
	ParentKey string
	// ToMany reports whether each parent attaches a list or one row.
	ToMany bool
	// Take and Skip paginate the rows of each parent group. They are
	// applied while grouping, not in SQL, since a LIMIT would cap the
	// whole batch instead of each group.
	Take *int
	Skip *int
	// Relations are the batched sub-queries of the next level.
	Relations []*RelationQuery
	// Folds describe to-one relations joined into this level.
	Folds []Fold

	c       *Compiler
	rel     *schema.Relation
	target  *schema.Model
	pred    Predicate
	columns []string
	orderBy []Order
	folds   []foldSpec
}

// ParentColumn is the alias under which the batched query projects the
// parent key of each row.
const ParentColumn = "__parent"

// relationQuery validates one include entry and prepares its batched
// query. All argument validation happens here; Query only renders.
func (c *Compiler) relationQuery(m *schema.Model, rel *schema.Relation, target *schema.Model, arg *IncludeArg) (*RelationQuery, error) {
	if arg == nil {
		arg = &IncludeArg{}
	}
	if !rel.Kind.ToMany() && (arg.Take != nil || arg.Skip != nil) {
		return nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: "include", Reason: rel.Name + " is not a list relation"}
	}
	pred, err := c.normalizeWhere(target, arg.Where)
	if err != nil {
		return nil, err
	}
	columns, err := c.selectColumns(target, arg.Select)
	if err != nil {
		return nil, err
	}
	for _, o := range arg.OrderBy {
		if _, ok := target.Field(o.Field); !ok {
			return nil, &quarry.UnknownFieldError{Model: target.Name, Field: o.Field}
		}
	}
	plan, err := c.planInclude(target, arg.Include)
	if err != nil {
		return nil, err
	}
	parentKey := rel.LocalKey
	targetKey := rel.ForeignKey
	if rel.Kind == schema.M2M {
		if parentKey == "" {
			parentKey = m.ID().ColumnName()
		}
		if targetKey == "" {
			targetKey = target.ID().ColumnName()
		}
	}
	rq := &RelationQuery{
		Relation:  rel.Name,
		Model:     target.Name,
		ParentKey: parentKey,
		ToMany:    rel.Kind.ToMany(),
		Take:      arg.Take,
		Skip:      arg.Skip,
		Relations: plan.rels,
		Folds:     describeFolds(plan.folds),
		c:         c,
		rel:       rel,
		target:    target,
		pred:      pred,
		columns:   columns,
		orderBy:   arg.OrderBy,
		folds:     plan.folds,
	}
	// Nested levels batch on columns of this level, so they must be in
	// its projection.
	for _, nested := range plan.rels {
		rq.columns = appendMissing(rq.columns, nested.ParentKey)
	}
	if rel.Kind != schema.M2M {
		rq.columns = appendMissing(rq.columns, targetKey)
	}
	return rq, nil
}

// Query renders the batched statement for the given parent key values.
// The related table keeps its own name as qualifier; an M2M relation
// routes through its pivot table to project the parent key.
func (r *RelationQuery) Query(parentKeys []any) (Statement, error) {
	d := sql.Dialect(r.c.dialect)
	t := d.Table(r.target.Table)
	sel := d.Select(t.Columns(r.columns...)...).From(t)
	switch r.rel.Kind {
	case schema.M2M:
		pv := d.Table(r.rel.PivotTable)
		targetKey := r.rel.ForeignKey
		if targetKey == "" {
			targetKey = r.target.ID().ColumnName()
		}
		sel.Join(pv).On(pv.C(r.rel.PivotForeignColumn), t.C(targetKey))
		sel.AppendSelect(sql.As(pv.C(r.rel.PivotLocalColumn), ParentColumn))
		sel.Where(sql.In(pv.C(r.rel.PivotLocalColumn), parentKeys...))
	default:
		sel.AppendSelect(sql.As(t.C(r.rel.ForeignKey), ParentColumn))
		sel.Where(sql.In(t.C(r.rel.ForeignKey), parentKeys...))
	}
	if r.pred != nil {
		p, err := r.c.renderPredicate(r.target, r.target.Table, r.pred)
		if err != nil {
			return Statement{}, err
		}
		sel.Where(p)
	}
	applyFolds(sel, t, d, r.folds)
	for _, o := range r.orderBy {
		f, _ := r.target.Field(o.Field)
		if o.Desc {
			sel.OrderBy(sql.Desc(t.C(f.ColumnName())))
		} else {
			sel.OrderBy(sql.Asc(t.C(f.ColumnName())))
		}
	}
	query, args := sel.Query()
	if err := sel.Err(); err != nil {
		return Statement{}, err
	}
	return Statement{SQL: query, Args: args}, nil
}

// selectColumns resolves a field selection to column names, or every
// column when the selection is empty.
func (c *Compiler) selectColumns(m *schema.Model, selection []string) ([]string, error) {
	if len(selection) == 0 {
		return m.Columns(), nil
	}
	cols := make([]string, 0, len(selection))
	for _, name := range selection {
		f, ok := m.Field(name)
		if !ok {
			return nil, &quarry.UnknownFieldError{Model: m.Name, Field: name}
		}
		cols = append(cols, f.ColumnName())
	}
	return cols, nil
}

func appendMissing(cols []string, col string) []string {
	for _, c := range cols {
		if c == col {
			return cols
		}
	}
	return append(cols, col)
}

package compiler

import (
	"fmt"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/schema"
)

// compileSelect builds the root read statement shared by the find
// operations: filter, projection, folded to-one joins, ordering and
// pagination. Batched to-many levels come back on Compiled.Relations.
func (c *Compiler) compileSelect(op Operation, m *schema.Model, args Args) (*Compiled, error) {
	pred, err := c.normalizeWhere(m, args.Where)
	if err != nil {
		return nil, err
	}
	columns, err := c.selectColumns(m, args.Select)
	if err != nil {
		return nil, err
	}
	plan, err := c.planInclude(m, args.Include)
	if err != nil {
		return nil, err
	}
	for _, rq := range plan.rels {
		columns = appendMissing(columns, rq.ParentKey)
	}
	d := sql.Dialect(c.dialect)
	t := d.Table(m.Table)
	sel := d.Select(t.Columns(columns...)...).From(t)
	applyFolds(sel, t, d, plan.folds)
	if pred != nil {
		p, err := c.renderPredicate(m, m.Table, pred)
		if err != nil {
			return nil, err
		}
		sel.Where(p)
	}
	for _, o := range args.OrderBy {
		f, ok := m.Field(o.Field)
		if !ok {
			return nil, &quarry.UnknownFieldError{Model: m.Name, Field: o.Field}
		}
		if o.Desc {
			sel.OrderBy(sql.Desc(t.C(f.ColumnName())))
		} else {
			sel.OrderBy(sql.Asc(t.C(f.ColumnName())))
		}
	}
	if args.Take != nil {
		sel.Limit(*args.Take)
	}
	if args.Skip != nil {
		sel.Offset(*args.Skip)
	}
	if args.ForUpdate {
		sel.ForUpdate()
	}
	query, qargs := sel.Query()
	if err := sel.Err(); err != nil {
		return nil, err
	}
	return &Compiled{
		Operation: op,
		Model:     m.Name,
		Root:      Statement{SQL: query, Args: qargs},
		Relations: plan.rels,
		Folds:     describeFolds(plan.folds),
	}, nil
}

// renderPredicate renders a normalized predicate tree to a sql
// predicate. Columns are qualified with the given table name or alias.
func (c *Compiler) renderPredicate(m *schema.Model, qualifier string, p Predicate) (*sql.Predicate, error) {
	r := &renderer{c: c}
	return r.render(m, qualifier, p)
}

// renderer renders one predicate tree. It numbers the aliases of
// correlated sub-queries (t1, t2, ...) so nested relation filters never
// shadow each other.
type renderer struct {
	c       *Compiler
	aliases int
}

func (r *renderer) render(m *schema.Model, qualifier string, p Predicate) (*sql.Predicate, error) {
	switch p := p.(type) {
	case *Comparison:
		return r.comparison(m, qualifier, p)
	case *Aggregate:
		return r.aggregate(m, p)
	case *And:
		preds, err := r.renderAll(m, qualifier, p.Preds)
		if err != nil {
			return nil, err
		}
		return sql.And(preds...), nil
	case *Or:
		preds, err := r.renderAll(m, qualifier, p.Preds)
		if err != nil {
			return nil, err
		}
		return sql.Or(preds...), nil
	case *Not:
		inner, err := r.render(m, qualifier, p.Pred)
		if err != nil {
			return nil, err
		}
		return sql.Not(inner), nil
	case *Relation:
		return r.relation(m, qualifier, p)
	default:
		return nil, fmt.Errorf("compiler: unexpected predicate node %T", p)
	}
}

func (r *renderer) renderAll(m *schema.Model, qualifier string, preds []Predicate) ([]*sql.Predicate, error) {
	out := make([]*sql.Predicate, 0, len(preds))
	for _, p := range preds {
		rp, err := r.render(m, qualifier, p)
		if err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, nil
}

func (r *renderer) comparison(m *schema.Model, qualifier string, p *Comparison) (*sql.Predicate, error) {
	col := p.Field.ColumnName()
	if qualifier != "" {
		col = qualifier + "." + col
	}
	switch p.Op {
	case OpEquals:
		return sql.EQ(col, p.Value), nil
	case OpNotEquals:
		return sql.NEQ(col, p.Value), nil
	case OpIn:
		return sql.In(col, p.Value.([]any)...), nil
	case OpNotIn:
		return sql.NotIn(col, p.Value.([]any)...), nil
	case OpLT:
		return sql.LT(col, p.Value), nil
	case OpLTE:
		return sql.LTE(col, p.Value), nil
	case OpGT:
		return sql.GT(col, p.Value), nil
	case OpGTE:
		return sql.GTE(col, p.Value), nil
	case OpContains, OpStartsWith, OpEndsWith:
		s, ok := p.Value.(string)
		if !ok {
			return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: p.Field.Name, Operator: string(p.Op), Value: p.Value}
		}
		switch p.Op {
		case OpContains:
			return sql.Contains(col, s), nil
		case OpStartsWith:
			return sql.HasPrefix(col, s), nil
		default:
			return sql.HasSuffix(col, s), nil
		}
	case OpIsNull:
		return sql.IsNull(col), nil
	case OpNotNull:
		return sql.NotNull(col), nil
	default:
		return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: p.Field.Name, Operator: string(p.Op), Value: p.Value}
	}
}

// aggregate renders a HAVING comparison over an aggregate expression.
// The expression matches the alias-free form of the select list, e.g.
// SUM(views) > $1.
func (r *renderer) aggregate(m *schema.Model, p *Aggregate) (*sql.Predicate, error) {
	col := "*"
	if p.Field != nil {
		col = p.Field.ColumnName()
	}
	var expr string
	switch p.Fn {
	case "count":
		expr = sql.Count(col)
	case "sum":
		expr = sql.Sum(col)
	case "avg":
		expr = sql.Avg(col)
	case "min":
		expr = sql.Min(col)
	case "max":
		expr = sql.Max(col)
	default:
		return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: p.Fn, Reason: "unknown aggregate"}
	}
	switch p.Op {
	case OpEquals:
		return sql.EQ(expr, p.Value), nil
	case OpNotEquals:
		return sql.NEQ(expr, p.Value), nil
	case OpLT:
		return sql.LT(expr, p.Value), nil
	case OpLTE:
		return sql.LTE(expr, p.Value), nil
	case OpGT:
		return sql.GT(expr, p.Value), nil
	case OpGTE:
		return sql.GTE(expr, p.Value), nil
	default:
		return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: p.Fn, Reason: "unsupported aggregate operator " + string(p.Op)}
	}
}

// relation renders a quantified relation filter as a correlated
// EXISTS/NOT EXISTS sub-query over the related table.
func (r *renderer) relation(m *schema.Model, qualifier string, p *Relation) (*sql.Predicate, error) {
	rel, target := p.Relation, p.Target
	d := sql.Dialect(r.c.dialect)
	r.aliases++
	alias := fmt.Sprintf("t%d", r.aliases)
	var (
		sub    *sql.Selector
		nested string
	)
	if rel.Kind == schema.M2M {
		r.aliases++
		targetAlias := fmt.Sprintf("t%d", r.aliases)
		localKey := rel.LocalKey
		if localKey == "" {
			localKey = m.ID().ColumnName()
		}
		targetKey := rel.ForeignKey
		if targetKey == "" {
			targetKey = target.ID().ColumnName()
		}
		pv := d.Table(rel.PivotTable).As(alias)
		tt := d.Table(target.Table).As(targetAlias)
		sub = d.Select(pv.C(rel.PivotLocalColumn)).From(pv).
			Join(tt).On(tt.C(targetKey), pv.C(rel.PivotForeignColumn)).
			Where(sql.ColumnsEQ(pv.C(rel.PivotLocalColumn), qualifier+"."+localKey))
		nested = targetAlias
	} else {
		tt := d.Table(target.Table).As(alias)
		sub = d.Select(tt.C(rel.ForeignKey)).From(tt).
			Where(sql.ColumnsEQ(tt.C(rel.ForeignKey), qualifier+"."+rel.LocalKey))
		nested = alias
	}
	var inner *sql.Predicate
	if p.Pred != nil {
		var err error
		inner, err = r.render(target, nested, p.Pred)
		if err != nil {
			return nil, err
		}
	}
	switch p.Quant {
	case QuantSome:
		sub.Where(inner)
		return sql.Exists(sub), nil
	case QuantEvery:
		// An empty condition holds for every row, related or not.
		if inner == nil {
			return sql.ExprP("TRUE"), nil
		}
		sub.Where(sql.Not(inner))
		return sql.NotExists(sub), nil
	case QuantNone:
		sub.Where(inner)
		return sql.NotExists(sub), nil
	case QuantIs:
		// A null condition asserts the absence of the related row.
		if inner == nil {
			return sql.NotExists(sub), nil
		}
		sub.Where(inner)
		return sql.Exists(sub), nil
	case QuantIsNot:
		if inner == nil {
			return sql.Exists(sub), nil
		}
		sub.Where(inner)
		return sql.NotExists(sub), nil
	default:
		return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: rel.Name, Operator: string(p.Quant)}
	}
}

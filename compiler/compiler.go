// Package compiler translates ORM-style operation descriptions into
// dialect-specific SQL statements with ordered parameter lists.
package compiler

import (
	"fmt"
	"sort"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/schema"
)

// Operation identifies a compilable operation.
type Operation string

const (
	FindUnique        Operation = "findUnique"
	FindUniqueOrThrow Operation = "findUniqueOrThrow"
	FindFirst         Operation = "findFirst"
	FindFirstOrThrow  Operation = "findFirstOrThrow"
	FindMany          Operation = "findMany"
	Create            Operation = "create"
	CreateMany        Operation = "createMany"
	Update            Operation = "update"
	UpdateMany        Operation = "updateMany"
	Upsert            Operation = "upsert"
	Delete            Operation = "delete"
	DeleteMany        Operation = "deleteMany"
	Count             Operation = "count"
	AggregateOp       Operation = "aggregate"
	GroupBy           Operation = "groupBy"
	Raw               Operation = "raw"
)

// Order is a single order-by term.
type Order struct {
	Field string
	Desc  bool
}

// Args carries the operation arguments. Fields that do not apply to an
// operation are ignored by its compile path.
type Args struct {
	Where   map[string]any
	Select  []string
	Include map[string]*IncludeArg
	OrderBy []Order
	Take    *int
	Skip    *int

	// ForUpdate requests row locking on read operations.
	ForUpdate bool

	// Data carries column values for create and update.
	Data map[string]any

	// Rows and SkipDuplicates apply to createMany.
	Rows           []map[string]any
	SkipDuplicates bool

	// Create and Update carry the two sides of an upsert.
	Create map[string]any
	Update map[string]any

	// By, Having and Aggregates apply to groupBy and aggregate.
	By         []string
	Having     map[string]any
	Aggregates map[string][]string

	// SQL and Params apply to raw.
	SQL    string
	Params []any
}

// Statement is a rendered SQL string with its ordered parameters.
type Statement struct {
	SQL  string
	Args []any
}

// Fold describes a to-one relation that was joined into the root query.
// Row shaping moves columns carrying the prefix into a nested object
// keyed by the relation name, or nil when the join matched no row.
type Fold struct {
	Relation string
	Prefix   string
	Columns  []string
}

// Compiled is the output of Compile: a root statement plus everything
// the executor needs to run it and shape its result.
type Compiled struct {
	Operation Operation
	Model     string

	// Root is the primary statement of the operation.
	Root Statement

	// Fallback is a two-statement update-then-insert sequence used for
	// upsert when the dialect cannot express the operation natively.
	// The second statement runs only when the first affects no rows.
	Fallback []Statement

	// ReadBack re-reads the written row on dialects without RETURNING.
	// For inserts its single parameter is the generated key.
	ReadBack *Statement

	// Relations are the batched to-many sub-queries of the include tree.
	Relations []*RelationQuery

	// Folds describe to-one relation columns joined into Root.
	Folds []Fold

	// RequireRow makes CheckRows report not-found on an empty result.
	RequireRow bool
}

// CheckRows validates the root result size against the operation
// contract. It returns a not-found error for the OrThrow and single-row
// write operations when no row matched.
func (c *Compiled) CheckRows(n int) error {
	if c.RequireRow && n == 0 {
		return &quarry.NotFoundError{Model: c.Model}
	}
	return nil
}

// Compiler compiles operations against a schema graph for one dialect.
type Compiler struct {
	graph   *schema.Graph
	dialect string
	caps    sql.Capabilities
}

// New returns a compiler for the given graph and dialect.
func New(g *schema.Graph, dialect string) *Compiler {
	return &Compiler{graph: g, dialect: dialect, caps: sql.CapabilitiesFor(dialect)}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() string { return c.dialect }

// Compile builds the statements for one operation. Equal inputs always
// produce identical output.
func (c *Compiler) Compile(op Operation, model string, args Args) (*Compiled, error) {
	if op == Raw {
		return &Compiled{
			Operation: op,
			Model:     model,
			Root:      Statement{SQL: args.SQL, Args: args.Params},
		}, nil
	}
	m, ok := c.graph.Model(model)
	if !ok {
		return nil, &quarry.InvalidArgumentError{Model: model, Operation: string(op), Reason: "unknown model"}
	}
	switch op {
	case FindUnique, FindUniqueOrThrow:
		return c.compileFindUnique(op, m, args)
	case FindFirst, FindFirstOrThrow:
		return c.compileFindFirst(op, m, args)
	case FindMany:
		return c.compileFindMany(op, m, args)
	case Create:
		return c.compileCreate(m, args)
	case CreateMany:
		return c.compileCreateMany(m, args)
	case Update:
		return c.compileUpdate(m, args)
	case UpdateMany:
		return c.compileUpdateMany(m, args)
	case Upsert:
		return c.compileUpsert(m, args)
	case Delete:
		return c.compileDelete(m, args)
	case DeleteMany:
		return c.compileDeleteMany(m, args)
	case Count:
		return c.compileCount(m, args)
	case AggregateOp:
		return c.compileAggregate(m, args)
	case GroupBy:
		return c.compileGroupBy(m, args)
	default:
		return nil, &quarry.UnsupportedOperationError{
			Dialect:   c.dialect,
			Operation: string(op),
			Reason:    "unknown operation",
		}
	}
}

func (c *Compiler) compileFindUnique(op Operation, m *schema.Model, args Args) (*Compiled, error) {
	if err := c.requireUniqueWhere(m, string(op), args.Where); err != nil {
		return nil, err
	}
	if args.ForUpdate && !c.caps.SupportsRowLocking {
		// Row locking silently degrades on dialects without FOR UPDATE.
		args.ForUpdate = false
	}
	compiled, err := c.compileSelect(op, m, args)
	if err != nil {
		return nil, err
	}
	compiled.RequireRow = op == FindUniqueOrThrow
	return compiled, nil
}

func (c *Compiler) compileFindFirst(op Operation, m *schema.Model, args Args) (*Compiled, error) {
	one := 1
	args.Take = &one
	args.Skip = nil
	if args.ForUpdate && !c.caps.SupportsRowLocking {
		args.ForUpdate = false
	}
	compiled, err := c.compileSelect(op, m, args)
	if err != nil {
		return nil, err
	}
	compiled.RequireRow = op == FindFirstOrThrow
	return compiled, nil
}

func (c *Compiler) compileFindMany(op Operation, m *schema.Model, args Args) (*Compiled, error) {
	if args.ForUpdate && !c.caps.SupportsRowLocking {
		args.ForUpdate = false
	}
	return c.compileSelect(op, m, args)
}

func (c *Compiler) compileCreate(m *schema.Model, args Args) (*Compiled, error) {
	if len(args.Data) == 0 {
		return nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: "create", Reason: "data is required"}
	}
	cols, values, err := c.writeValues(m, "create", args.Data)
	if err != nil {
		return nil, err
	}
	insert := sql.Dialect(c.dialect).Insert(m.Table).Columns(cols...).Values(values...)
	compiled := &Compiled{Operation: Create, Model: m.Name}
	if c.caps.SupportsReturning {
		insert.Returning(m.Columns()...)
	} else {
		compiled.ReadBack = c.readBackByKey(m)
	}
	query, qargs := insert.Query()
	if err := insert.Err(); err != nil {
		return nil, err
	}
	compiled.Root = Statement{SQL: query, Args: qargs}
	return compiled, nil
}

func (c *Compiler) compileCreateMany(m *schema.Model, args Args) (*Compiled, error) {
	if len(args.Rows) == 0 {
		return nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: "createMany", Reason: "rows are required"}
	}
	if args.SkipDuplicates && !c.caps.SupportsConflictIgnore {
		return nil, &quarry.UnsupportedOperationError{
			Dialect:   c.dialect,
			Operation: "createMany",
			Reason:    "skipDuplicates is not supported",
		}
	}
	cols, _, err := c.writeValues(m, "createMany", args.Rows[0])
	if err != nil {
		return nil, err
	}
	fields := make([]*schema.Field, len(cols))
	for i, col := range cols {
		fields[i] = c.fieldByColumn(m, col)
	}
	insert := sql.Dialect(c.dialect).Insert(m.Table).Columns(cols...)
	for _, row := range args.Rows {
		if len(row) != len(cols) {
			return nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: "createMany", Reason: "rows must share the same columns"}
		}
		values := make([]any, len(cols))
		for i, f := range fields {
			v, ok := row[f.Name]
			if !ok {
				return nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: "createMany", Reason: "rows must share the same columns"}
			}
			values[i] = v
		}
		insert.Values(values...)
	}
	if args.SkipDuplicates {
		insert.DoNothing()
	}
	query, qargs := insert.Query()
	if err := insert.Err(); err != nil {
		return nil, err
	}
	return &Compiled{
		Operation: CreateMany,
		Model:     m.Name,
		Root:      Statement{SQL: query, Args: qargs},
	}, nil
}

func (c *Compiler) compileUpdate(m *schema.Model, args Args) (*Compiled, error) {
	if err := c.requireUniqueWhere(m, "update", args.Where); err != nil {
		return nil, err
	}
	if len(args.Data) == 0 {
		return nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: "update", Reason: "data is required"}
	}
	pred, err := c.normalizeWhere(m, args.Where)
	if err != nil {
		return nil, err
	}
	update := sql.Dialect(c.dialect).Update(m.Table)
	if err := c.applySet(m, "update", update, args.Data); err != nil {
		return nil, err
	}
	p, err := c.renderPredicate(m, m.Table, pred)
	if err != nil {
		return nil, err
	}
	update.Where(p)
	compiled := &Compiled{Operation: Update, Model: m.Name, RequireRow: true}
	if c.caps.SupportsReturning {
		update.Returning(m.Columns()...)
	} else {
		readBack, err := c.compileSelect(FindUnique, m, Args{Where: args.Where})
		if err != nil {
			return nil, err
		}
		compiled.ReadBack = &readBack.Root
	}
	query, qargs := update.Query()
	if err := update.Err(); err != nil {
		return nil, err
	}
	compiled.Root = Statement{SQL: query, Args: qargs}
	return compiled, nil
}

func (c *Compiler) compileUpdateMany(m *schema.Model, args Args) (*Compiled, error) {
	if len(args.Data) == 0 {
		return nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: "updateMany", Reason: "data is required"}
	}
	pred, err := c.normalizeWhere(m, args.Where)
	if err != nil {
		return nil, err
	}
	update := sql.Dialect(c.dialect).Update(m.Table)
	if err := c.applySet(m, "updateMany", update, args.Data); err != nil {
		return nil, err
	}
	if pred != nil {
		p, err := c.renderPredicate(m, m.Table, pred)
		if err != nil {
			return nil, err
		}
		update.Where(p)
	}
	query, qargs := update.Query()
	if err := update.Err(); err != nil {
		return nil, err
	}
	return &Compiled{
		Operation: UpdateMany,
		Model:     m.Name,
		Root:      Statement{SQL: query, Args: qargs},
	}, nil
}

func (c *Compiler) compileUpsert(m *schema.Model, args Args) (*Compiled, error) {
	if err := c.requireUniqueWhere(m, "upsert", args.Where); err != nil {
		return nil, err
	}
	if len(args.Create) == 0 || len(args.Update) == 0 {
		return nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: "upsert", Reason: "create and update are required"}
	}
	conflictCols, narrow, err := c.conflictTarget(m, args.Where)
	if err != nil {
		return nil, err
	}
	compiled := &Compiled{Operation: Upsert, Model: m.Name}
	// A filter that narrows beyond the conflict target needs a WHERE on
	// the conflict update. Dialects without that form fall back to an
	// explicit update-then-insert sequence.
	if !narrow || c.caps.SupportsUpsertWhere {
		cols, values, err := c.writeValues(m, "upsert", args.Create)
		if err != nil {
			return nil, err
		}
		insert := sql.Dialect(c.dialect).Insert(m.Table).Columns(cols...).Values(values...)
		insert.OnConflictColumns(conflictCols...)
		updateCols, updateValues, err := c.writeValues(m, "upsert", args.Update)
		if err != nil {
			return nil, err
		}
		for i, col := range updateCols {
			insert.UpdateSet(col, updateValues[i])
		}
		if narrow {
			pred, err := c.normalizeWhere(m, args.Where)
			if err != nil {
				return nil, err
			}
			p, err := c.renderPredicate(m, m.Table, pred)
			if err != nil {
				return nil, err
			}
			insert.UpdateWhere(p)
		}
		if c.caps.SupportsReturning {
			insert.Returning(m.Columns()...)
		} else {
			readBack, err := c.compileSelect(FindUnique, m, Args{Where: args.Where})
			if err != nil {
				return nil, err
			}
			compiled.ReadBack = &readBack.Root
		}
		query, qargs := insert.Query()
		if err := insert.Err(); err != nil {
			return nil, err
		}
		compiled.Root = Statement{SQL: query, Args: qargs}
		return compiled, nil
	}
	// Fallback sequence: UPDATE by the full filter, then INSERT only
	// when the update matched nothing. Not atomic without an enclosing
	// transaction.
	pred, err := c.normalizeWhere(m, args.Where)
	if err != nil {
		return nil, err
	}
	update := sql.Dialect(c.dialect).Update(m.Table)
	if err := c.applySet(m, "upsert", update, args.Update); err != nil {
		return nil, err
	}
	p, err := c.renderPredicate(m, m.Table, pred)
	if err != nil {
		return nil, err
	}
	update.Where(p)
	updateQuery, updateArgs := update.Query()
	if err := update.Err(); err != nil {
		return nil, err
	}
	cols, values, err := c.writeValues(m, "upsert", args.Create)
	if err != nil {
		return nil, err
	}
	insert := sql.Dialect(c.dialect).Insert(m.Table).Columns(cols...).Values(values...)
	insertQuery, insertArgs := insert.Query()
	if err := insert.Err(); err != nil {
		return nil, err
	}
	compiled.Fallback = []Statement{
		{SQL: updateQuery, Args: updateArgs},
		{SQL: insertQuery, Args: insertArgs},
	}
	readBack, err := c.compileSelect(FindUnique, m, Args{Where: args.Where})
	if err != nil {
		return nil, err
	}
	compiled.ReadBack = &readBack.Root
	return compiled, nil
}

func (c *Compiler) compileDelete(m *schema.Model, args Args) (*Compiled, error) {
	if err := c.requireUniqueWhere(m, "delete", args.Where); err != nil {
		return nil, err
	}
	pred, err := c.normalizeWhere(m, args.Where)
	if err != nil {
		return nil, err
	}
	del := sql.Dialect(c.dialect).Delete(m.Table)
	p, err := c.renderPredicate(m, m.Table, pred)
	if err != nil {
		return nil, err
	}
	del.Where(p)
	compiled := &Compiled{Operation: Delete, Model: m.Name, RequireRow: true}
	if !c.caps.SupportsReturning {
		// Without RETURNING the row is read before it is deleted.
		readBack, err := c.compileSelect(FindUnique, m, Args{Where: args.Where})
		if err != nil {
			return nil, err
		}
		compiled.ReadBack = &readBack.Root
	}
	if c.caps.SupportsReturning {
		del.Returning(m.Columns()...)
	}
	query, qargs := del.Query()
	if err := del.Err(); err != nil {
		return nil, err
	}
	compiled.Root = Statement{SQL: query, Args: qargs}
	return compiled, nil
}

func (c *Compiler) compileDeleteMany(m *schema.Model, args Args) (*Compiled, error) {
	pred, err := c.normalizeWhere(m, args.Where)
	if err != nil {
		return nil, err
	}
	del := sql.Dialect(c.dialect).Delete(m.Table)
	if pred != nil {
		p, err := c.renderPredicate(m, m.Table, pred)
		if err != nil {
			return nil, err
		}
		del.Where(p)
	}
	query, qargs := del.Query()
	if err := del.Err(); err != nil {
		return nil, err
	}
	return &Compiled{
		Operation: DeleteMany,
		Model:     m.Name,
		Root:      Statement{SQL: query, Args: qargs},
	}, nil
}

func (c *Compiler) compileCount(m *schema.Model, args Args) (*Compiled, error) {
	pred, err := c.normalizeWhere(m, args.Where)
	if err != nil {
		return nil, err
	}
	sel := sql.Dialect(c.dialect).Select(sql.As(sql.Count("*"), "_count")).From(sql.Table(m.Table))
	if pred != nil {
		p, err := c.renderPredicate(m, m.Table, pred)
		if err != nil {
			return nil, err
		}
		sel.Where(p)
	}
	query, qargs := sel.Query()
	if err := sel.Err(); err != nil {
		return nil, err
	}
	return &Compiled{
		Operation: Count,
		Model:     m.Name,
		Root:      Statement{SQL: query, Args: qargs},
	}, nil
}

func (c *Compiler) compileAggregate(m *schema.Model, args Args) (*Compiled, error) {
	cols, err := c.aggregateColumns(m, args.Aggregates)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: "aggregate", Reason: "at least one aggregate is required"}
	}
	pred, err := c.normalizeWhere(m, args.Where)
	if err != nil {
		return nil, err
	}
	sel := sql.Dialect(c.dialect).Select(cols...).From(sql.Table(m.Table))
	if pred != nil {
		p, err := c.renderPredicate(m, m.Table, pred)
		if err != nil {
			return nil, err
		}
		sel.Where(p)
	}
	query, qargs := sel.Query()
	if err := sel.Err(); err != nil {
		return nil, err
	}
	return &Compiled{
		Operation: AggregateOp,
		Model:     m.Name,
		Root:      Statement{SQL: query, Args: qargs},
	}, nil
}

func (c *Compiler) compileGroupBy(m *schema.Model, args Args) (*Compiled, error) {
	if len(args.By) == 0 {
		return nil, &quarry.InvalidGroupByError{Model: m.Name, Reason: "by must name at least one field"}
	}
	byCols := make([]string, 0, len(args.By))
	bySet := make(map[string]bool, len(args.By))
	for _, name := range args.By {
		f, ok := m.Field(name)
		if !ok {
			return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: name, Reason: "unknown field"}
		}
		byCols = append(byCols, f.ColumnName())
		bySet[name] = true
	}
	aggCols, err := c.aggregateColumns(m, args.Aggregates)
	if err != nil {
		return nil, err
	}
	pred, err := c.normalizeWhere(m, args.Where)
	if err != nil {
		return nil, err
	}
	sel := sql.Dialect(c.dialect).Select(append(append([]string{}, byCols...), aggCols...)...).
		From(sql.Table(m.Table)).
		GroupBy(byCols...)
	if pred != nil {
		p, err := c.renderPredicate(m, m.Table, pred)
		if err != nil {
			return nil, err
		}
		sel.Where(p)
	}
	if len(args.Having) > 0 {
		having, err := c.normalizeHaving(m, bySet, args.Having)
		if err != nil {
			return nil, err
		}
		hp, err := c.renderPredicate(m, m.Table, having)
		if err != nil {
			return nil, err
		}
		sel.Having(hp)
	}
	for _, o := range args.OrderBy {
		f, ok := m.Field(o.Field)
		if !ok || !bySet[o.Field] {
			return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: o.Field, Reason: "order by must reference a grouped field"}
		}
		if o.Desc {
			sel.OrderBy(sql.Desc(f.ColumnName()))
		} else {
			sel.OrderBy(sql.Asc(f.ColumnName()))
		}
	}
	if args.Take != nil {
		sel.Limit(*args.Take)
	}
	if args.Skip != nil {
		sel.Offset(*args.Skip)
	}
	query, qargs := sel.Query()
	if err := sel.Err(); err != nil {
		return nil, err
	}
	return &Compiled{
		Operation: GroupBy,
		Model:     m.Name,
		Root:      Statement{SQL: query, Args: qargs},
	}, nil
}

// normalizeHaving normalizes a groupBy having filter. Plain comparisons
// may reference grouped fields only; aggregate references use the
// _count/_sum/_avg/_min/_max keys.
func (c *Compiler) normalizeHaving(m *schema.Model, bySet map[string]bool, raw map[string]any) (Predicate, error) {
	var preds []Predicate
	for _, key := range sortedKeys(raw) {
		value := raw[key]
		switch key {
		case "_count", "_sum", "_avg", "_min", "_max":
			agg, err := c.normalizeAggregateFilter(m, key, value)
			if err != nil {
				return nil, err
			}
			preds = append(preds, agg...)
		default:
			f, ok := m.Field(key)
			if !ok {
				return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: key, Reason: "unknown field in having"}
			}
			if !bySet[key] {
				return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: key, Reason: "having may only reference grouped fields or aggregates"}
			}
			p, err := c.normalizeField(m, f, value)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
	}
	switch len(preds) {
	case 0:
		return nil, &quarry.InvalidGroupByError{Model: m.Name, Reason: "having is empty"}
	case 1:
		return preds[0], nil
	default:
		return &And{Preds: preds}, nil
	}
}

// normalizeAggregateFilter normalizes one aggregate key of a having
// filter, e.g. {"_sum": {"views": {"gt": 100}}} or {"_count": {"gt": 5}}.
func (c *Compiler) normalizeAggregateFilter(m *schema.Model, fn string, value any) ([]Predicate, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: fn, Reason: "aggregate filter must be an object"}
	}
	name := fn[1:]
	// _count may compare the row count directly.
	if fn == "_count" {
		if _, direct := firstOpKey(obj); direct {
			p, err := c.aggregateComparison(m, name, nil, obj)
			if err != nil {
				return nil, err
			}
			return []Predicate{p}, nil
		}
	}
	var preds []Predicate
	for _, key := range sortedKeys(obj) {
		f, ok := m.Field(key)
		if !ok {
			return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: key, Reason: "unknown field in aggregate filter"}
		}
		ops, ok := obj[key].(map[string]any)
		if !ok {
			return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: key, Reason: "aggregate filter must use comparison operators"}
		}
		p, err := c.aggregateComparison(m, name, f, ops)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if len(preds) == 0 {
		return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: fn, Reason: "aggregate filter is empty"}
	}
	return preds, nil
}

func (c *Compiler) aggregateComparison(m *schema.Model, fn string, f *schema.Field, ops map[string]any) (Predicate, error) {
	var preds []Predicate
	for _, name := range sortedKeys(ops) {
		op := Op(name)
		switch op {
		case OpEquals, OpNotEquals, OpLT, OpLTE, OpGT, OpGTE:
		default:
			target := fn
			if f != nil {
				target = f.Name
			}
			return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: target, Reason: "unsupported aggregate operator " + name}
		}
		preds = append(preds, &Aggregate{Fn: fn, Field: f, Op: op, Value: ops[name]})
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return &And{Preds: preds}, nil
}

// firstOpKey reports whether the object looks like a bare operator map,
// i.e. its keys are comparison operators rather than field names.
func firstOpKey(obj map[string]any) (string, bool) {
	for _, key := range sortedKeys(obj) {
		switch Op(key) {
		case OpEquals, OpNotEquals, OpLT, OpLTE, OpGT, OpGTE:
			return key, true
		}
		return key, false
	}
	return "", false
}

// aggregateColumns renders the select list of aggregate and groupBy,
// e.g. {"_sum": ["views"]} becomes SUM(views) AS _sum_views.
func (c *Compiler) aggregateColumns(m *schema.Model, aggregates map[string][]string) ([]string, error) {
	var cols []string
	for _, fn := range sortedKeys(aggregates) {
		fields := aggregates[fn]
		var build func(string) string
		switch fn {
		case "_count":
			build = sql.Count
		case "_sum":
			build = sql.Sum
		case "_avg":
			build = sql.Avg
		case "_min":
			build = sql.Min
		case "_max":
			build = sql.Max
		default:
			return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: fn, Reason: "unknown aggregate"}
		}
		sorted := append([]string{}, fields...)
		sort.Strings(sorted)
		for _, name := range sorted {
			if name == "*" || name == "_all" {
				if fn != "_count" {
					return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: fn, Reason: "only _count may aggregate all rows"}
				}
				cols = append(cols, sql.As(build("*"), "_count"))
				continue
			}
			f, ok := m.Field(name)
			if !ok {
				return nil, &quarry.UnknownFieldError{Model: m.Name, Field: name}
			}
			if fn == "_sum" || fn == "_avg" {
				if !f.Kind.Numeric() {
					return nil, &quarry.InvalidGroupByError{Model: m.Name, Field: name, Reason: fn + " requires a numeric field"}
				}
			}
			cols = append(cols, sql.As(build(f.ColumnName()), fn+"_"+f.ColumnName()))
		}
	}
	return cols, nil
}

// requireUniqueWhere validates that the filter pins down at most one
// row: its top-level equality keys must cover the id field or one of
// the model's unique constraints.
func (c *Compiler) requireUniqueWhere(m *schema.Model, op string, where map[string]any) error {
	if len(where) == 0 {
		return &quarry.InvalidArgumentError{Model: m.Name, Operation: op, Reason: "where is required"}
	}
	names := make([]string, 0, len(where))
	for _, key := range sortedKeys(where) {
		f, ok := m.Field(key)
		if !ok {
			if _, isRel := m.Relation(key); isRel {
				continue
			}
			switch key {
			case "AND", "OR", "NOT":
				continue
			}
			return &quarry.UnknownFieldError{Model: m.Name, Field: key}
		}
		if _, isObj := where[key].(map[string]any); isObj {
			continue
		}
		names = append(names, f.Name)
	}
	if !m.UniqueColumns(names) {
		return &quarry.InvalidArgumentError{Model: m.Name, Operation: op, Reason: "where must match a unique constraint"}
	}
	return nil
}

// conflictTarget derives the upsert conflict columns from the filter
// and reports whether the filter narrows beyond them.
func (c *Compiler) conflictTarget(m *schema.Model, where map[string]any) ([]string, bool, error) {
	eq := make([]string, 0, len(where))
	extra := false
	for _, key := range sortedKeys(where) {
		f, ok := m.Field(key)
		if !ok {
			extra = true
			continue
		}
		if _, isObj := where[key].(map[string]any); isObj {
			extra = true
			continue
		}
		eq = append(eq, f.Name)
	}
	target := m.UniqueCover(eq)
	if target == nil {
		return nil, false, &quarry.InvalidArgumentError{Model: m.Name, Operation: "upsert", Reason: "where must match a unique constraint"}
	}
	if len(eq) > len(target) {
		extra = true
	}
	return target, extra, nil
}

// writeValues maps a data object to sorted column names and values.
func (c *Compiler) writeValues(m *schema.Model, op string, data map[string]any) ([]string, []any, error) {
	cols := make([]string, 0, len(data))
	values := make([]any, 0, len(data))
	for _, key := range sortedKeys(data) {
		f, ok := m.Field(key)
		if !ok {
			if _, isRel := m.Relation(key); isRel {
				return nil, nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: op, Reason: "nested writes are not supported: " + key}
			}
			return nil, nil, &quarry.UnknownFieldError{Model: m.Name, Field: key}
		}
		if data[key] == nil && !f.Nullable {
			return nil, nil, &quarry.InvalidArgumentError{Model: m.Name, Operation: op, Reason: key + " is not nullable"}
		}
		cols = append(cols, f.ColumnName())
		values = append(values, data[key])
	}
	return cols, values, nil
}

// applySet applies a data object to an update builder in sorted order.
func (c *Compiler) applySet(m *schema.Model, op string, u *sql.UpdateBuilder, data map[string]any) error {
	cols, values, err := c.writeValues(m, op, data)
	if err != nil {
		return err
	}
	for i, col := range cols {
		if values[i] == nil {
			u.SetNull(col)
		} else {
			u.Set(col, values[i])
		}
	}
	return nil
}

// readBackByKey builds a parameterized select by the id column with a
// single placeholder for the generated key.
func (c *Compiler) readBackByKey(m *schema.Model) *Statement {
	id := m.ID()
	sel := sql.Dialect(c.dialect).
		Select(m.Columns()...).
		From(sql.Table(m.Table)).
		Where(sql.EQ(id.ColumnName(), sql.Expr(placeholder(c.dialect, 1))))
	query, _ := sel.Query()
	return &Statement{SQL: query}
}

func (c *Compiler) fieldByColumn(m *schema.Model, col string) *schema.Field {
	for _, f := range m.Fields {
		if f.ColumnName() == col {
			return f
		}
	}
	return nil
}

func placeholder(name string, n int) string {
	if sql.CapabilitiesFor(name).PlaceholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Package schema holds the resolved model metadata consumed by the
// query compiler.
//
// The values here are plain descriptions of tables, fields and
// relations. They are produced by the schema-definition layer (or
// loaded from YAML documents) and treated as immutable by the compiler.
package schema

import "fmt"

// Kind is the scalar kind of a field.
type Kind int

// Scalar kinds.
const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindInt64
	KindFloat
	KindBool
	KindTime
	KindUUID
	KindBytes
	KindJSON
	KindEnum
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindString:  "string",
	KindInt:     "int",
	KindInt64:   "int64",
	KindFloat:   "float",
	KindBool:    "bool",
	KindTime:    "time",
	KindUUID:    "uuid",
	KindBytes:   "bytes",
	KindJSON:    "json",
	KindEnum:    "enum",
}

// String returns the kind name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindInvalid]
	}
	return kindNames[k]
}

// Comparable reports whether the kind supports equality operators.
func (k Kind) Comparable() bool { return k != KindInvalid }

// Orderable reports whether the kind supports lt/lte/gt/gte operators.
func (k Kind) Orderable() bool {
	switch k {
	case KindString, KindInt, KindInt64, KindFloat, KindTime:
		return true
	}
	return false
}

// Textual reports whether the kind supports substring operators.
func (k Kind) Textual() bool { return k == KindString }

// Numeric reports whether the kind supports numeric aggregations.
func (k Kind) Numeric() bool {
	switch k {
	case KindInt, KindInt64, KindFloat:
		return true
	}
	return false
}

// Field is a resolved scalar field of a model.
type Field struct {
	// Name is the logical field name used in query arguments.
	Name string
	// Column is the database column name. Defaults to Name.
	Column string
	// Kind is the scalar kind of the field.
	Kind Kind
	// Nullable indicates the column accepts NULL.
	Nullable bool
	// Array indicates an array-typed column.
	Array bool
	// Unique indicates a single-column unique constraint.
	Unique bool
	// ID indicates the primary-key field.
	ID bool
}

// ColumnName returns the column the field maps to.
func (f *Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// RelationKind describes how two models relate.
type RelationKind int

// Relation kinds.
const (
	// O2O is a one-to-one relation. The foreign key lives on the
	// related table.
	O2O RelationKind = iota
	// M2O is a many-to-one relation. The foreign key lives on the
	// owning table.
	M2O
	// O2M is a one-to-many relation.
	O2M
	// M2M is a many-to-many relation through a pivot table.
	M2M
)

var relationNames = [...]string{
	O2O: "one-to-one",
	M2O: "many-to-one",
	O2M: "one-to-many",
	M2M: "many-to-many",
}

// String returns a readable relation kind name.
func (k RelationKind) String() string {
	if k < 0 || int(k) >= len(relationNames) {
		return "unknown"
	}
	return relationNames[k]
}

// ToMany reports whether the relation resolves to multiple rows.
func (k RelationKind) ToMany() bool { return k == O2M || k == M2M }

// Relation is a resolved relation of a model.
type Relation struct {
	// Name is the logical relation name used in include/filter arguments.
	Name string
	// Kind is the relation kind.
	Kind RelationKind
	// Target is the related model name.
	Target string
	// LocalKey is the column on the owning table that participates in
	// the join. For O2M/O2O it is usually the primary key.
	LocalKey string
	// ForeignKey is the column on the related table (or, for M2O, the
	// target column the local key points to).
	ForeignKey string
	// PivotTable names the join table of an M2M relation.
	PivotTable string
	// PivotLocalColumn is the pivot column referencing the owning table.
	PivotLocalColumn string
	// PivotForeignColumn is the pivot column referencing the related table.
	PivotForeignColumn string
}

// Index is a resolved table index. Columns hold field names, not
// database column names.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Model is an immutable description of a table.
type Model struct {
	// Name is the logical model name.
	Name string
	// Table is the database table name.
	Table string
	// Fields is the scalar field list.
	Fields []*Field
	// Relations is the relation list.
	Relations []*Relation
	// Indexes is the index and unique-constraint list.
	Indexes []*Index
}

// Field returns the field with the given name.
func (m *Model) Field(name string) (*Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Relation returns the relation with the given name.
func (m *Model) Relation(name string) (*Relation, bool) {
	for _, r := range m.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// ID returns the primary-key field of the model, or nil.
func (m *Model) ID() *Field {
	for _, f := range m.Fields {
		if f.ID {
			return f
		}
	}
	return nil
}

// Columns returns the column names of all scalar fields, in field order.
func (m *Model) Columns() []string {
	cols := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		cols = append(cols, f.ColumnName())
	}
	return cols
}

// UniqueColumns reports whether the given field names contain a unique
// constraint, so that a filter over them matches at most one row.
func (m *Model) UniqueColumns(names []string) bool {
	return m.UniqueCover(names) != nil
}

// UniqueCover returns the database columns of a unique constraint fully
// contained in the given field names, or nil when no constraint is
// covered. A single unique (or id) field wins over a composite index.
func (m *Model) UniqueCover(names []string) []string {
	for _, name := range names {
		if f, ok := m.Field(name); ok && (f.ID || f.Unique) {
			return []string{f.ColumnName()}
		}
	}
	for _, idx := range m.Indexes {
		if !idx.Unique || !subset(idx.Columns, names) {
			continue
		}
		cols := make([]string, 0, len(idx.Columns))
		for _, n := range idx.Columns {
			if f, ok := m.Field(n); ok {
				cols = append(cols, f.ColumnName())
			} else {
				cols = append(cols, n)
			}
		}
		return cols
	}
	return nil
}

// subset reports whether every element of a appears in b.
func subset(a, b []string) bool {
	if len(a) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		seen[s] = struct{}{}
	}
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			return false
		}
	}
	return true
}

// Graph is a named set of models. It is built once and read-only
// afterwards, so concurrent compilations can share it freely.
type Graph struct {
	models map[string]*Model
	names  []string
}

// NewGraph builds a Graph from the given models and validates the
// relation wiring between them.
func NewGraph(models ...*Model) (*Graph, error) {
	g := &Graph{models: make(map[string]*Model, len(models))}
	for _, m := range models {
		if _, ok := g.models[m.Name]; ok {
			return nil, fmt.Errorf("schema: duplicate model %q", m.Name)
		}
		g.models[m.Name] = m
		g.names = append(g.names, m.Name)
	}
	for _, m := range models {
		seen := make(map[string]struct{}, len(m.Fields))
		for _, f := range m.Fields {
			if _, ok := seen[f.Name]; ok {
				return nil, fmt.Errorf("schema: model %q: duplicate field %q", m.Name, f.Name)
			}
			seen[f.Name] = struct{}{}
		}
		for _, r := range m.Relations {
			if _, ok := g.models[r.Target]; !ok {
				return nil, fmt.Errorf("schema: model %q: relation %q targets unknown model %q", m.Name, r.Name, r.Target)
			}
			if _, ok := seen[r.Name]; ok {
				return nil, fmt.Errorf("schema: model %q: relation %q shadows a field", m.Name, r.Name)
			}
			if r.Kind == M2M && r.PivotTable == "" {
				return nil, fmt.Errorf("schema: model %q: many-to-many relation %q requires a pivot table", m.Name, r.Name)
			}
			if r.Kind != M2M && (r.LocalKey == "" || r.ForeignKey == "") {
				return nil, fmt.Errorf("schema: model %q: relation %q is missing join keys", m.Name, r.Name)
			}
		}
	}
	return g, nil
}

// Model returns the model with the given name.
func (g *Graph) Model(name string) (*Model, bool) {
	m, ok := g.models[name]
	return m, ok
}

// Models returns the model names in registration order.
func (g *Graph) Models() []string {
	return append([]string(nil), g.names...)
}

package compiler

import "github.com/syssam/quarry/schema"

// Op is a leaf comparison operator of the filter grammar.
type Op string

// Leaf operators. The set valid for a given field depends on its
// scalar kind; see operatorAllowed.
const (
	OpEquals     Op = "equals"
	OpNotEquals  Op = "not"
	OpIn         Op = "in"
	OpNotIn      Op = "notIn"
	OpLT         Op = "lt"
	OpLTE        Op = "lte"
	OpGT         Op = "gt"
	OpGTE        Op = "gte"
	OpContains   Op = "contains"
	OpStartsWith Op = "startsWith"
	OpEndsWith   Op = "endsWith"
	// OpIsNull and OpNotNull are produced by normalization of null
	// comparisons; they never appear in raw filters.
	OpIsNull  Op = "isNull"
	OpNotNull Op = "notNull"
)

// Quantifier scopes a nested predicate to a relation.
type Quantifier string

// Relation quantifiers. some/every/none apply to to-many relations,
// is/isNot to to-one relations.
const (
	QuantSome  Quantifier = "some"
	QuantEvery Quantifier = "every"
	QuantNone  Quantifier = "none"
	QuantIs    Quantifier = "is"
	QuantIsNot Quantifier = "isNot"
)

// Predicate is a node of the canonical predicate tree produced by
// filter normalization. It is a closed sum: Comparison and Aggregate
// leaves, And/Or/Not composites, and Relation quantifier nodes.
type Predicate interface {
	predicate()
}

// Comparison is a leaf comparing a scalar field against a value.
type Comparison struct {
	Field *schema.Field
	Op    Op
	Value any
}

// Aggregate is a leaf comparing an aggregated value, used in HAVING
// predicates. A nil Field denotes COUNT(*).
type Aggregate struct {
	Fn    string
	Field *schema.Field
	Op    Op
	Value any
}

// And combines its children conjunctively.
type And struct {
	Preds []Predicate
}

// Or combines its children disjunctively.
type Or struct {
	Preds []Predicate
}

// Not negates its child.
type Not struct {
	Pred Predicate
}

// Relation scopes a nested predicate to a related model. A nil Pred
// quantifies over the bare existence of related rows.
type Relation struct {
	Relation *schema.Relation
	Target   *schema.Model
	Quant    Quantifier
	Pred     Predicate
}

func (*Comparison) predicate() {}
func (*Aggregate) predicate()  {}
func (*And) predicate()        {}
func (*Or) predicate()         {}
func (*Not) predicate()        {}
func (*Relation) predicate()   {}

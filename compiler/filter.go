package compiler

import (
	"sort"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/schema"
)

// normalizeWhere turns a raw filter object into a canonical predicate
// tree, validated against the model metadata. Map keys are visited in
// sorted order so that compilation is deterministic for equal inputs.
func (c *Compiler) normalizeWhere(m *schema.Model, raw map[string]any) (Predicate, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var preds []Predicate
	for _, key := range sortedKeys(raw) {
		value := raw[key]
		switch key {
		case "AND", "OR", "NOT":
			children, err := c.normalizeList(m, key, value)
			if err != nil {
				return nil, err
			}
			if len(children) == 0 {
				continue
			}
			switch key {
			case "AND":
				preds = append(preds, &And{Preds: children})
			case "OR":
				preds = append(preds, &Or{Preds: children})
			case "NOT":
				// NOT over a list negates the conjunction.
				preds = append(preds, &Not{Pred: &And{Preds: children}})
			}
		default:
			if f, ok := m.Field(key); ok {
				p, err := c.normalizeField(m, f, value)
				if err != nil {
					return nil, err
				}
				preds = append(preds, p)
				continue
			}
			if r, ok := m.Relation(key); ok {
				p, err := c.normalizeRelation(m, r, value)
				if err != nil {
					return nil, err
				}
				preds = append(preds, p)
				continue
			}
			return nil, &quarry.UnknownFieldError{Model: m.Name, Field: key}
		}
	}
	switch len(preds) {
	case 0:
		return nil, nil
	case 1:
		return preds[0], nil
	default:
		return &And{Preds: preds}, nil
	}
}

// normalizeList normalizes the operand of a composite node. A single
// filter object is treated as a one-element list.
func (c *Compiler) normalizeList(m *schema.Model, key string, value any) ([]Predicate, error) {
	var items []map[string]any
	switch v := value.(type) {
	case map[string]any:
		items = []map[string]any{v}
	case []map[string]any:
		items = v
	case []any:
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: key, Operator: key, Value: item}
			}
			items = append(items, obj)
		}
	default:
		return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: key, Operator: key, Value: value}
	}
	preds := make([]Predicate, 0, len(items))
	for _, item := range items {
		p, err := c.normalizeWhere(m, item)
		if err != nil {
			return nil, err
		}
		if p != nil {
			preds = append(preds, p)
		}
	}
	return preds, nil
}

// normalizeField normalizes a scalar field filter. A bare value is
// shorthand for {equals: value}.
func (c *Compiler) normalizeField(m *schema.Model, f *schema.Field, value any) (Predicate, error) {
	ops, ok := value.(map[string]any)
	if !ok {
		return c.comparison(m, f, OpEquals, value)
	}
	var preds []Predicate
	for _, name := range sortedKeys(ops) {
		opValue := ops[name]
		op := Op(name)
		switch op {
		case OpEquals, OpIn, OpNotIn, OpLT, OpLTE, OpGT, OpGTE, OpContains, OpStartsWith, OpEndsWith:
			p, err := c.comparison(m, f, op, opValue)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		case OpNotEquals:
			p, err := c.normalizeNot(m, f, opValue)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		default:
			return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: f.Name, Operator: name, Value: opValue}
		}
	}
	switch len(preds) {
	case 0:
		return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: f.Name, Operator: "equals", Value: value}
	case 1:
		return preds[0], nil
	default:
		return &And{Preds: preds}, nil
	}
}

// normalizeNot normalizes the "not" operator: a nil operand compiles to
// IS NOT NULL, a scalar to an inequality, and a nested operator object
// to a negated sub-tree.
func (c *Compiler) normalizeNot(m *schema.Model, f *schema.Field, value any) (Predicate, error) {
	switch v := value.(type) {
	case nil:
		if !f.Nullable {
			return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: f.Name, Operator: "not", Value: nil}
		}
		return &Comparison{Field: f, Op: OpNotNull}, nil
	case map[string]any:
		p, err := c.normalizeField(m, f, v)
		if err != nil {
			return nil, err
		}
		return &Not{Pred: p}, nil
	default:
		return c.comparison(m, f, OpNotEquals, v)
	}
}

// comparison builds a validated comparison leaf. Null comparisons are
// rewritten to IS [NOT] NULL; an equality against NULL is never kept.
func (c *Compiler) comparison(m *schema.Model, f *schema.Field, op Op, value any) (Predicate, error) {
	if value == nil {
		if op != OpEquals {
			return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: f.Name, Operator: string(op), Value: nil}
		}
		if !f.Nullable {
			return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: f.Name, Operator: string(op), Value: nil}
		}
		return &Comparison{Field: f, Op: OpIsNull}, nil
	}
	if !operatorAllowed(f.Kind, op) {
		return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: f.Name, Operator: string(op), Value: value}
	}
	if op == OpIn || op == OpNotIn {
		vs, ok := value.([]any)
		if !ok {
			return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: f.Name, Operator: string(op), Value: value}
		}
		value = vs
	}
	return &Comparison{Field: f, Op: op, Value: value}, nil
}

// normalizeRelation normalizes a relation filter. To-many relations
// accept the some/every/none quantifiers; to-one relations accept
// is/isNot, or a bare filter object as shorthand for is.
func (c *Compiler) normalizeRelation(m *schema.Model, r *schema.Relation, value any) (Predicate, error) {
	target, ok := c.graph.Model(r.Target)
	if !ok {
		return nil, &quarry.UnknownRelationError{Model: m.Name, Relation: r.Name}
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: r.Name, Operator: "equals", Value: value}
	}
	quantifiers := make(map[Quantifier]map[string]any)
	plain := make(map[string]any)
	for _, key := range sortedKeys(obj) {
		switch q := Quantifier(key); q {
		case QuantSome, QuantEvery, QuantNone, QuantIs, QuantIsNot:
			nested, ok := obj[key].(map[string]any)
			if !ok && obj[key] != nil {
				return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: r.Name, Operator: key, Value: obj[key]}
			}
			quantifiers[q] = nested
		default:
			plain[key] = obj[key]
		}
	}
	if len(plain) > 0 && len(quantifiers) > 0 {
		return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: r.Name, Operator: "mixed", Value: value}
	}
	if len(plain) > 0 {
		// Bare filter object on a to-one relation is shorthand for "is".
		if r.Kind.ToMany() {
			return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: r.Name, Operator: "is", Value: value}
		}
		quantifiers = map[Quantifier]map[string]any{QuantIs: plain}
	}
	var preds []Predicate
	for _, q := range []Quantifier{QuantEvery, QuantIs, QuantIsNot, QuantNone, QuantSome} {
		nested, ok := quantifiers[q]
		if !ok {
			continue
		}
		switch {
		case r.Kind.ToMany() && (q == QuantIs || q == QuantIsNot):
			return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: r.Name, Operator: string(q), Value: value}
		case !r.Kind.ToMany() && (q == QuantSome || q == QuantEvery || q == QuantNone):
			return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: r.Name, Operator: string(q), Value: value}
		}
		p, err := c.normalizeWhere(target, nested)
		if err != nil {
			return nil, err
		}
		preds = append(preds, &Relation{Relation: r, Target: target, Quant: q, Pred: p})
	}
	switch len(preds) {
	case 0:
		return nil, &quarry.UnsupportedOperatorError{Model: m.Name, Field: r.Name, Operator: "equals", Value: value}
	case 1:
		return preds[0], nil
	default:
		return &And{Preds: preds}, nil
	}
}

// operatorAllowed reports whether the operator is valid for the kind.
func operatorAllowed(k schema.Kind, op Op) bool {
	switch op {
	case OpEquals, OpNotEquals, OpIn, OpNotIn:
		return k.Comparable()
	case OpLT, OpLTE, OpGT, OpGTE:
		return k.Orderable()
	case OpContains, OpStartsWith, OpEndsWith:
		return k.Textual()
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

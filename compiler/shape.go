package compiler

import "fmt"

// The shaping helpers turn flat result rows into nested objects. They
// are pure functions over scanned rows: the executor owns all I/O.

// FoldRows folds the prefixed to-one relation columns of each row into
// a nested object under the relation name. A joined relation with no
// matching row (every folded column NULL) becomes an explicit nil.
func FoldRows(folds []Fold, rows []map[string]any) {
	for _, row := range rows {
		for _, fold := range folds {
			nested := make(map[string]any, len(fold.Columns))
			empty := true
			for _, col := range fold.Columns {
				v := row[col]
				delete(row, col)
				if v != nil {
					empty = false
				}
				nested[col[len(fold.Prefix):]] = v
			}
			if empty {
				row[fold.Relation] = nil
			} else {
				row[fold.Relation] = nested
			}
		}
	}
}

// ParentKeys collects the batching key values of the parent rows,
// deduplicated in first-seen order so the rendered IN list is
// deterministic for a given result.
func ParentKeys(rows []map[string]any, column string) []any {
	keys := make([]any, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		v := row[column]
		if v == nil {
			continue
		}
		k := keyOf(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}

// Attach groups the child rows of a batched relation query by their
// parent key and attaches each group to its parent row. To-many
// relations attach a list with the per-group skip and take applied;
// to-one relations attach the first row or nil.
func Attach(rq *RelationQuery, parents, children []map[string]any) {
	groups := make(map[string][]map[string]any, len(parents))
	for _, child := range children {
		key := keyOf(child[ParentColumn])
		delete(child, ParentColumn)
		groups[key] = append(groups[key], child)
	}
	for _, parent := range parents {
		group := groups[keyOf(parent[rq.ParentKey])]
		if !rq.ToMany {
			if len(group) > 0 {
				parent[rq.Relation] = group[0]
			} else {
				parent[rq.Relation] = nil
			}
			continue
		}
		if rq.Skip != nil {
			if *rq.Skip >= len(group) {
				group = nil
			} else {
				group = group[*rq.Skip:]
			}
		}
		if rq.Take != nil && *rq.Take < len(group) {
			group = group[:*rq.Take]
		}
		if group == nil {
			group = []map[string]any{}
		}
		parent[rq.Relation] = group
	}
}

// keyOf normalizes a scanned key value for map grouping. Drivers return
// numeric keys with varying widths, so keys compare by their printed
// form rather than by type.
func keyOf(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

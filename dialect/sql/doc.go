// Package sql provides SQL query building primitives and database dialect abstraction.
//
// This package is the rendering backend of the query compiler. It provides a
// fluent API for constructing parameterized SQL statements across PostgreSQL,
// MySQL and SQLite.
//
// # Builder Types
//
//   - Builder: low-level SQL string builder with identifier quoting and
//     placeholder rendering
//   - Selector: SELECT query builder with joins, predicates and pagination
//   - InsertBuilder: INSERT statement builder with RETURNING and upsert support
//   - UpdateBuilder: UPDATE statement builder with SET and WHERE clauses
//   - DeleteBuilder: DELETE statement builder with WHERE predicates
//
// # Dialect Support
//
// SQL generation adapts to the target dialect through a per-dialect
// capability set:
//
//	import "github.com/syssam/quarry/dialect"
//
//	// PostgreSQL: $n placeholders, double-quoted identifiers.
//	sql.Dialect(dialect.Postgres).
//	    Select("id", "name").
//	    From(sql.Table("users")).
//	    Where(sql.EQ("status", "active")).
//	    Query()
//
// The same logical query rendered for MySQL differs only in quoting and
// placeholder style; the predicate logic is identical.
//
// # Parameter Ordering
//
// Query() returns the SQL text together with the ordered argument list.
// Argument positions always match the order of placeholder appearance in
// the text, including across nested sub-queries. Execution drivers rely
// on this to bind values positionally.
//
// # Predicates
//
//	sql.EQ("name", "john")           // name = ?
//	sql.GT("age", 18)                // age > ?
//	sql.Contains("name", "john")     // name LIKE '%john%'
//	sql.IsNull("deleted_at")         // deleted_at IS NULL
//	sql.In("status", "a", "b")       // status IN (?, ?)
//	sql.Exists(subQuery)             // EXISTS (...)
//
// Predicates defer their rendering until the parent statement is built,
// so nested predicates share one placeholder counter.
package sql

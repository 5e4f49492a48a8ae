// Package dialect provides database dialect abstraction for the Quarry
// query compiler.
//
// It defines the interfaces and constants used for database-specific
// operations, allowing the compiler to target multiple backends.
//
// # Supported Dialects
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
// The Driver interface abstracts statement execution:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The Tx interface extends ExecQuerier with Commit and Rollback, and the
// ExecQuerier interface is implemented by both Driver and Tx.
//
// The compiler itself never touches a live connection; it produces SQL text
// plus ordered parameters, and the caller hands them to a Driver
// implementation such as dialect/sql.Driver.
//
// # Sub-packages
//
//   - dialect/sql: SQL builders, per-dialect capabilities, and a
//     database/sql-backed driver implementation.
package dialect

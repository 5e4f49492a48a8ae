package sql

import "github.com/syssam/quarry/dialect"

// Capabilities describes the SQL features a dialect supports. One
// immutable value exists per dialect; rendering decisions branch on it
// instead of on dialect names scattered through the builders.
type Capabilities struct {
	// SupportsReturning reports whether INSERT/UPDATE/DELETE may carry
	// a RETURNING clause.
	SupportsReturning bool
	// SupportsRowLocking reports whether SELECT ... FOR UPDATE is
	// available. SQLite relies on database-level locking instead.
	SupportsRowLocking bool
	// SupportsUpsertWhere reports whether the native upsert form
	// accepts a conditional update (ON CONFLICT ... DO UPDATE ... WHERE).
	SupportsUpsertWhere bool
	// SupportsConflictIgnore reports whether "insert, skipping
	// duplicates" can be expressed natively (ON CONFLICT DO NOTHING).
	SupportsConflictIgnore bool
	// PlaceholderDollar reports whether parameters render as $1, $2, ...
	// instead of ?.
	PlaceholderDollar bool
	// QuoteChar is the identifier quote character.
	QuoteChar byte
}

var (
	postgresCaps = Capabilities{
		SupportsReturning:      true,
		SupportsRowLocking:     true,
		SupportsUpsertWhere:    true,
		SupportsConflictIgnore: true,
		PlaceholderDollar:      true,
		QuoteChar:              '"',
	}
	mysqlCaps = Capabilities{
		SupportsRowLocking: true,
		QuoteChar:          '`',
	}
	sqliteCaps = Capabilities{
		SupportsReturning:      true,
		SupportsUpsertWhere:    true,
		SupportsConflictIgnore: true,
		QuoteChar:              '"',
	}
)

// CapabilitiesFor returns the capability set of the given dialect.
// Unknown dialects get the most conservative set (MySQL-like
// placeholders, ANSI quoting, no native upsert extras).
func CapabilitiesFor(name string) Capabilities {
	switch name {
	case dialect.Postgres:
		return postgresCaps
	case dialect.MySQL:
		return mysqlCaps
	case dialect.SQLite:
		return sqliteCaps
	default:
		return Capabilities{QuoteChar: '"'}
	}
}

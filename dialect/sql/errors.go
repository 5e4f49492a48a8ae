package sql

import (
	"errors"
	"strings"
)

// errorCoder is implemented by driver errors that expose a string
// error code (pq.Error, pgx).
type errorCoder interface {
	Code() string
}

// errorNumberer is implemented by driver errors that expose a numeric
// error code (mysql.MySQLError).
type errorNumberer interface {
	Number() uint16
}

// sqlStateError is implemented by driver errors that expose a SQLSTATE
// code.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451
	mysqlForeignKeyChild        = 1452
	mysqlCheckConstraintViolate = 3819
)

// IsConstraintError reports whether the error resulted from any
// database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports whether the error resulted from a
// uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if matchCode(err, pgUniqueViolation, mysqlDuplicateEntry) {
		return true
	}
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
	)
}

// IsForeignKeyConstraintError reports whether the error resulted from a
// foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if matchCode(err, pgForeignKeyViolation, mysqlForeignKeyParent) ||
		matchCode(err, pgForeignKeyViolation, mysqlForeignKeyChild) {
		return true
	}
	return containsAny(err.Error(),
		"Error 1451",                      // MySQL, parent row
		"Error 1452",                      // MySQL, child row
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
	)
}

// IsCheckConstraintError reports whether the error resulted from a
// check constraint violation.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if matchCode(err, pgCheckViolation, mysqlCheckConstraintViolate) {
		return true
	}
	return containsAny(err.Error(),
		"Error 3819",                // MySQL
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
	)
}

// matchCode checks the error chain for driver error types carrying the
// given Postgres SQLSTATE or MySQL error number.
func matchCode(err error, pgCode string, mysqlNum uint16) bool {
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == pgCode {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == pgCode {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok && e.Number() == mysqlNum {
		return true
	}
	return false
}

// asError extracts an error implementing interface T from the chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

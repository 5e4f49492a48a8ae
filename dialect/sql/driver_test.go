package sql

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/syssam/quarry/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOpenDB tests the OpenDB function with different dialects.
func TestOpenDB(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
	}{
		{"Postgres", dialect.Postgres},
		{"MySQL", dialect.MySQL},
		{"SQLite", dialect.SQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.dialect, db)
			assert.NotNil(t, drv)
			assert.Equal(t, tt.dialect, drv.Dialect())
		})
	}
}

// TestDialectPrefix tests that wrapped driver names resolve to their
// base dialect.
func TestDialectPrefix(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB("postgres-instrumented", db)
	assert.Equal(t, dialect.Postgres, drv.Dialect())
	assert.True(t, drv.Capabilities().SupportsReturning)
}

// TestDriverQuery tests query operations.
func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("simple_query", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(1, "Alice").
				AddRow(2, "Bob"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT id, name FROM users", []any{}, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_with_args", func(t *testing.T) {
		mock.ExpectQuery("SELECT name FROM users WHERE id = \\$1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT name FROM users WHERE id = $1", []any{1}, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_error", func(t *testing.T) {
		expectedErr := errors.New("database error")
		mock.ExpectQuery("SELECT").WillReturnError(expectedErr)

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT", []any{}, rows)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_dest_type", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", []any{}, &struct{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid type")
	})

	t.Run("invalid_args_type", func(t *testing.T) {
		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT 1", "not-a-slice", rows)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid type")
	})
}

// TestDriverExec tests execute operations.
func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("simple_exec", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO users").
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := drv.Exec(context.Background(), "INSERT INTO users (name) VALUES ('test')", []any{}, nil)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec_result", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET name = \\$1 WHERE id = \\$2").
			WithArgs("Alice", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		var res Result
		err := drv.Exec(context.Background(), "UPDATE users SET name = $1 WHERE id = $2", []any{"Alice", 1}, &res)
		require.NoError(t, err)
		affected, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec_error", func(t *testing.T) {
		expectedErr := errors.New("constraint violation")
		mock.ExpectExec("DELETE").WillReturnError(expectedErr)

		err := drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_dest_type", func(t *testing.T) {
		err := drv.Exec(context.Background(), "DELETE FROM users", []any{}, &struct{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid type")
	})
}

// TestDriverTransaction tests transaction operations.
func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("successful_commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)

		err = tx.Exec(context.Background(), "INSERT INTO users (name) VALUES ('test')", []any{}, nil)
		require.NoError(t, err)

		err = tx.Commit()
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("error"))
		mock.ExpectRollback()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)

		err = tx.Exec(context.Background(), "INSERT INTO users (name) VALUES ('test')", []any{}, nil)
		require.Error(t, err)

		err = tx.Rollback()
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_in_transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)

		rows := &Rows{}
		err = tx.Query(context.Background(), "SELECT id FROM users", []any{}, rows)
		require.NoError(t, err)

		err = tx.Commit()
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestScanMaps tests scanning row sets into column-keyed maps.
func TestScanMaps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("null_values", func(t *testing.T) {
		mock.ExpectQuery("SELECT").
			WillReturnRows(sqlmock.NewRows([]string{"name", "email"}).
				AddRow("Alice", nil).
				AddRow(nil, "bob@example.com"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT name, email FROM users", []any{}, rows)
		require.NoError(t, err)
		out, err := ScanMaps(rows)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "Alice", out[0]["name"])
		assert.Nil(t, out[0]["email"])
		assert.Nil(t, out[1]["name"])
		assert.Equal(t, "bob@example.com", out[1]["email"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty_result", func(t *testing.T) {
		mock.ExpectQuery("SELECT").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT id FROM users", []any{}, rows)
		require.NoError(t, err)
		out, err := ScanMaps(rows)
		require.NoError(t, err)
		assert.Empty(t, out)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestStatsDriver tests query statistics collection.
func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(0),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, drv.Exec(context.Background(), "INSERT INTO t VALUES (1)", []any{}, nil))

	mock.ExpectExec("DELETE").WillReturnError(errors.New("boom"))
	require.Error(t, drv.Exec(context.Background(), "DELETE FROM t", []any{}, nil))

	snap := drv.QueryStats().Stats()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.TotalExecs)
	assert.Equal(t, int64(1), snap.Errors)
	assert.Equal(t, int64(3), snap.SlowQueries, "zero threshold marks every statement slow")
	assert.Len(t, slow, 3)
	assert.Positive(t, snap.AvgQueryDuration())
	assert.Contains(t, snap.String(), "queries=1")

	drv.QueryStats().Reset()
	assert.Equal(t, int64(0), drv.QueryStats().Stats().TotalQueries)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestStatsDriverTx tests that transaction statements are recorded.
func TestStatsDriverTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))
	drv.SetSlowThreshold(time.Hour)
	assert.Equal(t, time.Hour, drv.SlowThreshold())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "UPDATE t SET a = 1", []any{}, nil))
	require.NoError(t, tx.Commit())

	snap := drv.QueryStats().Stats()
	assert.Equal(t, int64(1), snap.TotalExecs)
	assert.Equal(t, int64(0), snap.SlowQueries)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestConstraintErrors tests constraint violation classification across
// driver error types.
func TestConstraintErrors(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		unique := &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
		fk := &pq.Error{Code: "23503", Message: "violates foreign key constraint"}
		check := &pq.Error{Code: "23514", Message: "violates check constraint"}

		assert.True(t, IsUniqueConstraintError(unique))
		assert.True(t, IsForeignKeyConstraintError(fk))
		assert.True(t, IsCheckConstraintError(check))
		assert.False(t, IsUniqueConstraintError(fk))
	})

	t.Run("mysql", func(t *testing.T) {
		dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b' for key 'users.email'"}
		fk := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}

		assert.True(t, IsUniqueConstraintError(dup))
		assert.True(t, IsForeignKeyConstraintError(fk))
		assert.False(t, IsCheckConstraintError(dup))
	})

	t.Run("sqlite_message", func(t *testing.T) {
		assert.True(t, IsUniqueConstraintError(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")))
		assert.True(t, IsForeignKeyConstraintError(errors.New("constraint failed: FOREIGN KEY constraint failed (787)")))
		assert.True(t, IsCheckConstraintError(errors.New("constraint failed: CHECK constraint failed: age (275)")))
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("exec: %w", &pq.Error{Code: "23505"})
		assert.True(t, IsConstraintError(err))
		assert.True(t, IsUniqueConstraintError(err))
	})

	t.Run("unrelated", func(t *testing.T) {
		assert.False(t, IsConstraintError(nil))
		assert.False(t, IsConstraintError(errors.New("connection refused")))
	})
}

// BenchmarkDriver benchmarks driver operations.
func BenchmarkDriver(b *testing.B) {
	db, mock, err := sqlmock.New()
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	b.Run("Query_Simple", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
			rows := &Rows{}
			_ = drv.Query(context.Background(), "SELECT 1", []any{}, rows)
			rows.Close()
		}
	})

	b.Run("Exec_Simple", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
			_ = drv.Exec(context.Background(), "INSERT INTO t VALUES (1)", []any{}, nil)
		}
	})

	b.Run("Transaction_Lifecycle", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			mock.ExpectBegin()
			mock.ExpectCommit()
			tx, _ := drv.Tx(context.Background())
			tx.Commit()
		}
	})
}

package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/dialect"
	esql "github.com/syssam/quarry/dialect/sql"
)

func sqliteDriver(t *testing.T) dialect.Driver {
	t.Helper()
	drv, err := esql.Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	// One shared in-memory database for the whole test.
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT UNIQUE NOT NULL, name TEXT NOT NULL)`,
		`CREATE TABLE posts (id INTEGER PRIMARY KEY, author_id INTEGER NOT NULL, title TEXT NOT NULL)`,
	} {
		require.NoError(t, drv.Exec(ctx, stmt, []any{}, nil))
	}
	return drv
}

func TestSQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	drv := sqliteDriver(t)
	c := compiler.New(testGraph(t), dialect.SQLite)

	run := func(op compiler.Operation, model string, args compiler.Args) (*Result, error) {
		t.Helper()
		compiled, err := c.Compile(op, model, args)
		require.NoError(t, err)
		return Execute(ctx, drv, compiled)
	}

	// Create returns the written row through RETURNING.
	res, err := run(compiler.Create, "User", compiler.Args{
		Data: map[string]any{"id": 1, "email": "a@example.com", "name": "Alice"},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Alice", res.Rows[0]["name"])

	_, err = run(compiler.Create, "User", compiler.Args{
		Data: map[string]any{"id": 2, "email": "b@example.com", "name": "Bob"},
	})
	require.NoError(t, err)

	res, err = run(compiler.CreateMany, "Post", compiler.Args{
		Rows: []map[string]any{
			{"id": 10, "author_id": 1, "title": "first"},
			{"id": 11, "author_id": 1, "title": "second"},
			{"id": 12, "author_id": 2, "title": "other"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Affected)

	// findMany with a batched include and a relation filter.
	res, err = run(compiler.FindMany, "User", compiler.Args{
		Where:   map[string]any{"posts": map[string]any{"some": map[string]any{"title": "first"}}},
		Include: map[string]*compiler.IncludeArg{"posts": {OrderBy: []compiler.Order{{Field: "title"}}}},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Alice", res.Rows[0]["name"])
	posts, ok := res.Rows[0]["posts"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, posts, 2)
	assert.Equal(t, "first", posts[0]["title"])
	assert.Equal(t, "second", posts[1]["title"])

	// Native upsert with a narrowed filter: SQLite supports the
	// conditional form, so a single statement updates the row.
	res, err = run(compiler.Upsert, "User", compiler.Args{
		Where:  map[string]any{"email": "a@example.com", "name": "Alice"},
		Create: map[string]any{"email": "a@example.com", "name": "Alice"},
		Update: map[string]any{"name": "Alicia"},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Alicia", res.Rows[0]["name"])

	// Upsert of an unseen key inserts.
	res, err = run(compiler.Upsert, "User", compiler.Args{
		Where:  map[string]any{"email": "c@example.com"},
		Create: map[string]any{"id": 3, "email": "c@example.com", "name": "Cara"},
		Update: map[string]any{"name": "Cara"},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Cara", res.Rows[0]["name"])

	res, err = run(compiler.Count, "User", compiler.Args{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 3, res.Rows[0]["_count"])

	// Delete returns the removed row and a re-read misses it.
	res, err = run(compiler.Delete, "User", compiler.Args{
		Where: map[string]any{"email": "c@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Cara", res.Rows[0]["name"])

	_, err = run(compiler.FindUniqueOrThrow, "User", compiler.Args{
		Where: map[string]any{"email": "c@example.com"},
	})
	require.Error(t, err)
	assert.True(t, quarry.IsNotFound(err))
}

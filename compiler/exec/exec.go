// Package exec runs compiled operations against a database driver and
// shapes their results. Result rows are column-keyed maps with included
// relations nested under their relation names.
package exec

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/sql"
)

// Result is the outcome of one executed operation.
type Result struct {
	// Rows holds the shaped result rows of read operations and of
	// writes that return the affected row.
	Rows []map[string]any
	// Affected is the row count of the bulk write operations.
	Affected int64
}

// Execute runs the compiled operation on the driver. Batched relation
// levels of an include tree run after the root statement, one query per
// level, with sibling relations loaded concurrently.
func Execute(ctx context.Context, drv dialect.Driver, c *compiler.Compiled) (*Result, error) {
	switch c.Operation {
	case compiler.Create, compiler.Update, compiler.Upsert, compiler.Delete:
		return executeWrite(ctx, drv, c)
	case compiler.CreateMany, compiler.UpdateMany, compiler.DeleteMany:
		var res sql.Result
		if err := drv.Exec(ctx, c.Root.SQL, c.Root.Args, &res); err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		return &Result{Affected: affected}, nil
	default:
		rows, err := queryMaps(ctx, drv, c.Root)
		if err != nil {
			return nil, err
		}
		if err := c.CheckRows(len(rows)); err != nil {
			return nil, err
		}
		compiler.FoldRows(c.Folds, rows)
		if err := loadRelations(ctx, drv, c.Relations, rows); err != nil {
			return nil, err
		}
		return &Result{Rows: rows}, nil
	}
}

// executeWrite runs a single-row write. Dialects with RETURNING get the
// written row from the root statement; the others execute the root and
// re-read the row with the compiled read-back statement.
func executeWrite(ctx context.Context, drv dialect.Driver, c *compiler.Compiled) (*Result, error) {
	if len(c.Fallback) > 0 {
		return executeFallback(ctx, drv, c)
	}
	// Deletes without RETURNING read the row before it disappears.
	var pre []map[string]any
	if c.Operation == compiler.Delete && c.ReadBack != nil {
		rows, err := queryMaps(ctx, drv, *c.ReadBack)
		if err != nil {
			return nil, err
		}
		if err := c.CheckRows(len(rows)); err != nil {
			return nil, err
		}
		pre = rows
	}
	if c.ReadBack == nil {
		rows, err := queryMaps(ctx, drv, c.Root)
		if err != nil {
			return nil, err
		}
		if err := c.CheckRows(len(rows)); err != nil {
			return nil, err
		}
		return &Result{Rows: rows, Affected: int64(len(rows))}, nil
	}
	var res sql.Result
	if err := drv.Exec(ctx, c.Root.SQL, c.Root.Args, &res); err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if c.Operation == compiler.Update {
		if err := c.CheckRows(int(affected)); err != nil {
			return nil, err
		}
	}
	if pre != nil {
		return &Result{Rows: pre, Affected: affected}, nil
	}
	readBack := *c.ReadBack
	if c.Operation == compiler.Create {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("exec: read back created row: %w", err)
		}
		readBack.Args = []any{id}
	}
	rows, err := queryMaps(ctx, drv, readBack)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: rows, Affected: affected}, nil
}

// executeFallback runs the update-then-insert upsert sequence inside a
// transaction: the insert runs only when the update matched no row, and
// the read-back returns the surviving row.
func executeFallback(ctx context.Context, drv dialect.Driver, c *compiler.Compiled) (*Result, error) {
	tx, err := drv.Tx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := runFallback(ctx, tx, c)
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: rolling back: %v", err, rerr)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rows, nil
}

func runFallback(ctx context.Context, tx dialect.Tx, c *compiler.Compiled) (*Result, error) {
	var res sql.Result
	update, insert := c.Fallback[0], c.Fallback[1]
	if err := tx.Exec(ctx, update.SQL, update.Args, &res); err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if err := tx.Exec(ctx, insert.SQL, insert.Args, nil); err != nil {
			return nil, err
		}
	}
	rows, err := queryMaps(ctx, tx, *c.ReadBack)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: rows, Affected: 1}, nil
}

// loadRelations loads one include level: sibling relations run
// concurrently, each as a single batched query over the parent keys,
// then attach their grouped rows to the parents.
func loadRelations(ctx context.Context, drv dialect.ExecQuerier, rels []*compiler.RelationQuery, parents []map[string]any) error {
	if len(rels) == 0 || len(parents) == 0 {
		return nil
	}
	results := make([][]map[string]any, len(rels))
	g, gctx := errgroup.WithContext(ctx)
	for i, rq := range rels {
		g.Go(func() error {
			keys := compiler.ParentKeys(parents, rq.ParentKey)
			if len(keys) == 0 {
				return nil
			}
			stmt, err := rq.Query(keys)
			if err != nil {
				return err
			}
			children, err := queryMaps(gctx, drv, stmt)
			if err != nil {
				return err
			}
			compiler.FoldRows(rq.Folds, children)
			if err := loadRelations(gctx, drv, rq.Relations, children); err != nil {
				return err
			}
			results[i] = children
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, rq := range rels {
		compiler.Attach(rq, parents, results[i])
	}
	return nil
}

func queryMaps(ctx context.Context, drv dialect.ExecQuerier, stmt compiler.Statement) ([]map[string]any, error) {
	var rows sql.Rows
	if err := drv.Query(ctx, stmt.SQL, stmt.Args, &rows); err != nil {
		return nil, err
	}
	return sql.ScanMaps(&rows)
}

// Package exec runs generated SQL against a live database connection. It
// implements the query layer's Executor contract over database/sql,
// splitting multi-statement strings, logging progress, and offering
// transactional batch application with preflight analysis.
package exec

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"sqlforge/internal/query"
)

// Runner executes statements on one open connection.
type Runner struct {
	db  *sql.DB
	out io.Writer
}

// NewRunner wraps an open connection. out receives execution progress and
// may be nil.
func NewRunner(db *sql.DB, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{db: db, out: out}
}

func (r *Runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Exec runs every statement in the (possibly multi-statement) string in
// order and returns the result of the last one. Drivers generally refuse
// multiple statements per call, so the string is split first; the splitter
// understands quoting and dollar-quoted bodies, keeping procedural blocks
// intact.
func (r *Runner) Exec(ctx context.Context, stmt string) (query.ExecResult, error) {
	var last query.ExecResult
	for _, s := range SplitStatements(stmt) {
		r.printf("exec: %s\n", truncateSQL(s))
		res, err := r.db.ExecContext(ctx, s)
		if err != nil {
			return query.ExecResult{}, fmt.Errorf("execute failed: %w\n  Statement: %s", err, truncateSQL(s))
		}
		last = query.ExecResult{}
		if n, err := res.RowsAffected(); err == nil {
			last.RowsAffected = n
		}
		if id, err := res.LastInsertId(); err == nil {
			last.LastInsertID = id
		}
	}
	return last, nil
}

// Query runs the statements in order, executing all but the last and
// querying the last for rows. Rows come back as column-keyed maps with
// []byte values decoded to strings.
func (r *Runner) Query(ctx context.Context, stmt string) ([]map[string]any, error) {
	statements := SplitStatements(stmt)
	if len(statements) == 0 {
		return nil, nil
	}
	for _, s := range statements[:len(statements)-1] {
		r.printf("exec: %s\n", truncateSQL(s))
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return nil, fmt.Errorf("execute failed: %w\n  Statement: %s", err, truncateSQL(s))
		}
	}
	last := statements[len(statements)-1]
	r.printf("query: %s\n", truncateSQL(last))
	rows, err := r.db.QueryContext(ctx, last)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w\n  Statement: %s", err, truncateSQL(last))
	}
	defer func() { _ = rows.Close() }()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func truncateSQL(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if len(stmt) > 80 {
		return stmt[:77] + "..."
	}
	return stmt
}

package query

import (
	"context"
	"fmt"
	"strings"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

// Insert inserts one row.
func (qi *Interface) Insert(ctx context.Context, t core.TableName, row []dialect.Assignment) (ExecResult, error) {
	stmt, err := qi.gen.InsertQuery(t, row)
	if err != nil {
		return ExecResult{}, err
	}
	return qi.run(ctx, stmt)
}

// BulkInsert inserts many rows in one statement.
func (qi *Interface) BulkInsert(ctx context.Context, t core.TableName, columns []string, rows [][]any) (ExecResult, error) {
	stmt, err := qi.gen.BulkInsertQuery(t, columns, rows)
	if err != nil {
		return ExecResult{}, err
	}
	return qi.run(ctx, stmt)
}

// Update updates matching rows.
func (qi *Interface) Update(ctx context.Context, t core.TableName, values []dialect.Assignment, where dialect.Where, opts dialect.UpdateOptions) (ExecResult, error) {
	stmt, err := qi.gen.UpdateQuery(t, values, where, opts)
	if err != nil {
		return ExecResult{}, err
	}
	return qi.run(ctx, stmt)
}

// Delete deletes matching rows.
func (qi *Interface) Delete(ctx context.Context, t core.TableName, where dialect.Where, opts dialect.DeleteOptions) (ExecResult, error) {
	stmt, err := qi.gen.DeleteQuery(t, where, opts)
	if err != nil {
		return ExecResult{}, err
	}
	return qi.run(ctx, stmt)
}

// Select returns matching rows as column-keyed maps.
func (qi *Interface) Select(ctx context.Context, t core.TableName, opts dialect.SelectOptions) ([]map[string]any, error) {
	stmt, err := qi.gen.SelectQuery(t, opts)
	if err != nil {
		return nil, err
	}
	return qi.exec.Query(ctx, stmt)
}

// Increment adds the given amounts to numeric columns of matching rows.
func (qi *Interface) Increment(ctx context.Context, t core.TableName, values []dialect.Assignment, where dialect.Where) (ExecResult, error) {
	stmt, err := qi.gen.ArithmeticQuery("+", t, values, where)
	if err != nil {
		return ExecResult{}, err
	}
	return qi.run(ctx, stmt)
}

// Decrement subtracts the given amounts from numeric columns of matching
// rows.
func (qi *Interface) Decrement(ctx context.Context, t core.TableName, values []dialect.Assignment, where dialect.Where) (ExecResult, error) {
	stmt, err := qi.gen.ArithmeticQuery("-", t, values, where)
	if err != nil {
		return ExecResult{}, err
	}
	return qi.run(ctx, stmt)
}

// UpsertResult is the normalized outcome of an upsert. Created is nil when
// the dialect cannot report whether the row was inserted or updated.
type UpsertResult struct {
	Created    *bool
	PrimaryKey any
}

// Upsert inserts the row or updates the existing one it conflicts with.
// The existence check combines the caller's where clause with every unique
// key fully covered by the insert values; partially covered keys are
// skipped. Result normalization is per dialect: MySQL infers creation from
// the affected-row count, Postgres and MSSQL report it in a result row,
// SQLite's REPLACE cannot tell.
func (qi *Interface) Upsert(ctx context.Context, model *core.Table, insert, update []dialect.Assignment, where dialect.Where) (UpsertResult, error) {
	t := model.TableName()
	full := qi.upsertWhere(model, insert, where)
	stmt, err := qi.gen.UpsertQuery(t, insert, update, full, model)
	if err != nil {
		return UpsertResult{}, err
	}

	switch qi.gen.Descriptor().Features.Upsert {
	case dialect.UpsertDuplicateKey:
		res, err := qi.run(ctx, stmt)
		if err != nil {
			return UpsertResult{}, err
		}
		created := res.RowsAffected == 1
		out := UpsertResult{Created: &created}
		if res.LastInsertID > 0 {
			out.PrimaryKey = res.LastInsertID
		}
		return out, nil

	case dialect.UpsertException:
		rows, err := qi.exec.Query(ctx, stmt)
		if err != nil {
			return UpsertResult{}, err
		}
		if len(rows) == 0 {
			return UpsertResult{}, fmt.Errorf("upsert into %s returned no result row", t)
		}
		created := fmt.Sprintf("%v", rows[0]["created"]) == "true"
		return UpsertResult{Created: &created, PrimaryKey: rows[0]["primary_key"]}, nil

	case dialect.UpsertMerge:
		rows, err := qi.exec.Query(ctx, stmt)
		if err != nil {
			return UpsertResult{}, err
		}
		if len(rows) == 0 {
			return UpsertResult{}, nil
		}
		created := strings.EqualFold(fmt.Sprintf("%v", rows[0]["action"]), "INSERT")
		return UpsertResult{Created: &created, PrimaryKey: rows[0]["primaryKey"]}, nil

	default:
		res, err := qi.run(ctx, stmt)
		if err != nil {
			return UpsertResult{}, err
		}
		out := UpsertResult{}
		if res.LastInsertID > 0 {
			out.PrimaryKey = res.LastInsertID
		}
		return out, nil
	}
}

// upsertWhere widens the caller's where clause with an OR term per unique
// key whose columns are all present in the insert values.
func (qi *Interface) upsertWhere(model *core.Table, insert []dialect.Assignment, where dialect.Where) dialect.Where {
	provided := make(map[string]any, len(insert))
	for _, a := range insert {
		provided[a.Column] = a.Value
	}
	out := where
	for _, key := range model.UniqueKeys() {
		clause := make(dialect.Clause, 0, len(key))
		covered := true
		for _, col := range key {
			v, ok := provided[col]
			if !ok {
				covered = false
				break
			}
			clause = append(clause, dialect.Eq(col, v))
		}
		if covered {
			out = out.OrClause(clause...)
		}
	}
	return out
}

// JSONExtract renders a JSON path projection over a column and selects it
// for matching rows.
func (qi *Interface) JSONExtract(ctx context.Context, t core.TableName, column string, path []string, unquote bool, where dialect.Where) ([]map[string]any, error) {
	expr, err := qi.gen.JSONPathExtractionQuery(column, path, unquote)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(expr)
	sb.WriteString(" AS ")
	sb.WriteString(qi.gen.QuoteIdentifier("value", true))
	sb.WriteString(" FROM ")
	sb.WriteString(qi.gen.QuoteTable(t))
	if cond := qi.gen.CompileWhere(where); cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(";")
	return qi.exec.Query(ctx, sb.String())
}

package oracle

import (
	"fmt"
	"strings"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

// InsertQuery renders a single-row INSERT.
func (g *Generator) InsertQuery(t core.TableName, row []dialect.Assignment) (string, error) {
	if len(row) == 0 {
		return "", fmt.Errorf("insert into %s: no values", t)
	}
	cols := make([]string, len(row))
	vals := make([]string, len(row))
	for i, a := range row {
		cols[i] = g.QuoteIdentifier(a.Column, false)
		vals[i] = g.FormatValue(a.Value)
	}
	return "INSERT INTO " + g.QuoteTable(t) + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ");", nil
}

// BulkInsertQuery renders the INSERT ALL form, since Oracle rejects
// multi-tuple VALUES lists.
func (g *Generator) BulkInsertQuery(t core.TableName, columns []string, rows [][]any) (string, error) {
	if len(columns) == 0 || len(rows) == 0 {
		return "", fmt.Errorf("bulk insert into %s: no rows", t)
	}
	var sb strings.Builder
	sb.WriteString("INSERT ALL")
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", fmt.Errorf("bulk insert into %s: row %d has %d values, want %d", t, i, len(row), len(columns))
		}
		vals := make([]string, len(row))
		for j, v := range row {
			vals[j] = g.FormatValue(v)
		}
		sb.WriteString(" INTO ")
		sb.WriteString(g.QuoteTable(t))
		sb.WriteString(" ")
		sb.WriteString(g.ColumnList(columns))
		sb.WriteString(" VALUES (")
		sb.WriteString(strings.Join(vals, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" SELECT 1 FROM DUAL;")
	return sb.String(), nil
}

// UpdateQuery renders an UPDATE; a limit becomes a ROWNUM bound.
func (g *Generator) UpdateQuery(t core.TableName, values []dialect.Assignment, where dialect.Where, opts dialect.UpdateOptions) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("update %s: no values", t)
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(" SET ")
	sb.WriteString(g.assignments(values))
	cond := g.CompileWhere(where)
	if opts.Limit != nil {
		cond = rownumLimit(cond, *opts.Limit)
	}
	if cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// DeleteQuery renders a DELETE with the same ROWNUM-bounded limit.
func (g *Generator) DeleteQuery(t core.TableName, where dialect.Where, opts dialect.DeleteOptions) (string, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(g.QuoteTable(t))
	cond := g.CompileWhere(where)
	if opts.Limit != nil {
		cond = rownumLimit(cond, *opts.Limit)
	}
	if cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

func rownumLimit(cond string, limit int) string {
	bound := fmt.Sprintf("ROWNUM <= %d", limit)
	if cond == "" {
		return bound
	}
	return cond + " AND " + bound
}

// SelectQuery renders a SELECT. Oracle has FOR UPDATE but no share-lock
// clause; share locks are ignored.
func (g *Generator) SelectQuery(t core.TableName, opts dialect.SelectOptions) (string, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(projection(g, opts.Attributes))
	sb.WriteString(" FROM ")
	sb.WriteString(g.QuoteTable(t))

	where := g.CompileWhere(opts.Where)
	if opts.JSONCondition != "" {
		if _, err := dialect.CheckJSONStatement(opts.JSONCondition); err != nil {
			return "", err
		}
		if where != "" {
			where += " AND " + opts.JSONCondition
		} else {
			where = opts.JSONCondition
		}
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if len(opts.GroupBy) > 0 {
		quoted := make([]string, len(opts.GroupBy))
		for i, c := range opts.GroupBy {
			quoted[i] = g.QuoteIdentifier(c, false)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(quoted, ", "))
	}
	sb.WriteString(g.CompileOrder(opts.OrderBy))
	sb.WriteString(g.AddLimitAndOffset(opts.Limit, opts.Offset, len(opts.OrderBy) > 0))
	if opts.Lock == dialect.LockUpdate {
		sb.WriteString(" FOR UPDATE")
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// ArithmeticQuery renders UPDATE t SET col = col <op> value.
func (g *Generator) ArithmeticQuery(operator string, t core.TableName, values []dialect.Assignment, where dialect.Where) (string, error) {
	if operator != "+" && operator != "-" {
		return "", fmt.Errorf("arithmetic query: unsupported operator %q", operator)
	}
	if len(values) == 0 {
		return "", fmt.Errorf("arithmetic query on %s: no values", t)
	}
	sets := make([]string, len(values))
	for i, a := range values {
		col := g.QuoteIdentifier(a.Column, false)
		sets[i] = col + " = " + col + " " + operator + " " + g.FormatValue(a.Value)
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(sets, ", "))
	if cond := g.CompileWhere(where); cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// UpsertQuery renders a MERGE keyed on the primary-key columns present in
// the insert values, falling back to a fully covered unique key.
func (g *Generator) UpsertQuery(t core.TableName, insert, update []dialect.Assignment, _ dialect.Where, model *core.Table) (string, error) {
	if len(insert) == 0 {
		return "", fmt.Errorf("upsert into %s: no insert values", t)
	}
	if model == nil {
		return "", fmt.Errorf("upsert into %s: table model required", t)
	}
	provided := make(map[string]bool, len(insert))
	for _, a := range insert {
		provided[a.Column] = true
	}
	var keys []string
	for _, k := range model.PrimaryKeyColumns() {
		if !provided[k] {
			keys = nil
			break
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		for _, uk := range model.UniqueKeys() {
			covered := true
			for _, k := range uk {
				if !provided[k] {
					covered = false
					break
				}
			}
			if covered {
				keys = uk
				break
			}
		}
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("upsert into %s: values cover no primary or unique key", t)
	}
	if len(update) == 0 {
		update = insert
	}
	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}

	srcExprs := make([]string, len(insert))
	cols := make([]string, len(insert))
	srcCols := make([]string, len(insert))
	for i, a := range insert {
		q := g.QuoteIdentifier(a.Column, true)
		srcExprs[i] = g.FormatValue(a.Value) + " AS " + q
		cols[i] = q
		srcCols[i] = `"s".` + q
	}
	on := make([]string, len(keys))
	for i, k := range keys {
		q := g.QuoteIdentifier(k, true)
		on[i] = `"t".` + q + ` = "s".` + q
	}
	// MERGE rejects updates to the match-key columns.
	var sets []string
	for _, a := range update {
		if keySet[a.Column] {
			continue
		}
		q := g.QuoteIdentifier(a.Column, true)
		sets = append(sets, `"t".`+q+` = "s".`+q)
	}

	var sb strings.Builder
	sb.WriteString("MERGE INTO ")
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(` "t" USING (SELECT `)
	sb.WriteString(strings.Join(srcExprs, ", "))
	sb.WriteString(` FROM DUAL) "s" ON (`)
	sb.WriteString(strings.Join(on, " AND "))
	sb.WriteString(")")
	if len(sets) > 0 {
		sb.WriteString(" WHEN MATCHED THEN UPDATE SET ")
		sb.WriteString(strings.Join(sets, ", "))
	}
	sb.WriteString(" WHEN NOT MATCHED THEN INSERT (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(srcCols, ", "))
	sb.WriteString(");")
	return sb.String(), nil
}

func (g *Generator) assignments(values []dialect.Assignment) string {
	sets := make([]string, len(values))
	for i, a := range values {
		sets[i] = g.QuoteIdentifier(a.Column, false) + " = " + g.FormatValue(a.Value)
	}
	return strings.Join(sets, ", ")
}

// ShowIndexesQuery lists the indexes of a table from the all_indexes view.
func (g *Generator) ShowIndexesQuery(t core.TableName) string {
	var sb strings.Builder
	sb.WriteString(`SELECT index_name AS "indexName", uniqueness AS "uniqueness" FROM all_indexes WHERE table_name = `)
	sb.WriteString(g.QuoteString(t.Name))
	if t.Schema != "" {
		sb.WriteString(" AND owner = ")
		sb.WriteString(g.QuoteString(strings.ToUpper(t.Schema)))
	}
	sb.WriteString(";")
	return sb.String()
}

// ShowConstraintsQuery lists table constraints from all_constraints with
// canonical aliases. Oracle encodes the constraint kind as a single
// letter.
func (g *Generator) ShowConstraintsQuery(t core.TableName, constraintName string) string {
	var sb strings.Builder
	sb.WriteString(`SELECT constraint_name AS "constraintName", constraint_type AS "constraintType", `)
	sb.WriteString(`owner AS "constraintSchema", table_name AS "tableName" FROM all_constraints WHERE table_name = `)
	sb.WriteString(g.QuoteString(t.Name))
	if constraintName != "" {
		sb.WriteString(" AND constraint_name = ")
		sb.WriteString(g.QuoteString(constraintName))
	}
	if t.Schema != "" {
		sb.WriteString(" AND owner = ")
		sb.WriteString(g.QuoteString(strings.ToUpper(t.Schema)))
	}
	sb.WriteString(";")
	return sb.String()
}

// ForeignKeysQuery lists every foreign key of a table, normalized to the
// canonical column shape.
func (g *Generator) ForeignKeysQuery(t core.TableName, _ string) string {
	var sb strings.Builder
	sb.WriteString(`SELECT c.constraint_name AS "constraintName", c.owner AS "constraintSchema", `)
	sb.WriteString(`c.table_name AS "tableName", c.owner AS "tableSchema", cc.column_name AS "columnName", `)
	sb.WriteString(`rc.table_name AS "referencedTableName", rc.column_name AS "referencedColumnName" `)
	sb.WriteString("FROM all_constraints c ")
	sb.WriteString("JOIN all_cons_columns cc ON c.constraint_name = cc.constraint_name AND c.owner = cc.owner ")
	sb.WriteString("JOIN all_cons_columns rc ON c.r_constraint_name = rc.constraint_name AND c.r_owner = rc.owner AND cc.position = rc.position ")
	sb.WriteString("WHERE c.constraint_type = 'R' AND c.table_name = ")
	sb.WriteString(g.QuoteString(t.Name))
	if t.Schema != "" {
		sb.WriteString(" AND c.owner = ")
		sb.WriteString(g.QuoteString(strings.ToUpper(t.Schema)))
	}
	sb.WriteString(";")
	return sb.String()
}

// ForeignKeyQuery finds the foreign keys holding one column.
func (g *Generator) ForeignKeyQuery(t core.TableName, column string) string {
	var sb strings.Builder
	sb.WriteString(`SELECT c.constraint_name AS "constraintName" FROM all_constraints c `)
	sb.WriteString("JOIN all_cons_columns cc ON c.constraint_name = cc.constraint_name AND c.owner = cc.owner ")
	sb.WriteString("WHERE c.constraint_type = 'R' AND c.table_name = ")
	sb.WriteString(g.QuoteString(t.Name))
	sb.WriteString(" AND cc.column_name = ")
	sb.WriteString(g.QuoteString(strings.ToUpper(column)))
	sb.WriteString(";")
	return sb.String()
}

// JSONPathExtractionQuery renders json_value, which always returns text.
func (g *Generator) JSONPathExtractionQuery(column string, path []string, _ bool) (string, error) {
	if len(path) == 0 {
		return "", fmt.Errorf("json path extraction on %q: empty path", column)
	}
	return "json_value(" + g.QuoteIdentifier(column, false) + "," + g.QuoteString(dialect.BuildJSONPath(path)) + ")", nil
}

func projection(g *Generator, attrs []string) string {
	if len(attrs) == 0 {
		return "*"
	}
	quoted := make([]string, len(attrs))
	for i, a := range attrs {
		quoted[i] = g.QuoteIdentifier(a, false)
	}
	return strings.Join(quoted, ", ")
}

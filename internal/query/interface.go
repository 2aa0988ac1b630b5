// Package query is the orchestration layer between generated SQL and the
// executing connection. Each logical operation sequences one or more
// generated statements, executes them in order, and normalizes the
// results; dialect-specific sequencing exceptions (Postgres enum
// lifecycle, MySQL FK-aware column removal, SQLite table rebuilds) live
// here rather than in the generators.
package query

import (
	"context"
	"fmt"
	"io"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

// ExecResult is the outcome of a statement that returns no rows.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// Executor runs generated SQL against a live connection. Exec is for
// statements without result sets; Query returns rows as column-keyed maps
// in result order.
type Executor interface {
	Exec(ctx context.Context, stmt string) (ExecResult, error)
	Query(ctx context.Context, stmt string) ([]map[string]any, error)
}

// Interface orchestrates logical operations for one dialect over one
// executor.
type Interface struct {
	gen  dialect.Generator
	exec Executor
	out  io.Writer
}

// New builds a query interface. out receives operation progress messages
// and may be nil.
func New(gen dialect.Generator, exec Executor, out io.Writer) *Interface {
	if out == nil {
		out = io.Discard
	}
	return &Interface{gen: gen, exec: exec, out: out}
}

// Generator exposes the underlying SQL generator.
func (qi *Interface) Generator() dialect.Generator { return qi.gen }

func (qi *Interface) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(qi.out, format, args...)
}

func (qi *Interface) run(ctx context.Context, stmt string) (ExecResult, error) {
	if stmt == "" {
		return ExecResult{}, nil
	}
	return qi.exec.Exec(ctx, stmt)
}

// Optional generator extensions, asserted where a dialect needs special
// sequencing.

type enumGenerator interface {
	ListEnumLabelsQuery(t core.TableName, column string) string
	CreateEnumQuery(t core.TableName, column string, values []string) (string, error)
	AddEnumValueQuery(t core.TableName, column, value, before, after string) string
	DropEnumQuery(t core.TableName, column string) string
}

type foreignKeyRemover interface {
	RemoveForeignKeyQuery(t core.TableName, name string) string
}

type foreignKeyToggler interface {
	ToggleForeignKeyChecksQuery(on bool) string
}

// CreateTable creates the table. On dialects with first-class enum types
// every enum column's type is reconciled first: created when missing,
// extended with anchored ADD VALUE statements when the declared values
// grew. The CREATE TABLE references types by the same derived name, so
// the ordering is load-bearing.
func (qi *Interface) CreateTable(ctx context.Context, model *core.Table, opts dialect.CreateTableOptions) error {
	t := model.TableName()
	if eg, ok := qi.gen.(enumGenerator); ok && qi.gen.Descriptor().Features.Enums {
		for _, c := range model.Columns {
			if c.Type != core.DataTypeEnum {
				continue
			}
			if err := qi.syncEnum(ctx, eg, t, c); err != nil {
				return err
			}
		}
	}
	if len(opts.UniqueKeys) == 0 {
		for _, c := range model.Constraints {
			if c.Type == core.ConstraintUnique {
				opts.UniqueKeys = append(opts.UniqueKeys, *c)
			}
		}
	}
	stmt, err := qi.gen.CreateTableQuery(t, model.Columns, opts)
	if err != nil {
		return err
	}
	qi.printf("creating table %s\n", t)
	_, err = qi.run(ctx, stmt)
	return err
}

// syncEnum reconciles the database enum type with the declared values.
// New values are anchored AFTER the previous declared value, or BEFORE the
// first existing label when they lead the list, so declared order is
// preserved.
func (qi *Interface) syncEnum(ctx context.Context, eg enumGenerator, t core.TableName, c *core.Column) error {
	rows, err := qi.exec.Query(ctx, eg.ListEnumLabelsQuery(t, c.Name))
	if err != nil {
		return fmt.Errorf("listing enum labels for %s.%s: %w", t, c.Name, err)
	}
	if len(rows) == 0 {
		stmt, err := eg.CreateEnumQuery(t, c.Name, c.EnumValues)
		if err != nil {
			return err
		}
		_, err = qi.run(ctx, stmt)
		return err
	}
	existing := make(map[string]bool, len(rows))
	first := ""
	for i, row := range rows {
		label := fmt.Sprintf("%v", firstColumn(row))
		if i == 0 {
			first = label
		}
		existing[label] = true
	}
	prev := ""
	for _, v := range c.EnumValues {
		if existing[v] {
			prev = v
			continue
		}
		var stmt string
		if prev != "" {
			stmt = eg.AddEnumValueQuery(t, c.Name, v, "", prev)
		} else {
			stmt = eg.AddEnumValueQuery(t, c.Name, v, first, "")
		}
		if _, err := qi.run(ctx, stmt); err != nil {
			return fmt.Errorf("adding enum value %q to %s.%s: %w", v, t, c.Name, err)
		}
		prev = v
	}
	return nil
}

// DropTable drops the table, then cleans up any enum types its columns
// owned. The enum name derives from the same qualified table name the
// DROP used.
func (qi *Interface) DropTable(ctx context.Context, model *core.Table, opts dialect.DropTableOptions) error {
	t := model.TableName()
	qi.printf("dropping table %s\n", t)
	if _, err := qi.run(ctx, qi.gen.DropTableQuery(t, opts)); err != nil {
		return err
	}
	if eg, ok := qi.gen.(enumGenerator); ok && qi.gen.Descriptor().Features.Enums {
		for _, c := range model.Columns {
			if c.Type != core.DataTypeEnum {
				continue
			}
			if _, err := qi.run(ctx, eg.DropEnumQuery(t, c.Name)); err != nil {
				return fmt.Errorf("dropping enum type for %s.%s: %w", t, c.Name, err)
			}
		}
	}
	return nil
}

// ShowAllTables lists the table names visible in the schema.
func (qi *Interface) ShowAllTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := qi.exec.Query(ctx, qi.gen.ShowTablesQuery(schema))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, fmt.Sprintf("%v", firstColumn(row)))
	}
	return names, nil
}

// DropAllTables tears the schema down. Dialects with a foreign-key pragma
// toggle enforcement off around the batch; everything else drops all
// foreign keys first so drop order cannot matter.
func (qi *Interface) DropAllTables(ctx context.Context, schema, database string) error {
	tables, err := qi.ShowAllTables(ctx, schema)
	if err != nil {
		return err
	}
	opts := dialect.DropTableOptions{IfExists: true}

	if ft, ok := qi.gen.(foreignKeyToggler); ok {
		if _, err := qi.run(ctx, ft.ToggleForeignKeyChecksQuery(false)); err != nil {
			return err
		}
		for _, name := range tables {
			if _, err := qi.run(ctx, qi.gen.DropTableQuery(core.TableOf(name), opts)); err != nil {
				return err
			}
		}
		_, err := qi.run(ctx, ft.ToggleForeignKeyChecksQuery(true))
		return err
	}

	for _, name := range tables {
		t := core.SchemaTable(schema, name)
		fks, err := qi.exec.Query(ctx, qi.gen.ForeignKeysQuery(t, database))
		if err != nil {
			return fmt.Errorf("listing foreign keys of %s: %w", t, err)
		}
		for _, fk := range fks {
			cname := fmt.Sprintf("%v", fk["constraintName"])
			if cname == "" {
				continue
			}
			stmt := qi.gen.RemoveConstraintQuery(t, cname)
			if fr, ok := qi.gen.(foreignKeyRemover); ok {
				stmt = fr.RemoveForeignKeyQuery(t, cname)
			}
			if _, err := qi.run(ctx, stmt); err != nil {
				return fmt.Errorf("dropping foreign key %s on %s: %w", cname, t, err)
			}
		}
	}
	for _, name := range tables {
		if _, err := qi.run(ctx, qi.gen.DropTableQuery(core.SchemaTable(schema, name), opts)); err != nil {
			return err
		}
	}
	return nil
}

// DescribeTable returns the table's column metadata keyed by column name.
// An empty result is an error: the table does not exist.
func (qi *Interface) DescribeTable(ctx context.Context, t core.TableName) (map[string]*core.Column, error) {
	rows, err := qi.exec.Query(ctx, qi.gen.DescribeTableQuery(t))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &NoDescriptionError{Table: t}
	}
	columns := make(map[string]*core.Column, len(rows))
	for _, row := range rows {
		c := columnFromDescription(row)
		if c.Name != "" {
			columns[c.Name] = c
		}
	}
	return columns, nil
}

// columnFromDescription maps one catalog row to a column descriptor. The
// canonical aliases cover most dialects; SQLite's table_info pragma has
// its own vocabulary.
func columnFromDescription(row map[string]any) *core.Column {
	c := &core.Column{Nullable: true}
	if v, ok := row["columnName"]; ok {
		c.Name = fmt.Sprintf("%v", v)
	} else if v, ok := row["name"]; ok {
		c.Name = fmt.Sprintf("%v", v)
	}
	if v, ok := row["dataType"]; ok {
		c.TypeRaw = fmt.Sprintf("%v", v)
	} else if v, ok := row["type"]; ok {
		c.TypeRaw = fmt.Sprintf("%v", v)
	}
	c.Type = core.NormalizeDataType(c.TypeRaw)
	if v, ok := row["isNullable"]; ok {
		s := fmt.Sprintf("%v", v)
		c.Nullable = s == "YES" || s == "Y" || s == "1" || s == "true"
	} else if v, ok := row["notnull"]; ok {
		c.Nullable = fmt.Sprintf("%v", v) == "0"
	}
	if v, ok := row["defaultValue"]; ok && v != nil {
		d := any(fmt.Sprintf("%v", v))
		c.DefaultValue = &d
	} else if v, ok := row["dflt_value"]; ok && v != nil {
		d := any(fmt.Sprintf("%v", v))
		c.DefaultValue = &d
	}
	if v, ok := row["pk"]; ok {
		c.PrimaryKey = fmt.Sprintf("%v", v) != "0"
	}
	return c
}

// AddColumn adds a column to an existing table.
func (qi *Interface) AddColumn(ctx context.Context, t core.TableName, c *core.Column) error {
	stmt, err := qi.gen.AddColumnQuery(t, c)
	if err != nil {
		return err
	}
	_, err = qi.run(ctx, stmt)
	return err
}

// RemoveColumn drops a column. MySQL refuses to drop a column held by an
// active foreign key, so its FK constraints on the column are looked up
// and dropped first.
func (qi *Interface) RemoveColumn(ctx context.Context, t core.TableName, column string) error {
	if fr, ok := qi.gen.(foreignKeyRemover); ok {
		fks, err := qi.exec.Query(ctx, qi.gen.ForeignKeyQuery(t, column))
		if err != nil {
			return fmt.Errorf("listing foreign keys on %s.%s: %w", t, column, err)
		}
		for _, fk := range fks {
			cname := fmt.Sprintf("%v", fk["constraintName"])
			if cname == "" {
				continue
			}
			if _, err := qi.run(ctx, fr.RemoveForeignKeyQuery(t, cname)); err != nil {
				return fmt.Errorf("dropping foreign key %s on %s: %w", cname, t, err)
			}
		}
	}
	_, err := qi.run(ctx, qi.gen.RemoveColumnQuery(t, column))
	return err
}

// ChangeColumn alters a column definition. Dialects that cannot alter in
// place surface their rebuild error unchanged.
func (qi *Interface) ChangeColumn(ctx context.Context, t core.TableName, c *core.Column, opts dialect.ChangeColumnOptions) error {
	if eg, ok := qi.gen.(enumGenerator); ok && qi.gen.Descriptor().Features.Enums && c.Type == core.DataTypeEnum {
		if err := qi.syncEnum(ctx, eg, t, c); err != nil {
			return err
		}
	}
	stmt, err := qi.gen.ChangeColumnQuery(t, c, opts)
	if err != nil {
		return err
	}
	_, err = qi.run(ctx, stmt)
	return err
}

// RenameColumn renames a column. The table is described first to validate
// the source column and to rebuild a full attribute descriptor for
// dialects whose rename re-states the definition.
func (qi *Interface) RenameColumn(ctx context.Context, t core.TableName, before, after string) error {
	columns, err := qi.DescribeTable(ctx, t)
	if err != nil {
		return err
	}
	current, ok := columns[before]
	if !ok {
		return &UnknownColumnError{Table: t, Column: before}
	}
	renamed := *current
	renamed.Name = after
	stmt, err := qi.gen.RenameColumnQuery(t, before, &renamed)
	if err != nil {
		return err
	}
	_, err = qi.run(ctx, stmt)
	return err
}

// AddIndex creates an index.
func (qi *Interface) AddIndex(ctx context.Context, t core.TableName, idx *core.Index) error {
	_, err := qi.run(ctx, qi.gen.AddIndexQuery(t, idx))
	return err
}

// RemoveIndex drops an index.
func (qi *Interface) RemoveIndex(ctx context.Context, t core.TableName, index string) error {
	_, err := qi.run(ctx, qi.gen.RemoveIndexQuery(t, index))
	return err
}

// ShowIndexes lists the indexes of a table.
func (qi *Interface) ShowIndexes(ctx context.Context, t core.TableName) ([]map[string]any, error) {
	return qi.exec.Query(ctx, qi.gen.ShowIndexesQuery(t))
}

// AddConstraint adds a table constraint.
func (qi *Interface) AddConstraint(ctx context.Context, t core.TableName, c *core.Constraint) error {
	stmt, err := qi.gen.AddConstraintQuery(t, c)
	if err != nil {
		return err
	}
	_, err = qi.run(ctx, stmt)
	return err
}

// RemoveConstraint drops a constraint after verifying it exists; dropping
// an unknown constraint is a typed error rather than a driver error.
func (qi *Interface) RemoveConstraint(ctx context.Context, t core.TableName, name string) error {
	rows, err := qi.exec.Query(ctx, qi.gen.ShowConstraintsQuery(t, name))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &UnknownConstraintError{Table: t, Constraint: name}
	}
	_, err = qi.run(ctx, qi.gen.RemoveConstraintQuery(t, name))
	return err
}

// ShowConstraints lists the constraints of a table.
func (qi *Interface) ShowConstraints(ctx context.Context, t core.TableName) ([]map[string]any, error) {
	return qi.exec.Query(ctx, qi.gen.ShowConstraintsQuery(t, ""))
}

// ForeignKeys lists the foreign keys of a table in the canonical shape.
func (qi *Interface) ForeignKeys(ctx context.Context, t core.TableName, database string) ([]map[string]any, error) {
	return qi.exec.Query(ctx, qi.gen.ForeignKeysQuery(t, database))
}

// RenameTable renames a table.
func (qi *Interface) RenameTable(ctx context.Context, before, after core.TableName) error {
	_, err := qi.run(ctx, qi.gen.RenameTableQuery(before, after))
	return err
}

// Version reports the server version string.
func (qi *Interface) Version(ctx context.Context) (string, error) {
	rows, err := qi.exec.Query(ctx, qi.gen.VersionQuery())
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("version query returned no rows")
	}
	return fmt.Sprintf("%v", firstColumn(rows[0])), nil
}

// firstColumn returns the sole interesting value of a single-column row.
func firstColumn(row map[string]any) any {
	for _, v := range row {
		return v
	}
	return nil
}

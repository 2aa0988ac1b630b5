// Package postgres implements the SQL generator contract for PostgreSQL:
// double-quote quoting, first-class enum types with their own DDL
// lifecycle, multi-statement column alterations, and an exception-based
// PL/pgSQL upsert wrapper.
package postgres

import (
	"fmt"
	"strings"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

var descriptor = &dialect.Descriptor{
	Name:      core.DialectPostgres,
	TickLeft:  `"`,
	TickRight: `"`,
	Features: dialect.Features{
		Transactions:          true,
		Savepoints:            true,
		IsolationLevels:       true,
		Schemas:               true,
		Enums:                 true,
		JSON:                  true,
		JSONOperators:         true,
		Returning:             true,
		InlineForeignKeys:     true,
		DeferrableConstraints: true,
		IfNotExists:           true,
		ForUpdate:             true,
		ForShare:              true,
		DefaultBlobText:       true,
		Upsert:                dialect.UpsertException,
	},
}

func init() {
	dialect.Register(core.DialectPostgres, func(opts dialect.Options) dialect.Generator {
		return New(opts)
	})
}

// Generator is the PostgreSQL SQL generator.
type Generator struct {
	dialect.Base
}

// New builds a Postgres generator with the given options.
func New(opts dialect.Options) *Generator {
	return &Generator{Base: dialect.NewBase(descriptor, opts, "true", "false", false)}
}

// EnumName derives the SQL type name owned by an enum column. The name is
// a function of table and column so the type lifecycle can follow the
// table's.
func EnumName(t core.TableName, column string) string {
	return "enum_" + t.Name + "_" + column
}

// QuoteEnumName renders the possibly schema-qualified enum type reference.
func (g *Generator) QuoteEnumName(t core.TableName, column string) string {
	name := g.QuoteIdentifier(EnumName(t, column), true)
	if t.Schema != "" {
		return g.QuoteIdentifier(t.Schema, true) + "." + name
	}
	return name
}

// ListEnumLabelsQuery returns the existing labels of the column's enum
// type in sort order, one row per label. An empty result means the type
// does not exist yet.
func (g *Generator) ListEnumLabelsQuery(t core.TableName, column string) string {
	schema := t.Schema
	if schema == "" {
		schema = "public"
	}
	var sb strings.Builder
	sb.WriteString(`SELECT e.enumlabel AS "enumLabel" FROM pg_catalog.pg_type t `)
	sb.WriteString("JOIN pg_catalog.pg_enum e ON t.oid = e.enumtypid ")
	sb.WriteString("JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace ")
	sb.WriteString("WHERE n.nspname = ")
	sb.WriteString(g.QuoteString(schema))
	sb.WriteString(" AND t.typname = ")
	sb.WriteString(g.QuoteString(EnumName(t, column)))
	sb.WriteString(" ORDER BY e.enumsortorder;")
	return sb.String()
}

// CreateEnumQuery creates the enum type with the declared values in order.
func (g *Generator) CreateEnumQuery(t core.TableName, column string, values []string) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("enum type for %s.%s declares no values", t, column)
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = g.QuoteString(v)
	}
	return "CREATE TYPE " + g.QuoteEnumName(t, column) + " AS ENUM (" + strings.Join(quoted, ", ") + ");", nil
}

// AddEnumValueQuery appends one missing label to an existing enum type,
// anchored BEFORE or AFTER a neighbor so the final label order matches the
// declared order. Exactly one of before/after may be set.
func (g *Generator) AddEnumValueQuery(t core.TableName, column, value, before, after string) string {
	var sb strings.Builder
	sb.WriteString("ALTER TYPE ")
	sb.WriteString(g.QuoteEnumName(t, column))
	sb.WriteString(" ADD VALUE IF NOT EXISTS ")
	sb.WriteString(g.QuoteString(value))
	if before != "" {
		sb.WriteString(" BEFORE ")
		sb.WriteString(g.QuoteString(before))
	} else if after != "" {
		sb.WriteString(" AFTER ")
		sb.WriteString(g.QuoteString(after))
	}
	sb.WriteString(";")
	return sb.String()
}

// DropEnumQuery drops the enum type owned by a column.
func (g *Generator) DropEnumQuery(t core.TableName, column string) string {
	return "DROP TYPE IF EXISTS " + g.QuoteEnumName(t, column) + ";"
}

// typeSQL maps a portable column type to its Postgres rendering.
func (g *Generator) typeSQL(t core.TableName, c *core.Column) (string, error) {
	if c.TypeRaw != "" {
		return c.TypeRaw, nil
	}
	switch c.Type {
	case core.DataTypeString:
		length := c.Length
		if length == 0 {
			length = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", length), nil
	case core.DataTypeText:
		return "TEXT", nil
	case core.DataTypeInt:
		if c.AutoIncrement {
			return "SERIAL", nil
		}
		return "INTEGER", nil
	case core.DataTypeBigInt:
		if c.AutoIncrement {
			return "BIGSERIAL", nil
		}
		return "BIGINT", nil
	case core.DataTypeFloat:
		return "DOUBLE PRECISION", nil
	case core.DataTypeDecimal:
		return "DECIMAL", nil
	case core.DataTypeBoolean:
		return "BOOLEAN", nil
	case core.DataTypeDatetime:
		return "TIMESTAMP WITH TIME ZONE", nil
	case core.DataTypeDate:
		return "DATE", nil
	case core.DataTypeJSON:
		return "JSONB", nil
	case core.DataTypeUUID:
		return "UUID", nil
	case core.DataTypeBinary:
		return "BYTEA", nil
	case core.DataTypeEnum:
		if len(c.EnumValues) == 0 {
			return "", fmt.Errorf("enum column %q declares no values", c.Name)
		}
		return g.QuoteEnumName(t, c.Name), nil
	default:
		return "", fmt.Errorf("column %q: unsupported type %q", c.Name, c.Type)
	}
}

// AttributeToSQL renders a single column definition. Postgres allows the
// REFERENCES clause inline, so structured references stay in the column
// definition.
func (g *Generator) AttributeToSQL(t core.TableName, c *core.Column) (string, error) {
	typ, err := g.typeSQL(t, c)
	if err != nil {
		return "", err
	}
	parts := []string{g.QuoteIdentifier(c.Name, false), typ}
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if c.DefaultValue != nil {
		parts = append(parts, "DEFAULT", g.FormatValue(*c.DefaultValue))
	}
	if c.Unique {
		parts = append(parts, "UNIQUE")
	}
	if c.References != nil {
		parts = append(parts, g.referencesClause(c.References))
	}
	return strings.Join(parts, " "), nil
}

func (g *Generator) referencesClause(ref *core.ForeignKeyRef) string {
	var sb strings.Builder
	sb.WriteString("REFERENCES ")
	sb.WriteString(g.QuoteTable(ref.Table))
	sb.WriteString(" (")
	sb.WriteString(g.QuoteIdentifier(ref.Key, false))
	sb.WriteString(")")
	if ref.OnDelete != core.RefActionNone {
		sb.WriteString(" ON DELETE ")
		sb.WriteString(string(ref.OnDelete))
	}
	if ref.OnUpdate != core.RefActionNone {
		sb.WriteString(" ON UPDATE ")
		sb.WriteString(string(ref.OnUpdate))
	}
	return sb.String()
}

// CreateTableQuery renders CREATE TABLE with the fixed trailing clause
// order: column definitions, unique constraints, primary key. Foreign keys
// are inline in the column definitions. Enum types referenced by columns
// must exist before this statement runs; the query interface owns that
// sequencing.
func (g *Generator) CreateTableQuery(t core.TableName, columns []*core.Column, opts dialect.CreateTableOptions) (string, error) {
	var lines []string
	var pk []string
	for _, c := range columns {
		def, err := g.AttributeToSQL(t, c)
		if err != nil {
			return "", err
		}
		lines = append(lines, def)
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	for _, uk := range opts.UniqueKeys {
		clause := "UNIQUE " + g.ColumnList(uk.Columns)
		if uk.Name != "" {
			clause = "CONSTRAINT " + g.QuoteIdentifier(uk.Name, false) + " " + clause
		}
		lines = append(lines, clause)
	}
	if len(pk) > 0 {
		lines = append(lines, "PRIMARY KEY "+g.ColumnList(pk))
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if opts.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(lines, ", "))
	sb.WriteString(");")
	if opts.Comment != "" {
		sb.WriteString(" COMMENT ON TABLE " + g.QuoteTable(t) + " IS " + g.QuoteString(opts.Comment) + ";")
	}
	return sb.String(), nil
}

// DropTableQuery renders DROP TABLE, optionally cascading to dependents.
func (g *Generator) DropTableQuery(t core.TableName, opts dialect.DropTableOptions) string {
	var sb strings.Builder
	sb.WriteString("DROP TABLE ")
	if opts.IfExists {
		sb.WriteString("IF EXISTS ")
	}
	sb.WriteString(g.QuoteTable(t))
	if opts.Cascade {
		sb.WriteString(" CASCADE")
	}
	sb.WriteString(";")
	return sb.String()
}

// ShowTablesQuery lists table names in a schema.
func (g *Generator) ShowTablesQuery(schema string) string {
	if schema == "" {
		schema = "public"
	}
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = " + g.QuoteString(schema) + " AND table_type = 'BASE TABLE';"
}

// DescribeTableQuery reads column metadata with canonical aliases, plus
// the enum labels of enum-typed columns.
func (g *Generator) DescribeTableQuery(t core.TableName) string {
	schema := t.Schema
	if schema == "" {
		schema = "public"
	}
	var sb strings.Builder
	sb.WriteString(`SELECT c.column_name AS "columnName", c.data_type AS "dataType", c.udt_name AS "udtName", `)
	sb.WriteString(`c.is_nullable AS "isNullable", c.column_default AS "defaultValue", `)
	sb.WriteString(`(SELECT array_agg(e.enumlabel ORDER BY e.enumsortorder) FROM pg_catalog.pg_enum e `)
	sb.WriteString(`JOIN pg_catalog.pg_type pt ON pt.oid = e.enumtypid WHERE pt.typname = c.udt_name) AS "enumLabels" `)
	sb.WriteString("FROM information_schema.columns c WHERE c.table_schema = ")
	sb.WriteString(g.QuoteString(schema))
	sb.WriteString(" AND c.table_name = ")
	sb.WriteString(g.QuoteString(t.Name))
	sb.WriteString(" ORDER BY c.ordinal_position;")
	return sb.String()
}

// VersionQuery returns the server version.
func (g *Generator) VersionQuery() string {
	return "SHOW server_version;"
}

// AddColumnQuery adds a column.
func (g *Generator) AddColumnQuery(t core.TableName, c *core.Column) (string, error) {
	def, err := g.AttributeToSQL(t, c)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + g.QuoteTable(t) + " ADD COLUMN " + def + ";", nil
}

// RemoveColumnQuery drops a column. Enum cleanup for enum-typed columns is
// sequenced by the query interface.
func (g *Generator) RemoveColumnQuery(t core.TableName, column string) string {
	return "ALTER TABLE " + g.QuoteTable(t) + " DROP COLUMN " + g.QuoteIdentifier(column, false) + ";"
}

// ChangeColumnQuery alters a column through separate statements,
// concatenated in a fixed order: nullability first, then default, then
// type (with a USING cast), then unique constraint, then foreign key.
// Changing the type before dropping an incompatible default would fail, as
// would adding constraints against a column whose type is still wrong;
// the order avoids both.
func (g *Generator) ChangeColumnQuery(t core.TableName, c *core.Column, opts dialect.ChangeColumnOptions) (string, error) {
	table := g.QuoteTable(t)
	col := g.QuoteIdentifier(c.Name, false)
	var stmts []string

	if c.Nullable {
		stmts = append(stmts, "ALTER TABLE "+table+" ALTER COLUMN "+col+" DROP NOT NULL;")
	} else {
		stmts = append(stmts, "ALTER TABLE "+table+" ALTER COLUMN "+col+" SET NOT NULL;")
	}
	if opts.DropDefault {
		stmts = append(stmts, "ALTER TABLE "+table+" ALTER COLUMN "+col+" DROP DEFAULT;")
	} else if c.DefaultValue != nil {
		stmts = append(stmts, "ALTER TABLE "+table+" ALTER COLUMN "+col+" SET DEFAULT "+g.FormatValue(*c.DefaultValue)+";")
	}
	typ, err := g.typeSQL(t, c)
	if err != nil {
		return "", err
	}
	if c.Type == core.DataTypeEnum {
		// Migrating to an enum type goes through text so any previous
		// type can be cast.
		stmts = append(stmts, "ALTER TABLE "+table+" ALTER COLUMN "+col+" TYPE "+typ+" USING ("+col+"::text::"+typ+");")
	} else {
		stmts = append(stmts, "ALTER TABLE "+table+" ALTER COLUMN "+col+" TYPE "+typ+" USING ("+col+"::"+typ+");")
	}
	if c.Unique {
		stmts = append(stmts, "ALTER TABLE "+table+" ADD UNIQUE ("+col+");")
	}
	if c.References != nil {
		stmts = append(stmts, "ALTER TABLE "+table+" ADD FOREIGN KEY ("+col+") "+g.referencesClause(c.References)+";")
	}
	return strings.Join(stmts, ""), nil
}

// RenameColumnQuery renames a column; Postgres keeps type and constraints.
func (g *Generator) RenameColumnQuery(t core.TableName, before string, c *core.Column) (string, error) {
	return "ALTER TABLE " + g.QuoteTable(t) + " RENAME COLUMN " + g.QuoteIdentifier(before, false) + " TO " + g.QuoteIdentifier(c.Name, false) + ";", nil
}

// AddIndexQuery creates an index.
func (g *Generator) AddIndexQuery(t core.TableName, idx *core.Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	using := ""
	if idx.Type != "" {
		using = " USING " + idx.Type
	}
	return "CREATE " + unique + "INDEX " + g.QuoteIdentifier(idx.Name, false) + " ON " + g.QuoteTable(t) + using + " " + g.ColumnList(idx.Columns) + ";"
}

// RemoveIndexQuery drops an index.
func (g *Generator) RemoveIndexQuery(t core.TableName, index string) string {
	return "DROP INDEX IF EXISTS " + g.QuoteIdentifier(index, false) + ";"
}

// AddConstraintQuery adds a table constraint.
func (g *Generator) AddConstraintQuery(t core.TableName, c *core.Constraint) (string, error) {
	clause, err := g.ConstraintClause(c)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + g.QuoteTable(t) + " ADD " + clause + ";", nil
}

// RemoveConstraintQuery drops a constraint by name.
func (g *Generator) RemoveConstraintQuery(t core.TableName, name string) string {
	return "ALTER TABLE " + g.QuoteTable(t) + " DROP CONSTRAINT " + g.QuoteIdentifier(name, false) + ";"
}

// DeferConstraintsQuery renders SET CONSTRAINTS for the current
// transaction.
func (g *Generator) DeferConstraintsQuery(opts dialect.DeferConstraintsOptions) (string, error) {
	target := "ALL"
	if len(opts.Constraints) > 0 {
		quoted := make([]string, len(opts.Constraints))
		for i, c := range opts.Constraints {
			quoted[i] = g.QuoteIdentifier(c, true)
		}
		target = strings.Join(quoted, ", ")
	}
	mode := "IMMEDIATE"
	if opts.Deferred {
		mode = "DEFERRED"
	}
	return "SET CONSTRAINTS " + target + " " + mode + ";", nil
}

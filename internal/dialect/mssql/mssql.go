// Package mssql implements the SQL generator contract for Microsoft SQL
// Server: bracket quoting, IDENTITY auto-increment, OFFSET/FETCH
// pagination, MERGE upsert, and named DEFAULT constraints.
package mssql

import (
	"fmt"
	"strconv"
	"strings"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

var descriptor = &dialect.Descriptor{
	Name:      core.DialectMSSQL,
	TickLeft:  "[",
	TickRight: "]",
	Features: dialect.Features{
		Transactions:      true,
		Savepoints:        true,
		IsolationLevels:   true,
		Autocommit:        true,
		Schemas:           true,
		JSON:              true,
		InlineForeignKeys: true,
		ForUpdate:         true,
		ForShare:          true,
		FetchOffset:       true,
		Upsert:            dialect.UpsertMerge,
	},
}

func init() {
	dialect.Register(core.DialectMSSQL, func(opts dialect.Options) dialect.Generator {
		return New(opts)
	})
}

// Generator is the SQL Server SQL generator.
type Generator struct {
	dialect.Base
}

// New builds a SQL Server generator with the given options.
func New(opts dialect.Options) *Generator {
	return &Generator{Base: dialect.NewBase(descriptor, opts, "1", "0", false)}
}

func (g *Generator) typeSQL(c *core.Column) (string, error) {
	if c.TypeRaw != "" {
		return c.TypeRaw, nil
	}
	switch c.Type {
	case core.DataTypeString:
		length := c.Length
		if length == 0 {
			length = 255
		}
		return fmt.Sprintf("NVARCHAR(%d)", length), nil
	case core.DataTypeText:
		return "NVARCHAR(MAX)", nil
	case core.DataTypeInt:
		return "INTEGER", nil
	case core.DataTypeBigInt:
		return "BIGINT", nil
	case core.DataTypeFloat:
		return "FLOAT", nil
	case core.DataTypeDecimal:
		return "DECIMAL", nil
	case core.DataTypeBoolean:
		return "BIT", nil
	case core.DataTypeDatetime:
		return "DATETIMEOFFSET", nil
	case core.DataTypeDate:
		return "DATE", nil
	case core.DataTypeJSON:
		// SQL Server stores JSON in plain text columns and queries it
		// with JSON_VALUE/JSON_QUERY.
		return "NVARCHAR(MAX)", nil
	case core.DataTypeUUID:
		return "UNIQUEIDENTIFIER", nil
	case core.DataTypeBinary:
		return "VARBINARY(MAX)", nil
	case core.DataTypeEnum:
		if len(c.EnumValues) == 0 {
			return "", fmt.Errorf("enum column %q declares no values", c.Name)
		}
		return "NVARCHAR(255)", nil
	default:
		return "", fmt.Errorf("column %q: unsupported type %q", c.Name, c.Type)
	}
}

// AttributeToSQL renders a single column definition; enum columns get a
// CHECK constraint over the declared values.
func (g *Generator) AttributeToSQL(_ core.TableName, c *core.Column) (string, error) {
	typ, err := g.typeSQL(c)
	if err != nil {
		return "", err
	}
	parts := []string{g.QuoteIdentifier(c.Name, false), typ}
	if c.AutoIncrement {
		parts = append(parts, "IDENTITY(1,1)")
	}
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if c.DefaultValue != nil {
		parts = append(parts, "DEFAULT", g.FormatValue(*c.DefaultValue))
	}
	if c.Unique {
		parts = append(parts, "UNIQUE")
	}
	if c.Type == core.DataTypeEnum {
		quoted := make([]string, len(c.EnumValues))
		for i, v := range c.EnumValues {
			quoted[i] = g.QuoteString(v)
		}
		parts = append(parts, "CHECK ("+g.QuoteIdentifier(c.Name, false)+" IN ("+strings.Join(quoted, ", ")+"))")
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

// CreateTableQuery renders CREATE TABLE. SQL Server has no IF NOT EXISTS
// clause; the statement is guarded by an OBJECT_ID check instead.
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

	create := "CREATE TABLE " + g.QuoteTable(t) + " (" + strings.Join(lines, ", ") + ");"
	if opts.IfNotExists {
		return "IF OBJECT_ID(N'" + g.objectName(t) + "', 'U') IS NULL " + create, nil
	}
	return create, nil
}

// objectName renders the unquoted table reference used by OBJECT_ID and
// sp_rename.
func (g *Generator) objectName(t core.TableName) string {
	quoted := g.QuoteTable(t)
	return strings.ReplaceAll(quoted, "'", "''")
}

// DropTableQuery renders DROP TABLE.
func (g *Generator) DropTableQuery(t core.TableName, opts dialect.DropTableOptions) string {
	var sb strings.Builder
	sb.WriteString("DROP TABLE ")
	if opts.IfExists {
		sb.WriteString("IF EXISTS ")
	}
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(";")
	return sb.String()
}

// RenameTableQuery goes through sp_rename.
func (g *Generator) RenameTableQuery(before, after core.TableName) string {
	return "EXEC sp_rename '" + g.objectName(before) + "', '" + strings.ReplaceAll(after.Name, "'", "''") + "';"
}

// ShowTablesQuery lists base tables in a schema.
func (g *Generator) ShowTablesQuery(schema string) string {
	if schema == "" {
		schema = "dbo"
	}
	return "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = " + g.QuoteString(schema) + ";"
}

// DescribeTableQuery reads column metadata with canonical aliases.
func (g *Generator) DescribeTableQuery(t core.TableName) string {
	schema := t.Schema
	if schema == "" {
		schema = "dbo"
	}
	var sb strings.Builder
	sb.WriteString("SELECT COLUMN_NAME AS [columnName], DATA_TYPE AS [dataType], ")
	sb.WriteString("IS_NULLABLE AS [isNullable], COLUMN_DEFAULT AS [defaultValue], ")
	sb.WriteString("CHARACTER_MAXIMUM_LENGTH AS [maxLength] ")
	sb.WriteString("FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = ")
	sb.WriteString(g.QuoteString(schema))
	sb.WriteString(" AND TABLE_NAME = ")
	sb.WriteString(g.QuoteString(t.Name))
	sb.WriteString(" ORDER BY ORDINAL_POSITION;")
	return sb.String()
}

// VersionQuery returns the server version string.
func (g *Generator) VersionQuery() string {
	return "SELECT @@VERSION AS version;"
}

// AddColumnQuery adds a column; SQL Server uses ADD without the COLUMN
// keyword.
func (g *Generator) AddColumnQuery(t core.TableName, c *core.Column) (string, error) {
	def, err := g.AttributeToSQL(t, c)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + g.QuoteTable(t) + " ADD " + def + ";", nil
}

// RemoveColumnQuery drops a column.
func (g *Generator) RemoveColumnQuery(t core.TableName, column string) string {
	return "ALTER TABLE " + g.QuoteTable(t) + " DROP COLUMN " + g.QuoteIdentifier(column, false) + ";"
}

// ChangeColumnQuery alters type and nullability in one statement; a new
// default is added as a named DEFAULT constraint in a second statement
// since ALTER COLUMN cannot carry one.
func (g *Generator) ChangeColumnQuery(t core.TableName, c *core.Column, opts dialect.ChangeColumnOptions) (string, error) {
	typ, err := g.typeSQL(c)
	if err != nil {
		return "", err
	}
	null := " NOT NULL"
	if c.Nullable {
		null = " NULL"
	}
	stmt := "ALTER TABLE " + g.QuoteTable(t) + " ALTER COLUMN " + g.QuoteIdentifier(c.Name, false) + " " + typ + null + ";"
	if !opts.DropDefault && c.DefaultValue != nil {
		name := "DF_" + t.Name + "_" + c.Name
		stmt += "ALTER TABLE " + g.QuoteTable(t) + " ADD CONSTRAINT " + g.QuoteIdentifier(name, false) +
			" DEFAULT " + g.FormatValue(*c.DefaultValue) + " FOR " + g.QuoteIdentifier(c.Name, false) + ";"
	}
	return stmt, nil
}

// RenameColumnQuery goes through sp_rename with the COLUMN object type.
func (g *Generator) RenameColumnQuery(t core.TableName, before string, c *core.Column) (string, error) {
	return "EXEC sp_rename '" + g.objectName(t) + ".[" + strings.ReplaceAll(before, "'", "''") + "]', '" +
		strings.ReplaceAll(c.Name, "'", "''") + "', 'COLUMN';", nil
}

// AddIndexQuery creates an index.
func (g *Generator) AddIndexQuery(t core.TableName, idx *core.Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return "CREATE " + unique + "INDEX " + g.QuoteIdentifier(idx.Name, false) + " ON " + g.QuoteTable(t) + " " + g.ColumnList(idx.Columns) + ";"
}

// RemoveIndexQuery drops an index; SQL Server scopes the drop to the table.
func (g *Generator) RemoveIndexQuery(t core.TableName, index string) string {
	return "DROP INDEX " + g.QuoteIdentifier(index, false) + " ON " + g.QuoteTable(t) + ";"
}

// AddConstraintQuery adds a table constraint. DEFAULT constraints are
// first-class here, unlike the shared clause builder.
func (g *Generator) AddConstraintQuery(t core.TableName, c *core.Constraint) (string, error) {
	if c.Type == core.ConstraintDefault {
		if len(c.Columns) != 1 {
			return "", fmt.Errorf("default constraint %q requires exactly one column", c.Name)
		}
		if c.DefaultValue == nil {
			return "", fmt.Errorf("default constraint %q has no value", c.Name)
		}
		name := c.Name
		if name == "" {
			name = "DF_" + t.Name + "_" + c.Columns[0]
		}
		return "ALTER TABLE " + g.QuoteTable(t) + " ADD CONSTRAINT " + g.QuoteIdentifier(name, false) +
			" DEFAULT " + g.FormatValue(*c.DefaultValue) + " FOR " + g.QuoteIdentifier(c.Columns[0], false) + ";", nil
	}
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

// AddLimitAndOffset renders OFFSET ... FETCH NEXT pagination, which is only
// legal after an ORDER BY. When the statement has none, a constant ORDER BY
// is injected to satisfy the grammar.
func (g *Generator) AddLimitAndOffset(limit, offset *int, ordered bool) string {
	if limit == nil && offset == nil {
		return ""
	}
	var sb strings.Builder
	if !ordered {
		sb.WriteString(" ORDER BY (SELECT NULL)")
	}
	off := 0
	if offset != nil {
		off = *offset
	}
	sb.WriteString(" OFFSET ")
	sb.WriteString(strconv.Itoa(off))
	sb.WriteString(" ROWS")
	if limit != nil {
		sb.WriteString(" FETCH NEXT ")
		sb.WriteString(strconv.Itoa(*limit))
		sb.WriteString(" ROWS ONLY")
	}
	return sb.String()
}

// Transaction lifecycle. SQL Server savepoints have no RELEASE; releasing
// is a no-op the executor skips.

func (g *Generator) StartTransactionQuery() string { return "BEGIN TRANSACTION;" }

func (g *Generator) CreateSavepointQuery(name string) string {
	return "SAVE TRANSACTION " + g.QuoteIdentifier(name, true) + ";"
}

func (g *Generator) RollbackSavepointQuery(name string) string {
	return "ROLLBACK TRANSACTION " + g.QuoteIdentifier(name, true) + ";"
}

func (g *Generator) ReleaseSavepointQuery(string) string { return "" }

// SetAutocommitQuery toggles implicit transactions, which invert the
// autocommit flag.
func (g *Generator) SetAutocommitQuery(on bool) (string, error) {
	if on {
		return "SET IMPLICIT_TRANSACTIONS OFF;", nil
	}
	return "SET IMPLICIT_TRANSACTIONS ON;", nil
}

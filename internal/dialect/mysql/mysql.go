// Package mysql implements the SQL generator contract for MySQL and
// MariaDB: backtick quoting, ON DUPLICATE KEY upsert, and foreign keys
// hoisted out of column definitions into trailing constraint clauses.
package mysql

import (
	"fmt"
	"strings"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

var descriptor = &dialect.Descriptor{
	Name:      core.DialectMySQL,
	TickLeft:  "`",
	TickRight: "`",
	Features: dialect.Features{
		Transactions:    true,
		Savepoints:      true,
		IsolationLevels: true,
		Autocommit:      true,
		Schemas:         true,
		JSON:            true,
		DeleteLimit:     true,
		IfNotExists:     true,
		ForUpdate:       true,
		ForShare:        true,
		Upsert:          dialect.UpsertDuplicateKey,
	},
}

func init() {
	dialect.Register(core.DialectMySQL, func(opts dialect.Options) dialect.Generator {
		return New(opts)
	})
}

// Generator is the MySQL SQL generator. Stateless beyond its embedded
// configuration; safe for concurrent use.
type Generator struct {
	dialect.Base
}

// New builds a MySQL generator with the given options.
func New(opts dialect.Options) *Generator {
	return &Generator{Base: dialect.NewBase(descriptor, opts, "true", "false", true)}
}

// typeSQL maps a portable column type to its MySQL rendering.
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
		return fmt.Sprintf("VARCHAR(%d)", length), nil
	case core.DataTypeText:
		return "TEXT", nil
	case core.DataTypeInt:
		return "INTEGER", nil
	case core.DataTypeBigInt:
		return "BIGINT", nil
	case core.DataTypeFloat:
		return "FLOAT", nil
	case core.DataTypeDecimal:
		return "DECIMAL", nil
	case core.DataTypeBoolean:
		return "TINYINT(1)", nil
	case core.DataTypeDatetime:
		return "DATETIME", nil
	case core.DataTypeDate:
		return "DATE", nil
	case core.DataTypeJSON:
		return "JSON", nil
	case core.DataTypeUUID:
		return "CHAR(36) BINARY", nil
	case core.DataTypeBinary:
		return "BLOB", nil
	case core.DataTypeEnum:
		if len(c.EnumValues) == 0 {
			return "", fmt.Errorf("enum column %q declares no values", c.Name)
		}
		values := make([]string, len(c.EnumValues))
		for i, v := range c.EnumValues {
			values[i] = g.QuoteString(v)
		}
		return "ENUM(" + strings.Join(values, ", ") + ")", nil
	default:
		return "", fmt.Errorf("column %q: unsupported type %q", c.Name, c.Type)
	}
}

// noDefaultTypes are the MySQL types that refuse DEFAULT clauses. Omitting
// the clause silently is required behavior, not an error.
func typeForbidsDefault(t core.DataType) bool {
	switch t {
	case core.DataTypeText, core.DataTypeBinary, core.DataTypeJSON:
		return true
	default:
		return false
	}
}

// AttributeToSQL renders a single column definition. Foreign-key references
// are never rendered inline: MySQL parses and then ignores inline
// REFERENCES clauses, so CreateTableQuery and AddColumnQuery hoist the
// structured reference into a trailing FOREIGN KEY clause instead.
func (g *Generator) AttributeToSQL(_ core.TableName, c *core.Column) (string, error) {
	typ, err := g.typeSQL(c)
	if err != nil {
		return "", err
	}
	parts := []string{g.QuoteIdentifier(c.Name, false), typ}
	if c.Nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	if c.AutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if c.DefaultValue != nil && !typeForbidsDefault(c.Type) {
		parts = append(parts, "DEFAULT", g.FormatValue(*c.DefaultValue))
	}
	if c.Unique {
		parts = append(parts, "UNIQUE")
	}
	if c.Comment != "" {
		parts = append(parts, "COMMENT", g.QuoteString(c.Comment))
	}
	return strings.Join(parts, " "), nil
}

// CreateTableQuery renders CREATE TABLE with the fixed trailing clause
// order: column definitions, unique constraints, primary key, foreign
// keys. The order is independent of how the inputs were declared.
func (g *Generator) CreateTableQuery(t core.TableName, columns []*core.Column, opts dialect.CreateTableOptions) (string, error) {
	var lines []string
	var pk []string
	var fkLines []string

	for _, c := range columns {
		def, err := g.AttributeToSQL(t, c)
		if err != nil {
			return "", err
		}
		lines = append(lines, def)
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
		if c.References != nil {
			fkLines = append(fkLines, g.foreignKeyClause(c.Name, c.References))
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
	lines = append(lines, fkLines...)

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if opts.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(g.QuoteTable(t))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(lines, ", "))
	sb.WriteString(")")
	if opts.Comment != "" {
		sb.WriteString(" COMMENT=")
		sb.WriteString(g.QuoteString(opts.Comment))
	}
	sb.WriteString(";")
	return sb.String(), nil
}

func (g *Generator) foreignKeyClause(column string, ref *core.ForeignKeyRef) string {
	var sb strings.Builder
	sb.WriteString("FOREIGN KEY (")
	sb.WriteString(g.QuoteIdentifier(column, false))
	sb.WriteString(") REFERENCES ")
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

// RenameTableQuery uses MySQL's RENAME TABLE form.
func (g *Generator) RenameTableQuery(before, after core.TableName) string {
	return "RENAME TABLE " + g.QuoteTable(before) + " TO " + g.QuoteTable(after) + ";"
}

// ShowTablesQuery lists table names, optionally for a specific schema.
func (g *Generator) ShowTablesQuery(schema string) string {
	if schema == "" {
		return "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE';"
	}
	return "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = " + g.QuoteString(schema) + " AND TABLE_TYPE = 'BASE TABLE';"
}

// DescribeTableQuery shows full column metadata for a table.
func (g *Generator) DescribeTableQuery(t core.TableName) string {
	return "SHOW FULL COLUMNS FROM " + g.QuoteTable(t) + ";"
}

// VersionQuery returns the server version.
func (g *Generator) VersionQuery() string {
	return "SELECT VERSION() AS `version`;"
}

// AddColumnQuery adds a column; a structured reference becomes a second
// ALTER statement appended after the column addition.
func (g *Generator) AddColumnQuery(t core.TableName, c *core.Column) (string, error) {
	def, err := g.AttributeToSQL(t, c)
	if err != nil {
		return "", err
	}
	stmt := "ALTER TABLE " + g.QuoteTable(t) + " ADD " + def + ";"
	if c.References != nil {
		stmt += " ALTER TABLE " + g.QuoteTable(t) + " ADD " + g.foreignKeyClause(c.Name, c.References) + ";"
	}
	return stmt, nil
}

// RemoveColumnQuery drops a column. Foreign keys referencing the column
// must be dropped first; that ordering lives in the query interface.
func (g *Generator) RemoveColumnQuery(t core.TableName, column string) string {
	return "ALTER TABLE " + g.QuoteTable(t) + " DROP " + g.QuoteIdentifier(column, false) + ";"
}

// ChangeColumnQuery redefines a column in place with MODIFY.
func (g *Generator) ChangeColumnQuery(t core.TableName, c *core.Column, opts dialect.ChangeColumnOptions) (string, error) {
	if opts.DropDefault {
		return "ALTER TABLE " + g.QuoteTable(t) + " ALTER " + g.QuoteIdentifier(c.Name, false) + " DROP DEFAULT;", nil
	}
	def, err := g.AttributeToSQL(t, c)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + g.QuoteTable(t) + " MODIFY " + def + ";", nil
}

// RenameColumnQuery renames a column with CHANGE, which requires the full
// current definition of the column alongside the new name.
func (g *Generator) RenameColumnQuery(t core.TableName, before string, c *core.Column) (string, error) {
	def, err := g.AttributeToSQL(t, c)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + g.QuoteTable(t) + " CHANGE " + g.QuoteIdentifier(before, false) + " " + def + ";", nil
}

// AddIndexQuery creates an index.
func (g *Generator) AddIndexQuery(t core.TableName, idx *core.Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return "CREATE " + unique + "INDEX " + g.QuoteIdentifier(idx.Name, false) + " ON " + g.QuoteTable(t) + " " + g.ColumnList(idx.Columns) + ";"
}

// RemoveIndexQuery drops an index.
func (g *Generator) RemoveIndexQuery(t core.TableName, index string) string {
	return "DROP INDEX " + g.QuoteIdentifier(index, false) + " ON " + g.QuoteTable(t) + ";"
}

// AddConstraintQuery adds a table constraint.
func (g *Generator) AddConstraintQuery(t core.TableName, c *core.Constraint) (string, error) {
	clause, err := g.ConstraintClause(c)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + g.QuoteTable(t) + " ADD " + clause + ";", nil
}

// RemoveConstraintQuery drops a constraint by name. Foreign keys need the
// dedicated DROP FOREIGN KEY form, chosen by the query interface after it
// has looked the constraint up in the catalog.
func (g *Generator) RemoveConstraintQuery(t core.TableName, name string) string {
	return "ALTER TABLE " + g.QuoteTable(t) + " DROP CONSTRAINT " + g.QuoteIdentifier(name, false) + ";"
}

// RemoveForeignKeyQuery drops a foreign key constraint by name.
func (g *Generator) RemoveForeignKeyQuery(t core.TableName, name string) string {
	return "ALTER TABLE " + g.QuoteTable(t) + " DROP FOREIGN KEY " + g.QuoteIdentifier(name, false) + ";"
}

// SetIsolationLevelQuery applies the level to the session, which MySQL
// requires to happen before the transaction starts.
func (g *Generator) SetIsolationLevelQuery(level dialect.IsolationLevel) (string, error) {
	switch level {
	case dialect.IsolationReadUncommitted, dialect.IsolationReadCommitted, dialect.IsolationRepeatableRead, dialect.IsolationSerializable:
	default:
		return "", fmt.Errorf("unknown isolation level %q", level)
	}
	return "SET SESSION TRANSACTION ISOLATION LEVEL " + string(level) + ";", nil
}

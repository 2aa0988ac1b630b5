// Package oracle implements the SQL generator contract for Oracle
// Database: double-quote quoting, IDENTITY columns, FETCH NEXT
// pagination, MERGE upsert, and PL/SQL guards for the conditional DDL
// forms Oracle lacks.
package oracle

import (
	"fmt"
	"strconv"
	"strings"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

var descriptor = &dialect.Descriptor{
	Name:      core.DialectOracle,
	TickLeft:  `"`,
	TickRight: `"`,
	Features: dialect.Features{
		Transactions:      true,
		Savepoints:        true,
		IsolationLevels:   true,
		Schemas:           true,
		JSON:              true,
		Returning:         true,
		InlineForeignKeys: true,
		ForUpdate:         true,
		FetchOffset:       true,
		Upsert:            dialect.UpsertMerge,
	},
}

func init() {
	dialect.Register(core.DialectOracle, func(opts dialect.Options) dialect.Generator {
		return New(opts)
	})
}

// Generator is the Oracle SQL generator.
type Generator struct {
	dialect.Base
}

// New builds an Oracle generator with the given options.
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
		return fmt.Sprintf("VARCHAR2(%d)", length), nil
	case core.DataTypeText:
		return "CLOB", nil
	case core.DataTypeInt:
		return "NUMBER(10)", nil
	case core.DataTypeBigInt:
		return "NUMBER(19)", nil
	case core.DataTypeFloat:
		return "BINARY_DOUBLE", nil
	case core.DataTypeDecimal:
		return "NUMBER", nil
	case core.DataTypeBoolean:
		return "NUMBER(1)", nil
	case core.DataTypeDatetime:
		return "TIMESTAMP WITH TIME ZONE", nil
	case core.DataTypeDate:
		return "DATE", nil
	case core.DataTypeJSON:
		return "CLOB", nil
	case core.DataTypeUUID:
		return "VARCHAR2(36)", nil
	case core.DataTypeBinary:
		return "BLOB", nil
	case core.DataTypeEnum:
		if len(c.EnumValues) == 0 {
			return "", fmt.Errorf("enum column %q declares no values", c.Name)
		}
		return "VARCHAR2(255)", nil
	default:
		return "", fmt.Errorf("column %q: unsupported type %q", c.Name, c.Type)
	}
}

// AttributeToSQL renders a single column definition. Auto-increment uses
// an IDENTITY clause; enum and JSON columns get CHECK constraints since
// Oracle has neither type natively.
func (g *Generator) AttributeToSQL(_ core.TableName, c *core.Column) (string, error) {
	typ, err := g.typeSQL(c)
	if err != nil {
		return "", err
	}
	parts := []string{g.QuoteIdentifier(c.Name, false), typ}
	if c.AutoIncrement {
		parts = append(parts, "GENERATED BY DEFAULT ON NULL AS IDENTITY")
	}
	if c.DefaultValue != nil {
		// Oracle requires DEFAULT before the NOT NULL clause.
		parts = append(parts, "DEFAULT", g.FormatValue(*c.DefaultValue))
	}
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
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
	if c.Type == core.DataTypeJSON {
		parts = append(parts, "CHECK ("+g.QuoteIdentifier(c.Name, false)+" IS JSON)")
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
	// Oracle supports only ON DELETE, and only CASCADE or SET NULL.
	switch ref.OnDelete {
	case core.RefActionCascade, core.RefActionSetNull:
		sb.WriteString(" ON DELETE ")
		sb.WriteString(string(ref.OnDelete))
	}
	return sb.String()
}

// CreateTableQuery renders CREATE TABLE. Oracle has no IF NOT EXISTS; the
// statement is wrapped in a PL/SQL block that swallows ORA-00955 (name
// already used) when requested.
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

	create := "CREATE TABLE " + g.QuoteTable(t) + " (" + strings.Join(lines, ", ") + ")"
	if !opts.IfNotExists {
		return create + ";", nil
	}
	return "BEGIN EXECUTE IMMEDIATE '" + strings.ReplaceAll(create, "'", "''") +
		"'; EXCEPTION WHEN OTHERS THEN IF SQLCODE != -955 THEN RAISE; END IF; END;", nil
}

// DropTableQuery renders DROP TABLE; IF EXISTS is emulated by swallowing
// ORA-00942 (table or view does not exist).
func (g *Generator) DropTableQuery(t core.TableName, opts dialect.DropTableOptions) string {
	drop := "DROP TABLE " + g.QuoteTable(t)
	if opts.Cascade {
		drop += " CASCADE CONSTRAINTS"
	}
	if !opts.IfExists {
		return drop + ";"
	}
	return "BEGIN EXECUTE IMMEDIATE '" + strings.ReplaceAll(drop, "'", "''") +
		"'; EXCEPTION WHEN OTHERS THEN IF SQLCODE != -942 THEN RAISE; END IF; END;"
}

// ShowTablesQuery lists tables owned by the schema, or the current user's.
func (g *Generator) ShowTablesQuery(schema string) string {
	if schema == "" {
		return "SELECT table_name FROM user_tables;"
	}
	return "SELECT table_name FROM all_tables WHERE owner = " + g.QuoteString(strings.ToUpper(schema)) + ";"
}

// DescribeTableQuery reads column metadata with canonical aliases.
func (g *Generator) DescribeTableQuery(t core.TableName) string {
	var sb strings.Builder
	sb.WriteString(`SELECT column_name AS "columnName", data_type AS "dataType", `)
	sb.WriteString(`nullable AS "isNullable", data_default AS "defaultValue", `)
	sb.WriteString(`data_length AS "maxLength" FROM all_tab_columns WHERE table_name = `)
	sb.WriteString(g.QuoteString(t.Name))
	if t.Schema != "" {
		sb.WriteString(" AND owner = ")
		sb.WriteString(g.QuoteString(strings.ToUpper(t.Schema)))
	}
	sb.WriteString(" ORDER BY column_id;")
	return sb.String()
}

// VersionQuery returns the server banner.
func (g *Generator) VersionQuery() string {
	return "SELECT banner FROM v$version;"
}

// AddColumnQuery adds a column; Oracle uses ADD without the COLUMN
// keyword.
func (g *Generator) AddColumnQuery(t core.TableName, c *core.Column) (string, error) {
	def, err := g.AttributeToSQL(t, c)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + g.QuoteTable(t) + " ADD (" + def + ");", nil
}

// RemoveColumnQuery drops a column.
func (g *Generator) RemoveColumnQuery(t core.TableName, column string) string {
	return "ALTER TABLE " + g.QuoteTable(t) + " DROP COLUMN " + g.QuoteIdentifier(column, false) + ";"
}

// ChangeColumnQuery renders ALTER TABLE ... MODIFY.
func (g *Generator) ChangeColumnQuery(t core.TableName, c *core.Column, opts dialect.ChangeColumnOptions) (string, error) {
	typ, err := g.typeSQL(c)
	if err != nil {
		return "", err
	}
	parts := []string{g.QuoteIdentifier(c.Name, false), typ}
	if opts.DropDefault {
		parts = append(parts, "DEFAULT NULL")
	} else if c.DefaultValue != nil {
		parts = append(parts, "DEFAULT", g.FormatValue(*c.DefaultValue))
	}
	if c.Nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	return "ALTER TABLE " + g.QuoteTable(t) + " MODIFY (" + strings.Join(parts, " ") + ");", nil
}

// RenameColumnQuery renames a column in place.
func (g *Generator) RenameColumnQuery(t core.TableName, before string, c *core.Column) (string, error) {
	return "ALTER TABLE " + g.QuoteTable(t) + " RENAME COLUMN " + g.QuoteIdentifier(before, false) + " TO " + g.QuoteIdentifier(c.Name, false) + ";", nil
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
func (g *Generator) RemoveIndexQuery(_ core.TableName, index string) string {
	return "DROP INDEX " + g.QuoteIdentifier(index, false) + ";"
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

// AddLimitAndOffset renders OFFSET ... FETCH NEXT pagination.
func (g *Generator) AddLimitAndOffset(limit, offset *int, _ bool) string {
	if limit == nil && offset == nil {
		return ""
	}
	var sb strings.Builder
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

// StartTransactionQuery uses SET TRANSACTION; Oracle opens transactions
// implicitly on the first statement.
func (g *Generator) StartTransactionQuery() string { return "SET TRANSACTION READ WRITE;" }

// SetIsolationLevelQuery maps to the two levels Oracle supports.
func (g *Generator) SetIsolationLevelQuery(level dialect.IsolationLevel) (string, error) {
	switch level {
	case dialect.IsolationReadCommitted, dialect.IsolationSerializable:
		return "SET TRANSACTION ISOLATION LEVEL " + string(level) + ";", nil
	default:
		return "", fmt.Errorf("oracle does not support isolation level %q", level)
	}
}

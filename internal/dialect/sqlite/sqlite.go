// Package sqlite implements the SQL generator contract for SQLite. SQLite
// has no schemas, no enum types, and only partial ALTER TABLE support;
// enum columns are emulated with TEXT plus a CHECK constraint, and column
// type changes are sequenced as a table rebuild by the query interface.
package sqlite

import (
	"fmt"
	"strings"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

var descriptor = &dialect.Descriptor{
	Name:      core.DialectSQLite,
	TickLeft:  "`",
	TickRight: "`",
	Features: dialect.Features{
		Transactions:      true,
		Savepoints:        true,
		IsolationLevels:   true,
		JSON:              true,
		InlineForeignKeys: true,
		IfNotExists:       true,
		DefaultBlobText:   true,
		ForeignKeyPragma:  true,
		Upsert:            dialect.UpsertReplace,
	},
}

func init() {
	dialect.Register(core.DialectSQLite, func(opts dialect.Options) dialect.Generator {
		return New(opts)
	})
}

// Generator is the SQLite SQL generator.
type Generator struct {
	dialect.Base
}

// New builds a SQLite generator with the given options.
func New(opts dialect.Options) *Generator {
	return &Generator{Base: dialect.NewBase(descriptor, opts, "1", "0", false)}
}

// typeSQL maps a portable column type to its SQLite rendering. SQLite's
// type affinity makes most of these advisory, but the rendered names match
// what introspection reports back.
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
	case core.DataTypeInt, core.DataTypeBigInt:
		return "INTEGER", nil
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
		return "UUID", nil
	case core.DataTypeBinary:
		return "BLOB", nil
	case core.DataTypeEnum:
		if len(c.EnumValues) == 0 {
			return "", fmt.Errorf("enum column %q declares no values", c.Name)
		}
		return "TEXT", nil
	default:
		return "", fmt.Errorf("column %q: unsupported type %q", c.Name, c.Type)
	}
}

// AttributeToSQL renders a single column definition. Auto-increment
// primary keys must be declared inline as INTEGER PRIMARY KEY AUTOINCREMENT
// to alias the rowid; enum columns get a CHECK constraint over the declared
// values.
func (g *Generator) AttributeToSQL(_ core.TableName, c *core.Column) (string, error) {
	typ, err := g.typeSQL(c)
	if err != nil {
		return "", err
	}
	parts := []string{g.QuoteIdentifier(c.Name, false), typ}
	if c.PrimaryKey && c.AutoIncrement {
		parts = []string{g.QuoteIdentifier(c.Name, false), "INTEGER PRIMARY KEY AUTOINCREMENT"}
	}
	if !c.Nullable && !(c.PrimaryKey && c.AutoIncrement) {
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

// CreateTableQuery renders CREATE TABLE. A composite or non-autoincrement
// primary key goes into a trailing PRIMARY KEY clause; an autoincrement
// key was already rendered inline by AttributeToSQL.
func (g *Generator) CreateTableQuery(t core.TableName, columns []*core.Column, opts dialect.CreateTableOptions) (string, error) {
	var lines []string
	var pk []string
	inlinePK := false
	for _, c := range columns {
		def, err := g.AttributeToSQL(t, c)
		if err != nil {
			return "", err
		}
		lines = append(lines, def)
		if c.PrimaryKey {
			if c.AutoIncrement {
				inlinePK = true
			} else {
				pk = append(pk, c.Name)
			}
		}
	}
	for _, uk := range opts.UniqueKeys {
		clause := "UNIQUE " + g.ColumnList(uk.Columns)
		if uk.Name != "" {
			clause = "CONSTRAINT " + g.QuoteIdentifier(uk.Name, false) + " " + clause
		}
		lines = append(lines, clause)
	}
	if len(pk) > 0 && !inlinePK {
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
	return sb.String(), nil
}

// DropTableQuery renders DROP TABLE; SQLite has no CASCADE.
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

// ShowTablesQuery lists user tables from sqlite_master.
func (g *Generator) ShowTablesQuery(string) string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name != 'sqlite_sequence';"
}

// DescribeTableQuery reads column metadata through the table_info pragma.
func (g *Generator) DescribeTableQuery(t core.TableName) string {
	return "PRAGMA table_info(" + g.QuoteTable(t) + ");"
}

// VersionQuery returns the library version.
func (g *Generator) VersionQuery() string {
	return "SELECT sqlite_version() AS version;"
}

// AddColumnQuery adds a column.
func (g *Generator) AddColumnQuery(t core.TableName, c *core.Column) (string, error) {
	def, err := g.AttributeToSQL(t, c)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + g.QuoteTable(t) + " ADD COLUMN " + def + ";", nil
}

// RemoveColumnQuery drops a column.
func (g *Generator) RemoveColumnQuery(t core.TableName, column string) string {
	return "ALTER TABLE " + g.QuoteTable(t) + " DROP COLUMN " + g.QuoteIdentifier(column, false) + ";"
}

// ErrNeedsTableRebuild reports that SQLite cannot alter the column in
// place. The query interface reacts by rebuilding the table: create a new
// table with the changed definition, copy rows, drop the old table, rename.
var ErrNeedsTableRebuild = fmt.Errorf("sqlite cannot change a column in place; the table must be rebuilt")

// ChangeColumnQuery always fails; see ErrNeedsTableRebuild.
func (g *Generator) ChangeColumnQuery(core.TableName, *core.Column, dialect.ChangeColumnOptions) (string, error) {
	return "", ErrNeedsTableRebuild
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
	return "DROP INDEX IF EXISTS " + g.QuoteIdentifier(index, false) + ";"
}

// AddConstraintQuery fails: SQLite cannot add constraints to an existing
// table without a rebuild.
func (g *Generator) AddConstraintQuery(core.TableName, *core.Constraint) (string, error) {
	return "", ErrNeedsTableRebuild
}

// RemoveConstraintQuery is unsupported for the same reason.
func (g *Generator) RemoveConstraintQuery(core.TableName, string) string {
	return ""
}

// ToggleForeignKeyChecksQuery flips FK enforcement for the session. The
// query interface wraps full-schema teardown in an off/on pair.
func (g *Generator) ToggleForeignKeyChecksQuery(on bool) string {
	if on {
		return "PRAGMA foreign_keys = ON;"
	}
	return "PRAGMA foreign_keys = OFF;"
}

// StartTransactionQuery uses the deferred BEGIN form.
func (g *Generator) StartTransactionQuery() string { return "BEGIN DEFERRED TRANSACTION;" }

// SetIsolationLevelQuery maps the two levels SQLite can express onto the
// read_uncommitted pragma.
func (g *Generator) SetIsolationLevelQuery(level dialect.IsolationLevel) (string, error) {
	switch level {
	case dialect.IsolationReadUncommitted:
		return "PRAGMA read_uncommitted = ON;", nil
	case dialect.IsolationSerializable:
		return "PRAGMA read_uncommitted = OFF;", nil
	default:
		return "", fmt.Errorf("sqlite does not support isolation level %q", level)
	}
}

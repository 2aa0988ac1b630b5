// Package core contains the single source of truth for schema descriptors.
// It provides a structured representation of tables, columns, constraints,
// and indexes that the dialect generators translate into SQL. Descriptors
// carry typed fields (PrimaryKey, References) so generators never have to
// re-parse rendered SQL fragments to discover what a column is.
package core

import (
	"fmt"
	"strings"
)

// Dialect identifies a supported SQL dialect.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
	DialectMSSQL    Dialect = "mssql"
	DialectOracle   Dialect = "oracle"
)

// SupportedDialects returns a slice of all supported dialect values.
func SupportedDialects() []Dialect {
	return []Dialect{
		DialectMySQL,
		DialectPostgres,
		DialectSQLite,
		DialectMSSQL,
		DialectOracle,
	}
}

// IsValidDialect reports whether d is a recognized dialect string.
func IsValidDialect(d string) bool {
	for _, supported := range SupportedDialects() {
		if strings.EqualFold(string(supported), d) {
			return true
		}
	}
	return false
}

// TableName identifies a table, optionally qualified by a schema.
// Generator methods accept either a bare name or a schema-qualified pair;
// the zero Schema means "default schema for the connection".
type TableName struct {
	Name   string `json:"name"`
	Schema string `json:"schema,omitempty"`
}

// TableOf builds an unqualified TableName.
func TableOf(name string) TableName {
	return TableName{Name: name}
}

// SchemaTable builds a schema-qualified TableName.
func SchemaTable(schema, name string) TableName {
	return TableName{Name: name, Schema: schema}
}

// Qualified reports whether the table name carries an explicit schema.
func (t TableName) Qualified() bool { return t.Schema != "" }

// String returns the dotted form for diagnostics only. SQL rendering goes
// through the dialect generator's QuoteTable.
func (t TableName) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Database represents a full schema definition.
type Database struct {
	Name    string   `json:"name"`
	Dialect string   `json:"dialect"`
	Tables  []*Table `json:"tables"`
}

// Table represents a table in the schema.
type Table struct {
	Name        string        `json:"name"`
	Schema      string        `json:"schema,omitempty"`
	Columns     []*Column     `json:"columns"`
	Constraints []*Constraint `json:"constraints,omitempty"`
	Indexes     []*Index      `json:"indexes,omitempty"`
	Comment     string        `json:"comment,omitempty"`
}

// TableName returns the table's (possibly schema-qualified) name descriptor.
func (t *Table) TableName() TableName {
	return TableName{Name: t.Name, Schema: t.Schema}
}

// DataType is the portable column data type. Each dialect generator maps it
// to its native SQL rendering.
type DataType string

const (
	DataTypeString   DataType = "string"
	DataTypeText     DataType = "text"
	DataTypeInt      DataType = "int"
	DataTypeBigInt   DataType = "bigint"
	DataTypeFloat    DataType = "float"
	DataTypeDecimal  DataType = "decimal"
	DataTypeBoolean  DataType = "boolean"
	DataTypeDatetime DataType = "datetime"
	DataTypeDate     DataType = "date"
	DataTypeJSON     DataType = "json"
	DataTypeUUID     DataType = "uuid"
	DataTypeBinary   DataType = "binary"
	DataTypeEnum     DataType = "enum"
	DataTypeUnknown  DataType = "unknown"
)

// ReferentialAction is the ON DELETE / ON UPDATE action of a foreign key.
type ReferentialAction string

const (
	RefActionNone       ReferentialAction = ""
	RefActionCascade    ReferentialAction = "CASCADE"
	RefActionRestrict   ReferentialAction = "RESTRICT"
	RefActionSetNull    ReferentialAction = "SET NULL"
	RefActionSetDefault ReferentialAction = "SET DEFAULT"
	RefActionNoAction   ReferentialAction = "NO ACTION"
)

// ForeignKeyRef is a structured inline foreign-key reference on a column.
// Generators render it either inline (REFERENCES ...) or hoisted to a
// trailing table constraint, depending on what the dialect allows.
type ForeignKeyRef struct {
	Table    TableName         `json:"table"`
	Key      string            `json:"key"`
	OnDelete ReferentialAction `json:"onDelete,omitempty"`
	OnUpdate ReferentialAction `json:"onUpdate,omitempty"`
}

// Column represents a single column descriptor.
type Column struct {
	Name          string   `json:"name"`
	Type          DataType `json:"type"`
	TypeRaw       string   `json:"typeRaw,omitempty"` // dialect-specific override, used verbatim when set
	Length        int      `json:"length,omitempty"`
	Nullable      bool     `json:"nullable"`
	PrimaryKey    bool     `json:"primaryKey,omitempty"`
	AutoIncrement bool     `json:"autoIncrement,omitempty"`
	Unique        bool     `json:"unique,omitempty"`
	Comment       string   `json:"comment,omitempty"`

	// DefaultValue holds the typed default (string, bool, or number);
	// generators render it with their own value formatting, so numeric
	// defaults stay unquoted.
	DefaultValue *any `json:"defaultValue,omitempty"`

	// References is the structured inline foreign-key shorthand.
	References *ForeignKeyRef `json:"references,omitempty"`

	// EnumValues holds the allowed values when Type is "enum", in declared
	// order. Declared order is significant: Postgres reconciles existing
	// type labels against it with BEFORE/AFTER anchors.
	EnumValues []string `json:"enumValues,omitempty"`
}

// ConstraintType is an enum of all supported constraint types.
type ConstraintType string

const (
	ConstraintPrimaryKey ConstraintType = "PRIMARY KEY"
	ConstraintForeignKey ConstraintType = "FOREIGN KEY"
	ConstraintUnique     ConstraintType = "UNIQUE"
	ConstraintCheck      ConstraintType = "CHECK"
	ConstraintDefault    ConstraintType = "DEFAULT"
)

// Constraint is a table-level constraint descriptor.
type Constraint struct {
	Name    string         `json:"name,omitempty"`
	Type    ConstraintType `json:"type"`
	Columns []string       `json:"columns"`

	ReferencedTable   TableName         `json:"referencedTable,omitzero"`
	ReferencedColumns []string          `json:"referencedColumns,omitempty"`
	OnDelete          ReferentialAction `json:"onDelete,omitempty"`
	OnUpdate          ReferentialAction `json:"onUpdate,omitempty"`

	CheckExpression string `json:"checkExpression,omitempty"`

	// DefaultValue is the typed value for DEFAULT constraints (MSSQL).
	DefaultValue *any `json:"defaultValue,omitempty"`
}

// Index is an index descriptor.
type Index struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`
	Type    string   `json:"type,omitempty"` // BTREE, HASH, GIN, ...
}

// GetName methods allow these types to be used with a generic Named interface.
func (t *Table) GetName() string      { return t.Name }
func (c *Column) GetName() string     { return c.Name }
func (c *Constraint) GetName() string { return c.Name }
func (i *Index) GetName() string      { return i.Name }

// FindTable looks for a table by name inside a database.
func (db *Database) FindTable(name string) *Table {
	for _, t := range db.Tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// FindColumn looks for a column by name inside a table.
func (t *Table) FindColumn(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// FindConstraint looks for a constraint by name inside a table.
func (t *Table) FindConstraint(name string) *Constraint {
	for _, c := range t.Constraints {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the primary key constraint of the table, if declared
// at the table level.
func (t *Table) PrimaryKey() *Constraint {
	for _, c := range t.Constraints {
		if c.Type == ConstraintPrimaryKey {
			return c
		}
	}
	return nil
}

// PrimaryKeyColumns returns the names of all columns flagged as primary key,
// in declaration order.
func (t *Table) PrimaryKeyColumns() []string {
	var names []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			names = append(names, c.Name)
		}
	}
	return names
}

// UniqueKeys returns every uniqueness combination declared on the table:
// single-column Unique flags, table-level UNIQUE constraints, and unique
// indexes. Used by upsert to build the disjunctive existence check.
func (t *Table) UniqueKeys() [][]string {
	var keys [][]string
	for _, c := range t.Columns {
		if c.Unique {
			keys = append(keys, []string{c.Name})
		}
	}
	for _, c := range t.Constraints {
		if c.Type == ConstraintUnique && len(c.Columns) > 0 {
			keys = append(keys, c.Columns)
		}
	}
	for _, i := range t.Indexes {
		if i.Unique && len(i.Columns) > 0 {
			keys = append(keys, i.Columns)
		}
	}
	return keys
}

// String returns a string representation of a table with all columns,
// constraints, and indexes.
func (t *Table) String() string {
	return fmt.Sprintf("Table: %s (%d cols, %d constraints, %d indexes)",
		t.Name, len(t.Columns), len(t.Constraints), len(t.Indexes))
}

type normalizeDataTypeRule struct {
	dataType   DataType
	substrings []string
}

var normalizeDataTypeRules = []normalizeDataTypeRule{
	{dataType: DataTypeEnum, substrings: []string{"enum"}},
	{dataType: DataTypeUUID, substrings: []string{"uuid", "uniqueidentifier"}},
	{dataType: DataTypeText, substrings: []string{"text", "clob"}},
	{dataType: DataTypeString, substrings: []string{"char", "string", "set"}},
	{dataType: DataTypeBoolean, substrings: []string{"bool", "tinyint(1)", "bit"}},
	{dataType: DataTypeBigInt, substrings: []string{"bigint", "bigserial", "int8", "number(19"}},
	{dataType: DataTypeInt, substrings: []string{"int", "serial"}},
	{dataType: DataTypeDecimal, substrings: []string{"decimal", "numeric", "number"}},
	{dataType: DataTypeFloat, substrings: []string{"float", "double", "real"}},
	{dataType: DataTypeDatetime, substrings: []string{"timestamp", "datetime", "time"}},
	{dataType: DataTypeDate, substrings: []string{"date"}},
	{dataType: DataTypeJSON, substrings: []string{"json"}},
	{dataType: DataTypeBinary, substrings: []string{"blob", "binary", "varbinary", "bytea", "raw"}},
}

// NormalizeDataType maps a raw SQL type string (e.g. "VARCHAR(255)") to one
// of the portable DataType constants. Matching is case-insensitive and based
// on substring containment, first rule wins.
func NormalizeDataType(rawType string) DataType {
	lower := strings.ToLower(strings.TrimSpace(rawType))
	if lower == "" {
		return DataTypeUnknown
	}
	for _, rule := range normalizeDataTypeRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.dataType
			}
		}
	}
	return DataTypeUnknown
}

// Package dialect provides a unified generator interface for all database
// dialects. Each dialect translates the structured descriptors from
// internal/core into syntactically correct SQL for its database, behind one
// flat contract so callers never branch on dialect themselves.
package dialect

import (
	"fmt"
	"sync"

	"sqlforge/internal/core"
)

// UpsertStrategy names the native insert-or-update primitive of a dialect.
type UpsertStrategy string

const (
	// UpsertDuplicateKey is MySQL's INSERT ... ON DUPLICATE KEY UPDATE.
	UpsertDuplicateKey UpsertStrategy = "on duplicate key"
	// UpsertException is the Postgres PL/pgSQL wrapper function that
	// inserts and falls back to UPDATE on unique_violation.
	UpsertException UpsertStrategy = "exception"
	// UpsertReplace is SQLite's INSERT OR REPLACE.
	UpsertReplace UpsertStrategy = "insert or replace"
	// UpsertMerge is the MERGE statement used by MSSQL and Oracle.
	UpsertMerge UpsertStrategy = "merge"
)

// Features is the per-dialect capability table. Pure data, consumed by
// generators and the query interface to branch behavior.
type Features struct {
	Transactions          bool
	Savepoints            bool
	IsolationLevels       bool
	Autocommit            bool
	Schemas               bool
	Enums                 bool // first-class enum types with their own DDL lifecycle
	JSON                  bool
	JSONOperators         bool // ->, ->> style path operators
	Returning             bool
	InlineForeignKeys     bool // FK clause allowed inside the column definition
	DeleteLimit           bool // DELETE ... LIMIT n
	DeferrableConstraints bool
	IfNotExists           bool
	ForUpdate             bool
	ForShare              bool
	DefaultBlobText       bool // BLOB/TEXT columns may carry DEFAULT clauses
	FetchOffset           bool // OFFSET ... FETCH NEXT pagination instead of LIMIT
	ForeignKeyPragma      bool // FK enforcement toggled via PRAGMA (SQLite)
	Upsert                UpsertStrategy
}

// Descriptor identifies a dialect and its capabilities. One immutable
// instance per dialect, shared by every generator and query interface of
// that dialect.
type Descriptor struct {
	Name      core.Dialect
	TickLeft  string
	TickRight string
	Features  Features
}

// Options carries generator configuration shared by all methods.
type Options struct {
	// QuoteIdentifiers disables identifier quoting when false, except for
	// identifiers that must always be quoted (composite or path references).
	QuoteIdentifiers bool
}

// DefaultOptions returns the generator options used when none are given.
func DefaultOptions() Options {
	return Options{QuoteIdentifiers: true}
}

// Assignment is one column/value pair for INSERT and UPDATE rendering.
// Slices of assignments keep generated SQL deterministic where a map would
// not.
type Assignment struct {
	Column string
	Value  any
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// LockMode selects a row-locking clause on SELECT.
type LockMode string

const (
	LockNone   LockMode = ""
	LockUpdate LockMode = "UPDATE"
	LockShare  LockMode = "SHARE"
)

// CreateTableOptions configures CreateTableQuery.
type CreateTableOptions struct {
	IfNotExists bool
	Comment     string
	// UniqueKeys are named composite unique constraints from the model
	// metadata, rendered after column definitions.
	UniqueKeys []core.Constraint
}

// DropTableOptions configures DropTableQuery.
type DropTableOptions struct {
	IfExists bool
	Cascade  bool
}

// ChangeColumnOptions configures ChangeColumnQuery.
type ChangeColumnOptions struct {
	// DropDefault emits a DROP DEFAULT instead of a SET DEFAULT clause.
	DropDefault bool
}

// SelectOptions configures SelectQuery.
type SelectOptions struct {
	Attributes []string
	Where      Where
	// JSONCondition is a raw JSON path/function expression appended to the
	// WHERE clause. It is validated by CheckJSONStatement before being
	// concatenated into the query.
	JSONCondition string
	GroupBy       []string
	OrderBy       []Order
	Limit         *int
	Offset        *int
	Lock          LockMode
}

// DeleteOptions configures DeleteQuery.
type DeleteOptions struct {
	Limit *int
}

// UpdateOptions configures UpdateQuery.
type UpdateOptions struct {
	Limit *int
}

// IsolationLevel is a transaction isolation level.
type IsolationLevel string

const (
	IsolationReadUncommitted IsolationLevel = "READ UNCOMMITTED"
	IsolationReadCommitted   IsolationLevel = "READ COMMITTED"
	IsolationRepeatableRead  IsolationLevel = "REPEATABLE READ"
	IsolationSerializable    IsolationLevel = "SERIALIZABLE"
)

// DeferConstraintsOptions names the Postgres constraints to defer inside the
// current transaction, or all of them when Constraints is empty.
type DeferConstraintsOptions struct {
	Constraints []string
	Deferred    bool // DEFERRED when true, IMMEDIATE otherwise
}

// Generator is the full per-dialect SQL generation contract. Every dialect
// implements all of it; methods are pure functions from descriptors and
// options to SQL strings. Methods that can detect invalid input ahead of
// execution return an error instead of SQL.
type Generator interface {
	Dialect() core.Dialect
	Descriptor() *Descriptor

	QuoteIdentifier(ident string, force bool) string
	QuoteTable(t core.TableName) string
	QuoteString(value string) string
	FormatValue(v any) string
	CompileWhere(w Where) string

	CreateTableQuery(t core.TableName, columns []*core.Column, opts CreateTableOptions) (string, error)
	DropTableQuery(t core.TableName, opts DropTableOptions) string
	RenameTableQuery(before, after core.TableName) string
	ShowTablesQuery(schema string) string
	DescribeTableQuery(t core.TableName) string
	VersionQuery() string

	AttributeToSQL(t core.TableName, c *core.Column) (string, error)
	AddColumnQuery(t core.TableName, c *core.Column) (string, error)
	RemoveColumnQuery(t core.TableName, column string) string
	ChangeColumnQuery(t core.TableName, c *core.Column, opts ChangeColumnOptions) (string, error)
	RenameColumnQuery(t core.TableName, before string, c *core.Column) (string, error)

	InsertQuery(t core.TableName, row []Assignment) (string, error)
	BulkInsertQuery(t core.TableName, columns []string, rows [][]any) (string, error)
	UpdateQuery(t core.TableName, values []Assignment, where Where, opts UpdateOptions) (string, error)
	DeleteQuery(t core.TableName, where Where, opts DeleteOptions) (string, error)
	SelectQuery(t core.TableName, opts SelectOptions) (string, error)
	ArithmeticQuery(operator string, t core.TableName, values []Assignment, where Where) (string, error)
	UpsertQuery(t core.TableName, insert, update []Assignment, where Where, model *core.Table) (string, error)

	AddIndexQuery(t core.TableName, idx *core.Index) string
	RemoveIndexQuery(t core.TableName, index string) string
	ShowIndexesQuery(t core.TableName) string
	ShowConstraintsQuery(t core.TableName, constraintName string) string
	AddConstraintQuery(t core.TableName, c *core.Constraint) (string, error)
	RemoveConstraintQuery(t core.TableName, name string) string

	// ForeignKeysQuery lists every foreign key of a table from the system
	// catalog. Result columns are aliased to the canonical shape:
	// constraintName, constraintSchema, constraintCatalog, tableName,
	// tableSchema, tableCatalog, columnName, referencedTableName,
	// referencedColumnName.
	ForeignKeysQuery(t core.TableName, database string) string
	// ForeignKeyQuery finds the foreign keys holding a specific column.
	ForeignKeyQuery(t core.TableName, column string) string

	JSONPathExtractionQuery(column string, path []string, unquote bool) (string, error)

	StartTransactionQuery() string
	CommitQuery() string
	RollbackQuery() string
	CreateSavepointQuery(name string) string
	RollbackSavepointQuery(name string) string
	ReleaseSavepointQuery(name string) string
	SetIsolationLevelQuery(level IsolationLevel) (string, error)
	SetAutocommitQuery(on bool) (string, error)
	DeferConstraintsQuery(opts DeferConstraintsOptions) (string, error)

	// AddLimitAndOffset renders the dialect's pagination clause. ordered
	// reports whether the statement already carries an ORDER BY, which
	// FETCH-based dialects require.
	AddLimitAndOffset(limit, offset *int, ordered bool) string
}

var (
	registry = make(map[core.Dialect]func(Options) Generator)
	mu       sync.RWMutex
)

// Register adds a dialect generator constructor to the registry. Called
// from the per-dialect packages' init functions.
func Register(d core.Dialect, ctor func(Options) Generator) {
	mu.Lock()
	defer mu.Unlock()
	registry[d] = ctor
}

// New returns a generator for the given dialect, or an error if the dialect
// package was not linked in.
func New(d core.Dialect, opts Options) (Generator, error) {
	mu.RLock()
	ctor, ok := registry[d]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}
	return ctor(opts), nil
}

package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sqlforge/internal/core"
)

// Literal is a raw SQL fragment that FormatValue injects verbatim, e.g.
// CURRENT_TIMESTAMP or an arithmetic expression.
type Literal string

// Base carries the state and shared algorithms every dialect generator
// embeds: the owning descriptor, generator options, and the dialect knobs
// that string rendering depends on. It is configured at construction and
// never mutated afterwards, so generators stay safe for concurrent use.
type Base struct {
	desc *Descriptor
	opts Options

	boolTrue  string
	boolFalse string
	// backslashEscapes enables MySQL-style backslash escaping inside
	// string literals. Standard SQL dialects only double single quotes.
	backslashEscapes bool
}

// NewBase builds the shared generator core for a dialect.
func NewBase(desc *Descriptor, opts Options, boolTrue, boolFalse string, backslashEscapes bool) Base {
	return Base{
		desc:             desc,
		opts:             opts,
		boolTrue:         boolTrue,
		boolFalse:        boolFalse,
		backslashEscapes: backslashEscapes,
	}
}

// Dialect returns the dialect name.
func (b *Base) Dialect() core.Dialect { return b.desc.Name }

// Descriptor returns the shared capability descriptor.
func (b *Base) Descriptor() *Descriptor { return b.desc }

// Options returns the generator options.
func (b *Base) Options() Options { return b.opts }

// QuoteIdentifier wraps an identifier in the dialect's tick characters.
// The star projection is never quoted. When identifier quoting is disabled
// and force is false, the identifier is returned bare unless it is a
// composite (contains a dot) or a JSON path reference (contains "->"),
// which are always quoted since ambiguity there is unacceptable.
func (b *Base) QuoteIdentifier(ident string, force bool) string {
	ident = strings.TrimSpace(ident)
	if ident == "*" {
		return ident
	}
	composite := strings.Contains(ident, ".")
	jsonPath := strings.Contains(ident, "->")
	if !b.opts.QuoteIdentifiers && !force && !composite && !jsonPath {
		return ident
	}
	if composite && !jsonPath {
		parts := strings.Split(ident, ".")
		for i, p := range parts {
			parts[i] = b.tick(p)
		}
		return strings.Join(parts, ".")
	}
	return b.tick(ident)
}

func (b *Base) tick(ident string) string {
	escaped := strings.ReplaceAll(ident, b.desc.TickRight, b.desc.TickRight+b.desc.TickRight)
	return b.desc.TickLeft + escaped + b.desc.TickRight
}

// QuoteTable renders a possibly schema-qualified table name.
func (b *Base) QuoteTable(t core.TableName) string {
	if t.Schema != "" {
		return b.tick(t.Schema) + "." + b.tick(t.Name)
	}
	return b.tick(t.Name)
}

// QuoteString renders a string literal with the dialect's escaping rules.
func (b *Base) QuoteString(value string) string {
	if !b.backslashEscapes {
		return "'" + strings.ReplaceAll(value, "'", "''") + "'"
	}
	var sb strings.Builder
	sb.Grow(len(value) + len(value)/10 + 2)
	sb.WriteByte('\'')
	for _, char := range value {
		switch char {
		case '\'':
			sb.WriteString("''")
		case '\\':
			sb.WriteString(`\\`)
		case '\x00':
			sb.WriteString(`\0`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\x1A':
			sb.WriteString(`\Z`)
		default:
			sb.WriteRune(char)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

// FormatValue renders a Go value as a SQL literal.
func (b *Base) FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case Literal:
		return string(val)
	case bool:
		if val {
			return b.boolTrue
		}
		return b.boolFalse
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return "'" + val.UTC().Format("2006-01-02 15:04:05") + "'"
	case []byte:
		return b.QuoteString(string(val))
	case string:
		return b.QuoteString(val)
	case fmt.Stringer:
		return b.QuoteString(val.String())
	default:
		return b.QuoteString(fmt.Sprintf("%v", val))
	}
}

// ColumnList renders a quoted, parenthesized column list.
func (b *Base) ColumnList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = b.QuoteIdentifier(c, false)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// AddLimitAndOffset renders LIMIT/OFFSET pagination, the form shared by
// MySQL, Postgres, and SQLite. FETCH-based dialects override it.
func (b *Base) AddLimitAndOffset(limit, offset *int, _ bool) string {
	var sb strings.Builder
	if limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(*limit))
	}
	if offset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(*offset))
	}
	return sb.String()
}

// Transaction lifecycle defaults shared by most dialects.

func (b *Base) StartTransactionQuery() string { return "START TRANSACTION;" }
func (b *Base) CommitQuery() string           { return "COMMIT;" }
func (b *Base) RollbackQuery() string         { return "ROLLBACK;" }

func (b *Base) CreateSavepointQuery(name string) string {
	return "SAVEPOINT " + b.QuoteIdentifier(name, true) + ";"
}

func (b *Base) RollbackSavepointQuery(name string) string {
	return "ROLLBACK TO SAVEPOINT " + b.QuoteIdentifier(name, true) + ";"
}

func (b *Base) ReleaseSavepointQuery(name string) string {
	return "RELEASE SAVEPOINT " + b.QuoteIdentifier(name, true) + ";"
}

// SetIsolationLevelQuery renders the standard SET TRANSACTION form.
func (b *Base) SetIsolationLevelQuery(level IsolationLevel) (string, error) {
	if !b.desc.Features.IsolationLevels {
		return "", fmt.Errorf("dialect %s does not support isolation levels", b.desc.Name)
	}
	switch level {
	case IsolationReadUncommitted, IsolationReadCommitted, IsolationRepeatableRead, IsolationSerializable:
	default:
		return "", fmt.Errorf("unknown isolation level %q", level)
	}
	return "SET TRANSACTION ISOLATION LEVEL " + string(level) + ";", nil
}

// SetAutocommitQuery is a no-op for dialects without an autocommit toggle;
// the query interface skips empty statements.
func (b *Base) SetAutocommitQuery(on bool) (string, error) {
	if !b.desc.Features.Autocommit {
		return "", nil
	}
	if on {
		return "SET autocommit = 1;", nil
	}
	return "SET autocommit = 0;", nil
}

// DeferConstraintsQuery is Postgres-only; every other dialect rejects it.
func (b *Base) DeferConstraintsQuery(DeferConstraintsOptions) (string, error) {
	return "", fmt.Errorf("dialect %s does not support deferrable constraints", b.desc.Name)
}

// RenameTableQuery renders the common ALTER TABLE ... RENAME TO form.
func (b *Base) RenameTableQuery(before, after core.TableName) string {
	return "ALTER TABLE " + b.QuoteTable(before) + " RENAME TO " + b.QuoteTable(after) + ";"
}

// compileOrder renders an ORDER BY clause, empty input included.
func (b *Base) compileOrder(orderBy []Order) string {
	if len(orderBy) == 0 {
		return ""
	}
	terms := make([]string, len(orderBy))
	for i, o := range orderBy {
		terms[i] = b.QuoteIdentifier(o.Column, false)
		if o.Desc {
			terms[i] += " DESC"
		}
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

// CompileOrder is the exported form used by generators building SELECTs.
func (b *Base) CompileOrder(orderBy []Order) string { return b.compileOrder(orderBy) }

// ConstraintClause renders the body of an ADD CONSTRAINT statement. The
// structure is identical across dialects; DEFAULT constraints are the
// MSSQL-only exception and are rejected here.
func (b *Base) ConstraintClause(c *core.Constraint) (string, error) {
	named := func(clause string) string {
		if c.Name != "" {
			return "CONSTRAINT " + b.QuoteIdentifier(c.Name, false) + " " + clause
		}
		return clause
	}
	switch c.Type {
	case core.ConstraintUnique:
		return named("UNIQUE " + b.ColumnList(c.Columns)), nil
	case core.ConstraintPrimaryKey:
		return named("PRIMARY KEY " + b.ColumnList(c.Columns)), nil
	case core.ConstraintCheck:
		if strings.TrimSpace(c.CheckExpression) == "" {
			return "", fmt.Errorf("check constraint %q has no expression", c.Name)
		}
		return named("CHECK (" + c.CheckExpression + ")"), nil
	case core.ConstraintForeignKey:
		if len(c.Columns) == 0 || c.ReferencedTable.Name == "" {
			return "", fmt.Errorf("foreign key constraint %q requires columns and a referenced table", c.Name)
		}
		var sb strings.Builder
		sb.WriteString("FOREIGN KEY ")
		sb.WriteString(b.ColumnList(c.Columns))
		sb.WriteString(" REFERENCES ")
		sb.WriteString(b.QuoteTable(c.ReferencedTable))
		sb.WriteString(" ")
		sb.WriteString(b.ColumnList(c.ReferencedColumns))
		if c.OnDelete != core.RefActionNone {
			sb.WriteString(" ON DELETE ")
			sb.WriteString(string(c.OnDelete))
		}
		if c.OnUpdate != core.RefActionNone {
			sb.WriteString(" ON UPDATE ")
			sb.WriteString(string(c.OnUpdate))
		}
		return named(sb.String()), nil
	case core.ConstraintDefault:
		return "", fmt.Errorf("dialect %s does not support DEFAULT constraints", b.desc.Name)
	default:
		return "", fmt.Errorf("unknown constraint type %q", c.Type)
	}
}

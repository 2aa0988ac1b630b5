package exec

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // registers the parser's value driver
)

// PreflightResult summarizes what applying a statement batch would do:
// warnings about destructive or blocking statements and whether the whole
// batch can run inside one transaction.
type PreflightResult struct {
	Warnings        []Warning
	IsTransactional bool
	NonTxReasons    []string
}

// Warning flags one risky statement.
type Warning struct {
	Level   WarningLevel
	Message string
	SQL     string
}

// WarningLevel grades a warning.
type WarningLevel string

const (
	WarnCaution WarningLevel = "CAUTION"
	WarnDanger  WarningLevel = "DANGER"
)

// HasDestructive reports whether any warning is at the DANGER level.
func (r *PreflightResult) HasDestructive() bool {
	for _, w := range r.Warnings {
		if w.Level == WarnDanger {
			return true
		}
	}
	return false
}

// Analyzer inspects SQL statements ahead of execution. Statements are
// parsed into ASTs with the TiDB parser; statements its MySQL grammar
// cannot parse (other dialects' DDL) fall back to keyword analysis.
type Analyzer struct {
	parser *parser.Parser
}

// NewAnalyzer builds a statement analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{parser: parser.New()}
}

// Analyze inspects a batch of statements.
func (a *Analyzer) Analyze(statements []string) *PreflightResult {
	result := &PreflightResult{IsTransactional: true}
	for _, stmt := range statements {
		a.analyzeOne(result, stmt)
	}
	return result
}

func (a *Analyzer) analyzeOne(result *PreflightResult, stmt string) {
	nodes, _, err := a.parser.Parse(stmt, "", "")
	if err != nil || len(nodes) == 0 {
		a.analyzeByKeyword(result, stmt)
		return
	}
	for _, node := range nodes {
		a.analyzeNode(result, node, stmt)
	}
}

func (a *Analyzer) analyzeNode(result *PreflightResult, node ast.StmtNode, stmt string) {
	switch n := node.(type) {
	case *ast.DropTableStmt:
		a.danger(result, "DROP TABLE will permanently delete the table and all its data", stmt)
		a.nonTransactional(result, "DROP TABLE causes an implicit commit in MySQL", stmt)
	case *ast.TruncateTableStmt:
		a.danger(result, "TRUNCATE TABLE will delete all rows from the table", stmt)
		a.nonTransactional(result, "TRUNCATE TABLE causes an implicit commit in MySQL", stmt)
	case *ast.DropIndexStmt:
		a.caution(result, "DROP INDEX may briefly lock the table", stmt)
		a.nonTransactional(result, "DROP INDEX causes an implicit commit in MySQL", stmt)
	case *ast.CreateIndexStmt:
		a.caution(result, "CREATE INDEX may lock the table for the duration of index creation", stmt)
		a.nonTransactional(result, "CREATE INDEX causes an implicit commit in MySQL", stmt)
	case *ast.CreateTableStmt:
		a.nonTransactional(result, "CREATE TABLE causes an implicit commit in MySQL", stmt)
	case *ast.AlterTableStmt:
		a.analyzeAlterTable(result, n, stmt)
		a.nonTransactional(result, "ALTER TABLE causes an implicit commit in MySQL", stmt)
	case *ast.RenameTableStmt:
		a.caution(result, "RENAME TABLE acquires an exclusive lock but is typically fast", stmt)
		a.nonTransactional(result, "RENAME TABLE causes an implicit commit in MySQL", stmt)
	case *ast.DeleteStmt:
		a.danger(result, "DELETE will remove rows from the table", stmt)
	}
}

func (a *Analyzer) analyzeAlterTable(result *PreflightResult, stmt *ast.AlterTableStmt, sql string) {
	for _, spec := range stmt.Specs {
		switch spec.Tp {
		case ast.AlterTableDropColumn:
			a.danger(result, "DROP COLUMN will permanently delete the column and its data", sql)
			a.caution(result, "DROP COLUMN typically requires a full table rebuild and will lock the table", sql)
		case ast.AlterTableModifyColumn, ast.AlterTableChangeColumn:
			a.caution(result, "column type changes may require a table rebuild", sql)
		case ast.AlterTableDropForeignKey:
			a.caution(result, "DROP FOREIGN KEY may briefly lock the table", sql)
		case ast.AlterTableAddConstraint:
			a.caution(result, "ADD CONSTRAINT may lock the table while validating existing data", sql)
		}
	}
}

// analyzeByKeyword handles statements outside the parser's grammar.
func (a *Analyzer) analyzeByKeyword(result *PreflightResult, stmt string) {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	switch {
	case strings.HasPrefix(upper, "DROP TABLE"):
		a.danger(result, "DROP TABLE will permanently delete the table and all its data", stmt)
		a.nonTransactional(result, "DROP TABLE causes an implicit commit on some dialects", stmt)
	case strings.HasPrefix(upper, "DROP TYPE"):
		a.caution(result, "DROP TYPE will remove the enum type", stmt)
	case strings.HasPrefix(upper, "DELETE "), strings.HasPrefix(upper, "DELETE\n"):
		a.danger(result, "DELETE will remove rows from the table", stmt)
	case strings.HasPrefix(upper, "CREATE "), strings.HasPrefix(upper, "DROP "), strings.HasPrefix(upper, "ALTER "):
		a.nonTransactional(result, "DDL statement may cause an implicit commit", stmt)
	}
}

func (a *Analyzer) danger(result *PreflightResult, msg, stmt string) {
	result.Warnings = append(result.Warnings, Warning{Level: WarnDanger, Message: msg, SQL: stmt})
}

func (a *Analyzer) caution(result *PreflightResult, msg, stmt string) {
	result.Warnings = append(result.Warnings, Warning{Level: WarnCaution, Message: msg, SQL: stmt})
}

func (a *Analyzer) nonTransactional(result *PreflightResult, reason, stmt string) {
	result.IsTransactional = false
	result.NonTxReasons = append(result.NonTxReasons, fmt.Sprintf("%s: %s", reason, truncateSQL(stmt)))
}

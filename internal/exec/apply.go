package exec

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"sqlforge/internal/plan"
)

// ApplyOptions controls how a plan is applied.
type ApplyOptions struct {
	// DryRun prints the preflight analysis and the statements without
	// executing anything.
	DryRun bool
	// Transaction wraps the batch in a transaction when every statement
	// is transaction-safe.
	Transaction bool
	// AllowNonTransactional permits running a batch containing
	// implicit-commit DDL even when Transaction was requested.
	AllowNonTransactional bool
	// Unsafe permits destructive statements (DROP TABLE, DELETE).
	Unsafe bool
	// Out receives progress output; defaults to io.Discard.
	Out io.Writer
}

// Applier executes whole plans against a connection, with preflight
// analysis gating destructive and non-transactional batches.
type Applier struct {
	db       *sql.DB
	analyzer *Analyzer
	opts     ApplyOptions
	out      io.Writer
}

// NewApplier builds an applier over an open connection.
func NewApplier(db *sql.DB, opts ApplyOptions) *Applier {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Applier{db: db, analyzer: NewAnalyzer(), opts: opts, out: out}
}

func (a *Applier) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *Applier) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}

// Apply runs the plan. The batch fails up front when preflight finds
// destructive statements without Unsafe, or implicit-commit DDL inside a
// requested transaction without AllowNonTransactional.
func (a *Applier) Apply(ctx context.Context, p *plan.Plan) error {
	statements := p.Statements()
	preflight := a.analyzer.Analyze(statements)

	if a.opts.DryRun {
		return a.dryRun(p, preflight)
	}
	if preflight.HasDestructive() && !a.opts.Unsafe {
		return fmt.Errorf("plan contains destructive statements; enable unsafe mode to proceed")
	}
	if a.opts.Transaction && !preflight.IsTransactional && !a.opts.AllowNonTransactional {
		return fmt.Errorf("plan contains non-transactional DDL statements; allow non-transactional application to proceed")
	}
	if a.opts.Transaction && preflight.IsTransactional {
		return a.applyWithTransaction(ctx, statements)
	}
	return a.applyWithoutTransaction(ctx, statements)
}

func (a *Applier) dryRun(p *plan.Plan, preflight *PreflightResult) error {
	a.println("=== DRY RUN ===")
	if len(preflight.Warnings) == 0 {
		a.println("No warnings")
	} else {
		for _, w := range preflight.Warnings {
			a.printf("[%s] %s\n", w.Level, w.Message)
			if w.SQL != "" {
				a.printf("    SQL: %s\n", truncateSQL(w.SQL))
			}
		}
	}
	if !preflight.IsTransactional {
		a.println("Plan is NOT transaction-safe")
		for _, reason := range preflight.NonTxReasons {
			a.printf("  - %s\n", reason)
		}
	}
	for _, note := range p.Notes() {
		a.printf("Note: %s\n", note)
	}
	for i, stmt := range p.Statements() {
		a.printf("%d. %s\n", i+1, stmt)
	}
	if preflight.HasDestructive() && !a.opts.Unsafe {
		return fmt.Errorf("preflight checks failed: destructive statements detected without unsafe mode")
	}
	a.println("=== DRY RUN COMPLETE ===")
	return nil
}

func (a *Applier) applyWithTransaction(ctx context.Context, statements []string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for i, stmt := range statements {
		a.printf("executing statement %d/%d\n", i+1, len(statements))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("execute failed: %w; rollback also failed: %v", err, rbErr)
			}
			return fmt.Errorf("execute failed (rolled back): %w\n  Statement: %s", err, truncateSQL(stmt))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	a.printf("applied %d statements\n", len(statements))
	return nil
}

func (a *Applier) applyWithoutTransaction(ctx context.Context, statements []string) error {
	applied := 0
	for i, stmt := range statements {
		a.printf("executing statement %d/%d\n", i+1, len(statements))
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d failed: %w\n  Statement: %s\n  %d statements were already applied and cannot be automatically rolled back",
				i+1, err, truncateSQL(stmt), applied)
		}
		applied++
	}
	a.printf("applied %d statements\n", len(statements))
	return nil
}

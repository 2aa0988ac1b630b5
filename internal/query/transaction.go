package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sqlforge/internal/dialect"
)

// TransactionState is the lifecycle state of a transaction.
type TransactionState string

const (
	TxActive     TransactionState = "active"
	TxCommitted  TransactionState = "committed"
	TxRolledBack TransactionState = "rolled back"
)

// TransactionOptions configures Begin.
type TransactionOptions struct {
	// Isolation sets the transaction isolation level before the
	// transaction starts; empty keeps the session default.
	Isolation dialect.IsolationLevel
	// Parent makes this a savepoint inside an existing transaction
	// instead of a top-level transaction.
	Parent *Transaction
}

// Transaction is one transaction or savepoint. Commit and Rollback are
// one-shot: the first call moves the transaction to a terminal state and
// every later lifecycle call fails with a TransactionStateError.
type Transaction struct {
	id     string
	name   string
	state  TransactionState
	parent *Transaction
	qi     *Interface
}

// ID returns the transaction's unique identifier.
func (tx *Transaction) ID() string { return tx.id }

// State returns the current lifecycle state.
func (tx *Transaction) State() TransactionState { return tx.state }

// Savepoint reports whether this transaction is a nested savepoint.
func (tx *Transaction) Savepoint() bool { return tx.parent != nil }

// Begin starts a transaction. Top-level transactions first disable
// autocommit where the dialect has a toggle and apply the requested
// isolation level; savepoints skip both since they run inside the
// parent's session configuration.
func (qi *Interface) Begin(ctx context.Context, opts TransactionOptions) (*Transaction, error) {
	id := uuid.NewString()
	tx := &Transaction{
		id:     id,
		name:   "sp_" + strings.ReplaceAll(id, "-", "_"),
		state:  TxActive,
		parent: opts.Parent,
		qi:     qi,
	}

	if opts.Parent != nil {
		if opts.Parent.state != TxActive {
			return nil, &TransactionStateError{ID: opts.Parent.id, State: opts.Parent.state, Op: "nest savepoint in"}
		}
		if !qi.gen.Descriptor().Features.Savepoints {
			return nil, fmt.Errorf("dialect %s does not support savepoints", qi.gen.Dialect())
		}
		if _, err := qi.run(ctx, qi.gen.CreateSavepointQuery(tx.name)); err != nil {
			return nil, err
		}
		return tx, nil
	}

	stmt, err := qi.gen.SetAutocommitQuery(false)
	if err != nil {
		return nil, err
	}
	if _, err := qi.run(ctx, stmt); err != nil {
		return nil, err
	}
	if opts.Isolation != "" {
		stmt, err := qi.gen.SetIsolationLevelQuery(opts.Isolation)
		if err != nil {
			return nil, err
		}
		if _, err := qi.run(ctx, stmt); err != nil {
			return nil, err
		}
	}
	if _, err := qi.run(ctx, qi.gen.StartTransactionQuery()); err != nil {
		return nil, err
	}
	return tx, nil
}

// Commit commits the transaction, or releases the savepoint for nested
// transactions.
func (tx *Transaction) Commit(ctx context.Context) error {
	if tx.state != TxActive {
		return &TransactionStateError{ID: tx.id, State: tx.state, Op: "commit"}
	}
	if tx.parent != nil {
		if _, err := tx.qi.run(ctx, tx.qi.gen.ReleaseSavepointQuery(tx.name)); err != nil {
			return err
		}
		tx.state = TxCommitted
		return nil
	}
	if _, err := tx.qi.run(ctx, tx.qi.gen.CommitQuery()); err != nil {
		return err
	}
	tx.state = TxCommitted
	return tx.restoreAutocommit(ctx)
}

// Rollback rolls the transaction back, or rewinds to the savepoint for
// nested transactions.
func (tx *Transaction) Rollback(ctx context.Context) error {
	if tx.state != TxActive {
		return &TransactionStateError{ID: tx.id, State: tx.state, Op: "roll back"}
	}
	if tx.parent != nil {
		if _, err := tx.qi.run(ctx, tx.qi.gen.RollbackSavepointQuery(tx.name)); err != nil {
			return err
		}
		tx.state = TxRolledBack
		return nil
	}
	if _, err := tx.qi.run(ctx, tx.qi.gen.RollbackQuery()); err != nil {
		return err
	}
	tx.state = TxRolledBack
	return tx.restoreAutocommit(ctx)
}

func (tx *Transaction) restoreAutocommit(ctx context.Context) error {
	stmt, err := tx.qi.gen.SetAutocommitQuery(true)
	if err != nil {
		return err
	}
	_, err = tx.qi.run(ctx, stmt)
	return err
}

// DeferConstraints defers (or un-defers) constraint checking inside the
// active transaction, where the dialect supports it.
func (tx *Transaction) DeferConstraints(ctx context.Context, opts dialect.DeferConstraintsOptions) error {
	if tx.state != TxActive {
		return &TransactionStateError{ID: tx.id, State: tx.state, Op: "defer constraints in"}
	}
	stmt, err := tx.qi.gen.DeferConstraintsQuery(opts)
	if err != nil {
		return err
	}
	_, err = tx.qi.run(ctx, stmt)
	return err
}

package query

import (
	"fmt"

	"sqlforge/internal/core"
)

// NoDescriptionError reports that DescribeTable found no columns, which
// means the table does not exist for this connection.
type NoDescriptionError struct {
	Table core.TableName
}

func (e *NoDescriptionError) Error() string {
	return fmt.Sprintf("no description found for table %s; the table may not exist", e.Table)
}

// UnknownConstraintError reports a constraint removal targeting a
// constraint the catalog does not know.
type UnknownConstraintError struct {
	Table      core.TableName
	Constraint string
}

func (e *UnknownConstraintError) Error() string {
	return fmt.Sprintf("constraint %s on table %s does not exist", e.Constraint, e.Table)
}

// UnknownColumnError reports an operation targeting a column missing from
// the table description.
type UnknownColumnError struct {
	Table  core.TableName
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("column %s does not exist on table %s", e.Column, e.Table)
}

// TransactionStateError reports a lifecycle call against a transaction
// that already reached a terminal state.
type TransactionStateError struct {
	ID    string
	State TransactionState
	Op    string
}

func (e *TransactionStateError) Error() string {
	return fmt.Sprintf("cannot %s transaction %s: state is %s", e.Op, e.ID, e.State)
}

package exec

import (
	"bytes"
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlforge/internal/plan"
)

func createPlan() *plan.Plan {
	p := &plan.Plan{}
	p.AddWithRollback("CREATE TABLE users (id INT);", "DROP TABLE IF EXISTS users;")
	p.Add("CREATE INDEX idx_id ON users (id);")
	return p
}

func dmlPlan() *plan.Plan {
	p := &plan.Plan{}
	p.Add("INSERT INTO users (id) VALUES (1);")
	p.Add("UPDATE users SET id = 2 WHERE id = 1;")
	return p
}

func TestApplyRejectsDestructiveWithoutUnsafe(t *testing.T) {
	p := &plan.Plan{}
	p.Add("DROP TABLE users;")

	a := NewApplier(nil, ApplyOptions{})
	err := a.Apply(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destructive")
}

func TestApplyRejectsNonTransactionalDDLInTransaction(t *testing.T) {
	a := NewApplier(nil, ApplyOptions{Transaction: true})
	err := a.Apply(context.Background(), createPlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-transactional")
}

func TestApplyWithTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users (id) VALUES (1);").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET id = 2 WHERE id = 1;").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a := NewApplier(db, ApplyOptions{Transaction: true})
	require.NoError(t, a.Apply(context.Background(), dmlPlan()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users (id) VALUES (1);").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	a := NewApplier(db, ApplyOptions{Transaction: true})
	err = a.Apply(context.Background(), dmlPlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rolled back")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyWithoutTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	p := createPlan()
	mock.ExpectExec("CREATE TABLE users (id INT);").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX idx_id ON users (id);").WillReturnResult(sqlmock.NewResult(0, 0))

	a := NewApplier(db, ApplyOptions{Transaction: true, AllowNonTransactional: true})
	require.NoError(t, a.Apply(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyWithoutTransactionReportsProgress(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE users (id INT);").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX idx_id ON users (id);").WillReturnError(assert.AnError)

	a := NewApplier(db, ApplyOptions{})
	err = a.Apply(context.Background(), createPlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2 failed")
	assert.Contains(t, err.Error(), "1 statements were already applied")
}

func TestApplyDryRun(t *testing.T) {
	var buf bytes.Buffer
	a := NewApplier(nil, ApplyOptions{DryRun: true, Out: &buf})

	require.NoError(t, a.Apply(context.Background(), createPlan()))
	out := buf.String()
	assert.Contains(t, out, "=== DRY RUN ===")
	assert.Contains(t, out, "1. CREATE TABLE users (id INT);")
	assert.Contains(t, out, "NOT transaction-safe")
	assert.Contains(t, out, "=== DRY RUN COMPLETE ===")
}

func TestApplyDryRunFailsOnDestructive(t *testing.T) {
	p := &plan.Plan{}
	p.Add("DROP TABLE users;")

	var buf bytes.Buffer
	a := NewApplier(nil, ApplyOptions{DryRun: true, Out: &buf})
	err := a.Apply(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight checks failed")
	assert.Contains(t, buf.String(), "[DANGER]")
}

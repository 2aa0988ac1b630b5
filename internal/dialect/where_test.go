package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereEmpty(t *testing.T) {
	assert.True(t, Where{}.Empty())
	assert.True(t, And().Empty())
	assert.True(t, Where{Or: []Clause{{}}}.Empty())
	assert.False(t, And(Eq("id", 1)).Empty())
}

func TestCompileWhereSingleClause(t *testing.T) {
	b := testBase()

	w := And(Eq("id", 1))
	assert.Equal(t, "`id` = 1", b.CompileWhere(w))

	w = And(Eq("status", "active"), Cond{Column: "age", Op: OpGte, Value: 18})
	assert.Equal(t, "`status` = 'active' AND `age` >= 18", b.CompileWhere(w))
}

func TestCompileWhereOrClauses(t *testing.T) {
	b := testBase()

	w := And(Eq("id", 1)).OrClause(Eq("email", "a@b.c"), IsNull("deleted_at"))
	assert.Equal(t, "(`id` = 1) OR (`email` = 'a@b.c' AND `deleted_at` IS NULL)", b.CompileWhere(w))
}

func TestCompileWhereEmpty(t *testing.T) {
	b := testBase()
	assert.Equal(t, "", b.CompileWhere(Where{}))
	assert.Equal(t, "", b.CompileWhere(Where{Or: []Clause{{}}}))
}

func TestCompileWhereIn(t *testing.T) {
	b := testBase()

	w := And(In("status", "new", "open"))
	assert.Equal(t, "`status` IN ('new', 'open')", b.CompileWhere(w))

	// An empty IN list matches no rows.
	w = And(In("status"))
	assert.Equal(t, "1 = 0", b.CompileWhere(w))
}

func TestCompileWhereNilEquality(t *testing.T) {
	b := testBase()

	w := And(Eq("deleted_at", nil))
	assert.Equal(t, "`deleted_at` IS NULL", b.CompileWhere(w))

	w = And(Cond{Column: "deleted_at", Op: OpNe, Value: nil})
	assert.Equal(t, "`deleted_at` <> NULL", b.CompileWhere(w))
}

func TestCompileWhereDefaultOperator(t *testing.T) {
	b := testBase()
	w := And(Cond{Column: "id", Value: 7})
	assert.Equal(t, "`id` = 7", b.CompileWhere(w))
}

func TestCompileWhereNotNull(t *testing.T) {
	b := testBase()
	w := And(Cond{Column: "email", Op: OpNotNull})
	assert.Equal(t, "`email` IS NOT NULL", b.CompileWhere(w))
}

package dialect

import (
	"strings"
)

// Op is a comparison operator inside a WHERE condition.
type Op string

const (
	OpEq      Op = "="
	OpNe      Op = "<>"
	OpGt      Op = ">"
	OpGte     Op = ">="
	OpLt      Op = "<"
	OpLte     Op = "<="
	OpLike    Op = "LIKE"
	OpIn      Op = "IN"
	OpIsNull  Op = "IS NULL"
	OpNotNull Op = "IS NOT NULL"
)

// Cond is one column comparison.
type Cond struct {
	Column string
	Op     Op
	Value  any
}

// Eq builds an equality condition.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Op: OpEq, Value: value}
}

// In builds an IN condition over the given values.
func In(column string, values ...any) Cond {
	return Cond{Column: column, Op: OpIn, Value: values}
}

// IsNull builds an IS NULL condition.
func IsNull(column string) Cond {
	return Cond{Column: column, Op: OpIsNull}
}

// Clause is a conjunction of conditions (joined with AND).
type Clause []Cond

// Where is a disjunction of clauses (joined with OR). The zero value
// compiles to no WHERE clause at all.
type Where struct {
	Or []Clause
}

// And builds a Where with a single ANDed clause.
func And(conds ...Cond) Where {
	if len(conds) == 0 {
		return Where{}
	}
	return Where{Or: []Clause{conds}}
}

// OrClause appends another ORed clause and returns the extended Where.
func (w Where) OrClause(conds ...Cond) Where {
	if len(conds) == 0 {
		return w
	}
	w.Or = append(w.Or, Clause(conds))
	return w
}

// Empty reports whether the Where compiles to nothing.
func (w Where) Empty() bool {
	for _, c := range w.Or {
		if len(c) > 0 {
			return false
		}
	}
	return true
}

// CompileWhere renders a Where into a SQL fragment without the leading
// WHERE keyword. Returns "" for an empty Where. Every dialect shares this
// algorithm; only quoting and value formatting vary underneath.
func (b *Base) CompileWhere(w Where) string {
	var clauses []string
	for _, clause := range w.Or {
		if len(clause) == 0 {
			continue
		}
		conds := make([]string, 0, len(clause))
		for _, c := range clause {
			conds = append(conds, b.compileCond(c))
		}
		clauses = append(clauses, strings.Join(conds, " AND "))
	}
	switch len(clauses) {
	case 0:
		return ""
	case 1:
		return clauses[0]
	default:
		for i := range clauses {
			clauses[i] = "(" + clauses[i] + ")"
		}
		return strings.Join(clauses, " OR ")
	}
}

func (b *Base) compileCond(c Cond) string {
	col := b.QuoteIdentifier(c.Column, false)
	switch c.Op {
	case OpIsNull, OpNotNull:
		return col + " " + string(c.Op)
	case OpIn:
		values, _ := c.Value.([]any)
		if len(values) == 0 {
			// An empty IN list matches nothing; render a false predicate
			// instead of invalid SQL.
			return "1 = 0"
		}
		rendered := make([]string, len(values))
		for i, v := range values {
			rendered[i] = b.FormatValue(v)
		}
		return col + " IN (" + strings.Join(rendered, ", ") + ")"
	default:
		op := c.Op
		if op == "" {
			op = OpEq
		}
		if c.Value == nil && op == OpEq {
			return col + " IS NULL"
		}
		return col + " " + string(op) + " " + b.FormatValue(c.Value)
	}
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDatabase() *Database {
	return &Database{
		Name:    "shop",
		Dialect: "mysql",
		Tables: []*Table{
			{
				Name: "users",
				Columns: []*Column{
					{Name: "id", Type: DataTypeInt, PrimaryKey: true, AutoIncrement: true},
					{Name: "email", Type: DataTypeString, Unique: true},
				},
			},
			{
				Name: "orders",
				Columns: []*Column{
					{Name: "id", Type: DataTypeInt, PrimaryKey: true},
					{Name: "user_id", Type: DataTypeInt, References: &ForeignKeyRef{
						Table: TableOf("users"), Key: "id", OnDelete: RefActionCascade,
					}},
				},
			},
		},
	}
}

func TestValidateOK(t *testing.T) {
	require.NoError(t, validDatabase().Validate())
}

func TestValidateNilDatabase(t *testing.T) {
	var db *Database
	err := db.Validate()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "database", verr.Entity)
}

func TestValidateDuplicateTableName(t *testing.T) {
	db := validDatabase()
	db.Tables = append(db.Tables, &Table{
		Name:    "USERS",
		Columns: []*Column{{Name: "id", Type: DataTypeInt}},
	})
	err := db.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table name")
}

func TestValidateTableWithoutColumns(t *testing.T) {
	db := &Database{Tables: []*Table{{Name: "empty"}}}
	err := db.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestValidateDuplicateColumnName(t *testing.T) {
	tbl := &Table{
		Name: "users",
		Columns: []*Column{
			{Name: "email", Type: DataTypeString},
			{Name: "Email", Type: DataTypeString},
		},
	}
	err := tbl.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name")
}

func TestValidateEnumColumnWithoutValues(t *testing.T) {
	tbl := &Table{
		Name:    "users",
		Columns: []*Column{{Name: "status", Type: DataTypeEnum}},
	}
	err := tbl.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enum column declares no values")
}

func TestValidateColumnReference(t *testing.T) {
	col := &Column{Name: "user_id", Type: DataTypeInt, References: &ForeignKeyRef{Key: "id"}}
	err := col.Validate("orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target table")

	col = &Column{Name: "user_id", Type: DataTypeInt, References: &ForeignKeyRef{
		Table: TableOf("users"), Key: "id", OnDelete: ReferentialAction("EXPLODE"),
	}}
	err = col.Validate("orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid referential action")
}

func TestValidateConstraint(t *testing.T) {
	bad := &Constraint{Name: "c1", Type: ConstraintType("SPECIAL")}
	require.Error(t, bad.Validate("users"))

	fk := &Constraint{Name: "fk1", Type: ConstraintForeignKey}
	err := fk.Validate("orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foreign key requires columns")

	check := &Constraint{Name: "chk1", Type: ConstraintCheck, CheckExpression: "  "}
	err = check.Validate("users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an expression")

	ok := &Constraint{
		Name: "fk2", Type: ConstraintForeignKey,
		Columns: []string{"user_id"}, ReferencedTable: TableOf("users"), ReferencedColumns: []string{"id"},
		OnDelete: RefActionSetNull,
	}
	assert.NoError(t, ok.Validate("orders"))
}

package core

import (
	"fmt"
	"strings"
)

// ValidationError represents an error during schema validation.
type ValidationError struct {
	Entity  string
	Name    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s %q: %s", e.Entity, e.Name, e.Message)
}

// Validate checks if the Database schema is valid and returns an error if not.
func (db *Database) Validate() error {
	if db == nil {
		return &ValidationError{Entity: "database", Message: "database is nil"}
	}
	seen := make(map[string]bool)
	for i, t := range db.Tables {
		if t == nil {
			return &ValidationError{Entity: "database", Name: db.Name, Message: fmt.Sprintf("table at index %d is nil", i)}
		}
		nameLower := strings.ToLower(t.Name)
		if seen[nameLower] {
			return &ValidationError{Entity: "database", Name: db.Name, Message: fmt.Sprintf("duplicate table name %q", t.Name)}
		}
		seen[nameLower] = true
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the Table definition is valid and returns an error if not.
func (t *Table) Validate() error {
	if t == nil {
		return &ValidationError{Entity: "table", Message: "table is nil"}
	}
	if strings.TrimSpace(t.Name) == "" {
		return &ValidationError{Entity: "table", Name: "(empty)", Message: "table name is empty"}
	}
	if len(t.Columns) == 0 {
		return &ValidationError{Entity: "table", Name: t.Name, Message: "table has no columns"}
	}

	seenCols := make(map[string]bool)
	for i, c := range t.Columns {
		if c == nil {
			return &ValidationError{Entity: "table", Name: t.Name, Message: fmt.Sprintf("column at index %d is nil", i)}
		}
		if err := c.Validate(t.Name); err != nil {
			return err
		}
		nameLower := strings.ToLower(c.Name)
		if seenCols[nameLower] {
			return &ValidationError{Entity: "table", Name: t.Name, Message: fmt.Sprintf("duplicate column name %q", c.Name)}
		}
		seenCols[nameLower] = true
	}

	for _, c := range t.Constraints {
		if c == nil {
			continue
		}
		if err := c.Validate(t.Name); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single column descriptor.
func (c *Column) Validate(table string) error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Entity: "table", Name: table, Message: "column name is empty"}
	}
	if c.Type == DataTypeEnum && len(c.EnumValues) == 0 {
		return &ValidationError{Entity: "column", Name: table + "." + c.Name, Message: "enum column declares no values"}
	}
	if c.References != nil {
		if strings.TrimSpace(c.References.Table.Name) == "" || strings.TrimSpace(c.References.Key) == "" {
			return &ValidationError{Entity: "column", Name: table + "." + c.Name, Message: "references requires a target table and key"}
		}
		if !isValidReferentialAction(c.References.OnDelete) || !isValidReferentialAction(c.References.OnUpdate) {
			return &ValidationError{Entity: "column", Name: table + "." + c.Name, Message: "invalid referential action"}
		}
	}
	return nil
}

// Validate checks a table-level constraint descriptor.
func (c *Constraint) Validate(table string) error {
	switch c.Type {
	case ConstraintPrimaryKey, ConstraintForeignKey, ConstraintUnique, ConstraintCheck, ConstraintDefault:
	default:
		return &ValidationError{Entity: "constraint", Name: table + "." + c.Name, Message: fmt.Sprintf("invalid constraint type %q", c.Type)}
	}
	if c.Type == ConstraintForeignKey {
		if len(c.Columns) == 0 || strings.TrimSpace(c.ReferencedTable.Name) == "" {
			return &ValidationError{Entity: "constraint", Name: table + "." + c.Name, Message: "foreign key requires columns and a referenced table"}
		}
		if !isValidReferentialAction(c.OnDelete) || !isValidReferentialAction(c.OnUpdate) {
			return &ValidationError{Entity: "constraint", Name: table + "." + c.Name, Message: "invalid referential action"}
		}
	}
	if c.Type == ConstraintCheck && strings.TrimSpace(c.CheckExpression) == "" {
		return &ValidationError{Entity: "constraint", Name: table + "." + c.Name, Message: "check constraint requires an expression"}
	}
	return nil
}

func isValidReferentialAction(ra ReferentialAction) bool {
	switch ra {
	case RefActionNone, RefActionCascade, RefActionRestrict, RefActionSetNull, RefActionSetDefault, RefActionNoAction:
		return true
	default:
		return false
	}
}

package plan

import (
	"fmt"

	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
)

type enumGenerator interface {
	CreateEnumQuery(t core.TableName, column string, values []string) (string, error)
	DropEnumQuery(t core.TableName, column string) string
}

// Create builds the full creation plan for a database descriptor: enum
// types first where the dialect has them, then the tables in declaration
// order. Rollback statements drop everything in reverse.
func Create(gen dialect.Generator, db *core.Database) (*Plan, error) {
	p := &Plan{}
	eg, hasEnums := gen.(enumGenerator)
	hasEnums = hasEnums && gen.Descriptor().Features.Enums

	for _, table := range db.Tables {
		t := table.TableName()
		if hasEnums {
			for _, c := range table.Columns {
				if c.Type != core.DataTypeEnum {
					continue
				}
				stmt, err := eg.CreateEnumQuery(t, c.Name, c.EnumValues)
				if err != nil {
					return nil, fmt.Errorf("table %s: %w", t, err)
				}
				p.AddWithRollback(stmt, eg.DropEnumQuery(t, c.Name))
			}
		}

		opts := dialect.CreateTableOptions{
			IfNotExists: gen.Descriptor().Features.IfNotExists,
			Comment:     table.Comment,
		}
		for _, con := range table.Constraints {
			if con.Type == core.ConstraintUnique {
				opts.UniqueKeys = append(opts.UniqueKeys, *con)
			}
		}
		stmt, err := gen.CreateTableQuery(t, table.Columns, opts)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t, err)
		}
		p.AddWithRollback(stmt, gen.DropTableQuery(t, dialect.DropTableOptions{IfExists: true}))

		for _, idx := range table.Indexes {
			p.AddWithRollback(gen.AddIndexQuery(t, idx), gen.RemoveIndexQuery(t, idx.Name))
		}
		for _, con := range table.Constraints {
			// Unique constraints ride inside CREATE TABLE; the rest are
			// added afterwards so forward references between tables keep
			// working.
			if con.Type == core.ConstraintUnique || con.Type == core.ConstraintPrimaryKey {
				continue
			}
			stmt, err := gen.AddConstraintQuery(t, con)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", t, err)
			}
			rollback := ""
			if con.Name != "" {
				rollback = gen.RemoveConstraintQuery(t, con.Name)
			}
			p.AddWithRollback(stmt, rollback)
		}
	}
	return p, nil
}

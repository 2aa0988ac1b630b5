// Package toml reads dialect-agnostic schema definitions from TOML files
// and converts them into the core descriptors the generators operate on.
package toml

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"sqlforge/internal/core"
)

// schemaFile is the top-level TOML document: [database] plus [[tables]].
type schemaFile struct {
	Database tomlDatabase `toml:"database"`
	Tables   []tomlTable  `toml:"tables"`
}

type tomlDatabase struct {
	Name    string `toml:"name"`
	Dialect string `toml:"dialect"`
}

type tomlTable struct {
	Name        string           `toml:"name"`
	Schema      string           `toml:"schema"`
	Comment     string           `toml:"comment"`
	Columns     []tomlColumn     `toml:"columns"`
	Constraints []tomlConstraint `toml:"constraints"`
	Indexes     []tomlIndex      `toml:"indexes"`
}

type tomlColumn struct {
	Name          string `toml:"name"`
	Type          string `toml:"type"`
	Length        int    `toml:"length"`
	PrimaryKey    bool   `toml:"primary_key"`
	AutoIncrement bool   `toml:"auto_increment"`
	Nullable      bool   `toml:"nullable"`
	Unique        bool   `toml:"unique"`
	Comment       string `toml:"comment"`

	// DefaultValue accepts string, bool, or number and stays typed so
	// the generators format it per dialect.
	DefaultValue any `toml:"default"`

	// References is an inline foreign key in "table.column" form.
	References string `toml:"references"`
	OnDelete   string `toml:"on_delete"`
	OnUpdate   string `toml:"on_update"`

	EnumValues []string `toml:"values"`

	// RawType overrides the portable type with a dialect-specific one.
	RawType string `toml:"raw_type"`
}

type tomlConstraint struct {
	Name              string   `toml:"name"`
	Type              string   `toml:"type"`
	Columns           []string `toml:"columns"`
	ReferencedTable   string   `toml:"referenced_table"`
	ReferencedColumns []string `toml:"referenced_columns"`
	OnDelete          string   `toml:"on_delete"`
	OnUpdate          string   `toml:"on_update"`
	Check             string   `toml:"check"`
	Default           any      `toml:"default"`
}

type tomlIndex struct {
	Name    string   `toml:"name"`
	Columns []string `toml:"columns"`
	Unique  bool     `toml:"unique"`
	Type    string   `toml:"type"`
}

// Parser reads TOML schema files.
type Parser struct{}

// NewParser creates a TOML schema parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens and parses the file at path.
func (p *Parser) ParseFile(path string) (*core.Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("toml: open file %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return p.Parse(f)
}

// Parse reads TOML content from r and returns the corresponding database
// descriptor, validated.
func (p *Parser) Parse(r io.Reader) (*core.Database, error) {
	var sf schemaFile
	if _, err := toml.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("toml: decode error: %w", err)
	}
	db, err := convert(&sf)
	if err != nil {
		return nil, err
	}
	if err := db.Validate(); err != nil {
		return nil, fmt.Errorf("toml: schema validation failed: %w", err)
	}
	return db, nil
}

func convert(sf *schemaFile) (*core.Database, error) {
	if sf.Database.Dialect != "" && !core.IsValidDialect(sf.Database.Dialect) {
		return nil, fmt.Errorf("toml: unsupported dialect %q; supported: %v", sf.Database.Dialect, core.SupportedDialects())
	}
	db := &core.Database{
		Name:    sf.Database.Name,
		Dialect: strings.ToLower(sf.Database.Dialect),
		Tables:  make([]*core.Table, 0, len(sf.Tables)),
	}
	for i := range sf.Tables {
		t, err := convertTable(&sf.Tables[i])
		if err != nil {
			return nil, fmt.Errorf("toml: table %q: %w", sf.Tables[i].Name, err)
		}
		db.Tables = append(db.Tables, t)
	}
	return db, nil
}

func convertTable(tt *tomlTable) (*core.Table, error) {
	if strings.TrimSpace(tt.Name) == "" {
		return nil, fmt.Errorf("table name is empty")
	}
	t := &core.Table{
		Name:    tt.Name,
		Schema:  tt.Schema,
		Comment: tt.Comment,
	}
	for i := range tt.Columns {
		col, err := convertColumn(&tt.Columns[i])
		if err != nil {
			return nil, err
		}
		t.Columns = append(t.Columns, col)
	}
	for i := range tt.Constraints {
		con, err := convertConstraint(&tt.Constraints[i])
		if err != nil {
			return nil, err
		}
		t.Constraints = append(t.Constraints, con)
	}
	for i := range tt.Indexes {
		idx := tt.Indexes[i]
		if len(idx.Columns) == 0 {
			return nil, fmt.Errorf("index %q has no columns", idx.Name)
		}
		t.Indexes = append(t.Indexes, &core.Index{
			Name:    idx.Name,
			Columns: idx.Columns,
			Unique:  idx.Unique,
			Type:    idx.Type,
		})
	}
	return t, nil
}

func convertColumn(tc *tomlColumn) (*core.Column, error) {
	if strings.TrimSpace(tc.Name) == "" {
		return nil, fmt.Errorf("column name is empty")
	}
	if strings.TrimSpace(tc.Type) == "" && tc.RawType == "" {
		return nil, fmt.Errorf("column %q: type is empty", tc.Name)
	}
	col := &core.Column{
		Name:          tc.Name,
		Type:          core.NormalizeDataType(tc.Type),
		TypeRaw:       tc.RawType,
		Length:        tc.Length,
		Nullable:      tc.Nullable,
		PrimaryKey:    tc.PrimaryKey,
		AutoIncrement: tc.AutoIncrement,
		Unique:        tc.Unique,
		Comment:       tc.Comment,
		EnumValues:    tc.EnumValues,
	}
	if tc.DefaultValue != nil {
		col.DefaultValue = &tc.DefaultValue
	}
	if tc.References != "" {
		table, key, ok := strings.Cut(tc.References, ".")
		if !ok || table == "" || key == "" {
			return nil, fmt.Errorf("column %q: invalid references %q: expected format \"table.column\"", tc.Name, tc.References)
		}
		col.References = &core.ForeignKeyRef{
			Table:    core.TableOf(table),
			Key:      key,
			OnDelete: core.ReferentialAction(strings.ToUpper(tc.OnDelete)),
			OnUpdate: core.ReferentialAction(strings.ToUpper(tc.OnUpdate)),
		}
	}
	return col, nil
}

func convertConstraint(tc *tomlConstraint) (*core.Constraint, error) {
	ctype := core.ConstraintType(strings.ToUpper(strings.TrimSpace(tc.Type)))
	con := &core.Constraint{
		Name:              tc.Name,
		Type:              ctype,
		Columns:           tc.Columns,
		ReferencedColumns: tc.ReferencedColumns,
		OnDelete:          core.ReferentialAction(strings.ToUpper(tc.OnDelete)),
		OnUpdate:          core.ReferentialAction(strings.ToUpper(tc.OnUpdate)),
		CheckExpression:   tc.Check,
	}
	if tc.ReferencedTable != "" {
		con.ReferencedTable = core.TableOf(tc.ReferencedTable)
	}
	if tc.Default != nil {
		con.DefaultValue = &tc.Default
	}
	return con, nil
}

// Package main is the sqlforge command line tool: generate dialect-specific
// SQL from a TOML schema, or apply it directly to a database.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sqlforge/internal/conn"
	"sqlforge/internal/core"
	"sqlforge/internal/dialect"
	_ "sqlforge/internal/dialect/mssql"
	_ "sqlforge/internal/dialect/mysql"
	_ "sqlforge/internal/dialect/oracle"
	_ "sqlforge/internal/dialect/postgres"
	_ "sqlforge/internal/dialect/sqlite"
	"sqlforge/internal/exec"
	"sqlforge/internal/parser/toml"
	"sqlforge/internal/plan"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sqlforge",
		Short: "Dialect-aware SQL generation and execution from TOML schemas",
	}

	rootCmd.AddCommand(generateCmd(), applyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadPlan parses the schema file and builds the creation plan for the
// resolved dialect. The --dialect flag wins over [database].dialect.
func loadPlan(schemaPath, dialectFlag string) (*plan.Plan, core.Dialect, error) {
	db, err := toml.NewParser().ParseFile(schemaPath)
	if err != nil {
		return nil, "", err
	}
	name := dialectFlag
	if name == "" {
		name = db.Dialect
	}
	if name == "" {
		return nil, "", fmt.Errorf("no dialect given: set [database].dialect in the schema or pass --dialect")
	}
	if !core.IsValidDialect(name) {
		return nil, "", fmt.Errorf("unsupported dialect %q; supported: %v", name, core.SupportedDialects())
	}
	d := core.Dialect(strings.ToLower(name))
	gen, err := dialect.New(d, dialect.DefaultOptions())
	if err != nil {
		return nil, "", err
	}
	p, err := plan.Create(gen, db)
	if err != nil {
		return nil, "", err
	}
	return p, d, nil
}

func generateCmd() *cobra.Command {
	var dialectFlag string
	var outFile string
	var rollback bool

	cmd := &cobra.Command{
		Use:   "generate <schema.toml>",
		Short: "Generate SQL statements for a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := loadPlan(args[0], dialectFlag)
			if err != nil {
				return err
			}
			statements := p.Statements()
			if rollback {
				statements = p.RollbackStatements()
			}
			out := strings.Join(statements, "\n")
			if out != "" {
				out += "\n"
			}
			if outFile == "" {
				fmt.Print(out)
				return nil
			}
			if err := os.WriteFile(outFile, []byte(out), 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			fmt.Printf("Output saved to %s\n", outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dialectFlag, "dialect", "d", "", "Target dialect (mysql, postgres, sqlite, mssql, oracle)")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file for the SQL")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Generate the rollback statements instead")
	return cmd
}

// planHasEnumDDL reports whether the plan creates, alters, or drops enum
// types, which changes the OID universe the connection's type parsers map.
func planHasEnumDDL(p *plan.Plan) bool {
	for _, stmt := range p.Statements() {
		upper := strings.ToUpper(stmt)
		if strings.HasPrefix(upper, "CREATE TYPE") ||
			strings.HasPrefix(upper, "ALTER TYPE") ||
			strings.HasPrefix(upper, "DROP TYPE") {
			return true
		}
	}
	return false
}

func applyCmd() *cobra.Command {
	var dialectFlag string
	var dsn string
	var dryRun bool
	var transaction bool
	var allowNonTx bool
	var unsafe bool

	cmd := &cobra.Command{
		Use:   "apply <schema.toml>",
		Short: "Apply a schema to a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, d, err := loadPlan(args[0], dialectFlag)
			if err != nil {
				return err
			}
			if p.Empty() {
				fmt.Println("Nothing to apply")
				return nil
			}

			opts := exec.ApplyOptions{
				DryRun:                dryRun,
				Transaction:           transaction,
				AllowNonTransactional: allowNonTx,
				Unsafe:                unsafe,
				Out:                   os.Stdout,
			}

			if dryRun {
				return exec.NewApplier(nil, opts).Apply(cmd.Context(), p)
			}

			if dsn == "" {
				return fmt.Errorf("--dsn is required unless --dry-run is set")
			}
			mgr, err := conn.NewManager(conn.Config{Dialect: d, DSN: dsn, Out: os.Stdout})
			if err != nil {
				return err
			}
			if err := mgr.Connect(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = mgr.Disconnect() }()

			if err := exec.NewApplier(mgr.DB(), opts).Apply(cmd.Context(), p); err != nil {
				return err
			}
			if planHasEnumDDL(p) {
				if refresher, ok := mgr.(interface {
					RefreshEnumTypes(context.Context) error
				}); ok {
					return refresher.RefreshEnumTypes(cmd.Context())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dialectFlag, "dialect", "d", "", "Target dialect (mysql, postgres, sqlite, mssql, oracle)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database connection string")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without executing it")
	cmd.Flags().BoolVar(&transaction, "transaction", true, "Wrap the plan in a transaction when safe")
	cmd.Flags().BoolVar(&allowNonTx, "allow-non-transactional", false, "Permit non-transactional DDL when --transaction is set")
	cmd.Flags().BoolVar(&unsafe, "unsafe", false, "Permit destructive statements")
	return cmd
}

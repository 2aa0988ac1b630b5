// Package conn owns database connection lifecycle per dialect: opening and
// validating connections, session-level configuration, driver error
// classification, and the Postgres type-parser registry.
package conn

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"sqlforge/internal/core"
)

// Config carries everything needed to open a connection.
type Config struct {
	Dialect core.Dialect
	DSN     string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Out receives connection progress messages; defaults to io.Discard.
	Out io.Writer
}

// Manager owns one database connection for one dialect.
type Manager interface {
	Dialect() core.Dialect
	// Connect opens the connection and pings it. Calling Connect on an
	// already connected manager is an error.
	Connect(ctx context.Context) error
	// Disconnect closes the connection; safe to call when not connected.
	Disconnect() error
	// Validate pings the existing connection.
	Validate(ctx context.Context) error
	// DB returns the open connection, or nil before Connect.
	DB() *sql.DB
}

// driverNames maps dialects to their registered database/sql driver.
var driverNames = map[core.Dialect]string{
	core.DialectMySQL:    "mysql",
	core.DialectPostgres: "postgres",
	core.DialectSQLite:   "sqlite",
	core.DialectMSSQL:    "sqlserver",
}

// NewManager builds the connection manager for the configured dialect.
func NewManager(cfg Config) (Manager, error) {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	switch cfg.Dialect {
	case core.DialectMySQL, core.DialectSQLite, core.DialectMSSQL:
		return &manager{cfg: cfg, driver: driverNames[cfg.Dialect]}, nil
	case core.DialectPostgres:
		return &postgresManager{
			manager:     manager{cfg: cfg, driver: driverNames[cfg.Dialect]},
			typeParsers: NewTypeParserRegistry(),
		}, nil
	case core.DialectOracle:
		// No Oracle driver is bundled; generation works but execution is
		// refused at connect time.
		return &oracleManager{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}
}

// manager is the shared database/sql-backed implementation.
type manager struct {
	cfg    Config
	driver string
	db     *sql.DB
}

func (m *manager) Dialect() core.Dialect { return m.cfg.Dialect }

func (m *manager) DB() *sql.DB { return m.db }

func (m *manager) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(m.cfg.Out, format, args...)
}

func (m *manager) Connect(ctx context.Context) error {
	if m.db != nil {
		return fmt.Errorf("%s connection already established", m.cfg.Dialect)
	}
	db, err := sql.Open(m.driver, m.cfg.DSN)
	if err != nil {
		return Classify(m.cfg.Dialect, fmt.Errorf("failed to open database connection: %w", err))
	}
	if m.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(m.cfg.MaxOpenConns)
	}
	if m.cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(m.cfg.MaxIdleConns)
	}
	if m.cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(m.cfg.ConnMaxLifetime)
	}
	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			return Classify(m.cfg.Dialect, fmt.Errorf("failed to ping database: %v; additionally failed to close connection: %w", pingErr, closeErr))
		}
		return Classify(m.cfg.Dialect, fmt.Errorf("failed to ping database: %w", pingErr))
	}
	m.db = db
	m.printf("connected to %s\n", m.cfg.Dialect)
	return nil
}

func (m *manager) Disconnect() error {
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func (m *manager) Validate(ctx context.Context) error {
	if m.db == nil {
		return fmt.Errorf("%s connection not established", m.cfg.Dialect)
	}
	if err := m.db.PingContext(ctx); err != nil {
		return Classify(m.cfg.Dialect, err)
	}
	return nil
}

// postgresManager adds session setup and the OID type-parser registry on
// top of the shared manager.
type postgresManager struct {
	manager
	typeParsers *TypeParserRegistry
}

func (m *postgresManager) Connect(ctx context.Context) error {
	if err := m.manager.Connect(ctx); err != nil {
		return err
	}
	// Timestamps are generated and compared in UTC throughout.
	if _, err := m.db.ExecContext(ctx, "SET TIME ZONE 'UTC';"); err != nil {
		_ = m.Disconnect()
		return Classify(core.DialectPostgres, fmt.Errorf("failed to configure session timezone: %w", err))
	}
	return nil
}

// TypeParsers exposes the registry so callers can refresh parsers after
// enum DDL changes the OID universe.
func (m *postgresManager) TypeParsers() *TypeParserRegistry { return m.typeParsers }

// RefreshEnumTypes reloads the enum OID universe from pg_catalog and
// registers a text parser for every enum type in one swap, keeping the
// built-in scalar parsers. Call it after applying enum DDL.
func (m *postgresManager) RefreshEnumTypes(ctx context.Context) error {
	if m.db == nil {
		return fmt.Errorf("postgres connection not established")
	}
	rows, err := m.db.QueryContext(ctx, "SELECT oid FROM pg_catalog.pg_type WHERE typtype = 'e';")
	if err != nil {
		return Classify(core.DialectPostgres, fmt.Errorf("failed to list enum types: %w", err))
	}
	defer func() { _ = rows.Close() }()

	text := func(raw []byte) (any, error) { return string(raw), nil }
	additions := make(map[uint32]TypeParser)
	for rows.Next() {
		var oid uint32
		if scanErr := rows.Scan(&oid); scanErr != nil {
			return Classify(core.DialectPostgres, scanErr)
		}
		additions[oid] = text
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return Classify(core.DialectPostgres, rowsErr)
	}
	m.typeParsers.Refresh(additions)
	m.printf("refreshed type parsers for %d enum types\n", len(additions))
	return nil
}

// oracleManager satisfies the Manager contract without a driver.
type oracleManager struct {
	cfg Config
}

func (m *oracleManager) Dialect() core.Dialect { return core.DialectOracle }
func (m *oracleManager) DB() *sql.DB           { return nil }

func (m *oracleManager) Connect(context.Context) error {
	return &Error{
		Dialect: core.DialectOracle,
		Kind:    KindInvalidConnectionParameters,
		Err:     fmt.Errorf("no oracle driver is bundled; oracle supports SQL generation only"),
	}
}

func (m *oracleManager) Disconnect() error { return nil }

func (m *oracleManager) Validate(context.Context) error {
	return fmt.Errorf("oracle connection not established")
}

package conn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	sqlite "modernc.org/sqlite"

	"sqlforge/internal/core"
)

// Kind classifies a connection failure into a driver-independent category.
type Kind string

const (
	KindConnectionRefused           Kind = "connection refused"
	KindAccessDenied                Kind = "access denied"
	KindHostNotFound                Kind = "host not found"
	KindHostUnreachable             Kind = "host unreachable"
	KindInvalidConnectionParameters Kind = "invalid connection parameters"
	KindConnectionTimedOut          Kind = "connection timed out"
	KindUnknown                     Kind = "connection error"
)

// Error is a classified connection error. The driver error stays wrapped
// for errors.As chains.
type Error struct {
	Dialect core.Dialect
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Dialect, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify wraps a driver error with its category. Already classified
// errors pass through untouched.
func Classify(d core.Dialect, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	return &Error{Dialect: d, Kind: classifyKind(d, err), Err: err}
}

func classifyKind(d core.Dialect, err error) Kind {
	// Network-level failures look the same across drivers.
	if kind, ok := classifyNet(err); ok {
		return kind
	}
	switch d {
	case core.DialectMySQL:
		return classifyMySQL(err)
	case core.DialectPostgres:
		return classifyPostgres(err)
	case core.DialectSQLite:
		return classifySQLite(err)
	case core.DialectMSSQL:
		return classifyMSSQL(err)
	case core.DialectOracle:
		return classifyOracle(err)
	}
	return KindUnknown
}

func classifyNet(err error) (Kind, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindConnectionTimedOut, true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindHostNotFound, true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionRefused, true
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return KindHostUnreachable, true
	}
	if errors.Is(err, syscall.ETIMEDOUT) {
		return KindConnectionTimedOut, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindConnectionTimedOut, true
	}
	return KindUnknown, false
}

func classifyMySQL(err error) Kind {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return KindUnknown
	}
	switch myErr.Number {
	case 1044, 1045, 1698:
		return KindAccessDenied
	case 1049:
		return KindInvalidConnectionParameters
	}
	return KindUnknown
}

func classifyPostgres(err error) Kind {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return KindUnknown
	}
	switch pqErr.Code {
	case "28000", "28P01":
		return KindAccessDenied
	case "3D000", "3F000":
		return KindInvalidConnectionParameters
	case "57P03":
		return KindConnectionRefused
	}
	return KindUnknown
}

func classifySQLite(err error) Kind {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return KindUnknown
	}
	// Primary result codes: 14 SQLITE_CANTOPEN, 23 SQLITE_AUTH.
	switch sqErr.Code() & 0xff {
	case 14:
		return KindInvalidConnectionParameters
	case 23:
		return KindAccessDenied
	}
	return KindUnknown
}

func classifyMSSQL(err error) Kind {
	var msErr mssql.Error
	if !errors.As(err, &msErr) {
		return KindUnknown
	}
	switch msErr.Number {
	case 18456, 18452:
		return KindAccessDenied
	case 4060, 911:
		return KindInvalidConnectionParameters
	}
	return KindUnknown
}

// classifyOracle has no driver error type to inspect and falls back to
// message matching on ORA codes.
func classifyOracle(err error) Kind {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ORA-01017"):
		return KindAccessDenied
	case strings.Contains(msg, "ORA-12154"), strings.Contains(msg, "ORA-12505"):
		return KindInvalidConnectionParameters
	case strings.Contains(msg, "ORA-12541"):
		return KindConnectionRefused
	case strings.Contains(msg, "ORA-12170"):
		return KindConnectionTimedOut
	}
	return KindUnknown
}

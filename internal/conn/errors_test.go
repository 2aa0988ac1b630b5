package conn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlforge/internal/core"
)

var classifyTests = []struct {
	name    string
	dialect core.Dialect
	err     error
	want    Kind
}{
	{
		"mysql access denied",
		core.DialectMySQL,
		&mysql.MySQLError{Number: 1045, Message: "Access denied for user"},
		KindAccessDenied,
	},
	{
		"mysql unknown database",
		core.DialectMySQL,
		&mysql.MySQLError{Number: 1049, Message: "Unknown database"},
		KindInvalidConnectionParameters,
	},
	{
		"postgres bad password",
		core.DialectPostgres,
		&pq.Error{Code: "28P01"},
		KindAccessDenied,
	},
	{
		"postgres missing database",
		core.DialectPostgres,
		&pq.Error{Code: "3D000"},
		KindInvalidConnectionParameters,
	},
	{
		"postgres cannot connect now",
		core.DialectPostgres,
		&pq.Error{Code: "57P03"},
		KindConnectionRefused,
	},
	{
		"mssql login failed",
		core.DialectMSSQL,
		mssql.Error{Number: 18456},
		KindAccessDenied,
	},
	{
		"mssql cannot open database",
		core.DialectMSSQL,
		mssql.Error{Number: 4060},
		KindInvalidConnectionParameters,
	},
	{
		"oracle invalid credentials",
		core.DialectOracle,
		errors.New("ORA-01017: invalid username/password; logon denied"),
		KindAccessDenied,
	},
	{
		"oracle no listener",
		core.DialectOracle,
		errors.New("ORA-12541: TNS:no listener"),
		KindConnectionRefused,
	},
	{
		"connection refused beats driver classification",
		core.DialectMySQL,
		fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED),
		KindConnectionRefused,
	},
	{
		"dns failure",
		core.DialectPostgres,
		&net.DNSError{Err: "no such host", Name: "db.invalid", IsNotFound: true},
		KindHostNotFound,
	},
	{
		"deadline exceeded",
		core.DialectMSSQL,
		fmt.Errorf("ping: %w", context.DeadlineExceeded),
		KindConnectionTimedOut,
	},
	{
		"unrecognized driver error",
		core.DialectMySQL,
		errors.New("something odd"),
		KindUnknown,
	},
}

func TestClassify(t *testing.T) {
	for _, tt := range classifyTests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.dialect, tt.err)
			var classified *Error
			require.ErrorAs(t, err, &classified)
			assert.Equal(t, tt.want, classified.Kind)
			assert.Equal(t, tt.dialect, classified.Dialect)
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, Classify(core.DialectMySQL, nil))
}

func TestClassifyPassesThroughClassifiedErrors(t *testing.T) {
	original := &Error{Dialect: core.DialectMySQL, Kind: KindAccessDenied, Err: errors.New("denied")}
	wrapped := fmt.Errorf("connect: %w", original)

	out := Classify(core.DialectPostgres, wrapped)
	assert.Equal(t, wrapped, out)

	var classified *Error
	require.ErrorAs(t, out, &classified)
	assert.Equal(t, core.DialectMySQL, classified.Dialect)
}

func TestErrorUnwrapsToDriverError(t *testing.T) {
	driverErr := &mysql.MySQLError{Number: 1045, Message: "Access denied"}
	err := Classify(core.DialectMySQL, driverErr)

	var myErr *mysql.MySQLError
	require.ErrorAs(t, err, &myErr)
	assert.Equal(t, uint16(1045), myErr.Number)
}

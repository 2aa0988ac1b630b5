package conn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeParserRegistryDefaults(t *testing.T) {
	r := NewTypeParserRegistry()

	boolParser, ok := r.Parser(OIDBool)
	require.True(t, ok)
	v, err := boolParser([]byte("t"))
	require.NoError(t, err)
	assert.Equal(t, true, v)
	v, err = boolParser([]byte("f"))
	require.NoError(t, err)
	assert.Equal(t, false, v)

	intParser, ok := r.Parser(OIDInt8)
	require.True(t, ok)
	v, err = intParser([]byte("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	floatParser, ok := r.Parser(OIDFloat8)
	require.True(t, ok)
	v, err = floatParser([]byte("2.5"))
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	dateParser, ok := r.Parser(OIDDate)
	require.True(t, ok)
	v, err = dateParser([]byte("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), v)

	// Numeric stays textual to avoid precision loss.
	numericParser, ok := r.Parser(OIDNumeric)
	require.True(t, ok)
	v, err = numericParser([]byte("12345.6789012345678901"))
	require.NoError(t, err)
	assert.Equal(t, "12345.6789012345678901", v)
}

func TestTypeParserRegistryUnknownOID(t *testing.T) {
	r := NewTypeParserRegistry()
	_, ok := r.Parser(999999)
	assert.False(t, ok)
}

func TestTypeParserRegistryRefresh(t *testing.T) {
	r := NewTypeParserRegistry()

	const enumOID = uint32(91234)
	r.Refresh(map[uint32]TypeParser{
		enumOID: func(raw []byte) (any, error) { return string(raw), nil },
	})

	enumParser, ok := r.Parser(enumOID)
	require.True(t, ok)
	v, err := enumParser([]byte("active"))
	require.NoError(t, err)
	assert.Equal(t, "active", v)

	// Built-ins survive the swap.
	_, ok = r.Parser(OIDBool)
	assert.True(t, ok)

	// A second refresh without the addition drops it again.
	r.Refresh(nil)
	_, ok = r.Parser(enumOID)
	assert.False(t, ok)
}

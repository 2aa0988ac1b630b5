package conn

import (
	"strconv"
	"sync/atomic"
	"time"
)

// TypeParser converts a raw Postgres wire value into a Go value.
type TypeParser func([]byte) (any, error)

// Well-known Postgres type OIDs.
const (
	OIDBool        = 16
	OIDInt8        = 20
	OIDInt2        = 21
	OIDInt4        = 23
	OIDFloat4      = 700
	OIDFloat8      = 701
	OIDNumeric     = 1700
	OIDTimestamp   = 1114
	OIDTimestampTZ = 1184
	OIDDate        = 1082
	OIDJSON        = 114
	OIDJSONB       = 3802
)

// TypeParserRegistry maps type OIDs to parsers. Lookups vastly outnumber
// refreshes, so the whole map is swapped atomically instead of guarded by
// a lock; Refresh is called after enum DDL introduces new OIDs.
type TypeParserRegistry struct {
	parsers atomic.Value // map[uint32]TypeParser
}

// NewTypeParserRegistry builds a registry seeded with parsers for the
// built-in scalar types.
func NewTypeParserRegistry() *TypeParserRegistry {
	r := &TypeParserRegistry{}
	r.parsers.Store(defaultParsers())
	return r
}

// Parser returns the parser for an OID, if one is registered.
func (r *TypeParserRegistry) Parser(oid uint32) (TypeParser, bool) {
	m := r.parsers.Load().(map[uint32]TypeParser)
	p, ok := m[oid]
	return p, ok
}

// Refresh replaces the registry contents with the defaults plus the given
// additions in one atomic swap. Readers holding the old map are unaffected.
func (r *TypeParserRegistry) Refresh(additions map[uint32]TypeParser) {
	m := defaultParsers()
	for oid, p := range additions {
		m[oid] = p
	}
	r.parsers.Store(m)
}

func defaultParsers() map[uint32]TypeParser {
	text := func(raw []byte) (any, error) { return string(raw), nil }
	integer := func(raw []byte) (any, error) { return strconv.ParseInt(string(raw), 10, 64) }
	float := func(raw []byte) (any, error) { return strconv.ParseFloat(string(raw), 64) }
	return map[uint32]TypeParser{
		OIDBool: func(raw []byte) (any, error) {
			return len(raw) > 0 && (raw[0] == 't' || raw[0] == 'T' || raw[0] == '1'), nil
		},
		OIDInt2:    integer,
		OIDInt4:    integer,
		OIDInt8:    integer,
		OIDFloat4:  float,
		OIDFloat8:  float,
		OIDNumeric: text,
		OIDTimestamp: func(raw []byte) (any, error) {
			return time.Parse("2006-01-02 15:04:05.999999", string(raw))
		},
		OIDTimestampTZ: func(raw []byte) (any, error) {
			return time.Parse("2006-01-02 15:04:05.999999-07", string(raw))
		},
		OIDDate: func(raw []byte) (any, error) {
			return time.Parse("2006-01-02", string(raw))
		},
		OIDJSON:  text,
		OIDJSONB: text,
	}
}

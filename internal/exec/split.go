package exec

import "strings"

// SplitStatements splits a generated SQL string into individual
// statements on top-level semicolons. Semicolons inside single-quoted,
// double-quoted, backtick-quoted, or bracket-quoted regions are kept, as
// are whole dollar-quoted bodies ($tag$ ... $tag$), so PL/pgSQL function
// definitions survive intact.
//
// The scan works on byte offsets: every delimiter is ASCII, so bytes of
// multi-byte characters never match one and pass through untouched.
func SplitStatements(sql string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	i := 0
	for i < len(sql) {
		ch := sql[i]
		switch ch {
		case '\'', '"', '`':
			end := scanQuoted(sql, i, ch)
			current.WriteString(sql[i:end])
			i = end
		case '[':
			end := scanBracket(sql, i)
			current.WriteString(sql[i:end])
			i = end
		case '$':
			if end, ok := scanDollarQuoted(sql, i); ok {
				current.WriteString(sql[i:end])
				i = end
				continue
			}
			current.WriteByte(ch)
			i++
		case ';':
			flush()
			i++
		default:
			current.WriteByte(ch)
			i++
		}
	}
	flush()
	return statements
}

// scanQuoted consumes a quoted region starting at start, honoring the
// doubled-quote escape, and returns the byte offset just past it.
func scanQuoted(sql string, start int, quote byte) int {
	i := start + 1
	for i < len(sql) {
		if sql[i] == quote {
			if i+1 < len(sql) && sql[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

// scanBracket consumes a [bracketed] identifier.
func scanBracket(sql string, start int) int {
	for i := start + 1; i < len(sql); i++ {
		if sql[i] == ']' {
			return i + 1
		}
	}
	return len(sql)
}

// scanDollarQuoted consumes a $tag$...$tag$ region. Returns ok=false when
// start is a lone dollar sign rather than an opening delimiter.
func scanDollarQuoted(sql string, start int) (int, bool) {
	i := start + 1
	for i < len(sql) && sql[i] != '$' {
		ch := sql[i]
		if !(ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
			return 0, false
		}
		i++
	}
	if i >= len(sql) {
		return 0, false
	}
	delim := sql[start : i+1]
	idx := strings.Index(sql[i+1:], delim)
	if idx < 0 {
		return len(sql), true
	}
	return i + 1 + idx + len(delim), true
}

package dialect

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidJSONStatement marks a raw JSON path/function expression that
// failed validation and must not be concatenated into a query.
var ErrInvalidJSONStatement = errors.New("invalid json statement")

// jsonFunctionNameRe matches function names like json_extract, jsonb_path,
// to_jsonb, json_array_length: up to two underscore-joined words on either
// side of a json/jsonb stem.
var jsonFunctionNameRe = regexp.MustCompile(`(?i)^(?:[a-z]+_){0,2}jsonb?(?:_[a-z]+){0,2}$`)

// jsonOperators are the path/containment operators recognized while
// scanning, longest first so the scanner never splits a two-character
// operator in half.
var jsonOperators = []string{"->>", "->", "#>>", "#>", "@>", "<@", "?|", "?&", "?", "||", "#-"}

// CheckJSONStatement validates a raw JSON path or function expression that
// callers want string-concatenated into a query. It scans the statement
// token by token, recognizing JSON function calls, JSON operators, quoted
// strings, and parentheses. It rejects the statement when a semicolon
// appears anywhere outside a quoted string, or when parenthesis counts are
// unbalanced while a JSON function was detected. Both rejections exist to
// stop SQL injection through an otherwise free-form option; the return
// value reports whether a JSON function call was seen at all.
func CheckJSONStatement(stmt string) (bool, error) {
	var (
		hasFunction  bool
		hasOperator  bool
		openParens   int
		closedParens int
		i            int
	)
	for i < len(stmt) {
		ch := stmt[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '\'' || ch == '"' || ch == '`':
			end, err := scanQuoted(stmt, i)
			if err != nil {
				return hasFunction, err
			}
			i = end
		case ch == ';':
			return hasFunction, fmt.Errorf("%w: semicolon at position %d in %q", ErrInvalidJSONStatement, i, stmt)
		case ch == '(':
			openParens++
			i++
		case ch == ')':
			closedParens++
			i++
		case isWordByte(ch):
			start := i
			for i < len(stmt) && isWordByte(stmt[i]) {
				i++
			}
			word := stmt[start:i]
			if jsonFunctionNameRe.MatchString(word) && nextNonSpaceIs(stmt, i, '(') {
				hasFunction = true
			}
		default:
			if op := matchOperator(stmt[i:]); op != "" {
				hasOperator = true
				i += len(op)
				continue
			}
			i++
		}
	}
	if hasFunction && openParens != closedParens {
		return hasFunction, fmt.Errorf("%w: unbalanced parentheses in %q", ErrInvalidJSONStatement, stmt)
	}
	return hasFunction || hasOperator, nil
}

func scanQuoted(stmt string, start int) (int, error) {
	quote := stmt[start]
	i := start + 1
	for i < len(stmt) {
		if stmt[i] == quote {
			// A doubled quote is an escaped quote inside the literal.
			if i+1 < len(stmt) && stmt[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	return i, fmt.Errorf("%w: unterminated %c-quoted literal in %q", ErrInvalidJSONStatement, quote, stmt)
}

func isWordByte(ch byte) bool {
	return ch == '_' || ch == '$' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func nextNonSpaceIs(stmt string, i int, want byte) bool {
	for i < len(stmt) {
		switch stmt[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return stmt[i] == want
		}
	}
	return false
}

func matchOperator(rest string) string {
	for _, op := range jsonOperators {
		if strings.HasPrefix(rest, op) {
			return op
		}
	}
	return ""
}

// BuildJSONPath renders a JSON path expression in the '$.a.b[0]' form used
// by the json_extract family. Numeric elements become array subscripts;
// elements containing dots or quotes are wrapped in double quotes.
func BuildJSONPath(path []string) string {
	var sb strings.Builder
	sb.WriteByte('$')
	for _, p := range path {
		if _, err := strconv.Atoi(p); err == nil {
			sb.WriteByte('[')
			sb.WriteString(p)
			sb.WriteByte(']')
			continue
		}
		sb.WriteByte('.')
		if strings.ContainsAny(p, ".\" ") {
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(p, `"`, `\"`))
			sb.WriteByte('"')
		} else {
			sb.WriteString(p)
		}
	}
	return sb.String()
}

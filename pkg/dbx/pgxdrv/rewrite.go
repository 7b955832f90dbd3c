package pgxdrv

import (
	"strconv"
	"strings"
)

// rewriteNamedParams converts :name placeholders into PostgreSQL positional
// parameters ($1, $2, ...) and returns the parameter names in positional
// order. Repeated names reuse the same position. Text inside single-quoted
// strings, double-quoted identifiers, line comments (-- ...) and block
// comments (/* ... */, nesting allowed) is left untouched, as are ::type
// casts.
func rewriteNamedParams(sql string) (string, []string) {
	var sb strings.Builder

	var order []string

	positions := make(map[string]int)

	inSingle := false
	inDouble := false
	inLineComment := false
	blockDepth := 0

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if inLineComment {
			if ch == '\n' {
				inLineComment = false
			}

			sb.WriteByte(ch)

			continue
		}

		if blockDepth > 0 {
			if ch == '*' && i+1 < len(sql) && sql[i+1] == '/' {
				blockDepth--
				sb.WriteString("*/")
				i++

				continue
			}

			if ch == '/' && i+1 < len(sql) && sql[i+1] == '*' {
				blockDepth++
				sb.WriteString("/*")
				i++

				continue
			}

			sb.WriteByte(ch)

			continue
		}

		switch {
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			sb.WriteByte(ch)
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			sb.WriteByte(ch)
		case ch == '-' && !inSingle && !inDouble && i+1 < len(sql) && sql[i+1] == '-':
			inLineComment = true
			sb.WriteString("--")
			i++
		case ch == '/' && !inSingle && !inDouble && i+1 < len(sql) && sql[i+1] == '*':
			blockDepth++
			sb.WriteString("/*")
			i++
		case ch == ':' && !inSingle && !inDouble:
			if i+1 < len(sql) && sql[i+1] == ':' {
				sb.WriteString("::")
				i++

				continue
			}

			end := i + 1
			for end < len(sql) && isIdentChar(sql[end]) {
				end++
			}

			if end == i+1 {
				sb.WriteByte(ch)
				continue
			}

			name := sql[i+1 : end]

			position, seen := positions[name]
			if !seen {
				order = append(order, name)
				position = len(order)
				positions[name] = position
			}

			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(position))

			i = end - 1
		default:
			sb.WriteByte(ch)
		}
	}

	return sb.String(), order
}

func isIdentChar(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}

package analyzer

import "strings"

// Rewrite replaces logical table names in sql with their physical names,
// leaving everything else byte for byte intact. String literals, quoted
// identifiers, comments and dot-qualified identifiers are skipped. When every
// mapping is an identity the input is returned unchanged.
func Rewrite(sql string, mapping map[string]string) string {
	identity := true
	for from, to := range mapping {
		if from != to {
			identity = false
			break
		}
	}
	if identity {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) + 16)
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := skipQuoted(sql, i)
			b.WriteString(sql[i:j])
			i = j
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			j := skipBlockComment(sql, i)
			b.WriteString(sql[i:j])
			i = j
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-', c == '#':
			j := skipLineComment(sql, i)
			b.WriteString(sql[i:j])
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(sql) && isIdentPart(sql[j]) {
				j++
			}
			word := sql[i:j]
			// An identifier after a dot is a qualified column, never
			// the table itself.
			qualified := i > 0 && sql[i-1] == '.'
			if to, ok := mapping[word]; ok && !qualified {
				b.WriteString(to)
			} else {
				b.WriteString(word)
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// skipQuoted returns the index just past a quoted region starting at i.
// Backslash escapes and doubled quotes stay inside the region.
func skipQuoted(sql string, i int) int {
	quote := sql[i]
	j := i + 1
	for j < len(sql) {
		switch sql[j] {
		case '\\':
			if quote != '`' && j+1 < len(sql) {
				j += 2
				continue
			}
			j++
		case quote:
			if j+1 < len(sql) && sql[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		default:
			j++
		}
	}
	return j
}

func skipBlockComment(sql string, i int) int {
	j := i + 2
	for j+1 < len(sql) {
		if sql[j] == '*' && sql[j+1] == '/' {
			return j + 2
		}
		j++
	}
	return len(sql)
}

func skipLineComment(sql string, i int) int {
	j := i
	for j < len(sql) && sql[j] != '\n' {
		j++
	}
	return j
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

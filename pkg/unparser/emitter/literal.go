package emitter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sambeau/unparser/pkg/unparser/operators"
)

// formatFloat returns Ruby source for v. Infinities and NaN have no literal
// form and report ok=false.
func formatFloat(v float64) (string, bool) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "", false
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s, true
}

// quoteString writes s as a double-quoted Ruby string. # is always escaped so
// that no sequence reads as interpolation.
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&sb, `\x%02X`, s[i])
			i++
			continue
		}
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '#':
			sb.WriteString(`\#`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0x1b:
			sb.WriteString(`\e`)
		case 0:
			// \0 followed by an octal digit would read as a longer escape
			if i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7' {
				sb.WriteString(`\x00`)
			} else {
				sb.WriteString(`\0`)
			}
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\x%02X`, r)
			} else {
				sb.WriteRune(r)
			}
		}
		i += size
	}
	sb.WriteByte('"')
	return sb.String()
}

// formatSymbol writes :name when name lexes as a bare symbol and :"name"
// otherwise.
func formatSymbol(name string) string {
	if isBareSymbol(name) {
		return SymbolPrefix + name
	}
	return SymbolPrefix + quoteString(name)
}

func isBareSymbol(name string) bool {
	if name == "" {
		return false
	}
	if operators.IsOperator(name) {
		return true
	}
	switch {
	case strings.HasPrefix(name, "@@"):
		return isIdentifier(name[2:])
	case strings.HasPrefix(name, "@"), strings.HasPrefix(name, "$"):
		return isIdentifier(name[1:])
	}
	base := name
	if last := name[len(name)-1]; last == '?' || last == '!' || last == '=' {
		base = name[:len(name)-1]
	}
	return isIdentifier(base)
}

// isMethodName reports whether name can follow a call dot: an operator or
// index name, or an identifier with an optional trailing ?, ! or =.
func isMethodName(name string) bool {
	if operators.IsOperator(name) {
		return true
	}
	if strings.HasPrefix(name, "@") || strings.HasPrefix(name, "$") {
		return false
	}
	return isBareSymbol(name)
}

// isIdentifier reports whether s is an ASCII identifier: a letter or
// underscore followed by letters, digits or underscores.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

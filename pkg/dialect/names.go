package dialect

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsNameStartRune reports whether r may begin an element or attribute name.
func IsNameStartRune(r rune) bool {
	return r == '_' || r == ':' || unicode.IsLetter(r)
}

// IsNameRune reports whether r may continue a name.
func IsNameRune(r rune) bool {
	return IsNameStartRune(r) ||
		r == '-' || r == '.' || r == '·' ||
		unicode.IsDigit(r) ||
		unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}

// NameLength returns the byte length of the name at the start of s, or 0.
func NameLength(s string) int {
	r, w := utf8.DecodeRuneInString(s)
	if w == 0 || !IsNameStartRune(r) {
		return 0
	}
	n := w
	for n < len(s) {
		r, w = utf8.DecodeRuneInString(s[n:])
		if !IsNameRune(r) {
			break
		}
		n += w
	}
	return n
}

// SplitQualified splits p:Foo into its prefix and local name. A name without
// a colon, or starting with one, has no prefix.
func SplitQualified(name string) (prefix, local string) {
	if i := strings.IndexByte(name, ':'); i > 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// IsSpace reports XML whitespace.
func IsSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

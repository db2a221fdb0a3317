// Package uri implements the URI component escaping used in object keys,
// metadata values and result paths.
package uri

import "strings"

const upperhex = "0123456789ABCDEF"

// EncodeComponent escapes s the way browsers escape a URI component:
// every byte except A-Z a-z 0-9 and - _ . ! ~ * ' ( ) is percent-encoded.
// url.QueryEscape differs on space, '!', '*', '\'', '(' and ')', which would
// change the derived keys.
func EncodeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

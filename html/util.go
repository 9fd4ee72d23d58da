package html

import (
	"bytes"

	"github.com/tdewolff/parse/v2"
	"golang.org/x/net/html"
)

// unescape decodes all character references in b.
func unescape(b []byte) []byte {
	if bytes.IndexByte(b, '&') == -1 {
		return b
	}
	return []byte(html.UnescapeString(string(b)))
}

// appendEscaped appends b with the reserved characters &, < and > escaped.
func appendEscaped(dst, b []byte) []byte {
	start := 0
	for i, c := range b {
		var esc string
		switch c {
		case '&':
			esc = "&amp;"
		case '<':
			esc = "&lt;"
		case '>':
			esc = "&gt;"
		default:
			continue
		}
		dst = append(dst, b[start:i]...)
		dst = append(dst, esc...)
		start = i + 1
	}
	return append(dst, b[start:]...)
}

// collapseWhitespace replaces every run of whitespace by a single space.
func collapseWhitespace(b []byte) []byte {
	j := 0
	inSpace := false
	for _, c := range b {
		if parse.IsWhitespace(c) {
			if !inSpace {
				b[j] = ' '
				j++
			}
			inSpace = true
			continue
		}
		b[j] = c
		j++
		inSpace = false
	}
	return b[:j]
}

package html

import (
	"bytes"
	"sort"

	"github.com/tdewolff/parse/v2"
)

var (
	classBytes    = []byte("class")
	ampBytes      = []byte("&amp;")
	quotBytes     = []byte("&quot;")
	doubleQuote   = []byte(`"`)
	ampersandByte = []byte("&")
)

// Attr is an attribute of a start tag with its value decoded.
type Attr struct {
	Key []byte
	Val []byte
}

// appendStartTag appends the start tag with its attributes filtered, sorted and quoted.
func appendStartTag(dst, name []byte, attrs []Attr, excludes map[string]map[string]bool) []byte {
	dst = append(dst, '<')
	dst = append(dst, name...)
	dst = appendAttrs(dst, name, attrs, excludes)
	return append(dst, '>')
}

// appendAttrs appends the attributes of tag name, each preceded by a space.
func appendAttrs(dst, name []byte, attrs []Attr, excludes map[string]map[string]bool) []byte {
	exclude := excludes[string(name)]
	sorted := make([]Attr, 0, len(attrs))
	for _, attr := range attrs {
		if !exclude[string(attr.Key)] {
			sorted = append(sorted, attr)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Key, sorted[j].Key) < 0
	})

	for _, attr := range sorted {
		dst = append(dst, ' ')
		dst = append(dst, attr.Key...)
		val := attr.Val
		if IsBooleanAttr(attr.Key) && (len(val) == 0 || bytes.Equal(val, attr.Key)) {
			continue
		} else if bytes.Equal(attr.Key, classBytes) {
			val = sortClasses(val)
		}
		dst = append(dst, '=')
		dst = appendAttrVal(dst, val)
	}
	return dst
}

// sortClasses sorts the whitespace separated class names.
func sortClasses(val []byte) []byte {
	classes := bytes.FieldsFunc(val, func(r rune) bool {
		return r < 0x80 && parse.IsWhitespace(byte(r))
	})
	sort.Slice(classes, func(i, j int) bool {
		return bytes.Compare(classes[i], classes[j]) < 0
	})
	return bytes.Join(classes, []byte(" "))
}

// appendAttrVal appends the quoted value. Single quotes are used only when the value holds double quotes but no single quotes.
func appendAttrVal(dst, val []byte) []byte {
	if !bytes.Equal(unescape(val), val) {
		val = bytes.ReplaceAll(val, ampersandByte, ampBytes)
	}
	if bytes.IndexByte(val, '"') != -1 {
		if bytes.IndexByte(val, '\'') == -1 {
			dst = append(dst, '\'')
			dst = append(dst, val...)
			return append(dst, '\'')
		}
		val = bytes.ReplaceAll(val, doubleQuote, quotBytes)
	}
	dst = append(dst, '"')
	dst = append(dst, val...)
	return append(dst, '"')
}

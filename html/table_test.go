package html

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestClassify(t *testing.T) {
	var classifyTests = []struct {
		name     string
		category Category
	}{
		{"span", Inline},
		{"svg", Inline},
		{"custom-element", Inline},
		{"p", LeafBlock},
		{"h3", LeafBlock},
		{"meta", LeafBlock},
		{"div", ContainerBlock},
		{"li", ContainerBlock},
		{"td", ContainerBlock},
		{"pre", Pre},
	}
	for _, tt := range classifyTests {
		t.Run(tt.name, func(t *testing.T) {
			test.T(t, Classify([]byte(tt.name)), tt.category)
		})
	}
	test.String(t, Category(7).String(), "Invalid(7)")
}

func TestTagTraits(t *testing.T) {
	test.That(t, IsVoid([]byte("br")))
	test.That(t, IsVoid([]byte("hr")))
	test.That(t, !IsVoid([]byte("div")))
	test.That(t, IsCollapsible([]byte("li")))
	test.That(t, !IsCollapsible([]byte("ul")))
	test.That(t, IsBooleanAttr([]byte("disabled")))
	test.That(t, !IsBooleanAttr([]byte("href")))
}

func TestBuildTagMap(t *testing.T) {
	_, err := buildTagMap([]string{"a"}, []string{"p"}, []string{"p"})
	test.That(t, err != nil, "overlapping categories must fail")

	_, err = buildTagMap(nil, nil, []string{"pre"})
	test.That(t, err != nil, "pre is its own category")

	m, err := buildTagMap([]string{"a"}, []string{"p"}, []string{"div"})
	test.Error(t, err)
	test.T(t, m["div"].category(), ContainerBlock)
}

func TestAttrs(t *testing.T) {
	var attrTests = []struct {
		attrs    []Attr
		expected string
	}{
		{nil, `<x>`},
		{[]Attr{{[]byte("b"), []byte("1")}, {[]byte("a"), nil}}, `<x a="" b="1">`},
		{[]Attr{{[]byte("hidden"), []byte("hidden")}}, `<x hidden>`},
		{[]Attr{{[]byte("hidden"), []byte("no")}}, `<x hidden="no">`},
		{[]Attr{{[]byte("class"), []byte(" c  b\ta ")}}, `<x class="a b c">`},
		{[]Attr{{[]byte("title"), []byte(`a"b`)}}, `<x title='a"b'>`},
		{[]Attr{{[]byte("title"), []byte(`a"b'c`)}}, `<x title="a&quot;b'c">`},
		{[]Attr{{[]byte("title"), []byte(`&lt;`)}}, `<x title="&amp;lt;">`},
		{[]Attr{{[]byte("title"), []byte(`R&D`)}}, `<x title="R&D">`},
		{[]Attr{{[]byte("drop"), []byte("1")}, {[]byte("keep"), []byte("2")}}, `<x keep="2">`},
	}
	excludes := map[string]map[string]bool{"x": {"drop": true}}
	for _, tt := range attrTests {
		t.Run(tt.expected, func(t *testing.T) {
			b := appendStartTag(nil, []byte("x"), tt.attrs, excludes)
			test.String(t, string(b), tt.expected)
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	test.String(t, string(collapseWhitespace([]byte(" a \n\t b  "))), " a b ")
	test.String(t, string(appendEscaped(nil, []byte("a<b&c>"))), "a&lt;b&amp;c&gt;")
	test.String(t, string(unescape([]byte("a&amp;b"))), "a&b")
}

package html

import (
	"fmt"
	"strconv"
)

type traits uint8

const (
	inlineTag traits = 1 << iota
	leafTag
	containerTag
	preTag
	voidTag
	collapsibleTag
)

const categoryTraits = inlineTag | leafTag | containerTag | preTag

// Category is the layout discipline of an element.
type Category int

// Category values.
const (
	Inline Category = iota
	LeafBlock
	ContainerBlock
	Pre
)

// String returns the string representation of a Category.
func (c Category) String() string {
	switch c {
	case Inline:
		return "Inline"
	case LeafBlock:
		return "LeafBlock"
	case ContainerBlock:
		return "ContainerBlock"
	case Pre:
		return "Pre"
	}
	return "Invalid(" + strconv.Itoa(int(c)) + ")"
}

var inlineTags = []string{
	"a", "abbr", "area", "audio", "b", "bdi", "bdo", "br", "button", "canvas", "cite",
	"code", "data", "datalist", "del", "dfn", "em", "embed", "i", "iframe", "img",
	"input", "ins", "kbd", "keygen", "label", "map", "mark", "math", "meter", "noscript",
	"object", "output", "progress", "q", "ruby", "s", "samp", "select", "small",
	"span", "strong", "sub", "sup", "svg", "template", "textarea", "time", "u", "var",
	"video", "wbr", "text",
	"acronym", "big", "strike", "tt", // obsolete
}

var leafTags = []string{
	"p", "h1", "h2", "h3", "h4", "h5", "h6", "hr", "title", "meta", "link",
}

var containerTags = []string{
	"html", "head", "body", "article", "section", "nav", "aside", "main", "div",
	"header", "footer", "hgroup", "figure", "figcaption", "blockquote",
	"ul", "ol", "li", "table", "thead", "tbody", "tr", "th", "td", "caption",
	"address", "dl", "dt", "dd",
}

// containers laid out like a leaf until a nested block shows up
var collapsibleTags = []string{
	"li", "th", "td", "dt", "dd", "caption", "figcaption",
}

// see https://html.spec.whatwg.org/#void-elements
var voidTags = []string{
	"area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta",
	"param", "source", "track", "wbr",
}

// see https://html.spec.whatwg.org/#attributes-3
var booleanAttrs = []string{
	"allowfullscreen", "async", "autofocus", "autoplay", "checked", "controls",
	"default", "defer", "disabled", "formnovalidate", "hidden", "ismap", "itemscope",
	"loop", "multiple", "muted", "nomodule", "novalidate", "open", "playsinline",
	"readonly", "required", "reversed", "selected",
}

var tagMap map[string]traits
var booleanAttrMap map[string]bool

func init() {
	var err error
	if tagMap, err = buildTagMap(inlineTags, leafTags, containerTags); err != nil {
		panic(err)
	}
	for _, name := range voidTags {
		tagMap[name] |= voidTag
	}
	for _, name := range collapsibleTags {
		tagMap[name] |= collapsibleTag
	}

	booleanAttrMap = make(map[string]bool, len(booleanAttrs))
	for _, name := range booleanAttrs {
		booleanAttrMap[name] = true
	}
}

// buildTagMap merges the category lists, the pre element being a category of its own. It fails when a tag is listed in more than one category.
func buildTagMap(inline, leaf, container []string) (map[string]traits, error) {
	m := make(map[string]traits, len(inline)+len(leaf)+len(container)+1)
	m["pre"] = preTag
	for _, list := range []struct {
		names  []string
		traits traits
	}{{inline, inlineTag}, {leaf, leafTag}, {container, containerTag}} {
		for _, name := range list.names {
			if m[name]&categoryTraits != 0 {
				return nil, fmt.Errorf("html: tag %q is listed in more than one category", name)
			}
			m[name] |= list.traits
		}
	}
	return m, nil
}

// Classify returns the layout category of a lowercase tag name. Unknown tags are Inline.
func Classify(name []byte) Category {
	return tagMap[string(name)].category()
}

func (t traits) category() Category {
	switch {
	case t&preTag != 0:
		return Pre
	case t&leafTag != 0:
		return LeafBlock
	case t&containerTag != 0:
		return ContainerBlock
	}
	return Inline
}

// IsVoid returns true for elements that never have content or a closing tag.
func IsVoid(name []byte) bool {
	return tagMap[string(name)]&voidTag != 0
}

// IsCollapsible returns true for containers that are formatted as a leaf as long as they hold no nested blocks.
func IsCollapsible(name []byte) bool {
	return tagMap[string(name)]&collapsibleTag != 0
}

// IsBooleanAttr returns true for attributes whose presence alone carries their meaning.
func IsBooleanAttr(name []byte) bool {
	return booleanAttrMap[string(name)]
}

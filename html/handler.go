package html

import (
	"fmt"
)

var brBytes = []byte("br")

// Handler receives the events of a tokenized document in document order.
type Handler interface {
	// OpenTag receives a start tag. Implied is set when the tag was not in the source.
	OpenTag(name []byte, attrs []Attr, implied bool) error
	// CloseTag receives an end tag. Implied is set when the element was closed without an end tag in the source.
	CloseTag(name []byte, implied bool)
	// Text receives text content with its character references still encoded. One text run may arrive in several calls.
	Text(text []byte)
	// Raw receives content that is kept verbatim, such as script bodies and template actions.
	Raw(raw []byte)
	// ProcessingInstruction receives the contents of a doctype or <?...?> declaration without its angle brackets.
	ProcessingInstruction(data []byte)
	End()
}

// OpenTag returns ErrMalformed for implied start tags, which stem from end tags without a matching start tag.
func (f *formatter) OpenTag(name []byte, attrs []Attr, implied bool) error {
	if implied {
		return fmt.Errorf("%w: closing %s tag did not have a matching open tag", ErrMalformed, name)
	}
	f.tagBuf = appendStartTag(f.tagBuf[:0], name, attrs, f.excludes)
	tag := f.tagBuf

	category := Classify(name)
	if 0 < f.pre {
		f.popPreText()
		f.write(tag)
		if category == Pre {
			f.pre++
		}
		return nil
	}

	switch category {
	case Pre:
		f.popInline(true, true, false)
		if (!f.conservative || f.trailingWS || f.hardBreak) && f.out.Len() != 0 {
			f.write(newlineBytes)
		}
		f.hardBreak = false
		f.write(tag)
		f.pre++
	case LeafBlock:
		f.popInline(true, true, false)
		f.breakAndIndentIfCan()
		f.write(tag)
		if IsVoid(name) {
			f.trimLeadingWS = true
		} else {
			f.trimLeadingWS = !f.conservative
			f.depth++
			f.nesting = leafNesting
		}
	case ContainerBlock:
		f.popInline(true, true, false)
		f.breakAndIndentIfCan()
		f.write(tag)
		f.trimLeadingWS = true
		f.depth++
		if IsCollapsible(name) {
			f.nesting = containerAsLeafNesting
		} else {
			f.nesting = containerNesting
		}
	case Inline:
		isBr := string(name) == string(brBytes)
		f.popText(isBr, false)
		f.pushInline(tag)
		if isBr {
			f.inline = append(f.inline, []byte{})
			if f.nesting == containerAsLeafNesting {
				f.nesting = containerNesting
			}
			f.trimLeadingWS = true
		} else {
			f.trimLeadingWS = false
		}
	default:
		panic(fmt.Sprintf("html: unhandled category %v for <%s>", category, name))
	}
	return nil
}

// CloseTag ignores void elements, their start tag being all there is to them.
func (f *formatter) CloseTag(name []byte, implied bool) {
	if IsVoid(name) {
		return
	}
	f.tagBuf = append(append(append(f.tagBuf[:0], '<', '/'), name...), '>')
	tag := f.tagBuf

	category := Classify(name)
	if 0 < f.pre {
		f.popPreText()
		if f.emits(implied) {
			f.write(tag)
		}
		if category == Pre {
			if f.pre--; f.pre == 0 {
				f.trimLeadingWS = true
			}
		}
		return
	}

	switch category {
	case Pre:
		panic(fmt.Sprintf("html: </%s> outside of preformatted content", name))
	case LeafBlock:
		if f.nesting == leafNesting {
			f.depth--
			f.popInline(false, !f.conservative, implied)
			if f.hardBreak && f.emits(implied) {
				f.breakAndIndent()
				f.write(continuationBytes)
			}
			f.nesting = containerNesting
		} else {
			f.popInline(true, !f.conservative, implied)
			f.depth--
			if f.emits(implied) {
				f.breakAndIndentIfCan()
			}
		}
		if f.emits(implied) {
			f.write(tag)
		}
		f.trimLeadingWS = true
	case ContainerBlock:
		if f.nesting == containerAsLeafNesting {
			f.depth--
			f.popInline(false, true, implied)
			f.nesting = containerNesting
		} else {
			f.popInline(true, true, false)
			f.depth--
			if f.emits(implied) {
				f.breakAndIndentIfCan()
			}
		}
		if f.emits(implied) {
			f.write(tag)
		}
		f.trimLeadingWS = true
	case Inline:
		if f.emits(implied) {
			f.popText(false, implied)
			f.pushInline(tag)
			f.trimLeadingWS = false
		}
	default:
		panic(fmt.Sprintf("html: unhandled category %v for </%s>", category, name))
	}
}

// Text buffers the fragment until the next tag boundary.
func (f *formatter) Text(text []byte) {
	f.text = append(f.text, text)
}

// Raw appends content to the inline run without collapsing or escaping it.
func (f *formatter) Raw(raw []byte) {
	if 0 < f.pre {
		f.popPreText()
		f.write(raw)
		return
	}
	f.popText(false, false)
	f.pushInline(raw)
	f.trimLeadingWS = false
}

// ProcessingInstruction writes <data> out as is and starts a new block context.
func (f *formatter) ProcessingInstruction(data []byte) {
	if 0 < f.pre {
		f.popPreText()
	} else {
		f.popInline(true, true, false)
		f.breakAndIndentIfCan()
	}
	f.write([]byte{'<'})
	f.write(data)
	f.write([]byte{'>'})
	f.trimLeadingWS = true
}

// End flushes the remaining inline content.
func (f *formatter) End() {
	if 0 < f.pre {
		f.popPreText()
	}
	f.popInline(true, true, false)
}

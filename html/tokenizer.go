package html

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
)

var (
	cdataStartBytes = []byte("<![CDATA[")
	preBytes        = []byte("pre")
)

// elements without end tag, they are closed right after they open
var voidElements = map[string]bool{
	"area": true, "base": true, "basefont": true, "br": true, "col": true, "command": true,
	"embed": true, "frame": true, "hr": true, "image": true, "img": true, "input": true,
	"keygen": true, "link": true, "meta": true, "param": true, "source": true,
	"track": true, "wbr": true,
}

var (
	formTags   = []string{"input", "option", "optgroup", "select", "button", "datalist", "textarea"}
	pTags      = []string{"p"}
	ddtTags    = []string{"dd", "dt"}
	rtpTags    = []string{"rt", "rp"}
	tableTags  = []string{"thead", "tbody"}
	blockTags  = []string{"address", "article", "aside", "blockquote", "details", "div", "dl", "fieldset", "figcaption", "figure", "footer", "form", "header", "hr", "main", "nav", "ol", "pre", "section", "table", "ul"}
	headerTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}
)

// openImpliesClose maps a start tag to the open elements it closes, as long as they are the current element.
var openImpliesClose = map[string][]string{
	"tr":       {"tr", "th", "td"},
	"th":       {"th"},
	"td":       {"thead", "th", "td"},
	"body":     {"head", "link", "script"},
	"li":       {"li"},
	"p":        pTags,
	"select":   formTags,
	"input":    formTags,
	"output":   formTags,
	"button":   formTags,
	"datalist": formTags,
	"textarea": formTags,
	"option":   {"option"},
	"optgroup": {"optgroup", "option"},
	"dd":       ddtTags,
	"dt":       ddtTags,
	"rt":       rtpTags,
	"rp":       rtpTags,
	"tbody":    tableTags,
	"tfoot":    tableTags,
}

func init() {
	for _, names := range [][]string{blockTags, headerTags} {
		for _, name := range names {
			openImpliesClose[name] = pTags
		}
	}
}

// tokenizer turns the lexer's tokens into handler events. It keeps the stack of open elements to report implied start and end tags.
type tokenizer struct {
	tb *TokenBuffer
	h  Handler

	stack  [][]byte
	attrs  []Attr
	rawTag html.Hash
}

// Tokenize lexes src and reports its events to h. The lexer lowercases names in place, so src is modified. Malformed input returns an error wrapping ErrMalformed.
func Tokenize(src []byte, tmplDelims [2]string, h Handler) error {
	var l *html.Lexer
	if tmplDelims[0] != "" {
		l = html.NewTemplateLexer(parse.NewInputBytes(src), tmplDelims)
	} else {
		l = html.NewLexer(parse.NewInputBytes(src))
	}
	z := &tokenizer{
		tb: NewTokenBuffer(l),
		h:  h,
	}
	return z.run()
}

func (z *tokenizer) run() error {
	for {
		t := *z.tb.Shift()
		rawTag := z.rawTag
		z.rawTag = 0

		var err error
		switch t.TokenType {
		case html.ErrorToken:
			if lexErr := z.tb.Err(); lexErr != io.EOF {
				return fmt.Errorf("%w: %v", ErrMalformed, lexErr)
			}
			if err := z.closeAll(0); err != nil {
				return err
			}
			z.h.End()
			return nil
		case html.DoctypeToken:
			err = z.declaration(t.Data)
		case html.CommentToken:
			// declarations <!x> and <?x> are bogus comments to the lexer
			if 1 < len(t.Data) && (t.Data[1] == '?' || t.Data[1] == '!' && !bytes.HasPrefix(t.Data, []byte("<!--"))) {
				err = z.declaration(t.Data)
			}
		case html.TextToken:
			switch rawTag {
			case html.Script, html.Style, html.Xmp, html.Iframe, html.Plaintext:
				z.h.Raw(t.Data)
			case html.Title, html.Textarea:
				z.h.Text(t.Data)
			default:
				// CDATA sections are comments in HTML content
				if !bytes.HasPrefix(t.Data, cdataStartBytes) {
					z.h.Text(t.Data)
				}
			}
		case html.TemplateToken:
			z.h.Raw(t.Data)
		case html.StartTagToken:
			err = z.startTag(t)
		case html.EndTagToken:
			err = z.endTag(t)
		case html.SVGToken, html.MathToken:
			err = z.foreignContent(t.Data)
		case html.XMLToken:
			z.h.Raw(t.Data)
		}
		if err != nil {
			return err
		}
	}
}

// declaration reports a doctype or <!x> and <?x> declaration. One cut off by the end of the input is malformed.
func (z *tokenizer) declaration(data []byte) error {
	if len(data) == 0 || data[len(data)-1] != '>' {
		return fmt.Errorf("%w: unterminated declaration %q", ErrMalformed, data)
	}
	z.h.ProcessingInstruction(trimAngles(data))
	return nil
}

func (z *tokenizer) startTag(t Token) error {
	name := parse.Copy(t.Text)
	z.attrs = z.attrs[:0]
	for {
		attr := z.tb.Peek(0)
		if attr.TokenType != html.AttributeToken {
			break
		}
		z.attrs = appendAttr(z.attrs, attr.Text, attrValue(attr.AttrVal))
		z.tb.Shift()
	}
	if end := z.tb.Shift(); end.TokenType != html.StartTagCloseToken && end.TokenType != html.StartTagVoidToken {
		return fmt.Errorf("%w: unterminated <%s> tag", ErrMalformed, name)
	}
	switch t.Hash {
	case html.Script, html.Style, html.Xmp, html.Iframe, html.Plaintext, html.Title, html.Textarea:
		z.rawTag = t.Hash
	}
	return z.open(name, z.attrs)
}

// open reports a start tag after closing the elements it implies closed.
func (z *tokenizer) open(name []byte, attrs []Attr) error {
	if closes, ok := openImpliesClose[string(name)]; ok {
		for 0 < len(z.stack) && contains(closes, z.stack[len(z.stack)-1]) {
			if err := z.pop(true); err != nil {
				return err
			}
		}
	}
	if err := z.h.OpenTag(name, attrs, false); err != nil {
		return err
	}
	if voidElements[string(name)] {
		z.h.CloseTag(name, true)
		return nil
	}
	z.stack = append(z.stack, name)
	return nil
}

func (z *tokenizer) endTag(t Token) error {
	name := t.Text
	if i := bytes.IndexFunc(name, func(r rune) bool { return r == '/' || r < 0x80 && parse.IsWhitespace(byte(r)) }); i != -1 {
		name = name[:i]
	}
	return z.close(name, 0)
}

// close reports the end of the innermost open element called name above the floor of the stack. Elements opened after it are closed implicitly. Without such an element the start tag is implied, as for a stray </p>.
func (z *tokenizer) close(name []byte, floor int) error {
	i := len(z.stack) - 1
	for ; floor <= i; i-- {
		if bytes.Equal(z.stack[i], name) {
			break
		}
	}
	if i < floor {
		if err := z.h.OpenTag(name, nil, true); err != nil {
			return err
		}
		z.h.CloseTag(name, false)
		return nil
	}
	for len(z.stack)-1 > i {
		if err := z.pop(true); err != nil {
			return err
		}
	}
	return z.pop(false)
}

// pop closes the current element. An omitted </pre> is malformed.
func (z *tokenizer) pop(implied bool) error {
	name := z.stack[len(z.stack)-1]
	if implied && bytes.Equal(name, preBytes) {
		return fmt.Errorf("%w: <pre> tag is not closed", ErrMalformed)
	}
	z.stack = z.stack[:len(z.stack)-1]
	z.h.CloseTag(name, implied)
	return nil
}

// closeAll closes the elements above the floor of the stack implicitly.
func (z *tokenizer) closeAll(floor int) error {
	for floor < len(z.stack) {
		if err := z.pop(true); err != nil {
			return err
		}
	}
	return nil
}

// appendAttr appends the attribute unless one with the same key was seen before.
func appendAttr(attrs []Attr, key, val []byte) []Attr {
	for _, attr := range attrs {
		if bytes.Equal(attr.Key, key) {
			return attrs
		}
	}
	return append(attrs, Attr{Key: parse.Copy(key), Val: unescape(val)})
}

// attrValue strips the quotes of a raw attribute value.
func attrValue(val []byte) []byte {
	if 0 < len(val) && (val[0] == '"' || val[0] == '\'') {
		if 1 < len(val) && val[len(val)-1] == val[0] {
			return val[1 : len(val)-1]
		}
		return val[1:]
	}
	return val
}

// trimAngles strips the enclosing < and > of a declaration.
func trimAngles(b []byte) []byte {
	if 0 < len(b) && b[0] == '<' {
		b = b[1:]
	}
	if 0 < len(b) && b[len(b)-1] == '>' {
		b = b[:len(b)-1]
	}
	return b
}

func contains(names []string, name []byte) bool {
	for _, s := range names {
		if s == string(name) {
			return true
		}
	}
	return false
}

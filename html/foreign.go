package html

import (
	"fmt"
	"io"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

// foreignContent reports the elements of an svg or math block, which the HTML lexer returns whole. Names keep their case and self-closing tags are closed explicitly. Elements left open at the end of the block are closed implicitly.
func (z *tokenizer) foreignContent(data []byte) error {
	l := xml.NewLexer(parse.NewInputBytes(parse.Copy(data)))
	floor := len(z.stack)
	var pi []byte
	for {
		tt, data := l.Next()
		switch tt {
		case xml.ErrorToken:
			if err := l.Err(); err != io.EOF {
				return fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			return z.closeAll(floor)
		case xml.DOCTYPEToken:
			z.h.ProcessingInstruction(trimAngles(data))
		case xml.CDATAToken:
			z.h.Raw(data)
		case xml.TextToken:
			z.h.Text(data)
		case xml.StartTagPIToken:
			pi = append(pi[:0], data...)
			for {
				tt, data = l.Next()
				if tt == xml.ErrorToken {
					return fmt.Errorf("%w: unterminated processing instruction", ErrMalformed)
				}
				pi = append(pi, data...)
				if tt == xml.StartTagClosePIToken {
					break
				}
			}
			z.h.ProcessingInstruction(trimAngles(pi))
		case xml.StartTagToken:
			name := l.Text()
			z.attrs = z.attrs[:0]
			for {
				if tt, _ = l.Next(); tt != xml.AttributeToken {
					break
				}
				z.attrs = appendAttr(z.attrs, l.Text(), attrValue(l.AttrVal()))
			}
			if tt != xml.StartTagCloseToken && tt != xml.StartTagCloseVoidToken {
				return fmt.Errorf("%w: unterminated <%s> tag", ErrMalformed, name)
			}
			if err := z.h.OpenTag(name, z.attrs, false); err != nil {
				return err
			}
			if tt == xml.StartTagCloseVoidToken {
				z.h.CloseTag(name, false)
			} else {
				z.stack = append(z.stack, name)
			}
		case xml.EndTagToken:
			if err := z.close(l.Text(), floor); err != nil {
				return err
			}
		}
	}
}

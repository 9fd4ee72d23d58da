// Package html normalizes HTML into a canonical, indented form so that equivalent documents compare equal.
package html

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tdewolff/parse/v2"
)

// ErrMalformed is returned by Tokenize for markup that cannot be normalized, such as an end tag without start tag.
var ErrMalformed = errors.New("malformed html")

// WhitespaceMode determines where line breaks may be placed.
type WhitespaceMode int

// WhitespaceMode values.
const (
	Standard     WhitespaceMode = iota // break lines at every block boundary
	Conservative                       // break lines only where the source had whitespace
)

func (m WhitespaceMode) String() string {
	switch m {
	case Standard:
		return "standard"
	case Conservative:
		return "conservative"
	}
	return "Invalid(" + strconv.Itoa(int(m)) + ")"
}

// ParseWhitespaceMode returns the WhitespaceMode named s, as returned by String.
func ParseWhitespaceMode(s string) (WhitespaceMode, error) {
	switch s {
	case "standard":
		return Standard, nil
	case "conservative":
		return Conservative, nil
	}
	return Standard, fmt.Errorf("unknown whitespace mode %q", s)
}

// ClosingTagMode determines whether implied end tags are written.
type ClosingTagMode int

// ClosingTagMode values.
const (
	AsIs     ClosingTagMode = iota // omit end tags that were omitted in the source
	Explicit                       // write all end tags except for void elements
)

func (m ClosingTagMode) String() string {
	switch m {
	case AsIs:
		return "as-is"
	case Explicit:
		return "explicit"
	}
	return "Invalid(" + strconv.Itoa(int(m)) + ")"
}

// ParseClosingTagMode returns the ClosingTagMode named s, as returned by String.
func ParseClosingTagMode(s string) (ClosingTagMode, error) {
	switch s {
	case "as-is":
		return AsIs, nil
	case "explicit":
		return Explicit, nil
	}
	return AsIs, fmt.Errorf("unknown closing tag mode %q", s)
}

////////////////////////////////////////////////////////////////

// DefaultNormalizer is the default normalizer.
var DefaultNormalizer = &Normalizer{}

// Normalizer is the HTML normalizer.
type Normalizer struct {
	Whitespace  WhitespaceMode
	ClosingTags ClosingTagMode

	// AttributeExcludes maps a tag name to the attributes that are dropped from it.
	AttributeExcludes map[string]map[string]bool

	// TemplateDelims are the opening and closing delimiters of template actions, which are kept verbatim.
	TemplateDelims [2]string
}

// Normalize normalizes HTML with the default options.
func Normalize(w io.Writer, r io.Reader) error {
	return DefaultNormalizer.Normalize(w, r)
}

// String normalizes an HTML string with the default options.
func String(s string) (string, error) {
	return DefaultNormalizer.String(s)
}

// Normalize reads HTML from r and writes its normalized form to w. Malformed HTML is written unchanged.
func (o *Normalizer) Normalize(w io.Writer, r io.Reader) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b, err := o.Bytes(src)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// String returns the normalized HTML, or s itself when it is malformed.
func (o *Normalizer) String(s string) (string, error) {
	b, err := o.Bytes([]byte(s))
	if err != nil {
		return s, err
	}
	return string(b), nil
}

// Bytes returns the normalized HTML, or src itself when it is malformed. Errors other than ErrMalformed are returned, panics are not recovered.
func (o *Normalizer) Bytes(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return src, nil
	}

	// the lexer changes the case of names in place
	in := make([]byte, len(src), len(src)+2)
	copy(in, src)
	if !parse.IsWhitespace(in[len(in)-1]) {
		in = append(in, '\n')
	}

	f := newFormatter(o, len(src))
	if err := Tokenize(in, o.TemplateDelims, f); err != nil {
		if errors.Is(err, ErrMalformed) {
			return src, nil
		}
		return nil, err
	}
	return f.out.Bytes(), nil
}

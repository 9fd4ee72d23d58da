package htmlnorm

import (
	"io"

	"github.com/tdewolff/htmlnorm/html"
)

// Default normalizers for HTML and HTML templates
var Default *M

func init() {
	Default = New()
	Default.Add("text/html", &HTMLNormalizer{})

	aspNormalizer := HTMLNormalizer{}
	aspNormalizer.TemplateDelims = [2]string{"<%", "%>"}
	Default.Add("text/asp", &aspNormalizer)
	Default.Add("text/x-ejs-template", &aspNormalizer)

	phpNormalizer := HTMLNormalizer{}
	phpNormalizer.TemplateDelims = [2]string{"<?", "?>"} // also handles <?php
	Default.Add("application/x-httpd-php", &phpNormalizer)

	tmplNormalizer := HTMLNormalizer{}
	tmplNormalizer.TemplateDelims = [2]string{"{{", "}}"}
	Default.Add("text/x-go-template", &tmplNormalizer)
	Default.Add("text/x-mustache-template", &tmplNormalizer)
	Default.Add("text/x-handlebars-template", &tmplNormalizer)
}

// HTMLNormalizer registers an html.Normalizer with M. The mediatype parameters whitespace=standard|conservative and closing-tags=as-is|explicit override its policy.
type HTMLNormalizer struct {
	html.Normalizer
}

// Normalize normalizes HTML read from r into w.
func (o *HTMLNormalizer) Normalize(_ *M, w io.Writer, r io.Reader, params map[string]string) error {
	n := o.Normalizer
	if s, ok := params["whitespace"]; ok {
		mode, err := html.ParseWhitespaceMode(s)
		if err != nil {
			return err
		}
		n.Whitespace = mode
	}
	if s, ok := params["closing-tags"]; ok {
		mode, err := html.ParseClosingTagMode(s)
		if err != nil {
			return err
		}
		n.ClosingTags = mode
	}
	return n.Normalize(w, r)
}

// HTML string normalizer using the default policy
func HTML(s string) (string, error) {
	return Default.String("text/html", s)
}

// Value normalizes v when it is HTML text, either a string or a byte slice. Any other value, including nil, is returned unchanged. Malformed HTML is returned unchanged as well, other errors are returned.
func Value(v any) (any, error) {
	return Default.Value("text/html", v)
}

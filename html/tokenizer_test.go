package html

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tdewolff/test"
)

type recorder struct {
	events []string
}

func (r *recorder) OpenTag(name []byte, attrs []Attr, implied bool) error {
	sb := strings.Builder{}
	sb.WriteString("<" + string(name))
	for _, attr := range attrs {
		fmt.Fprintf(&sb, " %s=%s", attr.Key, attr.Val)
	}
	sb.WriteString(">")
	if implied {
		sb.WriteString("?")
	}
	r.events = append(r.events, sb.String())
	return nil
}

func (r *recorder) CloseTag(name []byte, implied bool) {
	s := "</" + string(name) + ">"
	if implied {
		s += "?"
	}
	r.events = append(r.events, s)
}

func (r *recorder) Text(text []byte) {
	r.events = append(r.events, "text:"+string(text))
}

func (r *recorder) Raw(raw []byte) {
	r.events = append(r.events, "raw:"+string(raw))
}

func (r *recorder) ProcessingInstruction(data []byte) {
	r.events = append(r.events, "pi:"+string(data))
}

func (r *recorder) End() {
	r.events = append(r.events, "end")
}

func TestTokenize(t *testing.T) {
	var tokenizeTests = []struct {
		html     string
		tmpl     [2]string
		expected []string
	}{
		{`<ul><li>a<li>b</ul>`, [2]string{}, []string{"<ul>", "<li>", "text:a", "</li>?", "<li>", "text:b", "</li>?", "</ul>", "end"}},
		{`<p>x</p></p>`, [2]string{}, []string{"<p>", "text:x", "</p>", "<p>?", "</p>", "end"}},
		{`<br><IMG SRC=a.png>`, [2]string{}, []string{"<br>", "</br>?", "<img src=a.png>", "</img>?", "end"}},
		{`<div><span></div>`, [2]string{}, []string{"<div>", "<span>", "</span>?", "</div>", "end"}},
		{`<p>a<div>b</div>`, [2]string{}, []string{"<p>", "text:a", "</p>?", "<div>", "text:b", "</div>", "end"}},
		{`<table><tr><td>a<tr><td>b</table>`, [2]string{}, []string{"<table>", "<tr>", "<td>", "text:a", "</td>?", "</tr>?", "<tr>", "<td>", "text:b", "</td>?", "</tr>?", "</table>", "end"}},
		{`<select><option>a<option>b</select>`, [2]string{}, []string{"<select>", "<option>", "text:a", "</option>?", "<option>", "text:b", "</option>?", "</select>", "end"}},
		{`<a href="x" HREF="y" title='a &amp; b'>`, [2]string{}, []string{"<a href=x title=a & b>", "</a>?", "end"}},
		{`<div/>x`, [2]string{}, []string{"<div>", "text:x", "</div>?", "end"}},
		{`</div >`, [2]string{}, []string{"<div>?", "</div>", "end"}},
		{`<!DOCTYPE html><?xml-stylesheet x?><!-- c --><![CDATA[y]]><!x>`, [2]string{}, []string{"pi:!DOCTYPE html", "pi:?xml-stylesheet x?", "pi:!x", "end"}},
		{`<script>a<b</script>`, [2]string{}, []string{"<script>", "raw:a<b", "</script>", "end"}},
		{`<title>a &amp; <b></title>`, [2]string{}, []string{"<title>", "text:a &amp; <b>", "</title>", "end"}},
		{`<svg viewBox="0 0 1 1"><linearGradient id="g"/><text>a<![CDATA[<b>]]></text></svg>`, [2]string{}, []string{"<svg viewBox=0 0 1 1>", "<linearGradient id=g>", "</linearGradient>", "<text>", "text:a", "raw:<![CDATA[<b>]]>", "</text>", "</svg>", "end"}},
		{`<svg><g></h></svg>`, [2]string{}, []string{"<svg>", "<g>", "<h>?", "</h>", "</g>?", "</svg>", "end"}},
		{`<math><mi>x</math>`, [2]string{}, []string{"<math>", "<mi>", "text:x", "</mi>?", "</math>", "end"}},
		{`<p>{{ .X }}</p>`, [2]string{"{{", "}}"}, []string{"<p>", "raw:{{ .X }}", "</p>", "end"}},
		{`<p><?php echo 1 ?></p>`, [2]string{"<?", "?>"}, []string{"<p>", "raw:<?php echo 1 ?>", "</p>", "end"}},
	}
	for _, tt := range tokenizeTests {
		t.Run(tt.html, func(t *testing.T) {
			r := &recorder{}
			err := Tokenize([]byte(tt.html), tt.tmpl, r)
			test.Error(t, err)
			test.T(t, r.events, tt.expected)
		})
	}
}

func TestTokenizeMalformed(t *testing.T) {
	var tokenizeTests = []string{
		`<div class="a"`,
		`<pre>a`,
		`<div><pre>a</div>`,
		`<ul><li><pre>a<li>b</ul>`,
		`<svg><pre>a</svg>`,
		"x<!\n",
		"<?xml x\n",
	}
	for _, html := range tokenizeTests {
		t.Run(html, func(t *testing.T) {
			err := Tokenize([]byte(html), [2]string{}, &recorder{})
			test.That(t, errors.Is(err, ErrMalformed), "must return ErrMalformed, got", err)
		})
	}
}

func TestTokenizeFormatter(t *testing.T) {
	var tokenizeTests = []string{
		`</p>`,
		`<svg><g></h></svg>`,
	}
	for _, html := range tokenizeTests {
		t.Run(html, func(t *testing.T) {
			f := newFormatter(&Normalizer{}, 0)
			err := Tokenize([]byte(html), [2]string{}, f)
			test.That(t, errors.Is(err, ErrMalformed), "implied start tag is malformed, got", err)
		})
	}
}

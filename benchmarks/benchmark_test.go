package benchmarks

import (
	"runtime"
	"strings"
	"testing"

	"github.com/tdewolff/htmlnorm"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/buffer"
)

const article = `<article class="post featured"><h2 id="title">Title <small>sub</small></h2>
<p>Lorem   ipsum dolor sit amet, <a href="/x?a=1&amp;b=2" title="link">consectetur</a> adipiscing elit.<br>
Sed do eiusmod <em>tempor</em> incididunt ut labore et dolore magna aliqua.</p>
<ul><li>one<li>two<li><input type=checkbox checked="checked" disabled> three</ul>
<table><tr><th>a<th>b<tr><td>1<td>2</table>
<pre>  keep
    this  </pre>
<script>if (a < b) { c(); }</script></article>
`

var samples = map[string]string{
	"small":  "<!DOCTYPE html><html><head><title>T</title></head><body>" + article + "</body></html>",
	"medium": "<!DOCTYPE html><html><head><title>T</title></head><body>" + strings.Repeat(article, 50) + "</body></html>",
	"large":  "<!DOCTYPE html><html><head><title>T</title></head><body>" + strings.Repeat(article, 1000) + "</body></html>",
}

func benchmark(b *testing.B, mediatype string, name string) {
	m := htmlnorm.Default
	in := []byte(samples[name])
	b.Run(name, func(b *testing.B) {
		out := make([]byte, 0, len(in))
		b.SetBytes(int64(len(in)))
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			runtime.GC()
			r := buffer.NewReader(parse.Copy(in))
			w := buffer.NewWriter(out[:0])
			b.StartTimer()

			if err := m.Normalize(mediatype, w, r); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkHTML(b *testing.B) {
	for _, name := range []string{"small", "medium", "large"} {
		benchmark(b, "text/html", name)
	}
}

func BenchmarkHTMLConservative(b *testing.B) {
	for _, name := range []string{"small", "medium", "large"} {
		benchmark(b, "text/html; whitespace=conservative", name)
	}
}

func BenchmarkHTMLExplicit(b *testing.B) {
	for _, name := range []string{"small", "medium", "large"} {
		benchmark(b, "text/html; closing-tags=explicit", name)
	}
}

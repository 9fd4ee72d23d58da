package html

import (
	"testing"
)

func FuzzNormalize(f *testing.F) {
	for _, html := range propertyTests {
		f.Add(html)
	}
	f.Add(`<p>a</p></p>`)
	f.Add(`<svg><g><text>a</svg>`)
	f.Add(`<a><pre>a<div>b</a>`)
	f.Fuzz(func(t *testing.T, html string) {
		for _, o := range []*Normalizer{
			{},
			{Whitespace: Conservative},
			{ClosingTags: Explicit},
			{Whitespace: Conservative, ClosingTags: Explicit},
		} {
			once, err := o.String(html)
			if err != nil {
				t.Fatal(err)
			}
			twice, err := o.String(once)
			if err != nil {
				t.Fatal(err)
			}
			if twice != once {
				t.Fatalf("%v %v: %q normalizes to %q, then to %q", o.Whitespace, o.ClosingTags, html, once, twice)
			}
		}
	})
}

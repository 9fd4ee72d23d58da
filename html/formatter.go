package html

import (
	"bytes"

	"github.com/tdewolff/parse/v2/buffer"
)

var (
	newlineBytes      = []byte("\n")
	indentBytes       = []byte("  ")
	continuationBytes = []byte("    ")
	spaceBytes        = []byte(" ")
)

type nesting int

const (
	containerNesting nesting = iota
	leafNesting
	containerAsLeafNesting
)

// formatter holds the layout state of a single normalization. Output is only ever appended to.
type formatter struct {
	conservative bool
	explicit     bool
	excludes     map[string]map[string]bool

	out *buffer.Writer

	depth   int
	inline  [][]byte // one segment per line, split by <br>
	text    [][]byte // raw fragments since the last flush
	pre     int
	nesting nesting

	hardBreak       bool
	inlineLeadingWS bool
	trailingWS      bool
	trimLeadingWS   bool

	tagBuf  []byte
	textBuf []byte
}

func newFormatter(o *Normalizer, n int) *formatter {
	return &formatter{
		conservative:  o.Whitespace == Conservative,
		explicit:      o.ClosingTags == Explicit,
		excludes:      o.AttributeExcludes,
		out:           buffer.NewWriter(make([]byte, 0, n+n/4)),
		trimLeadingWS: true,
	}
}

// emits reports whether a closing tag is written out.
func (f *formatter) emits(implied bool) bool {
	return f.explicit || !implied
}

func (f *formatter) write(b []byte) {
	_, _ = f.out.Write(b)
}

// popPreText writes the pending text as it appeared in the source.
func (f *formatter) popPreText() {
	for _, frag := range f.text {
		f.write(frag)
	}
	f.text = f.text[:0]
}

// popText moves the pending text into the inline run with its whitespace collapsed. When keepTrailing is set a trailing space stays pending so the next flush can decide on it.
func (f *formatter) popText(trimTrailing, keepTrailing bool) {
	if len(f.text) == 0 {
		f.trailingWS = false
		return
	}
	s := collapseWhitespace(unescape(bytes.Join(f.text, nil)))
	f.text = f.text[:0]
	if len(s) == 0 {
		f.trailingWS = false
		return
	}

	if keepTrailing && s[len(s)-1] == ' ' {
		f.text = append(f.text, spaceBytes)
		if s = s[:len(s)-1]; len(s) == 0 {
			f.trailingWS = false
			return
		}
	}

	if len(s) == 1 && s[0] == ' ' {
		if len(f.inline) == 0 {
			f.inlineLeadingWS = true
		}
		f.trailingWS = true
		if !f.trimLeadingWS && !trimTrailing {
			f.pushInline(spaceBytes)
		}
		return
	}

	if s[0] == ' ' {
		if len(f.inline) == 0 {
			f.inlineLeadingWS = true
		}
		if f.trimLeadingWS {
			s = s[1:]
		}
	}
	f.trailingWS = s[len(s)-1] == ' '
	if f.trailingWS && trimTrailing {
		s = s[:len(s)-1]
	}
	f.textBuf = appendEscaped(f.textBuf[:0], s)
	f.pushInline(f.textBuf)
}

// pushInline appends to the last line of the inline run.
func (f *formatter) pushInline(b []byte) {
	if len(f.inline) == 0 {
		f.inline = append(f.inline, append([]byte{}, b...))
		return
	}
	last := len(f.inline) - 1
	f.inline[last] = append(f.inline[last], b...)
}

// popInline flushes the pending text and writes out the inline run. As an anonymous block it starts on its own line, otherwise it continues the current line and its extra lines get a hanging indent.
func (f *formatter) popInline(asAnonymous, trimTrailing, keepTrailing bool) {
	f.popText(trimTrailing, keepTrailing)
	if len(f.inline) == 0 {
		f.inlineLeadingWS = false
		return
	}

	if asAnonymous && (!f.conservative || f.inlineLeadingWS) {
		f.breakAndIndent()
	}
	f.write(f.inline[0])

	f.hardBreak = false
	for _, line := range f.inline[1:] {
		if len(line) == 0 {
			f.hardBreak = true
			break
		}
		f.breakAndIndent()
		if !asAnonymous {
			f.write(continuationBytes)
		}
		f.write(line)
	}
	f.inline = f.inline[:0]
	f.inlineLeadingWS = false
}

// breakAndIndent starts a new line at the current depth, which settles a pending hard break.
func (f *formatter) breakAndIndent() {
	f.hardBreak = false
	if f.out.Len() == 0 {
		return
	}
	f.write(newlineBytes)
	for i := 0; i < f.depth; i++ {
		f.write(indentBytes)
	}
}

// breakAndIndentIfCan breaks the line unless that would introduce whitespace the source lacked.
func (f *formatter) breakAndIndentIfCan() {
	if !f.conservative || f.trailingWS || f.hardBreak {
		f.breakAndIndent()
	}
}

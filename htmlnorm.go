// Package htmlnorm maps media types to normalizers, so that HTML and its template flavours can be normalized by name.
package htmlnorm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"sync"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/buffer"
)

// ErrNotExist is returned when no normalizer exists for a given mediatype.
var ErrNotExist = errors.New("normalizer does not exist for mimetype")

////////////////////////////////////////////////////////////////

// NormalizerFunc is a function that implements Normalizer.
type NormalizerFunc func(*M, io.Writer, io.Reader, map[string]string) error

// Normalize calls f(m, w, r, params)
func (f NormalizerFunc) Normalize(m *M, w io.Writer, r io.Reader, params map[string]string) error {
	return f(m, w, r, params)
}

// Normalizer is the interface for normalizers.
// The *M parameter is used for normalizing embedded resources.
type Normalizer interface {
	Normalize(*M, io.Writer, io.Reader, map[string]string) error
}

////////////////////////////////////////////////////////////////

type patternNormalizer struct {
	pattern *regexp.Regexp
	Normalizer
}

type cmdNormalizer struct {
	cmd *exec.Cmd
}

func (c *cmdNormalizer) Normalize(_ *M, w io.Writer, r io.Reader, _ map[string]string) error {
	cmd := &exec.Cmd{}
	*cmd = *c.cmd // concurrency safety

	cmd.Stdout = w
	cmd.Stdin = r
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() != 0 {
			return fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return err
	}
	return nil
}

////////////////////////////////////////////////////////////////

// M holds a map of mediatype => function to allow recursive normalizer calls of the normalizer functions.
type M struct {
	mutex   sync.RWMutex
	literal map[string]Normalizer
	pattern []patternNormalizer
}

// New returns a new M.
func New() *M {
	return &M{
		literal: map[string]Normalizer{},
	}
}

// Add adds a normalizer to the mediatype => Normalizer map.
func (m *M) Add(mediatype string, normalizer Normalizer) {
	m.mutex.Lock()
	m.literal[mediatype] = normalizer
	m.mutex.Unlock()
}

// AddFunc adds a normalizer function to the mediatype => Normalizer map.
func (m *M) AddFunc(mediatype string, normalizer NormalizerFunc) {
	m.Add(mediatype, normalizer)
}

// AddRegexp adds a normalizer to the mediatype => Normalizer map for all mediatypes matching the pattern. Patterns are tried in the order they were added, after the literal mediatypes.
func (m *M) AddRegexp(pattern *regexp.Regexp, normalizer Normalizer) {
	m.mutex.Lock()
	m.pattern = append(m.pattern, patternNormalizer{pattern, normalizer})
	m.mutex.Unlock()
}

// AddFuncRegexp adds a normalizer function to the mediatype => Normalizer map for all mediatypes matching the pattern.
func (m *M) AddFuncRegexp(pattern *regexp.Regexp, normalizer NormalizerFunc) {
	m.AddRegexp(pattern, normalizer)
}

// AddCmd adds a normalizer that runs an external command, reading from its stdin and writing to its stdout.
func (m *M) AddCmd(mediatype string, cmd *exec.Cmd) {
	m.Add(mediatype, &cmdNormalizer{cmd})
}

// AddCmdRegexp adds a command normalizer for all mediatypes matching the pattern.
func (m *M) AddCmdRegexp(pattern *regexp.Regexp, cmd *exec.Cmd) {
	m.AddRegexp(pattern, &cmdNormalizer{cmd})
}

// Match returns the pattern and normalizer that gets matched with the mediatype.
// It returns nil when no normalizer could be found.
// Match also returns the mimetype and the parameters of the mediatype.
func (m *M) Match(mediatype string) (string, map[string]string, Normalizer) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	mimetype, params := parse.Mediatype([]byte(mediatype))
	if normalizer, ok := m.literal[string(mimetype)]; ok {
		return string(mimetype), params, normalizer
	}
	for _, normalizer := range m.pattern {
		if normalizer.pattern.Match(mimetype) {
			return normalizer.pattern.String(), params, normalizer.Normalizer
		}
	}
	return string(mimetype), params, nil
}

// Normalize normalizes the content of a Reader and writes it to a Writer.
// An error is returned when no such mediatype exists (ErrNotExist) or when an error occurred in the normalizer function.
// Mediatype may take the form of 'text/html', 'text/html; whitespace=conservative' or 'text/x-go-template'.
func (m *M) Normalize(mediatype string, w io.Writer, r io.Reader) error {
	mimetype, params := parse.Mediatype([]byte(mediatype))
	return m.NormalizeMimetype(mimetype, w, r, params)
}

// NormalizeMimetype normalizes the content of a Reader and writes it to a Writer.
// The mimetype must be lowercase and without parameters, those are passed separately.
func (m *M) NormalizeMimetype(mimetype []byte, w io.Writer, r io.Reader, params map[string]string) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if normalizer, ok := m.literal[string(mimetype)]; ok {
		return normalizer.Normalize(m, w, r, params)
	}
	for _, normalizer := range m.pattern {
		if normalizer.pattern.Match(mimetype) {
			return normalizer.Normalize(m, w, r, params)
		}
	}
	return ErrNotExist
}

// Bytes normalizes an array of bytes (safe for concurrent use). When an error occurs it return the original array and the error.
// It returns an error when no such mediatype exists (ErrNotExist) or any error occurred in the normalizer function.
func (m *M) Bytes(mediatype string, v []byte) ([]byte, error) {
	out := buffer.NewWriter(make([]byte, 0, len(v)))
	if err := m.Normalize(mediatype, out, buffer.NewReader(v)); err != nil {
		return v, err
	}
	return out.Bytes(), nil
}

// String normalizes a string (safe for concurrent use). When an error occurs it return the original string and the error.
// It returns an error when no such mediatype exists (ErrNotExist) or any error occurred in the normalizer function.
func (m *M) String(mediatype string, v string) (string, error) {
	out := buffer.NewWriter(make([]byte, 0, len(v)))
	if err := m.Normalize(mediatype, out, buffer.NewReader([]byte(v))); err != nil {
		return v, err
	}
	return string(out.Bytes()), nil
}

// Value normalizes v when it is text, either a string or a byte slice. Any other value, including nil, is returned unchanged.
// Errors are returned as for String and Bytes.
func (m *M) Value(mediatype string, v any) (any, error) {
	switch t := v.(type) {
	case string:
		return m.String(mediatype, t)
	case []byte:
		return m.Bytes(mediatype, t)
	}
	return v, nil
}

// Reader wraps a Reader interface and normalizes the stream.
// Errors from the normalizer are returned by the reader.
func (m *M) Reader(mediatype string, r io.Reader) io.Reader {
	pr, pw := io.Pipe()
	go func() {
		if err := m.Normalize(mediatype, pw, r); err != nil {
			pw.CloseWithError(err)
		} else {
			pw.Close()
		}
	}()
	return pr
}

// writer makes sure that errors from the normalizer are passed down through Close (can be blocking).
type writer struct {
	pw     *io.PipeWriter
	wg     sync.WaitGroup
	err    error
	closed bool
}

// Write intercepts any writes to the writer.
func (w *writer) Write(b []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := w.pw.Write(b)
	if w.err != nil {
		err = w.err
	}
	return n, err
}

// Close must be called when writing has finished. It returns the error from the normalizer.
func (w *writer) Close() error {
	if !w.closed {
		w.pw.Close()
		w.wg.Wait()
		w.closed = true
	}
	return w.err
}

// Writer wraps a Writer interface and normalizes the stream.
// Errors from the normalizer are returned by Close on the writer.
// The writer must be closed explicitly.
func (m *M) Writer(mediatype string, w io.Writer) io.WriteCloser {
	pr, pw := io.Pipe()
	mw := &writer{pw, sync.WaitGroup{}, nil, false}
	mw.wg.Add(1)
	go func() {
		defer mw.wg.Done()

		if err := m.Normalize(mediatype, w, pr); err != nil {
			mw.err = err
			pr.CloseWithError(err)
		} else {
			io.Copy(io.Discard, pr)
			pr.Close()
		}
	}()
	return mw
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tdewolff/test"
)

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "file")
	test.Error(t, os.WriteFile(filename, nil, 0644))

	cases := []struct {
		name     string
		dir      string
		expected bool
	}{
		{"SimpleFile", "file", false},
		{"FileInCurrentDirectory", "." + string(os.PathSeparator) + "file", false},
		{"FileInParentDirectory", filepath.Join("..", "file"), false},
		{"ExistingFile", filename, false},
		{"ExistingDirectory", dir, true},
		{"TrailingSeparator", "out" + string(os.PathSeparator), true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			test.T(t, IsDir(c.dir), c.expected)
		})
	}
}

func TestSameFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	test.Error(t, os.WriteFile(a, nil, 0644))
	test.Error(t, os.WriteFile(b, nil, 0644))

	same, err := SameFile(a, filepath.Join(dir, ".", "a"))
	test.Error(t, err)
	test.That(t, same)

	same, err = SameFile(a, b)
	test.Error(t, err)
	test.That(t, !same)

	_, err = SameFile(a, filepath.Join(dir, "c"))
	test.That(t, err != nil, "missing file")
}

func TestOpenOutputFile(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "sub", "out.html")
	w, err := openOutputFile(filename)
	test.Error(t, err)
	_, err = w.Write([]byte("<p>a</p>"))
	test.Error(t, err)
	test.Error(t, w.Close())

	r, err := openInputFile(filename)
	test.Error(t, err)
	test.Error(t, r.Close())

	_, err = openInputFile(filepath.Join(dir, "missing.html"))
	test.That(t, err != nil, "missing input file")
}

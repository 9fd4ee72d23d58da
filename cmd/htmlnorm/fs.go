package main

import (
	"io/fs"
	"os"
	"path/filepath"
)

// NewFS returns a file system rooted at the working directory that also accepts absolute paths, unlike os.DirFS.
func NewFS() fs.FS {
	return dirFS("")
}

type dirFS string

func (dir dirFS) Open(name string) (fs.File, error) {
	return os.Open(filepath.Join(string(dir), name))
}

func (dir dirFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(filepath.Join(string(dir), name))
}

//go:build linux || darwin || netbsd || solaris || openbsd || freebsd || js || wasm

package main

import (
	"os"
	"syscall"
)

var supportsGetOwnership = true

// getOwnership returns the user and group IDs of the file owner.
func getOwnership(info os.FileInfo) (int, int, bool) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return int(stat.Uid), int(stat.Gid), true
	}
	return 0, 0, false
}

//go:build !linux && !darwin && !netbsd && !solaris && !openbsd && !freebsd && !js && !wasm

package main

import "os"

var supportsGetOwnership = false

// getOwnership is not supported on this platform.
func getOwnership(os.FileInfo) (int, int, bool) {
	return 0, 0, false
}

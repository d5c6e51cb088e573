// Command patchbay loads, validates, renders and serves audio patches saved
// by the visual editor.
//
// Usage:
//
//	patchbay validate patch.json
//	patchbay render patch.json -o out.wav -d 4
//	patchbay serve --snapshot patch.json --watch
//	patchbay init-config
package main

import (
	"fmt"
	"os"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root := newRootCmd()
	root.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

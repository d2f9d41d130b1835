// Package support bundles the default support directory: the console and
// util modules and the startup script.
package support

import (
	"embed"
	"io/fs"
)

//go:embed *.js
var files embed.FS

// FS returns the bundled support directory.
func FS() fs.FS {
	return files
}

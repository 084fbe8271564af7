// Package appfs exposes embedded assets needed at run time.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS

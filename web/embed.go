// Package web embeds the dashboard templates so the binary does not depend on
// the working directory.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS

// Package web carries the pages and browser assets served by cmd/financas.
package web

import (
	"embed"
	"io/fs"
)

// TemplatesFS holds the login and ledger pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the stylesheet and client script rooted at static/, ready
// to be served under /static/.
func Static() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}

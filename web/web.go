// Package web serves the embedded single-page UI. The page polls the
// job endpoints on a fixed interval and draws metric charts client
// side; it holds no state the API does not expose.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

// Handler returns the file server for the UI assets.
func Handler() http.Handler {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

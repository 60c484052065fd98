// Package swagger serves the OpenAPI document of the site API and a ReDoc
// page that renders it.
package swagger

import (
	"context"
	"net/http"
)

// Routes.
const (
	DocsPath = "/api-docs"
	SpecPath = "/openapi.yaml"
)

// Register attaches the docs page and the embedded OpenAPI document to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc(DocsPath, serve("text/html; charset=utf-8", []byte(docsHTML)))
	mux.HandleFunc(SpecPath, serve("application/yaml; charset=utf-8", OpenAPI))
}

func serve(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", contentType)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	}
}

const docsHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>civicrank API Docs</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('` + SpecPath + `', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`

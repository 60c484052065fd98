// Package site serves the embedded front-end and the JSON files it renders.
package site

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
)

// Error constants
var (
	ErrServe = errors.New("site serve failed")
)

// Register attaches the embedded front-end at / and the JSON files of
// dataDir at /data/.
func Register(_ context.Context, mux *http.ServeMux, dataDir string) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("/", NewRootHandler())
	mux.Handle("/data/", http.StripPrefix("/data/", NewDataHandler(dataDir)))
}

// RootHandler serves the embedded front-end.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

// ServeHTTP handles GET / and the front-end assets.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	h.files.ServeHTTP(w, r)
}

// DataHandler serves .json files from a directory and nothing else.
type DataHandler struct {
	files http.Handler
}

// NewDataHandler creates a handler for dir.
func NewDataHandler(dir string) *DataHandler {
	return &DataHandler{files: http.FileServer(http.Dir(dir))}
}

// ServeHTTP rejects anything that is not a visible .json file.
func (h *DataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	name := path.Base(r.URL.Path)
	if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	h.files.ServeHTTP(w, r)
}

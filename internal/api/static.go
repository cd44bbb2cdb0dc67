package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"blog-backend/internal/storage"
)

var mimeTypes = map[string]string{
	".html": "text/html",
	".js":   "text/javascript",
	".css":  "text/css",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

func mimeTypeFor(path string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "application/octet-stream"
}

// StaticHandler serves the site tree and uploaded files. Both roots reject
// any resolved path escaping them.
type StaticHandler struct {
	siteRoot string
	backend  storage.Backend
}

func NewStaticHandler(siteRoot string, backend storage.Backend) (*StaticHandler, error) {
	abs, err := filepath.Abs(siteRoot)
	if err != nil {
		return nil, err
	}
	return &StaticHandler{siteRoot: abs, backend: backend}, nil
}

// ServeUpload handles GET /uploads/{name} through the storage backend, so
// uploaded files resolve regardless of whether they live on disk or in S3.
func (h *StaticHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if illegalFilename(name) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	data, err := h.backend.Read(name)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", mimeTypeFor(name))
	w.Write(data)
}

// ServeSite is the router's fallback: unknown /api/ paths get a JSON 404,
// everything else resolves against the static site root.
func (h *StaticHandler) ServeSite(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "API endpoint not found")
		return
	}

	pathname := r.URL.Path
	if pathname == "/" {
		pathname = "/index.html"
	}

	// Clean against a rooted path first so ".." segments collapse before
	// the join, then verify containment.
	full := filepath.Join(h.siteRoot, filepath.Clean("/"+pathname))
	if full != h.siteRoot && !strings.HasPrefix(full, h.siteRoot+string(os.PathSeparator)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	info, err := os.Stat(full)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if info.IsDir() {
		full = filepath.Join(full, "index.html")
	}

	data, err := os.ReadFile(full)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", mimeTypeFor(full))
	w.Write(data)
}

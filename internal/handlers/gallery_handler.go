package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// GalleryHandler serves the synced gallery for local preview.
type GalleryHandler struct {
	basePath     string
	manifestPath string
}

// NewGalleryHandler creates a new GalleryHandler.
func NewGalleryHandler(basePath, manifestPath string) *GalleryHandler {
	return &GalleryHandler{basePath: basePath, manifestPath: manifestPath}
}

// HealthCheck returns the preview server health status
func (h *GalleryHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Manifest serves the manifest file. An unsynced gallery reads as empty.
func (h *GalleryHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(h.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("[]\n"))
			return
		}
		http.Error(w, "Failed to read manifest", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// Photo serves a single gallery file by its manifest-relative path.
func (h *GalleryHandler) Photo(w http.ResponseWriter, r *http.Request) {
	relative := chi.URLParam(r, "*")
	if relative == "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	fullPath := filepath.Join(h.basePath, "photos", filepath.FromSlash(relative))

	// Security check: ensure path is within the gallery base
	absPath, err := filepath.Abs(fullPath)
	if err != nil || !strings.HasPrefix(absPath, h.basePath+string(os.PathSeparator)) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	if _, err := os.Stat(absPath); err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, absPath)
}

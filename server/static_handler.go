package server

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"Melodix/logger"
	"Melodix/storage"
)

// MediaHandler streams stored objects under /media/. Range requests are
// answered by http.ServeContent so players can seek.
func (h *APIHandler) MediaHandler(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/media/")
	if key == "" || strings.Contains(key, "..") {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	obj, info, err := h.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		logger.Error("Error opening stored object", logger.String("key", key), logger.ErrorField(err))
		http.Error(w, "Storage unavailable", http.StatusBadGateway)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", detectContentType(key, info.ContentType))
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if info.ETag != "" {
		w.Header().Set("ETag", `"`+strings.Trim(info.ETag, `"`)+`"`)
	}

	http.ServeContent(w, r, path.Base(key), info.LastModified, obj)
}

// detectContentType prefers the type recorded at upload time and falls back
// to the extension.
func detectContentType(key, stored string) string {
	if stored != "" && stored != "application/octet-stream" {
		return stored
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	switch {
	case strings.HasPrefix(key, "images/"), strings.HasPrefix(key, "albums/"):
		return "image/jpeg"
	case strings.HasPrefix(key, "audio/"):
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

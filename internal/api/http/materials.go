package http

import (
	"io"
	"strings"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyloop/studyloop-backend/internal/storage"
)

// MountMaterials exposes the stored course documents so the frontend can
// re-download what a quiz was generated from.
func MountMaterials(r chi.Router, bs storage.BlobStore) {
	// GET /materials/*  -> returns the blob at whatever follows /materials/
	r.Get("/*", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		key := chi.URLParam(r, "*")
		key = strings.TrimPrefix(key, "/")
		rc, err := bs.Get(key)
		if err != nil {
			nethttp.Error(w, "not found", nethttp.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, rc)
	})
}

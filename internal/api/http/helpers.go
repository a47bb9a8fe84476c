// Package http holds the gateway's request handlers. Handlers only; routes
// remain in main.go.
package http

import (
	"encoding/json"
	"errors"
	"strconv"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyloop/studyloop-backend/internal/analytics"
	"github.com/studyloop/studyloop-backend/internal/results"
)

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// storeError maps the store and aggregator sentinels onto status codes.
func storeError(w nethttp.ResponseWriter, err error) {
	switch {
	case errors.Is(err, results.ErrNotFound):
		nethttp.Error(w, "not found", nethttp.StatusNotFound)
	case errors.Is(err, analytics.ErrNoResults):
		nethttp.Error(w, "暂无学生提交数据", nethttp.StatusNotFound)
	default:
		nethttp.Error(w, "internal error", nethttp.StatusInternalServerError)
	}
}

func idParam(r *nethttp.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

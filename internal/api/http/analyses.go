package http

import (
	nethttp "net/http"

	"github.com/studyloop/studyloop-backend/internal/auth"
	"github.com/studyloop/studyloop-backend/internal/results"
)

// ListAnalysesHandler returns the caller's result history, payloads omitted.
func ListAnalysesHandler(store *results.SQLStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		list, err := store.ListAnalyses(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			nethttp.Error(w, "list analyses", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, list)
	}
}

func GetAnalysisHandler(store *results.SQLStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id, err := idParam(r, "analysisID")
		if err != nil {
			nethttp.Error(w, "bad analysis id", nethttp.StatusBadRequest)
			return
		}
		a, err := store.GetAnalysis(r.Context(), id, auth.SubjectFromContext(r.Context()))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, a)
	}
}

// Teacher self-check results live in their own table; the pair of handlers
// below mirrors the student ones.

func ListTeacherAnalysesHandler(store *results.SQLStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		list, err := store.ListTeacherAnalyses(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			nethttp.Error(w, "list analyses", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, list)
	}
}

func GetTeacherAnalysisHandler(store *results.SQLStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id, err := idParam(r, "analysisID")
		if err != nil {
			nethttp.Error(w, "bad analysis id", nethttp.StatusBadRequest)
			return
		}
		a, err := store.GetTeacherAnalysis(r.Context(), id, auth.SubjectFromContext(r.Context()))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, a)
	}
}

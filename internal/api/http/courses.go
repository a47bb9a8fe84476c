package http

import (
	"encoding/json"
	"strconv"
	"strings"

	nethttp "net/http"

	"github.com/studyloop/studyloop-backend/internal/auth"
	"github.com/studyloop/studyloop-backend/internal/results"
)

func CreateClassHandler(store *results.SQLStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			Cname string `json:"cname"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Cname) == "" {
			nethttp.Error(w, "cname required", nethttp.StatusBadRequest)
			return
		}
		tno := auth.SubjectFromContext(r.Context())
		cno, err := store.CreateClass(r.Context(), req.Cname, tno)
		if err != nil {
			nethttp.Error(w, "create class", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, results.Class{Cno: cno, Cname: req.Cname, Tno: tno})
	}
}

func ListClassesHandler(store *results.SQLStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		list, err := store.ListClasses(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			nethttp.Error(w, "list classes", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, list)
	}
}

// ListHomeworkHandler lists the quizzes assigned to one class.
// GET /homework?cno=N
func ListHomeworkHandler(store *results.SQLStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		cno, err := strconv.ParseInt(r.URL.Query().Get("cno"), 10, 64)
		if err != nil {
			nethttp.Error(w, "cno required", nethttp.StatusBadRequest)
			return
		}
		list, err := store.ListHomework(r.Context(), cno)
		if err != nil {
			nethttp.Error(w, "list homework", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, list)
	}
}

package http

import (
	"encoding/json"
	"log/slog"
	"strconv"

	nethttp "net/http"

	"github.com/studyloop/studyloop-backend/internal/auth"
	"github.com/studyloop/studyloop-backend/internal/cache"
	"github.com/studyloop/studyloop-backend/internal/quiz"
	"github.com/studyloop/studyloop-backend/internal/rbac"
	"github.com/studyloop/studyloop-backend/internal/results"
	syncx "github.com/studyloop/studyloop-backend/internal/sync"
)

// AnalyzeQuizHandler grades a submission against the stored quiz and
// persists the result under the submitting account. Teachers doing a
// self-check write to their own result table and never feed the class
// statistics.
func AnalyzeQuizHandler(store *results.SQLStore, norm *quiz.Normalizer, grader *quiz.Grader, events *syncx.EventRepo, ch *cache.Cache) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			QuizID  int64        `json:"quiz_id"`
			Answers quiz.Answers `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		if req.QuizID == 0 {
			nethttp.Error(w, "quiz_id required", nethttp.StatusBadRequest)
			return
		}

		ctx := r.Context()
		q, err := store.GetQuiz(ctx, req.QuizID)
		if err != nil {
			storeError(w, err)
			return
		}

		def := norm.Normalize(q.Definition)
		res := grader.Grade(ctx, def, req.Answers)
		blob, err := json.Marshal(res)
		if err != nil {
			nethttp.Error(w, "encode result", nethttp.StatusInternalServerError)
			return
		}

		sub := auth.SubjectFromContext(ctx)
		var id int64
		if rbac.RoleFromContext(ctx) == "teacher" {
			id, err = store.SaveTeacherAnalysis(ctx, req.QuizID, sub, blob)
		} else {
			id, err = store.SaveAnalysis(ctx, req.QuizID, sub, blob)
		}
		if err != nil {
			nethttp.Error(w, "save result", nethttp.StatusInternalServerError)
			return
		}

		if err := events.Record(ctx, syncx.EventResultRecorded, recordKey(id), map[string]any{
			"quiz_id": req.QuizID, "subject": sub, "incorrect": res.IncorrectCount,
		}); err != nil {
			slog.Warn("event log append failed", "err", err)
		}
		if err := ch.Invalidate(ctx, statsCacheKeys(req.QuizID)...); err != nil {
			slog.Warn("stats cache invalidation failed", "quiz_id", req.QuizID, "err", err)
		}

		writeJSON(w, nethttp.StatusOK, struct {
			ID int64 `json:"id"`
			quiz.Result
		}{ID: id, Result: res})
	}
}

func recordKey(id int64) string {
	return "result-" + strconv.FormatInt(id, 10)
}

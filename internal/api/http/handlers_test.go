package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	api "github.com/studyloop/studyloop-backend/internal/api/http"
	"github.com/studyloop/studyloop-backend/internal/analytics"
	"github.com/studyloop/studyloop-backend/internal/auth"
	"github.com/studyloop/studyloop-backend/internal/db"
	"github.com/studyloop/studyloop-backend/internal/quiz"
	"github.com/studyloop/studyloop-backend/internal/rbac"
	"github.com/studyloop/studyloop-backend/internal/results"
	syncx "github.com/studyloop/studyloop-backend/internal/sync"
)

type env struct {
	store  *results.SQLStore
	events *syncx.EventRepo
	quizID int64
}

func newEnv(t *testing.T, name string) *env {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	store := results.NewSQLStore(conn)
	def := quiz.Definition{
		Title: "函数基础",
		Pages: []quiz.Page{{Name: "page1", Elements: []quiz.Question{
			{Name: "q1", Type: quiz.KindSingleChoice, Title: "一次函数图像", Choices: []string{"a", "b", "c"}, CorrectAnswer: quiz.StringAnswer("b")},
			{Name: "q2", Type: quiz.KindText, Title: "首都", CorrectAnswer: quiz.StringAnswer("Paris")},
		}}},
	}
	raw, _ := json.Marshal(def)
	quizID, err := store.SaveQuiz(context.Background(), results.Quiz{
		Tno: "t1", Title: def.Title, Definition: raw, QuestionCount: 2,
	})
	if err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return &env{store: store, events: syncx.NewEventRepo(conn), quizID: quizID}
}

func TestAnalyzeQuizPersistsAndReturnsResult(t *testing.T) {
	e := newEnv(t, "api_analyze")
	norm := quiz.NewNormalizer(nil)
	grader := quiz.NewGrader(func(_ context.Context, total, correct int, _ []quiz.IncorrectQuestion) (string, error) {
		return "建议复习一次函数。", nil
	})
	h := api.AnalyzeQuizHandler(e.store, norm, grader, e.events, nil)

	body := `{"quiz_id":` + jsonInt(e.quizID) + `,"answers":{"q1":"a","q2":" paris "}}`
	req := httptest.NewRequest("POST", "/analyze-quiz", strings.NewReader(body))
	ctx := auth.WithSubject(req.Context(), "s1")
	ctx = rbac.WithRole(ctx, "student")
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))

	if rec.Code != 200 {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var out struct {
		ID int64 `json:"id"`
		quiz.Result
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalQuestions != 2 || out.CorrectCount != 1 || out.ErrorIndex != "10" {
		t.Fatalf("unexpected grading: %+v", out.Result)
	}
	if out.KnowledgeAnalysis != "建议复习一次函数。" {
		t.Fatalf("narrative = %q", out.KnowledgeAnalysis)
	}

	blobs, err := e.store.AnalysisBlobsForQuiz(context.Background(), e.quizID)
	if err != nil || len(blobs) != 1 {
		t.Fatalf("result not persisted: %v %d", err, len(blobs))
	}
}

func TestAnalyzeQuizTeacherSelfCheckStaysOutOfStats(t *testing.T) {
	e := newEnv(t, "api_teacher")
	h := api.AnalyzeQuizHandler(e.store, quiz.NewNormalizer(nil), quiz.NewGrader(nil), e.events, nil)

	body := `{"quiz_id":` + jsonInt(e.quizID) + `,"answers":{"q1":"b","q2":"Paris"}}`
	req := httptest.NewRequest("POST", "/analyze-quiz", strings.NewReader(body))
	ctx := auth.WithSubject(req.Context(), "t1")
	ctx = rbac.WithRole(ctx, "teacher")
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))

	if rec.Code != 200 {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	blobs, err := e.store.AnalysisBlobsForQuiz(context.Background(), e.quizID)
	if err != nil || len(blobs) != 0 {
		t.Fatalf("teacher result leaked into student stats: %v %d", err, len(blobs))
	}
	list, err := e.store.ListTeacherAnalyses(context.Background(), "t1")
	if err != nil || len(list) != 1 {
		t.Fatalf("teacher result missing: %v %+v", err, list)
	}
}

func TestErrorRatesEndToEnd(t *testing.T) {
	e := newEnv(t, "api_stats")
	grader := quiz.NewGrader(func(_ context.Context, _, _ int, _ []quiz.IncorrectQuestion) (string, error) {
		return "薄弱", nil
	})
	analyze := api.AnalyzeQuizHandler(e.store, quiz.NewNormalizer(nil), grader, e.events, nil)

	submit := func(sub, body string) {
		req := httptest.NewRequest("POST", "/analyze-quiz", strings.NewReader(body))
		ctx := auth.WithSubject(req.Context(), sub)
		ctx = rbac.WithRole(ctx, "student")
		rec := httptest.NewRecorder()
		analyze(rec, req.WithContext(ctx))
		if rec.Code != 200 {
			t.Fatalf("submit %s: %d %s", sub, rec.Code, rec.Body)
		}
	}
	quizID := jsonInt(e.quizID)
	submit("s1", `{"quiz_id":`+quizID+`,"answers":{"q1":"b","q2":"Paris"}}`) // all correct
	submit("s2", `{"quiz_id":`+quizID+`,"answers":{"q1":"a","q2":"Paris"}}`) // q1 wrong

	svc := analytics.NewService(e.store, nil)
	r := chi.NewRouter()
	r.Get("/error-rates/{quizID}", api.ErrorRatesHandler(svc, nil, time.Minute))

	req := httptest.NewRequest("GET", "/error-rates/"+quizID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var summary analytics.ErrorRateSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summary.QuestionErrorRates) != 1 || summary.QuestionErrorRates[0].Question != "1" {
		t.Fatalf("unexpected per-question rates: %+v", summary)
	}
}

func TestErrorRatesNoSubmissionsIs404(t *testing.T) {
	e := newEnv(t, "api_stats_empty")
	svc := analytics.NewService(e.store, nil)
	r := chi.NewRouter()
	r.Get("/error-rates/{quizID}", api.ErrorRatesHandler(svc, nil, time.Minute))

	req := httptest.NewRequest("GET", "/error-rates/"+jsonInt(e.quizID), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

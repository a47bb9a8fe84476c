package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"strings"

	nethttp "net/http"

	"github.com/studyloop/studyloop-backend/internal/ai"
	"github.com/studyloop/studyloop-backend/internal/auth"
	"github.com/studyloop/studyloop-backend/internal/quiz"
	"github.com/studyloop/studyloop-backend/internal/rbac"
	"github.com/studyloop/studyloop-backend/internal/results"
	"github.com/studyloop/studyloop-backend/internal/storage"
	syncx "github.com/studyloop/studyloop-backend/internal/sync"
)

const maxUploadBytes = 10 << 20

// GenerateQuizHandler creates a quiz from an uploaded course document. The
// raw upload is kept in the blob store; the model output goes through the
// normalizer before it is persisted, so the stored definition is always
// renderable.
func GenerateQuizHandler(store *results.SQLStore, gen ai.QuizGenerator, norm *quiz.Normalizer, bs storage.BlobStore, events *syncx.EventRepo) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			nethttp.Error(w, "multipart form required", nethttp.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			nethttp.Error(w, "file required", nethttp.StatusBadRequest)
			return
		}
		defer f.Close()

		source, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if err != nil {
			nethttp.Error(w, "read upload", nethttp.StatusBadRequest)
			return
		}

		ctx := r.Context()
		sub := auth.SubjectFromContext(ctx)
		key := storage.MaterialKey(sub, hdr.Filename)
		if _, err := bs.Put(key, strings.NewReader(string(source))); err != nil {
			slog.Warn("material upload not stored", "key", key, "err", err)
		}

		opts := genOptionsFromForm(r)
		def, title, err := generateDefinition(r, gen, norm, string(source), opts)
		if err != nil {
			nethttp.Error(w, "生成测验失败", nethttp.StatusBadGateway)
			return
		}

		q := results.Quiz{
			Title:         title,
			FileName:      hdr.Filename,
			QuestionCount: countQuestions(def),
			Difficulty:    opts.Difficulty,
		}
		if rbac.RoleFromContext(ctx) == "teacher" {
			q.Tno = sub
		} else {
			q.Sno = sub
			q.Tno = results.SelfStudyTeacher
		}
		if q.Definition, err = json.Marshal(def); err != nil {
			nethttp.Error(w, "encode quiz", nethttp.StatusInternalServerError)
			return
		}

		id, err := store.SaveQuiz(ctx, q)
		if err != nil {
			nethttp.Error(w, "save quiz", nethttp.StatusInternalServerError)
			return
		}
		if err := events.Record(ctx, syncx.EventQuizCreated, "quiz-"+strconv.FormatInt(id, 10), map[string]any{
			"subject": sub, "title": title,
		}); err != nil {
			slog.Warn("event log append failed", "err", err)
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{"id": id, "title": title, "quiz": def})
	}
}

// AutoQuizHandler regenerates a quiz from material the account uploaded
// earlier, for self-study without a fresh upload.
func AutoQuizHandler(store *results.SQLStore, gen ai.QuizGenerator, norm *quiz.Normalizer, bs storage.BlobStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		fileName := r.URL.Query().Get("file")
		if fileName == "" {
			nethttp.Error(w, "file required", nethttp.StatusBadRequest)
			return
		}
		ctx := r.Context()
		sub := auth.SubjectFromContext(ctx)

		rc, err := bs.Get(storage.MaterialKey(sub, fileName))
		if err != nil {
			nethttp.Error(w, "material not found", nethttp.StatusNotFound)
			return
		}
		defer rc.Close()
		source, err := io.ReadAll(io.LimitReader(rc, maxUploadBytes))
		if err != nil {
			nethttp.Error(w, "read material", nethttp.StatusInternalServerError)
			return
		}

		opts := genOptionsFromForm(r)
		def, title, err := generateDefinition(r, gen, norm, string(source), opts)
		if err != nil {
			nethttp.Error(w, "生成测验失败", nethttp.StatusBadGateway)
			return
		}

		q := results.Quiz{
			Sno:           sub,
			Tno:           results.SelfStudyTeacher,
			Title:         title,
			FileName:      fileName,
			QuestionCount: countQuestions(def),
			Difficulty:    opts.Difficulty,
		}
		if q.Definition, err = json.Marshal(def); err != nil {
			nethttp.Error(w, "encode quiz", nethttp.StatusInternalServerError)
			return
		}
		id, err := store.SaveQuiz(ctx, q)
		if err != nil {
			nethttp.Error(w, "save quiz", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"id": id, "title": title, "quiz": def})
	}
}

// GetQuizHandler serves one stored quiz. Students get the definition with
// the answer keys stripped; the server grades, never the client.
func GetQuizHandler(store *results.SQLStore, norm *quiz.Normalizer) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id, err := idParam(r, "quizID")
		if err != nil {
			nethttp.Error(w, "bad quiz id", nethttp.StatusBadRequest)
			return
		}
		q, err := store.GetQuiz(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}

		def := norm.Normalize(q.Definition)
		if rbac.RoleFromContext(r.Context()) != "teacher" {
			stripAnswers(&def)
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"id": q.ID, "title": q.Title, "difficulty": q.Difficulty, "quiz": def,
		})
	}
}

// ListQuizzesHandler lists the caller's quizzes: a teacher's published set,
// or a student's self-study set.
func ListQuizzesHandler(store *results.SQLStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx := r.Context()
		sub := auth.SubjectFromContext(ctx)

		var (
			list []results.Quiz
			err  error
		)
		if rbac.RoleFromContext(ctx) == "teacher" {
			list, err = store.ListQuizzesForTeacher(ctx, sub)
		} else {
			list, err = store.ListQuizzesForStudent(ctx, sub)
		}
		if err != nil {
			nethttp.Error(w, "list quizzes", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, list)
	}
}

// PublishQuizHandler assigns a quiz to a class as homework.
func PublishQuizHandler(store *results.SQLStore, events *syncx.EventRepo) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		quizID, err := idParam(r, "quizID")
		if err != nil {
			nethttp.Error(w, "bad quiz id", nethttp.StatusBadRequest)
			return
		}
		var req struct {
			Cno int64 `json:"cno"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cno == 0 {
			nethttp.Error(w, "cno required", nethttp.StatusBadRequest)
			return
		}

		ctx := r.Context()
		if err := store.PublishHomework(ctx, req.Cno, quizID); err != nil {
			storeError(w, err)
			return
		}
		if err := events.Record(ctx, syncx.EventQuizPublished, "quiz-"+strconv.FormatInt(quizID, 10), map[string]any{
			"cno": req.Cno, "teacher": auth.SubjectFromContext(ctx),
		}); err != nil {
			slog.Warn("event log append failed", "err", err)
		}
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "published"})
	}
}

func generateDefinition(r *nethttp.Request, gen ai.QuizGenerator, norm *quiz.Normalizer, source string, opts ai.GenOptions) (quiz.Definition, string, error) {
	raw, err := gen.GenerateQuiz(r.Context(), source, opts)
	if err != nil {
		return quiz.Definition{}, "", err
	}
	def := norm.Normalize(raw)
	title := def.Title
	if t := r.FormValue("title"); t != "" {
		title = t
		def.Title = t
	}
	return def, title, nil
}

func genOptionsFromForm(r *nethttp.Request) ai.GenOptions {
	count, _ := strconv.Atoi(r.FormValue("question_count"))
	return ai.GenOptions{
		QuestionCount:         count,
		Difficulty:            r.FormValue("difficulty"),
		IncludeMultipleChoice: r.FormValue("multiple_choice") != "false",
		IncludeFillInBlank:    r.FormValue("fill_in_blank") != "false",
		Notes:                 r.FormValue("notes"),
	}
}

func countQuestions(def quiz.Definition) int {
	n := 0
	for _, p := range def.Pages {
		n += len(p.Elements)
	}
	return n
}

func stripAnswers(def *quiz.Definition) {
	for pi := range def.Pages {
		for qi := range def.Pages[pi].Elements {
			def.Pages[pi].Elements[qi].CorrectAnswer = quiz.Answer{}
		}
	}
}

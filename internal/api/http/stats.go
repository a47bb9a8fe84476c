package http

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	nethttp "net/http"

	"github.com/xuri/excelize/v2"

	"github.com/studyloop/studyloop-backend/internal/analytics"
	"github.com/studyloop/studyloop-backend/internal/cache"
)

func statsCacheKeys(quizID int64) []string {
	id := strconv.FormatInt(quizID, 10)
	return []string{"stats:error-rates:" + id, "stats:word-cloud:" + id}
}

// ErrorRatesHandler serves the per-quiz error-rate summary. Summaries are
// derived data; a short cache absorbs dashboard refreshes.
func ErrorRatesHandler(svc *analytics.Service, ch *cache.Cache, ttl time.Duration) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		quizID, err := idParam(r, "quizID")
		if err != nil {
			nethttp.Error(w, "bad quiz id", nethttp.StatusBadRequest)
			return
		}
		ctx := r.Context()
		key := statsCacheKeys(quizID)[0]

		var cached analytics.ErrorRateSummary
		if hit, err := ch.GetJSON(ctx, key, &cached); err != nil {
			slog.Warn("stats cache read failed", "key", key, "err", err)
		} else if hit {
			writeJSON(w, nethttp.StatusOK, &cached)
			return
		}

		summary, err := svc.QuizErrorRates(ctx, quizID)
		if err != nil {
			storeError(w, err)
			return
		}
		if err := ch.SetJSON(ctx, key, summary, ttl); err != nil {
			slog.Warn("stats cache write failed", "key", key, "err", err)
		}
		writeJSON(w, nethttp.StatusOK, summary)
	}
}

// WordCloudHandler serves the keyword-frequency table for one quiz.
func WordCloudHandler(svc *analytics.Service, ch *cache.Cache, ttl time.Duration) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		quizID, err := idParam(r, "quizID")
		if err != nil {
			nethttp.Error(w, "bad quiz id", nethttp.StatusBadRequest)
			return
		}
		ctx := r.Context()
		key := statsCacheKeys(quizID)[1]

		var cached []analytics.TermCount
		if hit, err := ch.GetJSON(ctx, key, &cached); err != nil {
			slog.Warn("stats cache read failed", "key", key, "err", err)
		} else if hit {
			writeJSON(w, nethttp.StatusOK, cached)
			return
		}

		table, err := svc.WordCloud(ctx, quizID)
		if err != nil {
			storeError(w, err)
			return
		}
		if err := ch.SetJSON(ctx, key, table, ttl); err != nil {
			slog.Warn("stats cache write failed", "key", key, "err", err)
		}
		writeJSON(w, nethttp.StatusOK, table)
	}
}

// CourseErrorRatesHandler serves one summary per quiz assigned to a class.
func CourseErrorRatesHandler(svc *analytics.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		cno, err := idParam(r, "cno")
		if err != nil {
			nethttp.Error(w, "bad class id", nethttp.StatusBadRequest)
			return
		}
		out, err := svc.CourseErrorRates(r.Context(), cno)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, out)
	}
}

// ExportErrorRatesHandler renders the summary as an xlsx workbook for
// teachers who want the report offline.
func ExportErrorRatesHandler(svc *analytics.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		quizID, err := idParam(r, "quizID")
		if err != nil {
			nethttp.Error(w, "bad quiz id", nethttp.StatusBadRequest)
			return
		}
		summary, err := svc.QuizErrorRates(r.Context(), quizID)
		if err != nil {
			storeError(w, err)
			return
		}

		f := excelize.NewFile()
		defer f.Close()
		const sheet = "Sheet1"
		_ = f.SetCellValue(sheet, "A1", "题号")
		_ = f.SetCellValue(sheet, "B1", "正确率")
		for i, qr := range summary.QuestionErrorRates {
			row := strconv.Itoa(i + 2)
			_ = f.SetCellValue(sheet, "A"+row, qr.Question)
			_ = f.SetCellValue(sheet, "B"+row, qr.CorrectRate)
		}
		_ = f.SetCellValue(sheet, "D1", "整体错误率")
		_ = f.SetCellValue(sheet, "D2", summary.ErrorRate)

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="error-rates-%d.xlsx"`, quizID))
		if err := f.Write(w); err != nil {
			slog.Error("xlsx export write failed", "quiz_id", quizID, "err", err)
		}
	}
}

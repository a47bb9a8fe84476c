package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/studyloop/studyloop-backend/internal/ai"
	"github.com/studyloop/studyloop-backend/internal/analytics"
	api "github.com/studyloop/studyloop-backend/internal/api/http"
	"github.com/studyloop/studyloop-backend/internal/auth"
	"github.com/studyloop/studyloop-backend/internal/cache"
	"github.com/studyloop/studyloop-backend/internal/config"
	"github.com/studyloop/studyloop-backend/internal/db"
	"github.com/studyloop/studyloop-backend/internal/quiz"
	"github.com/studyloop/studyloop-backend/internal/rbac"
	"github.com/studyloop/studyloop-backend/internal/results"
	"github.com/studyloop/studyloop-backend/internal/storage"
	syncx "github.com/studyloop/studyloop-backend/internal/sync"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		slog.Error("db open failed", "err", err)
		os.Exit(1)
	}
	store := results.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh)

	if cfg.SeedDemoUsers {
		seedDemoUsers(dbh)
	}

	// --- Blob store for uploaded course material ---
	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		slog.Error("blob store init failed", "err", err)
		os.Exit(1)
	}

	// --- Statistics cache (optional) ---
	var ch *cache.Cache
	if cfg.CacheURL != "" {
		cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
		ch, err = cache.New(cctx, cfg.CacheURL)
		ccancel()
		if err != nil {
			slog.Warn("stats cache unavailable, continuing without it", "err", err)
			ch = nil
		} else {
			defer ch.Close()
		}
	}

	// --- AI collaborators ---
	geminiOpts := []ai.GeminiOption{ai.WithGeminiModel(cfg.GeminiModel)}
	if cfg.GeminiBaseURL != "" {
		geminiOpts = append(geminiOpts, ai.WithGeminiBaseURL(cfg.GeminiBaseURL))
	}
	provider := ai.NewGeminiProvider(cfg.GeminiAPIKey, geminiOpts...)
	narrator := ai.NewNarrator(provider, cfg.AITimeout)
	generator := ai.NewQuizGenerator(provider, cfg.AITimeout)

	// --- Quiz pipeline ---
	var fallback quiz.FallbackLoader
	if cfg.FallbackQuizPath != "" {
		fallback = quiz.FileFallback(cfg.FallbackQuizPath)
	}
	norm := quiz.NewNormalizer(fallback)
	grader := quiz.NewGrader(narrator.KnowledgeAnalysis)

	// --- Aggregators ---
	stopwords, err := analytics.DefaultStopwords()
	if err != nil {
		slog.Error("stopword list unreadable", "err", err)
		os.Exit(1)
	}
	extractor, err := analytics.NewExtractor(stopwords)
	if err != nil {
		slog.Error("segmenter init failed", "err", err)
		os.Exit(1)
	}
	stats := analytics.NewService(store, extractor)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(3 * time.Minute)) // generation calls are slow

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT -> role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("quiz:generate")).
			Post("/generate-quiz", api.GenerateQuizHandler(store, generator, norm, bs, events))
		pr.With(rbac.Require("quiz:generate")).
			Get("/auto_quiz", api.AutoQuizHandler(store, generator, norm, bs))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes", api.ListQuizzesHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(store, norm))
		pr.With(rbac.Require("quiz:publish")).
			Post("/quizzes/{quizID}/publish", api.PublishQuizHandler(store, events))

		pr.With(rbac.Require("result:submit")).
			Post("/analyze-quiz", api.AnalyzeQuizHandler(store, norm, grader, events, ch))
		pr.With(rbac.Require("result:view-own")).
			Get("/analyses", api.ListAnalysesHandler(store))
		pr.With(rbac.Require("result:view-own")).
			Get("/analyses/{analysisID}", api.GetAnalysisHandler(store))
		pr.With(rbac.Require("result:view-own")).
			Get("/teacher_analyses", api.ListTeacherAnalysesHandler(store))
		pr.With(rbac.Require("result:view-own")).
			Get("/teacher_analyses/{analysisID}", api.GetTeacherAnalysisHandler(store))

		pr.With(rbac.Require("class:manage")).
			Post("/classes", api.CreateClassHandler(store))
		pr.With(rbac.Require("class:manage")).
			Get("/classes", api.ListClassesHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/homework", api.ListHomeworkHandler(store))

		pr.With(rbac.Require("stats:view")).
			Get("/error-rates/{quizID}", api.ErrorRatesHandler(stats, ch, cfg.CacheTTL))
		pr.With(rbac.Require("stats:view")).
			Get("/error-rates/{quizID}/export", api.ExportErrorRatesHandler(stats))
		pr.With(rbac.Require("stats:view")).
			Get("/word_cloud/{quizID}", api.WordCloudHandler(stats, ch, cfg.CacheTTL))
		pr.With(rbac.Require("stats:view")).
			Get("/classes/{cno}/error-rates", api.CourseErrorRatesHandler(stats))

		pr.Route("/materials", func(mr chi.Router) {
			api.MountMaterials(mr, bs)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		slog.Info("listening", "addr", srv.Addr, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-runCtx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
}

// seedDemoUsers creates the dev accounts the bundled frontends log in with.
func seedDemoUsers(dbh *sql.DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, u := range []struct{ id, name, role, pass string }{
		{"t100", "演示教师", "teacher", "teacher"},
		{"s100", "演示学生", "student", "student"},
	} {
		if err := auth.EnsureUser(ctx, dbh, u.id, u.name, u.role, u.pass); err != nil {
			slog.Warn("seed user failed", "id", u.id, "err", err)
		}
	}
}

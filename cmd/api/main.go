package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"meeting-insights-go/internal/analysis"
	"meeting-insights-go/internal/config"
	"meeting-insights-go/internal/directory"
	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/metrics"
	"meeting-insights-go/internal/pipeline"
	"meeting-insights-go/internal/storage"
	"meeting-insights-go/internal/transcription"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "meeting-insights-go").Info("starting service")

	cfg := config.FromEnv()

	m := metrics.New()
	resolver := storage.NewHTTPResolver(cfg.StorageBaseURL, log)
	transcriber := transcription.NewClient(cfg.TranscribeBaseURL, cfg.TranscribeAPIKey, cfg.PollInterval, cfg.PollCeiling, log)
	transcriber.SetLanguage(cfg.TranscribeLanguage)
	analyzer := analysis.NewClient(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.LLMModel, log)
	pipe := pipeline.New(resolver, transcriber, analyzer, cfg.DefaultBucket, m, log)

	srv := &server{pipe: pipe, log: log}
	if cfg.RosterPath != "" {
		roster, err := directory.LoadRoster(cfg.RosterPath)
		if err != nil {
			log.WithError(err).Fatal("failed to load participant roster")
		}
		log.WithField("members", roster.Len()).Info("participant roster loaded")
		srv.roster = roster
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", srv.handleHealth)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Post("/v1/analyze", srv.handleAnalyze)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute, // a full run waits on transcription
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", httpSrv.Addr).Info("listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

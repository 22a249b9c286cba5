package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/agent"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/config"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/logger"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/lookup"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/store"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/transport"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("server")
	cfg, err := config.LoadServer()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Error("open draft store", slog.Any("err", err))
		os.Exit(1)
	}
	defer st.Close()

	var citations agent.CitationSource
	if cfg.ElasticsearchAddr != "" {
		idx, err := lookup.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			log.Warn("literature index unavailable, drafts will carry placeholder links", slog.Any("err", err))
		} else {
			citations = idx
		}
	}

	var operator transport.Sender = transport.Disabled{Channel: "telegram", Log: log}
	operatorEnabled := false
	if cfg.TelegramToken != "" {
		tg, err := transport.NewTelegram(cfg.TelegramToken, log)
		if err != nil {
			log.Error("init telegram", slog.Any("err", err))
			os.Exit(1)
		}
		operator = tg
		operatorEnabled = true
	}

	var broadcaster transport.Sender = transport.Disabled{Channel: "kafka", Log: log}
	broadcastEnabled := false
	if len(cfg.KafkaBrokers) > 0 {
		kw := transport.NewKafka(cfg.KafkaBrokers, log)
		defer kw.Close()
		broadcaster = kw
		broadcastEnabled = true
	}

	fan := transport.NewFanout(broadcaster, cfg.BroadcastTopics, transport.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BackoffBase: cfg.RetryBackoffBase,
		BackoffCap:  cfg.RetryBackoffCap,
	}, cfg.SendTimeout, log)

	ag := agent.New(log, agent.Config{
		OperatorContact:  formatChatID(cfg.OperatorChatID),
		OperatorEnabled:  operatorEnabled,
		BroadcastEnabled: broadcastEnabled,
		BusinessContext:  cfg.BusinessContext,
		LookupTimeout:    cfg.LookupTimeout,
		SendTimeout:      cfg.SendTimeout,
	}, st, agent.StaticTopics{}, citations, operator, fan)

	srv := &server{
		log:      log,
		cfg:      cfg,
		agent:    ag,
		operator: operator,
		validate: validator.New(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Post("/run-daily", srv.handleRunDaily)
	r.Post("/approval", srv.handleApproval)
	r.Post("/regenerate", srv.handleRegenerate)
	r.Get("/status", srv.handleStatus)
	r.Post("/delivery/test", srv.handleTestDelivery)
	r.Route("/telegram", func(r chi.Router) {
		r.Use(srv.operatorOnly)
		r.Post("/webhook", srv.handleWebhook)
	})

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

func openStore(cfg *config.Server) (store.Store, error) {
	if cfg.DraftDBPath != "" {
		return store.NewSQLite(cfg.DraftDBPath)
	}
	return store.NewMemory(), nil
}

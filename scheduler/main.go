package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/config"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("scheduler")
	cfg, err := config.LoadScheduler()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Wait for the server with backoff before the first trigger. A server
	// that never comes up is not fatal: the run itself is retried on every
	// interval anyway.
	waitForServer(ctx, log, client, cfg.TargetURL)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("scheduler running",
		slog.String("target", cfg.TargetURL),
		slog.Duration("interval", cfg.Interval),
	)

	runOnce(ctx, log, client, cfg.TargetURL)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(ctx, log, client, cfg.TargetURL)
		}
	}
}

func waitForServer(ctx context.Context, log *slog.Logger, client *http.Client, target string) {
	maxRetries := 10
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"/health", nil)
		if err != nil {
			log.Error("build health request", slog.Any("err", err))
			return
		}

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				log.Info("server reachable")
				return
			}
			log.Warn("server not healthy yet", slog.Int("status", resp.StatusCode), slog.Int("attempt", i+1))
		} else {
			log.Warn("server not reachable yet", slog.Any("err", err), slog.Int("attempt", i+1))
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return
		}
		retryDelay *= 2
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}
	}

	log.Warn("server still unreachable, continuing anyway")
}

func runOnce(ctx context.Context, log *slog.Logger, client *http.Client, target string) {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(subCtx, http.MethodPost, target+"/run-daily", strings.NewReader("{}"))
	if err != nil {
		log.Error("build run-daily request", slog.Any("err", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("daily trigger failed (will retry on next interval)", slog.Any("err", err))
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		log.Warn("daily trigger rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("body", strings.TrimSpace(string(body))),
		)
		return
	}

	log.Info("daily draft scheduled", slog.String("response", strings.TrimSpace(string(body))))
}

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

	"stockcall/internal/agent"
	"stockcall/internal/auth"
	"stockcall/internal/collector"
	"stockcall/internal/config"
	"stockcall/internal/httpapi"
	"stockcall/internal/market"
	"stockcall/internal/results"
	"stockcall/internal/speech"
	"stockcall/internal/telephony"
	"stockcall/pkg/logger"
	"stockcall/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closeStore, err := openResultStore(rootCtx, cfg, log)
	if err != nil {
		log.Error("result store init failed", "backend", string(cfg.Store.Backend), "err", err)
		os.Exit(1)
	}
	defer closeStore()

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	initiator, err := telephony.NewTwilioInitiator(cfg.Twilio, cfg.Call)
	if err != nil {
		log.Error("twilio init failed", "err", err)
		os.Exit(1)
	}
	bridge := collector.New(initiator, store)

	callbacks := telephony.CallbackHandler{
		Store: store,
		Renderer: telephony.PromptRenderer{
			BaseURL:       cfg.Call.BaseURL,
			AudioDir:      cfg.Store.AudioDir,
			GatherTimeout: cfg.Call.CollectTimeout,
		},
		AudioDir: cfg.Store.AudioDir,
	}

	api := httpapi.Handlers{
		Auth:        authManager,
		OperatorKey: cfg.Auth.OperatorKey,
		Workflow:    buildWorkflow(cfg, bridge, log),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, callbacks, api, auth.RequireToken(authManager))

	// /api/chat blocks for the full collect window, so writes need headroom
	// past it or the server would cut the response mid-call.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Call.CollectTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "store", string(cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// openResultStore selects and initializes the configured store backend.
func openResultStore(ctx context.Context, cfg config.Config, log *slog.Logger) (results.Store, func(), error) {
	noop := func() {}

	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			return nil, noop, err
		}
		store, err := results.NewRedisStore(rdb, cfg.Store.Retention)
		if err != nil {
			_ = rdb.Close()
			return nil, noop, err
		}
		return store, func() { _ = rdb.Close() }, nil

	case config.StoreBackendPostgres:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, noop, err
		}
		store, err := results.NewPostgresStore(db)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		if n, err := store.PruneOlderThan(ctx, cfg.Store.Retention); err == nil && n > 0 {
			log.Info("pruned stale call results", "removed", n)
		}
		return store, func() { _ = db.Close() }, nil

	default:
		store, err := results.NewFileStore(cfg.Store.ResultsDir)
		if err != nil {
			return nil, noop, err
		}
		if n, err := store.PruneOlderThan(cfg.Store.Retention); err == nil && n > 0 {
			log.Info("pruned stale call results", "removed", n)
		}
		return store, noop, nil
	}
}

// buildWorkflow wires the approval pipeline. The market feed is load-bearing;
// summarizer and speech synthesis degrade gracefully when unconfigured.
func buildWorkflow(cfg config.Config, bridge *collector.Collector, log *slog.Logger) httpapi.WorkflowRunner {
	marketClient, err := market.NewClient(cfg.Finance)
	if err != nil {
		log.Warn("market client unavailable, workflow endpoints disabled", "err", err)
		return nil
	}

	wf := &agent.Workflow{
		Market:         marketClient,
		Bridge:         bridge,
		ManagerNumber:  cfg.Call.ManagerNumber,
		CollectTimeout: cfg.Call.CollectTimeout,
	}

	if llm, err := agent.NewClaudeClient(cfg.Anthropic); err != nil {
		log.Warn("summarizer unavailable, using formatted ranking", "err", err)
	} else {
		wf.LLM = llm
	}

	if tts, err := speech.NewClient(cfg.ElevenLabs.APIKey, cfg.ElevenLabs.VoiceID, cfg.Store.AudioDir); err != nil {
		log.Warn("speech synthesis unavailable, calls will speak raw text", "err", err)
	} else {
		wf.Speech = tts
	}

	return wf
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockedby/interview-os/internal/api"
	"github.com/blockedby/interview-os/internal/bank"
	"github.com/blockedby/interview-os/internal/brain"
	"github.com/blockedby/interview-os/internal/config"
	"github.com/blockedby/interview-os/internal/connectivity"
	"github.com/blockedby/interview-os/internal/database"
	"github.com/blockedby/interview-os/internal/interview"
	"github.com/blockedby/interview-os/internal/llm"
	"github.com/blockedby/interview-os/internal/logger"
	"github.com/blockedby/interview-os/internal/nats"
	"github.com/blockedby/interview-os/internal/publisher"
	"github.com/blockedby/interview-os/internal/repository"
	"github.com/blockedby/interview-os/internal/resume"
	"github.com/blockedby/interview-os/internal/web"
)

const (
	apiTitle       = "Interview OS API"
	apiDescription = "Timed multi-round mock interviews with AI and offline question sets"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	}); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Str("store", cfg.StoreDriver).Bool("llm", cfg.LLMEnabled()).Msg("starting interview service")

	// 3. Setup context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Open the session store
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close session store")
		}
	}()

	// 5. Connectivity signal
	network := connectivity.NewMonitor(true)

	// 6. Online services and offline question bank
	questionBank := bank.Default()
	if cfg.QuestionBankFile != "" {
		questionBank, err = bank.Load(cfg.QuestionBankFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.QuestionBankFile).Msg("failed to load question bank")
		}
	}

	var completer brain.Completer
	if cfg.LLMEnabled() {
		completer = llm.NewClient(llm.Config{
			BaseURL:        cfg.LLMBaseURL,
			APIKey:         cfg.LLMAPIKey,
			MaxTokens:      cfg.LLMMaxTokens,
			Temperature:    float32(cfg.LLMTemperature),
			Timeout:        time.Duration(cfg.LLMTimeoutSec) * time.Second,
			RequestsPerSec: cfg.LLMRequestsPerSec,
		})
	} else {
		log.Warn().Msg("LLM_API_KEY not set, interviews run on the offline question bank")
	}

	gateway, err := brain.NewGateway(completer, network, brain.NewPlan(cfg.LLMModels, cfg.LLMRetryDelays))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load prompts")
	}

	// 7. Interview engine
	engine := interview.NewEngine(
		store,
		brain.NewQuestionSource(gateway, questionBank),
		brain.NewEvaluator(gateway),
		brain.NewScorer(gateway),
		network,
	)

	// 8. Fan-out: websocket hub and optional NATS publisher
	hub := web.NewHub()
	hub.SetSnapshot(func() interface{} { return engine.Snapshot() })
	go hub.Run()
	defer hub.Stop()
	engine.AddBroadcaster(hub)

	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer nc.Close()
			if err := nc.EnsureStream(ctx, nats.StreamName, []string{nats.StreamSubject}, 7*24*time.Hour); err != nil {
				log.Warn().Err(err).Msg("failed to ensure nats stream")
			}
			engine.AddBroadcaster(publisher.NewNATSPublisher(nc.Conn))
			log.Info().Bool("connected", nc.IsConnected()).Str("stream", nats.StreamName).Msg("publishing interview events to nats")
		}
	}

	if err := engine.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load session")
	}
	defer engine.Close()

	// 9. Background loops
	go engine.RunTimers(ctx, cfg.TimerTick)
	if cfg.ProbeURL != "" {
		go network.Run(ctx, cfg.ProbeURL, time.Duration(cfg.ProbeIntervalSec)*time.Second)
	}

	// 10. HTTP: API routes mounted on the web server
	apiServer := api.NewServer(&api.Config{
		Title:       apiTitle,
		Description: apiDescription,
		Version:     "dev",
	}, &api.Dependencies{
		Engine:   engine,
		Resume:   resume.NewExtractor(),
		Profiles: brain.NewProfileExtractor(gateway),
		Skills:   brain.NewSkillRanker(gateway),
	})

	server := web.NewServer(&web.Config{
		Port:        cfg.HTTPPort,
		StaticDir:   cfg.StaticDir,
		CORSOrigins: cfg.CORSOrigins,
	}, hub)
	server.MountAPI(apiServer.Handler())
	apiServer.MountDocsOn(server.Router(), apiTitle, apiDescription)
	server.SetupSPAFallback()

	log.Info().Int("port", cfg.HTTPPort).Msg("starting web server")
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	// 11. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.SessionRepository, error) {
	if cfg.StoreDriver == "redis" {
		return repository.NewRedisSessionRepository(ctx, cfg.RedisURL, cfg.SessionKey)
	}

	db, err := database.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return nil, err
	}
	repo, err := repository.NewGormSessionRepository(ctx, db, cfg.SessionKey)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

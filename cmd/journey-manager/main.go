// cmd/journey-manager/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"journey-board/internal/api"
	"journey-board/internal/app/analyzer"
	"journey-board/internal/app/records"
	"journey-board/internal/common/camunda"
	"journey-board/internal/common/config"
	"journey-board/internal/common/database"
	"journey-board/internal/common/hubspot"
	"journey-board/internal/common/logger"
	"journey-board/internal/common/observability"
	"journey-board/internal/journey"
	cj "journey-board/internal/workers/journey/classify-journey"
	"journey-board/pkg/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"env":     cfg.App.Environment,
	})

	log.Info("starting journey manager", map[string]interface{}{"version": cfg.App.Version})

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- CRM client ---
	crm := hubspot.NewCRMClient(
		cfg.HubSpot.BaseURL,
		cfg.HubSpot.AccessToken,
		config.GetDuration(cfg.HubSpot.Timeout),
		hubspot.WithRetry(cfg.HubSpot.MaxRetries, config.GetDuration(cfg.HubSpot.RetryDelay)),
	)
	if err := crm.TestConnection(ctx); err != nil {
		log.Warn("hubspot connection check failed, continuing", map[string]interface{}{"error": err.Error()})
	}

	// --- Record source, optionally cached in Redis ---
	var (
		source records.Source = crm
		cache  api.Pinger
	)
	if cfg.Cache.Enabled {
		redisClient := database.NewRedis(cfg.Database.Redis)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx); err != nil {
			log.Warn("redis unavailable, cache will fall through to hubspot", map[string]interface{}{"error": err.Error()})
		}
		source = records.NewCachedSource(crm, redisClient, time.Duration(cfg.Cache.TTL)*time.Second, cfg.Cache.KeyPrefix, log)
		cache = redisClient
	}

	// --- Classifier ---
	rules, err := journey.NewRuleSet(journey.Thresholds{
		HighValueAmount:         cfg.Journey.HighValueAmount,
		EmailOpenRate:           cfg.Journey.EmailOpenRate,
		MeetingWindowDays:       cfg.Journey.MeetingWindowDays,
		ContactedNotesThreshold: cfg.Journey.ContactedNotesThreshold,
	})
	if err != nil {
		zapLog.Fatal("invalid journey thresholds", zap.Error(err))
	}
	svc := analyzer.NewService(source, journey.NewClassifier(rules), obs, log.Named("analyzer"))

	// --- Zeebe worker ---
	var jobWorker *camunda.JobWorker
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, cj.TaskType) {
		zeebe, err = camunda.Connect(ctx, camunda.DefaultClientConfig(cfg.Camunda.BrokerAddress), log)
		if err != nil {
			zapLog.Fatal("zeebe connection failed", zap.Error(err))
		}

		wcfg := cj.LoadConfig(cfg)
		if cfg.Camunda.RegistryPath != "" {
			reg, err := registry.LoadRegistry(cfg.Camunda.RegistryPath)
			if err != nil {
				zapLog.Fatal("activity registry load failed", zap.Error(err))
			}
			if err := cj.CheckRegistration(reg, wcfg); err != nil {
				zapLog.Fatal("activity registry does not match worker", zap.Error(err))
			}
		}

		handler := cj.NewHandler(wcfg, svc, log)
		jobWorker = camunda.StartWorker(zeebe.GetClient(), cj.TaskType, handler, camunda.WorkerOptions{
			Name:          cfg.App.Name,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       wcfg.Timeout,
		}, log)

		activity := cj.Activity(wcfg)
		log.Info("activity registered", map[string]interface{}{
			"taskType":   activity.TaskType,
			"version":    activity.Version,
			"errorCodes": activity.ErrorCodes,
			"timeout":    activity.Timeout,
		})
	}

	// --- HTTP API ---
	server := api.NewServer(cfg.Server, cfg.HubSpot.PageLimit, api.Dependencies{
		Analyzer: svc,
		CRM:      crm,
		Cache:    cache,
		Logger:   log,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-serverErr:
		if err != nil {
			log.Error("http server failed", map[string]interface{}{"error": err.Error()})
		}
	}

	// --- Graceful shutdown ---
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if jobWorker != nil {
		jobWorker.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			log.Error("error closing zeebe client", map[string]interface{}{"error": err.Error()})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("observability shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("journey manager stopped", nil)
}

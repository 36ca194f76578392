package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voter-outreach/common/database"
	"voter-outreach/common/logger"
	commonmqtt "voter-outreach/common/mqtt"
	commonredis "voter-outreach/common/redis"
	"voter-outreach/internal/config"
	httpapi "voter-outreach/internal/http"
	"voter-outreach/internal/ingest"
	"voter-outreach/internal/metrics"
	"voter-outreach/internal/notify"
	"voter-outreach/internal/repository"
	"voter-outreach/internal/service"
	"voter-outreach/internal/store"

	"go.uber.org/zap"
)

type repos struct {
	voters      repository.VotersRepository
	assignments repository.AssignmentsRepository
	callLogs    repository.CallLogsRepository
	territories repository.TerritoriesRepository
}

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "voter-outreach")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	r, db, err := openRepos(cfg)
	if err != nil {
		log.Fatal("Failed to open voter store", zap.Bool("db_enabled", cfg.DBEnabled), zap.Error(err))
	}
	if db != nil {
		log.Info("DB enabled for voter-outreach")
	}

	redisClient := commonredis.NewRedisClient(&cfg.Redis)
	jobs := store.NewImportJobStore(store.NewRedisKV(redisClient), cfg.Import.JobKeyPrefix, cfg.Import.JobTTL)

	var events service.CallEventPublisher
	if cfg.Events.Enabled {
		events = service.NewStreamEventPublisher(redisClient, cfg.Events.CallsStream, cfg.Events.StreamMaxLen)
	}

	notifier, mqttClient := buildNotifier(cfg, log)

	importService := service.NewImportService(
		jobs,
		ingest.NewNormalizer(cfg.Import.CountryCode),
		ingest.NewLoader(r.voters, cfg.Import.BatchSize, log),
		cfg.Import.PreviewRows,
		log,
	)
	assignmentService := service.NewAssignmentService(r.assignments, r.voters, r.territories, notifier, log)
	queueService := service.NewCallQueueService(r.assignments, r.voters, log)
	outcomeService := service.NewCallOutcomeService(r.assignments, r.voters, r.callLogs, events, log)
	territoryService := service.NewTerritoryService(r.territories, r.voters, log)

	router := httpapi.NewRouter(log)
	router.RegisterImportRoutes(httpapi.NewImportHandler(importService, cfg.Import.MaxUploadMB<<20, log))
	router.RegisterAssignmentRoutes(httpapi.NewAssignmentHandler(assignmentService, log))
	router.RegisterCallerRoutes(httpapi.NewCallerHandler(assignmentService, queueService, outcomeService, log))
	router.RegisterTerritoryRoutes(httpapi.NewTerritoryHandler(territoryService, log))
	router.RegisterOpsRoutes(metrics.Handler(), func(req *http.Request) error {
		if db != nil {
			if err := db.PingContext(req.Context()); err != nil {
				return err
			}
		}
		return commonredis.Ping(req.Context(), redisClient)
	})

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = commonredis.Close(redisClient)
	if db != nil {
		_ = database.Close(db)
	}
}

// openRepos returns Postgres-backed repositories when DB_ENABLED is set and
// the in-memory store otherwise. An unreachable database is an error; there
// is no silent fallback to memory.
func openRepos(cfg *config.Config) (repos, *sql.DB, error) {
	if !cfg.DBEnabled {
		// nothing persists across restarts
		mem := repository.NewMemoryStore()
		return repos{voters: mem, assignments: mem, callLogs: mem, territories: mem}, nil, nil
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return repos{}, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repository.ApplySchema(ctx, db); err != nil {
		_ = database.Close(db)
		return repos{}, nil, fmt.Errorf("apply schema: %w", err)
	}
	return repos{
		voters:      repository.NewPostgresVotersRepository(db),
		assignments: repository.NewPostgresAssignmentsRepository(db),
		callLogs:    repository.NewPostgresCallLogsRepository(db),
		territories: repository.NewPostgresTerritoriesRepository(db),
	}, db, nil
}

// buildNotifier falls back to Nop when the configured gateway is unusable;
// assignments never depend on notification delivery.
func buildNotifier(cfg *config.Config, log *zap.Logger) (notify.Notifier, *commonmqtt.Client) {
	switch cfg.Notify.Mode {
	case "webhook":
		if cfg.Notify.WebhookURL == "" {
			log.Warn("NOTIFY_MODE=webhook without NOTIFY_WEBHOOK_URL, notifications disabled")
			return notify.Nop{}, nil
		}
		return notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.AuthToken, cfg.Notify.Timeout, log), nil
	case "mqtt":
		client, err := commonmqtt.NewClient(&cfg.Notify.MQTT, log)
		if err != nil {
			log.Warn("MQTT unavailable, notifications disabled", zap.Error(err))
			return notify.Nop{}, nil
		}
		return notify.NewMQTTNotifier(client, cfg.Notify.MQTTTopic), client
	}
	return notify.Nop{}, nil
}

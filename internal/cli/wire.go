package cli

import (
	"context"
	"database/sql"
	"fmt"

	"voter-outreach/common/database"
	"voter-outreach/common/logger"
	"voter-outreach/internal/config"
	"voter-outreach/internal/ingest"
	"voter-outreach/internal/repository"
	"voter-outreach/internal/service"

	"go.uber.org/zap"
)

// app services backed by Postgres; the CLI never falls back to memory.
type app struct {
	cfg         *config.Config
	log         *zap.Logger
	db          *sql.DB
	imports     *service.ImportService
	assignments *service.AssignmentService
	territories *service.TerritoryService
}

func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log, err := logger.NewCLILogger(getLogLevel(cfg))
	if err != nil {
		return nil, err
	}
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repository.ApplySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	voters := repository.NewPostgresVotersRepository(db)
	assignments := repository.NewPostgresAssignmentsRepository(db)
	territories := repository.NewPostgresTerritoriesRepository(db)

	return &app{
		cfg: cfg,
		log: log,
		db:  db,
		imports: service.NewImportService(nil,
			ingest.NewNormalizer(cfg.Import.CountryCode),
			ingest.NewLoader(voters, cfg.Import.BatchSize, log),
			cfg.Import.PreviewRows, log),
		assignments: service.NewAssignmentService(assignments, voters, territories, nil, log),
		territories: service.NewTerritoryService(territories, voters, log),
	}, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	_ = database.Close(a.db)
}

// getLogLevel keeps service chatter out of the terminal unless asked for.
func getLogLevel(cfg *config.Config) string {
	if cfg.Log.Level == "debug" {
		return "debug"
	}
	return "warn"
}

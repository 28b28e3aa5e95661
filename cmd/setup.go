package cmd

import (
	"context"
	"fmt"

	"schema-manager/core/config"
	"schema-manager/core/database"
	"schema-manager/core/logger"
	"schema-manager/core/pocketbase"
	"schema-manager/core/storage"
	"schema-manager/feature/integrity"
	schemafeature "schema-manager/feature/schema"
	"schema-manager/feature/schema/history"
	"schema-manager/feature/schema/snapshot"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// env is everything a command needs, built from configuration.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	remote  *pocketbase.Client
	storage storage.Client
	db      *gorm.DB
	service *schemafeature.Service
}

// setup loads configuration and wires the remote client, optional run history and optional
// snapshot storage into a schema service. override may adjust the configuration first.
func setup(ctx context.Context, override func(*config.Config)) (*env, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if override != nil {
		override(cfg)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(logg)

	remote, err := pocketbase.NewClient(cfg.PocketBase, logg)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	var hist *history.Repository
	if cfg.Database.Enabled {
		if conn, err := database.Connect(cfg.Database); err != nil {
			logg.Warn("Optional database connection failed, run history disabled", zap.Error(err))
		} else {
			db = conn
			repo := history.NewRepository(db)
			if err := repo.Migrate(ctx); err != nil {
				logg.Warn("History migration failed, run history disabled", zap.Error(err))
			} else {
				hist = repo
			}
		}
	}

	var client storage.Client
	var snapshots *snapshot.Store
	if cfg.Storage.Endpoint != "" {
		if c, err := storage.NewClient(cfg.Storage); err != nil {
			logg.Warn("Storage client failed, snapshots disabled", zap.Error(err))
		} else {
			client = c
			snapshots = snapshot.NewStore(client, cfg.Storage, cfg.Schema.SnapshotPrefix, logg)
		}
	}

	return &env{
		cfg:     cfg,
		logger:  logg,
		remote:  remote,
		storage: client,
		db:      db,
		service: schemafeature.NewService(remote, cfg.Schema, hist, snapshots, logg),
	}, nil
}

// integrity builds the infrastructure check service on the same connections.
func (e *env) integrity() *integrity.Service {
	return integrity.NewService(e.remote, e.storage, e.cfg.Storage, e.cfg.Schema, e.db, e.logger)
}

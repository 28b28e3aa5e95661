package integrity

import (
	"context"
	"errors"

	"schema-manager/core/schema"
	"schema-manager/core/storage"
	"schema-manager/feature/integrity/checks"
	"schema-manager/feature/schema/history"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrStorageDisabled is returned when no storage client is configured.
	ErrStorageDisabled = errors.New("snapshot storage is not configured")
	// ErrHistoryDisabled is returned when no history database is connected.
	ErrHistoryDisabled = errors.New("run history database is not connected")
)

// Service handles integrity checks.
type Service struct {
	remote          checks.Remote
	client          storage.Client
	storageCfg      storage.Config
	prefix          string
	db              *gorm.DB
	definitionsPath string
	logger          *zap.Logger
}

// NewService creates a new integrity service. client and db may be nil.
func NewService(remote checks.Remote, client storage.Client, storageCfg storage.Config, schemaCfg schema.Config, db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		remote:          remote,
		client:          client,
		storageCfg:      storageCfg,
		prefix:          schemaCfg.SnapshotPrefix,
		db:              db,
		definitionsPath: schemaCfg.DefinitionsPath,
		logger:          logger,
	}
}

// CheckRemote verifies the remote is reachable and reports declared collections it lacks.
func (s *Service) CheckRemote(ctx context.Context) (*checks.RemoteReport, error) {
	var expected []string
	if def, err := schema.LoadDefinition(s.definitionsPath); err != nil {
		s.logger.Warn("Definition unreadable, skipping missing collection check", zap.Error(err))
	} else {
		expected = def.Names()
	}
	return checks.CheckRemote(ctx, s.remote, expected)
}

// CheckStorage reports on the snapshot bucket.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	if s.client == nil {
		return nil, ErrStorageDisabled
	}
	return checks.CheckStorage(ctx, s.client, s.storageCfg.Bucket, s.prefix)
}

// FixStorage creates the snapshot bucket when missing.
func (s *Service) FixStorage(ctx context.Context) error {
	if s.client == nil {
		return ErrStorageDisabled
	}
	return checks.FixStorage(ctx, s.client, s.storageCfg.Bucket, s.storageCfg.Region, s.logger)
}

// CheckHistory verifies the run history tables.
func (s *Service) CheckHistory() (*checks.HistoryReport, error) {
	if s.db == nil {
		return nil, ErrHistoryDisabled
	}
	return checks.CheckHistory(s.db, history.Run{}, history.RunCollection{})
}

package schema

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"schema-manager/core/reconcile"
	"schema-manager/core/schema"
	"schema-manager/feature/schema/history"
	"schema-manager/feature/schema/snapshot"

	"go.uber.org/zap"
)

var (
	// ErrBusy is returned when a write run is already in progress.
	ErrBusy = errors.New("another schema run is in progress")
	// ErrSecretMissing is returned when rules reference the secret placeholder but no secret is configured.
	ErrSecretMissing = errors.New("rules reference " + schema.SecretPlaceholder + " but no webhook secret is configured")
	// ErrHistoryDisabled is returned when run history was requested without a database.
	ErrHistoryDisabled = errors.New("run history is disabled")
	// ErrSnapshotsDisabled is returned when snapshots were requested without object storage.
	ErrSnapshotsDisabled = errors.New("snapshot storage is disabled")
)

// Remote is the PocketBase instance the service manages. pocketbase.Client implements it.
type Remote interface {
	reconcile.Store
	snapshot.Lister
	CreateBackup(ctx context.Context, name string) error
	UpdateSettings(ctx context.Context, settings json.RawMessage) error
}

// ApplyOptions controls the side steps of an apply.
type ApplyOptions struct {
	// Backup takes a remote backup before the first write.
	Backup bool
	// Snapshot uploads a dump of the remote schema before the first write.
	Snapshot bool
}

// Service loads definitions and runs them against the remote.
type Service struct {
	remote    Remote
	cfg       schema.Config
	history   *history.Repository
	snapshots *snapshot.Store
	logger    *zap.Logger

	// mu serialises write runs.
	mu sync.Mutex
}

// NewService creates a schema service. history and snapshots may be nil.
func NewService(remote Remote, cfg schema.Config, hist *history.Repository, snapshots *snapshot.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		remote:    remote,
		cfg:       cfg,
		history:   hist,
		snapshots: snapshots,
		logger:    logger,
	}
}

// BackupName returns the name of the backup taken before an apply at t.
func BackupName(t time.Time) string {
	return "pre_provision_" + t.UTC().Format("20060102_150405")
}

// Definition loads the target definition with the webhook secret resolved.
func (s *Service) Definition() (schema.Definition, error) {
	return s.definition(false)
}

func (s *Service) definition(dryRun bool) (schema.Definition, error) {
	def, err := schema.LoadDefinition(s.cfg.DefinitionsPath)
	if err != nil {
		return nil, err
	}
	if !def.HasPlaceholder() {
		return def, nil
	}
	if s.cfg.WebhookSecret != "" {
		return def.WithSecret(s.cfg.WebhookSecret), nil
	}
	if !dryRun {
		return nil, ErrSecretMissing
	}
	s.warnPlaceholder()
	return def, nil
}

// Adjustments loads the ensure adjustments with the webhook secret resolved. A dry run
// without a configured secret keeps the placeholder; a write run fails with ErrSecretMissing.
func (s *Service) Adjustments(dryRun bool) ([]reconcile.Adjustment, error) {
	adjustments, err := reconcile.LoadAdjustments(s.cfg.AdjustmentsPath)
	if err != nil {
		return nil, err
	}
	warned := false
	for i, adj := range adjustments {
		if !adj.HasPlaceholder() {
			continue
		}
		if s.cfg.WebhookSecret != "" {
			adjustments[i] = adj.WithSecret(s.cfg.WebhookSecret)
			continue
		}
		if !dryRun {
			return nil, ErrSecretMissing
		}
		if !warned {
			s.warnPlaceholder()
			warned = true
		}
	}
	return adjustments, nil
}

func (s *Service) warnPlaceholder() {
	s.logger.Warn("Webhook secret not configured, planning with the placeholder",
		zap.String("placeholder", schema.SecretPlaceholder))
}

func (s *Service) reconciler(dryRun bool) *reconcile.Reconciler {
	return reconcile.New(s.remote, s.logger, reconcile.Options{
		DryRun:   dryRun,
		Reserved: s.cfg.ReservedFields,
	})
}

// Plan computes what an apply would do without writing. Without a webhook secret the
// placeholder is compared as is, so rules referencing it show up as changed.
func (s *Service) Plan(ctx context.Context) (*reconcile.Report, error) {
	def, err := s.definition(true)
	if err != nil {
		return nil, err
	}
	return s.reconciler(true).DryRun(ctx, def), nil
}

// Apply reconciles the remote towards the definition. Only one write run executes at a time.
func (s *Service) Apply(ctx context.Context, opts ApplyOptions) (*reconcile.Report, error) {
	def, err := s.Definition()
	if err != nil {
		return nil, err
	}
	return s.ApplyDefinition(ctx, def, opts)
}

// ApplyDefinition reconciles the remote towards def, which must already be resolved.
func (s *Service) ApplyDefinition(ctx context.Context, def schema.Definition, opts ApplyOptions) (*reconcile.Report, error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	defer s.mu.Unlock()

	if opts.Backup {
		name := BackupName(time.Now())
		if err := s.remote.CreateBackup(ctx, name); err != nil {
			return nil, err
		}
		s.logger.Info("Backup created", zap.String("name", name))
	}
	s.syncSettings(ctx)
	if opts.Snapshot {
		if _, err := s.saveSnapshot(ctx, snapshot.Name(time.Now())); err != nil {
			return nil, err
		}
	}

	report := s.reconciler(false).Reconcile(ctx, def)
	s.record(ctx, report)
	return report, nil
}

// Ensure applies the configured adjustments, or plans them when dryRun is set.
func (s *Service) Ensure(ctx context.Context, dryRun bool) (*reconcile.Report, error) {
	adjustments, err := s.Adjustments(dryRun)
	if err != nil {
		return nil, err
	}
	if !dryRun {
		if !s.mu.TryLock() {
			return nil, ErrBusy
		}
		defer s.mu.Unlock()
	}

	report := s.reconciler(dryRun).Ensure(ctx, adjustments)
	if !dryRun {
		s.record(ctx, report)
	}
	return report, nil
}

// syncSettings sends the settings file to the remote. The schema run goes ahead whatever
// the outcome, so failures are logged only.
func (s *Service) syncSettings(ctx context.Context) {
	path := s.cfg.SettingsPath
	if path == "" {
		return
	}
	l := s.logger.With(zap.String("path", path))

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.Info("No settings file found, skipping settings sync")
		return
	}
	if err != nil {
		l.Warn("Failed to read settings file", zap.Error(err))
		return
	}
	if !json.Valid(data) {
		l.Warn("Settings file is not valid JSON, skipping settings sync")
		return
	}
	if err := s.remote.UpdateSettings(ctx, json.RawMessage(data)); err != nil {
		l.Warn("Settings sync failed", zap.Error(err))
		return
	}
	l.Info("System settings updated")
}

// record stores a report in the run history. Failures are logged only.
func (s *Service) record(ctx context.Context, report *reconcile.Report) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(context.WithoutCancel(ctx), report); err != nil {
		s.logger.Warn("Failed to record run", zap.String("run_id", report.RunID), zap.Error(err))
	}
}

// Runs returns the most recent runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]history.Run, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx, limit)
}

// Run returns one run with its per-collection results.
func (s *Service) Run(ctx context.Context, runID string) (*history.Run, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.Get(ctx, runID)
}

// Dump returns the remote schema in definition form with secrets redacted.
func (s *Service) Dump(ctx context.Context, includeSystem bool) (schema.Definition, error) {
	return snapshot.Dump(ctx, s.remote, includeSystem)
}

// SaveSnapshot uploads a dump under name and prunes old snapshots.
func (s *Service) SaveSnapshot(ctx context.Context, name string) (string, error) {
	if name == "" {
		name = snapshot.Name(time.Now())
	}
	return s.saveSnapshot(ctx, name)
}

func (s *Service) saveSnapshot(ctx context.Context, name string) (string, error) {
	if s.snapshots == nil {
		return "", ErrSnapshotsDisabled
	}
	def, err := s.Dump(ctx, false)
	if err != nil {
		return "", err
	}
	key, err := s.snapshots.Upload(ctx, name, def)
	if err != nil {
		return "", err
	}
	if _, err := s.snapshots.Prune(ctx, s.cfg.SnapshotKeep); err != nil {
		s.logger.Warn("Failed to prune snapshots", zap.Error(err))
	}
	return key, nil
}

// Snapshots lists the stored snapshots, newest first.
func (s *Service) Snapshots(ctx context.Context) ([]snapshot.Info, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.snapshots.List(ctx)
}

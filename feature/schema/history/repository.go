package history

import (
	"context"
	"errors"
	"fmt"

	"schema-manager/core/database"
	"schema-manager/core/reconcile"

	"gorm.io/gorm"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Repository persists run reports.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repository on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the history tables and checks the result.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&Run{}, &RunCollection{}); err != nil {
		return fmt.Errorf("failed to migrate history tables: %w", err)
	}

	expected := map[string][]string{
		Run{}.TableName():           {"run_id", "kind", "dry_run", "started_at", "finished_at", "total", "failed"},
		RunCollection{}.TableName(): {"run_id", "position", "collection", "status", "sections", "changes", "status_code", "error"},
	}
	for table, columns := range expected {
		missing, err := database.MissingColumns(r.db.WithContext(ctx), table, columns)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("table %s is missing columns %v", table, missing)
		}
	}
	return nil
}

// Save stores a report and its per-collection results.
func (r *Repository) Save(ctx context.Context, report *reconcile.Report) error {
	run := FromReport(report)
	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.RunID, err)
	}
	return nil
}

// List returns the most recent runs first, without their collections.
func (r *Repository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its collections in run order.
func (r *Repository) Get(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := r.db.WithContext(ctx).
		Preload("Collections", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("run_id = ?", runID).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &run, nil
}

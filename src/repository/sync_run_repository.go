package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradejournal/src/database"
	"tradejournal/src/model"
)

// SyncRunRepository stores the journal of reconciler invocations.
type SyncRunRepository struct {
	db *gorm.DB
}

// NewSyncRunRepository creates a new repository instance using the main read/write database.
func NewSyncRunRepository() *SyncRunRepository {
	return &SyncRunRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *SyncRunRepository) WithDB(db *gorm.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create persists one run.
func (r *SyncRunRepository) Create(ctx context.Context, run *model.SyncRun) error {
	err := r.db.WithContext(ctx).Create(run).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "SyncRunRepository",
			"op":     "Create",
			"kind":   run.Kind,
			"run_id": run.RunID,
		}).WithError(err).Error("Failed to persist sync run")
	}
	return err
}

// FindLatest returns the most recent runs, newest first. An empty kind
// returns runs of every kind.
func (r *SyncRunRepository) FindLatest(ctx context.Context, kind string, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := r.db.WithContext(ctx).Model(&model.SyncRun{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var runs []model.SyncRun
	err := query.
		Order("started_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SyncRunRepository",
			"op":   "FindLatest",
			"kind": kind,
		}).WithError(err).Error("Failed to list sync runs")

		return nil, err
	}

	return runs, nil
}

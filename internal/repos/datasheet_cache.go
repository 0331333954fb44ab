package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/types"
)

type DatasheetCacheRepo interface {
	GetByNormalizedURL(ctx context.Context, tx *gorm.DB, normalizedURL string) (*types.DatasheetCacheEntry, error)
	// InsertProcessing claims a URL by inserting a processing row. A
	// unique-constraint violation means another caller won the race;
	// that is reported as created=false, not an error.
	InsertProcessing(ctx context.Context, tx *gorm.DB, entry *types.DatasheetCacheEntry) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, entry *types.DatasheetCacheEntry) error
	DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

type datasheetCacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasheetCacheRepo(db *gorm.DB, baseLog *logger.Logger) DatasheetCacheRepo {
	repoLog := baseLog.With("repo", "DatasheetCacheRepo")
	return &datasheetCacheRepo{db: db, log: repoLog}
}

func (r *datasheetCacheRepo) GetByNormalizedURL(ctx context.Context, tx *gorm.DB, normalizedURL string) (*types.DatasheetCacheEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.DatasheetCacheEntry
	if err := transaction.WithContext(ctx).
		Where("normalized_url = ?", normalizedURL).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cache entry for %s: %w", normalizedURL, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &result, nil
}

func (r *datasheetCacheRepo) InsertProcessing(ctx context.Context, tx *gorm.DB, entry *types.DatasheetCacheEntry) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Status = types.CacheStatusProcessing

	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Debug("Cache insert lost race, another extraction owns this URL", "normalized_url", entry.NormalizedURL)
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *datasheetCacheRepo) Update(ctx context.Context, tx *gorm.DB, entry *types.DatasheetCacheEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(entry).Error
}

func (r *datasheetCacheRepo) DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&types.DatasheetCacheEntry{})
	return res.RowsAffected, res.Error
}

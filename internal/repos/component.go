package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/types"
)

type ComponentRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, component *types.Component) (*types.Component, error)
	Update(ctx context.Context, tx *gorm.DB, component *types.Component) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Component, error)
	GetByMPN(ctx context.Context, tx *gorm.DB, mpn string) (*types.Component, error)
	GetByNaturalKey(ctx context.Context, tx *gorm.DB, mpn, manufacturer string) (*types.Component, error)
	ExistsByMPN(ctx context.Context, tx *gorm.DB, mpn string) (bool, error)
	ListByPackageNormalized(ctx context.Context, tx *gorm.DB, packageNormalized string, excludeID uuid.UUID) ([]*types.Component, error)
	BulkDelete(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type componentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewComponentRepo(db *gorm.DB, baseLog *logger.Logger) ComponentRepo {
	repoLog := baseLog.With("repo", "ComponentRepo")
	return &componentRepo{db: db, log: repoLog}
}

// Upsert inserts or updates on the (mpn, manufacturer) natural key.
// Last writer wins; there is no optimistic concurrency token.
func (r *componentRepo) Upsert(ctx context.Context, tx *gorm.DB, component *types.Component) (*types.Component, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if component.ID == uuid.Nil {
		component.ID = uuid.New()
	}

	if err := transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mpn"}, {Name: "manufacturer"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "package_raw", "package_normalized", "pin_count",
			"mounting_style", "specs", "lifecycle_status", "data_sources",
			"confidence", "datasheet_url", "mpn_suffix", "updated_at",
		}),
	}).Create(component).Error; err != nil {
		return nil, err
	}

	// Re-read so the caller sees the surviving row's id on a conflict.
	return r.GetByNaturalKey(ctx, transaction, component.MPN, component.Manufacturer)
}

func (r *componentRepo) Update(ctx context.Context, tx *gorm.DB, component *types.Component) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(component).Error
}

func (r *componentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Component, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Component
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("component %s: %w", id, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &result, nil
}

func (r *componentRepo) GetByMPN(ctx context.Context, tx *gorm.DB, mpn string) (*types.Component, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Component
	if err := transaction.WithContext(ctx).
		Where("LOWER(mpn) = LOWER(?)", mpn).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("component %s: %w", mpn, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &result, nil
}

func (r *componentRepo) GetByNaturalKey(ctx context.Context, tx *gorm.DB, mpn, manufacturer string) (*types.Component, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Component
	if err := transaction.WithContext(ctx).
		Where("mpn = ? AND manufacturer = ?", mpn, manufacturer).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("component %s/%s: %w", mpn, manufacturer, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &result, nil
}

func (r *componentRepo) ExistsByMPN(ctx context.Context, tx *gorm.DB, mpn string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Component{}).
		Where("LOWER(mpn) = LOWER(?)", mpn).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByPackageNormalized is the replacement candidate pool query: every
// component sharing the package, excluding the reference itself.
func (r *componentRepo) ListByPackageNormalized(ctx context.Context, tx *gorm.DB, packageNormalized string, excludeID uuid.UUID) ([]*types.Component, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Component
	if err := transaction.WithContext(ctx).
		Where("package_normalized = ? AND id <> ?", packageNormalized, excludeID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// BulkDelete hard-deletes components and their pinouts. Pinouts go
// first so the FK never dangles mid-transaction.
func (r *componentRepo) BulkDelete(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
		if err := innerTx.
			Where("component_id IN ?", ids).
			Delete(&types.Pinout{}).Error; err != nil {
			return err
		}
		return innerTx.Unscoped().
			Where("id IN ?", ids).
			Delete(&types.Component{}).Error
	})
}

package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/types"
)

type PinoutRepo interface {
	ReplaceForComponent(ctx context.Context, tx *gorm.DB, componentID uuid.UUID, pins []*types.Pinout) error
	GetByComponentID(ctx context.Context, tx *gorm.DB, componentID uuid.UUID) ([]*types.Pinout, error)
}

type pinoutRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPinoutRepo(db *gorm.DB, baseLog *logger.Logger) PinoutRepo {
	repoLog := baseLog.With("repo", "PinoutRepo")
	return &pinoutRepo{db: db, log: repoLog}
}

// ReplaceForComponent writes one extraction run's pins wholesale:
// upsert on (component_id, pin_number), then drop pin numbers the new
// set no longer has.
func (r *pinoutRepo) ReplaceForComponent(ctx context.Context, tx *gorm.DB, componentID uuid.UUID, pins []*types.Pinout) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
		keep := make([]int, 0, len(pins))
		for _, pin := range pins {
			if pin.ID == uuid.Nil {
				pin.ID = uuid.New()
			}
			pin.ComponentID = componentID
			keep = append(keep, pin.PinNumber)
		}

		if len(pins) > 0 {
			if err := innerTx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "component_id"}, {Name: "pin_number"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"pin_name", "pin_function", "description", "source", "confidence", "updated_at",
				}),
			}).Create(&pins).Error; err != nil {
				return err
			}
		}

		q := innerTx.Where("component_id = ?", componentID)
		if len(keep) > 0 {
			q = q.Where("pin_number NOT IN ?", keep)
		}
		return q.Delete(&types.Pinout{}).Error
	})
}

func (r *pinoutRepo) GetByComponentID(ctx context.Context, tx *gorm.DB, componentID uuid.UUID) ([]*types.Pinout, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Pinout
	if err := transaction.WithContext(ctx).
		Where("component_id = ?", componentID).
		Order("pin_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

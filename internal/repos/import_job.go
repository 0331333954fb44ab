package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/types"
)

type ImportJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.ImportJob) (*types.ImportJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ImportJob, error)
	Update(ctx context.Context, tx *gorm.DB, job *types.ImportJob) error
	RequestCancel(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	IsCancelRequested(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
}

type importJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImportJobRepo(db *gorm.DB, baseLog *logger.Logger) ImportJobRepo {
	repoLog := baseLog.With("repo", "ImportJobRepo")
	return &importJobRepo{db: db, log: repoLog}
}

func (r *importJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.ImportJob) (*types.ImportJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *importJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ImportJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ImportJob
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("import job %s: %w", id, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return &result, nil
}

func (r *importJobRepo) Update(ctx context.Context, tx *gorm.DB, job *types.ImportJob) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(job).Error
}

func (r *importJobRepo) RequestCancel(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.ImportJob{}).
		Where("id = ? AND status IN ?", id, []string{types.ImportJobQueued, types.ImportJobRunning}).
		Update("cancel_requested", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("import job %s not cancellable: %w", id, pkgerrors.ErrNotFound)
	}
	return nil
}

func (r *importJobRepo) IsCancelRequested(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var flag bool
	if err := transaction.WithContext(ctx).
		Model(&types.ImportJob{}).
		Where("id = ?", id).
		Pluck("cancel_requested", &flag).Error; err != nil {
		return false, err
	}
	return flag, nil
}

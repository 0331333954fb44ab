package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/types"
)

type LLMCallLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.LLMCallLog) error
}

type llmCallLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLLMCallLogRepo(db *gorm.DB, baseLog *logger.Logger) LLMCallLogRepo {
	repoLog := baseLog.With("repo", "LLMCallLogRepo")
	return &llmCallLogRepo{db: db, log: repoLog}
}

func (r *llmCallLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.LLMCallLog) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

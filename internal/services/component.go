package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
	"github.com/yungbote/partbase-backend/internal/repos"
	"github.com/yungbote/partbase-backend/internal/types"
)

// ComponentService is the read/delete surface behind the component API.
type ComponentService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.Component, error)
	GetByMPN(ctx context.Context, mpn string) (*types.Component, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) error
}

type componentService struct {
	db            *gorm.DB
	log           *logger.Logger
	componentRepo repos.ComponentRepo
	pinoutRepo    repos.PinoutRepo
}

func NewComponentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	componentRepo repos.ComponentRepo,
	pinoutRepo repos.PinoutRepo,
) ComponentService {
	return &componentService{
		db:            db,
		log:           baseLog.With("service", "ComponentService"),
		componentRepo: componentRepo,
		pinoutRepo:    pinoutRepo,
	}
}

func (s *componentService) GetByID(ctx context.Context, id uuid.UUID) (*types.Component, error) {
	component, err := s.componentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return s.withPins(ctx, component)
}

func (s *componentService) GetByMPN(ctx context.Context, mpn string) (*types.Component, error) {
	component, err := s.componentRepo.GetByMPN(ctx, nil, mpn)
	if err != nil {
		return nil, err
	}
	return s.withPins(ctx, component)
}

func (s *componentService) withPins(ctx context.Context, component *types.Component) (*types.Component, error) {
	pins, err := s.pinoutRepo.GetByComponentID(ctx, nil, component.ID)
	if err != nil {
		return nil, fmt.Errorf("load pins for %s: %w", component.MPN, err)
	}
	component.Pins = make([]types.Pinout, 0, len(pins))
	for _, pin := range pins {
		component.Pins = append(component.Pins, *pin)
	}
	return component, nil
}

func (s *componentService) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return fmt.Errorf("no ids given: %w", pkgerrors.ErrInvalidArgument)
	}
	if err := s.componentRepo.BulkDelete(ctx, nil, ids); err != nil {
		return fmt.Errorf("bulk delete: %w", err)
	}
	s.log.Info("Bulk deleted components", "count", len(ids))
	return nil
}

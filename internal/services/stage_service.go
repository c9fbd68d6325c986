package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/database"
	"github.com/charlesng35/leadflow/internal/models"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/logger"
)

// StageService reads the pipeline stage catalog. Stages are administered out of
// band (configuration, migrations, CLI); the board only reads them.
type StageService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewStageService constructs a StageService.
func NewStageService(db *gorm.DB) (*StageService, error) {
	if db == nil {
		return nil, errors.New("stage service: db is required")
	}
	return &StageService{db: db, log: logger.WithModule("stages")}, nil
}

// ListStages returns every stage ordered by order_index. A read failure is
// logged and yields an empty catalog so callers can render a "no stages" state.
func (s *StageService) ListStages(ctx context.Context) []models.PipelineStage {
	stages, err := s.listStages(ensureContext(ctx))
	if err != nil {
		s.log.Error("list stages failed", zap.Error(err))
		return []models.PipelineStage{}
	}
	return stages
}

func (s *StageService) listStages(ctx context.Context) ([]models.PipelineStage, error) {
	var stages []models.PipelineStage
	if err := s.db.WithContext(ctx).Order("order_index ASC").Find(&stages).Error; err != nil {
		return nil, err
	}
	if stages == nil {
		stages = []models.PipelineStage{}
	}
	return stages, nil
}

// GetStage returns the stage with the given id.
func (s *StageService) GetStage(ctx context.Context, id string) (*models.PipelineStage, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.ErrNotFound
	}

	var stage models.PipelineStage
	if err := s.db.WithContext(ensureContext(ctx)).First(&stage, "id = ?", id).Error; err != nil {
		return nil, storeError(s.log, "get stage", err)
	}
	return &stage, nil
}

// DefaultStage returns the landing stage for new leads: the lowest order_index.
func (s *StageService) DefaultStage(ctx context.Context) (*models.PipelineStage, error) {
	var stage models.PipelineStage
	if err := s.db.WithContext(ensureContext(ctx)).Order("order_index ASC").First(&stage).Error; err != nil {
		return nil, storeError(s.log, "default stage", err)
	}
	return &stage, nil
}

// SeedStages inserts missing stages by name, deriving each status once when unset.
func (s *StageService) SeedStages(ctx context.Context, stages []models.PipelineStage) error {
	if err := database.SeedStages(s.db.WithContext(ensureContext(ctx)), stages); err != nil {
		return storeError(s.log, "seed stages", err)
	}
	return nil
}

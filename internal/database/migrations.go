package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/internal/pipeline"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.PipelineStage{},
		&models.Lead{},
		&models.LeadStageChange{},
		&models.Client{},
		&models.Notification{},
		&models.Testimonial{},
		&models.ContentProject{},
		&models.ChatMessage{},
		&models.FileUpload{},
		&models.CacheEntry{},
	)
}

// DefaultStages returns the pipeline seeded when no stages are configured.
func DefaultStages() []models.PipelineStage {
	return []models.PipelineStage{
		{Name: "New Lead", Color: "blue", OrderIndex: 0, Status: models.LeadStatusNew},
		{Name: "Contacted", Color: "indigo", OrderIndex: 1, Status: models.LeadStatusContacted},
		{Name: "Qualified", Color: "purple", OrderIndex: 2, Status: models.LeadStatusQualified},
		{Name: "Proposal Sent", Color: "amber", OrderIndex: 3, Status: models.LeadStatusProposal},
		{Name: "Negotiation", Color: "orange", OrderIndex: 4, Status: models.LeadStatusNegotiation},
		{Name: "Closed Won", Color: "green", OrderIndex: 5, Status: models.LeadStatusClosedWon},
		{Name: "Closed Lost", Color: "red", OrderIndex: 6, Status: models.LeadStatusClosedLost},
	}
}

// SeedStages inserts the given stages when a stage with the same name does
// not exist yet. Stages without an explicit status get one derived from the
// name here, once, so moves never have to infer it from display text. An
// empty list seeds DefaultStages.
func SeedStages(db *gorm.DB, stages []models.PipelineStage) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	if len(stages) == 0 {
		stages = DefaultStages()
	}

	for _, stage := range stages {
		stage.Name = strings.TrimSpace(stage.Name)
		if stage.Name == "" {
			return errors.New("pipeline stage name is required")
		}
		if !stage.Status.Valid() {
			stage.Status = pipeline.DeriveStatus(stage.Name)
		}

		err := db.Where(models.PipelineStage{Name: stage.Name}).
			Attrs(stage).
			FirstOrCreate(&models.PipelineStage{}).Error
		if err != nil {
			return err
		}
	}

	return nil
}

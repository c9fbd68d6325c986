package app

import (
	"strings"

	"github.com/charlesng35/leadflow/internal/database"
	"github.com/charlesng35/leadflow/internal/models"
)

// ConnectionConfig converts DatabaseConfig into database.Config.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	return database.Config{
		Driver:          strings.TrimSpace(c.Driver),
		Path:            strings.TrimSpace(c.Path),
		DSN:             strings.TrimSpace(c.DSN),
		Host:            strings.TrimSpace(c.Host),
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Name:            strings.TrimSpace(c.Name),
		Options:         c.Options,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,

		SlowQueryThreshold: c.SlowQuery,
	}
}

// StageDefinitions returns the configured stage catalog in display order,
// falling back to the built-in catalog when none is configured.
func (c PipelineConfig) StageDefinitions() []models.PipelineStage {
	if len(c.Stages) == 0 {
		return database.DefaultStages()
	}

	stages := make([]models.PipelineStage, 0, len(c.Stages))
	for _, def := range c.Stages {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			continue
		}
		stages = append(stages, models.PipelineStage{
			Name:       name,
			Color:      strings.TrimSpace(def.Color),
			OrderIndex: len(stages),
			Status:     models.LeadStatus(strings.ToLower(strings.TrimSpace(def.Status))),
		})
	}
	return stages
}

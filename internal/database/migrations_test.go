package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/leadflow/internal/models"
)

func TestAutoMigrateCreatesPipelineTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.PipelineStage{},
		&models.Lead{},
		&models.LeadStageChange{},
		&models.Notification{},
	}

	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
	require.True(t, migrator.HasColumn(&models.Lead{}, "instagram_handle"))
	require.True(t, migrator.HasColumn(&models.PipelineStage{}, "status"))
}

func TestAutoMigrateCreatesContentTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.Client{},
		&models.Testimonial{},
		&models.ContentProject{},
		&models.ChatMessage{},
		&models.FileUpload{},
		&models.CacheEntry{},
	}

	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
}

func TestPipelineStageOrderIndexIsUnique(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.PipelineStage{Name: "A", OrderIndex: 0}).Error)
	require.Error(t, db.Create(&models.PipelineStage{Name: "B", OrderIndex: 0}).Error)
}

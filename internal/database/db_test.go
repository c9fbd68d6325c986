package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestAutoMigrateAndSeedDefaults(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrateAndSeed(db, nil))

	var stages []models.PipelineStage
	require.NoError(t, db.Order("order_index asc").Find(&stages).Error)
	require.Len(t, stages, len(DefaultStages()))
	require.Equal(t, "New Lead", stages[0].Name)
	require.Equal(t, models.LeadStatusNew, stages[0].Status)
	require.Equal(t, models.LeadStatusClosedLost, stages[len(stages)-1].Status)

	// Seeding twice must not duplicate stages.
	require.NoError(t, SeedStages(db, nil))
	var count int64
	require.NoError(t, db.Model(&models.PipelineStage{}).Count(&count).Error)
	require.EqualValues(t, len(DefaultStages()), count)
}

func TestSeedStagesDerivesMissingStatus(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, SeedStages(db, []models.PipelineStage{
		{Name: "Initial Call", OrderIndex: 0},
		{Name: "Deal Won", OrderIndex: 1},
		{Name: "Parked", OrderIndex: 2, Status: models.LeadStatusClosedLost},
	}))

	var stages []models.PipelineStage
	require.NoError(t, db.Order("order_index asc").Find(&stages).Error)
	require.Len(t, stages, 3)
	require.Equal(t, models.LeadStatusNew, stages[0].Status)
	require.Equal(t, models.LeadStatusClosedWon, stages[1].Status)
	require.Equal(t, models.LeadStatusClosedLost, stages[2].Status)
}

func TestSeedStagesRejectsBlankName(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	require.Error(t, SeedStages(db, []models.PipelineStage{{Name: "  "}}))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: MemoryDSN(t.Name())})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}

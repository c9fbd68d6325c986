package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/database"
	"github.com/charlesng35/leadflow/internal/models"
)

// TestDBOption customises the behaviour of MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	autoMigrate bool
	seedData    bool
	stages      []models.PipelineStage
}

// WithAutoMigrate enables automatic schema migration after opening the test database.
func WithAutoMigrate() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
	}
}

// WithSeedData applies migrations and seeds the default pipeline stages.
func WithSeedData() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
		cfg.seedData = true
	}
}

// WithStages applies migrations and seeds exactly the given stages, keeping
// any explicit IDs so tests can refer to them.
func WithStages(stages ...models.PipelineStage) TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
		cfg.seedData = true
		cfg.stages = stages
	}
}

// MustOpenTestDB opens a private in-memory SQLite database for tests, applying
// optional migrations and seed data. The connection is closed via t.Cleanup.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	cfg := testDBConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := database.Open(database.Config{Driver: "sqlite", DSN: database.MemoryDSN(t.Name())})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = database.Close(db)
	})

	if cfg.seedData {
		require.NoError(t, database.AutoMigrateAndSeed(db, cfg.stages))
	} else if cfg.autoMigrate {
		require.NoError(t, database.AutoMigrate(db))
	}

	return db
}

// ScenarioStages returns the three stage pipeline used across service and
// handler tests.
func ScenarioStages() []models.PipelineStage {
	return []models.PipelineStage{
		{BaseModel: models.BaseModel{ID: "s1"}, Name: "New Lead", Color: "blue", OrderIndex: 0},
		{BaseModel: models.BaseModel{ID: "s2"}, Name: "Proposal Sent", Color: "amber", OrderIndex: 1},
		{BaseModel: models.BaseModel{ID: "s3"}, Name: "Closed Won", Color: "green", OrderIndex: 2},
	}
}

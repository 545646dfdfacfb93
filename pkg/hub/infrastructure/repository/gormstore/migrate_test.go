package gormstore_test

import (
	"context"
	"path/filepath"
	"testing"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	"github.com/bduoto/omtx-hub/pkg/hub/infrastructure/repository/gormstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_LeavesConnectionUsable(t *testing.T) {
	cfg := gormstore.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), "hub_migrate.db"),
	}
	db, err := gormstore.OpenDB(cfg)
	require.NoError(t, err)

	require.NoError(t, gormstore.Migrate(db, cfg.Type))

	// The repository keeps using the same handle migrations ran on.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())

	repo := gormstore.NewGormJobRepository(db)
	t.Cleanup(func() { _ = repo.Close() })

	job := model.NewIndividualJob("protein_ligand_binding", "user-1", model.Payload{"ligand_smiles": "CCO"})
	_, err = repo.Create(context.Background(), job)
	require.NoError(t, err)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	cfg := gormstore.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), "hub_migrate.db"),
	}
	db, err := gormstore.OpenDB(cfg)
	require.NoError(t, err)

	require.NoError(t, gormstore.Migrate(db, cfg.Type))
	// A second run has no pending migrations and must not disturb the
	// connection either.
	require.NoError(t, gormstore.Migrate(db, cfg.Type))

	repo := gormstore.NewGormJobRepository(db)
	t.Cleanup(func() { _ = repo.Close() })

	job := model.NewIndividualJob("protein_ligand_binding", "user-2", model.Payload{})
	id, err := repo.Create(context.Background(), job)
	require.NoError(t, err)
	got, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "user-2", got.UserID)
}

func TestMigrate_RejectsUnknownDatabaseType(t *testing.T) {
	cfg := gormstore.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), "hub_migrate.db"),
	}
	db, err := gormstore.OpenDB(cfg)
	require.NoError(t, err)

	err = gormstore.Migrate(db, "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

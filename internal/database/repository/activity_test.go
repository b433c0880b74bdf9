package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/compass/internal/database"
	"github.com/jask/compass/internal/database/repository"
)

func TestActivityRecordAndRecent(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "nested", "compass.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.NewActivityRepo(db)
	base := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	first, err := repo.Record(ctx, repository.Activity{Kind: repository.KindExport, Target: "all adversaries", Detail: "layer.json", OK: true, CreatedAt: base})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = repo.Record(ctx, repository.Activity{Kind: repository.KindUpload, Target: "apt.json", OK: false, Error: "unauthorized", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	_, err = repo.Record(ctx, repository.Activity{Kind: "delete"})
	require.Error(t, err)

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, repository.KindUpload, recent[0].Kind)
	require.False(t, recent[0].OK)
	require.Equal(t, "unauthorized", recent[0].Error)
	require.Equal(t, first.ID, recent[1].ID)
	require.True(t, recent[1].OK)
	require.True(t, base.Equal(recent[1].CreatedAt))

	limited, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "compass.db")
	require.NoError(t, database.RunMigrations(path))
	require.NoError(t, database.RunMigrations(path))
}

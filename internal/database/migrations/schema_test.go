package migrations

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-reservation/internal/models"
)

func setupTestDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

func TestEnsureSchema_IdempotentWithSeed(t *testing.T) {
	bunDB := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, EnsureSchema(ctx, bunDB, true))
	require.NoError(t, EnsureSchema(ctx, bunDB, true))

	var events []models.Event
	require.NoError(t, bunDB.NewSelect().Model(&events).Order("min_price ASC").Scan(ctx))
	require.Len(t, events, 2)
	assert.Equal(t, "Summer Rock Festival", events[0].Name)
	assert.Equal(t, 1000, events[0].Capacity)
	assert.Equal(t, "Classical Night", events[1].Name)
	assert.Equal(t, 75.0, events[1].MinPrice)

	n, err := bunDB.NewSelect().Model((*models.Hold)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnsureSchema_WithoutSeed(t *testing.T) {
	bunDB := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, EnsureSchema(ctx, bunDB, false))

	n, err := bunDB.NewSelect().Model((*models.Event)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMigrationFilesArePaired(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "migrations")
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	require.NoError(t, err)
	downs, err := filepath.Glob(filepath.Join(dir, "*.down.sql"))
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
	sort.Strings(ups)
	assert.Equal(t, "000002_create_holds.up.sql", filepath.Base(ups[SchemaVersion-1]))

	for _, up := range ups {
		info, err := os.Stat(up)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), up)
	}
}

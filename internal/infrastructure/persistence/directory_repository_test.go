package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/backend/internal/domain/shared"
)

func TestDirectoryRepositoryResolvesOrders(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormDirectoryRepository(db.DB)
	ctx := context.Background()

	profileID := uuid.New()
	require.NoError(t, repo.SaveOrderRef(ctx, "Y-555", profileID))

	resolved, err := repo.ResolveByOrder(ctx, "Y-555")
	require.NoError(t, err)
	assert.Equal(t, profileID, resolved)
}

func TestDirectoryRepositoryUnknownOrder(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormDirectoryRepository(db.DB)

	_, err := repo.ResolveByOrder(context.Background(), "Y-000")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDirectoryRepositoryReassignsOrderOnConflict(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormDirectoryRepository(db.DB)
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	require.NoError(t, repo.SaveOrderRef(ctx, "Y-777", first))
	require.NoError(t, repo.SaveOrderRef(ctx, "Y-777", second))

	resolved, err := repo.ResolveByOrder(ctx, "Y-777")
	require.NoError(t, err)
	assert.Equal(t, second, resolved)

	var count int64
	require.NoError(t, db.DB.Table("order_directory").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDirectoryRepositoryResolvesTitles(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormDirectoryRepository(db.DB)
	ctx := context.Background()

	require.NoError(t, repo.SaveProductRef(ctx, "SKU-1", "Wireless Kettle"))

	title, err := repo.TitleByArticle(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, "Wireless Kettle", title)

	_, err = repo.TitleByArticle(ctx, "SKU-404")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDirectoryRepositoryUpdatesTitleOnConflict(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormDirectoryRepository(db.DB)
	ctx := context.Background()

	require.NoError(t, repo.SaveProductRef(ctx, "SKU-2", "Old Title"))
	require.NoError(t, repo.SaveProductRef(ctx, "SKU-2", "New Title"))

	title, err := repo.TitleByArticle(ctx, "SKU-2")
	require.NoError(t, err)
	assert.Equal(t, "New Title", title)
}

package identity

import (
	"context"
	"testing"

	"github.com/printly/printly-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupIdentityTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS identities (
  id TEXT PRIMARY KEY,
  phone TEXT NOT NULL UNIQUE,
  token TEXT NOT NULL UNIQUE,
  verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec(`DELETE FROM identities`).Error)
	return db
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupIdentityTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Identity{
		ID:    uuid.New(),
		Phone: "9876543210",
		Token: "PT-REPOTESTA",
	})
	require.NoError(t, err)

	byPhone, err := repo.FindByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byPhone.ID)

	byToken, err := repo.FindByToken(ctx, "PT-REPOTESTA")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byToken.ID)

	joint, err := repo.FindByPhoneAndToken(ctx, "9876543210", "PT-REPOTESTA")
	require.NoError(t, err)
	assert.Equal(t, created.ID, joint.ID)

	_, err = repo.FindByPhoneAndToken(ctx, "9876543211", "PT-REPOTESTA")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryRejectsDuplicateToken(t *testing.T) {
	db := setupIdentityTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.Identity{ID: uuid.New(), Phone: "9000000001", Token: "PT-DUPLICATE"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.Identity{ID: uuid.New(), Phone: "9000000002", Token: "PT-DUPLICATE"})
	require.Error(t, err)
}

func TestRepositoryUpdateToken(t *testing.T) {
	db := setupIdentityTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Identity{ID: uuid.New(), Phone: "9111111111", Token: "PT-BEFORE"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateToken(ctx, created.ID, "PT-AFTER"))

	updated, err := repo.FindByPhone(ctx, "9111111111")
	require.NoError(t, err)
	assert.Equal(t, "PT-AFTER", updated.Token)

	err = repo.UpdateToken(ctx, uuid.New(), "PT-NOBODY")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

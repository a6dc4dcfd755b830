package orders

import (
	"context"
	"testing"

	"github.com/printly/printly-backend/pkg/db/models"
	dbtypes "github.com/printly/printly-backend/pkg/db/types"
	"github.com/printly/printly-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
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
);
CREATE TABLE IF NOT EXISTS print_orders (
  id TEXT PRIMARY KEY,
  identity_id TEXT NOT NULL,
  token TEXT NOT NULL,
  copies INTEGER NOT NULL,
  total_pages INTEGER NOT NULL,
  files TEXT NOT NULL DEFAULT '[]',
  total_amount INTEGER NOT NULL,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  notes TEXT,
  version INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec(`DELETE FROM print_orders`).Error)
	require.NoError(t, db.Exec(`DELETE FROM identities`).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, identityID uuid.UUID) *models.PrintOrder {
	t.Helper()
	repo := NewRepository(db)
	order, err := repo.Create(context.Background(), &models.PrintOrder{
		ID:         uuid.New(),
		IdentityID: identityID,
		Token:      "PT-REPOTESTB",
		Copies:     1,
		TotalPages: 4,
		Files: dbtypes.FileList{
			{Name: "notes.pdf", StorageKey: "x/notes.pdf", Size: 100, MimeType: "application/pdf", Pages: 4},
		},
		TotalAmount:   20,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
	})
	require.NoError(t, err)
	return order
}

func TestOrderRepositoryRoundTripsFiles(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := seedOrder(t, db, uuid.New())

	loaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Files, 1)
	assert.Equal(t, "notes.pdf", loaded.Files[0].Name)
	assert.Equal(t, 4, loaded.Files[0].Pages)
	assert.Equal(t, enums.OrderStatusPending, loaded.Status)
}

func TestOrderRepositoryListsByIdentity(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	mine := uuid.New()
	seedOrder(t, db, mine)
	seedOrder(t, db, mine)
	seedOrder(t, db, uuid.New())

	listed, err := repo.ListByIdentity(ctx, mine)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestOrderRepositoryGuardedUpdate(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := seedOrder(t, db, uuid.New())

	err := repo.UpdateGuarded(ctx, created.ID, created.Version, map[string]any{
		"status": enums.OrderStatusCancelled,
	})
	require.NoError(t, err)

	loaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, loaded.Status)
	assert.Equal(t, created.Version+1, loaded.Version)

	// A write carrying the stale version loses.
	err = repo.UpdateGuarded(ctx, created.ID, created.Version, map[string]any{
		"status": enums.OrderStatusCompleted,
	})
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestOrderRepositoryFiltersList(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first := seedOrder(t, db, uuid.New())
	seedOrder(t, db, uuid.New())

	require.NoError(t, repo.UpdateGuarded(ctx, first.ID, first.Version, map[string]any{
		"payment_status": enums.PaymentStatusPaid,
	}))

	paid := enums.PaymentStatusPaid
	listed, err := repo.List(ctx, ListFilters{PaymentStatus: &paid})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, first.ID, listed[0].ID)
}

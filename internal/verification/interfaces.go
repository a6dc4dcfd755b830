package verification

import (
	"context"

	"github.com/printly/printly-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the persistence port for the admin verification queue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	ListUnverified(ctx context.Context) ([]models.Identity, error)
	MarkVerified(ctx context.Context, ids []uuid.UUID) (int64, error)
}

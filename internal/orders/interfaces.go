package orders

import (
	"context"
	"errors"

	"github.com/printly/printly-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrVersionConflict signals that a guarded write lost the optimistic version
// race and the caller should re-read before retrying.
var ErrVersionConflict = errors.New("order version conflict")

// Repository is the order persistence port. All mutations go through
// UpdateGuarded so concurrent writers on the same order serialize on the
// version column.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PrintOrder) (*models.PrintOrder, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PrintOrder, error)
	ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]models.PrintOrder, error)
	List(ctx context.Context, filters ListFilters) ([]models.PrintOrder, error)
	UpdateGuarded(ctx context.Context, id uuid.UUID, version int, updates map[string]any) error
}

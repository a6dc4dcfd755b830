package identity

import (
	"context"

	"github.com/printly/printly-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the identity persistence port.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	FindByPhone(ctx context.Context, phone string) (*models.Identity, error)
	FindByToken(ctx context.Context, token string) (*models.Identity, error)
	FindByPhoneAndToken(ctx context.Context, phone, token string) (*models.Identity, error)
	UpdateToken(ctx context.Context, id uuid.UUID, token string) error
}

package verification

import (
	"context"

	"github.com/printly/printly-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a verification repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&identity).Error
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// ListUnverified returns pending identities with their orders preloaded so
// the admin can judge each one in context.
func (r *repository) ListUnverified(ctx context.Context) ([]models.Identity, error) {
	var identities []models.Identity
	err := r.db.WithContext(ctx).
		Where("verified = ?", false).
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Order("created_at ASC").
		Find(&identities).Error
	if err != nil {
		return nil, err
	}
	return identities, nil
}

// MarkVerified flips the flag for every listed identity that is still
// unverified and reports how many rows actually changed.
func (r *repository) MarkVerified(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id IN ? AND verified = ?", ids, false).
		Update("verified", true)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

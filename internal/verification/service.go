package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/printly/printly-backend/pkg/db/models"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BulkResult reports the outcome of a bulk verification.
type BulkResult struct {
	Requested int   `json:"requested"`
	Verified  int64 `json:"verified"`
}

// Service is the admin verification queue. Verification is a one-way,
// idempotent flag flip.
type Service interface {
	ListUnverified(ctx context.Context) ([]models.Identity, error)
	Verify(ctx context.Context, id uuid.UUID) error
	VerifyBulk(ctx context.Context, ids []uuid.UUID) (*BulkResult, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the verification service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("verification repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) ListUnverified(ctx context.Context) ([]models.Identity, error) {
	identities, err := s.repo.ListUnverified(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unverified identities")
	}
	return identities, nil
}

func (s *service) Verify(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "identity id required")
	}

	identity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "identity not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load identity")
	}
	if identity.Verified {
		// Re-verifying is a no-op, not an error.
		return nil
	}

	if _, err := s.repo.MarkVerified(ctx, []uuid.UUID{id}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify identity")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithIdentityID(ctx, id.String()), "identity verified")
	}
	return nil
}

func (s *service) VerifyBulk(ctx context.Context, ids []uuid.UUID) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one identity id required")
	}
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "identity ids must be non-empty")
		}
	}

	// Unknown and already-verified ids are skipped silently; the count tells
	// the admin how many actually flipped.
	verified, err := s.repo.MarkVerified(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bulk verify identities")
	}
	if s.logg != nil {
		lctx := s.logg.WithField(ctx, "requested", len(ids))
		lctx = s.logg.WithField(lctx, "verified", verified)
		s.logg.Info(lctx, "bulk verification applied")
	}
	return &BulkResult{Requested: len(ids), Verified: verified}, nil
}

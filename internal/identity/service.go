package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/printly/printly-backend/pkg/db"
	"github.com/printly/printly-backend/pkg/db/models"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/metrics"
	"github.com/printly/printly-backend/pkg/security"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

// tokenAttempts bounds the generate-and-write loop when a freshly generated
// token collides with the unique index.
const tokenAttempts = 3

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// Service issues and rotates the per-phone tracking token and resolves
// identities for order operations.
type Service interface {
	IssueOrRotate(ctx context.Context, phone string) (*TokenGrant, error)
	Resolve(ctx context.Context, phone, token string) (*models.Identity, error)
	ResolveByToken(ctx context.Context, token string) (*models.Identity, error)
	ResolveByPhone(ctx context.Context, phone string) (*models.Identity, error)
}

type service struct {
	repo    Repository
	metrics *metrics.ShopMetrics
}

// NewService builds an identity service with the required dependencies.
func NewService(repo Repository, shopMetrics *metrics.ShopMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("identity repository required")
	}
	return &service{repo: repo, metrics: shopMetrics}, nil
}

// ValidatePhone rejects anything that is not a 10-digit numeric string.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone must be a 10-digit number")
	}
	return nil
}

func (s *service) IssueOrRotate(ctx context.Context, phone string) (*TokenGrant, error) {
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPhone(ctx, phone)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up identity")
	}

	if existing == nil {
		token, err := s.writeWithFreshToken(ctx, func(ctx context.Context, token string) error {
			_, err := s.repo.Create(ctx, &models.Identity{Phone: phone, Token: token})
			return err
		})
		if err != nil {
			return nil, err
		}
		s.metrics.IncTokenIssued("new")
		return &TokenGrant{Token: token, IsNewIdentity: true}, nil
	}

	token, err := s.writeWithFreshToken(ctx, func(ctx context.Context, token string) error {
		return s.repo.UpdateToken(ctx, existing.ID, token)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTokenIssued("rotated")
	return &TokenGrant{Token: token, IsNewIdentity: false}, nil
}

// writeWithFreshToken generates a token and runs the store write, retrying
// with a new token when the unique index rejects it. Collisions are the only
// retryable outcome; everything else escalates immediately.
func (s *service) writeWithFreshToken(ctx context.Context, write func(ctx context.Context, token string) error) (string, error) {
	var issued string
	backoff := retry.WithMaxRetries(tokenAttempts-1, retry.NewConstant(10*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		token, err := security.GenerateToken()
		if err != nil {
			return err
		}
		if err := write(ctx, token); err != nil {
			if db.IsUniqueViolation(err, "idx_identities_token") {
				return retry.RetryableError(err)
			}
			return err
		}
		issued = token
		return nil
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "token generation failed")
	}
	return issued, nil
}

func (s *service) Resolve(ctx context.Context, phone, token string) (*models.Identity, error) {
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	// Joint phone+token lookup: a guessed token alone must never expose a
	// different phone's orders.
	identity, err := s.repo.FindByPhoneAndToken(ctx, phone, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "identity not found").
				WithSuggestion("check the phone number and token from your order confirmation")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve identity")
	}
	return identity, nil
}

func (s *service) ResolveByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}
	identity, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "identity not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve identity by phone")
	}
	return identity, nil
}

func (s *service) ResolveByToken(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	identity, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "token not found").
				WithSuggestion("request a new token with your phone number")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve identity by token")
	}
	return identity, nil
}

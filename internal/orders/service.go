package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/printly/printly-backend/internal/identity"
	"github.com/printly/printly-backend/pkg/db/models"
	dbtypes "github.com/printly/printly-backend/pkg/db/types"
	"github.com/printly/printly-backend/pkg/enums"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/logger"
	"github.com/printly/printly-backend/pkg/metrics"
	"github.com/printly/printly-backend/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// detachAttempts bounds the read-check-write loop when a concurrent mutation
// bumps the order version between our read and our guarded write.
const detachAttempts = 2

// Service owns the order lifecycle: intake, self-service cancellation, file
// detachment with price recomputation, and the permissive admin update.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)
	Get(ctx context.Context, orderID, identityID uuid.UUID) (*models.PrintOrder, error)
	ListForIdentity(ctx context.Context, identityID uuid.UUID) ([]models.PrintOrder, error)
	ListAll(ctx context.Context, filters ListFilters) ([]models.PrintOrder, error)
	Cancel(ctx context.Context, orderID, identityID uuid.UUID) error
	RemoveFile(ctx context.Context, input RemoveFileInput) (*models.PrintOrder, error)
	AdminUpdate(ctx context.Context, input AdminUpdateInput) (*models.PrintOrder, error)
}

type service struct {
	repo       Repository
	identities identity.Service
	blobs      storage.Store
	pricer     Pricer
	logg       *logger.Logger
	metrics    *metrics.ShopMetrics
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, identities identity.Service, blobs storage.Store, pricer Pricer, logg *logger.Logger, shopMetrics *metrics.ShopMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity service required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if pricer.PricePerPage <= 0 {
		return nil, fmt.Errorf("price per page must be positive")
	}
	return &service{
		repo:       repo,
		identities: identities,
		blobs:      blobs,
		pricer:     pricer,
		logg:       logg,
		metrics:    shopMetrics,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	// Validation order matters for error attribution: presence, phone
	// format, counts, files, then the token checks.
	if input.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	if err := identity.ValidatePhone(input.Phone); err != nil {
		return nil, err
	}
	if input.Copies < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "copies must be at least 1")
	}
	if input.TotalPages < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total pages must be at least 1")
	}
	if len(input.Files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one file is required")
	}
	for _, file := range input.Files {
		if err := file.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file descriptor")
		}
	}
	if !input.IsNewUser && input.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required").
			WithSuggestion("check new user if you do not have a token yet")
	}

	owner, token, err := s.resolveOwner(ctx, input)
	if err != nil {
		return nil, err
	}

	order := &models.PrintOrder{
		IdentityID:    owner.ID,
		Token:         token,
		Copies:        input.Copies,
		TotalPages:    input.TotalPages,
		Files:         dbtypes.FileList(input.Files),
		TotalAmount:   s.pricer.Amount(input.TotalPages, input.Copies),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Notes:         input.Notes,
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
	}

	s.metrics.IncOrderCreated()

	return &CreateOutput{
		OrderID:     created.ID,
		Token:       token,
		IsNewUser:   input.IsNewUser,
		TotalAmount: created.TotalAmount,
	}, nil
}

// resolveOwner binds the order to an identity. New users must not shadow an
// existing phone; returning users go through a two-step token check so the
// caller learns whether the token is unknown or merely bound to another phone.
func (s *service) resolveOwner(ctx context.Context, input CreateInput) (*models.Identity, string, error) {
	if input.IsNewUser {
		grant, err := s.issueForNewPhone(ctx, input.Phone)
		if err != nil {
			return nil, "", err
		}
		owner, err := s.identities.Resolve(ctx, input.Phone, grant.Token)
		if err != nil {
			return nil, "", err
		}
		return owner, grant.Token, nil
	}

	owner, err := s.identities.ResolveByToken(ctx, input.Token)
	if err != nil {
		return nil, "", err
	}
	if owner.Phone != input.Phone {
		return nil, "", pkgerrors.New(pkgerrors.CodeConflict, "token does not match phone").
			WithSuggestion("use the phone number the token was issued for")
	}
	return owner, owner.Token, nil
}

func (s *service) issueForNewPhone(ctx context.Context, phone string) (*identity.TokenGrant, error) {
	// Check for the duplicate before issuing: IssueOrRotate on a known phone
	// would rotate its token and orphan the customer's history behind a token
	// they never saw.
	_, err := s.identities.ResolveByPhone(ctx, phone)
	if err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "phone already registered").
			WithSuggestion("uncheck new user and enter your token")
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		return nil, err
	}

	grant, err := s.identities.IssueOrRotate(ctx, phone)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// Get returns a single order. A non-nil identityID restricts the lookup to
// that identity's own orders; admin callers pass uuid.Nil.
func (s *service) Get(ctx context.Context, orderID, identityID uuid.UUID) (*models.PrintOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if identityID != uuid.Nil && order.IdentityID != identityID {
		// Not-found rather than forbidden: the order's existence is not the
		// caller's to learn.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForIdentity(ctx context.Context, identityID uuid.UUID) ([]models.PrintOrder, error) {
	if identityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identity id required")
	}
	listed, err := s.repo.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return listed, nil
}

func (s *service) ListAll(ctx context.Context, filters ListFilters) ([]models.PrintOrder, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	if filters.PaymentStatus != nil && !filters.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status filter")
	}
	listed, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return listed, nil
}

func (s *service) Cancel(ctx context.Context, orderID, identityID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if identityID != uuid.Nil && order.IdentityID != identityID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to identity")
	}
	if order.Status.IsTerminal() {
		return terminalStateError(order.Status)
	}
	if order.PaymentStatus.IsProcessed() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already processed").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus}).
			WithSuggestion("contact the shop to cancel an order that is already paid")
	}

	updates := map[string]any{"status": enums.OrderStatusCancelled}
	if err := s.repo.UpdateGuarded(ctx, order.ID, order.Version, updates); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return concurrentUpdateError()
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	s.metrics.IncOrderTransition(enums.OrderStatusCancelled.String())
	return nil
}

func (s *service) RemoveFile(ctx context.Context, input RemoveFileInput) (*models.PrintOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.FileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name required")
	}

	var lastErr error
	for attempt := 0; attempt < detachAttempts; attempt++ {
		order, err := s.detachOnce(ctx, input)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, lastErr, "order was modified concurrently").
		WithSuggestion("reload the order and try again")
}

// detachOnce performs one read-check-write pass of the removal rule: delete
// the blob best-effort, drop the descriptor, then either cancel the order
// (last file gone, totals untouched) or recompute pages and amount from the
// remaining files. The cancel-vs-recompute branch is the core business rule;
// do not merge or reorder the steps.
func (s *service) detachOnce(ctx context.Context, input RemoveFileInput) (*models.PrintOrder, error) {
	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if input.IdentityID != uuid.Nil && order.IdentityID != input.IdentityID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to identity")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not editable").
			WithDetails(map[string]any{"status": order.Status})
	}

	idx := order.Files.IndexByName(input.FileName)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	}
	removed := order.Files[idx]

	// The order record is authoritative; a failed blob delete is logged and
	// swallowed.
	if err := s.blobs.Delete(ctx, removed.StorageKey); err != nil && s.logg != nil {
		lctx := s.logg.WithOrderID(ctx, order.ID.String())
		lctx = s.logg.WithField(lctx, "storage_key", removed.StorageKey)
		s.logg.Warn(lctx, "blob delete failed during file removal")
	}

	remaining := make(dbtypes.FileList, 0, len(order.Files)-1)
	remaining = append(remaining, order.Files[:idx]...)
	remaining = append(remaining, order.Files[idx+1:]...)

	if len(remaining) == 0 {
		updates := map[string]any{
			"files":  dbtypes.FileList{},
			"status": enums.OrderStatusCancelled,
		}
		if err := s.repo.UpdateGuarded(ctx, order.ID, order.Version, updates); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return nil, err
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel emptied order")
		}
		order.Files = dbtypes.FileList{}
		order.Status = enums.OrderStatusCancelled
		order.Version++
		s.metrics.IncFileRemoved()
		s.metrics.IncOrderTransition(enums.OrderStatusCancelled.String())
		return order, nil
	}

	totalPages := remaining.TotalPages()
	totalAmount := s.pricer.Amount(totalPages, order.Copies)
	updates := map[string]any{
		"files":        remaining,
		"total_pages":  totalPages,
		"total_amount": totalAmount,
	}
	if err := s.repo.UpdateGuarded(ctx, order.ID, order.Version, updates); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order after file removal")
	}

	order.Files = remaining
	order.TotalPages = totalPages
	order.TotalAmount = totalAmount
	order.Version++
	s.metrics.IncFileRemoved()
	return order, nil
}

func (s *service) AdminUpdate(ctx context.Context, input AdminUpdateInput) (*models.PrintOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Status == nil && input.PaymentStatus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.PaymentStatus != nil && !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	// No transition graph here: the administrator may set any enum value to
	// correct mistakes, including moving payment status backwards.
	updates := map[string]any{}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.PaymentStatus != nil {
		updates["payment_status"] = *input.PaymentStatus
	}

	if err := s.repo.UpdateGuarded(ctx, order.ID, order.Version, updates); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, concurrentUpdateError()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}

	if input.Status != nil {
		order.Status = *input.Status
		s.metrics.IncOrderTransition(input.Status.String())
	}
	if input.PaymentStatus != nil {
		order.PaymentStatus = *input.PaymentStatus
	}
	order.Version++
	return order, nil
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.PrintOrder, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func terminalStateError(status enums.OrderStatus) *pkgerrors.Error {
	message := "order already cancelled"
	if status == enums.OrderStatusCompleted {
		message = "order already completed"
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{"status": status})
}

func concurrentUpdateError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently").
		WithSuggestion("reload the order and try again")
}

package orders

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/printly/printly-backend/internal/identity"
	"github.com/printly/printly-backend/pkg/db/models"
	dbtypes "github.com/printly/printly-backend/pkg/db/types"
	"github.com/printly/printly-backend/pkg/enums"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubOrderRepo struct {
	mu           sync.Mutex
	byID         map[uuid.UUID]*models.PrintOrder
	conflictNext int
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{byID: map[uuid.UUID]*models.PrintOrder{}}
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrderRepo) Create(ctx context.Context, order *models.PrintOrder) (*models.PrintOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	stored := *order
	s.byID[order.ID] = &stored
	return order, nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PrintOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrderRepo) ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]models.PrintOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PrintOrder
	for _, order := range s.byID {
		if order.IdentityID == identityID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubOrderRepo) List(ctx context.Context, filters ListFilters) ([]models.PrintOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PrintOrder
	for _, order := range s.byID {
		if filters.Status != nil && order.Status != *filters.Status {
			continue
		}
		if filters.PaymentStatus != nil && order.PaymentStatus != *filters.PaymentStatus {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (s *stubOrderRepo) UpdateGuarded(ctx context.Context, id uuid.UUID, version int, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflictNext > 0 {
		s.conflictNext--
		return ErrVersionConflict
	}
	order, ok := s.byID[id]
	if !ok || order.Version != version {
		return ErrVersionConflict
	}
	for key, value := range updates {
		switch key {
		case "status":
			order.Status = value.(enums.OrderStatus)
		case "payment_status":
			order.PaymentStatus = value.(enums.PaymentStatus)
		case "files":
			order.Files = value.(dbtypes.FileList)
		case "total_pages":
			order.TotalPages = value.(int)
		case "total_amount":
			order.TotalAmount = value.(int)
		}
	}
	order.Version = version + 1
	return nil
}

type stubIdentityService struct {
	mu      sync.Mutex
	byPhone map[string]*models.Identity
}

func newStubIdentityService() *stubIdentityService {
	return &stubIdentityService{byPhone: map[string]*models.Identity{}}
}

func (s *stubIdentityService) seed(phone, token string) *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := &models.Identity{ID: uuid.New(), Phone: phone, Token: token}
	s.byPhone[phone] = stored
	return stored
}

func (s *stubIdentityService) IssueOrRotate(ctx context.Context, phone string) (*identity.TokenGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byPhone[phone]; ok {
		existing.Token = fmt.Sprintf("PT-ROTATED%d", len(s.byPhone))
		return &identity.TokenGrant{Token: existing.Token, IsNewIdentity: false}, nil
	}
	token := fmt.Sprintf("PT-FRESH%d", len(s.byPhone))
	s.byPhone[phone] = &models.Identity{ID: uuid.New(), Phone: phone, Token: token}
	return &identity.TokenGrant{Token: token, IsNewIdentity: true}, nil
}

func (s *stubIdentityService) Resolve(ctx context.Context, phone, token string) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byPhone[phone]
	if !ok || stored.Token != token {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "identity not found")
	}
	copied := *stored
	return &copied, nil
}

func (s *stubIdentityService) ResolveByToken(ctx context.Context, token string) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.byPhone {
		if stored.Token == token {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "token not found")
}

func (s *stubIdentityService) ResolveByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byPhone[phone]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "identity not found")
	}
	copied := *stored
	return &copied, nil
}

type stubBlobStore struct {
	mu        sync.Mutex
	deleted   []string
	deleteErr error
}

func (s *stubBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	return "stub://" + key, nil
}

func (s *stubBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	return nil
}

type orderFixture struct {
	svc        Service
	repo       *stubOrderRepo
	identities *stubIdentityService
	blobs      *stubBlobStore
	phoneSeq   int
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	repo := newStubOrderRepo()
	identities := newStubIdentityService()
	blobs := &stubBlobStore{}
	svc, err := NewService(repo, identities, blobs, Pricer{PricePerPage: 5}, nil, nil)
	require.NoError(t, err)
	return &orderFixture{svc: svc, repo: repo, identities: identities, blobs: blobs}
}

func testFiles() []dbtypes.FileDescriptor {
	return []dbtypes.FileDescriptor{
		{Name: "thesis.pdf", StorageKey: "u1/thesis.pdf", Size: 1024, MimeType: "application/pdf", Pages: 12},
		{Name: "cover.docx", StorageKey: "u1/cover.docx", Size: 512, MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Pages: 3},
	}
}

// createOrder registers a fresh identity each call so tests can create any
// number of independent orders.
func (f *orderFixture) createOrder(t *testing.T) (*CreateOutput, *models.PrintOrder) {
	t.Helper()
	f.phoneSeq++
	out, err := f.svc.Create(context.Background(), CreateInput{
		Phone:      fmt.Sprintf("98765%05d", f.phoneSeq),
		IsNewUser:  true,
		Copies:     2,
		TotalPages: 15,
		Files:      testFiles(),
	})
	require.NoError(t, err)
	order, err := f.repo.FindByID(context.Background(), out.OrderID)
	require.NoError(t, err)
	return out, order
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
	return typed
}

func TestCreateValidatesInput(t *testing.T) {
	f := newOrderFixture(t)

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"missing phone", CreateInput{IsNewUser: true, Copies: 1, TotalPages: 1, Files: testFiles()}},
		{"bad phone", CreateInput{Phone: "12345", IsNewUser: true, Copies: 1, TotalPages: 1, Files: testFiles()}},
		{"zero copies", CreateInput{Phone: "9876543210", IsNewUser: true, TotalPages: 1, Files: testFiles()}},
		{"zero pages", CreateInput{Phone: "9876543210", IsNewUser: true, Copies: 1, Files: testFiles()}},
		{"no files", CreateInput{Phone: "9876543210", IsNewUser: true, Copies: 1, TotalPages: 1}},
		{"returning without token", CreateInput{Phone: "9876543210", Copies: 1, TotalPages: 1, Files: testFiles()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tc.input)
			assertCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestCreateNewUserPricesOrder(t *testing.T) {
	f := newOrderFixture(t)

	out, order := f.createOrder(t)
	assert.True(t, out.IsNewUser)
	assert.NotEmpty(t, out.Token)
	// 15 pages x 2 copies x 5 per page.
	assert.Equal(t, 150, out.TotalAmount)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, out.Token, order.Token)
}

func TestCreateNewUserRejectsKnownPhone(t *testing.T) {
	f := newOrderFixture(t)
	f.identities.seed("9876543210", "PT-EXISTING")

	_, err := f.svc.Create(context.Background(), CreateInput{
		Phone:      "9876543210",
		IsNewUser:  true,
		Copies:     1,
		TotalPages: 1,
		Files:      testFiles(),
	})
	typed := assertCode(t, err, pkgerrors.CodeConflict)
	assert.Equal(t, "phone already registered", typed.Message())

	// The rejection must not have rotated the existing token.
	stored, err := f.identities.ResolveByPhone(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "PT-EXISTING", stored.Token)
}

func TestCreateReturningUserChecksTokenThenPhone(t *testing.T) {
	f := newOrderFixture(t)
	f.identities.seed("9876543210", "PT-KNOWN")

	// Unknown token reports not-found, not a phone mismatch.
	_, err := f.svc.Create(context.Background(), CreateInput{
		Phone: "9876543210", Token: "PT-UNKNOWN",
		Copies: 1, TotalPages: 1, Files: testFiles(),
	})
	typed := assertCode(t, err, pkgerrors.CodeNotFound)
	assert.Equal(t, "token not found", typed.Message())

	// Known token bound to a different phone is a conflict.
	_, err = f.svc.Create(context.Background(), CreateInput{
		Phone: "9876543211", Token: "PT-KNOWN",
		Copies: 1, TotalPages: 1, Files: testFiles(),
	})
	typed = assertCode(t, err, pkgerrors.CodeConflict)
	assert.Equal(t, "token does not match phone", typed.Message())
}

func TestCreateReturningUserKeepsToken(t *testing.T) {
	f := newOrderFixture(t)
	owner := f.identities.seed("9876543210", "PT-KNOWN")

	out, err := f.svc.Create(context.Background(), CreateInput{
		Phone: "9876543210", Token: "PT-KNOWN",
		Copies: 3, TotalPages: 4, Files: testFiles(),
	})
	require.NoError(t, err)
	assert.False(t, out.IsNewUser)
	assert.Equal(t, "PT-KNOWN", out.Token)
	assert.Equal(t, 60, out.TotalAmount)

	order, err := f.repo.FindByID(context.Background(), out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, order.IdentityID)
}

func TestGetHidesForeignOrders(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)

	got, err := f.svc.Get(context.Background(), order.ID, order.IdentityID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.svc.Get(context.Background(), order.ID, uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)

	// Admin lookups skip the ownership check.
	_, err = f.svc.Get(context.Background(), order.ID, uuid.Nil)
	require.NoError(t, err)
}

func TestCancelTransitionsPendingOrder(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)

	require.NoError(t, f.svc.Cancel(context.Background(), order.ID, order.IdentityID))

	updated, err := f.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, updated.Status)
}

func TestCancelRejectsForeignOrder(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)

	err := f.svc.Cancel(context.Background(), order.ID, uuid.New())
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestCancelRejectsTerminalOrders(t *testing.T) {
	f := newOrderFixture(t)

	for _, tc := range []struct {
		status  enums.OrderStatus
		message string
	}{
		{enums.OrderStatusCompleted, "order already completed"},
		{enums.OrderStatusCancelled, "order already cancelled"},
	} {
		_, order := f.createOrder(t)
		f.repo.byID[order.ID].Status = tc.status

		err := f.svc.Cancel(context.Background(), order.ID, order.IdentityID)
		typed := assertCode(t, err, pkgerrors.CodeStateConflict)
		assert.Equal(t, tc.message, typed.Message())
	}
}

func TestCancelRejectsProcessedPayment(t *testing.T) {
	f := newOrderFixture(t)

	for _, payment := range []enums.PaymentStatus{enums.PaymentStatusPaid, enums.PaymentStatusVerified} {
		_, order := f.createOrder(t)
		f.repo.byID[order.ID].PaymentStatus = payment

		err := f.svc.Cancel(context.Background(), order.ID, order.IdentityID)
		typed := assertCode(t, err, pkgerrors.CodeStateConflict)
		assert.Equal(t, "payment already processed", typed.Message())
		assert.NotEmpty(t, typed.Suggestion())
	}
}

func TestRemoveFileRecomputesTotals(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)

	updated, err := f.svc.RemoveFile(context.Background(), RemoveFileInput{
		OrderID:    order.ID,
		IdentityID: order.IdentityID,
		FileName:   "thesis.pdf",
	})
	require.NoError(t, err)

	require.Len(t, updated.Files, 1)
	assert.Equal(t, "cover.docx", updated.Files[0].Name)
	// 3 remaining pages x 2 copies x 5 per page.
	assert.Equal(t, 3, updated.TotalPages)
	assert.Equal(t, 30, updated.TotalAmount)
	assert.Equal(t, enums.OrderStatusPending, updated.Status)
	assert.Contains(t, f.blobs.deleted, "u1/thesis.pdf")
}

func TestRemoveLastFileCancelsOrder(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)

	_, err := f.svc.RemoveFile(context.Background(), RemoveFileInput{
		OrderID: order.ID, IdentityID: order.IdentityID, FileName: "thesis.pdf",
	})
	require.NoError(t, err)

	updated, err := f.svc.RemoveFile(context.Background(), RemoveFileInput{
		OrderID: order.ID, IdentityID: order.IdentityID, FileName: "cover.docx",
	})
	require.NoError(t, err)

	assert.Empty(t, updated.Files)
	assert.Equal(t, enums.OrderStatusCancelled, updated.Status)
	// The amount is left as-is when the order cancels itself; nothing is owed
	// on a cancelled order regardless of the figure.
	assert.Equal(t, 30, updated.TotalAmount)
}

func TestRemoveFileRequiresPendingOrder(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)
	f.repo.byID[order.ID].Status = enums.OrderStatusCompleted

	_, err := f.svc.RemoveFile(context.Background(), RemoveFileInput{
		OrderID: order.ID, IdentityID: order.IdentityID, FileName: "thesis.pdf",
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestRemoveFileReportsUnknownName(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)

	_, err := f.svc.RemoveFile(context.Background(), RemoveFileInput{
		OrderID: order.ID, IdentityID: order.IdentityID, FileName: "missing.pdf",
	})
	typed := assertCode(t, err, pkgerrors.CodeNotFound)
	assert.Equal(t, "file not found", typed.Message())
}

func TestRemoveFileSurvivesBlobDeleteFailure(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)
	f.blobs.deleteErr = fmt.Errorf("bucket unavailable")

	updated, err := f.svc.RemoveFile(context.Background(), RemoveFileInput{
		OrderID: order.ID, IdentityID: order.IdentityID, FileName: "thesis.pdf",
	})
	require.NoError(t, err)
	assert.Len(t, updated.Files, 1)
}

func TestRemoveFileRetriesVersionConflictOnce(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)
	f.repo.conflictNext = 1

	updated, err := f.svc.RemoveFile(context.Background(), RemoveFileInput{
		OrderID: order.ID, IdentityID: order.IdentityID, FileName: "thesis.pdf",
	})
	require.NoError(t, err)
	assert.Len(t, updated.Files, 1)
}

func TestRemoveFileGivesUpOnRepeatedConflicts(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)
	f.repo.conflictNext = detachAttempts

	_, err := f.svc.RemoveFile(context.Background(), RemoveFileInput{
		OrderID: order.ID, IdentityID: order.IdentityID, FileName: "thesis.pdf",
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestAdminUpdateSetsEitherField(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)

	status := enums.OrderStatusCompleted
	payment := enums.PaymentStatusVerified
	updated, err := f.svc.AdminUpdate(context.Background(), AdminUpdateInput{
		OrderID:       order.ID,
		Status:        &status,
		PaymentStatus: &payment,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, updated.Status)
	assert.Equal(t, enums.PaymentStatusVerified, updated.PaymentStatus)
}

func TestAdminUpdateAllowsAnyTransition(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)
	f.repo.byID[order.ID].Status = enums.OrderStatusCancelled

	// Admin corrections are unrestricted, including reviving a cancelled
	// order.
	status := enums.OrderStatusPending
	updated, err := f.svc.AdminUpdate(context.Background(), AdminUpdateInput{
		OrderID: order.ID,
		Status:  &status,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, updated.Status)
}

func TestAdminUpdateValidatesInput(t *testing.T) {
	f := newOrderFixture(t)
	_, order := f.createOrder(t)

	_, err := f.svc.AdminUpdate(context.Background(), AdminUpdateInput{OrderID: order.ID})
	assertCode(t, err, pkgerrors.CodeValidation)

	bad := enums.OrderStatus("SHIPPED")
	_, err = f.svc.AdminUpdate(context.Background(), AdminUpdateInput{OrderID: order.ID, Status: &bad})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestListAllFiltersByStatus(t *testing.T) {
	f := newOrderFixture(t)
	_, first := f.createOrder(t)
	f.repo.byID[first.ID].Status = enums.OrderStatusCompleted
	f.createOrder(t)

	status := enums.OrderStatusCompleted
	listed, err := f.svc.ListAll(context.Background(), ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, first.ID, listed[0].ID)
}

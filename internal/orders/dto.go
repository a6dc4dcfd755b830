package orders

import (
	dbtypes "github.com/printly/printly-backend/pkg/db/types"
	"github.com/printly/printly-backend/pkg/enums"
	"github.com/google/uuid"
)

// CreateInput carries everything order intake needs. Exactly one of the two
// identity selectors applies: IsNewUser true means the caller has no token
// yet; otherwise Token must name an existing identity whose phone matches.
type CreateInput struct {
	Phone      string
	IsNewUser  bool
	Token      string
	Copies     int
	TotalPages int
	Notes      *string
	Files      []dbtypes.FileDescriptor
}

// CreateOutput is returned to the customer after intake. The WhatsApp links
// are filled in at the transport layer when a shop number is configured.
type CreateOutput struct {
	OrderID     uuid.UUID `json:"order_id"`
	Token       string    `json:"token"`
	IsNewUser   bool      `json:"is_new_user"`
	TotalAmount int       `json:"total_amount"`
	ContactLink string    `json:"contact_link,omitempty"`
	PaymentLink string    `json:"payment_link,omitempty"`
}

// RemoveFileInput identifies the file to detach and proves ownership.
type RemoveFileInput struct {
	OrderID    uuid.UUID
	IdentityID uuid.UUID
	FileName   string
}

// AdminUpdateInput allows the administrator to set either enum independently.
type AdminUpdateInput struct {
	OrderID       uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

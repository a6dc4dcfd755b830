package models

import (
	"time"

	dbtypes "github.com/printly/printly-backend/pkg/db/types"
	"github.com/printly/printly-backend/pkg/enums"
	"github.com/google/uuid"
)

// PrintOrder is a single print job: files, copies, computed price, status and
// payment status. TotalAmount is always derived; it is recomputed whenever
// TotalPages or Files change and never edited directly.
//
// Token stores the identity token as it was at creation time for display in
// the tracking UI; lookups resolve against the identity's current token.
type PrintOrder struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	IdentityID    uuid.UUID           `gorm:"type:uuid;not null;index" json:"identity_id"`
	Token         string              `gorm:"type:text;not null" json:"token"`
	Copies        int                 `gorm:"not null" json:"copies"`
	TotalPages    int                 `gorm:"column:total_pages;not null" json:"total_pages"`
	Files         dbtypes.FileList    `gorm:"type:jsonb;not null;default:'[]'" json:"files"`
	TotalAmount   int                 `gorm:"column:total_amount;not null" json:"total_amount"`
	Status        enums.OrderStatus   `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PENDING'" json:"payment_status"`
	Notes         *string             `gorm:"type:text" json:"notes,omitempty"`

	// Version guards concurrent mutations on the same order; every committed
	// write increments it and stale writers retry or fail.
	Version int `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Identity *Identity `gorm:"foreignKey:IdentityID" json:"-"`
}

// TableName pins the table name.
func (PrintOrder) TableName() string {
	return "print_orders"
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the phone-number-keyed customer record. The token is the only
// recovery credential for tracking orders; it rotates on request and is never
// reused.
type Identity struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Phone     string     `gorm:"type:text;not null;uniqueIndex" json:"phone"`
	Token     string     `gorm:"type:text;not null;uniqueIndex" json:"token"`
	Verified  bool       `gorm:"not null;default:false" json:"verified"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Orders []PrintOrder `gorm:"foreignKey:IdentityID" json:"orders,omitempty"`
}

// TableName pins the table name.
func (Identity) TableName() string {
	return "identities"
}

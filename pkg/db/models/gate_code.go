package models

import (
	"time"

	"github.com/google/uuid"
)

// GateCode stores an encrypted property access code. ReferenceID points at a
// cart item while the cart is open and at an order item after checkout.
type GateCode struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ReferenceID uuid.UUID  `gorm:"column:reference_id;type:uuid;not null"`
	Ciphertext  string     `gorm:"column:ciphertext;not null"`
	IV          string     `gorm:"column:iv;not null"`
	AuthTag     string     `gorm:"column:auth_tag;not null"`
	CreatedBy   *string    `gorm:"column:created_by"`
	AccessedAt  *time.Time `gorm:"column:accessed_at"`
	AccessedBy  *string    `gorm:"column:accessed_by"`
	DeletedAt   *time.Time `gorm:"column:deleted_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

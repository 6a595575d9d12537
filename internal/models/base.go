package models

import (
	"time"

	"monetra/internal/uuid"

	"gorm.io/gorm"
)

// Base is embedded by every model and carries the shared columns.
// IDs are UUIDv7 strings so primary keys sort by creation time.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate assigns an ID when the caller has not set one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

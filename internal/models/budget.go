package models

// Budget is the single monthly spending limit for a user. Limit is an
// encrypted decimal stored as text. At most one row per user; writes use
// create-or-update semantics, never append.
type Budget struct {
	Base
	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	// Encrypted decimal-as-text
	Limit string `gorm:"column:limit_amount;type:text;not null" json:"-"`
}

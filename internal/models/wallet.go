package models

// WalletType represents the type of wallet
type WalletType string

const (
	WalletTypeBank    WalletType = "BANK"
	WalletTypeCash    WalletType = "CASH"
	WalletTypeEWallet WalletType = "E_WALLET"
	WalletTypeOther   WalletType = "OTHER"
)

// ValidWalletType reports whether t is one of the enumerated wallet types.
func ValidWalletType(t WalletType) bool {
	switch t {
	case WalletTypeBank, WalletTypeCash, WalletTypeEWallet, WalletTypeOther:
		return true
	}
	return false
}

// Wallet represents a user's wallet. Balance is an encrypted decimal
// stored as text and is mutated only through ledger transaction
// side-effects, never directly.
type Wallet struct {
	Base
	UserID string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string     `gorm:"not null" json:"name"`
	Type   WalletType `gorm:"not null;default:'OTHER'" json:"type"`

	// Encrypted decimal-as-text
	Balance string `gorm:"type:text" json:"-"`

	// At most one default wallet per user; enforced by the wallet
	// service clearing other defaults in the same transaction, backed
	// by a partial unique index in the SQL schema.
	IsDefault bool `gorm:"default:false" json:"is_default"`

	Transactions []Transaction `gorm:"foreignKey:WalletID" json:"transactions,omitempty"`
}

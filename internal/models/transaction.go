package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// ValidTransactionType reports whether t is one of the two ledger types.
func ValidTransactionType(t TransactionType) bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// CategoryRecurring is the fixed category assigned to transactions
// materialized from recurring templates.
const CategoryRecurring = "Recurring"

// Transaction represents a financial transaction in the ledger.
// Merchant, Amount and Description are encrypted text columns. Amount is
// always a positive decimal string before encryption; the sign is carried
// by Type, never embedded in the stored amount.
type Transaction struct {
	Base
	UserID   string  `gorm:"type:uuid;not null;index" json:"user_id"`
	WalletID *string `gorm:"type:uuid;index" json:"wallet_id,omitempty"`

	// Encrypted fields
	Merchant    string `gorm:"type:text" json:"merchant"`
	Amount      string `gorm:"type:text;not null" json:"amount"`
	Description string `gorm:"type:text" json:"description"`

	Category string          `gorm:"not null" json:"category"`
	Type     TransactionType `gorm:"not null" json:"type"`
	Date     time.Time       `gorm:"not null;index" json:"date"`

	Wallet *Wallet `gorm:"foreignKey:WalletID" json:"wallet,omitempty"`
}

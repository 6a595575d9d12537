package models

// UserRole represents the role of a user
type UserRole string

const (
	UserRoleMember UserRole = "member"
	UserRoleAdmin  UserRole = "admin"
)

// UserPlan represents the subscription plan of a user
type UserPlan string

const (
	UserPlanFree    UserPlan = "free"
	UserPlanPremium UserPlan = "premium"
)

// User represents the user model in the database.
// TradingBalance is an encrypted decimal stored as text; it is mutated
// only by the trading ledger inside the same database transaction as the
// trade or transfer that motivated the change.
type User struct {
	Base
	Email    string   `gorm:"uniqueIndex;not null" json:"email"`
	Password string   `gorm:"not null" json:"-"`
	Name     string   `json:"name"`
	Role     UserRole `gorm:"not null;default:'member'" json:"role"`
	Plan     UserPlan `gorm:"not null;default:'free'" json:"plan"`

	// Encrypted decimal-as-text
	TradingBalance string `gorm:"type:text" json:"-"`

	// Per-alert-kind notification toggles
	AlertBudget50  bool `gorm:"column:alert_budget_50;default:true" json:"alert_budget_50"`
	AlertBudget80  bool `gorm:"column:alert_budget_80;default:true" json:"alert_budget_80"`
	AlertBudget95  bool `gorm:"column:alert_budget_95;default:true" json:"alert_budget_95"`
	AlertBudget100 bool `gorm:"column:alert_budget_100;default:true" json:"alert_budget_100"`
	AlertRecurring bool `gorm:"default:true" json:"alert_recurring"`

	// Push delivery token, empty when the client never registered
	FCMToken string `json:"-"`

	Wallets       []Wallet       `gorm:"foreignKey:UserID" json:"wallets,omitempty"`
	Transactions  []Transaction  `gorm:"foreignKey:UserID" json:"transactions,omitempty"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"notifications,omitempty"`
}

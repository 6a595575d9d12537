package models

// Denormalized per-user running sums maintained by the aggregate service.
// All monetary columns are encrypted decimal-as-text. Key columns carry
// composite unique indexes so concurrent upserts for the same key resolve
// as a conflict instead of a duplicate row.

// MonthlyAggregate holds income/expense totals keyed by (userId, monthKey).
// MonthKey is "YYYY-MM". Version is checked as a compare-and-swap on every
// overwrite.
type MonthlyAggregate struct {
	Base
	UserID   string `gorm:"type:uuid;not null;uniqueIndex:idx_monthly_user_month" json:"user_id"`
	MonthKey string `gorm:"size:7;not null;uniqueIndex:idx_monthly_user_month" json:"month_key"`

	// Encrypted decimal-as-text
	Income  string `gorm:"type:text" json:"-"`
	Expense string `gorm:"type:text" json:"-"`

	Version int64 `gorm:"not null;default:0" json:"version"`
}

// DailyAggregate holds income/expense totals keyed by (userId, dayKey).
// DayKey is "YYYY-MM-DD".
type DailyAggregate struct {
	Base
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_daily_user_day" json:"user_id"`
	DayKey string `gorm:"size:10;not null;uniqueIndex:idx_daily_user_day" json:"day_key"`

	// Encrypted decimal-as-text
	Income  string `gorm:"type:text" json:"-"`
	Expense string `gorm:"type:text" json:"-"`
}

// CategoryAggregate holds a single total keyed by
// (userId, monthKey, category, type).
type CategoryAggregate struct {
	Base
	UserID   string          `gorm:"type:uuid;not null;uniqueIndex:idx_category_key" json:"user_id"`
	MonthKey string          `gorm:"size:7;not null;uniqueIndex:idx_category_key" json:"month_key"`
	Category string          `gorm:"not null;uniqueIndex:idx_category_key" json:"category"`
	Type     TransactionType `gorm:"not null;uniqueIndex:idx_category_key" json:"type"`

	// Encrypted decimal-as-text
	Amount string `gorm:"type:text" json:"-"`
}

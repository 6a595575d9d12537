package models

import "time"

// Frequency represents how often a recurring transaction fires
type Frequency string

const (
	FrequencyMonthly Frequency = "Monthly"
	FrequencyWeekly  Frequency = "Weekly"
	FrequencyYearly  Frequency = "Yearly"
)

// ValidFrequency reports whether f is one of the enumerated frequencies.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyMonthly, FrequencyWeekly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringTransaction is a template that the scheduler materializes into
// real ledger transactions. Name and Amount are encrypted text columns.
//
// Date is a day-of-month for Monthly and Yearly templates. For Weekly
// templates the field is ambiguous in the historical data (day-of-month
// vs day-of-week); the next occurrence is computed as creation/last-fire
// plus 7 days and the field is carried through untouched.
type RecurringTransaction struct {
	Base
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	// Encrypted fields
	Name   string `gorm:"type:text;not null" json:"name"`
	Amount string `gorm:"type:text;not null" json:"amount"`

	Frequency   Frequency `gorm:"not null" json:"frequency"`
	Date        int       `gorm:"not null" json:"date"`
	NextDueDate time.Time `gorm:"not null;index" json:"next_due_date"`
}

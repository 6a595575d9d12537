package models

// NotificationType classifies persisted alerts
type NotificationType string

const (
	NotificationTypeBudget    NotificationType = "budget"
	NotificationTypeRecurring NotificationType = "recurring"
)

// Notification is a persisted record of an alert sent to a user.
// Metadata is a JSON text column; the budget alert evaluator records the
// threshold it fired for there, which is what makes the once-per-month
// dedup check possible.
type Notification struct {
	Base
	UserID   string           `gorm:"type:uuid;not null;index" json:"user_id"`
	Type     NotificationType `gorm:"not null;index" json:"type"`
	Title    string           `gorm:"not null" json:"title"`
	Message  string           `gorm:"not null" json:"message"`
	IsRead   bool             `gorm:"default:false" json:"is_read"`
	Metadata string           `gorm:"type:text" json:"metadata,omitempty"`
}

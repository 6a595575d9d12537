package amqp

import (
	"encoding/json"
	"time"
)

// BudgetCheckMessage asks the worker to evaluate budget alerts for one
// user. It carries only the user ID; the worker reads current spending
// from the database.
type BudgetCheckMessage struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBudgetCheckMessage creates a budget check message for a user.
func NewBudgetCheckMessage(userID string) *BudgetCheckMessage {
	return &BudgetCheckMessage{
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetCheckMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetCheckMessageFromJSON creates a message from JSON bytes
func BudgetCheckMessageFromJSON(data []byte) (*BudgetCheckMessage, error) {
	var msg BudgetCheckMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package models

import "time"

// TradeStatus represents the lifecycle state of a trade
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "OPEN"
	TradeStatusClosed TradeStatus = "CLOSED"
)

// TradeOutcome is derived from the sign of the pnl at close time
type TradeOutcome string

const (
	TradeOutcomeWin       TradeOutcome = "WIN"
	TradeOutcomeLoss      TradeOutcome = "LOSS"
	TradeOutcomeBreakEven TradeOutcome = "BE"
)

// TradeDirection represents the side of a leveraged trade
type TradeDirection string

const (
	TradeDirectionLong  TradeDirection = "LONG"
	TradeDirectionShort TradeDirection = "SHORT"
)

// Trade is a leveraged trade recorded against the user's trading balance.
// Amount, EntryPrice, ClosePrice, Pnl and Notes are encrypted text columns.
type Trade struct {
	Base
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	Pair      string         `gorm:"not null" json:"pair"`
	Direction TradeDirection `gorm:"not null;default:'LONG'" json:"direction"`
	Leverage  int            `gorm:"not null;default:1" json:"leverage"`

	// Encrypted fields
	Amount     string `gorm:"type:text;not null" json:"-"`
	EntryPrice string `gorm:"type:text" json:"-"`
	ClosePrice string `gorm:"type:text" json:"-"`
	Pnl        string `gorm:"type:text" json:"-"`
	Notes      string `gorm:"type:text" json:"-"`

	Status  TradeStatus  `gorm:"not null;default:'CLOSED'" json:"status"`
	Outcome TradeOutcome `gorm:"not null;default:'BE'" json:"outcome"`

	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

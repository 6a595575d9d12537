package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"monetra/internal/models"
	"monetra/internal/pagination"
)

// WalletServicer defines the contract for wallet-related business logic.
type WalletServicer interface {
	CreateWallet(userID, name string, walletType models.WalletType, isDefault bool) (*models.Wallet, error)
	GetUserWallets(userID string) ([]WalletView, error)
	GetWalletByID(userID, walletID string) (*models.Wallet, error)
	GetOrCreateDefaultWallet(userID string) (*models.Wallet, error)
	SetDefaultWallet(userID, walletID string) error
	DeleteWallet(userID, walletID string) error
	Balance(userID, walletID string) (decimal.Decimal, error)

	// ApplyEffect adjusts a wallet balance for a ledger transaction inside
	// the caller's database transaction. RevertEffect undoes it.
	ApplyEffect(tx *gorm.DB, userID, walletID string, transactionType models.TransactionType, amount decimal.Decimal) error
	RevertEffect(tx *gorm.DB, userID, walletID string, transactionType models.TransactionType, amount decimal.Decimal) error

	// Reconcile recomputes every wallet balance for the user from the
	// transaction log, repairing and reporting any drift.
	Reconcile(userID string) ([]ReconcileResult, error)
}

// WalletView is a wallet with its balance decrypted.
type WalletView struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      models.WalletType `json:"type"`
	Balance   decimal.Decimal   `json:"balance"`
	IsDefault bool              `json:"is_default"`
	CreatedAt time.Time         `json:"created_at"`
}

// ReconcileResult reports the outcome of reconciling one wallet.
type ReconcileResult struct {
	WalletID string          `json:"wallet_id"`
	Stored   decimal.Decimal `json:"stored"`
	Computed decimal.Decimal `json:"computed"`
	Repaired bool            `json:"repaired"`
}

// TransactionInput holds the fields for creating a ledger transaction.
// Amounts are always positive; the sign is carried by Type.
type TransactionInput struct {
	WalletID    *string
	Merchant    string                 `validate:"required"`
	Amount      decimal.Decimal        `validate:"-"`
	Description string                 `validate:"-"`
	Category    string                 `validate:"required"`
	Type        models.TransactionType `validate:"required,transaction_type"`
	Date        time.Time              `validate:"-"`
}

// TransactionPatch holds optional updates for an existing transaction.
// Nil fields are left unchanged. ClearWallet detaches the transaction
// from its wallet; it takes precedence over WalletID.
type TransactionPatch struct {
	WalletID    *string
	ClearWallet bool
	Merchant    *string
	Amount      *decimal.Decimal
	Description *string
	Category    *string
	Type        *models.TransactionType
	Date        *time.Time
}

// TransactionView is a transaction with its encrypted fields decrypted.
type TransactionView struct {
	ID          string                 `json:"id"`
	WalletID    *string                `json:"wallet_id,omitempty"`
	Merchant    string                 `json:"merchant"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Type        models.TransactionType `json:"type"`
	Date        time.Time              `json:"date"`
	CreatedAt   time.Time              `json:"created_at"`
}

// TransactionServicer defines the contract for the ledger mutation core.
type TransactionServicer interface {
	Create(userID string, input TransactionInput) (*models.Transaction, error)
	Update(userID, transactionID string, patch TransactionPatch) (*models.Transaction, error)
	Delete(userID, transactionID string) error
	GetByID(userID, transactionID string) (*TransactionView, error)
	GetAll(userID string) ([]TransactionView, error)
	GetByMonth(userID string, month time.Month, year int) ([]TransactionView, error)
	GetPage(userID string, page pagination.PageRequest) (*pagination.PageResponse[TransactionView], error)

	// CreateWithDB inserts a transaction and applies its wallet effect
	// inside the caller's database transaction. Aggregate refresh and
	// budget-alert dispatch remain the caller's responsibility after
	// commit.
	CreateWithDB(tx *gorm.DB, userID string, input TransactionInput) (*models.Transaction, error)
}

// MonthlySummary is a monthly aggregate with decrypted totals.
type MonthlySummary struct {
	MonthKey string          `json:"month_key"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
}

// DailySummary is a daily aggregate with decrypted totals.
type DailySummary struct {
	DayKey  string          `json:"day_key"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CategorySummary is a category aggregate with its decrypted total.
type CategorySummary struct {
	MonthKey string                 `json:"month_key"`
	Category string                 `json:"category"`
	Type     models.TransactionType `json:"type"`
	Amount   decimal.Decimal        `json:"amount"`
}

// AggregateServicer maintains the denormalized per-user sums. Upserts
// take the full new value for a key; they never compute deltas.
type AggregateServicer interface {
	UpsertMonthly(userID, monthKey string, income, expense decimal.Decimal) error
	UpsertDaily(userID, dayKey string, income, expense decimal.Decimal) error
	UpsertCategory(userID, monthKey, category string, transactionType models.TransactionType, amount decimal.Decimal) error

	GetMonthly(userID, monthKey string) (*MonthlySummary, error)
	GetAllMonthly(userID string) ([]MonthlySummary, error)
	GetDaily(userID, dayKey string) (*DailySummary, error)
	GetDailyRange(userID, fromKey, toKey string) ([]DailySummary, error)
	GetCategories(userID, monthKey string) ([]CategorySummary, error)

	// RefreshDay recomputes the monthly, daily, and category buckets
	// touched by transactions on the given date.
	RefreshDay(userID string, day time.Time) error

	// RebuildUserAggregates recomputes every aggregate for the user from
	// the full transaction log. Running it twice yields identical totals.
	RebuildUserAggregates(userID string) error
}

// RecurringInput holds the fields for creating a recurring template.
type RecurringInput struct {
	Name      string           `validate:"required"`
	Amount    decimal.Decimal  `validate:"-"`
	Frequency models.Frequency `validate:"required,frequency"`
	Date      int              `validate:"min=1,max=31"`
}

// RecurringView is a recurring template with its encrypted fields decrypted.
type RecurringView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Amount      decimal.Decimal  `json:"amount"`
	Frequency   models.Frequency `json:"frequency"`
	Date        int              `json:"date"`
	NextDueDate time.Time        `json:"next_due_date"`
}

// RecurringServicer defines the contract for the recurring scheduler.
type RecurringServicer interface {
	Create(userID string, input RecurringInput) (*models.RecurringTransaction, error)
	GetAll(userID string) ([]RecurringView, error)
	Delete(userID, recurringID string) error

	// ProcessDueTransactions materializes every due template into a real
	// ledger transaction and advances its next due date by one period.
	// Per-item failures are logged and skipped; the sweep never aborts.
	ProcessDueTransactions(now time.Time) (int, error)
}

// BudgetView is the budget row with its limit decrypted.
type BudgetView struct {
	ID    string          `json:"id"`
	Limit decimal.Decimal `json:"limit"`
}

// BudgetServicer defines the contract for budgets and alert evaluation.
type BudgetServicer interface {
	// SetBudget creates or updates the user's single budget row.
	SetBudget(userID string, limit decimal.Decimal) (*models.Budget, error)
	GetBudget(userID string) (*BudgetView, error)

	// EvaluateBudgetAlerts recomputes the user's monthly spend against
	// their limit and sends at most one notification per threshold per
	// calendar month.
	EvaluateBudgetAlerts(userID string) error

	// EvaluateAllUsers runs the evaluator for every user with a budget.
	// Per-user failures are logged; the sweep continues.
	EvaluateAllUsers() (int, error)
}

// BudgetAlertDispatcher hands off budget-alert evaluation after a ledger
// mutation. Dispatch must never block or fail the triggering write.
type BudgetAlertDispatcher interface {
	Dispatch(userID string)
}

// NotificationServicer persists alerts and hands them to push delivery.
type NotificationServicer interface {
	Create(userID string, notificationType models.NotificationType, title, message string, metadata map[string]any) (*models.Notification, error)
	GetUserNotifications(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error)
	MarkRead(userID, notificationID string) error
	MarkAllRead(userID string) error
}

// TradeInput holds the fields for recording a closed trade.
type TradeInput struct {
	Pair       string                `validate:"required"`
	Direction  models.TradeDirection `validate:"required"`
	Leverage   int                   `validate:"min=1"`
	Amount     decimal.Decimal       `validate:"-"`
	EntryPrice decimal.Decimal       `validate:"-"`
	ClosePrice decimal.Decimal       `validate:"-"`
	Pnl        decimal.Decimal       `validate:"-"`
	Notes      string                `validate:"-"`
}

// TradeView is a trade with its encrypted fields decrypted.
type TradeView struct {
	ID        string                `json:"id"`
	Pair      string                `json:"pair"`
	Direction models.TradeDirection `json:"direction"`
	Leverage  int                   `json:"leverage"`
	Amount    decimal.Decimal       `json:"amount"`
	Pnl       decimal.Decimal       `json:"pnl"`
	Status    models.TradeStatus    `json:"status"`
	Outcome   models.TradeOutcome   `json:"outcome"`
	CreatedAt time.Time             `json:"created_at"`
}

// EquityPoint is one step of the running equity curve.
type EquityPoint struct {
	At     time.Time       `json:"at"`
	Equity decimal.Decimal `json:"equity"`
}

// TradeStats summarizes a user's trading history.
type TradeStats struct {
	TotalTrades int             `json:"total_trades"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	BreakEvens  int             `json:"break_evens"`
	TotalPnl    decimal.Decimal `json:"total_pnl"`
	BestPair    string          `json:"best_pair"`
	EquityCurve []EquityPoint   `json:"equity_curve"`
}

// TradeServicer defines the contract for the trading ledger.
type TradeServicer interface {
	CreateTrade(userID string, input TradeInput) (*models.Trade, error)
	GetUserTrades(userID string, page pagination.PageRequest) (*pagination.PageResponse[TradeView], error)
	TradingBalance(userID string) (decimal.Decimal, error)

	// Withdraw moves funds from the trading balance into the main ledger
	// as an income transaction. A converted amount, when provided, is
	// what lands in the ledger.
	Withdraw(userID string, amount decimal.Decimal, convertedAmount *decimal.Decimal) error

	// Deposit moves funds into the trading balance and records a
	// matching expense in the main ledger.
	Deposit(userID string, amount decimal.Decimal) error

	GetStats(userID string) (*TradeStats, error)
}

// Pusher delivers push notifications. Implementations must be nil-safe
// and must never let delivery failures propagate to callers.
type Pusher interface {
	Send(userID, token, title, body string, data map[string]string) error
}

package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"monetra/internal/codec"
	apperrors "monetra/internal/errors"
	"monetra/internal/logger"
	"monetra/internal/models"
)

// budgetService owns the single per-user budget row and the alert
// threshold evaluation that runs after every ledger mutation.
type budgetService struct {
	db            *gorm.DB
	codec         *codec.Codec
	notifications NotificationServicer
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, c *codec.Codec, notifications NotificationServicer) BudgetServicer {
	return &budgetService{db: db, codec: c, notifications: notifications}
}

// SetBudget creates or updates the user's budget limit. There is at most
// one budget row per user; repeated calls overwrite, never append.
func (s *budgetService) SetBudget(userID string, limit decimal.Decimal) (*models.Budget, error) {
	if !limit.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget limit must be greater than zero")
	}

	encrypted, err := s.codec.EncryptDecimal(limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budget models.Budget
	err = s.db.Where("user_id = ?", userID).First(&budget).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		budget = models.Budget{UserID: userID, Limit: encrypted}
		if err := s.db.Create(&budget).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return &budget, nil
	}

	if err := s.db.Model(&budget).Update("limit_amount", encrypted).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	budget.Limit = encrypted
	return &budget, nil
}

// GetBudget returns the user's budget with its limit decrypted.
func (s *budgetService) GetBudget(userID string) (*BudgetView, error) {
	var budget models.Budget
	if err := s.db.Where("user_id = ?", userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &BudgetView{
		ID:    budget.ID,
		Limit: s.codec.DecryptToDecimal(budget.Limit),
	}, nil
}

// alertThreshold pairs a ladder step with the toggle that gates it.
type alertThreshold struct {
	percent int
	enabled func(*models.User) bool
	warning bool
}

// EvaluateBudgetAlerts recomputes the current month's spend against the
// budget limit and sends at most one notification per threshold per
// calendar month. Absent budget or non-positive limit is a no-op.
func (s *budgetService) EvaluateBudgetAlerts(userID string) error {
	var budget models.Budget
	if err := s.db.Where("user_id = ?", userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	limit := s.codec.DecryptToDecimal(budget.Limit)
	if !limit.IsPositive() {
		return nil
	}

	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	spent, err := s.monthlyExpense(userID, monthStart)
	if err != nil {
		return err
	}

	percentage := int(spent.Div(limit).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	threshold := selectThreshold(percentage, &user)
	if threshold == nil {
		return nil
	}

	sent, err := s.alreadySent(userID, threshold.percent, monthStart)
	if err != nil {
		return err
	}
	if sent {
		return nil
	}

	title := fmt.Sprintf("Budget alert: %d%% reached", threshold.percent)
	severity := "warning"
	if !threshold.warning {
		title = "Budget exceeded"
		severity = "error"
	}
	message := fmt.Sprintf("You have spent %s of your %s monthly budget (%d%%).",
		spent.StringFixed(2), limit.StringFixed(2), percentage)

	_, err = s.notifications.Create(userID, models.NotificationTypeBudget, title, message, map[string]any{
		"threshold":  threshold.percent,
		"percentage": percentage,
		"severity":   severity,
	})
	return err
}

// selectThreshold picks the highest qualifying ladder step the user has
// enabled. The 50 step is a band, not a floor: it only fires below 80.
func selectThreshold(percentage int, user *models.User) *alertThreshold {
	ladder := []alertThreshold{
		{percent: 100, enabled: func(u *models.User) bool { return u.AlertBudget100 }},
		{percent: 95, enabled: func(u *models.User) bool { return u.AlertBudget95 }, warning: true},
		{percent: 80, enabled: func(u *models.User) bool { return u.AlertBudget80 }, warning: true},
	}
	for _, step := range ladder {
		if percentage >= step.percent && step.enabled(user) {
			return &step
		}
	}
	if percentage >= 50 && percentage < 80 && user.AlertBudget50 {
		return &alertThreshold{percent: 50, enabled: func(u *models.User) bool { return u.AlertBudget50 }, warning: true}
	}
	return nil
}

// monthlyExpense sums the decrypted amounts of all expense transactions
// dated on or after the first day of the current month.
func (s *budgetService) monthlyExpense(userID string, monthStart time.Time) (decimal.Decimal, error) {
	var transactions []models.Transaction
	if err := s.db.
		Where("user_id = ? AND type = ? AND date >= ?", userID, models.TransactionTypeExpense, monthStart).
		Find(&transactions).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := decimal.Zero
	for _, t := range transactions {
		total = total.Add(s.codec.DecryptToDecimal(t.Amount))
	}
	return total, nil
}

// alreadySent scans this month's budget notifications for one carrying
// the same threshold in its metadata.
func (s *budgetService) alreadySent(userID string, threshold int, monthStart time.Time) (bool, error) {
	var notifications []models.Notification
	if err := s.db.
		Where("user_id = ? AND type = ? AND created_at >= ?", userID, models.NotificationTypeBudget, monthStart).
		Find(&notifications).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, n := range notifications {
		if n.Metadata == "" {
			continue
		}
		var meta struct {
			Threshold int `json:"threshold"`
		}
		if err := json.Unmarshal([]byte(n.Metadata), &meta); err != nil {
			continue
		}
		if meta.Threshold == threshold {
			return true, nil
		}
	}
	return false, nil
}

// EvaluateAllUsers runs the evaluator for every user with a budget row.
// Per-user failures are logged and the sweep continues.
func (s *budgetService) EvaluateAllUsers() (int, error) {
	var budgets []models.Budget
	if err := s.db.Find(&budgets).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	log := logger.Named("budget")
	evaluated := 0
	for _, b := range budgets {
		if err := s.EvaluateBudgetAlerts(b.UserID); err != nil {
			log.Errorw("budget evaluation failed", "user_id", b.UserID, "error", err)
			continue
		}
		evaluated++
	}

	log.Infow("budget alert sweep complete", "evaluated", evaluated, "total", len(budgets))
	return evaluated, nil
}

package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"monetra/internal/codec"
	apperrors "monetra/internal/errors"
	"monetra/internal/logger"
	"monetra/internal/models"
	"monetra/internal/validator"
)

// recurringService materializes recurring templates into real ledger
// transactions and maintains each template's next due date.
type recurringService struct {
	db            *gorm.DB
	codec         *codec.Codec
	transactions  TransactionServicer
	notifications NotificationServicer
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB, c *codec.Codec, transactions TransactionServicer, notifications NotificationServicer) RecurringServicer {
	return &recurringService{
		db:            db,
		codec:         c,
		transactions:  transactions,
		notifications: notifications,
	}
}

// Create inserts a recurring template with its first due date computed
// from the frequency and day field relative to now.
func (s *recurringService) Create(userID string, input RecurringInput) (*models.RecurringTransaction, error) {
	if err := validator.Struct(input); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	name, err := s.codec.EncryptString(input.Name)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	amount, err := s.codec.EncryptDecimal(input.Amount)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	recurring := &models.RecurringTransaction{
		UserID:      userID,
		Name:        name,
		Amount:      amount,
		Frequency:   input.Frequency,
		Date:        input.Date,
		NextDueDate: firstDueDate(input.Frequency, input.Date, time.Now()),
	}

	if err := s.db.Create(recurring).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return recurring, nil
}

// GetAll returns the user's recurring templates, decrypted, soonest due first.
func (s *recurringService) GetAll(userID string) ([]RecurringView, error) {
	var templates []models.RecurringTransaction
	if err := s.db.Where("user_id = ?", userID).Order("next_due_date ASC").Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views := make([]RecurringView, 0, len(templates))
	for _, r := range templates {
		views = append(views, RecurringView{
			ID:          r.ID,
			Name:        s.codec.Decrypt(r.Name),
			Amount:      s.codec.DecryptToDecimal(r.Amount),
			Frequency:   r.Frequency,
			Date:        r.Date,
			NextDueDate: r.NextDueDate,
		})
	}
	return views, nil
}

// Delete removes a recurring template.
func (s *recurringService) Delete(userID, recurringID string) error {
	var recurring models.RecurringTransaction
	if err := s.db.Where("id = ? AND user_id = ?", recurringID, userID).First(&recurring).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrRecurringNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Delete(&recurring).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ProcessDueTransactions materializes every template whose next due date
// has arrived. Each item is processed independently: a failure is logged
// and skipped, never aborting the sweep. Materialized transactions carry
// no wallet, so no balance is affected.
func (s *recurringService) ProcessDueTransactions(now time.Time) (int, error) {
	var due []models.RecurringTransaction
	if err := s.db.Where("next_due_date <= ?", now).Find(&due).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	log := logger.Named("recurring")
	log.Infow("processing due recurring transactions", "due_count", len(due))

	processed := 0
	for _, template := range due {
		if err := s.processOne(template, now); err != nil {
			log.Errorw("failed to process recurring transaction",
				"recurring_id", template.ID,
				"user_id", template.UserID,
				"error", err,
			)
			continue
		}
		processed++
	}

	log.Infow("recurring sweep complete", "processed", processed, "due_count", len(due))
	return processed, nil
}

func (s *recurringService) processOne(template models.RecurringTransaction, now time.Time) error {
	name := s.codec.Decrypt(template.Name)
	amount := s.codec.DecryptToDecimal(template.Amount)
	if !amount.IsPositive() {
		return fmt.Errorf("template %s has non-positive amount", template.ID)
	}

	_, err := s.transactions.Create(template.UserID, TransactionInput{
		Merchant:    name,
		Amount:      amount,
		Description: "Auto-generated from recurring transaction",
		Category:    models.CategoryRecurring,
		Type:        models.TransactionTypeExpense,
		Date:        now,
	})
	if err != nil {
		return err
	}

	next := advanceDueDate(template.NextDueDate, template.Frequency)
	if err := s.db.Model(&template).Update("next_due_date", next).Error; err != nil {
		// The transaction was already created; log and move on rather
		// than double-charging on a retry of the whole item.
		logger.Named("recurring").Errorw("failed to advance next due date",
			"recurring_id", template.ID,
			"error", err,
		)
		return nil
	}

	s.sendReminder(template.UserID, name, amount.String())
	return nil
}

// sendReminder persists and pushes a recurring reminder, gated by the
// user's recurring-alert toggle. Failures are logged only.
func (s *recurringService) sendReminder(userID, name, amount string) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		logger.Named("recurring").Errorw("failed to load user for reminder", "user_id", userID, "error", err)
		return
	}
	if !user.AlertRecurring {
		return
	}

	_, err := s.notifications.Create(userID, models.NotificationTypeRecurring,
		"Recurring transaction processed",
		fmt.Sprintf("%s (%s) was added to your transactions.", name, amount),
		map[string]any{"name": name, "amount": amount},
	)
	if err != nil {
		logger.Named("recurring").Errorw("failed to send recurring reminder", "user_id", userID, "error", err)
	}
}

// firstDueDate computes the initial due date for a new template.
//
// Monthly and Yearly templates target a day-of-month: the occurrence in
// the current month, pushed one period out when it has already passed.
// Weekly templates use the historical "creation plus seven days" rule;
// the day field is ambiguous for them and is deliberately not
// interpreted as a weekday.
func firstDueDate(frequency models.Frequency, day int, now time.Time) time.Time {
	switch frequency {
	case models.FrequencyWeekly:
		return now.AddDate(0, 0, 7)
	case models.FrequencyMonthly, models.FrequencyYearly:
		candidate := time.Date(now.Year(), now.Month(), clampDay(now.Year(), now.Month(), day), 0, 0, 0, 0, time.UTC)
		if !candidate.After(now) {
			if frequency == models.FrequencyMonthly {
				candidate = candidate.AddDate(0, 1, 0)
			} else {
				candidate = candidate.AddDate(1, 0, 0)
			}
		}
		return candidate
	default:
		return now.AddDate(0, 1, 0)
	}
}

// advanceDueDate moves a due date forward by exactly one period.
func advanceDueDate(due time.Time, frequency models.Frequency) time.Time {
	switch frequency {
	case models.FrequencyMonthly:
		return due.AddDate(0, 1, 0)
	case models.FrequencyWeekly:
		return due.AddDate(0, 0, 7)
	case models.FrequencyYearly:
		return due.AddDate(1, 0, 0)
	default:
		return due.AddDate(0, 1, 0)
	}
}

// clampDay bounds a day-of-month to the last day of the given month.
func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	if day < 1 {
		return 1
	}
	return day
}

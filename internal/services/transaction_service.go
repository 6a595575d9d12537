package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"monetra/internal/codec"
	apperrors "monetra/internal/errors"
	"monetra/internal/logger"
	"monetra/internal/models"
	"monetra/internal/pagination"
	"monetra/internal/validator"
)

// transactionService handles the ledger mutation core.
type transactionService struct {
	db         *gorm.DB
	codec      *codec.Codec
	wallets    WalletServicer
	aggregates AggregateServicer
	dispatcher BudgetAlertDispatcher
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, c *codec.Codec, wallets WalletServicer, aggregates AggregateServicer, dispatcher BudgetAlertDispatcher) TransactionServicer {
	return &transactionService{
		db:         db,
		codec:      c,
		wallets:    wallets,
		aggregates: aggregates,
		dispatcher: dispatcher,
	}
}

// Create inserts a transaction and adjusts the attached wallet's balance
// in one atomic unit, then refreshes aggregates and dispatches a
// budget-alert check. The dispatch is fire-and-forget: its failure never
// rolls back the write.
func (s *transactionService) Create(userID string, input TransactionInput) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.CreateWithDB(tx, userID, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(userID, result.Date)
	return result, nil
}

// CreateWithDB inserts a transaction and applies its wallet effect inside
// the caller's database transaction.
func (s *transactionService) CreateWithDB(tx *gorm.DB, userID string, input TransactionInput) (*models.Transaction, error) {
	if err := validator.Struct(input); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}

	merchant, err := s.codec.EncryptString(input.Merchant)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	amount, err := s.codec.EncryptDecimal(input.Amount)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	description, err := s.codec.EncryptString(input.Description)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	transaction := &models.Transaction{
		UserID:      userID,
		WalletID:    input.WalletID,
		Merchant:    merchant,
		Amount:      amount,
		Description: description,
		Category:    input.Category,
		Type:        input.Type,
		Date:        input.Date,
	}

	if err := tx.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if input.WalletID != nil {
		if err := s.wallets.ApplyEffect(tx, userID, *input.WalletID, input.Type, input.Amount); err != nil {
			return nil, err
		}
	}

	return transaction, nil
}

// Update loads the existing row, reverts the wallet effect of the old
// amount/type/wallet, applies the patch, and applies the effect of the
// new amount/type/wallet. The revert-then-reapply is never skipped, even
// when only non-amount fields change, because the new type or wallet may
// differ from the old one.
func (s *transactionService) Update(userID, transactionID string, patch TransactionPatch) (*models.Transaction, error) {
	if patch.Amount != nil && !patch.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if patch.Type != nil && !models.ValidTransactionType(*patch.Type) {
		return nil, apperrors.ErrInvalidTransactionType
	}

	var existing models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	oldAmount := s.codec.DecryptToDecimal(existing.Amount)
	oldType := existing.Type
	oldWalletID := existing.WalletID
	oldDate := existing.Date

	// Resolve the post-patch state
	newAmount := oldAmount
	if patch.Amount != nil {
		newAmount = *patch.Amount
	}
	newType := oldType
	if patch.Type != nil {
		newType = *patch.Type
	}
	newWalletID := oldWalletID
	if patch.ClearWallet {
		newWalletID = nil
	} else if patch.WalletID != nil {
		newWalletID = patch.WalletID
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if patch.Merchant != nil {
		enc, err := s.codec.EncryptString(*patch.Merchant)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updates["merchant"] = enc
	}
	if patch.Amount != nil {
		enc, err := s.codec.EncryptDecimal(*patch.Amount)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updates["amount"] = enc
	}
	if patch.Description != nil {
		enc, err := s.codec.EncryptString(*patch.Description)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updates["description"] = enc
	}
	if patch.Category != nil {
		updates["category"] = *patch.Category
	}
	if patch.Type != nil {
		updates["type"] = *patch.Type
	}
	if patch.Date != nil {
		updates["date"] = *patch.Date
	}
	if patch.ClearWallet {
		updates["wallet_id"] = nil
	} else if patch.WalletID != nil {
		updates["wallet_id"] = *patch.WalletID
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if oldWalletID != nil {
			if err := s.wallets.RevertEffect(tx, userID, *oldWalletID, oldType, oldAmount); err != nil {
				return err
			}
		}

		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if newWalletID != nil {
			if err := s.wallets.ApplyEffect(tx, userID, *newWalletID, newType, newAmount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Where("id = ?", existing.ID).First(&existing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// The mutation may have moved the transaction between date buckets.
	s.afterMutation(userID, oldDate, existing.Date)
	return &existing, nil
}

// Delete removes a transaction and reverts its wallet effect. Deleting a
// row that does not exist, or that belongs to another user, is a no-op.
func (s *transactionService) Delete(userID, transactionID string) error {
	var existing models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	amount := s.codec.DecryptToDecimal(existing.Amount)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&existing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if existing.WalletID != nil {
			if err := s.wallets.RevertEffect(tx, userID, *existing.WalletID, existing.Type, amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(userID, existing.Date)
	return nil
}

// GetByID retrieves a single decrypted transaction.
func (s *transactionService) GetByID(userID, transactionID string) (*TransactionView, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	view := s.toView(transaction)
	return &view, nil
}

// GetAll returns every transaction for the user, decrypted, ordered by
// date descending.
func (s *transactionService) GetAll(userID string) ([]TransactionView, error) {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ?", userID).Order("date DESC").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.toViews(transactions), nil
}

// GetByMonth returns the user's transactions for one calendar month,
// decrypted, ordered by date descending.
func (s *transactionService) GetByMonth(userID string, month time.Month, year int) ([]TransactionView, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var transactions []models.Transaction
	if err := s.db.
		Where("user_id = ? AND date >= ? AND date < ?", userID, start, end).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.toViews(transactions), nil
}

// GetPage returns a paginated list of decrypted transactions.
func (s *transactionService) GetPage(userID string, page pagination.PageRequest) (*pagination.PageResponse[TransactionView], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(s.toViews(transactions), page.Page, page.PageSize, totalItems)
	return &result, nil
}

// afterMutation refreshes the aggregates touched by the mutation and
// dispatches an asynchronous budget-alert check. Failures here are
// logged, never surfaced: the ledger write has already committed.
func (s *transactionService) afterMutation(userID string, dates ...time.Time) {
	seen := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		key := d.Format("2006-01-02")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if err := s.aggregates.RefreshDay(userID, d); err != nil {
			logger.Get().Errorw("failed to refresh aggregates after ledger mutation",
				"user_id", userID,
				"date", key,
				"error", err,
			)
		}
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(userID)
	}
}

func (s *transactionService) toView(t models.Transaction) TransactionView {
	return TransactionView{
		ID:          t.ID,
		WalletID:    t.WalletID,
		Merchant:    s.codec.Decrypt(t.Merchant),
		Amount:      s.codec.DecryptToDecimal(t.Amount),
		Description: s.codec.Decrypt(t.Description),
		Category:    t.Category,
		Type:        t.Type,
		Date:        t.Date,
		CreatedAt:   t.CreatedAt,
	}
}

func (s *transactionService) toViews(transactions []models.Transaction) []TransactionView {
	views := make([]TransactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, s.toView(t))
	}
	return views
}

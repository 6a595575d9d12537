package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"monetra/internal/codec"
	apperrors "monetra/internal/errors"
	"monetra/internal/logger"
	"monetra/internal/models"
)

// walletService handles wallet-related business logic.
type walletService struct {
	db    *gorm.DB
	codec *codec.Codec
}

// NewWalletService creates a new WalletServicer.
func NewWalletService(db *gorm.DB, c *codec.Codec) WalletServicer {
	return &walletService{db: db, codec: c}
}

// CreateWallet creates a new wallet for a user. When isDefault is set, any
// existing default is cleared in the same transaction so at most one
// default remains.
func (s *walletService) CreateWallet(userID, name string, walletType models.WalletType, isDefault bool) (*models.Wallet, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet name is required")
	}
	if walletType == "" {
		walletType = models.WalletTypeOther
	}
	if !models.ValidWalletType(walletType) {
		return nil, apperrors.ErrInvalidWalletType
	}

	zero, err := s.codec.EncryptDecimal(decimal.Zero)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	wallet := &models.Wallet{
		UserID:    userID,
		Name:      name,
		Type:      walletType,
		Balance:   zero,
		IsDefault: isDefault,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if isDefault {
			if err := tx.Model(&models.Wallet{}).
				Where("user_id = ? AND is_default = ?", userID, true).
				Update("is_default", false).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Create(wallet).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return wallet, nil
}

// GetUserWallets returns all wallets for a user with decrypted balances.
func (s *walletService) GetUserWallets(userID string) ([]WalletView, error) {
	var wallets []models.Wallet
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&wallets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views := make([]WalletView, 0, len(wallets))
	for _, w := range wallets {
		views = append(views, WalletView{
			ID:        w.ID,
			Name:      w.Name,
			Type:      w.Type,
			Balance:   s.codec.DecryptToDecimal(w.Balance),
			IsDefault: w.IsDefault,
			CreatedAt: w.CreatedAt,
		})
	}
	return views, nil
}

// GetWalletByID retrieves a wallet by ID for a specific user
func (s *walletService) GetWalletByID(userID, walletID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.Where("id = ? AND user_id = ?", walletID, userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wallet, nil
}

// GetOrCreateDefaultWallet returns the user's default wallet, creating a
// CASH wallet lazily on first use.
func (s *walletService) GetOrCreateDefaultWallet(userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.Where("user_id = ? AND is_default = ?", userID, true).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.CreateWallet(userID, "Cash", models.WalletTypeCash, true)
}

// SetDefaultWallet marks the given wallet as the user's default, clearing
// any previous default in the same transaction.
func (s *walletService) SetDefaultWallet(userID, walletID string) error {
	wallet, err := s.GetWalletByID(userID, walletID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Wallet{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(wallet).Update("is_default", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// DeleteWallet soft-deletes a wallet. Transactions that referenced it keep
// their wallet_id; their balance effects are already final.
func (s *walletService) DeleteWallet(userID, walletID string) error {
	wallet, err := s.GetWalletByID(userID, walletID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(wallet).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Balance returns the decrypted balance of a wallet.
func (s *walletService) Balance(userID, walletID string) (decimal.Decimal, error) {
	wallet, err := s.GetWalletByID(userID, walletID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.codec.DecryptToDecimal(wallet.Balance), nil
}

// ApplyEffect adjusts the wallet balance for a transaction: income adds,
// expense subtracts. Must run inside the caller's database transaction.
func (s *walletService) ApplyEffect(tx *gorm.DB, userID, walletID string, transactionType models.TransactionType, amount decimal.Decimal) error {
	switch transactionType {
	case models.TransactionTypeIncome:
		return s.adjustBalance(tx, userID, walletID, amount)
	case models.TransactionTypeExpense:
		return s.adjustBalance(tx, userID, walletID, amount.Neg())
	default:
		return apperrors.ErrInvalidTransactionType
	}
}

// RevertEffect undoes the balance effect a transaction had when it was
// applied.
func (s *walletService) RevertEffect(tx *gorm.DB, userID, walletID string, transactionType models.TransactionType, amount decimal.Decimal) error {
	switch transactionType {
	case models.TransactionTypeIncome:
		return s.adjustBalance(tx, userID, walletID, amount.Neg())
	case models.TransactionTypeExpense:
		return s.adjustBalance(tx, userID, walletID, amount)
	default:
		return apperrors.ErrInvalidTransactionType
	}
}

// adjustBalance loads, decrypts, adjusts, and re-encrypts the wallet
// balance. The read and write happen inside the caller's transaction so
// the adjustment is atomic with the ledger row change that motivated it.
func (s *walletService) adjustBalance(tx *gorm.DB, userID, walletID string, delta decimal.Decimal) error {
	var wallet models.Wallet
	if err := tx.Where("id = ? AND user_id = ?", walletID, userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrWalletNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	newBalance := s.codec.DecryptToDecimal(wallet.Balance).Add(delta)
	encrypted, err := s.codec.EncryptDecimal(newBalance)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := tx.Model(&wallet).Update("balance", encrypted).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Reconcile recomputes each wallet balance from the transaction log and
// repairs any drift between the stored and derived values.
func (s *walletService) Reconcile(userID string) ([]ReconcileResult, error) {
	var wallets []models.Wallet
	if err := s.db.Where("user_id = ?", userID).Find(&wallets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	log := logger.Named("reconcile")
	results := make([]ReconcileResult, 0, len(wallets))

	for _, w := range wallets {
		var transactions []models.Transaction
		if err := s.db.Where("user_id = ? AND wallet_id = ?", userID, w.ID).Find(&transactions).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		computed := decimal.Zero
		for _, t := range transactions {
			amount := s.codec.DecryptToDecimal(t.Amount)
			if t.Type == models.TransactionTypeIncome {
				computed = computed.Add(amount)
			} else {
				computed = computed.Sub(amount)
			}
		}

		stored := s.codec.DecryptToDecimal(w.Balance)
		result := ReconcileResult{WalletID: w.ID, Stored: stored, Computed: computed}

		if !stored.Equal(computed) {
			log.Warnw("wallet balance drift detected",
				"user_id", userID,
				"wallet_id", w.ID,
				"stored", stored.String(),
				"computed", computed.String(),
			)
			encrypted, err := s.codec.EncryptDecimal(computed)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if err := s.db.Model(&w).Update("balance", encrypted).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			result.Repaired = true
		}

		results = append(results, result)
	}

	return results, nil
}

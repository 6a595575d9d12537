package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"monetra/internal/codec"
	"monetra/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// SetColumn applies a raw column update to a persisted record and fails
// the test when the update errors, so a typoed column name cannot pass
// as a silent no-op.
func SetColumn(t *testing.T, db *gorm.DB, record any, column string, value any) {
	t.Helper()
	res := db.Model(record).Update(column, value)
	if res.Error != nil {
		t.Fatalf("failed to update %s: %v", column, res.Error)
	}
	if res.RowsAffected == 0 {
		t.Fatalf("update of %s matched no rows", column)
	}
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:          email,
		Password:       string(hash),
		Name:           fmt.Sprintf("Test User %d", nextID()),
		Role:           models.UserRoleMember,
		Plan:           models.UserPlanFree,
		AlertBudget50:  true,
		AlertBudget80:  true,
		AlertBudget95:  true,
		AlertBudget100: true,
		AlertRecurring: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestUserWithTradingBalance creates a user holding the given
// trading balance, encrypted with c.
func CreateTestUserWithTradingBalance(t *testing.T, db *gorm.DB, c *codec.Codec, balance decimal.Decimal) *models.User {
	t.Helper()

	user := CreateTestUser(t, db)
	encrypted, err := c.EncryptDecimal(balance)
	if err != nil {
		t.Fatalf("failed to encrypt trading balance: %v", err)
	}
	if err := db.Model(user).Update("trading_balance", encrypted).Error; err != nil {
		t.Fatalf("failed to set trading balance: %v", err)
	}
	user.TradingBalance = encrypted
	return user
}

// CreateTestWallet creates a wallet with zero balance.
func CreateTestWallet(t *testing.T, db *gorm.DB, c *codec.Codec, userID string) *models.Wallet {
	t.Helper()
	return CreateTestWalletWithBalance(t, db, c, userID, decimal.Zero)
}

// CreateTestWalletWithBalance creates a wallet holding the given balance,
// encrypted with c.
func CreateTestWalletWithBalance(t *testing.T, db *gorm.DB, c *codec.Codec, userID string, balance decimal.Decimal) *models.Wallet {
	t.Helper()

	encrypted, err := c.EncryptDecimal(balance)
	if err != nil {
		t.Fatalf("failed to encrypt wallet balance: %v", err)
	}

	wallet := &models.Wallet{
		UserID:  userID,
		Name:    fmt.Sprintf("Test Wallet %d", nextID()),
		Type:    models.WalletTypeBank,
		Balance: encrypted,
	}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("failed to create test wallet: %v", err)
	}
	return wallet
}

// CreateTestTransaction creates a ledger transaction of the given type and
// amount. walletID may be nil for walletless rows.
func CreateTestTransaction(t *testing.T, db *gorm.DB, c *codec.Codec, userID string, walletID *string, txType models.TransactionType, amount decimal.Decimal, date time.Time) *models.Transaction {
	t.Helper()

	merchant, err := c.EncryptString(fmt.Sprintf("Merchant %d", nextID()))
	if err != nil {
		t.Fatalf("failed to encrypt merchant: %v", err)
	}
	encrypted, err := c.EncryptDecimal(amount)
	if err != nil {
		t.Fatalf("failed to encrypt amount: %v", err)
	}

	tx := &models.Transaction{
		UserID:   userID,
		WalletID: walletID,
		Merchant: merchant,
		Amount:   encrypted,
		Category: "General",
		Type:     txType,
		Date:     date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates the user's monthly budget with the given limit.
func CreateTestBudget(t *testing.T, db *gorm.DB, c *codec.Codec, userID string, limit decimal.Decimal) *models.Budget {
	t.Helper()

	encrypted, err := c.EncryptDecimal(limit)
	if err != nil {
		t.Fatalf("failed to encrypt budget limit: %v", err)
	}

	budget := &models.Budget{
		UserID: userID,
		Limit:  encrypted,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestRecurring creates a recurring template due at nextDue.
func CreateTestRecurring(t *testing.T, db *gorm.DB, c *codec.Codec, userID string, frequency models.Frequency, day int, amount decimal.Decimal, nextDue time.Time) *models.RecurringTransaction {
	t.Helper()

	name, err := c.EncryptString(fmt.Sprintf("Subscription %d", nextID()))
	if err != nil {
		t.Fatalf("failed to encrypt recurring name: %v", err)
	}
	encrypted, err := c.EncryptDecimal(amount)
	if err != nil {
		t.Fatalf("failed to encrypt recurring amount: %v", err)
	}

	recurring := &models.RecurringTransaction{
		UserID:      userID,
		Name:        name,
		Amount:      encrypted,
		Frequency:   frequency,
		Date:        day,
		NextDueDate: nextDue,
	}
	if err := db.Create(recurring).Error; err != nil {
		t.Fatalf("failed to create test recurring transaction: %v", err)
	}
	return recurring
}

// CreateTestTrade creates a closed trade with the given pnl.
func CreateTestTrade(t *testing.T, db *gorm.DB, c *codec.Codec, userID, pair string, pnl decimal.Decimal) *models.Trade {
	t.Helper()

	amount, err := c.EncryptDecimal(decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("failed to encrypt trade amount: %v", err)
	}
	encryptedPnl, err := c.EncryptDecimal(pnl)
	if err != nil {
		t.Fatalf("failed to encrypt trade pnl: %v", err)
	}

	outcome := models.TradeOutcomeBreakEven
	switch {
	case pnl.IsPositive():
		outcome = models.TradeOutcomeWin
	case pnl.IsNegative():
		outcome = models.TradeOutcomeLoss
	}

	now := time.Now()
	trade := &models.Trade{
		UserID:    userID,
		Pair:      pair,
		Direction: models.TradeDirectionLong,
		Leverage:  10,
		Amount:    amount,
		Pnl:       encryptedPnl,
		Status:    models.TradeStatusClosed,
		Outcome:   outcome,
		ClosedAt:  &now,
	}
	if err := db.Create(trade).Error; err != nil {
		t.Fatalf("failed to create test trade: %v", err)
	}
	return trade
}

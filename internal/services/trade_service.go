package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"monetra/internal/codec"
	apperrors "monetra/internal/errors"
	"monetra/internal/logger"
	"monetra/internal/models"
	"monetra/internal/pagination"
	"monetra/internal/validator"
)

// tradeService is the trading ledger: a parallel ledger of leveraged
// trades against the user's trading balance, bridged to the main ledger
// by deposits and withdrawals.
type tradeService struct {
	db           *gorm.DB
	codec        *codec.Codec
	transactions TransactionServicer
	aggregates   AggregateServicer
	dispatcher   BudgetAlertDispatcher
}

// NewTradeService creates a new TradeServicer.
func NewTradeService(db *gorm.DB, c *codec.Codec, transactions TransactionServicer, aggregates AggregateServicer, dispatcher BudgetAlertDispatcher) TradeServicer {
	return &tradeService{
		db:           db,
		codec:        c,
		transactions: transactions,
		aggregates:   aggregates,
		dispatcher:   dispatcher,
	}
}

// CreateTrade records a closed trade with its outcome derived from the
// pnl sign and applies the pnl to the trading balance in one atomic unit.
func (s *tradeService) CreateTrade(userID string, input TradeInput) (*models.Trade, error) {
	if err := validator.Struct(input); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	outcome := models.TradeOutcomeBreakEven
	switch {
	case input.Pnl.IsPositive():
		outcome = models.TradeOutcomeWin
	case input.Pnl.IsNegative():
		outcome = models.TradeOutcomeLoss
	}

	amount, err := s.codec.EncryptDecimal(input.Amount)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	entryPrice, err := s.codec.EncryptDecimal(input.EntryPrice)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	closePrice, err := s.codec.EncryptDecimal(input.ClosePrice)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	pnl, err := s.codec.EncryptDecimal(input.Pnl)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	notes, err := s.codec.EncryptString(input.Notes)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	trade := &models.Trade{
		UserID:     userID,
		Pair:       input.Pair,
		Direction:  input.Direction,
		Leverage:   input.Leverage,
		Amount:     amount,
		EntryPrice: entryPrice,
		ClosePrice: closePrice,
		Pnl:        pnl,
		Notes:      notes,
		Status:     models.TradeStatusClosed,
		Outcome:    outcome,
		ClosedAt:   &now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trade).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.adjustTradingBalance(tx, userID, input.Pnl)
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// GetUserTrades returns a paginated list of decrypted trades, newest first.
func (s *tradeService) GetUserTrades(userID string, page pagination.PageRequest) (*pagination.PageResponse[TradeView], error) {
	page.Defaults()

	base := s.db.Model(&models.Trade{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var trades []models.Trade
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&trades).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views := make([]TradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, s.toView(t))
	}

	result := pagination.NewPageResponse(views, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// TradingBalance returns the user's decrypted trading balance.
func (s *tradeService) TradingBalance(userID string) (decimal.Decimal, error) {
	user, err := s.getUser(s.db, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.codec.DecryptToDecimal(user.TradingBalance), nil
}

// Withdraw moves funds out of the trading balance into the main ledger.
// The balance check, decrement, and ledger insert happen in one atomic
// unit: an insufficient balance leaves both ledgers untouched.
func (s *tradeService) Withdraw(userID string, amount decimal.Decimal, convertedAmount *decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "withdrawal amount must be greater than zero")
	}

	ledgerAmount := amount
	if convertedAmount != nil {
		if !convertedAmount.IsPositive() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "converted amount must be greater than zero")
		}
		ledgerAmount = *convertedAmount
	}

	var date time.Time
	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.getUser(tx, userID)
		if err != nil {
			return err
		}

		balance := s.codec.DecryptToDecimal(user.TradingBalance)
		if balance.LessThan(amount) {
			return apperrors.ErrInsufficientBalance
		}

		if err := s.setTradingBalance(tx, user, balance.Sub(amount)); err != nil {
			return err
		}

		transaction, err := s.transactions.CreateWithDB(tx, userID, TransactionInput{
			Merchant:    "Trading withdrawal",
			Amount:      ledgerAmount,
			Description: "Withdrawal from trading balance",
			Category:    "Trading",
			Type:        models.TransactionTypeIncome,
			Date:        time.Now(),
		})
		if err != nil {
			return err
		}
		date = transaction.Date
		return nil
	})
	if err != nil {
		return err
	}

	s.afterLedgerBridge(userID, date)
	return nil
}

// Deposit moves funds into the trading balance and records a matching
// expense in the main ledger. The main ledger balance is derived, so no
// check is performed against it.
func (s *tradeService) Deposit(userID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "deposit amount must be greater than zero")
	}

	var date time.Time
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.adjustTradingBalance(tx, userID, amount); err != nil {
			return err
		}

		transaction, err := s.transactions.CreateWithDB(tx, userID, TransactionInput{
			Merchant:    "Trading deposit",
			Amount:      amount,
			Description: "Deposit to trading balance",
			Category:    "Trading",
			Type:        models.TransactionTypeExpense,
			Date:        time.Now(),
		})
		if err != nil {
			return err
		}
		date = transaction.Date
		return nil
	})
	if err != nil {
		return err
	}

	s.afterLedgerBridge(userID, date)
	return nil
}

// GetStats derives win/loss counts, total pnl, the best-performing pair,
// and the running equity curve by replaying trades in creation order.
func (s *tradeService) GetStats(userID string) (*TradeStats, error) {
	var trades []models.Trade
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&trades).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stats := &TradeStats{
		TotalTrades: len(trades),
		TotalPnl:    decimal.Zero,
		EquityCurve: make([]EquityPoint, 0, len(trades)),
	}

	pairTotals := make(map[string]decimal.Decimal)
	equity := decimal.Zero

	for _, t := range trades {
		pnl := s.codec.DecryptToDecimal(t.Pnl)

		switch t.Outcome {
		case models.TradeOutcomeWin:
			stats.Wins++
		case models.TradeOutcomeLoss:
			stats.Losses++
		default:
			stats.BreakEvens++
		}

		stats.TotalPnl = stats.TotalPnl.Add(pnl)
		pairTotals[t.Pair] = pairTotals[t.Pair].Add(pnl)

		equity = equity.Add(pnl)
		stats.EquityCurve = append(stats.EquityCurve, EquityPoint{At: t.CreatedAt, Equity: equity})
	}

	best := decimal.Zero
	for pair, total := range pairTotals {
		if stats.BestPair == "" || total.GreaterThan(best) {
			stats.BestPair = pair
			best = total
		}
	}

	return stats, nil
}

func (s *tradeService) toView(t models.Trade) TradeView {
	return TradeView{
		ID:        t.ID,
		Pair:      t.Pair,
		Direction: t.Direction,
		Leverage:  t.Leverage,
		Amount:    s.codec.DecryptToDecimal(t.Amount),
		Pnl:       s.codec.DecryptToDecimal(t.Pnl),
		Status:    t.Status,
		Outcome:   t.Outcome,
		CreatedAt: t.CreatedAt,
	}
}

func (s *tradeService) getUser(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// adjustTradingBalance loads, decrypts, adjusts, and re-encrypts the
// trading balance inside the caller's transaction.
func (s *tradeService) adjustTradingBalance(tx *gorm.DB, userID string, delta decimal.Decimal) error {
	user, err := s.getUser(tx, userID)
	if err != nil {
		return err
	}
	return s.setTradingBalance(tx, user, s.codec.DecryptToDecimal(user.TradingBalance).Add(delta))
}

func (s *tradeService) setTradingBalance(tx *gorm.DB, user *models.User, balance decimal.Decimal) error {
	encrypted, err := s.codec.EncryptDecimal(balance)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Model(user).Update("trading_balance", encrypted).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// afterLedgerBridge mirrors the transaction service's post-mutation work
// for deposits and withdrawals that landed rows in the main ledger.
func (s *tradeService) afterLedgerBridge(userID string, date time.Time) {
	if err := s.aggregates.RefreshDay(userID, date); err != nil {
		logger.Named("trade").Errorw("failed to refresh aggregates after trading bridge",
			"user_id", userID,
			"error", err,
		)
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(userID)
	}
}

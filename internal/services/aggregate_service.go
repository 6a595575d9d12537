package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"monetra/internal/codec"
	apperrors "monetra/internal/errors"
	"monetra/internal/models"
)

// aggregateService maintains the denormalized monthly, daily, and
// category sums. Upserts take the full new value for a key; callers that
// need incremental behavior recompute their buckets and hand over totals.
type aggregateService struct {
	db    *gorm.DB
	codec *codec.Codec
}

// NewAggregateService creates a new AggregateServicer.
func NewAggregateService(db *gorm.DB, c *codec.Codec) AggregateServicer {
	return &aggregateService{db: db, codec: c}
}

// MonthKey formats a date as the "YYYY-MM" aggregate key.
func MonthKey(t time.Time) string { return t.Format("2006-01") }

// DayKey formats a date as the "YYYY-MM-DD" aggregate key.
func DayKey(t time.Time) string { return t.Format("2006-01-02") }

// UpsertMonthly overwrites the monthly totals for (userID, monthKey).
// Overwrites are guarded by a compare-and-swap on the version column;
// a concurrent writer loses with ErrAggregateConflict.
func (s *aggregateService) UpsertMonthly(userID, monthKey string, income, expense decimal.Decimal) error {
	encIncome, err := s.codec.EncryptDecimal(income)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	encExpense, err := s.codec.EncryptDecimal(expense)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.MonthlyAggregate
		err := tx.Where("user_id = ? AND month_key = ?", userID, monthKey).First(&existing).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			row := &models.MonthlyAggregate{
				UserID:   userID,
				MonthKey: monthKey,
				Income:   encIncome,
				Expense:  encExpense,
			}
			// Two concurrent inserts for the same key resolve on the
			// composite unique index instead of duplicating the row.
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "month_key"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"income":     encIncome,
					"expense":    encExpense,
					"updated_at": time.Now(),
				}),
			}).Create(row).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		}

		res := tx.Model(&models.MonthlyAggregate{}).
			Where("id = ? AND version = ?", existing.ID, existing.Version).
			Updates(map[string]interface{}{
				"income":     encIncome,
				"expense":    encExpense,
				"version":    existing.Version + 1,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrAggregateConflict
		}
		return nil
	})
}

// UpsertDaily overwrites the daily totals for (userID, dayKey).
func (s *aggregateService) UpsertDaily(userID, dayKey string, income, expense decimal.Decimal) error {
	encIncome, err := s.codec.EncryptDecimal(income)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	encExpense, err := s.codec.EncryptDecimal(expense)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	row := &models.DailyAggregate{
		UserID:  userID,
		DayKey:  dayKey,
		Income:  encIncome,
		Expense: encExpense,
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"income":     encIncome,
			"expense":    encExpense,
			"updated_at": time.Now(),
		}),
	}).Create(row).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// UpsertCategory overwrites the total for (userID, monthKey, category, type).
func (s *aggregateService) UpsertCategory(userID, monthKey, category string, transactionType models.TransactionType, amount decimal.Decimal) error {
	encAmount, err := s.codec.EncryptDecimal(amount)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	row := &models.CategoryAggregate{
		UserID:   userID,
		MonthKey: monthKey,
		Category: category,
		Type:     transactionType,
		Amount:   encAmount,
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "month_key"}, {Name: "category"}, {Name: "type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"amount":     encAmount,
			"updated_at": time.Now(),
		}),
	}).Create(row).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetMonthly returns the decrypted totals for one month.
func (s *aggregateService) GetMonthly(userID, monthKey string) (*MonthlySummary, error) {
	var agg models.MonthlyAggregate
	if err := s.db.Where("user_id = ? AND month_key = ?", userID, monthKey).First(&agg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &MonthlySummary{
		MonthKey: agg.MonthKey,
		Income:   s.codec.DecryptToDecimal(agg.Income),
		Expense:  s.codec.DecryptToDecimal(agg.Expense),
	}, nil
}

// GetAllMonthly returns every monthly summary for the user, oldest first.
func (s *aggregateService) GetAllMonthly(userID string) ([]MonthlySummary, error) {
	var aggs []models.MonthlyAggregate
	if err := s.db.Where("user_id = ?", userID).Order("month_key ASC").Find(&aggs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summaries := make([]MonthlySummary, 0, len(aggs))
	for _, a := range aggs {
		summaries = append(summaries, MonthlySummary{
			MonthKey: a.MonthKey,
			Income:   s.codec.DecryptToDecimal(a.Income),
			Expense:  s.codec.DecryptToDecimal(a.Expense),
		})
	}
	return summaries, nil
}

// GetDaily returns the decrypted totals for one day.
func (s *aggregateService) GetDaily(userID, dayKey string) (*DailySummary, error) {
	var agg models.DailyAggregate
	if err := s.db.Where("user_id = ? AND day_key = ?", userID, dayKey).First(&agg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &DailySummary{
		DayKey:  agg.DayKey,
		Income:  s.codec.DecryptToDecimal(agg.Income),
		Expense: s.codec.DecryptToDecimal(agg.Expense),
	}, nil
}

// GetDailyRange returns daily summaries between fromKey and toKey inclusive.
func (s *aggregateService) GetDailyRange(userID, fromKey, toKey string) ([]DailySummary, error) {
	var aggs []models.DailyAggregate
	if err := s.db.
		Where("user_id = ? AND day_key >= ? AND day_key <= ?", userID, fromKey, toKey).
		Order("day_key ASC").
		Find(&aggs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summaries := make([]DailySummary, 0, len(aggs))
	for _, a := range aggs {
		summaries = append(summaries, DailySummary{
			DayKey:  a.DayKey,
			Income:  s.codec.DecryptToDecimal(a.Income),
			Expense: s.codec.DecryptToDecimal(a.Expense),
		})
	}
	return summaries, nil
}

// GetCategories returns the decrypted category totals for one month.
func (s *aggregateService) GetCategories(userID, monthKey string) ([]CategorySummary, error) {
	var aggs []models.CategoryAggregate
	if err := s.db.
		Where("user_id = ? AND month_key = ?", userID, monthKey).
		Order("category ASC").
		Find(&aggs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summaries := make([]CategorySummary, 0, len(aggs))
	for _, a := range aggs {
		summaries = append(summaries, CategorySummary{
			MonthKey: a.MonthKey,
			Category: a.Category,
			Type:     a.Type,
			Amount:   s.codec.DecryptToDecimal(a.Amount),
		})
	}
	return summaries, nil
}

// bucketTotals accumulates income/expense pairs keyed by bucket.
type bucketTotals struct {
	income  decimal.Decimal
	expense decimal.Decimal
}

func (b *bucketTotals) add(transactionType models.TransactionType, amount decimal.Decimal) {
	if transactionType == models.TransactionTypeIncome {
		b.income = b.income.Add(amount)
	} else {
		b.expense = b.expense.Add(amount)
	}
}

// RefreshDay recomputes the month bucket, the day bucket, and the month's
// category buckets touched by transactions on the given date.
func (s *aggregateService) RefreshDay(userID string, day time.Time) error {
	monthKey := MonthKey(day)
	dayKey := DayKey(day)

	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var transactions []models.Transaction
	if err := s.db.
		Where("user_id = ? AND date >= ? AND date < ?", userID, monthStart, monthEnd).
		Find(&transactions).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	month := bucketTotals{income: decimal.Zero, expense: decimal.Zero}
	dayTotals := bucketTotals{income: decimal.Zero, expense: decimal.Zero}
	categories := make(map[[2]string]decimal.Decimal)

	for _, t := range transactions {
		amount := s.codec.DecryptToDecimal(t.Amount)
		month.add(t.Type, amount)
		if DayKey(t.Date) == dayKey {
			dayTotals.add(t.Type, amount)
		}
		key := [2]string{t.Category, string(t.Type)}
		categories[key] = categories[key].Add(amount)
	}

	if err := s.UpsertMonthly(userID, monthKey, month.income, month.expense); err != nil {
		return err
	}
	if err := s.UpsertDaily(userID, dayKey, dayTotals.income, dayTotals.expense); err != nil {
		return err
	}
	for key, amount := range categories {
		if err := s.UpsertCategory(userID, monthKey, key[0], models.TransactionType(key[1]), amount); err != nil {
			return err
		}
	}
	return nil
}

// RebuildUserAggregates recomputes every monthly, daily, and category
// aggregate for the user from the full transaction log. It is idempotent:
// two consecutive runs over the same transactions yield identical totals.
func (s *aggregateService) RebuildUserAggregates(userID string) error {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ?", userID).Find(&transactions).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	months := make(map[string]*bucketTotals)
	days := make(map[string]*bucketTotals)
	categories := make(map[[3]string]decimal.Decimal)

	for _, t := range transactions {
		amount := s.codec.DecryptToDecimal(t.Amount)
		monthKey := MonthKey(t.Date)
		dayKey := DayKey(t.Date)

		if months[monthKey] == nil {
			months[monthKey] = &bucketTotals{income: decimal.Zero, expense: decimal.Zero}
		}
		months[monthKey].add(t.Type, amount)

		if days[dayKey] == nil {
			days[dayKey] = &bucketTotals{income: decimal.Zero, expense: decimal.Zero}
		}
		days[dayKey].add(t.Type, amount)

		catKey := [3]string{monthKey, t.Category, string(t.Type)}
		categories[catKey] = categories[catKey].Add(amount)
	}

	for monthKey, totals := range months {
		if err := s.UpsertMonthly(userID, monthKey, totals.income, totals.expense); err != nil {
			return err
		}
	}
	for dayKey, totals := range days {
		if err := s.UpsertDaily(userID, dayKey, totals.income, totals.expense); err != nil {
			return err
		}
	}
	for key, amount := range categories {
		if err := s.UpsertCategory(userID, key[0], key[1], models.TransactionType(key[2]), amount); err != nil {
			return err
		}
	}
	return nil
}

package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"monetra/internal/models"
	"monetra/internal/testutil"
)

func TestUpsertMonthly(t *testing.T) {
	t.Run("insert_then_overwrite", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		err := env.aggregates.UpsertMonthly(user.ID, "2026-01", decimal.NewFromInt(100), decimal.NewFromInt(40))
		testutil.AssertNoError(t, err)

		err = env.aggregates.UpsertMonthly(user.ID, "2026-01", decimal.NewFromInt(150), decimal.NewFromInt(60))
		testutil.AssertNoError(t, err)

		summary, err := env.aggregates.GetMonthly(user.ID, "2026-01")
		testutil.AssertNoError(t, err)
		if !summary.Income.Equal(decimal.NewFromInt(150)) {
			t.Errorf("expected income 150, got %s", summary.Income)
		}
		if !summary.Expense.Equal(decimal.NewFromInt(60)) {
			t.Errorf("expected expense 60, got %s", summary.Expense)
		}

		var count int64
		env.db.Model(&models.MonthlyAggregate{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected a single row per month key, got %d", count)
		}
	})

	t.Run("version_increments_on_overwrite", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		testutil.AssertNoError(t, env.aggregates.UpsertMonthly(user.ID, "2026-02", decimal.NewFromInt(10), decimal.Zero))
		testutil.AssertNoError(t, env.aggregates.UpsertMonthly(user.ID, "2026-02", decimal.NewFromInt(20), decimal.Zero))

		var row models.MonthlyAggregate
		env.db.Where("user_id = ? AND month_key = ?", user.ID, "2026-02").First(&row)
		if row.Version != 1 {
			t.Errorf("expected version 1 after one overwrite, got %d", row.Version)
		}
	})

	t.Run("missing_month", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		_, err := env.aggregates.GetMonthly(user.ID, "2099-01")
		testutil.AssertAppError(t, err, "NOT_FOUND")
	})
}

func TestUpsertDailyAndCategory(t *testing.T) {
	t.Run("daily_overwrite", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		testutil.AssertNoError(t, env.aggregates.UpsertDaily(user.ID, "2026-01-05", decimal.NewFromInt(5), decimal.Zero))
		testutil.AssertNoError(t, env.aggregates.UpsertDaily(user.ID, "2026-01-05", decimal.NewFromInt(9), decimal.NewFromInt(3)))

		summary, err := env.aggregates.GetDaily(user.ID, "2026-01-05")
		testutil.AssertNoError(t, err)
		if !summary.Income.Equal(decimal.NewFromInt(9)) || !summary.Expense.Equal(decimal.NewFromInt(3)) {
			t.Errorf("expected 9/3, got %s/%s", summary.Income, summary.Expense)
		}
	})

	t.Run("category_keyed_by_type", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		testutil.AssertNoError(t, env.aggregates.UpsertCategory(user.ID, "2026-01", "Food", models.TransactionTypeExpense, decimal.NewFromInt(80)))
		testutil.AssertNoError(t, env.aggregates.UpsertCategory(user.ID, "2026-01", "Food", models.TransactionTypeIncome, decimal.NewFromInt(12)))

		summaries, err := env.aggregates.GetCategories(user.ID, "2026-01")
		testutil.AssertNoError(t, err)
		if len(summaries) != 2 {
			t.Fatalf("expected two rows for the same category with different types, got %d", len(summaries))
		}
	})
}

func TestGetDailyRange(t *testing.T) {
	t.Run("inclusive_bounds", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		for _, key := range []string{"2026-01-01", "2026-01-02", "2026-01-03", "2026-01-04"} {
			testutil.AssertNoError(t, env.aggregates.UpsertDaily(user.ID, key, decimal.NewFromInt(1), decimal.Zero))
		}

		summaries, err := env.aggregates.GetDailyRange(user.ID, "2026-01-02", "2026-01-03")
		testutil.AssertNoError(t, err)
		if len(summaries) != 2 {
			t.Fatalf("expected 2 days in range, got %d", len(summaries))
		}
		if summaries[0].DayKey != "2026-01-02" || summaries[1].DayKey != "2026-01-03" {
			t.Errorf("expected ascending inclusive range, got %s..%s", summaries[0].DayKey, summaries[1].DayKey)
		}
	})
}

func TestRefreshDay(t *testing.T) {
	t.Run("recomputes_all_buckets", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		day := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
		otherDay := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)

		testutil.CreateTestTransaction(t, env.db, env.codec, user.ID, nil, models.TransactionTypeExpense, decimal.NewFromInt(30), day)
		testutil.CreateTestTransaction(t, env.db, env.codec, user.ID, nil, models.TransactionTypeIncome, decimal.NewFromInt(200), day)
		testutil.CreateTestTransaction(t, env.db, env.codec, user.ID, nil, models.TransactionTypeExpense, decimal.NewFromInt(5), otherDay)

		testutil.AssertNoError(t, env.aggregates.RefreshDay(user.ID, day))

		monthly, err := env.aggregates.GetMonthly(user.ID, "2026-05")
		testutil.AssertNoError(t, err)
		if !monthly.Expense.Equal(decimal.NewFromInt(35)) {
			t.Errorf("expected monthly expense 35, got %s", monthly.Expense)
		}
		if !monthly.Income.Equal(decimal.NewFromInt(200)) {
			t.Errorf("expected monthly income 200, got %s", monthly.Income)
		}

		daily, err := env.aggregates.GetDaily(user.ID, "2026-05-10")
		testutil.AssertNoError(t, err)
		if !daily.Expense.Equal(decimal.NewFromInt(30)) {
			t.Errorf("expected daily expense 30, got %s", daily.Expense)
		}
	})
}

func TestRebuildUserAggregates(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		testutil.CreateTestTransaction(t, env.db, env.codec, user.ID, nil, models.TransactionTypeExpense, decimal.NewFromInt(10),
			time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
		testutil.CreateTestTransaction(t, env.db, env.codec, user.ID, nil, models.TransactionTypeIncome, decimal.NewFromInt(50),
			time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC))

		testutil.AssertNoError(t, env.aggregates.RebuildUserAggregates(user.ID))
		first, err := env.aggregates.GetAllMonthly(user.ID)
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, env.aggregates.RebuildUserAggregates(user.ID))
		second, err := env.aggregates.GetAllMonthly(user.ID)
		testutil.AssertNoError(t, err)

		if len(first) != 2 || len(second) != 2 {
			t.Fatalf("expected 2 monthly rows after each rebuild, got %d then %d", len(first), len(second))
		}
		for i := range first {
			if !first[i].Income.Equal(second[i].Income) || !first[i].Expense.Equal(second[i].Expense) {
				t.Errorf("rebuild changed totals for %s", first[i].MonthKey)
			}
		}
	})
}

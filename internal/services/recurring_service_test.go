package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"monetra/internal/models"
	"monetra/internal/testutil"
)

func newRecurringService(env *testEnv) RecurringServicer {
	return NewRecurringService(env.db, env.codec, env.transactions, env.notifications)
}

func TestCreateRecurring(t *testing.T) {
	t.Run("monthly_due_date_targets_day_of_month", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		recurring, err := svc.Create(user.ID, RecurringInput{
			Name:      "Rent",
			Amount:    decimal.NewFromInt(1200),
			Frequency: models.FrequencyMonthly,
			Date:      28,
		})
		testutil.AssertNoError(t, err)

		if recurring.NextDueDate.Day() != 28 {
			t.Errorf("expected due day 28, got %d", recurring.NextDueDate.Day())
		}
		if !recurring.NextDueDate.After(time.Now()) {
			t.Error("expected first due date in the future")
		}
	})

	t.Run("weekly_due_in_seven_days", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		recurring, err := svc.Create(user.ID, RecurringInput{
			Name:      "Groceries",
			Amount:    decimal.NewFromInt(50),
			Frequency: models.FrequencyWeekly,
			Date:      1,
		})
		testutil.AssertNoError(t, err)

		expected := time.Now().AddDate(0, 0, 7)
		if recurring.NextDueDate.Sub(expected).Abs() > time.Minute {
			t.Errorf("expected due date about %s, got %s", expected, recurring.NextDueDate)
		}
	})

	t.Run("invalid_frequency", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		_, err := svc.Create(user.ID, RecurringInput{
			Name:      "Bad",
			Amount:    decimal.NewFromInt(5),
			Frequency: models.Frequency("Daily"),
			Date:      1,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("day_out_of_range", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		_, err := svc.Create(user.ID, RecurringInput{
			Name:      "Bad",
			Amount:    decimal.NewFromInt(5),
			Frequency: models.FrequencyMonthly,
			Date:      32,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestProcessDueTransactions(t *testing.T) {
	t.Run("materializes_and_advances_one_period", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
		template := testutil.CreateTestRecurring(t, env.db, env.codec, user.ID,
			models.FrequencyMonthly, 5, decimal.NewFromInt(15), due)

		processed, err := svc.ProcessDueTransactions(due)
		testutil.AssertNoError(t, err)
		if processed != 1 {
			t.Fatalf("expected 1 processed, got %d", processed)
		}

		views, err := env.transactions.GetAll(user.ID)
		testutil.AssertNoError(t, err)
		if len(views) != 1 {
			t.Fatalf("expected one materialized transaction, got %d", len(views))
		}
		if views[0].Category != models.CategoryRecurring {
			t.Errorf("expected category %q, got %q", models.CategoryRecurring, views[0].Category)
		}
		if views[0].Type != models.TransactionTypeExpense {
			t.Errorf("expected expense, got %s", views[0].Type)
		}
		if !views[0].Amount.Equal(decimal.NewFromInt(15)) {
			t.Errorf("expected amount 15, got %s", views[0].Amount)
		}
		if views[0].WalletID != nil {
			t.Error("expected materialized transaction to carry no wallet")
		}

		var reloaded models.RecurringTransaction
		env.db.Where("id = ?", template.ID).First(&reloaded)
		expected := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
		if !reloaded.NextDueDate.Equal(expected) {
			t.Errorf("expected next due %s, got %s", expected, reloaded.NextDueDate)
		}

		// Processed templates do not fire again until the next period.
		processed, err = svc.ProcessDueTransactions(due)
		testutil.AssertNoError(t, err)
		if processed != 0 {
			t.Errorf("expected 0 processed on second sweep, got %d", processed)
		}
	})

	t.Run("weekly_advances_seven_days", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
		template := testutil.CreateTestRecurring(t, env.db, env.codec, user.ID,
			models.FrequencyWeekly, 1, decimal.NewFromInt(9), due)

		_, err := svc.ProcessDueTransactions(due)
		testutil.AssertNoError(t, err)

		var reloaded models.RecurringTransaction
		env.db.Where("id = ?", template.ID).First(&reloaded)
		expected := due.AddDate(0, 0, 7)
		if !reloaded.NextDueDate.Equal(expected) {
			t.Errorf("expected next due %s, got %s", expected, reloaded.NextDueDate)
		}
	})

	t.Run("skips_overdue_only_when_not_yet_due", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		future := time.Now().AddDate(0, 1, 0)
		testutil.CreateTestRecurring(t, env.db, env.codec, user.ID,
			models.FrequencyMonthly, 1, decimal.NewFromInt(5), future)

		processed, err := svc.ProcessDueTransactions(time.Now())
		testutil.AssertNoError(t, err)
		if processed != 0 {
			t.Errorf("expected 0 processed, got %d", processed)
		}
	})

	t.Run("one_bad_template_never_aborts_the_sweep", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		due := time.Now().Add(-time.Hour)
		bad := testutil.CreateTestRecurring(t, env.db, env.codec, user.ID,
			models.FrequencyMonthly, 1, decimal.NewFromInt(1), due)
		testutil.SetColumn(t, env.db, bad, "amount", "not-a-number")
		testutil.CreateTestRecurring(t, env.db, env.codec, user.ID,
			models.FrequencyMonthly, 1, decimal.NewFromInt(20), due)

		processed, err := svc.ProcessDueTransactions(time.Now())
		testutil.AssertNoError(t, err)
		if processed != 1 {
			t.Errorf("expected the good template to be processed, got %d", processed)
		}
	})

	t.Run("sends_reminder_when_toggle_enabled", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		testutil.CreateTestRecurring(t, env.db, env.codec, user.ID,
			models.FrequencyMonthly, 1, decimal.NewFromInt(10), time.Now().Add(-time.Hour))

		_, err := svc.ProcessDueTransactions(time.Now())
		testutil.AssertNoError(t, err)

		var count int64
		env.db.Model(&models.Notification{}).
			Where("user_id = ? AND type = ?", user.ID, models.NotificationTypeRecurring).
			Count(&count)
		if count != 1 {
			t.Errorf("expected one recurring notification, got %d", count)
		}
	})

	t.Run("toggle_disabled_suppresses_reminder", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		testutil.SetColumn(t, env.db, user, "alert_recurring", false)
		svc := newRecurringService(env)

		testutil.CreateTestRecurring(t, env.db, env.codec, user.ID,
			models.FrequencyMonthly, 1, decimal.NewFromInt(10), time.Now().Add(-time.Hour))

		processed, err := svc.ProcessDueTransactions(time.Now())
		testutil.AssertNoError(t, err)
		if processed != 1 {
			t.Fatalf("expected template to be processed, got %d", processed)
		}

		var count int64
		env.db.Model(&models.Notification{}).
			Where("user_id = ? AND type = ?", user.ID, models.NotificationTypeRecurring).
			Count(&count)
		if count != 0 {
			t.Errorf("expected no notification with toggle off, got %d", count)
		}
	})
}

func TestDeleteRecurring(t *testing.T) {
	t.Run("not_found", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		err := svc.Delete(user.ID, "missing-id")
		testutil.AssertAppError(t, err, "RECURRING_NOT_FOUND")
	})

	t.Run("deleted_template_stops_firing", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := newRecurringService(env)

		template := testutil.CreateTestRecurring(t, env.db, env.codec, user.ID,
			models.FrequencyMonthly, 1, decimal.NewFromInt(10), time.Now().Add(-time.Hour))

		testutil.AssertNoError(t, svc.Delete(user.ID, template.ID))

		processed, err := svc.ProcessDueTransactions(time.Now())
		testutil.AssertNoError(t, err)
		if processed != 0 {
			t.Errorf("expected 0 processed after delete, got %d", processed)
		}
	})
}

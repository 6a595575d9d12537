package services

import (
	"errors"
	"testing"

	"monetra/internal/models"
	"monetra/internal/pagination"
	"monetra/internal/testutil"
)

// recordingPusher captures Send calls for assertions.
type recordingPusher struct {
	sent []sentPush
	err  error
}

type sentPush struct {
	userID string
	token  string
	title  string
	data   map[string]string
}

func (p *recordingPusher) Send(userID, token, title, body string, data map[string]string) error {
	p.sent = append(p.sent, sentPush{userID: userID, token: token, title: title, data: data})
	return p.err
}

func TestCreateNotification(t *testing.T) {
	t.Run("persists_with_metadata", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := NewNotificationService(env.db, nil)

		n, err := svc.Create(user.ID, models.NotificationTypeBudget, "Budget alert", "80% reached", map[string]any{"threshold": 80})
		testutil.AssertNoError(t, err)

		if n.ID == "" {
			t.Fatal("expected non-empty notification ID")
		}
		if n.Metadata == "" {
			t.Error("expected metadata to be persisted")
		}
		if n.IsRead {
			t.Error("expected new notification to be unread")
		}
	})

	t.Run("pushes_to_registered_token", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		testutil.SetColumn(t, env.db, user, "fcm_token", "token-abc")

		pusher := &recordingPusher{}
		svc := NewNotificationService(env.db, pusher)

		n, err := svc.Create(user.ID, models.NotificationTypeRecurring, "Processed", "Rent was added", nil)
		testutil.AssertNoError(t, err)

		if len(pusher.sent) != 1 {
			t.Fatalf("expected one push, got %d", len(pusher.sent))
		}
		if pusher.sent[0].token != "token-abc" {
			t.Errorf("expected token-abc, got %s", pusher.sent[0].token)
		}
		if pusher.sent[0].data["notification_id"] != n.ID {
			t.Error("expected push data to carry the notification id")
		}
	})

	t.Run("skips_push_without_token", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		pusher := &recordingPusher{}
		svc := NewNotificationService(env.db, pusher)

		_, err := svc.Create(user.ID, models.NotificationTypeBudget, "Alert", "msg", nil)
		testutil.AssertNoError(t, err)
		if len(pusher.sent) != 0 {
			t.Errorf("expected no push without a token, got %d", len(pusher.sent))
		}
	})

	t.Run("push_failure_never_fails_create", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		testutil.SetColumn(t, env.db, user, "fcm_token", "token-abc")

		pusher := &recordingPusher{err: errors.New("fcm unavailable")}
		svc := NewNotificationService(env.db, pusher)

		_, err := svc.Create(user.ID, models.NotificationTypeBudget, "Alert", "msg", nil)
		testutil.AssertNoError(t, err)
	})
}

func TestMarkRead(t *testing.T) {
	t.Run("marks_single", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := NewNotificationService(env.db, nil)

		n, err := svc.Create(user.ID, models.NotificationTypeBudget, "Alert", "msg", nil)
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.MarkRead(user.ID, n.ID))

		var reloaded models.Notification
		env.db.Where("id = ?", n.ID).First(&reloaded)
		if !reloaded.IsRead {
			t.Error("expected notification to be read")
		}
	})

	t.Run("not_found", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := NewNotificationService(env.db, nil)

		err := svc.MarkRead(user.ID, "missing-id")
		testutil.AssertAppError(t, err, "NOTIFICATION_NOT_FOUND")
	})

	t.Run("mark_all", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := NewNotificationService(env.db, nil)

		for i := 0; i < 3; i++ {
			_, err := svc.Create(user.ID, models.NotificationTypeBudget, "Alert", "msg", nil)
			testutil.AssertNoError(t, err)
		}

		testutil.AssertNoError(t, svc.MarkAllRead(user.ID))

		var unread int64
		env.db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", user.ID, false).Count(&unread)
		if unread != 0 {
			t.Errorf("expected no unread notifications, got %d", unread)
		}
	})
}

func TestGetUserNotifications(t *testing.T) {
	t.Run("paginated_newest_first", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		svc := NewNotificationService(env.db, nil)

		for i := 0; i < 5; i++ {
			_, err := svc.Create(user.ID, models.NotificationTypeBudget, "Alert", "msg", nil)
			testutil.AssertNoError(t, err)
		}

		page, err := svc.GetUserNotifications(user.ID, pagination.PageRequest{Page: 1, PageSize: 3})
		testutil.AssertNoError(t, err)
		if len(page.Data) != 3 {
			t.Errorf("expected 3 notifications, got %d", len(page.Data))
		}
		if page.TotalItems != 5 {
			t.Errorf("expected 5 total, got %d", page.TotalItems)
		}
	})
}

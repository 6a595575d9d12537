package services

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	apperrors "monetra/internal/errors"
	"monetra/internal/logger"
	"monetra/internal/models"
	"monetra/internal/pagination"
)

// notificationService persists alert records and hands payloads to the
// push delivery collaborator.
type notificationService struct {
	db     *gorm.DB
	pusher Pusher
}

// NewNotificationService creates a new NotificationServicer. A nil
// pusher disables delivery while persistence keeps working.
func NewNotificationService(db *gorm.DB, pusher Pusher) NotificationServicer {
	return &notificationService{db: db, pusher: pusher}
}

// Create persists a notification row, then hands it to push delivery.
// Delivery failure is logged and never affects the return value.
func (s *notificationService) Create(userID string, notificationType models.NotificationType, title, message string, metadata map[string]any) (*models.Notification, error) {
	var metadataJSON string
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			logger.Get().Errorw("failed to marshal notification metadata", "error", err, "type", notificationType)
			metadataJSON = "{}"
		} else {
			metadataJSON = string(data)
		}
	}

	notification := &models.Notification{
		UserID:   userID,
		Type:     notificationType,
		Title:    title,
		Message:  message,
		Metadata: metadataJSON,
	}

	if err := s.db.Create(notification).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.push(userID, notification)
	return notification, nil
}

func (s *notificationService) push(userID string, n *models.Notification) {
	if s.pusher == nil {
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		logger.Get().Errorw("failed to load user for push delivery", "user_id", userID, "error", err)
		return
	}
	if user.FCMToken == "" {
		return
	}

	data := map[string]string{
		"type":            string(n.Type),
		"notification_id": n.ID,
	}
	if err := s.pusher.Send(userID, user.FCMToken, n.Title, n.Message, data); err != nil {
		logger.Get().Errorw("push delivery failed",
			"user_id", userID,
			"notification_id", n.ID,
			"error", err,
		)
	}
}

// GetUserNotifications returns a paginated list of the user's
// notifications, newest first.
func (s *notificationService) GetUserNotifications(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error) {
	page.Defaults()

	base := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var notifications []models.Notification
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(notifications, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// MarkRead marks a single notification as read.
func (s *notificationService) MarkRead(userID, notificationID string) error {
	var notification models.Notification
	if err := s.db.Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotificationNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&notification).Update("is_read", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// MarkAllRead marks every unread notification for the user as read.
func (s *notificationService) MarkAllRead(userID string) error {
	if err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

package push

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"monetra/internal/logger"
)

// FCMPusher delivers push notifications via Firebase Cloud Messaging.
// A nil *FCMPusher is a valid no-op pusher, so callers never need to
// branch on whether push is configured.
type FCMPusher struct {
	client *messaging.Client
}

// NewFCMPusher creates an FCM pusher. Returns nil if Firebase is not configured.
func NewFCMPusher(serviceAccountPath string) *FCMPusher {
	if serviceAccountPath == "" {
		return nil
	}
	ctx := context.Background()
	opt := option.WithCredentialsFile(serviceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		logger.Named("fcm").Errorw("failed to init Firebase app", "error", err)
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Named("fcm").Errorw("failed to get messaging client", "error", err)
		return nil
	}
	return &FCMPusher{client: client}
}

// Send delivers a push notification to the given FCM token.
func (p *FCMPusher) Send(userID, token, title, body string, data map[string]string) error {
	if p == nil || token == "" {
		return nil
	}
	msg := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	if _, err := p.client.Send(context.Background(), msg); err != nil {
		logger.Named("fcm").Errorw("send failed", "user_id", userID, "error", err)
		return err
	}
	return nil
}

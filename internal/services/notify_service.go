package services

import (
	"context"
	"fmt"
	"log"

	"firebase.google.com/go/messaging"

	"tbarimtBack/internal/models"
)

// NotifyService pushes a confirmation to the buyer's device once a payment
// settles. Everything here is best effort; a push failure never fails the
// payment.
type NotifyService struct {
	Client   *messaging.Client // nil when FCM is not configured
	Users    UserStore
	ErrorLog *log.Logger
}

func (s *NotifyService) PaymentConfirmed(ctx context.Context, inv models.Invoice) {
	if s == nil || s.Client == nil {
		return
	}
	u, err := s.Users.GetUserByID(ctx, inv.UserID)
	if err != nil {
		s.ErrorLog.Printf("notify invoice %d: user %d: %v", inv.ID, inv.UserID, err)
		return
	}
	if u.FCMToken == "" {
		return
	}

	title := "Төлбөр амжилттай"
	body := fmt.Sprintf("%s. Дүн: %.0f₮", inv.Description, inv.Amount)

	message := &messaging.Message{
		Token: u.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"invoice_id": fmt.Sprint(inv.ID),
			"kind":       string(inv.Kind),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
			},
		},
	}

	if _, err := s.Client.Send(ctx, message); err != nil {
		s.ErrorLog.Printf("notify invoice %d: send: %v", inv.ID, err)
	}
}

package notification

import (
	"context"
	"fmt"

	"luxride/models"
	"luxride/utils"

	"firebase.google.com/go/v4/messaging"
)

// DispatchNotificationService pushes confirmed bookings to the dispatch
// team's devices over FCM.
type DispatchNotificationService interface {
	NotifyBookingConfirmed(ctx context.Context, session *models.BookingSession) error
}

// DefaultDispatchNotificationService is the production implementation. It
// publishes to a topic the dispatch app subscribes to.
type DefaultDispatchNotificationService struct {
	Topic string
}

func NewDefaultDispatchNotificationService(topic string) (*DefaultDispatchNotificationService, error) {
	if topic == "" {
		return nil, fmt.Errorf("notification service initialization error: dispatch topic is empty")
	}
	return &DefaultDispatchNotificationService{Topic: topic}, nil
}

// NotifyBookingConfirmed sends a push with the booking summary.
func (s *DefaultDispatchNotificationService) NotifyBookingConfirmed(ctx context.Context, session *models.BookingSession) error {
	if utils.FCMClient == nil {
		return fmt.Errorf("NotifyBookingConfirmed: FCM client not initialized")
	}

	title := fmt.Sprintf("New booking %s", session.ConfirmationID)
	body := fmt.Sprintf("%s, %s from %s",
		session.Field(models.FieldCustomerName).Display(),
		session.Field(models.FieldVehicleType).Display(),
		session.Field(models.FieldPickupLocation).Display())

	data := map[string]string{
		"bookingId":      session.BookingID,
		"confirmationId": session.ConfirmationID,
		"bookingType":    string(session.BookingType),
		"customerKey":    session.CustomerKey,
	}
	if session.Pricing != nil {
		data["total"] = fmt.Sprintf("%.2f %s", session.Pricing.Total, session.Pricing.Currency)
	}

	msg := &messaging.Message{
		Topic: s.Topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("NotifyBookingConfirmed: failed to send FCM message: %w", err)
	}
	return nil
}

package booking

import (
	"context"
	"time"

	"luxride/models"

	"go.uber.org/zap"
)

// Timing policy for confirmed sessions.
const (
	// ConfirmGraceWindow keeps a confirmed session addressable for late
	// retries before it is removed from the live map.
	ConfirmGraceWindow = 30 * time.Second
	// StaleConfirmedTTL bounds how long a confirmed session may linger if
	// the scheduled removal never ran.
	StaleConfirmedTTL = time.Hour
)

// StepResult reports where the conversation stands after a field write.
type StepResult struct {
	Session *models.BookingSession
	// Next is the field the caller should prompt for, "" when none remain.
	Next models.FieldName
	// AwaitingConfirmation is set once every required field is collected.
	AwaitingConfirmation bool
	// EditCompleted is set when the write closed an editing sub-mode.
	EditCompleted bool
}

// BookingFlowService drives one booking conversation: creation, field
// collection, edit-mode, confirmation, cancellation.
type BookingFlowService interface {
	StartBooking(ctx context.Context, customerKey string) (*models.BookingSession, error)
	SupplyBookingType(ctx context.Context, bookingID, raw string) (*StepResult, error)
	SupplyField(ctx context.Context, bookingID string, field models.FieldName, raw string) (*StepResult, error)
	SupplyLocation(ctx context.Context, bookingID string, field models.FieldName, loc models.Location) (*StepResult, error)
	BeginEdit(ctx context.Context, bookingID string, field models.FieldName) error
	Confirm(ctx context.Context, bookingID string) (*models.BookingSession, error)
	Cancel(ctx context.Context, bookingID string) error
	GetActiveSession(customerKey string) (*models.BookingSession, bool)
	RecordTurn(bookingID, role, text string)
}

// CleanupScheduler queues the delayed removal of a confirmed session. The
// lazy sweep in GetActiveSession covers the case where the queue is down.
type CleanupScheduler interface {
	ScheduleRemoval(bookingID string, delay time.Duration) error
}

// DispatchNotifier tells the dispatch team about a confirmed booking.
type DispatchNotifier interface {
	NotifyBookingConfirmed(ctx context.Context, session *models.BookingSession) error
}

// DefaultBookingFlowService implements BookingFlowService.
type DefaultBookingFlowService struct {
	Store    *SessionStore
	Oracle   PricingOracle
	Payments PaymentLinker
	Cleanup  CleanupScheduler
	Notifier DispatchNotifier
	Currency string
	Logger   *zap.Logger
}

func (f *DefaultBookingFlowService) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.L()
	}
	return f.Logger
}

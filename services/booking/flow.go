package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"luxride/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// costRelevant marks the fields whose value changes the fare.
var costRelevant = map[models.FieldName]bool{
	models.FieldVehicleType:    true,
	models.FieldBookingType:    true,
	models.FieldNumberOfHours:  true,
	models.FieldPickupLocation: true,
	models.FieldDropLocation:   true,
	models.FieldPassengerCount: true,
}

// StartBooking creates a fresh session for the customer. If a pending
// session already exists it is returned alongside an alreadyActive error so
// the caller resumes it instead of double-booking.
func (f *DefaultBookingFlowService) StartBooking(ctx context.Context, customerKey string) (*models.BookingSession, error) {
	if existing, ok := f.Store.GetActiveByCustomer(customerKey); ok {
		return existing, NewAlreadyActiveError(existing.BookingID)
	}

	// A confirmed session left over from a previous ride must not shadow
	// the new one.
	f.Store.DropTerminalByCustomer(customerKey)

	now := time.Now()
	session := &models.BookingSession{
		BookingID:   f.newBookingID(),
		CustomerKey: customerKey,
		BookingType: models.BookingTypeUnset,
		Fields:      make(map[models.FieldName]models.FieldValue),
		Status:      models.BookingStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.Store.Put(session); err != nil {
		return nil, err
	}
	f.logger().Info("booking session created",
		zap.String("bookingId", session.BookingID), zap.String("customer", customerKey))
	return session, nil
}

// newBookingID builds a timestamped id with a random suffix, collision-
// checked against the live map before acceptance.
func (f *DefaultBookingFlowService) newBookingID() string {
	for {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
		id := fmt.Sprintf("LXR-%d-%s", time.Now().UnixMilli(), suffix)
		if !f.Store.Exists(id) {
			return id
		}
	}
}

// SupplyBookingType sets the booking type. Mid-edit it recomputes pricing
// (the type decides per-km vs per-hour) and returns to confirmation;
// otherwise collection advances to the vehicle choice.
func (f *DefaultBookingFlowService) SupplyBookingType(ctx context.Context, bookingID, raw string) (*StepResult, error) {
	s, ok := f.Store.Get(bookingID)
	if !ok {
		return nil, NewNotFoundError(bookingID)
	}
	if s.Terminal() {
		return nil, NewInvalidStateError("This booking is closed. Please start a new one.")
	}
	if s.Editing != nil && s.Editing.Field != models.FieldBookingType {
		return nil, NewInvalidStateError(fmt.Sprintf("We are updating %s right now. Please answer that first.", s.Editing.Field))
	}

	bt, okType := ParseBookingType(raw)
	if !okType {
		return nil, NewValidationError("Please choose a booking type: Hourly or Transfer.")
	}

	// Price against the new type before taking the write lock; the oracle
	// call may suspend.
	working := s.Clone()
	working.BookingType = bt
	pricing := f.computePricing(ctx, working)

	wasEditing := false
	updated, err := f.Store.Update(bookingID, func(live *models.BookingSession) error {
		if live.Status != models.BookingStatusPending {
			return NewInvalidStateError("This booking is closed. Please start a new one.")
		}
		live.BookingType = bt
		if pricing != nil {
			live.Pricing = pricing
		}
		if live.Editing != nil {
			wasEditing = true
			live.Editing = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f.stepResult(updated, wasEditing), nil
}

// SupplyField validates and writes one answer. Cost-relevant fields trigger
// a pricing recompute that falls back to the static rate table rather than
// failing the write.
func (f *DefaultBookingFlowService) SupplyField(ctx context.Context, bookingID string, field models.FieldName, raw string) (*StepResult, error) {
	if field == models.FieldBookingType {
		return f.SupplyBookingType(ctx, bookingID, raw)
	}

	s, ok := f.Store.Get(bookingID)
	if !ok {
		return nil, NewNotFoundError(bookingID)
	}
	if s.Terminal() {
		return nil, NewInvalidStateError("This booking is closed. Please start a new one.")
	}
	if s.Editing != nil && s.Editing.Field != field {
		return nil, NewInvalidStateError(fmt.Sprintf("We are updating %s right now. Please answer that first.", s.Editing.Field))
	}

	value, err := Validate(field, raw, s.BookingType)
	if err != nil {
		return nil, err
	}
	return f.applyField(ctx, bookingID, field, value)
}

// SupplyLocation writes a shared location pin to a pickup or drop field.
func (f *DefaultBookingFlowService) SupplyLocation(ctx context.Context, bookingID string, field models.FieldName, loc models.Location) (*StepResult, error) {
	if field != models.FieldPickupLocation && field != models.FieldDropLocation {
		return nil, NewInvalidStateError("A location pin only fits the pickup or drop-off step.")
	}
	s, ok := f.Store.Get(bookingID)
	if !ok {
		return nil, NewNotFoundError(bookingID)
	}
	if s.Terminal() {
		return nil, NewInvalidStateError("This booking is closed. Please start a new one.")
	}
	if s.Editing != nil && s.Editing.Field != field {
		return nil, NewInvalidStateError(fmt.Sprintf("We are updating %s right now. Please answer that first.", s.Editing.Field))
	}
	if !loc.HasCoordinates() && strings.TrimSpace(loc.Address) == "" {
		return nil, NewValidationError("That location looks empty. Please type the address or share a pin.")
	}
	return f.applyField(ctx, bookingID, field, models.LocationValue(loc))
}

// applyField recomputes pricing outside the lock, then re-reads the live
// session and applies the write, so interleaved events for the same session
// cannot be lost around the oracle call.
func (f *DefaultBookingFlowService) applyField(ctx context.Context, bookingID string, field models.FieldName, value models.FieldValue) (*StepResult, error) {
	var pricing *models.FareBreakdown
	if costRelevant[field] {
		if s, ok := f.Store.Get(bookingID); ok {
			working := s.Clone()
			working.Fields[field] = value
			pricing = f.computePricing(ctx, working)
		}
	}

	wasEditing := false
	updated, err := f.Store.Update(bookingID, func(live *models.BookingSession) error {
		if live.Status != models.BookingStatusPending {
			return NewInvalidStateError("This booking is closed. Please start a new one.")
		}
		if live.Editing != nil && live.Editing.Field != field {
			return NewInvalidStateError(fmt.Sprintf("We are updating %s right now. Please answer that first.", live.Editing.Field))
		}
		live.Fields[field] = value
		if pricing != nil {
			live.Pricing = pricing
		}
		if live.Editing != nil {
			wasEditing = true
			live.Editing = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f.stepResult(updated, wasEditing), nil
}

func (f *DefaultBookingFlowService) stepResult(s *models.BookingSession, editCompleted bool) *StepResult {
	next := NextMissing(s)
	return &StepResult{
		Session:              s,
		Next:                 next,
		AwaitingConfirmation: next == "",
		EditCompleted:        editCompleted,
	}
}

// computePricing returns a fresh breakdown, or nil while the vehicle or
// booking type is still unknown. An oracle failure is logged and replaced
// by the fallback table; it never propagates out of the write path.
func (f *DefaultBookingFlowService) computePricing(ctx context.Context, s *models.BookingSession) *models.FareBreakdown {
	if s.BookingType == models.BookingTypeUnset || s.FieldMissing(models.FieldVehicleType) {
		return nil
	}
	req := FareRequest{
		VehicleType: s.Field(models.FieldVehicleType).Text,
		BookingType: s.BookingType,
		Hours:       s.Field(models.FieldNumberOfHours).Number,
		Pickup:      s.Field(models.FieldPickupLocation).Location,
		Drop:        s.Field(models.FieldDropLocation).Location,
		Currency:    f.Currency,
	}
	if f.Oracle == nil {
		return FallbackFare(req)
	}
	fb, err := f.Oracle.ComputeFare(ctx, req)
	if err != nil {
		f.logger().Warn("pricing oracle unavailable, using fallback rates",
			zap.String("bookingId", s.BookingID), zap.Error(err))
		return FallbackFare(req)
	}
	return fb
}

// BeginEdit opens the editing sub-mode for one field. Valid only once every
// required field is collected and no other edit is open.
func (f *DefaultBookingFlowService) BeginEdit(ctx context.Context, bookingID string, field models.FieldName) error {
	s, ok := f.Store.Get(bookingID)
	if !ok {
		return NewNotFoundError(bookingID)
	}
	if s.Status != models.BookingStatusPending {
		return NewInvalidStateError("This booking is closed. Please start a new one.")
	}
	if len(MissingFields(s)) > 0 {
		return NewInvalidStateError("Let's finish the remaining details before editing.")
	}
	if s.Editing != nil {
		return NewInvalidStateError(fmt.Sprintf("We are already updating %s.", s.Editing.Field))
	}
	if StepNumber(field, s.BookingType) == 0 {
		return NewValidationError("That detail is not part of this booking.")
	}

	_, err := f.Store.Update(bookingID, func(live *models.BookingSession) error {
		if live.Status != models.BookingStatusPending {
			return NewInvalidStateError("This booking is closed. Please start a new one.")
		}
		live.Editing = &models.EditingState{Field: field, StartedAt: time.Now()}
		return nil
	})
	return err
}

// Confirm finalizes the booking: a confirmation id is assigned, a payment
// link is generated, and removal is scheduled after the grace window. A
// second Confirm on the same session fails with invalidState.
func (f *DefaultBookingFlowService) Confirm(ctx context.Context, bookingID string) (*models.BookingSession, error) {
	s, ok := f.Store.Get(bookingID)
	if !ok {
		return nil, NewNotFoundError(bookingID)
	}
	if s.Status != models.BookingStatusPending {
		return nil, NewInvalidStateError("This booking is already closed. Please start a new one.")
	}
	if s.Editing != nil {
		return nil, NewInvalidStateError("Please finish the detail you are updating first.")
	}
	if len(MissingFields(s)) > 0 {
		return nil, NewInvalidStateError("A few details are still missing before we can confirm.")
	}

	// Make sure a fare exists even if no cost-relevant field was ever
	// rewritten after the vehicle choice.
	if s.Pricing == nil {
		s.Pricing = f.computePricing(ctx, s)
	}

	confirmationID := "CNF-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	var paymentLink string
	if f.Payments != nil {
		link, err := f.Payments.CreatePaymentLink(ctx, s, confirmationID)
		if err != nil {
			f.logger().Error("payment link generation failed",
				zap.String("bookingId", bookingID), zap.Error(err))
		} else {
			paymentLink = link
		}
	}

	now := time.Now()
	updated, err := f.Store.Update(bookingID, func(live *models.BookingSession) error {
		if live.Status != models.BookingStatusPending {
			return NewInvalidStateError("This booking is already closed. Please start a new one.")
		}
		live.Status = models.BookingStatusConfirmed
		live.ConfirmedAt = &now
		live.ConfirmationID = confirmationID
		live.PaymentLink = paymentLink
		if live.Pricing == nil {
			live.Pricing = s.Pricing
		}
		live.Editing = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if f.Cleanup != nil {
		if err := f.Cleanup.ScheduleRemoval(bookingID, ConfirmGraceWindow); err != nil {
			f.logger().Warn("could not schedule session removal, lazy sweep will cover it",
				zap.String("bookingId", bookingID), zap.Error(err))
		}
	}
	if f.Notifier != nil {
		go func(snapshot *models.BookingSession) {
			nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := f.Notifier.NotifyBookingConfirmed(nctx, snapshot); err != nil {
				f.logger().Warn("dispatch notification failed",
					zap.String("bookingId", bookingID), zap.Error(err))
			}
		}(updated.Clone())
	}

	f.logger().Info("booking confirmed",
		zap.String("bookingId", bookingID), zap.String("confirmationId", confirmationID))
	return updated, nil
}

// Cancel closes the session and frees the customer for a new booking
// immediately.
func (f *DefaultBookingFlowService) Cancel(ctx context.Context, bookingID string) error {
	s, ok := f.Store.Get(bookingID)
	if !ok {
		return NewNotFoundError(bookingID)
	}
	if s.Terminal() {
		return NewInvalidStateError("This booking is already closed.")
	}

	_, err := f.Store.Update(bookingID, func(live *models.BookingSession) error {
		if live.Status != models.BookingStatusPending {
			return NewInvalidStateError("This booking is already closed.")
		}
		live.Status = models.BookingStatusCancelled
		live.Editing = nil
		return nil
	})
	if err != nil {
		return err
	}
	f.Store.Remove(bookingID)
	f.logger().Info("booking cancelled", zap.String("bookingId", bookingID))
	return nil
}

// GetActiveSession returns the customer's pending session, sweeping
// long-confirmed sessions on the way to bound memory.
func (f *DefaultBookingFlowService) GetActiveSession(customerKey string) (*models.BookingSession, bool) {
	if n := f.Store.SweepStale(StaleConfirmedTTL); n > 0 {
		f.logger().Debug("swept stale confirmed sessions", zap.Int("count", n))
	}
	return f.Store.GetActiveByCustomer(customerKey)
}

// RemoveIfConfirmed drops a session after the post-confirmation grace
// window. Called by the cleanup worker; a no-op for anything still pending.
func (f *DefaultBookingFlowService) RemoveIfConfirmed(bookingID string) {
	if s, ok := f.Store.Get(bookingID); ok && s.Status == models.BookingStatusConfirmed {
		f.Store.Remove(bookingID)
	}
}

// RecordTurn appends one turn to the session's audit trail. Best-effort;
// a missing session is ignored.
func (f *DefaultBookingFlowService) RecordTurn(bookingID, role, text string) {
	now := time.Now()
	_, _ = f.Store.Update(bookingID, func(live *models.BookingSession) error {
		live.AppendTurn(role, text, now)
		return nil
	})
}

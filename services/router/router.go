package router

import (
	"bytes"
	"context"
	"strings"

	"luxride/models"
	"luxride/services/booking"
	"luxride/services/gateway"
	ai "luxride/services/intelligence"
	"luxride/utils"

	"go.uber.org/zap"
)

// ConversationRouter maps inbound events onto state-machine operations and
// renders the next prompt. It owns no booking state of its own.
type ConversationRouter struct {
	Flow    booking.BookingFlowService
	Gateway gateway.MessagingGateway
	AI      ai.LanguageInferenceService
	Dedup   *EventDeduper
	Logger  *zap.Logger
}

var bookingIntents = map[string]bool{
	"book": true, "hi": true, "hello": true, "start": true,
	"new booking": true, "book a ride": true, "menu": true,
}

// HandleEvent processes one inbound customer turn. Whatever goes wrong
// inside, the customer only ever sees a re-prompt or a generic safe message.
func (r *ConversationRouter) HandleEvent(ctx context.Context, ev models.InboundEvent) {
	if r.Dedup.Seen(ctx, ev.EventID) {
		r.logger().Debug("dropped duplicate event", zap.String("eventId", ev.EventID))
		return
	}

	if err := r.route(ctx, ev); err != nil {
		r.logger().Error("event routing failed",
			zap.String("customer", ev.CustomerKey), zap.Error(err))
		r.send(ctx, ev.CustomerKey, "", textReply("An error occurred. Please try again or start a new booking."))
	}
}

func (r *ConversationRouter) route(ctx context.Context, ev models.InboundEvent) error {
	// Voice notes and images are reduced to the text path first.
	if ev.Kind == models.EventMedia {
		reduced, ok := r.reduceMedia(ctx, &ev)
		if !ok {
			return nil // reply already sent
		}
		ev = reduced
	}

	session, active := r.Flow.GetActiveSession(ev.CustomerKey)
	if active {
		r.Flow.RecordTurn(session.BookingID, "customer", inboundSummary(ev))
	}

	switch ev.Kind {
	case models.EventListSelection, models.EventButtonTap:
		return r.routeSelection(ctx, ev, session, active)
	case models.EventLocationShare:
		return r.routeLocation(ctx, ev, session, active)
	default:
		return r.routeText(ctx, ev, session, active)
	}
}

// reduceMedia turns a media event into a text event where possible. Images
// get archived for the audit trail and a gentle re-prompt; voice notes are
// transcribed and continue down the text path.
func (r *ConversationRouter) reduceMedia(ctx context.Context, ev *models.InboundEvent) (models.InboundEvent, bool) {
	data, mime, err := r.Gateway.FetchMedia(ctx, ev.MediaURL)
	if err != nil {
		r.logger().Warn("media fetch failed", zap.String("customer", ev.CustomerKey), zap.Error(err))
		r.send(ctx, ev.CustomerKey, "", textReply("We couldn't read that attachment. Please type your answer instead."))
		return models.InboundEvent{}, false
	}

	if strings.HasPrefix(mime, "audio/") && r.AI != nil {
		text, err := r.AI.Transcribe(ctx, data, mime)
		if err != nil {
			r.logger().Warn("voice transcription failed", zap.String("customer", ev.CustomerKey), zap.Error(err))
			r.send(ctx, ev.CustomerKey, "", textReply("Sorry, we couldn't hear that. Please type your answer."))
			return models.InboundEvent{}, false
		}
		out := *ev
		out.Kind = models.EventText
		out.Text = text
		return out, true
	}

	// Anything else (images, documents) is archived and answered with a
	// request to type the detail.
	if url, err := utils.ArchiveMedia(ctx, bytes.NewReader(data), "luxride/conversations"); err == nil {
		if s, ok := r.Flow.GetActiveSession(ev.CustomerKey); ok {
			r.Flow.RecordTurn(s.BookingID, "customer", "[media] "+url)
		}
	}
	r.send(ctx, ev.CustomerKey, "", textReply("Thanks! To keep things accurate, please type that detail as text."))
	return models.InboundEvent{}, false
}

func (r *ConversationRouter) routeSelection(ctx context.Context, ev models.InboundEvent, session *models.BookingSession, active bool) error {
	sel := ev.SelectionID

	if !active {
		r.send(ctx, ev.CustomerKey, "", textReply("That booking is no longer active. Reply 'book' to start a new one."))
		return nil
	}

	switch {
	case sel == "booking_hourly" || sel == "booking_transfer":
		res, err := r.Flow.SupplyBookingType(ctx, session.BookingID, strings.TrimPrefix(sel, "booking_"))
		return r.afterStep(ctx, ev.CustomerKey, session.BookingID, res, err)

	case strings.HasPrefix(sel, "vehicle_"):
		raw := strings.ReplaceAll(strings.TrimPrefix(sel, "vehicle_"), "_", " ")
		res, err := r.Flow.SupplyField(ctx, session.BookingID, models.FieldVehicleType, raw)
		return r.afterStep(ctx, ev.CustomerKey, session.BookingID, res, err)

	case strings.HasPrefix(sel, "edit_"):
		field := models.FieldName(strings.TrimPrefix(sel, "edit_"))
		if err := r.Flow.BeginEdit(ctx, session.BookingID, field); err != nil {
			r.send(ctx, ev.CustomerKey, session.BookingID, textReply(booking.UserMessage(err)))
			return nil
		}
		r.send(ctx, ev.CustomerKey, session.BookingID, booking.Prompt(field, session.BookingType))
		return nil

	case sel == "btn_confirm":
		return r.confirm(ctx, ev.CustomerKey, session.BookingID)

	case sel == "btn_edit":
		r.send(ctx, ev.CustomerKey, session.BookingID, editMenu(session))
		return nil

	case sel == "btn_cancel":
		return r.cancel(ctx, ev.CustomerKey, session.BookingID)
	}

	r.send(ctx, ev.CustomerKey, session.BookingID, textReply("That choice isn't available right now."))
	return nil
}

func (r *ConversationRouter) routeLocation(ctx context.Context, ev models.InboundEvent, session *models.BookingSession, active bool) error {
	if !active {
		r.send(ctx, ev.CustomerKey, "", textReply("Reply 'book' to start a booking first, then share your pickup pin."))
		return nil
	}

	loc := models.Location{Address: ev.Address, Lat: ev.Latitude, Lng: ev.Longitude}

	field := models.FieldPickupLocation
	if session.Editing != nil {
		field = session.Editing.Field
	} else if next := booking.NextMissing(session); next == models.FieldDropLocation || next == models.FieldPickupLocation {
		field = next
	} else if !session.FieldMissing(models.FieldPickupLocation) && session.BookingType == models.BookingTypeTransfer {
		field = models.FieldDropLocation
	}

	res, err := r.Flow.SupplyLocation(ctx, session.BookingID, field, loc)
	return r.afterStep(ctx, ev.CustomerKey, session.BookingID, res, err)
}

func (r *ConversationRouter) routeText(ctx context.Context, ev models.InboundEvent, session *models.BookingSession, active bool) error {
	text := strings.TrimSpace(ev.Text)
	lower := strings.ToLower(text)

	// Commands come first; they work at any step.
	switch {
	case lower == "cancel":
		if !active {
			r.send(ctx, ev.CustomerKey, "", textReply("There's nothing to cancel. Reply 'book' to start a booking."))
			return nil
		}
		return r.cancel(ctx, ev.CustomerKey, session.BookingID)

	case lower == "confirm" || lower == "yes":
		if active && len(booking.MissingFields(session)) == 0 && session.Editing == nil {
			return r.confirm(ctx, ev.CustomerKey, session.BookingID)
		}

	case lower == "edit":
		if active && len(booking.MissingFields(session)) == 0 {
			r.send(ctx, ev.CustomerKey, session.BookingID, editMenu(session))
			return nil
		}
	}

	if !active {
		if bookingIntents[lower] {
			return r.startBooking(ctx, ev.CustomerKey)
		}
		r.send(ctx, ev.CustomerKey, "", textReply("Welcome to LuxRide chauffeur service. Reply 'book' to arrange a ride."))
		return nil
	}

	// Booking intent with a pending session resumes it instead of creating
	// a second one.
	if bookingIntents[lower] {
		return r.resume(ctx, ev.CustomerKey, session)
	}

	// Mid-edit, every answer belongs to the single field being corrected.
	if session.Editing != nil {
		res, err := r.Flow.SupplyField(ctx, session.BookingID, session.Editing.Field, text)
		return r.afterStep(ctx, ev.CustomerKey, session.BookingID, res, err)
	}

	next := booking.NextMissing(session)
	if next == "" {
		r.send(ctx, ev.CustomerKey, session.BookingID, confirmButtons(session))
		return nil
	}
	if next == models.FieldBookingType {
		res, err := r.Flow.SupplyBookingType(ctx, session.BookingID, text)
		return r.afterStep(ctx, ev.CustomerKey, session.BookingID, res, err)
	}

	// Try the answer against the field we asked for; if it doesn't fit,
	// let the language service see whether the message filled other fields
	// ("2 bags, 3 passengers").
	res, err := r.Flow.SupplyField(ctx, session.BookingID, next, text)
	if err != nil && booking.IsCode(err, booking.CodeValidation) && r.AI != nil {
		if handled := r.extractAndApply(ctx, ev.CustomerKey, session, text); handled {
			return nil
		}
	}
	return r.afterStep(ctx, ev.CustomerKey, session.BookingID, res, err)
}

// extractAndApply runs free text through the language inference service and
// applies whatever fields it found, in schema order. Returns false when
// nothing usable came back so the caller falls through to the validation
// re-prompt.
func (r *ConversationRouter) extractAndApply(ctx context.Context, customerKey string, session *models.BookingSession, text string) bool {
	extracted, err := r.AI.ExtractFields(ctx, text, session.BookingType, session.Fields)
	if err != nil {
		r.logger().Warn("field extraction failed", zap.String("bookingId", session.BookingID), zap.Error(err))
		return false
	}
	if len(extracted) == 0 {
		return false
	}

	var last *booking.StepResult
	for _, f := range booking.RequiredFields(session.BookingType) {
		raw, ok := extracted[f]
		if !ok {
			continue
		}
		res, err := r.Flow.SupplyField(ctx, session.BookingID, f, raw)
		if err != nil {
			continue // extracted value didn't validate; keep the rest
		}
		last = res
	}
	if last == nil {
		return false
	}
	return r.afterStep(ctx, customerKey, session.BookingID, last, nil) == nil
}

func (r *ConversationRouter) startBooking(ctx context.Context, customerKey string) error {
	session, err := r.Flow.StartBooking(ctx, customerKey)
	if err != nil {
		if booking.IsCode(err, booking.CodeAlreadyActive) {
			return r.resume(ctx, customerKey, session)
		}
		return err
	}
	r.Flow.RecordTurn(session.BookingID, "customer", "book")
	r.send(ctx, customerKey, session.BookingID, booking.Prompt(models.FieldBookingType, session.BookingType))
	return nil
}

// resume re-prompts for the next missing field of an existing session
// instead of opening a second one.
func (r *ConversationRouter) resume(ctx context.Context, customerKey string, session *models.BookingSession) error {
	next := booking.NextMissing(session)
	if next == "" {
		r.send(ctx, customerKey, session.BookingID, confirmButtons(session))
		return nil
	}
	r.send(ctx, customerKey, session.BookingID,
		textReply("You already have booking "+session.BookingID+" in progress. Let's continue."))
	r.send(ctx, customerKey, session.BookingID, booking.Prompt(next, session.BookingType))
	return nil
}

func (r *ConversationRouter) confirm(ctx context.Context, customerKey, bookingID string) error {
	confirmed, err := r.Flow.Confirm(ctx, bookingID)
	if err != nil {
		r.send(ctx, customerKey, bookingID, textReply(booking.UserMessage(err)))
		return nil
	}
	r.send(ctx, customerKey, bookingID, textReply(confirmationText(confirmed)))
	return nil
}

func (r *ConversationRouter) cancel(ctx context.Context, customerKey, bookingID string) error {
	if err := r.Flow.Cancel(ctx, bookingID); err != nil {
		r.send(ctx, customerKey, bookingID, textReply(booking.UserMessage(err)))
		return nil
	}
	r.send(ctx, customerKey, bookingID, textReply("Your booking has been cancelled. Reply 'book' whenever you need a ride."))
	return nil
}

// afterStep renders the follow-up to a field write: the validation
// re-prompt, the next question, or the confirmation summary.
func (r *ConversationRouter) afterStep(ctx context.Context, customerKey, bookingID string, res *booking.StepResult, err error) error {
	if err != nil {
		r.send(ctx, customerKey, bookingID, textReply(booking.UserMessage(err)))
		return nil
	}
	if res.AwaitingConfirmation {
		r.send(ctx, customerKey, bookingID, confirmButtons(res.Session))
		return nil
	}
	r.send(ctx, customerKey, bookingID, booking.Prompt(res.Next, res.Session.BookingType))
	return nil
}

// send delivers a prompt and records it on the audit trail. Gateway errors
// are logged; there is no useful recovery mid-conversation.
func (r *ConversationRouter) send(ctx context.Context, customerKey, bookingID string, prompt models.OutboundPrompt) {
	if bookingID != "" {
		r.Flow.RecordTurn(bookingID, "assistant", prompt.Text)
	}
	if err := r.Gateway.SendPrompt(ctx, customerKey, prompt); err != nil {
		r.logger().Error("failed to deliver prompt",
			zap.String("customer", customerKey), zap.Error(err))
	}
}

func (r *ConversationRouter) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.L()
	}
	return r.Logger
}

func inboundSummary(ev models.InboundEvent) string {
	switch ev.Kind {
	case models.EventListSelection, models.EventButtonTap:
		return "[selection] " + ev.SelectionID
	case models.EventLocationShare:
		return "[location pin]"
	case models.EventMedia:
		return "[media] " + ev.MediaType
	default:
		return ev.Text
	}
}

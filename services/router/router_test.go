package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"luxride/models"
	"luxride/services/booking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	mu    sync.Mutex
	sent  []models.OutboundPrompt
	media map[string]fakeMedia
}

type fakeMedia struct {
	data []byte
	mime string
}

func (g *fakeGateway) SendPrompt(ctx context.Context, customerKey string, prompt models.OutboundPrompt) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, prompt)
	return nil
}

func (g *fakeGateway) FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.media[mediaID]
	if !ok {
		return nil, "", errors.New("media not found")
	}
	return m.data, m.mime, nil
}

func (g *fakeGateway) last(t *testing.T) models.OutboundPrompt {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.sent, "expected at least one outbound prompt")
	return g.sent[len(g.sent)-1]
}

type fakeAI struct {
	extracted  map[models.FieldName]string
	transcript string
	calls      int
}

func (a *fakeAI) ExtractFields(ctx context.Context, freeText string, t models.BookingType, current map[models.FieldName]models.FieldValue) (map[models.FieldName]string, error) {
	a.calls++
	return a.extracted, nil
}

func (a *fakeAI) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if a.transcript == "" {
		return "", errors.New("no transcript")
	}
	return a.transcript, nil
}

type noopRepo struct{}

func (noopRepo) Persist(ctx context.Context, s *models.BookingSession) error { return nil }
func (noopRepo) LoadActiveSessions(ctx context.Context) ([]models.BookingSession, error) {
	return nil, nil
}

type fixedOracle struct{}

func (fixedOracle) ComputeFare(ctx context.Context, req booking.FareRequest) (*models.FareBreakdown, error) {
	return &models.FareBreakdown{
		VehicleType: req.VehicleType,
		BookingType: req.BookingType,
		Total:       100,
		Currency:    req.Currency,
		Source:      models.FareSourceLive,
		ComputedAt:  time.Now(),
	}, nil
}

func newTestRouter(ai *fakeAI) (*ConversationRouter, *fakeGateway, *booking.DefaultBookingFlowService) {
	flow := &booking.DefaultBookingFlowService{
		Store:    booking.NewSessionStore(noopRepo{}, zap.NewNop()),
		Oracle:   fixedOracle{},
		Currency: "AED",
		Logger:   zap.NewNop(),
	}
	gw := &fakeGateway{media: map[string]fakeMedia{}}
	r := &ConversationRouter{Flow: flow, Gateway: gw, Logger: zap.NewNop()}
	if ai != nil {
		r.AI = ai
	}
	return r, gw, flow
}

func textEvent(customer, text string) models.InboundEvent {
	return models.InboundEvent{Kind: models.EventText, CustomerKey: customer, Text: text, Timestamp: time.Now()}
}

func selectionEvent(customer, id string) models.InboundEvent {
	return models.InboundEvent{Kind: models.EventButtonTap, CustomerKey: customer, SelectionID: id, Timestamp: time.Now()}
}

func TestColdTextGetsWelcome(t *testing.T) {
	r, gw, _ := newTestRouter(nil)
	r.HandleEvent(context.Background(), textEvent("+97150", "what time do you open"))
	assert.Contains(t, gw.last(t).Text, "Reply 'book'")
}

func TestBookIntentStartsSession(t *testing.T) {
	r, gw, flow := newTestRouter(nil)
	r.HandleEvent(context.Background(), textEvent("+97150", "book"))

	p := gw.last(t)
	assert.Equal(t, models.PromptButtons, p.Kind)
	require.Len(t, p.Options, 2)
	assert.Equal(t, "booking_hourly", p.Options[0].ID)

	_, active := flow.GetActiveSession("+97150")
	assert.True(t, active)
}

func TestBookIntentResumesInsteadOfDuplicating(t *testing.T) {
	r, gw, flow := newTestRouter(nil)
	ctx := context.Background()
	r.HandleEvent(ctx, textEvent("+97150", "book"))
	first, _ := flow.GetActiveSession("+97150")

	r.HandleEvent(ctx, textEvent("+97150", "book"))
	second, _ := flow.GetActiveSession("+97150")
	assert.Equal(t, first.BookingID, second.BookingID)
	assert.Contains(t, gw.sent[len(gw.sent)-2].Text, "already have booking")
}

func TestFullTransferConversation(t *testing.T) {
	r, gw, flow := newTestRouter(nil)
	ctx := context.Background()
	customer := "+971501234567"

	r.HandleEvent(ctx, textEvent(customer, "hi"))
	r.HandleEvent(ctx, selectionEvent(customer, "booking_transfer"))

	p := gw.last(t)
	assert.Equal(t, models.PromptList, p.Kind, "vehicle menu follows the type choice")

	r.HandleEvent(ctx, selectionEvent(customer, "vehicle_sedan"))
	r.HandleEvent(ctx, textEvent(customer, "Amira Hassan"))
	r.HandleEvent(ctx, textEvent(customer, "Dubai Marina Mall"))
	r.HandleEvent(ctx, textEvent(customer, "DXB Terminal 3"))
	r.HandleEvent(ctx, textEvent(customer, "2 suitcases"))
	r.HandleEvent(ctx, textEvent(customer, "3"))
	r.HandleEvent(ctx, textEvent(customer, "skip"))

	summary := gw.last(t)
	assert.Equal(t, models.PromptButtons, summary.Kind)
	assert.Contains(t, summary.Text, "Here is your booking")
	assert.Contains(t, summary.Text, "Booking type: Transfer")
	assert.Contains(t, summary.Text, "Amira Hassan")
	assert.Contains(t, summary.Text, "Fare: 100.00 AED")
	require.Len(t, summary.Options, 3)
	assert.Equal(t, "btn_confirm", summary.Options[0].ID)

	session, _ := flow.GetActiveSession(customer)
	bookingID := session.BookingID

	r.HandleEvent(ctx, selectionEvent(customer, "btn_confirm"))
	final := gw.last(t)
	assert.Contains(t, final.Text, "Confirmation code: CNF-")

	confirmed, ok := flow.Store.Get(bookingID)
	require.True(t, ok)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
}

func TestConfirmTapWhileCollectingIsRejected(t *testing.T) {
	r, gw, flow := newTestRouter(nil)
	ctx := context.Background()
	r.HandleEvent(ctx, textEvent("+97150", "book"))
	r.HandleEvent(ctx, selectionEvent("+97150", "booking_transfer"))

	r.HandleEvent(ctx, selectionEvent("+97150", "btn_confirm"))
	assert.Contains(t, gw.last(t).Text, "still missing")

	s, _ := flow.GetActiveSession("+97150")
	assert.Equal(t, models.BookingStatusPending, s.Status)
}

func TestCancelCommand(t *testing.T) {
	r, gw, flow := newTestRouter(nil)
	ctx := context.Background()
	r.HandleEvent(ctx, textEvent("+97150", "book"))
	r.HandleEvent(ctx, textEvent("+97150", "cancel"))

	assert.Contains(t, gw.last(t).Text, "cancelled")
	_, active := flow.GetActiveSession("+97150")
	assert.False(t, active)
}

func TestValidationFailureReprompts(t *testing.T) {
	r, gw, _ := newTestRouter(nil)
	ctx := context.Background()
	r.HandleEvent(ctx, textEvent("+97150", "book"))
	r.HandleEvent(ctx, selectionEvent("+97150", "booking_hourly"))
	r.HandleEvent(ctx, selectionEvent("+97150", "vehicle_suv"))

	r.HandleEvent(ctx, textEvent("+97150", "X")) // name too short
	assert.Contains(t, gw.last(t).Text, "valid name")
}

func TestAIExtractionRescuesFreeText(t *testing.T) {
	ai := &fakeAI{extracted: map[models.FieldName]string{
		models.FieldPassengerCount: "4",
		models.FieldLuggageInfo:    "3 bags",
	}}
	r, _, flow := newTestRouter(ai)
	ctx := context.Background()
	customer := "+97150"

	r.HandleEvent(ctx, textEvent(customer, "book"))
	r.HandleEvent(ctx, selectionEvent(customer, "booking_transfer"))
	r.HandleEvent(ctx, selectionEvent(customer, "vehicle_van"))
	r.HandleEvent(ctx, textEvent(customer, "Omar Khalid"))
	r.HandleEvent(ctx, textEvent(customer, "Palm Jumeirah"))
	r.HandleEvent(ctx, textEvent(customer, "Mall of the Emirates"))

	// Next question is luggage; a digit-free, number-laden answer fails the
	// passenger validator later, so send it at the passengers step.
	r.HandleEvent(ctx, textEvent(customer, "3 bags"))
	r.HandleEvent(ctx, textEvent(customer, "four of us"))

	require.Equal(t, 1, ai.calls)
	s, _ := flow.GetActiveSession(customer)
	assert.Equal(t, 4, s.Field(models.FieldPassengerCount).Number)
}

func TestEditFlowThroughMenu(t *testing.T) {
	r, gw, flow := newTestRouter(nil)
	ctx := context.Background()
	customer := "+97150"

	r.HandleEvent(ctx, textEvent(customer, "book"))
	r.HandleEvent(ctx, selectionEvent(customer, "booking_hourly"))
	r.HandleEvent(ctx, selectionEvent(customer, "vehicle_sedan"))
	r.HandleEvent(ctx, textEvent(customer, "Noor"))
	r.HandleEvent(ctx, textEvent(customer, "Downtown Dubai"))
	r.HandleEvent(ctx, textEvent(customer, "4"))
	r.HandleEvent(ctx, textEvent(customer, "skip"))
	r.HandleEvent(ctx, textEvent(customer, "2"))
	r.HandleEvent(ctx, textEvent(customer, "none"))

	r.HandleEvent(ctx, textEvent(customer, "edit"))
	menu := gw.last(t)
	assert.Equal(t, models.PromptList, menu.Kind)
	assert.Equal(t, "edit_bookingType", menu.Options[0].ID)
	assert.Equal(t, "Hourly", menu.Options[0].Description)

	r.HandleEvent(ctx, selectionEvent(customer, "edit_numberOfHours"))
	assert.Contains(t, gw.last(t).Text, "how many hours")

	r.HandleEvent(ctx, textEvent(customer, "6"))
	summary := gw.last(t)
	assert.Equal(t, models.PromptButtons, summary.Kind, "edit returns to confirmation")

	s, _ := flow.GetActiveSession(customer)
	assert.Equal(t, 6, s.Field(models.FieldNumberOfHours).Number)
	assert.Nil(t, s.Editing)
}

func TestLocationPinFillsNextLocationField(t *testing.T) {
	r, gw, flow := newTestRouter(nil)
	ctx := context.Background()
	customer := "+97150"

	r.HandleEvent(ctx, textEvent(customer, "book"))
	r.HandleEvent(ctx, selectionEvent(customer, "booking_transfer"))
	r.HandleEvent(ctx, selectionEvent(customer, "vehicle_sedan"))
	r.HandleEvent(ctx, textEvent(customer, "Amira"))

	r.HandleEvent(ctx, models.InboundEvent{
		Kind:        models.EventLocationShare,
		CustomerKey: customer,
		Latitude:    25.0772,
		Longitude:   55.1385,
		Timestamp:   time.Now(),
	})

	s, _ := flow.GetActiveSession(customer)
	pickup := s.Field(models.FieldPickupLocation)
	require.NotNil(t, pickup.Location)
	assert.InDelta(t, 25.0772, pickup.Location.Lat, 0.0001)
	assert.Contains(t, gw.last(t).Text, "drop-off")
}

func TestVoiceNoteTranscribedIntoTextPath(t *testing.T) {
	ai := &fakeAI{transcript: "Sedan"}
	r, gw, flow := newTestRouter(ai)
	ctx := context.Background()
	customer := "+97150"

	r.HandleEvent(ctx, textEvent(customer, "book"))
	r.HandleEvent(ctx, selectionEvent(customer, "booking_transfer"))

	gw.mu.Lock()
	gw.media["m-1"] = fakeMedia{data: []byte{1, 2, 3}, mime: "audio/ogg"}
	gw.mu.Unlock()

	r.HandleEvent(ctx, models.InboundEvent{
		Kind:        models.EventMedia,
		CustomerKey: customer,
		MediaURL:    "m-1",
		MediaType:   "audio/ogg",
		Timestamp:   time.Now(),
	})

	s, _ := flow.GetActiveSession(customer)
	assert.Equal(t, "Sedan", s.Field(models.FieldVehicleType).Text)
	assert.Contains(t, gw.last(t).Text, "name")
}

func TestUnreadableMediaAsksForText(t *testing.T) {
	r, gw, _ := newTestRouter(nil)
	r.HandleEvent(context.Background(), models.InboundEvent{
		Kind:        models.EventMedia,
		CustomerKey: "+97150",
		MediaURL:    "missing",
		Timestamp:   time.Now(),
	})
	assert.Contains(t, gw.last(t).Text, "type your answer")
}

func TestSelectionWithoutSessionPrompts(t *testing.T) {
	r, gw, _ := newTestRouter(nil)
	r.HandleEvent(context.Background(), selectionEvent("+97150", "btn_confirm"))
	assert.Contains(t, gw.last(t).Text, "no longer active")
}

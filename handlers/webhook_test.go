package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"luxride/models"
	"luxride/services/booking"
	"luxride/services/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureGateway struct {
	mu   sync.Mutex
	sent []models.OutboundPrompt
}

func (g *captureGateway) SendPrompt(ctx context.Context, customerKey string, prompt models.OutboundPrompt) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, prompt)
	return nil
}

func (g *captureGateway) FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	return nil, "", nil
}

type memRepo struct{}

func (memRepo) Persist(ctx context.Context, s *models.BookingSession) error { return nil }
func (memRepo) LoadActiveSessions(ctx context.Context) ([]models.BookingSession, error) {
	return nil, nil
}

func newWebhookTestServer() (*gin.Engine, *captureGateway, *booking.DefaultBookingFlowService) {
	gin.SetMode(gin.TestMode)

	flow := &booking.DefaultBookingFlowService{
		Store:    booking.NewSessionStore(memRepo{}, zap.NewNop()),
		Currency: "AED",
		Logger:   zap.NewNop(),
	}
	gw := &captureGateway{}
	conv := &router.ConversationRouter{Flow: flow, Gateway: gw, Logger: zap.NewNop()}
	h := NewWebhookHandler(conv, "secret-token", zap.NewNop())

	r := gin.New()
	r.GET("/webhook", h.Verify)
	r.POST("/webhook", h.Receive)
	return r, gw, flow
}

func TestWebhookVerifyChallenge(t *testing.T) {
	r, _, _ := newWebhookTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())
}

func TestWebhookVerifyRejectsBadToken(t *testing.T) {
	r, _, _ := newWebhookTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookReceiveTextStartsBooking(t *testing.T) {
	r, gw, flow := newWebhookTestServer()

	payload := `{
		"entry": [{"changes": [{"value": {"messages": [{
			"id": "wamid.1",
			"from": "971501234567",
			"timestamp": "1724900000",
			"type": "text",
			"text": {"body": "book"}
		}]}}]}]
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	_, active := flow.GetActiveSession("971501234567")
	assert.True(t, active)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.NotEmpty(t, gw.sent)
	assert.Equal(t, models.PromptButtons, gw.sent[len(gw.sent)-1].Kind)
}

func TestWebhookReceiveBadJSON(t *testing.T) {
	r, _, _ := newWebhookTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToInboundEventMapping(t *testing.T) {
	var btn webhookMessage
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "wamid.2", "from": "97150", "type": "interactive",
		"interactive": {"type": "button_reply", "button_reply": {"id": "btn_confirm", "title": "Confirm"}}
	}`), &btn))

	ev, ok := toInboundEvent(btn)
	require.True(t, ok)
	assert.Equal(t, models.EventButtonTap, ev.Kind)
	assert.Equal(t, "btn_confirm", ev.SelectionID)
	assert.Equal(t, "wamid.2", ev.EventID)

	var loc webhookMessage
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "wamid.3", "from": "97150", "type": "location",
		"location": {"latitude": 25.1, "longitude": 55.2, "name": "Marina Walk"}
	}`), &loc))

	ev, ok = toInboundEvent(loc)
	require.True(t, ok)
	assert.Equal(t, models.EventLocationShare, ev.Kind)
	assert.Equal(t, "Marina Walk", ev.Address, "name fills in when no address is sent")

	unknown := webhookMessage{ID: "wamid.4", From: "97150", Type: "sticker"}
	_, ok = toInboundEvent(unknown)
	assert.False(t, ok)
}

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"luxride/models"
	"luxride/services/router"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler receives WhatsApp Cloud API callbacks and feeds them to
// the conversation router.
type WebhookHandler struct {
	Router      *router.ConversationRouter
	VerifyToken string
	Logger      *zap.Logger
}

func NewWebhookHandler(convRouter *router.ConversationRouter, verifyToken string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Router: convRouter, VerifyToken: verifyToken, Logger: logger}
}

// Verify answers the hub challenge Meta sends when the webhook is registered.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.VerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// webhookPayload mirrors the slice of the Cloud API callback we care about.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []webhookMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type      string `json:"type"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name"`
		Address   string  `json:"address"`
	} `json:"location"`
	Audio *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	} `json:"audio"`
	Image *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	} `json:"image"`
}

// Receive handles an inbound callback. Events are processed in arrival
// order before acknowledging, which preserves per-customer ordering.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload", "details": err.Error()})
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				ev, ok := toInboundEvent(msg)
				if !ok {
					h.Logger.Debug("skipping unsupported message type", zap.String("type", msg.Type))
					continue
				}
				h.Router.HandleEvent(c.Request.Context(), ev)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func toInboundEvent(msg webhookMessage) (models.InboundEvent, bool) {
	ev := models.InboundEvent{
		EventID:     msg.ID,
		CustomerKey: msg.From,
		Timestamp:   time.Now(),
	}
	if ts, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil {
		ev.Timestamp = time.Unix(ts, 0)
	}

	switch {
	case msg.Type == "text" && msg.Text != nil:
		ev.Kind = models.EventText
		ev.Text = msg.Text.Body
	case msg.Interactive != nil && msg.Interactive.ListReply != nil:
		ev.Kind = models.EventListSelection
		ev.SelectionID = msg.Interactive.ListReply.ID
		ev.Text = msg.Interactive.ListReply.Title
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil:
		ev.Kind = models.EventButtonTap
		ev.SelectionID = msg.Interactive.ButtonReply.ID
		ev.Text = msg.Interactive.ButtonReply.Title
	case msg.Location != nil:
		ev.Kind = models.EventLocationShare
		ev.Latitude = msg.Location.Latitude
		ev.Longitude = msg.Location.Longitude
		ev.Address = msg.Location.Address
		if ev.Address == "" {
			ev.Address = msg.Location.Name
		}
	case msg.Audio != nil:
		ev.Kind = models.EventMedia
		ev.MediaURL = msg.Audio.ID
		ev.MediaType = msg.Audio.MimeType
	case msg.Image != nil:
		ev.Kind = models.EventMedia
		ev.MediaURL = msg.Image.ID
		ev.MediaType = msg.Image.MimeType
	default:
		return models.InboundEvent{}, false
	}
	return ev, true
}

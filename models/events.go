package models

import "time"

// EventKind classifies an inbound message from the messaging gateway.
type EventKind string

const (
	EventText          EventKind = "text"
	EventListSelection EventKind = "listSelection"
	EventButtonTap     EventKind = "buttonTap"
	EventLocationShare EventKind = "locationShare"
	EventMedia         EventKind = "media"
)

// InboundEvent is one customer turn as delivered by the messaging gateway.
type InboundEvent struct {
	EventID     string    `json:"eventId"` // gateway message id, used for dedup
	CustomerKey string    `json:"customerKey"`
	Kind        EventKind `json:"kind"`
	Text        string    `json:"text,omitempty"`
	SelectionID string    `json:"selectionId,omitempty"` // list row or button id
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	Address     string    `json:"address,omitempty"`
	MediaURL    string    `json:"mediaUrl,omitempty"`
	MediaType   string    `json:"mediaType,omitempty"` // e.g. "audio/ogg", "image/jpeg"
	Timestamp   time.Time `json:"timestamp"`
}

// PromptKind selects how the gateway should render an outbound message.
type PromptKind string

const (
	PromptText    PromptKind = "text"
	PromptList    PromptKind = "list"
	PromptButtons PromptKind = "buttons"
)

// PromptOption is one selectable row in a list or one reply button.
type PromptOption struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// OutboundPrompt is what the router asks the gateway to deliver.
type OutboundPrompt struct {
	Kind    PromptKind     `json:"kind"`
	Text    string         `json:"text"`
	Header  string         `json:"header,omitempty"`
	Options []PromptOption `json:"options,omitempty"`
}

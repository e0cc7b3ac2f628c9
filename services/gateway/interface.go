package gateway

import (
	"context"

	"luxride/models"
)

// MessagingGateway delivers prompts back to the customer and fetches media
// payloads referenced by inbound events. The wire protocol is the
// gateway's concern; the router only speaks OutboundPrompt.
type MessagingGateway interface {
	SendPrompt(ctx context.Context, customerKey string, prompt models.OutboundPrompt) error
	FetchMedia(ctx context.Context, mediaID string) (data []byte, mimeType string, err error)
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"luxride/models"
)

// WhatsAppGateway talks to the WhatsApp Cloud API. Text prompts become
// plain messages; list and button prompts become interactive messages.
type WhatsAppGateway struct {
	BaseURL    string
	Token      string
	PhoneID    string
	HTTPClient *http.Client
}

func NewWhatsAppGateway(baseURL, token, phoneID string) *WhatsAppGateway {
	return &WhatsAppGateway{
		BaseURL:    baseURL,
		Token:      token,
		PhoneID:    phoneID,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *WhatsAppGateway) SendPrompt(ctx context.Context, customerKey string, prompt models.OutboundPrompt) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                customerKey,
	}

	switch prompt.Kind {
	case models.PromptList:
		rows := make([]map[string]string, 0, len(prompt.Options))
		for _, o := range prompt.Options {
			row := map[string]string{"id": o.ID, "title": o.Title}
			if o.Description != "" {
				row["description"] = o.Description
			}
			rows = append(rows, row)
		}
		payload["type"] = "interactive"
		payload["interactive"] = map[string]interface{}{
			"type":   "list",
			"header": map[string]string{"type": "text", "text": prompt.Header},
			"body":   map[string]string{"text": prompt.Text},
			"action": map[string]interface{}{
				"button":   "Choose",
				"sections": []map[string]interface{}{{"rows": rows}},
			},
		}
	case models.PromptButtons:
		buttons := make([]map[string]interface{}, 0, len(prompt.Options))
		for _, o := range prompt.Options {
			buttons = append(buttons, map[string]interface{}{
				"type":  "reply",
				"reply": map[string]string{"id": o.ID, "title": o.Title},
			})
		}
		payload["type"] = "interactive"
		payload["interactive"] = map[string]interface{}{
			"type":   "button",
			"body":   map[string]string{"text": prompt.Text},
			"action": map[string]interface{}{"buttons": buttons},
		}
	default:
		payload["type"] = "text"
		payload["text"] = map[string]string{"body": prompt.Text}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", g.BaseURL, g.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build outbound request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("outbound message request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gateway rejected message (status %d): %s", resp.StatusCode, detail)
	}
	return nil
}

// FetchMedia resolves a media id to its download URL and pulls the bytes.
func (g *WhatsAppGateway) FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	metaURL := fmt.Sprintf("%s/%s", g.BaseURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media lookup failed: %w", err)
	}
	defer resp.Body.Close()

	var meta struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, "", fmt.Errorf("failed to parse media metadata: %w", err)
	}
	if meta.URL == "" {
		return nil, "", fmt.Errorf("media %s has no download URL", mediaID)
	}

	dlReq, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", err
	}
	dlReq.Header.Set("Authorization", "Bearer "+g.Token)

	dlResp, err := g.HTTPClient.Do(dlReq)
	if err != nil {
		return nil, "", fmt.Errorf("media download failed: %w", err)
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media download returned status %d", dlResp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(dlResp.Body, 10*1024*1024))
	if err != nil {
		return nil, "", err
	}
	return data, meta.MimeType, nil
}

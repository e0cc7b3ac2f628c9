// File: services/intelligence/geminiClient.go
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"luxride/models"
	"luxride/services/booking"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	model *genai.GenerativeModel
}

func NewGeminiClient(apiKey string) *GeminiClient {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		panic(fmt.Sprintf("failed to create Gemini client: %v", err))
	}

	model := client.GenerativeModel("models/gemini-1.5-pro")
	model.ResponseMIMEType = "application/json"
	return &GeminiClient{model: model}
}

func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	return collectText(resp)
}

// collectText flattens the first candidate's text parts. Safety-blocked
// responses come back with no candidates and a nil error, so that case is
// an error here rather than a panic.
func collectText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String(), nil
}

// ExtractFields asks Gemini to pull booking fields out of free text. Only
// fields the schema declares for the booking type are kept, and values come
// back raw so the schema validators stay the single gatekeeper.
func (g *GeminiClient) ExtractFields(ctx context.Context, freeText string, bookingType models.BookingType, current map[models.FieldName]models.FieldValue) (map[models.FieldName]string, error) {
	known := booking.RequiredFields(bookingType)
	names := make([]string, 0, len(known))
	for _, f := range known {
		if v, ok := current[f]; ok && !v.Missing() {
			continue // already collected, don't re-extract
		}
		names = append(names, string(f))
	}

	prompt := fmt.Sprintf(
		"You are a chauffeur-service booking assistant. Extract values for any of these fields from the customer message: %s. "+
			"Respond with a JSON object whose keys are field names and whose values are the extracted raw strings. "+
			"Omit fields the message does not mention.\n\nCustomer message: %q",
		strings.Join(names, ", "), freeText)

	raw, err := g.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed map[string]string
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("gemini returned unparseable field map: %w", err)
	}

	out := make(map[models.FieldName]string, len(parsed))
	for _, f := range known {
		if v, ok := parsed[string(f)]; ok && strings.TrimSpace(v) != "" {
			out[f] = v
		}
	}
	return out, nil
}

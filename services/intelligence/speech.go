// File: services/intelligence/speech.go
package ai

import (
	"context"
	"fmt"
	"strings"

	"luxride/models"

	speech "cloud.google.com/go/speech/apiv1"
	"google.golang.org/api/option"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
)

const maxVoiceNoteBytes = 5 * 1024 * 1024

// SpeechTranscriber turns WhatsApp voice notes into text via Google STT.
type SpeechTranscriber struct {
	client *speech.Client
}

func NewSpeechTranscriber(credentialsFile string) (*SpeechTranscriber, error) {
	ctx := context.Background()
	client, err := speech.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &SpeechTranscriber{client: client}, nil
}

// Transcribe recognizes a short voice note. WhatsApp delivers OGG/Opus;
// plain WAV is accepted for completeness.
func (t *SpeechTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio payload")
	}
	if len(audio) > maxVoiceNoteBytes {
		return "", fmt.Errorf("voice note too large (%d bytes)", len(audio))
	}

	encoding := speechpb.RecognitionConfig_OGG_OPUS
	sampleRate := int32(16000)
	if strings.Contains(mimeType, "wav") {
		encoding = speechpb.RecognitionConfig_LINEAR16
	}

	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: sampleRate,
			LanguageCode:    "en-US",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("speech recognition failed: %w", err)
	}

	var sb strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			sb.WriteString(result.Alternatives[0].Transcript)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no speech recognized in voice note")
	}
	return sb.String(), nil
}

// DefaultIntelligenceService combines Gemini extraction with STT. Either
// backend may be absent; callers get an explicit error instead of a panic.
type DefaultIntelligenceService struct {
	Gemini *GeminiClient
	Speech *SpeechTranscriber
}

func NewDefaultIntelligenceService(gemini *GeminiClient, stt *SpeechTranscriber) *DefaultIntelligenceService {
	return &DefaultIntelligenceService{Gemini: gemini, Speech: stt}
}

func (s *DefaultIntelligenceService) ExtractFields(ctx context.Context, freeText string, bookingType models.BookingType, current map[models.FieldName]models.FieldValue) (map[models.FieldName]string, error) {
	if s.Gemini == nil {
		return nil, fmt.Errorf("language model not configured")
	}
	return s.Gemini.ExtractFields(ctx, freeText, bookingType, current)
}

func (s *DefaultIntelligenceService) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if s.Speech == nil {
		return "", fmt.Errorf("speech transcription not configured")
	}
	return s.Speech.Transcribe(ctx, audio, mimeType)
}

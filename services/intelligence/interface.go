// File: services/intelligence/interface.go
package ai

import (
	"context"

	"luxride/models"
)

// LanguageInferenceService extracts booking fields from free text and
// transcribes voice notes. Used only for input that did not come through a
// menu; everything it returns is re-validated by the field schema.
type LanguageInferenceService interface {
	ExtractFields(ctx context.Context, freeText string, bookingType models.BookingType, current map[models.FieldName]models.FieldValue) (map[models.FieldName]string, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

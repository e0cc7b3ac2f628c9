package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"luxride/models"
)

// VehicleTypes lists the fleet options offered in menus and priced in the
// rate table.
var VehicleTypes = []string{"Sedan", "SUV", "Luxury Sedan", "Van"}

var commonPrefix = []models.FieldName{
	models.FieldBookingType,
	models.FieldVehicleType,
	models.FieldCustomerName,
	models.FieldPickupLocation,
}

var commonSuffix = []models.FieldName{
	models.FieldLuggageInfo,
	models.FieldPassengerCount,
	models.FieldSpecialRequests,
}

// skipSynonyms are free-text answers that mean "use the default" instead of
// failing validation.
var skipSynonyms = map[string]bool{
	"none": true, "skip": true, "na": true, "n/a": true,
	"not applicable": true, "no": true, "nothing": true,
}

// skipDefaults supplies the per-field default used when the customer skips.
var skipDefaults = map[models.FieldName]models.FieldValue{
	models.FieldNumberOfHours:   models.NumberValue(2),
	models.FieldLuggageInfo:     models.TextValue("None"),
	models.FieldPassengerCount:  models.NumberValue(1),
	models.FieldSpecialRequests: models.TextValue("None"),
}

var digitRe = regexp.MustCompile(`\d+`)

// RequiredFields returns the ordered required-field list for a booking type.
// Transfer inserts the drop location after pickup; hourly asks for a
// duration instead.
func RequiredFields(t models.BookingType) []models.FieldName {
	switch t {
	case models.BookingTypeTransfer:
		out := make([]models.FieldName, 0, len(commonPrefix)+1+len(commonSuffix))
		out = append(out, commonPrefix...)
		out = append(out, models.FieldDropLocation)
		return append(out, commonSuffix...)
	case models.BookingTypeHourly:
		out := make([]models.FieldName, 0, len(commonPrefix)+1+len(commonSuffix))
		out = append(out, commonPrefix...)
		out = append(out, models.FieldNumberOfHours)
		return append(out, commonSuffix...)
	default:
		// Until the type is known only the type itself can be collected.
		return []models.FieldName{models.FieldBookingType}
	}
}

// StepNumber returns the 1-based position of a field in the type-specific
// ordered list, or 0 if the field is not part of it.
func StepNumber(field models.FieldName, t models.BookingType) int {
	for i, f := range RequiredFields(t) {
		if f == field {
			return i + 1
		}
	}
	return 0
}

// TotalSteps returns the number of required fields for a booking type.
func TotalSteps(t models.BookingType) int {
	return len(RequiredFields(t))
}

// MissingFields returns the required fields the session has not collected
// yet, in prompt order.
func MissingFields(s *models.BookingSession) []models.FieldName {
	var missing []models.FieldName
	for _, f := range RequiredFields(s.BookingType) {
		if f == models.FieldBookingType {
			if s.BookingType == models.BookingTypeUnset {
				missing = append(missing, f)
			}
			continue
		}
		if s.FieldMissing(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// NextMissing returns the first uncollected required field, or "" when the
// session is complete.
func NextMissing(s *models.BookingSession) models.FieldName {
	if m := MissingFields(s); len(m) > 0 {
		return m[0]
	}
	return ""
}

// IsSkip reports whether raw is a recognized skip synonym.
func IsSkip(raw string) bool {
	return skipSynonyms[strings.ToLower(strings.TrimSpace(raw))]
}

// ParseBookingType maps free text or a menu id onto a booking type.
func ParseBookingType(raw string) (models.BookingType, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "hourly" || v == "1" || strings.Contains(v, "hour"):
		return models.BookingTypeHourly, true
	case v == "transfer" || v == "2" || strings.Contains(v, "transfer") || strings.Contains(v, "point to point"):
		return models.BookingTypeTransfer, true
	}
	return models.BookingTypeUnset, false
}

// Validate checks raw input for a field and returns the typed value to
// store. Skip synonyms resolve to the field's default where one exists.
// Failures return a FlowError with the user-facing re-prompt message.
func Validate(field models.FieldName, raw string, t models.BookingType) (models.FieldValue, error) {
	trimmed := strings.TrimSpace(raw)
	if IsSkip(trimmed) {
		if def, ok := skipDefaults[field]; ok {
			return def, nil
		}
	}

	switch field {
	case models.FieldBookingType:
		bt, ok := ParseBookingType(trimmed)
		if !ok {
			return models.FieldValue{}, NewValidationError("Please choose a booking type: Hourly or Transfer.")
		}
		return models.TextValue(string(bt)), nil

	case models.FieldVehicleType:
		for _, v := range VehicleTypes {
			if strings.EqualFold(trimmed, v) {
				return models.TextValue(v), nil
			}
		}
		return models.FieldValue{}, NewValidationError(fmt.Sprintf("Please choose a vehicle: %s.", strings.Join(VehicleTypes, ", ")))

	case models.FieldCustomerName:
		if len([]rune(trimmed)) < 2 {
			return models.FieldValue{}, NewValidationError("Please enter a valid name (at least 2 characters).")
		}
		return models.TextValue(trimmed), nil

	case models.FieldPickupLocation, models.FieldDropLocation:
		if len([]rune(trimmed)) < 3 {
			return models.FieldValue{}, NewValidationError("Please type the location or share a pin.")
		}
		return models.LocationValue(models.Location{Address: trimmed}), nil

	case models.FieldNumberOfHours:
		n, err := strconv.Atoi(trimmed)
		if err != nil || n < 1 || n > 24 {
			return models.FieldValue{}, NewValidationError("Please enter the number of hours (1-24).")
		}
		return models.NumberValue(n), nil

	case models.FieldPassengerCount:
		n, err := strconv.Atoi(trimmed)
		if err != nil || n < 1 || n > 20 {
			return models.FieldValue{}, NewValidationError("Please enter the number of passengers (1-20).")
		}
		return models.NumberValue(n), nil

	case models.FieldLuggageInfo:
		if m := digitRe.FindString(trimmed); m != "" {
			n, _ := strconv.Atoi(m)
			if n > 10 {
				return models.FieldValue{}, NewValidationError("We can carry at most 10 pieces of luggage per vehicle.")
			}
			return models.FieldValue{Text: trimmed, Number: n}, nil
		}
		if trimmed == "" {
			return models.FieldValue{}, NewValidationError("Please tell us about your luggage, or reply 'skip'.")
		}
		return models.TextValue(trimmed), nil

	case models.FieldSpecialRequests:
		if trimmed == "" {
			return models.TextValue("None"), nil
		}
		return models.TextValue(trimmed), nil
	}

	return models.FieldValue{}, NewValidationError("That detail is not part of this booking.")
}

// Prompt builds the outbound prompt for a field, including the step counter
// and interactive menus for enumerated fields.
func Prompt(field models.FieldName, t models.BookingType) models.OutboundPrompt {
	step := ""
	if n := StepNumber(field, t); n > 0 {
		step = fmt.Sprintf(" (step %d of %d)", n, TotalSteps(t))
	}

	switch field {
	case models.FieldBookingType:
		return models.OutboundPrompt{
			Kind:   models.PromptButtons,
			Header: "Booking type",
			Text:   "How can we drive you today?",
			Options: []models.PromptOption{
				{ID: "booking_hourly", Title: "Hourly", Description: "Chauffeur at your disposal"},
				{ID: "booking_transfer", Title: "Transfer", Description: "Point to point ride"},
			},
		}
	case models.FieldVehicleType:
		opts := make([]models.PromptOption, 0, len(VehicleTypes))
		for _, v := range VehicleTypes {
			opts = append(opts, models.PromptOption{ID: "vehicle_" + strings.ReplaceAll(strings.ToLower(v), " ", "_"), Title: v})
		}
		return models.OutboundPrompt{
			Kind:    models.PromptList,
			Header:  "Choose your vehicle",
			Text:    "Which vehicle would you like?" + step,
			Options: opts,
		}
	case models.FieldCustomerName:
		return textPrompt("May I have your name?" + step)
	case models.FieldPickupLocation:
		return textPrompt("Where should the chauffeur pick you up? You can type the address or share a location pin." + step)
	case models.FieldDropLocation:
		return textPrompt("Where are we taking you? Type the drop-off address or share a pin." + step)
	case models.FieldNumberOfHours:
		return textPrompt("For how many hours do you need the chauffeur? (1-24)" + step)
	case models.FieldLuggageInfo:
		return textPrompt("How many pieces of luggage are you bringing? Reply 'skip' if none." + step)
	case models.FieldPassengerCount:
		return textPrompt("How many passengers will be travelling?" + step)
	case models.FieldSpecialRequests:
		return textPrompt("Any special requests? Child seat, meet & greet board, refreshments... Reply 'skip' if none." + step)
	}
	return textPrompt("Please provide the next detail of your booking.")
}

func textPrompt(text string) models.OutboundPrompt {
	return models.OutboundPrompt{Kind: models.PromptText, Text: text}
}

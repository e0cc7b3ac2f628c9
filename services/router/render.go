package router

import (
	"fmt"
	"strings"

	"luxride/models"
	"luxride/services/booking"
)

// bookingTypeLabel renders the enum for customer-facing copy.
func bookingTypeLabel(t models.BookingType) string {
	switch t {
	case models.BookingTypeHourly:
		return "Hourly"
	case models.BookingTypeTransfer:
		return "Transfer"
	}
	return "Not specified"
}

// fieldLabels are the human names used in summaries and edit menus.
var fieldLabels = map[models.FieldName]string{
	models.FieldBookingType:     "Booking type",
	models.FieldVehicleType:     "Vehicle",
	models.FieldCustomerName:    "Name",
	models.FieldPickupLocation:  "Pickup",
	models.FieldDropLocation:    "Drop-off",
	models.FieldNumberOfHours:   "Hours",
	models.FieldLuggageInfo:     "Luggage",
	models.FieldPassengerCount:  "Passengers",
	models.FieldSpecialRequests: "Special requests",
}

// summaryText renders the pre-confirmation recap of every collected field
// plus the fare, disclosing when the price is only an estimate.
func summaryText(s *models.BookingSession) string {
	var sb strings.Builder
	sb.WriteString("Here is your booking:\n\n")
	for _, f := range booking.RequiredFields(s.BookingType) {
		label := fieldLabels[f]
		if f == models.FieldBookingType {
			sb.WriteString(fmt.Sprintf("• %s: %s\n", label, bookingTypeLabel(s.BookingType)))
			continue
		}
		sb.WriteString(fmt.Sprintf("• %s: %s\n", label, s.Field(f).Display()))
	}
	if s.Pricing != nil {
		sb.WriteString(fmt.Sprintf("\nFare: %.2f %s", s.Pricing.Total, s.Pricing.Currency))
		if s.Pricing.Estimated() {
			sb.WriteString(" (estimated)")
		}
		if s.Pricing.BookingType == models.BookingTypeTransfer {
			sb.WriteString(fmt.Sprintf(" for ~%.0f km", s.Pricing.DistanceKm))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nShall we confirm?")
	return sb.String()
}

// confirmButtons is the confirm / edit / cancel choice shown with the summary.
func confirmButtons(s *models.BookingSession) models.OutboundPrompt {
	return models.OutboundPrompt{
		Kind: models.PromptButtons,
		Text: summaryText(s),
		Options: []models.PromptOption{
			{ID: "btn_confirm", Title: "Confirm"},
			{ID: "btn_edit", Title: "Edit a detail"},
			{ID: "btn_cancel", Title: "Cancel"},
		},
	}
}

// editMenu lists every collected field as an edit target.
func editMenu(s *models.BookingSession) models.OutboundPrompt {
	opts := make([]models.PromptOption, 0, booking.TotalSteps(s.BookingType))
	for _, f := range booking.RequiredFields(s.BookingType) {
		title := fieldLabels[f]
		desc := s.Field(f).Display()
		if f == models.FieldBookingType {
			desc = bookingTypeLabel(s.BookingType)
		}
		opts = append(opts, models.PromptOption{ID: "edit_" + string(f), Title: title, Description: desc})
	}
	return models.OutboundPrompt{
		Kind:    models.PromptList,
		Header:  "Edit booking",
		Text:    "Which detail would you like to change?",
		Options: opts,
	}
}

// confirmationText is the final message after Confirm succeeds.
func confirmationText(s *models.BookingSession) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Your booking is confirmed! 🎉\n\nConfirmation code: %s\n", s.ConfirmationID))
	if s.Pricing != nil {
		sb.WriteString(fmt.Sprintf("Fare: %.2f %s", s.Pricing.Total, s.Pricing.Currency))
		if s.Pricing.Estimated() {
			sb.WriteString(" (estimated, final fare may vary)")
		}
		sb.WriteString("\n")
	}
	if s.PaymentLink != "" {
		sb.WriteString(fmt.Sprintf("\nPay securely here: %s\n", s.PaymentLink))
	}
	sb.WriteString("\nYour chauffeur details will follow shortly.")
	return sb.String()
}

func textReply(text string) models.OutboundPrompt {
	return models.OutboundPrompt{Kind: models.PromptText, Text: text}
}

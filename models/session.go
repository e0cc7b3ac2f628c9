package models

import (
	"strconv"
	"time"
)

// BookingType selects which required-field set and pricing formula applies.
type BookingType string

const (
	BookingTypeUnset    BookingType = ""
	BookingTypeHourly   BookingType = "hourly"
	BookingTypeTransfer BookingType = "transfer"
)

// BookingStatus tracks the session lifecycle. Confirmed and Cancelled are terminal.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// FieldName is a key into a session's collected fields. Only names declared
// by the field schema for the session's booking type are ever stored.
type FieldName string

const (
	FieldBookingType     FieldName = "bookingType"
	FieldVehicleType     FieldName = "vehicleType"
	FieldCustomerName    FieldName = "customerName"
	FieldPickupLocation  FieldName = "pickupLocation"
	FieldDropLocation    FieldName = "dropLocation"
	FieldNumberOfHours   FieldName = "numberOfHours"
	FieldLuggageInfo     FieldName = "luggageInfo"
	FieldPassengerCount  FieldName = "passengerCount"
	FieldSpecialRequests FieldName = "specialRequests"
)

// NotSpecified is the sentinel that marks a field as still missing even
// though a value slot exists for it.
const NotSpecified = "Not specified"

// Location is a structured pickup/drop value. Either the address, the
// coordinates, or both may be set depending on how the customer shared it.
type Location struct {
	Address string  `bson:"address,omitempty" json:"address,omitempty"`
	Lat     float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng     float64 `bson:"lng,omitempty" json:"lng,omitempty"`
}

// HasCoordinates reports whether the customer shared a pin rather than text.
func (l *Location) HasCoordinates() bool {
	return l != nil && (l.Lat != 0 || l.Lng != 0)
}

// FieldValue is the typed value stored for one collected field.
// Exactly one of Text, Number, or Location is meaningful per field.
type FieldValue struct {
	Text     string    `bson:"text,omitempty" json:"text,omitempty"`
	Number   int       `bson:"number,omitempty" json:"number,omitempty"`
	Location *Location `bson:"location,omitempty" json:"location,omitempty"`
}

func TextValue(s string) FieldValue       { return FieldValue{Text: s} }
func NumberValue(n int) FieldValue        { return FieldValue{Number: n} }
func LocationValue(l Location) FieldValue { return FieldValue{Location: &l} }

// Missing reports whether the value still counts as uncollected.
func (v FieldValue) Missing() bool {
	if v.Location != nil {
		return v.Location.Address == "" && !v.Location.HasCoordinates()
	}
	if v.Number != 0 {
		return false
	}
	return v.Text == "" || v.Text == NotSpecified
}

// Display renders the value for confirmation summaries.
func (v FieldValue) Display() string {
	switch {
	case v.Location != nil && v.Location.Address != "":
		return v.Location.Address
	case v.Location != nil:
		return "Shared location pin"
	case v.Number != 0:
		return strconv.Itoa(v.Number)
	default:
		return v.Text
	}
}

// EditingState marks a session as mid-correction. While set, only the named
// field accepts input.
type EditingState struct {
	Field     FieldName `bson:"field" json:"field"`
	StartedAt time.Time `bson:"startedAt" json:"startedAt"`
}

// ConversationEntry is one turn of the audit trail. Not used for control flow.
type ConversationEntry struct {
	Role      string    `bson:"role" json:"role"` // "customer" or "assistant"
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// BookingSession tracks one customer's booking conversation from intent to
// confirmation or cancellation.
type BookingSession struct {
	BookingID      string                   `bson:"bookingId" json:"bookingId"`
	CustomerKey    string                   `bson:"customerKey" json:"customerKey"` // phone number
	BookingType    BookingType              `bson:"bookingType" json:"bookingType"`
	Fields         map[FieldName]FieldValue `bson:"fields" json:"fields"`
	Status         BookingStatus            `bson:"status" json:"status"`
	Editing        *EditingState            `bson:"editing,omitempty" json:"editing,omitempty"`
	Pricing        *FareBreakdown           `bson:"pricing,omitempty" json:"pricing,omitempty"`
	Conversation   []ConversationEntry      `bson:"conversation" json:"conversation"`
	CreatedAt      time.Time                `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time                `bson:"updatedAt" json:"updatedAt"`
	ConfirmedAt    *time.Time               `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	ConfirmationID string                   `bson:"confirmationId,omitempty" json:"confirmationId,omitempty"`
	PaymentLink    string                   `bson:"paymentLink,omitempty" json:"paymentLink,omitempty"`
}

// Field returns the stored value for name, zero if absent.
func (s *BookingSession) Field(name FieldName) FieldValue {
	if s.Fields == nil {
		return FieldValue{}
	}
	return s.Fields[name]
}

// FieldMissing reports whether name still needs collecting.
func (s *BookingSession) FieldMissing(name FieldName) bool {
	return s.Field(name).Missing()
}

// Terminal reports whether the session can no longer change status.
func (s *BookingSession) Terminal() bool {
	return s.Status == BookingStatusConfirmed || s.Status == BookingStatusCancelled
}

// Clone returns a deep copy so callers never alias the store's live map.
func (s *BookingSession) Clone() *BookingSession {
	cp := *s
	cp.Fields = make(map[FieldName]FieldValue, len(s.Fields))
	for k, v := range s.Fields {
		if v.Location != nil {
			loc := *v.Location
			v.Location = &loc
		}
		cp.Fields[k] = v
	}
	if s.Editing != nil {
		ed := *s.Editing
		cp.Editing = &ed
	}
	if s.Pricing != nil {
		pr := *s.Pricing
		cp.Pricing = &pr
	}
	if s.ConfirmedAt != nil {
		t := *s.ConfirmedAt
		cp.ConfirmedAt = &t
	}
	cp.Conversation = append([]ConversationEntry(nil), s.Conversation...)
	return &cp
}

// AppendTurn records one conversation turn on the audit trail.
func (s *BookingSession) AppendTurn(role, text string, at time.Time) {
	s.Conversation = append(s.Conversation, ConversationEntry{Role: role, Text: text, Timestamp: at})
}

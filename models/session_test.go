package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFieldValueMissing(t *testing.T) {
	assert.True(t, FieldValue{}.Missing())
	assert.True(t, TextValue(NotSpecified).Missing())
	assert.True(t, LocationValue(Location{}).Missing())
	assert.False(t, TextValue("Sedan").Missing())
	assert.False(t, NumberValue(2).Missing())
	assert.False(t, LocationValue(Location{Lat: 25.1, Lng: 55.2}).Missing())
	assert.False(t, LocationValue(Location{Address: "Dubai Marina"}).Missing())
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	s := &BookingSession{
		BookingID:   "LXR-1",
		CustomerKey: "+97150",
		BookingType: BookingTypeTransfer,
		Fields: map[FieldName]FieldValue{
			FieldPickupLocation: LocationValue(Location{Address: "Marina"}),
		},
		Status:      BookingStatusPending,
		Editing:     &EditingState{Field: FieldCustomerName, StartedAt: now},
		Pricing:     &FareBreakdown{Total: 100},
		ConfirmedAt: &now,
	}
	s.AppendTurn("customer", "hi", now)

	cp := s.Clone()
	cp.Fields[FieldCustomerName] = TextValue("Amira")
	cp.Fields[FieldPickupLocation].Location.Address = "JBR"
	cp.Editing.Field = FieldVehicleType
	cp.Pricing.Total = 1
	cp.AppendTurn("assistant", "hello", now)

	assert.True(t, s.FieldMissing(FieldCustomerName))
	assert.Equal(t, "Marina", s.Fields[FieldPickupLocation].Location.Address)
	assert.Equal(t, FieldCustomerName, s.Editing.Field)
	assert.Equal(t, 100.0, s.Pricing.Total)
	assert.Len(t, s.Conversation, 1)
}

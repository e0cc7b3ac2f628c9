package models

import "time"

// FareSource records which pricing path produced a breakdown.
type FareSource string

const (
	FareSourceLive     FareSource = "live"
	FareSourceFallback FareSource = "fallback"
)

// FareBreakdown is the last-computed fare for a session. Recomputed whenever
// a cost-relevant field changes.
type FareBreakdown struct {
	VehicleType       string      `bson:"vehicleType" json:"vehicleType"`
	BookingType       BookingType `bson:"bookingType" json:"bookingType"`
	BaseFare          float64     `bson:"baseFare" json:"baseFare"`
	Rate              float64     `bson:"rate" json:"rate"` // per km (transfer) or per hour (hourly)
	DistanceKm        float64     `bson:"distanceKm,omitempty" json:"distanceKm,omitempty"`
	Hours             int         `bson:"hours,omitempty" json:"hours,omitempty"`
	Total             float64     `bson:"total" json:"total"`
	Currency          string      `bson:"currency" json:"currency"`
	Source            FareSource  `bson:"source" json:"source"`
	EstimatedDistance bool        `bson:"estimatedDistance,omitempty" json:"estimatedDistance,omitempty"`
	ComputedAt        time.Time   `bson:"computedAt" json:"computedAt"`
}

// Estimated reports whether confirmation copy should disclose the fare as
// an estimate rather than a quoted price.
func (f *FareBreakdown) Estimated() bool {
	return f != nil && (f.Source == FareSourceFallback || f.EstimatedDistance)
}

package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"luxride/models"
)

// DefaultTransferDistanceKm is assumed for transfer fares when no usable
// coordinates were collected. The live and fallback paths share it so the
// estimate cannot diverge between them.
const DefaultTransferDistanceKm = 25.0

// FareRequest carries everything the oracle needs to price a booking.
type FareRequest struct {
	VehicleType string
	BookingType models.BookingType
	Hours       int
	Pickup      *models.Location
	Drop        *models.Location
	Currency    string
}

// PricingOracle computes a fare breakdown for a vehicle and trip. A failing
// oracle never blocks the booking flow; callers substitute FallbackFare.
type PricingOracle interface {
	ComputeFare(ctx context.Context, req FareRequest) (*models.FareBreakdown, error)
}

// rateCard is one vehicle's pricing row.
type rateCard struct {
	BaseFare float64
	PerKm    float64
	PerHour  float64
	MinFare  float64
}

// rateTable is the static fallback rate table, also used by the live oracle
// to turn a routed distance into money.
var rateTable = map[string]rateCard{
	"Sedan":        {BaseFare: 20, PerKm: 3.5, PerHour: 90, MinFare: 50},
	"SUV":          {BaseFare: 30, PerKm: 4.5, PerHour: 120, MinFare: 70},
	"Luxury Sedan": {BaseFare: 50, PerKm: 6.0, PerHour: 180, MinFare: 100},
	"Van":          {BaseFare: 40, PerKm: 5.0, PerHour: 140, MinFare: 90},
}

// FallbackFare prices a request from the static rate table. It never fails:
// unknown vehicles price as Sedan, transfers without coordinates assume the
// default distance. The result is tagged so confirmation copy can disclose
// that the price is estimated.
func FallbackFare(req FareRequest) *models.FareBreakdown {
	card, ok := rateTable[req.VehicleType]
	if !ok {
		card = rateTable["Sedan"]
	}

	fb := &models.FareBreakdown{
		VehicleType: req.VehicleType,
		BookingType: req.BookingType,
		Currency:    req.Currency,
		Source:      models.FareSourceFallback,
		ComputedAt:  time.Now(),
	}

	if req.BookingType == models.BookingTypeHourly {
		hours := req.Hours
		if hours < 1 {
			hours = 1
		}
		fb.Hours = hours
		fb.Rate = card.PerHour
		fb.Total = card.PerHour * float64(hours)
	} else {
		fb.DistanceKm = DefaultTransferDistanceKm
		fb.EstimatedDistance = true
		fb.BaseFare = card.BaseFare
		fb.Rate = card.PerKm
		fb.Total = card.BaseFare + card.PerKm*fb.DistanceKm
	}
	if fb.Total < card.MinFare {
		fb.Total = card.MinFare
	}
	return fb
}

// GoogleOracle prices transfers by routing pickup to drop through the
// Distance Matrix API. Hourly bookings never need routing and are priced
// directly from the rate table as a live quote.
type GoogleOracle struct {
	APIKey     string
	HTTPClient *http.Client
	BaseURL    string
}

func NewGoogleOracle(apiKey string) *GoogleOracle {
	return &GoogleOracle{
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 8 * time.Second},
		BaseURL:    "https://maps.googleapis.com/maps/api/distancematrix/json",
	}
}

func (o *GoogleOracle) ComputeFare(ctx context.Context, req FareRequest) (*models.FareBreakdown, error) {
	card, ok := rateTable[req.VehicleType]
	if !ok {
		return nil, fmt.Errorf("unknown vehicle type %q", req.VehicleType)
	}

	fb := &models.FareBreakdown{
		VehicleType: req.VehicleType,
		BookingType: req.BookingType,
		Currency:    req.Currency,
		Source:      models.FareSourceLive,
		ComputedAt:  time.Now(),
	}

	if req.BookingType == models.BookingTypeHourly {
		hours := req.Hours
		if hours < 1 {
			hours = 1
		}
		fb.Hours = hours
		fb.Rate = card.PerHour
		fb.Total = card.PerHour * float64(hours)
		if fb.Total < card.MinFare {
			fb.Total = card.MinFare
		}
		return fb, nil
	}

	km, estimated, err := o.routeDistanceKm(ctx, req.Pickup, req.Drop)
	if err != nil {
		return nil, err
	}
	fb.DistanceKm = km
	fb.EstimatedDistance = estimated
	fb.BaseFare = card.BaseFare
	fb.Rate = card.PerKm
	fb.Total = card.BaseFare + card.PerKm*km
	if fb.Total < card.MinFare {
		fb.Total = card.MinFare
	}
	return fb, nil
}

// routeDistanceKm asks the Distance Matrix API for the driving distance.
// Without both endpoints it returns the default distance tagged as estimated.
func (o *GoogleOracle) routeDistanceKm(ctx context.Context, pickup, drop *models.Location) (float64, bool, error) {
	origin := locationParam(pickup)
	dest := locationParam(drop)
	if origin == "" || dest == "" {
		return DefaultTransferDistanceKm, true, nil
	}

	q := url.Values{}
	q.Set("origins", origin)
	q.Set("destinations", dest)
	q.Set("units", "metric")
	q.Set("key", o.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to build distance matrix request: %w", err)
	}
	resp, err := o.HTTPClient.Do(httpReq)
	if err != nil {
		return 0, false, fmt.Errorf("distance matrix request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("distance matrix returned status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Rows   []struct {
			Elements []struct {
				Status   string `json:"status"`
				Distance struct {
					Value int `json:"value"` // meters
				} `json:"distance"`
			} `json:"elements"`
		} `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, false, fmt.Errorf("failed to parse distance matrix response: %w", err)
	}
	if body.Status != "OK" || len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 ||
		body.Rows[0].Elements[0].Status != "OK" {
		return 0, false, fmt.Errorf("distance matrix could not route the trip")
	}
	return float64(body.Rows[0].Elements[0].Distance.Value) / 1000.0, false, nil
}

func locationParam(l *models.Location) string {
	switch {
	case l == nil:
		return ""
	case l.HasCoordinates():
		return fmt.Sprintf("%f,%f", l.Lat, l.Lng)
	default:
		return l.Address
	}
}

package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"luxride/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackFareTransferUsesDefaultDistance(t *testing.T) {
	fb := FallbackFare(FareRequest{
		VehicleType: "SUV",
		BookingType: models.BookingTypeTransfer,
		Currency:    "AED",
	})
	assert.Equal(t, models.FareSourceFallback, fb.Source)
	assert.Equal(t, DefaultTransferDistanceKm, fb.DistanceKm)
	assert.True(t, fb.EstimatedDistance)
	assert.True(t, fb.Estimated())
	assert.InDelta(t, 30+4.5*DefaultTransferDistanceKm, fb.Total, 0.001)
}

func TestFallbackFareHourly(t *testing.T) {
	fb := FallbackFare(FareRequest{
		VehicleType: "Luxury Sedan",
		BookingType: models.BookingTypeHourly,
		Hours:       3,
		Currency:    "AED",
	})
	assert.Equal(t, 3, fb.Hours)
	assert.InDelta(t, 540, fb.Total, 0.001)
	assert.Zero(t, fb.DistanceKm)
}

func TestFallbackFareUnknownVehiclePricesAsSedan(t *testing.T) {
	fb := FallbackFare(FareRequest{
		VehicleType: "Rickshaw",
		BookingType: models.BookingTypeTransfer,
	})
	assert.InDelta(t, 20+3.5*DefaultTransferDistanceKm, fb.Total, 0.001)
	assert.Equal(t, "Rickshaw", fb.VehicleType, "breakdown keeps the requested label")
}

func TestFallbackFareEnforcesMinimum(t *testing.T) {
	fb := FallbackFare(FareRequest{
		VehicleType: "Van",
		BookingType: models.BookingTypeHourly,
		Hours:       0, // clamps to 1 hour, 140 > 90 minimum
	})
	assert.Equal(t, 1, fb.Hours)
	assert.InDelta(t, 140, fb.Total, 0.001)

	short := FallbackFare(FareRequest{
		VehicleType: "Luxury Sedan",
		BookingType: models.BookingTypeHourly,
	})
	assert.GreaterOrEqual(t, short.Total, 100.0)
}

func TestGoogleOracleRoutesTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Dubai Marina", r.URL.Query().Get("origins"))
		assert.Equal(t, "DXB Airport", r.URL.Query().Get("destinations"))
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"rows": []any{map[string]any{
				"elements": []any{map[string]any{
					"status":   "OK",
					"distance": map[string]any{"value": 32000},
				}},
			}},
		})
	}))
	defer srv.Close()

	o := NewGoogleOracle("test-key")
	o.BaseURL = srv.URL

	fb, err := o.ComputeFare(context.Background(), FareRequest{
		VehicleType: "Sedan",
		BookingType: models.BookingTypeTransfer,
		Pickup:      &models.Location{Address: "Dubai Marina"},
		Drop:        &models.Location{Address: "DXB Airport"},
		Currency:    "AED",
	})
	require.NoError(t, err)
	assert.Equal(t, models.FareSourceLive, fb.Source)
	assert.InDelta(t, 32.0, fb.DistanceKm, 0.001)
	assert.False(t, fb.EstimatedDistance)
	assert.InDelta(t, 20+3.5*32, fb.Total, 0.001)
}

func TestGoogleOracleMissingEndpointsEstimates(t *testing.T) {
	o := NewGoogleOracle("test-key")
	// No HTTP call is made without both endpoints.
	o.BaseURL = "http://127.0.0.1:0"

	fb, err := o.ComputeFare(context.Background(), FareRequest{
		VehicleType: "Sedan",
		BookingType: models.BookingTypeTransfer,
		Pickup:      &models.Location{Address: "Dubai Marina"},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultTransferDistanceKm, fb.DistanceKm)
	assert.True(t, fb.EstimatedDistance)
	assert.Equal(t, models.FareSourceLive, fb.Source)
}

func TestGoogleOracleHourlySkipsRouting(t *testing.T) {
	o := NewGoogleOracle("test-key")
	o.BaseURL = "http://127.0.0.1:0" // any request would fail

	fb, err := o.ComputeFare(context.Background(), FareRequest{
		VehicleType: "SUV",
		BookingType: models.BookingTypeHourly,
		Hours:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FareSourceLive, fb.Source)
	assert.InDelta(t, 240, fb.Total, 0.001)
}

func TestGoogleOracleRoutingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "REQUEST_DENIED"})
	}))
	defer srv.Close()

	o := NewGoogleOracle("bad-key")
	o.BaseURL = srv.URL

	_, err := o.ComputeFare(context.Background(), FareRequest{
		VehicleType: "Sedan",
		BookingType: models.BookingTypeTransfer,
		Pickup:      &models.Location{Address: "A place"},
		Drop:        &models.Location{Address: "Another place"},
	})
	require.Error(t, err)
}

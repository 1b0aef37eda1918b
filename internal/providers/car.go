package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"voyager/internal/travel/saga"
)

// CarClient talks to the car rental provider.
type CarClient struct {
	client
}

// NewCarClient constructs a client against the provider's base URL.
func NewCarClient(cfg Config) *CarClient {
	return &CarClient{client: newClient("car", cfg)}
}

// Reserve books the rental and returns the provider's reservation id.
func (c *CarClient) Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails, prefs saga.CarRentalPreferences) (string, error) {
	payload := struct {
		CustomerID       string    `json:"customerId"`
		Email            string    `json:"email"`
		FullName         string    `json:"fullName"`
		Destination      string    `json:"destination"`
		DepartureDate    time.Time `json:"departureDate"`
		ReturnDate       time.Time `json:"returnDate"`
		CarClass         string    `json:"carClass"`
		IncludeInsurance bool      `json:"includeInsurance"`
	}{
		CustomerID:       traveler.CustomerID,
		Email:            traveler.Email,
		FullName:         traveler.FullName,
		Destination:      trip.Destination,
		DepartureDate:    trip.DepartureDate,
		ReturnDate:       trip.ReturnDate,
		CarClass:         prefs.CarClass,
		IncludeInsurance: prefs.IncludeInsurance,
	}

	var out struct {
		ReservationID string `json:"reservationId"`
	}
	if err := c.postJSON(ctx, "/api/reservations", payload, &out); err != nil {
		return "", err
	}
	if out.ReservationID == "" {
		return "", fmt.Errorf("car service: response did not contain a reservation id")
	}
	return out.ReservationID, nil
}

// Cancel releases the rental. Provider refusals are logged, not returned.
func (c *CarClient) Cancel(ctx context.Context, reservationID string) error {
	return c.send(ctx, http.MethodDelete, "/api/reservations/"+reservationID)
}

package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"voyager/internal/travel/saga"
)

// FlightClient talks to the flight reservation provider.
type FlightClient struct {
	client
}

// NewFlightClient constructs a client against the provider's base URL.
func NewFlightClient(cfg Config) *FlightClient {
	return &FlightClient{client: newClient("flight", cfg)}
}

// Reserve books the round trip and returns the provider's reservation id.
func (c *FlightClient) Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails) (string, error) {
	payload := struct {
		CustomerID    string    `json:"customerId"`
		Email         string    `json:"email"`
		FullName      string    `json:"fullName"`
		Origin        string    `json:"origin"`
		Destination   string    `json:"destination"`
		DepartureDate time.Time `json:"departureDate"`
		ReturnDate    time.Time `json:"returnDate"`
		Travelers     int       `json:"travelers"`
	}{
		CustomerID:    traveler.CustomerID,
		Email:         traveler.Email,
		FullName:      traveler.FullName,
		Origin:        trip.Origin,
		Destination:   trip.Destination,
		DepartureDate: trip.DepartureDate,
		ReturnDate:    trip.ReturnDate,
		Travelers:     trip.Travelers,
	}

	var out struct {
		ReservationID string `json:"reservationId"`
	}
	if err := c.postJSON(ctx, "/api/reservations", payload, &out); err != nil {
		return "", err
	}
	if out.ReservationID == "" {
		return "", fmt.Errorf("flight service: response did not contain a reservation id")
	}
	return out.ReservationID, nil
}

// Cancel releases the reservation. Provider refusals are logged, not returned.
func (c *FlightClient) Cancel(ctx context.Context, reservationID string) error {
	return c.send(ctx, http.MethodDelete, "/api/reservations/"+reservationID)
}

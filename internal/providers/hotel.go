package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"voyager/internal/travel/saga"
)

// HotelClient talks to the hotel reservation provider.
type HotelClient struct {
	client
}

// NewHotelClient constructs a client against the provider's base URL.
func NewHotelClient(cfg Config) *HotelClient {
	return &HotelClient{client: newClient("hotel", cfg)}
}

// Reserve books the stay and returns the provider's reservation id.
func (c *HotelClient) Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails, prefs saga.AccommodationPreferences) (string, error) {
	payload := struct {
		CustomerID       string    `json:"customerId"`
		Email            string    `json:"email"`
		FullName         string    `json:"fullName"`
		Destination      string    `json:"destination"`
		DepartureDate    time.Time `json:"departureDate"`
		ReturnDate       time.Time `json:"returnDate"`
		HotelCategory    string    `json:"hotelCategory"`
		IncludeBreakfast bool      `json:"includeBreakfast"`
		Travelers        int       `json:"travelers"`
	}{
		CustomerID:       traveler.CustomerID,
		Email:            traveler.Email,
		FullName:         traveler.FullName,
		Destination:      trip.Destination,
		DepartureDate:    trip.DepartureDate,
		ReturnDate:       trip.ReturnDate,
		HotelCategory:    prefs.HotelCategory,
		IncludeBreakfast: prefs.IncludeBreakfast,
		Travelers:        trip.Travelers,
	}

	var out struct {
		ReservationID string `json:"reservationId"`
	}
	if err := c.postJSON(ctx, "/api/reservations", payload, &out); err != nil {
		return "", err
	}
	if out.ReservationID == "" {
		return "", fmt.Errorf("hotel service: response did not contain a reservation id")
	}
	return out.ReservationID, nil
}

// Cancel releases the reservation. Provider refusals are logged, not returned.
func (c *HotelClient) Cancel(ctx context.Context, reservationID string) error {
	return c.send(ctx, http.MethodDelete, "/api/reservations/"+reservationID)
}

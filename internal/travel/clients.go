package travel

import (
	"context"

	"voyager/internal/travel/saga"
)

// FlightService reserves and cancels flights with an external provider.
// Reserve returns the provider's reservation id; Cancel is best-effort and
// used only by compensation.
type FlightService interface {
	Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails) (string, error)
	Cancel(ctx context.Context, reservationID string) error
}

// HotelService reserves and cancels hotel bookings with an external provider.
type HotelService interface {
	Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails, prefs saga.AccommodationPreferences) (string, error)
	Cancel(ctx context.Context, reservationID string) error
}

// CarRentalService reserves and cancels car rentals with an external provider.
type CarRentalService interface {
	Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails, prefs saga.CarRentalPreferences) (string, error)
	Cancel(ctx context.Context, reservationID string) error
}

// PaymentService charges and refunds through an external payment provider.
type PaymentService interface {
	Charge(ctx context.Context, traveler saga.TravelerInfo, details saga.PaymentDetails, amount float64) (string, error)
	Refund(ctx context.Context, confirmationID string) error
}

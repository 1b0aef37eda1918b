package saga

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// State captures where a travel package saga currently is in its lifecycle.
type State string

const (
	StateAwaitingFlight   State = "awaiting_flight"
	StateFlightReserved   State = "flight_reserved"
	StateHotelReserved    State = "hotel_reserved"
	StateCarReserved      State = "car_reserved"
	StatePaymentProcessed State = "payment_processed"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	return s == StatePaymentProcessed || s == StateFailed
}

// TravelerInfo identifies the customer a package is purchased for.
type TravelerInfo struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
}

// TripDetails describes the journey being booked.
type TripDetails struct {
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureDate time.Time `json:"departure_date"`
	ReturnDate    time.Time `json:"return_date"`
	Travelers     int       `json:"travelers"`
}

// AccommodationPreferences describes the requested hotel booking.
type AccommodationPreferences struct {
	HotelCategory    string `json:"hotel_category"`
	IncludeBreakfast bool   `json:"include_breakfast"`
}

// CarRentalPreferences describes the requested car rental.
type CarRentalPreferences struct {
	CarClass         string `json:"car_class"`
	IncludeInsurance bool   `json:"include_insurance"`
}

// PaymentDetails carries the card the package is charged to.
type PaymentDetails struct {
	CardNumber string `json:"card_number"`
	CardHolder string `json:"card_holder"`
	Expiration string `json:"expiration"`
	CVV        string `json:"cvv"`
}

// Instance is the persisted unit of work for one travel package purchase,
// keyed by correlation id. It is mutated only by the orchestrator while the
// per-instance serialization rule holds, and becomes read-only once a
// terminal state is reached.
type Instance struct {
	CorrelationID uuid.UUID
	CurrentState  State

	CustomerID    string
	TravelerEmail string
	TravelerName  string

	Trip          TripDetails
	Accommodation AccommodationPreferences
	CarRental     CarRentalPreferences
	Payment       PaymentDetails

	TotalAmount float64

	FlightReservationID   string
	HotelReservationID    string
	CarReservationID      string
	PaymentConfirmationID string

	FailureReason string

	CreatedAt   time.Time
	CompletedAt time.Time
}

// Terminal reports whether the instance reached a terminal state.
func (i *Instance) Terminal() bool {
	return i.CurrentState.Terminal()
}

// Traveler rebuilds the traveler info captured from the initiating command.
func (i *Instance) Traveler() TravelerInfo {
	return TravelerInfo{
		CustomerID: i.CustomerID,
		Email:      i.TravelerEmail,
		FullName:   i.TravelerName,
	}
}

// Clone returns an independent copy of the instance.
func (i *Instance) Clone() *Instance {
	clone := *i
	return &clone
}

// Store persists saga instances. Save is conditional on the state the caller
// read, so concurrent workers cannot both apply a transition against the same
// stale read.
type Store interface {
	Create(ctx context.Context, inst *Instance) error
	Load(ctx context.Context, correlationID uuid.UUID) (*Instance, error)
	Save(ctx context.Context, inst *Instance, expected State) error
}

// ErrAlreadyExists signals a Create for a correlation id that already has an instance.
var ErrAlreadyExists = errors.New("saga instance already exists")

// ErrNotFound signals a Load for a correlation id with no instance.
var ErrNotFound = errors.New("saga instance not found")

// ErrStateConflict signals a conditional Save that lost against a concurrent update.
var ErrStateConflict = errors.New("saga instance state changed concurrently")

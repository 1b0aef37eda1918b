package travel

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"voyager/internal/travel/saga"
)

// PurchaseTravelPackage is the inbound command that starts a saga. The
// correlation id links the command to every downstream event and to exactly
// one saga instance.
type PurchaseTravelPackage struct {
	CorrelationID uuid.UUID                     `json:"correlation_id"`
	Traveler      saga.TravelerInfo             `json:"traveler"`
	Trip          saga.TripDetails              `json:"trip"`
	Accommodation saga.AccommodationPreferences `json:"accommodation"`
	CarRental     saga.CarRentalPreferences     `json:"car_rental"`
	Payment       saga.PaymentDetails           `json:"payment"`
}

// Validate rejects commands the orchestrator must never act on. Pricing and
// step invocation both assume a command that passed here.
func (c PurchaseTravelPackage) Validate() error {
	if c.CorrelationID == uuid.Nil {
		return errors.New("correlation id is required")
	}
	if c.Traveler.CustomerID == "" || c.Traveler.Email == "" {
		return errors.New("traveler customer id and email are required")
	}
	if c.Trip.Origin == "" || c.Trip.Destination == "" {
		return errors.New("trip origin and destination are required")
	}
	if c.Trip.Travelers <= 0 {
		return fmt.Errorf("traveler count must be positive, got %d", c.Trip.Travelers)
	}
	if !c.Trip.ReturnDate.After(c.Trip.DepartureDate) {
		return errors.New("return date must be after departure date")
	}
	if c.Payment.CardNumber == "" || c.Payment.CardHolder == "" {
		return errors.New("payment card number and holder are required")
	}
	return nil
}

package travel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"voyager/internal/travel/saga"
)

// NewInMemoryFlightClient constructs an in-memory flight client.
func NewInMemoryFlightClient() *InMemoryFlightClient {
	return &InMemoryFlightClient{
		reservations: make(map[string]saga.TripDetails),
		cancelled:    make(map[string]bool),
	}
}

// InMemoryFlightClient tracks flight reservations in memory.
type InMemoryFlightClient struct {
	mu           sync.Mutex
	seq          int
	reservations map[string]saga.TripDetails
	cancelled    map[string]bool
}

func (c *InMemoryFlightClient) Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	id := fmt.Sprintf("FL-%04d", c.seq)
	c.reservations[id] = trip
	return id, nil
}

func (c *InMemoryFlightClient) Cancel(ctx context.Context, reservationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.reservations[reservationID]; !ok {
		return errors.New("cancel of unknown flight reservation")
	}
	c.cancelled[reservationID] = true
	return nil
}

// WasCancelled reports whether a reservation was cancelled (for testing/inspection).
func (c *InMemoryFlightClient) WasCancelled(reservationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled[reservationID]
}

// NewInMemoryHotelClient constructs an in-memory hotel client.
func NewInMemoryHotelClient() *InMemoryHotelClient {
	return &InMemoryHotelClient{
		reservations: make(map[string]saga.AccommodationPreferences),
		cancelled:    make(map[string]bool),
	}
}

// InMemoryHotelClient tracks hotel reservations in memory.
type InMemoryHotelClient struct {
	mu           sync.Mutex
	seq          int
	reservations map[string]saga.AccommodationPreferences
	cancelled    map[string]bool
}

func (c *InMemoryHotelClient) Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails, prefs saga.AccommodationPreferences) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	id := fmt.Sprintf("HT-%04d", c.seq)
	c.reservations[id] = prefs
	return id, nil
}

func (c *InMemoryHotelClient) Cancel(ctx context.Context, reservationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.reservations[reservationID]; !ok {
		return errors.New("cancel of unknown hotel reservation")
	}
	c.cancelled[reservationID] = true
	return nil
}

// WasCancelled reports whether a reservation was cancelled (for testing/inspection).
func (c *InMemoryHotelClient) WasCancelled(reservationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled[reservationID]
}

// NewInMemoryCarClient constructs an in-memory car rental client.
func NewInMemoryCarClient() *InMemoryCarClient {
	return &InMemoryCarClient{
		reservations: make(map[string]saga.CarRentalPreferences),
		cancelled:    make(map[string]bool),
	}
}

// InMemoryCarClient tracks car rental reservations in memory.
type InMemoryCarClient struct {
	mu           sync.Mutex
	seq          int
	reservations map[string]saga.CarRentalPreferences
	cancelled    map[string]bool
}

func (c *InMemoryCarClient) Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails, prefs saga.CarRentalPreferences) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	id := fmt.Sprintf("CR-%04d", c.seq)
	c.reservations[id] = prefs
	return id, nil
}

func (c *InMemoryCarClient) Cancel(ctx context.Context, reservationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.reservations[reservationID]; !ok {
		return errors.New("cancel of unknown car reservation")
	}
	c.cancelled[reservationID] = true
	return nil
}

// WasCancelled reports whether a reservation was cancelled (for testing/inspection).
func (c *InMemoryCarClient) WasCancelled(reservationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled[reservationID]
}

// NewInMemoryPaymentClient constructs an in-memory payment client.
func NewInMemoryPaymentClient() *InMemoryPaymentClient {
	return &InMemoryPaymentClient{
		charges:  make(map[string]float64),
		refunded: make(map[string]bool),
	}
}

// InMemoryPaymentClient tracks charges and refunds in memory.
type InMemoryPaymentClient struct {
	mu       sync.Mutex
	seq      int
	charges  map[string]float64
	refunded map[string]bool
}

func (c *InMemoryPaymentClient) Charge(ctx context.Context, traveler saga.TravelerInfo, details saga.PaymentDetails, amount float64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	id := fmt.Sprintf("PAY-%04d", c.seq)
	c.charges[id] = amount
	return id, nil
}

func (c *InMemoryPaymentClient) Refund(ctx context.Context, confirmationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.charges[confirmationID]; !ok {
		return errors.New("refund without charge")
	}
	c.refunded[confirmationID] = true
	return nil
}

// WasRefunded reports whether a charge was refunded (for testing/inspection).
func (c *InMemoryPaymentClient) WasRefunded(confirmationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refunded[confirmationID]
}

// ChargedAmount returns the amount charged under a confirmation id, if any.
func (c *InMemoryPaymentClient) ChargedAmount(confirmationID string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	amount, ok := c.charges[confirmationID]
	return amount, ok
}

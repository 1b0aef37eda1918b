package travel

import (
	"context"
	"errors"
	"fmt"
	"log"

	"voyager/internal/observability"
	"voyager/internal/travel/saga"
)

// Compensator undoes the steps of a failed saga in fixed reverse order:
// refund payment, cancel car, cancel hotel, cancel flight. Only steps whose
// ids were captured are attempted. Each undo is independent: a failure is
// logged and collected but never blocks the remaining steps, and nothing is
// retried here.
type Compensator struct {
	flights  FlightService
	hotels   HotelService
	cars     CarRentalService
	payments PaymentService
	metrics  *observability.Metrics
	logf     func(format string, args ...any)
}

// NewCompensator constructs a Compensator over the four step clients.
// Metrics and logf may be nil.
func NewCompensator(flights FlightService, hotels HotelService, cars CarRentalService, payments PaymentService, metrics *observability.Metrics, logf func(format string, args ...any)) *Compensator {
	if logf == nil {
		logf = log.Printf
	}
	return &Compensator{
		flights:  flights,
		hotels:   hotels,
		cars:     cars,
		payments: payments,
		metrics:  metrics,
		logf:     logf,
	}
}

// Compensate undoes whatever completed for the instance. The returned error
// joins the individual undo failures so callers can log them; the saga's
// terminal outcome does not depend on it.
func (c *Compensator) Compensate(ctx context.Context, inst *saga.Instance) error {
	c.logf("saga %s: compensating after failure: %s", inst.CorrelationID, inst.FailureReason)

	var errs []error

	if inst.PaymentConfirmationID != "" {
		if err := c.undo(ctx, "payment.refund", func() error {
			return c.payments.Refund(ctx, inst.PaymentConfirmationID)
		}); err != nil {
			c.logf("saga %s: refund payment %s: %v", inst.CorrelationID, inst.PaymentConfirmationID, err)
			errs = append(errs, fmt.Errorf("refund payment: %w", err))
		}
	}

	if inst.CarReservationID != "" {
		if err := c.undo(ctx, "car.cancel", func() error {
			return c.cars.Cancel(ctx, inst.CarReservationID)
		}); err != nil {
			c.logf("saga %s: cancel car %s: %v", inst.CorrelationID, inst.CarReservationID, err)
			errs = append(errs, fmt.Errorf("cancel car: %w", err))
		}
	}

	if inst.HotelReservationID != "" {
		if err := c.undo(ctx, "hotel.cancel", func() error {
			return c.hotels.Cancel(ctx, inst.HotelReservationID)
		}); err != nil {
			c.logf("saga %s: cancel hotel %s: %v", inst.CorrelationID, inst.HotelReservationID, err)
			errs = append(errs, fmt.Errorf("cancel hotel: %w", err))
		}
	}

	if inst.FlightReservationID != "" {
		if err := c.undo(ctx, "flight.cancel", func() error {
			return c.flights.Cancel(ctx, inst.FlightReservationID)
		}); err != nil {
			c.logf("saga %s: cancel flight %s: %v", inst.CorrelationID, inst.FlightReservationID, err)
			errs = append(errs, fmt.Errorf("cancel flight: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Compensator) undo(ctx context.Context, name string, fn func() error) error {
	span := c.metrics.Start(name)
	err := fn()
	span.End(err)
	c.metrics.CompensationStep(err != nil)
	return err
}

package travel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"voyager/internal/keylock"
	"voyager/internal/observability"
	"voyager/internal/travel/saga"
)

// EventPublisher delivers outbound saga events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// OrchestratorConfig wires an Orchestrator. Store and the four step clients
// are required; everything else has a default.
type OrchestratorConfig struct {
	Store    saga.Store
	Flights  FlightService
	Hotels   HotelService
	Cars     CarRentalService
	Payments PaymentService

	// Compensator defaults to one built over the same four clients.
	Compensator *Compensator

	// Publisher receives step and terminal events. Nil disables publishing.
	Publisher EventPublisher

	Metrics *observability.Metrics

	// StepTimeout bounds each external call so a hung provider cannot wedge
	// the per-instance serialization. Expiry is treated as a step failure.
	StepTimeout time.Duration

	Logf func(format string, args ...any)
	Now  func() time.Time
}

// Orchestrator owns the travel package state machine. It creates instances
// from purchase commands, advances them through flight, hotel, car and
// payment, and routes any step failure to compensation. All event processing
// for one correlation id is serialized through a keyed lock; distinct ids
// proceed in parallel.
type Orchestrator struct {
	store       saga.Store
	flights     FlightService
	hotels      HotelService
	cars        CarRentalService
	payments    PaymentService
	compensator *Compensator
	publisher   EventPublisher
	metrics     *observability.Metrics
	locks       *keylock.Map
	stepTimeout time.Duration
	logf        func(format string, args ...any)
	now         func() time.Time
}

const defaultStepTimeout = 30 * time.Second

// NewOrchestrator constructs an Orchestrator from the config.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	stepTimeout := cfg.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = defaultStepTimeout
	}
	compensator := cfg.Compensator
	if compensator == nil {
		compensator = NewCompensator(cfg.Flights, cfg.Hotels, cfg.Cars, cfg.Payments, cfg.Metrics, logf)
	}
	return &Orchestrator{
		store:       cfg.Store,
		flights:     cfg.Flights,
		hotels:      cfg.Hotels,
		cars:        cfg.Cars,
		payments:    cfg.Payments,
		compensator: compensator,
		publisher:   cfg.Publisher,
		metrics:     cfg.Metrics,
		locks:       keylock.New(),
		stepTimeout: stepTimeout,
		logf:        logf,
		now:         now,
	}
}

// StartPurchase handles the initiating command: it creates the instance with
// the total amount priced up front, then drives the saga from the flight
// step. A command whose correlation id already has an instance is dropped, so
// redelivered commands cannot spawn a second saga.
func (o *Orchestrator) StartPurchase(ctx context.Context, cmd PurchaseTravelPackage) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid purchase command: %w", err)
	}

	key := cmd.CorrelationID.String()
	o.locks.Lock(key)
	defer o.locks.Unlock(key)

	inst := &saga.Instance{
		CorrelationID: cmd.CorrelationID,
		CurrentState:  saga.StateAwaitingFlight,
		CustomerID:    cmd.Traveler.CustomerID,
		TravelerEmail: cmd.Traveler.Email,
		TravelerName:  cmd.Traveler.FullName,
		Trip:          cmd.Trip,
		Accommodation: cmd.Accommodation,
		CarRental:     cmd.CarRental,
		Payment:       cmd.Payment,
		TotalAmount:   PackagePrice(cmd.Trip, cmd.CarRental),
		CreatedAt:     o.now().UTC(),
	}

	if err := o.store.Create(ctx, inst); err != nil {
		if errors.Is(err, saga.ErrAlreadyExists) {
			o.logf("saga %s: duplicate purchase command dropped", cmd.CorrelationID)
			return nil
		}
		return fmt.Errorf("create saga instance: %w", err)
	}
	o.metrics.SagaStarted()

	return o.drive(ctx, inst, o.reserveFlight(ctx, inst))
}

// HandleEvent applies an externally delivered correlated event. Events for an
// unknown correlation id, and events that do not match the instance's current
// state, are dropped with a diagnostic log; the transport may redeliver or
// misroute, and neither is allowed to corrupt an instance.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev Event) error {
	correlationID := ev.Correlation()
	if correlationID == uuid.Nil {
		o.logf("dropping %s event without correlation id", ev.EventName())
		return nil
	}

	key := correlationID.String()
	o.locks.Lock(key)
	defer o.locks.Unlock(key)

	inst, err := o.store.Load(ctx, correlationID)
	if err != nil {
		if errors.Is(err, saga.ErrNotFound) {
			o.logf("saga %s: dropping %s, no instance", correlationID, ev.EventName())
			return nil
		}
		return fmt.Errorf("load saga instance: %w", err)
	}

	return o.drive(ctx, inst, ev)
}

// drive applies events until the chain stops: each applied event may trigger
// the next external call, whose outcome re-enters the machine as the next
// event. The caller holds the per-instance lock for the whole chain.
func (o *Orchestrator) drive(ctx context.Context, inst *saga.Instance, ev Event) error {
	for ev != nil {
		next, err := o.apply(ctx, inst, ev)
		if err != nil {
			return err
		}
		ev = next
	}
	return nil
}

func (o *Orchestrator) apply(ctx context.Context, inst *saga.Instance, ev Event) (Event, error) {
	switch e := ev.(type) {
	case ReservationCompleted:
		return o.applyReservation(ctx, inst, e)
	case PaymentCompleted:
		return nil, o.applyPayment(ctx, inst, e)
	case ReservationFailed:
		return nil, o.applyFailure(ctx, inst, e)
	default:
		o.logf("saga %s: dropping unrecognized event %s", inst.CorrelationID, ev.EventName())
		return nil, nil
	}
}

func (o *Orchestrator) applyReservation(ctx context.Context, inst *saga.Instance, e ReservationCompleted) (Event, error) {
	switch {
	case e.Step == StepFlight && inst.CurrentState == saga.StateAwaitingFlight:
		inst.FlightReservationID = e.ReservationID
		applied, err := o.transition(ctx, inst, saga.StateAwaitingFlight, saga.StateFlightReserved)
		if err != nil || !applied {
			return nil, err
		}
		o.publish(ctx, e)
		return o.reserveHotel(ctx, inst), nil

	case e.Step == StepHotel && inst.CurrentState == saga.StateFlightReserved:
		inst.HotelReservationID = e.ReservationID
		applied, err := o.transition(ctx, inst, saga.StateFlightReserved, saga.StateHotelReserved)
		if err != nil || !applied {
			return nil, err
		}
		o.publish(ctx, e)
		return o.reserveCar(ctx, inst), nil

	case e.Step == StepCar && inst.CurrentState == saga.StateHotelReserved:
		inst.CarReservationID = e.ReservationID
		applied, err := o.transition(ctx, inst, saga.StateHotelReserved, saga.StateCarReserved)
		if err != nil || !applied {
			return nil, err
		}
		o.publish(ctx, e)
		return o.processPayment(ctx, inst), nil

	default:
		o.logf("saga %s: dropping %s in state %s", inst.CorrelationID, e.EventName(), inst.CurrentState)
		return nil, nil
	}
}

func (o *Orchestrator) applyPayment(ctx context.Context, inst *saga.Instance, e PaymentCompleted) error {
	if inst.CurrentState != saga.StateCarReserved {
		o.logf("saga %s: dropping %s in state %s", inst.CorrelationID, e.EventName(), inst.CurrentState)
		return nil
	}

	inst.PaymentConfirmationID = e.ConfirmationID
	inst.CompletedAt = o.now().UTC()
	applied, err := o.transition(ctx, inst, saga.StateCarReserved, saga.StatePaymentProcessed)
	if err != nil || !applied {
		return err
	}

	o.publish(ctx, e)
	o.publish(ctx, PackageCompleted{
		CorrelationID:    inst.CorrelationID,
		ConfirmationCode: e.ConfirmationID,
		Timestamp:        inst.CompletedAt,
	})
	o.metrics.SagaCompleted()
	return nil
}

// applyFailure moves any non-terminal instance to the failed state.
// Compensation runs before the state is finalized and before PackageFailed is
// published, so subscribers observing the failure can assume it was at least
// attempted.
func (o *Orchestrator) applyFailure(ctx context.Context, inst *saga.Instance, e ReservationFailed) error {
	if inst.Terminal() {
		o.logf("saga %s: dropping %s in terminal state %s", inst.CorrelationID, e.EventName(), inst.CurrentState)
		return nil
	}

	from := inst.CurrentState
	inst.FailureReason = e.Reason
	inst.CompletedAt = o.now().UTC()

	if err := o.compensator.Compensate(ctx, inst); err != nil {
		o.logf("saga %s: compensation incomplete: %v", inst.CorrelationID, err)
	}

	applied, err := o.transition(ctx, inst, from, saga.StateFailed)
	if err != nil || !applied {
		return err
	}

	o.publish(ctx, e)
	o.publish(ctx, PackageFailed{
		CorrelationID: inst.CorrelationID,
		Reason:        e.Reason,
		Timestamp:     inst.CompletedAt,
	})
	o.metrics.SagaFailed()
	return nil
}

// transition saves the mutated instance conditionally on the state it was
// read in. A conflict means another worker already applied an event for this
// instance; the local transition is dropped, not retried.
func (o *Orchestrator) transition(ctx context.Context, inst *saga.Instance, from, to saga.State) (bool, error) {
	inst.CurrentState = to
	if err := o.store.Save(ctx, inst, from); err != nil {
		if errors.Is(err, saga.ErrStateConflict) {
			o.logf("saga %s: dropping transition %s -> %s after concurrent update", inst.CorrelationID, from, to)
			return false, nil
		}
		return false, fmt.Errorf("save saga instance: %w", err)
	}
	return true, nil
}

func (o *Orchestrator) reserveFlight(ctx context.Context, inst *saga.Instance) Event {
	id, err := o.callStep(ctx, "flight.reserve", func(callCtx context.Context) (string, error) {
		return o.flights.Reserve(callCtx, inst.Traveler(), inst.Trip)
	})
	if err != nil {
		return o.failStep(inst, StepFlight, err)
	}
	return ReservationCompleted{CorrelationID: inst.CorrelationID, Step: StepFlight, ReservationID: id}
}

func (o *Orchestrator) reserveHotel(ctx context.Context, inst *saga.Instance) Event {
	if inst.Trip.Travelers <= 0 || inst.Accommodation.HotelCategory == "" {
		return o.failStep(inst, StepHotel, errors.New("trip or accommodation details missing from saga state"))
	}
	id, err := o.callStep(ctx, "hotel.reserve", func(callCtx context.Context) (string, error) {
		return o.hotels.Reserve(callCtx, inst.Traveler(), inst.Trip, inst.Accommodation)
	})
	if err != nil {
		return o.failStep(inst, StepHotel, err)
	}
	return ReservationCompleted{CorrelationID: inst.CorrelationID, Step: StepHotel, ReservationID: id}
}

func (o *Orchestrator) reserveCar(ctx context.Context, inst *saga.Instance) Event {
	if inst.Trip.Travelers <= 0 || inst.CarRental.CarClass == "" {
		return o.failStep(inst, StepCar, errors.New("trip or car rental details missing from saga state"))
	}
	id, err := o.callStep(ctx, "car.reserve", func(callCtx context.Context) (string, error) {
		return o.cars.Reserve(callCtx, inst.Traveler(), inst.Trip, inst.CarRental)
	})
	if err != nil {
		return o.failStep(inst, StepCar, err)
	}
	return ReservationCompleted{CorrelationID: inst.CorrelationID, Step: StepCar, ReservationID: id}
}

func (o *Orchestrator) processPayment(ctx context.Context, inst *saga.Instance) Event {
	if inst.Payment.CardNumber == "" {
		return o.failStep(inst, StepPayment, errors.New("payment details missing from saga state"))
	}
	id, err := o.callStep(ctx, "payment.charge", func(callCtx context.Context) (string, error) {
		return o.payments.Charge(callCtx, inst.Traveler(), inst.Payment, inst.TotalAmount)
	})
	if err != nil {
		return o.failStep(inst, StepPayment, err)
	}
	return PaymentCompleted{CorrelationID: inst.CorrelationID, ConfirmationID: id}
}

func (o *Orchestrator) callStep(ctx context.Context, name string, fn func(context.Context) (string, error)) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	span := o.metrics.Start(name)
	id, err := fn(callCtx)
	span.End(err)
	return id, err
}

func (o *Orchestrator) failStep(inst *saga.Instance, step Step, err error) ReservationFailed {
	reason := fmt.Sprintf("%s: %v", failurePrefix(step), err)
	o.logf("saga %s: %s", inst.CorrelationID, reason)
	return ReservationFailed{CorrelationID: inst.CorrelationID, Reason: reason}
}

func failurePrefix(step Step) string {
	switch step {
	case StepFlight:
		return "Flight reservation failed"
	case StepHotel:
		return "Hotel reservation failed"
	case StepCar:
		return "Car reservation failed"
	case StepPayment:
		return "Payment failed"
	}
	return "Reservation failed"
}

func (o *Orchestrator) publish(ctx context.Context, ev Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, ev); err != nil {
		o.logf("saga %s: publish %s: %v", ev.Correlation(), ev.EventName(), err)
	}
}

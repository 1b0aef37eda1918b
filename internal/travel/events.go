package travel

import (
	"time"

	"github.com/google/uuid"
)

// Step names one of the external calls a saga makes.
type Step string

const (
	StepFlight  Step = "flight"
	StepHotel   Step = "hotel"
	StepCar     Step = "car"
	StepPayment Step = "payment"
)

// Event is a correlated saga event, inbound to the orchestrator or published
// outbound for subscribers.
type Event interface {
	Correlation() uuid.UUID
	EventName() string
}

// ReservationCompleted reports that a reservation step finished and carries
// the provider's reservation id.
type ReservationCompleted struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	Step          Step      `json:"step"`
	ReservationID string    `json:"reservation_id"`
}

func (e ReservationCompleted) Correlation() uuid.UUID { return e.CorrelationID }

func (e ReservationCompleted) EventName() string {
	return "reservation." + string(e.Step) + ".completed"
}

// PaymentCompleted reports a successful charge with its confirmation id.
type PaymentCompleted struct {
	CorrelationID  uuid.UUID `json:"correlation_id"`
	ConfirmationID string    `json:"confirmation_id"`
}

func (e PaymentCompleted) Correlation() uuid.UUID { return e.CorrelationID }
func (e PaymentCompleted) EventName() string      { return "payment.completed" }

// ReservationFailed reports the first failing step with a human-readable
// reason. Any step failure, payment included, funnels into this one event.
type ReservationFailed struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	Reason        string    `json:"reason"`
}

func (e ReservationFailed) Correlation() uuid.UUID { return e.CorrelationID }
func (e ReservationFailed) EventName() string      { return "reservation.failed" }

// PackageCompleted is the terminal success event, published exactly once per
// instance.
type PackageCompleted struct {
	CorrelationID    uuid.UUID `json:"correlation_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	Timestamp        time.Time `json:"timestamp"`
}

func (e PackageCompleted) Correlation() uuid.UUID { return e.CorrelationID }
func (e PackageCompleted) EventName() string      { return "package.completed" }

// PackageFailed is the terminal failure event, published exactly once per
// instance after compensation has been attempted.
type PackageFailed struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e PackageFailed) Correlation() uuid.UUID { return e.CorrelationID }
func (e PackageFailed) EventName() string      { return "package.failed" }

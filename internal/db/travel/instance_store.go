package traveldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"voyager/internal/travel/saga"
)

// InstanceStore persists saga instances in Postgres. Save is conditional on
// the state the caller read, so two workers racing on one instance cannot
// both win.
type InstanceStore struct {
	db *sql.DB
}

// NewInstanceStore constructs an InstanceStore backed by Postgres.
func NewInstanceStore(db *sql.DB) *InstanceStore {
	return &InstanceStore{db: db}
}

// NewInstanceStoreWithSchema initializes the schema then returns the store.
func NewInstanceStoreWithSchema(ctx context.Context, db *sql.DB) (*InstanceStore, error) {
	store := NewInstanceStore(db)
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// InitSchema creates the saga table if it does not exist.
func (s *InstanceStore) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS travel_sagas (
			correlation_id UUID PRIMARY KEY,
			current_state TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			traveler_email TEXT NOT NULL,
			traveler_name TEXT NOT NULL,
			origin TEXT NOT NULL,
			destination TEXT NOT NULL,
			departure_date TIMESTAMPTZ NOT NULL,
			return_date TIMESTAMPTZ NOT NULL,
			travelers INT NOT NULL,
			hotel_category TEXT NOT NULL,
			include_breakfast BOOLEAN NOT NULL,
			car_class TEXT NOT NULL,
			include_insurance BOOLEAN NOT NULL,
			card_number TEXT NOT NULL,
			card_holder TEXT NOT NULL,
			card_expiration TEXT NOT NULL,
			card_cvv TEXT NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL,
			flight_reservation_id TEXT,
			hotel_reservation_id TEXT,
			car_reservation_id TEXT,
			payment_confirmation_id TEXT,
			failure_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		)`,
	)
	return err
}

// Create inserts a new instance. A correlation id that already has a row
// yields ErrAlreadyExists.
func (s *InstanceStore) Create(ctx context.Context, inst *saga.Instance) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO travel_sagas (
			correlation_id, current_state,
			customer_id, traveler_email, traveler_name,
			origin, destination, departure_date, return_date, travelers,
			hotel_category, include_breakfast,
			car_class, include_insurance,
			card_number, card_holder, card_expiration, card_cvv,
			total_amount,
			flight_reservation_id, hotel_reservation_id, car_reservation_id, payment_confirmation_id,
			failure_reason, created_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		ON CONFLICT (correlation_id) DO NOTHING`,
		inst.CorrelationID, string(inst.CurrentState),
		inst.CustomerID, inst.TravelerEmail, inst.TravelerName,
		inst.Trip.Origin, inst.Trip.Destination, inst.Trip.DepartureDate, inst.Trip.ReturnDate, inst.Trip.Travelers,
		inst.Accommodation.HotelCategory, inst.Accommodation.IncludeBreakfast,
		inst.CarRental.CarClass, inst.CarRental.IncludeInsurance,
		inst.Payment.CardNumber, inst.Payment.CardHolder, inst.Payment.Expiration, inst.Payment.CVV,
		inst.TotalAmount,
		nullString(inst.FlightReservationID), nullString(inst.HotelReservationID),
		nullString(inst.CarReservationID), nullString(inst.PaymentConfirmationID),
		nullString(inst.FailureReason), inst.CreatedAt, nullTime(inst.CompletedAt),
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return saga.ErrAlreadyExists
	}
	return nil
}

// Load fetches the instance for the correlation id.
func (s *InstanceStore) Load(ctx context.Context, correlationID uuid.UUID) (*saga.Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT correlation_id, current_state,
			customer_id, traveler_email, traveler_name,
			origin, destination, departure_date, return_date, travelers,
			hotel_category, include_breakfast,
			car_class, include_insurance,
			card_number, card_holder, card_expiration, card_cvv,
			total_amount,
			flight_reservation_id, hotel_reservation_id, car_reservation_id, payment_confirmation_id,
			failure_reason, created_at, completed_at
		FROM travel_sagas
		WHERE correlation_id = $1`,
		correlationID,
	)

	var (
		inst           saga.Instance
		state          string
		flightID       sql.NullString
		hotelID        sql.NullString
		carID          sql.NullString
		confirmationID sql.NullString
		failureReason  sql.NullString
		completedAt    sql.NullTime
	)
	err := row.Scan(
		&inst.CorrelationID, &state,
		&inst.CustomerID, &inst.TravelerEmail, &inst.TravelerName,
		&inst.Trip.Origin, &inst.Trip.Destination, &inst.Trip.DepartureDate, &inst.Trip.ReturnDate, &inst.Trip.Travelers,
		&inst.Accommodation.HotelCategory, &inst.Accommodation.IncludeBreakfast,
		&inst.CarRental.CarClass, &inst.CarRental.IncludeInsurance,
		&inst.Payment.CardNumber, &inst.Payment.CardHolder, &inst.Payment.Expiration, &inst.Payment.CVV,
		&inst.TotalAmount,
		&flightID, &hotelID, &carID, &confirmationID,
		&failureReason, &inst.CreatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, saga.ErrNotFound
		}
		return nil, err
	}

	inst.CurrentState = saga.State(state)
	inst.FlightReservationID = flightID.String
	inst.HotelReservationID = hotelID.String
	inst.CarReservationID = carID.String
	inst.PaymentConfirmationID = confirmationID.String
	inst.FailureReason = failureReason.String
	if completedAt.Valid {
		inst.CompletedAt = completedAt.Time
	}
	return &inst, nil
}

// Save updates the instance only if its stored state still matches expected.
// Zero rows affected means another worker got there first.
func (s *InstanceStore) Save(ctx context.Context, inst *saga.Instance, expected saga.State) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE travel_sagas
		SET current_state = $2,
			total_amount = $3,
			flight_reservation_id = $4,
			hotel_reservation_id = $5,
			car_reservation_id = $6,
			payment_confirmation_id = $7,
			failure_reason = $8,
			completed_at = $9
		WHERE correlation_id = $1 AND current_state = $10`,
		inst.CorrelationID, string(inst.CurrentState),
		inst.TotalAmount,
		nullString(inst.FlightReservationID), nullString(inst.HotelReservationID),
		nullString(inst.CarReservationID), nullString(inst.PaymentConfirmationID),
		nullString(inst.FailureReason), nullTime(inst.CompletedAt),
		string(expected),
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return saga.ErrStateConflict
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

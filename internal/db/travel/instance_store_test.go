package traveldb

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"voyager/internal/travel/saga"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	}

	return db, mock, cleanup
}

func sampleInstance() *saga.Instance {
	departure := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	return &saga.Instance{
		CorrelationID: uuid.New(),
		CurrentState:  saga.StateAwaitingFlight,
		CustomerID:    "cust-1",
		TravelerEmail: "ana@example.com",
		TravelerName:  "Ana Torres",
		Trip: saga.TripDetails{
			Origin:        "MEX",
			Destination:   "MAD",
			DepartureDate: departure,
			ReturnDate:    departure.Add(72 * time.Hour),
			Travelers:     2,
		},
		Accommodation: saga.AccommodationPreferences{HotelCategory: "boutique", IncludeBreakfast: true},
		CarRental:     saga.CarRentalPreferences{CarClass: "compact", IncludeInsurance: true},
		Payment:       saga.PaymentDetails{CardNumber: "4111111111111111", CardHolder: "Ana Torres", Expiration: "12/28", CVV: "123"},
		TotalAmount:   2720.00,
		CreatedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestInstanceStore_InitSchema(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS travel_sagas").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	store := NewInstanceStore(db)
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
}

func TestInstanceStore_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("INSERT INTO travel_sagas").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	store := NewInstanceStore(db)
	if err := store.Create(context.Background(), sampleInstance()); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestInstanceStore_Create_AlreadyExists(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("INSERT INTO travel_sagas").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	store := NewInstanceStore(db)
	err := store.Create(context.Background(), sampleInstance())
	if !errors.Is(err, saga.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestInstanceStore_Load(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	inst := sampleInstance()
	inst.CurrentState = saga.StateHotelReserved
	inst.FlightReservationID = "FL-1"
	inst.HotelReservationID = "HT-1"

	columns := []string{
		"correlation_id", "current_state",
		"customer_id", "traveler_email", "traveler_name",
		"origin", "destination", "departure_date", "return_date", "travelers",
		"hotel_category", "include_breakfast",
		"car_class", "include_insurance",
		"card_number", "card_holder", "card_expiration", "card_cvv",
		"total_amount",
		"flight_reservation_id", "hotel_reservation_id", "car_reservation_id", "payment_confirmation_id",
		"failure_reason", "created_at", "completed_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM travel_sagas").
		WithArgs(inst.CorrelationID).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			inst.CorrelationID, string(inst.CurrentState),
			inst.CustomerID, inst.TravelerEmail, inst.TravelerName,
			inst.Trip.Origin, inst.Trip.Destination, inst.Trip.DepartureDate, inst.Trip.ReturnDate, inst.Trip.Travelers,
			inst.Accommodation.HotelCategory, inst.Accommodation.IncludeBreakfast,
			inst.CarRental.CarClass, inst.CarRental.IncludeInsurance,
			inst.Payment.CardNumber, inst.Payment.CardHolder, inst.Payment.Expiration, inst.Payment.CVV,
			inst.TotalAmount,
			"FL-1", "HT-1", nil, nil,
			nil, inst.CreatedAt, nil,
		))
	mock.ExpectClose()

	store := NewInstanceStore(db)
	got, err := store.Load(context.Background(), inst.CorrelationID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CurrentState != saga.StateHotelReserved {
		t.Fatalf("unexpected state %s", got.CurrentState)
	}
	if got.FlightReservationID != "FL-1" || got.HotelReservationID != "HT-1" {
		t.Fatalf("unexpected reservation ids %q %q", got.FlightReservationID, got.HotelReservationID)
	}
	if got.CarReservationID != "" || got.PaymentConfirmationID != "" || got.FailureReason != "" {
		t.Fatalf("expected empty optional fields, got %+v", got)
	}
	if !got.CompletedAt.IsZero() {
		t.Fatalf("expected zero completed timestamp, got %v", got.CompletedAt)
	}
}

func TestInstanceStore_Load_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	correlationID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM travel_sagas").
		WithArgs(correlationID).
		WillReturnRows(sqlmock.NewRows([]string{"correlation_id"}))
	mock.ExpectClose()

	store := NewInstanceStore(db)
	if _, err := store.Load(context.Background(), correlationID); !errors.Is(err, saga.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInstanceStore_Save(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	inst := sampleInstance()
	inst.CurrentState = saga.StateFlightReserved
	inst.FlightReservationID = "FL-1"

	mock.ExpectExec("UPDATE travel_sagas").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	store := NewInstanceStore(db)
	if err := store.Save(context.Background(), inst, saga.StateAwaitingFlight); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestInstanceStore_Save_StateConflict(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	inst := sampleInstance()
	inst.CurrentState = saga.StateFlightReserved

	mock.ExpectExec("UPDATE travel_sagas").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	store := NewInstanceStore(db)
	err := store.Save(context.Background(), inst, saga.StateAwaitingFlight)
	if !errors.Is(err, saga.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
}

func TestInstanceStore_WithSchema(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	t.Cleanup(cleanup)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS travel_sagas").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	store, err := NewInstanceStoreWithSchema(context.Background(), db)
	if err != nil {
		t.Fatalf("WithSchema: %v", err)
	}
	if store == nil {
		t.Fatalf("expected store")
	}
}

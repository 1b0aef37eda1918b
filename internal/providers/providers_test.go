package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voyager/internal/travel/saga"
)

func sampleTraveler() saga.TravelerInfo {
	return saga.TravelerInfo{CustomerID: "cust-1", Email: "ana@example.com", FullName: "Ana Torres"}
}

func sampleTrip() saga.TripDetails {
	departure := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	return saga.TripDetails{
		Origin:        "MEX",
		Destination:   "MAD",
		DepartureDate: departure,
		ReturnDate:    departure.Add(72 * time.Hour),
		Travelers:     2,
	}
}

func TestFlightClient_Reserve(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"reservationId": "FL-77"})
	}))
	t.Cleanup(srv.Close)

	client := NewFlightClient(Config{BaseURL: srv.URL, Logf: t.Logf})
	id, err := client.Reserve(context.Background(), sampleTraveler(), sampleTrip())
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if id != "FL-77" {
		t.Fatalf("unexpected id %q", id)
	}
	if gotPath != "POST /api/reservations" {
		t.Fatalf("unexpected request %q", gotPath)
	}
	if gotBody["customerId"] != "cust-1" || gotBody["origin"] != "MEX" || gotBody["travelers"] != float64(2) {
		t.Fatalf("unexpected payload %v", gotBody)
	}
}

func TestFlightClient_ReserveRejectionIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no seats left", http.StatusConflict)
	}))
	t.Cleanup(srv.Close)

	client := NewFlightClient(Config{BaseURL: srv.URL, Logf: t.Logf})
	_, err := client.Reserve(context.Background(), sampleTraveler(), sampleTrip())
	if err == nil {
		t.Fatalf("expected error")
	}

	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected ServiceError, got %T: %v", err, err)
	}
	if serviceErr.Service != "flight" || serviceErr.StatusCode != http.StatusConflict {
		t.Fatalf("unexpected service error %+v", serviceErr)
	}
}

func TestFlightClient_ReserveMissingIDIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	t.Cleanup(srv.Close)

	client := NewFlightClient(Config{BaseURL: srv.URL, Logf: t.Logf})
	if _, err := client.Reserve(context.Background(), sampleTraveler(), sampleTrip()); err == nil {
		t.Fatalf("expected error for empty reservation id")
	}
}

func TestFlightClient_CancelSwallowsProviderRefusal(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		http.Error(w, "unknown reservation", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	client := NewFlightClient(Config{BaseURL: srv.URL, Logf: t.Logf})
	if err := client.Cancel(context.Background(), "FL-77"); err != nil {
		t.Fatalf("cancel must swallow provider refusals, got %v", err)
	}
	if gotPath != "DELETE /api/reservations/FL-77" {
		t.Fatalf("unexpected request %q", gotPath)
	}
}

func TestFlightClient_CancelReturnsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewFlightClient(Config{BaseURL: srv.URL, Logf: t.Logf})
	if err := client.Cancel(context.Background(), "FL-77"); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestHotelClient_Reserve(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"reservationId": "HT-5"})
	}))
	t.Cleanup(srv.Close)

	client := NewHotelClient(Config{BaseURL: srv.URL, Logf: t.Logf})
	prefs := saga.AccommodationPreferences{HotelCategory: "boutique", IncludeBreakfast: true}
	id, err := client.Reserve(context.Background(), sampleTraveler(), sampleTrip(), prefs)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if id != "HT-5" {
		t.Fatalf("unexpected id %q", id)
	}
	if gotBody["hotelCategory"] != "boutique" || gotBody["includeBreakfast"] != true {
		t.Fatalf("unexpected payload %v", gotBody)
	}
}

func TestCarClient_Reserve(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"reservationId": "CR-3"})
	}))
	t.Cleanup(srv.Close)

	client := NewCarClient(Config{BaseURL: srv.URL, Logf: t.Logf})
	prefs := saga.CarRentalPreferences{CarClass: "compact", IncludeInsurance: true}
	id, err := client.Reserve(context.Background(), sampleTraveler(), sampleTrip(), prefs)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if id != "CR-3" {
		t.Fatalf("unexpected id %q", id)
	}
	if gotBody["carClass"] != "compact" || gotBody["includeInsurance"] != true {
		t.Fatalf("unexpected payload %v", gotBody)
	}
}

func TestPaymentClient_ChargeAndRefund(t *testing.T) {
	var paths []string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPost && r.URL.Path == "/api/payments" {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_ = json.NewEncoder(w).Encode(map[string]string{"confirmationId": "PAY-9"})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := NewPaymentClient(Config{BaseURL: srv.URL, Logf: t.Logf})
	details := saga.PaymentDetails{CardNumber: "4111111111111111", CardHolder: "Ana Torres", Expiration: "12/28", CVV: "123"}

	id, err := client.Charge(context.Background(), sampleTraveler(), details, 2720.00)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if id != "PAY-9" {
		t.Fatalf("unexpected id %q", id)
	}
	if gotBody["amount"] != 2720.00 || gotBody["cardNumber"] != "4111111111111111" {
		t.Fatalf("unexpected payload %v", gotBody)
	}

	if err := client.Refund(context.Background(), "PAY-9"); err != nil {
		t.Fatalf("refund: %v", err)
	}

	want := []string{"POST /api/payments", "POST /api/payments/PAY-9/refund"}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("unexpected requests %v", paths)
	}
}

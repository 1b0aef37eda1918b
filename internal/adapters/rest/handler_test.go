package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"voyager/internal/travel"
	"voyager/internal/travel/saga"
)

type stubStarter struct {
	mu      sync.Mutex
	started []travel.PurchaseTravelPackage
	done    chan struct{}
}

func newStubStarter() *stubStarter {
	return &stubStarter{done: make(chan struct{}, 8)}
}

func (s *stubStarter) StartPurchase(ctx context.Context, cmd travel.PurchaseTravelPackage) error {
	s.mu.Lock()
	s.started = append(s.started, cmd)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *stubStarter) waitForStart(t *testing.T) travel.PurchaseTravelPackage {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("saga never started")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started[len(s.started)-1]
}

type stubLoader struct {
	instances map[uuid.UUID]*saga.Instance
}

func (s *stubLoader) Load(ctx context.Context, correlationID uuid.UUID) (*saga.Instance, error) {
	inst, ok := s.instances[correlationID]
	if !ok {
		return nil, saga.ErrNotFound
	}
	return inst.Clone(), nil
}

func newTestServer(t *testing.T, starter PurchaseStarter, loader InstanceLoader) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(NewHandler(starter, loader, t.Logf)))
	t.Cleanup(srv.Close)
	return srv
}

func purchaseBody() string {
	return `{
		"traveler": {"customer_id": "cust-1", "email": "ana@example.com", "full_name": "Ana Torres"},
		"trip": {
			"origin": "MEX", "destination": "MAD",
			"departure_date": "2026-09-10T08:00:00Z", "return_date": "2026-09-13T08:00:00Z",
			"travelers": 2
		},
		"accommodation": {"hotel_category": "boutique", "include_breakfast": true},
		"car_rental": {"car_class": "compact", "include_insurance": true},
		"payment": {"card_number": "4111111111111111", "card_holder": "Ana Torres", "expiration": "12/28", "cvv": "123"}
	}`
}

func TestCreatePurchase_MintsCorrelationID(t *testing.T) {
	starter := newStubStarter()
	srv := newTestServer(t, starter, &stubLoader{})

	resp, err := http.Post(srv.URL+"/purchases", "application/json", strings.NewReader(purchaseBody()))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	returned, err := uuid.Parse(body["correlation_id"])
	if err != nil {
		t.Fatalf("correlation_id not a uuid: %v", err)
	}
	if returned == uuid.Nil {
		t.Fatalf("correlation id was not minted")
	}

	cmd := starter.waitForStart(t)
	if cmd.CorrelationID != returned {
		t.Fatalf("started saga %s, response said %s", cmd.CorrelationID, returned)
	}
}

func TestCreatePurchase_KeepsCallerCorrelationID(t *testing.T) {
	starter := newStubStarter()
	srv := newTestServer(t, starter, &stubLoader{})

	id := uuid.New()
	body := strings.Replace(purchaseBody(), `"traveler"`, `"correlation_id": "`+id.String()+`", "traveler"`, 1)
	resp, err := http.Post(srv.URL+"/purchases", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if cmd := starter.waitForStart(t); cmd.CorrelationID != id {
		t.Fatalf("expected caller id %s, got %s", id, cmd.CorrelationID)
	}
}

func TestCreatePurchase_RejectsMalformedJSON(t *testing.T) {
	starter := newStubStarter()
	srv := newTestServer(t, starter, &stubLoader{})

	resp, err := http.Post(srv.URL+"/purchases", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Error != "invalid_json" {
		t.Fatalf("unexpected error code %q", errResp.Error)
	}
}

func TestCreatePurchase_RejectsInvalidCommand(t *testing.T) {
	starter := newStubStarter()
	srv := newTestServer(t, starter, &stubLoader{})

	resp, err := http.Post(srv.URL+"/purchases", "application/json", strings.NewReader(`{"traveler": {"customer_id": "cust-1"}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Error != "invalid_request" {
		t.Fatalf("unexpected error code %q", errResp.Error)
	}
	if len(starter.done) != 0 {
		t.Fatalf("invalid command must not start a saga")
	}
}

func TestGetSaga_ReturnsStateWithoutCardDetails(t *testing.T) {
	id := uuid.New()
	completed := time.Date(2026, 9, 13, 9, 30, 0, 0, time.UTC)
	loader := &stubLoader{instances: map[uuid.UUID]*saga.Instance{
		id: {
			CorrelationID:         id,
			CurrentState:          saga.StatePaymentProcessed,
			CustomerID:            "cust-1",
			TotalAmount:           2720.00,
			FlightReservationID:   "FL-1",
			HotelReservationID:    "HT-1",
			CarReservationID:      "CR-1",
			PaymentConfirmationID: "PAY-1",
			Payment:               saga.PaymentDetails{CardNumber: "4111111111111111", CVV: "123"},
			CreatedAt:             completed.Add(-time.Minute),
			CompletedAt:           completed,
		},
	}}
	srv := newTestServer(t, newStubStarter(), loader)

	resp, err := http.Get(srv.URL + "/sagas/" + id.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["current_state"] != "payment_processed" || raw["total_amount"] != 2720.00 {
		t.Fatalf("unexpected response %v", raw)
	}
	if raw["payment_confirmation_id"] != "PAY-1" {
		t.Fatalf("unexpected confirmation id %v", raw["payment_confirmation_id"])
	}
	if raw["completed_at"] == nil {
		t.Fatalf("completed_at missing for terminal saga")
	}
	for key := range raw {
		if strings.Contains(key, "card") || strings.Contains(key, "cvv") {
			t.Fatalf("card details leaked through %q", key)
		}
	}
}

func TestGetSaga_UnknownCorrelationIs404(t *testing.T) {
	srv := newTestServer(t, newStubStarter(), &stubLoader{})

	resp, err := http.Get(srv.URL + "/sagas/" + uuid.NewString())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetSaga_MalformedIDIs400(t *testing.T) {
	srv := newTestServer(t, newStubStarter(), &stubLoader{})

	resp, err := http.Get(srv.URL + "/sagas/not-a-uuid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// Package rest exposes the HTTP intake surface: purchase submission and saga
// status lookup.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"voyager/internal/travel"
	"voyager/internal/travel/saga"
)

// PurchaseStarter starts a saga from an inbound command.
type PurchaseStarter interface {
	StartPurchase(ctx context.Context, cmd travel.PurchaseTravelPackage) error
}

// InstanceLoader fetches the current state of a saga instance.
type InstanceLoader interface {
	Load(ctx context.Context, correlationID uuid.UUID) (*saga.Instance, error)
}

// Handler handles incoming HTTP requests for travel package purchases.
type Handler struct {
	starter PurchaseStarter
	loader  InstanceLoader
	logf    func(format string, args ...any)
}

// NewHandler constructs a Handler over the orchestrator and store surfaces.
func NewHandler(starter PurchaseStarter, loader InstanceLoader, logf func(format string, args ...any)) *Handler {
	if logf == nil {
		logf = log.Printf
	}
	return &Handler{starter: starter, loader: loader, logf: logf}
}

// CreatePurchase accepts a purchase command and starts the saga in the
// background. The response carries the correlation id the caller polls with.
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var cmd travel.PurchaseTravelPackage
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if cmd.CorrelationID == uuid.Nil {
		cmd.CorrelationID = uuid.New()
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// Detach from the request context so the saga survives the response being
	// sent, while keeping any tracing metadata.
	sagaCtx := context.WithoutCancel(r.Context())
	go func() {
		if err := h.starter.StartPurchase(sagaCtx, cmd); err != nil {
			h.logf("saga %s: purchase failed to start: %v", cmd.CorrelationID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"correlation_id": cmd.CorrelationID.String(),
	})
}

// GetSaga returns the current state of one saga instance.
func (h *Handler) GetSaga(w http.ResponseWriter, r *http.Request) {
	correlationID, err := uuid.Parse(chi.URLParam(r, "correlationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_correlation_id", err.Error())
		return
	}

	inst, err := h.loader.Load(r.Context(), correlationID)
	if err != nil {
		if errors.Is(err, saga.ErrNotFound) {
			writeError(w, http.StatusNotFound, "saga_not_found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "load_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, mapInstance(inst))
}

// SagaResponse is the external view of a saga instance. Card details never
// leave the service.
type SagaResponse struct {
	CorrelationID         string     `json:"correlation_id"`
	CurrentState          string     `json:"current_state"`
	CustomerID            string     `json:"customer_id"`
	TotalAmount           float64    `json:"total_amount"`
	FlightReservationID   string     `json:"flight_reservation_id,omitempty"`
	HotelReservationID    string     `json:"hotel_reservation_id,omitempty"`
	CarReservationID      string     `json:"car_reservation_id,omitempty"`
	PaymentConfirmationID string     `json:"payment_confirmation_id,omitempty"`
	FailureReason         string     `json:"failure_reason,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
}

// ErrorResponse is the error payload for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapInstance(inst *saga.Instance) SagaResponse {
	resp := SagaResponse{
		CorrelationID:         inst.CorrelationID.String(),
		CurrentState:          string(inst.CurrentState),
		CustomerID:            inst.CustomerID,
		TotalAmount:           inst.TotalAmount,
		FlightReservationID:   inst.FlightReservationID,
		HotelReservationID:    inst.HotelReservationID,
		CarReservationID:      inst.CarReservationID,
		PaymentConfirmationID: inst.PaymentConfirmationID,
		FailureReason:         inst.FailureReason,
		CreatedAt:             inst.CreatedAt,
	}
	if !inst.CompletedAt.IsZero() {
		completed := inst.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/internal/checkout"
	"github.com/cx-tal-miterani/booking-assistant/internal/conversation"
	"github.com/cx-tal-miterani/booking-assistant/internal/payment"
	"github.com/cx-tal-miterani/booking-assistant/internal/service"
	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"github.com/gorilla/mux"
)

// WebSocketServer attaches browsers to a conversation's event stream
type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, conversationID string)
}

// Handler contains HTTP handlers for the API
type Handler struct {
	assistant service.AssistantService
	ws        WebSocketServer
}

// NewHandler creates a new Handler instance. ws may be nil.
func NewHandler(assistant service.AssistantService, ws WebSocketServer) *Handler {
	return &Handler{
		assistant: assistant,
		ws:        ws,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, models.ErrInvalidResponse),
		errors.Is(err, models.ErrUnknownWidget),
		errors.Is(err, payment.ErrMissingTripID):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrConversationNotFound),
		errors.Is(err, payment.ErrUnknownTrip),
		errors.Is(err, checkout.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrNoPendingInterrupt),
		errors.Is(err, conversation.ErrInterruptNotFound),
		errors.Is(err, checkout.ErrOrderMismatch),
		errors.Is(err, payment.ErrAttemptInFlight):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// StartConversation handles POST /api/conversations
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req models.StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Steps) == 0 {
		respondError(w, http.StatusBadRequest, "At least one step is required")
		return
	}

	conv, err := h.assistant.StartConversation(r.Context(), &req)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, conv)
}

// GetConversation handles GET /api/conversations/{id}
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]

	view, err := h.assistant.GetConversation(r.Context(), conversationID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// SubmitResponse handles POST /api/conversations/{id}/responses
func (h *Handler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]

	var req models.SubmitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Widget == "" {
		respondError(w, http.StatusBadRequest, "Widget is required")
		return
	}

	if err := h.assistant.SubmitResponse(r.Context(), conversationID, &req); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Response submitted"})
}

// MountPayment handles POST /api/payments/{tripId}/mount
func (h *Handler) MountPayment(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["tripId"]

	var req models.MountPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := h.assistant.MountPayment(r.Context(), tripID, req.ConversationID, req.InterruptID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// Pay handles POST /api/payments/{tripId}/pay
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["tripId"]

	state, err := h.assistant.Pay(r.Context(), tripID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, state)
}

// GetPayment handles GET /api/payments/{tripId}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["tripId"]

	state, err := h.assistant.GetPayment(r.Context(), tripID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// CheckoutCallback handles POST /api/payments/{tripId}/checkout/callback
func (h *Handler) CheckoutCallback(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["tripId"]

	var cb models.CheckoutCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.assistant.CompleteCheckout(r.Context(), tripID, cb); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Checkout completed"})
}

// DismissCheckout handles POST /api/payments/{tripId}/checkout/dismiss
func (h *Handler) DismissCheckout(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["tripId"]

	if err := h.assistant.DismissCheckout(r.Context(), tripID); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Checkout dismissed"})
}

// ConversationEvents handles GET /api/conversations/{id}/ws
func (h *Handler) ConversationEvents(w http.ResponseWriter, r *http.Request) {
	if h.ws == nil {
		respondError(w, http.StatusServiceUnavailable, "Event stream not available")
		return
	}
	h.ws.ServeWS(w, r, mux.Vars(r)["id"])
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

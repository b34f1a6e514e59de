package router

import (
	"net/http"

	"github.com/cx-tal-miterani/booking-assistant/internal/handlers"
	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router. Extra middleware (for
// example authentication) runs after CORS on every route.
func SetupRouter(h *handlers.Handler, middleware ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()

	// CORS middleware
	r.Use(corsMiddleware)
	r.Use(middleware...)

	api := r.PathPrefix("/api").Subrouter()

	// Conversations
	api.HandleFunc("/conversations", h.StartConversation).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/conversations/{id}", h.GetConversation).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/conversations/{id}/responses", h.SubmitResponse).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/conversations/{id}/ws", h.ConversationEvents).Methods(http.MethodGet)

	// Payments
	api.HandleFunc("/payments/{tripId}", h.GetPayment).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/payments/{tripId}/mount", h.MountPayment).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/payments/{tripId}/pay", h.Pay).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/payments/{tripId}/checkout/callback", h.CheckoutCallback).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/payments/{tripId}/checkout/dismiss", h.DismissCheckout).Methods(http.MethodPost, http.MethodOptions)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

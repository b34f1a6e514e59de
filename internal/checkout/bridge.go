// Package checkout bridges the payment machine to the checkout widget running
// in the user's browser. Opening a checkout pushes the options over the
// conversation's websocket; the browser reports the outcome over HTTP.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/shared/models"
)

// DefaultTimeout bounds how long an opened checkout waits for the browser
const DefaultTimeout = 15 * time.Minute

// Errors returned by the checkout bridge
var (
	ErrCheckoutUnavailable = errors.New("checkout is not loaded in any browser for this conversation")
	ErrSessionExists       = errors.New("checkout already open for trip")
	ErrUnknownSession      = errors.New("no open checkout for trip")
	ErrOrderMismatch       = errors.New("callback order does not match the open checkout")
	ErrCheckoutTimeout     = errors.New("checkout timed out")
)

// Publisher delivers checkout requests to the browser
type Publisher interface {
	OpenCheckout(ctx context.Context, conversationID, tripID string, opts models.CheckoutOptions)
	GetClientCount(conversationID string) int
}

type session struct {
	conversationID string
	orderID        string
	result         chan models.CheckoutResult
}

// Bridge tracks open checkouts by trip id
type Bridge struct {
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewBridge creates a Bridge. A zero timeout uses DefaultTimeout.
func NewBridge(publisher Publisher, timeout time.Duration, logger *slog.Logger) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

// Gateway returns the checkout for one trip in one conversation
func (b *Bridge) Gateway(conversationID, tripID string) *Gateway {
	return &Gateway{bridge: b, conversationID: conversationID, tripID: tripID}
}

// Complete reports a successful checkout for tripID
func (b *Bridge) Complete(tripID string, cb models.CheckoutCallback) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[tripID]
	if !ok {
		return ErrUnknownSession
	}
	if cb.RazorpayOrderID != "" && s.orderID != "" && cb.RazorpayOrderID != s.orderID {
		return fmt.Errorf("%w: got %s", ErrOrderMismatch, cb.RazorpayOrderID)
	}
	b.resolveLocked(tripID, s, models.CheckoutResult{Outcome: models.CheckoutCompleted, Callback: cb})
	return nil
}

// Dismiss reports that the user closed the checkout for tripID
func (b *Bridge) Dismiss(tripID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[tripID]
	if !ok {
		return ErrUnknownSession
	}
	b.resolveLocked(tripID, s, models.CheckoutResult{Outcome: models.CheckoutDismissed})
	return nil
}

// IsOpen reports whether a checkout is waiting for tripID
func (b *Bridge) IsOpen(tripID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sessions[tripID]
	return ok
}

// resolveLocked delivers the first outcome only; result is buffered
func (b *Bridge) resolveLocked(tripID string, s *session, result models.CheckoutResult) {
	delete(b.sessions, tripID)
	s.result <- result
}

func (b *Bridge) open(conversationID, tripID, orderID string) (*session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.sessions[tripID]; ok {
		return nil, ErrSessionExists
	}
	s := &session{
		conversationID: conversationID,
		orderID:        orderID,
		result:         make(chan models.CheckoutResult, 1),
	}
	b.sessions[tripID] = s
	return s, nil
}

func (b *Bridge) abandon(tripID string, s *session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessions[tripID] == s {
		delete(b.sessions, tripID)
	}
}

// Gateway is the checkout seen by one payment machine
type Gateway struct {
	bridge         *Bridge
	conversationID string
	tripID         string
}

// Ready fails when no browser is attached to the conversation
func (g *Gateway) Ready(ctx context.Context) error {
	if g.bridge.publisher.GetClientCount(g.conversationID) == 0 {
		return ErrCheckoutUnavailable
	}
	return nil
}

// Open pushes opts to the browser and waits for the user to pay or dismiss
func (g *Gateway) Open(ctx context.Context, opts models.CheckoutOptions) (models.CheckoutResult, error) {
	s, err := g.bridge.open(g.conversationID, g.tripID, opts.OrderID)
	if err != nil {
		return models.CheckoutResult{}, err
	}

	g.bridge.logger.Info("Opening checkout", "tripId", g.tripID, "conversationId", g.conversationID, "orderId", opts.OrderID)
	g.bridge.publisher.OpenCheckout(ctx, g.conversationID, g.tripID, opts)

	timer := time.NewTimer(g.bridge.timeout)
	defer timer.Stop()

	select {
	case result := <-s.result:
		return result, nil
	case <-ctx.Done():
		g.bridge.abandon(g.tripID, s)
		return models.CheckoutResult{}, ctx.Err()
	case <-timer.C:
		g.bridge.abandon(g.tripID, s)
		return models.CheckoutResult{}, ErrCheckoutTimeout
	}
}

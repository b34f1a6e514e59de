package service

import (
	"log/slog"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/internal/checkout"
	"github.com/cx-tal-miterani/booking-assistant/internal/interrupt"
	"github.com/cx-tal-miterani/booking-assistant/internal/payment"
)

// Handles resolves a conversation id to a resumable handle
type Handles interface {
	Handle(conversationID string) interrupt.Conversation
}

// PaymentDeps are shared by every payment machine
type PaymentDeps struct {
	Conversations   Handles
	Submitter       *interrupt.Submitter
	API             payment.API
	Checkout        *checkout.Bridge
	Records         *payment.RecordStore
	Notifier        interrupt.Notifier
	Views           payment.ViewSwitcher
	Logger          *slog.Logger
	ResumeTimeout   time.Duration
	ViewSwitchDelay time.Duration
	ThemeColor      string
}

// NewPaymentFactory builds machines bound to their conversation and checkout
func NewPaymentFactory(d PaymentDeps) payment.Factory {
	return func(tripID, conversationID, interruptID string) (*payment.Machine, error) {
		return payment.NewMachine(payment.Config{
			TripID:          tripID,
			ConversationID:  conversationID,
			InterruptID:     interruptID,
			Conversation:    d.Conversations.Handle(conversationID),
			Submitter:       d.Submitter,
			API:             d.API,
			Checkout:        d.Checkout.Gateway(conversationID, tripID),
			Records:         d.Records,
			Notifier:        d.Notifier,
			Views:           d.Views,
			Logger:          d.Logger,
			ResumeTimeout:   d.ResumeTimeout,
			ViewSwitchDelay: d.ViewSwitchDelay,
			ThemeColor:      d.ThemeColor,
		})
	}
}

// Package payment reconciles a trip's payment with the external checkout and
// reports the outcome back into the conversation.
package payment

import (
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/booking-assistant/shared/models"
)

// ErrInvalidTransition is returned when an event does not apply to the current state
var ErrInvalidTransition = errors.New("invalid payment transition")

// Event drives the payment state machine
type Event interface {
	isEvent()
}

// Initiate starts an attempt from idle
type Initiate struct{}

// Retry starts a new attempt after a failure
type Retry struct{}

// PrepaymentSucceeded carries the order created by the prepayment step
type PrepaymentSucceeded struct {
	Data models.PrepaymentData
}

// Failed ends an attempt. Cancelled marks a dismissal by the user.
type Failed struct {
	Reason    string
	Cancelled bool
}

// Verified carries the server-confirmed verification response
type Verified struct {
	Response models.VerificationResponse
}

// Hydrate seeds state from a persisted success record
type Hydrate struct {
	Record models.PersistedPaymentRecord
}

func (Initiate) isEvent()            {}
func (Retry) isEvent()               {}
func (PrepaymentSucceeded) isEvent() {}
func (Failed) isEvent()              {}
func (Verified) isEvent()            {}
func (Hydrate) isEvent()             {}

// Transition is the single reducer of the payment state machine. It never
// performs side effects; an illegal event for the current state returns
// ErrInvalidTransition and the unchanged state.
func Transition(state models.PaymentState, ev Event) (models.PaymentState, error) {
	switch e := ev.(type) {
	case Initiate:
		if state.Status == models.PaymentStatusIdle {
			return models.PaymentState{Status: models.PaymentStatusLoading}, nil
		}
	case Retry:
		if state.Status == models.PaymentStatusFailed {
			return models.PaymentState{Status: models.PaymentStatusLoading}, nil
		}
	case PrepaymentSucceeded:
		if state.Status == models.PaymentStatusLoading {
			data := e.Data
			return models.PaymentState{
				Status:         models.PaymentStatusProcessing,
				PrepaymentData: &data,
			}, nil
		}
	case Failed:
		if state.Status == models.PaymentStatusLoading || state.Status == models.PaymentStatusProcessing {
			next := models.PaymentState{
				Status: models.PaymentStatusFailed,
				Error:  e.Reason,
			}
			if !e.Cancelled {
				next.PrepaymentData = state.PrepaymentData
			}
			return next, nil
		}
	case Verified:
		if state.Status == models.PaymentStatusProcessing {
			resp := e.Response
			return models.PaymentState{
				Status:               models.PaymentStatusSuccess,
				PrepaymentData:       state.PrepaymentData,
				VerificationResponse: &resp,
			}, nil
		}
	case Hydrate:
		if state.Status == models.PaymentStatusIdle && e.Record.Status == models.PaymentStatusSuccess {
			return models.PaymentState{
				Status:               models.PaymentStatusSuccess,
				VerificationResponse: e.Record.VerificationResponse,
			}, nil
		}
	}
	return state, fmt.Errorf("%w: %T from %s", ErrInvalidTransition, ev, state.Status)
}

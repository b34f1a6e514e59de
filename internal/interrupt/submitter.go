// Package interrupt turns widget input into resumption messages for a
// suspended conversation.
package interrupt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cx-tal-miterani/booking-assistant/shared/models"
)

// ErrUnserializable is returned when the response data cannot be encoded
var ErrUnserializable = errors.New("response data is not serializable")

// Conversation is the handle owning the suspension point
type Conversation interface {
	Resume(ctx context.Context, messages []models.ResumptionMessage, opts models.ResumeOptions) error
}

// Identity resolves the acting user. An empty id means no identity.
type Identity interface {
	CurrentUserID(ctx context.Context) string
}

// Notifier delivers transient user-visible notifications
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Options are the optional parts of a submission
type Options struct {
	InterruptID string
	FrozenValue *models.FrozenValue
}

// Submitter resumes conversations with widget responses
type Submitter struct {
	identity Identity
	notifier Notifier
	logger   *slog.Logger
}

// NewSubmitter creates a new Submitter. identity and notifier may be nil.
func NewSubmitter(identity Identity, notifier Notifier, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		identity: identity,
		notifier: notifier,
		logger:   logger,
	}
}

// Submit resumes conv with a single {type, data} message. It makes exactly one
// resume attempt; on failure it notifies the user and returns the handle's error
// unchanged so callers can reset their own state.
func (s *Submitter) Submit(ctx context.Context, conv Conversation, typ string, data any, opts Options) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnserializable, err)
	}

	resumeOpts := models.ResumeOptions{
		InterruptID: opts.InterruptID,
		FrozenValue: opts.FrozenValue,
	}
	if s.identity != nil {
		resumeOpts.UserID = s.identity.CurrentUserID(ctx)
	}

	messages := []models.ResumptionMessage{{Type: typ, Data: raw}}
	if err := conv.Resume(ctx, messages, resumeOpts); err != nil {
		s.logger.Error("Error submitting response", "type", typ, "interruptId", opts.InterruptID, "error", err)
		s.notifyFailure(ctx, conv)
		return err
	}
	return nil
}

// SubmitResponse submits a validated widget response with the widget's type tag.
func (s *Submitter) SubmitResponse(ctx context.Context, conv Conversation, resp models.WidgetResponse, opts Options) error {
	return s.Submit(ctx, conv, models.ResumptionTypeFor(resp.Widget()), resp, opts)
}

func (s *Submitter) notifyFailure(ctx context.Context, conv Conversation) {
	if s.notifier == nil {
		return
	}
	n := models.Notification{
		Level:       models.NotificationError,
		Title:       "Error",
		Description: "Failed to submit response.",
	}
	if identified, ok := conv.(interface{ ID() string }); ok {
		n.ConversationID = identified.ID()
	}
	s.notifier.Notify(ctx, n)
}

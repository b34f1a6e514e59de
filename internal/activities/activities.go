package activities

import (
	"context"
	"fmt"

	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"go.temporal.io/sdk/activity"
)

// Store is the persistence the conversation activities write to
type Store interface {
	SaveResumption(ctx context.Context, conversationID string, entry models.TranscriptEntry) error
	UpdateConversationStatus(ctx context.Context, conversationID string, status models.ConversationStatus) error
}

// Activities are the side effects of the conversation workflow. Register the
// struct with the worker; the activity names are the method names.
type Activities struct {
	store Store
}

// NewActivities creates Activities. A nil store only logs.
func NewActivities(store Store) *Activities {
	return &Activities{store: store}
}

// RecordResumption persists one answered interrupt
func (a *Activities) RecordResumption(ctx context.Context, input models.RecordResumptionInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Recording resumption",
		"conversationId", input.ConversationID,
		"interruptId", input.Entry.Interrupt.ID,
		"widget", input.Entry.Interrupt.Widget)

	if a.store == nil {
		return nil
	}
	if err := a.store.SaveResumption(ctx, input.ConversationID, input.Entry); err != nil {
		return fmt.Errorf("failed to record resumption: %w", err)
	}
	return nil
}

// CompleteConversation stores the final status of a conversation
func (a *Activities) CompleteConversation(ctx context.Context, input models.CompleteConversationInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Completing conversation", "conversationId", input.ConversationID, "status", input.Status)

	if a.store == nil {
		return nil
	}
	if err := a.store.UpdateConversationStatus(ctx, input.ConversationID, input.Status); err != nil {
		return fmt.Errorf("failed to complete conversation: %w", err)
	}
	return nil
}

package workflows

import (
	"time"

	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// IdleTimeout is how long a conversation waits for any resume before it expires
	IdleTimeout = 30 * time.Minute
	// WorkflowIDPrefix namespaces conversation workflow ids
	WorkflowIDPrefix = "conversation-"
)

// WorkflowID returns the workflow id hosting a conversation
func WorkflowID(conversationID string) string {
	return WorkflowIDPrefix + conversationID
}

// ConversationWorkflow hosts a conversation's suspension points. Each step
// raises its interrupts together and waits until every one of them has been
// resumed. A resume signal targets an interrupt by id, or the most recently
// raised pending interrupt when no id is given.
func ConversationWorkflow(ctx workflow.Context, input models.ConversationInput) (*models.ConversationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Conversation workflow started", "conversationId", input.ConversationID, "steps", len(input.Steps))

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	state := &models.ConversationState{
		ConversationID: input.ConversationID,
		Status:         models.ConversationStatusActive,
		Pending:        []models.Interrupt{},
		Transcript:     []models.TranscriptEntry{},
	}

	if err := workflow.SetQueryHandler(ctx, models.QueryPendingInterrupts, func() ([]models.Interrupt, error) {
		return state.Pending, nil
	}); err != nil {
		return nil, err
	}
	if err := workflow.SetQueryHandler(ctx, models.QueryConversationState, func() (*models.ConversationState, error) {
		return state, nil
	}); err != nil {
		return nil, err
	}

	resumeCh := workflow.GetSignalChannel(ctx, models.SignalResume)

	for i, step := range input.Steps {
		for _, req := range step.Interrupts {
			state.Pending = append(state.Pending, raise(ctx, req))
		}
		logger.Info("Interrupts raised", "step", i, "pending", len(state.Pending))

		for len(state.Pending) > 0 {
			timerCtx, cancelTimer := workflow.WithCancel(ctx)
			idle := false

			selector := workflow.NewSelector(ctx)
			selector.AddReceive(resumeCh, func(c workflow.ReceiveChannel, more bool) {
				var signal models.ResumeSignal
				c.Receive(ctx, &signal)
				resume(ctx, state, signal)
			})
			selector.AddFuture(workflow.NewTimer(timerCtx, IdleTimeout), func(f workflow.Future) {
				if err := f.Get(ctx, nil); err == nil {
					idle = true
				}
			})

			selector.Select(ctx)
			cancelTimer()

			if ctx.Err() != nil {
				return finish(ctx, state, models.ConversationStatusCancelled), nil
			}
			if idle {
				logger.Info("Conversation idle, expiring", "pending", len(state.Pending))
				return finish(ctx, state, models.ConversationStatusExpired), nil
			}
		}
	}

	return finish(ctx, state, models.ConversationStatusCompleted), nil
}

func raise(ctx workflow.Context, req models.InterruptRequest) models.Interrupt {
	var id string
	encoded := workflow.SideEffect(ctx, func(ctx workflow.Context) interface{} {
		return uuid.NewString()
	})
	_ = encoded.Get(&id)

	return models.Interrupt{
		ID:        id,
		Widget:    req.Widget,
		Args:      req.Args,
		CreatedAt: workflow.Now(ctx),
	}
}

func resume(ctx workflow.Context, state *models.ConversationState, signal models.ResumeSignal) {
	logger := workflow.GetLogger(ctx)

	idx := -1
	if signal.InterruptID == "" {
		idx = len(state.Pending) - 1
	} else {
		for i, p := range state.Pending {
			if p.ID == signal.InterruptID {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		logger.Warn("Resume for unknown interrupt ignored", "interruptId", signal.InterruptID)
		return
	}

	target := state.Pending[idx]
	state.Pending = append(state.Pending[:idx:idx], state.Pending[idx+1:]...)

	entry := models.TranscriptEntry{
		Interrupt:   target,
		Messages:    signal.Messages,
		FrozenValue: signal.FrozenValue,
		UserID:      signal.UserID,
		ResumedAt:   workflow.Now(ctx),
	}
	state.Transcript = append(state.Transcript, entry)
	logger.Info("Interrupt resumed", "interruptId", target.ID, "widget", target.Widget, "messages", len(signal.Messages))

	err := workflow.ExecuteActivity(ctx, "RecordResumption", models.RecordResumptionInput{
		ConversationID: state.ConversationID,
		Entry:          entry,
	}).Get(ctx, nil)
	if err != nil {
		logger.Error("Failed to record resumption", "interruptId", target.ID, "error", err)
	}
}

func finish(ctx workflow.Context, state *models.ConversationState, status models.ConversationStatus) *models.ConversationResult {
	logger := workflow.GetLogger(ctx)
	state.Status = status

	// a cancelled workflow context cannot schedule activities
	if status == models.ConversationStatusCancelled {
		ctx, _ = workflow.NewDisconnectedContext(ctx)
	}
	err := workflow.ExecuteActivity(ctx, "CompleteConversation", models.CompleteConversationInput{
		ConversationID: state.ConversationID,
		Status:         status,
	}).Get(ctx, nil)
	if err != nil {
		logger.Error("Failed to complete conversation", "status", status, "error", err)
	}

	logger.Info("Conversation workflow finished", "conversationId", state.ConversationID, "status", status)
	return &models.ConversationResult{
		ConversationID: state.ConversationID,
		Status:         status,
		Transcript:     state.Transcript,
	}
}

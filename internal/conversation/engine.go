// Package conversation drives conversations hosted as Temporal workflows.
// Resuming a suspended conversation is a signal; its pending interrupts are a
// query.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cx-tal-miterani/booking-assistant/internal/interrupt"
	"github.com/cx-tal-miterani/booking-assistant/internal/workflows"
	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

const DefaultTaskQueue = "booking-assistant-queue"

// Errors returned when resolving or resuming a conversation
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNoPendingInterrupt   = errors.New("conversation has no pending interrupt")
	ErrInterruptNotFound    = errors.New("interrupt is not pending")
)

// Engine starts conversations and hands out resumable handles to them
type Engine struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewEngine creates an Engine on the given task queue
func NewEngine(c client.Client, taskQueue string, logger *slog.Logger) *Engine {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: c, taskQueue: taskQueue, logger: logger}
}

// Start launches the workflow hosting input's conversation and returns its id
func (e *Engine) Start(ctx context.Context, input models.ConversationInput) (string, error) {
	workflowOptions := client.StartWorkflowOptions{
		ID:        workflows.WorkflowID(input.ConversationID),
		TaskQueue: e.taskQueue,
	}

	run, err := e.client.ExecuteWorkflow(ctx, workflowOptions, workflows.ConversationWorkflow, input)
	if err != nil {
		return "", fmt.Errorf("failed to start conversation workflow: %w", err)
	}
	e.logger.Info("Conversation started", "conversationId", input.ConversationID, "workflowId", run.GetID(), "runId", run.GetRunID())
	return run.GetID(), nil
}

// Thread returns the handle of a conversation
func (e *Engine) Thread(conversationID string) *Thread {
	return &Thread{engine: e, conversationID: conversationID}
}

// Handle returns the conversation as a resumable handle
func (e *Engine) Handle(conversationID string) interrupt.Conversation {
	return e.Thread(conversationID)
}

// Pending returns the interrupts currently awaiting a resume
func (e *Engine) Pending(ctx context.Context, conversationID string) ([]models.Interrupt, error) {
	var pending []models.Interrupt
	if err := e.query(ctx, conversationID, models.QueryPendingInterrupts, &pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// State returns the live state of a conversation
func (e *Engine) State(ctx context.Context, conversationID string) (*models.ConversationState, error) {
	var state models.ConversationState
	if err := e.query(ctx, conversationID, models.QueryConversationState, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (e *Engine) query(ctx context.Context, conversationID, queryType string, out any) error {
	value, err := e.client.QueryWorkflow(ctx, workflows.WorkflowID(conversationID), "", queryType)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
		}
		return fmt.Errorf("failed to query conversation: %w", err)
	}
	if err := value.Get(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", queryType, err)
	}
	return nil
}

// Thread is a handle to one conversation
type Thread struct {
	engine         *Engine
	conversationID string
}

// ID returns the conversation id
func (t *Thread) ID() string {
	return t.conversationID
}

// Resume unsuspends the conversation. It fails with ErrNoPendingInterrupt when
// nothing is waiting and ErrInterruptNotFound when opts targets an interrupt
// that is not pending.
func (t *Thread) Resume(ctx context.Context, messages []models.ResumptionMessage, opts models.ResumeOptions) error {
	pending, err := t.engine.Pending(ctx, t.conversationID)
	if errors.Is(err, ErrConversationNotFound) {
		return fmt.Errorf("%w: %v", ErrNoPendingInterrupt, err)
	}
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return ErrNoPendingInterrupt
	}
	if opts.InterruptID != "" && !containsInterrupt(pending, opts.InterruptID) {
		return fmt.Errorf("%w: %s", ErrInterruptNotFound, opts.InterruptID)
	}

	signal := models.ResumeSignal{
		InterruptID: opts.InterruptID,
		Messages:    messages,
		FrozenValue: opts.FrozenValue,
		UserID:      opts.UserID,
	}
	if err := t.engine.client.SignalWorkflow(ctx, workflows.WorkflowID(t.conversationID), "", models.SignalResume, signal); err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w: %v", ErrNoPendingInterrupt, err)
		}
		return fmt.Errorf("failed to resume conversation: %w", err)
	}
	return nil
}

func containsInterrupt(pending []models.Interrupt, id string) bool {
	for _, p := range pending {
		if p.ID == id {
			return true
		}
	}
	return false
}

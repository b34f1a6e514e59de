package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/cx-tal-miterani/booking-assistant/internal/workflows"
	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
)

func pendingValue(pending []models.Interrupt) *mocks.Value {
	value := new(mocks.Value)
	value.On("Get", mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(0).(*[]models.Interrupt) = pending
	}).Return(nil)
	return value
}

func TestThread_ResumeSignalsWorkflow(t *testing.T) {
	c := new(mocks.Client)
	engine := NewEngine(c, "", nil)
	thread := engine.Thread("conv-1")

	c.On("QueryWorkflow", mock.Anything, "conversation-conv-1", "", models.QueryPendingInterrupts).
		Return(pendingValue([]models.Interrupt{{ID: "int-1"}}), nil).Once()
	c.On("SignalWorkflow", mock.Anything, "conversation-conv-1", "", models.SignalResume,
		mock.MatchedBy(func(sig models.ResumeSignal) bool {
			return sig.InterruptID == "int-1" && sig.UserID == "user-42" && len(sig.Messages) == 1
		})).Return(nil).Once()

	err := thread.Resume(context.Background(),
		[]models.ResumptionMessage{{Type: "response", Data: []byte(`{}`)}},
		models.ResumeOptions{InterruptID: "int-1", UserID: "user-42"})

	require.NoError(t, err)
	assert.Equal(t, "conv-1", thread.ID())
	c.AssertExpectations(t)
}

func TestThread_ResumeWithoutPending(t *testing.T) {
	c := new(mocks.Client)
	thread := NewEngine(c, "", nil).Thread("conv-1")

	c.On("QueryWorkflow", mock.Anything, "conversation-conv-1", "", models.QueryPendingInterrupts).
		Return(pendingValue(nil), nil).Once()

	err := thread.Resume(context.Background(), nil, models.ResumeOptions{})

	assert.ErrorIs(t, err, ErrNoPendingInterrupt)
	c.AssertNotCalled(t, "SignalWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestThread_ResumeUnknownInterrupt(t *testing.T) {
	c := new(mocks.Client)
	thread := NewEngine(c, "", nil).Thread("conv-1")

	c.On("QueryWorkflow", mock.Anything, "conversation-conv-1", "", models.QueryPendingInterrupts).
		Return(pendingValue([]models.Interrupt{{ID: "int-1"}}), nil).Once()

	err := thread.Resume(context.Background(), nil, models.ResumeOptions{InterruptID: "int-9"})

	assert.ErrorIs(t, err, ErrInterruptNotFound)
}

func TestThread_ResumeFinishedWorkflow(t *testing.T) {
	c := new(mocks.Client)
	thread := NewEngine(c, "", nil).Thread("conv-1")

	c.On("QueryWorkflow", mock.Anything, "conversation-conv-1", "", models.QueryPendingInterrupts).
		Return(nil, serviceerror.NewNotFound("workflow not found")).Once()

	err := thread.Resume(context.Background(), nil, models.ResumeOptions{})

	assert.ErrorIs(t, err, ErrNoPendingInterrupt)
}

func TestThread_SignalError(t *testing.T) {
	c := new(mocks.Client)
	thread := NewEngine(c, "", nil).Thread("conv-1")

	c.On("QueryWorkflow", mock.Anything, "conversation-conv-1", "", models.QueryPendingInterrupts).
		Return(pendingValue([]models.Interrupt{{ID: "int-1"}}), nil).Once()
	c.On("SignalWorkflow", mock.Anything, "conversation-conv-1", "", models.SignalResume, mock.Anything).
		Return(errors.New("frontend unavailable")).Once()

	err := thread.Resume(context.Background(), nil, models.ResumeOptions{})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPendingInterrupt)
	assert.Contains(t, err.Error(), "frontend unavailable")
}

func TestEngine_Start(t *testing.T) {
	c := new(mocks.Client)
	run := new(mocks.WorkflowRun)
	run.On("GetID").Return("conversation-conv-1")
	run.On("GetRunID").Return("run-1")

	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
		return opts.ID == "conversation-conv-1" && opts.TaskQueue == "q"
	}), mock.Anything, mock.Anything).Return(run, nil).Once()

	id, err := NewEngine(c, "q", nil).Start(context.Background(), models.ConversationInput{ConversationID: "conv-1"})

	require.NoError(t, err)
	assert.Equal(t, workflows.WorkflowID("conv-1"), id)
	c.AssertExpectations(t)
}

func TestEngine_StateNotFound(t *testing.T) {
	c := new(mocks.Client)
	c.On("QueryWorkflow", mock.Anything, "conversation-conv-1", "", models.QueryConversationState).
		Return(nil, serviceerror.NewNotFound("workflow not found")).Once()

	_, err := NewEngine(c, "", nil).State(context.Background(), "conv-1")

	assert.ErrorIs(t, err, ErrConversationNotFound)
}

package workflows

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/internal/activities"
	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"
)

type ConversationWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *ConversationWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterActivity(activities.NewActivities(nil))
}

func (s *ConversationWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func TestConversationWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(ConversationWorkflowTestSuite))
}

func (s *ConversationWorkflowTestSuite) pending() []models.Interrupt {
	value, err := s.env.QueryWorkflow(models.QueryPendingInterrupts)
	s.Require().NoError(err)
	var pending []models.Interrupt
	s.Require().NoError(value.Get(&pending))
	return pending
}

func response(data string) []models.ResumptionMessage {
	return []models.ResumptionMessage{{Type: models.ResumptionTypeResponse, Data: json.RawMessage(data)}}
}

func (s *ConversationWorkflowTestSuite) result() *models.ConversationResult {
	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())
	var result models.ConversationResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	return &result
}

func (s *ConversationWorkflowTestSuite) TestWorkflow_Constants() {
	s.Equal(30*time.Minute, IdleTimeout)
	s.Equal("conversation-abc", WorkflowID("abc"))
}

func (s *ConversationWorkflowTestSuite) TestWorkflow_SingleInterruptResumed() {
	input := models.ConversationInput{
		ConversationID: "conv-1",
		Steps: []models.ConversationStep{{
			Interrupts: []models.InterruptRequest{{Widget: models.WidgetSeatSelection, Args: json.RawMessage(`{"flightNumber":"AI101"}`)}},
		}},
	}

	s.env.OnActivity("RecordResumption", mock.Anything, mock.MatchedBy(func(in models.RecordResumptionInput) bool {
		return in.ConversationID == "conv-1" && in.Entry.UserID == "user-42" && len(in.Entry.Messages) == 1
	})).Return(nil).Once()
	s.env.OnActivity("CompleteConversation", mock.Anything, models.CompleteConversationInput{
		ConversationID: "conv-1",
		Status:         models.ConversationStatusCompleted,
	}).Return(nil).Once()

	s.env.RegisterDelayedCallback(func() {
		pending := s.pending()
		s.Require().Len(pending, 1)
		s.Equal(models.WidgetSeatSelection, pending[0].Widget)
		s.NotEmpty(pending[0].ID)

		s.env.SignalWorkflow(models.SignalResume, models.ResumeSignal{
			Messages: response(`{"selectedSeat":"14F"}`),
			UserID:   "user-42",
		})
	}, time.Minute)

	s.env.ExecuteWorkflow(ConversationWorkflow, input)

	result := s.result()
	s.Equal(models.ConversationStatusCompleted, result.Status)
	s.Require().Len(result.Transcript, 1)
	s.Equal(models.WidgetSeatSelection, result.Transcript[0].Interrupt.Widget)
	s.JSONEq(`{"selectedSeat":"14F"}`, string(result.Transcript[0].Messages[0].Data))
}

func (s *ConversationWorkflowTestSuite) TestWorkflow_TargetedAndDefaultResume() {
	input := models.ConversationInput{
		ConversationID: "conv-1",
		Steps: []models.ConversationStep{{
			Interrupts: []models.InterruptRequest{
				{Widget: models.WidgetSeatSelection},
				{Widget: models.WidgetAddBaggage},
			},
		}},
	}

	s.env.OnActivity("RecordResumption", mock.Anything, mock.Anything).Return(nil).Twice()
	s.env.OnActivity("CompleteConversation", mock.Anything, mock.Anything).Return(nil).Once()

	var firstID string
	s.env.RegisterDelayedCallback(func() {
		pending := s.pending()
		s.Require().Len(pending, 2)
		firstID = pending[0].ID

		s.env.SignalWorkflow(models.SignalResume, models.ResumeSignal{
			InterruptID: firstID,
			Messages:    response(`{"selectedSeat":"14F"}`),
		})
	}, time.Minute)

	s.env.RegisterDelayedCallback(func() {
		pending := s.pending()
		s.Require().Len(pending, 1)
		s.Equal(models.WidgetAddBaggage, pending[0].Widget)

		s.env.SignalWorkflow(models.SignalResume, models.ResumeSignal{
			Messages: response(`{"checkedBags":1}`),
		})
	}, 2*time.Minute)

	s.env.ExecuteWorkflow(ConversationWorkflow, input)

	result := s.result()
	s.Equal(models.ConversationStatusCompleted, result.Status)
	s.Require().Len(result.Transcript, 2)
	s.Equal(firstID, result.Transcript[0].Interrupt.ID)
	s.Equal(models.WidgetAddBaggage, result.Transcript[1].Interrupt.Widget)
}

func (s *ConversationWorkflowTestSuite) TestWorkflow_StepsRunInOrder() {
	input := models.ConversationInput{
		ConversationID: "conv-1",
		Steps: []models.ConversationStep{
			{Interrupts: []models.InterruptRequest{{Widget: models.WidgetTravelerDetails}}},
			{Interrupts: []models.InterruptRequest{{Widget: models.WidgetNonAgentFlow}}},
		},
	}

	s.env.OnActivity("RecordResumption", mock.Anything, mock.Anything).Return(nil).Twice()
	s.env.OnActivity("CompleteConversation", mock.Anything, mock.Anything).Return(nil).Once()

	s.env.RegisterDelayedCallback(func() {
		pending := s.pending()
		s.Require().Len(pending, 1)
		s.Equal(models.WidgetTravelerDetails, pending[0].Widget)
		s.env.SignalWorkflow(models.SignalResume, models.ResumeSignal{
			Messages: []models.ResumptionMessage{{Type: models.ResumptionTypeBookingConfirmation, Data: json.RawMessage(`{}`)}},
		})
	}, time.Minute)

	s.env.RegisterDelayedCallback(func() {
		pending := s.pending()
		s.Require().Len(pending, 1)
		s.Equal(models.WidgetNonAgentFlow, pending[0].Widget)
		s.env.SignalWorkflow(models.SignalResume, models.ResumeSignal{
			InterruptID: pending[0].ID,
			Messages:    response(`{"paymentStatus":"SUCCESS","bookingStatus":"SUCCESS","pnr":"PNR123"}`),
		})
	}, 2*time.Minute)

	s.env.ExecuteWorkflow(ConversationWorkflow, input)

	result := s.result()
	s.Require().Len(result.Transcript, 2)
	s.Equal(models.ResumptionTypeBookingConfirmation, result.Transcript[0].Messages[0].Type)
	s.Equal(models.WidgetNonAgentFlow, result.Transcript[1].Interrupt.Widget)
}

func (s *ConversationWorkflowTestSuite) TestWorkflow_UnknownInterruptIgnoredThenExpires() {
	input := models.ConversationInput{
		ConversationID: "conv-1",
		Steps: []models.ConversationStep{{
			Interrupts: []models.InterruptRequest{{Widget: models.WidgetNonAgentFlow}},
		}},
	}

	s.env.OnActivity("CompleteConversation", mock.Anything, models.CompleteConversationInput{
		ConversationID: "conv-1",
		Status:         models.ConversationStatusExpired,
	}).Return(nil).Once()

	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(models.SignalResume, models.ResumeSignal{
			InterruptID: "does-not-exist",
			Messages:    response(`{}`),
		})
	}, time.Minute)

	s.env.ExecuteWorkflow(ConversationWorkflow, input)

	result := s.result()
	s.Equal(models.ConversationStatusExpired, result.Status)
	s.Empty(result.Transcript)
}

func (s *ConversationWorkflowTestSuite) TestWorkflow_Cancelled() {
	input := models.ConversationInput{
		ConversationID: "conv-1",
		Steps: []models.ConversationStep{{
			Interrupts: []models.InterruptRequest{{Widget: models.WidgetSeatPreference}},
		}},
	}

	s.env.OnActivity("CompleteConversation", mock.Anything, models.CompleteConversationInput{
		ConversationID: "conv-1",
		Status:         models.ConversationStatusCancelled,
	}).Return(nil).Once()

	s.env.RegisterDelayedCallback(func() {
		s.env.CancelWorkflow()
	}, time.Minute)

	s.env.ExecuteWorkflow(ConversationWorkflow, input)

	s.True(s.env.IsWorkflowCompleted())
}

func (s *ConversationWorkflowTestSuite) TestWorkflow_NoSteps() {
	s.env.OnActivity("CompleteConversation", mock.Anything, mock.Anything).Return(nil).Once()

	s.env.ExecuteWorkflow(ConversationWorkflow, models.ConversationInput{ConversationID: "conv-1"})

	result := s.result()
	s.Equal(models.ConversationStatusCompleted, result.Status)
}
